package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"

	"github.com/mmynk/tabsettle/internal/engine"
	"github.com/mmynk/tabsettle/internal/money"
	"github.com/mmynk/tabsettle/internal/pending"
)

// ExpenseReported asks to record an expense.
type ExpenseReported struct {
	GroupID        string   `json:"group_id"`
	TabID          string   `json:"tab_id"`
	PayerID        string   `json:"payer_id"`
	Amount         string   `json:"amount"`
	Description    string   `json:"description"`
	ParticipantIDs []string `json:"participant_ids"`
	Weights        []string `json:"weights,omitempty"`
}

// SettleRequested asks to propose a settlement.
type SettleRequested struct {
	GroupID string `json:"group_id"`
	TabID   string `json:"tab_id"`
	AssetID string `json:"asset_id,omitempty"`
}

// TransferObserved reports an on-chain transfer.
type TransferObserved struct {
	Sender       string `json:"sender"`
	Recipient    string `json:"recipient"`
	AtomicAmount string `json:"atomic_amount"`
	AssetID      string `json:"asset_id,omitempty"`
	TxReference  string `json:"tx_reference"`
}

// Reply is sent back on request-reply messages.
type Reply struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	Result any    `json:"result,omitempty"`
}

// ErrUnknownSubject is returned for messages on subjects the consumer does not serve.
var ErrUnknownSubject = errors.New("unknown subject")

// Consumer drives the engine from inbound NATS messages.
type Consumer struct {
	engine  *engine.Engine
	timeout time.Duration
}

// NewConsumer creates a Consumer. Each message is handled within timeout.
func NewConsumer(e *engine.Engine, timeout time.Duration) *Consumer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Consumer{engine: e, timeout: timeout}
}

// Subscribe registers queue subscriptions for every inbound subject.
func (c *Consumer) Subscribe(conn *nats.Conn) ([]*nats.Subscription, error) {
	var subs []*nats.Subscription
	for _, subject := range []string{SubjectExpenseReported, SubjectSettleRequested, SubjectTransferObserved} {
		sub, err := conn.QueueSubscribe(subject, QueueGroup, c.handle)
		if err != nil {
			for _, s := range subs {
				_ = s.Unsubscribe()
			}
			return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func (c *Consumer) handle(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	result, err := c.Dispatch(ctx, msg.Subject, msg.Data)
	reply := Reply{OK: err == nil, Result: result}
	if err != nil {
		reply.Error = err.Error()
		slog.Warn("Bus message failed", "subject", msg.Subject, "error", err)
	}

	if msg.Reply == "" {
		return
	}
	payload, err := json.Marshal(reply)
	if err != nil {
		slog.Error("Failed to marshal bus reply", "subject", msg.Subject, "error", err)
		return
	}
	if err := msg.Respond(payload); err != nil {
		slog.Warn("Failed to send bus reply", "subject", msg.Subject, "error", err)
	}
}

// Dispatch decodes data for subject and runs the matching engine operation.
func (c *Consumer) Dispatch(ctx context.Context, subject string, data []byte) (any, error) {
	switch subject {
	case SubjectExpenseReported:
		var m ExpenseReported
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode %s: %w", subject, err)
		}
		return c.addExpense(ctx, m)

	case SubjectSettleRequested:
		var m SettleRequested
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode %s: %w", subject, err)
		}
		res, err := c.engine.ProposeSettlement(ctx, m.GroupID, m.TabID, m.AssetID)
		if err != nil {
			return nil, err
		}
		return res, nil

	case SubjectTransferObserved:
		var m TransferObserved
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode %s: %w", subject, err)
		}
		conf, err := c.engine.HandleTransfer(ctx, pending.Observation{
			Sender:       m.Sender,
			Recipient:    m.Recipient,
			AtomicAmount: m.AtomicAmount,
			AssetID:      m.AssetID,
			TxReference:  m.TxReference,
		})
		if err != nil || conf == nil {
			return nil, err
		}
		return conf, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSubject, subject)
}

func (c *Consumer) addExpense(ctx context.Context, m ExpenseReported) (any, error) {
	amount, err := money.Parse(m.Amount)
	if err != nil {
		return nil, err
	}
	var weights []decimal.Decimal
	for _, w := range m.Weights {
		weight, err := money.Parse(w)
		if err != nil {
			return nil, fmt.Errorf("weight: %w", err)
		}
		weights = append(weights, weight)
	}
	expense, err := c.engine.AddExpense(ctx, engine.AddExpenseInput{
		GroupID:        m.GroupID,
		TabID:          m.TabID,
		PayerID:        m.PayerID,
		Amount:         amount,
		Description:    m.Description,
		ParticipantIDs: m.ParticipantIDs,
		Weights:        weights,
	})
	if err != nil {
		return nil, err
	}
	return expense, nil
}

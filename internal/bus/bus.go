// Package bus connects the engine to NATS: inbound commands from the chat
// layer and chain watcher, outbound notifications per group.
package bus

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects.
const (
	SubjectExpenseReported  = "tabsettle.expense.reported"
	SubjectSettleRequested  = "tabsettle.settle.requested"
	SubjectTransferObserved = "tabsettle.transfer.observed"

	notifyPrefix = "tabsettle.notify."

	// QueueGroup spreads inbound messages across service replicas.
	QueueGroup = "tabsettle"
)

// Config holds NATS connection settings.
type Config struct {
	URL           string
	Name          string
	ReconnectWait time.Duration
	MaxReconnects int
}

// Connect dials NATS and logs connection state changes.
func Connect(cfg Config) (*nats.Conn, error) {
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 2 * time.Second
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = -1
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

// NotifySubject returns the subject notifications for groupID are published on.
func NotifySubject(groupID string) string {
	return notifyPrefix + subjectToken(groupID)
}

// subjectToken makes s safe to use as a single subject token.
func subjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}

package bus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/tabsettle/internal/engine"
	"github.com/mmynk/tabsettle/internal/models"
	"github.com/mmynk/tabsettle/internal/pending"
	"github.com/mmynk/tabsettle/internal/storage/memory"
)

type published struct {
	subject string
	data    []byte
}

type fakeConn struct {
	msgs []published
	err  error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{subject, data})
	return nil
}

func TestNotifySubject(t *testing.T) {
	assert.Equal(t, "tabsettle.notify.chat-1", NotifySubject("chat-1"))
	assert.Equal(t, "tabsettle.notify.a_b_c_", NotifySubject("a.b c>"))
	assert.Equal(t, "tabsettle.notify._", NotifySubject(""))
}

func TestPublisher(t *testing.T) {
	conn := &fakeConn{}
	p := NewPublisher(conn)

	err := p.Notify(context.Background(), engine.Event{Type: engine.EventTabSettled, GroupID: "g1", TabID: "t1", Status: models.TabSettled})
	require.NoError(t, err)
	require.Len(t, conn.msgs, 1)
	assert.Equal(t, "tabsettle.notify.g1", conn.msgs[0].subject)

	var ev engine.Event
	require.NoError(t, json.Unmarshal(conn.msgs[0].data, &ev))
	assert.Equal(t, engine.EventTabSettled, ev.Type)
	assert.Equal(t, "t1", ev.TabID)

	conn.err = errors.New("connection closed")
	assert.Error(t, p.Notify(context.Background(), engine.Event{Type: engine.EventTabCreated, GroupID: "g1"}))
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()
	conn := &fakeConn{}
	eng := engine.New(memory.New(), pending.NewMatcher(pending.NewMemoryIndex(), 0), engine.Options{Notifier: NewPublisher(conn)})
	consumer := NewConsumer(eng, 0)

	tab, err := eng.CreateTab(ctx, engine.CreateTabInput{
		GroupID:  "g1",
		Name:     "trip",
		Currency: "USDC",
		Participants: []models.Participant{
			{MemberID: "A", Address: "0x1111111111111111111111111111111111111111"},
			{MemberID: "B", Address: "0x2222222222222222222222222222222222222222"},
		},
	})
	require.NoError(t, err)

	expense, _ := json.Marshal(ExpenseReported{
		GroupID: "g1", TabID: tab.ID, PayerID: "A", Amount: "10", ParticipantIDs: []string{"A", "B"},
	})
	result, err := consumer.Dispatch(ctx, SubjectExpenseReported, expense)
	require.NoError(t, err)
	assert.IsType(t, &models.Expense{}, result)

	settle, _ := json.Marshal(SettleRequested{GroupID: "g1", TabID: tab.ID})
	result, err = consumer.Dispatch(ctx, SubjectSettleRequested, settle)
	require.NoError(t, err)
	proposed, ok := result.(*engine.ProposeResult)
	require.True(t, ok)
	require.Len(t, proposed.Settlement.Transactions, 1)
	assert.Equal(t, "5000000", proposed.Settlement.Transactions[0].AtomicAmount)

	transfer, _ := json.Marshal(TransferObserved{
		Sender:       "0x2222222222222222222222222222222222222222",
		Recipient:    "0x1111111111111111111111111111111111111111",
		AtomicAmount: "5000000",
		TxReference:  "0xfeed",
	})
	result, err = consumer.Dispatch(ctx, SubjectTransferObserved, transfer)
	require.NoError(t, err)
	conf, ok := result.(*engine.Confirmation)
	require.True(t, ok)
	assert.Equal(t, models.TabSettled, conf.Tab.Status)

	result, err = consumer.Dispatch(ctx, SubjectTransferObserved, transfer)
	require.NoError(t, err)
	assert.Nil(t, result)

	last := conn.msgs[len(conn.msgs)-1]
	assert.Equal(t, "tabsettle.notify.g1", last.subject)
	assert.Contains(t, string(last.data), `"type":"tab_settled"`)
}

func TestDispatchErrors(t *testing.T) {
	ctx := context.Background()
	eng := engine.New(memory.New(), pending.NewMatcher(pending.NewMemoryIndex(), 0), engine.Options{})
	consumer := NewConsumer(eng, 0)

	_, err := consumer.Dispatch(ctx, "tabsettle.unknown", []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnknownSubject)

	_, err = consumer.Dispatch(ctx, SubjectExpenseReported, []byte(`not json`))
	assert.Error(t, err)

	bad, _ := json.Marshal(ExpenseReported{GroupID: "g1", TabID: "t1", Amount: "ten"})
	_, err = consumer.Dispatch(ctx, SubjectExpenseReported, bad)
	assert.Error(t, err)

	settle, _ := json.Marshal(SettleRequested{GroupID: "g1", TabID: "missing"})
	result, err := consumer.Dispatch(ctx, SubjectSettleRequested, settle)
	assert.ErrorIs(t, err, engine.ErrNotFound)
	assert.Nil(t, result)
}

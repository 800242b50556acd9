package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mmynk/tabsettle/internal/engine"
)

var _ engine.Notifier = (*Publisher)(nil)

// publisher is the part of *nats.Conn the Publisher needs.
type publisher interface {
	Publish(subject string, data []byte) error
}

// Publisher sends engine events to tabsettle.notify.{groupId}.
type Publisher struct {
	conn publisher
}

// NewPublisher creates a Publisher over a NATS connection.
func NewPublisher(conn publisher) *Publisher {
	return &Publisher{conn: conn}
}

func (p *Publisher) Notify(_ context.Context, event engine.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.conn.Publish(NotifySubject(event.GroupID), payload); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	return nil
}

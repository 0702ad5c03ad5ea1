// Package events publishes bill and production lifecycle events so
// surrounding systems (accounting export, notification mailers) can
// react without polling the database.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Subjects published by the service.
const (
	SubjectBillPlaced     = "merchant.bill.placed"
	SubjectBillStatus     = "merchant.bill.status"
	SubjectBillCompleted  = "merchant.bill.completed"
	SubjectProductCreated = "merchant.product.created"
	SubjectProductChanged = "merchant.product.changed"
)

// Publisher emits serialized events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(subject string, event any) error
	Close()
}

// BillStatusEvent is the payload of bill lifecycle subjects.
type BillStatusEvent struct {
	BillID        int64     `json:"bill_id"`
	TransactionID string    `json:"transaction_id"`
	From          string    `json:"from,omitempty"`
	To            string    `json:"to"`
	Gateway       string    `json:"gateway,omitempty"`
	Amount        float64   `json:"amount"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// ProductEventPayload is the payload of product subjects.
type ProductEventPayload struct {
	ProductID  int64     `json:"product_id"`
	BillItemID int64     `json:"bill_item_id,omitempty"`
	ItemCode   string    `json:"item_code"`
	Reference  string    `json:"reference"`
	Event      string    `json:"event"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NATS publishes events to a NATS server as JSON messages.
type NATS struct {
	conn   *nats.Conn
	logger zerolog.Logger
}

// ConnectNATS dials the server and returns a publisher. The connection
// reconnects indefinitely so a broker restart never takes checkout down.
func ConnectNATS(url string, logger zerolog.Logger) (*NATS, error) {
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATS{conn: conn, logger: logger}, nil
}

// Publish marshals the event and sends it. Failures are logged, not
// returned to checkout paths, since events are advisory.
func (n *NATS) Publish(subject string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event for %s: %w", subject, err)
	}
	if err := n.conn.Publish(subject, data); err != nil {
		n.logger.Error().Err(err).Str("subject", subject).Msg("event publish failed")
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Close drains the connection.
func (n *NATS) Close() {
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
	}
}

// Noop discards every event. Used when no broker is configured and in
// tests.
type Noop struct{}

// NewNoop creates a discarding publisher.
func NewNoop() *Noop {
	return &Noop{}
}

// Publish discards the event.
func (Noop) Publish(subject string, event any) error { return nil }

// Close does nothing.
func (Noop) Close() {}

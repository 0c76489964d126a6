package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ErnestIssa/peak-mode/internal/checkout"
)

const (
	TopicCheckoutCompleted = "checkout-completed"
	eventTypeCompleted     = "checkout.completed"
)

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OrderEvents publishes an event for every verified checkout.
type OrderEvents struct {
	writer MessageWriter
}

func NewOrderEvents(brokers ...string) *OrderEvents {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  TopicCheckoutCompleted,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		WriteTimeout:           5 * time.Second,
	}
	return NewOrderEventsWithWriter(w)
}

func NewOrderEventsWithWriter(w MessageWriter) *OrderEvents {
	return &OrderEvents{writer: w}
}

type eventItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Quantity int    `json:"quantity"`
	Size     string `json:"size,omitempty"`
	Color    string `json:"color,omitempty"`
	Source   string `json:"source"`
}

type completedEvent struct {
	PaymentIntentID string      `json:"payment_intent_id"`
	ProfileID       string      `json:"profile_id"`
	CustomerEmail   string      `json:"customer_email"`
	Items           []eventItem `json:"items"`
	TotalAmount     string      `json:"total_amount"`
	Currency        string      `json:"currency"`
	CompletedAt     time.Time   `json:"completed_at"`
}

func (p *OrderEvents) OrderCompleted(ctx context.Context, order checkout.CompletedOrder) error {
	items := make([]eventItem, len(order.Items))
	for i, it := range order.Items {
		items[i] = eventItem{
			ID:       it.ID,
			Name:     it.Name,
			Price:    it.UnitPrice.String(),
			Quantity: it.Quantity,
			Size:     it.Size,
			Color:    it.Color,
			Source:   string(it.Source),
		}
	}

	payload, err := json.Marshal(completedEvent{
		PaymentIntentID: order.PaymentIntentID,
		ProfileID:       order.ProfileID,
		CustomerEmail:   order.Customer.Email,
		Items:           items,
		TotalAmount:     order.Total.String(),
		Currency:        order.Currency,
		CompletedAt:     order.CompletedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal checkout event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(order.PaymentIntentID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventTypeCompleted)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish checkout event: %w", err)
	}
	return nil
}

func (p *OrderEvents) Close() error {
	return p.writer.Close()
}

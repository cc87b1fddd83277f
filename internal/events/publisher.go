package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"petcare-be/internal/logger"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderCreated is published once per persisted order. Consumers notify the
// providers involved; nothing in the checkout waits on them.
type OrderCreated struct {
	OrderID            string          `json:"order_id"`
	OrderNumber        string          `json:"order_number"`
	ClientID           uint            `json:"client_id"`
	ProviderIDs        []string        `json:"provider_ids"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	Currency           string          `json:"currency"`
	ItemCount          int             `json:"item_count"`
	AppointmentCount   int             `json:"appointment_count"`
	AppointmentsFailed bool            `json:"appointments_failed"`
	CreatedAt          time.Time       `json:"created_at"`
}

type Publisher interface {
	PublishOrderCreated(ctx context.Context, evt OrderCreated) error
	Close() error
}

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	writer messageWriter
	topic  string
}

// NewKafkaPublisher writes to topic on brokers. Without brokers it returns a
// publisher that drops every event.
func NewKafkaPublisher(brokers []string, topic string) Publisher {
	if len(brokers) == 0 {
		return NopPublisher{}
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &kafkaPublisher{writer: w, topic: topic}
}

func (p *kafkaPublisher) PublishOrderCreated(ctx context.Context, evt OrderCreated) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal order.created: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(evt.OrderNumber),
		Value: payload,
		Time:  evt.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("order.created")},
		},
	}
	if reqID := logger.RequestIDFrom(ctx); reqID != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "request_id", Value: []byte(reqID)})
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		logger.ForLayer(ctx, "events", "PublishOrderCreated").Error("kafka write failed",
			zap.String("topic", p.topic),
			zap.String("order_number", evt.OrderNumber),
			zap.Error(err),
		)
		return fmt.Errorf("publish order.created: %w", err)
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

type NopPublisher struct{}

func (NopPublisher) PublishOrderCreated(context.Context, OrderCreated) error { return nil }
func (NopPublisher) Close() error                                          { return nil }

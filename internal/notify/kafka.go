package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"essenza-be/internal/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const EventOrderConfirmed = "order.confirmed"

// Writer is the part of *kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type orderEvent struct {
	Type string `json:"type"`
	Message
}

// KafkaNotifier publishes an order-confirmed event keyed by tracking code,
// so events for one order stay on one partition.
type KafkaNotifier struct {
	writer Writer
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
	}
}

func NewKafkaNotifier(w Writer) *KafkaNotifier {
	return &KafkaNotifier{writer: w}
}

func (n *KafkaNotifier) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(orderEvent{Type: EventOrderConfirmed, Message: msg})
	if err != nil {
		return err
	}

	err = n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.TrackingCode),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventOrderConfirmed)},
			{Key: "order_id", Value: []byte(strconv.FormatUint(uint64(msg.OrderID), 10))},
		},
	})
	if err != nil {
		logger.FromCtx(ctx).Error("failed to publish order event",
			zap.String("layer", "notify"),
			zap.String("tracking_code", msg.TrackingCode),
			zap.Error(err),
		)
		return fmt.Errorf("publish order event: %w", err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

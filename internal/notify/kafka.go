package notify

import (
	"context"
	"encoding/json"
	"time"

	"tree-garden/pkg"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaSink publishes events to a topic. Delivery is fire-and-forget: a
// failed write is logged and dropped, never surfaced to the ledger.
type KafkaSink struct {
	writer *kafka.Writer
	log    pkg.Logger
}

func NewKafkaSink(brokers []string, topic string, log pkg.Logger) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		},
		log: log,
	}
}

func (k *KafkaSink) Emit(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		k.log.Error("failed to marshal event", zap.String("type", event.Type), zap.Error(err))
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := k.writer.WriteMessages(ctx, kafka.Message{
			Key:   []byte(event.Type),
			Value: payload,
		})
		if err != nil {
			k.log.Error("failed to publish event",
				zap.String("event_id", event.ID),
				zap.String("type", event.Type),
				zap.Error(err))
		}
	}()
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}

package services

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/segmentio/kafka-go"
)

const statusTopic = "payment.order-status"

// KafkaPublisher pushes order status transitions to Kafka, keyed by order id
// so per-order ordering is preserved.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(strings.Split(brokers, ",")...),
			Topic:    statusTopic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

var _ EventPublisher = (*KafkaPublisher)(nil)

func (p *KafkaPublisher) PublishStatusChange(ctx context.Context, evt OrderStatusEvent) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(evt.OrderID), 10)),
		Value: value,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

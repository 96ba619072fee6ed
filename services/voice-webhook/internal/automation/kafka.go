package automation

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/dropflyai/voicefly/libs/kafkax"
)

// KafkaSink streams booking events for consumers beyond the n8n webhook
// (analytics, CRM sync). Messages are keyed by business id so a tenant's
// events stay ordered within a partition.
type KafkaSink struct {
	writer *kafka.Writer
	topic  string
}

func NewKafkaSink(brokers string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: kafka.NewWriter(kafka.WriterConfig{
			Brokers:  kafkax.SplitBrokers(brokers),
			Balancer: &kafka.Hash{},
		}),
		topic: topic,
	}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Close() error { return s.writer.Close() }

func (s *KafkaSink) Publish(ctx context.Context, evt BookingEvent) error {
	raw, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Topic: s.topic,
		Key:   []byte(evt.BusinessID),
		Value: raw,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.Event)},
		},
	}
	msg.Headers = kafkax.InjectTraceHeaders(ctx, msg.Headers)
	return s.writer.WriteMessages(ctx, msg)
}

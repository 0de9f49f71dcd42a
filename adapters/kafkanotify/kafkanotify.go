package kafkanotify

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/drillsoft/sectionflow"
)

// Notifier publishes change events to a Kafka topic so downstream systems learn of
// approvals and other status movements as they reach the system of record. Events are
// keyed by drill plan so one hole's changes stay ordered within a partition.
type Notifier struct {
	writer *kafka.Writer
}

func New(brokers []string, topic string) *Notifier {
	return &Notifier{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

var _ sectionflow.ChangeNotifier = (*Notifier)(nil)

func (n *Notifier) Notify(ctx context.Context, ev sectionflow.ChangeEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	return n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.DrillPlanID),
		Value: value,
	})
}

func (n *Notifier) Close() error {
	return n.writer.Close()
}

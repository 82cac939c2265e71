package etl

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/BartekS5/lakecheck/pkg/logger"
	"github.com/BartekS5/lakecheck/pkg/models"
)

// MessageWriter is the subset of *kafka.Writer the sink needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes one message per partition report followed by the run
// document. Partition messages are keyed by partition, the run message by
// run id.
type KafkaSink struct {
	Writer      MessageWriter
	Transformer *Transformer
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
}

func NewKafkaSink(w MessageWriter) *KafkaSink {
	return &KafkaSink{Writer: w, Transformer: NewTransformer()}
}

func (k *KafkaSink) Messages(summary *models.RunSummary) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(summary.Partitions)+1)
	for _, res := range summary.Partitions {
		value, err := json.Marshal(k.Transformer.PartitionDocument(summary.RunID, res))
		if err != nil {
			return nil, fmt.Errorf("encoding partition report: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(res.Partition.Key()),
			Value: value,
			Headers: []kafka.Header{
				{Key: "type", Value: []byte("partition")},
				{Key: "run_id", Value: []byte(summary.RunID)},
			},
		})
	}

	value, err := json.Marshal(k.Transformer.RunDocument(summary))
	if err != nil {
		return nil, fmt.Errorf("encoding run document: %w", err)
	}
	msgs = append(msgs, kafka.Message{
		Key:   []byte(summary.RunID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte("run")},
			{Key: "run_id", Value: []byte(summary.RunID)},
		},
	})
	return msgs, nil
}

func (k *KafkaSink) Write(ctx context.Context, summary *models.RunSummary) error {
	msgs, err := k.Messages(summary)
	if err != nil {
		return err
	}
	if err := k.Writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publishing run %s: %w", summary.RunID, err)
	}
	logger.Infof("Kafka sink: published %d messages for run %s", len(msgs), summary.RunID)
	return nil
}

func (k *KafkaSink) Close() error { return k.Writer.Close() }

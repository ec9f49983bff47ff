package writer

import (
	"TraceSpectra/internal/config"
	"TraceSpectra/internal/model"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaWriter publishes each run report as a JSON message keyed by run ID.
type KafkaWriter struct {
	writer  kafkaMessageWriter
	topic   string
	timeout time.Duration
}

// NewKafkaWriter creates a writer for the configured topic.
func NewKafkaWriter(cfg config.KafkaConfig) (*KafkaWriter, error) {
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, fmt.Errorf("kafka topic must not be empty")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid kafka timeout: %w", err)
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	log.Printf("Kafka writer publishing to topic '%s' on %v", cfg.Topic, cfg.Brokers)
	return newKafkaWriter(w, cfg.Topic, timeout), nil
}

func newKafkaWriter(w kafkaMessageWriter, topic string, timeout time.Duration) *KafkaWriter {
	return &KafkaWriter{writer: w, topic: topic, timeout: timeout}
}

func (w *KafkaWriter) Name() string {
	return "kafka"
}

func (w *KafkaWriter) Close() error {
	return w.writer.Close()
}

// Write publishes the report.
func (w *KafkaWriter) Write(report *model.RunReport) error {
	value, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(report.Run.ID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "run_name", Value: []byte(report.Run.Name)},
		},
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish report to kafka topic '%s': %w", w.topic, err)
	}
	return nil
}

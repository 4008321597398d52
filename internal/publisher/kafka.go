package publisher

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"

	"github.com/lightsaway/event-gateway/internal/config"
	"github.com/lightsaway/event-gateway/internal/metrics"
	"github.com/lightsaway/event-gateway/internal/model"
)

// KafkaPublisher publishes events with kafka-go, one writer per process
// shared across all destination topics (kafka-go resolves per-message
// topics from the message itself, unlike the single-topic writer used
// elsewhere in the pack). Grounded on
// event-service/internal/publisher/kafka_publisher.go's writer
// configuration, narrowed to the single publish_one(topic, event)
// contract in original_source/src/publisher/kafka_publisher.rs.
type KafkaPublisher struct {
	writer             *kafkago.Writer
	metadataFieldAsKey string
}

func compressionFromConfig(c string) kafkago.Compression {
	switch c {
	case "gzip":
		return compress.Gzip
	case "snappy":
		return compress.Snappy
	default:
		return compress.Compression(0)
	}
}

func requiredAcksFromConfig(c string) kafkago.RequiredAcks {
	switch c {
	case "none":
		return kafkago.RequireNone
	case "all":
		return kafkago.RequireAll
	default:
		return kafkago.RequireOne
	}
}

// NewKafkaPublisher constructs a Kafka writer without validating it. Connection
// establishment happens lazily inside kafka-go; this only resolves
// configuration, so a bad broker list surfaces on first publish, not here.
func NewKafkaPublisher(cfg config.KafkaPublisherConfig) *KafkaPublisher {
	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Balancer:     &kafkago.Hash{},
		RequiredAcks: requiredAcksFromConfig(cfg.RequiredAcks),
		Compression:  compressionFromConfig(cfg.Compression),
		BatchTimeout: time.Duration(cfg.MessageTimeoutMs) * time.Millisecond,
		ReadTimeout:  time.Duration(cfg.AckTimeoutMs) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.AckTimeoutMs) * time.Millisecond,
		Async:        false,
		Transport: &kafkago.Transport{
			ClientID:    cfg.ClientID,
			IdleTimeout: time.Duration(cfg.ConnIdleTimeoutMs) * time.Millisecond,
		},
	}
	return &KafkaPublisher{writer: writer, metadataFieldAsKey: cfg.MetadataFieldAsKey}
}

func (p *KafkaPublisher) key(event model.Event) []byte {
	if p.metadataFieldAsKey != "" {
		if v, ok := event.Metadata[p.metadataFieldAsKey]; ok {
			return []byte(v)
		}
	}
	return []byte(event.ID.String())
}

func (p *KafkaPublisher) PublishOne(ctx context.Context, topic string, event model.Event) error {
	start := time.Now()
	value, err := json.Marshal(event)
	if err != nil {
		metrics.RecordPublish("kafka", topic, "error")
		return NewError("kafka publisher: marshal event", err)
	}

	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Topic: topic,
		Key:   p.key(event),
		Value: value,
	})
	metrics.RecordKafkaPublish(topic, time.Since(start))
	if err != nil {
		metrics.RecordPublish("kafka", topic, "error")
		return NewError("kafka publisher: write message", err)
	}
	metrics.RecordPublish("kafka", topic, "success")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

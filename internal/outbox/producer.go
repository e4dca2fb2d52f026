package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// DefaultClientID identifies the activity API to the brokers.
const DefaultClientID = "field-activity-api"

var errUnkeyedEvent = errors.New("activity event has no owner key")

// KafkaProducer lazily manages one writer per topic. Activity events are
// hashed by owner key so one owner's lifecycle stays on a single partition.
type KafkaProducer struct {
	brokers      []string
	clientID     string
	batchTimeout time.Duration
	mu           sync.Mutex
	writers      map[string]*kafka.Writer
}

// ProducerOption configures a KafkaProducer.
type ProducerOption func(*KafkaProducer)

// WithClientID overrides the client id sent to the brokers.
func WithClientID(id string) ProducerOption {
	return func(p *KafkaProducer) {
		if id != "" {
			p.clientID = id
		}
	}
}

// WithBatchTimeout bounds how long a writer buffers records before flushing.
func WithBatchTimeout(d time.Duration) ProducerOption {
	return func(p *KafkaProducer) {
		if d > 0 {
			p.batchTimeout = d
		}
	}
}

// NewKafkaProducer creates a KafkaProducer.
func NewKafkaProducer(brokers []string, opts ...ProducerOption) *KafkaProducer {
	p := &KafkaProducer{
		brokers:      brokers,
		clientID:     DefaultClientID,
		batchTimeout: 50 * time.Millisecond,
		writers:      make(map[string]*kafka.Writer),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WriteMessages publishes activity events to topic. Every record must carry
// its owner id as key.
func (p *KafkaProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	for i, msg := range msgs {
		if len(msg.Key) == 0 {
			return fmt.Errorf("record %d for topic %s: %w", i, topic, errUnkeyedEvent)
		}
	}
	return p.writerForTopic(topic).WriteMessages(ctx, msgs...)
}

func (p *KafkaProducer) writerForTopic(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if writer, ok := p.writers[topic]; ok {
		return writer
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(p.brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		BatchTimeout: p.batchTimeout,
		Transport:    &kafka.Transport{ClientID: p.clientID},
	}
	p.writers[topic] = writer
	return writer
}

// Close releases all writers.
func (p *KafkaProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for topic, writer := range p.writers {
		if err := writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.writers, topic)
	}
	return firstErr
}

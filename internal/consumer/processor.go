// Package consumer reads activity lifecycle events back from Kafka and
// records them in the audit log.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/fieldactivity/internal/logger"
	"example.com/fieldactivity/internal/outbox"
)

// Reader exposes the minimal kafka.Reader interface needed by the processor.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded messages from Kafka.
type Handler interface {
	Handle(context.Context, Message) error
}

// Message is one decoded activity event.
type Message struct {
	Topic      string
	Partition  int
	Offset     int64
	Timestamp  time.Time
	EventType  string
	OwnerID    string
	ActivityID string
	OccurredAt time.Time
	Payload    json.RawMessage
}

// Option configures optional behaviour for the Processor.
type Option func(*Processor)

// WithLogger overrides the logger used to report errors.
func WithLogger(log *logger.Logger) Option {
	return func(p *Processor) {
		p.log = log
	}
}

// WithRetryBackoff bounds the wait between handler retries.
func WithRetryBackoff(initial, ceiling time.Duration) Option {
	return func(p *Processor) {
		if initial > 0 {
			p.retryInitial = initial
		}
		if ceiling >= p.retryInitial {
			p.retryMax = ceiling
		}
	}
}

// Processor pulls messages from Kafka, decodes them, and dispatches to a Handler.
type Processor struct {
	reader       Reader
	handler      Handler
	log          *logger.Logger
	retryInitial time.Duration
	retryMax     time.Duration
}

// NewProcessor constructs a Processor with the provided reader and handler.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:       reader,
		handler:      handler,
		log:          logger.Nop(),
		retryInitial: 200 * time.Millisecond,
		retryMax:     30 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes messages until the context is cancelled. A message is
// committed only after the handler accepted it, and a failing message is
// retried in place so no later offset of its partition gets committed first.
// Malformed messages are committed and skipped.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			p.log.Warn("fetch failed", "error", err)
			continue
		}

		event, decodeErr := decodeMessage(msg)
		if decodeErr != nil {
			p.log.Warn("dropping malformed event", "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", decodeErr)
			recordDecodeError(decodeErr)
			if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
				p.log.Error("commit after decode failure", "error", commitErr)
			}
			continue
		}

		if err := p.handle(ctx, event); err != nil {
			return err
		}

		if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
			p.log.Error("commit failed", "error", commitErr)
		} else {
			recordProcessed(event)
		}
	}
}

// handle calls the handler until it succeeds, backing off between attempts.
// It only fails when ctx is done.
func (p *Processor) handle(ctx context.Context, event Message) error {
	wait := p.retryInitial
	for attempt := 1; ; attempt++ {
		err := p.handler.Handle(ctx, event)
		if err == nil {
			return nil
		}
		p.log.Error("handler failed", "event_type", event.EventType, "activity_id", event.ActivityID,
			"offset", event.Offset, "attempt", attempt, "retry_in", wait.String(), "error", err)
		recordHandlerError(event)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		wait *= 2
		if wait > p.retryMax {
			wait = p.retryMax
		}
	}
}

var (
	errMissingEventType  = errors.New("missing event_type header")
	errMissingActivityID = errors.New("payload without activity_id")
)

// envelope holds the fields every activity event payload shares.
type envelope struct {
	ActivityID string    `json:"activity_id"`
	OwnerID    string    `json:"owner_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func decodeMessage(msg kafka.Message) (Message, error) {
	eventType, ok := headerValue(msg, outbox.EventTypeHeader)
	if !ok {
		return Message{}, errMissingEventType
	}

	var env envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return Message{}, fmt.Errorf("decode payload: %w", err)
	}
	if env.ActivityID == "" {
		return Message{}, errMissingActivityID
	}
	owner := env.OwnerID
	if owner == "" {
		owner = string(msg.Key)
	}

	return Message{
		Topic:      msg.Topic,
		Partition:  msg.Partition,
		Offset:     msg.Offset,
		Timestamp:  msg.Time,
		EventType:  string(eventType),
		OwnerID:    owner,
		ActivityID: env.ActivityID,
		OccurredAt: env.OccurredAt,
		Payload:    json.RawMessage(append([]byte(nil), msg.Value...)),
	}, nil
}

func headerValue(msg kafka.Message, key string) ([]byte, bool) {
	for _, header := range msg.Headers {
		if header.Key == key {
			return header.Value, true
		}
	}
	return nil, false
}

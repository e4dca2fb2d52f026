package outbox

import (
	"context"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"example.com/fieldactivity/internal/events"
)

type stubProducer struct {
	mu     sync.Mutex
	err    error
	writes []writtenBatch
}

type writtenBatch struct {
	topic    string
	messages []kafka.Message
}

func (s *stubProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	copied := make([]kafka.Message, len(msgs))
	copy(copied, msgs)
	s.writes = append(s.writes, writtenBatch{topic: topic, messages: copied})
	return nil
}

func TestDeliverGroupsByTopicAndSetsHeaders(t *testing.T) {
	producer := &stubProducer{}
	d := NewDispatcher(nil, producer, nil, 0, 0)

	err := d.deliver(context.Background(), []Message{
		{EventID: 1, EventType: events.ActivityCreatedType, Topic: "field_activity_events", PartitionKey: "u1", Payload: []byte(`{"a":1}`)},
		{EventID: 2, EventType: events.ActivityDeletedType, Topic: "audit", PartitionKey: "u2", Payload: []byte(`{"b":2}`)},
		{EventID: 3, EventType: events.ActivityUpdatedType, Topic: "field_activity_events", PartitionKey: "u1", Payload: []byte(`{"c":3}`)},
	})
	require.NoError(t, err)

	require.Len(t, producer.writes, 2)
	first := producer.writes[0]
	require.Equal(t, "field_activity_events", first.topic)
	require.Len(t, first.messages, 2)
	require.Equal(t, "u1", string(first.messages[0].Key))
	require.Equal(t, `{"c":3}`, string(first.messages[1].Value))
	require.Equal(t, []kafka.Header{{Key: EventTypeHeader, Value: []byte(events.ActivityUpdatedType)}}, first.messages[1].Headers)
	require.Equal(t, "audit", producer.writes[1].topic)
}

func TestDeliverRejectsUnknownEventTypes(t *testing.T) {
	producer := &stubProducer{}
	d := NewDispatcher(nil, producer, nil, 0, 0)

	err := d.deliver(context.Background(), []Message{{EventID: 1, EventType: "activity.renamed", Topic: "t"}})
	require.ErrorContains(t, err, "unknown event_type=activity.renamed")
	require.Empty(t, producer.writes)
}

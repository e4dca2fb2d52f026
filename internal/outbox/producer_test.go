package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func TestKafkaProducerRejectsUnkeyedEvents(t *testing.T) {
	producer := NewKafkaProducer([]string{"localhost:9092"})
	t.Cleanup(func() { _ = producer.Close() })

	err := producer.WriteMessages(context.Background(), "field_activity_events",
		kafka.Message{Key: []byte("user-1"), Value: []byte(`{}`)},
		kafka.Message{Value: []byte(`{}`)},
	)
	require.ErrorIs(t, err, errUnkeyedEvent)
	require.Empty(t, producer.writers, "no writer is opened for a rejected batch")
}

func TestKafkaProducerWriterPerTopic(t *testing.T) {
	producer := NewKafkaProducer([]string{"localhost:9092"}, WithClientID("audit-replay"), WithBatchTimeout(10*time.Millisecond))
	t.Cleanup(func() { _ = producer.Close() })

	first := producer.writerForTopic("field_activity_events")
	require.Same(t, first, producer.writerForTopic("field_activity_events"))
	require.NotSame(t, first, producer.writerForTopic("field_activity_events_replay"))

	require.IsType(t, &kafka.Hash{}, first.Balancer)
	require.Equal(t, 10*time.Millisecond, first.BatchTimeout)
	transport, ok := first.Transport.(*kafka.Transport)
	require.True(t, ok)
	require.Equal(t, "audit-replay", transport.ClientID)

	require.NoError(t, producer.Close())
	require.Empty(t, producer.writers)
}

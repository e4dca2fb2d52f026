package consumer

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditHandler appends consumed events to the activity_event_log table.
// Redelivered records (same topic, partition and offset) are ignored.
type AuditHandler struct {
	pool *pgxpool.Pool
}

// NewAuditHandler constructs a handler backed by the provided pool.
func NewAuditHandler(pool *pgxpool.Pool) *AuditHandler {
	return &AuditHandler{pool: pool}
}

// Handle stores the event payload.
func (h *AuditHandler) Handle(ctx context.Context, msg Message) error {
	var occurredAt interface{}
	if !msg.OccurredAt.IsZero() {
		occurredAt = msg.OccurredAt
	}
	_, err := h.pool.Exec(ctx,
		`INSERT INTO activity_event_log (event_type, activity_id, owner_id, topic, partition, record_offset, payload, occurred_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
         ON CONFLICT (topic, partition, record_offset) DO NOTHING`,
		msg.EventType,
		msg.ActivityID,
		msg.OwnerID,
		msg.Topic,
		msg.Partition,
		msg.Offset,
		[]byte(msg.Payload),
		occurredAt,
	)
	return err
}

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/fieldactivity/internal/domain"
	"example.com/fieldactivity/internal/events"
	"example.com/fieldactivity/internal/observability"
)

// DefaultTopic receives every activity lifecycle event.
const DefaultTopic = "field_activity_events"

const activityColumns = `activity_id, owner_id, activity_date, activity_time, client_name, activity_type, status,
        location, contact_person, description, deal_value, next_action, attachments, created_at, updated_at, deleted_at`

// Repository provides Postgres-backed persistence for activities and outbox events.
type Repository struct {
	pool  *pgxpool.Pool
	topic string
}

// Option configures the Repository.
type Option func(*Repository)

// WithTopic overrides the outbox topic.
func WithTopic(topic string) Option {
	return func(r *Repository) {
		if topic != "" {
			r.topic = topic
		}
	}
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool, opts ...Option) *Repository {
	r := &Repository{pool: pool, topic: DefaultTopic}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create persists the activity and records an outbox event inside a single transaction.
func (r *Repository) Create(ctx context.Context, activity domain.Activity) (*domain.Activity, error) {
	attachments, err := encodeAttachments(activity.Attachments)
	if err != nil {
		return nil, err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const insertActivity = `INSERT INTO activities (owner_id, activity_date, activity_time, client_name, activity_type, status,
        location, contact_person, description, deal_value, next_action, attachments)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING ` + activityColumns

	row := tx.QueryRow(ctx, insertActivity,
		activity.OwnerID,
		dateValue(activity.Date),
		timeValue(activity.Time),
		activity.ClientName,
		string(activity.ActivityType),
		string(activity.Status),
		activity.Location,
		activity.ContactPerson,
		activity.Description,
		activity.DealValue,
		activity.NextAction,
		attachments,
	)
	created, err := scanActivity(row)
	if err != nil {
		return nil, err
	}

	if err := r.insertOutbox(ctx, tx, created, events.ActivityCreatedType, changedEvent(created)); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	observability.RecordActivityPersisted("create", created.UpdatedAt)
	return &created, nil
}

// Get retrieves a non-deleted activity by ID, or (nil, nil).
func (r *Repository) Get(ctx context.Context, id string) (*domain.Activity, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	row := r.pool.QueryRow(ctx, `SELECT `+activityColumns+` FROM activities WHERE activity_id=$1 AND deleted_at IS NULL`, id)
	activity, err := scanActivity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &activity, nil
}

// Update applies the present fields of patch and refreshes updated_at.
// Row locking makes concurrent updates serialise; the last writer wins.
func (r *Repository) Update(ctx context.Context, id string, patch domain.Patch) (*domain.Activity, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	sets, args, err := updateAssignments(patch)
	if err != nil {
		return nil, err
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE activities SET %s WHERE activity_id=$%d AND deleted_at IS NULL RETURNING %s`,
		strings.Join(sets, ", "), len(args), activityColumns)

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	updated, err := scanActivity(tx.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if err := r.insertOutbox(ctx, tx, updated, events.ActivityUpdatedType, changedEvent(updated)); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	observability.RecordActivityPersisted("update", updated.UpdatedAt)
	return &updated, nil
}

// SoftDelete stamps deleted_at. It reports false when the row is absent or already deleted.
func (r *Repository) SoftDelete(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var (
		ownerID   string
		deletedAt time.Time
	)
	err = tx.QueryRow(ctx, `UPDATE activities SET deleted_at = NOW(), updated_at = NOW()
        WHERE activity_id=$1 AND deleted_at IS NULL RETURNING owner_id, deleted_at`, id).Scan(&ownerID, &deletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	deleted := domain.Activity{ID: id, OwnerID: ownerID}
	payload := events.ActivityDeleted{ActivityID: id, OwnerID: ownerID, OccurredAt: deletedAt}
	if err := r.insertOutbox(ctx, tx, deleted, events.ActivityDeletedType, payload); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	observability.RecordActivityPersisted("delete", deletedAt)
	return true, nil
}

// List returns one page of non-deleted activities and the total match count,
// read from the same snapshot.
func (r *Repository) List(ctx context.Context, q domain.ListQuery) ([]domain.Activity, int, error) {
	where, args := whereClause(domain.CountQuery{OwnerID: q.OwnerID, Range: q.Range})

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback(ctx)

	var total int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM activities WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = domain.PageSize
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM activities WHERE %s
        ORDER BY activity_date DESC, activity_time DESC, seq DESC LIMIT $%d OFFSET $%d`,
		activityColumns, where, len(args)-1, len(args))

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	results := make([]domain.Activity, 0, limit)
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, 0, err
		}
		results = append(results, activity)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

// Count implements domain.StatisticsReader.
func (r *Repository) Count(ctx context.Context, q domain.CountQuery) (int, error) {
	where, args := whereClause(q)
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM activities WHERE `+where, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CountDistinctClients implements domain.StatisticsReader.
func (r *Repository) CountDistinctClients(ctx context.Context, ownerID string, span domain.DateRange) (int, error) {
	where, args := whereClause(domain.CountQuery{OwnerID: ownerID, Range: &span})
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(DISTINCT client_name) FROM activities WHERE `+where, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, activity domain.Activity, eventType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, partition_key, payload)
        VALUES ($1,$2,$3,$4,$5,$6)`

	_, err = tx.Exec(ctx, stmt,
		"activity",
		activity.ID,
		eventType,
		r.topic,
		activity.OwnerID,
		body,
	)
	return err
}

func whereClause(q domain.CountQuery) (string, []interface{}) {
	clauses := []string{"deleted_at IS NULL"}
	args := make([]interface{}, 0, 4)
	if q.OwnerID != "" {
		args = append(args, q.OwnerID)
		clauses = append(clauses, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	if q.Range != nil {
		args = append(args, dateValue(q.Range.From), dateValue(q.Range.To))
		clauses = append(clauses, fmt.Sprintf("activity_date BETWEEN $%d AND $%d", len(args)-1, len(args)))
	}
	if q.Status != nil {
		args = append(args, string(*q.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if q.WithDealValue {
		clauses = append(clauses, "deal_value IS NOT NULL")
	}
	return strings.Join(clauses, " AND "), args
}

func updateAssignments(p domain.Patch) ([]string, []interface{}, error) {
	var (
		sets []string
		args []interface{}
	)
	set := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if p.Date != nil {
		set("activity_date", dateValue(*p.Date))
	}
	if p.Time != nil {
		set("activity_time", timeValue(*p.Time))
	}
	if p.ClientName != nil {
		set("client_name", *p.ClientName)
	}
	if p.ActivityType != nil {
		set("activity_type", string(*p.ActivityType))
	}
	if p.Status != nil {
		set("status", string(*p.Status))
	}
	if p.Description != nil {
		set("description", *p.Description)
	}
	if p.Location.Set {
		set("location", p.Location.Value)
	}
	if p.ContactPerson.Set {
		set("contact_person", p.ContactPerson.Value)
	}
	if p.DealValue.Set {
		set("deal_value", p.DealValue.Value)
	}
	if p.NextAction.Set {
		set("next_action", p.NextAction.Value)
	}
	if p.Attachments != nil {
		encoded, err := encodeAttachments(*p.Attachments)
		if err != nil {
			return nil, nil, err
		}
		set("attachments", encoded)
	}
	sets = append(sets, "updated_at = NOW()")
	return sets, args, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanActivity(row rowScanner) (domain.Activity, error) {
	var (
		a            domain.Activity
		date         time.Time
		timeOfDay    pgtype.Time
		activityType string
		status       string
		attachments  []byte
	)
	err := row.Scan(&a.ID, &a.OwnerID, &date, &timeOfDay, &a.ClientName, &activityType, &status,
		&a.Location, &a.ContactPerson, &a.Description, &a.DealValue, &a.NextAction, &attachments,
		&a.CreatedAt, &a.UpdatedAt, &a.DeletedAt)
	if err != nil {
		return domain.Activity{}, err
	}
	a.Date = civil.DateOf(date)
	a.Time = civilTime(timeOfDay)
	a.ActivityType = domain.ActivityType(activityType)
	a.Status = domain.Status(status)
	a.Attachments = []domain.Attachment{}
	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &a.Attachments); err != nil {
			return domain.Activity{}, fmt.Errorf("decode attachments: %w", err)
		}
	}
	return a, nil
}

func changedEvent(a domain.Activity) events.ActivityChanged {
	return events.ActivityChanged{
		ActivityID:   a.ID,
		OwnerID:      a.OwnerID,
		ActivityDate: a.Date.String(),
		ActivityTime: a.Time.String(),
		ClientName:   a.ClientName,
		ActivityType: string(a.ActivityType),
		Status:       string(a.Status),
		DealValue:    a.DealValue,
		Attachments:  len(a.Attachments),
		OccurredAt:   a.UpdatedAt,
	}
}

func encodeAttachments(list []domain.Attachment) ([]byte, error) {
	if list == nil {
		list = []domain.Attachment{}
	}
	body, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("encode attachments: %w", err)
	}
	return body, nil
}

func dateValue(d civil.Date) time.Time {
	return d.In(time.UTC)
}

func timeValue(t civil.Time) pgtype.Time {
	micros := int64(t.Hour)*int64(time.Hour/time.Microsecond) +
		int64(t.Minute)*int64(time.Minute/time.Microsecond) +
		int64(t.Second)*int64(time.Second/time.Microsecond) +
		int64(t.Nanosecond)/int64(time.Microsecond)
	return pgtype.Time{Microseconds: micros, Valid: true}
}

func civilTime(t pgtype.Time) civil.Time {
	d := time.Duration(t.Microseconds) * time.Microsecond
	return civil.Time{
		Hour:       int(d / time.Hour),
		Minute:     int(d % time.Hour / time.Minute),
		Second:     int(d % time.Minute / time.Second),
		Nanosecond: int(d % time.Second),
	}
}

// Package memory provides a process-local activity repository for local
// development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"example.com/fieldactivity/internal/domain"
)

type record struct {
	seq      int64
	activity domain.Activity
}

// Repository stores activities in memory.
type Repository struct {
	mu      sync.RWMutex
	clock   domain.Clock
	nextSeq int64
	records map[string]*record
}

// Option configures the repository.
type Option func(*Repository)

// WithClock overrides the clock used for created/updated/deleted timestamps.
func WithClock(clock domain.Clock) Option {
	return func(r *Repository) { r.clock = clock }
}

// NewRepository constructs an empty repository.
func NewRepository(opts ...Option) *Repository {
	r := &Repository{
		clock:   domain.SystemClock{},
		records: make(map[string]*record),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repository) now() time.Time {
	return r.clock.Now().UTC()
}

// Create implements domain.ActivityRepository.
func (r *Repository) Create(ctx context.Context, activity domain.Activity) (*domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(activity.ID) == "" {
		activity.ID = uuid.NewString()
	}
	now := r.now()
	activity.CreatedAt = now
	activity.UpdatedAt = now
	activity.DeletedAt = nil
	if activity.Attachments == nil {
		activity.Attachments = []domain.Attachment{}
	}

	r.nextSeq++
	r.records[activity.ID] = &record{seq: r.nextSeq, activity: clone(activity)}
	out := clone(activity)
	return &out, nil
}

// Get returns the activity or (nil, nil) when absent or soft-deleted.
func (r *Repository) Get(ctx context.Context, id string) (*domain.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok || rec.activity.Deleted() {
		return nil, nil
	}
	out := clone(rec.activity)
	return &out, nil
}

// Update applies patch and refreshes updated_at. Concurrent updates are
// serialised; the last writer wins per field.
func (r *Repository) Update(ctx context.Context, id string, patch domain.Patch) (*domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok || rec.activity.Deleted() {
		return nil, nil
	}
	patch.Apply(&rec.activity)
	rec.activity.UpdatedAt = r.now()
	out := clone(rec.activity)
	return &out, nil
}

// SoftDelete marks the activity deleted. It reports false when nothing changed.
func (r *Repository) SoftDelete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok || rec.activity.Deleted() {
		return false, nil
	}
	now := r.now()
	rec.activity.DeletedAt = &now
	rec.activity.UpdatedAt = now
	return true, nil
}

// List implements domain.ActivityRepository.
func (r *Repository) List(ctx context.Context, q domain.ListQuery) ([]domain.Activity, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*record, 0)
	for _, rec := range r.records {
		if r.matches(rec.activity, q.OwnerID, q.Range) {
			matched = append(matched, rec)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.activity.Date != b.activity.Date {
			return a.activity.Date.After(b.activity.Date)
		}
		if ta, tb := clockNanos(a.activity.Time), clockNanos(b.activity.Time); ta != tb {
			return ta > tb
		}
		return a.seq > b.seq
	})

	total := len(matched)
	start := q.Offset
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := total
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}

	items := make([]domain.Activity, 0, end-start)
	for _, rec := range matched[start:end] {
		items = append(items, clone(rec.activity))
	}
	return items, total, nil
}

// Count implements domain.StatisticsReader.
func (r *Repository) Count(ctx context.Context, q domain.CountQuery) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, rec := range r.records {
		a := rec.activity
		if !r.matches(a, q.OwnerID, q.Range) {
			continue
		}
		if q.Status != nil && a.Status != *q.Status {
			continue
		}
		if q.WithDealValue && a.DealValue == nil {
			continue
		}
		n++
	}
	return n, nil
}

// CountDistinctClients implements domain.StatisticsReader.
func (r *Repository) CountDistinctClients(ctx context.Context, ownerID string, span domain.DateRange) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make(map[string]struct{})
	for _, rec := range r.records {
		if r.matches(rec.activity, ownerID, &span) {
			clients[rec.activity.ClientName] = struct{}{}
		}
	}
	return len(clients), nil
}

func (r *Repository) matches(a domain.Activity, ownerID string, span *domain.DateRange) bool {
	if a.Deleted() {
		return false
	}
	if ownerID != "" && a.OwnerID != ownerID {
		return false
	}
	return span == nil || span.Contains(a.Date)
}

func clone(a domain.Activity) domain.Activity {
	out := a
	out.Location = cloneString(a.Location)
	out.ContactPerson = cloneString(a.ContactPerson)
	out.DealValue = cloneString(a.DealValue)
	out.NextAction = cloneString(a.NextAction)
	if a.Attachments != nil {
		out.Attachments = append([]domain.Attachment{}, a.Attachments...)
	}
	if a.DeletedAt != nil {
		t := *a.DeletedAt
		out.DeletedAt = &t
	}
	return out
}

func clockNanos(t civil.Time) int64 {
	return int64(t.Hour)*int64(time.Hour) + int64(t.Minute)*int64(time.Minute) +
		int64(t.Second)*int64(time.Second) + int64(t.Nanosecond)
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Package domain defines the business logic for the field activity service.
package domain

import (
	"context"
	"fmt"
	"io"

	"example.com/fieldactivity/internal/logger"
)

const (
	// PageSize is the fixed listing page size.
	PageSize = 20
	// DefaultMaxAttachmentSize caps a single uploaded file (10 MiB).
	DefaultMaxAttachmentSize int64 = 10 << 20
)

// ListQuery selects a page of non-deleted activities ordered by (date, time)
// descending, most recently inserted first on ties.
type ListQuery struct {
	// OwnerID scopes the listing; empty lists every owner.
	OwnerID string
	Range   *DateRange
	Offset  int
	Limit   int
}

// ActivityRepository captures persistence operations. Get and Update return
// (nil, nil) when the id is absent or soft-deleted.
type ActivityRepository interface {
	StatisticsReader
	List(ctx context.Context, q ListQuery) ([]Activity, int, error)
	Get(ctx context.Context, id string) (*Activity, error)
	Create(ctx context.Context, activity Activity) (*Activity, error)
	Update(ctx context.Context, id string, patch Patch) (*Activity, error)
	SoftDelete(ctx context.Context, id string) (bool, error)
}

// Upload is one file submitted with a write request.
type Upload struct {
	Name        string
	Size        int64
	ContentType string
	Body        io.Reader
}

// StoredObject is the location of a blob written by an AttachmentStore.
type StoredObject struct {
	Path string
	URL  string
}

// AttachmentStore is opaque blob storage for activity attachments.
type AttachmentStore interface {
	Store(ctx context.Context, upload Upload) (StoredObject, error)
	URLFor(ctx context.Context, path string) (string, error)
}

// AttachmentRemover is implemented by stores that can delete blobs.
type AttachmentRemover interface {
	Remove(ctx context.Context, path string) error
}

// Option configures optional behaviour for the Service.
type Option func(*Service)

// WithClock overrides the clock used for time windows.
func WithClock(clock Clock) Option {
	return func(s *Service) { s.clock = clock }
}

// WithCalendar overrides the zone and week start used for time windows.
func WithCalendar(calendar Calendar) Option {
	return func(s *Service) { s.calendar = calendar }
}

// WithLogger overrides the logger.
func WithLogger(log *logger.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithMaxAttachmentSize overrides the per-file upload cap.
func WithMaxAttachmentSize(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttachmentSize = n
		}
	}
}

// Service orchestrates activity workflows.
type Service struct {
	repo              ActivityRepository
	store             AttachmentStore
	stats             *StatisticsAggregator
	clock             Clock
	calendar          Calendar
	log               *logger.Logger
	maxAttachmentSize int64
}

// NewService constructs a Service.
func NewService(repo ActivityRepository, store AttachmentStore, opts ...Option) *Service {
	s := &Service{
		repo:              repo,
		store:             store,
		clock:             SystemClock{},
		calendar:          DefaultCalendar(),
		log:               logger.Nop(),
		maxAttachmentSize: DefaultMaxAttachmentSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "activity_service")
	s.stats = NewStatisticsAggregator(repo, s.calendar)
	return s
}

// CreateActivity validates, stores attachments, then persists the record.
// Either everything is written or nothing is.
func (s *Service) CreateActivity(ctx context.Context, principal Principal, fields Fields, files []Upload) (*Activity, error) {
	if err := requireUser(principal); err != nil {
		return nil, err
	}

	patch, verr := ValidateFields(fields, ModeCreate)
	verr = s.validateUploads(files, verr)
	if !verr.Empty() {
		return nil, verr
	}

	attachments, err := s.storeUploads(ctx, files)
	if err != nil {
		return nil, err
	}

	activity := Activity{OwnerID: principal.UserID}
	patch.Apply(&activity)
	activity.Attachments = attachments

	created, err := s.repo.Create(ctx, activity)
	if err != nil {
		s.discard(ctx, attachments)
		return nil, storageErr("create", err)
	}

	s.log.Info("activity created", "activity_id", created.ID, "owner_id", created.OwnerID, "attachments", len(attachments))
	s.resolveURLs(ctx, created)
	return created, nil
}

// GetActivity fetches an activity owned by the principal.
func (s *Service) GetActivity(ctx context.Context, principal Principal, id string) (*Activity, error) {
	activity, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeOwner(activity, principal); err != nil {
		return nil, err
	}
	s.resolveURLs(ctx, activity)
	return activity, nil
}

// UpdateActivity applies a partial update. Omitted fields keep their stored
// values; supplied files replace the attachment list.
func (s *Service) UpdateActivity(ctx context.Context, principal Principal, id string, fields Fields, files []Upload) (*Activity, error) {
	current, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeOwner(current, principal); err != nil {
		return nil, err
	}

	patch, verr := ValidateFields(fields, ModeUpdate)
	verr = s.validateUploads(files, verr)
	if !verr.Empty() {
		return nil, verr
	}

	var replacement []Attachment
	if len(files) > 0 {
		replacement, err = s.storeUploads(ctx, files)
		if err != nil {
			return nil, err
		}
		patch.Attachments = &replacement
	}

	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		s.discard(ctx, replacement)
		return nil, storageErr("update", err)
	}
	if updated == nil {
		s.discard(ctx, replacement)
		return nil, ErrNotFound
	}
	if patch.Attachments != nil {
		s.discard(ctx, current.Attachments)
	}

	s.resolveURLs(ctx, updated)
	return updated, nil
}

// DeleteActivity soft-deletes an activity owned by the principal.
func (s *Service) DeleteActivity(ctx context.Context, principal Principal, id string) error {
	activity, err := s.lookup(ctx, id)
	if err != nil {
		return err
	}
	if err := AuthorizeOwner(activity, principal); err != nil {
		return err
	}

	deleted, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return storageErr("soft delete", err)
	}
	if !deleted {
		return ErrNotFound
	}
	s.log.Info("activity deleted", "activity_id", id, "owner_id", principal.UserID)
	return nil
}

// ListActivities returns one page of the principal's activities.
func (s *Service) ListActivities(ctx context.Context, principal Principal, filter Filter, page int) (Page, error) {
	if err := requireUser(principal); err != nil {
		return Page{}, err
	}
	return s.list(ctx, principal.UserID, filter, page)
}

// AdminListActivities returns one page across every owner.
func (s *Service) AdminListActivities(ctx context.Context, principal Principal, filter Filter, page int) (Page, error) {
	if err := RequireRole(principal, RoleAdmin); err != nil {
		return Page{}, err
	}
	return s.list(ctx, "", filter, page)
}

// Statistics computes dashboard counters for the principal.
func (s *Service) Statistics(ctx context.Context, principal Principal) (Statistics, error) {
	if err := requireUser(principal); err != nil {
		return Statistics{}, err
	}
	return s.stats.Compute(ctx, principal.UserID, s.clock.Now())
}

// AdminStatistics computes dashboard counters across every owner.
func (s *Service) AdminStatistics(ctx context.Context, principal Principal) (Statistics, error) {
	if err := RequireRole(principal, RoleAdmin); err != nil {
		return Statistics{}, err
	}
	return s.stats.Compute(ctx, "", s.clock.Now())
}

func (s *Service) list(ctx context.Context, ownerID string, filter Filter, page int) (Page, error) {
	if page < 1 {
		page = 1
	}
	items, total, err := s.repo.List(ctx, ListQuery{
		OwnerID: ownerID,
		Range:   s.calendar.Range(filter, s.clock.Now()),
		Offset:  (page - 1) * PageSize,
		Limit:   PageSize,
	})
	if err != nil {
		return Page{}, storageErr("list", err)
	}
	for i := range items {
		s.resolveURLs(ctx, &items[i])
	}
	return Page{Items: items, Total: total, Page: page, PageSize: PageSize}, nil
}

func (s *Service) lookup(ctx context.Context, id string) (*Activity, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	activity, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, storageErr("get", err)
	}
	if activity == nil || activity.Deleted() {
		return nil, ErrNotFound
	}
	return activity, nil
}

func (s *Service) validateUploads(files []Upload, verr *ValidationError) *ValidationError {
	for i, f := range files {
		if f.Size <= s.maxAttachmentSize {
			continue
		}
		if verr == nil {
			verr = &ValidationError{}
		}
		verr.Add(fmt.Sprintf("%s.%d", FieldAttachments, i), fmt.Sprintf("must not exceed %d kilobytes", s.maxAttachmentSize>>10))
	}
	return verr
}

// storeUploads writes files in submission order. On the first failure the
// blobs already written are discarded and an AttachmentError is returned.
func (s *Service) storeUploads(ctx context.Context, files []Upload) ([]Attachment, error) {
	attachments := make([]Attachment, 0, len(files))
	if len(files) == 0 {
		return attachments, nil
	}
	if s.store == nil {
		return nil, &AttachmentError{Index: 0, Name: files[0].Name, Err: fmt.Errorf("attachment store not configured")}
	}
	for i, f := range files {
		obj, err := s.store.Store(ctx, f)
		if err != nil {
			s.discard(ctx, attachments)
			s.log.Warn("attachment upload failed", "index", i, "name", f.Name, "error", err)
			return nil, &AttachmentError{Index: i, Name: f.Name, Err: err}
		}
		attachments = append(attachments, Attachment{
			OriginalName: f.Name,
			StoragePath:  obj.Path,
			URL:          obj.URL,
		})
	}
	return attachments, nil
}

// discard removes blobs that no persisted record references. Best-effort.
func (s *Service) discard(ctx context.Context, attachments []Attachment) {
	remover, ok := s.store.(AttachmentRemover)
	if !ok || len(attachments) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, a := range attachments {
		if err := remover.Remove(ctx, a.StoragePath); err != nil {
			s.log.Warn("attachment cleanup failed", "path", a.StoragePath, "error", err)
		}
	}
}

func (s *Service) resolveURLs(ctx context.Context, activity *Activity) {
	if s.store == nil || activity == nil {
		return
	}
	for i := range activity.Attachments {
		url, err := s.store.URLFor(ctx, activity.Attachments[i].StoragePath)
		if err != nil || url == "" {
			continue
		}
		activity.Attachments[i].URL = url
	}
}

func requireUser(principal Principal) error {
	if principal.UserID == "" {
		return ErrForbidden
	}
	return nil
}

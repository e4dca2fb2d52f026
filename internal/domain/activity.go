package domain

import (
	"time"

	"cloud.google.com/go/civil"
)

// ActivityType classifies a logged interaction.
type ActivityType string

const (
	ActivityTypeMeeting      ActivityType = "meeting"
	ActivityTypeVisit        ActivityType = "visit"
	ActivityTypeCall         ActivityType = "call"
	ActivityTypePresentation ActivityType = "presentation"
	ActivityTypeDemo         ActivityType = "demo"
	ActivityTypeFollowup     ActivityType = "followup"
)

// ActivityTypes lists the accepted activity types in display order.
var ActivityTypes = []ActivityType{
	ActivityTypeMeeting,
	ActivityTypeVisit,
	ActivityTypeCall,
	ActivityTypePresentation,
	ActivityTypeDemo,
	ActivityTypeFollowup,
}

// Status is the outcome recorded for an activity.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusPending  Status = "pending"
	StatusFollowup Status = "followup"
	StatusClosed   Status = "closed"
)

// Statuses lists the accepted statuses in display order.
var Statuses = []Status{StatusSuccess, StatusPending, StatusFollowup, StatusClosed}

// Attachment references a blob written through the AttachmentStore.
type Attachment struct {
	OriginalName string `json:"name"`
	StoragePath  string `json:"path"`
	URL          string `json:"url"`
}

// Activity is one logged client interaction.
type Activity struct {
	ID            string
	OwnerID       string
	Date          civil.Date
	Time          civil.Time
	ClientName    string
	ActivityType  ActivityType
	Status        Status
	Location      *string
	ContactPerson *string
	Description   string
	DealValue     *string
	NextAction    *string
	Attachments   []Attachment
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
}

// Deleted reports whether the activity carries a soft delete marker.
func (a Activity) Deleted() bool {
	return a.DeletedAt != nil
}

// Page is one slice of a paginated listing.
type Page struct {
	Items    []Activity
	Total    int
	Page     int
	PageSize int
}

// LastPage returns the 1-based index of the final page (at least 1).
func (p Page) LastPage() int {
	if p.PageSize <= 0 || p.Total == 0 {
		return 1
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

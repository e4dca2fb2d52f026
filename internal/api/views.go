package api

import (
	"time"

	"example.com/fieldactivity/internal/domain"
)

// ActivityView exposes full details about an activity.
type ActivityView struct {
	ID            string              `json:"id"`
	UserID        string              `json:"user_id"`
	ActivityDate  string              `json:"activity_date"`
	ActivityTime  string              `json:"activity_time"`
	ClientName    string              `json:"client_name"`
	ActivityType  string              `json:"activity_type"`
	Status        string              `json:"status"`
	Location      *string             `json:"location"`
	ContactPerson *string             `json:"contact_person"`
	Description   string              `json:"description"`
	DealValue     *string             `json:"deal_value"`
	NextAction    *string             `json:"next_action"`
	Attachments   []domain.Attachment `json:"attachments"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// MessageResponse wraps a written activity with a human readable message.
type MessageResponse struct {
	Message string       `json:"message"`
	Data    ActivityView `json:"data"`
}

// DeleteResponse acknowledges a soft delete.
type DeleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ListActivitiesResponse packages one page of results.
type ListActivitiesResponse struct {
	Items    []ActivityView `json:"items"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	LastPage int            `json:"last_page"`
}

// StatisticsView mirrors domain.Statistics on the wire.
type StatisticsView struct {
	Today           int `json:"today"`
	Week            int `json:"week"`
	Month           int `json:"month"`
	FollowupPending int `json:"followup_pending"`
	ClientsVisited  int `json:"clients_visited"`
	TotalDealValue  int `json:"total_deal_value"`
}

// StatisticsResponse wraps dashboard counters.
type StatisticsResponse struct {
	Data StatisticsView `json:"data"`
}

func toActivityView(a domain.Activity) ActivityView {
	attachments := a.Attachments
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	return ActivityView{
		ID:            a.ID,
		UserID:        a.OwnerID,
		ActivityDate:  a.Date.String(),
		ActivityTime:  a.Time.String(),
		ClientName:    a.ClientName,
		ActivityType:  string(a.ActivityType),
		Status:        string(a.Status),
		Location:      a.Location,
		ContactPerson: a.ContactPerson,
		Description:   a.Description,
		DealValue:     a.DealValue,
		NextAction:    a.NextAction,
		Attachments:   attachments,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

func toListResponse(page domain.Page) ListActivitiesResponse {
	items := make([]ActivityView, 0, len(page.Items))
	for _, a := range page.Items {
		items = append(items, toActivityView(a))
	}
	return ListActivitiesResponse{
		Items:    items,
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
		LastPage: page.LastPage(),
	}
}

func toStatisticsView(s domain.Statistics) StatisticsView {
	return StatisticsView{
		Today:           s.Today,
		Week:            s.Week,
		Month:           s.Month,
		FollowupPending: s.FollowupPending,
		ClientsVisited:  s.ClientsVisited,
		TotalDealValue:  s.TotalDealValue,
	}
}

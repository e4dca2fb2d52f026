package domain

import (
	"context"
	"time"
)

// Statistics are the dashboard counters.
type Statistics struct {
	Today           int
	Week            int
	Month           int
	FollowupPending int
	ClientsVisited  int
	// TotalDealValue counts this month's closed activities that carry a deal
	// value. It is a count, not a sum of deal values.
	TotalDealValue int
}

// CountQuery selects non-deleted activities for a counter.
type CountQuery struct {
	// OwnerID scopes the count; empty counts every owner.
	OwnerID       string
	Range         *DateRange
	Status        *Status
	WithDealValue bool
}

// StatisticsReader is the query surface the aggregator needs.
type StatisticsReader interface {
	Count(ctx context.Context, q CountQuery) (int, error)
	CountDistinctClients(ctx context.Context, ownerID string, r DateRange) (int, error)
}

// StatisticsAggregator computes dashboard counters from independent queries.
// Counters are not read from one snapshot and may skew under concurrent writes.
type StatisticsAggregator struct {
	repo     StatisticsReader
	calendar Calendar
}

// NewStatisticsAggregator constructs a StatisticsAggregator.
func NewStatisticsAggregator(repo StatisticsReader, calendar Calendar) *StatisticsAggregator {
	return &StatisticsAggregator{repo: repo, calendar: calendar}
}

// Compute evaluates every counter for ownerID at now.
func (a *StatisticsAggregator) Compute(ctx context.Context, ownerID string, now time.Time) (Statistics, error) {
	today := a.calendar.Today(now)
	week := a.calendar.Week(now)
	month := a.calendar.Month(now)
	followup := StatusFollowup
	closed := StatusClosed

	var stats Statistics
	counters := []struct {
		dst   *int
		query CountQuery
	}{
		{&stats.Today, CountQuery{OwnerID: ownerID, Range: &today}},
		{&stats.Week, CountQuery{OwnerID: ownerID, Range: &week}},
		{&stats.Month, CountQuery{OwnerID: ownerID, Range: &month}},
		{&stats.FollowupPending, CountQuery{OwnerID: ownerID, Status: &followup}},
		{&stats.TotalDealValue, CountQuery{OwnerID: ownerID, Range: &month, Status: &closed, WithDealValue: true}},
	}
	for _, c := range counters {
		n, err := a.repo.Count(ctx, c.query)
		if err != nil {
			return Statistics{}, storageErr("count", err)
		}
		*c.dst = n
	}

	clients, err := a.repo.CountDistinctClients(ctx, ownerID, month)
	if err != nil {
		return Statistics{}, storageErr("count distinct clients", err)
	}
	stats.ClientsVisited = clients

	return stats, nil
}

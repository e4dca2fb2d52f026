package memory

import (
	"context"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/require"

	"example.com/fieldactivity/internal/domain"
)

func TestReturnedActivitiesAreCopies(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()
	location := "Berlin"

	created, err := repo.Create(ctx, domain.Activity{OwnerID: "u1", ClientName: "Acme", Location: &location})
	require.NoError(t, err)

	*created.Location = "Paris"
	created.Attachments = append(created.Attachments, domain.Attachment{StoragePath: "x"})

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Berlin", *got.Location)
	require.Empty(t, got.Attachments)
}

func TestUpdateAndDeleteMissing(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	updated, err := repo.Update(ctx, "nope", domain.Patch{})
	require.NoError(t, err)
	require.Nil(t, updated)

	deleted, err := repo.SoftDelete(ctx, "nope")
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestCountFilters(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()
	day := civil.Date{Year: 2024, Month: 3, Day: 14}
	deal := "100"

	_, err := repo.Create(ctx, domain.Activity{OwnerID: "u1", Date: day, Status: domain.StatusClosed, DealValue: &deal})
	require.NoError(t, err)
	_, err = repo.Create(ctx, domain.Activity{OwnerID: "u1", Date: day, Status: domain.StatusClosed})
	require.NoError(t, err)
	_, err = repo.Create(ctx, domain.Activity{OwnerID: "u2", Date: day.AddDays(-40), Status: domain.StatusClosed, DealValue: &deal})
	require.NoError(t, err)

	closed := domain.StatusClosed
	n, err := repo.Count(ctx, domain.CountQuery{Status: &closed, WithDealValue: true})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = repo.Count(ctx, domain.CountQuery{OwnerID: "u1", Range: &domain.DateRange{From: day, To: day}})
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

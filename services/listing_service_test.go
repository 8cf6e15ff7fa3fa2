package services

import (
	"context"
	"testing"
	"time"

	"homematch/apperrors"
	"homematch/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func homegate(externalID, addedBy string) NewListing {
	return NewListing{
		Source:        "homegate",
		ExternalID:    externalID,
		ListingFields: models.ListingFields{Title: "3.5 rooms in Wiedikon", Price: f(2950)},
		AddedBy:       addedBy,
	}
}

func TestCreateListingRejectsDuplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	listings := env.workflow.Listings

	first, err := listings.Create(ctx, "r1", homegate("123", "anna"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnseen, first.Status)
	assert.Equal(t, []string{"anna"}, first.SeenBy)

	_, err = listings.Create(ctx, "r1", homegate("123", "ben"))
	assert.True(t, apperrors.IsConflict(err))

	upper := homegate("123", "ben")
	upper.Source = "HomeGate"
	_, err = listings.Create(ctx, "r1", upper)
	assert.True(t, apperrors.IsConflict(err), "source comparison ignores case")

	all, err := listings.ListByRoom(ctx, "r1", true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, first.ListingID, all[0].ListingID)

	// Same external id in another room or from another source is fine.
	_, err = listings.Create(ctx, "r2", homegate("123", "anna"))
	require.NoError(t, err)
	other := homegate("123", "anna")
	other.Source = "immoscout24"
	_, err = listings.Create(ctx, "r1", other)
	require.NoError(t, err)
}

func TestCreateListingWithoutExternalID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := env.workflow.Listings.Create(ctx, "r1", homegate("", "anna"))
		require.NoError(t, err)
	}
	all, err := env.workflow.Listings.ListByRoom(ctx, "r1", false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = env.workflow.Listings.Create(ctx, "r1", NewListing{AddedBy: "anna"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestMarkSeenIsMonotonic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	listings := env.workflow.Listings

	created, err := listings.Create(ctx, "r1", homegate("9", "anna"))
	require.NoError(t, err)

	l, advanced, err := listings.MarkSeen(ctx, "r1", created.ListingID, "anna")
	require.NoError(t, err)
	assert.False(t, advanced, "the adder's own view changes nothing")
	assert.Equal(t, models.StatusUnseen, l.Status)

	l, advanced, err = listings.MarkSeen(ctx, "r1", created.ListingID, "ben")
	require.NoError(t, err)
	assert.True(t, advanced)
	assert.Equal(t, models.StatusSeen, l.Status)
	assert.Equal(t, []string{"anna", "ben"}, l.SeenBy)

	l, advanced, err = listings.MarkSeen(ctx, "r1", created.ListingID, "ben")
	require.NoError(t, err)
	assert.False(t, advanced)
	assert.Equal(t, []string{"anna", "ben"}, l.SeenBy)

	_, _, err = listings.UpdateStatus(ctx, "r1", created.ListingID, StatusChange{Status: models.StatusApplied})
	require.NoError(t, err)
	l, advanced, err = listings.MarkSeen(ctx, "r1", created.ListingID, "carla")
	require.NoError(t, err)
	assert.False(t, advanced)
	assert.Equal(t, models.StatusApplied, l.Status, "status never regresses")
	assert.Len(t, l.SeenBy, 3)
}

func TestUpdateStatusAllowsAnyTransition(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	listings := env.workflow.Listings

	created, err := listings.Create(ctx, "r1", homegate("7", "anna"))
	require.NoError(t, err)

	visit := time.Date(2026, 11, 2, 14, 0, 0, 0, time.UTC)
	l, prev, err := listings.UpdateStatus(ctx, "r1", created.ListingID, StatusChange{Status: models.StatusVisitPlanned, VisitAt: &visit})
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnseen, prev)
	require.NotNil(t, l.VisitAt)
	assert.True(t, visit.Equal(*l.VisitAt))

	l, prev, err = listings.UpdateStatus(ctx, "r1", created.ListingID, StatusChange{Status: models.StatusUnseen, ClearVisit: true})
	require.NoError(t, err)
	assert.Equal(t, models.StatusVisitPlanned, prev)
	assert.Nil(t, l.VisitAt)

	_, _, err = listings.UpdateStatus(ctx, "r1", created.ListingID, StatusChange{Status: "archived"})
	assert.True(t, apperrors.IsValidation(err))

	_, _, err = listings.UpdateStatus(ctx, "r1", "missing", StatusChange{Status: models.StatusSeen})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestListByStatusFollowsUpdates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	listings := env.workflow.Listings

	a, err := listings.Create(ctx, "r1", homegate("1", "anna"))
	require.NoError(t, err)
	b, err := listings.Create(ctx, "r1", homegate("2", "anna"))
	require.NoError(t, err)
	_, err = listings.Create(ctx, "r2", homegate("3", "anna"))
	require.NoError(t, err)

	unseen, err := listings.ListByStatus(ctx, "r1", models.StatusUnseen)
	require.NoError(t, err)
	require.Len(t, unseen, 2)
	assert.Equal(t, a.ListingID, unseen[0].ListingID)

	_, _, err = listings.UpdateStatus(ctx, "r1", b.ListingID, StatusChange{Status: models.StatusDeleted})
	require.NoError(t, err)

	unseen, err = listings.ListByStatus(ctx, "r1", models.StatusUnseen)
	require.NoError(t, err)
	require.Len(t, unseen, 1)
	deleted, err := listings.ListByStatus(ctx, "r1", models.StatusDeleted)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, b.ListingID, deleted[0].ListingID)

	visible, err := listings.ListByRoom(ctx, "r1", false)
	require.NoError(t, err)
	assert.Len(t, visible, 1)
	everything, err := listings.ListByRoom(ctx, "r1", true)
	require.NoError(t, err)
	assert.Len(t, everything, 2)

	_, err = listings.ListByStatus(ctx, "r1", "bogus")
	assert.True(t, apperrors.IsValidation(err))
}

func TestFindByExternalID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	listings := env.workflow.Listings

	missing, err := listings.FindByExternalID(ctx, "r1", "homegate", "42")
	require.NoError(t, err)
	assert.Nil(t, missing)

	created, err := listings.Create(ctx, "r1", homegate("42", "anna"))
	require.NoError(t, err)

	found, err := listings.FindByExternalID(ctx, "r1", "homegate", "42")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ListingID, found.ListingID)

	// Soft-deleted listings are still saved.
	_, _, err = listings.UpdateStatus(ctx, "r1", created.ListingID, StatusChange{Status: models.StatusDeleted})
	require.NoError(t, err)
	found, err = listings.FindByExternalID(ctx, "r1", "homegate", "42")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, models.StatusDeleted, found.Status)
}

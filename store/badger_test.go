package store

import (
	"context"
	"testing"
	"time"

	"homematch/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestTable(t *testing.T) *BadgerTable {
	t.Helper()
	table, err := OpenBadger(BadgerConfig{InMemory: true}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = table.Close() })
	return table
}

func mustItem(t *testing.T, pk, sk string, v any) Item {
	t.Helper()
	item, err := NewItem(pk, sk, "test", v)
	require.NoError(t, err)
	return item
}

type note struct {
	Text string `json:"text"`
	N    int    `json:"n"`
}

func TestBadgerPutGet(t *testing.T) {
	ctx := context.Background()
	table := openTestTable(t)

	require.NoError(t, table.Put(ctx, mustItem(t, "ROOM#r1", "ROOM", note{Text: "hello", N: 3})))

	item, err := table.Get(ctx, "ROOM#r1", "ROOM")
	require.NoError(t, err)
	var got note
	require.NoError(t, item.Decode(&got))
	assert.Equal(t, note{Text: "hello", N: 3}, got)

	_, err = table.Get(ctx, "ROOM#r1", "MEMBER#nobody")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestBadgerPutIfAbsent(t *testing.T) {
	ctx := context.Background()
	table := openTestTable(t)
	item := mustItem(t, "ROOM#r1", "MEMBER#u1", note{Text: "a"})

	require.NoError(t, table.PutIfAbsent(ctx, item))
	err := table.PutIfAbsent(ctx, item)
	assert.True(t, apperrors.IsConflict(err))
}

func TestBadgerTransactIsAtomic(t *testing.T) {
	ctx := context.Background()
	table := openTestTable(t)
	existing := mustItem(t, "ROOM#r1", "MEMBER#u1", note{Text: "existing"})
	require.NoError(t, table.Put(ctx, existing))

	err := table.TransactPut(ctx, []Write{
		{Item: mustItem(t, "ROOM#r1", "ROOM", note{Text: "room"}), IfAbsent: true},
		{Item: existing, IfAbsent: true},
	})
	require.True(t, apperrors.IsConflict(err))

	_, err = table.Get(ctx, "ROOM#r1", "ROOM")
	assert.True(t, apperrors.IsNotFound(err), "first write must roll back")
}

func TestBadgerQueryOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	table := openTestTable(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		sk := EventSK(base.Add(time.Duration(i)*time.Second), "e")
		require.NoError(t, table.Put(ctx, mustItem(t, "ROOM#r1", sk, note{N: i})))
	}
	// other partition and other prefix must not leak in
	require.NoError(t, table.Put(ctx, mustItem(t, "ROOM#r10", EventSK(base, "x"), note{N: 99})))
	require.NoError(t, table.Put(ctx, mustItem(t, "ROOM#r1", "LISTING#l1", note{N: 98})))

	asc, err := table.Query(ctx, Query{PK: "ROOM#r1", SKPrefix: EventPrefix})
	require.NoError(t, err)
	require.Len(t, asc, 5)
	assert.Equal(t, float64(0), asc[0].Data["n"])
	assert.Equal(t, float64(4), asc[4].Data["n"])

	desc, err := table.Query(ctx, Query{PK: "ROOM#r1", SKPrefix: EventPrefix, Descending: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, desc, 2)
	assert.Equal(t, float64(4), desc[0].Data["n"])
	assert.Equal(t, float64(3), desc[1].Data["n"])
}

func TestBadgerIndexFollowsUpdates(t *testing.T) {
	ctx := context.Background()
	table := openTestTable(t)

	item := mustItem(t, "ROOM#r1", "LISTING#l1", note{Text: "flat"})
	item.GSI1PK, item.GSI1SK = ListingSourceKey("r1", "homegate", "123"), "LISTING#l1"
	item.GSI2PK, item.GSI2SK = ListingStatusKey("r1", "unseen"), "LISTING#l1"
	require.NoError(t, table.Put(ctx, item))

	found, err := table.Query(ctx, Query{Index: IndexGSI1, PK: ListingSourceKey("r1", "homegate", "123")})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "LISTING#l1", found[0].SK)

	item.GSI2PK = ListingStatusKey("r1", "seen")
	require.NoError(t, table.Put(ctx, item))

	unseen, err := table.Query(ctx, Query{Index: IndexGSI2, PK: ListingStatusKey("r1", "unseen")})
	require.NoError(t, err)
	assert.Empty(t, unseen)

	seen, err := table.Query(ctx, Query{Index: IndexGSI2, PK: ListingStatusKey("r1", "seen")})
	require.NoError(t, err)
	assert.Len(t, seen, 1)
}

func TestBadgerExpiredItemsDisappear(t *testing.T) {
	ctx := context.Background()
	table := openTestTable(t)

	expired := mustItem(t, "ROOM#r1", EventSK(time.Now(), "old"), note{Text: "old"})
	expired.ExpiresAt = time.Now().Add(-time.Hour)
	live := mustItem(t, "ROOM#r1", EventSK(time.Now(), "new"), note{Text: "new"})
	live.ExpiresAt = time.Now().Add(time.Hour)
	require.NoError(t, table.Put(ctx, expired))
	require.NoError(t, table.Put(ctx, live))

	items, err := table.Query(ctx, Query{PK: "ROOM#r1", SKPrefix: EventPrefix})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "new", items[0].Data["text"])
}

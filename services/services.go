// Package services implements the room engine: preference history and
// combination, the listing lifecycle, the event ledger and compatibility
// snapshots, plus the Workflow that ties them to the external collaborators.
package services

import (
	"context"
	"time"

	"homematch/apperrors"
	"homematch/store"

	"github.com/google/uuid"
)

// Clock returns the current time. Services default to time.Now.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

func newID() string {
	return uuid.NewString()
}

// getEntity loads the item at pk/sk into v. A missing item is reported as a
// not-found error carrying notFoundMsg.
func getEntity(ctx context.Context, table store.Table, pk, sk string, v any, notFoundMsg string, args ...any) error {
	item, err := table.Get(ctx, pk, sk)
	if apperrors.IsNotFound(err) {
		return apperrors.NewNotFound(notFoundMsg, args...)
	}
	if err != nil {
		return err
	}
	return item.Decode(v)
}

// queryEntities runs q and decodes every item into a T.
func queryEntities[T any](ctx context.Context, table store.Table, q store.Query) ([]T, error) {
	items, err := table.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		var v T
		if err := item.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

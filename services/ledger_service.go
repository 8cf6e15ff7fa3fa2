package services

import (
	"context"
	"time"

	"homematch/apperrors"
	"homematch/models"
	"homematch/store"

	"go.uber.org/zap"
)

// DefaultEventRetention applies when no retention is configured.
const DefaultEventRetention = 90 * 24 * time.Hour

// EventPublisher receives every event after it was stored.
type EventPublisher interface {
	Publish(event models.Event)
}

// LedgerService is the append-only event log of each room. Events expire
// after Retention.
type LedgerService struct {
	Table     store.Table
	Logger    *zap.Logger
	Clock     Clock
	Retention time.Duration
	Publisher EventPublisher
}

func NewLedgerService(table store.Table, logger *zap.Logger, clock Clock, retention time.Duration) *LedgerService {
	if retention <= 0 {
		retention = DefaultEventRetention
	}
	return &LedgerService{Table: table, Logger: logger, Clock: clock, Retention: retention}
}

// Append stores event, assigning its id and timestamps.
func (s *LedgerService) Append(ctx context.Context, event models.Event) (*models.Event, error) {
	if event.RoomID == "" || event.Type == "" {
		return nil, apperrors.NewValidation("event needs a room and a type")
	}
	now := s.Clock.now()
	event.EventID = newID()
	event.CreatedAt = now
	event.ExpiresAt = now.Add(s.Retention)

	item, err := store.NewItem(store.RoomPK(event.RoomID), store.EventSK(now, event.EventID), store.EntityEvent, event)
	if err != nil {
		return nil, err
	}
	item.ExpiresAt = event.ExpiresAt
	if err := s.Table.PutIfAbsent(ctx, item); err != nil {
		return nil, apperrors.Wrap(err, "append event")
	}

	s.Logger.Debug("📝 event appended",
		zap.String("room_id", event.RoomID),
		zap.String("event_id", event.EventID),
		zap.String("type", event.Type))
	if s.Publisher != nil {
		s.Publisher.Publish(event)
	}
	return &event, nil
}

// List returns up to limit events of the room in chronological order, or
// newest first when descending is set.
func (s *LedgerService) List(ctx context.Context, roomID string, descending bool, limit int) ([]models.Event, error) {
	events, err := queryEntities[models.Event](ctx, s.Table, store.Query{
		PK:         store.RoomPK(roomID),
		SKPrefix:   store.EventPrefix,
		Descending: descending,
		Limit:      limit,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "list events")
	}
	return events, nil
}

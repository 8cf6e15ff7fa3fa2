package services

import (
	"context"

	"homematch/apperrors"
	"homematch/models"
	"homematch/store"

	"go.uber.org/zap"
)

// CompatibilityService keeps the history of compatibility scores of a room.
type CompatibilityService struct {
	Table  store.Table
	Logger *zap.Logger
	Clock  Clock
}

func NewCompatibilityService(table store.Table, logger *zap.Logger, clock Clock) *CompatibilityService {
	return &CompatibilityService{Table: table, Logger: logger, Clock: clock}
}

// Save appends a snapshot. Scores outside 0-100 are clamped.
func (s *CompatibilityService) Save(ctx context.Context, roomID string, score models.CompatibilityScore, versionIDs []string, degraded bool) (*models.CompatibilitySnapshot, error) {
	value := min(max(score.Score, 0), 100)
	if versionIDs == nil {
		versionIDs = []string{}
	}
	now := s.Clock.now()
	snapshot := &models.CompatibilitySnapshot{
		SnapshotID:           newID(),
		RoomID:               roomID,
		Score:                value,
		Level:                models.CompatibilityLevel(value),
		Comment:              score.Comment,
		PreferenceVersionIDs: versionIDs,
		Degraded:             degraded,
		CreatedAt:            now,
	}

	item, err := store.NewItem(store.RoomPK(roomID), store.CompatibilitySK(now, snapshot.SnapshotID), store.EntityCompatibility, snapshot)
	if err != nil {
		return nil, err
	}
	if err := s.Table.PutIfAbsent(ctx, item); err != nil {
		return nil, apperrors.Wrap(err, "save compatibility snapshot")
	}
	s.Logger.Info("💞 compatibility snapshot saved",
		zap.String("room_id", roomID),
		zap.Int("score", value),
		zap.String("level", snapshot.Level),
		zap.Bool("degraded", degraded))
	return snapshot, nil
}

// GetLatest returns the newest snapshot, or nil when none exists.
func (s *CompatibilityService) GetLatest(ctx context.Context, roomID string) (*models.CompatibilitySnapshot, error) {
	snapshots, err := s.GetHistory(ctx, roomID, 1)
	if err != nil || len(snapshots) == 0 {
		return nil, err
	}
	return &snapshots[0], nil
}

// GetHistory returns up to limit snapshots, newest first.
func (s *CompatibilityService) GetHistory(ctx context.Context, roomID string, limit int) ([]models.CompatibilitySnapshot, error) {
	snapshots, err := queryEntities[models.CompatibilitySnapshot](ctx, s.Table, store.Query{
		PK:         store.RoomPK(roomID),
		SKPrefix:   store.CompatPrefix,
		Descending: true,
		Limit:      limit,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "compatibility history")
	}
	return snapshots, nil
}

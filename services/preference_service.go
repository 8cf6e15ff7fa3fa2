package services

import (
	"context"
	"fmt"

	"homematch/apperrors"
	"homematch/models"
	"homematch/store"

	"go.uber.org/zap"
)

// PreferenceService keeps the append-only preference history of each user in
// a room, plus the combined versions derived from it.
type PreferenceService struct {
	Table  store.Table
	Logger *zap.Logger
	Clock  Clock
}

func NewPreferenceService(table store.Table, logger *zap.Logger, clock Clock) *PreferenceService {
	return &PreferenceService{Table: table, Logger: logger, Clock: clock}
}

// SavePreferences appends a new version for user. The only check is a
// non-empty offer type; inverted ranges are stored as given.
func (s *PreferenceService) SavePreferences(ctx context.Context, roomID, userID string, set models.PreferenceSet, provenance string) (*models.PreferenceVersion, error) {
	if set.Criteria.OfferType == "" {
		return nil, apperrors.NewValidation("offerType is required")
	}
	if provenance == "" {
		provenance = models.ProvenanceManual
	}

	now := s.Clock.now()
	version := &models.PreferenceVersion{
		VersionID:  newID(),
		RoomID:     roomID,
		UserID:     userID,
		Criteria:   set.Criteria,
		Weights:    set.Weights,
		Provenance: provenance,
		CreatedAt:  now,
	}

	versionItem, err := store.NewItem(store.RoomPK(roomID), store.PreferenceSK(userID, now), store.EntityPreference, version)
	if err != nil {
		return nil, err
	}
	latestItem, err := store.NewItem(store.RoomPK(roomID), store.LatestPreferenceSK(userID), store.EntityPreferenceLatest, version)
	if err != nil {
		return nil, err
	}

	// The version itself is immutable; the projection is overwritten.
	if err := s.Table.TransactPut(ctx, []store.Write{
		{Item: versionItem, IfAbsent: true},
		{Item: latestItem},
	}); err != nil {
		return nil, apperrors.Wrap(err, "save preferences")
	}

	s.Logger.Info("✅ preferences saved",
		zap.String("room_id", roomID),
		zap.String("user_id", userID),
		zap.String("version_id", version.VersionID),
		zap.String("provenance", provenance))
	return version, nil
}

// GetCurrent returns the newest version of user, or nil if the user never
// saved preferences in the room.
func (s *PreferenceService) GetCurrent(ctx context.Context, roomID, userID string) (*models.PreferenceVersion, error) {
	var version models.PreferenceVersion
	err := getEntity(ctx, s.Table, store.RoomPK(roomID), store.LatestPreferenceSK(userID), &version, "no preferences")
	if err == nil {
		return &version, nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, apperrors.Wrap(err, "get current preferences")
	}

	// No projection: fall back to the newest entry of the history.
	versions, err := s.History(ctx, roomID, userID, 1)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, nil
	}
	return &versions[0], nil
}

// GetAllCurrent returns the newest version of every user who saved
// preferences in the room, keyed by user id.
func (s *PreferenceService) GetAllCurrent(ctx context.Context, roomID string) (map[string]*models.PreferenceVersion, error) {
	versions, err := queryEntities[models.PreferenceVersion](ctx, s.Table, store.Query{
		PK:         store.RoomPK(roomID),
		SKPrefix:   store.VersionPrefix,
		Descending: true,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "list preferences")
	}

	current := make(map[string]*models.PreferenceVersion)
	for i := range versions {
		v := &versions[i]
		if _, ok := current[v.UserID]; !ok {
			current[v.UserID] = v
		}
	}
	return current, nil
}

// History returns up to limit versions of user, newest first. limit <= 0
// returns all.
func (s *PreferenceService) History(ctx context.Context, roomID, userID string, limit int) ([]models.PreferenceVersion, error) {
	versions, err := queryEntities[models.PreferenceVersion](ctx, s.Table, store.Query{
		PK:         store.RoomPK(roomID),
		SKPrefix:   store.PreferencePrefix(userID),
		Descending: true,
		Limit:      limit,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, fmt.Sprintf("preference history of %s", userID))
	}
	return versions, nil
}

// SaveCombined persists one combination result.
func (s *PreferenceService) SaveCombined(ctx context.Context, roomID string, set models.PreferenceSet, mode models.CombineMode, contributing []string) (*models.CombinedPreferenceVersion, error) {
	now := s.Clock.now()
	combined := &models.CombinedPreferenceVersion{
		VersionID:            newID(),
		RoomID:               roomID,
		Criteria:             set.Criteria,
		Weights:              set.Weights,
		Mode:                 mode,
		ContributingVersions: contributing,
		InfeasibleFields:     set.Criteria.InfeasibleFields(),
		CreatedAt:            now,
	}
	if combined.ContributingVersions == nil {
		combined.ContributingVersions = []string{}
	}

	item, err := store.NewItem(store.RoomPK(roomID), store.CombinedSK(now, combined.VersionID), store.EntityPreferenceCombined, combined)
	if err != nil {
		return nil, err
	}
	if err := s.Table.PutIfAbsent(ctx, item); err != nil {
		return nil, apperrors.Wrap(err, "save combined preferences")
	}
	s.Logger.Info("🔀 combined preferences saved",
		zap.String("room_id", roomID),
		zap.String("version_id", combined.VersionID),
		zap.String("mode", string(mode)),
		zap.Strings("infeasible", combined.InfeasibleFields))
	return combined, nil
}

// LatestCombined returns the newest combined version, or nil if the room
// never combined.
func (s *PreferenceService) LatestCombined(ctx context.Context, roomID string) (*models.CombinedPreferenceVersion, error) {
	versions, err := s.CombinedHistory(ctx, roomID, 1)
	if err != nil || len(versions) == 0 {
		return nil, err
	}
	return &versions[0], nil
}

// CombinedHistory returns up to limit combined versions, newest first.
func (s *PreferenceService) CombinedHistory(ctx context.Context, roomID string, limit int) ([]models.CombinedPreferenceVersion, error) {
	versions, err := queryEntities[models.CombinedPreferenceVersion](ctx, s.Table, store.Query{
		PK:         store.RoomPK(roomID),
		SKPrefix:   store.CombinedPrefix,
		Descending: true,
		Limit:      limit,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "combined preference history")
	}
	return versions, nil
}

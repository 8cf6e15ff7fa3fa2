package services

import (
	"context"
	"strings"
	"time"

	"homematch/apperrors"
	"homematch/models"
	"homematch/store"

	"go.uber.org/zap"
)

// NewListing is the input of ListingService.Create.
type NewListing struct {
	Source     string `json:"source" validate:"required"`
	ExternalID string `json:"externalId,omitempty"`
	models.ListingFields
	AddedBy string `json:"addedBy" validate:"required"`
}

// StatusChange is the input of ListingService.UpdateStatus.
type StatusChange struct {
	Status  string
	VisitAt *time.Time
	// ClearVisit drops a previously scheduled visit time.
	ClearVisit bool
}

// ListingService stores the candidate properties of a room and tracks their
// review status.
type ListingService struct {
	Table  store.Table
	Logger *zap.Logger
	Clock  Clock
}

func NewListingService(table store.Table, logger *zap.Logger, clock Clock) *ListingService {
	return &ListingService{Table: table, Logger: logger, Clock: clock}
}

func listingItem(l *models.Listing) (store.Item, error) {
	item, err := store.NewItem(store.RoomPK(l.RoomID), store.ListingSK(l.ListingID), store.EntityListing, l)
	if err != nil {
		return store.Item{}, err
	}
	if l.ExternalID != "" {
		item.GSI1PK = store.ListingSourceKey(l.RoomID, l.Source, l.ExternalID)
		item.GSI1SK = store.ListingSK(l.ListingID)
	}
	item.GSI2PK = store.ListingStatusKey(l.RoomID, l.Status)
	item.GSI2SK = store.FormatTS(l.CreatedAt) + "#" + l.ListingID
	return item, nil
}

// Create saves a listing. A listing whose (source, externalId) is already
// saved in the room is rejected with a conflict.
func (s *ListingService) Create(ctx context.Context, roomID string, in NewListing) (*models.Listing, error) {
	source := strings.TrimSpace(in.Source)
	if source == "" {
		return nil, apperrors.NewValidation("source is required")
	}
	if in.AddedBy == "" {
		return nil, apperrors.NewValidation("addedBy is required")
	}

	externalID := strings.TrimSpace(in.ExternalID)
	if externalID != "" {
		existing, err := s.FindByExternalID(ctx, roomID, source, externalID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			s.Logger.Info("⚠️ duplicate listing rejected",
				zap.String("room_id", roomID),
				zap.String("source", source),
				zap.String("external_id", externalID),
				zap.String("listing_id", existing.ListingID))
			return nil, apperrors.NewConflict("listing %s/%s is already saved in room %s", source, externalID, roomID)
		}
	}

	now := s.Clock.now()
	listing := &models.Listing{
		ListingID:     newID(),
		RoomID:        roomID,
		Source:        source,
		ExternalID:    externalID,
		ListingFields: in.ListingFields,
		Status:        models.StatusUnseen,
		SeenBy:        []string{in.AddedBy},
		AddedBy:       in.AddedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	item, err := listingItem(listing)
	if err != nil {
		return nil, err
	}

	writes := []store.Write{{Item: item, IfAbsent: true}}
	if externalID != "" {
		// The guard record closes the window between the index lookup
		// above and this write.
		writes = append(writes, store.Write{
			Item: store.Item{
				PK:         store.ListingSourceKey(roomID, source, externalID),
				SK:         store.ListingGuardSK,
				EntityType: store.EntityListingGuard,
				Data:       map[string]any{"listingId": listing.ListingID},
			},
			IfAbsent: true,
		})
	}
	if err := s.Table.TransactPut(ctx, writes); err != nil {
		if apperrors.IsConflict(err) {
			return nil, apperrors.NewConflict("listing %s/%s is already saved in room %s", source, externalID, roomID)
		}
		return nil, apperrors.Wrap(err, "create listing")
	}

	s.Logger.Info("🏠 listing saved",
		zap.String("room_id", roomID),
		zap.String("listing_id", listing.ListingID),
		zap.String("source", source),
		zap.String("added_by", in.AddedBy))
	return listing, nil
}

func (s *ListingService) Get(ctx context.Context, roomID, listingID string) (*models.Listing, error) {
	var listing models.Listing
	if err := getEntity(ctx, s.Table, store.RoomPK(roomID), store.ListingSK(listingID), &listing,
		"listing %s not found in room %s", listingID, roomID); err != nil {
		return nil, err
	}
	return &listing, nil
}

func (s *ListingService) save(ctx context.Context, listing *models.Listing) error {
	item, err := listingItem(listing)
	if err != nil {
		return err
	}
	return s.Table.Put(ctx, item)
}

// UpdateStatus overwrites the status of a listing, last write wins. Any
// status may follow any other. It returns the updated listing and the status
// it replaced.
func (s *ListingService) UpdateStatus(ctx context.Context, roomID, listingID string, change StatusChange) (*models.Listing, string, error) {
	if !models.IsListingStatus(change.Status) {
		return nil, "", apperrors.NewValidation("unknown listing status %q", change.Status)
	}
	listing, err := s.Get(ctx, roomID, listingID)
	if err != nil {
		return nil, "", err
	}

	previous := listing.Status
	listing.Status = change.Status
	switch {
	case change.VisitAt != nil:
		visitAt := change.VisitAt.UTC()
		listing.VisitAt = &visitAt
	case change.ClearVisit:
		listing.VisitAt = nil
	}
	listing.UpdatedAt = s.Clock.now()

	if err := s.save(ctx, listing); err != nil {
		return nil, "", apperrors.Wrap(err, "update listing status")
	}
	s.Logger.Info("🔄 listing status changed",
		zap.String("room_id", roomID),
		zap.String("listing_id", listingID),
		zap.String("from", previous),
		zap.String("to", change.Status))
	return listing, previous, nil
}

// MarkSeen records that userID viewed the listing. The first view by a user
// other than the adder moves an unseen listing to seen. Repeated calls are
// no-ops. advanced reports whether the status changed.
func (s *ListingService) MarkSeen(ctx context.Context, roomID, listingID, userID string) (listing *models.Listing, advanced bool, err error) {
	listing, err = s.Get(ctx, roomID, listingID)
	if err != nil {
		return nil, false, err
	}
	if listing.HasSeen(userID) {
		return listing, false, nil
	}

	listing.SeenBy = append(listing.SeenBy, userID)
	if listing.Status == models.StatusUnseen {
		listing.Status = models.StatusSeen
		advanced = true
	}
	listing.UpdatedAt = s.Clock.now()

	if err := s.save(ctx, listing); err != nil {
		return nil, false, apperrors.Wrap(err, "mark listing seen")
	}
	s.Logger.Debug("👀 listing seen",
		zap.String("room_id", roomID),
		zap.String("listing_id", listingID),
		zap.String("user_id", userID),
		zap.Bool("advanced", advanced))
	return listing, advanced, nil
}

// ListByRoom returns every listing of the room. Soft-deleted listings are
// only included on request.
func (s *ListingService) ListByRoom(ctx context.Context, roomID string, includeDeleted bool) ([]models.Listing, error) {
	listings, err := queryEntities[models.Listing](ctx, s.Table, store.Query{
		PK:       store.RoomPK(roomID),
		SKPrefix: store.ListingPrefix,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "list listings")
	}
	if includeDeleted {
		return listings, nil
	}
	visible := listings[:0]
	for _, l := range listings {
		if l.Status != models.StatusDeleted {
			visible = append(visible, l)
		}
	}
	return visible, nil
}

// ListByStatus returns the listings of the room in status, oldest first.
func (s *ListingService) ListByStatus(ctx context.Context, roomID, status string) ([]models.Listing, error) {
	if !models.IsListingStatus(status) {
		return nil, apperrors.NewValidation("unknown listing status %q", status)
	}
	listings, err := queryEntities[models.Listing](ctx, s.Table, store.Query{
		Index: store.IndexGSI2,
		PK:    store.ListingStatusKey(roomID, status),
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "list listings by status")
	}
	return listings, nil
}

// FindByExternalID returns the listing saved for (source, externalID), or
// nil if there is none.
func (s *ListingService) FindByExternalID(ctx context.Context, roomID, source, externalID string) (*models.Listing, error) {
	listings, err := queryEntities[models.Listing](ctx, s.Table, store.Query{
		Index: store.IndexGSI1,
		PK:    store.ListingSourceKey(roomID, source, externalID),
		Limit: 1,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "find listing by external id")
	}
	if len(listings) == 0 {
		return nil, nil
	}
	return &listings[0], nil
}

package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"homematch/apperrors"
	"homematch/metrics"
	"homematch/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Advisor is the natural-language AI collaborator.
type Advisor interface {
	// ExtractPreferences turns free text into criteria, refining existing
	// when given.
	ExtractPreferences(ctx context.Context, freeText string, existing *models.Criteria) (*models.Proposal, error)
	ScoreCompatibility(ctx context.Context, a, b models.PreferenceSet) (models.CompatibilityScore, error)
	SuggestCompromise(ctx context.Context, a, b models.PreferenceSet) (*models.Proposal, error)
}

// SearchProvider queries a listing portal.
type SearchProvider interface {
	Search(ctx context.Context, criteria models.Criteria) ([]models.Candidate, error)
}

// Workflow runs the user-visible operations of a room. Each mutation appends
// one ledger event.
type Workflow struct {
	Rooms         *RoomService
	Preferences   *PreferenceService
	Listings      *ListingService
	Ledger        *LedgerService
	Compatibility *CompatibilityService
	Advisor       Advisor
	Searcher      SearchProvider
	Metrics       *metrics.Metrics
	Logger        *zap.Logger
}

// ProposalResult is the outcome of ProposeCriteria. Version is set when the
// proposal was applied.
type ProposalResult struct {
	Proposal models.Proposal           `json:"proposal"`
	Version  *models.PreferenceVersion `json:"version,omitempty"`
}

// CompromiseResult pairs a compromise proposal with the versions it was
// computed from.
type CompromiseResult struct {
	Proposal             models.Proposal `json:"proposal"`
	PreferenceVersionIDs []string        `json:"preferenceVersionIds"`
}

func (w *Workflow) record(ctx context.Context, roomID, eventType, actorID string, payload any) error {
	event, err := models.NewEvent(roomID, eventType, actorID, payload)
	if err != nil {
		return err
	}
	if _, err := w.Ledger.Append(ctx, event); err != nil {
		return err
	}
	w.Metrics.EventAppended(eventType)
	return nil
}

func (w *Workflow) requireMember(ctx context.Context, roomID, userID string) error {
	if _, err := w.Rooms.GetRoom(ctx, roomID); err != nil {
		return err
	}
	_, err := w.Rooms.GetMember(ctx, roomID, userID)
	return err
}

func (w *Workflow) CreateRoom(ctx context.Context, in NewRoom) (*models.Room, error) {
	room, err := w.Rooms.CreateRoom(ctx, in)
	if err != nil {
		return nil, err
	}
	err = w.record(ctx, room.RoomID, models.EventRoomCreated, room.CreatedBy,
		models.RoomCreatedPayload{Name: room.Name, SearchType: room.SearchType})
	return room, err
}

func (w *Workflow) JoinRoom(ctx context.Context, roomID, userID string) (*models.Member, error) {
	member, err := w.Rooms.Join(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	err = w.record(ctx, roomID, models.EventMemberJoined, userID,
		models.MemberJoinedPayload{UserID: userID, Role: member.Role})
	return member, err
}

// SavePreferences stores a new preference version of a member.
func (w *Workflow) SavePreferences(ctx context.Context, roomID, userID string, set models.PreferenceSet, provenance string) (*models.PreferenceVersion, error) {
	if err := w.requireMember(ctx, roomID, userID); err != nil {
		return nil, err
	}
	version, err := w.Preferences.SavePreferences(ctx, roomID, userID, set, provenance)
	if err != nil {
		return nil, err
	}
	err = w.record(ctx, roomID, models.EventPreferencesUpdated, userID,
		models.PreferencesUpdatedPayload{VersionID: version.VersionID, Provenance: version.Provenance})
	return version, err
}

// memberPreferences loads the current preferences of the first two members,
// in join order. Either side may be nil.
func (w *Workflow) memberPreferences(ctx context.Context, roomID string) (a, b *models.PreferenceVersion, err error) {
	if _, err := w.Rooms.GetRoom(ctx, roomID); err != nil {
		return nil, nil, err
	}
	members, err := w.Rooms.ListMembers(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	if len(members) > 0 {
		g.Go(func() error {
			var err error
			a, err = w.Preferences.GetCurrent(gctx, roomID, members[0].UserID)
			return err
		})
	}
	if len(members) > 1 {
		g.Go(func() error {
			var err error
			b, err = w.Preferences.GetCurrent(gctx, roomID, members[1].UserID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func versionSet(v *models.PreferenceVersion) *models.PreferenceSet {
	if v == nil {
		return nil
	}
	set := v.Set()
	return &set
}

func versionIDs(versions ...*models.PreferenceVersion) []string {
	ids := []string{}
	for _, v := range versions {
		if v != nil {
			ids = append(ids, v.VersionID)
		}
	}
	return ids
}

// Combine merges the members' current preferences under mode and stores the
// result.
func (w *Workflow) Combine(ctx context.Context, roomID string, mode models.CombineMode) (*models.CombinedPreferenceVersion, error) {
	if !mode.Valid() {
		return nil, apperrors.NewValidation("unknown combine mode %q", mode)
	}
	a, b, err := w.memberPreferences(ctx, roomID)
	if err != nil {
		return nil, err
	}

	set := Combine(versionSet(a), versionSet(b), mode)
	w.Metrics.CombineOp(string(mode))
	combined, err := w.Preferences.SaveCombined(ctx, roomID, set, mode, versionIDs(a, b))
	if err != nil {
		return nil, err
	}
	for _, field := range combined.InfeasibleFields {
		w.Metrics.InfeasibleRange(field)
	}
	return combined, nil
}

// Search combines the members' preferences and queries the search provider.
// A failing provider is replaced by FallbackCandidates. An infeasible
// combination is not sent to the provider and yields no candidates.
func (w *Workflow) Search(ctx context.Context, roomID, actorID string, mode models.CombineMode) (*models.SearchResult, error) {
	combined, err := w.Combine(ctx, roomID, mode)
	if err != nil {
		return nil, err
	}
	result := &models.SearchResult{
		Combined:         *combined,
		Candidates:       []models.Candidate{},
		InfeasibleFields: combined.InfeasibleFields,
	}

	if len(combined.InfeasibleFields) == 0 {
		candidates, err := w.runSearch(ctx, combined.Criteria)
		if err != nil {
			w.Logger.Warn("⚠️ search provider failed, using fallback results",
				zap.String("room_id", roomID),
				zap.Error(err))
			candidates = FallbackCandidates(combined.Criteria)
			result.Fallback = true
		}
		for i := range candidates {
			c := &candidates[i]
			if c.ExternalID == "" {
				continue
			}
			saved, err := w.Listings.FindByExternalID(ctx, roomID, c.Source, c.ExternalID)
			if err != nil {
				return nil, err
			}
			c.AlreadySaved = saved != nil
		}
		result.Candidates = candidates
	}

	err = w.record(ctx, roomID, models.EventSearchExecuted, actorID, models.SearchExecutedPayload{
		CombinedVersionID: combined.VersionID,
		Mode:              mode,
		ResultCount:       len(result.Candidates),
		Fallback:          result.Fallback,
		InfeasibleFields:  result.InfeasibleFields,
	})
	return result, err
}

func (w *Workflow) runSearch(ctx context.Context, criteria models.Criteria) ([]models.Candidate, error) {
	if w.Searcher == nil {
		w.Metrics.UpstreamCall("search", "search", metrics.OutcomeFallback)
		return nil, apperrors.NewUpstream(nil, "no search provider configured")
	}
	candidates, err := w.Searcher.Search(ctx, criteria)
	if err != nil {
		w.Metrics.UpstreamCall("search", "search", metrics.OutcomeFallback)
		return nil, apperrors.NewUpstream(err, "search provider")
	}
	w.Metrics.UpstreamCall("search", "search", metrics.OutcomeSuccess)
	if candidates == nil {
		candidates = []models.Candidate{}
	}
	return candidates, nil
}

// FallbackCandidates is the fixed result set used when the search provider
// is unavailable. It depends only on criteria.
func FallbackCandidates(criteria models.Criteria) []models.Candidate {
	location := "Zurich"
	if criteria.Location != nil && *criteria.Location != "" {
		location = *criteria.Location
	}
	offer := criteria.OfferType
	if offer == "" {
		offer = models.OfferTypeBuy
	}

	basePrice := 2000.0
	if offer == models.OfferTypeBuy {
		basePrice = 850000
	}
	if criteria.PriceTo != nil && *criteria.PriceTo > 0 {
		basePrice = *criteria.PriceTo * 0.9
	} else if criteria.PriceFrom != nil && *criteria.PriceFrom > 0 {
		basePrice = *criteria.PriceFrom * 1.1
	}
	baseRooms := 3.5
	if criteria.RoomsFrom != nil && *criteria.RoomsFrom > 0 {
		baseRooms = *criteria.RoomsFrom
	}

	slug := strings.ToLower(strings.ReplaceAll(location, " ", "-"))
	candidates := make([]models.Candidate, 0, 3)
	for i, label := range []string{"Bright apartment", "Family flat", "Attic apartment"} {
		price := basePrice * (1 - 0.05*float64(i))
		rooms := baseRooms + 0.5*float64(i)
		space := rooms * 25
		candidates = append(candidates, models.Candidate{
			Source:     "fallback",
			ExternalID: fmt.Sprintf("%s-%s-%d", offer, slug, i+1),
			ListingFields: models.ListingFields{
				Title:       fmt.Sprintf("%s in %s", label, location),
				Address:     location,
				Price:       &price,
				Rooms:       &rooms,
				LivingSpace: &space,
			},
		})
	}
	return candidates
}

// PinCandidate saves a candidate into the room's listings.
func (w *Workflow) PinCandidate(ctx context.Context, roomID string, in NewListing) (*models.Listing, error) {
	if err := w.requireMember(ctx, roomID, in.AddedBy); err != nil {
		return nil, err
	}
	listing, err := w.Listings.Create(ctx, roomID, in)
	if apperrors.IsConflict(err) {
		w.Metrics.ListingConflict()
	}
	if err != nil {
		return nil, err
	}
	w.Metrics.ListingCreated()
	err = w.record(ctx, roomID, models.EventListingPinned, in.AddedBy, models.ListingPinnedPayload{
		ListingID:  listing.ListingID,
		Source:     listing.Source,
		ExternalID: listing.ExternalID,
		Title:      listing.Title,
	})
	return listing, err
}

// ChangeStatus sets the status of a listing. Planning a visit needs a visit
// time; any other status drops a planned visit time.
func (w *Workflow) ChangeStatus(ctx context.Context, roomID, listingID, actorID, status string, visitAt *time.Time) (*models.Listing, error) {
	if !models.IsListingStatus(status) {
		return nil, apperrors.NewValidation("unknown listing status %q", status)
	}
	change := StatusChange{Status: status}
	if status == models.StatusVisitPlanned {
		if visitAt == nil || visitAt.IsZero() {
			return nil, apperrors.NewValidation("visitAt is required when planning a visit")
		}
		change.VisitAt = visitAt
	} else {
		change.ClearVisit = true
	}

	listing, previous, err := w.Listings.UpdateStatus(ctx, roomID, listingID, change)
	if err != nil {
		return nil, err
	}
	w.Metrics.StatusTransition(previous, status)

	if status == models.StatusVisitPlanned {
		err = w.record(ctx, roomID, models.EventVisitScheduled, actorID,
			models.VisitScheduledPayload{ListingID: listingID, VisitAt: *listing.VisitAt})
	} else {
		err = w.record(ctx, roomID, models.EventListingStatusChanged, actorID,
			models.ListingStatusChangedPayload{ListingID: listingID, From: previous, To: status})
	}
	return listing, err
}

// MarkSeen records a view of the listing by userID.
func (w *Workflow) MarkSeen(ctx context.Context, roomID, listingID, userID string) (*models.Listing, error) {
	if err := w.requireMember(ctx, roomID, userID); err != nil {
		return nil, err
	}
	listing, advanced, err := w.Listings.MarkSeen(ctx, roomID, listingID, userID)
	if err != nil || !advanced {
		return listing, err
	}
	w.Metrics.StatusTransition(models.StatusUnseen, models.StatusSeen)
	err = w.record(ctx, roomID, models.EventListingStatusChanged, userID, models.ListingStatusChangedPayload{
		ListingID: listingID,
		From:      models.StatusUnseen,
		To:        models.StatusSeen,
	})
	return listing, err
}

// ComputeCompatibility scores the members' current preferences. When the
// advisor fails, or a member has no preferences yet, the neutral score is
// stored and the snapshot is marked degraded.
func (w *Workflow) ComputeCompatibility(ctx context.Context, roomID, actorID string) (*models.CompatibilitySnapshot, error) {
	a, b, err := w.memberPreferences(ctx, roomID)
	if err != nil {
		return nil, err
	}

	score := models.CompatibilityScore{Score: models.NeutralCompatibilityScore, Comment: models.NeutralCompatibilityComment}
	degraded := true
	switch {
	case a == nil || b == nil:
		w.Logger.Info("compatibility needs both members' preferences", zap.String("room_id", roomID))
	case w.Advisor == nil:
		w.Metrics.UpstreamCall("ai", "score_compatibility", metrics.OutcomeFallback)
	default:
		scored, err := w.Advisor.ScoreCompatibility(ctx, a.Set(), b.Set())
		if err != nil {
			w.Logger.Warn("⚠️ compatibility scoring failed, storing neutral score",
				zap.String("room_id", roomID),
				zap.Error(err))
			w.Metrics.UpstreamCall("ai", "score_compatibility", metrics.OutcomeFallback)
		} else {
			w.Metrics.UpstreamCall("ai", "score_compatibility", metrics.OutcomeSuccess)
			score, degraded = scored, false
		}
	}

	snapshot, err := w.Compatibility.Save(ctx, roomID, score, versionIDs(a, b), degraded)
	if err != nil {
		return nil, err
	}
	err = w.record(ctx, roomID, models.EventCompatibilityComputed, actorID, models.CompatibilityComputedPayload{
		SnapshotID: snapshot.SnapshotID,
		Score:      snapshot.Score,
		Level:      snapshot.Level,
		Degraded:   snapshot.Degraded,
	})
	return snapshot, err
}

// ProposeCriteria asks the advisor to turn freeText into criteria for
// userID. With apply set the proposal is saved as an AI-provenance version.
// Advisor failures are returned as upstream errors; nothing is fabricated.
func (w *Workflow) ProposeCriteria(ctx context.Context, roomID, userID, freeText string, apply bool) (*ProposalResult, error) {
	if strings.TrimSpace(freeText) == "" {
		return nil, apperrors.NewValidation("text is required")
	}
	if err := w.requireMember(ctx, roomID, userID); err != nil {
		return nil, err
	}
	if w.Advisor == nil {
		return nil, apperrors.NewUpstream(nil, "no AI advisor configured")
	}

	current, err := w.Preferences.GetCurrent(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	var existing *models.Criteria
	if current != nil {
		existing = &current.Criteria
	}

	proposal, err := w.Advisor.ExtractPreferences(ctx, freeText, existing)
	if err != nil {
		w.Metrics.UpstreamCall("ai", "extract_preferences", metrics.OutcomeError)
		return nil, apperrors.NewUpstream(err, "extract preferences")
	}
	w.Metrics.UpstreamCall("ai", "extract_preferences", metrics.OutcomeSuccess)

	if proposal.Criteria.OfferType == "" {
		if existing != nil {
			proposal.Criteria.OfferType = existing.OfferType
		} else if room, err := w.Rooms.GetRoom(ctx, roomID); err == nil {
			proposal.Criteria.OfferType = room.SearchType
		}
	}

	result := &ProposalResult{Proposal: *proposal}
	if apply {
		version, err := w.SavePreferences(ctx, roomID, userID,
			models.PreferenceSet{Criteria: proposal.Criteria, Weights: proposal.Weights}, models.ProvenanceAI)
		if err != nil {
			return nil, err
		}
		result.Version = version
	}

	payload := models.AICriteriaProposedPayload{Proposal: *proposal, Applied: apply}
	if result.Version != nil {
		payload.VersionID = result.Version.VersionID
	}
	err = w.record(ctx, roomID, models.EventAICriteriaProposed, userID, payload)
	return result, err
}

// ProposeCompromise asks the advisor for a compromise between the members'
// current preferences. Advisor failures are returned as upstream errors.
func (w *Workflow) ProposeCompromise(ctx context.Context, roomID, actorID string) (*CompromiseResult, error) {
	a, b, err := w.memberPreferences(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if a == nil || b == nil {
		return nil, apperrors.NewValidation("both members need saved preferences for a compromise")
	}
	if w.Advisor == nil {
		return nil, apperrors.NewUpstream(nil, "no AI advisor configured")
	}

	proposal, err := w.Advisor.SuggestCompromise(ctx, a.Set(), b.Set())
	if err != nil {
		w.Metrics.UpstreamCall("ai", "suggest_compromise", metrics.OutcomeError)
		return nil, apperrors.NewUpstream(err, "suggest compromise")
	}
	w.Metrics.UpstreamCall("ai", "suggest_compromise", metrics.OutcomeSuccess)

	result := &CompromiseResult{Proposal: *proposal, PreferenceVersionIDs: versionIDs(a, b)}
	err = w.record(ctx, roomID, models.EventAICompromiseProposed, actorID,
		models.AICompromiseProposedPayload{Proposal: *proposal})
	return result, err
}

// PostMessage appends a chat message to the room's ledger.
func (w *Workflow) PostMessage(ctx context.Context, roomID, userID, text string) (*models.Event, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidation("message text is required")
	}
	if err := w.requireMember(ctx, roomID, userID); err != nil {
		return nil, err
	}
	event, err := models.NewEvent(roomID, models.EventChatMessage, userID, models.ChatMessagePayload{Text: text})
	if err != nil {
		return nil, err
	}
	stored, err := w.Ledger.Append(ctx, event)
	if err != nil {
		return nil, err
	}
	w.Metrics.EventAppended(models.EventChatMessage)
	return stored, nil
}

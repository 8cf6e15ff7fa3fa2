package models

// ✅ Offer types (what the room is searching for)
const (
	OfferTypeBuy  = "buy"
	OfferTypeRent = "rent"
)

// ✅ Member roles
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// ✅ Preference provenance
const (
	ProvenanceManual = "manual"
	ProvenanceAI     = "ai"
)

// ✅ Listing statuses
const (
	StatusUnseen       = "unseen"
	StatusSeen         = "seen"
	StatusVisitPlanned = "visit_planned"
	StatusVisited      = "visited"
	StatusApplied      = "applied"
	StatusAccepted     = "accepted"
	StatusRejected     = "rejected"
	StatusDeleted      = "deleted"
)

// ListingStatuses lists every status a listing may hold, in typical flow order.
var ListingStatuses = []string{
	StatusUnseen,
	StatusSeen,
	StatusVisitPlanned,
	StatusVisited,
	StatusApplied,
	StatusAccepted,
	StatusRejected,
	StatusDeleted,
}

// IsListingStatus reports whether s is a known listing status.
func IsListingStatus(s string) bool {
	for _, status := range ListingStatuses {
		if status == s {
			return true
		}
	}
	return false
}

// ✅ Combination policies
type CombineMode string

const (
	CombineAll    CombineMode = "all"
	CombineStrict CombineMode = "strict"
	CombineMixed  CombineMode = "mixed"
)

func (m CombineMode) Valid() bool {
	return m == CombineAll || m == CombineStrict || m == CombineMixed
}

// ✅ Event types
const (
	EventRoomCreated           = "room_created"
	EventMemberJoined          = "member_joined"
	EventPreferencesUpdated    = "preferences_updated"
	EventSearchExecuted        = "search_executed"
	EventCompatibilityComputed = "compatibility_computed"
	EventListingPinned         = "listing_pinned"
	EventListingStatusChanged  = "listing_status_changed"
	EventVisitScheduled        = "visit_scheduled"
	EventAICriteriaProposed    = "ai_criteria_proposed"
	EventAICompromiseProposed  = "ai_compromise_proposed"
	EventChatMessage           = "chat_message"
)

// ✅ Compatibility levels
const (
	CompatibilityLow    = "low"
	CompatibilityMedium = "medium"
	CompatibilityHigh   = "high"
)

// Compatibility banding thresholds (inclusive lower bounds).
const (
	CompatibilityMediumFrom = 40
	CompatibilityHighFrom   = 70
)

// CompatibilityLevel buckets a 0-100 score.
func CompatibilityLevel(score int) string {
	switch {
	case score >= CompatibilityHighFrom:
		return CompatibilityHigh
	case score >= CompatibilityMediumFrom:
		return CompatibilityMedium
	default:
		return CompatibilityLow
	}
}

// Neutral compatibility result used when the AI collaborator fails.
const (
	NeutralCompatibilityScore   = 50
	NeutralCompatibilityComment = "unable to compute"
)

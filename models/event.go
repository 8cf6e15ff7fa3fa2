package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event is one immutable entry of a room's ledger. Payload shape depends on
// Type; see the *Payload types below.
type Event struct {
	EventID   string          `json:"eventId"`
	RoomID    string          `json:"roomId"`
	Type      string          `json:"type"`
	ActorID   string          `json:"actorId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// NewEvent builds an unsaved event carrying payload.
func NewEvent(roomID, eventType, actorID string, payload any) (Event, error) {
	event := Event{RoomID: roomID, Type: eventType, ActorID: actorID}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
		}
		event.Payload = raw
	}
	return event, nil
}

// DecodePayload unmarshals the payload into v.
func (e Event) DecodePayload(v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(e.Payload, v)
}

type RoomCreatedPayload struct {
	Name       string `json:"name"`
	SearchType string `json:"searchType"`
}

type MemberJoinedPayload struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

type PreferencesUpdatedPayload struct {
	VersionID  string `json:"versionId"`
	Provenance string `json:"provenance"`
}

type SearchExecutedPayload struct {
	CombinedVersionID string      `json:"combinedVersionId"`
	Mode              CombineMode `json:"mode"`
	ResultCount       int         `json:"resultCount"`
	Fallback          bool        `json:"fallback"`
	InfeasibleFields  []string    `json:"infeasibleFields,omitempty"`
}

type CompatibilityComputedPayload struct {
	SnapshotID string `json:"snapshotId"`
	Score      int    `json:"score"`
	Level      string `json:"level"`
	Degraded   bool   `json:"degraded,omitempty"`
}

type ListingPinnedPayload struct {
	ListingID  string `json:"listingId"`
	Source     string `json:"source"`
	ExternalID string `json:"externalId,omitempty"`
	Title      string `json:"title"`
}

type ListingStatusChangedPayload struct {
	ListingID string `json:"listingId"`
	From      string `json:"from"`
	To        string `json:"to"`
}

type VisitScheduledPayload struct {
	ListingID string    `json:"listingId"`
	VisitAt   time.Time `json:"visitAt"`
}

type AICriteriaProposedPayload struct {
	Proposal  Proposal `json:"proposal"`
	Applied   bool     `json:"applied"`
	VersionID string   `json:"versionId,omitempty"`
}

type AICompromiseProposedPayload struct {
	Proposal Proposal `json:"proposal"`
}

type ChatMessagePayload struct {
	Text string `json:"text"`
}

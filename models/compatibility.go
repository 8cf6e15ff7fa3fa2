package models

import "time"

// CompatibilityScore is the AI collaborator's judgement of two preference sets.
type CompatibilityScore struct {
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

// CompatibilitySnapshot is one persisted compatibility computation.
type CompatibilitySnapshot struct {
	SnapshotID           string    `json:"snapshotId"`
	RoomID               string    `json:"roomId"`
	Score                int       `json:"score"`
	Level                string    `json:"level"`
	Comment              string    `json:"comment"`
	PreferenceVersionIDs []string  `json:"preferenceVersionIds"`
	Degraded             bool      `json:"degraded,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
}

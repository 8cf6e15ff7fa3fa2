package models

import "time"

// Room is a shared search session between two people.
type Room struct {
	RoomID     string    `json:"roomId"`
	Name       string    `json:"name"`
	CreatedBy  string    `json:"createdBy"`
	SearchType string    `json:"searchType"` // ✅ "buy" or "rent"
	Context    *string   `json:"context,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Member is a user's membership in a room.
type Member struct {
	RoomID   string    `json:"roomId"`
	UserID   string    `json:"userId"`
	Role     string    `json:"role"` // ✅ "owner" or "member"
	JoinedAt time.Time `json:"joinedAt"`
}

// RoomRef indexes a room under the user who belongs to it.
type RoomRef struct {
	UserID   string    `json:"userId"`
	RoomID   string    `json:"roomId"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

package models

import "time"

// ListingFields are the display fields of a candidate property.
type ListingFields struct {
	Title       string   `json:"title"`
	URL         string   `json:"url,omitempty"`
	Address     string   `json:"address,omitempty"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Rooms       *float64 `json:"rooms,omitempty"`
	LivingSpace *float64 `json:"livingSpace,omitempty"`
}

// Listing is a candidate property saved into a room.
type Listing struct {
	ListingID  string `json:"listingId"`
	RoomID     string `json:"roomId"`
	Source     string `json:"source"`               // ✅ Portal brand, e.g. "homegate"
	ExternalID string `json:"externalId,omitempty"` // ✅ Portal id, unique per (room, source) when set
	ListingFields
	Status    string     `json:"status"`
	SeenBy    []string   `json:"seenBy"`
	AddedBy   string     `json:"addedBy"`
	VisitAt   *time.Time `json:"visitAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// HasSeen reports whether userID is in SeenBy.
func (l *Listing) HasSeen(userID string) bool {
	for _, id := range l.SeenBy {
		if id == userID {
			return true
		}
	}
	return false
}

// Candidate is one search result returned by the search provider.
type Candidate struct {
	Source     string `json:"source"`
	ExternalID string `json:"externalId,omitempty"`
	ListingFields
	AlreadySaved bool `json:"alreadySaved"`
}

// SearchResult is the outcome of one room search.
type SearchResult struct {
	Combined         CombinedPreferenceVersion `json:"combined"`
	Candidates       []Candidate               `json:"candidates"`
	Fallback         bool                      `json:"fallback"`
	InfeasibleFields []string                  `json:"infeasibleFields,omitempty"`
}

package models

import "time"

// Criteria is one structured search query. Every field except OfferType is
// optional; nil (or an empty Features slice) means "not specified".
type Criteria struct {
	OfferType       string   `json:"offerType" validate:"required,offertype"`
	Location        *string  `json:"location,omitempty"`
	PriceFrom       *float64 `json:"priceFrom,omitempty" validate:"omitempty,gte=0"`
	PriceTo         *float64 `json:"priceTo,omitempty" validate:"omitempty,gte=0"`
	RoomsFrom       *float64 `json:"roomsFrom,omitempty" validate:"omitempty,gte=0"`
	RoomsTo         *float64 `json:"roomsTo,omitempty" validate:"omitempty,gte=0"`
	LivingSpaceFrom *float64 `json:"livingSpaceFrom,omitempty" validate:"omitempty,gte=0"`
	LivingSpaceTo   *float64 `json:"livingSpaceTo,omitempty" validate:"omitempty,gte=0"`
	Radius          *float64 `json:"radius,omitempty" validate:"omitempty,gte=0"`
	Features        []string `json:"features,omitempty"`
	OnlyWithPrice   *bool    `json:"onlyWithPrice,omitempty"`
	FreeText        *string  `json:"freeText,omitempty"`
}

// Weights holds the per-field importance (1-5) a user attached to their
// criteria. A nil field means no weight was given.
type Weights struct {
	Location        *int `json:"location,omitempty" validate:"omitempty,min=1,max=5"`
	PriceFrom       *int `json:"priceFrom,omitempty" validate:"omitempty,min=1,max=5"`
	PriceTo         *int `json:"priceTo,omitempty" validate:"omitempty,min=1,max=5"`
	RoomsFrom       *int `json:"roomsFrom,omitempty" validate:"omitempty,min=1,max=5"`
	RoomsTo         *int `json:"roomsTo,omitempty" validate:"omitempty,min=1,max=5"`
	LivingSpaceFrom *int `json:"livingSpaceFrom,omitempty" validate:"omitempty,min=1,max=5"`
	LivingSpaceTo   *int `json:"livingSpaceTo,omitempty" validate:"omitempty,min=1,max=5"`
	Radius          *int `json:"radius,omitempty" validate:"omitempty,min=1,max=5"`
	Features        *int `json:"features,omitempty" validate:"omitempty,min=1,max=5"`
	OnlyWithPrice   *int `json:"onlyWithPrice,omitempty" validate:"omitempty,min=1,max=5"`
	FreeText        *int `json:"freeText,omitempty" validate:"omitempty,min=1,max=5"`
}

// PreferenceSet pairs criteria with their weights.
type PreferenceSet struct {
	Criteria Criteria `json:"criteria"`
	Weights  Weights  `json:"weights"`
}

// Range is a numeric interval where either bound may be open.
type Range struct {
	From *float64
	To   *float64
}

// Infeasible reports whether both bounds are set and From exceeds To.
func (r Range) Infeasible() bool {
	return r.From != nil && r.To != nil && *r.From > *r.To
}

// InfeasibleFields names the ranges whose lower bound exceeds the upper bound.
// A strict combination can legitimately produce these; a search over them is
// expected to return nothing.
func (c Criteria) InfeasibleFields() []string {
	var fields []string
	if (Range{c.PriceFrom, c.PriceTo}).Infeasible() {
		fields = append(fields, "price")
	}
	if (Range{c.RoomsFrom, c.RoomsTo}).Infeasible() {
		fields = append(fields, "rooms")
	}
	if (Range{c.LivingSpaceFrom, c.LivingSpaceTo}).Infeasible() {
		fields = append(fields, "livingSpace")
	}
	return fields
}

// PreferenceVersion is one immutable snapshot of a user's preferences.
type PreferenceVersion struct {
	VersionID  string    `json:"versionId"`
	RoomID     string    `json:"roomId"`
	UserID     string    `json:"userId"`
	Criteria   Criteria  `json:"criteria"`
	Weights    Weights   `json:"weights"`
	Provenance string    `json:"provenance"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Set returns the criteria and weights of the version.
func (v *PreferenceVersion) Set() PreferenceSet {
	return PreferenceSet{Criteria: v.Criteria, Weights: v.Weights}
}

// CombinedPreferenceVersion records one merge of the members' preferences.
type CombinedPreferenceVersion struct {
	VersionID            string      `json:"versionId"`
	RoomID               string      `json:"roomId"`
	Criteria             Criteria    `json:"criteria"`
	Weights              Weights     `json:"weights"`
	Mode                 CombineMode `json:"mode"`
	ContributingVersions []string    `json:"contributingVersions"`
	InfeasibleFields     []string    `json:"infeasibleFields,omitempty"`
	CreatedAt            time.Time   `json:"createdAt"`
}

// Proposal is criteria generated by the AI collaborator.
type Proposal struct {
	Criteria    Criteria `json:"criteria"`
	Weights     Weights  `json:"weights"`
	Explanation string   `json:"explanation"`
}

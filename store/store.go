// Package store is the flat keyed namespace every entity lives in: records
// addressed by (PK, SK), plus two secondary indexes. GSI1 is sparse and maps
// (room, source, externalId) to a listing; GSI2 maps (room, status) to
// listings.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Index selects the key space a Query runs against.
type Index string

const (
	IndexPrimary Index = ""
	IndexGSI1    Index = "GSI1"
	IndexGSI2    Index = "GSI2"
)

// Entity type tags.
const (
	EntityRoom               = "room"
	EntityMember             = "member"
	EntityRoomRef            = "room_ref"
	EntityPreference         = "preference"
	EntityPreferenceLatest   = "preference_latest"
	EntityPreferenceCombined = "preference_combined"
	EntityListing            = "listing"
	EntityListingGuard       = "listing_guard"
	EntityCompatibility      = "compatibility"
	EntityEvent              = "event"
)

// Item is the storage envelope shared by all entity types. Data carries the
// entity itself; the remaining fields are keys and housekeeping.
type Item struct {
	PK         string         `dynamodbav:"PK" json:"pk"`
	SK         string         `dynamodbav:"SK" json:"sk"`
	EntityType string         `dynamodbav:"EntityType" json:"entityType"`
	GSI1PK     string         `dynamodbav:"GSI1PK,omitempty" json:"gsi1pk,omitempty"`
	GSI1SK     string         `dynamodbav:"GSI1SK,omitempty" json:"gsi1sk,omitempty"`
	GSI2PK     string         `dynamodbav:"GSI2PK,omitempty" json:"gsi2pk,omitempty"`
	GSI2SK     string         `dynamodbav:"GSI2SK,omitempty" json:"gsi2sk,omitempty"`
	ExpiresAt  time.Time      `dynamodbav:"ExpiresAt,unixtime,omitempty" json:"expiresAt"`
	Data       map[string]any `dynamodbav:"Data" json:"data"`
}

// Write is one element of a transactional write.
type Write struct {
	Item Item
	// IfAbsent fails the whole transaction with a conflict when an item with
	// the same PK/SK already exists.
	IfAbsent bool
}

// Query selects items of one partition of the primary key or of an index,
// ordered by sort key.
type Query struct {
	Index      Index
	PK         string
	SKPrefix   string
	Descending bool
	Limit      int // 0 means no limit
}

// Table is the keyed store contract implemented by the DynamoDB and Badger
// backends.
type Table interface {
	// Put writes item, replacing any existing item with the same key.
	Put(ctx context.Context, item Item) error
	// PutIfAbsent writes item unless its key exists (conflict).
	PutIfAbsent(ctx context.Context, item Item) error
	// TransactPut applies all writes atomically.
	TransactPut(ctx context.Context, writes []Write) error
	// Get returns the item at (pk, sk) or a not-found error.
	Get(ctx context.Context, pk, sk string) (Item, error)
	Query(ctx context.Context, q Query) ([]Item, error)
	Close() error
}

// NewItem wraps entity v into an envelope keyed by pk/sk.
func NewItem(pk, sk, entityType string, v any) (Item, error) {
	data, err := Encode(v)
	if err != nil {
		return Item{}, err
	}
	return Item{PK: pk, SK: sk, EntityType: entityType, Data: data}, nil
}

// Encode converts an entity into the generic attribute map stored in Item.Data.
func Encode(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", v, err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", v, err)
	}
	return data, nil
}

// Decode fills v from the item's attribute map.
func (i Item) Decode(v any) error {
	raw, err := json.Marshal(i.Data)
	if err != nil {
		return fmt.Errorf("failed to decode %s %s/%s: %w", i.EntityType, i.PK, i.SK, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode %s %s/%s: %w", i.EntityType, i.PK, i.SK, err)
	}
	return nil
}

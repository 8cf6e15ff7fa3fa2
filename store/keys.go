package store

import (
	"fmt"
	"strings"
	"time"
)

// Key formats. Segments are separated by "#"; <...> is a variable segment.
const (
	roomPK     = "ROOM#%s" // ROOM#<roomId>
	userPK     = "USER#%s" // USER#<userId>
	RoomSK     = "ROOM"
	memberSK   = "MEMBER#%s"           // MEMBER#<userId>
	userRoomSK = "ROOM#%s"             // ROOM#<roomId>, under USER#<userId>
	prefSK     = "PREF#%s#%s"          // PREF#<userId>#<ts>
	latestSK   = "PREF_LATEST#%s"      // PREF_LATEST#<userId>
	combinedSK = "PREF_COMBINED#%s#%s" // PREF_COMBINED#<ts>#<versionId>
	listingSK  = "LISTING#%s"          // LISTING#<listingId>
	compatSK   = "COMPAT#%s#%s"        // COMPAT#<ts>#<snapshotId>
	eventSK    = "EVENT#%s#%s"         // EVENT#<ts>#<eventId>

	sourceGSI1PK = "ROOM#%s#SOURCE#%s#EXT#%s" // sparse, listings with an external id
	statusGSI2PK = "ROOM#%s#STATUS#%s"

	MemberPrefix   = "MEMBER#"
	RoomRefPrefix  = "ROOM#"
	VersionPrefix  = "PREF#"
	LatestPrefix   = "PREF_LATEST#"
	CombinedPrefix = "PREF_COMBINED#"
	ListingPrefix  = "LISTING#"
	CompatPrefix   = "COMPAT#"
	EventPrefix    = "EVENT#"
)

// ListingGuardSK marks a (room, source, externalId) as taken. It lives in the
// ListingSourceKey partition.
const ListingGuardSK = "LISTING_GUARD"

// TimestampLayout is fixed width in UTC so sort keys order chronologically.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTS renders t for use inside a sort key.
func FormatTS(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func RoomPK(roomID string) string { return fmt.Sprintf(roomPK, roomID) }
func UserPK(userID string) string { return fmt.Sprintf(userPK, userID) }

func MemberSK(userID string) string   { return fmt.Sprintf(memberSK, userID) }
func UserRoomSK(roomID string) string { return fmt.Sprintf(userRoomSK, roomID) }
func ListingSK(listingID string) string {
	return fmt.Sprintf(listingSK, listingID)
}

func PreferenceSK(userID string, at time.Time) string {
	return fmt.Sprintf(prefSK, userID, FormatTS(at))
}

// PreferencePrefix selects every version of one user, newest last.
func PreferencePrefix(userID string) string { return fmt.Sprintf("PREF#%s#", userID) }

func LatestPreferenceSK(userID string) string { return fmt.Sprintf(latestSK, userID) }

func CombinedSK(at time.Time, versionID string) string {
	return fmt.Sprintf(combinedSK, FormatTS(at), versionID)
}

func CompatibilitySK(at time.Time, snapshotID string) string {
	return fmt.Sprintf(compatSK, FormatTS(at), snapshotID)
}

// EventSK embeds the creation time so a partition scan returns events in
// chronological order; the event id keeps same-instant events distinct.
func EventSK(at time.Time, eventID string) string {
	return fmt.Sprintf(eventSK, FormatTS(at), eventID)
}

func ListingSourceKey(roomID, source, externalID string) string {
	return fmt.Sprintf(sourceGSI1PK, roomID, strings.ToLower(source), externalID)
}

func ListingStatusKey(roomID, status string) string {
	return fmt.Sprintf(statusGSI2PK, roomID, status)
}

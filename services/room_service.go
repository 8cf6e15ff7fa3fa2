package services

import (
	"context"
	"sort"
	"strings"

	"homematch/apperrors"
	"homematch/models"
	"homematch/store"

	"go.uber.org/zap"
)

// MaxMembers is the number of people sharing a room.
const MaxMembers = 2

// NewRoom is the input of RoomService.CreateRoom.
type NewRoom struct {
	Name       string  `json:"name" validate:"required,max=120"`
	CreatedBy  string  `json:"createdBy" validate:"required"`
	SearchType string  `json:"searchType" validate:"required,offertype"`
	Context    *string `json:"context,omitempty"`
}

// RoomUpdate changes the mutable fields of a room. Nil fields are kept.
type RoomUpdate struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Context *string `json:"context,omitempty"`
}

// RoomService manages rooms and their members.
type RoomService struct {
	Table  store.Table
	Logger *zap.Logger
	Clock  Clock
}

func NewRoomService(table store.Table, logger *zap.Logger, clock Clock) *RoomService {
	return &RoomService{Table: table, Logger: logger, Clock: clock}
}

func memberWrites(m models.Member) ([]store.Write, error) {
	memberItem, err := store.NewItem(store.RoomPK(m.RoomID), store.MemberSK(m.UserID), store.EntityMember, m)
	if err != nil {
		return nil, err
	}
	ref := models.RoomRef{UserID: m.UserID, RoomID: m.RoomID, Role: m.Role, JoinedAt: m.JoinedAt}
	refItem, err := store.NewItem(store.UserPK(m.UserID), store.UserRoomSK(m.RoomID), store.EntityRoomRef, ref)
	if err != nil {
		return nil, err
	}
	return []store.Write{{Item: memberItem, IfAbsent: true}, {Item: refItem}}, nil
}

// CreateRoom writes the room, its owner membership and the owner's room
// index entry in one transaction.
func (s *RoomService) CreateRoom(ctx context.Context, in NewRoom) (*models.Room, error) {
	if err := models.Validate(in); err != nil {
		return nil, err
	}
	now := s.Clock.now()
	room := &models.Room{
		RoomID:     newID(),
		Name:       strings.TrimSpace(in.Name),
		CreatedBy:  in.CreatedBy,
		SearchType: in.SearchType,
		Context:    in.Context,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	roomItem, err := store.NewItem(store.RoomPK(room.RoomID), store.RoomSK, store.EntityRoom, room)
	if err != nil {
		return nil, err
	}
	writes, err := memberWrites(models.Member{RoomID: room.RoomID, UserID: in.CreatedBy, Role: models.RoleOwner, JoinedAt: now})
	if err != nil {
		return nil, err
	}
	writes = append([]store.Write{{Item: roomItem, IfAbsent: true}}, writes...)

	if err := s.Table.TransactPut(ctx, writes); err != nil {
		return nil, apperrors.Wrap(err, "create room")
	}
	s.Logger.Info("✅ room created",
		zap.String("room_id", room.RoomID),
		zap.String("created_by", room.CreatedBy),
		zap.String("search_type", room.SearchType))
	return room, nil
}

func (s *RoomService) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	var room models.Room
	if err := getEntity(ctx, s.Table, store.RoomPK(roomID), store.RoomSK, &room, "room %s not found", roomID); err != nil {
		return nil, err
	}
	return &room, nil
}

// UpdateRoom renames the room or replaces its free-text context.
func (s *RoomService) UpdateRoom(ctx context.Context, roomID string, update RoomUpdate) (*models.Room, error) {
	if err := models.Validate(update); err != nil {
		return nil, err
	}
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if update.Name != nil {
		room.Name = strings.TrimSpace(*update.Name)
	}
	if update.Context != nil {
		room.Context = update.Context
	}
	room.UpdatedAt = s.Clock.now()

	item, err := store.NewItem(store.RoomPK(roomID), store.RoomSK, store.EntityRoom, room)
	if err != nil {
		return nil, err
	}
	if err := s.Table.Put(ctx, item); err != nil {
		return nil, apperrors.Wrap(err, "update room")
	}
	return room, nil
}

// Join adds userID to the room as a member.
func (s *RoomService) Join(ctx context.Context, roomID, userID string) (*models.Member, error) {
	if userID == "" {
		return nil, apperrors.NewValidation("userId is required")
	}
	if _, err := s.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	members, err := s.ListMembers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if m.UserID == userID {
			return nil, apperrors.NewConflict("user %s is already a member of room %s", userID, roomID)
		}
	}
	if len(members) >= MaxMembers {
		return nil, apperrors.NewConflict("room %s already has %d members", roomID, MaxMembers)
	}

	member := &models.Member{RoomID: roomID, UserID: userID, Role: models.RoleMember, JoinedAt: s.Clock.now()}
	writes, err := memberWrites(*member)
	if err != nil {
		return nil, err
	}
	if err := s.Table.TransactPut(ctx, writes); err != nil {
		if apperrors.IsConflict(err) {
			return nil, apperrors.NewConflict("user %s is already a member of room %s", userID, roomID)
		}
		return nil, apperrors.Wrap(err, "join room")
	}
	s.Logger.Info("👥 member joined", zap.String("room_id", roomID), zap.String("user_id", userID))
	return member, nil
}

// GetMember returns the membership of userID, or a not-found error.
func (s *RoomService) GetMember(ctx context.Context, roomID, userID string) (*models.Member, error) {
	var member models.Member
	if err := getEntity(ctx, s.Table, store.RoomPK(roomID), store.MemberSK(userID), &member,
		"user %s is not a member of room %s", userID, roomID); err != nil {
		return nil, err
	}
	return &member, nil
}

// ListMembers returns the members in join order.
func (s *RoomService) ListMembers(ctx context.Context, roomID string) ([]models.Member, error) {
	members, err := queryEntities[models.Member](ctx, s.Table, store.Query{
		PK:       store.RoomPK(roomID),
		SKPrefix: store.MemberPrefix,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "list members")
	}
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})
	return members, nil
}

func (s *RoomService) ListRoomsForUser(ctx context.Context, userID string) ([]models.RoomRef, error) {
	refs, err := queryEntities[models.RoomRef](ctx, s.Table, store.Query{
		PK:       store.UserPK(userID),
		SKPrefix: store.RoomRefPrefix,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "list rooms of user")
	}
	return refs, nil
}

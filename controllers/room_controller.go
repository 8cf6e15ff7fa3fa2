package controllers

import (
	"net/http"

	"homematch/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// RoomController handles rooms and membership.
type RoomController struct {
	Workflow *services.Workflow
	Logger   *zap.Logger
}

func NewRoomController(workflow *services.Workflow, logger *zap.Logger) *RoomController {
	return &RoomController{Workflow: workflow, Logger: logger}
}

// CreateRoom handles POST /api/rooms
func (rc *RoomController) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req services.NewRoom
	if user := r.Header.Get(UserHeader); user != "" {
		req.CreatedBy = user
	}
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, rc.Logger, r, err)
		return
	}
	room, err := rc.Workflow.CreateRoom(r.Context(), req)
	if err != nil {
		WriteError(w, rc.Logger, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusCreated, room)
}

func (rc *RoomController) GetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := rc.Workflow.Rooms.GetRoom(r.Context(), mux.Vars(r)["roomId"])
	if err != nil {
		WriteError(w, rc.Logger, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, room)
}

// UpdateRoom handles PATCH /api/rooms/{roomId}: name and context only
func (rc *RoomController) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	var req services.RoomUpdate
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, rc.Logger, r, err)
		return
	}
	room, err := rc.Workflow.Rooms.UpdateRoom(r.Context(), mux.Vars(r)["roomId"], req)
	if err != nil {
		WriteError(w, rc.Logger, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, room)
}

// JoinRoom handles POST /api/rooms/{roomId}/members
func (rc *RoomController) JoinRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId" validate:"required"`
	}
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, rc.Logger, r, err)
		return
	}
	member, err := rc.Workflow.JoinRoom(r.Context(), mux.Vars(r)["roomId"], req.UserID)
	if err != nil {
		WriteError(w, rc.Logger, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusCreated, member)
}

func (rc *RoomController) ListMembers(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]
	if _, err := rc.Workflow.Rooms.GetRoom(r.Context(), roomID); err != nil {
		WriteError(w, rc.Logger, r, err)
		return
	}
	members, err := rc.Workflow.Rooms.ListMembers(r.Context(), roomID)
	if err != nil {
		WriteError(w, rc.Logger, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]any{"members": members})
}

// ListRoomsForUser handles GET /api/users/{userId}/rooms
func (rc *RoomController) ListRoomsForUser(w http.ResponseWriter, r *http.Request) {
	rooms, err := rc.Workflow.Rooms.ListRoomsForUser(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		WriteError(w, rc.Logger, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]any{"rooms": rooms})
}

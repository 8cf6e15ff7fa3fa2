package controllers

import (
	"net/http"

	"homematch/apperrors"
	"homematch/models"
	"homematch/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const defaultEventLimit = 100

// ActivityController serves the room's event ledger, its chat and the
// compatibility snapshots.
type ActivityController struct {
	Workflow *services.Workflow
	Logger   *zap.Logger
}

func NewActivityController(workflow *services.Workflow, logger *zap.Logger) *ActivityController {
	return &ActivityController{Workflow: workflow, Logger: logger}
}

// ListEvents handles GET /api/rooms/{roomId}/events?order=asc|desc&limit=
func (ac *ActivityController) ListEvents(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]
	descending := false
	switch r.URL.Query().Get("order") {
	case "", "asc":
	case "desc":
		descending = true
	default:
		WriteError(w, ac.Logger, r, apperrors.NewValidation("order must be asc or desc"))
		return
	}
	limit, err := queryInt(r, "limit", defaultEventLimit)
	if err != nil {
		WriteError(w, ac.Logger, r, err)
		return
	}
	if _, err := ac.Workflow.Rooms.GetRoom(r.Context(), roomID); err != nil {
		WriteError(w, ac.Logger, r, err)
		return
	}

	events, err := ac.Workflow.Ledger.List(r.Context(), roomID, descending, limit)
	if err != nil {
		WriteError(w, ac.Logger, r, err)
		return
	}
	if events == nil {
		events = []models.Event{}
	}
	WriteJSONResponse(w, http.StatusOK, map[string]any{"events": events})
}

// PostMessage handles POST /api/rooms/{roomId}/messages
func (ac *ActivityController) PostMessage(w http.ResponseWriter, r *http.Request) {
	user, err := actor(r)
	if err != nil {
		WriteError(w, ac.Logger, r, err)
		return
	}
	var req struct {
		Text string `json:"text" validate:"required,max=2000"`
	}
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, ac.Logger, r, err)
		return
	}
	event, err := ac.Workflow.PostMessage(r.Context(), mux.Vars(r)["roomId"], user, req.Text)
	if err != nil {
		WriteError(w, ac.Logger, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusCreated, event)
}

// ComputeCompatibility handles POST /api/rooms/{roomId}/compatibility
func (ac *ActivityController) ComputeCompatibility(w http.ResponseWriter, r *http.Request) {
	user, err := actor(r)
	if err != nil {
		WriteError(w, ac.Logger, r, err)
		return
	}
	snapshot, err := ac.Workflow.ComputeCompatibility(r.Context(), mux.Vars(r)["roomId"], user)
	if err != nil {
		WriteError(w, ac.Logger, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusCreated, snapshot)
}

// CompatibilityHistory handles GET /api/rooms/{roomId}/compatibility?limit=.
// Snapshots are newest first.
func (ac *ActivityController) CompatibilityHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		WriteError(w, ac.Logger, r, err)
		return
	}
	history, err := ac.Workflow.Compatibility.GetHistory(r.Context(), mux.Vars(r)["roomId"], limit)
	if err != nil {
		WriteError(w, ac.Logger, r, err)
		return
	}
	if history == nil {
		history = []models.CompatibilitySnapshot{}
	}
	WriteJSONResponse(w, http.StatusOK, map[string]any{"snapshots": history})
}

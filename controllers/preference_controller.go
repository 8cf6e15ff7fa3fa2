package controllers

import (
	"net/http"

	"homematch/models"
	"homematch/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// PreferenceController handles member preferences and their combination.
type PreferenceController struct {
	Workflow *services.Workflow
	Logger   *zap.Logger
}

func NewPreferenceController(workflow *services.Workflow, logger *zap.Logger) *PreferenceController {
	return &PreferenceController{Workflow: workflow, Logger: logger}
}

// SavePreferences handles PUT /api/rooms/{roomId}/preferences/{userId}
func (pc *PreferenceController) SavePreferences(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var set models.PreferenceSet
	if err := decodeBody(r, &set); err != nil {
		WriteError(w, pc.Logger, r, err)
		return
	}
	version, err := pc.Workflow.SavePreferences(r.Context(), vars["roomId"], vars["userId"], set, models.ProvenanceManual)
	if err != nil {
		WriteError(w, pc.Logger, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusCreated, version)
}

// GetPreferences handles GET /api/rooms/{roomId}/preferences/{userId}.
// With ?limit=N it returns the newest N versions instead of the current one.
func (pc *PreferenceController) GetPreferences(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if r.URL.Query().Has("limit") {
		limit, err := queryInt(r, "limit", 0)
		if err != nil {
			WriteError(w, pc.Logger, r, err)
			return
		}
		history, err := pc.Workflow.Preferences.History(r.Context(), vars["roomId"], vars["userId"], limit)
		if err != nil {
			WriteError(w, pc.Logger, r, err)
			return
		}
		WriteJSONResponse(w, http.StatusOK, map[string]any{"versions": history})
		return
	}

	current, err := pc.Workflow.Preferences.GetCurrent(r.Context(), vars["roomId"], vars["userId"])
	if err != nil {
		WriteError(w, pc.Logger, r, err)
		return
	}
	if current == nil {
		WriteJSONResponse(w, http.StatusNotFound, map[string]string{"error": "no preferences saved"})
		return
	}
	WriteJSONResponse(w, http.StatusOK, current)
}

func (pc *PreferenceController) GetAllPreferences(w http.ResponseWriter, r *http.Request) {
	all, err := pc.Workflow.Preferences.GetAllCurrent(r.Context(), mux.Vars(r)["roomId"])
	if err != nil {
		WriteError(w, pc.Logger, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]any{"preferences": all})
}

// ProposeCriteria handles POST /api/rooms/{roomId}/preferences/{userId}/ai
func (pc *PreferenceController) ProposeCriteria(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req struct {
		Text  string `json:"text" validate:"required,max=4000"`
		Apply bool   `json:"apply"`
	}
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, pc.Logger, r, err)
		return
	}
	result, err := pc.Workflow.ProposeCriteria(r.Context(), vars["roomId"], vars["userId"], req.Text, req.Apply)
	if err != nil {
		WriteError(w, pc.Logger, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, result)
}

type modeRequest struct {
	Mode models.CombineMode `json:"mode" validate:"required,combinemode"`
}

// Combine handles POST /api/rooms/{roomId}/combined
func (pc *PreferenceController) Combine(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, pc.Logger, r, err)
		return
	}
	combined, err := pc.Workflow.Combine(r.Context(), mux.Vars(r)["roomId"], req.Mode)
	if err != nil {
		WriteError(w, pc.Logger, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusCreated, combined)
}

func (pc *PreferenceController) CombinedHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		WriteError(w, pc.Logger, r, err)
		return
	}
	history, err := pc.Workflow.Preferences.CombinedHistory(r.Context(), mux.Vars(r)["roomId"], limit)
	if err != nil {
		WriteError(w, pc.Logger, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]any{"versions": history})
}

// Search handles POST /api/rooms/{roomId}/search
func (pc *PreferenceController) Search(w http.ResponseWriter, r *http.Request) {
	user, err := actor(r)
	if err != nil {
		WriteError(w, pc.Logger, r, err)
		return
	}
	var req modeRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, pc.Logger, r, err)
		return
	}
	result, err := pc.Workflow.Search(r.Context(), mux.Vars(r)["roomId"], user, req.Mode)
	if err != nil {
		WriteError(w, pc.Logger, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, result)
}

// ProposeCompromise handles POST /api/rooms/{roomId}/compromise
func (pc *PreferenceController) ProposeCompromise(w http.ResponseWriter, r *http.Request) {
	user, err := actor(r)
	if err != nil {
		WriteError(w, pc.Logger, r, err)
		return
	}
	result, err := pc.Workflow.ProposeCompromise(r.Context(), mux.Vars(r)["roomId"], user)
	if err != nil {
		WriteError(w, pc.Logger, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, result)
}

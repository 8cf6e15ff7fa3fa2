package controllers

import (
	"net/http"
	"time"

	"homematch/apperrors"
	"homematch/models"
	"homematch/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ListingController handles the listings saved into a room.
type ListingController struct {
	Workflow *services.Workflow
	Photos   *services.PhotoService
	Logger   *zap.Logger
}

func NewListingController(workflow *services.Workflow, photos *services.PhotoService, logger *zap.Logger) *ListingController {
	return &ListingController{Workflow: workflow, Photos: photos, Logger: logger}
}

// PinListing handles POST /api/rooms/{roomId}/listings
func (lc *ListingController) PinListing(w http.ResponseWriter, r *http.Request) {
	var req services.NewListing
	req.AddedBy = r.Header.Get(UserHeader)
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, lc.Logger, r, err)
		return
	}
	listing, err := lc.Workflow.PinCandidate(r.Context(), mux.Vars(r)["roomId"], req)
	if err != nil {
		WriteError(w, lc.Logger, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusCreated, listing)
}

// ListListings handles GET /api/rooms/{roomId}/listings?status=&includeDeleted=
func (lc *ListingController) ListListings(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]
	if _, err := lc.Workflow.Rooms.GetRoom(r.Context(), roomID); err != nil {
		WriteError(w, lc.Logger, r, err)
		return
	}

	var (
		listings []models.Listing
		err      error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		listings, err = lc.Workflow.Listings.ListByStatus(r.Context(), roomID, status)
	} else {
		var includeDeleted bool
		includeDeleted, err = queryBool(r, "includeDeleted")
		if err == nil {
			listings, err = lc.Workflow.Listings.ListByRoom(r.Context(), roomID, includeDeleted)
		}
	}
	if err != nil {
		WriteError(w, lc.Logger, r, err)
		return
	}
	if listings == nil {
		listings = []models.Listing{}
	}
	WriteJSONResponse(w, http.StatusOK, map[string]any{"listings": listings})
}

// LookupListing handles GET /api/rooms/{roomId}/listings/lookup?source=&externalId=
func (lc *ListingController) LookupListing(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	externalID := r.URL.Query().Get("externalId")
	if source == "" || externalID == "" {
		WriteError(w, lc.Logger, r, apperrors.NewValidation("source and externalId are required"))
		return
	}
	listing, err := lc.Workflow.Listings.FindByExternalID(r.Context(), mux.Vars(r)["roomId"], source, externalID)
	if err != nil {
		WriteError(w, lc.Logger, r, err)
		return
	}
	if listing == nil {
		WriteError(w, lc.Logger, r, apperrors.NewNotFound("no listing for %s/%s", source, externalID))
		return
	}
	WriteJSONResponse(w, http.StatusOK, listing)
}

func (lc *ListingController) GetListing(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	listing, err := lc.Workflow.Listings.Get(r.Context(), vars["roomId"], vars["listingId"])
	if err != nil {
		WriteError(w, lc.Logger, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, listing)
}

// ChangeStatus handles PATCH /api/rooms/{roomId}/listings/{listingId}/status.
// visitAt is RFC 3339 and only read for visit_planned.
func (lc *ListingController) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	user, err := actor(r)
	if err != nil {
		WriteError(w, lc.Logger, r, err)
		return
	}
	var req struct {
		Status  string `json:"status" validate:"required,listingstatus"`
		VisitAt string `json:"visitAt,omitempty"`
	}
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, lc.Logger, r, err)
		return
	}

	var visitAt *time.Time
	if req.VisitAt != "" {
		t, err := time.Parse(time.RFC3339, req.VisitAt)
		if err != nil {
			WriteError(w, lc.Logger, r, apperrors.NewValidation("visitAt must be an RFC 3339 timestamp"))
			return
		}
		t = t.UTC()
		visitAt = &t
	}

	vars := mux.Vars(r)
	listing, err := lc.Workflow.ChangeStatus(r.Context(), vars["roomId"], vars["listingId"], user, req.Status, visitAt)
	if err != nil {
		WriteError(w, lc.Logger, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, listing)
}

// MarkSeen handles POST /api/rooms/{roomId}/listings/{listingId}/seen
func (lc *ListingController) MarkSeen(w http.ResponseWriter, r *http.Request) {
	user, err := actor(r)
	if err != nil {
		WriteError(w, lc.Logger, r, err)
		return
	}
	vars := mux.Vars(r)
	listing, err := lc.Workflow.MarkSeen(r.Context(), vars["roomId"], vars["listingId"], user)
	if err != nil {
		WriteError(w, lc.Logger, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, listing)
}

// PhotoUploadURL handles POST /api/rooms/{roomId}/listings/{listingId}/photo-upload-url
func (lc *ListingController) PhotoUploadURL(w http.ResponseWriter, r *http.Request) {
	if lc.Photos == nil {
		WriteError(w, lc.Logger, r, apperrors.NewUpstream(nil, "photo storage is not configured"))
		return
	}
	var req struct {
		FileName    string `json:"fileName" validate:"required,max=200"`
		ContentType string `json:"contentType" validate:"required"`
	}
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, lc.Logger, r, err)
		return
	}
	vars := mux.Vars(r)
	url, err := lc.Photos.UploadURL(r.Context(), vars["roomId"], vars["listingId"], req.FileName, req.ContentType)
	if err != nil {
		WriteError(w, lc.Logger, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, url)
}

// PhotoURL handles GET /api/rooms/{roomId}/listings/{listingId}/photo-url?key=
func (lc *ListingController) PhotoURL(w http.ResponseWriter, r *http.Request) {
	if lc.Photos == nil {
		WriteError(w, lc.Logger, r, apperrors.NewUpstream(nil, "photo storage is not configured"))
		return
	}
	key := r.URL.Query().Get("key")
	if key == "" {
		WriteError(w, lc.Logger, r, apperrors.NewValidation("key is required"))
		return
	}
	vars := mux.Vars(r)
	url, err := lc.Photos.ReadURL(r.Context(), vars["roomId"], vars["listingId"], key)
	if err != nil {
		WriteError(w, lc.Logger, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, url)
}

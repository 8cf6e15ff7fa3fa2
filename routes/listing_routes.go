package routes

import (
	"homematch/controllers"
	"homematch/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// RegisterListingRoutes sets up listing routes under /api/rooms/{roomId}/listings.
// photos may be nil when no bucket is configured.
func RegisterListingRoutes(r *mux.Router, workflow *services.Workflow, photos *services.PhotoService, logger *zap.Logger) {
	controller := controllers.NewListingController(workflow, photos, logger)

	listingRouter := r.PathPrefix("/api/rooms/{roomId}/listings").Subrouter()
	listingRouter.HandleFunc("", controller.PinListing).Methods("POST")
	listingRouter.HandleFunc("", controller.ListListings).Methods("GET")
	// lookup must be registered before /{listingId}
	listingRouter.HandleFunc("/lookup", controller.LookupListing).Methods("GET")
	listingRouter.HandleFunc("/{listingId}", controller.GetListing).Methods("GET")
	listingRouter.HandleFunc("/{listingId}/status", controller.ChangeStatus).Methods("PATCH")
	listingRouter.HandleFunc("/{listingId}/seen", controller.MarkSeen).Methods("POST")
	listingRouter.HandleFunc("/{listingId}/photo-upload-url", controller.PhotoUploadURL).Methods("POST")
	listingRouter.HandleFunc("/{listingId}/photo-url", controller.PhotoURL).Methods("GET")
}

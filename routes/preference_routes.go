package routes

import (
	"homematch/controllers"
	"homematch/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// RegisterPreferenceRoutes sets up preference, combination and search routes
// under /api/rooms/{roomId}
func RegisterPreferenceRoutes(r *mux.Router, workflow *services.Workflow, logger *zap.Logger) {
	controller := controllers.NewPreferenceController(workflow, logger)

	roomRouter := r.PathPrefix("/api/rooms/{roomId}").Subrouter()
	roomRouter.HandleFunc("/preferences", controller.GetAllPreferences).Methods("GET")
	roomRouter.HandleFunc("/preferences/{userId}", controller.SavePreferences).Methods("PUT")
	roomRouter.HandleFunc("/preferences/{userId}", controller.GetPreferences).Methods("GET")
	roomRouter.HandleFunc("/preferences/{userId}/ai", controller.ProposeCriteria).Methods("POST")
	roomRouter.HandleFunc("/combined", controller.Combine).Methods("POST")
	roomRouter.HandleFunc("/combined", controller.CombinedHistory).Methods("GET")
	roomRouter.HandleFunc("/compromise", controller.ProposeCompromise).Methods("POST")
	roomRouter.HandleFunc("/search", controller.Search).Methods("POST")
}

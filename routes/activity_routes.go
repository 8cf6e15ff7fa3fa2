package routes

import (
	"homematch/controllers"
	"homematch/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// RegisterActivityRoutes sets up event ledger, chat and compatibility routes
func RegisterActivityRoutes(r *mux.Router, workflow *services.Workflow, logger *zap.Logger) {
	controller := controllers.NewActivityController(workflow, logger)

	roomRouter := r.PathPrefix("/api/rooms/{roomId}").Subrouter()
	roomRouter.HandleFunc("/events", controller.ListEvents).Methods("GET")
	roomRouter.HandleFunc("/messages", controller.PostMessage).Methods("POST")
	roomRouter.HandleFunc("/compatibility", controller.ComputeCompatibility).Methods("POST")
	roomRouter.HandleFunc("/compatibility", controller.CompatibilityHistory).Methods("GET")
}

package routes

import (
	"homematch/controllers"
	"homematch/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// RegisterRoomRoutes sets up routes for rooms and membership under /api/rooms
// and /api/users
func RegisterRoomRoutes(r *mux.Router, workflow *services.Workflow, logger *zap.Logger) {
	controller := controllers.NewRoomController(workflow, logger)

	roomRouter := r.PathPrefix("/api/rooms").Subrouter()
	roomRouter.HandleFunc("", controller.CreateRoom).Methods("POST")
	roomRouter.HandleFunc("/{roomId}", controller.GetRoom).Methods("GET")
	roomRouter.HandleFunc("/{roomId}", controller.UpdateRoom).Methods("PATCH")
	roomRouter.HandleFunc("/{roomId}/members", controller.JoinRoom).Methods("POST")
	roomRouter.HandleFunc("/{roomId}/members", controller.ListMembers).Methods("GET")

	userRouter := r.PathPrefix("/api/users").Subrouter()
	userRouter.HandleFunc("/{userId}/rooms", controller.ListRoomsForUser).Methods("GET")
}

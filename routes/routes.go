package routes

import (
	"net/http"

	"homematch/controllers"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes sets up the service-level routes
func RegisterRoutes(r *mux.Router, gatherer prometheus.Gatherer) {
	r.HandleFunc("/health", controllers.HealthCheckHandler).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")
}

// RegisterSocketRoutes mounts the socket.io handler under /socket.io/
func RegisterSocketRoutes(r *mux.Router, handler http.Handler) {
	r.PathPrefix("/socket.io/").Handler(handler)
}

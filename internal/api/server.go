package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"grocery-autocart/internal/ratelimit"
)

// SetupRoutes configures all HTTP routes.
func (h *Handler) SetupRoutes(limiter *ratelimit.Limiter, limitPerHour int) *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()

	// Automation endpoints drive a real browser, so they are rate limited.
	limited := api.PathPrefix("").Subrouter()
	limited.Use(RateLimitMiddleware(limiter, limitPerHour))
	limited.HandleFunc("/login", h.Login).Methods("POST", "OPTIONS")
	limited.HandleFunc("/submit-otp", h.SubmitOTP).Methods("POST", "OPTIONS")
	limited.HandleFunc("/add-products", h.AddProducts).Methods("POST", "OPTIONS")

	// Inspection and lifecycle endpoints.
	api.HandleFunc("/sessions/{id}", h.GetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", h.DeleteSession).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/watch", h.WatchSession).Methods("GET")
	api.HandleFunc("/platforms", h.ListPlatforms).Methods("GET")
	api.HandleFunc("/health", h.Health).Methods("GET")

	r.Use(corsMiddleware)

	return r
}

// corsMiddleware adds CORS headers for the form layer.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

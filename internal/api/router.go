package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/pulse/internal/api/handlers"
	"github.com/wonny/pulse/pkg/logger"
)

// NewRouter creates and configures the HTTP router
func NewRouter(tradesHandler *handlers.TradesHandler, statusHandler *handlers.StatusHandler, hub *Hub, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// Dashboard event stream
	r.HandleFunc("/ws", hub.Handle)

	// API v1
	api := r.PathPrefix("/api").Subrouter()

	// Pipeline status
	api.HandleFunc("/status", statusHandler.GetStatus).Methods("GET")

	// Pending trade review
	api.HandleFunc("/trades/pending", tradesHandler.ListPending).Methods("GET")
	api.HandleFunc("/trades/bulk", tradesHandler.BulkDecide).Methods("POST")
	api.HandleFunc("/trades/{id}", tradesHandler.GetTrade).Methods("GET")
	api.HandleFunc("/trades/{id}/approve", tradesHandler.Approve).Methods("POST")
	api.HandleFunc("/trades/{id}/reject", tradesHandler.Reject).Methods("POST")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "pulse-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

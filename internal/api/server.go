package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"pplxbridge/internal/proxy"
	"pplxbridge/internal/ratelimit"
)

// SetupRoutes configures all HTTP routes
func (h *Handler) SetupRoutes(proxyServer *proxy.Server, limiter *ratelimit.Limiter, requestsPerHour int) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", h.Root).Methods("GET")
	r.HandleFunc("/status", h.Status).Methods("GET")

	// The ask endpoint is the only rate limited one; everything else is
	// cheap observability
	ask := r.PathPrefix("/ask").Subrouter()
	ask.Use(RateLimitMiddleware(limiter, requestsPerHour))
	ask.HandleFunc("", h.Ask).Methods("POST")

	// Live DevTools proxy into the browser while a request runs
	r.HandleFunc("/debug/ws", proxyServer.HandleDebugConnection).Methods("GET")

	// Login-state maintenance
	r.HandleFunc("/profile/snapshot", h.SnapshotProfile).Methods("POST")
	r.HandleFunc("/profile/restore", h.RestoreProfile).Methods("POST")

	r.Use(corsMiddleware)

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

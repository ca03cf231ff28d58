package app

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (a *App) routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", a.handleIndex)
	r.Get("/health/live", handleLiveness)
	r.Get("/health/ready", a.handleReadiness)

	if a.metrics != nil {
		r.Method(http.MethodGet, "/metrics", a.metrics.Handler())
	}

	return r
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"name": a.name})
}

// handleLiveness answers 204 unconditionally: the process is up.
func handleLiveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// handleReadiness answers 204 only when every registered check passes.
// Evaluation failures become 503, never a server fault.
func (a *App) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if a.checks.Evaluate(r.Context()) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if a.metrics != nil {
		a.metrics.ObserveReadinessFailure("aggregate")
	}
	w.WriteHeader(http.StatusServiceUnavailable)
}

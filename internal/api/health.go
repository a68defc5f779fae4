package api

import "net/http"

// HealthHandler provides the liveness endpoint.
type HealthHandler struct{}

// Health is a liveness probe. Returns 200 if the process is running.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

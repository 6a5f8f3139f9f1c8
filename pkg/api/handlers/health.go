package handlers

import (
	"net/http"

	"github.com/marmos91/mediaview/pkg/viewer"
)

// HealthHandler serves the liveness probe.
type HealthHandler struct {
	manager *viewer.Manager
}

// NewHealthHandler creates a health handler. manager may be nil.
func NewHealthHandler(manager *viewer.Manager) *HealthHandler {
	return &HealthHandler{manager: manager}
}

// Liveness handles GET /health.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{"service": "mediaview"}
	if h.manager != nil {
		data["sessions"] = h.manager.Len()
	}
	writeJSON(w, http.StatusOK, healthyResponse(data))
}

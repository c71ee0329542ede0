package api

import (
	"net/http"

	"github.com/okian/ratebook/internal/domain/model"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	domain string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(d model.Domain) *HealthHandler {
	return &HealthHandler{domain: d.Name}
}

type healthResponse struct {
	Status string `json:"status"`
	Domain string `json:"domain"`
}

// HandleHealth handles GET /healthz requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Domain: h.domain})
}

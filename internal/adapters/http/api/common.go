package api

import (
	"context"
	"net/http"
	"strconv"
)

// CommonDependencies defines the interface for the shared-items query.
type CommonDependencies interface {
	CommonItems(ctx context.Context, minRating int) []string
}

// CommonHandler handles common-items requests.
type CommonHandler struct {
	deps CommonDependencies
}

// NewCommonHandler creates a new common-items handler.
func NewCommonHandler(deps CommonDependencies) *CommonHandler {
	return &CommonHandler{deps: deps}
}

// HandleCommon handles GET /api/common?min=N requests. It lists the items
// every owner rated, optionally only counting ratings of at least N.
func (h *CommonHandler) HandleCommon(w http.ResponseWriter, r *http.Request) {
	const op = "api.common"
	minRating := 0
	if raw := r.URL.Query().Get("min"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		minRating = n
	}
	writeJSON(w, http.StatusOK, h.deps.CommonItems(r.Context(), minRating))
}

package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/okian/ratebook/internal/domain/model"
)

// ExportDependencies defines the interface for exporting ratings.
type ExportDependencies interface {
	Export(ctx context.Context) ([]byte, error)
}

// ExportHandler handles export requests.
type ExportHandler struct {
	deps     ExportDependencies
	filename string
}

// NewExportHandler creates a new export handler.
func NewExportHandler(deps ExportDependencies, d model.Domain) *ExportHandler {
	return &ExportHandler{deps: deps, filename: d.Name + ".json"}
}

// HandleExport handles GET /api/export, returning the ratings document.
func (h *ExportHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	const op = "api.export"
	doc, err := h.deps.Export(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

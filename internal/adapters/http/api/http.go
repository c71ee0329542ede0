// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/ratebook/internal/adapters/repository"
	service "github.com/okian/ratebook/internal/app"
	"github.com/okian/ratebook/internal/domain/model"
	"github.com/okian/ratebook/pkg/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RatingsDependencies
	CommonDependencies
	ExportDependencies
	StatsProvider
}

// Server wires HTTP routes for the rating API.
type Server struct {
	domain         model.Domain
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	ratingsHandler *RatingsHandler
	commonHandler  *CommonHandler
	exportHandler  *ExportHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	d := deps.Domain()
	return &Server{
		domain:         d,
		healthHandler:  NewHealthHandler(d),
		statsHandler:   NewStatsHandler(deps),
		ratingsHandler: NewRatingsHandler(deps),
		commonHandler:  NewCommonHandler(deps),
		exportHandler:  NewExportHandler(deps, d),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	owners := "/api/" + s.domain.OwnersPath
	items := "/api/" + s.domain.ItemsPath
	rating := items + "/{item}/{owner}"
	rh := s.ratingsHandler

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	for _, p := range []string{owners, owners + "/{$}"} {
		mux.HandleFunc("GET "+p, MetricsMiddleware(rh.HandleListOwners, "list_owners"))
	}
	mux.HandleFunc("GET "+owners+"/{owner}", MetricsMiddleware(rh.HandleGetOwner, "get_owner"))

	for _, p := range []string{items, items + "/{$}"} {
		mux.HandleFunc("GET "+p, MetricsMiddleware(rh.HandleListItems, "list_items"))
	}
	mux.HandleFunc("GET "+items+"/{item}", MetricsMiddleware(rh.HandleGetItem, "get_item"))

	mux.HandleFunc("GET "+rating, MetricsMiddleware(rh.HandleGetRating, "get_rating"))
	mux.HandleFunc("POST "+rating, MetricsMiddleware(rh.HandleCreateRating, "create_rating"))
	mux.HandleFunc("PATCH "+rating, MetricsMiddleware(rh.HandleUpdateRating, "update_rating"))
	mux.HandleFunc("PUT "+rating, MetricsMiddleware(rh.HandlePutRating, "put_rating"))
	mux.HandleFunc("DELETE "+rating, MetricsMiddleware(rh.HandleDeleteRating, "delete_rating"))

	mux.HandleFunc("GET /api/common", MetricsMiddleware(s.commonHandler.HandleCommon, "common"))
	mux.HandleFunc("GET /api/export", MetricsMiddleware(s.exportHandler.HandleExport, "export"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates service and store errors to responses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, repository.ErrExists):
		writeError(w, http.StatusConflict, "conflict", WrapKind(op, ErrConflict, err))
	default:
		metrics.RecordErrorByComponent("api", "internal_error")
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
	}
}

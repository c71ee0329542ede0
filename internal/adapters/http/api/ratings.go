package api

import (
	"context"
	"net/http"

	service "github.com/okian/ratebook/internal/app"
	"github.com/okian/ratebook/internal/domain/model"
)

// RatingsDependencies defines the rating queries and mutations the handlers use.
type RatingsDependencies interface {
	Domain() model.Domain
	AllRatings(ctx context.Context) map[string]map[string]int
	OwnerRatings(ctx context.Context, owner string) (map[string]int, error)
	ItemSummaries(ctx context.Context) map[string][]int
	ItemRatings(ctx context.Context, item string) (map[string]int, error)
	Rating(ctx context.Context, owner, item string) (int, error)
	CreateRating(ctx context.Context, owner, item string, value int) (model.Rating, error)
	UpdateRating(ctx context.Context, owner, item string, value int) (model.Rating, error)
	PutRating(ctx context.Context, owner, item string, value int) (model.Rating, bool, error)
	DeleteRating(ctx context.Context, owner, item string) error
}

// RatingsHandler serves the owner and item resources of one domain.
type RatingsHandler struct {
	deps   RatingsDependencies
	domain model.Domain
}

// NewRatingsHandler creates a new ratings handler.
func NewRatingsHandler(deps RatingsDependencies) *RatingsHandler {
	return &RatingsHandler{deps: deps, domain: deps.Domain()}
}

// HandleListOwners handles GET /api/{owners}: owner -> item -> rating.
func (h *RatingsHandler) HandleListOwners(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.AllRatings(r.Context()))
}

// HandleGetOwner handles GET /api/{owners}/{owner}: item -> rating.
func (h *RatingsHandler) HandleGetOwner(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_owner"
	ratings, err := h.deps.OwnerRatings(r.Context(), r.PathValue("owner"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ratings)
}

// HandleListItems handles GET /api/{items}: item -> list of ratings.
func (h *RatingsHandler) HandleListItems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.ItemSummaries(r.Context()))
}

// HandleGetItem handles GET /api/{items}/{item}: owner -> rating.
func (h *RatingsHandler) HandleGetItem(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_item"
	ratings, err := h.deps.ItemRatings(r.Context(), r.PathValue("item"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ratings)
}

// HandleGetRating handles GET /api/{items}/{item}/{owner}: the bare rating.
func (h *RatingsHandler) HandleGetRating(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rating"
	v, err := h.deps.Rating(r.Context(), r.PathValue("owner"), r.PathValue("item"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleCreateRating handles POST /api/{items}/{item}/{owner}?rating=N.
func (h *RatingsHandler) HandleCreateRating(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_rating"
	v, ok := h.ratingParam(w, r, op)
	if !ok {
		return
	}
	saved, err := h.deps.CreateRating(r.Context(), r.PathValue("owner"), r.PathValue("item"), v)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.entry(saved))
}

// HandleUpdateRating handles PATCH /api/{items}/{item}/{owner}?rating=N.
func (h *RatingsHandler) HandleUpdateRating(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_rating"
	v, ok := h.ratingParam(w, r, op)
	if !ok {
		return
	}
	saved, err := h.deps.UpdateRating(r.Context(), r.PathValue("owner"), r.PathValue("item"), v)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, h.entry(saved))
}

// HandlePutRating handles PUT /api/{items}/{item}/{owner}?rating=N.
func (h *RatingsHandler) HandlePutRating(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_rating"
	v, ok := h.ratingParam(w, r, op)
	if !ok {
		return
	}
	saved, created, err := h.deps.PutRating(r.Context(), r.PathValue("owner"), r.PathValue("item"), v)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, h.entry(saved))
}

// HandleDeleteRating handles DELETE /api/{items}/{item}/{owner}.
func (h *RatingsHandler) HandleDeleteRating(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_rating"
	if err := h.deps.DeleteRating(r.Context(), r.PathValue("owner"), r.PathValue("item")); err != nil {
		writeServiceError(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RatingsHandler) ratingParam(w http.ResponseWriter, r *http.Request, op string) (int, bool) {
	raw := r.URL.Query().Get("rating")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return 0, false
	}
	v, err := service.ParseRating(raw)
	if err != nil {
		writeServiceError(w, op, err)
		return 0, false
	}
	return v, true
}

// entry renders a saved rating as {"name": owner, "<items>": {item: rating}}.
func (h *RatingsHandler) entry(r model.Rating) map[string]any {
	return map[string]any{
		"name":             r.Owner,
		h.domain.ItemsPath: map[string]int{r.Item: r.Value},
	}
}

// Package handlers contains the HTTP handler implementations for the movie
// collection API.
package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"moviesvc/internal/core"
	"moviesvc/internal/movies"
	"moviesvc/internal/types"
)

// MovieService is the use case contract behind the collection endpoints.
type MovieService interface {
	List(ctx context.Context, claims types.Claims) ([]types.Movie, error)
	Add(ctx context.Context, claims types.Claims, req movies.AddRequest) (*movies.AddResult, error)
}

// AddMovieRequest is the body of POST /movies. Title is decoded loosely so a
// non-string value is treated as absent instead of failing the decode.
type AddMovieRequest struct {
	Title any `json:"title"`
}

// AddMovieResponse is returned by a successful POST /movies.
type AddMovieResponse struct {
	RecordSaved bool        `json:"recordSaved"`
	Movie       types.Movie `json:"movie"`
}

// MoviesHandler serves the caller's movie collection.
type MoviesHandler struct {
	service MovieService
	logger  *slog.Logger
}

// NewMoviesHandler creates a new MoviesHandler with the provided dependencies.
func NewMoviesHandler(service MovieService, l *slog.Logger) *MoviesHandler {
	if l == nil {
		l = slog.Default()
	}
	return &MoviesHandler{
		service: service,
		logger:  l,
	}
}

// RegisterRoutes mounts the collection routes. The caller applies
// authentication, so Claims are always present in the request context.
func (h *MoviesHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Add)
}

// List handles GET /movies.
func (h *MoviesHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.GetClaims(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, types.MsgTokenMissing, nil))
		return
	}

	collection, err := h.service.List(r.Context(), claims)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, collection)
}

// Add handles POST /movies.
func (h *MoviesHandler) Add(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.GetClaims(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, types.MsgTokenMissing, nil))
		return
	}

	result, err := h.service.Add(r.Context(), claims, decodeAddRequest(w, r))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "movie added",
		"identity", claims.Identity,
		"collection_size", len(result.Account.Collection),
		"usage_count", result.Account.UsageCount,
	)

	core.JSON(w, r, http.StatusOK, AddMovieResponse{
		RecordSaved: true,
		Movie:       result.Movie,
	})
}

// decodeAddRequest never fails outright. An empty body yields an empty
// title and a malformed one is carried in DecodeErr.
func decodeAddRequest(w http.ResponseWriter, r *http.Request) movies.AddRequest {
	var body AddMovieRequest
	if err := core.DecodeJSON(w, r, &body); err != nil {
		if errors.Is(err, io.EOF) {
			return movies.AddRequest{}
		}
		return movies.AddRequest{DecodeErr: err}
	}

	title, _ := body.Title.(string)
	return movies.AddRequest{Title: title}
}

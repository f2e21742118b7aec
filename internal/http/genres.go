package httpserver

import (
	"fmt"
	"net/http"

	"github.com/Clark-Hu/kmdb-api/internal/domain"
	"github.com/Clark-Hu/kmdb-api/internal/service"
)

type genreCreateRequest struct {
	Name string `json:"name" validate:"notblank"`
}

type genreUpdateRequest struct {
	Name *string `json:"name"`
}

type genreResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (s *Server) handleListGenres(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r.URL.Query(), "name", false)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	ctx := r.Context()
	var result []domain.Genre
	switch q.mode {
	case listCount:
		n, err := s.services.Genres.Count(ctx)
		if err != nil {
			s.respondServiceError(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, countResponse{Count: n})
		return
	case listPage:
		result, err = s.services.Genres.ListPage(ctx, q.page, q.size)
	case listSearch:
		result, err = s.services.Genres.SearchByName(ctx, q.search)
	default:
		result, err = s.services.Genres.List(ctx)
	}
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toGenreResponses(result))
}

func (s *Server) handleSearchGenres(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	var (
		result []domain.Genre
		err    error
	)
	if name == "" {
		result, err = s.services.Genres.List(r.Context())
	} else {
		result, err = s.services.Genres.SearchByName(r.Context(), name)
	}
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toGenreResponses(result))
}

func (s *Server) handleGetGenre(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Genre")
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	genre, err := s.services.Genres.Get(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toGenreResponse(genre))
}

func (s *Server) handleGenreMovies(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Genre")
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	movies, err := s.services.Genres.Movies(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieResponses(movies))
}

func (s *Server) handleCreateGenre(w http.ResponseWriter, r *http.Request) {
	var req genreCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := validateRequest(req); err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	genre, err := s.services.Genres.Create(r.Context(), req.Name)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/genres/%d", genre.ID))
	s.respondJSON(w, http.StatusCreated, toGenreResponse(genre))
}

func (s *Server) handleUpdateGenre(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Genre")
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	var req genreUpdateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := validateRequest(req); err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	genre, err := s.services.Genres.Update(r.Context(), id, service.GenrePatch{Name: blankToNil(req.Name)})
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toGenreResponse(genre))
}

func (s *Server) handleDeleteGenre(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Genre")
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	force, err := queryBool(r.URL.Query(), "force")
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	if err := s.services.Genres.Delete(r.Context(), id, force); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toGenreResponse(genre domain.Genre) genreResponse {
	return genreResponse{ID: genre.ID, Name: genre.Name}
}

func toGenreResponses(genres []domain.Genre) []genreResponse {
	items := make([]genreResponse, 0, len(genres))
	for _, genre := range genres {
		items = append(items, toGenreResponse(genre))
	}
	return items
}

package httpserver

import (
	"fmt"
	"net/http"

	"github.com/Clark-Hu/kmdb-api/internal/domain"
	"github.com/Clark-Hu/kmdb-api/internal/service"
)

type movieCreateRequest struct {
	Title       string   `json:"title" validate:"notblank"`
	ReleaseYear int      `json:"releaseYear" validate:"min=0,max=2300"`
	Duration    int      `json:"duration" validate:"min=0,max=1000"`
	Actors      []string `json:"actors"`
	Genres      []string `json:"genres"`
}

type movieUpdateRequest struct {
	Title       *string  `json:"title"`
	ReleaseYear *int     `json:"releaseYear" validate:"omitempty,min=0,max=2300"`
	Duration    *int     `json:"duration" validate:"omitempty,min=0,max=1000"`
	Actors      []string `json:"actors"`
	Genres      []string `json:"genres"`
}

type movieResponse struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	ReleaseYear int             `json:"releaseYear"`
	Duration    int             `json:"duration"`
	Actors      []actorResponse `json:"actors"`
	Genres      []genreResponse `json:"genres"`
}

type countResponse struct {
	Count int64 `json:"count"`
}

func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r.URL.Query(), "title", true)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	ctx := r.Context()
	movies := s.services.Movies
	var result []domain.Movie
	switch q.mode {
	case listCount:
		n, err := movies.Count(ctx)
		if err != nil {
			s.respondServiceError(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, countResponse{Count: n})
		return
	case listPage:
		result, err = movies.ListPage(ctx, q.page, q.size)
	case listSearch:
		result, err = movies.SearchByTitle(ctx, q.search)
	case listReleaseYear:
		result, err = movies.ListByReleaseYear(ctx, q.year)
	case listGenre:
		result, err = movies.ListByGenre(ctx, q.id)
	case listActor:
		result, err = movies.ListByActor(ctx, q.id)
	default:
		result, err = movies.List(ctx)
	}
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieResponses(result))
}

func (s *Server) handleSearchMovies(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	var (
		result []domain.Movie
		err    error
	)
	if title == "" {
		result, err = s.services.Movies.List(r.Context())
	} else {
		result, err = s.services.Movies.SearchByTitle(r.Context(), title)
	}
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieResponses(result))
}

func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Movie")
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	movie, err := s.services.Movies.Get(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieResponse(movie))
}

func (s *Server) handleMovieActors(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Movie")
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	actors, err := s.services.Movies.Actors(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toActorResponses(actors))
}

func (s *Server) handleMovieGenres(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Movie")
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	genres, err := s.services.Movies.Genres(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toGenreResponses(genres))
}

func (s *Server) handleCreateMovie(w http.ResponseWriter, r *http.Request) {
	var req movieCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := validateRequest(req); err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	movie, err := s.services.Movies.Create(r.Context(), service.MovieInput{
		Title:       req.Title,
		ReleaseYear: req.ReleaseYear,
		Duration:    req.Duration,
		Actors:      req.Actors,
		Genres:      req.Genres,
	})
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/movies/%d", movie.ID))
	s.respondJSON(w, http.StatusCreated, toMovieResponse(movie))
}

func (s *Server) handleUpdateMovie(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Movie")
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	var req movieUpdateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := validateRequest(req); err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	movie, err := s.services.Movies.Update(r.Context(), id, service.MoviePatch{
		Title:       blankToNil(req.Title),
		ReleaseYear: req.ReleaseYear,
		Duration:    req.Duration,
		Actors:      req.Actors,
		Genres:      req.Genres,
	})
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieResponse(movie))
}

func (s *Server) handleDeleteMovie(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Movie")
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	force, err := queryBool(r.URL.Query(), "force")
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	if err := s.services.Movies.Delete(r.Context(), id, force); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAssignActor(w http.ResponseWriter, r *http.Request) {
	movieID, actorID, ok := s.linkIDs(w, r, "actorId", "Actor")
	if !ok {
		return
	}
	movie, err := s.services.Movies.AssignActor(r.Context(), movieID, actorID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieResponse(movie))
}

func (s *Server) handleRemoveActor(w http.ResponseWriter, r *http.Request) {
	movieID, actorID, ok := s.linkIDs(w, r, "actorId", "Actor")
	if !ok {
		return
	}
	if err := s.services.Movies.RemoveActor(r.Context(), movieID, actorID); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAssignGenre(w http.ResponseWriter, r *http.Request) {
	movieID, genreID, ok := s.linkIDs(w, r, "genreId", "Genre")
	if !ok {
		return
	}
	movie, err := s.services.Movies.AssignGenre(r.Context(), movieID, genreID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieResponse(movie))
}

func (s *Server) handleRemoveGenre(w http.ResponseWriter, r *http.Request) {
	movieID, genreID, ok := s.linkIDs(w, r, "genreId", "Genre")
	if !ok {
		return
	}
	if err := s.services.Movies.RemoveGenre(r.Context(), movieID, genreID); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// linkIDs parses the movie id and the id of the linked entity, writing the
// error response itself when either is malformed.
func (s *Server) linkIDs(w http.ResponseWriter, r *http.Request, param, entity string) (int64, int64, bool) {
	movieID, err := pathID(r, "id", "Movie")
	if err != nil {
		s.respondServiceError(w, r, err)
		return 0, 0, false
	}
	otherID, err := pathID(r, param, entity)
	if err != nil {
		s.respondServiceError(w, r, err)
		return 0, 0, false
	}
	return movieID, otherID, true
}

func toMovieResponse(movie domain.Movie) movieResponse {
	return movieResponse{
		ID:          movie.ID,
		Title:       movie.Title,
		ReleaseYear: movie.ReleaseYear,
		Duration:    movie.Duration,
		Actors:      toActorResponses(movie.Actors),
		Genres:      toGenreResponses(movie.Genres),
	}
}

func toMovieResponses(movies []domain.Movie) []movieResponse {
	items := make([]movieResponse, 0, len(movies))
	for _, movie := range movies {
		items = append(items, toMovieResponse(movie))
	}
	return items
}

package httpserver

import (
	"fmt"
	"net/http"

	"github.com/Clark-Hu/kmdb-api/internal/domain"
	"github.com/Clark-Hu/kmdb-api/internal/service"
)

type actorCreateRequest struct {
	Name      string  `json:"name" validate:"notblank"`
	BirthDate *string `json:"birthDate" validate:"omitempty,birthdate"`
}

type actorUpdateRequest struct {
	Name      *string `json:"name"`
	BirthDate *string `json:"birthDate" validate:"omitempty,birthdate"`
}

type actorResponse struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	BirthDate *string `json:"birthDate"`
}

func (s *Server) handleListActors(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r.URL.Query(), "name", false)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	ctx := r.Context()
	var result []domain.Actor
	switch q.mode {
	case listCount:
		n, err := s.services.Actors.Count(ctx)
		if err != nil {
			s.respondServiceError(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, countResponse{Count: n})
		return
	case listPage:
		result, err = s.services.Actors.ListPage(ctx, q.page, q.size)
	case listSearch:
		result, err = s.services.Actors.SearchByName(ctx, q.search)
	default:
		result, err = s.services.Actors.List(ctx)
	}
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toActorResponses(result))
}

func (s *Server) handleSearchActors(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	var (
		result []domain.Actor
		err    error
	)
	if name == "" {
		result, err = s.services.Actors.List(r.Context())
	} else {
		result, err = s.services.Actors.SearchByName(r.Context(), name)
	}
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toActorResponses(result))
}

func (s *Server) handleGetActor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Actor")
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	actor, err := s.services.Actors.Get(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toActorResponse(actor))
}

func (s *Server) handleActorMovies(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Actor")
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	movies, err := s.services.Actors.Movies(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieResponses(movies))
}

func (s *Server) handleCreateActor(w http.ResponseWriter, r *http.Request) {
	var req actorCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := validateRequest(req); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	birthDate, err := parseBirthDate(req.BirthDate)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	actor, err := s.services.Actors.Create(r.Context(), service.ActorInput{Name: req.Name, BirthDate: birthDate})
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/actors/%d", actor.ID))
	s.respondJSON(w, http.StatusCreated, toActorResponse(actor))
}

func (s *Server) handleUpdateActor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Actor")
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	var req actorUpdateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := validateRequest(req); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	birthDate, err := parseBirthDate(req.BirthDate)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	actor, err := s.services.Actors.Update(r.Context(), id, service.ActorPatch{Name: blankToNil(req.Name), BirthDate: birthDate})
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toActorResponse(actor))
}

func (s *Server) handleDeleteActor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Actor")
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	force, err := queryBool(r.URL.Query(), "force")
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	if err := s.services.Actors.Delete(r.Context(), id, force); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toActorResponse(actor domain.Actor) actorResponse {
	resp := actorResponse{ID: actor.ID, Name: actor.Name}
	if actor.BirthDate != nil {
		formatted := actor.BirthDate.Format(domain.DateLayout)
		resp.BirthDate = &formatted
	}
	return resp
}

func toActorResponses(actors []domain.Actor) []actorResponse {
	items := make([]actorResponse, 0, len(actors))
	for _, actor := range actors {
		items = append(items, toActorResponse(actor))
	}
	return items
}

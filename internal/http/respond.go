package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Clark-Hu/kmdb-api/internal/domain"
)

const maxRequestBody = 1 << 20 // 1 MiB

// errorEnvelope is the body of every non-2xx response.
type errorEnvelope struct {
	HTTPStatus string   `json:"httpStatus"`
	Errors     []string `json:"errors"`
}

// statusLine renders a status as "404 NOT_FOUND".
func statusLine(status int) string {
	text := strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	return strconv.Itoa(status) + " " + text
}

func statusForKind(kind domain.Kind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindAlreadyExists, domain.KindConflict:
		return http.StatusConflict
	case domain.KindInvalidArgument, domain.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errTrailingData
	}
	return nil
}

var errTrailingData = errors.New("request body must contain a single JSON object")

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Error("failed to encode response", "error", err)
		}
	}
}

func (s *Server) respondErrors(w http.ResponseWriter, status int, messages ...string) {
	s.respondJSON(w, status, errorEnvelope{
		HTTPStatus: statusLine(status),
		Errors:     messages,
	})
}

// respondServiceError translates a service failure into the error envelope.
// Anything that is not a domain error is logged and hidden behind a 500.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var derr *domain.Error
	if errors.As(err, &derr) {
		s.respondErrors(w, statusForKind(derr.Kind), derr.Messages...)
		return
	}
	s.logger.Error("request failed",
		"request_id", middleware.GetReqID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"error", err)
	s.respondErrors(w, http.StatusInternalServerError, "An unexpected error occurred")
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	var maxBytesError *http.MaxBytesError
	switch {
	case errors.As(err, &syntaxError), errors.Is(err, io.ErrUnexpectedEOF):
		s.respondErrors(w, http.StatusBadRequest, "Malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondErrors(w, http.StatusBadRequest, fmt.Sprintf("Invalid value for field %s", typeError.Field))
	case errors.Is(err, io.EOF):
		s.respondErrors(w, http.StatusBadRequest, "Request body cannot be empty")
	case errors.As(err, &maxBytesError):
		s.respondErrors(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Request body must not exceed %d bytes", maxBytesError.Limit))
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.TrimPrefix(err.Error(), "json: unknown field ")
		s.respondErrors(w, http.StatusBadRequest, fmt.Sprintf("Unknown field %s", field))
	default:
		s.respondErrors(w, http.StatusBadRequest, "Unable to parse request body")
	}
}

// pathID parses an integer path parameter. Range checks are left to the
// services so the messages stay in one place.
func pathID(r *http.Request, name, entity string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, domain.InvalidArgument("%s ID must be a number", entity)
	}
	return id, nil
}

// queryInt parses an optional integer query parameter, returning fallback
// when it is absent or empty.
func queryInt(values url.Values, key string, fallback int) (int, error) {
	vals, ok := values[key]
	if !ok || len(vals) == 0 || strings.TrimSpace(vals[0]) == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(vals[0]))
	if err != nil {
		return 0, domain.InvalidArgument("Query parameter '%s' must be an integer", key)
	}
	return n, nil
}

func queryBool(values url.Values, key string) (bool, error) {
	vals, ok := values[key]
	if !ok || len(vals) == 0 || strings.TrimSpace(vals[0]) == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(vals[0]))
	if err != nil {
		return false, domain.InvalidArgument("Query parameter '%s' must be true or false", key)
	}
	return b, nil
}

func has(values url.Values, key string) bool {
	_, ok := values[key]
	return ok
}

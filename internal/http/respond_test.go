package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Clark-Hu/kmdb-api/internal/config"
	"github.com/Clark-Hu/kmdb-api/internal/domain"
	"github.com/Clark-Hu/kmdb-api/internal/logging"
)

func TestStatusLine(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusNotFound, "404 NOT_FOUND"},
		{http.StatusConflict, "409 CONFLICT"},
		{http.StatusBadRequest, "400 BAD_REQUEST"},
		{http.StatusInternalServerError, "500 INTERNAL_SERVER_ERROR"},
		{http.StatusTooManyRequests, "429 TOO_MANY_REQUESTS"},
	}
	for _, tt := range tests {
		if got := statusLine(tt.status); got != tt.want {
			t.Fatalf("statusLine(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestRespondServiceError(t *testing.T) {
	srv := &Server{logger: logging.Discard()}
	tests := []struct {
		name   string
		err    error
		status int
		errors []string
	}{
		{"not found", domain.NotFound("Movie with ID 7 does not exist"), http.StatusNotFound, []string{"Movie with ID 7 does not exist"}},
		{"already exists", domain.AlreadyExists("Genre 'drama' already exists in database"), http.StatusConflict, []string{"Genre 'drama' already exists in database"}},
		{"conflict", domain.Conflict("blocked"), http.StatusConflict, []string{"blocked"}},
		{"invalid", domain.InvalidArgument("Movie ID must be greater than 0"), http.StatusBadRequest, []string{"Movie ID must be greater than 0"}},
		{"validation", domain.Validation("a", "b"), http.StatusBadRequest, []string{"a", "b"}},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError, []string{"An unexpected error occurred"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.respondServiceError(rec, httptest.NewRequest(http.MethodGet, "/api/movies", nil), tt.err)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			var env errorEnvelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.HTTPStatus != statusLine(tt.status) || strings.Join(env.Errors, "|") != strings.Join(tt.errors, "|") {
				t.Fatalf("envelope = %+v", env)
			}
		})
	}
}

func TestValidateRequest(t *testing.T) {
	blank := "   "
	badYear := 3000
	err := validateRequest(movieUpdateRequest{Title: &blank, ReleaseYear: &badYear})
	var derr *domain.Error
	if !errors.As(err, &derr) || derr.Kind != domain.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	want := "Movie release year must be between 0 and 2300"
	if derr.Error() != want {
		t.Fatalf("messages = %q, want %q", derr.Error(), want)
	}

	if err := validateRequest(movieUpdateRequest{}); err != nil {
		t.Fatalf("empty patch must validate, got %v", err)
	}

	empty := ""
	patches := []interface{}{
		movieUpdateRequest{Title: &empty},
		actorUpdateRequest{Name: &empty},
		actorUpdateRequest{BirthDate: &empty},
		genreUpdateRequest{Name: &empty},
	}
	for _, p := range patches {
		if err := validateRequest(p); err != nil {
			t.Fatalf("empty field in %T must mean unchanged, got %v", p, err)
		}
	}
	if err := validateRequest(actorCreateRequest{Name: ""}); err == nil || err.Error() != "Name cannot be empty" {
		t.Fatalf("create still requires a name, got %v", err)
	}

	zero := 0
	if err := validateRequest(movieUpdateRequest{Duration: &zero}); err != nil {
		t.Fatalf("zero duration must validate, got %v", err)
	}

	date := "1999-13-01"
	if err := validateRequest(actorCreateRequest{Name: "X", BirthDate: &date}); err == nil || err.Error() != birthDateMessage {
		t.Fatalf("birth date err = %v", err)
	}
	date = "1850-01-01"
	if err := validateRequest(actorCreateRequest{Name: "X", BirthDate: &date}); err == nil {
		t.Fatalf("expected birth year before 1900 to fail")
	}
}

func TestParseBirthDate(t *testing.T) {
	if got, err := parseBirthDate(nil); got != nil || err != nil {
		t.Fatalf("nil = %v, %v", got, err)
	}
	raw := "1962-08-16"
	got, err := parseBirthDate(&raw)
	if err != nil || !got.Equal(time.Date(1962, 8, 16, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("parse = %v, %v", got, err)
	}
	raw = ""
	if got, err := parseBirthDate(&raw); got != nil || err != nil {
		t.Fatalf("empty = %v, %v", got, err)
	}
	if blankToNil(&raw) != nil {
		t.Fatalf("blankToNil kept an empty value")
	}
	raw = "2001-02-30"
	if _, err := parseBirthDate(&raw); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("impossible date err = %v", err)
	}
}

func TestVerifyBearer(t *testing.T) {
	srv := &Server{cfg: config.Config{AuthToken: "secret"}}
	cases := []struct {
		header  string
		allowed bool
	}{
		{"Bearer secret", true},
		{"Bearer secret ", true},
		{"Bearer other", false},
		{"secret", false},
		{"", false},
	}
	for _, c := range cases {
		if srv.verifyBearer(c.header) != c.allowed {
			t.Fatalf("verifyBearer(%q) = %v, want %v", c.header, !c.allowed, c.allowed)
		}
	}
}

func TestRequireBearerDisabledWithoutToken(t *testing.T) {
	srv := &Server{logger: logging.Discard()}
	called := false
	h := srv.requireBearer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/genres/1", nil))
	if !called || rec.Code != http.StatusNoContent {
		t.Fatalf("guard should pass through when no token is configured, got %d", rec.Code)
	}
}

func TestClientLimiter(t *testing.T) {
	if newClientLimiter(0, 10) != nil {
		t.Fatalf("zero rate must disable limiting")
	}

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newClientLimiter(1, 2)
	l.now = func() time.Time { return now }

	if !l.allow("10.0.0.1") || !l.allow("10.0.0.1") {
		t.Fatalf("burst of 2 should be allowed")
	}
	if l.allow("10.0.0.1") {
		t.Fatalf("third request should be limited")
	}
	if !l.allow("10.0.0.2") {
		t.Fatalf("other clients have their own bucket")
	}

	now = now.Add(time.Second)
	if !l.allow("10.0.0.1") {
		t.Fatalf("bucket should refill after a second")
	}

	now = now.Add(5 * time.Minute)
	l.allow("10.0.0.3")
	if remaining := l.evict(3 * time.Minute); remaining != 1 {
		t.Fatalf("remaining clients = %d, want 1", remaining)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	srv := &Server{logger: logging.Discard(), limiter: newClientLimiter(1, 1)}
	h := srv.rateLimit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/movies", nil))
	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/movies", nil))

	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d", first.Code)
	}
	if second.Code != http.StatusTooManyRequests || second.Header().Get("Retry-After") == "" {
		t.Fatalf("second status = %d", second.Code)
	}
}

func TestRateLimitIgnoresForwardedForWithoutTrustedProxy(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		wantSecond int
	}{
		{"untrusted header shares the connection bucket", false, http.StatusTooManyRequests},
		{"trusted proxy keys on forwarded address", true, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Config{RateLimitRPS: 1, RateLimitBurst: 1, TrustProxy: tt.trustProxy}
			srv := New(cfg, nil, nil, logging.Discard())

			send := func(forwarded string) int {
				req := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
				req.RemoteAddr = "192.0.2.10:40000"
				req.Header.Set("X-Forwarded-For", forwarded)
				rec := httptest.NewRecorder()
				srv.Handler().ServeHTTP(rec, req)
				return rec.Code
			}

			if got := send("203.0.113.1"); got != http.StatusNotFound {
				t.Fatalf("first status = %d", got)
			}
			if got := send("203.0.113.2"); got != tt.wantSecond {
				t.Fatalf("second status = %d, want %d", got, tt.wantSecond)
			}
		})
	}
}

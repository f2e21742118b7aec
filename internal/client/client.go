// Package client is a typed HTTP client for the movies API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

var (
	// ErrNotFound is matched by errors for 404 responses.
	ErrNotFound = errors.New("client: not found")
	// ErrConflict is matched by errors for 409 responses (duplicates and
	// blocked deletes).
	ErrConflict = errors.New("client: conflict")
	// ErrUnauthorized is matched by errors for 401 responses.
	ErrUnauthorized = errors.New("client: unauthorized")
)

// APIError is a non-2xx response decoded from the API error envelope.
type APIError struct {
	StatusCode int
	HTTPStatus string   `json:"httpStatus"`
	Messages   []string `json:"errors"`
}

func (e *APIError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: status %d: %s", e.StatusCode, strings.Join(e.Messages, "; "))
}

// Unwrap maps the status code onto the package sentinels.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusUnauthorized:
		return ErrUnauthorized
	default:
		return nil
	}
}

type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Actor struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	BirthDate *string `json:"birthDate"`
}

type Movie struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	ReleaseYear int     `json:"releaseYear"`
	Duration    int     `json:"duration"`
	Actors      []Actor `json:"actors"`
	Genres      []Genre `json:"genres"`
}

// ActorInput is the body of an actor creation.
type ActorInput struct {
	Name      string  `json:"name"`
	BirthDate *string `json:"birthDate,omitempty"`
}

// MovieInput is the body of a movie creation; Actors and Genres are names.
type MovieInput struct {
	Title       string   `json:"title"`
	ReleaseYear int      `json:"releaseYear"`
	Duration    int      `json:"duration"`
	Actors      []string `json:"actors,omitempty"`
	Genres      []string `json:"genres,omitempty"`
}

// HTTPClient talks to a running API instance.
type HTTPClient struct {
	baseURL *url.URL
	token   string
	client  *http.Client
	logger  hclog.Logger
}

// NewHTTPClient constructs a client for baseURL. token is sent as a bearer
// token on every request when non-empty.
func NewHTTPClient(baseURL, token string, timeout time.Duration, logger hclog.Logger) (*HTTPClient, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("api url %q must be absolute", baseURL)
	}
	return &HTTPClient{
		baseURL: parsed,
		token:   token,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger: logger,
	}, nil
}

// Health calls /healthz.
func (c *HTTPClient) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, nil)
}

func (c *HTTPClient) CreateGenre(ctx context.Context, name string) (Genre, error) {
	var out Genre
	err := c.do(ctx, http.MethodPost, "/api/genres", nil, map[string]string{"name": name}, &out)
	return out, err
}

func (c *HTTPClient) CreateActor(ctx context.Context, in ActorInput) (Actor, error) {
	var out Actor
	err := c.do(ctx, http.MethodPost, "/api/actors", nil, in, &out)
	return out, err
}

func (c *HTTPClient) CreateMovie(ctx context.Context, in MovieInput) (Movie, error) {
	var out Movie
	err := c.do(ctx, http.MethodPost, "/api/movies", nil, in, &out)
	return out, err
}

func (c *HTTPClient) GetMovie(ctx context.Context, id int64) (Movie, error) {
	var out Movie
	err := c.do(ctx, http.MethodGet, "/api/movies/"+strconv.FormatInt(id, 10), nil, nil, &out)
	return out, err
}

// SearchMovies lists movies whose title contains title. No match is
// reported as ErrNotFound.
func (c *HTTPClient) SearchMovies(ctx context.Context, title string) ([]Movie, error) {
	var out []Movie
	err := c.do(ctx, http.MethodGet, "/api/movies", url.Values{"title": {title}}, nil, &out)
	return out, err
}

// Count returns the size of a collection: "movies", "actors" or "genres".
func (c *HTTPClient) Count(ctx context.Context, collection string) (int64, error) {
	var out struct {
		Count int64 `json:"count"`
	}
	err := c.do(ctx, http.MethodGet, "/api/"+collection, url.Values{"count": {""}}, nil, &out)
	return out.Count, err
}

func (c *HTTPClient) DeleteMovie(ctx context.Context, id int64, force bool) error {
	q := url.Values{"force": {strconv.FormatBool(force)}}
	return c.do(ctx, http.MethodDelete, "/api/movies/"+strconv.FormatInt(id, 10), q, nil, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	rel := &url.URL{Path: c.baseURL.Path + path}
	if query != nil {
		rel.RawQuery = query.Encode()
	}
	endpoint := c.baseURL.ResolveReference(rel)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s %s response: %w", method, path, err)
		}
		return nil
	}

	apiErr := decodeAPIError(resp.StatusCode, resp.Body)
	c.logger.Debug("api request failed", "method", method, "path", path, "status", resp.StatusCode)
	return apiErr
}

// decodeAPIError reads an error envelope, keeping the status even when the
// body is not one.
func decodeAPIError(status int, body io.Reader) *APIError {
	apiErr := &APIError{}
	raw, _ := io.ReadAll(io.LimitReader(body, 64<<10))
	if err := json.Unmarshal(raw, apiErr); err != nil {
		apiErr = &APIError{}
		if text := strings.TrimSpace(string(raw)); text != "" {
			apiErr.Messages = []string{text}
		}
	}
	apiErr.StatusCode = status
	return apiErr
}

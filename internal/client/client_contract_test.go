package client

import (
	"context"
	"os"
	"testing"
	"time"
)

// TestHTTPClientSmoke checks a running instance answers health and count
// requests.
func TestHTTPClientSmoke(t *testing.T) {
	baseURL := os.Getenv("KMDB_API_URL")
	if baseURL == "" {
		t.Skip("KMDB_API_URL not provided")
	}
	client, err := NewHTTPClient(baseURL, os.Getenv("AUTH_TOKEN"), 3*time.Second, nil)
	if err != nil {
		t.Fatalf("create http client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Health(ctx); err != nil {
		t.Fatalf("health: %v", err)
	}
	if _, err := client.Count(ctx, "movies"); err != nil {
		t.Fatalf("count movies: %v", err)
	}
}

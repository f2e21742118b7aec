// Package seed loads a YAML catalogue fixture into a running API.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"gopkg.in/yaml.v3"

	"github.com/Clark-Hu/kmdb-api/internal/client"
)

// Fixture is the on-disk catalogue. Movies reference actors and genres by
// name, so genres and actors are created first.
type Fixture struct {
	Genres []string     `yaml:"genres"`
	Actors []ActorEntry `yaml:"actors"`
	Movies []MovieEntry `yaml:"movies"`
}

type ActorEntry struct {
	Name      string `yaml:"name"`
	BirthDate string `yaml:"birthDate"`
}

type MovieEntry struct {
	Title       string   `yaml:"title"`
	ReleaseYear int      `yaml:"releaseYear"`
	Duration    int      `yaml:"duration"`
	Actors      []string `yaml:"actors"`
	Genres      []string `yaml:"genres"`
}

// Loader is the subset of the API client the seeder needs.
type Loader interface {
	CreateGenre(ctx context.Context, name string) (client.Genre, error)
	CreateActor(ctx context.Context, in client.ActorInput) (client.Actor, error)
	CreateMovie(ctx context.Context, in client.MovieInput) (client.Movie, error)
}

// Result counts what Apply created and what already existed.
type Result struct {
	Created int
	Skipped int
}

func (r Result) String() string {
	return fmt.Sprintf("created=%d skipped=%d", r.Created, r.Skipped)
}

// Load reads and parses a fixture file. Unknown keys are rejected.
func Load(path string) (Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	var fx Fixture
	if err := dec.Decode(&fx); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return fx, nil
}

// Apply creates every fixture entry through loader. Entries the API reports
// as conflicting are counted as skipped so a fixture can be applied twice.
func Apply(ctx context.Context, loader Loader, fx Fixture, logger hclog.Logger) (Result, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	var res Result

	track := func(kind, name string, err error) error {
		switch {
		case err == nil:
			res.Created++
			logger.Debug("created", "kind", kind, "name", name)
			return nil
		case errors.Is(err, client.ErrConflict):
			res.Skipped++
			logger.Info("already present", "kind", kind, "name", name)
			return nil
		default:
			return fmt.Errorf("create %s %q: %w", kind, name, err)
		}
	}

	for _, name := range fx.Genres {
		_, err := loader.CreateGenre(ctx, name)
		if err := track("genre", name, err); err != nil {
			return res, err
		}
	}

	for _, a := range fx.Actors {
		in := client.ActorInput{Name: a.Name}
		if a.BirthDate != "" {
			date := a.BirthDate
			in.BirthDate = &date
		}
		_, err := loader.CreateActor(ctx, in)
		if err := track("actor", a.Name, err); err != nil {
			return res, err
		}
	}

	for _, m := range fx.Movies {
		_, err := loader.CreateMovie(ctx, client.MovieInput{
			Title:       m.Title,
			ReleaseYear: m.ReleaseYear,
			Duration:    m.Duration,
			Actors:      m.Actors,
			Genres:      m.Genres,
		})
		if err := track("movie", m.Title, err); err != nil {
			return res, err
		}
	}

	return res, nil
}

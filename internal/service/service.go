// Package service holds the business rules of the movie catalogue: id and
// page checks, existence lookups, uniqueness and relationship guards. Every
// failure the caller can act on is returned as a *domain.Error.
package service

import (
	"errors"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/Clark-Hu/kmdb-api/internal/domain"
	"github.com/Clark-Hu/kmdb-api/internal/repository"
)

// DefaultMaxPageSize caps page sizes when Options leaves it unset.
const DefaultMaxPageSize = 100

// Options tunes service behaviour.
type Options struct {
	MaxPageSize int
}

// Services groups the per-entity services sharing one repository.
type Services struct {
	Movies *MovieService
	Actors *ActorService
	Genres *GenreService
}

// New wires the services. A nil logger discards output.
func New(repo *repository.Repository, logger hclog.Logger, opts Options) *Services {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = DefaultMaxPageSize
	}
	return &Services{
		Movies: &MovieService{repo: repo, logger: logger.Named("movies"), opts: opts},
		Actors: &ActorService{repo: repo, logger: logger.Named("actors"), opts: opts},
		Genres: &GenreService{repo: repo, logger: logger.Named("genres"), opts: opts},
	}
}

func checkID(entity string, id int64) error {
	if id < 1 {
		return domain.InvalidArgument("%s ID must be greater than 0", entity)
	}
	return nil
}

func (o Options) page(number, size int) (repository.Page, error) {
	if number < 0 {
		return repository.Page{}, domain.InvalidArgument("Page index must not be less than zero")
	}
	if size < 1 {
		return repository.Page{}, domain.InvalidArgument("Page size must not be less than one")
	}
	if size > o.MaxPageSize {
		return repository.Page{}, domain.InvalidArgument("Page size must be less than or equal to %d", o.MaxPageSize)
	}
	return repository.Page{Number: number, Size: size}, nil
}

// notFoundAs swaps repository.ErrNotFound for the supplied domain error and
// leaves anything else alone.
func notFoundAs(err error, replacement *domain.Error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return replacement
	}
	return err
}

func duplicateAs(err error, replacement *domain.Error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return replacement
	}
	return err
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// present treats a blank patch value as absent, so it leaves the stored
// field unchanged.
func present(s *string) *string {
	if s == nil || blank(*s) {
		return nil
	}
	return s
}

// uniqueNames drops repeats while keeping first-seen order.
func uniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

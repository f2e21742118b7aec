package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/Clark-Hu/kmdb-api/internal/domain"
	"github.com/Clark-Hu/kmdb-api/internal/repository"
)

// ActorService implements actor operations.
type ActorService struct {
	repo   *repository.Repository
	logger hclog.Logger
	opts   Options
}

// ActorInput is the payload of an actor creation.
type ActorInput struct {
	Name      string
	BirthDate *time.Time
}

// ActorPatch is a partial update; nil fields and a blank Name are left
// untouched.
type ActorPatch struct {
	Name      *string
	BirthDate *time.Time
}

// List returns every actor.
func (s *ActorService) List(ctx context.Context) ([]domain.Actor, error) {
	actors, err := s.repo.Actors.List(ctx, repository.ActorListFilters{})
	if err != nil {
		return nil, fmt.Errorf("list actors: %w", err)
	}
	if len(actors) == 0 {
		return nil, domain.NotFound("No actors found in the database")
	}
	return actors, nil
}

// ListPage returns one zero-based page of actors ordered by id.
func (s *ActorService) ListPage(ctx context.Context, number, size int) ([]domain.Actor, error) {
	page, err := s.opts.page(number, size)
	if err != nil {
		return nil, err
	}
	actors, err := s.repo.Actors.List(ctx, repository.ActorListFilters{Page: &page})
	if err != nil {
		return nil, fmt.Errorf("list actors: %w", err)
	}
	if len(actors) == 0 {
		return nil, domain.NotFound("No actors found on page %d", number)
	}
	return actors, nil
}

// SearchByName matches name substrings case-insensitively.
func (s *ActorService) SearchByName(ctx context.Context, name string) ([]domain.Actor, error) {
	actors, err := s.repo.Actors.List(ctx, repository.ActorListFilters{NameContains: &name})
	if err != nil {
		return nil, fmt.Errorf("search actors: %w", err)
	}
	if len(actors) == 0 {
		return nil, domain.NotFound("Actor with name containing '%s' does not exist", name)
	}
	return actors, nil
}

// Count returns the number of stored actors.
func (s *ActorService) Count(ctx context.Context) (int64, error) {
	return s.repo.Actors.Count(ctx)
}

// Get returns an actor by id.
func (s *ActorService) Get(ctx context.Context, id int64) (domain.Actor, error) {
	if err := checkID("Actor", id); err != nil {
		return domain.Actor{}, err
	}
	actor, err := s.repo.Actors.GetByID(ctx, id)
	if err != nil {
		return domain.Actor{}, notFoundAs(err, actorNotFound(id))
	}
	return actor, nil
}

// Movies lists the movies an actor appears in.
func (s *ActorService) Movies(ctx context.Context, id int64) ([]domain.Movie, error) {
	actor, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	movies, err := s.repo.Movies.List(ctx, repository.MovieListFilters{ActorID: &id})
	if err != nil {
		return nil, fmt.Errorf("list movies of actor %d: %w", id, err)
	}
	if len(movies) == 0 {
		return nil, domain.NotFound("No movies associated with actor '%s'", actor.Name)
	}
	if err := s.repo.Movies.LoadRelations(ctx, movies); err != nil {
		return nil, err
	}
	return movies, nil
}

// Create stores a new actor; names are unique.
func (s *ActorService) Create(ctx context.Context, in ActorInput) (domain.Actor, error) {
	if blank(in.Name) {
		return domain.Actor{}, domain.Validation("Name cannot be empty")
	}
	if _, err := s.repo.Actors.GetByName(ctx, in.Name); err == nil {
		return domain.Actor{}, actorExists(in.Name)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return domain.Actor{}, fmt.Errorf("lookup actor name: %w", err)
	}

	actor, err := s.repo.Actors.Create(ctx, repository.ActorCreateParams{Name: in.Name, BirthDate: in.BirthDate})
	if err != nil {
		return domain.Actor{}, duplicateAs(err, actorExists(in.Name))
	}
	s.logger.Info("actor created", "id", actor.ID, "name", actor.Name)
	return actor, nil
}

// Update applies a partial update to an actor.
func (s *ActorService) Update(ctx context.Context, id int64, patch ActorPatch) (domain.Actor, error) {
	if err := checkID("Actor", id); err != nil {
		return domain.Actor{}, err
	}
	patch.Name = present(patch.Name)

	var updated domain.Actor
	err := s.repo.InTx(ctx, func(tx *repository.Repository) error {
		current, err := tx.Actors.Lock(ctx, id)
		if err != nil {
			return notFoundAs(err, actorNotFound(id))
		}
		if patch.Name != nil && *patch.Name != current.Name {
			if _, err := tx.Actors.GetByName(ctx, *patch.Name); err == nil {
				return actorExists(*patch.Name)
			} else if !errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("lookup actor name: %w", err)
			}
		}
		updated, err = tx.Actors.Update(ctx, id, repository.ActorUpdateParams{Name: patch.Name, BirthDate: patch.BirthDate})
		if err != nil && patch.Name != nil {
			err = duplicateAs(err, actorExists(*patch.Name))
		}
		return err
	})
	if err != nil {
		return domain.Actor{}, err
	}

	s.logger.Info("actor updated", "id", id)
	return updated, nil
}

// Delete removes an actor. Without force, an actor who still appears in a
// movie is refused; the row lock keeps links from slipping in between the
// count and the delete.
func (s *ActorService) Delete(ctx context.Context, id int64, force bool) error {
	if err := checkID("Actor", id); err != nil {
		return err
	}

	err := s.repo.InTx(ctx, func(tx *repository.Repository) error {
		actor, err := tx.Actors.Lock(ctx, id)
		if err != nil {
			return notFoundAs(err, actorNotFound(id))
		}
		if !force {
			count, err := tx.Actors.MovieCount(ctx, id)
			if err != nil {
				return err
			}
			if count > 0 {
				return domain.Conflict("Cannot delete actor '%s' because they are associated with %d movie(s)", actor.Name, count)
			}
		}
		return notFoundAs(tx.Actors.Delete(ctx, id), actorNotFound(id))
	})
	if err != nil {
		return err
	}

	s.logger.Info("actor deleted", "id", id, "force", force)
	return nil
}

func actorNotFound(id int64) *domain.Error {
	return domain.NotFound("Actor with ID %d does not exist", id)
}

func actorExists(name string) *domain.Error {
	return domain.AlreadyExists("Actor '%s' already exists in database", name)
}

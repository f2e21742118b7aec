package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/Clark-Hu/kmdb-api/internal/domain"
	"github.com/Clark-Hu/kmdb-api/internal/repository"
)

// GenreService implements genre operations.
type GenreService struct {
	repo   *repository.Repository
	logger hclog.Logger
	opts   Options
}

// GenrePatch is a partial update; a nil or blank Name leaves the genre
// unchanged.
type GenrePatch struct {
	Name *string
}

// List returns every genre.
func (s *GenreService) List(ctx context.Context) ([]domain.Genre, error) {
	genres, err := s.repo.Genres.List(ctx, repository.GenreListFilters{})
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	if len(genres) == 0 {
		return nil, domain.NotFound("No genres found in the database")
	}
	return genres, nil
}

// ListPage returns one zero-based page of genres ordered by id.
func (s *GenreService) ListPage(ctx context.Context, number, size int) ([]domain.Genre, error) {
	page, err := s.opts.page(number, size)
	if err != nil {
		return nil, err
	}
	genres, err := s.repo.Genres.List(ctx, repository.GenreListFilters{Page: &page})
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	if len(genres) == 0 {
		return nil, domain.NotFound("No genres found on page %d", number)
	}
	return genres, nil
}

// SearchByName matches name substrings case-insensitively.
func (s *GenreService) SearchByName(ctx context.Context, name string) ([]domain.Genre, error) {
	genres, err := s.repo.Genres.List(ctx, repository.GenreListFilters{NameContains: &name})
	if err != nil {
		return nil, fmt.Errorf("search genres: %w", err)
	}
	if len(genres) == 0 {
		return nil, domain.NotFound("Genre with name containing '%s' does not exist", name)
	}
	return genres, nil
}

// Count returns the number of stored genres.
func (s *GenreService) Count(ctx context.Context) (int64, error) {
	return s.repo.Genres.Count(ctx)
}

// Get returns a genre by id.
func (s *GenreService) Get(ctx context.Context, id int64) (domain.Genre, error) {
	if err := checkID("Genre", id); err != nil {
		return domain.Genre{}, err
	}
	genre, err := s.repo.Genres.GetByID(ctx, id)
	if err != nil {
		return domain.Genre{}, notFoundAs(err, genreNotFound(id))
	}
	return genre, nil
}

// Movies lists the movies filed under a genre.
func (s *GenreService) Movies(ctx context.Context, id int64) ([]domain.Movie, error) {
	genre, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	movies, err := s.repo.Movies.List(ctx, repository.MovieListFilters{GenreID: &id})
	if err != nil {
		return nil, fmt.Errorf("list movies of genre %d: %w", id, err)
	}
	if len(movies) == 0 {
		return nil, domain.NotFound("No movies associated with genre '%s'", genre.Name)
	}
	if err := s.repo.Movies.LoadRelations(ctx, movies); err != nil {
		return nil, err
	}
	return movies, nil
}

// Create stores a new genre; names are unique.
func (s *GenreService) Create(ctx context.Context, name string) (domain.Genre, error) {
	if blank(name) {
		return domain.Genre{}, domain.Validation("Name cannot be empty")
	}
	if _, err := s.repo.Genres.GetByName(ctx, name); err == nil {
		return domain.Genre{}, genreExists(name)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return domain.Genre{}, fmt.Errorf("lookup genre name: %w", err)
	}

	genre, err := s.repo.Genres.Create(ctx, name)
	if err != nil {
		return domain.Genre{}, duplicateAs(err, genreExists(name))
	}
	s.logger.Info("genre created", "id", genre.ID, "name", genre.Name)
	return genre, nil
}

// Update renames a genre. A missing or blank name returns the genre
// unchanged.
func (s *GenreService) Update(ctx context.Context, id int64, patch GenrePatch) (domain.Genre, error) {
	if err := checkID("Genre", id); err != nil {
		return domain.Genre{}, err
	}
	if present(patch.Name) == nil {
		return s.Get(ctx, id)
	}
	name := *patch.Name

	var updated domain.Genre
	err := s.repo.InTx(ctx, func(tx *repository.Repository) error {
		current, err := tx.Genres.Lock(ctx, id)
		if err != nil {
			return notFoundAs(err, genreNotFound(id))
		}
		if name == current.Name {
			updated = current
			return nil
		}
		if _, err := tx.Genres.GetByName(ctx, name); err == nil {
			return genreExists(name)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("lookup genre name: %w", err)
		}
		updated, err = tx.Genres.Rename(ctx, id, name)
		return duplicateAs(err, genreExists(name))
	})
	if err != nil {
		return domain.Genre{}, err
	}

	s.logger.Info("genre updated", "id", id)
	return updated, nil
}

// Delete removes a genre. Without force, a genre still linked to a movie is
// refused.
func (s *GenreService) Delete(ctx context.Context, id int64, force bool) error {
	if err := checkID("Genre", id); err != nil {
		return err
	}

	err := s.repo.InTx(ctx, func(tx *repository.Repository) error {
		genre, err := tx.Genres.Lock(ctx, id)
		if err != nil {
			return notFoundAs(err, genreNotFound(id))
		}
		if !force {
			count, err := tx.Genres.MovieCount(ctx, id)
			if err != nil {
				return err
			}
			if count > 0 {
				return domain.Conflict("Cannot delete genre '%s' because it is associated with %d movie(s)", genre.Name, count)
			}
		}
		return notFoundAs(tx.Genres.Delete(ctx, id), genreNotFound(id))
	})
	if err != nil {
		return err
	}

	s.logger.Info("genre deleted", "id", id, "force", force)
	return nil
}

func genreNotFound(id int64) *domain.Error {
	return domain.NotFound("Genre with ID %d does not exist", id)
}

func genreExists(name string) *domain.Error {
	return domain.AlreadyExists("Genre '%s' already exists in database", name)
}

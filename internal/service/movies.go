package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/Clark-Hu/kmdb-api/internal/domain"
	"github.com/Clark-Hu/kmdb-api/internal/repository"
)

// MovieService implements movie operations, including the actor and genre
// links owned by a movie.
type MovieService struct {
	repo   *repository.Repository
	logger hclog.Logger
	opts   Options
}

// MovieInput is the payload of a movie creation. Actors and Genres hold
// names of existing rows.
type MovieInput struct {
	Title       string
	ReleaseYear int
	Duration    int
	Actors      []string
	Genres      []string
}

// MoviePatch is a partial update. Nil or blank scalars are left untouched;
// a non-empty Actors or Genres list replaces the corresponding set.
type MoviePatch struct {
	Title       *string
	ReleaseYear *int
	Duration    *int
	Actors      []string
	Genres      []string
}

// List returns every movie.
func (s *MovieService) List(ctx context.Context) ([]domain.Movie, error) {
	movies, err := s.list(ctx, repository.MovieListFilters{})
	if err != nil {
		return nil, err
	}
	if len(movies) == 0 {
		return nil, domain.NotFound("No movies found in the database")
	}
	return movies, nil
}

// ListPage returns one zero-based page of movies ordered by id.
func (s *MovieService) ListPage(ctx context.Context, number, size int) ([]domain.Movie, error) {
	page, err := s.opts.page(number, size)
	if err != nil {
		return nil, err
	}
	movies, err := s.list(ctx, repository.MovieListFilters{Page: &page})
	if err != nil {
		return nil, err
	}
	if len(movies) == 0 {
		return nil, domain.NotFound("No movies found on page %d", number)
	}
	return movies, nil
}

// SearchByTitle matches title substrings case-insensitively.
func (s *MovieService) SearchByTitle(ctx context.Context, title string) ([]domain.Movie, error) {
	movies, err := s.list(ctx, repository.MovieListFilters{TitleContains: &title})
	if err != nil {
		return nil, err
	}
	if len(movies) == 0 {
		return nil, domain.NotFound("Movie with title containing '%s' does not exist", title)
	}
	return movies, nil
}

// ListByReleaseYear returns the movies released in year.
func (s *MovieService) ListByReleaseYear(ctx context.Context, year int) ([]domain.Movie, error) {
	if year < domain.MinReleaseYear || year > domain.MaxReleaseYear {
		return nil, domain.InvalidArgument("Release year must be between %d and %d", domain.MinReleaseYear, domain.MaxReleaseYear)
	}
	movies, err := s.list(ctx, repository.MovieListFilters{ReleaseYear: &year})
	if err != nil {
		return nil, err
	}
	if len(movies) == 0 {
		return nil, domain.NotFound("No movies found with release year %d", year)
	}
	return movies, nil
}

// ListByGenre returns the movies linked to a genre.
func (s *MovieService) ListByGenre(ctx context.Context, genreID int64) ([]domain.Movie, error) {
	if err := checkID("Genre", genreID); err != nil {
		return nil, err
	}
	genre, err := s.repo.Genres.GetByID(ctx, genreID)
	if err != nil {
		return nil, notFoundAs(err, genreNotFound(genreID))
	}
	movies, err := s.list(ctx, repository.MovieListFilters{GenreID: &genreID})
	if err != nil {
		return nil, err
	}
	if len(movies) == 0 {
		return nil, domain.NotFound("No movies found in genre '%s'", genre.Name)
	}
	return movies, nil
}

// ListByActor returns the movies an actor is linked to.
func (s *MovieService) ListByActor(ctx context.Context, actorID int64) ([]domain.Movie, error) {
	if err := checkID("Actor", actorID); err != nil {
		return nil, err
	}
	actor, err := s.repo.Actors.GetByID(ctx, actorID)
	if err != nil {
		return nil, notFoundAs(err, actorNotFound(actorID))
	}
	movies, err := s.list(ctx, repository.MovieListFilters{ActorID: &actorID})
	if err != nil {
		return nil, err
	}
	if len(movies) == 0 {
		return nil, domain.NotFound("No movies found starring actor '%s'", actor.Name)
	}
	return movies, nil
}

// Count returns the number of stored movies.
func (s *MovieService) Count(ctx context.Context) (int64, error) {
	return s.repo.Movies.Count(ctx)
}

// Get returns a movie with its actors and genres.
func (s *MovieService) Get(ctx context.Context, id int64) (domain.Movie, error) {
	if err := checkID("Movie", id); err != nil {
		return domain.Movie{}, err
	}
	return loadMovie(ctx, s.repo, id)
}

// Actors lists the actors of a movie.
func (s *MovieService) Actors(ctx context.Context, id int64) ([]domain.Actor, error) {
	if err := checkID("Movie", id); err != nil {
		return nil, err
	}
	movie, err := s.repo.Movies.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, movieNotFound(id))
	}
	actors, err := s.repo.Movies.Actors(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list actors of movie %d: %w", id, err)
	}
	if len(actors) == 0 {
		return nil, domain.NotFound("No actors associated with movie '%s'", movie.Title)
	}
	return actors, nil
}

// Genres lists the genres of a movie.
func (s *MovieService) Genres(ctx context.Context, id int64) ([]domain.Genre, error) {
	if err := checkID("Movie", id); err != nil {
		return nil, err
	}
	movie, err := s.repo.Movies.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, movieNotFound(id))
	}
	genres, err := s.repo.Movies.Genres(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list genres of movie %d: %w", id, err)
	}
	if len(genres) == 0 {
		return nil, domain.NotFound("No genres associated with movie '%s'", movie.Title)
	}
	return genres, nil
}

// Create stores a new movie and links the named actors and genres.
func (s *MovieService) Create(ctx context.Context, in MovieInput) (domain.Movie, error) {
	if err := checkMovieFields(&in.Title, &in.ReleaseYear, &in.Duration); err != nil {
		return domain.Movie{}, err
	}

	var created domain.Movie
	err := s.repo.InTx(ctx, func(tx *repository.Repository) error {
		if _, err := tx.Movies.GetByTitle(ctx, in.Title); err == nil {
			return movieExists(in.Title)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("lookup movie title: %w", err)
		}

		actorIDs, err := resolveActors(ctx, tx, in.Actors)
		if err != nil {
			return err
		}
		genreIDs, err := resolveGenres(ctx, tx, in.Genres)
		if err != nil {
			return err
		}

		movie, err := tx.Movies.Create(ctx, repository.MovieCreateParams{
			Title:       in.Title,
			ReleaseYear: in.ReleaseYear,
			Duration:    in.Duration,
		})
		if err != nil {
			return duplicateAs(err, movieExists(in.Title))
		}
		if err := tx.Movies.ReplaceActors(ctx, movie.ID, actorIDs); err != nil {
			return fmt.Errorf("link actors: %w", err)
		}
		if err := tx.Movies.ReplaceGenres(ctx, movie.ID, genreIDs); err != nil {
			return fmt.Errorf("link genres: %w", err)
		}

		created, err = loadMovie(ctx, tx, movie.ID)
		return err
	})
	if err != nil {
		return domain.Movie{}, err
	}

	s.logger.Info("movie created", "id", created.ID, "title", created.Title)
	return created, nil
}

// Update applies a partial update to a movie.
func (s *MovieService) Update(ctx context.Context, id int64, patch MoviePatch) (domain.Movie, error) {
	if err := checkID("Movie", id); err != nil {
		return domain.Movie{}, err
	}
	patch.Title = present(patch.Title)
	if err := checkMovieFields(patch.Title, patch.ReleaseYear, patch.Duration); err != nil {
		return domain.Movie{}, err
	}

	var updated domain.Movie
	err := s.repo.InTx(ctx, func(tx *repository.Repository) error {
		current, err := tx.Movies.Lock(ctx, id)
		if err != nil {
			return notFoundAs(err, movieNotFound(id))
		}

		if patch.Title != nil && *patch.Title != current.Title {
			if _, err := tx.Movies.GetByTitle(ctx, *patch.Title); err == nil {
				return movieExists(*patch.Title)
			} else if !errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("lookup movie title: %w", err)
			}
		}

		if len(patch.Actors) > 0 {
			actorIDs, err := resolveActors(ctx, tx, patch.Actors)
			if err != nil {
				return err
			}
			if err := tx.Movies.ReplaceActors(ctx, id, actorIDs); err != nil {
				return fmt.Errorf("replace actors: %w", err)
			}
		}
		if len(patch.Genres) > 0 {
			genreIDs, err := resolveGenres(ctx, tx, patch.Genres)
			if err != nil {
				return err
			}
			if err := tx.Movies.ReplaceGenres(ctx, id, genreIDs); err != nil {
				return fmt.Errorf("replace genres: %w", err)
			}
		}

		_, err = tx.Movies.Update(ctx, id, repository.MovieUpdateParams{
			Title:       patch.Title,
			ReleaseYear: patch.ReleaseYear,
			Duration:    patch.Duration,
		})
		if err != nil {
			if patch.Title != nil {
				err = duplicateAs(err, movieExists(*patch.Title))
			}
			return notFoundAs(err, movieNotFound(id))
		}

		updated, err = loadMovie(ctx, tx, id)
		return err
	})
	if err != nil {
		return domain.Movie{}, err
	}

	s.logger.Info("movie updated", "id", id)
	return updated, nil
}

// Delete removes a movie. Without force, a movie that still has actors or
// genres is refused.
func (s *MovieService) Delete(ctx context.Context, id int64, force bool) error {
	if err := checkID("Movie", id); err != nil {
		return err
	}

	err := s.repo.InTx(ctx, func(tx *repository.Repository) error {
		movie, err := tx.Movies.Lock(ctx, id)
		if err != nil {
			return notFoundAs(err, movieNotFound(id))
		}
		if !force {
			actors, genres, err := tx.Movies.RelationCounts(ctx, id)
			if err != nil {
				return err
			}
			if actors > 0 || genres > 0 {
				return movieDeleteBlocked(movie.Title, genres, actors)
			}
		}
		return notFoundAs(tx.Movies.Delete(ctx, id), movieNotFound(id))
	})
	if err != nil {
		return err
	}

	s.logger.Info("movie deleted", "id", id, "force", force)
	return nil
}

// AssignGenre links a genre to a movie and returns the updated movie.
func (s *MovieService) AssignGenre(ctx context.Context, movieID, genreID int64) (domain.Movie, error) {
	if err := checkID("Movie", movieID); err != nil {
		return domain.Movie{}, err
	}
	if err := checkID("Genre", genreID); err != nil {
		return domain.Movie{}, err
	}

	var result domain.Movie
	err := s.repo.InTx(ctx, func(tx *repository.Repository) error {
		movie, err := tx.Movies.GetByID(ctx, movieID)
		if err != nil {
			return notFoundAs(err, movieNotFound(movieID))
		}
		genre, err := tx.Genres.GetByID(ctx, genreID)
		if err != nil {
			return notFoundAs(err, genreNotFound(genreID))
		}
		added, err := tx.Movies.AddGenre(ctx, movieID, genreID)
		if err != nil {
			return notFoundAs(err, genreNotFound(genreID))
		}
		if !added {
			return domain.AlreadyExists("Movie '%s' is already associated with genre '%s'", movie.Title, genre.Name)
		}
		result, err = loadMovie(ctx, tx, movieID)
		return err
	})
	if err != nil {
		return domain.Movie{}, err
	}

	s.logger.Debug("genre assigned", "movie", movieID, "genre", genreID)
	return result, nil
}

// RemoveGenre unlinks a genre from a movie.
func (s *MovieService) RemoveGenre(ctx context.Context, movieID, genreID int64) error {
	if err := checkID("Movie", movieID); err != nil {
		return err
	}
	if err := checkID("Genre", genreID); err != nil {
		return err
	}

	return s.repo.InTx(ctx, func(tx *repository.Repository) error {
		movie, err := tx.Movies.GetByID(ctx, movieID)
		if err != nil {
			return notFoundAs(err, movieNotFound(movieID))
		}
		genre, err := tx.Genres.GetByID(ctx, genreID)
		if err != nil {
			return notFoundAs(err, genreNotFound(genreID))
		}
		removed, err := tx.Movies.RemoveGenre(ctx, movieID, genreID)
		if err != nil {
			return err
		}
		if !removed {
			return domain.NotFound("Movie '%s' is not associated with genre '%s'", movie.Title, genre.Name)
		}
		s.logger.Debug("genre removed", "movie", movieID, "genre", genreID)
		return nil
	})
}

// AssignActor links an actor to a movie and returns the updated movie.
func (s *MovieService) AssignActor(ctx context.Context, movieID, actorID int64) (domain.Movie, error) {
	if err := checkID("Movie", movieID); err != nil {
		return domain.Movie{}, err
	}
	if err := checkID("Actor", actorID); err != nil {
		return domain.Movie{}, err
	}

	var result domain.Movie
	err := s.repo.InTx(ctx, func(tx *repository.Repository) error {
		movie, err := tx.Movies.GetByID(ctx, movieID)
		if err != nil {
			return notFoundAs(err, movieNotFound(movieID))
		}
		actor, err := tx.Actors.GetByID(ctx, actorID)
		if err != nil {
			return notFoundAs(err, actorNotFound(actorID))
		}
		added, err := tx.Movies.AddActor(ctx, movieID, actorID)
		if err != nil {
			return notFoundAs(err, actorNotFound(actorID))
		}
		if !added {
			return domain.AlreadyExists("Movie '%s' is already associated with actor '%s'", movie.Title, actor.Name)
		}
		result, err = loadMovie(ctx, tx, movieID)
		return err
	})
	if err != nil {
		return domain.Movie{}, err
	}

	s.logger.Debug("actor assigned", "movie", movieID, "actor", actorID)
	return result, nil
}

// RemoveActor unlinks an actor from a movie.
func (s *MovieService) RemoveActor(ctx context.Context, movieID, actorID int64) error {
	if err := checkID("Movie", movieID); err != nil {
		return err
	}
	if err := checkID("Actor", actorID); err != nil {
		return err
	}

	return s.repo.InTx(ctx, func(tx *repository.Repository) error {
		movie, err := tx.Movies.GetByID(ctx, movieID)
		if err != nil {
			return notFoundAs(err, movieNotFound(movieID))
		}
		actor, err := tx.Actors.GetByID(ctx, actorID)
		if err != nil {
			return notFoundAs(err, actorNotFound(actorID))
		}
		removed, err := tx.Movies.RemoveActor(ctx, movieID, actorID)
		if err != nil {
			return err
		}
		if !removed {
			return domain.NotFound("Movie '%s' is not associated with actor '%s'", movie.Title, actor.Name)
		}
		s.logger.Debug("actor removed", "movie", movieID, "actor", actorID)
		return nil
	})
}

func (s *MovieService) list(ctx context.Context, filters repository.MovieListFilters) ([]domain.Movie, error) {
	movies, err := s.repo.Movies.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	if err := s.repo.Movies.LoadRelations(ctx, movies); err != nil {
		return nil, err
	}
	return movies, nil
}

func loadMovie(ctx context.Context, repo *repository.Repository, id int64) (domain.Movie, error) {
	movie, err := repo.Movies.GetByID(ctx, id)
	if err != nil {
		return domain.Movie{}, notFoundAs(err, movieNotFound(id))
	}
	movies := []domain.Movie{movie}
	if err := repo.Movies.LoadRelations(ctx, movies); err != nil {
		return domain.Movie{}, err
	}
	return movies[0], nil
}

// resolveActors maps names to ids, failing on the first unknown name in
// input order.
func resolveActors(ctx context.Context, repo *repository.Repository, names []string) ([]int64, error) {
	names = uniqueNames(names)
	if len(names) == 0 {
		return nil, nil
	}
	actors, err := repo.Actors.GetByNames(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("resolve actors: %w", err)
	}
	byName := make(map[string]int64, len(actors))
	for _, actor := range actors {
		byName[actor.Name] = actor.ID
	}
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		id, ok := byName[name]
		if !ok {
			return nil, domain.NotFound("Actor '%s' not found", name)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func resolveGenres(ctx context.Context, repo *repository.Repository, names []string) ([]int64, error) {
	names = uniqueNames(names)
	if len(names) == 0 {
		return nil, nil
	}
	genres, err := repo.Genres.GetByNames(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("resolve genres: %w", err)
	}
	byName := make(map[string]int64, len(genres))
	for _, genre := range genres {
		byName[genre.Name] = genre.ID
	}
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		id, ok := byName[name]
		if !ok {
			return nil, domain.NotFound("Genre '%s' not found", name)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// checkMovieFields validates the scalar fields that are present.
func checkMovieFields(title *string, year, duration *int) error {
	var messages []string
	if title != nil && blank(*title) {
		messages = append(messages, "Title cannot be empty")
	}
	if year != nil && (*year < domain.MinReleaseYear || *year > domain.MaxReleaseYear) {
		messages = append(messages, fmt.Sprintf("Movie release year must be between %d and %d", domain.MinReleaseYear, domain.MaxReleaseYear))
	}
	if duration != nil && (*duration < domain.MinDuration || *duration > domain.MaxDuration) {
		messages = append(messages, fmt.Sprintf("Movie duration must be between %d and %d minutes", domain.MinDuration, domain.MaxDuration))
	}
	if len(messages) > 0 {
		return domain.Validation(messages...)
	}
	return nil
}

func movieNotFound(id int64) *domain.Error {
	return domain.NotFound("Movie with ID %d does not exist", id)
}

func movieExists(title string) *domain.Error {
	return domain.AlreadyExists("Movie '%s' already exists in database", title)
}

func movieDeleteBlocked(title string, genres, actors int) *domain.Error {
	switch {
	case genres > 0 && actors > 0:
		return domain.Conflict("Cannot delete movie '%s' because it is associated with %d genre(s) and %d actor(s)", title, genres, actors)
	case genres > 0:
		return domain.Conflict("Cannot delete movie '%s' because it is associated with %d genre(s)", title, genres)
	default:
		return domain.Conflict("Cannot delete movie '%s' because it is associated with %d actor(s)", title, actors)
	}
}

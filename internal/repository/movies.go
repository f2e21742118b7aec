package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/kmdb-api/internal/domain"
)

// MoviesRepository provides persistence helpers for movie entities and the
// two join tables owned by movies.
type MoviesRepository struct {
	db DBTX
}

const movieColumns = `
    id,
    title,
    release_year,
    duration,
    created_at,
    updated_at
`

// MovieCreateParams bundles the fields required to create a movie.
type MovieCreateParams struct {
	Title       string
	ReleaseYear int
	Duration    int
}

// MovieUpdateParams carries a partial update; nil fields are left untouched.
type MovieUpdateParams struct {
	Title       *string
	ReleaseYear *int
	Duration    *int
}

// MovieListFilters encapsulates search and pagination options. All set
// filters are combined with AND.
type MovieListFilters struct {
	TitleContains *string
	ReleaseYear   *int
	GenreID       *int64
	ActorID       *int64
	Page          *Page
}

// Create inserts a new movie row and returns the stored entity.
func (r *MoviesRepository) Create(ctx context.Context, params MovieCreateParams) (domain.Movie, error) {
	query := fmt.Sprintf(`
        INSERT INTO movies (title, release_year, duration)
        VALUES ($1,$2,$3)
        RETURNING %s
    `, movieColumns)

	row := r.db.QueryRow(ctx, query, params.Title, params.ReleaseYear, params.Duration)
	movie, err := scanMovie(row)
	if err != nil {
		return domain.Movie{}, mapError(err)
	}
	return movie, nil
}

// GetByID fetches a movie by its identifier.
func (r *MoviesRepository) GetByID(ctx context.Context, id int64) (domain.Movie, error) {
	query := fmt.Sprintf(`SELECT %s FROM movies WHERE id = $1`, movieColumns)
	movie, err := scanMovie(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Movie{}, mapError(err)
	}
	return movie, nil
}

// Lock fetches a movie and holds a row lock until the surrounding
// transaction ends. Outside a transaction the lock is released immediately.
func (r *MoviesRepository) Lock(ctx context.Context, id int64) (domain.Movie, error) {
	query := fmt.Sprintf(`SELECT %s FROM movies WHERE id = $1 FOR UPDATE`, movieColumns)
	movie, err := scanMovie(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Movie{}, mapError(err)
	}
	return movie, nil
}

// GetByTitle fetches the movie whose title matches exactly (case-sensitive).
func (r *MoviesRepository) GetByTitle(ctx context.Context, title string) (domain.Movie, error) {
	query := fmt.Sprintf(`SELECT %s FROM movies WHERE title = $1`, movieColumns)
	movie, err := scanMovie(r.db.QueryRow(ctx, query, title))
	if err != nil {
		return domain.Movie{}, mapError(err)
	}
	return movie, nil
}

// List returns movies that match the provided filters ordered by id.
func (r *MoviesRepository) List(ctx context.Context, filters MovieListFilters) ([]domain.Movie, error) {
	where := make([]string, 0)
	args := make([]interface{}, 0)
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.TitleContains != nil && *filters.TitleContains != "" {
		where = append(where, fmt.Sprintf("title ILIKE %s", arg(containsPattern(*filters.TitleContains))))
	}
	if filters.ReleaseYear != nil {
		where = append(where, fmt.Sprintf("release_year = %s", arg(*filters.ReleaseYear)))
	}
	if filters.GenreID != nil {
		where = append(where, fmt.Sprintf("id IN (SELECT movie_id FROM movie_genres WHERE genre_id = %s)", arg(*filters.GenreID)))
	}
	if filters.ActorID != nil {
		where = append(where, fmt.Sprintf("id IN (SELECT movie_id FROM movie_actors WHERE actor_id = %s)", arg(*filters.ActorID)))
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT ")
	queryBuilder.WriteString(movieColumns)
	queryBuilder.WriteString(" FROM movies")

	if len(where) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(where, " AND "))
	}

	queryBuilder.WriteString(" ORDER BY id")
	if filters.Page != nil {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT %s OFFSET %s", arg(filters.Page.Size), arg(filters.Page.offset())))
	}

	rows, err := r.db.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Movie, 0)
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, movie)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Count returns the number of stored movies.
func (r *MoviesRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM movies`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count movies: %w", err)
	}
	return n, nil
}

// Update applies a partial update and returns the stored entity.
func (r *MoviesRepository) Update(ctx context.Context, id int64, params MovieUpdateParams) (domain.Movie, error) {
	query := fmt.Sprintf(`
        UPDATE movies
        SET title = COALESCE($2, title),
            release_year = COALESCE($3, release_year),
            duration = COALESCE($4, duration),
            updated_at = now()
        WHERE id = $1
        RETURNING %s
    `, movieColumns)

	row := r.db.QueryRow(ctx, query, id, params.Title, params.ReleaseYear, params.Duration)
	movie, err := scanMovie(row)
	if err != nil {
		return domain.Movie{}, mapError(err)
	}
	return movie, nil
}

// Delete removes a movie; its join rows go with it.
func (r *MoviesRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM movies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Actors lists the actors linked to a movie ordered by id.
func (r *MoviesRepository) Actors(ctx context.Context, movieID int64) ([]domain.Actor, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM actors
        WHERE id IN (SELECT actor_id FROM movie_actors WHERE movie_id = $1)
        ORDER BY id
    `, actorColumns)
	return collectActors(r.db.Query(ctx, query, movieID))
}

// Genres lists the genres linked to a movie ordered by id.
func (r *MoviesRepository) Genres(ctx context.Context, movieID int64) ([]domain.Genre, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM genres
        WHERE id IN (SELECT genre_id FROM movie_genres WHERE movie_id = $1)
        ORDER BY id
    `, genreColumns)
	return collectGenres(r.db.Query(ctx, query, movieID))
}

// LoadRelations fills Actors and Genres of every movie with two queries.
func (r *MoviesRepository) LoadRelations(ctx context.Context, movies []domain.Movie) error {
	if len(movies) == 0 {
		return nil
	}
	ids := make([]int64, len(movies))
	index := make(map[int64]int, len(movies))
	for i := range movies {
		ids[i] = movies[i].ID
		index[movies[i].ID] = i
		movies[i].Actors = []domain.Actor{}
		movies[i].Genres = []domain.Genre{}
	}

	rows, err := r.db.Query(ctx, `
        SELECT ma.movie_id, a.id, a.name, a.birth_date, a.created_at, a.updated_at
        FROM movie_actors ma
        JOIN actors a ON a.id = ma.actor_id
        WHERE ma.movie_id = ANY($1)
        ORDER BY a.id
    `, ids)
	if err != nil {
		return fmt.Errorf("load movie actors: %w", err)
	}
	for rows.Next() {
		var (
			movieID   int64
			actor     domain.Actor
			birthDate *time.Time
		)
		if err := rows.Scan(&movieID, &actor.ID, &actor.Name, &birthDate, &actor.CreatedAt, &actor.UpdatedAt); err != nil {
			rows.Close()
			return fmt.Errorf("scan movie actor: %w", err)
		}
		actor.BirthDate = birthDate
		i := index[movieID]
		movies[i].Actors = append(movies[i].Actors, actor)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load movie actors: %w", err)
	}

	rows, err = r.db.Query(ctx, `
        SELECT mg.movie_id, g.id, g.name, g.created_at, g.updated_at
        FROM movie_genres mg
        JOIN genres g ON g.id = mg.genre_id
        WHERE mg.movie_id = ANY($1)
        ORDER BY g.id
    `, ids)
	if err != nil {
		return fmt.Errorf("load movie genres: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			movieID int64
			genre   domain.Genre
		)
		if err := rows.Scan(&movieID, &genre.ID, &genre.Name, &genre.CreatedAt, &genre.UpdatedAt); err != nil {
			return fmt.Errorf("scan movie genre: %w", err)
		}
		i := index[movieID]
		movies[i].Genres = append(movies[i].Genres, genre)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load movie genres: %w", err)
	}
	return nil
}

// AddActor links an actor to a movie. It reports false when the pair was
// already linked and ErrNotFound when either side does not exist.
func (r *MoviesRepository) AddActor(ctx context.Context, movieID, actorID int64) (bool, error) {
	return actorLinks.add(ctx, r.db, movieID, actorID)
}

// RemoveActor unlinks an actor; it reports false when the pair was not linked.
func (r *MoviesRepository) RemoveActor(ctx context.Context, movieID, actorID int64) (bool, error) {
	return actorLinks.remove(ctx, r.db, movieID, actorID)
}

// ReplaceActors makes actorIDs the exact actor set of the movie.
func (r *MoviesRepository) ReplaceActors(ctx context.Context, movieID int64, actorIDs []int64) error {
	return actorLinks.replace(ctx, r.db, movieID, actorIDs)
}

// AddGenre links a genre to a movie. It reports false when the pair was
// already linked and ErrNotFound when either side does not exist.
func (r *MoviesRepository) AddGenre(ctx context.Context, movieID, genreID int64) (bool, error) {
	return genreLinks.add(ctx, r.db, movieID, genreID)
}

// RemoveGenre unlinks a genre; it reports false when the pair was not linked.
func (r *MoviesRepository) RemoveGenre(ctx context.Context, movieID, genreID int64) (bool, error) {
	return genreLinks.remove(ctx, r.db, movieID, genreID)
}

// ReplaceGenres makes genreIDs the exact genre set of the movie.
func (r *MoviesRepository) ReplaceGenres(ctx context.Context, movieID int64, genreIDs []int64) error {
	return genreLinks.replace(ctx, r.db, movieID, genreIDs)
}

// RelationCounts returns how many actors and genres a movie is linked to.
func (r *MoviesRepository) RelationCounts(ctx context.Context, movieID int64) (actors, genres int, err error) {
	err = r.db.QueryRow(ctx, `
        SELECT
            (SELECT COUNT(*) FROM movie_actors WHERE movie_id = $1),
            (SELECT COUNT(*) FROM movie_genres WHERE movie_id = $1)
    `, movieID).Scan(&actors, &genres)
	if err != nil {
		return 0, 0, fmt.Errorf("count movie relations: %w", err)
	}
	return actors, genres, nil
}

func scanMovie(row pgx.Row) (domain.Movie, error) {
	var movie domain.Movie
	err := row.Scan(
		&movie.ID,
		&movie.Title,
		&movie.ReleaseYear,
		&movie.Duration,
		&movie.CreatedAt,
		&movie.UpdatedAt,
	)
	if err != nil {
		return domain.Movie{}, err
	}
	return movie, nil
}

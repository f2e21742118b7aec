package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/kmdb-api/internal/domain"
)

// GenresRepository provides persistence helpers for genre entities.
type GenresRepository struct {
	db DBTX
}

const genreColumns = `
    id,
    name,
    created_at,
    updated_at
`

// GenreListFilters encapsulates search and pagination options.
type GenreListFilters struct {
	NameContains *string
	Page         *Page
}

// Create inserts a new genre row and returns the stored entity.
func (r *GenresRepository) Create(ctx context.Context, name string) (domain.Genre, error) {
	query := fmt.Sprintf(`INSERT INTO genres (name) VALUES ($1) RETURNING %s`, genreColumns)
	genre, err := scanGenre(r.db.QueryRow(ctx, query, name))
	if err != nil {
		return domain.Genre{}, mapError(err)
	}
	return genre, nil
}

// GetByID fetches a genre by its identifier.
func (r *GenresRepository) GetByID(ctx context.Context, id int64) (domain.Genre, error) {
	query := fmt.Sprintf(`SELECT %s FROM genres WHERE id = $1`, genreColumns)
	genre, err := scanGenre(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Genre{}, mapError(err)
	}
	return genre, nil
}

// Lock fetches a genre and holds a row lock until the surrounding
// transaction ends, which blocks concurrent links to it.
func (r *GenresRepository) Lock(ctx context.Context, id int64) (domain.Genre, error) {
	query := fmt.Sprintf(`SELECT %s FROM genres WHERE id = $1 FOR UPDATE`, genreColumns)
	genre, err := scanGenre(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Genre{}, mapError(err)
	}
	return genre, nil
}

// GetByName fetches the genre whose name matches exactly (case-sensitive).
func (r *GenresRepository) GetByName(ctx context.Context, name string) (domain.Genre, error) {
	query := fmt.Sprintf(`SELECT %s FROM genres WHERE name = $1`, genreColumns)
	genre, err := scanGenre(r.db.QueryRow(ctx, query, name))
	if err != nil {
		return domain.Genre{}, mapError(err)
	}
	return genre, nil
}

// GetByNames fetches every genre whose name is in names.
func (r *GenresRepository) GetByNames(ctx context.Context, names []string) ([]domain.Genre, error) {
	query := fmt.Sprintf(`SELECT %s FROM genres WHERE name = ANY($1) ORDER BY id`, genreColumns)
	return collectGenres(r.db.Query(ctx, query, names))
}

// List returns genres that match the provided filters ordered by id.
func (r *GenresRepository) List(ctx context.Context, filters GenreListFilters) ([]domain.Genre, error) {
	args := make([]interface{}, 0)
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT ")
	queryBuilder.WriteString(genreColumns)
	queryBuilder.WriteString(" FROM genres")
	if filters.NameContains != nil && *filters.NameContains != "" {
		queryBuilder.WriteString(" WHERE name ILIKE ")
		queryBuilder.WriteString(arg(containsPattern(*filters.NameContains)))
	}
	queryBuilder.WriteString(" ORDER BY id")
	if filters.Page != nil {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT %s OFFSET %s", arg(filters.Page.Size), arg(filters.Page.offset())))
	}

	return collectGenres(r.db.Query(ctx, queryBuilder.String(), args...))
}

// Count returns the number of stored genres.
func (r *GenresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM genres`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count genres: %w", err)
	}
	return n, nil
}

// Rename changes the genre name and returns the stored entity.
func (r *GenresRepository) Rename(ctx context.Context, id int64, name string) (domain.Genre, error) {
	query := fmt.Sprintf(`
        UPDATE genres
        SET name = $2, updated_at = now()
        WHERE id = $1
        RETURNING %s
    `, genreColumns)
	genre, err := scanGenre(r.db.QueryRow(ctx, query, id, name))
	if err != nil {
		return domain.Genre{}, mapError(err)
	}
	return genre, nil
}

// Delete removes a genre; its join rows go with it.
func (r *GenresRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM genres WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MovieCount returns how many movies the genre is linked to.
func (r *GenresRepository) MovieCount(ctx context.Context, genreID int64) (int, error) {
	return genreLinks.countFor(ctx, r.db, genreID)
}

func scanGenre(row pgx.Row) (domain.Genre, error) {
	var genre domain.Genre
	if err := row.Scan(&genre.ID, &genre.Name, &genre.CreatedAt, &genre.UpdatedAt); err != nil {
		return domain.Genre{}, err
	}
	return genre, nil
}

func collectGenres(rows pgx.Rows, err error) ([]domain.Genre, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Genre, 0)
	for rows.Next() {
		genre, err := scanGenre(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, genre)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

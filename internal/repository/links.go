package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const foreignKeyViolation = "23503"

// joinTable describes a movie-owned many-to-many table.
type joinTable struct {
	table  string
	column string
}

var (
	actorLinks = joinTable{table: "movie_actors", column: "actor_id"}
	genreLinks = joinTable{table: "movie_genres", column: "genre_id"}
)

func (j joinTable) add(ctx context.Context, db DBTX, movieID, otherID int64) (bool, error) {
	query := fmt.Sprintf(`
        INSERT INTO %s (movie_id, %s) VALUES ($1, $2)
        ON CONFLICT DO NOTHING
    `, j.table, j.column)
	tag, err := db.Exec(ctx, query, movieID, otherID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("link %s: %w", j.table, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (j joinTable) remove(ctx context.Context, db DBTX, movieID, otherID int64) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE movie_id = $1 AND %s = $2`, j.table, j.column)
	tag, err := db.Exec(ctx, query, movieID, otherID)
	if err != nil {
		return false, fmt.Errorf("unlink %s: %w", j.table, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (j joinTable) replace(ctx context.Context, db DBTX, movieID int64, ids []int64) error {
	if ids == nil {
		ids = []int64{}
	}
	prune := fmt.Sprintf(`DELETE FROM %s WHERE movie_id = $1 AND NOT (%s = ANY($2))`, j.table, j.column)
	if _, err := db.Exec(ctx, prune, movieID, ids); err != nil {
		return fmt.Errorf("prune %s: %w", j.table, err)
	}
	if len(ids) == 0 {
		return nil
	}
	insert := fmt.Sprintf(`
        INSERT INTO %s (movie_id, %s)
        SELECT $1, unnest($2::bigint[])
        ON CONFLICT DO NOTHING
    `, j.table, j.column)
	if _, err := db.Exec(ctx, insert, movieID, ids); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return ErrNotFound
		}
		return fmt.Errorf("extend %s: %w", j.table, err)
	}
	return nil
}

func (j joinTable) countFor(ctx context.Context, db DBTX, otherID int64) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = $1`, j.table, j.column)
	var n int
	if err := db.QueryRow(ctx, query, otherID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", j.table, err)
	}
	return n, nil
}

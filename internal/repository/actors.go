package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/kmdb-api/internal/domain"
)

// ActorsRepository provides persistence helpers for actor entities.
type ActorsRepository struct {
	db DBTX
}

const actorColumns = `
    id,
    name,
    birth_date,
    created_at,
    updated_at
`

// ActorCreateParams bundles the fields required to create an actor.
type ActorCreateParams struct {
	Name      string
	BirthDate *time.Time
}

// ActorUpdateParams carries a partial update; nil fields are left untouched.
type ActorUpdateParams struct {
	Name      *string
	BirthDate *time.Time
}

// ActorListFilters encapsulates search and pagination options.
type ActorListFilters struct {
	NameContains *string
	Page         *Page
}

// Create inserts a new actor row and returns the stored entity.
func (r *ActorsRepository) Create(ctx context.Context, params ActorCreateParams) (domain.Actor, error) {
	query := fmt.Sprintf(`
        INSERT INTO actors (name, birth_date)
        VALUES ($1,$2)
        RETURNING %s
    `, actorColumns)
	actor, err := scanActor(r.db.QueryRow(ctx, query, params.Name, params.BirthDate))
	if err != nil {
		return domain.Actor{}, mapError(err)
	}
	return actor, nil
}

// GetByID fetches an actor by its identifier.
func (r *ActorsRepository) GetByID(ctx context.Context, id int64) (domain.Actor, error) {
	query := fmt.Sprintf(`SELECT %s FROM actors WHERE id = $1`, actorColumns)
	actor, err := scanActor(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Actor{}, mapError(err)
	}
	return actor, nil
}

// Lock fetches an actor and holds a row lock until the surrounding
// transaction ends, which blocks concurrent links to it.
func (r *ActorsRepository) Lock(ctx context.Context, id int64) (domain.Actor, error) {
	query := fmt.Sprintf(`SELECT %s FROM actors WHERE id = $1 FOR UPDATE`, actorColumns)
	actor, err := scanActor(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Actor{}, mapError(err)
	}
	return actor, nil
}

// GetByName fetches the actor whose name matches exactly (case-sensitive).
func (r *ActorsRepository) GetByName(ctx context.Context, name string) (domain.Actor, error) {
	query := fmt.Sprintf(`SELECT %s FROM actors WHERE name = $1`, actorColumns)
	actor, err := scanActor(r.db.QueryRow(ctx, query, name))
	if err != nil {
		return domain.Actor{}, mapError(err)
	}
	return actor, nil
}

// GetByNames fetches every actor whose name is in names. Unknown names are
// simply absent from the result.
func (r *ActorsRepository) GetByNames(ctx context.Context, names []string) ([]domain.Actor, error) {
	query := fmt.Sprintf(`SELECT %s FROM actors WHERE name = ANY($1) ORDER BY id`, actorColumns)
	return collectActors(r.db.Query(ctx, query, names))
}

// List returns actors that match the provided filters ordered by id.
func (r *ActorsRepository) List(ctx context.Context, filters ActorListFilters) ([]domain.Actor, error) {
	args := make([]interface{}, 0)
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT ")
	queryBuilder.WriteString(actorColumns)
	queryBuilder.WriteString(" FROM actors")
	if filters.NameContains != nil && *filters.NameContains != "" {
		queryBuilder.WriteString(" WHERE name ILIKE ")
		queryBuilder.WriteString(arg(containsPattern(*filters.NameContains)))
	}
	queryBuilder.WriteString(" ORDER BY id")
	if filters.Page != nil {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT %s OFFSET %s", arg(filters.Page.Size), arg(filters.Page.offset())))
	}

	return collectActors(r.db.Query(ctx, queryBuilder.String(), args...))
}

// Count returns the number of stored actors.
func (r *ActorsRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM actors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count actors: %w", err)
	}
	return n, nil
}

// Update applies a partial update and returns the stored entity.
func (r *ActorsRepository) Update(ctx context.Context, id int64, params ActorUpdateParams) (domain.Actor, error) {
	query := fmt.Sprintf(`
        UPDATE actors
        SET name = COALESCE($2, name),
            birth_date = COALESCE($3, birth_date),
            updated_at = now()
        WHERE id = $1
        RETURNING %s
    `, actorColumns)
	actor, err := scanActor(r.db.QueryRow(ctx, query, id, params.Name, params.BirthDate))
	if err != nil {
		return domain.Actor{}, mapError(err)
	}
	return actor, nil
}

// Delete removes an actor; its join rows go with it.
func (r *ActorsRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM actors WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MovieCount returns how many movies the actor is linked to.
func (r *ActorsRepository) MovieCount(ctx context.Context, actorID int64) (int, error) {
	return actorLinks.countFor(ctx, r.db, actorID)
}

func scanActor(row pgx.Row) (domain.Actor, error) {
	var (
		actor     domain.Actor
		birthDate *time.Time
	)
	err := row.Scan(
		&actor.ID,
		&actor.Name,
		&birthDate,
		&actor.CreatedAt,
		&actor.UpdatedAt,
	)
	if err != nil {
		return domain.Actor{}, err
	}
	actor.BirthDate = birthDate
	return actor, nil
}

func collectActors(rows pgx.Rows, err error) ([]domain.Actor, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Actor, 0)
	for rows.Next() {
		actor, err := scanActor(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, actor)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

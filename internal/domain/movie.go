package domain

import "time"

// Movie represents the canonical movie entity in the database/service.
// Actors and Genres are populated only by calls that load relations.
type Movie struct {
	ID          int64
	Title       string
	ReleaseYear int
	Duration    int
	Actors      []Actor
	Genres      []Genre
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Actor is a performer that can be linked to many movies.
type Actor struct {
	ID        int64
	Name      string
	BirthDate *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Genre is a category that can be linked to many movies.
type Genre struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Bounds enforced on movie attributes.
const (
	MinReleaseYear = 0
	MaxReleaseYear = 2300
	MinDuration    = 0
	MaxDuration    = 1000
)

// DateLayout is the wire and storage layout of actor birth dates.
const DateLayout = "2006-01-02"

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/kmdb-api/internal/domain"
	"github.com/Clark-Hu/kmdb-api/internal/repository"
	"github.com/Clark-Hu/kmdb-api/internal/testutil/pgtest"
)

func newTestServices(t *testing.T) *Services {
	t.Helper()
	pool := pgtest.Start(t, "kmdb_service_test")
	return New(repository.NewWithPool(pool), nil, Options{MaxPageSize: 100})
}

// requireKind asserts err is a domain error of kind with the given message.
func requireKind(t *testing.T, err error, kind domain.Kind, message string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, domain.KindOf(err), "unexpected kind for %v", err)
	if message != "" {
		assert.EqualError(t, err, message)
	}
}

func seedCatalogue(t *testing.T, svc *Services) (drama, crime domain.Genre, pacino, brando domain.Actor) {
	t.Helper()
	ctx := context.Background()

	var err error
	drama, err = svc.Genres.Create(ctx, "drama")
	require.NoError(t, err)
	crime, err = svc.Genres.Create(ctx, "crime")
	require.NoError(t, err)

	birth := time.Date(1940, time.April, 25, 0, 0, 0, 0, time.UTC)
	pacino, err = svc.Actors.Create(ctx, ActorInput{Name: "Al Pacino", BirthDate: &birth})
	require.NoError(t, err)
	brando, err = svc.Actors.Create(ctx, ActorInput{Name: "Marlon Brando"})
	require.NoError(t, err)
	return drama, crime, pacino, brando
}

func TestCheckIDAndPage(t *testing.T) {
	requireKind(t, checkID("Movie", 0), domain.KindInvalidArgument, "Movie ID must be greater than 0")
	requireKind(t, checkID("Actor", -3), domain.KindInvalidArgument, "Actor ID must be greater than 0")
	assert.NoError(t, checkID("Genre", 1))

	opts := Options{MaxPageSize: 100}
	tests := []struct {
		name    string
		number  int
		size    int
		message string
	}{
		{name: "negative page", number: -1, size: 10, message: "Page index must not be less than zero"},
		{name: "zero size", number: 0, size: 0, message: "Page size must not be less than one"},
		{name: "oversized", number: 0, size: 101, message: "Page size must be less than or equal to 100"},
		{name: "ok", number: 2, size: 100},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			page, err := opts.page(tc.number, tc.size)
			if tc.message != "" {
				requireKind(t, err, domain.KindInvalidArgument, tc.message)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, repository.Page{Number: tc.number, Size: tc.size}, page)
		})
	}
}

func TestMovieDeleteBlockedMessage(t *testing.T) {
	assert.EqualError(t, movieDeleteBlocked("Heat", 2, 3), "Cannot delete movie 'Heat' because it is associated with 2 genre(s) and 3 actor(s)")
	assert.EqualError(t, movieDeleteBlocked("Heat", 1, 0), "Cannot delete movie 'Heat' because it is associated with 1 genre(s)")
	assert.EqualError(t, movieDeleteBlocked("Heat", 0, 4), "Cannot delete movie 'Heat' because it is associated with 4 actor(s)")
}

func TestCheckMovieFields(t *testing.T) {
	title, year, duration := " ", 2301, 1001
	err := checkMovieFields(&title, &year, &duration)
	requireKind(t, err, domain.KindValidation, "")

	var derr *domain.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, []string{
		"Title cannot be empty",
		"Movie release year must be between 0 and 2300",
		"Movie duration must be between 0 and 1000 minutes",
	}, derr.Messages)

	assert.NoError(t, checkMovieFields(nil, nil, nil))
}

func TestMovieService_CreateAndQuery(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	drama, crime, pacino, brando := seedCatalogue(t, svc)

	_, err := svc.Movies.List(ctx)
	requireKind(t, err, domain.KindNotFound, "No movies found in the database")

	godfather, err := svc.Movies.Create(ctx, MovieInput{
		Title:       "The Godfather",
		ReleaseYear: 1972,
		Duration:    175,
		Actors:      []string{"Marlon Brando", "Al Pacino", "Al Pacino"},
		Genres:      []string{"crime", "drama"},
	})
	require.NoError(t, err)
	assert.Positive(t, godfather.ID)
	require.Len(t, godfather.Actors, 2)
	assert.Equal(t, pacino.ID, godfather.Actors[0].ID)
	assert.Equal(t, brando.ID, godfather.Actors[1].ID)
	require.Len(t, godfather.Genres, 2)
	assert.Equal(t, drama.ID, godfather.Genres[0].ID)
	assert.Equal(t, crime.ID, godfather.Genres[1].ID)

	_, err = svc.Movies.Create(ctx, MovieInput{Title: "The Godfather", ReleaseYear: 1972})
	requireKind(t, err, domain.KindAlreadyExists, "Movie 'The Godfather' already exists in database")

	_, err = svc.Movies.Create(ctx, MovieInput{Title: "Scarface", ReleaseYear: 1983, Actors: []string{"Al Pacino", "Steven Bauer"}})
	requireKind(t, err, domain.KindNotFound, "Actor 'Steven Bauer' not found")
	_, err = svc.Movies.Create(ctx, MovieInput{Title: "Scarface", ReleaseYear: 1983, Genres: []string{"gangster"}})
	requireKind(t, err, domain.KindNotFound, "Genre 'gangster' not found")
	_, err = svc.Movies.SearchByTitle(ctx, "scarface")
	requireKind(t, err, domain.KindNotFound, "Movie with title containing 'scarface' does not exist")

	got, err := svc.Movies.Get(ctx, godfather.ID)
	require.NoError(t, err)
	assert.Equal(t, "The Godfather", got.Title)
	assert.Len(t, got.Actors, 2)

	_, err = svc.Movies.Get(ctx, 0)
	requireKind(t, err, domain.KindInvalidArgument, "Movie ID must be greater than 0")
	_, err = svc.Movies.Get(ctx, 999)
	requireKind(t, err, domain.KindNotFound, "Movie with ID 999 does not exist")

	found, err := svc.Movies.SearchByTitle(ctx, "GODFATHER")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	byYear, err := svc.Movies.ListByReleaseYear(ctx, 1972)
	require.NoError(t, err)
	assert.Len(t, byYear, 1)
	_, err = svc.Movies.ListByReleaseYear(ctx, 2301)
	requireKind(t, err, domain.KindInvalidArgument, "Release year must be between 0 and 2300")
	_, err = svc.Movies.ListByReleaseYear(ctx, 1990)
	requireKind(t, err, domain.KindNotFound, "No movies found with release year 1990")

	byGenre, err := svc.Movies.ListByGenre(ctx, drama.ID)
	require.NoError(t, err)
	assert.Len(t, byGenre, 1)
	byActor, err := svc.Movies.ListByActor(ctx, pacino.ID)
	require.NoError(t, err)
	assert.Len(t, byActor, 1)

	_, err = svc.Movies.ListPage(ctx, 1, 10)
	requireKind(t, err, domain.KindNotFound, "No movies found on page 1")
	page, err := svc.Movies.ListPage(ctx, 0, 10)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	count, err := svc.Movies.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestMovieService_UpdateIsPartial(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	drama, crime, pacino, _ := seedCatalogue(t, svc)

	heat, err := svc.Movies.Create(ctx, MovieInput{
		Title:       "Heat",
		ReleaseYear: 1995,
		Duration:    170,
		Actors:      []string{"Al Pacino"},
		Genres:      []string{"crime"},
	})
	require.NoError(t, err)
	_, err = svc.Movies.Create(ctx, MovieInput{Title: "Serpico", ReleaseYear: 1973, Duration: 130})
	require.NoError(t, err)

	duration := 171
	updated, err := svc.Movies.Update(ctx, heat.ID, MoviePatch{Duration: &duration, Genres: []string{}})
	require.NoError(t, err)
	assert.Equal(t, "Heat", updated.Title)
	assert.Equal(t, 1995, updated.ReleaseYear)
	assert.Equal(t, 171, updated.Duration)
	require.Len(t, updated.Genres, 1, "empty list must keep the genre set")
	assert.Equal(t, crime.ID, updated.Genres[0].ID)
	require.Len(t, updated.Actors, 1)
	assert.Equal(t, pacino.ID, updated.Actors[0].ID)

	updated, err = svc.Movies.Update(ctx, heat.ID, MoviePatch{Genres: []string{"drama"}})
	require.NoError(t, err)
	require.Len(t, updated.Genres, 1)
	assert.Equal(t, drama.ID, updated.Genres[0].ID)

	taken := "Serpico"
	_, err = svc.Movies.Update(ctx, heat.ID, MoviePatch{Title: &taken})
	requireKind(t, err, domain.KindAlreadyExists, "Movie 'Serpico' already exists in database")

	same := "Heat"
	_, err = svc.Movies.Update(ctx, heat.ID, MoviePatch{Title: &same})
	require.NoError(t, err)

	for _, empty := range []string{"", "   "} {
		updated, err = svc.Movies.Update(ctx, heat.ID, MoviePatch{Title: &empty})
		require.NoError(t, err, "blank title %q must be ignored", empty)
		assert.Equal(t, "Heat", updated.Title)
	}

	_, err = svc.Movies.Update(ctx, heat.ID, MoviePatch{Actors: []string{"Robert De Niro"}})
	requireKind(t, err, domain.KindNotFound, "Actor 'Robert De Niro' not found")
	actors, err := svc.Movies.Actors(ctx, heat.ID)
	require.NoError(t, err)
	assert.Len(t, actors, 1, "failed update must not touch the actor set")

	_, err = svc.Movies.Update(ctx, 404, MoviePatch{Duration: &duration})
	requireKind(t, err, domain.KindNotFound, "Movie with ID 404 does not exist")
}

func TestMovieService_LinksAndDelete(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	drama, _, pacino, _ := seedCatalogue(t, svc)

	movie, err := svc.Movies.Create(ctx, MovieInput{Title: "Dog Day Afternoon", ReleaseYear: 1975, Duration: 125})
	require.NoError(t, err)

	_, err = svc.Movies.Actors(ctx, movie.ID)
	requireKind(t, err, domain.KindNotFound, "No actors associated with movie 'Dog Day Afternoon'")
	_, err = svc.Movies.Genres(ctx, movie.ID)
	requireKind(t, err, domain.KindNotFound, "No genres associated with movie 'Dog Day Afternoon'")

	linked, err := svc.Movies.AssignGenre(ctx, movie.ID, drama.ID)
	require.NoError(t, err)
	assert.Len(t, linked.Genres, 1)
	_, err = svc.Movies.AssignGenre(ctx, movie.ID, drama.ID)
	requireKind(t, err, domain.KindAlreadyExists, "Movie 'Dog Day Afternoon' is already associated with genre 'drama'")
	_, err = svc.Movies.AssignGenre(ctx, movie.ID, 777)
	requireKind(t, err, domain.KindNotFound, "Genre with ID 777 does not exist")

	_, err = svc.Movies.AssignActor(ctx, movie.ID, pacino.ID)
	require.NoError(t, err)

	err = svc.Movies.Delete(ctx, movie.ID, false)
	requireKind(t, err, domain.KindConflict, "Cannot delete movie 'Dog Day Afternoon' because it is associated with 1 genre(s) and 1 actor(s)")

	require.NoError(t, svc.Movies.RemoveActor(ctx, movie.ID, pacino.ID))
	err = svc.Movies.RemoveActor(ctx, movie.ID, pacino.ID)
	requireKind(t, err, domain.KindNotFound, "Movie 'Dog Day Afternoon' is not associated with actor 'Al Pacino'")

	err = svc.Movies.Delete(ctx, movie.ID, false)
	requireKind(t, err, domain.KindConflict, "Cannot delete movie 'Dog Day Afternoon' because it is associated with 1 genre(s)")

	require.NoError(t, svc.Movies.Delete(ctx, movie.ID, true))
	_, err = svc.Movies.Get(ctx, movie.ID)
	requireKind(t, err, domain.KindNotFound, "")

	err = svc.Movies.Delete(ctx, movie.ID, true)
	requireKind(t, err, domain.KindNotFound, "")
	err = svc.Movies.Delete(ctx, -1, true)
	requireKind(t, err, domain.KindInvalidArgument, "Movie ID must be greater than 0")
}

func TestActorService_DeleteGuard(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	_, _, pacino, brando := seedCatalogue(t, svc)

	_, err := svc.Movies.Create(ctx, MovieInput{Title: "The Godfather", ReleaseYear: 1972, Actors: []string{"Al Pacino", "Marlon Brando"}})
	require.NoError(t, err)
	_, err = svc.Movies.Create(ctx, MovieInput{Title: "Heat", ReleaseYear: 1995, Actors: []string{"Al Pacino"}})
	require.NoError(t, err)

	movies, err := svc.Actors.Movies(ctx, pacino.ID)
	require.NoError(t, err)
	assert.Len(t, movies, 2)

	err = svc.Actors.Delete(ctx, pacino.ID, false)
	requireKind(t, err, domain.KindConflict, "Cannot delete actor 'Al Pacino' because they are associated with 2 movie(s)")

	require.NoError(t, svc.Actors.Delete(ctx, pacino.ID, true))
	_, err = svc.Actors.Get(ctx, pacino.ID)
	requireKind(t, err, domain.KindNotFound, "")

	godfather, err := svc.Movies.SearchByTitle(ctx, "godfather")
	require.NoError(t, err)
	require.Len(t, godfather[0].Actors, 1)
	assert.Equal(t, brando.ID, godfather[0].Actors[0].ID)
}

func TestActorService_CreateAndUpdate(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	_, _, pacino, _ := seedCatalogue(t, svc)

	_, err := svc.Actors.Create(ctx, ActorInput{Name: "Al Pacino"})
	requireKind(t, err, domain.KindAlreadyExists, "Actor 'Al Pacino' already exists in database")
	_, err = svc.Actors.Create(ctx, ActorInput{Name: "  "})
	requireKind(t, err, domain.KindValidation, "Name cannot be empty")

	birth := time.Date(1941, time.April, 25, 0, 0, 0, 0, time.UTC)
	updated, err := svc.Actors.Update(ctx, pacino.ID, ActorPatch{BirthDate: &birth})
	require.NoError(t, err)
	assert.Equal(t, "Al Pacino", updated.Name)
	require.NotNil(t, updated.BirthDate)
	assert.Equal(t, "1941-04-25", updated.BirthDate.Format(domain.DateLayout))

	empty := ""
	updated, err = svc.Actors.Update(ctx, pacino.ID, ActorPatch{Name: &empty})
	require.NoError(t, err)
	assert.Equal(t, "Al Pacino", updated.Name)
	require.NotNil(t, updated.BirthDate)

	taken := "Marlon Brando"
	_, err = svc.Actors.Update(ctx, pacino.ID, ActorPatch{Name: &taken})
	requireKind(t, err, domain.KindAlreadyExists, "Actor 'Marlon Brando' already exists in database")

	found, err := svc.Actors.SearchByName(ctx, "PACINO")
	require.NoError(t, err)
	assert.Len(t, found, 1)
	_, err = svc.Actors.SearchByName(ctx, "hanks")
	requireKind(t, err, domain.KindNotFound, "Actor with name containing 'hanks' does not exist")

	page, err := svc.Actors.ListPage(ctx, 0, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, pacino.ID, page[0].ID)

	_, err = svc.Actors.Movies(ctx, pacino.ID)
	requireKind(t, err, domain.KindNotFound, "No movies associated with actor 'Al Pacino'")
}

func TestGenreService(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	_, err := svc.Genres.List(ctx)
	requireKind(t, err, domain.KindNotFound, "No genres found in the database")

	drama, crime, _, _ := seedCatalogue(t, svc)

	_, err = svc.Genres.Create(ctx, "drama")
	requireKind(t, err, domain.KindAlreadyExists, "Genre 'drama' already exists in database")

	taken := "crime"
	_, err = svc.Genres.Update(ctx, drama.ID, GenrePatch{Name: &taken})
	requireKind(t, err, domain.KindAlreadyExists, "Genre 'crime' already exists in database")

	renamed := "melodrama"
	updated, err := svc.Genres.Update(ctx, drama.ID, GenrePatch{Name: &renamed})
	require.NoError(t, err)
	assert.Equal(t, "melodrama", updated.Name)

	unchanged, err := svc.Genres.Update(ctx, drama.ID, GenrePatch{})
	require.NoError(t, err)
	assert.Equal(t, "melodrama", unchanged.Name)

	blankName := "  "
	unchanged, err = svc.Genres.Update(ctx, drama.ID, GenrePatch{Name: &blankName})
	require.NoError(t, err)
	assert.Equal(t, "melodrama", unchanged.Name)

	_, err = svc.Movies.Create(ctx, MovieInput{Title: "Chinatown", ReleaseYear: 1974, Genres: []string{"crime"}})
	require.NoError(t, err)

	err = svc.Genres.Delete(ctx, crime.ID, false)
	requireKind(t, err, domain.KindConflict, "Cannot delete genre 'crime' because it is associated with 1 movie(s)")
	require.NoError(t, svc.Genres.Delete(ctx, drama.ID, false))

	all, err := svc.Genres.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	count, err := svc.Genres.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

package httpserver

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/Clark-Hu/kmdb-api/internal/domain"
)

type listMode int

const (
	listAll listMode = iota
	listCount
	listPage
	listSearch
	listReleaseYear
	listGenre
	listActor
)

const (
	defaultPage     = 0
	defaultPageSize = 10
)

// listQuery is the parsed form of a collection GET. Only the fields used by
// mode are meaningful.
type listQuery struct {
	mode   listMode
	page   int
	size   int
	search string
	year   int
	id     int64
}

// parseListQuery picks the first matching selector in the order count,
// page/size, searchKey, then (for movies) releaseYear, genre and actor.
func parseListQuery(values url.Values, searchKey string, movieFilters bool) (listQuery, error) {
	switch {
	case has(values, "count"):
		return listQuery{mode: listCount}, nil

	case has(values, "page") || has(values, "size"):
		page, err := queryInt(values, "page", defaultPage)
		if err != nil {
			return listQuery{}, err
		}
		size, err := queryInt(values, "size", defaultPageSize)
		if err != nil {
			return listQuery{}, err
		}
		return listQuery{mode: listPage, page: page, size: size}, nil

	case has(values, searchKey):
		return listQuery{mode: listSearch, search: strings.TrimSpace(values.Get(searchKey))}, nil
	}

	if !movieFilters {
		return listQuery{mode: listAll}, nil
	}

	switch {
	case has(values, "releaseYear"):
		raw := strings.TrimSpace(values.Get("releaseYear"))
		year, err := strconv.Atoi(raw)
		if err != nil {
			return listQuery{}, domain.InvalidArgument("Release year must be a number")
		}
		return listQuery{mode: listReleaseYear, year: year}, nil

	case has(values, "genre"):
		id, err := queryID(values, "genre", "Genre")
		if err != nil {
			return listQuery{}, err
		}
		return listQuery{mode: listGenre, id: id}, nil

	case has(values, "actor"):
		id, err := queryID(values, "actor", "Actor")
		if err != nil {
			return listQuery{}, err
		}
		return listQuery{mode: listActor, id: id}, nil
	}

	return listQuery{mode: listAll}, nil
}

func queryID(values url.Values, key, entity string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(values.Get(key)), 10, 64)
	if err != nil {
		return 0, domain.InvalidArgument("%s ID must be a number", entity)
	}
	return id, nil
}

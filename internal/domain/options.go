package domain

import "fmt"

// SortBy selects the field the backend sorts on
type SortBy string

const (
	SortByNone  SortBy = ""
	SortByName  SortBy = "name"
	SortByTitle SortBy = "title"
)

// SortDirection is the wire-level sort direction
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortOrder is the user-facing sort choice kept per collection kind
type SortOrder string

const (
	SortDefault    SortOrder = "default"
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// Next cycles default -> asc -> desc -> default
func (o SortOrder) Next() SortOrder {
	switch o {
	case SortAscending:
		return SortDescending
	case SortDescending:
		return SortDefault
	default:
		return SortAscending
	}
}

// FilterType tags the Filter variant
type FilterType string

const (
	FilterAll              FilterType = "all"
	FilterCategory         FilterType = "category"
	FilterFavorites        FilterType = "favorites"
	FilterRecentlyWatched  FilterType = "recently-watched"
	FilterWatchlist        FilterType = "watchlist"
	FilterContinueWatching FilterType = "continue-watching"
	FilterHistory          FilterType = "history"
)

// Filter narrows a collection. Channels use CategoryID, VOD category
// filters use CategoryName (a genre).
type Filter struct {
	Type         FilterType `json:"type"`
	CategoryID   *int64     `json:"categoryId,omitempty"`
	CategoryName string     `json:"categoryName,omitempty"`
}

// String returns a short label, e.g. "category(Action)"
func (f Filter) String() string {
	switch {
	case f.Type == "":
		return string(FilterAll)
	case f.CategoryName != "":
		return fmt.Sprintf("%s(%s)", f.Type, f.CategoryName)
	case f.CategoryID != nil:
		return fmt.Sprintf("%s(%d)", f.Type, *f.CategoryID)
	default:
		return string(f.Type)
	}
}

// FetchOptions describes one page request. Built fresh for every fetch.
type FetchOptions struct {
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	SearchTerm string        `json:"searchTerm"`
	SortBy     SortBy        `json:"sortBy"`
	SortOrder  SortDirection `json:"sortOrder"`
	Filter     Filter        `json:"filter"`
	ShowHidden bool          `json:"showHidden"`
}

// Validate checks the page preconditions
func (o FetchOptions) Validate() error {
	if o.Page < 1 {
		return fmt.Errorf("%w: page must be >= 1, got %d", ErrInvalidOptions, o.Page)
	}
	if o.PageSize <= 0 {
		return fmt.Errorf("%w: page size must be > 0, got %d", ErrInvalidOptions, o.PageSize)
	}
	return nil
}

// NextPage returns a copy of o for the following page
func (o FetchOptions) NextPage() FetchOptions {
	o.Page++
	return o
}

// WithSort maps a user-facing sort order onto the wire fields
func (o FetchOptions) WithSort(order SortOrder, by SortBy) FetchOptions {
	switch order {
	case SortAscending:
		o.SortBy, o.SortOrder = by, SortAsc
	case SortDescending:
		o.SortBy, o.SortOrder = by, SortDesc
	default:
		o.SortBy, o.SortOrder = SortByNone, SortAsc
	}
	return o
}

// CollectionKind names one paginated view owned by the store
type CollectionKind string

const (
	KindChannels         CollectionKind = "channels"
	KindFavoriteChannels CollectionKind = "favorite-channels"
	KindRecentChannels   CollectionKind = "recent-channels"
	KindMovies           CollectionKind = "movies"
	KindSeries           CollectionKind = "series"
	KindSeasons          CollectionKind = "seasons"
)

// View is a top-level screen of the application
type View string

const (
	ViewLiveTV          View = "live-tv"
	ViewFavorites       View = "favorites"
	ViewRecentlyWatched View = "recently-watched"
	ViewMovies          View = "movies"
	ViewSeries          View = "series"
	ViewPlaylists       View = "playlists"
	ViewSettings        View = "settings"
)

// Kind returns the collection a view renders, if any
func (v View) Kind() (CollectionKind, bool) {
	switch v {
	case ViewLiveTV:
		return KindChannels, true
	case ViewFavorites:
		return KindFavoriteChannels, true
	case ViewRecentlyWatched:
		return KindRecentChannels, true
	case ViewMovies:
		return KindMovies, true
	case ViewSeries:
		return KindSeries, true
	default:
		return "", false
	}
}

package backend

import (
	"context"
	"slices"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mmcdole/rebootv/internal/domain"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// failTerm makes any paginated query fail, for exercising error paths
const failTerm = "fail"

func vodFlagKey(typ domain.VODType, f domain.Flag) string {
	switch {
	case typ == domain.VODTypeSeries && f == domain.FlagWatchlist:
		return keySeriesWatchlist
	case typ == domain.VODTypeSeries:
		return keySeriesFavorites
	case f == domain.FlagWatchlist:
		return keyMovieWatchlist
	default:
		return keyMovieFavorites
	}
}

// Overlays apply user state to catalog entries. Caller holds b.mu.

func (b *Backend) channelView(c domain.Channel) domain.Channel {
	c.IsFavorite = b.flags[keyChannelFavorites][c.ID]
	c.IsHidden = b.flags[keyChannelHidden][c.ID]
	return c
}

func (b *Backend) vodView(v domain.VODItem) domain.VODItem {
	v.IsFavorite = b.flags[vodFlagKey(v.Type, domain.FlagFavorite)][v.ID]
	v.IsOnWatchlist = b.flags[vodFlagKey(v.Type, domain.FlagWatchlist)][v.ID]
	return v
}

func (b *Backend) categoryView(c domain.Category) domain.Category {
	c.IsHidden = b.flags[keyCategoryHidden][c.ID]
	return c
}

func (b *Backend) getChannels(_ context.Context, args domain.FetchArgs) (any, error) {
	opts := args.Options
	if err := checkQuery(opts); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	var items []domain.Channel
	if opts.Filter.Type == domain.FilterRecentlyWatched {
		// most recent first
		for _, id := range slices.Backward(b.recent) {
			if c, ok := b.findChannel(id); ok {
				items = append(items, b.channelView(c))
			}
		}
	} else {
		for _, c := range b.catalog.channels {
			items = append(items, b.channelView(c))
		}
	}

	items = slices.DeleteFunc(items, func(c domain.Channel) bool {
		if c.IsHidden != opts.ShowHidden {
			return true
		}
		if opts.Filter.Type == domain.FilterFavorites && !c.IsFavorite {
			return true
		}
		if id := opts.Filter.CategoryID; id != nil && c.CategoryID != *id {
			return true
		}
		return !matches(opts.SearchTerm, c.Name)
	})

	if opts.SortBy == domain.SortByName {
		sortByName(items, opts.SortOrder, func(c domain.Channel) string { return c.Name })
	}
	return paginate(items, opts), nil
}

func (b *Backend) getVOD(typ domain.VODType) func(context.Context, domain.FetchArgs) (any, error) {
	return func(_ context.Context, args domain.FetchArgs) (any, error) {
		opts := args.Options
		if err := checkQuery(opts); err != nil {
			return nil, err
		}

		b.mu.RLock()
		defer b.mu.RUnlock()

		source := b.catalog.movies
		if typ == domain.VODTypeSeries {
			source = b.catalog.series
		}

		items := make([]domain.VODItem, 0, len(source))
		for _, v := range source {
			v = b.vodView(v)
			if b.vodMatches(v, opts.Filter) && matches(opts.SearchTerm, v.Title) {
				items = append(items, v)
			}
		}

		if opts.SortBy == domain.SortByTitle {
			sortByName(items, opts.SortOrder, func(v domain.VODItem) string { return v.Title })
		}
		return paginate(items, opts), nil
	}
}

func (b *Backend) vodMatches(v domain.VODItem, f domain.Filter) bool {
	switch f.Type {
	case domain.FilterWatchlist:
		return v.IsOnWatchlist
	case domain.FilterFavorites:
		return v.IsFavorite
	case domain.FilterHistory:
		_, ok := b.history[v.HistoryKey()]
		return ok
	case domain.FilterContinueWatching:
		h, ok := b.history[v.HistoryKey()]
		return ok && !h.IsFinished
	case domain.FilterCategory:
		return f.CategoryName == "" || slices.Contains(v.Genres, f.CategoryName)
	default:
		return true
	}
}

func (b *Backend) getSeasons(_ context.Context, args domain.SeriesArgs) (any, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	seasons := b.catalog.seasons[args.SeriesID]
	if seasons == nil {
		return []domain.Season{}, nil
	}
	return seasons, nil
}

func (b *Backend) findChannel(id int64) (domain.Channel, bool) {
	i := slices.IndexFunc(b.catalog.channels, func(c domain.Channel) bool { return c.ID == id })
	if i < 0 {
		return domain.Channel{}, false
	}
	return b.catalog.channels[i], true
}

func (b *Backend) findVOD(typ domain.VODType, id int64) (domain.VODItem, bool) {
	source := b.catalog.movies
	if typ == domain.VODTypeSeries {
		source = b.catalog.series
	}
	i := slices.IndexFunc(source, func(v domain.VODItem) bool { return v.ID == id })
	if i < 0 {
		return domain.VODItem{}, false
	}
	return source[i], true
}

func checkQuery(opts domain.FetchOptions) error {
	if strings.EqualFold(strings.TrimSpace(opts.SearchTerm), failTerm) {
		return domain.ErrSimulatedFailure
	}
	return opts.Validate()
}

// matches reports whether term fuzzily matches name, ignoring case and
// diacritics. An empty term matches everything.
func matches(term, name string) bool {
	term = strings.TrimSpace(term)
	return term == "" || fuzzy.MatchNormalizedFold(term, name)
}

func sortByName[T any](items []T, dir domain.SortDirection, name func(T) string) {
	col := collate.New(language.English, collate.IgnoreCase)
	slices.SortStableFunc(items, func(a, b T) int {
		if dir == domain.SortDesc {
			a, b = b, a
		}
		return col.CompareString(name(a), name(b))
	})
}

func paginate[T any](items []T, opts domain.FetchOptions) domain.Page[T] {
	total := len(items)
	if opts.Page-1 > total/opts.PageSize {
		return domain.Page[T]{Items: []T{}, Total: total}
	}
	start := (opts.Page - 1) * opts.PageSize
	end := start + min(opts.PageSize, total-start)
	page := items[start:end]
	if page == nil {
		page = []T{}
	}
	return domain.Page[T]{
		Items:   page,
		HasMore: end < total,
		Total:   total,
	}
}

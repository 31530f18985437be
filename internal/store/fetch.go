package store

import (
	"context"
	"slices"
	"sync"

	"github.com/mmcdole/rebootv/internal/domain"
)

// collectionStatus holds the item-type independent state of a collection
type collectionStatus struct {
	loading *Cell[bool]
	err     *Cell[string]
}

// fetchRequest is the last fetch issued for a collection, kept for Retry
type fetchRequest struct {
	opts       domain.FetchOptions
	appendPage bool
}

// collection is one paginated view owned by the store
type collection[T domain.Entity[T]] struct {
	collectionStatus
	page *Cell[domain.Page[T]]

	kind    domain.CollectionKind
	command string
	label   string

	// member reports whether item still belongs in a page fetched with opts
	member func(opts domain.FetchOptions, item T) bool

	epoch     uint64
	applied   domain.FetchOptions // options of the page currently held
	fetched   bool
	requested *fetchRequest
}

func newCollection[T domain.Entity[T]](
	lock *sync.RWMutex,
	kind domain.CollectionKind,
	command, label string,
	member func(domain.FetchOptions, T) bool,
) *collection[T] {
	return &collection[T]{
		collectionStatus: collectionStatus{
			loading: newCell(lock, false),
			err:     newCell(lock, ""),
		},
		page:    newCell(lock, domain.Page[T]{Items: []T{}}),
		kind:    kind,
		command: command,
		label:   label,
		member:  member,
	}
}

// channelMember keeps the hidden filter exclusive and drops channels
// that are no longer favorites from a favorites page.
func channelMember(opts domain.FetchOptions, ch domain.Channel) bool {
	if ch.IsHidden != opts.ShowHidden {
		return false
	}
	if opts.Filter.Type == domain.FilterFavorites && !ch.IsFavorite {
		return false
	}
	return true
}

func vodMember(opts domain.FetchOptions, item domain.VODItem) bool {
	switch opts.Filter.Type {
	case domain.FilterWatchlist:
		return item.IsOnWatchlist
	case domain.FilterFavorites:
		return item.IsFavorite
	default:
		return true
	}
}

// fetchPage requests one page for c and applies it unless a newer fetch
// for the same collection was issued in the meantime.
func fetchPage[T domain.Entity[T]](ctx context.Context, s *Store, c *collection[T], opts domain.FetchOptions, appendPage bool) {
	if err := opts.Validate(); err != nil {
		s.logger.Error("rejected fetch", "kind", c.kind, "error", err)
		s.commit(func(t *tx) {
			// supersede anything still in flight
			c.epoch++
			set(t, c.loading, false)
			set(t, c.err, err.Error())
		})
		return
	}

	var epoch uint64
	s.commit(func(t *tx) {
		c.epoch++
		epoch = c.epoch
		c.requested = &fetchRequest{opts: opts, appendPage: appendPage}
		set(t, c.loading, true)
		set(t, c.err, "")
	})

	s.logger.Debug("fetching page", "kind", c.kind, "page", opts.Page, "filter", opts.Filter.String(), "append", appendPage)

	var result domain.Page[T]
	err := s.gw.Invoke(ctx, c.command, domain.FetchArgs{Options: opts}, &result)

	stale := false
	s.commit(func(t *tx) {
		if c.epoch != epoch {
			stale = true
			return
		}
		set(t, c.loading, false)
		if err != nil {
			set(t, c.err, domain.ErrorMessage(err))
			return
		}

		next := domain.Page[T]{Items: result.Items, HasMore: result.HasMore, Total: result.Total}
		if appendPage {
			next.Items = append(slices.Clone(c.page.val.Items), result.Items...)
		}
		if next.Items == nil {
			next.Items = []T{}
		}
		set(t, c.page, next)
		c.applied = opts
		c.fetched = true
	})

	switch {
	case stale:
		s.logger.Debug("discarded stale page", "kind", c.kind, "page", opts.Page)
	case err != nil:
		s.logger.Error("failed to fetch page", "error", err, "kind", c.kind, "page", opts.Page)
		s.notify(domain.LevelError, "Error fetching %s: %s", c.label, domain.ErrorMessage(err))
	}
}

// nextPage returns the options for the page after the one held by c.
// Nothing is loaded while a fetch of c is in flight: the held page may
// belong to options that a pending reset is about to replace.
func nextPage[T domain.Entity[T]](s *Store, c *collection[T]) (domain.FetchOptions, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !c.fetched || !c.page.val.HasMore || c.loading.val {
		return domain.FetchOptions{}, false
	}
	return c.applied.NextPage(), true
}

func lastRequest[T domain.Entity[T]](s *Store, c *collection[T]) (fetchRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c.requested == nil {
		return fetchRequest{}, false
	}
	return *c.requested, true
}

// Fetch loads one page of kind. With appendPage the items are added to
// the end of the current page, otherwise the collection is replaced.
// A response that arrives after a newer fetch of the same kind was
// issued is discarded.
func (s *Store) Fetch(ctx context.Context, kind domain.CollectionKind, opts domain.FetchOptions, appendPage bool) {
	switch kind {
	case domain.KindChannels, domain.KindFavoriteChannels, domain.KindRecentChannels:
		s.mu.Lock()
		o := opts
		s.lastChannelOpts = &o
		s.mu.Unlock()
		fetchPage(ctx, s, s.channelCollection(kind), opts, appendPage)
	case domain.KindMovies:
		fetchPage(ctx, s, s.movies, opts, appendPage)
	case domain.KindSeries:
		fetchPage(ctx, s, s.series, opts, appendPage)
	default:
		s.logger.Error("fetch of unknown collection", "kind", kind)
	}
}

// FetchChannels routes a channel request to the collection its filter
// selects: favorites, recently watched or the live list.
func (s *Store) FetchChannels(ctx context.Context, opts domain.FetchOptions, appendPage bool) {
	s.Fetch(ctx, channelKindFor(opts.Filter), opts, appendPage)
}

// LoadMore appends the next page of kind if the backend reported more
func (s *Store) LoadMore(ctx context.Context, kind domain.CollectionKind) {
	var (
		opts domain.FetchOptions
		ok   bool
	)
	switch kind {
	case domain.KindChannels, domain.KindFavoriteChannels, domain.KindRecentChannels:
		opts, ok = nextPage(s, s.channelCollection(kind))
	case domain.KindMovies:
		opts, ok = nextPage(s, s.movies)
	case domain.KindSeries:
		opts, ok = nextPage(s, s.series)
	}
	if ok {
		s.Fetch(ctx, kind, opts, true)
	}
}

// Retry reissues the last request of kind, typically after an error
func (s *Store) Retry(ctx context.Context, kind domain.CollectionKind) {
	var (
		req fetchRequest
		ok  bool
	)
	switch kind {
	case domain.KindChannels, domain.KindFavoriteChannels, domain.KindRecentChannels:
		req, ok = lastRequest(s, s.channelCollection(kind))
	case domain.KindMovies:
		req, ok = lastRequest(s, s.movies)
	case domain.KindSeries:
		req, ok = lastRequest(s, s.series)
	}
	if ok {
		s.Fetch(ctx, kind, req.opts, req.appendPage)
	}
}

// Reload fetches page 1 of the collection the current view renders
func (s *Store) Reload(ctx context.Context) {
	kind, ok := s.currentView.Get().Kind()
	if !ok {
		return
	}
	s.refetch(ctx, kind)
}

// refetch loads page 1 of kind using the current filter and sort state
func (s *Store) refetch(ctx context.Context, kind domain.CollectionKind) {
	s.Fetch(ctx, kind, s.OptionsFor(kind), false)
}

// OptionsFor builds page-1 options for kind from the current filter,
// search and sort state
func (s *Store) OptionsFor(kind domain.CollectionKind) domain.FetchOptions {
	s.mu.RLock()
	defer s.mu.RUnlock()

	opts := domain.FetchOptions{
		Page:       1,
		PageSize:   s.pageSize,
		SearchTerm: s.searchTerm.val,
		Filter:     domain.Filter{Type: domain.FilterAll},
	}

	var category *int64
	if id := s.selectedCategory.val; id != nil {
		v := *id
		category = &v
	}

	switch kind {
	case domain.KindChannels:
		if category != nil {
			opts.Filter = domain.Filter{Type: domain.FilterCategory, CategoryID: category}
		}
		opts.ShowHidden = s.showHiddenChannels.val
		opts = opts.WithSort(s.channelSort.val, domain.SortByName)
	case domain.KindFavoriteChannels:
		opts.Filter = domain.Filter{Type: domain.FilterFavorites, CategoryID: category}
		opts.ShowHidden = s.showHiddenChannels.val
		opts = opts.WithSort(s.channelSort.val, domain.SortByName)
	case domain.KindRecentChannels:
		opts.Filter = domain.Filter{Type: domain.FilterRecentlyWatched, CategoryID: category}
		opts.ShowHidden = s.showHiddenChannels.val
		opts = opts.WithSort(s.channelSort.val, domain.SortByName)
	case domain.KindMovies:
		opts.Filter = s.vodFilter.val
		opts = opts.WithSort(s.movieSort.val, domain.SortByTitle)
	case domain.KindSeries:
		opts.Filter = s.vodFilter.val
		opts = opts.WithSort(s.seriesSort.val, domain.SortByTitle)
	}
	return opts
}

func (s *Store) channelCollection(kind domain.CollectionKind) *collection[domain.Channel] {
	switch kind {
	case domain.KindFavoriteChannels:
		return s.favorites
	case domain.KindRecentChannels:
		return s.recent
	default:
		return s.channels
	}
}

func channelKindFor(f domain.Filter) domain.CollectionKind {
	switch f.Type {
	case domain.FilterFavorites:
		return domain.KindFavoriteChannels
	case domain.FilterRecentlyWatched:
		return domain.KindRecentChannels
	default:
		return domain.KindChannels
	}
}

// FetchSeasons loads the seasons of a series. Only the latest request wins.
func (s *Store) FetchSeasons(ctx context.Context, seriesID int64) {
	var epoch uint64
	s.commit(func(t *tx) {
		s.seasonsEpoch++
		epoch = s.seasonsEpoch
		set(t, s.seasonsLoading, true)
	})

	var seasons []domain.Season
	err := s.gw.Invoke(ctx, domain.CmdGetSeasons, domain.SeriesArgs{SeriesID: seriesID}, &seasons)

	stale := false
	s.commit(func(t *tx) {
		if s.seasonsEpoch != epoch {
			stale = true
			return
		}
		set(t, s.seasonsLoading, false)
		if err != nil {
			set(t, s.seasons, []domain.Season{})
			return
		}
		if seasons == nil {
			seasons = []domain.Season{}
		}
		set(t, s.seasons, seasons)
	})

	if stale {
		s.logger.Debug("discarded stale seasons", "seriesID", seriesID)
		return
	}
	if err != nil {
		s.logger.Error("failed to fetch seasons", "error", err, "seriesID", seriesID)
		s.notify(domain.LevelError, "Error fetching seasons: %s", domain.ErrorMessage(err))
	}
}

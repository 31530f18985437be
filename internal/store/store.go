package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mmcdole/rebootv/internal/domain"
)

// DefaultPageSize is used when Options.PageSize is not positive
const DefaultPageSize = 48

// SettingsLoader loads persisted application settings during Init
type SettingsLoader interface {
	Load(ctx context.Context) error
}

// Options configures a Store
type Options struct {
	PageSize    int
	DefaultView domain.View

	// Now is the clock used for reminder scheduling. Defaults to time.Now.
	Now func() time.Time
}

// Store owns all view state of the client: paginated collections,
// selections, filters and sort orders. Every piece of state is exposed
// as a read-only Cell; the methods are the only write surface.
//
// Backend failures never escape a Store method. They end up in the
// per-collection error cells and in notifications.
type Store struct {
	gw       domain.Gateway
	notifier domain.Notifier
	settings SettingsLoader
	logger   *slog.Logger
	pageSize int
	now      func() time.Time

	// mu guards every cell value and the bookkeeping fields below
	mu sync.RWMutex

	channels  *collection[domain.Channel]
	favorites *collection[domain.Channel]
	recent    *collection[domain.Channel]
	movies    *collection[domain.VODItem]
	series    *collection[domain.VODItem]

	seasons        *Cell[[]domain.Season]
	seasonsLoading *Cell[bool]
	seasonsEpoch   uint64

	selectedChannel  *Cell[*domain.Channel]
	selectedVODItem  *Cell[*domain.VODItem]
	selectedEpisode  *Cell[*domain.Episode]
	selectedSeries   *Cell[*domain.VODItem]
	selectedSeason   *Cell[*domain.Season]
	selectedPlaylist *Cell[*domain.Playlist]

	currentView          *Cell[domain.View]
	searchTerm           *Cell[string]
	selectedCategory     *Cell[*int64]
	vodFilter            *Cell[domain.Filter]
	channelSort          *Cell[domain.SortOrder]
	movieSort            *Cell[domain.SortOrder]
	seriesSort           *Cell[domain.SortOrder]
	categorySort         *Cell[domain.SortOrder]
	showHiddenChannels   *Cell[bool]
	showHiddenCategories *Cell[bool]

	playlists    *Cell[[]domain.Playlist]
	categories   *Cell[[]domain.Category]
	watchHistory *Cell[map[string]domain.WatchHistory]

	initializing           *Cell[bool]
	initialRefreshComplete *Cell[bool]
	firstRefresh           bool

	// last channel request, replayed on epg-complete
	lastChannelOpts *domain.FetchOptions

	mutations *keyLock

	watchMu  sync.Mutex
	watchers map[uint64]func()
	watchID  uint64

	ctx    context.Context
	cancel context.CancelFunc
	unsubs []func()
}

// New creates a store and subscribes it to backend push events.
// Call Close to detach it.
func New(gw domain.Gateway, notifier domain.Notifier, settings SettingsLoader, opts Options, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.DefaultView == "" {
		opts.DefaultView = domain.ViewLiveTV
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Store{
		gw:           gw,
		notifier:     notifier,
		settings:     settings,
		logger:       logger,
		pageSize:     opts.PageSize,
		now:          opts.Now,
		mutations:    newKeyLock(),
		watchers:     make(map[uint64]func()),
		firstRefresh: true,
	}
	l := &s.mu

	s.channels = newCollection(l, domain.KindChannels, domain.CmdGetChannels, "channels", channelMember)
	s.favorites = newCollection(l, domain.KindFavoriteChannels, domain.CmdGetChannels, "channels", channelMember)
	s.recent = newCollection(l, domain.KindRecentChannels, domain.CmdGetChannels, "channels", channelMember)
	s.movies = newCollection(l, domain.KindMovies, domain.CmdGetMovies, "movies", vodMember)
	s.series = newCollection(l, domain.KindSeries, domain.CmdGetSeries, "series", vodMember)

	s.seasons = newCell[[]domain.Season](l, nil)
	s.seasonsLoading = newCell(l, false)

	s.selectedChannel = newCell[*domain.Channel](l, nil)
	s.selectedVODItem = newCell[*domain.VODItem](l, nil)
	s.selectedEpisode = newCell[*domain.Episode](l, nil)
	s.selectedSeries = newCell[*domain.VODItem](l, nil)
	s.selectedSeason = newCell[*domain.Season](l, nil)
	s.selectedPlaylist = newCell[*domain.Playlist](l, nil)

	s.currentView = newCell(l, opts.DefaultView)
	s.searchTerm = newCell(l, "")
	s.selectedCategory = newCell[*int64](l, nil)
	s.vodFilter = newCell(l, domain.Filter{Type: domain.FilterAll})
	s.channelSort = newCell(l, domain.SortDefault)
	s.movieSort = newCell(l, domain.SortDefault)
	s.seriesSort = newCell(l, domain.SortDefault)
	s.categorySort = newCell(l, domain.SortDefault)
	s.showHiddenChannels = newCell(l, false)
	s.showHiddenCategories = newCell(l, false)

	s.playlists = newCell[[]domain.Playlist](l, nil)
	s.categories = newCell[[]domain.Category](l, nil)
	s.watchHistory = newCell(l, map[string]domain.WatchHistory{})

	s.initializing = newCell(l, true)
	s.initialRefreshComplete = newCell(l, false)

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.listen()

	return s
}

// Close detaches the store from backend events and cancels work started by them
func (s *Store) Close() {
	s.cancel()
	for _, unsubscribe := range s.unsubs {
		unsubscribe()
	}
	s.unsubs = nil
}

// commit runs fn under the store lock and then notifies subscribers of
// every cell fn wrote. All writes of one commit become visible together.
func (s *Store) commit(fn func(t *tx)) {
	t := &tx{dirty: make(map[any]func())}
	s.mu.Lock()
	fn(t)
	s.mu.Unlock()

	if len(t.order) == 0 {
		return
	}
	t.flush()

	s.watchMu.Lock()
	watchers := make([]func(), 0, len(s.watchers))
	for _, w := range s.watchers {
		watchers = append(watchers, w)
	}
	s.watchMu.Unlock()
	for _, w := range watchers {
		w()
	}
}

// Watch registers fn to be called after every commit that changed state
func (s *Store) Watch(fn func()) (unsubscribe func()) {
	s.watchMu.Lock()
	id := s.watchID
	s.watchID++
	s.watchers[id] = fn
	s.watchMu.Unlock()

	return func() {
		s.watchMu.Lock()
		delete(s.watchers, id)
		s.watchMu.Unlock()
	}
}

// === Collections ===

func (s *Store) Channels() *Cell[domain.Page[domain.Channel]]         { return s.channels.page }
func (s *Store) FavoriteChannels() *Cell[domain.Page[domain.Channel]] { return s.favorites.page }
func (s *Store) RecentChannels() *Cell[domain.Page[domain.Channel]]   { return s.recent.page }
func (s *Store) Movies() *Cell[domain.Page[domain.VODItem]]           { return s.movies.page }
func (s *Store) Series() *Cell[domain.Page[domain.VODItem]]           { return s.series.page }
func (s *Store) Seasons() *Cell[[]domain.Season]                      { return s.seasons }
func (s *Store) SeasonsLoading() *Cell[bool]                          { return s.seasonsLoading }

// Loading returns the in-flight flag of kind
func (s *Store) Loading(kind domain.CollectionKind) *Cell[bool] {
	if kind == domain.KindSeasons {
		return s.seasonsLoading
	}
	c := s.status(kind)
	if c == nil {
		return nil
	}
	return c.loading
}

// Error returns the last fetch error message of kind ("" when none)
func (s *Store) Error(kind domain.CollectionKind) *Cell[string] {
	c := s.status(kind)
	if c == nil {
		return nil
	}
	return c.err
}

// status returns the loading/error cells of kind without its item type
func (s *Store) status(kind domain.CollectionKind) *collectionStatus {
	switch kind {
	case domain.KindChannels:
		return &s.channels.collectionStatus
	case domain.KindFavoriteChannels:
		return &s.favorites.collectionStatus
	case domain.KindRecentChannels:
		return &s.recent.collectionStatus
	case domain.KindMovies:
		return &s.movies.collectionStatus
	case domain.KindSeries:
		return &s.series.collectionStatus
	default:
		return nil
	}
}

// === Selection ===

func (s *Store) SelectedChannel() *Cell[*domain.Channel]   { return s.selectedChannel }
func (s *Store) SelectedVODItem() *Cell[*domain.VODItem]   { return s.selectedVODItem }
func (s *Store) SelectedEpisode() *Cell[*domain.Episode]   { return s.selectedEpisode }
func (s *Store) SelectedSeries() *Cell[*domain.VODItem]    { return s.selectedSeries }
func (s *Store) SelectedSeason() *Cell[*domain.Season]     { return s.selectedSeason }
func (s *Store) SelectedPlaylist() *Cell[*domain.Playlist] { return s.selectedPlaylist }

// === Filters ===

func (s *Store) CurrentView() *Cell[domain.View]            { return s.currentView }
func (s *Store) SearchTerm() *Cell[string]                  { return s.searchTerm }
func (s *Store) SelectedCategory() *Cell[*int64]            { return s.selectedCategory }
func (s *Store) VODFilter() *Cell[domain.Filter]            { return s.vodFilter }
func (s *Store) ChannelSortOrder() *Cell[domain.SortOrder]  { return s.channelSort }
func (s *Store) MovieSortOrder() *Cell[domain.SortOrder]    { return s.movieSort }
func (s *Store) SeriesSortOrder() *Cell[domain.SortOrder]   { return s.seriesSort }
func (s *Store) CategorySortOrder() *Cell[domain.SortOrder] { return s.categorySort }
func (s *Store) ShowHiddenChannels() *Cell[bool]            { return s.showHiddenChannels }
func (s *Store) ShowHiddenCategories() *Cell[bool]          { return s.showHiddenCategories }

// === Application ===

func (s *Store) Playlists() *Cell[[]domain.Playlist]                 { return s.playlists }
func (s *Store) Categories() *Cell[[]domain.Category]                { return s.categories }
func (s *Store) WatchHistory() *Cell[map[string]domain.WatchHistory] { return s.watchHistory }
func (s *Store) Initializing() *Cell[bool]                           { return s.initializing }
func (s *Store) InitialRefreshComplete() *Cell[bool]                 { return s.initialRefreshComplete }

// notify reports an outcome to the user, if a notifier is configured
func (s *Store) notify(level domain.Level, format string, args ...any) {
	if s.notifier == nil {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	s.notifier.Show(msg, level)
}

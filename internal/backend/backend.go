package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/mmcdole/rebootv/internal/bridge"
	"github.com/mmcdole/rebootv/internal/domain"
)

// lockedPlaylistID cannot be deleted by the user
const lockedPlaylistID = 4

// Options configures the simulated backend
type Options struct {
	// Seed drives the generated season and episode counts
	Seed uint64

	// RefreshDelay is the simulated download time of a playlist refresh
	RefreshDelay time.Duration

	// EPGDelay is the simulated duration of an EPG refresh
	EPGDelay time.Duration

	Now func() time.Time
}

// Emitter delivers push events to the client
type Emitter interface {
	Emit(event string, payload any)
}

// Backend is the native engine behind the bridge: a generated catalog
// plus user state persisted in Storage.
type Backend struct {
	storage      *Storage
	logger       *slog.Logger
	now          func() time.Time
	refreshDelay time.Duration
	epgDelay     time.Duration

	mu        sync.RWMutex
	catalog   *catalog
	playlists []domain.Playlist
	flags     map[string]map[int64]bool
	recent    []int64 // oldest first
	history   map[string]domain.WatchHistory

	emitter Emitter

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds the backend on top of storage. State missing from storage
// is seeded and written back.
func New(storage *Storage, opts Options, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	now := opts.Now()
	cat, seed := newCatalog(opts.Seed, now)

	ctx, cancel := context.WithCancel(context.Background())
	b := &Backend{
		storage:      storage,
		logger:       logger,
		now:          opts.Now,
		refreshDelay: opts.RefreshDelay,
		epgDelay:     opts.EPGDelay,
		catalog:      cat,
		flags:        make(map[string]map[int64]bool),
		ctx:          ctx,
		cancel:       cancel,
	}

	if err := b.load(now, seed); err != nil {
		cancel()
		return nil, err
	}
	return b, nil
}

func (b *Backend) load(now time.Time, seed seedState) error {
	playlists, ok := b.storage.Playlists()
	if !ok {
		playlists = seedPlaylists(now)
		if err := b.storage.SavePlaylists(playlists); err != nil {
			return err
		}
	}
	b.playlists = playlists

	defaults := map[string][]int64{
		keyChannelFavorites: seed.channelFavorites,
		keyChannelHidden:    nil,
		keyMovieFavorites:   seed.movieFavorites,
		keyMovieWatchlist:   seed.movieWatchlist,
		keySeriesFavorites:  seed.seriesFavorites,
		keySeriesWatchlist:  seed.seriesWatchlist,
		keyCategoryHidden:   seed.categoryHidden,
	}
	for key, ids := range defaults {
		stored, ok := b.storage.IDs(key)
		if !ok {
			stored = ids
			if err := b.storage.SaveIDs(key, ids); err != nil {
				return err
			}
		}
		b.flags[key] = toSet(stored)
	}

	b.recent, _ = b.storage.IDs(keyRecentChannels)

	history, ok := b.storage.History()
	if !ok {
		history = seed.history
		if err := b.storage.SaveHistory(history); err != nil {
			return err
		}
	}
	b.history = history
	return nil
}

// Register installs every command handler on br and uses it to emit
// push events
func (b *Backend) Register(br *bridge.Bridge) {
	b.emitter = br

	for command, h := range map[string]bridge.HandlerFunc{
		domain.CmdInitializeDatabase: b.initializeDatabase,
		domain.CmdGetSettings:        b.getSettings,
		domain.CmdSaveSettings:       b.saveSettings,

		domain.CmdGetPlaylists:        b.getPlaylists,
		domain.CmdAddPlaylist:         handle(b.addPlaylist),
		domain.CmdUpdatePlaylist:      handle(b.updatePlaylist),
		domain.CmdDeletePlaylist:      handle(b.deletePlaylist),
		domain.CmdSetPlaylistActive:   handle(b.setPlaylistActive),
		domain.CmdRefreshPlaylist:     handle(b.refreshPlaylist),
		domain.CmdRefreshAllPlaylists: b.refreshAllPlaylists,
		domain.CmdRefreshEPG:          b.refreshEPG,

		domain.CmdGetCategories:            b.getCategories,
		domain.CmdToggleCategoryVisibility: handle(b.toggleCategoryVisibility),
		domain.CmdBatchCategoryVisibility:  handle(b.batchCategoryVisibility),

		domain.CmdGetChannels:             handle(b.getChannels),
		domain.CmdToggleChannelFavorite:   handle(b.toggleChannel(keyChannelFavorites)),
		domain.CmdToggleChannelVisibility: handle(b.toggleChannel(keyChannelHidden)),
		domain.CmdBatchChannelFavorite:    handle(b.batchChannels(keyChannelFavorites)),
		domain.CmdBatchChannelVisibility:  handle(b.batchChannels(keyChannelHidden)),

		domain.CmdGetMovies:          handle(b.getVOD(domain.VODTypeMovie)),
		domain.CmdGetSeries:          handle(b.getVOD(domain.VODTypeSeries)),
		domain.CmdGetSeasons:         handle(b.getSeasons),
		domain.CmdToggleVODFavorite:  handle(b.toggleVOD(domain.FlagFavorite)),
		domain.CmdToggleVODWatchlist: handle(b.toggleVOD(domain.FlagWatchlist)),
		domain.CmdBatchVODFavorite:   handle(b.batchVOD(domain.FlagFavorite)),
		domain.CmdBatchVODWatchlist:  handle(b.batchVOD(domain.FlagWatchlist)),

		domain.CmdAddRecentlyWatched:   handle(b.addRecentlyWatched),
		domain.CmdGetWatchHistory:      b.getWatchHistory,
		domain.CmdScheduleNotification: handle(b.scheduleNotification),
		domain.CmdClearImageCache:      b.clearCache("image"),
		domain.CmdClearEPGCache:        b.clearCache("epg"),
		domain.CmdExportUserData:       handle(b.exportUserData),
		domain.CmdImportUserData:       handle(b.importUserData),
	} {
		br.Register(command, h)
	}
}

// Close stops background refreshes and waits for them to exit
func (b *Backend) Close() {
	b.cancel()
	b.wg.Wait()
}

// handle adapts a typed handler to a bridge.HandlerFunc
func handle[A any](fn func(ctx context.Context, args A) (any, error)) bridge.HandlerFunc {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		args, err := bridge.Decode[A](raw)
		if err != nil {
			return nil, err
		}
		return fn(ctx, args)
	}
}

// emit must not be called with b.mu held
func (b *Backend) emit(event string, payload any) {
	if b.emitter == nil {
		return
	}
	b.emitter.Emit(event, payload)
}

// background runs fn on its own goroutine, tracked by Close
func (b *Backend) background(fn func(ctx context.Context)) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		fn(b.ctx)
	}()
}

// sleep waits for d or until ctx is done. Reports whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func toSet(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func sortedIDs(set map[int64]bool) []int64 {
	ids := make([]int64, 0, len(set))
	for id, ok := range set {
		if ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// setFlag updates the flag set under key and persists it. The in-memory
// set is only replaced once the write succeeded. Caller holds b.mu.
func (b *Backend) setFlag(key string, ids []int64, v bool) error {
	set := maps.Clone(b.flags[key])
	if set == nil {
		set = make(map[int64]bool)
	}
	for _, id := range ids {
		if v {
			set[id] = true
		} else {
			delete(set, id)
		}
	}
	if err := b.storage.SaveIDs(key, sortedIDs(set)); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	b.flags[key] = set
	return nil
}

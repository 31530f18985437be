package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/mmcdole/rebootv/internal/domain"
	"golang.org/x/sync/errgroup"
)

func (b *Backend) initializeDatabase(context.Context, json.RawMessage) (any, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	b.logger.Info("database ready",
		"playlists", len(b.playlists),
		"channels", len(b.catalog.channels),
		"movies", len(b.catalog.movies),
		"series", len(b.catalog.series))
	return nil, nil
}

func (b *Backend) getPlaylists(context.Context, json.RawMessage) (any, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.playlists), nil
}

func (b *Backend) playlistIndex(id int64) int {
	return slices.IndexFunc(b.playlists, func(p domain.Playlist) bool { return p.ID == id })
}

func (b *Backend) addPlaylist(_ context.Context, args domain.AddPlaylistArgs) (any, error) {
	in := args.PlaylistData
	if in.Name == "" || in.URL == "" {
		return nil, errors.New("playlist name and url are required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var next int64
	for _, p := range b.playlists {
		next = max(next, p.ID)
	}
	now := b.now()
	p := domain.Playlist{
		ID:             next + 1,
		Name:           in.Name,
		URL:            in.URL,
		Type:           in.Type,
		IsActive:       true,
		Status:         domain.PlaylistStatusActive,
		Username:       in.Username,
		Password:       in.Password,
		MacAddress:     in.MacAddress,
		MaxConnections: in.MaxConnections,
		LastUpdated:    &now,
	}
	playlists := append(slices.Clone(b.playlists), p)
	if err := b.storage.SavePlaylists(playlists); err != nil {
		return nil, err
	}
	b.playlists = playlists
	b.logger.Info("playlist added", "playlistID", p.ID, "name", p.Name)
	return p, nil
}

func (b *Backend) updatePlaylist(_ context.Context, args domain.PlaylistArgs) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.playlistIndex(args.Playlist.ID)
	if i < 0 {
		return nil, fmt.Errorf("playlist %d: %w", args.Playlist.ID, domain.ErrNotFound)
	}
	playlists := slices.Clone(b.playlists)
	playlists[i] = args.Playlist
	if err := b.storage.SavePlaylists(playlists); err != nil {
		return nil, err
	}
	b.playlists = playlists
	return args.Playlist, nil
}

func (b *Backend) deletePlaylist(_ context.Context, args domain.IDArgs) (any, error) {
	if args.ID == lockedPlaylistID {
		return nil, domain.ErrPlaylistLocked
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	playlists := slices.DeleteFunc(slices.Clone(b.playlists), func(p domain.Playlist) bool { return p.ID == args.ID })
	if err := b.storage.SavePlaylists(playlists); err != nil {
		return nil, err
	}
	b.playlists = playlists
	b.logger.Info("playlist deleted", "playlistID", args.ID)
	return nil, nil
}

// setPlaylistActive keeps at most one playlist active
func (b *Backend) setPlaylistActive(_ context.Context, args domain.PlaylistActiveArgs) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.playlistIndex(args.ID)
	if i < 0 {
		return nil, fmt.Errorf("playlist %d: %w", args.ID, domain.ErrNotFound)
	}
	playlists := slices.Clone(b.playlists)
	for j := range playlists {
		playlists[j].IsActive = j == i && args.IsActive
	}
	if err := b.storage.SavePlaylists(playlists); err != nil {
		return nil, err
	}
	b.playlists = playlists
	return playlists[i], nil
}

func (b *Backend) refreshPlaylist(_ context.Context, args domain.IDArgs) (any, error) {
	b.mu.RLock()
	i := b.playlistIndex(args.ID)
	var p domain.Playlist
	if i >= 0 {
		p = b.playlists[i]
	}
	b.mu.RUnlock()

	if i < 0 {
		return nil, fmt.Errorf("playlist %d: %w", args.ID, domain.ErrNotFound)
	}
	if p.Status == domain.PlaylistStatusError {
		return nil, fmt.Errorf("cannot refresh playlist in error state: %s", p.ErrorMessage)
	}

	b.background(func(ctx context.Context) {
		if b.refresh(ctx, []int64{args.ID}) {
			b.emit(domain.EventRefreshComplete, nil)
		}
	})
	return nil, nil
}

// refreshAllPlaylists returns immediately. Progress is reported through
// playlist-update events followed by refresh-complete.
func (b *Backend) refreshAllPlaylists(context.Context, json.RawMessage) (any, error) {
	b.mu.RLock()
	var ids []int64
	for _, p := range b.playlists {
		if p.IsActive {
			ids = append(ids, p.ID)
		}
	}
	b.mu.RUnlock()

	b.background(func(ctx context.Context) {
		if b.refresh(ctx, ids) {
			b.emit(domain.EventRefreshComplete, nil)
		}
	})
	return nil, nil
}

// refresh moves each playlist through loading to active, downloading
// them concurrently. Playlists in error state are left untouched.
// Reports false when ctx ended first.
func (b *Backend) refresh(ctx context.Context, ids []int64) bool {
	var loading []int64
	for _, id := range ids {
		p, ok := b.updateStatus(id, func(p *domain.Playlist) bool {
			if p.Status == domain.PlaylistStatusError {
				return false
			}
			p.Status = domain.PlaylistStatusLoading
			return true
		})
		if ok {
			loading = append(loading, id)
			b.emit(domain.EventPlaylistUpdate, p)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range loading {
		g.Go(func() error {
			if !sleep(gctx, b.refreshDelay) {
				return gctx.Err()
			}
			p, ok := b.updateStatus(id, func(p *domain.Playlist) bool {
				now := b.now()
				p.Status = domain.PlaylistStatusActive
				p.LastUpdated = &now
				return true
			})
			if ok {
				b.emit(domain.EventPlaylistUpdate, p)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		b.logger.Warn("playlist refresh interrupted", "error", err)
		return false
	}
	b.logger.Info("playlist refresh complete", "playlists", len(loading))
	return true
}

// updateStatus applies fn to playlist id and persists the result when
// fn reports a change
func (b *Backend) updateStatus(id int64, fn func(p *domain.Playlist) bool) (domain.Playlist, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.playlistIndex(id)
	if i < 0 {
		return domain.Playlist{}, false
	}
	playlists := slices.Clone(b.playlists)
	if !fn(&playlists[i]) {
		return domain.Playlist{}, false
	}
	b.playlists = playlists
	if err := b.storage.SavePlaylists(playlists); err != nil {
		b.logger.Error("failed to save playlist status", "error", err, "playlistID", id)
	}
	return playlists[i], true
}

func (b *Backend) refreshEPG(context.Context, json.RawMessage) (any, error) {
	b.background(func(ctx context.Context) {
		if sleep(ctx, b.epgDelay) {
			b.logger.Info("EPG refresh complete")
			b.emit(domain.EventEPGComplete, nil)
		}
	})
	return nil, nil
}

// === Categories ===

func (b *Backend) getCategories(context.Context, json.RawMessage) (any, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.Category, len(b.catalog.categories))
	for i, c := range b.catalog.categories {
		out[i] = b.categoryView(c)
	}
	return out, nil
}

func (b *Backend) toggleCategoryVisibility(_ context.Context, args domain.IDArgs) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := slices.IndexFunc(b.catalog.categories, func(c domain.Category) bool { return c.ID == args.ID })
	if i < 0 {
		return nil, fmt.Errorf("category %d: %w", args.ID, domain.ErrNotFound)
	}
	hidden := !b.flags[keyCategoryHidden][args.ID]
	if err := b.setFlag(keyCategoryHidden, []int64{args.ID}, hidden); err != nil {
		return nil, err
	}
	return b.categoryView(b.catalog.categories[i]), nil
}

func (b *Backend) batchCategoryVisibility(_ context.Context, args domain.BatchFlagArgs) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return nil, b.setFlag(keyCategoryHidden, args.IDs, args.Value)
}

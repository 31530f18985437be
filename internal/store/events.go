package store

import (
	"context"
	"encoding/json"

	"github.com/mmcdole/rebootv/internal/domain"
)

// listen subscribes to backend push events. Handlers run on the
// goroutine that delivers the event.
func (s *Store) listen() {
	s.unsubs = append(s.unsubs,
		s.gw.Subscribe(domain.EventPlaylistUpdate, s.onPlaylistUpdate),
		s.gw.Subscribe(domain.EventRefreshComplete, func(json.RawMessage) {
			s.onRefreshComplete(s.ctx)
		}),
		s.gw.Subscribe(domain.EventEPGComplete, func(json.RawMessage) {
			s.onEPGComplete(s.ctx)
		}),
	)
}

// Init prepares the backend and loads playlists. If any playlist is
// active a refresh is started and Initializing stays set until the first
// refresh-complete event; otherwise it is cleared right away.
func (s *Store) Init(ctx context.Context) {
	s.commit(func(t *tx) {
		set(t, s.initializing, true)
	})

	if err := s.initialize(ctx); err != nil {
		s.logger.Error("initialization failed", "error", err)
		s.notify(domain.LevelError, "Failed to load initial data: %s", domain.ErrorMessage(err))
		s.commit(func(t *tx) {
			set(t, s.initializing, false)
		})
	}
}

func (s *Store) initialize(ctx context.Context) error {
	if err := s.gw.Invoke(ctx, domain.CmdInitializeDatabase, nil, nil); err != nil {
		return err
	}
	if s.settings != nil {
		if err := s.settings.Load(ctx); err != nil {
			return err
		}
	}

	var playlists []domain.Playlist
	if err := s.gw.Invoke(ctx, domain.CmdGetPlaylists, nil, &playlists); err != nil {
		return err
	}
	s.commit(func(t *tx) {
		set(t, s.playlists, playlists)
	})

	if len(s.ActivePlaylists()) > 0 {
		s.logger.Info("refreshing active playlists on startup")
		return s.gw.Invoke(ctx, domain.CmdRefreshAllPlaylists, nil, nil)
	}

	s.logger.Info("no active playlists, skipping startup refresh")
	s.completeFirstRefresh()
	return nil
}

// completeFirstRefresh clears Initializing. Only the first call has any effect.
func (s *Store) completeFirstRefresh() {
	s.commit(func(t *tx) {
		if !s.firstRefresh {
			return
		}
		s.firstRefresh = false
		set(t, s.initialRefreshComplete, true)
		set(t, s.initializing, false)
	})
}

func (s *Store) onPlaylistUpdate(payload json.RawMessage) {
	var p domain.Playlist
	if err := json.Unmarshal(payload, &p); err != nil {
		s.logger.Error("invalid playlist-update payload", "error", err)
		return
	}
	s.logger.Debug("playlist update", "playlistID", p.ID, "status", p.Status)

	s.commit(func(t *tx) {
		playlists := s.playlists.val
		for i := range playlists {
			if playlists[i].ID != p.ID {
				continue
			}
			next := append([]domain.Playlist(nil), playlists...)
			next[i] = p
			set(t, s.playlists, next)
			break
		}
		if sel := s.selectedPlaylist.val; sel != nil && sel.ID == p.ID {
			set(t, s.selectedPlaylist, &p)
		}
	})
}

func (s *Store) onRefreshComplete(ctx context.Context) {
	s.logger.Info("playlist refresh complete, refreshing EPG")

	go func() {
		if err := s.gw.Invoke(ctx, domain.CmdRefreshEPG, nil, nil); err != nil {
			s.logger.Error("failed to start EPG refresh", "error", err)
		}
	}()

	s.FetchCategories(ctx)
	s.completeFirstRefresh()
}

// onEPGComplete reloads the last requested channel view from page 1
func (s *Store) onEPGComplete(ctx context.Context) {
	s.mu.RLock()
	last := s.lastChannelOpts
	s.mu.RUnlock()

	if last == nil {
		return
	}
	opts := *last
	opts.Page = 1
	s.logger.Debug("EPG refresh complete, reloading channels", "filter", opts.Filter.String())
	s.FetchChannels(ctx, opts, false)
}

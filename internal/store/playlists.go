package store

import (
	"context"
	"slices"

	"github.com/mmcdole/rebootv/internal/domain"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// === Playlists ===

// FetchPlaylists reloads the playlist list
func (s *Store) FetchPlaylists(ctx context.Context) {
	var playlists []domain.Playlist
	if err := s.gw.Invoke(ctx, domain.CmdGetPlaylists, nil, &playlists); err != nil {
		s.logger.Error("failed to fetch playlists", "error", err)
		s.notify(domain.LevelError, "Error fetching playlists: %s", domain.ErrorMessage(err))
		return
	}
	s.commit(func(t *tx) {
		set(t, s.playlists, playlists)
	})
}

// AddPlaylist creates a playlist and starts its first download
func (s *Store) AddPlaylist(ctx context.Context, input domain.PlaylistInput) {
	var p domain.Playlist
	if err := s.gw.Invoke(ctx, domain.CmdAddPlaylist, domain.AddPlaylistArgs{PlaylistData: input}, &p); err != nil {
		s.logger.Error("failed to add playlist", "error", err, "name", input.Name)
		s.notify(domain.LevelError, "Error adding playlist: %s", domain.ErrorMessage(err))
		return
	}
	s.commit(func(t *tx) {
		set(t, s.playlists, append(slices.Clone(s.playlists.val), p))
	})
	s.notify(domain.LevelSuccess, "Playlist added!")
	s.RefreshPlaylist(ctx, p.ID)
}

func (s *Store) UpdatePlaylist(ctx context.Context, p domain.Playlist) {
	var updated domain.Playlist
	if err := s.gw.Invoke(ctx, domain.CmdUpdatePlaylist, domain.PlaylistArgs{Playlist: p}, &updated); err != nil {
		s.logger.Error("failed to update playlist", "error", err, "playlistID", p.ID)
		s.notify(domain.LevelError, "Error updating playlist: %s", domain.ErrorMessage(err))
		return
	}
	s.commit(func(t *tx) {
		s.replacePlaylist(t, updated)
	})
	s.notify(domain.LevelSuccess, "Playlist updated!")
}

func (s *Store) DeletePlaylist(ctx context.Context, id int64) {
	if err := s.gw.Invoke(ctx, domain.CmdDeletePlaylist, domain.IDArgs{ID: id}, nil); err != nil {
		s.logger.Error("failed to delete playlist", "error", err, "playlistID", id)
		s.notify(domain.LevelError, "Error deleting playlist: %s", domain.ErrorMessage(err))
		return
	}
	s.commit(func(t *tx) {
		set(t, s.playlists, slices.DeleteFunc(slices.Clone(s.playlists.val), func(p domain.Playlist) bool {
			return p.ID == id
		}))
		if sel := s.selectedPlaylist.val; sel != nil && sel.ID == id {
			set(t, s.selectedPlaylist, nil)
		}
	})
	s.notify(domain.LevelSuccess, "Playlist deleted.")
}

// TogglePlaylistActive flips the active state of playlist id. The backend
// keeps a single active playlist, so the whole list is reloaded after.
func (s *Store) TogglePlaylistActive(ctx context.Context, id int64) {
	var (
		current domain.Playlist
		found   bool
	)
	for _, p := range s.playlists.Get() {
		if p.ID == id {
			current, found = p, true
			break
		}
	}
	if !found {
		return
	}

	args := domain.PlaylistActiveArgs{ID: id, IsActive: !current.IsActive}
	var updated domain.Playlist
	if err := s.gw.Invoke(ctx, domain.CmdSetPlaylistActive, args, &updated); err != nil {
		s.logger.Error("failed to toggle playlist active status", "error", err, "playlistID", id)
		s.notify(domain.LevelError, "Error updating playlist status: %s", domain.ErrorMessage(err))
		return
	}
	s.commit(func(t *tx) {
		s.replacePlaylist(t, updated)
	})
	s.FetchPlaylists(ctx)
}

func (s *Store) replacePlaylist(t *tx, p domain.Playlist) {
	playlists := slices.Clone(s.playlists.val)
	for i := range playlists {
		if playlists[i].ID == p.ID {
			playlists[i] = p
		}
	}
	set(t, s.playlists, playlists)
	if sel := s.selectedPlaylist.val; sel != nil && sel.ID == p.ID {
		set(t, s.selectedPlaylist, &p)
	}
}

// RefreshPlaylist asks the backend to re-download one playlist. Progress
// arrives as playlist-update events.
func (s *Store) RefreshPlaylist(ctx context.Context, id int64) {
	s.notify(domain.LevelInfo, "Refreshing playlist...")
	if err := s.gw.Invoke(ctx, domain.CmdRefreshPlaylist, domain.IDArgs{ID: id}, nil); err != nil {
		s.logger.Error("failed to start refresh", "error", err, "playlistID", id)
		s.notify(domain.LevelError, "Error starting refresh: %s", domain.ErrorMessage(err))
	}
}

func (s *Store) RefreshAllPlaylists(ctx context.Context, announce bool) {
	if announce {
		s.notify(domain.LevelInfo, "Refreshing all playlists...")
	}
	if err := s.gw.Invoke(ctx, domain.CmdRefreshAllPlaylists, nil, nil); err != nil {
		s.logger.Error("failed to start refresh of all playlists", "error", err)
		s.notify(domain.LevelError, "Error starting refresh: %s", domain.ErrorMessage(err))
	}
}

func (s *Store) filterPlaylists(keep func(domain.Playlist) bool) []domain.Playlist {
	var out []domain.Playlist
	for _, p := range s.playlists.Get() {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func (s *Store) ActivePlaylists() []domain.Playlist {
	return s.filterPlaylists(func(p domain.Playlist) bool { return p.IsActive })
}

func (s *Store) PlaylistsInError() []domain.Playlist {
	return s.filterPlaylists(func(p domain.Playlist) bool { return p.Status == domain.PlaylistStatusError })
}

func (s *Store) PlaylistsLoading() []domain.Playlist {
	return s.filterPlaylists(func(p domain.Playlist) bool { return p.Status == domain.PlaylistStatusLoading })
}

func (s *Store) HasPlaylists() bool {
	return len(s.playlists.Get()) > 0
}

// === Categories ===

func (s *Store) FetchCategories(ctx context.Context) {
	var categories []domain.Category
	if err := s.gw.Invoke(ctx, domain.CmdGetCategories, nil, &categories); err != nil {
		s.logger.Error("failed to fetch categories", "error", err)
		s.notify(domain.LevelError, "Error fetching categories: %s", domain.ErrorMessage(err))
		return
	}
	s.commit(func(t *tx) {
		set(t, s.categories, categories)
	})
}

// ToggleCategoryVisibility flips the hidden flag of a category once the
// backend confirms it
func (s *Store) ToggleCategoryVisibility(ctx context.Context, id int64) {
	var updated domain.Category
	if err := s.gw.Invoke(ctx, domain.CmdToggleCategoryVisibility, domain.IDArgs{ID: id}, &updated); err != nil {
		s.logger.Error("failed to toggle category visibility", "error", err, "categoryID", id)
		s.notify(domain.LevelError, "Error updating category visibility: %s", domain.ErrorMessage(err))
		return
	}
	s.commit(func(t *tx) {
		categories := slices.Clone(s.categories.val)
		for i := range categories {
			if categories[i].ID == id {
				categories[i] = updated
			}
		}
		set(t, s.categories, categories)
	})
	s.notify(domain.LevelInfo, `Category "%s" is now %s.`, updated.Name, hiddenOrVisible(updated.IsHidden))
}

func (s *Store) BatchSetCategoryVisibility(ctx context.Context, ids []int64, hidden bool) {
	if len(ids) == 0 {
		return
	}
	if err := s.gw.Invoke(ctx, domain.CmdBatchCategoryVisibility, domain.BatchFlagArgs{IDs: ids, Value: hidden}, nil); err != nil {
		s.logger.Error("failed to batch update category visibility", "error", err, "count", len(ids))
		s.notify(domain.LevelError, "Error updating categories: %s", domain.ErrorMessage(err))
		return
	}
	s.commit(func(t *tx) {
		categories := slices.Clone(s.categories.val)
		for i := range categories {
			if slices.Contains(ids, categories[i].ID) {
				categories[i].IsHidden = hidden
			}
		}
		set(t, s.categories, categories)
	})
	if hidden {
		s.notify(domain.LevelSuccess, "%d categories have been hidden.", len(ids))
	} else {
		s.notify(domain.LevelSuccess, "%d categories have been made visible.", len(ids))
	}
}

func (s *Store) ToggleShowHiddenCategories() {
	s.commit(func(t *tx) {
		set(t, s.showHiddenCategories, !s.showHiddenCategories.val)
	})
}

func (s *Store) SetCategorySortOrder(o domain.SortOrder) {
	s.commit(func(t *tx) {
		set(t, s.categorySort, o)
	})
}

// CategoriesForActivePlaylists returns the categories of active playlists
// that match the hidden filter, in the current category sort order
func (s *Store) CategoriesForActivePlaylists() []domain.Category {
	active := make(map[int64]bool)
	for _, p := range s.ActivePlaylists() {
		active[p.ID] = true
	}

	s.mu.RLock()
	showHidden := s.showHiddenCategories.val
	order := s.categorySort.val
	var out []domain.Category
	for _, c := range s.categories.val {
		if active[c.PlaylistID] && c.IsHidden == showHidden {
			out = append(out, c)
		}
	}
	s.mu.RUnlock()

	if order == domain.SortDefault {
		return out
	}
	col := collate.New(language.English, collate.IgnoreCase)
	slices.SortStableFunc(out, func(a, b domain.Category) int {
		if order == domain.SortDescending {
			a, b = b, a
		}
		return col.CompareString(a.Name, b.Name)
	})
	return out
}

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/rebootv/internal/domain"
)

// AddToRecentlyWatched records ch as watched. Failures are only logged.
func (s *Store) AddToRecentlyWatched(ctx context.Context, ch domain.Channel) {
	if err := s.gw.Invoke(ctx, domain.CmdAddRecentlyWatched, domain.RecentArgs{ChannelID: ch.ID}, nil); err != nil {
		s.logger.Error("failed to add to recently watched", "error", err, "channelID", ch.ID)
	}
}

// LoadWatchHistory replaces the watch history cell with the backend's
func (s *Store) LoadWatchHistory(ctx context.Context) {
	var history map[string]domain.WatchHistory
	if err := s.gw.Invoke(ctx, domain.CmdGetWatchHistory, nil, &history); err != nil {
		s.logger.Error("failed to load watch history", "error", err)
		return
	}
	if history == nil {
		history = map[string]domain.WatchHistory{}
	}
	s.commit(func(t *tx) {
		set(t, s.watchHistory, history)
	})
}

// WatchHistoryFor looks up progress by history key, see VODItem.HistoryKey
// and Episode.HistoryKey
func (s *Store) WatchHistoryFor(key string) (domain.WatchHistory, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.watchHistory.val[key]
	return h, ok
}

// Progress is how far a VOD item has been watched
type Progress struct {
	Percent  float64
	Finished bool
}

// VODItemProgress returns the watch progress of a loaded movie or series.
// ok is false without history or when the item's duration is unknown.
func (s *Store) VODItemProgress(id int64, typ domain.VODType) (Progress, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	page := s.movies.page.val
	if typ == domain.VODTypeSeries {
		page = s.series.page.val
	}

	key := domain.VODItem{ID: id, Type: typ}.HistoryKey()
	h, ok := s.watchHistory.val[key]
	if !ok {
		return Progress{}, false
	}
	for _, item := range page.Items {
		if item.ID == id && item.Duration > 0 {
			return Progress{
				Percent:  float64(h.LastPlayedPosition) / float64(item.Duration) * 100,
				Finished: h.IsFinished,
			}, true
		}
	}
	return Progress{}, false
}

// SetReminder schedules a notification minutesBefore the start of program
func (s *Store) SetReminder(ctx context.Context, ch domain.Channel, program domain.EpgEntry, minutesBefore int) {
	at := program.StartTime.Add(-time.Duration(minutesBefore) * time.Minute)
	if !at.After(s.now()) {
		s.notify(domain.LevelError, "Cannot set reminder for a program that has already started.")
		return
	}

	args := domain.NotificationArgs{
		Title:      ch.Name + " - Reminder",
		Body:       fmt.Sprintf(`Your program "%s" is starting in %d minutes.`, program.Title, minutesBefore),
		ScheduleAt: at,
	}
	if err := s.gw.Invoke(ctx, domain.CmdScheduleNotification, args, nil); err != nil {
		s.logger.Error("failed to schedule reminder", "error", err, "channelID", ch.ID, "programID", program.ID)
		s.notify(domain.LevelError, "Failed to set reminder.")
		return
	}
	s.notify(domain.LevelSuccess, `Reminder set for "%s".`, program.Title)
}

func (s *Store) ClearImageCache(ctx context.Context) {
	if err := s.gw.Invoke(ctx, domain.CmdClearImageCache, nil, nil); err != nil {
		s.logger.Error("failed to clear image cache", "error", err)
		s.notify(domain.LevelError, "Error clearing image cache: %s", domain.ErrorMessage(err))
		return
	}
	s.notify(domain.LevelSuccess, "Image cache cleared successfully.")
}

func (s *Store) ClearEPGCache(ctx context.Context) {
	if err := s.gw.Invoke(ctx, domain.CmdClearEPGCache, nil, nil); err != nil {
		s.logger.Error("failed to clear EPG cache", "error", err)
		s.notify(domain.LevelError, "Error clearing EPG cache: %s", domain.ErrorMessage(err))
		return
	}
	s.notify(domain.LevelSuccess, "EPG cache cleared. Refreshing on next cycle.")
}

// ExportUserData writes playlists, flags, history and settings to path
func (s *Store) ExportUserData(ctx context.Context, path string) {
	if err := s.gw.Invoke(ctx, domain.CmdExportUserData, domain.PathArgs{Path: path}, nil); err != nil {
		s.logger.Error("failed to export user data", "error", err, "path", path)
		s.notify(domain.LevelError, "Error exporting data: %s", domain.ErrorMessage(err))
		return
	}
	s.notify(domain.LevelSuccess, "User data exported successfully.")
}

// ImportUserData replaces user state with the export at path and reloads
// everything derived from it
func (s *Store) ImportUserData(ctx context.Context, path string) {
	if err := s.gw.Invoke(ctx, domain.CmdImportUserData, domain.PathArgs{Path: path}, nil); err != nil {
		s.logger.Error("failed to import user data", "error", err, "path", path)
		s.notify(domain.LevelError, "Error importing data: %s", domain.ErrorMessage(err))
		return
	}
	s.notify(domain.LevelSuccess, "Import successful! Reloading application...")

	if s.settings != nil {
		if err := s.settings.Load(ctx); err != nil {
			s.logger.Error("failed to reload settings after import", "error", err)
		}
	}
	s.FetchPlaylists(ctx)
	s.FetchCategories(ctx)
	s.LoadWatchHistory(ctx)
	s.Reload(ctx)
}

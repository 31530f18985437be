package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/mmcdole/rebootv/internal/domain"
)

// === Settings ===

func (b *Backend) getSettings(context.Context, json.RawMessage) (any, error) {
	raw, ok := b.storage.Settings()
	if !ok {
		return nil, nil
	}
	return raw, nil
}

func (b *Backend) saveSettings(_ context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		Settings json.RawMessage `json:"settings"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if len(args.Settings) == 0 {
		return nil, errors.New("settings are required")
	}
	return nil, b.storage.SaveSettings(args.Settings)
}

// === History ===

// addRecentlyWatched moves the channel to the most recent position
func (b *Backend) addRecentlyWatched(_ context.Context, args domain.RecentArgs) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.findChannel(args.ChannelID); !ok {
		return nil, fmt.Errorf("channel %d: %w", args.ChannelID, domain.ErrNotFound)
	}
	recent := slices.DeleteFunc(slices.Clone(b.recent), func(id int64) bool { return id == args.ChannelID })
	recent = append(recent, args.ChannelID)
	if err := b.storage.SaveIDs(keyRecentChannels, recent); err != nil {
		return nil, err
	}
	b.recent = recent
	return nil, nil
}

func (b *Backend) getWatchHistory(context.Context, json.RawMessage) (any, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return maps.Clone(b.history), nil
}

// === System ===

func (b *Backend) scheduleNotification(_ context.Context, args domain.NotificationArgs) (any, error) {
	b.logger.Info("notification scheduled", "title", args.Title, "body", args.Body, "at", args.ScheduleAt)
	return nil, nil
}

func (b *Backend) clearCache(name string) func(context.Context, json.RawMessage) (any, error) {
	return func(context.Context, json.RawMessage) (any, error) {
		b.logger.Info("cache cleared", "cache", name)
		return nil, nil
	}
}

// === Export / import ===

const exportVersion = 1

// userData is the export file format
type userData struct {
	Version         int                            `json:"version"`
	ExportedAt      time.Time                      `json:"exportedAt"`
	Playlists       []domain.Playlist              `json:"playlists"`
	Flags           map[string][]int64             `json:"flags"`
	RecentlyWatched []int64                        `json:"recentlyWatched"`
	WatchHistory    map[string]domain.WatchHistory `json:"watchHistory"`
	Settings        json.RawMessage                `json:"settings,omitempty"`
}

func (b *Backend) exportUserData(_ context.Context, args domain.PathArgs) (any, error) {
	if args.Path == "" {
		return nil, errors.New("export path is required")
	}

	b.mu.RLock()
	data := userData{
		Version:         exportVersion,
		ExportedAt:      b.now(),
		Playlists:       b.playlists,
		Flags:           make(map[string][]int64, len(b.flags)),
		RecentlyWatched: b.recent,
		WatchHistory:    b.history,
	}
	for key, set := range b.flags {
		data.Flags[key] = sortedIDs(set)
	}
	if raw, ok := b.storage.Settings(); ok {
		data.Settings = raw
	}
	out, err := json.MarshalIndent(data, "", "  ")
	b.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(args.Path, out, 0600); err != nil {
		return nil, fmt.Errorf("failed to write export: %w", err)
	}
	b.logger.Info("user data exported", "path", args.Path)
	return nil, nil
}

// importUserData replaces all user state with the contents of an export
func (b *Backend) importUserData(_ context.Context, args domain.PathArgs) (any, error) {
	raw, err := os.ReadFile(args.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read import: %w", err)
	}
	var data userData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("invalid export file: %w", err)
	}
	if data.Version != exportVersion {
		return nil, fmt.Errorf("unsupported export version %d", data.Version)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.storage.Reset(); err != nil {
		return nil, err
	}
	if err := b.storage.SavePlaylists(data.Playlists); err != nil {
		return nil, err
	}
	b.playlists = data.Playlists

	for key := range b.flags {
		ids := data.Flags[key]
		if err := b.storage.SaveIDs(key, ids); err != nil {
			return nil, err
		}
		b.flags[key] = toSet(ids)
	}

	if err := b.storage.SaveIDs(keyRecentChannels, data.RecentlyWatched); err != nil {
		return nil, err
	}
	b.recent = data.RecentlyWatched

	if data.WatchHistory == nil {
		data.WatchHistory = map[string]domain.WatchHistory{}
	}
	if err := b.storage.SaveHistory(data.WatchHistory); err != nil {
		return nil, err
	}
	b.history = data.WatchHistory

	if len(data.Settings) > 0 {
		if err := b.storage.SaveSettings(data.Settings); err != nil {
			return nil, err
		}
	}
	b.logger.Info("user data imported", "path", args.Path, "playlists", len(data.Playlists))
	return nil, nil
}

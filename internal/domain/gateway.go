package domain

import (
	"context"
	"encoding/json"
)

// Gateway is the remote call bridge to the native backend.
// Args and results cross the boundary as JSON DTOs.
type Gateway interface {
	// Invoke runs command with args and decodes the result into out (may be nil).
	// Failures are reported as *RemoteCallError.
	Invoke(ctx context.Context, command string, args any, out any) error

	// Subscribe registers handler for a backend push event and returns
	// a function that removes it.
	Subscribe(event string, handler func(payload json.RawMessage)) (unsubscribe func())
}

// Level is the severity of a user-facing notification
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notifier shows ephemeral user-facing messages
type Notifier interface {
	Show(message string, level Level)
}

// Backend commands
const (
	CmdInitializeDatabase       = "initialize_database"
	CmdGetSettings              = "get_settings"
	CmdSaveSettings             = "save_settings"
	CmdGetPlaylists             = "get_playlists"
	CmdAddPlaylist              = "add_playlist"
	CmdUpdatePlaylist           = "update_playlist"
	CmdDeletePlaylist           = "delete_playlist"
	CmdSetPlaylistActive        = "update_playlist_active_status"
	CmdRefreshPlaylist          = "refresh_playlist"
	CmdRefreshAllPlaylists      = "refresh_all_playlists"
	CmdRefreshEPG               = "refresh_epg"
	CmdGetCategories            = "get_categories"
	CmdToggleCategoryVisibility = "toggle_category_visibility"
	CmdBatchCategoryVisibility  = "batch_update_category_visibility"
	CmdGetChannels              = "get_channels"
	CmdGetMovies                = "get_movies"
	CmdGetSeries                = "get_series"
	CmdGetSeasons               = "get_seasons_for_series"
	CmdToggleChannelFavorite    = "toggle_channel_favorite"
	CmdToggleChannelVisibility  = "toggle_channel_visibility"
	CmdBatchChannelFavorite     = "batch_update_channel_favorite_status"
	CmdBatchChannelVisibility   = "batch_update_channel_visibility"
	CmdToggleVODFavorite        = "toggle_vod_favorite"
	CmdToggleVODWatchlist       = "toggle_vod_watchlist"
	CmdBatchVODFavorite         = "batch_update_vod_favorite_status"
	CmdBatchVODWatchlist        = "batch_update_vod_watchlist_status"
	CmdAddRecentlyWatched       = "add_to_recently_watched"
	CmdGetWatchHistory          = "get_watch_history"
	CmdScheduleNotification     = "schedule_notification"
	CmdClearImageCache          = "clear_image_cache"
	CmdClearEPGCache            = "clear_epg_cache"
	CmdExportUserData           = "export_user_data"
	CmdImportUserData           = "import_user_data"
)

// Backend push events
const (
	EventPlaylistUpdate  = "playlist-update"
	EventRefreshComplete = "refresh-complete"
	EventEPGComplete     = "epg-complete"
)

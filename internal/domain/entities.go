package domain

import (
	"fmt"
	"time"
)

// Flag identifies a boolean user-state attribute on a catalog entity.
type Flag int

const (
	FlagFavorite Flag = iota
	FlagHidden
	FlagWatchlist
)

// String returns a human-readable representation of the flag
func (f Flag) String() string {
	switch f {
	case FlagFavorite:
		return "favorite"
	case FlagHidden:
		return "hidden"
	case FlagWatchlist:
		return "watchlist"
	default:
		return "unknown"
	}
}

// Entity is implemented by catalog items that carry user-state flags.
// Implementations are value types: WithFlag returns a modified copy and
// never touches the receiver.
type Entity[T any] interface {
	EntityID() int64
	DisplayName() string
	HasFlag(f Flag) bool
	WithFlag(f Flag, v bool) T
}

// EpgEntry is a single programme in a channel's guide
type EpgEntry struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
}

// Channel represents a live TV stream
type Channel struct {
	ID         int64      `json:"id"`
	PlaylistID int64      `json:"playlistId"`
	Name       string     `json:"name"`
	LogoURL    string     `json:"logoUrl"`
	StreamURL  string     `json:"streamUrl"`
	EPG        []EpgEntry `json:"epg"`
	Category   string     `json:"category"`
	CategoryID int64      `json:"categoryId"`
	IsFavorite bool       `json:"isFavorite"`
	IsHidden   bool       `json:"isHidden"`
}

func (c Channel) EntityID() int64     { return c.ID }
func (c Channel) DisplayName() string { return c.Name }

func (c Channel) HasFlag(f Flag) bool {
	switch f {
	case FlagFavorite:
		return c.IsFavorite
	case FlagHidden:
		return c.IsHidden
	default:
		return false
	}
}

func (c Channel) WithFlag(f Flag, v bool) Channel {
	switch f {
	case FlagFavorite:
		c.IsFavorite = v
	case FlagHidden:
		c.IsHidden = v
	}
	return c
}

// NowPlaying returns the guide entry airing at t, if any
func (c Channel) NowPlaying(t time.Time) (EpgEntry, bool) {
	for _, e := range c.EPG {
		if !t.Before(e.StartTime) && t.Before(e.EndTime) {
			return e, true
		}
	}
	return EpgEntry{}, false
}

// VODType distinguishes movies from series
type VODType string

const (
	VODTypeMovie  VODType = "movie"
	VODTypeSeries VODType = "series"
)

// VODItem represents a movie or a series container
type VODItem struct {
	ID            int64    `json:"id"`
	PlaylistID    int64    `json:"playlistId"`
	Title         string   `json:"title"`
	StreamURL     string   `json:"streamUrl"`
	ImageURL      string   `json:"imageUrl"`
	Type          VODType  `json:"type"`
	Description   string   `json:"description,omitempty"`
	ReleaseYear   int      `json:"releaseYear,omitempty"`
	Genres        []string `json:"genres"`
	Duration      int      `json:"duration,omitempty"` // seconds
	IsFavorite    bool     `json:"isFavorite"`
	IsOnWatchlist bool     `json:"isOnWatchlist"`
}

func (v VODItem) EntityID() int64     { return v.ID }
func (v VODItem) DisplayName() string { return v.Title }

func (v VODItem) HasFlag(f Flag) bool {
	switch f {
	case FlagFavorite:
		return v.IsFavorite
	case FlagWatchlist:
		return v.IsOnWatchlist
	default:
		return false
	}
}

func (v VODItem) WithFlag(f Flag, b bool) VODItem {
	switch f {
	case FlagFavorite:
		v.IsFavorite = b
	case FlagWatchlist:
		v.IsOnWatchlist = b
	}
	return v
}

// FormattedDuration returns the duration in a human-readable format
func (v VODItem) FormattedDuration() string {
	return formatSeconds(v.Duration)
}

// HistoryKey returns the watch history key for this item
func (v VODItem) HistoryKey() string {
	return fmt.Sprintf("%s-%d", v.Type, v.ID)
}

// Episode represents a single episode of a series
type Episode struct {
	ID            int64  `json:"id"`
	SeriesID      int64  `json:"seriesId"`
	SeasonNumber  int    `json:"seasonNumber"`
	EpisodeNumber int    `json:"episodeNumber"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	ImageURL      string `json:"imageUrl"`
	StreamURL     string `json:"streamUrl"`
	Duration      int    `json:"duration,omitempty"` // seconds
}

// EpisodeCode returns the formatted episode code (e.g., "S01E05")
func (e Episode) EpisodeCode() string {
	return fmt.Sprintf("S%02dE%02d", e.SeasonNumber, e.EpisodeNumber)
}

// HistoryKey returns the watch history key for this episode
func (e Episode) HistoryKey() string {
	return fmt.Sprintf("episode-%d", e.ID)
}

// Season groups the episodes of a series
type Season struct {
	ID           int64     `json:"id"`
	SeriesID     int64     `json:"seriesId"`
	SeasonNumber int       `json:"seasonNumber"`
	Episodes     []Episode `json:"episodes"`
}

// DisplayTitle returns the display title for the season
func (s Season) DisplayTitle() string {
	if s.SeasonNumber == 0 {
		return "Specials"
	}
	return fmt.Sprintf("Season %d", s.SeasonNumber)
}

// Category groups channels within a playlist
type Category struct {
	ID         int64  `json:"id"`
	PlaylistID int64  `json:"playlistId"`
	Name       string `json:"name"`
	IsHidden   bool   `json:"isHidden"`
}

// PlaylistType identifies the provider protocol of a playlist
type PlaylistType string

const (
	PlaylistTypeXtream  PlaylistType = "xtream"
	PlaylistTypeM3U     PlaylistType = "m3u"
	PlaylistTypeStalker PlaylistType = "stalker"
)

// PlaylistStatus is the refresh state reported by the backend
type PlaylistStatus string

const (
	PlaylistStatusActive   PlaylistStatus = "active"
	PlaylistStatusInactive PlaylistStatus = "inactive"
	PlaylistStatusLoading  PlaylistStatus = "loading"
	PlaylistStatusError    PlaylistStatus = "error"
)

// Playlist is a provider subscription
type Playlist struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	URL            string         `json:"url"`
	Type           PlaylistType   `json:"type"`
	IsActive       bool           `json:"isActive"`
	Status         PlaylistStatus `json:"status"`
	ErrorMessage   string         `json:"errorMessage,omitempty"`
	Username       string         `json:"username,omitempty"`
	Password       string         `json:"password,omitempty"`
	MacAddress     string         `json:"macAddress,omitempty"`
	MaxConnections int            `json:"maxConnections,omitempty"`
	ExpirationDate *time.Time     `json:"expirationDate,omitempty"`
	LastUpdated    *time.Time     `json:"lastUpdated,omitempty"`
}

// PlaylistInput carries the user-editable fields of a new playlist
type PlaylistInput struct {
	Name           string       `json:"name"`
	URL            string       `json:"url"`
	Type           PlaylistType `json:"type"`
	Username       string       `json:"username,omitempty"`
	Password       string       `json:"password,omitempty"`
	MacAddress     string       `json:"macAddress,omitempty"`
	MaxConnections int          `json:"maxConnections,omitempty"`
}

// WatchHistory records playback progress for a movie, series or episode.
// ID is a composite key such as "movie-123" or "episode-456".
type WatchHistory struct {
	ID                 string    `json:"id"`
	LastPlayedPosition int       `json:"lastPlayedPosition"` // seconds
	IsFinished         bool      `json:"isFinished"`
	WatchedAt          time.Time `json:"watchedAt"`
}

// Page is one server page of a collection. Items keep server order.
type Page[T any] struct {
	Items   []T  `json:"items"`
	HasMore bool `json:"hasMore"`
	Total   int  `json:"total"`
}

func formatSeconds(secs int) string {
	d := time.Duration(secs) * time.Second
	h := int(d.Hours())
	mins := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, mins)
	}
	return fmt.Sprintf("%dm", mins)
}

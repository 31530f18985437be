package domain

import "time"

// Argument DTOs shared by the store and the backend.

type FetchArgs struct {
	Options FetchOptions `json:"options"`
}

type IDArgs struct {
	ID int64 `json:"id"`
}

type VODArgs struct {
	ID   int64   `json:"id"`
	Type VODType `json:"type"`
}

type BatchFlagArgs struct {
	IDs   []int64 `json:"ids"`
	Type  VODType `json:"type,omitempty"`
	Value bool    `json:"value"`
}

type SeriesArgs struct {
	SeriesID int64 `json:"seriesId"`
}

type PlaylistActiveArgs struct {
	ID       int64 `json:"id"`
	IsActive bool  `json:"isActive"`
}

type PlaylistArgs struct {
	Playlist Playlist `json:"playlist"`
}

type AddPlaylistArgs struct {
	PlaylistData PlaylistInput `json:"playlistData"`
}

type RecentArgs struct {
	ChannelID int64 `json:"channelId"`
}

type NotificationArgs struct {
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	ScheduleAt time.Time `json:"scheduleAt"`
}

type PathArgs struct {
	Path string `json:"path"`
}

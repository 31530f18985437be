package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mmcdole/rebootv/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSettings struct {
	loads int
	err   error
}

func (f *fakeSettings) Load(context.Context) error {
	f.loads++
	return f.err
}

func playlistsHandler(playlists ...domain.Playlist) handler {
	return func(json.RawMessage) (any, error) { return playlists, nil }
}

func TestInit_WithoutActivePlaylistsFinishesImmediately(t *testing.T) {
	gw := newFakeGateway()
	settings := &fakeSettings{}
	s := New(gw, &fakeNotifier{}, settings, Options{}, nil)
	defer s.Close()

	gw.on(domain.CmdGetPlaylists, playlistsHandler(domain.Playlist{ID: 2, Name: "Backup M3U"}))
	require.True(t, s.Initializing().Get())

	s.Init(context.Background())

	assert.False(t, s.Initializing().Get())
	assert.True(t, s.InitialRefreshComplete().Get())
	assert.Equal(t, 1, settings.loads)
	assert.Equal(t, 1, gw.count(domain.CmdInitializeDatabase))
	assert.Equal(t, 0, gw.count(domain.CmdRefreshAllPlaylists))
	assert.Len(t, s.Playlists().Get(), 1)
}

func TestInit_WaitsForFirstRefreshComplete(t *testing.T) {
	s, gw, _ := newTestStore(t)
	gw.on(domain.CmdGetPlaylists, playlistsHandler(domain.Playlist{ID: 1, Name: "PrimeStreams HD", IsActive: true}))
	gw.on(domain.CmdGetCategories, func(json.RawMessage) (any, error) {
		return []domain.Category{{ID: 1, PlaylistID: 1, Name: "USA Entertainment"}}, nil
	})

	s.Init(context.Background())

	assert.True(t, s.Initializing().Get())
	assert.Equal(t, 1, gw.count(domain.CmdRefreshAllPlaylists))

	gw.emit(domain.EventRefreshComplete, nil)

	assert.False(t, s.Initializing().Get())
	assert.True(t, s.InitialRefreshComplete().Get())
	assert.Len(t, s.Categories().Get(), 1)
	assert.Eventually(t, func() bool { return gw.count(domain.CmdRefreshEPG) == 1 }, time.Second, 10*time.Millisecond)
}

func TestRefreshComplete_ClearsInitializingOnce(t *testing.T) {
	s, gw, _ := newTestStore(t)
	gw.on(domain.CmdGetPlaylists, playlistsHandler(domain.Playlist{ID: 1, IsActive: true}))
	s.Init(context.Background())

	var changes []bool
	s.Initializing().Subscribe(func(v bool) { changes = append(changes, v) })
	var completes []bool
	s.InitialRefreshComplete().Subscribe(func(v bool) { completes = append(completes, v) })

	gw.emit(domain.EventRefreshComplete, nil)
	gw.emit(domain.EventRefreshComplete, nil)

	assert.Equal(t, []bool{false}, changes)
	assert.Equal(t, []bool{true}, completes)
	assert.Equal(t, 2, gw.count(domain.CmdGetCategories))
}

func TestInit_FailureNotifiesAndClearsInitializing(t *testing.T) {
	gw := newFakeGateway()
	n := &fakeNotifier{}
	s := New(gw, n, &fakeSettings{err: errors.New("settings corrupt")}, Options{}, nil)
	defer s.Close()

	s.Init(context.Background())

	assert.False(t, s.Initializing().Get())
	assert.False(t, s.InitialRefreshComplete().Get())
	msg, level := n.last()
	assert.Equal(t, "Failed to load initial data: settings corrupt", msg)
	assert.Equal(t, domain.LevelError, level)
	assert.Equal(t, 0, gw.count(domain.CmdGetPlaylists))
}

func TestPlaylistUpdate_ReplacesMatchingPlaylist(t *testing.T) {
	s, gw, _ := newTestStore(t)
	gw.on(domain.CmdGetPlaylists, playlistsHandler(
		domain.Playlist{ID: 1, Name: "PrimeStreams HD", Status: domain.PlaylistStatusActive},
		domain.Playlist{ID: 3, Name: "Stalker Portal VIP", Status: domain.PlaylistStatusActive},
	))
	s.FetchPlaylists(context.Background())
	p := s.Playlists().Get()[1]
	s.SelectPlaylistForDetails(&p)

	gw.emit(domain.EventPlaylistUpdate, domain.Playlist{ID: 3, Name: "Stalker Portal VIP", Status: domain.PlaylistStatusLoading})

	playlists := s.Playlists().Get()
	assert.Equal(t, domain.PlaylistStatusActive, playlists[0].Status)
	assert.Equal(t, domain.PlaylistStatusLoading, playlists[1].Status)
	assert.Equal(t, domain.PlaylistStatusLoading, s.SelectedPlaylist().Get().Status)
	assert.Len(t, s.PlaylistsLoading(), 1)

	// unknown playlists are ignored
	gw.emit(domain.EventPlaylistUpdate, domain.Playlist{ID: 99})
	assert.Len(t, s.Playlists().Get(), 2)
}

func TestEPGComplete_ReloadsLastChannelRequest(t *testing.T) {
	s, gw, _ := newTestStore(t)

	var requests []domain.FetchOptions
	gw.on(domain.CmdGetChannels, func(raw json.RawMessage) (any, error) {
		var args domain.FetchArgs
		require.NoError(t, json.Unmarshal(raw, &args))
		requests = append(requests, args.Options)
		return page(4, true, channel(1), channel(2)), nil
	})

	// nothing fetched yet
	gw.emit(domain.EventEPGComplete, nil)
	assert.Empty(t, requests)

	o := opts(domain.FilterFavorites)
	o.SearchTerm = "sport"
	s.FetchChannels(context.Background(), o, false)
	s.LoadMore(context.Background(), domain.KindFavoriteChannels)
	require.Len(t, s.FavoriteChannels().Get().Items, 4)

	gw.emit(domain.EventEPGComplete, nil)

	require.Len(t, requests, 3)
	last := requests[2]
	assert.Equal(t, 1, last.Page)
	assert.Equal(t, "sport", last.SearchTerm)
	assert.Equal(t, domain.FilterFavorites, last.Filter.Type)
	assert.Len(t, s.FavoriteChannels().Get().Items, 2)
}

func TestPlaylists_CRUD(t *testing.T) {
	s, gw, n := newTestStore(t)
	ctx := context.Background()

	gw.on(domain.CmdGetPlaylists, playlistsHandler(domain.Playlist{ID: 1, Name: "PrimeStreams HD", IsActive: true}))
	s.FetchPlaylists(ctx)

	gw.on(domain.CmdAddPlaylist, func(raw json.RawMessage) (any, error) {
		var args domain.AddPlaylistArgs
		require.NoError(t, json.Unmarshal(raw, &args))
		return domain.Playlist{ID: 6, Name: args.PlaylistData.Name, Type: args.PlaylistData.Type, IsActive: true}, nil
	})
	var refreshed []int64
	gw.on(domain.CmdRefreshPlaylist, func(raw json.RawMessage) (any, error) {
		var args domain.IDArgs
		require.NoError(t, json.Unmarshal(raw, &args))
		refreshed = append(refreshed, args.ID)
		return nil, nil
	})
	s.AddPlaylist(ctx, domain.PlaylistInput{Name: "New", Type: domain.PlaylistTypeM3U, URL: "http://x/list.m3u"})
	require.Len(t, s.Playlists().Get(), 2)
	assert.Contains(t, n.messages, "Playlist added!")
	assert.Equal(t, []int64{6}, refreshed)
	msg, _ := n.last()
	assert.Equal(t, "Refreshing playlist...", msg)

	gw.on(domain.CmdUpdatePlaylist, func(raw json.RawMessage) (any, error) {
		var args domain.PlaylistArgs
		require.NoError(t, json.Unmarshal(raw, &args))
		return args.Playlist, nil
	})
	renamed := s.Playlists().Get()[1]
	renamed.Name = "Renamed"
	s.UpdatePlaylist(ctx, renamed)
	assert.Equal(t, "Renamed", s.Playlists().Get()[1].Name)

	gw.on(domain.CmdDeletePlaylist, func(raw json.RawMessage) (any, error) {
		return nil, &domain.RemoteCallError{Message: domain.ErrPlaylistLocked.Error()}
	})
	s.DeletePlaylist(ctx, 1)
	assert.Len(t, s.Playlists().Get(), 2)
	msg, level := n.last()
	assert.Equal(t, "Error deleting playlist: "+domain.ErrPlaylistLocked.Error(), msg)
	assert.Equal(t, domain.LevelError, level)

	gw.on(domain.CmdDeletePlaylist, func(json.RawMessage) (any, error) { return nil, nil })
	s.DeletePlaylist(ctx, 6)
	require.Len(t, s.Playlists().Get(), 1)
	assert.True(t, s.HasPlaylists())
	assert.Len(t, s.ActivePlaylists(), 1)
}

func TestTogglePlaylistActive_ReloadsList(t *testing.T) {
	s, gw, _ := newTestStore(t)
	ctx := context.Background()

	active := int64(1)
	gw.on(domain.CmdGetPlaylists, func(json.RawMessage) (any, error) {
		return []domain.Playlist{{ID: 1, IsActive: active == 1}, {ID: 2, IsActive: active == 2}}, nil
	})
	gw.on(domain.CmdSetPlaylistActive, func(raw json.RawMessage) (any, error) {
		var args domain.PlaylistActiveArgs
		require.NoError(t, json.Unmarshal(raw, &args))
		assert.True(t, args.IsActive)
		active = args.ID
		return domain.Playlist{ID: args.ID, IsActive: true}, nil
	})
	s.FetchPlaylists(ctx)

	s.TogglePlaylistActive(ctx, 2)

	playlists := s.Playlists().Get()
	assert.False(t, playlists[0].IsActive)
	assert.True(t, playlists[1].IsActive)

	// unknown playlist
	s.TogglePlaylistActive(ctx, 42)
	assert.Equal(t, 1, gw.count(domain.CmdSetPlaylistActive))
}

func TestCategories_ActivePlaylistsSortedAndFiltered(t *testing.T) {
	s, gw, n := newTestStore(t)
	ctx := context.Background()

	gw.on(domain.CmdGetPlaylists, playlistsHandler(
		domain.Playlist{ID: 1, IsActive: true},
		domain.Playlist{ID: 2, IsActive: false},
	))
	gw.on(domain.CmdGetCategories, func(json.RawMessage) (any, error) {
		return []domain.Category{
			{ID: 1, PlaylistID: 1, Name: "UK News"},
			{ID: 2, PlaylistID: 1, Name: "Sports"},
			{ID: 3, PlaylistID: 1, Name: "International", IsHidden: true},
			{ID: 4, PlaylistID: 2, Name: "Kids"},
		}, nil
	})
	s.FetchPlaylists(ctx)
	s.FetchCategories(ctx)

	names := func() []string {
		var out []string
		for _, c := range s.CategoriesForActivePlaylists() {
			out = append(out, c.Name)
		}
		return out
	}

	assert.Equal(t, []string{"UK News", "Sports"}, names())
	s.SetCategorySortOrder(domain.SortAscending)
	assert.Equal(t, []string{"Sports", "UK News"}, names())
	s.SetCategorySortOrder(domain.SortDescending)
	assert.Equal(t, []string{"UK News", "Sports"}, names())

	s.ToggleShowHiddenCategories()
	assert.Equal(t, []string{"International"}, names())

	gw.on(domain.CmdToggleCategoryVisibility, func(json.RawMessage) (any, error) {
		return domain.Category{ID: 3, PlaylistID: 1, Name: "International"}, nil
	})
	s.ToggleCategoryVisibility(ctx, 3)
	assert.Empty(t, names())
	msg, _ := n.last()
	assert.Equal(t, `Category "International" is now visible.`, msg)

	s.BatchSetCategoryVisibility(ctx, []int64{1, 2}, true)
	assert.Equal(t, []string{"UK News", "Sports"}, names())
	msg, _ = n.last()
	assert.Equal(t, "2 categories have been hidden.", msg)
}

func TestVODItemProgress(t *testing.T) {
	s, gw, _ := newTestStore(t)
	ctx := context.Background()

	seed(t, s, gw, domain.KindMovies, opts(domain.FilterAll), page(2, false,
		domain.VODItem{ID: 1001, Type: domain.VODTypeMovie, Duration: 7200},
		domain.VODItem{ID: 1002, Type: domain.VODTypeMovie},
	))
	gw.on(domain.CmdGetWatchHistory, func(json.RawMessage) (any, error) {
		return map[string]domain.WatchHistory{
			"movie-1001": {ID: "movie-1001", LastPlayedPosition: 3600},
			"movie-1002": {ID: "movie-1002", LastPlayedPosition: 100, IsFinished: true},
		}, nil
	})
	s.LoadWatchHistory(ctx)

	p, ok := s.VODItemProgress(1001, domain.VODTypeMovie)
	require.True(t, ok)
	assert.InDelta(t, 50.0, p.Percent, 0.001)
	assert.False(t, p.Finished)

	// no duration known
	_, ok = s.VODItemProgress(1002, domain.VODTypeMovie)
	assert.False(t, ok)

	h, ok := s.WatchHistoryFor("movie-1002")
	require.True(t, ok)
	assert.True(t, h.IsFinished)
}

func TestSetReminder(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	gw := newFakeGateway()
	n := &fakeNotifier{}
	s := New(gw, n, nil, Options{Now: func() time.Time { return now }}, nil)
	defer s.Close()

	var scheduled domain.NotificationArgs
	gw.on(domain.CmdScheduleNotification, func(raw json.RawMessage) (any, error) {
		require.NoError(t, json.Unmarshal(raw, &scheduled))
		return nil, nil
	})

	ch := channel(1)
	program := domain.EpgEntry{ID: 3, Title: "Evening Movie", StartTime: now.Add(2 * time.Hour)}
	s.SetReminder(context.Background(), ch, program, 15)

	assert.Equal(t, "Channel 1 - Reminder", scheduled.Title)
	assert.Equal(t, `Your program "Evening Movie" is starting in 15 minutes.`, scheduled.Body)
	assert.True(t, scheduled.ScheduleAt.Equal(now.Add(105*time.Minute)))
	msg, _ := n.last()
	assert.Equal(t, `Reminder set for "Evening Movie".`, msg)

	started := domain.EpgEntry{ID: 1, Title: "Morning News", StartTime: now.Add(-30 * time.Minute)}
	s.SetReminder(context.Background(), ch, started, 5)
	msg, level := n.last()
	assert.Equal(t, "Cannot set reminder for a program that has already started.", msg)
	assert.Equal(t, domain.LevelError, level)
	assert.Equal(t, 1, gw.count(domain.CmdScheduleNotification))
}

func TestImportUserData_ReloadsState(t *testing.T) {
	gw := newFakeGateway()
	n := &fakeNotifier{}
	settings := &fakeSettings{}
	s := New(gw, n, settings, Options{}, nil)
	defer s.Close()

	gw.on(domain.CmdImportUserData, func(raw json.RawMessage) (any, error) {
		var args domain.PathArgs
		require.NoError(t, json.Unmarshal(raw, &args))
		assert.Equal(t, "/tmp/backup.json", args.Path)
		return nil, nil
	})
	gw.on(domain.CmdGetChannels, func(json.RawMessage) (any, error) { return page[domain.Channel](0, false), nil })

	s.ImportUserData(context.Background(), "/tmp/backup.json")

	assert.Equal(t, 1, settings.loads)
	assert.Equal(t, 1, gw.count(domain.CmdGetPlaylists))
	assert.Equal(t, 1, gw.count(domain.CmdGetCategories))
	assert.Equal(t, 1, gw.count(domain.CmdGetWatchHistory))
	assert.Equal(t, 1, gw.count(domain.CmdGetChannels))
	assert.Contains(t, n.messages, "Import successful! Reloading application...")
}

package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mmcdole/rebootv/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleFavorite_OptimisticThenConfirmed(t *testing.T) {
	s, gw, n := newTestStore(t)
	seed(t, s, gw, domain.KindChannels, opts(domain.FilterAll), page(2, false, channel(1), channel(2)))
	gw.hold(domain.CmdToggleChannelFavorite)

	done := async(func() { s.ToggleChannelFavorite(context.Background(), 1) })
	call := gw.next(t)

	// applied before the backend answers
	assert.True(t, s.Channels().Get().Items[0].IsFavorite)
	assert.False(t, s.Channels().Get().Items[1].IsFavorite)

	confirmed := channel(1)
	confirmed.IsFavorite = true
	call.reply(confirmed)
	wait(t, done)

	assert.True(t, s.Channels().Get().Items[0].IsFavorite)
	// favorites are never inserted locally; their position is unknown until the next fetch
	assert.Empty(t, s.FavoriteChannels().Get().Items)

	msg, level := n.last()
	assert.Equal(t, `"Channel 1" added to favorites.`, msg)
	assert.Equal(t, domain.LevelInfo, level)
}

func TestToggleFavorite_CanonicalEntityWins(t *testing.T) {
	s, gw, _ := newTestStore(t)
	seed(t, s, gw, domain.KindChannels, opts(domain.FilterAll), page(1, false, channel(1)))

	gw.on(domain.CmdToggleChannelFavorite, func(json.RawMessage) (any, error) {
		ch := channel(1)
		ch.IsFavorite = true
		ch.Name = "Channel One HD"
		return ch, nil
	})
	s.ToggleChannelFavorite(context.Background(), 1)

	got := s.Channels().Get().Items[0]
	assert.True(t, got.IsFavorite)
	assert.Equal(t, "Channel One HD", got.Name)
}

func TestToggleFavorite_FanOutToEveryCopy(t *testing.T) {
	s, gw, _ := newTestStore(t)

	fav := channel(1)
	fav.IsFavorite = true
	seed(t, s, gw, domain.KindChannels, opts(domain.FilterAll), page(2, false, fav, channel(2)))
	seed(t, s, gw, domain.KindFavoriteChannels, opts(domain.FilterFavorites), page(1, false, fav))
	seed(t, s, gw, domain.KindRecentChannels, opts(domain.FilterRecentlyWatched), page(1, false, fav))
	s.SelectChannel(&fav)

	gw.hold(domain.CmdToggleChannelFavorite)
	done := async(func() { s.ToggleChannelFavorite(context.Background(), 1) })
	call := gw.next(t)

	assert.False(t, s.Channels().Get().Items[0].IsFavorite)
	assert.False(t, s.FavoriteChannels().Get().Items[0].IsFavorite)
	assert.False(t, s.RecentChannels().Get().Items[0].IsFavorite)
	assert.False(t, s.SelectedChannel().Get().IsFavorite)

	call.reply(channel(1))
	wait(t, done)

	assert.Equal(t, channel(1), s.Channels().Get().Items[0])
	assert.Equal(t, channel(1), s.RecentChannels().Get().Items[0])
	assert.Equal(t, channel(1), *s.SelectedChannel().Get())

	// no longer a favorite, so it leaves the favorites page
	favs := s.FavoriteChannels().Get()
	assert.Empty(t, favs.Items)
	assert.Equal(t, 0, favs.Total)
}

func TestToggleFavorite_RollbackRestoresSnapshot(t *testing.T) {
	s, gw, n := newTestStore(t)

	original := channel(1)
	original.EPG = []domain.EpgEntry{{ID: 7, Title: "Morning News"}}
	original.LogoURL = "https://example.com/1.png"
	seed(t, s, gw, domain.KindChannels, opts(domain.FilterAll), page(2, false, original, channel(2)))
	seed(t, s, gw, domain.KindRecentChannels, opts(domain.FilterRecentlyWatched), page(1, false, original))
	s.SelectChannel(&original)

	gw.hold(domain.CmdToggleChannelFavorite)
	done := async(func() { s.ToggleChannelFavorite(context.Background(), 1) })
	call := gw.next(t)
	require.True(t, s.Channels().Get().Items[0].IsFavorite)

	call.fail("database is locked")
	wait(t, done)

	assert.Equal(t, original, s.Channels().Get().Items[0])
	assert.Equal(t, original, s.RecentChannels().Get().Items[0])
	assert.Equal(t, original, *s.SelectedChannel().Get())

	msg, level := n.last()
	assert.Equal(t, "Error updating favorite status: database is locked", msg)
	assert.Equal(t, domain.LevelError, level)
}

func TestToggle_UnknownEntityIsNoop(t *testing.T) {
	s, gw, n := newTestStore(t)
	seed(t, s, gw, domain.KindChannels, opts(domain.FilterAll), page(1, false, channel(1)))

	s.ToggleChannelFavorite(context.Background(), 42)
	s.ToggleVODWatchlist(context.Background(), 42, domain.VODTypeMovie)

	assert.Equal(t, 0, gw.count(domain.CmdToggleChannelFavorite))
	assert.Equal(t, 0, gw.count(domain.CmdToggleVODWatchlist))
	assert.Equal(t, 0, n.count())
}

func TestToggleVisibility_RemovesFromMismatchedPage(t *testing.T) {
	s, gw, n := newTestStore(t)
	seed(t, s, gw, domain.KindChannels, opts(domain.FilterAll), page(10, true, channel(1), channel(2)))

	gw.on(domain.CmdToggleChannelVisibility, func(json.RawMessage) (any, error) {
		ch := channel(1)
		ch.IsHidden = true
		return ch, nil
	})
	s.ToggleChannelVisibility(context.Background(), 1)

	got := s.Channels().Get()
	require.Len(t, got.Items, 1)
	assert.Equal(t, int64(2), got.Items[0].ID)
	assert.Equal(t, 9, got.Total)

	msg, _ := n.last()
	assert.Equal(t, `Channel "Channel 1" is now hidden.`, msg)
}

func TestToggleVisibility_DoesNotInsertIntoMatchingPage(t *testing.T) {
	s, gw, _ := newTestStore(t)
	seed(t, s, gw, domain.KindChannels, opts(domain.FilterAll), page(2, false, channel(1), channel(2)))

	// a hidden channel reachable only through the selection
	hidden := channel(5)
	hidden.IsHidden = true
	s.SelectChannel(&hidden)

	gw.on(domain.CmdToggleChannelVisibility, func(json.RawMessage) (any, error) {
		return channel(5), nil
	})
	s.ToggleChannelVisibility(context.Background(), 5)

	// it now matches the visible page but its position is unknown without a
	// fetch, so the page is left alone
	got := s.Channels().Get()
	assert.Len(t, got.Items, 2)
	assert.Equal(t, 2, got.Total)
	assert.False(t, s.SelectedChannel().Get().IsHidden)
}

func TestToggleVisibility_HiddenPageDropsUnhidden(t *testing.T) {
	s, gw, _ := newTestStore(t)

	hidden := channel(3)
	hidden.IsHidden = true
	o := opts(domain.FilterAll)
	o.ShowHidden = true
	seed(t, s, gw, domain.KindChannels, o, page(1, false, hidden))

	gw.on(domain.CmdToggleChannelVisibility, func(json.RawMessage) (any, error) {
		return channel(3), nil
	})
	s.ToggleChannelVisibility(context.Background(), 3)

	assert.Empty(t, s.Channels().Get().Items)
	assert.Equal(t, 0, s.Channels().Get().Total)
}

func TestToggle_SameEntityIsSerialized(t *testing.T) {
	s, gw, _ := newTestStore(t)
	seed(t, s, gw, domain.KindChannels, opts(domain.FilterAll), page(1, false, channel(1)))
	gw.hold(domain.CmdToggleChannelFavorite)
	ctx := context.Background()

	first := async(func() { s.ToggleChannelFavorite(ctx, 1) })
	call1 := gw.next(t)
	second := async(func() { s.ToggleChannelFavorite(ctx, 1) })

	assert.Never(t, func() bool { return len(gw.pending) > 0 }, 100*time.Millisecond, 10*time.Millisecond)

	fav := channel(1)
	fav.IsFavorite = true
	call1.reply(fav)
	wait(t, first)

	call2 := gw.next(t)
	// the second toggle started from the settled state
	assert.False(t, s.Channels().Get().Items[0].IsFavorite)
	call2.reply(channel(1))
	wait(t, second)

	assert.False(t, s.Channels().Get().Items[0].IsFavorite)
}

func TestToggle_DifferentEntitiesRunConcurrently(t *testing.T) {
	s, gw, _ := newTestStore(t)
	seed(t, s, gw, domain.KindChannels, opts(domain.FilterAll), page(2, false, channel(1), channel(2)))
	gw.hold(domain.CmdToggleChannelFavorite)
	ctx := context.Background()

	first := async(func() { s.ToggleChannelFavorite(ctx, 1) })
	call1 := gw.next(t)
	second := async(func() { s.ToggleChannelFavorite(ctx, 2) })
	call2 := gw.next(t)

	call2.fail("nope")
	wait(t, second)
	fav := channel(1)
	fav.IsFavorite = true
	call1.reply(fav)
	wait(t, first)

	items := s.Channels().Get().Items
	assert.True(t, items[0].IsFavorite)
	assert.False(t, items[1].IsFavorite)
}

func TestToggleVOD_UpdatesPageAndSelection(t *testing.T) {
	s, gw, n := newTestStore(t)

	movie := domain.VODItem{ID: 1000, Title: "Epic Movie Adventure 1", Type: domain.VODTypeMovie}
	seed(t, s, gw, domain.KindMovies, opts(domain.FilterAll), page(1, false, movie))
	s.SelectVODItem(&movie)

	gw.on(domain.CmdToggleVODWatchlist, func(raw json.RawMessage) (any, error) {
		var args domain.VODArgs
		require.NoError(t, json.Unmarshal(raw, &args))
		assert.Equal(t, domain.VODTypeMovie, args.Type)
		m := movie
		m.IsOnWatchlist = true
		return m, nil
	})
	s.ToggleVODWatchlist(context.Background(), 1000, domain.VODTypeMovie)

	assert.True(t, s.Movies().Get().Items[0].IsOnWatchlist)
	assert.True(t, s.SelectedVODItem().Get().IsOnWatchlist)
	msg, _ := n.last()
	assert.Equal(t, `"Epic Movie Adventure 1" added to watchlist.`, msg)
}

func TestToggleVOD_IgnoresSelectionOfOtherType(t *testing.T) {
	s, gw, _ := newTestStore(t)

	movie := domain.VODItem{ID: 7, Title: "Movie", Type: domain.VODTypeMovie}
	series := domain.VODItem{ID: 7, Title: "Series", Type: domain.VODTypeSeries}
	seed(t, s, gw, domain.KindMovies, opts(domain.FilterAll), page(1, false, movie))
	s.SelectVODItem(&series)

	gw.on(domain.CmdToggleVODFavorite, func(json.RawMessage) (any, error) {
		m := movie
		m.IsFavorite = true
		return m, nil
	})
	s.ToggleVODFavorite(context.Background(), 7, domain.VODTypeMovie)

	assert.True(t, s.Movies().Get().Items[0].IsFavorite)
	assert.Equal(t, series, *s.SelectedVODItem().Get())
}

func TestToggleVOD_WatchlistPageDropsRemovedItem(t *testing.T) {
	s, gw, _ := newTestStore(t)

	show := domain.VODItem{ID: 2000, Title: "Gripping Series Chronicle 1", Type: domain.VODTypeSeries, IsOnWatchlist: true}
	seed(t, s, gw, domain.KindSeries, opts(domain.FilterWatchlist), page(1, false, show))

	gw.on(domain.CmdToggleVODWatchlist, func(json.RawMessage) (any, error) {
		v := show
		v.IsOnWatchlist = false
		return v, nil
	})
	s.ToggleVODWatchlist(context.Background(), 2000, domain.VODTypeSeries)

	assert.Empty(t, s.Series().Get().Items)
}

func TestBatchFavorite_SettlesWholeSet(t *testing.T) {
	s, gw, n := newTestStore(t)
	seed(t, s, gw, domain.KindChannels, opts(domain.FilterAll), page(3, false, channel(1), channel(2), channel(3)))
	gw.hold(domain.CmdBatchChannelFavorite)

	done := async(func() { s.BatchSetChannelFavorite(context.Background(), []int64{1, 3}, true) })
	call := gw.next(t)

	var args domain.BatchFlagArgs
	require.NoError(t, json.Unmarshal(call.args, &args))
	assert.Equal(t, []int64{1, 3}, args.IDs)
	assert.True(t, args.Value)

	items := s.Channels().Get().Items
	assert.True(t, items[0].IsFavorite)
	assert.False(t, items[1].IsFavorite)
	assert.True(t, items[2].IsFavorite)

	c1, c3 := channel(1), channel(3)
	c1.IsFavorite, c3.IsFavorite = true, true
	call.reply([]domain.Channel{c1, c3})
	wait(t, done)

	items = s.Channels().Get().Items
	assert.Equal(t, c1, items[0])
	assert.Equal(t, channel(2), items[1])
	assert.Equal(t, c3, items[2])

	msg, level := n.last()
	assert.Equal(t, "2 channels added to favorites.", msg)
	assert.Equal(t, domain.LevelSuccess, level)
}

func TestBatchFavorite_FailureRollsBackEverything(t *testing.T) {
	s, gw, n := newTestStore(t)
	seed(t, s, gw, domain.KindChannels, opts(domain.FilterAll), page(2, false, channel(1), channel(2)))
	gw.on(domain.CmdBatchChannelFavorite, func(json.RawMessage) (any, error) {
		return nil, &domain.RemoteCallError{Message: "quota exceeded"}
	})

	s.BatchSetChannelFavorite(context.Background(), []int64{1, 2}, true)

	assert.Equal(t, []domain.Channel{channel(1), channel(2)}, s.Channels().Get().Items)
	msg, _ := n.last()
	assert.Equal(t, "Error updating favorites: quota exceeded", msg)
}

func TestBatchVisibility_RemovesAndCountsActualRemovals(t *testing.T) {
	s, gw, _ := newTestStore(t)
	seed(t, s, gw, domain.KindChannels, opts(domain.FilterAll), page(10, true, channel(1), channel(2)))

	gw.on(domain.CmdBatchChannelVisibility, func(json.RawMessage) (any, error) {
		var out []domain.Channel
		for _, id := range []int64{1, 5} {
			ch := channel(id)
			ch.IsHidden = true
			out = append(out, ch)
		}
		return out, nil
	})
	// channel 5 is not loaded anywhere; the backend still hides it
	s.BatchSetChannelVisibility(context.Background(), []int64{1, 5}, true)

	got := s.Channels().Get()
	require.Len(t, got.Items, 1)
	assert.Equal(t, int64(2), got.Items[0].ID)
	assert.Equal(t, 9, got.Total)
	assert.Equal(t, 1, gw.count(domain.CmdBatchChannelVisibility))
}

func TestBatch_MissingFromReplyIsRestored(t *testing.T) {
	s, gw, _ := newTestStore(t)
	movies := []domain.VODItem{
		{ID: 1, Title: "A", Type: domain.VODTypeMovie},
		{ID: 2, Title: "B", Type: domain.VODTypeMovie},
	}
	seed(t, s, gw, domain.KindMovies, opts(domain.FilterAll), page(2, false, movies...))

	gw.on(domain.CmdBatchVODFavorite, func(json.RawMessage) (any, error) {
		m := movies[0]
		m.IsFavorite = true
		return []domain.VODItem{m}, nil
	})
	s.BatchSetVODFavorite(context.Background(), []int64{1, 2}, domain.VODTypeMovie, true)

	items := s.Movies().Get().Items
	assert.True(t, items[0].IsFavorite)
	assert.Equal(t, movies[1], items[1])
}

func TestBatch_EmptyIsNoop(t *testing.T) {
	s, gw, n := newTestStore(t)

	s.BatchSetChannelVisibility(context.Background(), nil, true)
	s.BatchSetVODWatchlist(context.Background(), []int64{}, domain.VODTypeSeries, true)

	assert.Equal(t, 0, gw.count(domain.CmdBatchChannelVisibility))
	assert.Equal(t, 0, gw.count(domain.CmdBatchVODWatchlist))
	assert.Equal(t, 0, n.count())
}

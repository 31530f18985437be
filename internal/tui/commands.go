package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/rebootv/internal/domain"
	"github.com/mmcdole/rebootv/internal/store"
)

// Command factories for store operations. Store methods block until the
// backend replies; results reach the model through the observer, so the
// commands themselves produce no message.

func storeCmd(ctx context.Context, fn func(ctx context.Context)) tea.Cmd {
	return func() tea.Msg {
		fn(ctx)
		return nil
	}
}

// InitCmd loads the application state and opens view
func InitCmd(ctx context.Context, s *store.Store, view domain.View) tea.Cmd {
	return storeCmd(ctx, func(ctx context.Context) {
		s.Init(ctx)
		s.LoadWatchHistory(ctx)
		s.Navigate(ctx, view)
	})
}

func NavigateCmd(ctx context.Context, s *store.Store, view domain.View) tea.Cmd {
	return storeCmd(ctx, func(ctx context.Context) { s.Navigate(ctx, view) })
}

func SearchCmd(ctx context.Context, s *store.Store, term string) tea.Cmd {
	return storeCmd(ctx, func(ctx context.Context) { s.SetSearchTerm(ctx, term) })
}

func LoadMoreCmd(ctx context.Context, s *store.Store, kind domain.CollectionKind) tea.Cmd {
	return storeCmd(ctx, func(ctx context.Context) { s.LoadMore(ctx, kind) })
}

func RetryCmd(ctx context.Context, s *store.Store, kind domain.CollectionKind) tea.Cmd {
	return storeCmd(ctx, func(ctx context.Context) { s.Retry(ctx, kind) })
}

// ToggleChannelCmd flips flag on a channel
func ToggleChannelCmd(ctx context.Context, s *store.Store, id int64, flag domain.Flag) tea.Cmd {
	return storeCmd(ctx, func(ctx context.Context) { s.ToggleChannelFlag(ctx, id, flag) })
}

// ToggleVODCmd flips flag on a movie or series
func ToggleVODCmd(ctx context.Context, s *store.Store, item domain.VODItem, flag domain.Flag) tea.Cmd {
	return storeCmd(ctx, func(ctx context.Context) { s.ToggleVODFlag(ctx, item.ID, item.Type, flag) })
}

// WatchChannelCmd selects ch and records it as recently watched
func WatchChannelCmd(ctx context.Context, s *store.Store, ch domain.Channel) tea.Cmd {
	return storeCmd(ctx, func(ctx context.Context) {
		s.SelectChannel(&ch)
		s.AddToRecentlyWatched(ctx, ch)
	})
}

// SelectVODCmd selects a movie, or drills into a series
func SelectVODCmd(ctx context.Context, s *store.Store, item domain.VODItem) tea.Cmd {
	return storeCmd(ctx, func(ctx context.Context) {
		if item.Type == domain.VODTypeSeries {
			s.SelectSeries(ctx, &item)
			return
		}
		s.SelectVODItem(&item)
	})
}

// CycleSortCmd advances the sort order of kind
func CycleSortCmd(ctx context.Context, s *store.Store, kind domain.CollectionKind) tea.Cmd {
	return storeCmd(ctx, func(ctx context.Context) {
		switch kind {
		case domain.KindMovies:
			s.SetMovieSortOrder(ctx, s.MovieSortOrder().Get().Next())
		case domain.KindSeries:
			s.SetSeriesSortOrder(ctx, s.SeriesSortOrder().Get().Next())
		default:
			s.SetChannelSortOrder(ctx, s.ChannelSortOrder().Get().Next())
		}
	})
}

// vodFilters is the cycle order of the VOD filter key
var vodFilters = []domain.FilterType{
	domain.FilterAll,
	domain.FilterWatchlist,
	domain.FilterFavorites,
	domain.FilterContinueWatching,
	domain.FilterHistory,
}

// CycleVODFilterCmd advances the VOD filter
func CycleVODFilterCmd(ctx context.Context, s *store.Store) tea.Cmd {
	return storeCmd(ctx, func(ctx context.Context) {
		next := domain.FilterAll
		current := s.VODFilter().Get().Type
		for i, f := range vodFilters {
			if f == current {
				next = vodFilters[(i+1)%len(vodFilters)]
				break
			}
		}
		s.SelectVODFilter(ctx, domain.Filter{Type: next})
	})
}

func ToggleShowHiddenCmd(ctx context.Context, s *store.Store) tea.Cmd {
	return storeCmd(ctx, s.ToggleShowHiddenChannels)
}

func RefreshAllCmd(ctx context.Context, s *store.Store) tea.Cmd {
	return storeCmd(ctx, func(ctx context.Context) { s.RefreshAllPlaylists(ctx, true) })
}

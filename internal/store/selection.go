package store

import (
	"context"

	"github.com/mmcdole/rebootv/internal/domain"
)

func ptr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

// SelectChannel selects ch (nil clears) and clears the VOD and episode slots
func (s *Store) SelectChannel(ch *domain.Channel) {
	s.commit(func(t *tx) {
		set(t, s.selectedChannel, ptr(ch))
		set(t, s.selectedVODItem, nil)
		set(t, s.selectedEpisode, nil)
	})
}

// SelectVODItem selects item (nil clears) and clears the channel and episode slots
func (s *Store) SelectVODItem(item *domain.VODItem) {
	s.commit(func(t *tx) {
		s.selectVODItem(t, item)
	})
}

func (s *Store) selectVODItem(t *tx, item *domain.VODItem) {
	set(t, s.selectedVODItem, ptr(item))
	set(t, s.selectedChannel, nil)
	set(t, s.selectedEpisode, nil)
}

// SelectEpisode selects ep (nil clears) and clears the channel and VOD slots
func (s *Store) SelectEpisode(ep *domain.Episode) {
	s.commit(func(t *tx) {
		set(t, s.selectedEpisode, ptr(ep))
		set(t, s.selectedChannel, nil)
		set(t, s.selectedVODItem, nil)
	})
}

// SelectSeries drills into a series: it becomes the selected VOD item
// and its seasons are fetched. nil leaves the drill-down.
func (s *Store) SelectSeries(ctx context.Context, series *domain.VODItem) {
	if series == nil {
		s.commit(func(t *tx) {
			s.dropSeasons(t)
			set(t, s.selectedSeries, nil)
			s.selectVODItem(t, nil)
		})
		return
	}

	s.commit(func(t *tx) {
		set(t, s.selectedSeries, ptr(series))
		set(t, s.selectedSeason, nil)
		s.selectVODItem(t, series)
	})
	s.FetchSeasons(ctx, series.ID)
}

// dropSeasons clears the drill-down and orphans any in-flight seasons fetch
func (s *Store) dropSeasons(t *tx) {
	s.seasonsEpoch++
	set(t, s.seasons, []domain.Season{})
	set(t, s.seasonsLoading, false)
	set(t, s.selectedSeason, nil)
}

func (s *Store) SelectSeason(season *domain.Season) {
	s.commit(func(t *tx) {
		set(t, s.selectedSeason, ptr(season))
	})
}

func (s *Store) SelectPlaylistForDetails(p *domain.Playlist) {
	s.commit(func(t *tx) {
		set(t, s.selectedPlaylist, ptr(p))
	})
}

// channelKind is the channel collection the current view shows, or the
// live list when the current view is not a channel view
func (s *Store) channelKind() domain.CollectionKind {
	kind, _ := s.currentView.Get().Kind()
	switch kind {
	case domain.KindFavoriteChannels, domain.KindRecentChannels:
		return kind
	default:
		return domain.KindChannels
	}
}

func (s *Store) vodKind() domain.CollectionKind {
	if s.currentView.Get() == domain.ViewSeries {
		return domain.KindSeries
	}
	return domain.KindMovies
}

// SelectCategory filters channels by category (nil for all) and reloads
func (s *Store) SelectCategory(ctx context.Context, id *int64) {
	s.commit(func(t *tx) {
		set(t, s.selectedCategory, ptr(id))
	})
	s.refetch(ctx, s.channelKind())
}

// SetSearchTerm changes the search term and reloads the current view
func (s *Store) SetSearchTerm(ctx context.Context, term string) {
	s.commit(func(t *tx) {
		set(t, s.searchTerm, term)
	})
	s.Reload(ctx)
}

// SelectVODFilter changes the VOD filter and reloads movies or series
func (s *Store) SelectVODFilter(ctx context.Context, f domain.Filter) {
	if f.Type == "" {
		f.Type = domain.FilterAll
	}
	s.commit(func(t *tx) {
		set(t, s.vodFilter, f)
	})
	s.refetch(ctx, s.vodKind())
}

func (s *Store) SetChannelSortOrder(ctx context.Context, o domain.SortOrder) {
	s.commit(func(t *tx) {
		set(t, s.channelSort, o)
	})
	s.refetch(ctx, s.channelKind())
}

func (s *Store) SetMovieSortOrder(ctx context.Context, o domain.SortOrder) {
	s.commit(func(t *tx) {
		set(t, s.movieSort, o)
	})
	s.refetch(ctx, domain.KindMovies)
}

func (s *Store) SetSeriesSortOrder(ctx context.Context, o domain.SortOrder) {
	s.commit(func(t *tx) {
		set(t, s.seriesSort, o)
	})
	s.refetch(ctx, domain.KindSeries)
}

// ToggleShowHiddenChannels switches channel views between hidden and
// visible channels and reloads
func (s *Store) ToggleShowHiddenChannels(ctx context.Context) {
	s.commit(func(t *tx) {
		set(t, s.showHiddenChannels, !s.showHiddenChannels.val)
	})
	s.refetch(ctx, s.channelKind())
}

// Navigate switches the top-level view. Selections, the VOD filter and
// all sort orders are reset before the new view is loaded.
func (s *Store) Navigate(ctx context.Context, view domain.View) {
	s.commit(func(t *tx) {
		set(t, s.selectedChannel, nil)
		set(t, s.selectedVODItem, nil)
		set(t, s.selectedEpisode, nil)
		set(t, s.selectedSeries, nil)
		s.dropSeasons(t)
		set(t, s.vodFilter, domain.Filter{Type: domain.FilterAll})
		set(t, s.channelSort, domain.SortDefault)
		set(t, s.movieSort, domain.SortDefault)
		set(t, s.seriesSort, domain.SortDefault)
		set(t, s.currentView, view)
	})
	s.logger.Debug("navigated", "view", view)
	s.Reload(ctx)
}

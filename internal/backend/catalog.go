package backend

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/mmcdole/rebootv/internal/domain"
)

var (
	movieGenres  = []string{"Action", "Comedy", "Drama", "Sci-Fi", "Thriller"}
	seriesGenres = []string{"Crime", "Sitcom", "Fantasy", "Animated"}
)

// catalog is the provider content served by the backend. User state
// (flags, recents, history) is kept separately and overlaid on reads.
type catalog struct {
	categories []domain.Category
	channels   []domain.Channel
	movies     []domain.VODItem
	series     []domain.VODItem
	seasons    map[int64][]domain.Season
}

// seedPlaylists returns the playlists present on first start
func seedPlaylists(now time.Time) []domain.Playlist {
	day := 24 * time.Hour
	at := func(d time.Duration) *time.Time {
		t := now.Add(d)
		return &t
	}
	return []domain.Playlist{
		{
			ID: 1, Name: "PrimeStreams HD", URL: "http://primestreams.tv:826/player_api.php",
			Type: domain.PlaylistTypeXtream, IsActive: true, Status: domain.PlaylistStatusActive,
			Username: "Kinna1", Password: "***", MaxConnections: 3,
			ExpirationDate: at(30 * day), LastUpdated: at(0),
		},
		{
			ID: 2, Name: "Backup M3U", URL: "http://backup.provider/playlist.m3u",
			Type: domain.PlaylistTypeM3U, Status: domain.PlaylistStatusInactive,
			LastUpdated: at(-2 * day),
		},
		{
			ID: 3, Name: "Stalker Portal VIP", URL: "http://stalker-portal.net/c/",
			Type: domain.PlaylistTypeStalker, IsActive: true, Status: domain.PlaylistStatusActive,
			MacAddress: "00:1A:79:AB:CD:EF", LastUpdated: at(-5 * day),
		},
		{
			ID: lockedPlaylistID, Name: "Free World M3U", URL: "http://freeworld.tv/list.m3u",
			Type: domain.PlaylistTypeM3U, Status: domain.PlaylistStatusError,
			ErrorMessage: "Failed to download playlist: Connection timed out.", LastUpdated: at(-day),
		},
		{
			ID: 5, Name: "Sports Central", URL: "http://sportscentral.live:80/player_api.php",
			Type: domain.PlaylistTypeXtream, IsActive: true, Status: domain.PlaylistStatusActive,
			Username: "user-sports", Password: "***", MaxConnections: 1,
			ExpirationDate: at(90 * day), LastUpdated: at(-6 * time.Hour),
		},
	}
}

// seedState is the user state present on first start
type seedState struct {
	channelFavorites []int64
	categoryHidden   []int64
	movieFavorites   []int64
	movieWatchlist   []int64
	seriesFavorites  []int64
	seriesWatchlist  []int64
	history          map[string]domain.WatchHistory
}

// newCatalog generates the catalog. seed only drives the season and
// episode counts; everything else is deterministic.
func newCatalog(seed uint64, now time.Time) (*catalog, seedState) {
	rng := rand.New(rand.NewPCG(seed, seed))
	c := &catalog{seasons: make(map[int64][]domain.Season)}
	var st seedState

	for i, name := range []string{
		"USA Entertainment", "UK News", "Sports", "Movies",
		"Kids", "Documentaries", "Music", "International",
	} {
		c.categories = append(c.categories, domain.Category{ID: int64(i + 1), PlaylistID: 1, Name: name})
	}
	st.categoryHidden = []int64{8}

	for i := range 150 {
		id := int64(i + 1)
		cat := c.categories[i%len(c.categories)]
		base := int64(i * 3)
		c.channels = append(c.channels, domain.Channel{
			ID:         id,
			PlaylistID: 1,
			Name:       fmt.Sprintf("%s Channel %d", cat.Name, id),
			LogoURL:    fmt.Sprintf("https://picsum.photos/seed/%d/64/64", id),
			StreamURL:  fmt.Sprintf("http://mockstream.tv/live/%d.m3u8", id),
			Category:   cat.Name,
			CategoryID: cat.ID,
			EPG: []domain.EpgEntry{
				programme(base, "Morning News", "Live morning news coverage.", now, -30, 60),
				programme(base+1, "The Mid-day Show", "Talk show with celebrity guests.", now, 30, 90),
				programme(base+2, "Evening Movie", "Tonight's feature film.", now, 120, 120),
			},
		})
		if i%10 == 0 {
			st.channelFavorites = append(st.channelFavorites, id)
		}
	}

	for i := range 120 {
		id := int64(1000 + i)
		c.movies = append(c.movies, domain.VODItem{
			ID:          id,
			PlaylistID:  1,
			Title:       fmt.Sprintf("Epic Movie Adventure %d", i+1),
			StreamURL:   fmt.Sprintf("http://mockstream.tv/movie/%d.mp4", id),
			ImageURL:    fmt.Sprintf("https://picsum.photos/seed/movie%d/200/300", i),
			Type:        domain.VODTypeMovie,
			Description: fmt.Sprintf("An epic description for movie adventure number %d.", i+1),
			ReleaseYear: 2023 - i%20,
			Genres:      []string{movieGenres[i%len(movieGenres)]},
			Duration:    7200 + i*60,
		})
		if i%15 == 0 {
			st.movieFavorites = append(st.movieFavorites, id)
		}
		if i%7 == 0 {
			st.movieWatchlist = append(st.movieWatchlist, id)
		}
	}

	for i := range 40 {
		id := int64(2000 + i)
		c.series = append(c.series, domain.VODItem{
			ID:          id,
			PlaylistID:  1,
			Title:       fmt.Sprintf("Gripping Series Chronicle %d", i+1),
			ImageURL:    fmt.Sprintf("https://picsum.photos/seed/series%d/200/300", i),
			Type:        domain.VODTypeSeries,
			Description: fmt.Sprintf("A gripping chronicle for series number %d.", i+1),
			ReleaseYear: 2024 - i%10,
			Genres:      []string{seriesGenres[i%len(seriesGenres)]},
		})
		if i%8 == 0 {
			st.seriesFavorites = append(st.seriesFavorites, id)
		}
		if i%5 == 0 {
			st.seriesWatchlist = append(st.seriesWatchlist, id)
		}
		c.seasons[id] = seasonsFor(id, rng)
	}

	st.history = map[string]domain.WatchHistory{
		"movie-1001": {ID: "movie-1001", LastPlayedPosition: 3600, WatchedAt: now},
		"movie-1005": {ID: "movie-1005", LastPlayedPosition: 8000, IsFinished: true, WatchedAt: now},
	}
	return c, st
}

func programme(id int64, title, desc string, now time.Time, offsetMin, durationMin int) domain.EpgEntry {
	start := now.Add(time.Duration(offsetMin) * time.Minute)
	return domain.EpgEntry{
		ID:          id,
		Title:       title,
		Description: desc,
		StartTime:   start,
		EndTime:     start.Add(time.Duration(durationMin) * time.Minute),
	}
}

func seasonsFor(seriesID int64, rng *rand.Rand) []domain.Season {
	count := rng.IntN(5) + 2
	seasons := make([]domain.Season, 0, count)
	for n := 1; n <= count; n++ {
		episodes := make([]domain.Episode, rng.IntN(12)+9)
		for j := range episodes {
			episodes[j] = domain.Episode{
				ID:            seriesID*1000 + int64(n*100+j+1),
				SeriesID:      seriesID,
				SeasonNumber:  n,
				EpisodeNumber: j + 1,
				Title:         fmt.Sprintf("Episode %d: The Adventure Begins", j+1),
				Description:   fmt.Sprintf("The exciting description for Season %d, Episode %d.", n, j+1),
				ImageURL:      fmt.Sprintf("https://picsum.photos/seed/ep%d%d%d/160/90", seriesID, n, j),
				StreamURL:     fmt.Sprintf("http://mockstream.tv/series/%d/%d/%d.mp4", seriesID, n, j+1),
				Duration:      1800 + j*10,
			}
		}
		seasons = append(seasons, domain.Season{
			ID:           seriesID*100 + int64(n),
			SeriesID:     seriesID,
			SeasonNumber: n,
			Episodes:     episodes,
		})
	}
	return seasons
}

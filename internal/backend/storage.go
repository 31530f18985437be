package backend

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mmcdole/rebootv/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketPlaylists = []byte("playlists")
	bucketFlags     = []byte("flags")
	bucketHistory   = []byte("history")
	bucketSettings  = []byte("settings")
)

var allBuckets = [][]byte{bucketPlaylists, bucketFlags, bucketHistory, bucketSettings}

// Flag set keys within bucketFlags
const (
	keyChannelFavorites = "channel:favorite"
	keyChannelHidden    = "channel:hidden"
	keyMovieFavorites   = "movie:favorite"
	keyMovieWatchlist   = "movie:watchlist"
	keySeriesFavorites  = "series:favorite"
	keySeriesWatchlist  = "series:watchlist"
	keyCategoryHidden   = "category:hidden"
	keyRecentChannels   = "channel:recent"
)

// Storage persists user state in BoltDB.
type Storage struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access)
	cache map[string][]byte
}

// OpenStorage opens rebootv.db under dir. An empty dir keeps everything in memory.
func OpenStorage(dir string) (*Storage, error) {
	if dir == "" {
		// Memory-only mode (no persistence)
		return &Storage{cache: make(map[string][]byte)}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "rebootv.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Storage{db: db, cache: make(map[string][]byte)}, nil
}

func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Generic helpers ===

func (s *Storage) get(bucket []byte, key string, dest any) bool {
	cacheKey := string(bucket) + ":" + key

	s.mu.RLock()
	if data, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		return json.Unmarshal(data, dest) == nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return false
	}

	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if data == nil {
		return false
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	return json.Unmarshal(data, dest) == nil
}

func (s *Storage) set(bucket []byte, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if s.db != nil {
		err := s.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(bucket).Put([]byte(key), data)
		})
		if err != nil {
			return err
		}
	}

	// cache only what was written
	s.mu.Lock()
	s.cache[string(bucket)+":"+key] = data
	s.mu.Unlock()
	return nil
}

// === Playlists ===

func (s *Storage) Playlists() ([]domain.Playlist, bool) {
	var playlists []domain.Playlist
	ok := s.get(bucketPlaylists, "list", &playlists)
	return playlists, ok
}

func (s *Storage) SavePlaylists(playlists []domain.Playlist) error {
	return s.set(bucketPlaylists, "list", playlists)
}

// === Flag sets (key: {entity}:{flag}) ===

// IDs returns the stored id list under key, in stored order
func (s *Storage) IDs(key string) ([]int64, bool) {
	var ids []int64
	ok := s.get(bucketFlags, key, &ids)
	return ids, ok
}

func (s *Storage) SaveIDs(key string, ids []int64) error {
	return s.set(bucketFlags, key, ids)
}

// === Watch history (key: history id, e.g. "movie-1001") ===

func (s *Storage) History() (map[string]domain.WatchHistory, bool) {
	var h map[string]domain.WatchHistory
	ok := s.get(bucketHistory, "all", &h)
	return h, ok
}

func (s *Storage) SaveHistory(h map[string]domain.WatchHistory) error {
	return s.set(bucketHistory, "all", h)
}

// === Settings (opaque JSON document owned by the client) ===

func (s *Storage) Settings() (json.RawMessage, bool) {
	var raw json.RawMessage
	ok := s.get(bucketSettings, "app", &raw)
	return raw, ok
}

func (s *Storage) SaveSettings(raw json.RawMessage) error {
	return s.set(bucketSettings, "app", raw)
}

// Reset wipes all persisted user state
func (s *Storage) Reset() error {
	s.mu.Lock()
	s.cache = make(map[string][]byte)
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if tx.Bucket(bucket) != nil {
				if err := tx.DeleteBucket(bucket); err != nil {
					return err
				}
			}
			if _, err := tx.CreateBucket(bucket); err != nil {
				return err
			}
		}
		return nil
	})
}

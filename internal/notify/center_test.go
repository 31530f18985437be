package notify

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mmcdole/rebootv/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCenter_ShowAndRemove(t *testing.T) {
	c := NewCenter(0, nil)

	id := c.ShowFor("Playlist added!", domain.LevelSuccess, 0)
	c.Show("Refreshing playlist...", domain.LevelInfo)

	items := c.Notifications()
	require.Len(t, items, 2)
	assert.Equal(t, "Playlist added!", items[0].Message)
	assert.Equal(t, domain.LevelSuccess, items[0].Level)
	assert.NotEmpty(t, items[0].ID)
	assert.NotEqual(t, items[0].ID, items[1].ID)

	c.Remove(id)
	items = c.Notifications()
	require.Len(t, items, 1)
	assert.Equal(t, "Refreshing playlist...", items[0].Message)

	c.Remove("does-not-exist")
	assert.Len(t, c.Notifications(), 1)
}

func TestCenter_Expiry(t *testing.T) {
	c := NewCenter(20*time.Millisecond, nil)
	c.Show("short lived", domain.LevelError)
	require.Len(t, c.Notifications(), 1)

	assert.Eventually(t, func() bool {
		return len(c.Notifications()) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestCenter_Subscribe(t *testing.T) {
	c := NewCenter(0, nil)

	var seen [][]Notification
	unsubscribe := c.Subscribe(func(items []Notification) {
		seen = append(seen, items)
	})

	c.Show("one", domain.LevelInfo)
	c.Show("two", domain.LevelInfo)
	unsubscribe()
	c.Show("three", domain.LevelInfo)

	require.Len(t, seen, 2)
	assert.Len(t, seen[0], 1)
	assert.Len(t, seen[1], 2)
}

func TestCenter_SubscribersSeeLatestQueue(t *testing.T) {
	c := NewCenter(0, nil)

	var (
		mu   sync.Mutex
		last []Notification
	)
	c.Subscribe(func(items []Notification) {
		mu.Lock()
		defer mu.Unlock()
		last = items
	})

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := c.ShowFor(fmt.Sprintf("note %d", i), domain.LevelInfo, 0)
			if i%2 == 0 {
				c.Remove(id)
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, c.Notifications(), last)
	assert.Len(t, last, 10)
}

package notify

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/rebootv/internal/domain"
)

const DefaultDuration = 5 * time.Second

// Notification is a single toast
type Notification struct {
	ID      string
	Message string
	Level   domain.Level
	Created time.Time
}

// Center is an ephemeral toast queue. Notifications expire after their
// duration; a zero duration keeps them until Remove is called.
type Center struct {
	mu       sync.Mutex
	items    []Notification
	duration time.Duration
	subs     map[int]func([]Notification)
	nextSub  int
	logger   *slog.Logger

	// rev counts queue changes; delivered is the last rev published.
	// pubMu serializes delivery so subscribers never see an older queue
	// after a newer one.
	rev       uint64
	pubMu     sync.Mutex
	delivered uint64
}

// NewCenter creates a notification center with the given default duration
func NewCenter(duration time.Duration, logger *slog.Logger) *Center {
	if logger == nil {
		logger = slog.Default()
	}
	return &Center{
		duration: duration,
		subs:     make(map[int]func([]Notification)),
		logger:   logger,
	}
}

// Show implements domain.Notifier using the default duration
func (c *Center) Show(message string, level domain.Level) {
	c.ShowFor(message, level, c.duration)
}

// ShowFor queues a notification that expires after d (never if d <= 0)
func (c *Center) ShowFor(message string, level domain.Level, d time.Duration) string {
	n := Notification{
		ID:      uuid.NewString(),
		Message: message,
		Level:   level,
		Created: time.Now(),
	}

	c.mu.Lock()
	c.items = append(c.items, n)
	c.rev++
	rev, snapshot := c.rev, slices.Clone(c.items)
	c.mu.Unlock()

	c.logger.Debug("notification", "id", n.ID, "level", level, "message", message)
	c.publish(rev, snapshot)

	if d > 0 {
		time.AfterFunc(d, func() { c.Remove(n.ID) })
	}
	return n.ID
}

// Remove drops a notification; unknown ids are ignored
func (c *Center) Remove(id string) {
	c.mu.Lock()
	idx := slices.IndexFunc(c.items, func(n Notification) bool { return n.ID == id })
	if idx < 0 {
		c.mu.Unlock()
		return
	}
	c.items = slices.Delete(c.items, idx, idx+1)
	c.rev++
	rev, snapshot := c.rev, slices.Clone(c.items)
	c.mu.Unlock()

	c.publish(rev, snapshot)
}

// Notifications returns the current queue, oldest first
func (c *Center) Notifications() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

// Subscribe registers fn for queue changes
func (c *Center) Subscribe(fn func([]Notification)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// publish delivers the queue at rev. A snapshot overtaken by a later
// change that was already delivered is dropped.
func (c *Center) publish(rev uint64, items []Notification) {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()
	if rev <= c.delivered {
		return
	}
	c.delivered = rev

	c.mu.Lock()
	fns := make([]func([]Notification), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(items)
	}
}

package store

import "sync"

// Cell is a read-only observable value owned by a Store. Only the store
// writes to it; consumers read with Get or register with Subscribe.
type Cell[T any] struct {
	lock *sync.RWMutex // the owning store's lock
	val  T

	subMu  sync.Mutex
	subs   map[uint64]func(T)
	nextID uint64
}

func newCell[T any](lock *sync.RWMutex, v T) *Cell[T] {
	return &Cell[T]{lock: lock, val: v, subs: make(map[uint64]func(T))}
}

// Get returns the current value
func (c *Cell[T]) Get() T {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.val
}

// Subscribe registers fn to be called with every committed value.
// fn runs on the goroutine that committed the change, after the store
// lock has been released.
func (c *Cell[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	c.subMu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Cell[T]) notify(v T) {
	c.subMu.Lock()
	fns := make([]func(T), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// tx collects the cells written during one commit
type tx struct {
	order []any
	dirty map[any]func()
}

// set writes v into c. Must only be called inside Store.commit.
func set[T any](t *tx, c *Cell[T], v T) {
	c.val = v
	if _, ok := t.dirty[c]; !ok {
		t.order = append(t.order, c)
	}
	t.dirty[c] = func() { c.notify(v) }
}

func (t *tx) flush() {
	for _, c := range t.order {
		t.dirty[c]()
	}
}

package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/rebootv/internal/notify"
	"github.com/mmcdole/rebootv/internal/store"
)

// StateChangedMsg signals that store or notification state changed
type StateChangedMsg struct{}

// ChannelObserver adapts store and notification callbacks to a channel
// for Bubble Tea. Bursts of changes collapse into one pending signal.
type ChannelObserver struct {
	ch chan struct{}
}

// NewChannelObserver creates a new channel-based observer.
func NewChannelObserver() *ChannelObserver {
	return &ChannelObserver{ch: make(chan struct{}, 1)}
}

// Notify records a change (non-blocking if one is already pending).
func (o *ChannelObserver) Notify() {
	select {
	case o.ch <- struct{}{}:
	default: // a signal is already pending
	}
}

// Attach subscribes the observer to s and c. The returned function detaches it.
func (o *ChannelObserver) Attach(s *store.Store, c *notify.Center) (detach func()) {
	unwatch := s.Watch(o.Notify)
	unsubscribe := c.Subscribe(func([]notify.Notification) { o.Notify() })
	return func() {
		unwatch()
		unsubscribe()
	}
}

// Wait returns a command that blocks until the next change
func (o *ChannelObserver) Wait() tea.Cmd {
	return func() tea.Msg {
		<-o.ch
		return StateChangedMsg{}
	}
}

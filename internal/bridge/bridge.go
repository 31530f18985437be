package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/mmcdole/rebootv/internal/domain"
)

// HandlerFunc serves one backend command. args is the JSON-encoded
// argument DTO (nil when the caller passed none).
type HandlerFunc func(ctx context.Context, args json.RawMessage) (any, error)

// Bridge is an in-process domain.Gateway. Every call crosses a JSON
// boundary so handlers and callers only share DTO shapes.
type Bridge struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	subs     map[string]map[uint64]func(json.RawMessage)
	nextSub  uint64

	// latency is the upper bound of the random delay applied to each call
	latency time.Duration
	logger  *slog.Logger
}

// New creates a bridge. A positive latency delays each Invoke by a random
// duration in [0, latency) so replies can arrive out of order.
func New(latency time.Duration, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		handlers: make(map[string]HandlerFunc),
		subs:     make(map[string]map[uint64]func(json.RawMessage)),
		latency:  latency,
		logger:   logger,
	}
}

// Register installs the handler for command, replacing any previous one
func (b *Bridge) Register(command string, h HandlerFunc) {
	b.mu.Lock()
	b.handlers[command] = h
	b.mu.Unlock()
}

// Invoke implements domain.Gateway
func (b *Bridge) Invoke(ctx context.Context, command string, args any, out any) error {
	b.mu.RLock()
	h, ok := b.handlers[command]
	b.mu.RUnlock()
	if !ok {
		b.logger.Error("unhandled command", "command", command)
		return &domain.RemoteCallError{
			Command: command,
			Message: fmt.Sprintf("Unhandled command: %s", command),
			Err:     domain.ErrUnknownCommand,
		}
	}

	var raw json.RawMessage
	if args != nil {
		data, err := json.Marshal(args)
		if err != nil {
			return &domain.RemoteCallError{Command: command, Message: "failed to encode arguments", Err: err}
		}
		raw = data
	}

	if err := b.delay(ctx); err != nil {
		return &domain.RemoteCallError{Command: command, Message: err.Error(), Err: err}
	}

	b.logger.Debug("invoke", "command", command, "args", string(raw))

	result, err := h(ctx, raw)
	if err != nil {
		b.logger.Debug("command rejected", "command", command, "error", err)
		var rce *domain.RemoteCallError
		if errors.As(err, &rce) {
			return rce
		}
		return &domain.RemoteCallError{Command: command, Message: err.Error(), Err: err}
	}

	if out == nil || result == nil {
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return &domain.RemoteCallError{Command: command, Message: "failed to encode result", Err: err}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &domain.RemoteCallError{Command: command, Message: "failed to decode result", Err: err}
	}
	return nil
}

// Subscribe implements domain.Gateway
func (b *Bridge) Subscribe(event string, handler func(payload json.RawMessage)) func() {
	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	if b.subs[event] == nil {
		b.subs[event] = make(map[uint64]func(json.RawMessage))
	}
	b.subs[event][id] = handler
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs[event], id)
		b.mu.Unlock()
	}
}

// Emit delivers payload to every current subscriber of event on the
// calling goroutine. A nil payload is delivered as JSON null.
func (b *Bridge) Emit(event string, payload any) {
	raw := json.RawMessage("null")
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			b.logger.Error("failed to encode event payload", "event", event, "error", err)
			return
		}
		raw = data
	}

	b.mu.RLock()
	handlers := make([]func(json.RawMessage), 0, len(b.subs[event]))
	for _, h := range b.subs[event] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	b.logger.Debug("emit", "event", event, "subscribers", len(handlers))
	for _, h := range handlers {
		h(raw)
	}
}

func (b *Bridge) delay(ctx context.Context) error {
	if b.latency <= 0 {
		return ctx.Err()
	}
	d := time.Duration(rand.Int64N(int64(b.latency)))
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Call invokes command on gw and returns the decoded result
func Call[T any](ctx context.Context, gw domain.Gateway, command string, args any) (T, error) {
	var out T
	err := gw.Invoke(ctx, command, args, &out)
	return out, err
}

// Decode unmarshals handler arguments, treating empty input as the zero value
func Decode[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("invalid arguments: %w", err)
	}
	return v, nil
}

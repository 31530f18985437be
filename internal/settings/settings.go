package settings

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mmcdole/rebootv/internal/domain"
)

// BufferSize is the player's network cache preset
type BufferSize string

const (
	BufferOff    BufferSize = "off"
	BufferSmall  BufferSize = "small"
	BufferMedium BufferSize = "medium"
	BufferLarge  BufferSize = "large"
)

// AppSettings holds user preferences persisted by the backend
type AppSettings struct {
	DefaultView         domain.View `json:"defaultView"`
	RefreshOnStart      bool        `json:"refreshOnStart"`
	MinimizeToTray      bool        `json:"minimizeToTray"`
	ExitToTray          bool        `json:"exitToTray"`
	MpvParams           string      `json:"mpvParams"`
	StartVolume         int         `json:"startVolume"`
	HWAccel             bool        `json:"hwAccel"`
	BufferSize          BufferSize  `json:"bufferSize"`
	EPGTimeOffset       int         `json:"epgTimeOffset"`       // minutes
	EPGRefreshFrequency int         `json:"epgRefreshFrequency"` // hours
}

// Defaults returns the settings used before anything has been saved
func Defaults() AppSettings {
	return AppSettings{
		DefaultView:         domain.ViewLiveTV,
		RefreshOnStart:      true,
		MpvParams:           "--hwdec=auto",
		StartVolume:         100,
		HWAccel:             true,
		BufferSize:          BufferMedium,
		EPGRefreshFrequency: 12,
	}
}

type saveArgs struct {
	Settings AppSettings `json:"settings"`
}

// Service loads and saves AppSettings through the gateway
type Service struct {
	gw     domain.Gateway
	logger *slog.Logger

	mu      sync.RWMutex
	current AppSettings

	subMu  sync.Mutex
	subs   map[uint64]func(AppSettings)
	nextID uint64
}

// NewService creates a settings service holding the defaults until Load
func NewService(gw domain.Gateway, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		gw:      gw,
		logger:  logger,
		current: Defaults(),
		subs:    make(map[uint64]func(AppSettings)),
	}
}

// Load fetches the saved settings. When nothing has been saved yet the
// defaults are persisted. A backend failure falls back to the defaults.
func (s *Service) Load(ctx context.Context) error {
	var saved *AppSettings
	if err := s.gw.Invoke(ctx, domain.CmdGetSettings, nil, &saved); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Error("failed to load settings, using defaults", "error", err)
		s.set(Defaults())
		return nil
	}

	if saved == nil {
		s.logger.Info("no saved settings, initializing defaults")
		s.set(Defaults())
		s.save(ctx, Defaults())
		return nil
	}
	s.set(*saved)
	return nil
}

// Get returns the current settings
func (s *Service) Get() AppSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update applies fn to a copy of the current settings and persists the
// result. Persistence failures are logged; the new value is kept.
func (s *Service) Update(ctx context.Context, fn func(*AppSettings)) AppSettings {
	s.mu.Lock()
	next := s.current
	fn(&next)
	s.current = next
	s.mu.Unlock()

	s.notify(next)
	s.save(ctx, next)
	return next
}

// Subscribe registers fn to be called whenever the settings change
func (s *Service) Subscribe(fn func(AppSettings)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Service) set(v AppSettings) {
	s.mu.Lock()
	s.current = v
	s.mu.Unlock()
	s.notify(v)
}

func (s *Service) save(ctx context.Context, v AppSettings) {
	if err := s.gw.Invoke(ctx, domain.CmdSaveSettings, saveArgs{Settings: v}, nil); err != nil {
		s.logger.Error("failed to save settings", "error", err)
	}
}

func (s *Service) notify(v AppSettings) {
	s.subMu.Lock()
	fns := make([]func(AppSettings), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

package settings

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mmcdole/rebootv/internal/bridge"
	"github.com/mmcdole/rebootv/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryBackend serves get_settings/save_settings from a byte slice
type memoryBackend struct {
	saved   json.RawMessage
	saves   int
	failGet bool
}

func (m *memoryBackend) register(br *bridge.Bridge) {
	br.Register(domain.CmdGetSettings, func(context.Context, json.RawMessage) (any, error) {
		if m.failGet {
			return nil, errors.New("database is locked")
		}
		return m.saved, nil
	})
	br.Register(domain.CmdSaveSettings, func(_ context.Context, raw json.RawMessage) (any, error) {
		args, err := bridge.Decode[struct {
			Settings json.RawMessage `json:"settings"`
		}](raw)
		if err != nil {
			return nil, err
		}
		m.saved = args.Settings
		m.saves++
		return nil, nil
	})
}

func newTestService(t *testing.T) (*Service, *memoryBackend) {
	t.Helper()
	br := bridge.New(0, nil)
	m := &memoryBackend{}
	m.register(br)
	return NewService(br, nil), m
}

func TestLoad_PersistsDefaultsWhenEmpty(t *testing.T) {
	s, m := newTestService(t)

	require.NoError(t, s.Load(context.Background()))

	assert.Equal(t, Defaults(), s.Get())
	assert.Equal(t, 1, m.saves)

	var persisted AppSettings
	require.NoError(t, json.Unmarshal(m.saved, &persisted))
	assert.Equal(t, Defaults(), persisted)
}

func TestLoad_UsesSavedSettings(t *testing.T) {
	s, m := newTestService(t)
	m.saved = json.RawMessage(`{"defaultView":"movies","startVolume":40,"bufferSize":"large"}`)

	require.NoError(t, s.Load(context.Background()))

	got := s.Get()
	assert.Equal(t, domain.ViewMovies, got.DefaultView)
	assert.Equal(t, 40, got.StartVolume)
	assert.Equal(t, BufferLarge, got.BufferSize)
	assert.Equal(t, 0, m.saves)
}

func TestLoad_BackendFailureFallsBackToDefaults(t *testing.T) {
	s, m := newTestService(t)
	m.failGet = true
	s.Update(context.Background(), func(a *AppSettings) { a.StartVolume = 10 })

	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, Defaults(), s.Get())
}

func TestLoad_CanceledContext(t *testing.T) {
	s, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Load(ctx), context.Canceled)
}

func TestUpdate_AppliesPersistsAndNotifies(t *testing.T) {
	s, m := newTestService(t)

	var seen []AppSettings
	unsubscribe := s.Subscribe(func(a AppSettings) { seen = append(seen, a) })

	got := s.Update(context.Background(), func(a *AppSettings) {
		a.EPGTimeOffset = -60
		a.HWAccel = false
	})

	assert.Equal(t, -60, got.EPGTimeOffset)
	assert.False(t, s.Get().HWAccel)
	assert.Equal(t, "--hwdec=auto", s.Get().MpvParams)
	require.Len(t, seen, 1)
	assert.Equal(t, got, seen[0])
	assert.Equal(t, 1, m.saves)

	unsubscribe()
	s.Update(context.Background(), func(a *AppSettings) { a.ExitToTray = true })
	assert.Len(t, seen, 1)
}

func TestUpdate_KeepsValueWhenSaveFails(t *testing.T) {
	br := bridge.New(0, nil)
	br.Register(domain.CmdSaveSettings, func(context.Context, json.RawMessage) (any, error) {
		return nil, errors.New("disk full")
	})
	s := NewService(br, nil)

	s.Update(context.Background(), func(a *AppSettings) { a.MinimizeToTray = true })
	assert.True(t, s.Get().MinimizeToTray)
}

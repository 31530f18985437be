package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mmcdole/rebootv/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridge_InvokeRoundTrip(t *testing.T) {
	b := New(0, nil)
	b.Register(domain.CmdToggleChannelFavorite, func(ctx context.Context, raw json.RawMessage) (any, error) {
		args, err := Decode[domain.IDArgs](raw)
		if err != nil {
			return nil, err
		}
		return domain.Channel{ID: args.ID, Name: "BBC One", IsFavorite: true}, nil
	})

	ch, err := Call[domain.Channel](context.Background(), b, domain.CmdToggleChannelFavorite, domain.IDArgs{ID: 7})
	require.NoError(t, err)
	assert.Equal(t, int64(7), ch.ID)
	assert.True(t, ch.IsFavorite)
}

func TestBridge_InvokeNilOut(t *testing.T) {
	b := New(0, nil)
	called := false
	b.Register(domain.CmdClearEPGCache, func(ctx context.Context, raw json.RawMessage) (any, error) {
		called = true
		assert.Empty(t, raw)
		return nil, nil
	})

	require.NoError(t, b.Invoke(context.Background(), domain.CmdClearEPGCache, nil, nil))
	assert.True(t, called)
}

func TestBridge_UnknownCommand(t *testing.T) {
	b := New(0, nil)
	err := b.Invoke(context.Background(), "nope", nil, nil)

	var rce *domain.RemoteCallError
	require.ErrorAs(t, err, &rce)
	assert.Equal(t, "Unhandled command: nope", rce.Message)
	assert.ErrorIs(t, err, domain.ErrUnknownCommand)
}

func TestBridge_HandlerErrorBecomesRemoteCallError(t *testing.T) {
	b := New(0, nil)
	b.Register(domain.CmdDeletePlaylist, func(ctx context.Context, raw json.RawMessage) (any, error) {
		return nil, domain.ErrPlaylistLocked
	})

	err := b.Invoke(context.Background(), domain.CmdDeletePlaylist, domain.IDArgs{ID: 4}, nil)
	var rce *domain.RemoteCallError
	require.True(t, errors.As(err, &rce))
	assert.Equal(t, domain.CmdDeletePlaylist, rce.Command)
	assert.Equal(t, domain.ErrPlaylistLocked.Error(), domain.ErrorMessage(err))
	assert.ErrorIs(t, err, domain.ErrPlaylistLocked)
}

func TestBridge_LatencyHonoursContext(t *testing.T) {
	b := New(time.Hour, nil)
	b.Register(domain.CmdGetPlaylists, func(ctx context.Context, raw json.RawMessage) (any, error) {
		return []domain.Playlist{}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Invoke(ctx, domain.CmdGetPlaylists, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBridge_SubscribeEmit(t *testing.T) {
	b := New(0, nil)

	var got []domain.Playlist
	unsubscribe := b.Subscribe(domain.EventPlaylistUpdate, func(payload json.RawMessage) {
		var p domain.Playlist
		require.NoError(t, json.Unmarshal(payload, &p))
		got = append(got, p)
	})

	completes := 0
	b.Subscribe(domain.EventRefreshComplete, func(payload json.RawMessage) {
		assert.Equal(t, "null", string(payload))
		completes++
	})

	b.Emit(domain.EventPlaylistUpdate, domain.Playlist{ID: 1, Status: domain.PlaylistStatusLoading})
	b.Emit(domain.EventRefreshComplete, nil)
	unsubscribe()
	b.Emit(domain.EventPlaylistUpdate, domain.Playlist{ID: 1, Status: domain.PlaylistStatusActive})

	require.Len(t, got, 1)
	assert.Equal(t, domain.PlaylistStatusLoading, got[0].Status)
	assert.Equal(t, 1, completes)
}

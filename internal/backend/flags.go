package backend

import (
	"context"
	"fmt"

	"github.com/mmcdole/rebootv/internal/domain"
)

func (b *Backend) toggleChannel(key string) func(context.Context, domain.IDArgs) (any, error) {
	return func(_ context.Context, args domain.IDArgs) (any, error) {
		b.mu.Lock()
		defer b.mu.Unlock()

		c, ok := b.findChannel(args.ID)
		if !ok {
			return nil, fmt.Errorf("channel %d: %w", args.ID, domain.ErrNotFound)
		}
		if err := b.setFlag(key, []int64{args.ID}, !b.flags[key][args.ID]); err != nil {
			return nil, err
		}
		return b.channelView(c), nil
	}
}

// batchChannels sets the flag under key on every known channel in ids
// and returns the updated channels. Unknown ids are skipped.
func (b *Backend) batchChannels(key string) func(context.Context, domain.BatchFlagArgs) (any, error) {
	return func(_ context.Context, args domain.BatchFlagArgs) (any, error) {
		b.mu.Lock()
		defer b.mu.Unlock()

		var (
			ids     []int64
			updated []domain.Channel
		)
		for _, id := range args.IDs {
			if c, ok := b.findChannel(id); ok {
				ids = append(ids, id)
				updated = append(updated, c)
			}
		}
		if err := b.setFlag(key, ids, args.Value); err != nil {
			return nil, err
		}
		for i := range updated {
			updated[i] = b.channelView(updated[i])
		}
		return updated, nil
	}
}

func (b *Backend) toggleVOD(f domain.Flag) func(context.Context, domain.VODArgs) (any, error) {
	return func(_ context.Context, args domain.VODArgs) (any, error) {
		b.mu.Lock()
		defer b.mu.Unlock()

		v, ok := b.findVOD(args.Type, args.ID)
		if !ok {
			return nil, fmt.Errorf("%s %d: %w", args.Type, args.ID, domain.ErrNotFound)
		}
		key := vodFlagKey(args.Type, f)
		if err := b.setFlag(key, []int64{args.ID}, !b.flags[key][args.ID]); err != nil {
			return nil, err
		}
		return b.vodView(v), nil
	}
}

func (b *Backend) batchVOD(f domain.Flag) func(context.Context, domain.BatchFlagArgs) (any, error) {
	return func(_ context.Context, args domain.BatchFlagArgs) (any, error) {
		b.mu.Lock()
		defer b.mu.Unlock()

		var (
			ids     []int64
			updated []domain.VODItem
		)
		for _, id := range args.IDs {
			if v, ok := b.findVOD(args.Type, id); ok {
				ids = append(ids, id)
				updated = append(updated, v)
			}
		}
		if err := b.setFlag(vodFlagKey(args.Type, f), ids, args.Value); err != nil {
			return nil, err
		}
		for i := range updated {
			updated[i] = b.vodView(updated[i])
		}
		return updated, nil
	}
}

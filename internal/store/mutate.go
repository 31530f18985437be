package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/mmcdole/rebootv/internal/domain"
)

// holder is one place a copy of an entity can live: a collection page
// or a selection slot.
type holder[T domain.Entity[T]] interface {
	find(id int64) (T, bool)
	// replace writes v over every copy of id
	replace(t *tx, id int64, v T)
	// settle writes the confirmed value, dropping it when it no longer
	// belongs. Returns the number of copies removed.
	settle(t *tx, id int64, v T) int
}

type pageHolder[T domain.Entity[T]] struct {
	c *collection[T]
}

func (h pageHolder[T]) find(id int64) (T, bool) {
	for _, item := range h.c.page.val.Items {
		if item.EntityID() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

func (h pageHolder[T]) replace(t *tx, id int64, v T) {
	page := h.c.page.val
	items := slices.Clone(page.Items)
	changed := false
	for i, item := range items {
		if item.EntityID() == id {
			items[i] = v
			changed = true
		}
	}
	if changed {
		page.Items = items
		set(t, h.c.page, page)
	}
}

// settle removes v from pages whose filter it no longer matches and
// decrements Total. An item that starts matching is never inserted:
// its position is only known after the next fetch.
func (h pageHolder[T]) settle(t *tx, id int64, v T) int {
	if !h.c.fetched || h.c.member == nil || h.c.member(h.c.applied, v) {
		h.replace(t, id, v)
		return 0
	}

	page := h.c.page.val
	items := make([]T, 0, len(page.Items))
	for _, item := range page.Items {
		if item.EntityID() != id {
			items = append(items, item)
		}
	}
	removed := len(page.Items) - len(items)
	if removed == 0 {
		return 0
	}
	page.Items = items
	page.Total = max(0, page.Total-removed)
	set(t, h.c.page, page)
	return removed
}

type slotHolder[T domain.Entity[T]] struct {
	cell *Cell[*T]
}

func (h slotHolder[T]) find(id int64) (T, bool) {
	if v := h.cell.val; v != nil && (*v).EntityID() == id {
		return *v, true
	}
	var zero T
	return zero, false
}

func (h slotHolder[T]) replace(t *tx, id int64, v T) {
	if _, ok := h.find(id); ok {
		set(t, h.cell, &v)
	}
}

func (h slotHolder[T]) settle(t *tx, id int64, v T) int {
	h.replace(t, id, v)
	return 0
}

// locate returns the first copy of id held by any of holders
func locate[T domain.Entity[T]](holders []holder[T], id int64) (T, bool) {
	for _, h := range holders {
		if v, ok := h.find(id); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// mutation describes one optimistic single-entity flag toggle
type mutation[T domain.Entity[T]] struct {
	key     string
	id      int64
	flag    domain.Flag
	holders []holder[T]
	call    func(ctx context.Context) (T, error)

	// success renders the notification for the confirmed entity
	success func(final T) string
	// failure prefixes the error message in the failure notification
	failure string
}

// toggle flips m.flag on every held copy of m.id, asks the backend to do
// the same and then settles every copy to the backend's entity, or
// restores the snapshot taken before the flip if the call fails.
// Mutations of the same entity run one at a time.
func toggle[T domain.Entity[T]](ctx context.Context, s *Store, m mutation[T]) {
	unlock := s.mutations.lock(m.key)
	defer unlock()

	var (
		original T
		found    bool
	)
	s.commit(func(t *tx) {
		original, found = locate(m.holders, m.id)
		if !found {
			return
		}
		optimistic := original.WithFlag(m.flag, !original.HasFlag(m.flag))
		for _, h := range m.holders {
			h.replace(t, m.id, optimistic)
		}
	})
	if !found {
		s.logger.Debug("toggle of entity not held by any view", "key", m.key, "flag", m.flag)
		return
	}

	final, err := m.call(ctx)
	if err != nil {
		s.commit(func(t *tx) {
			for _, h := range m.holders {
				h.replace(t, m.id, original)
			}
		})
		s.logger.Error("failed to toggle flag", "error", err, "key", m.key, "flag", m.flag)
		s.notify(domain.LevelError, "%s: %s", m.failure, domain.ErrorMessage(err))
		return
	}

	s.commit(func(t *tx) {
		for _, h := range m.holders {
			h.settle(t, m.id, final)
		}
	})
	s.notify(domain.LevelInfo, "%s", m.success(final))
}

// batchMutation sets one flag to value on a set of entities
type batchMutation[T domain.Entity[T]] struct {
	keyPrefix string
	ids       []int64
	flag      domain.Flag
	value     bool
	holders   []holder[T]
	call      func(ctx context.Context) ([]T, error)

	success func(n int) string
	failure string
}

// toggleBatch applies the whole set optimistically and settles or rolls
// back as one unit. Entities missing from the backend reply are restored.
func toggleBatch[T domain.Entity[T]](ctx context.Context, s *Store, m batchMutation[T]) {
	if len(m.ids) == 0 {
		return
	}

	keys := make([]string, len(m.ids))
	for i, id := range m.ids {
		keys[i] = fmt.Sprintf("%s:%d", m.keyPrefix, id)
	}
	unlock := s.mutations.lockAll(keys)
	defer unlock()

	originals := make(map[int64]T, len(m.ids))
	s.commit(func(t *tx) {
		for _, id := range m.ids {
			v, ok := locate(m.holders, id)
			if !ok {
				continue
			}
			originals[id] = v
			for _, h := range m.holders {
				h.replace(t, id, v.WithFlag(m.flag, m.value))
			}
		}
	})

	updated, err := m.call(ctx)
	if err != nil {
		s.commit(func(t *tx) {
			for id, v := range originals {
				for _, h := range m.holders {
					h.replace(t, id, v)
				}
			}
		})
		s.logger.Error("failed to apply batch", "error", err, "flag", m.flag, "count", len(m.ids))
		s.notify(domain.LevelError, "%s: %s", m.failure, domain.ErrorMessage(err))
		return
	}

	removed := 0
	s.commit(func(t *tx) {
		seen := make(map[int64]bool, len(updated))
		for _, v := range updated {
			id := v.EntityID()
			seen[id] = true
			for _, h := range m.holders {
				removed += h.settle(t, id, v)
			}
		}
		for id, v := range originals {
			if seen[id] {
				continue
			}
			for _, h := range m.holders {
				h.replace(t, id, v)
			}
		}
	})
	s.logger.Debug("batch applied", "flag", m.flag, "requested", len(m.ids), "updated", len(updated), "removed", removed)
	s.notify(domain.LevelSuccess, "%s", m.success(len(m.ids)))
}

// === Channels ===

func (s *Store) channelHolders() []holder[domain.Channel] {
	return []holder[domain.Channel]{
		pageHolder[domain.Channel]{s.channels},
		pageHolder[domain.Channel]{s.favorites},
		pageHolder[domain.Channel]{s.recent},
		slotHolder[domain.Channel]{s.selectedChannel},
	}
}

// ToggleChannelFavorite flips the favorite flag of a channel across all
// channel views and the selection
func (s *Store) ToggleChannelFavorite(ctx context.Context, id int64) {
	s.ToggleChannelFlag(ctx, id, domain.FlagFavorite)
}

// ToggleChannelVisibility flips the hidden flag of a channel. Views whose
// hidden filter the channel no longer matches drop it.
func (s *Store) ToggleChannelVisibility(ctx context.Context, id int64) {
	s.ToggleChannelFlag(ctx, id, domain.FlagHidden)
}

// ToggleChannelFlag toggles flag on channel id
func (s *Store) ToggleChannelFlag(ctx context.Context, id int64, flag domain.Flag) {
	m := mutation[domain.Channel]{
		key:     fmt.Sprintf("channel:%d", id),
		id:      id,
		flag:    flag,
		holders: s.channelHolders(),
	}

	switch flag {
	case domain.FlagFavorite:
		m.call = s.invokeChannel(domain.CmdToggleChannelFavorite, id)
		m.success = func(ch domain.Channel) string {
			return fmt.Sprintf(`"%s" %s favorites.`, ch.Name, addedOrRemoved(ch.IsFavorite))
		}
		m.failure = "Error updating favorite status"
	case domain.FlagHidden:
		m.call = s.invokeChannel(domain.CmdToggleChannelVisibility, id)
		m.success = func(ch domain.Channel) string {
			return fmt.Sprintf(`Channel "%s" is now %s.`, ch.Name, hiddenOrVisible(ch.IsHidden))
		}
		m.failure = "Error updating channel visibility"
	default:
		s.logger.Error("unsupported channel flag", "flag", flag, "channelID", id)
		return
	}

	toggle(ctx, s, m)
}

func (s *Store) invokeChannel(command string, id int64) func(context.Context) (domain.Channel, error) {
	return func(ctx context.Context) (domain.Channel, error) {
		var ch domain.Channel
		err := s.gw.Invoke(ctx, command, domain.IDArgs{ID: id}, &ch)
		return ch, err
	}
}

// BatchSetChannelFavorite sets the favorite flag of every channel in ids
func (s *Store) BatchSetChannelFavorite(ctx context.Context, ids []int64, favorite bool) {
	toggleBatch(ctx, s, batchMutation[domain.Channel]{
		keyPrefix: "channel",
		ids:       ids,
		flag:      domain.FlagFavorite,
		value:     favorite,
		holders:   s.channelHolders(),
		call:      s.invokeChannelBatch(domain.CmdBatchChannelFavorite, ids, favorite),
		success: func(n int) string {
			return fmt.Sprintf("%d channels %s favorites.", n, addedOrRemoved(favorite))
		},
		failure: "Error updating favorites",
	})
}

// BatchSetChannelVisibility sets the hidden flag of every channel in ids
func (s *Store) BatchSetChannelVisibility(ctx context.Context, ids []int64, hidden bool) {
	toggleBatch(ctx, s, batchMutation[domain.Channel]{
		keyPrefix: "channel",
		ids:       ids,
		flag:      domain.FlagHidden,
		value:     hidden,
		holders:   s.channelHolders(),
		call:      s.invokeChannelBatch(domain.CmdBatchChannelVisibility, ids, hidden),
		success: func(n int) string {
			if hidden {
				return fmt.Sprintf("%d channels have been hidden.", n)
			}
			return fmt.Sprintf("%d channels have been made visible.", n)
		},
		failure: "Error updating channels",
	})
}

func (s *Store) invokeChannelBatch(command string, ids []int64, value bool) func(context.Context) ([]domain.Channel, error) {
	return func(ctx context.Context) ([]domain.Channel, error) {
		var out []domain.Channel
		err := s.gw.Invoke(ctx, command, domain.BatchFlagArgs{IDs: ids, Value: value}, &out)
		return out, err
	}
}

// === VOD ===

func (s *Store) vodHolders(typ domain.VODType) []holder[domain.VODItem] {
	page := s.movies
	if typ == domain.VODTypeSeries {
		page = s.series
	}
	return []holder[domain.VODItem]{
		pageHolder[domain.VODItem]{page},
		typedSlot{slotHolder[domain.VODItem]{s.selectedVODItem}, typ},
		typedSlot{slotHolder[domain.VODItem]{s.selectedSeries}, typ},
	}
}

// ToggleVODFavorite flips the favorite flag of a movie or series
func (s *Store) ToggleVODFavorite(ctx context.Context, id int64, typ domain.VODType) {
	s.ToggleVODFlag(ctx, id, typ, domain.FlagFavorite)
}

// ToggleVODWatchlist flips the watchlist flag of a movie or series
func (s *Store) ToggleVODWatchlist(ctx context.Context, id int64, typ domain.VODType) {
	s.ToggleVODFlag(ctx, id, typ, domain.FlagWatchlist)
}

// ToggleVODFlag toggles flag on the VOD item id of type typ
func (s *Store) ToggleVODFlag(ctx context.Context, id int64, typ domain.VODType, flag domain.Flag) {
	m := mutation[domain.VODItem]{
		key:     fmt.Sprintf("%s:%d", typ, id),
		id:      id,
		flag:    flag,
		holders: s.vodHolders(typ),
	}

	switch flag {
	case domain.FlagFavorite:
		m.call = s.invokeVOD(domain.CmdToggleVODFavorite, id, typ)
		m.success = func(v domain.VODItem) string {
			return fmt.Sprintf(`"%s" %s favorites.`, v.Title, addedOrRemoved(v.IsFavorite))
		}
		m.failure = "Error updating favorite status"
	case domain.FlagWatchlist:
		m.call = s.invokeVOD(domain.CmdToggleVODWatchlist, id, typ)
		m.success = func(v domain.VODItem) string {
			return fmt.Sprintf(`"%s" %s watchlist.`, v.Title, addedOrRemoved(v.IsOnWatchlist))
		}
		m.failure = "Error updating watchlist"
	default:
		s.logger.Error("unsupported VOD flag", "flag", flag, "id", id, "type", typ)
		return
	}

	toggle(ctx, s, m)
}

// typedSlot restricts a VOD selection slot to one VOD type, since movie
// and series ids are only unique within their type
type typedSlot struct {
	slotHolder[domain.VODItem]
	typ domain.VODType
}

func (h typedSlot) find(id int64) (domain.VODItem, bool) {
	v, ok := h.slotHolder.find(id)
	if !ok || v.Type != h.typ {
		return domain.VODItem{}, false
	}
	return v, true
}

func (h typedSlot) replace(t *tx, id int64, v domain.VODItem) {
	if _, ok := h.find(id); ok {
		set(t, h.cell, &v)
	}
}

func (h typedSlot) settle(t *tx, id int64, v domain.VODItem) int {
	h.replace(t, id, v)
	return 0
}

func (s *Store) invokeVOD(command string, id int64, typ domain.VODType) func(context.Context) (domain.VODItem, error) {
	return func(ctx context.Context) (domain.VODItem, error) {
		var v domain.VODItem
		err := s.gw.Invoke(ctx, command, domain.VODArgs{ID: id, Type: typ}, &v)
		return v, err
	}
}

// BatchSetVODFavorite sets the favorite flag of every item in ids
func (s *Store) BatchSetVODFavorite(ctx context.Context, ids []int64, typ domain.VODType, favorite bool) {
	s.batchVOD(ctx, ids, typ, domain.FlagFavorite, favorite, domain.CmdBatchVODFavorite, "favorites")
}

// BatchSetVODWatchlist sets the watchlist flag of every item in ids
func (s *Store) BatchSetVODWatchlist(ctx context.Context, ids []int64, typ domain.VODType, onWatchlist bool) {
	s.batchVOD(ctx, ids, typ, domain.FlagWatchlist, onWatchlist, domain.CmdBatchVODWatchlist, "watchlist")
}

func (s *Store) batchVOD(ctx context.Context, ids []int64, typ domain.VODType, flag domain.Flag, value bool, command, list string) {
	noun := "movies"
	if typ == domain.VODTypeSeries {
		noun = "series"
	}

	toggleBatch(ctx, s, batchMutation[domain.VODItem]{
		keyPrefix: string(typ),
		ids:       ids,
		flag:      flag,
		value:     value,
		holders:   s.vodHolders(typ),
		call: func(ctx context.Context) ([]domain.VODItem, error) {
			var out []domain.VODItem
			err := s.gw.Invoke(ctx, command, domain.BatchFlagArgs{IDs: ids, Type: typ, Value: value}, &out)
			return out, err
		},
		success: func(n int) string {
			return fmt.Sprintf("%d %s %s %s.", n, noun, addedOrRemoved(value), list)
		},
		failure: "Error updating " + list,
	})
}

func addedOrRemoved(on bool) string {
	if on {
		return "added to"
	}
	return "removed from"
}

func hiddenOrVisible(hidden bool) string {
	if hidden {
		return "hidden"
	}
	return "visible"
}

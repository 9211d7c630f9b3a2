package hook

import (
	"context"
	"encoding/json"
	"time"

	"github.com/harunnryd/hubblepad/internal/logger"
	"github.com/harunnryd/hubblepad/internal/store"
)

// MergeResult counts what a merge did to the item store.
type MergeResult struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped,omitempty"`
}

// Merger upserts hook output into the item store.
type Merger struct {
	items *store.ItemStore
}

func NewMerger(items *store.ItemStore) *Merger {
	return &Merger{items: items}
}

// Merge upserts items by id. Entries that are not valid item shapes are
// dropped. Each merged record replaces the stored one wholesale except for
// its storage, which survives when the stored record has one. Existing
// items keep their position and new ones are appended in input order.
func (m *Merger) Merge(ctx context.Context, identity string, raw []json.RawMessage, now time.Time) (MergeResult, error) {
	var res MergeResult

	incoming := make([]store.WorkItem, 0, len(raw))
	for _, entry := range raw {
		item, err := store.DecodeItem(entry, false)
		if err != nil {
			res.Skipped++
			continue
		}
		incoming = append(incoming, item)
	}

	log := logger.From(ctx).With("hook", identity)
	if res.Skipped > 0 {
		log.Warn("Dropped invalid hook items", "count", res.Skipped)
	}
	if len(incoming) == 0 {
		return res, nil
	}

	source := "hook:" + identity
	stamp := now.UTC()

	err := m.items.Update(ctx, func(current []store.WorkItem) ([]store.WorkItem, error) {
		positions := make(map[string]int, len(current))
		for i, item := range current {
			positions[item.ID] = i
		}

		for _, item := range incoming {
			merged := item
			merged.SetSource(source)
			merged.SetUpdatedAt(stamp)

			if pos, ok := positions[item.ID]; ok {
				if prev := current[pos].Storage(); prev != nil {
					merged.SetStorage(prev)
				}
				current[pos] = merged
				res.Updated++
				continue
			}

			positions[item.ID] = len(current)
			current = append(current, merged)
			res.Added++
		}
		return current, nil
	})
	if err != nil {
		return MergeResult{Skipped: res.Skipped}, err
	}

	log.Info("Merged hook items", "added", res.Added, "updated", res.Updated)
	return res, nil
}

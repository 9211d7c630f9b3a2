package store

import (
	"context"
	"encoding/json"
)

// ItemStore is the durable id -> work item mapping, persisted as a JSON array.
type ItemStore struct {
	doc *Document[[]WorkItem]
}

func NewItemStore(path string, lockCfg *FileLockConfig) *ItemStore {
	return &ItemStore{doc: NewDocument[[]WorkItem](path, lockCfg)}
}

func (s *ItemStore) Path() string {
	return s.doc.Path()
}

// LoadAll reads the current items fresh from disk.
func (s *ItemStore) LoadAll() ([]WorkItem, error) {
	items, err := s.doc.Load()
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []WorkItem{}
	}
	return items, nil
}

// Raw returns the stored document bytes, or "[]" when nothing has been written yet.
func (s *ItemStore) Raw() ([]byte, error) {
	b, err := s.doc.ReadRaw()
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return []byte("[]\n"), nil
	}
	return b, nil
}

// SaveAll atomically replaces the whole document.
func (s *ItemStore) SaveAll(items []WorkItem) error {
	if items == nil {
		items = []WorkItem{}
	}
	return s.doc.Save(items)
}

// Replace validates every entry, assigns missing ids and overwrites the
// document. On validation failure the stored document is untouched.
func (s *ItemStore) Replace(ctx context.Context, raw []json.RawMessage) ([]WorkItem, error) {
	items, err := DecodeItems(raw)
	if err != nil {
		return nil, err
	}
	err = s.doc.Update(ctx, func(current *[]WorkItem) error {
		*current = items
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Update runs fn against the current items under the store's writer lock.
func (s *ItemStore) Update(ctx context.Context, fn func(items []WorkItem) ([]WorkItem, error)) error {
	return s.doc.Update(ctx, func(current *[]WorkItem) error {
		items := *current
		if items == nil {
			items = []WorkItem{}
		}
		next, err := fn(items)
		if err != nil {
			return err
		}
		if next == nil {
			next = []WorkItem{}
		}
		*current = next
		return nil
	})
}

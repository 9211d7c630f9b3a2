package store

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// --- Work items (data/workitems.json) ---

// WorkItem models the four fields every item must carry. Everything else,
// including kind, favorite, attributes, storage, source and updatedAt, lives
// in Extra exactly as it was read, so loosely typed values from hooks or the
// front end never make an item or the whole document undecodable.
type WorkItem struct {
	ID          string
	Title       string
	Description string
	URL         string

	Extra map[string]json.RawMessage
}

const (
	keyKind      = "kind"
	keyFavorite  = "favorite"
	keyStorage   = "storage"
	keySource    = "source"
	keyUpdatedAt = "updatedAt"
)

// Kind returns the kind tag when it is a string.
func (w WorkItem) Kind() string {
	var s string
	if err := json.Unmarshal(w.Extra[keyKind], &s); err != nil {
		return ""
	}
	return s
}

// Favorite reports whether favorite is literally true.
func (w WorkItem) Favorite() bool {
	return bytes.Equal(bytes.TrimSpace(w.Extra[keyFavorite]), []byte("true"))
}

// Source returns the provenance tag, e.g. "hook:github".
func (w WorkItem) Source() string {
	var s string
	if err := json.Unmarshal(w.Extra[keySource], &s); err != nil {
		return ""
	}
	return s
}

// UpdatedAt returns the last hook write time, or nil when absent or unreadable.
func (w WorkItem) UpdatedAt() *time.Time {
	t, ok := ParseTimestamp(w.Extra[keyUpdatedAt])
	if !ok {
		return nil
	}
	return &t
}

// Storage returns the local-only storage value verbatim, or nil when the
// item has none.
func (w WorkItem) Storage() json.RawMessage {
	raw := bytes.TrimSpace(w.Extra[keyStorage])
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	return raw
}

func (w *WorkItem) SetSource(source string) {
	w.set(keySource, source)
}

func (w *WorkItem) SetUpdatedAt(t time.Time) {
	w.set(keyUpdatedAt, t.UTC().Format(time.RFC3339Nano))
}

// SetStorage replaces storage with raw, or removes it when raw is empty.
func (w *WorkItem) SetStorage(raw json.RawMessage) {
	if len(raw) == 0 {
		delete(w.Extra, keyStorage)
		return
	}
	w.setRaw(keyStorage, raw)
}

func (w *WorkItem) set(key string, v any) {
	b, _ := json.Marshal(v)
	w.setRaw(key, b)
}

func (w *WorkItem) setRaw(key string, raw json.RawMessage) {
	if w.Extra == nil {
		w.Extra = make(map[string]json.RawMessage)
	}
	w.Extra[key] = append(json.RawMessage(nil), raw...)
}

// UnmarshalJSON reads an item leniently. Ids are normalised like DecodeItem
// does; a core field holding a non-string is kept verbatim in Extra; an
// explicit favorite:false is dropped since absent means false.
func (w *WorkItem) UnmarshalJSON(b []byte) error {
	obj, err := decodeObject(b)
	if err != nil {
		return err
	}

	item := WorkItem{ID: normalizeID(obj["id"])}
	delete(obj, "id")
	for key, dst := range map[string]*string{
		"title":       &item.Title,
		"description": &item.Description,
		"url":         &item.URL,
	} {
		v, ok := obj[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, dst); err == nil {
			delete(obj, key)
		}
	}
	if bytes.Equal(bytes.TrimSpace(obj[keyFavorite]), []byte("false")) {
		delete(obj, keyFavorite)
	}
	if len(obj) > 0 {
		item.Extra = obj
	}

	*w = item
	return nil
}

func (w WorkItem) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(w.Extra)+4)
	for k, v := range w.Extra {
		out[k] = v
	}
	core := []struct {
		key   string
		value string
	}{
		{"id", w.ID},
		{"title", w.Title},
		{"description", w.Description},
		{"url", w.URL},
	}
	for _, f := range core {
		if _, raw := out[f.key]; raw && f.value == "" {
			continue
		}
		b, err := json.Marshal(f.value)
		if err != nil {
			return nil, err
		}
		out[f.key] = b
	}
	return json.Marshal(out)
}

// --- Hook registry (data/hooks.json) ---

const HookTypeUpdate = "update"

type HookDefinition struct {
	ID        string     `json:"id,omitempty"`
	Name      string     `json:"name"`
	Desc      string     `json:"desc,omitempty"`
	Cmd       string     `json:"cmd"`
	Cwd       string     `json:"cwd,omitempty"`
	Enabled   bool       `json:"enabled"`
	Type      string     `json:"type,omitempty"`
	Schedule  string     `json:"schedule,omitempty"`
	LastRunAt *time.Time `json:"lastRunAt"`
	LastError *string    `json:"lastError"`

	Extra map[string]json.RawMessage `json:"-"`
}

var hookFields = []string{
	"id", "name", "desc", "cmd", "cwd", "enabled", "type", "schedule", "lastRunAt", "lastError",
}

func (h *HookDefinition) UnmarshalJSON(b []byte) error {
	type plain HookDefinition
	var p struct {
		plain
		LastRunAt json.RawMessage `json:"lastRunAt"`
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	if t, ok := ParseTimestamp(p.LastRunAt); ok {
		p.plain.LastRunAt = &t
	}
	extra, err := splitExtra(b, hookFields)
	if err != nil {
		return err
	}
	p.Extra = extra
	*h = HookDefinition(p.plain)
	return nil
}

func (h HookDefinition) MarshalJSON() ([]byte, error) {
	type plain HookDefinition
	b, err := json.Marshal(plain(h))
	if err != nil {
		return nil, err
	}
	return joinExtra(b, h.Extra)
}

// IsUpdate reports whether results of this hook are merged into the item store.
func (h HookDefinition) IsUpdate() bool {
	return h.Type == HookTypeUpdate
}

// Identity is the name used in item provenance: the hook name, or its index when unnamed.
func (h HookDefinition) Identity(index int) string {
	if h.Name != "" {
		return h.Name
	}
	return strconv.Itoa(index)
}

func splitExtra(b []byte, known []string) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	for _, f := range known {
		delete(raw, f)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return raw, nil
}

func joinExtra(b []byte, extra map[string]json.RawMessage) ([]byte, error) {
	if len(extra) == 0 {
		return b, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(b, &merged); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, exists := merged[k]; !exists {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

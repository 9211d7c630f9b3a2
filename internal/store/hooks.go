package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	hubbleErrors "github.com/harunnryd/hubblepad/internal/errors"
)

// HookRegistry is the ordered list of hook definitions, persisted as a JSON array.
type HookRegistry struct {
	doc *Document[[]HookDefinition]
}

func NewHookRegistry(path string, lockCfg *FileLockConfig) *HookRegistry {
	return &HookRegistry{doc: NewDocument[[]HookDefinition](path, lockCfg)}
}

func (r *HookRegistry) Path() string {
	return r.doc.Path()
}

func (r *HookRegistry) LoadAll() ([]HookDefinition, error) {
	hooks, err := r.doc.Load()
	if err != nil {
		return nil, err
	}
	if hooks == nil {
		hooks = []HookDefinition{}
	}
	return hooks, nil
}

// Raw returns the registry bytes verbatim, or "[]" when the file is absent.
func (r *HookRegistry) Raw() ([]byte, error) {
	b, err := r.doc.ReadRaw()
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return []byte("[]\n"), nil
	}
	return b, nil
}

// Replace validates and overwrites the registry.
func (r *HookRegistry) Replace(ctx context.Context, raw []json.RawMessage) ([]HookDefinition, error) {
	hooks, err := DecodeHooks(raw)
	if err != nil {
		return nil, err
	}
	err = r.doc.Update(ctx, func(current *[]HookDefinition) error {
		*current = hooks
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hooks, nil
}

// Lookup resolves ref as a positional index first and falls back to a name
// match. A hook literally named "0" is shadowed by index 0.
func (r *HookRegistry) Lookup(ref string) (int, HookDefinition, error) {
	hooks, err := r.LoadAll()
	if err != nil {
		return -1, HookDefinition{}, err
	}
	idx, def, ok := Resolve(hooks, ref)
	if !ok {
		return -1, HookDefinition{}, hubbleErrors.NotFound(fmt.Sprintf("hook %q", ref))
	}
	return idx, def, nil
}

// Resolve applies the index-then-name lookup to an already loaded registry.
func Resolve(hooks []HookDefinition, ref string) (int, HookDefinition, bool) {
	ref = strings.TrimSpace(ref)
	if i, err := strconv.Atoi(ref); err == nil && i >= 0 && i < len(hooks) {
		return i, hooks[i], true
	}
	for i, h := range hooks {
		if h.Name == ref {
			return i, h, true
		}
	}
	return -1, HookDefinition{}, false
}

// UpdateStatus records the outcome of a run on one entry. The entry is found
// at index when its name still matches, otherwise by name, so a registry
// edited mid-run does not get the status written onto the wrong hook.
// An empty errMsg clears lastError.
func (r *HookRegistry) UpdateStatus(ctx context.Context, index int, name string, at time.Time, errMsg string) error {
	return r.doc.Update(ctx, func(hooks *[]HookDefinition) error {
		list := *hooks
		target := -1
		if index >= 0 && index < len(list) && list[index].Name == name {
			target = index
		} else {
			for i := range list {
				if list[i].Name == name {
					target = i
					break
				}
			}
		}
		if target < 0 {
			return hubbleErrors.NotFound(fmt.Sprintf("hook %q", name))
		}

		ts := at.UTC()
		list[target].LastRunAt = &ts
		if errMsg == "" {
			list[target].LastError = nil
		} else {
			msg := errMsg
			list[target].LastError = &msg
		}
		return nil
	})
}

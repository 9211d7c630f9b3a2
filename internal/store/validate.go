package store

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	hubbleErrors "github.com/harunnryd/hubblepad/internal/errors"
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindBool
)

func (k fieldKind) String() string {
	if k == kindBool {
		return "a boolean"
	}
	return "a string"
}

type fieldRule struct {
	name string
	kind fieldKind
}

var itemRules = []fieldRule{
	{"title", kindString},
	{"description", kindString},
	{"url", kindString},
}

var hookRules = []fieldRule{
	{"name", kindString},
	{"cmd", kindString},
	{"enabled", kindBool},
}

func decodeObject(raw json.RawMessage) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("must be a JSON object")
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func checkFields(obj map[string]json.RawMessage, rules []fieldRule) error {
	for _, rule := range rules {
		v, ok := obj[rule.name]
		if !ok {
			return fmt.Errorf("%s is required", rule.name)
		}
		v = bytes.TrimSpace(v)
		valid := false
		switch rule.kind {
		case kindString:
			valid = len(v) > 0 && v[0] == '"'
		case kindBool:
			valid = bytes.Equal(v, []byte("true")) || bytes.Equal(v, []byte("false"))
		}
		if !valid {
			return fmt.Errorf("%s must be %s", rule.name, rule.kind)
		}
	}
	return nil
}

// ValidItemShape reports whether raw is an object carrying string title,
// description and url, plus a non-empty id when requireID is set.
func ValidItemShape(raw json.RawMessage, requireID bool) error {
	obj, err := decodeObject(raw)
	if err != nil {
		return err
	}
	if err := checkFields(obj, itemRules); err != nil {
		return err
	}
	if requireID && normalizeID(obj["id"]) == "" {
		return fmt.Errorf("id must be a non-empty string")
	}
	return nil
}

// DecodeItem validates raw and decodes it into a WorkItem. Ids are trimmed,
// numeric ids become their decimal text and a missing id is generated.
func DecodeItem(raw json.RawMessage, requireID bool) (WorkItem, error) {
	if err := ValidItemShape(raw, requireID); err != nil {
		return WorkItem{}, err
	}
	obj, _ := decodeObject(raw)

	id := normalizeID(obj["id"])
	if id == "" {
		id = NewItemID()
	}
	encodedID, _ := json.Marshal(id)
	obj["id"] = encodedID

	normalized, err := json.Marshal(obj)
	if err != nil {
		return WorkItem{}, err
	}
	var item WorkItem
	if err := json.Unmarshal(normalized, &item); err != nil {
		return WorkItem{}, err
	}
	return item, nil
}

func normalizeID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// DecodeItems validates a whole replacement document. Any invalid entry
// rejects the document.
func DecodeItems(raw []json.RawMessage) ([]WorkItem, error) {
	items := make([]WorkItem, 0, len(raw))
	for i, r := range raw {
		item, err := DecodeItem(r, false)
		if err != nil {
			return nil, hubbleErrors.InvalidInput(fmt.Sprintf("item %d: %v", i, err))
		}
		items = append(items, item)
	}
	return items, nil
}

// DecodeHooks validates a replacement hook registry document.
func DecodeHooks(raw []json.RawMessage) ([]HookDefinition, error) {
	hooks := make([]HookDefinition, 0, len(raw))
	for i, r := range raw {
		obj, err := decodeObject(r)
		if err != nil {
			return nil, hubbleErrors.InvalidInput(fmt.Sprintf("hook %d: %v", i, err))
		}
		if err := checkFields(obj, hookRules); err != nil {
			return nil, hubbleErrors.InvalidInput(fmt.Sprintf("hook %d: %v", i, err))
		}
		var h HookDefinition
		if err := json.Unmarshal(r, &h); err != nil {
			return nil, hubbleErrors.InvalidInput(fmt.Sprintf("hook %d: %v", i, err))
		}
		hooks = append(hooks, h)
	}
	return hooks, nil
}

// NewItemID returns a random 40 hex character identifier. It has the shape of
// a SHA-1 digest but is not derived from content.
func NewItemID() string {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(b)
}

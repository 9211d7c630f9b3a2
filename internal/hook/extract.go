package hook

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// responseMarker finds "response = " prefixes that scripts print before their payload.
var responseMarker = regexp.MustCompile(`(?i)response\s*=\s*`)

// ExtractJSON picks the JSON object out of free-form hook output:
// the object following "response =", else the last top-level balanced
// {...} block, else the whole trimmed text.
func ExtractJSON(output string) string {
	for _, loc := range responseMarker.FindAllStringIndex(output, -1) {
		start := loc[1]
		if start < len(output) && output[start] == '{' {
			if end := matchBrace(output, start); end >= 0 {
				return output[start : end+1]
			}
		}
	}

	if block := lastBalancedObject(output); block != "" {
		return block
	}
	return strings.TrimSpace(output)
}

// lastBalancedObject returns the last top-level {...} block in one pass.
// The pair that closes last is the outermost one ending there. Opening
// braces that never close stay on the stack, so a stray "{" in log text
// cannot swallow the real payload. Braces inside JSON strings do not count,
// and a raw newline ends a string since JSON strings cannot contain one.
func lastBalancedObject(s string) string {
	var opens []int
	start, end := -1, -1
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case ch == '\n':
				inString = false
				escaped = false
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = len(opens) > 0
		case '{':
			opens = append(opens, i)
		case '}':
			if n := len(opens); n > 0 {
				start, end = opens[n-1], i
				opens = opens[:n-1]
			}
		}
	}

	if start < 0 {
		return ""
	}
	return s[start : end+1]
}

// matchBrace returns the index of the brace closing the one at start, or -1.
func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

type payload struct {
	OK     any             `json:"ok"`
	Status any             `json:"status"`
	Items  json.RawMessage `json:"items"`
	Error  any             `json:"error"`
}

// Outcome is the interpretation of a hook's JSON payload.
type Outcome struct {
	OK    bool
	Items []json.RawMessage
	Error string
}

// ParseOutput extracts and interprets the payload in stdout. It never
// returns a Go error: every failure is described in Outcome.Error.
func ParseOutput(stdout string) Outcome {
	if strings.TrimSpace(stdout) == "" {
		return Outcome{Error: ErrMsgNoOutput}
	}

	data := []byte(ExtractJSON(stdout))
	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Outcome{Error: fmt.Sprintf("JSON parse failed: %v", err)}
	}

	// Valid JSON that is not an object is a failed hook, not a parse error.
	var p payload
	if _, isObject := parsed.(map[string]any); isObject {
		_ = json.Unmarshal(data, &p)
	}

	out := Outcome{}
	if ok, isBool := p.OK.(bool); isBool && ok {
		out.OK = true
	}
	if status, isString := p.Status.(string); isString && status == "success" {
		out.OK = true
	}

	var items []json.RawMessage
	if len(p.Items) > 0 && json.Unmarshal(p.Items, &items) == nil {
		out.Items = items
	}
	if out.Items == nil {
		out.Items = []json.RawMessage{}
	}

	if !out.OK {
		if msg, isString := p.Error.(string); isString {
			out.Error = msg
		} else {
			out.Error = ErrMsgFailed
		}
	}
	return out
}

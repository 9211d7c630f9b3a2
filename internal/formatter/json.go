package formatter

import (
	"encoding/json"

	"github.com/harunnryd/hubblepad/internal/hook"
	"github.com/harunnryd/hubblepad/internal/store"
)

type JSONFormatter struct{}

func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

func (f *JSONFormatter) FormatHooks(hooks []store.HookDefinition) (string, error) {
	if hooks == nil {
		hooks = []store.HookDefinition{}
	}
	return f.indent(hooks)
}

func (f *JSONFormatter) FormatItems(items []store.WorkItem) (string, error) {
	if items == nil {
		items = []store.WorkItem{}
	}
	return f.indent(items)
}

func (f *JSONFormatter) FormatRun(report hook.RunReport) (string, error) {
	return f.indent(report)
}

func (f *JSONFormatter) FormatBatch(batch hook.BatchReport) (string, error) {
	return f.indent(batch)
}

func (f *JSONFormatter) indent(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

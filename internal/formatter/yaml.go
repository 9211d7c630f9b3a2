package formatter

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/harunnryd/hubblepad/internal/hook"
	"github.com/harunnryd/hubblepad/internal/store"
)

type YAMLFormatter struct{}

func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

func (f *YAMLFormatter) FormatHooks(hooks []store.HookDefinition) (string, error) {
	if hooks == nil {
		hooks = []store.HookDefinition{}
	}
	return f.marshal(hooks)
}

func (f *YAMLFormatter) FormatItems(items []store.WorkItem) (string, error) {
	if items == nil {
		items = []store.WorkItem{}
	}
	return f.marshal(items)
}

func (f *YAMLFormatter) FormatRun(report hook.RunReport) (string, error) {
	return f.marshal(report)
}

func (f *YAMLFormatter) FormatBatch(batch hook.BatchReport) (string, error) {
	return f.marshal(batch)
}

func (f *YAMLFormatter) marshal(v any) (string, error) {
	doc, err := generic(v)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

package hook

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hubbleErrors "github.com/harunnryd/hubblepad/internal/errors"
	"github.com/harunnryd/hubblepad/internal/store"
)

// fakeExecutor returns canned stdout per hook command.
type fakeExecutor struct {
	mu      sync.Mutex
	outputs map[string]string
	calls   []string
}

func (f *fakeExecutor) Run(_ context.Context, def store.HookDefinition) Result {
	f.mu.Lock()
	f.calls = append(f.calls, def.Cmd)
	f.mu.Unlock()

	out := ParseOutput(f.outputs[def.Cmd])
	return Result{RunID: "run-" + def.Name, OK: out.OK, Items: out.Items, Error: out.Error}
}

func (f *fakeExecutor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fixture struct {
	dir      string
	items    *store.ItemStore
	registry *store.HookRegistry
	exec     *fakeExecutor
	svc      *Service
	now      time.Time
}

func newFixture(t *testing.T, hooks []store.HookDefinition, outputs map[string]string) *fixture {
	t.Helper()

	dir := t.TempDir()
	lockCfg := store.DefaultFileLockConfig()
	f := &fixture{
		dir:      dir,
		items:    store.NewItemStore(filepath.Join(dir, "workitems.json"), lockCfg),
		registry: store.NewHookRegistry(filepath.Join(dir, "hooks.json"), lockCfg),
		exec:     &fakeExecutor{outputs: outputs},
		now:      time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}

	raw := make([]json.RawMessage, 0, len(hooks))
	for _, h := range hooks {
		b, err := json.Marshal(h)
		require.NoError(t, err)
		raw = append(raw, b)
	}
	_, err := f.registry.Replace(context.Background(), raw)
	require.NoError(t, err)

	f.svc = NewService(f.registry, f.items, f.exec, WithClock(func() time.Time { return f.now }))
	return f
}

func seedItems(t *testing.T, items *store.ItemStore, list []store.WorkItem) {
	t.Helper()
	require.NoError(t, items.SaveAll(list))
}

func TestService_RunOneMergesAndIsIdempotent(t *testing.T) {
	f := newFixture(t,
		[]store.HookDefinition{{Name: "jira", Cmd: "jira", Enabled: true, Type: store.HookTypeUpdate}},
		map[string]string{"jira": `{"ok":true,"items":[{"id":"J-1","title":"Fix login","description":"d","url":"u"}]}`},
	)

	first, err := f.svc.RunOne(context.Background(), "jira")
	require.NoError(t, err)
	assert.True(t, first.OK)
	assert.True(t, first.Merged)
	assert.Equal(t, 1, first.Added)
	assert.Equal(t, 0, first.Updated)
	assert.Equal(t, 1, first.Count)

	second, err := f.svc.RunOne(context.Background(), "0")
	require.NoError(t, err)
	assert.Equal(t, 0, second.Added)
	assert.Equal(t, 1, second.Updated)

	items, err := f.items.LoadAll()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "J-1", items[0].ID)
	assert.Equal(t, "hook:jira", items[0].Source())
	require.NotNil(t, items[0].UpdatedAt())
	assert.True(t, items[0].UpdatedAt().Equal(f.now))

	hooks, err := f.registry.LoadAll()
	require.NoError(t, err)
	require.NotNil(t, hooks[0].LastRunAt)
	assert.Nil(t, hooks[0].LastError)
}

func TestService_MalformedOutputLeavesItemsUntouched(t *testing.T) {
	f := newFixture(t,
		[]store.HookDefinition{{Name: "broken", Cmd: "broken", Enabled: true, Type: store.HookTypeUpdate}},
		map[string]string{"broken": "garbage text, no json here"},
	)
	seedItems(t, f.items, []store.WorkItem{{ID: "keep", Title: "Keep me"}})
	before, err := os.ReadFile(f.items.Path())
	require.NoError(t, err)

	report, err := f.svc.RunOne(context.Background(), "broken")
	require.NoError(t, err)
	assert.False(t, report.OK)
	assert.False(t, report.Merged)
	assert.Contains(t, report.Error, "JSON parse failed")

	after, err := os.ReadFile(f.items.Path())
	require.NoError(t, err)
	assert.Equal(t, before, after)

	hooks, err := f.registry.LoadAll()
	require.NoError(t, err)
	require.NotNil(t, hooks[0].LastError)
	assert.Contains(t, *hooks[0].LastError, "JSON parse failed")
}

func TestService_StoragePreservedAcrossMerge(t *testing.T) {
	f := newFixture(t,
		[]store.HookDefinition{{Name: "gh", Cmd: "gh", Enabled: true, Type: store.HookTypeUpdate}},
		map[string]string{"gh": `{"ok":true,"items":[{"id":"X","title":"new title","description":"d","url":"u"}]}`},
	)
	notes := `{"draft":"wip","records":[{"content":"my notes","id":"r1","pinned":true,"type":"note"}]}`
	seedItems(t, f.items, []store.WorkItem{
		{ID: "A", Title: "first"},
		{ID: "X", Title: "old title", Extra: map[string]json.RawMessage{"storage": json.RawMessage(notes)}},
	})

	report, err := f.svc.RunOne(context.Background(), "gh")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)

	items, err := f.items.LoadAll()
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "A", items[0].ID)
	assert.Equal(t, "new title", items[1].Title)
	assert.JSONEq(t, notes, string(items[1].Storage()))
}

func TestService_LooselyTypedHookFieldsAreKept(t *testing.T) {
	f := newFixture(t,
		[]store.HookDefinition{{Name: "gh", Cmd: "gh", Enabled: true, Type: store.HookTypeUpdate}},
		map[string]string{"gh": `{"ok":true,"items":[
			{"id":"1","title":"a","description":"d","url":"u","favorite":"yes"},
			{"id":"2","title":"b","description":"d","url":"u","updatedAt":"2024-05-01 10:00"},
			{"id":"3","title":"c","description":"d","url":"u","kind":3}
		]}`},
	)

	report, err := f.svc.RunOne(context.Background(), "gh")
	require.NoError(t, err)
	assert.True(t, report.OK)
	assert.Equal(t, 3, report.Added)

	items, err := f.items.LoadAll()
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.JSONEq(t, `"yes"`, string(items[0].Extra["favorite"]))
	assert.False(t, items[0].Favorite())
	assert.True(t, items[1].UpdatedAt().Equal(f.now))
	assert.JSONEq(t, `3`, string(items[2].Extra["kind"]))
	assert.Empty(t, items[2].Kind())
}

func TestService_MergeReadsEpochTimestampsInStore(t *testing.T) {
	f := newFixture(t,
		[]store.HookDefinition{{Name: "gh", Cmd: "gh", Enabled: true, Type: store.HookTypeUpdate}},
		map[string]string{"gh": `{"ok":true,"items":[{"id":"X","title":"t","description":"d","url":"u"}]}`},
	)
	require.NoError(t, os.WriteFile(f.items.Path(), []byte(`[
		{"id":"X","title":"old","description":"d","url":"u","updatedAt":1700000000000,
		 "storage":{"records":[{"content":"note","createdAt":1700000000000}]}}
	]`), 0644))

	report, err := f.svc.RunOne(context.Background(), "gh")
	require.NoError(t, err)
	require.True(t, report.OK, report.Error)
	assert.Equal(t, 1, report.Updated)

	items, err := f.items.LoadAll()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "t", items[0].Title)
	assert.JSONEq(t, `{"records":[{"content":"note","createdAt":1700000000000}]}`, string(items[0].Storage()))
}

func TestService_DisabledHookNeverExecutes(t *testing.T) {
	f := newFixture(t,
		[]store.HookDefinition{{Name: "off", Cmd: "off", Enabled: false, Type: store.HookTypeUpdate}},
		map[string]string{"off": `{"ok":true,"items":[{"id":"1"}]}`},
	)
	hooksBefore, err := os.ReadFile(f.registry.Path())
	require.NoError(t, err)

	_, err = f.svc.RunOne(context.Background(), "off")
	require.Error(t, err)
	assert.ErrorIs(t, err, hubbleErrors.ErrDisabled)
	assert.Equal(t, 0, f.exec.callCount())

	hooksAfter, err := os.ReadFile(f.registry.Path())
	require.NoError(t, err)
	assert.Equal(t, hooksBefore, hooksAfter)
	_, statErr := os.Stat(f.items.Path())
	assert.True(t, os.IsNotExist(statErr))
}

func TestService_UnknownHook(t *testing.T) {
	f := newFixture(t, []store.HookDefinition{{Name: "a", Cmd: "a", Enabled: true}}, nil)

	_, err := f.svc.RunOne(context.Background(), "nope")
	assert.ErrorIs(t, err, hubbleErrors.ErrNotFound)
}

func TestService_NonUpdateHookDoesNotMerge(t *testing.T) {
	f := newFixture(t,
		[]store.HookDefinition{{Name: "ping", Cmd: "ping", Enabled: true}},
		map[string]string{"ping": `{"ok":true,"items":[{"id":"1"}]}`},
	)

	report, err := f.svc.RunOne(context.Background(), "ping")
	require.NoError(t, err)
	assert.True(t, report.OK)
	assert.False(t, report.Merged)

	items, err := f.items.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestService_RunAllLaterHookWins(t *testing.T) {
	f := newFixture(t,
		[]store.HookDefinition{
			{Name: "first", Cmd: "first", Enabled: true, Type: store.HookTypeUpdate},
			{Name: "skipped", Cmd: "skipped", Enabled: false, Type: store.HookTypeUpdate},
			{Name: "second", Cmd: "second", Enabled: true, Type: store.HookTypeUpdate},
			{Name: "failing", Cmd: "failing", Enabled: true, Type: store.HookTypeUpdate},
		},
		map[string]string{
			"first":   `{"ok":true,"items":[{"id":"same","title":"from first","description":"d","url":"u"},{"id":"only-first","title":"t","description":"d","url":"u"}]}`,
			"skipped": `{"ok":true,"items":[{"id":"never"}]}`,
			"second":  `{"ok":true,"items":[{"id":"same","title":"from second","description":"d","url":"u"}]}`,
			"failing": `{"ok":false,"error":"upstream down"}`,
		},
	)

	batch, err := f.svc.RunAll(context.Background())
	require.NoError(t, err)
	assert.False(t, batch.OK)
	assert.Equal(t, 2, batch.Added)
	assert.Equal(t, 1, batch.Updated)
	require.Len(t, batch.Results, 3)
	assert.Equal(t, []int{0, 2, 3}, []int{batch.Results[0].Index, batch.Results[1].Index, batch.Results[2].Index})
	assert.Equal(t, "upstream down", batch.Results[2].Error)
	assert.Equal(t, 3, f.exec.callCount())

	items, err := f.items.LoadAll()
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "same", items[0].ID)
	assert.Equal(t, "from second", items[0].Title)
	assert.Equal(t, "hook:second", items[0].Source())

	hooks, err := f.registry.LoadAll()
	require.NoError(t, err)
	assert.Nil(t, hooks[1].LastRunAt)
	require.NotNil(t, hooks[3].LastError)
	assert.Equal(t, "upstream down", *hooks[3].LastError)
}

func TestMerger_SkipsInvalidAndCountsDuplicates(t *testing.T) {
	dir := t.TempDir()
	items := store.NewItemStore(filepath.Join(dir, "workitems.json"), store.DefaultFileLockConfig())
	m := NewMerger(items)

	raw := []json.RawMessage{
		json.RawMessage(`{"id":"1","title":"one","description":"d","url":"u"}`),
		json.RawMessage(`"not an object"`),
		json.RawMessage(`{"id":"2","title":"missing url","description":"d"}`),
		json.RawMessage(`{"id":"1","title":"one again","description":"d","url":"u"}`),
		json.RawMessage(`{"title":"no id","description":"d","url":"u"}`),
	}

	res, err := m.Merge(context.Background(), "3", raw, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 2, res.Skipped)

	list, err := items.LoadAll()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "one again", list[0].Title)
	assert.Equal(t, "hook:3", list[0].Source())
	assert.Len(t, list[1].ID, 40)
}

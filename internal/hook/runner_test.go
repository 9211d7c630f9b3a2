//go:build !windows

package hook

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harunnryd/hubblepad/internal/store"
)

func newTestRunner(root string, timeout time.Duration) *Runner {
	return NewRunner(RunnerConfig{Root: root, Timeout: timeout, StderrExcerpt: 1000})
}

func TestRunner_ParsesPayload(t *testing.T) {
	r := newTestRunner(t.TempDir(), 10*time.Second)

	res := r.Run(context.Background(), store.HookDefinition{
		Name: "echo",
		Cmd:  `echo 'fetching'; echo '{"ok":true,"items":[{"id":"1","title":"A"}]}'`,
	})

	require.True(t, res.OK, res.Error)
	assert.Len(t, res.Items, 1)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 0, res.ExitCode)
}

func TestRunner_ResolvesRelativeCwd(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "scripts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "scripts", "out.json"), []byte(`{"ok":true,"items":[]}`), 0o644))

	r := newTestRunner(root, 10*time.Second)
	res := r.Run(context.Background(), store.HookDefinition{Cmd: "cat out.json", Cwd: "scripts"})

	assert.True(t, res.OK, res.Error)
}

func TestRunner_NonZeroExitCarriesStderr(t *testing.T) {
	r := newTestRunner(t.TempDir(), 10*time.Second)

	res := r.Run(context.Background(), store.HookDefinition{Cmd: "echo 'bad credentials' >&2; exit 3"})

	assert.False(t, res.OK)
	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, res.Error, "3")
	assert.Contains(t, res.Stderr, "bad credentials")
}

func TestRunner_StderrExcerptIsBounded(t *testing.T) {
	r := NewRunner(RunnerConfig{Root: t.TempDir(), Timeout: 10 * time.Second, StderrExcerpt: 10})

	res := r.Run(context.Background(), store.HookDefinition{Cmd: "printf 'abcdefghijklmnopqrstuvwxyz' >&2; exit 1"})

	assert.Equal(t, "abcdefghij", res.Stderr)
}

func TestRunner_Timeout(t *testing.T) {
	r := newTestRunner(t.TempDir(), 300*time.Millisecond)

	start := time.Now()
	res := r.Run(context.Background(), store.HookDefinition{Cmd: "sleep 10 & sleep 10; echo '{\"ok\":true}'"})

	assert.False(t, res.OK)
	assert.Equal(t, ErrMsgTimeout, res.Error)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRunner_EmptyOutput(t *testing.T) {
	r := newTestRunner(t.TempDir(), 10*time.Second)

	res := r.Run(context.Background(), store.HookDefinition{Cmd: "true"})

	assert.False(t, res.OK)
	assert.Equal(t, ErrMsgNoOutput, res.Error)
}

func TestProgramName(t *testing.T) {
	assert.Equal(t, "fetch.sh", programName(`./scripts/fetch.sh --since "last week"`))
	assert.Equal(t, "python3", programName("/usr/bin/python3 sync.py"))
	assert.Equal(t, "", programName(""))
}

func TestService_CallerCancellationDoesNotAbortRun(t *testing.T) {
	dir := t.TempDir()
	lockCfg := store.DefaultFileLockConfig()
	items := store.NewItemStore(filepath.Join(dir, "workitems.json"), lockCfg)
	registry := store.NewHookRegistry(filepath.Join(dir, "hooks.json"), lockCfg)

	_, err := registry.Replace(context.Background(), rawHooks(t, store.HookDefinition{
		Name:    "slow",
		Cmd:     `sleep 1; echo '{"ok":true,"items":[{"id":"s1","title":"t","description":"d","url":"u"}]}'`,
		Enabled: true,
		Type:    store.HookTypeUpdate,
	}))
	require.NoError(t, err)

	svc := NewService(registry, items, newTestRunner(dir, 10*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)
	defer cancel()

	report, err := svc.RunOne(ctx, "slow")
	require.NoError(t, err)
	require.True(t, report.OK, report.Error)
	assert.Equal(t, 1, report.Added)

	hooks, err := registry.LoadAll()
	require.NoError(t, err)
	require.NotNil(t, hooks[0].LastRunAt)
	assert.Nil(t, hooks[0].LastError)

	list, err := items.LoadAll()
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestService_RunAllIgnoresCallerCancellation(t *testing.T) {
	dir := t.TempDir()
	lockCfg := store.DefaultFileLockConfig()
	items := store.NewItemStore(filepath.Join(dir, "workitems.json"), lockCfg)
	registry := store.NewHookRegistry(filepath.Join(dir, "hooks.json"), lockCfg)

	_, err := registry.Replace(context.Background(), rawHooks(t, store.HookDefinition{
		Name:    "slow",
		Cmd:     `sleep 1; echo '{"ok":true}'`,
		Enabled: true,
	}))
	require.NoError(t, err)

	svc := NewService(registry, items, newTestRunner(dir, 10*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)
	defer cancel()

	batch, err := svc.RunAll(ctx)
	require.NoError(t, err)
	assert.True(t, batch.OK)

	hooks, err := registry.LoadAll()
	require.NoError(t, err)
	require.NotNil(t, hooks[0].LastRunAt)
}

func rawHooks(t *testing.T, hooks ...store.HookDefinition) []json.RawMessage {
	t.Helper()
	out := make([]json.RawMessage, 0, len(hooks))
	for _, h := range hooks {
		b, err := json.Marshal(h)
		require.NoError(t, err)
		out = append(out, b)
	}
	return out
}

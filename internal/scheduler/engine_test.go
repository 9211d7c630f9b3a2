package scheduler

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harunnryd/hubblepad/internal/config"
	"github.com/harunnryd/hubblepad/internal/hook"
	"github.com/harunnryd/hubblepad/internal/store"
)

type mockHookRunner struct {
	mu    sync.Mutex
	calls map[int]int
	panic bool
}

func (m *mockHookRunner) RunDefinition(ctx context.Context, index int, def store.HookDefinition) hook.RunReport {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[int]int)
	}
	m.calls[index]++
	shouldPanic := m.panic
	m.mu.Unlock()

	if shouldPanic {
		panic("hook exploded")
	}
	return hook.RunReport{Index: index, Name: def.Name, OK: true}
}

func (m *mockHookRunner) count(index int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[index]
}

func newRegistry(t *testing.T, hooks ...store.HookDefinition) *store.HookRegistry {
	t.Helper()
	reg := store.NewHookRegistry(filepath.Join(t.TempDir(), "hooks.json"), store.DefaultFileLockConfig())
	writeHooks(t, reg, hooks...)
	return reg
}

func writeHooks(t *testing.T, reg *store.HookRegistry, hooks ...store.HookDefinition) {
	t.Helper()
	raw := make([]json.RawMessage, 0, len(hooks))
	for _, h := range hooks {
		b, err := json.Marshal(h)
		require.NoError(t, err)
		raw = append(raw, b)
	}
	_, err := reg.Replace(context.Background(), raw)
	require.NoError(t, err)
}

func newTestScheduler(t *testing.T, reg *store.HookRegistry, runner HookRunner) *Scheduler {
	t.Helper()
	sched, err := NewScheduler(reg, runner, config.SchedulerConfig{PollInterval: "50ms", ShutdownTimeout: "2s"})
	require.NoError(t, err)
	return sched
}

func TestScheduler_ComponentLifecycle(t *testing.T) {
	sched := newTestScheduler(t, newRegistry(t), &mockHookRunner{})
	ctx := context.Background()

	if err := sched.Health(ctx); err == nil {
		t.Error("Health should fail when not initialized")
	}

	if err := sched.Init(ctx); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	if sched.ctx == nil {
		t.Error("Context should be set after Init")
	}

	if err := sched.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if !sched.IsRunning() {
		t.Error("Scheduler should be running after Start")
	}

	if err := sched.Health(ctx); err != nil {
		t.Errorf("Health check failed: %v", err)
	}

	if err := sched.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if sched.IsRunning() {
		t.Error("Scheduler should not be running after Stop")
	}

	if err := sched.Health(ctx); err == nil {
		t.Error("Health should fail after Stop")
	}
}

func TestScheduler_GracefulShutdown(t *testing.T) {
	sched := newTestScheduler(t, newRegistry(t), &mockHookRunner{})

	ctx := context.Background()
	require.NoError(t, sched.Init(ctx))
	require.NoError(t, sched.Start(ctx))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- sched.Stop(shutdownCtx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			t.Errorf("Stop failed: %v", err)
		}
	case <-shutdownCtx.Done():
		t.Error("Stop timed out")
	}
}

func TestScheduler_ArmsOnlyEnabledResolvableHooks(t *testing.T) {
	reg := newRegistry(t,
		store.HookDefinition{Name: "fast", Cmd: "x", Enabled: true, Schedule: "1000"},
		store.HookDefinition{Name: "off", Cmd: "x", Enabled: false, Schedule: "1000"},
		store.HookDefinition{Name: "manual", Cmd: "x", Enabled: true},
		store.HookDefinition{Name: "bogus", Cmd: "x", Enabled: true, Schedule: "every tuesday"},
		store.HookDefinition{Name: "hourly", Cmd: "x", Enabled: true, Schedule: "0 */2 * * *"},
	)
	sched := newTestScheduler(t, reg, &mockHookRunner{})

	rebuilt, err := sched.Reload()
	require.NoError(t, err)
	assert.True(t, rebuilt)
	defer sched.timers.DisarmAll()

	assert.Equal(t, []string{"fast#0", "hourly#4"}, sched.Armed())

	s, ok := sched.timers.Schedule("fast#0")
	require.True(t, ok)
	assert.Equal(t, 1000*time.Millisecond, s.Delay(time.Now()))

	s, ok = sched.timers.Schedule("hourly#4")
	require.True(t, ok)
	assert.Equal(t, 7_200_000*time.Millisecond, s.Delay(time.Now()))
}

func TestScheduler_StatusWritesDoNotRebuild(t *testing.T) {
	reg := newRegistry(t, store.HookDefinition{Name: "a", Cmd: "x", Enabled: true, Schedule: "60000"})
	sched := newTestScheduler(t, reg, &mockHookRunner{})
	defer sched.timers.DisarmAll()

	rebuilt, err := sched.Reload()
	require.NoError(t, err)
	require.True(t, rebuilt)

	require.NoError(t, reg.UpdateStatus(context.Background(), 0, "a", time.Now(), "boom"))
	rebuilt, err = sched.Reload()
	require.NoError(t, err)
	assert.False(t, rebuilt)

	writeHooks(t, reg, store.HookDefinition{Name: "a", Cmd: "x", Enabled: true, Schedule: "*/15 * * * *"})
	rebuilt, err = sched.Reload()
	require.NoError(t, err)
	assert.True(t, rebuilt)

	s, ok := sched.timers.Schedule("a#0")
	require.True(t, ok)
	assert.Equal(t, 900_000*time.Millisecond, s.Delay(time.Now()))
}

func TestScheduler_FiresAndPicksUpRegistryChanges(t *testing.T) {
	reg := newRegistry(t, store.HookDefinition{Name: "tick", Cmd: "x", Enabled: true, Schedule: "20"})
	runner := &mockHookRunner{}
	sched := newTestScheduler(t, reg, runner)

	ctx := context.Background()
	require.NoError(t, sched.Init(ctx))
	require.NoError(t, sched.Start(ctx))
	defer sched.Stop(ctx)

	require.Eventually(t, func() bool { return runner.count(0) >= 2 }, 2*time.Second, 10*time.Millisecond)

	writeHooks(t, reg,
		store.HookDefinition{Name: "tick", Cmd: "x", Enabled: false, Schedule: "20"},
		store.HookDefinition{Name: "tock", Cmd: "x", Enabled: true, Schedule: "20"},
	)

	require.Eventually(t, func() bool {
		armed := sched.Armed()
		return len(armed) == 1 && armed[0] == "tock#1"
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return runner.count(1) >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_PanickingRunDoesNotStopTimers(t *testing.T) {
	reg := newRegistry(t, store.HookDefinition{Name: "bad", Cmd: "x", Enabled: true, Schedule: "20"})
	runner := &mockHookRunner{panic: true}
	sched := newTestScheduler(t, reg, runner)

	ctx := context.Background()
	require.NoError(t, sched.Init(ctx))
	require.NoError(t, sched.Start(ctx))
	defer sched.Stop(ctx)

	require.Eventually(t, func() bool { return runner.count(0) >= 3 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, sched.IsRunning())
}

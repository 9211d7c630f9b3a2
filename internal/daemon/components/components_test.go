package components

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harunnryd/hubblepad/internal/config"
)

func testDataConfig(t *testing.T) *config.DataConfig {
	root := t.TempDir()
	return &config.DataConfig{
		Root:      root,
		Dir:       filepath.Join(root, "data"),
		ItemsFile: "workitems.json",
		HooksFile: "hooks.json",
	}
}

func TestStoreComponent_SeedsDocuments(t *testing.T) {
	dataCfg := testDataConfig(t)
	comp := NewStoreComponent(dataCfg, &config.StoreConfig{})

	health, err := comp.Health(context.Background())
	require.NoError(t, err)
	assert.False(t, health.Healthy)

	require.NoError(t, comp.Init(context.Background()))
	require.NoError(t, comp.Start(context.Background()))

	for _, path := range []string{dataCfg.ItemsPath(), dataCfg.HooksPath()} {
		b, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "[]\n", string(b))
	}

	health, err = comp.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, health.Healthy)
}

func TestStoreComponent_KeepsExistingDocuments(t *testing.T) {
	dataCfg := testDataConfig(t)
	require.NoError(t, os.MkdirAll(dataCfg.Dir, 0o755))
	existing := `[{"id":"1","title":"t","description":"d","url":"u"}]`
	require.NoError(t, os.WriteFile(dataCfg.ItemsPath(), []byte(existing), 0o644))

	comp := NewStoreComponent(dataCfg, nil)
	require.NoError(t, comp.Init(context.Background()))

	items, err := comp.Items().LoadAll()
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestStoreComponent_UnhealthyOnCorruptDocument(t *testing.T) {
	dataCfg := testDataConfig(t)
	comp := NewStoreComponent(dataCfg, nil)
	require.NoError(t, comp.Init(context.Background()))

	require.NoError(t, os.WriteFile(dataCfg.HooksPath(), []byte("{not json"), 0o644))

	health, err := comp.Health(context.Background())
	require.NoError(t, err)
	assert.False(t, health.Healthy)
	assert.Error(t, health.Error)
}

func TestHooksComponent_RequiresStore(t *testing.T) {
	dataCfg := testDataConfig(t)
	storeComp := NewStoreComponent(dataCfg, nil)
	hooksComp := NewHooksComponent(dataCfg, &config.HooksConfig{}, storeComp)

	assert.Error(t, hooksComp.Init(context.Background()))

	require.NoError(t, storeComp.Init(context.Background()))
	require.NoError(t, hooksComp.Init(context.Background()))
	assert.NotNil(t, hooksComp.Service())
	assert.Equal(t, []string{"Store"}, hooksComp.Dependencies())
}

func TestHTTPServerComponent_Lifecycle(t *testing.T) {
	dataCfg := testDataConfig(t)
	storeComp := NewStoreComponent(dataCfg, nil)
	hooksComp := NewHooksComponent(dataCfg, &config.HooksConfig{}, storeComp)
	require.NoError(t, storeComp.Init(context.Background()))
	require.NoError(t, hooksComp.Init(context.Background()))

	comp := NewHTTPServerComponent(nil, &config.ServerConfig{Port: 0}, storeComp, hooksComp, "test")
	assert.Equal(t, []string{"Store", "Hooks"}, comp.Dependencies())
	assert.Error(t, comp.Start(context.Background()))

	require.NoError(t, comp.Init(context.Background()))
	require.NoError(t, comp.Start(context.Background()))
	assert.NotEmpty(t, comp.Addr())

	health, err := comp.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, health.Healthy)

	require.NoError(t, comp.Stop(context.Background()))
	health, err = comp.Health(context.Background())
	require.NoError(t, err)
	assert.False(t, health.Healthy)
}

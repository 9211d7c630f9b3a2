package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/harunnryd/hubblepad/internal/pathutil"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Data      DataConfig      `koanf:"data"`
	Hooks     HooksConfig     `koanf:"hooks"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Store     StoreConfig     `koanf:"store"`
	Daemon    DaemonConfig    `koanf:"daemon"`
}

type ServerConfig struct {
	Port            int    `koanf:"port"`
	LogLevel        string `koanf:"log_level"`
	ReadTimeout     string `koanf:"read_timeout"`
	WriteTimeout    string `koanf:"write_timeout"`
	IdleTimeout     string `koanf:"idle_timeout"`
	ShutdownTimeout string `koanf:"shutdown_timeout"`
}

// DataConfig locates the durable documents. Root is the repository root that
// relative hook working directories are resolved against.
type DataConfig struct {
	Root      string `koanf:"root"`
	Dir       string `koanf:"dir"`
	ItemsFile string `koanf:"items_file"`
	HooksFile string `koanf:"hooks_file"`
}

type HooksConfig struct {
	Timeout       string `koanf:"timeout"`
	StderrExcerpt int    `koanf:"stderr_excerpt"`
	Shell         string `koanf:"shell"`
}

type SchedulerConfig struct {
	PollInterval    string `koanf:"poll_interval"`
	ShutdownTimeout string `koanf:"shutdown_timeout"`
}

type StoreConfig struct {
	LockTimeout string `koanf:"lock_timeout"`
	LockRetry   string `koanf:"lock_retry"`
}

type DaemonConfig struct {
	ShutdownTimeout     string `koanf:"shutdown_timeout"`
	HealthCheckInterval string `koanf:"health_check_interval"`
}

const (
	DefaultServerPort                = 8000
	DefaultServerLogLevel            = "info"
	DefaultServerReadTimeout         = "10s"
	DefaultServerWriteTimeout        = "330s"
	DefaultServerIdleTimeout         = "60s"
	DefaultServerShutdownTimeout     = "5s"
	DefaultDataDirName               = "data"
	DefaultItemsFile                 = "workitems.json"
	DefaultHooksFile                 = "hooks.json"
	DefaultHookTimeout               = "120s"
	MinHookTimeout                   = "60s"
	MaxHookTimeout                   = "300s"
	DefaultHookStderrExcerpt         = 1000
	DefaultHookShell                 = ""
	DefaultSchedulerPollInterval     = "2s"
	DefaultSchedulerShutdownTimeout  = "30s"
	DefaultStoreLockTimeout          = "10s"
	DefaultStoreLockRetry            = "50ms"
	DefaultDaemonShutdownTimeout     = "30s"
	DefaultDaemonHealthCheckInterval = "30s"
)

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":                  DefaultServerPort,
		"server.log_level":             DefaultServerLogLevel,
		"server.read_timeout":          DefaultServerReadTimeout,
		"server.write_timeout":         DefaultServerWriteTimeout,
		"server.idle_timeout":          DefaultServerIdleTimeout,
		"server.shutdown_timeout":      DefaultServerShutdownTimeout,
		"data.root":                    "",
		"data.dir":                     "",
		"data.items_file":              DefaultItemsFile,
		"data.hooks_file":              DefaultHooksFile,
		"hooks.timeout":                DefaultHookTimeout,
		"hooks.stderr_excerpt":         DefaultHookStderrExcerpt,
		"hooks.shell":                  DefaultHookShell,
		"scheduler.poll_interval":      DefaultSchedulerPollInterval,
		"scheduler.shutdown_timeout":   DefaultSchedulerShutdownTimeout,
		"store.lock_timeout":           DefaultStoreLockTimeout,
		"store.lock_retry":             DefaultStoreLockRetry,
		"daemon.shutdown_timeout":      DefaultDaemonShutdownTimeout,
		"daemon.health_check_interval": DefaultDaemonHealthCheckInterval,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			globalPath := filepath.Join(home, ".hubblepad", "config.yaml")
			if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
				slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
			}
		}
	}

	// HUBBLEPAD_HOOKS_TIMEOUT -> hooks.timeout. Only the first underscore
	// separates section from key so that keys like stderr_excerpt survive.
	k.Load(env.Provider("HUBBLEPAD_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "HUBBLEPAD_"))
		return strings.Replace(key, "_", ".", 1)
	}), nil)

	// PORT overrides the file and env layers; flags still win.
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			k.Set("server.port", p)
		} else {
			slog.Warn("Ignoring invalid PORT", "value", port, "error", err)
		}
	}

	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	if err := normalizeDataPaths(&cfg.Data); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func normalizeDataPaths(data *DataConfig) error {
	root, err := pathutil.Expand(data.Root)
	if err != nil {
		return err
	}
	if root == "" {
		root, err = os.Getwd()
		if err != nil {
			return err
		}
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return err
	}
	data.Root = root

	dir, err := pathutil.Expand(data.Dir)
	if err != nil {
		return err
	}
	if dir == "" {
		dir = DefaultDataDirName
	}
	data.Dir = pathutil.ResolveUnder(root, dir)

	if strings.TrimSpace(data.ItemsFile) == "" {
		data.ItemsFile = DefaultItemsFile
	}
	if strings.TrimSpace(data.HooksFile) == "" {
		data.HooksFile = DefaultHooksFile
	}
	return nil
}

// ItemsPath returns the absolute path of the work item document.
func (d DataConfig) ItemsPath() string {
	return pathutil.ResolveUnder(d.Dir, d.ItemsFile)
}

// HooksPath returns the absolute path of the hook registry document.
func (d DataConfig) HooksPath() string {
	return pathutil.ResolveUnder(d.Dir, d.HooksFile)
}

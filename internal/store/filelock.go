package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/hubblepad/internal/config"
	hubbleErrors "github.com/harunnryd/hubblepad/internal/errors"

	"github.com/gofrs/flock"
)

// FileLock is an advisory lock on "<document>.lock", held for the whole
// load-mutate-save sequence of a document update.
type FileLock struct {
	fileLock   *flock.Flock
	lockPath   string
	acquiredAt time.Time
	mu         sync.Mutex
}

type FileLockConfig struct {
	LockTimeout time.Duration
	LockRetry   time.Duration
}

func DefaultFileLockConfig() *FileLockConfig {
	lockTimeout, _ := config.DurationOrDefault(config.DefaultStoreLockTimeout, config.DefaultStoreLockTimeout)
	lockRetry, _ := config.DurationOrDefault(config.DefaultStoreLockRetry, config.DefaultStoreLockRetry)

	return &FileLockConfig{
		LockTimeout: lockTimeout,
		LockRetry:   lockRetry,
	}
}

// FileLockConfigFrom parses the store section of the configuration.
func FileLockConfigFrom(cfg config.StoreConfig) (*FileLockConfig, error) {
	lockTimeout, err := config.DurationOrDefault(cfg.LockTimeout, config.DefaultStoreLockTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse store lock timeout: %w", err)
	}
	lockRetry, err := config.DurationOrDefault(cfg.LockRetry, config.DefaultStoreLockRetry)
	if err != nil {
		return nil, fmt.Errorf("parse store lock retry: %w", err)
	}
	return &FileLockConfig{LockTimeout: lockTimeout, LockRetry: lockRetry}, nil
}

func NewFileLock(ctx context.Context, documentPath string, cfg *FileLockConfig) (*FileLock, error) {
	if cfg == nil {
		cfg = DefaultFileLockConfig()
	}

	lockPath := documentPath + ".lock"
	fl := &FileLock{
		fileLock: flock.New(lockPath),
		lockPath: lockPath,
	}

	lockCtx, cancel := context.WithTimeout(ctx, cfg.LockTimeout)
	defer cancel()

	locked, err := fl.fileLock.TryLockContext(lockCtx, cfg.LockRetry)
	if err != nil && lockCtx.Err() == nil {
		return nil, fmt.Errorf("failed to attempt lock %s: %w", lockPath, err)
	}
	if !locked {
		return nil, hubbleErrors.Transient(fmt.Sprintf("%s is locked by another writer (timeout after %v)", lockPath, cfg.LockTimeout))
	}

	fl.acquiredAt = time.Now()
	slog.Debug("File lock acquired", "path", lockPath)
	return fl, nil
}

func (fl *FileLock) Unlock() {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.fileLock == nil {
		return
	}

	if err := fl.fileLock.Unlock(); err != nil {
		slog.Error("Failed to release file lock", "path", fl.lockPath, "error", err)
	} else {
		slog.Debug("File lock released", "path", fl.lockPath, "held_duration_ms", time.Since(fl.acquiredAt).Milliseconds())
	}

	fl.fileLock = nil
}

func (fl *FileLock) IsLocked() bool {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	return fl.fileLock != nil
}

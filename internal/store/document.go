package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/harunnryd/hubblepad/internal/concurrency"
	hubbleErrors "github.com/harunnryd/hubblepad/internal/errors"

	"github.com/natefinch/atomic"
)

var writers = concurrency.NewKeyedMutex()

// Document is a single JSON file holding a value of type T. Reads are
// lock-free: saves go through write-temp-then-rename, so a reader never sees
// a half-written file. Update serializes writers with an in-process mutex and
// an advisory file lock so concurrent read-modify-write cycles cannot lose data.
type Document[T any] struct {
	path    string
	lockCfg *FileLockConfig
}

func NewDocument[T any](path string, lockCfg *FileLockConfig) *Document[T] {
	if lockCfg == nil {
		lockCfg = DefaultFileLockConfig()
	}
	return &Document[T]{path: path, lockCfg: lockCfg}
}

func (d *Document[T]) Path() string {
	return d.path
}

// ReadRaw returns the file contents verbatim, or nil when it does not exist.
func (d *Document[T]) ReadRaw() ([]byte, error) {
	content, err := os.ReadFile(d.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, hubbleErrors.Internalf(err, "read %s", filepath.Base(d.path))
	}
	return content, nil
}

// Load reads and decodes the document. A missing or blank file yields the zero value.
func (d *Document[T]) Load() (T, error) {
	var v T
	content, err := d.ReadRaw()
	if err != nil {
		return v, err
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(content, &v); err != nil {
		return v, hubbleErrors.Internalf(err, "parse %s", filepath.Base(d.path))
	}
	return v, nil
}

// Save atomically replaces the document with v.
func (d *Document[T]) Save(v T) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return hubbleErrors.Internalf(err, "encode %s", filepath.Base(d.path))
	}
	b = append(b, '\n')

	if err := os.MkdirAll(filepath.Dir(d.path), 0755); err != nil {
		return hubbleErrors.Internalf(err, "create dir for %s", filepath.Base(d.path))
	}
	if err := atomic.WriteFile(d.path, bytes.NewReader(b)); err != nil {
		return hubbleErrors.Internalf(err, "write %s", filepath.Base(d.path))
	}
	return nil
}

// Update runs load, fn, save while holding the document's writer locks.
// When fn returns an error nothing is written.
func (d *Document[T]) Update(ctx context.Context, fn func(v *T) error) error {
	writers.Lock(d.path)
	defer writers.Unlock(d.path)

	if err := os.MkdirAll(filepath.Dir(d.path), 0755); err != nil {
		return hubbleErrors.Internalf(err, "create dir for %s", filepath.Base(d.path))
	}
	lock, err := NewFileLock(ctx, d.path, d.lockCfg)
	if err != nil {
		return fmt.Errorf("lock %s: %w", filepath.Base(d.path), err)
	}
	defer lock.Unlock()

	v, err := d.Load()
	if err != nil {
		return err
	}
	if err := fn(&v); err != nil {
		return err
	}
	return d.Save(v)
}

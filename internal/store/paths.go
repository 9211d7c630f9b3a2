package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDocument creates path's directory and seeds the file with an empty
// JSON array when it does not exist yet. Existing files are left untouched.
func EnsureDocument(path string) (created bool, err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create dir %s: %w", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if os.IsExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write([]byte("[]\n")); err != nil {
		return true, fmt.Errorf("failed to seed %s: %w", path, err)
	}
	return true, nil
}

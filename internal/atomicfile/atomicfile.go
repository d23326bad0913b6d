// Package atomicfile provides write-and-rename persistence, grounded on
// internal/osutil/atomic.go's AtomicWriter/CreateAtomic: a temp file is
// written in the destination's directory and renamed over the final path
// only on success, so a crash mid-write never leaves a half-written
// state file for the next invocation to trip over.
package atomicfile

import (
	"os"
	"path/filepath"
)

const tempPrefix = ".harmony.tmp."

// WriteFile atomically replaces path's contents with data.
func WriteFile(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, tempPrefix)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if err := os.Chmod(tmpName, mode); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}

	return nil
}

// ReadFile reads path's full contents. It is a thin wrapper kept next to
// WriteFile so every persistence call in the repository goes through one
// package.
func ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

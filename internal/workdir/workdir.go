// Package workdir implements WorkingDirectory from spec.md §4.1,
// grounded on harmony.working_directory.WorkingDirectory in the original
// Python implementation and on the filepath.Walk structure of
// internal/scanner/walk.go.
package workdir

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/harmonyfs/harmony/internal/digest"
	"github.com/harmonyfs/harmony/internal/digestcache"
	"github.com/harmonyfs/harmony/internal/filestate"
	"github.com/harmonyfs/harmony/internal/logger"
	"github.com/harmonyfs/harmony/internal/ruleset"
)

var l = logger.Default

// WorkingDirectory provides access to operations on the actual files
// below Root, filtered by Rules.
type WorkingDirectory struct {
	Root  string
	Rules *ruleset.Ruleset

	// Cache, if set, lets Scan skip re-hashing files whose size and
	// mtime haven't changed since the last digest was recorded.
	Cache *digestcache.Cache
}

// SetCache attaches a digest cache used to skip re-hashing unchanged
// files on subsequent scans.
func (w *WorkingDirectory) SetCache(c *digestcache.Cache) {
	w.Cache = c
}

// New resolves root to an absolute path and returns a WorkingDirectory
// rooted there.
func New(root string, rules *ruleset.Ruleset) (*WorkingDirectory, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		resolved = abs
	}
	return &WorkingDirectory{Root: resolved, Rules: rules}, nil
}

// Normalize resolves relpath against Root -- following symlinks where
// they exist -- and returns it relative to Root, with forward slashes.
func (w *WorkingDirectory) Normalize(relpath string) (string, error) {
	abspath := filepath.Join(w.Root, filepath.FromSlash(relpath))
	resolved, err := filepath.EvalSymlinks(abspath)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		resolved = abspath
	}
	rel, err := filepath.Rel(w.Root, resolved)
	if err != nil {
		return "", err
	}
	return filestate.Normalize(rel), nil
}

// Enumerate returns the normalized names of every committable file
// below Root.
func (w *WorkingDirectory) Enumerate() ([]string, error) {
	seen := make(map[string]bool)
	err := filepath.Walk(w.Root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(w.Root, path)
		if err != nil {
			return err
		}
		norm := filestate.Normalize(rel)
		if !w.Rules.Committable(norm) {
			return nil
		}
		seen[norm] = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerating %s: %w", w.Root, err)
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	return out, nil
}

// Contains reports whether the normalized relative path refers to an
// existing file below Root.
func (w *WorkingDirectory) Contains(relpath string) bool {
	norm, err := w.Normalize(relpath)
	if err != nil {
		return false
	}
	_, err = os.Stat(filepath.Join(w.Root, filepath.FromSlash(norm)))
	return err == nil
}

// MaybeModified reports whether the file recorded as state might have
// changed since state was captured, using mtime and size the way the
// original's file_maybe_modified did. A false result is definitive; a
// true result may be a false positive but never a false negative, except
// when the system clock has moved backwards, in which case the file is
// always treated as modified and a warning is logged.
func (w *WorkingDirectory) MaybeModified(state filestate.FileState) bool {
	full := filepath.Join(w.Root, filepath.FromSlash(state.Path))
	info, err := os.Stat(full)
	existsNow := err == nil
	existsBefore := state.Exists()

	if !existsBefore && !existsNow {
		return false
	}
	if existsBefore != existsNow {
		return true
	}

	mtime := float64(info.ModTime().UnixNano()) / 1e9
	size := info.Size()

	if state.MTime != nil && *state.MTime > mtime {
		l.Warnf("clock screwup: memorized modification time of %s is more recent than actual", state.Path)
		return true
	}

	return (state.MTime == nil || mtime > *state.MTime) || state.Size == nil || size != *state.Size
}

// Scan reads the file at the normalized relative path path and returns a
// FileState describing its current contents, or an absent FileState if
// it does not exist.
func (w *WorkingDirectory) Scan(path string) (filestate.FileState, error) {
	full := filepath.Join(w.Root, filepath.FromSlash(path))
	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			if w.Cache != nil {
				if err := w.Cache.Delete(path); err != nil {
					l.Warnf("digest cache delete failed for %s: %v", path, err)
				}
			}
			return filestate.Absent(path), nil
		}
		return filestate.FileState{}, err
	}

	mtime := float64(info.ModTime().UnixNano()) / 1e9
	size := info.Size()

	if w.Cache != nil {
		if sum, ok := w.Cache.Lookup(path, size, mtime); ok {
			return filestate.FileState{
				Path:   path,
				Digest: sum,
				Size:   filestate.Int64(size),
				MTime:  filestate.Float64(mtime),
			}, nil
		}
	}

	f, err := os.Open(full)
	if err != nil {
		return filestate.FileState{}, err
	}
	defer f.Close()

	sum, err := digest.OfReader(f)
	if err != nil {
		return filestate.FileState{}, fmt.Errorf("digesting %s: %w", path, err)
	}

	if w.Cache != nil {
		if err := w.Cache.Store(path, size, mtime, sum); err != nil {
			l.Warnf("digest cache store failed for %s: %v", path, err)
		}
	}

	return filestate.FileState{
		Path:   path,
		Digest: sum,
		Size:   filestate.Int64(size),
		MTime:  filestate.Float64(mtime),
	}, nil
}

// Rename moves the file at from to to on disk, creating to's parent
// directories as needed.
func (w *WorkingDirectory) Rename(from, to string) error {
	src := filepath.Join(w.Root, filepath.FromSlash(from))
	dst := filepath.Join(w.Root, filepath.FromSlash(to))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.Rename(src, dst)
}

// Package commit implements the CommitEngine from spec.md §4.5, grounded
// on harmony.file_state_logic.commit in the original Python
// implementation.
package commit

import (
	"github.com/harmonyfs/harmony/internal/filestate"
	"github.com/harmonyfs/harmony/internal/locationid"
	"github.com/harmonyfs/harmony/internal/locationstate"
	"github.com/harmonyfs/harmony/internal/logger"
	"github.com/harmonyfs/harmony/internal/metrics"
	"github.com/harmonyfs/harmony/internal/repostate"
	"github.com/harmonyfs/harmony/internal/workdir"
)

var l = logger.Default

// Engine scans a working directory for changes and records them into
// the local location's LocationState and into the shared RepositoryState.
type Engine struct {
	LocalID          string
	WorkingDirectory *workdir.WorkingDirectory
	LocationStates   *locationstate.Store
	RepositoryState  *repostate.Store
}

// New returns a commit Engine bound to the given stores.
func New(localID string, wd *workdir.WorkingDirectory, ls *locationstate.Store, rs *repostate.Store) *Engine {
	return &Engine{LocalID: localID, WorkingDirectory: wd, LocationStates: ls, RepositoryState: rs}
}

// Commit scans the working directory, detects changes and renames, and
// updates both stores. It returns whether any change was recorded. The
// caller is responsible for calling LocationStates.SaveTick(LocalID)
// exactly once afterward, before persisting.
func (e *Engine) Commit() (bool, error) {
	id := e.LocalID
	short := locationid.Short(id)

	paths, err := e.candidatePaths()
	if err != nil {
		return false, err
	}

	// Scan every path whose recorded state suggests it might have
	// changed, at most once each.
	wdStates := make(map[string]filestate.FileState, len(paths))
	for _, path := range paths {
		recorded := e.LocationStates.GetFileState(id, path)
		if !e.WorkingDirectory.MaybeModified(recorded) {
			continue
		}
		fs, err := e.WorkingDirectory.Scan(path)
		if err != nil {
			return false, err
		}
		wdStates[path] = fs
	}

	locationStateCache := make(map[string]filestate.FileState, len(paths))
	for _, path := range paths {
		locationStateCache[path] = e.LocationStates.GetFileState(id, path)
	}

	anyChange := false
	for _, path := range paths {
		newFileState, scanned := wdStates[path]
		if !scanned {
			l.Debugf("%s not in workdir: %s", short, path)
			continue
		}

		fileState := locationStateCache[path]
		changed := e.LocationStates.UpdateFileState(id, newFileState)
		if !changed {
			l.Debugf("%s not actually changed: %s", short, path)
			continue
		}
		anyChange = true

		if !newFileState.Exists() {
			l.Debugf("%s vanished", newFileState.Path)
			e.detectRename(path, fileState, paths, wdStates, locationStateCache, &newFileState)
		}

		newClock := e.LocationStates.ClockOf(id) + 1
		e.RepositoryState.UpdateFileState(newFileState.Path, newFileState.Digest, newFileState.Wipe, id, newClock)
		l.Debugf("%s committed: %s clk=%d", short, newFileState.Path, newClock)
	}

	if anyChange {
		metrics.Commits.WithLabelValues("changed").Inc()
	} else {
		metrics.Commits.WithLabelValues("unchanged").Inc()
	}

	return anyChange, nil
}

// detectRename looks for a path that newly appeared with the same
// digest the vanished path used to carry; if found, newFileState is
// marked as a wipe-with-known-digest rename source rather than a plain
// deletion.
func (e *Engine) detectRename(path string, oldState filestate.FileState, paths []string, wdStates, recorded map[string]filestate.FileState, newFileState *filestate.FileState) {
	for _, path2 := range paths {
		if path2 == path {
			continue
		}
		newPath2State, scanned := wdStates[path2]
		if !scanned {
			continue
		}
		path2State := recorded[path2]

		if !path2State.Exists() && newPath2State.Exists() && newPath2State.Digest == oldState.Digest {
			l.Infof("detected rename: %s -> %s", path, path2)
			newFileState.Wipe = true
			newFileState.Digest = oldState.Digest
			return
		}
	}
}

// candidatePaths is the union of every path currently on disk and every
// path this location has ever recorded a FileState for (including
// vanished/wiped ones, so a vanish-without-a-later-rescan still gets
// re-evaluated).
func (e *Engine) candidatePaths() ([]string, error) {
	onDisk, err := e.WorkingDirectory.Enumerate()
	if err != nil {
		return nil, err
	}

	set := make(map[string]bool, len(onDisk))
	for _, p := range onDisk {
		set[p] = true
	}
	for _, p := range e.LocationStates.PathsOf(e.LocalID) {
		set[p] = true
	}

	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	return out, nil
}

// Package merge implements MergeEngine and the auto-rename driver from
// spec.md §4.6-§4.7, grounded on harmony.file_state_logic.{merge,
// auto_rename} in the original Python implementation.
package merge

import (
	"github.com/harmonyfs/harmony/internal/clock"
	"github.com/harmonyfs/harmony/internal/logger"
	"github.com/harmonyfs/harmony/internal/metrics"
	"github.com/harmonyfs/harmony/internal/repostate"
	"github.com/harmonyfs/harmony/internal/workdir"
)

var l = logger.Default

// Conflict is one unresolved per-path disagreement between two
// repository states that were concurrently, differently modified.
type Conflict struct {
	Path   string
	Local  repostate.RepositoryFileState
	Remote repostate.RepositoryFileState
}

// Merge resolves local against remote, returning any conflicts and a
// newly populated Store with the merged entries. mergerID is the id of
// the repository performing the merge; it is the component incremented
// when two concurrent-but-identical edits are folded into one.
//
// If conflicts is non-empty, merged still covers every non-conflicting
// path; callers are expected to leave local state unchanged whenever
// conflicts exist, per spec.md §7's MergeConflict handling.
func Merge(local, remote *repostate.Store, mergerID string) ([]Conflict, *repostate.Store) {
	localPaths := stringSet(local.Paths())
	remotePaths := stringSet(remote.Paths())

	merged := repostate.New()
	var conflicts []Conflict

	for path := range localPaths {
		if !remotePaths[path] {
			merged.Set(path, local.Get(path))
		}
	}
	for path := range remotePaths {
		if !localPaths[path] {
			merged.Set(path, remote.Get(path))
		}
	}

	for path := range localPaths {
		if !remotePaths[path] {
			continue
		}
		localEntry := local.Get(path)
		remoteEntry := remote.Get(path)

		switch clock.Compare(localEntry.Clock, remoteEntry.Clock) {
		case clock.Concurrent:
			if localEntry.ContentsDiffer(remoteEntry) {
				l.Debugf("merge: %s in conflict: %s <-> %s", path, localEntry.Clock, remoteEntry.Clock)
				conflicts = append(conflicts, Conflict{Path: path, Local: localEntry, Remote: remoteEntry})
				metrics.Merges.WithLabelValues("conflict").Inc()
			} else {
				l.Debugf("merge: %s automerged (same content)", path)
				m := localEntry
				m.Clock = clock.Tick(clock.Join(localEntry.Clock, remoteEntry.Clock), mergerID)
				merged.Set(path, m)
				metrics.Merges.WithLabelValues("auto_merged").Inc()
			}
		case clock.Less:
			l.Debugf("merge: %s newer on remote", path)
			merged.Set(path, remoteEntry)
			metrics.Merges.WithLabelValues("remote").Inc()
		default: // Greater or Equal
			l.Debugf("merge: %s same version or newer on local", path)
			merged.Set(path, localEntry)
			metrics.Merges.WithLabelValues("local").Inc()
		}
	}

	metrics.Conflicts.Add(float64(len(conflicts)))
	return conflicts, merged
}

func stringSet(ss []string) map[string]bool {
	out := make(map[string]bool, len(ss))
	for _, s := range ss {
		out[s] = true
	}
	return out
}

// AutoRename applies the automatic renaming pass described in spec.md
// §4.7: for every path wiped in repoState but still present on disk,
// find a non-wiped entry sharing its digest and rename the on-disk file
// to that target, cheaply reproducing the rename without re-transferring
// payload bytes. Repository.Commit should be run after AutoRename to
// record the resulting working-directory state.
//
// Precondition: wd is otherwise clean (no uncommitted local changes).
func AutoRename(wd *workdir.WorkingDirectory, repoState *repostate.Store) error {
	snapshot := repoState.Snapshot()

	for path, entry := range snapshot {
		inWD := wd.Contains(path)
		l.Debugf("auto_rename: path=%s wipe=%v in_wd=%v", path, entry.Wipe, inWD)
		if !entry.Wipe || !inWD {
			continue
		}

		if !repoState.DigestMaybePresent(entry.Digest) {
			// No non-wiped entry can possibly carry this digest; skip
			// the linear scan below entirely.
			continue
		}

		var target string
		for path2, e2 := range snapshot {
			if path2 == path || e2.Wipe || e2.Digest != entry.Digest || wd.Contains(path2) {
				continue
			}
			target = path2
			break
		}
		if target == "" {
			continue
		}

		l.Infof("%s could be auto-renamed to %s", path, target)
		if err := wd.Rename(path, target); err != nil {
			return err
		}
	}
	return nil
}

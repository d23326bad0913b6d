// Package repostate implements RepositoryFileState and RepositoryState
// from spec.md §3/§4.3, grounded on harmony.repository_state.{
// RepositoryFileState, RepositoryState} in the original Python
// implementation.
//
// The authoritative per-path fact this package stores is consulted by the
// auto-rename driver (internal/merge) once per wiped path to find a
// sibling entry sharing its digest. For repositories with many files that
// linear scan is wasteful when the digest in question simply isn't
// carried by any other entry, so the Store also maintains a Bloom filter
// (github.com/greatroar/blobloom) of every digest currently carried by a
// non-wiped entry, letting the driver skip the scan outright on a
// negative answer.
package repostate

import (
	"sort"
	"sync"

	"github.com/greatroar/blobloom"

	"github.com/harmonyfs/harmony/internal/clock"
)

// RepositoryFileState is the authoritative per-path fact: digest, the
// vector clock of the decision that produced it, and whether the path is
// wiped (retired here, bytes may have moved).
type RepositoryFileState struct {
	Path   string
	Digest string
	Clock  clock.Clock
	Wipe   bool
}

// ContentsDiffer reports whether f and other disagree on digest -- the
// comparison the merge engine uses to tell a same-content concurrent edit
// from a real conflict.
func (f RepositoryFileState) ContentsDiffer(other RepositoryFileState) bool {
	return f.Digest != other.Digest
}

// Store is the in-memory RepositoryState map, {path -> RepositoryFileState}.
type Store struct {
	mut   sync.Mutex
	files map[string]RepositoryFileState

	filter      *blobloom.Filter
	filterDirty bool
}

// New returns an empty Store.
func New() *Store {
	return &Store{files: make(map[string]RepositoryFileState)}
}

// Get returns the recorded entry for path, or a blank RepositoryFileState
// with that path if none exists.
func (s *Store) Get(path string) RepositoryFileState {
	s.mut.Lock()
	defer s.mut.Unlock()
	if f, ok := s.files[path]; ok {
		return f
	}
	return RepositoryFileState{Path: path, Clock: clock.New()}
}

// Set stores state under path, replacing any existing entry.
func (s *Store) Set(path string, state RepositoryFileState) {
	s.mut.Lock()
	defer s.mut.Unlock()
	s.files[path] = state
	s.filterDirty = true
}

// Paths returns every path currently recorded, sorted for determinism.
func (s *Store) Paths() []string {
	s.mut.Lock()
	defer s.mut.Unlock()
	out := make([]string, 0, len(s.files))
	for p := range s.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Overwrite replaces all entries with a deep copy of other's.
func (s *Store) Overwrite(other map[string]RepositoryFileState) {
	s.mut.Lock()
	defer s.mut.Unlock()
	s.files = make(map[string]RepositoryFileState, len(other))
	for k, v := range other {
		s.files[k] = v
	}
	s.filterDirty = true
}

// Snapshot returns a copy of the full path->entry map.
func (s *Store) Snapshot() map[string]RepositoryFileState {
	s.mut.Lock()
	defer s.mut.Unlock()
	out := make(map[string]RepositoryFileState, len(s.files))
	for k, v := range s.files {
		out[k] = v
	}
	return out
}

// UpdateFileState is RepositoryState.update_file_state from spec.md §4.3:
// load the entry for path (or a blank one); if (digest, wipe) is
// unchanged, do nothing; otherwise set digest/wipe and clock[loc] =
// newClockValue, then store. Returns whether anything changed.
func (s *Store) UpdateFileState(path, digest string, wipe bool, loc string, newClockValue uint64) bool {
	s.mut.Lock()
	defer s.mut.Unlock()

	entry, ok := s.files[path]
	if !ok {
		entry = RepositoryFileState{Path: path, Clock: clock.New()}
	}

	if entry.Digest == digest && entry.Wipe == wipe {
		return false
	}

	entry.Digest = digest
	entry.Wipe = wipe
	entry.Clock = clock.Set(entry.Clock, loc, newClockValue)
	s.files[path] = entry
	s.filterDirty = true
	return true
}

// rebuildFilter recomputes the Bloom filter over every non-empty digest
// currently recorded on a non-wiped entry. Called lazily, only when DigestMaybePresent is
// asked a question after a mutation.
func (s *Store) rebuildFilter() {
	nkeys := len(s.files)
	if nkeys == 0 {
		nkeys = 1
	}
	f := blobloom.NewOptimized(blobloom.Config{
		Capacity: uint64(nkeys),
		FPRate:   0.01,
	})
	for _, e := range s.files {
		// Only non-wiped entries are ever valid auto-rename targets, so
		// that's all the filter needs to answer "could anything serve
		// as a rename target for this digest" without false negatives.
		if e.Digest != "" && !e.Wipe {
			f.Add(digestHash(e.Digest))
		}
	}
	s.filter = f
	s.filterDirty = false
}

func digestHash(digest string) uint64 {
	// FNV-1a 64-bit, sufficient for a Bloom filter's purposes (blobloom
	// only needs a well-distributed uint64, not a cryptographic hash).
	var h uint64 = 14695981039346656037
	for i := 0; i < len(digest); i++ {
		h ^= uint64(digest[i])
		h *= 1099511628211
	}
	return h
}

// DigestMaybePresent reports whether any non-wiped entry might carry
// digest -- the question the auto-rename driver needs answered before it
// scans for a rename target. A false result is definitive (no entry has
// it, so no scan is needed); a true result means the caller must still
// scan to confirm, since Bloom filters allow false positives.
func (s *Store) DigestMaybePresent(digest string) bool {
	s.mut.Lock()
	defer s.mut.Unlock()
	if s.filter == nil || s.filterDirty {
		s.rebuildFilter()
	}
	return s.filter.Has(digestHash(digest))
}

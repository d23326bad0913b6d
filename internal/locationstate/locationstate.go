// Package locationstate implements LocationState and LocationStates from
// spec.md §3/§4.2, grounded on harmony.location_states.{LocationState,
// LocationStates} in the original Python implementation and on the
// save-dirty-then-clear pattern used throughout internal/files/set.go.
package locationstate

import (
	"sort"
	"sync"
	"time"

	"github.com/harmonyfs/harmony/internal/filestate"
)

// LocationState is one location's self-reported view of its own files: a
// scalar clock (orders this location's snapshots against themselves
// across peers), a last-modification timestamp, and the file table
// itself.
type LocationState struct {
	LocationID       string
	Clock            uint64
	LastModification time.Time
	Files            map[string]filestate.FileState

	dirty bool
}

func newLocationState(id string) *LocationState {
	return &LocationState{
		LocationID: id,
		Files:      make(map[string]filestate.FileState),
	}
}

// Clone returns a deep copy, used when merge_from adopts a remote's
// snapshot verbatim so later local mutation can't alias the source.
func (s *LocationState) Clone() *LocationState {
	out := &LocationState{
		LocationID:       s.LocationID,
		Clock:            s.Clock,
		LastModification: s.LastModification,
		Files:            make(map[string]filestate.FileState, len(s.Files)),
		dirty:            s.dirty,
	}
	for k, v := range s.Files {
		out.Files[k] = v
	}
	return out
}

// Store is the in-memory LocationStates map, {location_id -> LocationState}.
type Store struct {
	mut   sync.Mutex
	items map[string]*LocationState

	now func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		items: make(map[string]*LocationState),
		now:   time.Now,
	}
}

// GetFileState returns the recorded state for (loc, path), or a fresh
// absent-state with that path if none is recorded.
func (s *Store) GetFileState(loc, path string) filestate.FileState {
	s.mut.Lock()
	defer s.mut.Unlock()

	ls, ok := s.items[loc]
	if !ok {
		return filestate.Absent(path)
	}
	fs, ok := ls.Files[path]
	if !ok {
		return filestate.Absent(path)
	}
	return fs
}

// UpdateFileState records new as loc's current state for new.Path if it
// differs (by size or digest) from what's recorded, marking loc dirty and
// bumping LastModification. Returns whether anything changed.
func (s *Store) UpdateFileState(loc string, new filestate.FileState) bool {
	s.mut.Lock()
	defer s.mut.Unlock()

	ls, ok := s.items[loc]
	if !ok {
		ls = newLocationState(loc)
		s.items[loc] = ls
	}

	existing, had := ls.Files[new.Path]
	if had && !existing.ContentsDiffer(new) {
		return false
	}

	ls.Files[new.Path] = new
	ls.dirty = true
	ls.LastModification = s.now()
	return true
}

// MergeFrom folds remote's entries into s: for each location, adopt
// remote's snapshot verbatim if s has no entry for it or s's scalar clock
// is strictly less than remote's; otherwise keep s's entry (idempotent on
// equal clocks).
func (s *Store) MergeFrom(remote *Store) {
	remote.mut.Lock()
	remoteItems := make(map[string]*LocationState, len(remote.items))
	for k, v := range remote.items {
		remoteItems[k] = v.Clone()
	}
	remote.mut.Unlock()

	s.mut.Lock()
	defer s.mut.Unlock()
	for id, rs := range remoteItems {
		ls, ok := s.items[id]
		if !ok || ls.Clock < rs.Clock {
			s.items[id] = rs
		}
	}
}

// ClockOf returns the scalar clock currently recorded for loc.
func (s *Store) ClockOf(loc string) uint64 {
	s.mut.Lock()
	defer s.mut.Unlock()
	if ls, ok := s.items[loc]; ok {
		return ls.Clock
	}
	return 0
}

// PathsOf returns every path known to have been observed (present or
// absent) at loc.
func (s *Store) PathsOf(loc string) []string {
	s.mut.Lock()
	defer s.mut.Unlock()
	ls, ok := s.items[loc]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(ls.Files))
	for p := range ls.Files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Locations returns every location id this store has heard about.
func (s *Store) Locations() []string {
	s.mut.Lock()
	defer s.mut.Unlock()
	out := make([]string, 0, len(s.items))
	for id := range s.items {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Get returns a deep copy of the LocationState for id, or nil if unknown.
func (s *Store) Get(id string) *LocationState {
	s.mut.Lock()
	defer s.mut.Unlock()
	ls, ok := s.items[id]
	if !ok {
		return nil
	}
	return ls.Clone()
}

// Snapshot returns a deep copy of the whole store, suitable for
// serialization or for folding into another store via MergeFrom.
func (s *Store) Snapshot() map[string]*LocationState {
	s.mut.Lock()
	defer s.mut.Unlock()
	out := make(map[string]*LocationState, len(s.items))
	for k, v := range s.items {
		out[k] = v.Clone()
	}
	return out
}

// Replace discards the current contents and adopts items wholesale
// (used when loading from disk).
func (s *Store) Replace(items map[string]*LocationState) {
	s.mut.Lock()
	defer s.mut.Unlock()
	s.items = make(map[string]*LocationState, len(items))
	for k, v := range items {
		s.items[k] = v.Clone()
	}
}

// SaveTick increments loc's scalar clock if it is dirty and clears the
// dirty flag, returning the post-increment clock value. This is the
// "dirty flag, when set at save time, triggers a scalar-clock increment
// before serialization" rule from spec.md §4.2. It must be called
// exactly once per persist, immediately before serialization.
func (s *Store) SaveTick(loc string) uint64 {
	s.mut.Lock()
	defer s.mut.Unlock()
	ls, ok := s.items[loc]
	if !ok {
		return 0
	}
	if ls.dirty {
		ls.Clock++
		ls.dirty = false
	}
	return ls.Clock
}

// SetNowFunc overrides the clock used for LastModification, for tests.
func (s *Store) SetNowFunc(f func() time.Time) {
	s.mut.Lock()
	defer s.mut.Unlock()
	s.now = f
}

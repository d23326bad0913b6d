// Package remotes implements Remotes from spec.md §3/§4.8, grounded on
// harmony.remotes.Remotes in the original Python implementation.
package remotes

import (
	"fmt"
	"sort"
	"sync"
)

// Remote is one registered peer repository.
type Remote struct {
	ID       string
	Name     string
	Location string
}

// Remotes is the dual by-name/by-id index of known remotes. A remote
// registered without an id is only reachable by name; one registered
// with an id is reachable by either.
type Remotes struct {
	mut    sync.Mutex
	byName map[string]Remote
	byID   map[string]Remote
}

// New returns an empty Remotes registry.
func New() *Remotes {
	return &Remotes{
		byName: make(map[string]Remote),
		byID:   make(map[string]Remote),
	}
}

// Add registers a remote under name (and, if id is non-empty, also under
// id). It is an error to reuse a name or id already in use.
func (r *Remotes) Add(location, name, id string) error {
	r.mut.Lock()
	defer r.mut.Unlock()

	if _, ok := r.byName[name]; ok {
		return fmt.Errorf("remote with name %q already exists", name)
	}
	if id != "" {
		if _, ok := r.byID[id]; ok {
			return fmt.Errorf("remote with ID %q already exists", id)
		}
	}

	rem := Remote{ID: id, Name: name, Location: location}
	r.byName[name] = rem
	if id != "" {
		r.byID[id] = rem
	}
	return nil
}

// Remove drops the remote registered under name from both indexes. It is
// an error if no remote has that name.
func (r *Remotes) Remove(name string) error {
	r.mut.Lock()
	defer r.mut.Unlock()

	rem, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("no remote named %q", name)
	}
	delete(r.byName, name)
	if rem.ID != "" {
		delete(r.byID, rem.ID)
	}
	return nil
}

// GetLocation returns the location registered for id (tried first) or
// name, or ("", false) if neither matches.
func (r *Remotes) GetLocation(id, name string) (string, bool) {
	r.mut.Lock()
	defer r.mut.Unlock()

	if id != "" {
		if rem, ok := r.byID[id]; ok {
			return rem.Location, true
		}
	}
	if name != "" {
		if rem, ok := r.byName[name]; ok {
			return rem.Location, true
		}
	}
	return "", false
}

// GetLocationAny resolves s as either a known id or a known name and
// returns its registered location; if s matches neither, s is returned
// unchanged so callers can fall back to treating it as a raw connector
// URI (e.g. ssh://host/path, file:///path).
func (r *Remotes) GetLocationAny(s string) string {
	if loc, ok := r.GetLocation(s, s); ok {
		return loc
	}
	return s
}

// GetRemotes returns every distinct registered remote, sorted by
// (name, id, location) for deterministic output.
func (r *Remotes) GetRemotes() []Remote {
	r.mut.Lock()
	defer r.mut.Unlock()

	seen := make(map[Remote]bool)
	var out []Remote
	for _, rem := range r.byName {
		if !seen[rem] {
			seen[rem] = true
			out = append(out, rem)
		}
	}
	for _, rem := range r.byID {
		if !seen[rem] {
			seen[rem] = true
			out = append(out, rem)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}
		return out[i].Location < out[j].Location
	})
	return out
}

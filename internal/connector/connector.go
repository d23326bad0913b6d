// Package connector implements Connector from spec.md §4, §6, grounded
// on harmony.protocols.{Protocol, ProtocolMeta, FileProtocol, ScpProtocol}
// in the original Python implementation. A Connector is URI-addressed
// transport: given a location URI it exposes two narrow operations,
// fetching metadata files (.harmony/ tree entries) and payload files
// (working directory contents), with scoped open/close bracketing the
// operation the way the Python context manager did.
package connector

import (
	"context"
	"fmt"
	"sort"

	"github.com/harmonyfs/harmony/internal/harmonyerr"
)

// Connector is the only thing a transport must implement.
type Connector interface {
	// Open acquires whatever resources (sockets, temp directories) this
	// connector needs for the lifetime of one operation.
	Open(ctx context.Context) error

	// Close releases resources acquired by Open. It is always called,
	// even if the operation using this connector failed.
	Close() error

	// FetchMetadataFiles downloads the requested paths (relative to the
	// remote's .harmony/ tree) into caller-accessible local paths. A
	// trailing slash on an entry (e.g. "location_states/") requests a
	// directory: the whole subtree is mirrored and the returned local
	// path is a directory containing its immediate entries, even if the
	// remote has none yet. The returned local paths are only valid until
	// Close.
	FetchMetadataFiles(ctx context.Context, relativePaths []string) (map[string]string, error)

	// FetchPayloadFiles downloads the listed payload files (relative to
	// the remote's working directory) into destinationDir, preserving
	// their relative paths.
	FetchPayloadFiles(ctx context.Context, relativePaths []string, destinationDir string) error
}

// Factory constructs a Connector for a URI this transport claims to
// handle. IsValid reports whether uri belongs to this transport at all.
type Factory struct {
	Name     string
	Priority int
	IsValid  func(uri string) bool
	New      func(uri string) (Connector, error)
}

var registry []Factory

// Register adds a transport to the registry. Transports are tried in
// ascending priority order (lower Priority value wins ties among
// multiple matches), mirroring ProtocolMeta's sorted(registry, key=priority).
func Register(f Factory) {
	registry = append(registry, f)
	sort.SliceStable(registry, func(i, j int) bool {
		return registry[i].Priority < registry[j].Priority
	})
}

// Connect selects the highest-priority registered transport whose
// IsValid accepts uri and constructs a Connector for it.
func Connect(uri string) (Connector, error) {
	for _, f := range registry {
		if f.IsValid(uri) {
			return f.New(uri)
		}
	}
	return nil, harmonyerr.New(harmonyerr.ProtocolMismatch, fmt.Sprintf("no transport registered for %q", uri))
}

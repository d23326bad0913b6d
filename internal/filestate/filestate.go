// Package filestate implements the per-location file observation fact
// (digest, size, mtime, wipe) described in spec.md §3, grounded on
// harmony.working_directory.FileState in the original Python
// implementation.
package filestate

import (
	"path"
	"strings"
)

// FileState is the observed fact for one path at one location.
//
// Invariant: Digest == "" iff Size == nil (absence is represented by both
// being unset -- Go has no natural null int, so Size is a pointer;
// Digest's zero value "" doubles as "absent" since a well-formed digest
// always carries the non-empty "algo:" prefix).
type FileState struct {
	Path   string
	Digest string
	Size   *int64
	MTime  *float64 // unix seconds, fractional; nil if absent
	Wipe   bool
}

// Absent returns a FileState recording that path does not exist here.
func Absent(path string) FileState {
	return FileState{Path: path}
}

// Exists reports whether this FileState records a present file.
func (f FileState) Exists() bool {
	return f.Size != nil
}

// ContentsDiffer reports whether f and other disagree on size or digest --
// the comparison update_file_state uses to decide whether anything
// actually changed.
func (f FileState) ContentsDiffer(other FileState) bool {
	return !ptrEqual(f.Size, other.Size) || f.Digest != other.Digest
}

func ptrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Int64(v) is a small helper for constructing a *int64 inline.
func Int64(v int64) *int64 { return &v }

// Float64(v) is a small helper for constructing a *float64 inline.
func Float64(v float64) *float64 { return &v }

// Normalize turns an arbitrary repository-relative path into the
// canonical form: forward-slash separated, no "." or ".." components, no
// leading slash.
func Normalize(p string) string {
	p = filepathToSlash(p)
	p = path.Clean("/" + p)
	p = strings.TrimPrefix(p, "/")
	if p == "." {
		return ""
	}
	return p
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

package filestate

import "testing"

func TestNormalizeForwardSlashes(t *testing.T) {
	if got := Normalize(`a\b\c`); got != "a/b/c" {
		t.Errorf("Normalize = %q, want %q", got, "a/b/c")
	}
}

func TestNormalizeStripsLeadingSlash(t *testing.T) {
	if got := Normalize("/a/b"); got != "a/b" {
		t.Errorf("Normalize = %q, want %q", got, "a/b")
	}
}

func TestNormalizeCollapsesDotDot(t *testing.T) {
	if got := Normalize("a/../../b"); got != "b" {
		t.Errorf("Normalize = %q, want %q", got, "b")
	}
}

func TestExistsAndContentsDiffer(t *testing.T) {
	absent := Absent("a.txt")
	if absent.Exists() {
		t.Error("Absent().Exists() = true")
	}

	present := FileState{Path: "a.txt", Digest: "sha256:abc", Size: Int64(3)}
	if !present.Exists() {
		t.Error("present.Exists() = false")
	}

	if !absent.ContentsDiffer(present) {
		t.Error("absent vs present should differ")
	}

	same := FileState{Path: "a.txt", Digest: "sha256:abc", Size: Int64(3)}
	if present.ContentsDiffer(same) {
		t.Error("identical size/digest should not differ")
	}

	diffSize := FileState{Path: "a.txt", Digest: "sha256:abc", Size: Int64(4)}
	if !present.ContentsDiffer(diffSize) {
		t.Error("differing size should differ")
	}
}

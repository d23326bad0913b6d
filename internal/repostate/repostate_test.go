package repostate

import "testing"

func TestGetAbsentReturnsBlank(t *testing.T) {
	s := New()
	got := s.Get("a.txt")
	if got.Path != "a.txt" || got.Digest != "" || got.Wipe {
		t.Errorf("Get(absent) = %+v, want blank entry for a.txt", got)
	}
}

func TestUpdateFileStateSetsDigestAndClock(t *testing.T) {
	s := New()

	changed := s.UpdateFileState("a.txt", "sha256:abc", false, "loc1", 1)
	if !changed {
		t.Fatal("UpdateFileState should report a change on first write")
	}

	got := s.Get("a.txt")
	if got.Digest != "sha256:abc" {
		t.Errorf("Digest = %q, want sha256:abc", got.Digest)
	}
	if got.Clock.Get("loc1") != 1 {
		t.Errorf("Clock[loc1] = %d, want 1", got.Clock.Get("loc1"))
	}
}

func TestUpdateFileStateNoopOnUnchangedContent(t *testing.T) {
	s := New()
	s.UpdateFileState("a.txt", "sha256:abc", false, "loc1", 1)

	changed := s.UpdateFileState("a.txt", "sha256:abc", false, "loc1", 2)
	if changed {
		t.Error("UpdateFileState reported a change for identical digest/wipe")
	}

	got := s.Get("a.txt")
	if got.Clock.Get("loc1") != 1 {
		t.Errorf("Clock[loc1] = %d, want unchanged 1", got.Clock.Get("loc1"))
	}
}

func TestUpdateFileStateWipeIsAChange(t *testing.T) {
	s := New()
	s.UpdateFileState("a.txt", "sha256:abc", false, "loc1", 1)

	changed := s.UpdateFileState("a.txt", "sha256:abc", true, "loc1", 2)
	if !changed {
		t.Error("toggling wipe should be reported as a change")
	}
	if !s.Get("a.txt").Wipe {
		t.Error("entry should be marked wiped")
	}
}

func TestPathsSorted(t *testing.T) {
	s := New()
	s.UpdateFileState("b.txt", "sha256:1", false, "loc1", 1)
	s.UpdateFileState("a.txt", "sha256:2", false, "loc1", 1)

	paths := s.Paths()
	if len(paths) != 2 || paths[0] != "a.txt" || paths[1] != "b.txt" {
		t.Errorf("Paths() = %v, want [a.txt b.txt]", paths)
	}
}

func TestDigestMaybePresent(t *testing.T) {
	s := New()
	s.UpdateFileState("a.txt", "sha256:abc", false, "loc1", 1)

	if !s.DigestMaybePresent("sha256:abc") {
		t.Error("DigestMaybePresent(sha256:abc) = false, want true")
	}
	if s.DigestMaybePresent("sha256:does-not-exist") {
		t.Error("DigestMaybePresent for an absent digest should usually be false")
	}
}

func TestOverwriteReplacesAllEntries(t *testing.T) {
	s := New()
	s.UpdateFileState("a.txt", "sha256:abc", false, "loc1", 1)

	s.Overwrite(map[string]RepositoryFileState{
		"b.txt": {Path: "b.txt", Digest: "sha256:def"},
	})

	if len(s.Paths()) != 1 || s.Paths()[0] != "b.txt" {
		t.Errorf("Paths() after Overwrite = %v, want [b.txt]", s.Paths())
	}
}

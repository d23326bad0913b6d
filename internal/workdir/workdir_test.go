package workdir

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/harmonyfs/harmony/internal/filestate"
	"github.com/harmonyfs/harmony/internal/ruleset"
)

func newWD(t *testing.T, root string) *WorkingDirectory {
	t.Helper()
	rs, err := ruleset.New()
	if err != nil {
		t.Fatal(err)
	}
	wd, err := New(root, rs)
	if err != nil {
		t.Fatal(err)
	}
	return wd
}

func TestEnumerateSkipsHarmonyDir(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "a.txt"), "a")
	mustWrite(t, filepath.Join(dir, ".harmony", "location_states", "x"), "x")

	wd := newWD(t, dir)
	files, err := wd.Enumerate()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0] != "a.txt" {
		t.Errorf("Enumerate() = %v, want [a.txt]", files)
	}
}

func TestContains(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "a.txt"), "a")

	wd := newWD(t, dir)
	if !wd.Contains("a.txt") {
		t.Error("Contains(a.txt) = false, want true")
	}
	if wd.Contains("missing.txt") {
		t.Error("Contains(missing.txt) = true, want false")
	}
}

func TestScanProducesDigestAndSize(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "a.txt"), "hello")

	wd := newWD(t, dir)
	fs, err := wd.Scan("a.txt")
	if err != nil {
		t.Fatal(err)
	}
	if !fs.Exists() {
		t.Fatal("Scan of existing file reports Exists() = false")
	}
	if *fs.Size != 5 {
		t.Errorf("Size = %d, want 5", *fs.Size)
	}
	if fs.Digest == "" {
		t.Error("Digest is empty")
	}
}

func TestScanOfMissingFileIsAbsent(t *testing.T) {
	dir := t.TempDir()
	wd := newWD(t, dir)
	fs, err := wd.Scan("missing.txt")
	if err != nil {
		t.Fatal(err)
	}
	if fs.Exists() {
		t.Error("Scan of a missing file should report Exists() = false")
	}
}

func TestMaybeModifiedDetectsSizeChange(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "a.txt"), "hello")

	wd := newWD(t, dir)
	state, err := wd.Scan("a.txt")
	if err != nil {
		t.Fatal(err)
	}

	if wd.MaybeModified(state) {
		t.Error("freshly scanned state should not appear modified")
	}

	time.Sleep(10 * time.Millisecond)
	mustWrite(t, filepath.Join(dir, "a.txt"), "hello world")

	if !wd.MaybeModified(state) {
		t.Error("a size change should be detected as a possible modification")
	}
}

func TestMaybeModifiedDetectsAppearanceAndDisappearance(t *testing.T) {
	dir := t.TempDir()
	wd := newWD(t, dir)

	absent := filestate.Absent("a.txt")
	if wd.MaybeModified(absent) {
		t.Error("a file absent both before and now should not appear modified")
	}

	mustWrite(t, filepath.Join(dir, "a.txt"), "hello")
	if !wd.MaybeModified(absent) {
		t.Error("a file that newly exists should appear modified")
	}
}

func TestRenameMovesFile(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "a.txt"), "hello")

	wd := newWD(t, dir)
	if err := wd.Rename("a.txt", "sub/b.txt"); err != nil {
		t.Fatal(err)
	}
	if wd.Contains("a.txt") {
		t.Error("source file should no longer exist after rename")
	}
	if !wd.Contains("sub/b.txt") {
		t.Error("destination file should exist after rename")
	}
}

func mustWrite(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

package digestcache

import (
	"path/filepath"
	"testing"
)

func TestStoreThenLookupHits(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := c.Store("a.txt", 123, 1000.5, "sha256:abc"); err != nil {
		t.Fatal(err)
	}

	digest, ok := c.Lookup("a.txt", 123, 1000.5)
	if !ok || digest != "sha256:abc" {
		t.Errorf("Lookup = (%q, %v), want (sha256:abc, true)", digest, ok)
	}
}

func TestLookupMissesOnSizeOrMTimeChange(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	c.Store("a.txt", 123, 1000.5, "sha256:abc")

	if _, ok := c.Lookup("a.txt", 124, 1000.5); ok {
		t.Error("Lookup should miss on a size change")
	}
	if _, ok := c.Lookup("a.txt", 123, 1000.6); ok {
		t.Error("Lookup should miss on an mtime change")
	}
}

func TestLookupMissesOnUnknownPath(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, ok := c.Lookup("missing.txt", 1, 1); ok {
		t.Error("Lookup of an unknown path should miss")
	}
}

func TestDeleteRemovesEntry(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	c.Store("a.txt", 123, 1000.5, "sha256:abc")

	if err := c.Delete("a.txt"); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Lookup("a.txt", 123, 1000.5); ok {
		t.Error("Lookup should miss after Delete")
	}
}

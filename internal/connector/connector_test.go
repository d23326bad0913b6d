package connector

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalConnectorFetchesMetadataAndPayload(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, ".harmony", "repository_state"), "state-data")
	mustWriteFile(t, filepath.Join(dir, "a.txt"), "payload-data")

	c, err := Connect(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := c.Open(ctx); err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	meta, err := c.FetchMetadataFiles(ctx, []string{"repository_state"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(meta["repository_state"])
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "state-data" {
		t.Errorf("fetched metadata = %q, want state-data", got)
	}

	dest := t.TempDir()
	if err := c.FetchPayloadFiles(ctx, []string{"a.txt"}, dest); err != nil {
		t.Fatal(err)
	}
	payload, err := os.ReadFile(filepath.Join(dest, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) != "payload-data" {
		t.Errorf("fetched payload = %q, want payload-data", payload)
	}
}

func TestLocalConnectorFetchesMetadataDirectory(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, ".harmony", "location_states", "loc-a"), "state-a")
	mustWriteFile(t, filepath.Join(dir, ".harmony", "location_states", "loc-b"), "state-b")

	c, err := Connect(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := c.Open(ctx); err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	meta, err := c.FetchMetadataFiles(ctx, []string{"location_states/"})
	if err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(meta["location_states/"])
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("fetched directory has %d entries, want 2", len(entries))
	}
}

func TestConnectRejectsUnrecognizedURI(t *testing.T) {
	if _, err := Connect("gopher://nowhere"); err == nil {
		t.Error("Connect with an unrecognized scheme should fail")
	}
}

func TestSSHURIIsNotTreatedAsLocal(t *testing.T) {
	if isLocalURI("ssh://example.com/repo") {
		t.Error("an ssh:// URI must not be accepted by the local transport")
	}
}

func mustWriteFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

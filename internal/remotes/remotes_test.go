package remotes

import "testing"

func TestAddAndGetLocationByNameAndID(t *testing.T) {
	r := New()
	if err := r.Add("ssh://host/path", "origin", "loc-1"); err != nil {
		t.Fatal(err)
	}

	if loc, ok := r.GetLocation("", "origin"); !ok || loc != "ssh://host/path" {
		t.Errorf("GetLocation by name = (%q, %v), want (ssh://host/path, true)", loc, ok)
	}
	if loc, ok := r.GetLocation("loc-1", ""); !ok || loc != "ssh://host/path" {
		t.Errorf("GetLocation by id = (%q, %v), want (ssh://host/path, true)", loc, ok)
	}
}

func TestAddRejectsDuplicateNameOrID(t *testing.T) {
	r := New()
	if err := r.Add("ssh://a", "origin", "loc-1"); err != nil {
		t.Fatal(err)
	}
	if err := r.Add("ssh://b", "origin", "loc-2"); err == nil {
		t.Error("Add with a duplicate name should fail")
	}
	if err := r.Add("ssh://c", "other", "loc-1"); err == nil {
		t.Error("Add with a duplicate id should fail")
	}
}

func TestRemoveDropsBothIndexes(t *testing.T) {
	r := New()
	r.Add("ssh://a", "origin", "loc-1")

	if err := r.Remove("origin"); err != nil {
		t.Fatal(err)
	}
	if _, ok := r.GetLocation("loc-1", "origin"); ok {
		t.Error("remote should be gone from both indexes after Remove")
	}
}

func TestGetLocationAnyFallsBackToRawInput(t *testing.T) {
	r := New()
	r.Add("ssh://host/path", "origin", "loc-1")

	if got := r.GetLocationAny("origin"); got != "ssh://host/path" {
		t.Errorf("GetLocationAny(name) = %q, want ssh://host/path", got)
	}
	if got := r.GetLocationAny("loc-1"); got != "ssh://host/path" {
		t.Errorf("GetLocationAny(id) = %q, want ssh://host/path", got)
	}

	raw := "ssh://other-host/elsewhere"
	if got := r.GetLocationAny(raw); got != raw {
		t.Errorf("GetLocationAny(unknown) = %q, want passthrough %q", got, raw)
	}
}

func TestGetRemotesDedupesAndSorts(t *testing.T) {
	r := New()
	r.Add("ssh://b", "bravo", "loc-2")
	r.Add("ssh://a", "alpha", "loc-1")
	r.Add("ssh://c", "charlie", "")

	got := r.GetRemotes()
	if len(got) != 3 {
		t.Fatalf("GetRemotes() returned %d entries, want 3", len(got))
	}
	if got[0].Name != "alpha" || got[1].Name != "bravo" || got[2].Name != "charlie" {
		t.Errorf("GetRemotes() not sorted by name: %+v", got)
	}
}

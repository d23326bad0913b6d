package digest

import (
	"strings"
	"testing"
)

func TestOfReaderIsStablePerContent(t *testing.T) {
	a, err := OfReader(strings.NewReader("hello"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := OfReader(strings.NewReader("hello"))
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("OfReader(%q) = %q, want stable across calls, got %q", "hello", a, b)
	}
	if !strings.HasPrefix(a, Algo+":") {
		t.Errorf("digest %q missing %q prefix", a, Algo+":")
	}
}

func TestOfReaderDiffersOnDifferentContent(t *testing.T) {
	a, _ := OfReader(strings.NewReader("hello"))
	b, _ := OfReader(strings.NewReader("world"))
	if a == b {
		t.Error("expected different digests for different content")
	}
}

func TestOfReaderSpansMultipleBlocks(t *testing.T) {
	big := strings.Repeat("x", BlockSize+12345)
	a, err := OfReader(strings.NewReader(big))
	if err != nil {
		t.Fatal(err)
	}
	b, err := OfReader(strings.NewReader(big))
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("digest not stable across block boundary")
	}
}

func TestParseAndValid(t *testing.T) {
	d, _ := OfReader(strings.NewReader("hello"))
	algo, hexPayload, ok := Parse(d)
	if !ok || algo != Algo || hexPayload == "" {
		t.Errorf("Parse(%q) = %q, %q, %v", d, algo, hexPayload, ok)
	}
	if !Valid(d) {
		t.Errorf("Valid(%q) = false, want true", d)
	}
	if Valid("not-a-digest") {
		t.Error("Valid(\"not-a-digest\") = true, want false")
	}
	if Valid("sha256:not-hex!!") {
		t.Error("Valid with non-hex payload = true, want false")
	}
}

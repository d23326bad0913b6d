package clock

import "testing"

func TestCompareLess(t *testing.T) {
	a := Clock{"A": 1}
	b := Clock{"A": 2}
	if got := Compare(a, b); got != Less {
		t.Errorf("Compare(a, b) = %v, want Less", got)
	}
	if got := Compare(b, a); got != Greater {
		t.Errorf("Compare(b, a) = %v, want Greater", got)
	}
}

func TestCompareEqual(t *testing.T) {
	a := Clock{"A": 1, "B": 2}
	b := Clock{"A": 1, "B": 2}
	if got := Compare(a, b); got != Equal {
		t.Errorf("Compare(a, b) = %v, want Equal", got)
	}
}

func TestCompareMissingKeysReadAsZero(t *testing.T) {
	a := Clock{"A": 1}
	b := Clock{}
	if got := Compare(a, b); got != Greater {
		t.Errorf("Compare(a, b) = %v, want Greater", got)
	}
}

func TestCompareConcurrent(t *testing.T) {
	a := Clock{"A": 1, "B": 0}
	b := Clock{"A": 0, "B": 1}
	if got := Compare(a, b); got != Concurrent {
		t.Errorf("Compare(a, b) = %v, want Concurrent", got)
	}
	if Comparable(a, b) {
		t.Error("Comparable(a, b) = true, want false")
	}
}

func TestJoinIsComponentWiseMax(t *testing.T) {
	a := Clock{"A": 3, "B": 1}
	b := Clock{"A": 1, "B": 5, "C": 2}
	got := Join(a, b)
	want := Clock{"A": 3, "B": 5, "C": 2}
	if len(got) != len(want) {
		t.Fatalf("Join(a, b) = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("Join(a, b)[%q] = %d, want %d", k, got[k], v)
		}
	}
}

func TestTickIncrementsOnlyOwnComponent(t *testing.T) {
	a := Clock{"A": 1, "B": 9}
	got := Tick(a, "A")
	if got["A"] != 2 || got["B"] != 9 {
		t.Errorf("Tick(a, %q) = %v, want A=2,B=9", "A", got)
	}
	if a["A"] != 1 {
		t.Error("Tick mutated the receiver")
	}
}

func TestTickMonotonicallyIncreases(t *testing.T) {
	c := New()
	var prev uint64
	for i := 0; i < 10; i++ {
		c = Tick(c, "self")
		if c["self"] <= prev {
			t.Error("clock moving backwards")
		}
		prev = c["self"]
	}
}

package ruleset

import (
	"encoding/json"
	"testing"
)

func TestJSONRoundTripPreservesVerdicts(t *testing.T) {
	rs := newRuleset(t)

	data, err := json.Marshal(rs)
	if err != nil {
		t.Fatal(err)
	}

	loaded := &Ruleset{}
	if err := json.Unmarshal(data, loaded); err != nil {
		t.Fatal(err)
	}

	cases := []string{"docs/readme.md", ".harmony/config", ".git/HEAD", "notes.txt.swp", ".DS_Store"}
	for _, c := range cases {
		if got, want := loaded.Committable(c), rs.Committable(c); got != want {
			t.Errorf("after round-trip, Committable(%q) = %v, want %v", c, got, want)
		}
	}
}

func newRuleset(t *testing.T) *Ruleset {
	t.Helper()
	rs, err := New()
	if err != nil {
		t.Fatal(err)
	}
	return rs
}

func TestDefaultCommitsOrdinaryFiles(t *testing.T) {
	rs := newRuleset(t)
	if !rs.Committable("docs/readme.md") {
		t.Error("ordinary file should be committable by default")
	}
}

func TestHarmonyStateDirectoryIsNeverCommitted(t *testing.T) {
	rs := newRuleset(t)
	if rs.Committable(".harmony/location_states/abc") {
		t.Error(".harmony/** must never be committable")
	}
}

func TestGitDirectoryIsNeverCommitted(t *testing.T) {
	rs := newRuleset(t)
	if rs.Committable(".git/HEAD") {
		t.Error(".git/** must never be committable")
	}
}

func TestEditorAndBuildArtifactsAreExcluded(t *testing.T) {
	rs := newRuleset(t)
	cases := []string{"notes.txt.swp", "archive.bak", "scratch~", "module.pyc"}
	for _, path := range cases {
		if rs.Committable(path) {
			t.Errorf("Committable(%q) = true, want false", path)
		}
	}
}

func TestDSStoreIsExcludedEverywhere(t *testing.T) {
	rs := newRuleset(t)
	if rs.Committable(".DS_Store") {
		t.Error("top-level .DS_Store should be excluded")
	}
	if rs.Committable("sub/dir/.DS_Store") {
		t.Error("nested .DS_Store should be excluded")
	}
}

func TestLaterRuleCanOverrideAnEarlierNonStoppingRule(t *testing.T) {
	rs := newRuleset(t)
	g, err := compileAny([]string{"*.log"})
	if err != nil {
		t.Fatal(err)
	}
	rs.AddRule(Rule{Filename: g, Commit: false, Stop: false})
	pathRule, err := newPathRule("/important/*.log", true, true)
	if err != nil {
		t.Fatal(err)
	}
	rs.AddRule(pathRule)

	if rs.Committable("build/output.log") {
		t.Error("build/output.log should be excluded by the *.log rule")
	}
	if !rs.Committable("important/keep.log") {
		t.Error("important/keep.log should be re-included by the later stopping rule")
	}
}

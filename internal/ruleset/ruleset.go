// Package ruleset implements the committable(path) -> bool predicate from
// spec.md §4.1 (WorkingDirectory's rule table), grounded on
// harmony.ruleset.Ruleset from the original Python implementation and on
// the Matcher/Pattern structure of internal/ignore/ignore.go.
//
// Patterns are compiled with github.com/gobwas/glob rather than the
// original's hand-rolled recursive-descent matcher: glob already
// implements the '**' cross-directory wildcard the original's
// match_path needed a custom matcher for.
package ruleset

import (
	"encoding/json"

	"github.com/gobwas/glob"
)

// Rule is one entry in the ordered rule table. A rule matches a path when
// every non-nil matcher it carries matches. When it matches, Commit
// becomes the running verdict for that path; Stop ends evaluation early
// the way the original's action: 'stop' did, while a non-stopping match
// (action: 'continue') lets later rules still override the verdict.
//
// The raw pattern strings are kept alongside the compiled glob.Glob
// values (which do not themselves round-trip through JSON) so a Ruleset
// can be serialized to the on-disk `rules` file and reloaded.
type Rule struct {
	Path     glob.Glob // matched against the full normalized path, prefixed with "/"
	Dirname  glob.Glob // matched against each directory component but the last
	Filename glob.Glob // matched against the final path component

	PathPattern     string
	DirnamePattern  string
	FilenamePattern []string

	Commit bool
	Stop   bool
}

// ruleSpec is Rule's JSON wire form: only the raw patterns and verdict,
// the glob.Glob values are rebuilt on load.
type ruleSpec struct {
	PathPattern     string   `json:"path,omitempty"`
	DirnamePattern  string   `json:"dirname,omitempty"`
	FilenamePattern []string `json:"filename,omitempty"`
	Commit          bool     `json:"commit"`
	Stop            bool     `json:"stop"`
}

// matches reports whether every non-nil matcher on r matches path.
func (r Rule) matches(path string) bool {
	if r.Path == nil && r.Dirname == nil && r.Filename == nil {
		return true
	}
	if r.Path != nil && !r.Path.Match("/"+path) {
		return false
	}
	if r.Filename != nil && !r.Filename.Match(filename(path)) {
		return false
	}
	if r.Dirname != nil {
		matched := false
		for _, d := range dirComponents(path) {
			if r.Dirname.Match(d) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func filename(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

func dirComponents(path string) []string {
	var out []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			out = append(out, path[start:i])
			start = i + 1
		}
	}
	return out
}

// Ruleset is the ordered rule table; the default verdict for any path
// that no rule matches is commit=true.
type Ruleset struct {
	rules []Rule
}

// New returns a Ruleset seeded with the minimal sanity rules every
// repository needs: commit everything by default, but never track
// .harmony's own state directory, VCS metadata, or editor/OS droppings.
func New() (*Ruleset, error) {
	rs := &Ruleset{}

	mustRule := func(r Rule, err error) Rule {
		if err != nil {
			panic(err) // only reachable if a literal pattern below is malformed
		}
		return r
	}

	rs.rules = append(rs.rules, Rule{Commit: true, Stop: false})

	rs.rules = append(rs.rules, mustRule(newPathRule("/.harmony/**", false, true)))
	rs.rules = append(rs.rules, mustRule(newPathRule("/.git/**", false, true)))
	rs.rules = append(rs.rules, mustRule(newFilenameRule([]string{".DS_Store"}, false, true)))
	rs.rules = append(rs.rules, mustRule(newFilenameRule([]string{"*.swp", "*.bak", "*~", "*.pyc"}, false, true)))

	return rs, nil
}

func newPathRule(pattern string, commit, stop bool) (Rule, error) {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return Rule{}, err
	}
	return Rule{Path: g, PathPattern: pattern, Commit: commit, Stop: stop}, nil
}

func newFilenameRule(patterns []string, commit, stop bool) (Rule, error) {
	g, err := compileAny(patterns)
	if err != nil {
		return Rule{}, err
	}
	return Rule{Filename: g, FilenamePattern: patterns, Commit: commit, Stop: stop}, nil
}

// compileAny builds a single glob that matches if any of patterns
// matches, mirroring match_filename's "pattern may be a list" behavior.
func compileAny(patterns []string) (glob.Glob, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, g)
	}
	return anyGlob(compiled), nil
}

// anyGlob adapts a slice of globs to the glob.Glob interface, matching if
// any one of them matches.
type anyGlobT []glob.Glob

func (a anyGlobT) Match(s string) bool {
	for _, g := range a {
		if g.Match(s) {
			return true
		}
	}
	return false
}

func anyGlob(gs []glob.Glob) glob.Glob { return anyGlobT(gs) }

// AddRule appends a rule to the end of the table, evaluated after every
// existing rule.
func (rs *Ruleset) AddRule(r Rule) {
	rs.rules = append(rs.rules, r)
}

// MarshalJSON serializes the rule table as an ordered list of raw
// patterns and verdicts, for the on-disk `rules` file.
func (rs *Ruleset) MarshalJSON() ([]byte, error) {
	specs := make([]ruleSpec, 0, len(rs.rules))
	for _, r := range rs.rules {
		specs = append(specs, ruleSpec{
			PathPattern:     r.PathPattern,
			DirnamePattern:  r.DirnamePattern,
			FilenamePattern: r.FilenamePattern,
			Commit:          r.Commit,
			Stop:            r.Stop,
		})
	}
	return json.Marshal(specs)
}

// UnmarshalJSON rebuilds the rule table (recompiling every glob) from
// the wire form produced by MarshalJSON.
func (rs *Ruleset) UnmarshalJSON(data []byte) error {
	var specs []ruleSpec
	if err := json.Unmarshal(data, &specs); err != nil {
		return err
	}

	rules := make([]Rule, 0, len(specs))
	for _, spec := range specs {
		r := Rule{
			PathPattern:     spec.PathPattern,
			DirnamePattern:  spec.DirnamePattern,
			FilenamePattern: spec.FilenamePattern,
			Commit:          spec.Commit,
			Stop:            spec.Stop,
		}
		if spec.PathPattern != "" {
			g, err := glob.Compile(spec.PathPattern, '/')
			if err != nil {
				return err
			}
			r.Path = g
		}
		if spec.DirnamePattern != "" {
			g, err := glob.Compile(spec.DirnamePattern)
			if err != nil {
				return err
			}
			r.Dirname = g
		}
		if len(spec.FilenamePattern) > 0 {
			g, err := compileAny(spec.FilenamePattern)
			if err != nil {
				return err
			}
			r.Filename = g
		}
		rules = append(rules, r)
	}
	rs.rules = rules
	return nil
}

// Committable reports whether path should be tracked, by walking the rule
// table in order and returning the verdict of the last matching rule, up
// to and including the first matching rule with Stop set (or the default
// of true if no rule matches).
func (rs *Ruleset) Committable(path string) bool {
	commit := true
	for _, r := range rs.rules {
		if !r.matches(path) {
			continue
		}
		commit = r.Commit
		if r.Stop {
			break
		}
	}
	return commit
}

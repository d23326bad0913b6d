// Package metrics exposes prometheus counters for the operations
// Repository drives: commits, merges, conflicts, and remote fetches.
// There is no equivalent in the original Python implementation;
// this is ambient observability carried over in the teacher's idiom
// (the teacher wires github.com/prometheus/client_golang throughout its
// service layer) even though spec.md's own Non-goals exclude a live
// metrics server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Commits counts commit operations, labeled by outcome ("changed" or
	// "unchanged").
	Commits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "harmony",
		Name:      "commits_total",
		Help:      "Number of commit operations, by outcome.",
	}, []string{"outcome"})

	// Merges counts per-path resolutions made by merge.Merge for paths
	// present on both sides, labeled by how each pair resolved ("local",
	// "remote", "auto_merged", "conflict").
	Merges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "harmony",
		Name:      "merges_total",
		Help:      "Number of per-path merge resolutions, by outcome.",
	}, []string{"outcome"})

	// Conflicts counts unresolved merge conflicts surfaced to the caller.
	Conflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "harmony",
		Name:      "conflicts_total",
		Help:      "Number of conflicts returned by pull_state.",
	})

	// Fetches counts Connector fetch operations, labeled by kind
	// ("metadata" or "payload") and by whether they succeeded.
	Fetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "harmony",
		Name:      "fetches_total",
		Help:      "Number of connector fetch operations.",
	}, []string{"kind", "result"})
)

// Registry is the collector registry metrics are registered against. A
// dedicated registry (rather than prometheus.DefaultRegisterer) keeps
// repeated Repository construction in tests from panicking on duplicate
// registration.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(Commits, Merges, Conflicts, Fetches)
}

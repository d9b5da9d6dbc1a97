package stripclust

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Outcome is the backend-independent part of a pass: the cluster
// candidates and the per-chunk seed counts. Pass ids and timings differ
// between runs and are left out.
type Outcome struct {
	NStrips  int
	NSeeds   []int
	Clusters []Cluster
}

// Outcome projects r onto the fields two backends must agree on.
func (r *Result) Outcome() Outcome {
	o := Outcome{NStrips: r.NStrips, Clusters: r.Clusters()}
	for _, c := range r.Chunks {
		o.NSeeds = append(o.NSeeds, c.NSeeds)
	}
	return o
}

// CompareResults returns a human-readable diff of two passes, or "" when
// they produced the same clusters. Floating-point sums are compared
// exactly, with NaN equal to NaN.
func CompareResults(a, b *Result) string {
	return cmp.Diff(a.Outcome(), b.Outcome(), cmpopts.EquateEmpty(), cmpopts.EquateNaNs())
}

package stripclust

import "fmt"

// checkOverlap verifies that consecutive clusters of a chunk region do not
// share strips on one detector. Seeds are ascending, so checking
// neighbouring slots is sufficient.
func checkOverlap(store *StripStore, region *ClusterSet, n int) error {
	for j := 1; j < n; j++ {
		prev, left := int(region.Right[j-1]), int(region.Left[j])
		if store.DetID[prev] == store.DetID[left] && left <= prev {
			return newClusterError(ErrTypeInvariant, "checkOverlap",
				fmt.Sprintf("cluster [%d,%d] overlaps cluster ending at %d", left, region.Right[j], prev),
				int(region.SeedIndex[j]), store.DetID[left])
		}
	}
	return nil
}

// CheckInvariants verifies a finished pass: every cluster contains its
// seed, stays on one detector with unit strip steps, and no two clusters
// on a detector overlap.
func CheckInvariants(store *StripStore, res *Result) error {
	var prev *Cluster
	for _, c := range res.Clusters() {
		if c.Left > c.SeedIndex || c.SeedIndex > c.Right || c.Left < 0 || c.Right >= store.Len() {
			return newClusterError(ErrTypeInvariant, "CheckInvariants",
				fmt.Sprintf("boundary [%d,%d] does not contain seed", c.Left, c.Right), c.SeedIndex, store.DetID[c.SeedIndex])
		}
		det := store.DetID[c.Left]
		for k := c.Left + 1; k <= c.Right; k++ {
			if store.DetID[k] != det || int(store.StripID[k]) != int(store.StripID[k-1])+1 {
				return newClusterError(ErrTypeInvariant, "CheckInvariants",
					fmt.Sprintf("strip %d breaks contiguity", k), c.SeedIndex, det)
			}
		}
		if prev != nil && store.DetID[prev.Right] == det && c.Left <= prev.Right {
			return newClusterError(ErrTypeInvariant, "CheckInvariants",
				fmt.Sprintf("cluster [%d,%d] overlaps [%d,%d]", c.Left, c.Right, prev.Left, prev.Right), c.SeedIndex, det)
		}
		prev = &c
	}
	return nil
}

package stripclust

// findBoundary grows a cluster from seed, first left then right, while the
// next strip is a neighbour on the same detector and passes the adjacent
// cut. Bounds are inclusive and local to v.
func findBoundary(v stripView, th Thresholds, seed int) (left, right int) {
	left, right = seed, seed
	for left > 0 && v.neighbours(left-1, left) && v.isAdjacent(left-1, th) {
		left--
	}
	for right+1 < v.len() && v.neighbours(right, right+1) && v.isAdjacent(right+1, th) {
		right++
	}
	return left, right
}

package stripclust

import "math"

// passes reports whether adc/noise is strictly above threshold. Strips
// with zero, negative or non-finite noise never pass.
func passes(adc uint16, noise, threshold float32) bool {
	if !(noise > 0) || math.IsInf(float64(noise), 1) {
		return false
	}
	return float32(adc)/noise > threshold
}

func (v stripView) isSeed(i int, th Thresholds) bool {
	return !v.bad[i] && passes(v.adc[i], v.noise[i], th.Seed)
}

func (v stripView) isAdjacent(i int, th Thresholds) bool {
	if v.bad[i] && th.BadChannels == BadExclude {
		return false
	}
	return passes(v.adc[i], v.noise[i], th.Adjacent)
}

// neighbours reports whether strip b directly follows strip a on the same
// detector. a and b are consecutive array indices.
func (v stripView) neighbours(a, b int) bool {
	return v.detID[a] == v.detID[b] && int(v.stripID[b]) == int(v.stripID[a])+1
}

// linked reports whether strip i joins the run of strip i-1: both pass the
// adjacent cut and they are neighbours. This is the same rule the grower
// follows, so strips in one linked run always end up in one cluster.
func (v stripView) linked(i int, th Thresholds) bool {
	return i > 0 && v.neighbours(i-1, i) && v.isAdjacent(i-1, th) && v.isAdjacent(i, th)
}

// setSeedStrips marks seed-qualified strips.
func setSeedStrips(v stripView, th Thresholds, seed []bool) {
	for i := 0; i < v.len(); i++ {
		seed[i] = v.isSeed(i, th)
	}
}

// setNCSeedStrips keeps only the first seed of every linked run. A linked
// run spans every adjacent-qualified neighbouring strip, not only seeds, so
// seeds separated by adjacent strips share one run.
func setNCSeedStrips(v stripView, th Thresholds, seed, nc []bool) {
	runHasSeed := false
	for i := 0; i < v.len(); i++ {
		nc[i] = false
		if !v.linked(i, th) {
			runHasSeed = false
		}
		if seed[i] {
			nc[i] = !runHasSeed
			runHasSeed = true
		}
	}
}

// setStripIndex compacts the NC mask into ascending strip indices offset
// by base and returns their count.
func setStripIndex(nc []bool, base int, out []int32) int {
	n := 0
	for i, ok := range nc {
		if ok {
			out[n] = int32(base + i)
			n++
		}
	}
	return n
}

// isNCSeed is the per-strip form of setNCSeedStrips: strip i is kept when
// walking left through its linked run meets no other seed.
func isNCSeed(v stripView, th Thresholds, seed []bool, i int) bool {
	if !seed[i] {
		return false
	}
	for j := i; v.linked(j, th); j-- {
		if seed[j-1] {
			return false
		}
	}
	return true
}

package stripclust

import "github.com/LynnColeArt/stripclust/device"

// Device kernels. Each is the per-thread form of a host stage and calls the
// same predicates, so both backends classify every strip identically.

// scanSegment is the number of strips one compaction thread covers.
const scanSegment = device.DefaultBlockSize

func seedKernel(v stripView, th Thresholds, seed []bool) device.KernelFunc {
	return func(tid device.ThreadID, _ ...interface{}) {
		if i := tid.Global(); i < v.len() {
			seed[i] = v.isSeed(i, th)
		}
	}
}

func ncSeedKernel(v stripView, th Thresholds, seed, nc []bool) device.KernelFunc {
	return func(tid device.ThreadID, _ ...interface{}) {
		if i := tid.Global(); i < v.len() {
			nc[i] = isNCSeed(v, th, seed, i)
		}
	}
}

// segmentCountKernel counts NC seeds per segment of scanSegment strips.
func segmentCountKernel(nc []bool, counts []int32) device.KernelFunc {
	return func(tid device.ThreadID, _ ...interface{}) {
		s := tid.Global()
		if s >= len(counts) {
			return
		}
		var n int32
		for _, ok := range nc[s*scanSegment : min((s+1)*scanSegment, len(nc))] {
			if ok {
				n++
			}
		}
		counts[s] = n
	}
}

// segmentScanKernel turns segment counts into exclusive offsets and stores
// the total seed count. Launched with a single thread.
func segmentScanKernel(counts []int32, nSeeds []int32) device.KernelFunc {
	return func(tid device.ThreadID, _ ...interface{}) {
		if tid.Global() != 0 {
			return
		}
		var sum int32
		for s, n := range counts {
			counts[s] = sum
			sum += n
		}
		nSeeds[0] = sum
	}
}

// scatterKernel writes the seed indices of each segment at its offset.
func scatterKernel(nc []bool, offsets []int32, base int, seedIndex []int32) device.KernelFunc {
	return func(tid device.ThreadID, _ ...interface{}) {
		s := tid.Global()
		if s >= len(offsets) {
			return
		}
		lo := s * scanSegment
		hi := min(lo+scanSegment, len(nc))
		setStripIndex(nc[lo:hi], base+lo, seedIndex[offsets[s]:])
	}
}

func boundaryKernel(v stripView, th Thresholds, base int, nSeeds, seedIndex, left, right []int32) device.KernelFunc {
	return func(tid device.ThreadID, _ ...interface{}) {
		j := tid.Global()
		if j >= int(nSeeds[0]) {
			return
		}
		l, r := findBoundary(v, th, int(seedIndex[j])-base)
		left[j] = int32(base + l)
		right[j] = int32(base + r)
	}
}

func checkKernel(v stripView, th Thresholds, base, width int, nSeeds, left, right []int32,
	noiseSq, charge []float32, accepted []bool, status []int32, adcs []uint8) device.KernelFunc {
	return func(tid device.ThreadID, _ ...interface{}) {
		j := tid.Global()
		if j >= int(nSeeds[0]) {
			return
		}
		ns, q, ok, st := checkCluster(v, th, int(left[j])-base, int(right[j])-base, adcs[j*width:(j+1)*width])
		noiseSq[j] = ns
		charge[j] = q
		accepted[j] = ok
		status[j] = st
	}
}

package stripclust

import (
	"fmt"
	"math"
)

// Cluster check status codes, written per cluster by the device kernel.
const (
	statusOK       int32 = 0
	statusTooWide  int32 = 1
	statusNotGrown int32 = 2
)

// checkCluster sums noise² and charge over [left, right], applies the
// cluster cut and packs per-strip charges into adcs. A cluster wider than
// adcs is not packed and reports statusTooWide.
//
// Products are converted explicitly so the compiler cannot fuse them; host
// and device results must match bit for bit.
func checkCluster(v stripView, th Thresholds, left, right int, adcs []uint8) (noiseSq, charge float32, accepted bool, status int32) {
	if left > right {
		return 0, 0, false, statusNotGrown
	}
	if right-left+1 > len(adcs) {
		return 0, 0, false, statusTooWide
	}
	for k := left; k <= right; k++ {
		n := v.noise[k]
		noiseSq += float32(n * n)
		charge += stripCharge(v, th, k)
		adcs[k-left] = packCharge(v, th, k)
	}
	if noiseSq > 0 {
		accepted = charge/float32(math.Sqrt(float64(noiseSq))) > th.Cluster
	}
	return noiseSq, charge, accepted, statusOK
}

func stripCharge(v stripView, th Thresholds, k int) float32 {
	if th.Charge == ChargeGain {
		return gainCharge(v, k)
	}
	return float32(v.adc[k])
}

// gainCharge returns adc*gain of strip k. A non-finite product counts as
// zero charge.
func gainCharge(v stripView, k int) float32 {
	q := float32(float32(v.adc[k]) * v.gain[k])
	if math.IsNaN(float64(q)) || math.IsInf(float64(q), 0) {
		return 0
	}
	return q
}

// packCharge returns the 8-bit charge of strip k. Values above 253 use the
// saturation codes 254 (above 253) and 255 (above 1022).
func packCharge(v stripView, th Thresholds, k int) uint8 {
	var q int
	if th.Charge == ChargeGain {
		f := gainCharge(v, k) + 0.5
		switch {
		case !(f > 0):
			q = 0
		case f > 1023:
			q = 1023
		default:
			q = int(f)
		}
	} else {
		q = int(v.adc[k])
	}
	switch {
	case q > 1022:
		return 255
	case q > 253:
		return 254
	default:
		return uint8(q)
	}
}

// statusError converts a cluster status into the pass error.
func statusError(status int32, seedIndex int, detID uint32, width, maxWidth int) error {
	switch status {
	case statusOK:
		return nil
	case statusTooWide:
		return newClusterError(ErrTypeCapacity, "checkCluster",
			fmt.Sprintf("cluster width %d exceeds packed buffer stride %d", width, maxWidth), seedIndex, detID)
	default:
		return newClusterError(ErrTypeInvariant, "checkCluster",
			fmt.Sprintf("cluster status %d", status), seedIndex, detID)
	}
}

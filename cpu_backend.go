package stripclust

import (
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// CPUBackend runs the clustering stages on the host. Chunks run one after
// another, or concurrently when parallel is set; they write disjoint
// regions of the result so no locking is needed.
type CPUBackend struct {
	cfg      Config
	parallel bool
}

// NewCPUBackend creates a host backend.
func NewCPUBackend(cfg Config, parallel bool) *CPUBackend {
	return &CPUBackend{cfg: cfg, parallel: parallel}
}

// Name returns the backend name.
func (b *CPUBackend) Name() string {
	if b.parallel {
		return string(BackendCPUParallel)
	}
	return string(BackendCPU)
}

// Run clusters every strip of store.
func (b *CPUBackend) Run(store *StripStore) (*Result, error) {
	start := time.Now()
	chunks := Partition(store, b.cfg.Partitions)
	res := newResult(b.Name(), store, chunks, b.cfg.MaxClusterWidth)
	log := passLogger(b.cfg, res)

	// scratch masks for the whole store; chunks use disjoint windows
	seed := make([]bool, store.Len())
	nc := make([]bool, store.Len())

	var timer stageTimer
	run := func(c Chunk) error {
		return b.runChunk(store, res, c, seed[c.Begin:c.End], nc[c.Begin:c.End], &timer, log)
	}

	if b.parallel {
		var g errgroup.Group
		for _, c := range chunks {
			g.Go(func() error { return run(c) })
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for _, c := range chunks {
			if err := run(c); err != nil {
				return nil, err
			}
		}
	}

	res.Timing = timer.times()
	res.Timing.Total = time.Since(start)
	logSummary(log, res)
	return res, nil
}

func (b *CPUBackend) runChunk(store *StripStore, res *Result, c Chunk, seed, nc []bool, timer *stageTimer, log logrus.FieldLogger) error {
	th := b.cfg.Thresholds
	v := store.view(c.Begin, c.End)
	region := res.Set.region(c)

	timer.measure(stageSeedStrips, func() { setSeedStrips(v, th, seed) })
	timer.measure(stageNCSeedStrips, func() { setNCSeedStrips(v, th, seed, nc) })

	var n int
	timer.measure(stageStripIndex, func() { n = setStripIndex(nc, c.Begin, region.SeedIndex) })

	timer.measure(stageFindBoundary, func() {
		for j := 0; j < n; j++ {
			l, r := findBoundary(v, th, int(region.SeedIndex[j])-c.Begin)
			region.Left[j] = int32(c.Begin + l)
			region.Right[j] = int32(c.Begin + r)
		}
	})

	var err error
	timer.measure(stageCheckCluster, func() {
		for j := 0; j < n; j++ {
			l, r := int(region.Left[j])-c.Begin, int(region.Right[j])-c.Begin
			ns, q, ok, status := checkCluster(v, th, l, r, region.packed(j))
			if status != statusOK {
				seedIdx := int(region.SeedIndex[j])
				err = statusError(status, seedIdx, store.DetID[seedIdx], r-l+1, region.Width)
				return
			}
			region.NoiseSquared[j] = ns
			region.Charge[j] = q
			region.Accepted[j] = ok
		}
	})
	if err != nil {
		return err
	}

	res.Chunks[c.Index].NSeeds = n
	log.WithFields(logrus.Fields{
		"chunk":  c.Index,
		"strips": c.Len(),
		"seeds":  n,
	}).Debug("chunk clustered")

	return checkOverlap(store, region, n)
}

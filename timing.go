package stripclust

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// StageTimes records wall-clock time spent per stage. With several chunks
// the per-chunk times are summed.
type StageTimes struct {
	SetSeedStrips   time.Duration
	SetNCSeedStrips time.Duration
	SetStripIndex   time.Duration
	FindBoundary    time.Duration
	CheckCluster    time.Duration
	MemTransfer     time.Duration
	Total           time.Duration
}

type stage int

const (
	stageSeedStrips stage = iota
	stageNCSeedStrips
	stageStripIndex
	stageFindBoundary
	stageCheckCluster
	stageMemTransfer
)

// stageTimer accumulates stage times from concurrent chunks.
type stageTimer struct {
	mu sync.Mutex
	t  StageTimes
}

func (st *stageTimer) add(s stage, d time.Duration) {
	st.mu.Lock()
	defer st.mu.Unlock()
	switch s {
	case stageSeedStrips:
		st.t.SetSeedStrips += d
	case stageNCSeedStrips:
		st.t.SetNCSeedStrips += d
	case stageStripIndex:
		st.t.SetStripIndex += d
	case stageFindBoundary:
		st.t.FindBoundary += d
	case stageCheckCluster:
		st.t.CheckCluster += d
	case stageMemTransfer:
		st.t.MemTransfer += d
	}
}

// measure runs fn and adds its duration to stage s.
func (st *stageTimer) measure(s stage, fn func()) {
	start := time.Now()
	fn()
	st.add(s, time.Since(start))
}

func (st *stageTimer) times() StageTimes {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.t
}

// WriteReport prints the stage times in seconds. Device passes also report
// transfer time and label stages as kernels.
func (t StageTimes) WriteReport(w io.Writer, onDevice bool) error {
	kind := ""
	total := " total Time"
	if onDevice {
		kind = " kernel"
		total = " total Time (including HtoD data transfer)"
		if _, err := fmt.Fprintf(w, " GPU Memory Transfer Time %g\n", t.MemTransfer.Seconds()); err != nil {
			return err
		}
	}
	rows := []struct {
		name string
		d    time.Duration
	}{
		{"setSeedStrips", t.SetSeedStrips},
		{"setNCSeedStrips", t.SetNCSeedStrips},
		{"setStripIndex", t.SetStripIndex},
		{"findBoundary", t.FindBoundary},
		{"checkCluster", t.CheckCluster},
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(w, " --%s%s Time %g\n", r.name, kind, r.d.Seconds()); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%s %g\n", total, t.Total.Seconds())
	return err
}

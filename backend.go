package stripclust

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Backend runs the clustering stages over a strip store.
type Backend interface {
	Name() string
	Run(store *StripStore) (*Result, error)
}

// NewBackend validates cfg and returns the backend it selects.
func NewBackend(cfg Config) (Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendCPU:
		return NewCPUBackend(cfg, false), nil
	case BackendCPUParallel:
		return NewCPUBackend(cfg, true), nil
	case BackendStream:
		return NewStreamBackend(cfg), nil
	default:
		return nil, NewConfigError("NewBackend", fmt.Sprintf("unknown backend %q", cfg.Backend))
	}
}

// ChunkResult records the seed count of one chunk.
type ChunkResult struct {
	Chunk
	NSeeds int
}

// Result is the outcome of one clustering pass.
type Result struct {
	ID      string
	Backend string
	NStrips int
	Chunks  []ChunkResult
	Set     *ClusterSet
	Timing  StageTimes
}

func newResult(backend string, store *StripStore, chunks []Chunk, width int) *Result {
	res := &Result{
		ID:      uuid.NewString(),
		Backend: backend,
		NStrips: store.Len(),
		Chunks:  make([]ChunkResult, len(chunks)),
		Set:     NewClusterSet(store.Len(), width),
	}
	for i, c := range chunks {
		res.Chunks[i] = ChunkResult{Chunk: c}
	}
	return res
}

// NSeeds returns the number of non-consecutive seeds, which is also the
// number of cluster candidates.
func (r *Result) NSeeds() int {
	n := 0
	for _, c := range r.Chunks {
		n += c.NSeeds
	}
	return n
}

// Clusters returns every cluster candidate in strip order.
func (r *Result) Clusters() []Cluster {
	out := make([]Cluster, 0, r.NSeeds())
	for _, c := range r.Chunks {
		for j := c.Begin; j < c.Begin+c.NSeeds; j++ {
			out = append(out, r.Set.cluster(c.Index, j))
		}
	}
	return out
}

// Accepted returns the clusters that passed the cluster cut.
func (r *Result) Accepted() []Cluster {
	var out []Cluster
	for _, c := range r.Clusters() {
		if c.Accepted {
			out = append(out, c)
		}
	}
	return out
}

func passLogger(cfg Config, res *Result) logrus.FieldLogger {
	return cfg.logger().WithFields(logrus.Fields{
		"pass":    res.ID,
		"backend": res.Backend,
	})
}

func logSummary(log logrus.FieldLogger, res *Result) {
	log.WithFields(logrus.Fields{
		"strips":   res.NStrips,
		"seeds":    res.NSeeds(),
		"accepted": len(res.Accepted()),
		"elapsed":  res.Timing.Total,
	}).Info("clustering pass complete")
}

package stripclust

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func detStore(t *testing.T, dets ...uint32) *StripStore {
	t.Helper()
	strips := make([]Strip, len(dets))
	for i, d := range dets {
		strips[i] = digi(d, uint16(i), 1, 1)
	}
	return storeOf(t, strips...)
}

func TestPartition(t *testing.T) {
	store := detStore(t, 1, 1, 1, 2, 2, 3, 3, 3)

	tests := []struct {
		n    int
		want []Chunk
	}{
		{1, []Chunk{{0, 0, 8}}},
		{2, []Chunk{{0, 0, 5}, {1, 5, 8}}},
		{4, []Chunk{{0, 0, 3}, {1, 3, 5}, {2, 5, 8}, {3, 8, 8}}},
		{0, []Chunk{{0, 0, 8}}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Partition(store, tt.n), "n=%d", tt.n)
	}
}

func TestPartitionCoversStore(t *testing.T) {
	store := GenerateStrips(DefaultGenerateOptions())
	for _, n := range []int{1, 3, 4, 7, 64} {
		chunks := Partition(store, n)
		assert.Len(t, chunks, n)
		next := 0
		for _, c := range chunks {
			assert.Equal(t, next, c.Begin)
			if c.Begin > 0 && c.Len() > 0 {
				assert.NotEqual(t, store.DetID[c.Begin-1], store.DetID[c.Begin], "chunk %d splits a detector", c.Index)
			}
			next = c.End
		}
		assert.Equal(t, store.Len(), next)
	}
}

func TestPartitionEmpty(t *testing.T) {
	for _, c := range Partition(NewStripStore(0), 4) {
		assert.Zero(t, c.Len())
	}
}

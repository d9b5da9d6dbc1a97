package stripclust

// Chunk is a contiguous range [Begin, End) of strips processed as one
// independent unit. A chunk also owns cluster slots [Begin, End) of the
// pass's ClusterSet.
type Chunk struct {
	Index int
	Begin int
	End   int
}

// Len returns the number of strips in the chunk.
func (c Chunk) Len() int { return c.End - c.Begin }

// Partition splits the store into n chunks of roughly equal size. Chunk
// boundaries are moved forward to the next detector change so that no
// detector spans two chunks. Trailing chunks may be empty.
func Partition(s *StripStore, n int) []Chunk {
	if n < 1 {
		n = 1
	}
	total := s.Len()
	chunks := make([]Chunk, n)
	begin := 0
	for c := 0; c < n; c++ {
		end := int(int64(total) * int64(c+1) / int64(n))
		if end < begin {
			end = begin
		}
		for end > 0 && end < total && s.DetID[end] == s.DetID[end-1] {
			end++
		}
		chunks[c] = Chunk{Index: c, Begin: begin, End: end}
		begin = end
	}
	return chunks
}

package stripclust

// ClusterSet holds the cluster candidates of one pass as parallel arrays.
// Slot j of the set belongs to the chunk whose strip range contains j; a
// chunk with k seeds fills its first k slots. Packed charges of slot j live
// in ADCs[j*Width : (j+1)*Width].
type ClusterSet struct {
	Width        int
	SeedIndex    []int32
	Left         []int32
	Right        []int32
	NoiseSquared []float32
	Charge       []float32
	Accepted     []bool
	ADCs         []uint8
}

// NewClusterSet allocates a set with the given number of slots.
func NewClusterSet(slots, width int) *ClusterSet {
	return &ClusterSet{
		Width:        width,
		SeedIndex:    make([]int32, slots),
		Left:         make([]int32, slots),
		Right:        make([]int32, slots),
		NoiseSquared: make([]float32, slots),
		Charge:       make([]float32, slots),
		Accepted:     make([]bool, slots),
		ADCs:         make([]uint8, slots*width),
	}
}

// region returns the slice of the set owned by chunk c.
func (cs *ClusterSet) region(c Chunk) *ClusterSet {
	return &ClusterSet{
		Width:        cs.Width,
		SeedIndex:    cs.SeedIndex[c.Begin:c.End],
		Left:         cs.Left[c.Begin:c.End],
		Right:        cs.Right[c.Begin:c.End],
		NoiseSquared: cs.NoiseSquared[c.Begin:c.End],
		Charge:       cs.Charge[c.Begin:c.End],
		Accepted:     cs.Accepted[c.Begin:c.End],
		ADCs:         cs.ADCs[c.Begin*cs.Width : c.End*cs.Width],
	}
}

// packed returns the packed-charge row of slot j.
func (cs *ClusterSet) packed(j int) []uint8 {
	return cs.ADCs[j*cs.Width : (j+1)*cs.Width]
}

// Cluster is a read-only view of one cluster candidate. Indices refer to
// the strip store.
type Cluster struct {
	Chunk        int
	SeedIndex    int
	Left         int
	Right        int
	NoiseSquared float32
	Charge       float32
	Accepted     bool
	ADCs         []uint8
}

// Width returns the number of strips in the cluster.
func (c Cluster) Width() int { return c.Right - c.Left + 1 }

func (cs *ClusterSet) cluster(chunk, j int) Cluster {
	c := Cluster{
		Chunk:        chunk,
		SeedIndex:    int(cs.SeedIndex[j]),
		Left:         int(cs.Left[j]),
		Right:        int(cs.Right[j]),
		NoiseSquared: cs.NoiseSquared[j],
		Charge:       cs.Charge[j],
		Accepted:     cs.Accepted[j],
	}
	if w := c.Width(); w > 0 && w <= cs.Width {
		c.ADCs = cs.packed(j)[:w]
	}
	return c
}

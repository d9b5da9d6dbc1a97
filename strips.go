package stripclust

import "fmt"

// Strip is one digitized channel with its calibration.
type Strip struct {
	DetID   uint32
	StripID uint16
	ADC     uint16
	Noise   float32
	Gain    float32
	Bad     bool
}

// StripStore holds strips as parallel arrays. Its capacity is fixed at
// construction; the array index is the strip identity.
type StripStore struct {
	DetID   []uint32
	StripID []uint16
	ADC     []uint16
	Noise   []float32
	Gain    []float32
	Bad     []bool
}

// NewStripStore allocates a store for up to capacity strips.
func NewStripStore(capacity int) *StripStore {
	return &StripStore{
		DetID:   make([]uint32, 0, capacity),
		StripID: make([]uint16, 0, capacity),
		ADC:     make([]uint16, 0, capacity),
		Noise:   make([]float32, 0, capacity),
		Gain:    make([]float32, 0, capacity),
		Bad:     make([]bool, 0, capacity),
	}
}

// Len returns the number of strips.
func (s *StripStore) Len() int { return len(s.DetID) }

// Cap returns the capacity the store was allocated with.
func (s *StripStore) Cap() int { return cap(s.DetID) }

// Reset empties the store without releasing its arrays.
func (s *StripStore) Reset() {
	s.DetID = s.DetID[:0]
	s.StripID = s.StripID[:0]
	s.ADC = s.ADC[:0]
	s.Noise = s.Noise[:0]
	s.Gain = s.Gain[:0]
	s.Bad = s.Bad[:0]
}

// Append adds a strip. A full store returns a capacity error; the strip is
// not stored.
func (s *StripStore) Append(st Strip) error {
	if s.Len() >= s.Cap() {
		return NewCapacityError("Append", fmt.Sprintf("strip capacity %d exceeded", s.Cap()))
	}
	s.DetID = append(s.DetID, st.DetID)
	s.StripID = append(s.StripID, st.StripID)
	s.ADC = append(s.ADC, st.ADC)
	s.Noise = append(s.Noise, st.Noise)
	s.Gain = append(s.Gain, st.Gain)
	s.Bad = append(s.Bad, st.Bad)
	return nil
}

// At returns strip i.
func (s *StripStore) At(i int) Strip {
	return Strip{
		DetID:   s.DetID[i],
		StripID: s.StripID[i],
		ADC:     s.ADC[i],
		Noise:   s.Noise[i],
		Gain:    s.Gain[i],
		Bad:     s.Bad[i],
	}
}

// CheckOrdering verifies that strips of each detector run are sorted by
// strictly increasing strip id.
func (s *StripStore) CheckOrdering() error {
	for i := 1; i < s.Len(); i++ {
		if s.DetID[i] == s.DetID[i-1] && s.StripID[i] <= s.StripID[i-1] {
			return NewInputError("CheckOrdering",
				fmt.Sprintf("strip %d: det id %d strip id %d follows strip id %d",
					i, s.DetID[i], s.StripID[i], s.StripID[i-1]), nil)
		}
	}
	return nil
}

func (s *StripStore) view(begin, end int) stripView {
	return stripView{
		detID:   s.DetID[begin:end],
		stripID: s.StripID[begin:end],
		adc:     s.ADC[begin:end],
		noise:   s.Noise[begin:end],
		gain:    s.Gain[begin:end],
		bad:     s.Bad[begin:end],
	}
}

// stripView is a chunk-local window over strip arrays. Host and device
// stages both operate on views, so index 0 is the chunk's first strip.
type stripView struct {
	detID   []uint32
	stripID []uint16
	adc     []uint16
	noise   []float32
	gain    []float32
	bad     []bool
}

func (v stripView) len() int { return len(v.detID) }

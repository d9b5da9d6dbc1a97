package stripclust

// Synthetic digi generation. Output is fully determined by the seed, so a
// generated file reproduces across runs and machines.

// GenerateOptions controls synthetic strip generation.
type GenerateOptions struct {
	Detectors         int     // number of detector modules
	StripsPerDetector int     // strip id range per detector
	Occupancy         float32 // fraction of noise strips kept after zero suppression
	HitsPerDetector   int     // charge deposits per detector
	BadFraction       float32 // fraction of strips flagged bad
	Seed              uint64
}

// DefaultGenerateOptions returns a small event with a handful of hits.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Detectors:         64,
		StripsPerDetector: 768,
		Occupancy:         0.02,
		HitsPerDetector:   3,
		BadFraction:       0.005,
		Seed:              12345,
	}
}

// lcg is a linear congruential generator (Numerical Recipes parameters).
type lcg uint64

func (r *lcg) next() uint32 {
	*r = *r*1103515245 + 12345
	return uint32(*r >> 16)
}

// float returns a value in [0, 1).
func (r *lcg) float() float32 {
	return float32(r.next()&0xffffff) / float32(1<<24)
}

// GenerateStrips returns a store of synthetic strips ordered by detector
// and strip id. Each hit deposits charge on 1 to 4 neighbouring strips;
// remaining strips carry noise and survive zero suppression with
// probability Occupancy.
func GenerateStrips(opts GenerateOptions) *StripStore {
	rng := lcg(opts.Seed)
	var strips []Strip

	charge := make([]float32, opts.StripsPerDetector)
	for d := 0; d < opts.Detectors; d++ {
		det := uint32(369120000 + d*4)
		clear(charge)
		for h := 0; h < opts.HitsPerDetector && opts.StripsPerDetector > 0; h++ {
			centre := int(rng.next()) % opts.StripsPerDetector
			width := 1 + int(rng.next()%4)
			total := 60 + rng.float()*240
			for k := 0; k < width && centre+k < opts.StripsPerDetector; k++ {
				charge[centre+k] += total / float32(width)
			}
		}

		for s := 0; s < opts.StripsPerDetector; s++ {
			noise := 2 + rng.float()*2
			keep := rng.float()
			bad := rng.float() < opts.BadFraction
			adc := charge[s] + rng.float()*noise
			if charge[s] == 0 && keep >= opts.Occupancy {
				continue
			}
			strips = append(strips, Strip{
				DetID:   det,
				StripID: uint16(s),
				ADC:     uint16(min(adc, 1023)),
				Noise:   noise,
				Gain:    0.9 + rng.float()*0.2,
				Bad:     bad,
			})
		}
	}

	store := NewStripStore(len(strips))
	for _, s := range strips {
		_ = store.Append(s)
	}
	return store
}

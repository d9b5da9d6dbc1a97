package stripclust

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// digi builds a good strip with unit gain.
func digi(det uint32, strip, adc uint16, noise float32) Strip {
	return Strip{DetID: det, StripID: strip, ADC: adc, Noise: noise, Gain: 1}
}

// badDigi builds a strip flagged bad.
func badDigi(det uint32, strip, adc uint16, noise float32) Strip {
	s := digi(det, strip, adc, noise)
	s.Bad = true
	return s
}

func storeOf(t testing.TB, strips ...Strip) *StripStore {
	t.Helper()
	s := NewStripStore(len(strips))
	for _, st := range strips {
		require.NoError(t, s.Append(st))
	}
	return s
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

// testConfig returns the default configuration with logging silenced.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Logger = quietLogger()
	return cfg
}

func runBackend(t testing.TB, cfg Config, store *StripStore) *Result {
	t.Helper()
	b, err := NewBackend(cfg)
	require.NoError(t, err)
	res, err := b.Run(store)
	require.NoError(t, err)
	return res
}

// allBackends lists every backend kind.
var allBackends = []BackendKind{BackendCPU, BackendCPUParallel, BackendStream}

package stripclust

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindBoundaryScenario(t *testing.T) {
	// signal-to-noise 6, 2 and 0.5 on strips 10, 11, 12
	store := storeOf(t, digi(7, 10, 12, 2), digi(7, 11, 4, 2), digi(7, 12, 1, 2))
	th := DefaultThresholds()
	th.Seed, th.Adjacent = 5, 1

	v := store.view(0, store.Len())
	assert.True(t, v.isSeed(0, th))
	assert.False(t, v.isSeed(1, th))

	left, right := findBoundary(v, th, 0)
	assert.Equal(t, 0, left)
	assert.Equal(t, 1, right)
	assert.Equal(t, uint16(10), store.StripID[left])
	assert.Equal(t, uint16(11), store.StripID[right])
}

func TestFindBoundary(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		name        string
		strips      []Strip
		seed        int
		left, right int
	}{
		{
			name:   "isolated seed",
			strips: []Strip{digi(1, 5, 20, 1)},
			seed:   0, left: 0, right: 0,
		},
		{
			name:   "grows both ways",
			strips: []Strip{digi(1, 4, 3, 1), digi(1, 5, 20, 1), digi(1, 6, 3, 1)},
			seed:   1, left: 0, right: 2,
		},
		{
			name:   "stops at strip gap",
			strips: []Strip{digi(1, 3, 3, 1), digi(1, 5, 20, 1), digi(1, 7, 3, 1)},
			seed:   1, left: 1, right: 1,
		},
		{
			name:   "stops at detector change",
			strips: []Strip{digi(1, 4, 3, 1), digi(2, 5, 20, 1), digi(3, 6, 3, 1)},
			seed:   1, left: 1, right: 1,
		},
		{
			name:   "equal ratio does not join",
			strips: []Strip{digi(1, 4, 2, 1), digi(1, 5, 20, 1), digi(1, 6, 4, 2)},
			seed:   1, left: 1, right: 1,
		},
		{
			name:   "bad strip blocks growth",
			strips: []Strip{digi(1, 4, 3, 1), digi(1, 5, 20, 1), badDigi(1, 6, 30, 1), digi(1, 7, 3, 1)},
			seed:   1, left: 0, right: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storeOf(t, tt.strips...)
			l, r := findBoundary(store.view(0, store.Len()), th, tt.seed)
			assert.Equal(t, tt.left, l, "left")
			assert.Equal(t, tt.right, r, "right")
		})
	}
}

func TestFindBoundaryBadSeedOnly(t *testing.T) {
	store := storeOf(t, digi(1, 5, 20, 1), badDigi(1, 6, 30, 1), digi(1, 7, 3, 1))
	th := DefaultThresholds()
	th.BadChannels = BadSeedOnly

	l, r := findBoundary(store.view(0, store.Len()), th, 0)
	assert.Equal(t, 0, l)
	assert.Equal(t, 2, r)
}

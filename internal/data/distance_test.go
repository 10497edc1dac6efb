package data

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlicedWassersteinIdenticalDomains(t *testing.T) {
	domains, err := RotatingMoons(MoonsConfig{Domains: 2, PerDomain: 200, Noise: 0.1, TotalRotation: 45, Seed: 1})
	require.NoError(t, err)

	d := SlicedWasserstein(domains[0], domains[0], 16, 1)
	assert.InDelta(t, 0, d, 1e-9)
}

func TestSlicedWassersteinGrowsWithRotation(t *testing.T) {
	domains, err := RotatingMoons(MoonsConfig{Domains: 5, PerDomain: 300, Noise: 0.05, TotalRotation: 120, Seed: 1})
	require.NoError(t, err)

	near := SlicedWasserstein(domains[0], domains[1], 32, 1)
	far := SlicedWasserstein(domains[0], domains[4], 32, 1)
	assert.Greater(t, far, near, "a 120 degree rotation must be further than 30")
}

func TestSlicedWassersteinSingleSampleDomain(t *testing.T) {
	big, err := RotatingMoons(MoonsConfig{Domains: 2, PerDomain: 50, Noise: 0.1, TotalRotation: 45, Seed: 1})
	require.NoError(t, err)

	single := big[1].Gather([]int{0})
	tiny := &Domain{Name: "single", X: single.X, Y: single.Y, IDs: single.IDs}

	d := SlicedWasserstein(big[0], tiny, 16, 1)
	assert.False(t, math.IsNaN(d), "single-sample domain must not produce NaN")
	assert.GreaterOrEqual(t, d, 0.0)
}

func TestNormalizedDistances(t *testing.T) {
	domains, err := RotatingMoons(MoonsConfig{Domains: 4, PerDomain: 200, Noise: 0.1, TotalRotation: 90, Seed: 1})
	require.NoError(t, err)

	dists := NormalizedDistances(domains, 16, 1)
	require.Len(t, dists, 3)

	var sum float64
	for _, d := range dists {
		assert.Greater(t, d, 0.0)
		sum += d
	}
	assert.InDelta(t, 1.0, sum/float64(len(dists)), 1e-9, "scaled to mean 1")
}

package ensemble

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMomentum(t *testing.T) {
	assert.InDelta(t, 1.0, Momentum(1, 0), 1e-12, "zero distance keeps full history")
	assert.InDelta(t, 0.5, Momentum(1, math.Ln2), 1e-12)
	assert.InDelta(t, 0.25, Momentum(2, math.Ln2), 1e-12)

	// Monotone decreasing in both beta and distance.
	assert.Greater(t, Momentum(1, 0.5), Momentum(1, 1.0))
	assert.Greater(t, Momentum(0.5, 1.0), Momentum(2, 1.0))
}

func TestDistanceAwareSchedule(t *testing.T) {
	s := DistanceAware{Beta: 1, Dists: []float64{math.Ln2, 0}}

	m, err := s.Next(1)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, m, 1e-12)

	m, err = s.Next(2)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, m, 1e-12)

	_, err = s.Next(0)
	assert.Error(t, err, "domain 0 has no incoming transition")
	_, err = s.Next(3)
	assert.Error(t, err, "past the end of the sequence")
}

func TestConstantSchedule(t *testing.T) {
	s := Constant(0.3)
	for _, idx := range []int{1, 2, 99} {
		m, err := s.Next(idx)
		require.NoError(t, err)
		assert.Equal(t, 0.3, m)
	}
}

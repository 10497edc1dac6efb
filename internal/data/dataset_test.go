package data

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftlab/gradapt/internal/tensor"
)

func smallDomain(n int) *Domain {
	d := &Domain{
		Name: "test",
		X:    tensor.NewMat(n, 2),
		Y:    make([]int, n),
		IDs:  make([]int, n),
	}
	for i := 0; i < n; i++ {
		d.X.Row(i)[0] = float32(i)
		d.X.Row(i)[1] = float32(-i)
		d.Y[i] = i % 2
		d.IDs[i] = 100 + i
	}
	return d
}

func TestBatchIndicesCoverEveryPositionOnce(t *testing.T) {
	d := smallDomain(10)
	seen := map[int]int{}
	for _, batch := range d.BatchIndices(3, rand.New(rand.NewSource(1))) {
		assert.LessOrEqual(t, len(batch), 3)
		for _, p := range batch {
			seen[p]++
		}
	}
	require.Len(t, seen, 10)
	for p, n := range seen {
		assert.Equal(t, 1, n, "position %d", p)
	}
}

func TestGatherPreservesIDsAndLabels(t *testing.T) {
	d := smallDomain(6)
	b := d.Gather([]int{4, 1})

	assert.Equal(t, []int{104, 101}, b.IDs)
	assert.Equal(t, []int{4, 1}, b.Pos)
	assert.Equal(t, []int{0, 1}, b.Y)
	assert.Equal(t, float32(4), b.X.Row(0)[0])
	assert.Equal(t, float32(1), b.X.Row(1)[0])

	// The batch must be a copy, not a view.
	b.X.Row(0)[0] = 99
	assert.Equal(t, float32(4), d.X.Row(4)[0])
}

func TestSplitSizesAndIDPreservation(t *testing.T) {
	d := smallDomain(10)
	train, val := d.Split(0.2, rand.New(rand.NewSource(1)))

	assert.Equal(t, 8, train.Len())
	assert.Equal(t, 2, val.Len())

	seen := map[int]bool{}
	for _, id := range append(append([]int{}, train.IDs...), val.IDs...) {
		assert.False(t, seen[id], "id %d appears twice", id)
		seen[id] = true
		assert.GreaterOrEqual(t, id, 100)
		assert.Less(t, id, 110)
	}
	assert.Len(t, seen, 10)
}

func TestSplitKeepsAtLeastOneValSample(t *testing.T) {
	d := smallDomain(3)
	train, val := d.Split(0.1, nil)
	assert.Equal(t, 1, val.Len())
	assert.Equal(t, 2, train.Len())
}

func TestAssignIDsContiguous(t *testing.T) {
	domains := []*Domain{smallDomain(3), smallDomain(4)}
	total := AssignIDs(domains)

	assert.Equal(t, 7, total)
	assert.Equal(t, []int{0, 1, 2}, domains[0].IDs)
	assert.Equal(t, []int{3, 4, 5, 6}, domains[1].IDs)
}

func TestNumClasses(t *testing.T) {
	domains := []*Domain{smallDomain(4)}
	n, err := NumClasses(domains)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	domains[0].Y[0] = -1
	_, err = NumClasses(domains)
	assert.Error(t, err)
}

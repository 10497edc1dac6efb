// Package data builds the ordered domain sequences that gradual adaptation
// walks through. Every sample carries a global id into the ensemble tables,
// assigned contiguously across the whole sequence at load time.
package data

import (
	"fmt"
	"math/rand"

	"github.com/driftlab/gradapt/internal/tensor"
)

// Domain is one slice of the gradual shift: a feature matrix, integer class
// labels and the global sample ids for each row.
type Domain struct {
	Name string
	X    tensor.Mat
	Y    []int
	IDs  []int
}

// Len returns the number of samples in the domain.
func (d *Domain) Len() int { return d.X.R }

// Features returns the feature dimensionality.
func (d *Domain) Features() int { return d.X.C }

// Batch is a gathered mini-batch. IDs are global sample ids, Pos the row
// positions inside the source domain.
type Batch struct {
	IDs []int
	Pos []int
	X   tensor.Mat
	Y   []int
}

// BatchIndices splits the domain's row positions into batches of at most
// size rows. When rng is non-nil the positions are shuffled first.
func (d *Domain) BatchIndices(size int, rng *rand.Rand) [][]int {
	if size <= 0 {
		size = d.Len()
	}
	pos := make([]int, d.Len())
	for i := range pos {
		pos[i] = i
	}
	if rng != nil {
		rng.Shuffle(len(pos), func(i, j int) { pos[i], pos[j] = pos[j], pos[i] })
	}
	var out [][]int
	for start := 0; start < len(pos); start += size {
		end := start + size
		if end > len(pos) {
			end = len(pos)
		}
		out = append(out, pos[start:end])
	}
	return out
}

// Gather copies the given row positions into a new Batch.
func (d *Domain) Gather(pos []int) Batch {
	b := Batch{
		IDs: make([]int, len(pos)),
		Pos: make([]int, len(pos)),
		X:   tensor.NewMat(len(pos), d.X.C),
		Y:   make([]int, len(pos)),
	}
	for i, p := range pos {
		b.IDs[i] = d.IDs[p]
		b.Pos[i] = p
		copy(b.X.Row(i), d.X.Row(p))
		b.Y[i] = d.Y[p]
	}
	return b
}

// Split partitions the domain into train and validation subsets. valFrac of
// the samples (rounded down, at least one when possible) go to the
// validation split. Positions are shuffled with rng when non-nil so the
// split is not order biased. Global ids are preserved.
func (d *Domain) Split(valFrac float64, rng *rand.Rand) (train, val *Domain) {
	n := d.Len()
	pos := make([]int, n)
	for i := range pos {
		pos[i] = i
	}
	if rng != nil {
		rng.Shuffle(n, func(i, j int) { pos[i], pos[j] = pos[j], pos[i] })
	}
	nVal := int(float64(n) * valFrac)
	if nVal < 1 && n > 1 && valFrac > 0 {
		nVal = 1
	}
	val = d.subset(pos[:nVal], d.Name+"/val")
	train = d.subset(pos[nVal:], d.Name+"/train")
	return train, val
}

func (d *Domain) subset(pos []int, name string) *Domain {
	sub := &Domain{
		Name: name,
		X:    tensor.NewMat(len(pos), d.X.C),
		Y:    make([]int, len(pos)),
		IDs:  make([]int, len(pos)),
	}
	for i, p := range pos {
		copy(sub.X.Row(i), d.X.Row(p))
		sub.Y[i] = d.Y[p]
		sub.IDs[i] = d.IDs[p]
	}
	return sub
}

// AssignIDs gives every sample across the ordered domain sequence a
// contiguous global id and returns the total sample count. The ensemble
// state tables are sized from this total.
func AssignIDs(domains []*Domain) int {
	next := 0
	for _, d := range domains {
		if len(d.IDs) != d.Len() {
			d.IDs = make([]int, d.Len())
		}
		for i := range d.IDs {
			d.IDs[i] = next
			next++
		}
	}
	return next
}

// NumClasses scans the label sets of all domains and returns max label + 1.
func NumClasses(domains []*Domain) (int, error) {
	maxLabel := -1
	for _, d := range domains {
		for _, y := range d.Y {
			if y < 0 {
				return 0, fmt.Errorf("data: negative class label %d in %s", y, d.Name)
			}
			if y > maxLabel {
				maxLabel = y
			}
		}
	}
	if maxLabel < 0 {
		return 0, fmt.Errorf("data: no labels in domain sequence")
	}
	return maxLabel + 1, nil
}

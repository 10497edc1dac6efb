// Package ensemble implements distance-aware gradual domain adaptation: a
// momentum-weighted ensemble of past softmax predictions per sample, a
// confidence-filtered pseudo-label loss, and the per-domain sweep driver
// that retrains a student model at every hop of the domain sequence.
package ensemble

import (
	"fmt"

	"github.com/driftlab/gradapt/internal/tensor"
)

// State holds the accumulated prediction table Z and its L1-normalized view
// z, one row per global sample id. Both live for the whole adaptation
// sequence and are owned by exactly one adapter; all mutation happens in
// Update under strictly sequential domain processing.
type State struct {
	Z tensor.Mat // momentum-weighted accumulation of softmax outputs
	z tensor.Mat // row-normalized ensemble target consumed by training
}

// NewState creates zeroed tables for the given global sample count and
// class count.
func NewState(samples, classes int) (*State, error) {
	if samples <= 0 || classes <= 0 {
		return nil, fmt.Errorf("ensemble: state needs positive dimensions, got %dx%d", samples, classes)
	}
	return &State{
		Z: tensor.NewMat(samples, classes),
		z: tensor.NewMat(samples, classes),
	}, nil
}

// Classes returns the class dimensionality of the tables.
func (s *State) Classes() int { return s.Z.C }

// Update folds a batch of fresh softmax predictions into the table:
//
//	Z[id] = momentum*Z[id] + (1-momentum)*probs[row]
//	z[id] = normalize_L1(Z[id])
//
// Rows of Z that are still all zero after the update (which cannot happen
// for visited ids, since probs rows sum to 1) are left zero in z rather
// than dividing by zero.
func (s *State) Update(probs *tensor.Mat, ids []int, momentum float64) error {
	if probs.R != len(ids) {
		return fmt.Errorf("ensemble: %d prob rows vs %d ids", probs.R, len(ids))
	}
	if probs.C != s.Z.C {
		return fmt.Errorf("ensemble: %d prob classes vs %d state classes", probs.C, s.Z.C)
	}
	m := float32(momentum)
	for r, id := range ids {
		if id < 0 || id >= s.Z.R {
			return fmt.Errorf("ensemble: sample id %d outside table of %d rows", id, s.Z.R)
		}
		zrow := s.Z.Row(id)
		prow := probs.Row(r)
		for c := range zrow {
			zrow[c] = m*zrow[c] + (1-m)*prow[c]
		}
		out := s.z.Row(id)
		copy(out, zrow)
		tensor.NormalizeL1(out)
	}
	return nil
}

// Target gathers the normalized ensemble rows for the given global ids into
// a fresh matrix. This is the pseudo-label distribution used for training.
func (s *State) Target(ids []int) tensor.Mat {
	out := tensor.NewMat(len(ids), s.z.C)
	for r, id := range ids {
		copy(out.Row(r), s.z.Row(id))
	}
	return out
}

// Accum gathers the raw accumulated rows (Z, not z) for the given ids.
// The confidence threshold is computed from these, matching the use of the
// unnormalized accumulation for quantile filtering.
func (s *State) Accum(ids []int) tensor.Mat {
	out := tensor.NewMat(len(ids), s.Z.C)
	for r, id := range ids {
		copy(out.Row(r), s.Z.Row(id))
	}
	return out
}

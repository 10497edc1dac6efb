package ensemble

import (
	"fmt"
	"math"
)

// Momentum computes the exponential-decay weight exp(-beta*dist). Larger
// beta or larger domain distance means less trust in the accumulated
// history and more weight on fresh predictions.
func Momentum(beta, dist float64) float64 {
	return math.Exp(-beta * dist)
}

// Schedule produces the momentum to carry into the next domain's ensemble
// update, given the index of the domain whose training just completed.
type Schedule interface {
	// Next returns the momentum after finishing domain domainIdx
	// (domainIdx >= 1; domain 0 is the source and is never adapted).
	Next(domainIdx int) (float64, error)
}

// DistanceAware derives momentum from the magnitude of the just-completed
// domain transition: exp(-Beta * Dists[domainIdx-1]). This is the
// distance-aware gradual domain ensemble schedule.
type DistanceAware struct {
	Beta  float64
	Dists []float64 // one entry per domain transition
}

func (s DistanceAware) Next(domainIdx int) (float64, error) {
	hop := domainIdx - 1
	if hop < 0 || hop >= len(s.Dists) {
		return 0, fmt.Errorf("ensemble: no transition distance for domain %d (have %d)", domainIdx, len(s.Dists))
	}
	return Momentum(s.Beta, s.Dists[hop]), nil
}

// Constant ignores distances and always returns the same momentum, the
// plain gradual-domain-ensemble baseline that DAGDE generalizes.
type Constant float64

func (c Constant) Next(int) (float64, error) { return float64(c), nil }

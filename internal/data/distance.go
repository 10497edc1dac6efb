package data

import (
	"math"
	"math/rand"
	"sort"
)

// SlicedWasserstein estimates the 1-Wasserstein distance between the feature
// distributions of two domains by averaging the exact 1-D distance over
// random unit projections. Both domains are compared at npoints evenly
// spaced quantiles so differing sample counts are fine.
func SlicedWasserstein(a, b *Domain, projections int, seed int64) float64 {
	if projections <= 0 {
		projections = 32
	}
	rng := rand.New(rand.NewSource(seed))
	dim := a.Features()
	dir := make([]float64, dim)
	pa := make([]float64, a.Len())
	pb := make([]float64, b.Len())

	npoints := a.Len()
	if b.Len() < npoints {
		npoints = b.Len()
	}

	var total float64
	for p := 0; p < projections; p++ {
		var norm float64
		for i := range dir {
			dir[i] = rng.NormFloat64()
			norm += dir[i] * dir[i]
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			continue
		}
		for i := range dir {
			dir[i] /= norm
		}

		project(a, dir, pa)
		project(b, dir, pb)
		sort.Float64s(pa)
		sort.Float64s(pb)

		var dist float64
		for i := 0; i < npoints; i++ {
			// A single-sample domain degenerates to comparing medians;
			// i/(npoints-1) would be 0/0 there.
			q := 0.5
			if npoints > 1 {
				q = float64(i) / float64(npoints-1)
			}
			dist += math.Abs(quantileSorted(pa, q) - quantileSorted(pb, q))
		}
		total += dist / float64(npoints)
	}
	return total / float64(projections)
}

func project(d *Domain, dir, out []float64) {
	for i := 0; i < d.Len(); i++ {
		row := d.X.Row(i)
		var sum float64
		for j, v := range row {
			sum += float64(v) * dir[j]
		}
		out[i] = sum
	}
}

func quantileSorted(xs []float64, q float64) float64 {
	if len(xs) == 1 {
		return xs[0]
	}
	pos := q * float64(len(xs)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return xs[lo]
	}
	return xs[lo] + (pos-float64(lo))*(xs[hi]-xs[lo])
}

// NormalizedDistances returns one distance per domain transition
// (len(domains)-1 entries), scaled so the mean is 1. The momentum schedule
// consumes these; scaling keeps beta comparable across datasets.
func NormalizedDistances(domains []*Domain, projections int, seed int64) []float64 {
	dists := make([]float64, len(domains)-1)
	var sum float64
	for i := 0; i < len(domains)-1; i++ {
		dists[i] = SlicedWasserstein(domains[i], domains[i+1], projections, seed+int64(i))
		sum += dists[i]
	}
	if sum > 0 {
		mean := sum / float64(len(dists))
		for i := range dists {
			dists[i] /= mean
		}
	}
	return dists
}

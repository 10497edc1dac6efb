package tensor

import (
	"math"
	"sort"
)

// Add adds src to dst element-wise.
func Add(dst, src []float32) {
	for i := range dst {
		dst[i] += src[i]
	}
}

// Scale multiplies every element of x by a.
func Scale(x []float32, a float32) {
	for i := range x {
		x[i] *= a
	}
}

// Dot computes the dot product of a and b.
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Softmax applies the softmax function to x in place.
func Softmax(x []float32) {
	if len(x) == 0 {
		return
	}
	maxv := x[0]
	for i := 1; i < len(x); i++ {
		if x[i] > maxv {
			maxv = x[i]
		}
	}
	var sum float64
	for i := range x {
		v := math.Exp(float64(x[i] - maxv))
		x[i] = float32(v)
		sum += v
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / sum)
	for i := range x {
		x[i] *= inv
	}
}

// LogSoftmax writes log(softmax(x)) into dst. dst and x may alias.
func LogSoftmax(dst, x []float32) {
	if len(x) == 0 {
		return
	}
	maxv := x[0]
	for i := 1; i < len(x); i++ {
		if x[i] > maxv {
			maxv = x[i]
		}
	}
	var sum float64
	for i := range x {
		sum += math.Exp(float64(x[i] - maxv))
	}
	logSum := float32(math.Log(sum)) + maxv
	for i := range x {
		dst[i] = x[i] - logSum
	}
}

// Argmax returns the index of the maximum value in the slice.
// If the slice is empty it panics.
func Argmax(x []float32) int {
	if len(x) == 0 {
		panic("argmax: empty slice")
	}
	bestI := 0
	bestV := x[0]
	for i := 1; i < len(x); i++ {
		if x[i] > bestV {
			bestV = x[i]
			bestI = i
		}
	}
	return bestI
}

// NormalizeL1 scales x so that the sum of absolute values is 1.
// An all-zero vector is left untouched; the return value reports whether
// any scaling was applied.
func NormalizeL1(x []float32) bool {
	var sum float32
	for _, v := range x {
		if v < 0 {
			sum -= v
		} else {
			sum += v
		}
	}
	if sum == 0 {
		return false
	}
	inv := 1 / sum
	for i := range x {
		x[i] *= inv
	}
	return true
}

// Spread returns max(x) - min(x), a cheap proxy for how peaked a
// probability vector is. Panics on an empty slice.
func Spread(x []float32) float32 {
	if len(x) == 0 {
		panic("spread: empty slice")
	}
	minv, maxv := x[0], x[0]
	for _, v := range x[1:] {
		if v < minv {
			minv = v
		}
		if v > maxv {
			maxv = v
		}
	}
	return maxv - minv
}

// Quantile returns the q-quantile of xs using linear interpolation between
// the two nearest order statistics (the same convention as numpy and torch).
// q is clamped to [0,1]. Panics on an empty slice. xs is not modified.
func Quantile(xs []float32, q float64) float32 {
	if len(xs) == 0 {
		panic("quantile: empty slice")
	}
	if q < 0 {
		q = 0
	} else if q > 1 {
		q = 1
	}
	sorted := make([]float32, len(xs))
	copy(sorted, xs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := float32(pos - float64(lo))
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// Entropy computes the Shannon entropy (in nats) of a probability vector.
// Zero entries contribute nothing.
func Entropy(p []float32) float64 {
	var h float64
	for _, v := range p {
		if v > 0 {
			h -= float64(v) * math.Log(float64(v))
		}
	}
	return h
}

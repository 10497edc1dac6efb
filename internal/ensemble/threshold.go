package ensemble

import (
	"github.com/driftlab/gradapt/internal/tensor"
)

// Confidences computes the per-row prediction confidence max(row)-min(row),
// a proxy for how peaked the accumulated distribution is.
func Confidences(rows *tensor.Mat) []float32 {
	out := make([]float32, rows.R)
	for i := range out {
		out[i] = tensor.Spread(rows.Row(i))
	}
	return out
}

// Alpha derives the confidence cutoff for one domain: the q-quantile
// (linear interpolation) of the per-sample confidences of its accumulated
// ensemble rows. Samples below alpha are masked out of the pseudo-label
// loss for the whole training run.
func Alpha(accum *tensor.Mat, q float64) float32 {
	return tensor.Quantile(Confidences(accum), q)
}

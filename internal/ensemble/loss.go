package ensemble

import (
	"errors"
	"math"

	"github.com/driftlab/gradapt/internal/tensor"
)

// ErrEmptyMask is returned when the confidence threshold filters out every
// sample in a batch: the masked mean would divide by zero, so the condition
// surfaces as an explicit error instead of a NaN loss.
var ErrEmptyMask = errors.New("ensemble: confidence mask empty for batch")

// ErrNonFinite is returned when a loss comes out NaN or Inf. The sweep
// driver excludes such candidates from selection rather than letting the
// corruption reach the live model.
var ErrNonFinite = errors.New("ensemble: non-finite loss")

// PseudoLabelLoss computes the confidence-masked pseudo-label objective.
//
// For each row: confidence = max(target)-min(target); rows with
// confidence >= alpha are kept, the rest contribute nothing. The loss is
// the mean over kept rows of NLL(log_softmax(logits), argmax(target)), and
// the returned gradient is (softmax(logits)-onehot)/kept on kept rows,
// zero elsewhere.
func PseudoLabelLoss(logits, target *tensor.Mat, alpha float32) (loss float64, grad tensor.Mat, kept int, err error) {
	if logits.R != target.R || logits.C != target.C {
		panic("pseudo label loss: shape mismatch")
	}
	grad = tensor.NewMat(logits.R, logits.C)
	lp := make([]float32, logits.C)
	var maskedRows []int
	for i := 0; i < logits.R; i++ {
		trow := target.Row(i)
		if tensor.Spread(trow) < alpha {
			continue
		}
		teacher := tensor.Argmax(trow)
		row := logits.Row(i)
		tensor.LogSoftmax(lp, row)
		loss -= float64(lp[teacher])

		g := grad.Row(i)
		copy(g, row)
		tensor.Softmax(g)
		g[teacher] -= 1
		maskedRows = append(maskedRows, i)
	}
	kept = len(maskedRows)
	if kept == 0 {
		return 0, tensor.Mat{}, 0, ErrEmptyMask
	}
	loss /= float64(kept)
	inv := float32(1) / float32(kept)
	for _, i := range maskedRows {
		tensor.Scale(grad.Row(i), inv)
	}
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		return 0, tensor.Mat{}, kept, ErrNonFinite
	}
	return loss, grad, kept, nil
}

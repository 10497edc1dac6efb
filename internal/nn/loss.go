package nn

import (
	"fmt"

	"github.com/driftlab/gradapt/internal/tensor"
)

// CrossEntropy computes mean NLL of the true labels under
// log_softmax(logits), plus the gradient with respect to the logits
// ((softmax - onehot)/batch).
func CrossEntropy(logits *tensor.Mat, y []int) (float64, tensor.Mat, error) {
	if logits.R != len(y) {
		return 0, tensor.Mat{}, fmt.Errorf("cross entropy: %d logit rows vs %d labels", logits.R, len(y))
	}
	if logits.R == 0 {
		return 0, tensor.Mat{}, fmt.Errorf("cross entropy: empty batch")
	}
	grad := tensor.NewMat(logits.R, logits.C)
	lp := make([]float32, logits.C)
	var loss float64
	inv := float32(1) / float32(logits.R)
	for i := 0; i < logits.R; i++ {
		row := logits.Row(i)
		tensor.LogSoftmax(lp, row)
		label := y[i]
		if label < 0 || label >= logits.C {
			return 0, tensor.Mat{}, fmt.Errorf("cross entropy: label %d out of range [0,%d)", label, logits.C)
		}
		loss -= float64(lp[label])

		g := grad.Row(i)
		copy(g, row)
		tensor.Softmax(g)
		g[label] -= 1
		tensor.Scale(g, inv)
	}
	return loss / float64(logits.R), grad, nil
}

// Accuracy returns the fraction of rows whose argmax matches y.
func Accuracy(logits *tensor.Mat, y []int) float64 {
	if logits.R == 0 {
		return 0
	}
	correct := 0
	for i := 0; i < logits.R; i++ {
		if tensor.Argmax(logits.Row(i)) == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(logits.R)
}

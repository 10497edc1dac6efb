// Package validate scores model predictions without ground-truth labels so
// hyperparameter sweeps can select candidates on unlabeled target data.
package validate

import (
	"github.com/driftlab/gradapt/internal/tensor"
)

// IM is the information-maximization score: the entropy of the marginal
// class distribution minus the mean per-sample prediction entropy. It
// rewards predictions that are individually confident but diverse across
// the batch. Higher is better.
type IM struct{}

// Score computes the IM score (in nats) from raw logits.
func (IM) Score(logits *tensor.Mat) float64 {
	if logits.R == 0 {
		return 0
	}
	marginal := make([]float32, logits.C)
	probs := make([]float32, logits.C)
	var sumEntropy float64
	for i := 0; i < logits.R; i++ {
		logits.RowTo(probs, i)
		tensor.Softmax(probs)
		sumEntropy += tensor.Entropy(probs)
		tensor.Add(marginal, probs)
	}
	inv := float32(1) / float32(logits.R)
	tensor.Scale(marginal, inv)
	return tensor.Entropy(marginal) - sumEntropy/float64(logits.R)
}

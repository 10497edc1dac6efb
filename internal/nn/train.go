package nn

import (
	"fmt"
	"math/rand"

	"github.com/driftlab/gradapt/internal/data"
	"github.com/driftlab/gradapt/internal/logger"
)

// TrainConfig holds the supervised source-training settings.
type TrainConfig struct {
	Epochs    int
	LR        float64
	BatchSize int
	Patience  int
	Seed      int64
}

// TrainSource trains the model on the labeled source split with Adam and
// early stopping: training stops once validation accuracy has not improved
// for Patience epochs, and the best-validation clone is returned.
func TrainSource(model *Model, train, val *data.Domain, cfg TrainConfig, log logger.Logger) (*Model, error) {
	if cfg.Epochs <= 0 {
		return nil, fmt.Errorf("train: epochs must be positive")
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	opt := NewAdam(model.Params(), cfg.LR)

	bestValAcc := 0.0
	var best *Model
	staleness := 0

	for e := 1; e <= cfg.Epochs; e++ {
		trainLoss, trainAcc, err := trainEpoch(model, train, opt, cfg.BatchSize, rng)
		if err != nil {
			return nil, err
		}
		valLoss, valAcc := Evaluate(model, val, cfg.BatchSize)
		log.Info("source epoch",
			"epoch", e,
			"train_loss", round5(trainLoss), "train_acc", round4(trainAcc),
			"val_loss", round5(valLoss), "val_acc", round4(valAcc))

		if valAcc > bestValAcc {
			bestValAcc = valAcc
			best = model.Clone()
			staleness = 0
		} else {
			staleness++
		}
		if cfg.Patience > 0 && staleness > cfg.Patience {
			break
		}
	}
	if best == nil {
		best = model.Clone()
	}
	return best, nil
}

func trainEpoch(model *Model, dom *data.Domain, opt *Adam, batchSize int, rng *rand.Rand) (loss, acc float64, err error) {
	totalLoss := 0.0
	totalCorrect := 0.0
	totalNum := 0
	for _, pos := range dom.BatchIndices(batchSize, rng) {
		b := dom.Gather(pos)
		logits := model.Forward(&b.X, true)
		l, grad, err := CrossEntropy(&logits, b.Y)
		if err != nil {
			return 0, 0, err
		}
		model.ZeroGrad()
		model.Backward(&grad)
		opt.Step()

		n := len(pos)
		totalLoss += l * float64(n)
		totalCorrect += Accuracy(&logits, b.Y) * float64(n)
		totalNum += n
	}
	if totalNum == 0 {
		return 0, 0, fmt.Errorf("train: empty domain")
	}
	return totalLoss / float64(totalNum), totalCorrect / float64(totalNum), nil
}

// Evaluate returns mean loss and accuracy of the model on a domain.
func Evaluate(model *Model, dom *data.Domain, batchSize int) (loss, acc float64) {
	totalLoss := 0.0
	totalCorrect := 0.0
	totalNum := 0
	for _, pos := range dom.BatchIndices(batchSize, nil) {
		b := dom.Gather(pos)
		logits := model.Forward(&b.X, false)
		l, _, err := CrossEntropy(&logits, b.Y)
		if err != nil {
			continue
		}
		n := len(pos)
		totalLoss += l * float64(n)
		totalCorrect += Accuracy(&logits, b.Y) * float64(n)
		totalNum += n
	}
	if totalNum == 0 {
		return 0, 0
	}
	return totalLoss / float64(totalNum), totalCorrect / float64(totalNum)
}

func round4(v float64) float64 { return float64(int(v*1e4+0.5)) / 1e4 }
func round5(v float64) float64 { return float64(int(v*1e5+0.5)) / 1e5 }

package ensemble

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/driftlab/gradapt/internal/data"
	"github.com/driftlab/gradapt/internal/logger"
	"github.com/driftlab/gradapt/internal/nn"
	"github.com/driftlab/gradapt/internal/runlog"
	"github.com/driftlab/gradapt/internal/tensor"
	"github.com/driftlab/gradapt/internal/validate"
)

// SelfTrainConfig wires a SelfTrainer.
type SelfTrainConfig struct {
	Model     *nn.Model
	Classes   int
	Validator Validator
	Epochs    int
	LR        float64
	BatchSize int
	Seed      int64

	Dataset   string
	RunPrefix string
	Logs      *runlog.Root
	Log       logger.Logger
}

// SelfTrainer is the memoryless baseline: pseudo-labels come from the
// current model's own predictions on the new domain, frozen at the start of
// the domain and confidence-filtered the same way as the ensemble target.
// It serves both gradual self-training (walk every domain) and direct
// adaptation (jump straight to the target domain).
type SelfTrainer struct {
	cfg   SelfTrainConfig
	model *nn.Model
	rng   *rand.Rand

	PLAcc []float64
}

// NewSelfTrainer validates the configuration and wraps the starting model.
func NewSelfTrainer(cfg SelfTrainConfig) (*SelfTrainer, error) {
	if cfg.Model == nil {
		return nil, errors.New("ensemble: self trainer needs a model")
	}
	if cfg.Classes <= 0 {
		return nil, errors.New("ensemble: self trainer needs the class count")
	}
	if cfg.Epochs <= 0 || cfg.LR <= 0 {
		return nil, fmt.Errorf("ensemble: bad training settings epochs=%d lr=%g", cfg.Epochs, cfg.LR)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 256
	}
	if cfg.Validator == nil {
		cfg.Validator = validate.IM{}
	}
	if cfg.Log == nil {
		cfg.Log = logger.Nop()
	}
	return &SelfTrainer{
		cfg:   cfg,
		model: cfg.Model,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Model returns the current live model.
func (t *SelfTrainer) Model() *nn.Model { return t.model }

// Adapt runs the confidence-quantile sweep on one domain and promotes the
// best-scoring candidate to the live model. domainIdx is only used for run
// naming and logs.
func (t *SelfTrainer) Adapt(domainIdx int, dom *data.Domain, confidenceQ []float64) (Selection, error) {
	if len(confidenceQ) == 0 {
		return Selection{}, errors.New("ensemble: empty confidence quantile sweep")
	}

	probs := t.predictProbs(dom)
	t.PLAcc = append(t.PLAcc, labelAccuracy(&probs, dom.Y))

	type candidate struct {
		q     float64
		model *nn.Model
		score float64
	}
	var best *candidate
	for _, q := range confidenceQ {
		run, err := t.cfg.Logs.NewRun(t.cfg.Dataset, domainIdx, fmt.Sprintf("%s_%g_%d", t.cfg.RunPrefix, q, t.cfg.Seed))
		if err != nil {
			return Selection{}, err
		}
		student, score, trainErr := t.trainCandidate(domainIdx, q, dom, &probs, run)
		if err := run.Close(); err != nil {
			t.cfg.Log.Warn("run log close failed", "err", err)
		}
		if trainErr != nil {
			if !errors.Is(trainErr, ErrEmptyMask) && !errors.Is(trainErr, ErrNonFinite) {
				return Selection{}, trainErr
			}
			t.cfg.Log.Warn("candidate failed", "domain", domainIdx, "q", q, "err", trainErr)
			score = math.Inf(-1)
		}
		c := candidate{q: q, model: student, score: score}
		if best == nil || c.score > best.score {
			best = &c
		}
	}
	t.model = best.model.Clone()
	t.cfg.Log.Info("domain adapted", "domain", domainIdx, "best_q", best.q, "best_score", best.score)
	return Selection{Q: best.q, Score: best.score}, nil
}

func (t *SelfTrainer) trainCandidate(domainIdx int, q float64, dom *data.Domain, probs *tensor.Mat, run *runlog.Run) (*nn.Model, float64, error) {
	student := t.model.Clone()
	opt := nn.NewAdam(student.Params(), t.cfg.LR)
	alpha := Alpha(probs, q)

	target := func(b *data.Batch) tensor.Mat {
		out := tensor.NewMat(len(b.Pos), probs.C)
		for i, p := range b.Pos {
			copy(out.Row(i), probs.Row(p))
		}
		return out
	}

	var score float64
	for e := 1; e <= t.cfg.Epochs; e++ {
		loss, sc, err := trainPseudoEpoch(student, dom, opt, alpha, t.rng, t.cfg.BatchSize, t.cfg.Validator, target)
		if err != nil {
			return student, math.Inf(-1), err
		}
		score = sc
		t.cfg.Log.Info("selftrain epoch",
			"domain", domainIdx, "q", q, "epoch", e, "train_loss", loss)
		run.Scalar("loss/train", e, loss)
		run.Scalar("score/train", e, score)
	}
	return student, score, nil
}

// predictProbs runs the current model over the whole domain and returns the
// softmax table indexed by row position. These are the frozen pseudo-label
// distributions for the domain.
func (t *SelfTrainer) predictProbs(dom *data.Domain) tensor.Mat {
	probs := tensor.NewMat(dom.Len(), t.cfg.Classes)
	offset := 0
	for _, pos := range dom.BatchIndices(t.cfg.BatchSize, nil) {
		b := dom.Gather(pos)
		out := t.model.Forward(&b.X, false)
		for i := 0; i < out.R; i++ {
			row := probs.Row(offset + i)
			copy(row, out.Row(i))
			tensor.Softmax(row)
		}
		offset += out.R
	}
	return probs
}

func labelAccuracy(probs *tensor.Mat, y []int) float64 {
	if probs.R == 0 {
		return 0
	}
	correct := 0
	for i := 0; i < probs.R; i++ {
		if tensor.Argmax(probs.Row(i)) == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(probs.R)
}

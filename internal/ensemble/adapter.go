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

// Validator scores a batch of logits without labels; higher is better.
// Hyperparameter candidates are selected on this score alone.
type Validator interface {
	Score(logits *tensor.Mat) float64
}

// Config wires an Adapter. Domains is the full ordered sequence with
// index 0 being the labeled source; the adapter never trains on index 0.
type Config struct {
	Model     *nn.Model
	Domains   []*data.Domain
	Classes   int
	Schedule  Schedule
	Validator Validator // defaults to validate.IM
	Epochs    int
	LR        float64
	BatchSize int
	Seed      int64

	// Run logging. Logs may be nil to disable. RunPrefix keys the run
	// directory together with the confidence quantile and seed, e.g.
	// "dagde_1.5" producing "dagde_1.5_0.1_42".
	Dataset   string
	RunPrefix string
	Logs      *runlog.Root
	Log       logger.Logger
}

func (c *Config) defaults() error {
	if c.Model == nil {
		return errors.New("ensemble: config needs a model")
	}
	if len(c.Domains) < 2 {
		return fmt.Errorf("ensemble: need at least 2 domains, got %d", len(c.Domains))
	}
	if c.Classes <= 0 {
		return errors.New("ensemble: config needs the class count")
	}
	if c.Schedule == nil {
		return errors.New("ensemble: config needs a momentum schedule")
	}
	if c.Epochs <= 0 || c.LR <= 0 {
		return fmt.Errorf("ensemble: bad training settings epochs=%d lr=%g", c.Epochs, c.LR)
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 256
	}
	if c.Validator == nil {
		c.Validator = validate.IM{}
	}
	if c.Log == nil {
		c.Log = logger.Nop()
	}
	return nil
}

// Selection reports which sweep candidate won a domain.
type Selection struct {
	Q     float64
	Score float64
}

// Adapter is the distance-aware gradual domain ensemble. It owns the live
// model, the ensemble tables and the momentum value carried between
// domains; domains must be adapted strictly in order by a single caller.
type Adapter struct {
	cfg      Config
	model    *nn.Model
	state    *State
	momentum float64
	rng      *rand.Rand

	// Diagnostic histories, one entry per adapted domain. Never read by
	// the algorithm itself.
	PLAcc          []float64
	MomentumRecord []float64
}

// New builds an adapter with zeroed ensemble tables sized to the global id
// space of the domain sequence. Momentum starts at 0: the first update
// writes fresh predictions with no history.
func New(cfg Config) (*Adapter, error) {
	if err := cfg.defaults(); err != nil {
		return nil, err
	}
	maxID := -1
	for _, d := range cfg.Domains {
		for _, id := range d.IDs {
			if id > maxID {
				maxID = id
			}
		}
	}
	state, err := NewState(maxID+1, cfg.Classes)
	if err != nil {
		return nil, err
	}
	return &Adapter{
		cfg:   cfg,
		model: cfg.Model,
		state: state,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Model returns the current live model.
func (a *Adapter) Model() *nn.Model { return a.model }

// Momentum returns the momentum that the next ensemble update will use.
func (a *Adapter) Momentum() float64 { return a.momentum }

// Adapt processes one domain: refresh the ensemble from the current model,
// then for every confidence quantile train a candidate student against the
// masked pseudo-labels and keep the one with the best unsupervised score.
// The winner becomes the live model; finally the momentum for the next hop
// is derived from this domain's transition distance.
func (a *Adapter) Adapt(domainIdx int, confidenceQ []float64) (Selection, error) {
	if domainIdx < 1 || domainIdx >= len(a.cfg.Domains) {
		return Selection{}, fmt.Errorf("ensemble: domain index %d outside [1,%d)", domainIdx, len(a.cfg.Domains))
	}
	if len(confidenceQ) == 0 {
		return Selection{}, errors.New("ensemble: empty confidence quantile sweep")
	}

	// One ensemble refresh per domain; every sweep candidate sees the same
	// snapshot (candidates share no mutable state beyond their common
	// starting point).
	if err := a.updateState(domainIdx); err != nil {
		return Selection{}, err
	}
	dom := a.cfg.Domains[domainIdx]
	accum := a.state.Accum(dom.IDs)

	type candidate struct {
		q     float64
		model *nn.Model
		score float64
	}
	var best *candidate
	for _, q := range confidenceQ {
		alpha := Alpha(&accum, q)
		run, err := a.cfg.Logs.NewRun(a.cfg.Dataset, domainIdx, a.runName(q))
		if err != nil {
			return Selection{}, err
		}
		student, score, trainErr := a.trainCandidate(domainIdx, q, alpha, run)
		if err := run.Close(); err != nil {
			a.cfg.Log.Warn("run log close failed", "err", err)
		}
		if trainErr != nil {
			if !errors.Is(trainErr, ErrEmptyMask) && !errors.Is(trainErr, ErrNonFinite) {
				return Selection{}, trainErr
			}
			// Failed candidates stay in the pool at the worst possible
			// score so selection remains deterministic even when every
			// candidate fails (first-seen wins under strict >).
			a.cfg.Log.Warn("candidate failed", "domain", domainIdx, "q", q, "err", trainErr)
			score = math.Inf(-1)
		}
		c := candidate{q: q, model: student, score: score}
		if best == nil || c.score > best.score {
			best = &c
		}
	}

	a.model = best.model.Clone()

	// Oracle diagnostics: how good the ensemble pseudo-labels were on this
	// domain. Compared against true labels, reported only.
	a.PLAcc = append(a.PLAcc, a.pseudoLabelAccuracy(dom))

	m, err := a.cfg.Schedule.Next(domainIdx)
	if err != nil {
		return Selection{}, err
	}
	a.momentum = m
	a.MomentumRecord = append(a.MomentumRecord, m)
	a.cfg.Log.Info("domain adapted",
		"domain", domainIdx, "best_q", best.q, "best_score", best.score, "next_momentum", m)

	return Selection{Q: best.q, Score: best.score}, nil
}

func (a *Adapter) runName(q float64) string {
	return fmt.Sprintf("%s_%g_%d", a.cfg.RunPrefix, q, a.cfg.Seed)
}

// updateState folds the current model's softmax predictions into Z/z for
// every domain at or after domainIdx. Domains already passed are skipped:
// their ensemble rows are frozen once the sequence moves beyond them.
func (a *Adapter) updateState(domainIdx int) error {
	for d := domainIdx; d < len(a.cfg.Domains); d++ {
		dom := a.cfg.Domains[d]
		for _, pos := range dom.BatchIndices(a.cfg.BatchSize, nil) {
			b := dom.Gather(pos)
			probs := a.model.Forward(&b.X, false)
			for i := 0; i < probs.R; i++ {
				tensor.Softmax(probs.Row(i))
			}
			if err := a.state.Update(&probs, b.IDs, a.momentum); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *Adapter) trainCandidate(domainIdx int, q float64, alpha float32, run *runlog.Run) (*nn.Model, float64, error) {
	dom := a.cfg.Domains[domainIdx]
	student := a.model.Clone()
	opt := nn.NewAdam(student.Params(), a.cfg.LR)

	target := func(b *data.Batch) tensor.Mat { return a.state.Target(b.IDs) }

	var score float64
	for e := 1; e <= a.cfg.Epochs; e++ {
		loss, sc, err := trainPseudoEpoch(student, dom, opt, alpha, a.rng, a.cfg.BatchSize, a.cfg.Validator, target)
		if err != nil {
			return student, math.Inf(-1), err
		}
		score = sc
		acc, plAcc := a.oracleEval(student, dom)
		a.cfg.Log.Info("adapt epoch",
			"domain", domainIdx, "momentum", a.momentum, "q", q, "epoch", e,
			"train_loss", loss, "train_acc", acc, "pl_acc", plAcc)
		run.Scalar("loss/train", e, loss)
		run.Scalar("score/train", e, score)
	}
	return student, score, nil
}

// trainPseudoEpoch runs one epoch of confidence-masked pseudo-label
// training and returns the masked mean loss plus the validator score over
// the epoch's logits. target supplies the pseudo-label distribution rows
// for a batch; the adapter reads them from the ensemble, the self-trainer
// from the model's own frozen predictions.
func trainPseudoEpoch(student *nn.Model, dom *data.Domain, opt *nn.Adam, alpha float32,
	rng *rand.Rand, batchSize int, validator Validator, target func(b *data.Batch) tensor.Mat,
) (loss, score float64, err error) {
	var (
		totalLoss float64
		totalKept int
	)
	classes := 0
	var epochLogits tensor.Mat
	offset := 0
	for _, pos := range dom.BatchIndices(batchSize, rng) {
		b := dom.Gather(pos)
		logits := student.Forward(&b.X, true)
		if classes == 0 {
			classes = logits.C
			epochLogits = tensor.NewMat(dom.Len(), classes)
		}
		t := target(&b)
		l, grad, kept, lossErr := PseudoLabelLoss(&logits, &t, alpha)
		if lossErr != nil {
			return 0, 0, lossErr
		}
		student.ZeroGrad()
		student.Backward(&grad)
		opt.Step()

		totalLoss += l * float64(kept)
		totalKept += kept
		for i := 0; i < logits.R; i++ {
			copy(epochLogits.Row(offset+i), logits.Row(i))
		}
		offset += logits.R
	}
	if totalKept == 0 {
		return 0, 0, ErrEmptyMask
	}
	loss = totalLoss / float64(totalKept)
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		return 0, 0, ErrNonFinite
	}
	return loss, validator.Score(&epochLogits), nil
}

// oracleEval reports the student's accuracy and the ensemble pseudo-label
// accuracy on a domain, using true labels. Diagnostics only.
func (a *Adapter) oracleEval(model *nn.Model, dom *data.Domain) (acc, plAcc float64) {
	correct, plCorrect := 0, 0
	for _, pos := range dom.BatchIndices(a.cfg.BatchSize, nil) {
		b := dom.Gather(pos)
		logits := model.Forward(&b.X, false)
		targets := a.state.Target(b.IDs)
		for i := 0; i < logits.R; i++ {
			if tensor.Argmax(logits.Row(i)) == b.Y[i] {
				correct++
			}
			if tensor.Argmax(targets.Row(i)) == b.Y[i] {
				plCorrect++
			}
		}
	}
	n := float64(dom.Len())
	return float64(correct) / n, float64(plCorrect) / n
}

func (a *Adapter) pseudoLabelAccuracy(dom *data.Domain) float64 {
	targets := a.state.Target(dom.IDs)
	correct := 0
	for i := 0; i < targets.R; i++ {
		if tensor.Argmax(targets.Row(i)) == dom.Y[i] {
			correct++
		}
	}
	return float64(correct) / float64(dom.Len())
}

// TargetValidate scores the live model on a held-out target split with the
// unsupervised validator. The outer hyperparameter sweep (beta or fixed
// momentum) selects on this.
func (a *Adapter) TargetValidate(dom *data.Domain) float64 {
	logits := tensor.NewMat(dom.Len(), a.cfg.Classes)
	offset := 0
	for _, pos := range dom.BatchIndices(a.cfg.BatchSize, nil) {
		b := dom.Gather(pos)
		out := a.model.Forward(&b.X, false)
		for i := 0; i < out.R; i++ {
			copy(logits.Row(offset+i), out.Row(i))
		}
		offset += out.R
	}
	return a.cfg.Validator.Score(&logits)
}

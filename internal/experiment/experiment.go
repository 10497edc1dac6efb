// Package experiment wires data, source training, adaptation and result
// reporting into one run: load the domain sequence, fit the source model,
// dispatch on the method, sweep its hyperparameter, and persist the winner.
package experiment

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/driftlab/gradapt/internal/checkpoint"
	"github.com/driftlab/gradapt/internal/data"
	"github.com/driftlab/gradapt/internal/ensemble"
	"github.com/driftlab/gradapt/internal/logger"
	"github.com/driftlab/gradapt/internal/nn"
	"github.com/driftlab/gradapt/internal/runlog"
)

const (
	valFrac       = 0.2
	swProjections = 32
	patience      = 5
)

// Result is the run summary written to the result directory and served by
// the results API.
type Result struct {
	Dataset        string    `json:"dataset"`
	Method         string    `json:"method"`
	Seed           int64     `json:"seed"`
	SourceValAcc   float64   `json:"source_val_acc"`
	BestHyper      float64   `json:"best_hyper,omitempty"` // winning beta (dagde) or momentum (gde)
	BestScore      float64   `json:"best_score"`
	TargetAcc      float64   `json:"target_acc"`
	PLAcc          []float64 `json:"pl_acc,omitempty"`
	MomentumRecord []float64 `json:"momentum_record,omitempty"`
	Distances      []float64 `json:"distances,omitempty"`
	Checkpoint     string    `json:"checkpoint,omitempty"`
}

// Run executes one full experiment. The context is checked between outer
// sweep candidates so long sweeps can be interrupted at domain boundaries.
func Run(ctx context.Context, cfg Config, log logger.Logger) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	method, err := ParseMethod(cfg.Method)
	if err != nil {
		return nil, err
	}

	domains, err := loadDomains(cfg)
	if err != nil {
		return nil, err
	}
	classes, err := data.NumClasses(domains)
	if err != nil {
		return nil, err
	}
	last := len(domains) - 1
	log.Info("dataset loaded",
		"dataset", cfg.Dataset, "domains", len(domains), "classes", classes,
		"features", domains[0].Features())

	rng := rand.New(rand.NewSource(cfg.Seed))
	srcTrain, srcVal := domains[0].Split(valFrac, rng)
	tgtTrain, tgtVal := domains[last].Split(valFrac, rng)

	// The adaptation sequence trains on the target's train split only; the
	// val split is reserved for the outer sweep's unsupervised selection
	// and the final oracle accuracy.
	seq := make([]*data.Domain, len(domains))
	copy(seq, domains)
	seq[0] = srcTrain
	seq[last] = tgtTrain

	model := nn.NewMLPClassifier(domains[0].Features(), cfg.Hidden, classes, cfg.Dropout, cfg.Seed)
	model, err = nn.TrainSource(model, srcTrain, srcVal, nn.TrainConfig{
		Epochs:    cfg.TrainEpochs,
		LR:        cfg.TrainLR,
		BatchSize: cfg.BatchSize,
		Patience:  patience,
		Seed:      cfg.Seed,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("experiment: source training: %w", err)
	}
	_, srcValAcc := nn.Evaluate(model, srcVal, cfg.BatchSize)
	log.Info("source trained", "val_acc", srcValAcc)

	var logs *runlog.Root
	if cfg.LogDir != "" {
		if logs, err = runlog.NewRoot(cfg.LogDir); err != nil {
			return nil, err
		}
	}

	res := &Result{
		Dataset:      cfg.Dataset,
		Method:       method.String(),
		Seed:         cfg.Seed,
		SourceValAcc: srcValAcc,
	}

	var final *nn.Model
	switch method {
	case MethodNone:
		final = model

	case MethodDirect:
		final, err = runSelfTrain(cfg, logs, log, model, classes, []int{last}, seq, res)

	case MethodSelfTrain:
		idxs := make([]int, 0, last)
		for d := 1; d <= last; d++ {
			idxs = append(idxs, d)
		}
		final, err = runSelfTrain(cfg, logs, log, model, classes, idxs, seq, res)

	case MethodGDE:
		final, err = runEnsembleSweep(ctx, cfg, logs, log, model, classes, seq, tgtVal, res,
			cfg.Momentums, func(m float64) ensemble.Schedule { return ensemble.Constant(m) })

	case MethodDAGDE:
		dists := cfg.Distances
		if len(dists) == 0 {
			dists = data.NormalizedDistances(domains, swProjections, cfg.Seed)
		}
		if len(dists) != last {
			return nil, fmt.Errorf("experiment: %d transition distances for %d domains", len(dists), len(domains))
		}
		res.Distances = dists
		log.Info("transition distances", "dists", dists)
		final, err = runEnsembleSweep(ctx, cfg, logs, log, model, classes, seq, tgtVal, res,
			cfg.Betas, func(beta float64) ensemble.Schedule {
				return ensemble.DistanceAware{Beta: beta, Dists: dists}
			})
	}
	if err != nil {
		return nil, err
	}

	_, res.TargetAcc = nn.Evaluate(final, tgtVal, cfg.BatchSize)
	log.Info("experiment done", "method", res.Method, "target_acc", res.TargetAcc)

	if cfg.CkptDir != "" {
		path := checkpoint.Path(cfg.CkptDir, cfg.Dataset, res.Method, cfg.Seed)
		if err := checkpoint.Save(path, checkpoint.FromModel(final, cfg.Dataset, res.Method, cfg.Seed)); err != nil {
			return nil, err
		}
		res.Checkpoint = path
	}
	if cfg.ResultDir != "" {
		if err := writeResult(cfg.ResultDir, res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func loadDomains(cfg Config) ([]*data.Domain, error) {
	switch cfg.Dataset {
	case "rotating-moons":
		moons := cfg.Moons
		if moons.Domains == 0 {
			moons = data.DefaultMoonsConfig()
		}
		return data.RotatingMoons(moons)
	case "csv":
		return data.LoadCSVDomains(cfg.CSV)
	default:
		return nil, fmt.Errorf("experiment: unknown dataset %q", cfg.Dataset)
	}
}

// runSelfTrain walks the given domain indices with a single self-trainer.
// direct-adapt passes just the target index, gradual-selftrain all of them.
func runSelfTrain(cfg Config, logs *runlog.Root, log logger.Logger, model *nn.Model,
	classes int, idxs []int, seq []*data.Domain, res *Result,
) (*nn.Model, error) {
	st, err := ensemble.NewSelfTrainer(ensemble.SelfTrainConfig{
		Model:     model.Clone(),
		Classes:   classes,
		Epochs:    cfg.AdaptEpochs,
		LR:        cfg.AdaptLR,
		BatchSize: cfg.BatchSize,
		Seed:      cfg.Seed,
		Dataset:   cfg.Dataset,
		RunPrefix: cfg.Method,
		Logs:      logs,
		Log:       log,
	})
	if err != nil {
		return nil, err
	}
	for _, d := range idxs {
		sel, err := st.Adapt(d, seq[d], cfg.ConfidenceQ)
		if err != nil {
			return nil, err
		}
		res.BestScore = sel.Score
	}
	res.PLAcc = st.PLAcc
	return st.Model(), nil
}

// runEnsembleSweep trains one ensemble adapter per hyperparameter value
// through the whole domain sequence and keeps the one whose final model
// scores best on the held-out target split. Ties keep the first candidate.
func runEnsembleSweep(ctx context.Context, cfg Config, logs *runlog.Root, log logger.Logger,
	model *nn.Model, classes int, seq []*data.Domain, tgtVal *data.Domain, res *Result,
	hypers []float64, schedule func(h float64) ensemble.Schedule,
) (*nn.Model, error) {
	if len(hypers) == 0 {
		return nil, fmt.Errorf("experiment: %s needs a non-empty hyperparameter sweep", cfg.Method)
	}
	bestScore := math.Inf(-1)
	var best *nn.Model
	for _, h := range hypers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ad, err := ensemble.New(ensemble.Config{
			Model:     model.Clone(),
			Domains:   seq,
			Classes:   classes,
			Schedule:  schedule(h),
			Epochs:    cfg.AdaptEpochs,
			LR:        cfg.AdaptLR,
			BatchSize: cfg.BatchSize,
			Seed:      cfg.Seed,
			Dataset:   cfg.Dataset,
			RunPrefix: fmt.Sprintf("%s_%g", cfg.Method, h),
			Logs:      logs,
			Log:       log,
		})
		if err != nil {
			return nil, err
		}
		for d := 1; d < len(seq); d++ {
			if _, err := ad.Adapt(d, cfg.ConfidenceQ); err != nil {
				return nil, err
			}
		}
		score := ad.TargetValidate(tgtVal)
		log.Info("sweep candidate done", "hyper", h, "target_score", score)
		if best == nil || score > bestScore {
			bestScore = score
			best = ad.Model()
			res.BestHyper = h
			res.BestScore = score
			res.PLAcc = ad.PLAcc
			res.MomentumRecord = ad.MomentumRecord
		}
	}
	return best, nil
}

func writeResult(dir string, res *Result) error {
	sub := filepath.Join(dir, res.Dataset)
	if err := os.MkdirAll(sub, 0o755); err != nil {
		return fmt.Errorf("experiment: create result dir: %w", err)
	}
	raw, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("experiment: marshal result: %w", err)
	}
	path := filepath.Join(sub, fmt.Sprintf("%s_%d.json", res.Method, res.Seed))
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("experiment: write result: %w", err)
	}
	return nil
}

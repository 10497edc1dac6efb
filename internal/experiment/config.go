package experiment

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/driftlab/gradapt/internal/data"
)

// Config is the experiment description, normally loaded from a YAML file
// and overridden by CLI flags.
type Config struct {
	Dataset   string `yaml:"dataset"` // rotating-moons or csv
	LogDir    string `yaml:"log_dir"`
	CkptDir   string `yaml:"ckpt_dir"`
	ResultDir string `yaml:"result_dir"`
	Method    string `yaml:"method"`

	TrainEpochs int     `yaml:"train_epochs"`
	AdaptEpochs int     `yaml:"adapt_epochs"`
	TrainLR     float64 `yaml:"train_lr"`
	AdaptLR     float64 `yaml:"adapt_lr"`
	BatchSize   int     `yaml:"batch_size"`
	Hidden      int     `yaml:"hidden"`
	Dropout     float64 `yaml:"dropout"`
	Seed        int64   `yaml:"seed"`

	// Sweep lists. Betas drive dagde, Momentums drive gde, ConfidenceQ is
	// swept inside every domain.
	Betas       []float64 `yaml:"betas"`
	Momentums   []float64 `yaml:"momentums"`
	ConfidenceQ []float64 `yaml:"confidence_q"`

	// Distances optionally supplies the per-transition domain distances
	// verbatim. When empty they are estimated from the data.
	Distances []float64 `yaml:"distances"`

	Moons data.MoonsConfig `yaml:"moons"`
	CSV   data.CSVConfig   `yaml:"csv"`
}

// DefaultConfig mirrors the defaults of the reference experiments.
func DefaultConfig() Config {
	return Config{
		Dataset:     "rotating-moons",
		LogDir:      "runs",
		CkptDir:     "checkpoints",
		ResultDir:   "results",
		Method:      "dagde",
		TrainEpochs: 50,
		AdaptEpochs: 20,
		TrainLR:     1e-3,
		AdaptLR:     1e-3,
		BatchSize:   256,
		Hidden:      32,
		Dropout:     0,
		Seed:        42,
		Betas:       []float64{0.5, 1, 2, 5},
		Momentums:   []float64{0, 0.1, 0.2, 0.3},
		ConfidenceQ: []float64{0.1},
		Moons:       data.DefaultMoonsConfig(),
	}
}

// LoadConfig reads a YAML experiment file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("experiment: read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("experiment: parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings that every method needs.
func (c *Config) Validate() error {
	if _, err := ParseMethod(c.Method); err != nil {
		return err
	}
	switch c.Dataset {
	case "rotating-moons", "csv":
	default:
		return fmt.Errorf("experiment: unknown dataset %q (want rotating-moons or csv)", c.Dataset)
	}
	if c.TrainEpochs <= 0 || c.AdaptEpochs <= 0 {
		return fmt.Errorf("experiment: epochs must be positive (train=%d adapt=%d)", c.TrainEpochs, c.AdaptEpochs)
	}
	if c.TrainLR <= 0 || c.AdaptLR <= 0 {
		return fmt.Errorf("experiment: learning rates must be positive (train=%g adapt=%g)", c.TrainLR, c.AdaptLR)
	}
	if c.BatchSize <= 0 || c.Hidden <= 0 {
		return fmt.Errorf("experiment: batch size and hidden width must be positive")
	}
	if len(c.ConfidenceQ) == 0 {
		return fmt.Errorf("experiment: confidence_q sweep must not be empty")
	}
	return nil
}

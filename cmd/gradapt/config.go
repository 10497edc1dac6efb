package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/driftlab/gradapt/internal/experiment"
)

// UserConfig is the per-user configuration file
// (~/.config/gradapt/config.yaml). Pointer fields distinguish "not set"
// from zero values.
type UserConfig struct {
	Dataset   string `yaml:"dataset"`
	LogDir    string `yaml:"log_dir"`
	CkptDir   string `yaml:"ckpt_dir"`
	ResultDir string `yaml:"result_dir"`

	Seed      *int64 `yaml:"seed"`
	BatchSize *int64 `yaml:"batch_size"`

	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	ServerAddress string `yaml:"server_address"`
}

func userConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "gradapt", "config.yaml")
}

// LoadUserConfig reads the user config file. Returns a zero UserConfig if
// the file doesn't exist.
func LoadUserConfig() UserConfig {
	path := userConfigPath()
	if path == "" {
		return UserConfig{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return UserConfig{}
	}
	var cfg UserConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return UserConfig{}
	}
	return cfg
}

// applyUserConfig folds user config defaults into the experiment config and
// logging variables wherever the corresponding CLI flag was not set.
func applyUserConfig(c *cli.Command, user UserConfig, cfg *experiment.Config) {
	if user.Dataset != "" && !c.IsSet("dataset") {
		cfg.Dataset = user.Dataset
	}
	if user.LogDir != "" && !c.IsSet("log-dir") {
		cfg.LogDir = user.LogDir
	}
	if user.CkptDir != "" && !c.IsSet("ckpt-dir") {
		cfg.CkptDir = user.CkptDir
	}
	if user.ResultDir != "" && !c.IsSet("result-dir") {
		cfg.ResultDir = user.ResultDir
	}
	if user.Seed != nil && !c.IsSet("seed") {
		cfg.Seed = *user.Seed
	}
	if user.BatchSize != nil && !c.IsSet("batch-size") {
		cfg.BatchSize = int(*user.BatchSize)
	}
	if user.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = user.LogLevel
	}
	if user.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = user.LogFormat
	}
}

// buildExperimentConfig resolves the experiment settings from, in rising
// precedence: built-in defaults, the experiment YAML file, the user config
// file, and explicit CLI flags.
func buildExperimentConfig(c *cli.Command) (experiment.Config, error) {
	cfg := experiment.DefaultConfig()
	if cfgPath != "" {
		loaded, err := experiment.LoadConfig(cfgPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	applyUserConfig(c, LoadUserConfig(), &cfg)

	if c.IsSet("dataset") {
		cfg.Dataset = dataset
	}
	if c.IsSet("log-dir") {
		cfg.LogDir = logDir
	}
	if c.IsSet("ckpt-dir") {
		cfg.CkptDir = ckptDir
	}
	if c.IsSet("result-dir") {
		cfg.ResultDir = resultDir
	}
	if c.IsSet("seed") {
		cfg.Seed = seed
	}
	if c.IsSet("batch-size") {
		cfg.BatchSize = int(batchSize)
	}
	return cfg, nil
}

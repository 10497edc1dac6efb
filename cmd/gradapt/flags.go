package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/driftlab/gradapt/internal/logger"
)

var (
	cfgPath   string
	dataset   string
	logDir    string
	ckptDir   string
	resultDir string
	seed      int64
	batchSize int64
	logLevel  string
	logFormat string
	debug     bool
)

func experimentFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "path to experiment YAML file",
			Destination: &cfgPath,
		},
		&cli.StringFlag{
			Name:        "dataset",
			Aliases:     []string{"d"},
			Usage:       "dataset (rotating-moons, csv)",
			Destination: &dataset,
		},
		&cli.StringFlag{
			Name:        "log-dir",
			Usage:       "run log directory",
			Destination: &logDir,
		},
		&cli.StringFlag{
			Name:        "ckpt-dir",
			Usage:       "checkpoint directory",
			Destination: &ckptDir,
		},
		&cli.StringFlag{
			Name:        "result-dir",
			Usage:       "result summary directory",
			Destination: &resultDir,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "random seed",
			Value:       42,
			Destination: &seed,
		},
		&cli.Int64Flag{
			Name:        "batch-size",
			Aliases:     []string{"b"},
			Usage:       "mini-batch size",
			Value:       256,
			Destination: &batchSize,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func newLogger() logger.Logger {
	level := logger.ParseLevel(logLevel)
	if debug {
		level = slog.LevelDebug
	}
	switch logFormat {
	case "json":
		return logger.JSON(os.Stderr, level)
	case "text":
		return logger.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	default:
		return logger.Pretty(os.Stderr, level)
	}
}

// parseFloats parses a comma-separated sweep list flag like "0.5,1,2".
func parseFloats(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("bad sweep value %q: %w", p, err)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty sweep list %q", s)
	}
	return out, nil
}

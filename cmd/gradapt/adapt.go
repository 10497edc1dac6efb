package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/driftlab/gradapt/internal/experiment"
	"github.com/driftlab/gradapt/internal/logger"
)

func adaptCmd() *cli.Command {
	var (
		method      string
		trainEpochs int64
		adaptEpochs int64
		adaptLR     float64
		hidden      int64
		betas       string
		momentums   string
		confidenceQ string
	)

	return &cli.Command{
		Name:  "adapt",
		Usage: "Run a full adaptation experiment through the domain sequence",
		Flags: append(append(experimentFlags(), loggingFlags()...),
			&cli.StringFlag{
				Name:        "method",
				Aliases:     []string{"m"},
				Usage:       "adaptation method (wo-adapt, direct-adapt, gradual-selftrain, gde, dagde)",
				Value:       "dagde",
				Destination: &method,
			},
			&cli.Int64Flag{
				Name:        "train-epochs",
				Usage:       "source training epochs",
				Value:       50,
				Destination: &trainEpochs,
			},
			&cli.Int64Flag{
				Name:        "adapt-epochs",
				Aliases:     []string{"e"},
				Usage:       "epochs per adaptation candidate",
				Value:       20,
				Destination: &adaptEpochs,
			},
			&cli.Float64Flag{
				Name:        "adapt-lr",
				Usage:       "adaptation learning rate",
				Value:       1e-3,
				Destination: &adaptLR,
			},
			&cli.Int64Flag{
				Name:        "hidden",
				Usage:       "hidden layer width",
				Value:       32,
				Destination: &hidden,
			},
			&cli.StringFlag{
				Name:        "betas",
				Usage:       "comma-separated beta sweep for dagde",
				Destination: &betas,
			},
			&cli.StringFlag{
				Name:        "momentums",
				Usage:       "comma-separated momentum sweep for gde",
				Destination: &momentums,
			},
			&cli.StringFlag{
				Name:        "confidence-q",
				Aliases:     []string{"q"},
				Usage:       "comma-separated confidence quantile sweep",
				Destination: &confidenceQ,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := newLogger()
			ctx = logger.WithContext(ctx, log)

			cfg, err := buildExperimentConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.IsSet("method") {
				cfg.Method = method
			}
			if cmd.IsSet("train-epochs") {
				cfg.TrainEpochs = int(trainEpochs)
			}
			if cmd.IsSet("adapt-epochs") {
				cfg.AdaptEpochs = int(adaptEpochs)
			}
			if cmd.IsSet("adapt-lr") {
				cfg.AdaptLR = adaptLR
			}
			if cmd.IsSet("hidden") {
				cfg.Hidden = int(hidden)
			}
			if cmd.IsSet("betas") {
				if cfg.Betas, err = parseFloats(betas); err != nil {
					return err
				}
			}
			if cmd.IsSet("momentums") {
				if cfg.Momentums, err = parseFloats(momentums); err != nil {
					return err
				}
			}
			if cmd.IsSet("confidence-q") {
				if cfg.ConfidenceQ, err = parseFloats(confidenceQ); err != nil {
					return err
				}
			}

			res, err := experiment.Run(ctx, cfg, log)
			if err != nil {
				return err
			}
			fmt.Printf("%s on %s: target acc %.4f (score %.4f)\n",
				res.Method, res.Dataset, res.TargetAcc, res.BestScore)
			if res.Method == "gde" || res.Method == "dagde" {
				fmt.Printf("best hyperparameter %g\n", res.BestHyper)
			}
			if res.Checkpoint != "" {
				fmt.Printf("checkpoint written to %s\n", res.Checkpoint)
			}
			return nil
		},
	}
}

package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/driftlab/gradapt/internal/experiment"
	"github.com/driftlab/gradapt/internal/logger"
)

func trainCmd() *cli.Command {
	var (
		epochs int64
		lr     float64
		hidden int64
	)

	return &cli.Command{
		Name:  "train",
		Usage: "Train the source model only (no adaptation)",
		Flags: append(append(experimentFlags(), loggingFlags()...),
			&cli.Int64Flag{
				Name:        "epochs",
				Aliases:     []string{"e"},
				Usage:       "source training epochs",
				Value:       50,
				Destination: &epochs,
			},
			&cli.Float64Flag{
				Name:        "lr",
				Usage:       "source learning rate",
				Value:       1e-3,
				Destination: &lr,
			},
			&cli.Int64Flag{
				Name:        "hidden",
				Usage:       "hidden layer width",
				Value:       32,
				Destination: &hidden,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := newLogger()
			ctx = logger.WithContext(ctx, log)

			cfg, err := buildExperimentConfig(cmd)
			if err != nil {
				return err
			}
			cfg.Method = "wo-adapt"
			if cmd.IsSet("epochs") {
				cfg.TrainEpochs = int(epochs)
			}
			if cmd.IsSet("lr") {
				cfg.TrainLR = lr
			}
			if cmd.IsSet("hidden") {
				cfg.Hidden = int(hidden)
			}

			res, err := experiment.Run(ctx, cfg, log)
			if err != nil {
				return err
			}
			fmt.Printf("source val acc %.4f, target acc %.4f\n", res.SourceValAcc, res.TargetAcc)
			if res.Checkpoint != "" {
				fmt.Printf("checkpoint written to %s\n", res.Checkpoint)
			}
			return nil
		},
	}
}

package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/driftlab/gradapt/internal/api"
	"github.com/driftlab/gradapt/internal/logger"
	"github.com/driftlab/gradapt/internal/runlog"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve run logs and results over HTTP",
		Flags: append(append(experimentFlags(), loggingFlags()...),
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := newLogger()
			ctx = logger.WithContext(ctx, log)

			user := LoadUserConfig()
			if user.LogDir != "" && !cmd.IsSet("log-dir") {
				logDir = user.LogDir
			}
			if user.ResultDir != "" && !cmd.IsSet("result-dir") {
				resultDir = user.ResultDir
			}
			if user.ServerAddress != "" && !cmd.IsSet("addr") {
				addr = user.ServerAddress
			}
			if logDir == "" {
				logDir = "runs"
			}
			if resultDir == "" {
				resultDir = "results"
			}

			logs, err := runlog.NewRoot(logDir)
			if err != nil {
				return err
			}
			server := api.NewServer(logs, resultDir)
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr, "log_dir", logDir, "result_dir", resultDir)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}

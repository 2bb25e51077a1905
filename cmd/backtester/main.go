package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/thrasher-corp/backtester/common"
	"github.com/thrasher-corp/backtester/config"
	"github.com/thrasher-corp/backtester/engine"
	"github.com/thrasher-corp/backtester/log"
	"github.com/thrasher-corp/backtester/report"
	"github.com/urfave/cli/v2"
)

var (
	configPath     string
	outputDir      string
	logLevel       string
	generateConfig string
)

func main() {
	app := cli.NewApp()
	app.Name = "backtester"
	app.Usage = "replays historical bars through a strategy and simulated execution"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:        "configpath",
			Aliases:     []string{"c"},
			Value:       "config.yaml",
			Usage:       "the config file to run the backtest with",
			Destination: &configPath,
		},
		&cli.StringFlag{
			Name:        "outputdir",
			Usage:       "overrides the config output directory for run artifacts",
			Destination: &outputDir,
		},
		&cli.StringFlag{
			Name:        "loglevel",
			Usage:       "overrides the config log level eg INFO|WARN|ERROR",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "generateconfig",
			Usage:       "writes a default config to the given path and exits",
			Destination: &generateConfig,
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if generateConfig != "" {
		if err := config.GenerateDefault().SaveConfig(generateConfig); err != nil {
			return err
		}
		fmt.Printf("default config written to %s\n", generateConfig)
		return nil
	}

	cfg, err := config.ReadConfigFromFile(configPath)
	if err != nil {
		return err
	}
	if outputDir != "" {
		cfg.Output.Directory = outputDir
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runBacktest(ctx, cfg)
}

// runBacktest executes a single run and writes its artifacts. Artifacts are
// written for partial results before the run error is returned
func runBacktest(ctx context.Context, cfg *config.Config) error {
	logger, err := log.New(&cfg.Logging)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := logger.Close(); closeErr != nil {
			fmt.Fprintln(os.Stderr, closeErr)
		}
	}()
	sl := logger.SubLogger(common.Backtester)

	bt, err := engine.NewFromConfig(cfg, logger)
	if err != nil {
		return err
	}
	log.Infof(sl, "running backtest with strategy %s", cfg.Strategy.Type)
	result, runErr := bt.Run(ctx)
	if result == nil {
		return runErr
	}
	switch {
	case errors.Is(runErr, engine.ErrRunCancelled):
		log.Warnf(sl, "run cancelled after %d steps, writing partial results", result.Steps)
	case runErr != nil:
		log.Errorf(sl, "run aborted after %d steps: %v", result.Steps, runErr)
	}

	if cfg.Output.Directory != "" {
		if _, err = report.WriteResults(cfg.Output.Directory, result, &cfg.Output, logger.SubLogger(common.Report)); err != nil {
			return errors.Join(runErr, err)
		}
	}
	if result.Metrics != nil {
		result.Metrics.PrintResults(logger.SubLogger(common.Statistics))
	}
	return runErr
}

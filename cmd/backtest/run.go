package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	engine_v1 "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run a strategy against a backtest config and write the results",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:     "strategy",
				Aliases:  []string{"s"},
				Usage:    "Path to the strategy YAML file",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Path to the backtest config YAML file",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "results",
				Aliases: []string{"r"},
				Usage:   "Folder the results are written to",
				Value:   "results",
			},
		}, dataSourceFlags...),
		Action: runAction,
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	strategy, err := types.LoadStrategyConfig(cmd.String("strategy"))
	if err != nil {
		return err
	}

	configPath := cmd.String("config")

	config, err := types.LoadBacktestConfig(configPath)
	if err != nil {
		return err
	}

	ds, err := newDataSource(ctx, cmd, log)
	if err != nil {
		return err
	}
	defer ds.Close()

	marker, err := engine_v1.NewBacktestMarker(log)
	if err != nil {
		return err
	}
	defer marker.Close()

	var bar *progressbar.ProgressBar

	onRunStart := engine.OnRunStartCallback(func(runID string, symbols []string, totalTimestamps int) error {
		log.Info("Backtest started", zap.String("run_id", runID), zap.Strings("symbols", symbols))

		bar = progressbar.NewOptions(totalTimestamps,
			progressbar.OptionSetDescription(fmt.Sprintf("Backtesting %s", strategy.Name)),
			progressbar.OptionShowCount(),
		)

		return nil
	})
	onProcessData := engine.OnProcessDataCallback(func(current int, total int) error {
		return bar.Set(current)
	})
	onSignal := engine.OnSignalCallback(marker.Mark)

	result, err := engine_v1.NewBacktestEngineV1(ds, log).Run(ctx, strategy, config, engine.LifecycleCallbacks{
		OnRunStart:    &onRunStart,
		OnProcessData: &onProcessData,
		OnSignal:      &onSignal,
	})
	if bar != nil {
		_ = bar.Finish()
	}

	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	folder := engine_v1.GetResultFolder(cmd.String("results"), configPath, strategy.Name, config)

	if err := engine_v1.RestoreBacktestState(result, log).Write(folder); err != nil {
		return err
	}

	if err := marker.Write(folder); err != nil {
		return err
	}

	if err := types.WriteBacktestResult(filepath.Join(folder, "stats.yaml"), result); err != nil {
		return err
	}

	log.Info("Backtest completed",
		zap.String("results", folder),
		zap.Int("trades", result.Stats.TotalTrades),
		zap.Float64("total_return", result.Metrics["total_return"]),
	)

	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/marketdata"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func downloadCommand() *cli.Command {
	return &cli.Command{
		Name:  "download",
		Usage: "Download historical bars from Polygon into a parquet file",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "symbol",
				Aliases:  []string{"t"},
				Usage:    "Ticker symbol, repeatable",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "timeframe",
				Usage: "Bar timeframe (1m, 5m, 15m, 30m, 1h, 4h, 1d, 1w, 1M)",
				Value: string(types.TimeframeOneDay),
			},
			&cli.TimestampFlag{
				Name:     "start",
				Aliases:  []string{"s"},
				Usage:    "Start date in `YYYY-MM-DD` format",
				Required: true,
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.TimestampFlag{
				Name:    "end",
				Aliases: []string{"e"},
				Usage:   "End date in `YYYY-MM-DD` format. Defaults to today.",
				Value:   time.Now(),
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Path to the data output directory",
				Value:   "data",
			},
			&cli.BoolFlag{
				Name:  "skip-missing",
				Usage: "Keep going when a symbol has no bars",
			},
		},
		Action: downloadAction,
	}
}

func downloadAction(ctx context.Context, cmd *cli.Command) error {
	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	timeframe, err := types.ParseTimeframe(cmd.String("timeframe"))
	if err != nil {
		return err
	}

	apiKey := os.Getenv("POLYGON_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("POLYGON_API_KEY is required")
	}

	source, err := datasource.NewPolygonDataSource(apiKey, log)
	if err != nil {
		return err
	}
	defer source.Close()

	symbols := cmd.StringSlice("symbol")
	bar := progressbar.NewOptions(len(symbols),
		progressbar.OptionSetDescription("Downloading"),
		progressbar.OptionShowCount(),
	)

	downloader := marketdata.NewDownloader(source, log, func(current int, total int, symbol string) {
		bar.Describe(fmt.Sprintf("Downloaded %s", symbol))
		_ = bar.Set(current)
	})

	path, err := downloader.Download(ctx, marketdata.DownloadParams{
		Symbols:     symbols,
		Timeframe:   timeframe,
		StartDate:   cmd.Timestamp("start"),
		EndDate:     cmd.Timestamp("end"),
		DataPath:    cmd.String("data"),
		SkipMissing: cmd.Bool("skip-missing"),
	})
	_ = bar.Finish()

	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	log.Info("Download completed", zap.String("path", path))

	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/cache"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/urfave/cli/v3"
)

const cacheTTL = time.Hour

var dataSourceFlags = []cli.Flag{
	&cli.StringSliceFlag{
		Name:    "data",
		Aliases: []string{"d"},
		Usage:   "Parquet files or globs with historical bars. Uses Polygon when empty.",
	},
	&cli.StringFlag{
		Name:    "redis",
		Usage:   "Redis address used to cache Polygon bars",
		Sources: cli.EnvVars("REDIS_ADDR"),
	},
}

func newLogger(cmd *cli.Command) (*logger.Logger, error) {
	return logger.NewLoggerWithLevel(cmd.String("log-level"))
}

// newDataSource opens the parquet files given with --data, or Polygon with POLYGON_API_KEY.
// Polygon bars are cached in Redis when an address is configured and in memory otherwise.
func newDataSource(ctx context.Context, cmd *cli.Command, log *logger.Logger) (datasource.DataSource, error) {
	if paths := cmd.StringSlice("data"); len(paths) > 0 {
		ds, err := datasource.NewDataSource(":memory:", log)
		if err != nil {
			return nil, err
		}

		if err := ds.Initialize(paths...); err != nil {
			ds.Close()

			return nil, err
		}

		return ds, nil
	}

	apiKey := os.Getenv("POLYGON_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("either --data or POLYGON_API_KEY is required")
	}

	polygon, err := datasource.NewPolygonDataSource(apiKey, log)
	if err != nil {
		return nil, err
	}

	var c cache.Cache = cache.NewCacheV1()

	if addr := cmd.String("redis"); addr != "" {
		redisCache, err := cache.NewRedisCache(ctx, addr, os.Getenv("REDIS_PASSWORD"), 0)
		if err != nil {
			return nil, err
		}

		c = redisCache
	}

	return datasource.NewCachedDataSource(polygon, c, cacheTTL, log), nil
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/api"
	engine_v1 "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/store"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve strategy management and backtest runs over HTTP",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "Address to listen on",
				Value:   ":8080",
				Sources: cli.EnvVars("BACKTEST_ADDR"),
			},
			&cli.StringFlag{
				Name:    "db",
				Usage:   "DuckDB file holding strategies and results",
				Value:   "backtest.duckdb",
				Sources: cli.EnvVars("BACKTEST_DB"),
			},
		}, dataSourceFlags...),
		Action: serveAction,
	}
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	ds, err := newDataSource(ctx, cmd, log)
	if err != nil {
		return err
	}
	defer ds.Close()

	st, err := store.NewDuckDBStore(cmd.String("db"), log)
	if err != nil {
		return err
	}
	defer st.Close()

	server := &http.Server{
		Addr:              cmd.String("addr"),
		Handler:           api.NewServer(st, engine_v1.NewBacktestEngineV1(ds, log), log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Failed to shut down server", zap.Error(err))
		}
	}()

	log.Info("Listening", zap.String("addr", server.Addr))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

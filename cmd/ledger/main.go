// Command ledger serves the expense ledger gateway over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/GillJordan/Home-expense/internal/backend"
	"github.com/GillJordan/Home-expense/internal/cli"
	"github.com/GillJordan/Home-expense/internal/config"
	"github.com/GillJordan/Home-expense/internal/core"
	"github.com/GillJordan/Home-expense/internal/gateway"
	apphttp "github.com/GillJordan/Home-expense/internal/http"
	"github.com/GillJordan/Home-expense/internal/log"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig((*config.Config).Validate)
	if err != nil {
		log.New(log.DefaultConfig()).Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	opts := []gateway.Option{
		gateway.WithLogger(logger),
		gateway.WithDateMatch(core.DateMatch(cfg.DateMatch)),
	}
	if res.Notifier != nil {
		opts = append(opts, gateway.WithNotifier(res.Notifier))
	}
	svc := gateway.New(res.Store, opts...)

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting ledger server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"date_match", cfg.DateMatch,
			"amqp_enabled", res.Notifier != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return srv.Shutdown(context.Background())
	})

	err = g.Wait()
	if ctx.Err() != nil {
		<-done
	}
	if cerr := res.Cleanup(); cerr != nil {
		logger.Warn("Backend cleanup failed", log.FieldError, cerr)
	}
	if err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

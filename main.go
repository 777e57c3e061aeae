package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"asbaaq-attendance/config"
	"asbaaq-attendance/db"
	"asbaaq-attendance/handlers"
	"asbaaq-attendance/reports"
)

func main() {
	wd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	cfg, err := config.Load(wd)
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg.Debug)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	kv, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer kv.Close()

	roster := db.NewRosterStore(kv, logger)
	if err := roster.Load(ctx, db.DefaultAsbaaq()); err != nil {
		return err
	}
	records := db.NewAttendanceStore(kv, logger)

	apiHandler := handlers.NewAPIHandler(roster, records, logger)

	if cfg.ExportCron != "" {
		exporter := reports.NewExporter(apiHandler.Stats, roster, cfg.ExportDir, logger)
		scheduler := reports.NewScheduler(exporter, logger)
		if err := scheduler.Start(ctx, cfg.ExportCron); err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handlers.NewRouter(apiHandler, logger),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	// Give in-flight requests time to finish
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (db.KVStore, error) {
	switch cfg.Store {
	case "redis":
		client, err := db.InitializeRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err != nil {
			return nil, err
		}
		return db.NewRedisKV(client, logger), nil
	case "memory":
		logger.Warn("using in-memory store, nothing will survive a restart")
		return db.NewMemoryKV(), nil
	default:
		kv, err := db.OpenSQLiteKV(cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		return kv, nil
	}
}

func newLogger(debug bool) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

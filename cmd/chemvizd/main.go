package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"chemviz-backend/config"
	"chemviz-backend/internal/api"
	"chemviz-backend/internal/db"
	"chemviz-backend/internal/logging"
	"chemviz-backend/internal/mw"
	"chemviz-backend/internal/notification"
	"chemviz-backend/internal/service"
	"chemviz-backend/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.L().Warn().Err(err).Msg("failed to read .env")
	}

	flagSet := pflag.NewFlagSet("chemvizd", pflag.ExitOnError)
	configPath := flagSet.StringP("config", "c", "", "path to the YAML config file (default: $CONFIG_PATH or ./config/config.yaml)")
	_ = flagSet.Parse(os.Args[1:])

	path := resolveConfigPath(*configPath)
	cfg, err := config.Load(path)
	if err != nil {
		logging.L().Fatal().Err(err).Str("path", path).Msg("failed to load configuration")
	}

	logging.Init(cfg.Log.Level, cfg.Log.Human)
	log := logging.With("main")
	log.Info().Str("path", path).Msg("configuration loaded")

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB, store.WithBatchSize(cfg.Ingest.BatchSize))
	responseCache := mw.NewResponseCache(cfg.Server.CacheTTL)
	opts := []service.Option{service.OnCommit(responseCache.DatasetCommitted)}

	var webpushOptions *webpush.Options
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		workerPool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions)
		workerPool.Start(ctx)
		opts = append(opts, service.OnCommit(workerPool.DatasetIngested))
		log.Info().Int("workers", cfg.WorkerPool.Size).Msg("push notifications enabled")
	} else {
		log.Warn().Msg("VAPID keys not configured, push notifications disabled")
	}

	svc := service.New(appStore, cfg.Ingest, opts...)
	handler := api.NewHandler(svc, appStore, webpushOptions, cfg.Server.MaxUploadBytes)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewRouter(&cfg.Server, handler, responseCache),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server ListenAndServe")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutdown signal received, stopping services")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server Shutdown")
	}
	cancel()

	if sqlDB, err := gormDB.DB(); err == nil {
		sqlDB.Close()
	}
	log.Info().Msg("server gracefully stopped")
}

func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return "./config/config.yaml"
}

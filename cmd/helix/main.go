package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/helix-search/helix/internal/component/docstore"
	"github.com/helix-search/helix/internal/component/encoder"
	"github.com/helix-search/helix/internal/component/vectorindex"
	"github.com/helix-search/helix/internal/composite"
	"github.com/helix-search/helix/internal/config"
	dbRedis "github.com/helix-search/helix/internal/db/redis"
	logpkg "github.com/helix-search/helix/internal/logger"
	"github.com/helix-search/helix/internal/metrics"
	"github.com/helix-search/helix/internal/pipeline"
	compositerepo "github.com/helix-search/helix/internal/repository/composite"
	chiTransport "github.com/helix-search/helix/internal/transport/chi"
	"github.com/helix-search/helix/internal/usecase/dispatch"
	"github.com/helix-search/helix/internal/version"
)

const routerName = "ingest"

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting helix ingest server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	// Components, in fan-out order: the encoder runs first so the indexers
	// see embedded documents.
	prefix := cfg.Storage.KeyPrefix
	enc := encoder.New(encoder.Config{
		Name:       "encoder",
		APIKey:     cfg.Encoder.APIKey,
		BaseURL:    cfg.Encoder.BaseURL,
		Model:      cfg.Encoder.Model,
		Dimensions: cfg.Encoder.Dimensions,
		KeyPrefix:  prefix,
		Logger:     logger,
	}, store)
	vecIdx := vectorindex.New("vecidx", prefix, store, logger)
	docs := docstore.New("docstore", prefix, store, logger)
	components := []composite.Component{enc, vecIdx, docs}

	descriptors := compositerepo.New(store, prefix)

	// Reuse the persisted composition when one exists; otherwise build fresh.
	var router *composite.Router
	exists, err := descriptors.HasDescriptor(ctx, routerName)
	if err != nil {
		logger.Fatal("Failed to check router descriptor", zap.Error(err))
	}
	if exists {
		router, err = composite.Restore(ctx, descriptors, routerName, components,
			composite.WithLogger(logger))
		if err != nil {
			logger.Fatal("Failed to restore router", zap.Error(err))
		}
		if err := vecIdx.Load(ctx); err != nil {
			logger.Warn("Vector index state not restored", zap.Error(err))
		}
		if err := docs.Load(ctx); err != nil {
			logger.Warn("Document catalog not restored", zap.Error(err))
		}
		logger.Info("Router restored from descriptor",
			zap.Strings("routes", router.Routes()))
	} else {
		router, err = composite.New(routerName, components,
			composite.WithLogger(logger),
			composite.WithDescriptorStore(descriptors),
		)
		if err != nil {
			logger.Fatal("Failed to build router", zap.Error(err))
		}
		logger.Info("Router built", zap.Strings("routes", router.Routes()))
	}

	assembler := pipeline.NewAssembler(logger)
	dispatcher := dispatch.New(router, logger)
	server := chiTransport.NewServer(assembler, dispatcher, router, store, cfg.Pipeline, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Routes(cfg.Auth.APIKeys),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	if err := router.Save(shutdownCtx); err != nil {
		logger.Error("Error saving router state", zap.Error(err))
	}
	if err := router.Close(shutdownCtx); err != nil {
		logger.Error("Error closing components", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

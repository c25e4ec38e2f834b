package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/seantiz/warp/internal/api"
	"github.com/seantiz/warp/internal/config"
	"github.com/seantiz/warp/internal/engine"
	"github.com/seantiz/warp/internal/store"
	"github.com/seantiz/warp/internal/telemetry"
	"github.com/seantiz/warp/internal/topology"
)

const (
	serviceName     = "warp"
	version         = "0.1.0"
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := config.LoadDotenv(); err != nil {
		log.Fatalf("failed to load .env: %v", err)
	}
	cfg := config.Load()
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	logger.Info("warp: starting",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"backends_file", cfg.BackendsFile,
	)

	ctx := context.Background()
	shutdownTracing, err := telemetry.Setup(ctx, serviceName, version, cfg.TraceFile)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}

	specs := config.DefaultBackends(cfg.Workers)
	if cfg.BackendsFile != "" {
		specs, err = config.LoadBackends(cfg.BackendsFile)
		if err != nil {
			log.Fatalf("failed to load backends: %v", err)
		}
	}

	reg, err := topology.Build(specs, logger)
	if err != nil {
		log.Fatalf("failed to build backends: %v", err)
	}

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	eng := engine.NewEngine(db, reg, logger, engine.WithDefaultTimeout(cfg.RunTimeoutS))
	srv := api.NewServer(cfg.ListenAddr, db, reg, eng, logger)

	runErr := srv.Run(ctx)

	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := reg.Close(closeCtx); err != nil {
		logger.Error("close backends", "error", err)
	}
	if err := shutdownTracing(closeCtx); err != nil {
		logger.Error("flush traces", "error", err)
	}

	if runErr != nil {
		log.Fatalf("server error: %v", runErr)
	}
}

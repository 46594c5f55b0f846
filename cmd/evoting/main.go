package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"evoting-backend/internal/biometric"
	"evoting-backend/internal/config"
	"evoting-backend/internal/coordinator"
	"evoting-backend/internal/index"
	"evoting-backend/internal/ledger"
	"evoting-backend/internal/logger"

	"go.uber.org/zap"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger.Initialize(logger.Configuration{
		LogFile:   cfg.LogFile,
		ErrorFile: cfg.ErrorFile,
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
	})

	store, err := index.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("storage initialization failed", zap.Error(err))
	}

	chain, err := ledger.NewContractClient(cfg.RPCURL, cfg.ContractAddress, cfg.PrivateKeyHex, cfg.ChainID)
	if err != nil {
		logger.Fatal("ledger client initialization failed", zap.Error(err))
	}

	extractor := biometric.NewHTTPExtractor(cfg.FaceModelURL, cfg.CallTimeout)
	biometrics := biometric.NewService(extractor, extractor)

	votes := coordinator.New(biometrics, store, chain,
		coordinator.WithCallTimeout(cfg.CallTimeout),
		coordinator.WithMatchThreshold(cfg.MatchThreshold),
	)

	go runReconciler(ctx, votes, cfg.ReconcileEvery)

	logger.Info("evoting backend started",
		zap.String("contract", cfg.ContractAddress),
		zap.Duration("reconcile interval", cfg.ReconcileEvery))

	<-waitForInterrupt()
	logger.Info("interrupt received, shutting down")
	cancel()
}

// runReconciler periodically repairs index rows for votes the chain holds but
// the index lost to a partial failure.
func runReconciler(ctx context.Context, votes *coordinator.Coordinator, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			repaired, err := votes.ReconcileAll(ctx)
			if err != nil {
				logger.Warn("reconciliation pass failed", zap.Error(err))
				continue
			}
			if repaired > 0 {
				logger.Info("reconciliation pass repaired diverged votes", zap.Int("repaired", repaired))
			}
		}
	}
}

func waitForInterrupt() <-chan os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	return sigCh
}

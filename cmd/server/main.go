// Package main is the entry point for the FundGuard investment compliance
// engine. It validates trade orders, evaluates fund rules pre-trade, gates
// breaching trades behind operator overrides, and sweeps full portfolios on
// a schedule.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fundguard/fundguard/internal/config"
	"github.com/fundguard/fundguard/internal/di"
	"github.com/fundguard/fundguard/internal/scheduler"
	"github.com/fundguard/fundguard/internal/server"
	"github.com/fundguard/fundguard/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting FundGuard")

	// Wire all dependencies: database, repositories, services, handlers
	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.DB.Close()

	// Background jobs
	sched := scheduler.New(log)

	sweepJob := scheduler.NewPortfolioSweepJob(container.FundRepo, container.ComplianceService, log)
	backupJob := scheduler.NewBackupJob(container.BackupService)
	maintenanceJob := scheduler.NewMaintenanceJob(container.MaintenanceService)

	if err := sched.AddJob(cfg.PortfolioSweepSchedule, sweepJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register portfolio sweep job")
	}
	if cfg.Backup != nil && cfg.Backup.Enabled {
		if err := sched.AddJob(cfg.BackupSchedule, backupJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to register backup job")
		}
	}
	if err := sched.AddJob(cfg.MaintenanceSchedule, maintenanceJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register maintenance job")
	}

	sched.Start()
	defer sched.Stop()

	// System monitoring endpoints; price feed may be nil when unconfigured
	var feedStatus server.PriceFeedStatus
	if container.PriceFeed != nil {
		feedStatus = container.PriceFeed
	}
	systemHandlers := server.NewSystemHandlers(container.DB, feedStatus, container.BackupService, sched, log)
	systemHandlers.SetJobs(sweepJob, backupJob, maintenanceJob)

	srv := server.New(server.Config{
		Log:                log,
		Config:             cfg,
		DB:                 container.DB,
		EventBus:           container.EventBus,
		FundHandlers:       container.FundHandlers,
		UniverseHandlers:   container.UniverseHandlers,
		RuleHandlers:       container.RuleHandlers,
		AlertHandlers:      container.AlertHandlers,
		ComplianceHandlers: container.ComplianceHandlers,
		TradingHandlers:    container.TradingHandlers,
		SystemHandlers:     systemHandlers,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Market-data feed is optional; the engine prices trades from stored
	// prices either way.
	if container.PriceFeed != nil {
		if err := container.PriceFeed.Start(); err != nil {
			log.Error().Err(err).Msg("Price feed failed to start, reconnecting in background")
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	if container.PriceFeed != nil {
		if err := container.PriceFeed.Stop(); err != nil {
			log.Error().Err(err).Msg("Error stopping price feed")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

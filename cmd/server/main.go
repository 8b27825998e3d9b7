// Package main is the entry point for the Momentor allocation service.
// It resolves the investment universe, scores it monthly, and serves the
// resulting runs and trade plans over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"momentor/internal/clients/wikipedia"
	"momentor/internal/clients/yahoo"
	"momentor/internal/config"
	"momentor/internal/database"
	"momentor/internal/market_regime"
	"momentor/internal/modules/allocation"
	"momentor/internal/modules/marketdata"
	"momentor/internal/modules/portfolio"
	portfoliohandlers "momentor/internal/modules/portfolio/handlers"
	"momentor/internal/modules/rebalancing"
	"momentor/internal/modules/runs"
	runshandlers "momentor/internal/modules/runs/handlers"
	"momentor/internal/modules/scoring"
	"momentor/internal/modules/strategy"
	"momentor/internal/modules/universe"
	"momentor/internal/reliability"
	"momentor/internal/scheduler"
	"momentor/internal/server"
	"momentor/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(logger.Config{Level: "info"})
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.DevMode})
	logger.SetGlobalLogger(log)

	log.Info().Str("data_dir", cfg.DataDir).Int("port", cfg.Port).Msg("Starting Momentor")

	momentorDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "momentor.db"),
		Profile: database.ProfileStandard,
		Name:    "momentor",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open momentor database")
	}
	defer momentorDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	for _, db := range []*database.DB{momentorDB, cacheDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", db.Name()).Msg("Failed to migrate database")
		}
	}

	// Market data: Yahoo behind the two-level cache
	yahooClient := yahoo.NewClient(log)
	cacheRepo := marketdata.NewCacheRepository(cacheDB.Conn(), log)
	marketData := marketdata.NewService(yahooClient, cacheRepo, log)

	// Strategy pipeline
	wikiClient := wikipedia.NewClient(log)
	resolver := universe.NewResolver(log)
	regime := market_regime.NewDetector(marketData, cfg.BenchmarkSymbol, log)
	trendFilter := scoring.NewTrendFilter(marketData, log)
	scorer := scoring.NewScorer(marketData, log)
	builder := allocation.NewBuilder(cfg.AnchorSymbol, cfg.AnchorName, cfg.AnchorWeight, log)
	strat := strategy.NewMomentumVola(wikiClient, resolver, regime, trendFilter, scorer, builder, cfg.TopN, log)

	// Persistence and services
	runRepo := runs.NewRepository(momentorDB.Conn(), log)
	positionRepo := portfolio.NewPositionRepository(momentorDB.Conn(), log)
	portfolioSvc := portfolio.NewService(positionRepo, marketData, runRepo, log)
	rebalanceSvc := rebalancing.NewService(log)
	runSvc := runs.NewService(strat, portfolioSvc, positionRepo, marketData, rebalanceSvc, runRepo, log)

	// Remote backups are optional; the service runs fine without them
	var backupSvc *reliability.BackupService
	if cfg.Backup.Enabled() {
		store, err := reliability.NewObjectStore(context.Background(), reliability.ObjectStoreConfig{
			Endpoint:        cfg.Backup.Endpoint,
			Bucket:          cfg.Backup.Bucket,
			AccessKeyID:     cfg.Backup.AccessKeyID,
			SecretAccessKey: cfg.Backup.SecretAccessKey,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize backup storage")
		}
		backupSvc = reliability.NewBackupService(
			store,
			[]*database.DB{momentorDB, cacheDB},
			cfg.DataDir,
			cfg.Backup.RetainCount,
			log,
		)
		log.Info().Str("bucket", cfg.Backup.Bucket).Msg("Remote backups enabled")
	}

	var sched *scheduler.Scheduler
	if cfg.EnableAutoScheduling {
		sched, err = scheduler.New(cfg.Timezone, runRepo, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize scheduler")
		}
		if err := sched.AddMonthlyJob(scheduler.NewMonthlyRunJob(runSvc)); err != nil {
			log.Fatal().Err(err).Msg("Failed to register monthly run job")
		}
		if backupSvc != nil {
			if err := sched.AddJob("30 2 * * *", scheduler.NewBackupJob(backupSvc)); err != nil {
				log.Fatal().Err(err).Msg("Failed to register backup job")
			}
		}
		sched.Start()
		defer sched.Stop()
	}

	srv := server.New(server.Config{
		Port:             cfg.Port,
		DevMode:          cfg.DevMode,
		Log:              log,
		RunsHandler:      runshandlers.NewHandler(runSvc, runRepo, log),
		PortfolioHandler: portfoliohandlers.NewHandler(portfolioSvc, positionRepo, runRepo, log),
		SystemHandlers:   server.NewSystemHandlers([]*database.DB{momentorDB, cacheDB}, sched, backupSvc, log),
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
}

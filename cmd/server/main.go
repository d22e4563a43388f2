// Command server runs the blochd HTTP API.
//
// blochd simulates small quantum circuits step by step and serves the
// per-step Bloch sphere trajectory of a chosen qubit, along with
// measurement sampling, circuit persistence and OpenQASM export.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aristath/blochd/internal/config"
	"github.com/aristath/blochd/internal/database"
	"github.com/aristath/blochd/internal/modules/circuits"
	"github.com/aristath/blochd/internal/modules/engine"
	"github.com/aristath/blochd/internal/modules/measurement"
	"github.com/aristath/blochd/internal/modules/snapshots"
	"github.com/aristath/blochd/internal/server"
	"github.com/aristath/blochd/pkg/logger"
)

// Snapshot sequences older than this are dropped by the maintenance job.
const cacheMaxAge = 30 * time.Minute

func main() {
	// Load configuration first to get log level.
	// Configuration comes from environment variables (.env file).
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

	log.Info().Msg("Starting blochd")

	// Circuits database holds saved circuit definitions and their last
	// computed snapshot sequences.
	circuitsDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "circuits.db"),
		Profile: database.ProfileStandard,
		Name:    "circuits",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open circuits database")
	}
	defer circuitsDB.Close()

	circuitRepo := circuits.NewRepository(circuitsDB.Conn(), log)
	if err := circuitRepo.InitSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize circuits schema")
	}

	// Core simulation pipeline: simulator, snapshot cache, shot sampler.
	sim := engine.New(engine.Config{
		MaxQubits: cfg.MaxQubits,
		MaxGates:  cfg.MaxGates,
	}, log)
	cache := snapshots.NewCache(cfg.CacheSize, log)
	sampler := measurement.NewSampler(cfg.MaxShots, log)
	circuitService := circuits.NewService(sim, cache, sampler, cfg.DefaultShots, log)

	srv := server.New(server.Config{
		Port:           cfg.Port,
		Log:            log,
		CircuitsDB:     circuitsDB,
		Config:         cfg,
		CircuitService: circuitService,
		CircuitRepo:    circuitRepo,
		DevMode:        cfg.DevMode,
	})

	// Periodic maintenance: prune stale cached sequences and checkpoint the
	// WAL so the database file does not grow unbounded.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@every 15m", func() {
		removed := circuitService.PruneCache(cacheMaxAge)
		log.Debug().Int("removed", removed).Msg("Cache maintenance completed")

		if err := circuitsDB.WALCheckpoint("TRUNCATE"); err != nil {
			log.Warn().Err(err).Msg("WAL checkpoint failed")
		}
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to register maintenance job")
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Start server in goroutine so the main thread can wait on signals.
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// In-flight requests get up to 10 seconds to complete.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

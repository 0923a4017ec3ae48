// Package main is the entry point for the steel transition simulator. It
// loads the input dataset, restores the latest checkpoint if one exists, runs
// the yearly decision loop, and serves run status and results over HTTP.
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

	"github.com/systemiqofficial/steel-iq-sub000/internal/config"
	"github.com/systemiqofficial/steel-iq-sub000/internal/database"
	"github.com/systemiqofficial/steel-iq-sub000/internal/dataset"
	"github.com/systemiqofficial/steel-iq-sub000/internal/events"
	"github.com/systemiqofficial/steel-iq-sub000/internal/modules/checkpoint"
	"github.com/systemiqofficial/steel-iq-sub000/internal/modules/environment"
	"github.com/systemiqofficial/steel-iq-sub000/internal/modules/results"
	"github.com/systemiqofficial/steel-iq-sub000/internal/server"
	"github.com/systemiqofficial/steel-iq-sub000/internal/simulation"
	"github.com/systemiqofficial/steel-iq-sub000/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting steel transition simulator")

	ds, err := dataset.Load(filepath.Join(cfg.DataDir, "input"), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load input dataset")
	}

	checkpointDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "checkpoint.db"),
		Profile: database.ProfileCheckpoint,
		Name:    "checkpoint",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open checkpoint database")
	}
	defer checkpointDB.Close()

	resultsDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "results.db"),
		Profile: database.ProfileResults,
		Name:    "results",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open results database")
	}
	defer resultsDB.Close()

	if err := checkpointDB.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate checkpoint database")
	}
	if err := resultsDB.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate results database")
	}

	env := environment.New(ds.Environment, log)
	recorder := events.NewRecorder(256)
	checkpoints := checkpoint.NewStore(checkpointDB, log)
	resultsRepo := results.NewRepository(resultsDB, log)

	sim := cfg.Simulation
	svc := simulation.New(simulation.Config{
		StartYear:             sim.StartYear,
		EndYear:               sim.EndYear,
		Seed:                  uint64(sim.Seed),
		Deterministic:         sim.Deterministic,
		HorizonYears:          sim.HorizonYears,
		RenovationCycleYears:  sim.RenovationCycleYears,
		SteelCapacityLimit:    sim.SteelCapacityLimit,
		IronCapacityLimit:     sim.IronCapacityLimit,
		NewPlantReservedShare: sim.NewPlantReservedShare,
		VolumeTolerance:       sim.VolumeTolerance,
		ExpansionCapacity:     sim.ExpansionCapacity,
	}, env, ds.PlantGroups, checkpoints, resultsRepo, recorder, log)

	// Resume from the latest checkpoint when one exists; fresh runs start from
	// the dataset's fleet.
	if year, ok, err := checkpoints.LatestYear(); err != nil {
		log.Fatal().Err(err).Msg("Failed to query checkpoints")
	} else if ok {
		state, err := checkpoints.Restore(year)
		if err != nil {
			log.Fatal().Err(err).Int("year", year).Msg("Failed to restore checkpoint")
		}
		svc.Restore(state)
		log.Info().Int("year", year).Msg("Resumed from checkpoint")
	}

	srv := server.New(server.Config{
		Log:      log,
		Service:  svc,
		Results:  resultsRepo,
		Recorder: recorder,
		Port:     cfg.Port,
		DevMode:  cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Port).Msg("Server started")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runDone := make(chan error, 1)
	go func() {
		runDone <- svc.Run(ctx, ds)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-runDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Simulation run failed")
		} else {
			log.Info().Msg("Simulation run completed")
		}
		// Keep serving results until interrupted.
		<-quit
	case <-quit:
		log.Info().Msg("Interrupt received, stopping run")
		cancel()
		<-runDone
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

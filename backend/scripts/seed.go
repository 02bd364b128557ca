package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"persinteret/backend/internal/app"
	"persinteret/backend/internal/state"
	"persinteret/backend/pkg/config"
	"persinteret/backend/pkg/logger"
)

// samplePeople are saved in order; later entries may name earlier ones and
// the reverse links are filled in by the repository.
var samplePeople = []state.Person{
	{Name: "Harold Finch", CodeName: "Admin", Status: state.StatusFree, DateOfBirth: "1960-02-14"},
	{Name: "John Reese", CodeName: "The Man in the Suit", Status: state.StatusFree, DateOfBirth: "1970-05-12", Connections: []string{"Harold Finch"}},
	{Name: "Jocelyn Carter", Status: state.StatusDead, DateOfBirth: "1975-09-09", Connections: []string{"John Reese", "Lionel Fusco"}},
	{Name: "Lionel Fusco", Status: state.StatusFree, DateOfBirth: "1968-04-04", Connections: []string{"John Reese"}},
	{Name: "Root", CodeName: "Analog Interface", Status: state.StatusMissing, DateOfBirth: "1985-01-01", Connections: []string{"Harold Finch", "Sameen Shaw"}},
	{Name: "Sameen Shaw", Status: state.StatusFree, DateOfBirth: "1982-03-01", Connections: []string{"John Reese"}},
	{Name: "Nathan Ingram", Status: state.StatusDead, DateOfBirth: "1958-02-02", Connections: []string{"Harold Finch"}},
}

func main() {
	reset := flag.Bool("reset", false, "Delete all persons and photos before seeding")
	photosDir := flag.String("photos", "", "Directory with <name>.jpg photos to attach (optional)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	// Initialize logger
	if err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting database seeding...")

	ctx := context.Background()
	a, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to open stores", zap.Error(err))
	}
	defer a.Close()

	log.Info("Creating constraints...")
	if err := a.Graph.EnsureSchema(ctx); err != nil {
		log.Warn("Failed to create some constraints (may already exist)", zap.Error(err))
	}

	if *reset {
		log.Warn("Resetting all data")
		if err := a.Service.DeleteAll(ctx); err != nil {
			log.Fatal("Failed to reset data", zap.Error(err))
		}
	}

	created := 0
	for _, sample := range samplePeople {
		p := sample
		if *photosDir != "" {
			if data, err := os.ReadFile(filepath.Join(*photosDir, p.Name+".jpg")); err == nil {
				p.Photo = data
			}
		}

		if err := a.Service.Save(ctx, &p); err != nil {
			log.Warn("Skipping person", zap.String("name", p.Name), zap.Error(err))
			continue
		}
		created++
		log.Info("Person seeded",
			zap.String("name", p.Name),
			zap.String("id", p.ID),
			zap.Strings("connections", p.Connections),
		)
	}

	stats, err := a.Service.Stats(ctx)
	if err != nil {
		log.Warn("Failed to compute statistics", zap.Error(err))
		os.Exit(0)
	}

	log.Info("Seeding complete",
		zap.Int("created", created),
		zap.Int64("people", stats.PeopleCount),
		zap.Int64("photos", stats.PhotoCount),
		zap.Int("free_ratio", stats.FreeRatio),
		zap.String("next_target", stats.NextTarget),
	)
}

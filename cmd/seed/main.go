// Command seed fills the configured database with demo data.
//
//	go run ./cmd/seed                    # embedded fixture
//	go run ./cmd/seed -file my-data.json # custom fixture
//
// It reads the same configuration as the server (DB_DRIVER, DB_PATH,
// DATABASE_URL, ...). Run it against an empty database: users are unique, so
// a second run stops at the first duplicate.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/sakif/buddy-system/internal/auth"
	"github.com/sakif/buddy-system/internal/config"
	"github.com/sakif/buddy-system/internal/seed"
	"github.com/sakif/buddy-system/internal/server"
	"github.com/sakif/buddy-system/internal/service"
)

func main() {
	file := flag.String("file", "", "seed fixture (JSON); defaults to the embedded demo data")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(context.Background(), cfg, *file, logger); err != nil {
		logger.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, file string, logger *slog.Logger) error {
	fixture, err := loadFixture(file)
	if err != nil {
		return err
	}

	store, err := server.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	tokens, err := auth.NewTokenService(cfg.JWTKey)
	if err != nil {
		return err
	}
	passwords := auth.NewPasswordService()

	authService := service.NewAuthService(store.Users(), tokens, passwords, logger)
	animalService := service.NewAnimalService(store.Animals(), store.Users(), store.Fosters(), logger)

	_, err = seed.NewSeeder(authService, animalService, logger).Apply(ctx, fixture)
	return err
}

func loadFixture(file string) (*seed.Fixture, error) {
	if file == "" {
		return seed.Default()
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return seed.Load(f)
}

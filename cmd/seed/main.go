package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/simp-lee/peopleadmin/internal/config"
	"github.com/simp-lee/peopleadmin/internal/domain"
	"github.com/simp-lee/peopleadmin/internal/module/people"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	count := flag.Int("count", 100, "number of people to insert")
	seed := flag.Int64("seed", 0, "random seed; 0 picks one from the clock")
	flag.Parse()

	if err := run(*configPath, *count, *seed); err != nil {
		log.Fatal(err)
	}
}

func run(configPath string, count int, seed int64) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logr, err := config.SetupLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer logr.Close()

	db, err := config.SetupDatabase(&cfg.Database, logr.Logger)
	if err != nil {
		return fmt.Errorf("setup database: %w", err)
	}
	defer config.Close(db)

	if err := db.AutoMigrate(&domain.Person{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	n, err := people.Seed(ctx, db, count, seed)
	if err != nil {
		return fmt.Errorf("seed people: %w", err)
	}
	logr.Info("people seeded", slog.Int("count", n), slog.Int64("seed", seed))
	return nil
}

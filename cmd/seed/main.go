package main

import (
	"flag"
	"os"

	"emotion-character-demo/backend/internal/repository"
	"emotion-character-demo/backend/internal/seed"
	"emotion-character-demo/backend/pkg/config"
	"emotion-character-demo/backend/pkg/logger"
)

func main() {
	reset := flag.Bool("reset", false, "Delete existing keywords and recommendations first")
	emotion := flag.String("emotion", "", "Only seed keywords for this emotion")
	file := flag.String("file", "", "Seed from this YAML file instead of the built-in data")
	flag.Parse()

	cfg := config.New()

	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"
	log := logger.New(logConfig)
	logger.SetGlobal(log)

	data, err := loadData(*file)
	if err != nil {
		log.LogError(err, "Failed to load seed data", "file", *file)
		os.Exit(1)
	}

	db, err := config.NewDB(cfg, log)
	if err != nil {
		log.LogError(err, "Failed to initialize database")
		os.Exit(1)
	}
	if err := repository.Migrate(db); err != nil {
		log.LogError(err, "Failed to migrate database")
		os.Exit(1)
	}

	if _, err := seed.Run(db, data, seed.Options{Reset: *reset, Emotion: *emotion}, log); err != nil {
		log.LogError(err, "Seeding failed")
		os.Exit(1)
	}
}

func loadData(path string) (*seed.Data, error) {
	if path == "" {
		return seed.Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return seed.Parse(raw)
}

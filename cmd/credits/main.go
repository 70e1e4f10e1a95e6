package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"emotion-character-demo/backend/internal/repository"
	"emotion-character-demo/backend/internal/service"
	"emotion-character-demo/backend/pkg/config"
	"emotion-character-demo/backend/pkg/logger"
)

func main() {
	userID := flag.Uint("user", 0, "User to top up")
	amount := flag.Int("add", 0, "Credits to add")
	flag.Parse()

	cfg := config.New()

	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"
	log := logger.New(logConfig)
	logger.SetGlobal(log)

	if *userID == 0 {
		fmt.Fprintln(os.Stderr, "usage: credits -user <id> -add <n>")
		os.Exit(2)
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

	repos := repository.New(db, cfg.Credits.InitialGrant)
	credits := service.NewCreditService(repos.Credits, cfg.Credits.TurnCost)

	balance, err := credits.Grant(context.Background(), *userID, *amount)
	if err != nil {
		log.LogError(err, "Failed to grant credits", "user_id", *userID, "amount", *amount)
		os.Exit(1)
	}
	log.Info("Credits granted", "user_id", *userID, "amount", *amount, "balance", balance.FreeCredits)
}

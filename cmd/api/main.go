package main

import (
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/jobtrail-io/jobtrail/internal/api"
	"github.com/jobtrail-io/jobtrail/internal/auth"
	"github.com/jobtrail-io/jobtrail/internal/config"
	"github.com/jobtrail-io/jobtrail/internal/database"
	"github.com/jobtrail-io/jobtrail/internal/notify"
	"github.com/jobtrail-io/jobtrail/internal/pro"
	"github.com/jobtrail-io/jobtrail/internal/store"
)

const version = "0.1.0"

func initializeAPI(configPath string) (*api.Api, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}

	st := store.New(db, cfg.DatabaseType)
	notifier := notify.NewNotifier(cfg)
	tokens := auth.NewTokenManager(cfg.JWTSecret, time.Duration(cfg.AccessTokenTTLMin)*time.Minute)
	authSvc := auth.NewService(st, tokens, notifier, time.Duration(cfg.RefreshTTLDays)*24*time.Hour, cfg.BcryptCost)
	proSvc := pro.NewService(st, notifier,
		time.Duration(cfg.PendingCooldownDays)*24*time.Hour,
		time.Duration(cfg.DenialCooldownDays)*24*time.Hour,
		cfg.OpsEmail)

	return api.NewApi(*cfg, st, authSvc, proSvc, tokens), nil
}

func main() {
	configPath := flag.String("config", "app.yml", "Path to configuration file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	log.Printf("Starting JobTrail API v%s with config: %s", version, *configPath)

	api, err := initializeAPI(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	api.Serve()
}

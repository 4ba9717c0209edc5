package main

import (
	"context"
	"os"
	"time"

	"digigold-backend/internal/application/emails"
	"digigold-backend/internal/application/notifications"
	"digigold-backend/internal/application/plans"
	"digigold-backend/internal/application/scheduler"
	"digigold-backend/internal/config"
	"digigold-backend/internal/infrastructure/database"
	"digigold-backend/internal/interfaces/router"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	if cfg.Env == "production" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	app, db, rdb, err := router.CreateApp(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("app create failed")
	}

	if db != nil {
		sqlDB, err := db.DB()
		if err != nil {
			log.Fatal().Err(err).Msg("database handle unavailable")
		}
		if err := sqlDB.Ping(); err != nil {
			log.Fatal().Err(err).Msg("database connection failed")
		}
		log.Info().Msg("Postgres connected")

		if cfg.AutoMigrate {
			if err := database.AutoMigrate(db); err != nil {
				log.Fatal().Err(err).Msg("migration failed")
			}
			log.Info().Msg("migrations applied")
		}
	}
	if rdb != nil {
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatal().Err(err).Msg("redis connection failed")
		}
		log.Info().Msg("Redis connected")
	}

	// Daily maturity sweep runs in the market timezone so "day 30" means the
	// same calendar day users see.
	if db != nil {
		loc, err := time.LoadLocation(cfg.MarketTimezone)
		if err != nil {
			log.Fatal().Err(err).Str("tz", cfg.MarketTimezone).Msg("invalid market timezone")
		}
		var emailSender emails.Sender
		if cfg.SendinblueAPIKey != "" {
			emailSender = &emails.BrevoClient{APIKey: cfg.SendinblueAPIKey, MailFrom: cfg.MailFrom}
		}
		notifier := &notifications.Service{DB: db, Emails: emailSender}
		maturity := &scheduler.Maturity{Plans: &plans.Service{DB: db, Notifier: notifier}}
		maturity.Start(loc)
		defer maturity.Stop()
	}

	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server listening")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env           string
	Port          string
	SessionSecret string
	DatabaseURL   string
	RedisURL      string

	// AutoMigrate runs schema migrations at startup. Off by default; pooled
	// production databases are migrated out of band.
	AutoMigrate bool

	// Brevo transactional email (offline-payment OTPs, settlement notices).
	SendinblueAPIKey string
	MailFrom         string

	// Market window defaults; the admin-set MarketStatus row overrides the
	// times, the timezone is deployment-wide.
	MarketTimezone string
	MarketOpen     string
	MarketClose    string
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = viper.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL_DEV")
	}

	return &Config{
		Env:              env,
		Port:             port,
		SessionSecret:    viper.GetString("SESSION_SECRET"),
		DatabaseURL:      dbURL,
		RedisURL:         viper.GetString("REDIS_URL"),
		AutoMigrate:      viper.GetBool("DB_AUTO_MIGRATE"),
		SendinblueAPIKey: viper.GetString("SENDINBLUE_API_KEY"),
		MailFrom:         viper.GetString("MAIL_FROM"),
		MarketTimezone:   withDefault(viper.GetString("MARKET_TIMEZONE"), "Asia/Kolkata"),
		MarketOpen:       withDefault(viper.GetString("MARKET_OPEN"), "10:00"),
		MarketClose:      withDefault(viper.GetString("MARKET_CLOSE"), "18:00"),
	}, nil
}

func withDefault(s, def string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	MongoURI      string `env:"BOT_MONGODB_URI,required"`
	MongoDatabase string `env:"BOT_MONGODB_NAME" envDefault:"club-bot"`

	Port         int    `env:"PORT" envDefault:"8080"`
	GatewayURL   string `env:"BOT_GATEWAY_URL,required"`
	GatewayToken string `env:"BOT_GATEWAY_TOKEN"`

	ModRoleID       int64 `env:"BOT_MOD_ROLE_ID,required"`
	MuteRoleID      int64 `env:"BOT_MUTE_ROLE_ID"`
	ClubsCategoryID int64 `env:"BOT_CLUBS_CATEGORY_ID"`
	ReviewChannelID int64 `env:"BOT_REVIEW_CHANNEL_ID"`
	LogChannelID    int64 `env:"BOT_LOG_CHANNEL_ID"`

	SweepInterval   time.Duration `env:"BOT_SWEEP_INTERVAL" envDefault:"30s"`
	CacheInterval   time.Duration `env:"BOT_CACHE_INTERVAL" envDefault:"40s"`
	CacheStaleAfter time.Duration `env:"BOT_CACHE_STALE_AFTER" envDefault:"30s"`
	ReapInterval    time.Duration `env:"BOT_REAP_INTERVAL" envDefault:"5m"`

	LogLevel string `env:"BOT_LOG_LEVEL" envDefault:"info"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

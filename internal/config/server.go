package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type ServerConfig struct {
	PostgresDSN string `env:"POSTGRES_DSN,required,notEmpty"`
	RedisAddr   string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB     int    `env:"REDIS_DB" envDefault:"0"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	RewardServiceURL string        `env:"REWARD_SERVICE_URL"`
	RewardTimeout    time.Duration `env:"REWARD_TIMEOUT" envDefault:"10s"`

	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
	SweepMaxAge   time.Duration `env:"SWEEP_MAX_AGE" envDefault:"30m"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}

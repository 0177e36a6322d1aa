package config

import "github.com/caarlos0/env/v11"

type BotConfig struct {
	APIBase  string `env:"API_BASE" envDefault:"http://localhost:8080"`
	WSBase   string `env:"WS_BASE" envDefault:"ws://localhost:8080"`
	PlayerID string `env:"PLAYER_ID" envDefault:"bot"`
	BeastID  string `env:"BEAST_ID" envDefault:""`
	RoomCode string `env:"ROOM_CODE" envDefault:""`
}

func LoadBot() (BotConfig, error) {
	var cfg BotConfig
	err := env.Parse(&cfg)
	return cfg, err
}

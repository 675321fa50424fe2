package main

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	WebsocketURL string `envconfig:"PROBE_WS_URL" default:"ws://localhost:8080/ws"`
	APIURL       string `envconfig:"PROBE_API_URL" default:"http://localhost:8080"`
	// PROBE_TOKEN wins over minting a token with SECRET_KEY
	Token     string        `envconfig:"PROBE_TOKEN"`
	SecretKey string        `envconfig:"SECRET_KEY"`
	UserID    int64         `envconfig:"PROBE_USER_ID" default:"1"`
	Colours   bool          `envconfig:"PROBE_COLOURS" default:"true"`
	Duration  time.Duration `envconfig:"PROBE_DURATION" default:"0s"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}

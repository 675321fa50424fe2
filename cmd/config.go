package main

import (
	"fmt"
	"strings"
	"time"

	"realtime-hub/session"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

type Config struct {
	Host               string        `env:"HOST,default=0.0.0.0"`
	Port               int           `env:"PORT,default=8080" validate:"gt=0,lt=65536"`
	HealthPort         int           `env:"HEALTH_PORT,default=50051" validate:"gt=0,lt=65536,nefield=Port"`
	SecretKey          string        `env:"SECRET_KEY,required=true" validate:"min=16"`
	LogLevel           string        `env:"LOG_LEVEL,default=INFO"`
	StorageDriver      string        `env:"STORAGE_DRIVER,default=badger" validate:"oneof=badger postgres"`
	BadgerFilepath     string        `env:"BADGER_FILEPATH,default=./data/badger" validate:"required_if=StorageDriver badger"`
	DatabaseURL        string        `env:"DATABASE_URL" validate:"required_if=StorageDriver postgres"`
	LimitMessages      *int          `env:"LIMIT_MESSAGES"`
	MaxContentLength   int           `env:"MAX_CONTENT_LENGTH,default=4096" validate:"gte=0"`
	PingInterval       time.Duration `env:"PING_INTERVAL,default=30s"`
	PongWait           time.Duration `env:"PONG_WAIT,default=60s" validate:"gtfield=PingInterval"`
	WriteWait          time.Duration `env:"WRITE_WAIT,default=10s"`
	MaxMessageSize     int           `env:"MAX_MESSAGE_SIZE,default=65536" validate:"gt=0"`
	OutboundBufferSize int           `env:"OUTBOUND_BUFFER_SIZE,default=256" validate:"gt=0"`
	NackUnreachable    bool          `env:"NACK_UNREACHABLE,default=false"`
	CloseReplaced      bool          `env:"CLOSE_REPLACED,default=true"`
	AllowedOrigins     string        `env:"ALLOWED_ORIGINS"`
	RestartInterval    time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	MetricInterval     time.Duration `env:"METRIC_INTERVAL,default=1m" validate:"gt=0"`
}

func LoadConfig() (Config, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := validator.New().Struct(config); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

func (c Config) SessionConfig() session.Config {
	return session.Config{
		PingInterval:       c.PingInterval,
		PongWait:           c.PongWait,
		WriteWait:          c.WriteWait,
		MaxMessageSize:     int64(c.MaxMessageSize),
		OutboundBufferSize: c.OutboundBufferSize,
		NackUnreachable:    c.NackUnreachable,
		CloseReplaced:      c.CloseReplaced,
	}
}

// Origins splits ALLOWED_ORIGINS. Empty means any origin.
func (c Config) Origins() []string {
	return lo.Compact(lo.Map(strings.Split(c.AllowedOrigins, ","), func(origin string, _ int) string {
		return strings.TrimSpace(origin)
	}))
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) HealthAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HealthPort)
}

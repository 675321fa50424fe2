package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

// Config points the suite at a running hub. Scenarios skip when E2E_HTTP_ADDR is empty.
type Config struct {
	HTTPAddr   string `envconfig:"E2E_HTTP_ADDR"`
	HealthAddr string `envconfig:"E2E_HEALTH_ADDR"`
	// SECRET_KEY must match the server's to mint tokens
	SecretKey string `envconfig:"SECRET_KEY"`
	// E2E_DEBUG_JSON allows dumping full gRPC request/response bodies as JSON
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
	// E2E_FIRST_USER_ID keeps parallel runs against the same hub apart
	FirstUserID int64 `envconfig:"E2E_FIRST_USER_ID" default:"900000"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}

package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// RELAY_ADDR points at a running relay, e.g. http://localhost:8080.
	// The suite skips when it is empty so `go test ./...` stays green
	// without a server.
	RelayAddr string `envconfig:"RELAY_ADDR"`
	RelayWS   string `envconfig:"RELAY_WS"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}

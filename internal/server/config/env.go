package config

import (
	"github.com/caarlos0/env/v11"
)

const envPrefix = "CERTHUB_"

// parseEnv overlays CERTHUB_* variables. environ replaces the process
// environment when non-nil (tests).
func parseEnv(config *Config, environ map[string]string) {
	opts := env.Options{Prefix: envPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(config, opts); err != nil {
		panic(err)
	}
}

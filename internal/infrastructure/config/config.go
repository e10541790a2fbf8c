package config

import "github.com/kelseyhightower/envconfig"

// Database holds Turso database configuration.
type Database struct {
	URL       string `envconfig:"TURSO_DATABASE_URL" required:"true"`
	AuthToken string `envconfig:"TURSO_AUTH_TOKEN"`
}

// Engine holds the significance knobs and server settings.
type Engine struct {
	Database      Database
	Port          int     `envconfig:"PROMPTLAB_PORT" default:"8080"`
	MinSamples    int64   `envconfig:"PROMPTLAB_MIN_SAMPLES" default:"30"`
	Alpha         float64 `envconfig:"PROMPTLAB_ALPHA" default:"0.05"`
	AllocatorSeed int64   `envconfig:"PROMPTLAB_ALLOCATOR_SEED"`
}

// Load reads engine configuration from environment variables.
func Load() (*Engine, error) {
	var cfg Engine
	if err := envconfig.Process("", &cfg.Database); err != nil {
		return nil, err
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Env holds process-level settings read from the environment.
type Env struct {
	ConfigPath string `env:"INKDISPLAY_CONFIG" envDefault:"device.yaml"`
	ImageDir   string `env:"INKDISPLAY_IMAGE_DIR" envDefault:"images"`
	HTTPPort   int    `env:"INKDISPLAY_HTTP_PORT" envDefault:"8080"`
	Mode       string `env:"INKDISPLAY_ENV" envDefault:"production"`
	RedisAddr  string `env:"INKDISPLAY_REDIS_ADDR"`
	UserAgent  string `env:"INKDISPLAY_USER_AGENT" envDefault:"inkdisplay/1.0"`
}

// Development reports whether verbose development logging is requested.
func (e Env) Development() bool {
	return e.Mode == "development"
}

// LoadEnv loads an optional .env file and parses the environment.
// A missing .env file is not an error; loaded reports whether one was found.
func LoadEnv(files ...string) (cfg Env, loaded bool, err error) {
	loaded = godotenv.Load(files...) == nil

	if err := env.Parse(&cfg); err != nil {
		return Env{}, loaded, fmt.Errorf("parse env: %w", err)
	}
	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		return Env{}, loaded, fmt.Errorf("invalid INKDISPLAY_HTTP_PORT %d", cfg.HTTPPort)
	}
	return cfg, loaded, nil
}

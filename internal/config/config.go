package config

import (
	"github.com/caarlos0/env/v6"
)

type App struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DB         DB
	Nats       Nats
	API        API
	Prometheus Prometheus
	Health     Health
	Vault      Vault
}

func GetConfig() (App, error) {
	var cfg App
	if err := env.Parse(&cfg); err != nil {
		return App{}, err
	}

	return cfg, nil
}

package config

import "time"

type API struct {
	Bind         string        `env:"API_SERVER_BIND" envDefault:":11200"`
	ReadTimeout  time.Duration `env:"API_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout time.Duration `env:"API_WRITE_TIMEOUT" envDefault:"10s"`
}

package config

type DB struct {
	DSN                string `env:"DATABASE_DSN" envDefault:"host=localhost user=postgres dbname=featured_storage sslmode=disable"`
	MaxOpenConnections int    `env:"DATABASE_MAX_OPEN_CONNECTIONS" envDefault:"25"`
	Debug              bool   `env:"DATABASE_DEBUG" envDefault:"false"`
}

package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/EngageMedia-video/featured-storage/internal"
	"github.com/EngageMedia-video/featured-storage/internal/config"
)

func main() {
	cfg, err := config.GetConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("unable to parse config")
	}

	initLogging(cfg.LogLevel)

	app, err := internal.NewApplication(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to create application")
	}

	log.Info().Msg("application is running")

	app.Run()
}

func initLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

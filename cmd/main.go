package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"

	"homebot/internal/app"
	"homebot/internal/config"
	"homebot/internal/logging"
)

func main() {
	ctx := context.Background()
	boot := zerolog.New(os.Stderr).With().Timestamp().Logger()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
	if err != nil {
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}
	log, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: cfg.LogOutput})
	if err != nil {
		boot.Fatal().Err(err).Msg("failed to create logger")
	}

	// ---- Dependencies ----
	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build app")
	}

	lambda.Start(a.Handler.Handle)
}

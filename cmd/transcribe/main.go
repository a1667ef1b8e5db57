package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"

	"github.com/obiente/translate/scribe/internal/app"
	"github.com/obiente/translate/scribe/internal/config"
	"github.com/obiente/translate/scribe/internal/oneshot"
	"github.com/obiente/translate/scribe/internal/stream"
	"github.com/obiente/translate/scribe/internal/whisper"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		app.NewLogger(os.Stderr, "")
		log.Error().Err(err).Msg("config validation failed")
		return oneshot.ExitFault
	}
	logger := app.NewLogger(os.Stderr, cfg.LogLevel)
	injector := app.New(cfg, logger, whisper.NewEngine)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &oneshot.Command{
		Stdout: os.Stdout,
		Log:    logger,
		NewEngine: func() (whisper.Engine, error) {
			return do.Invoke[whisper.Engine](injector)
		},
		LoopOptions: []stream.Option{
			stream.WithTranscribeOptions(app.TranscribeOptions(cfg)),
		},
	}
	return cmd.Run(ctx, os.Args[1:])
}

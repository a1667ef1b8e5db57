// Package app wires configuration, logging, metrics, the speech engine and
// the session loop into one injector shared by the commands.
package app

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/samber/do/v2"

	"github.com/obiente/translate/scribe/internal/config"
	"github.com/obiente/translate/scribe/internal/observe"
	"github.com/obiente/translate/scribe/internal/stream"
	"github.com/obiente/translate/scribe/internal/whisper"
)

// EngineFactory loads the speech engine. whisper.NewEngine is the production
// factory.
type EngineFactory func(whisper.Config, zerolog.Logger) (whisper.Engine, error)

// New returns an injector holding cfg and logger. Everything else is built
// lazily on first use and shared afterwards, so the engine loads once.
func New(cfg *config.Config, logger zerolog.Logger, newEngine EngineFactory) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, logger)
	RegisterDI(injector, newEngine)

	return injector
}

func RegisterDI(injector do.Injector, newEngine EngineFactory) {
	do.Provide(injector, func(i do.Injector) (*observe.Provider, error) {
		return observe.InitProvider(context.Background(), observe.ProviderConfig{ServiceName: "scribe"})
	})
	do.Provide(injector, func(i do.Injector) (*observe.Metrics, error) {
		p := do.MustInvoke[*observe.Provider](i)
		return observe.NewMetrics(p.MeterProvider)
	})
	do.Provide(injector, func(i do.Injector) (whisper.Engine, error) {
		cfg := do.MustInvoke[*config.Config](i)
		logger := do.MustInvoke[zerolog.Logger](i)
		return newEngine(EngineConfig(cfg), logger)
	})
	do.Provide(injector, func(i do.Injector) (*stream.Loop, error) {
		cfg := do.MustInvoke[*config.Config](i)
		logger := do.MustInvoke[zerolog.Logger](i)
		metrics := do.MustInvoke[*observe.Metrics](i)
		engine, err := do.Invoke[whisper.Engine](i)
		if err != nil {
			return nil, err
		}
		return stream.New(engine,
			stream.WithLogger(logger),
			stream.WithMetrics(metrics),
			stream.WithTranscribeOptions(TranscribeOptions(cfg)),
			stream.WithMaxSessionBytes(cfg.MaxSessionBytes),
			stream.WithMaxChunkBytes(uint32(cfg.MaxChunkBytes)),
		), nil
	})
}

func EngineConfig(cfg *config.Config) whisper.Config {
	return whisper.Config{
		ModelPath:    cfg.ModelPath,
		Language:     cfg.Language,
		Threads:      cfg.Threads,
		VADThreshold: cfg.VADThreshold,
	}
}

func TranscribeOptions(cfg *config.Config) whisper.Options {
	return whisper.Options{
		BeamSize:  cfg.BeamSize,
		VADFilter: cfg.VADFilter,
	}
}

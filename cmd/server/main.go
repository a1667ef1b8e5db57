package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"
	"golang.org/x/sync/errgroup"

	"github.com/obiente/translate/scribe/internal/app"
	"github.com/obiente/translate/scribe/internal/config"
	serverhttp "github.com/obiente/translate/scribe/internal/http"
	"github.com/obiente/translate/scribe/internal/observe"
	"github.com/obiente/translate/scribe/internal/stream"
	"github.com/obiente/translate/scribe/internal/whisper"
	"github.com/obiente/translate/scribe/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		app.NewLogger(os.Stderr, "")
		log.Fatal().Err(err).Msg("config validation failed")
	}
	logger := app.NewLogger(os.Stderr, cfg.LogLevel)

	injector := app.New(cfg, logger, whisper.NewEngine)
	provider := do.MustInvoke[*observe.Provider](injector)

	// Load the model before touching the input.
	engine, err := do.Invoke[whisper.Engine](injector)
	if err != nil {
		log.Fatal().Err(err).Str("model", cfg.ModelPath).Msg("engine load failed")
	}
	loop := do.MustInvoke[*stream.Loop](injector)
	log.Info().Str("transport", cfg.Transport).Msg("model loaded, ready for PCM stream")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	switch cfg.Transport {
	case config.TransportWebsocket:
		wss := ws.NewServer(loop, logger)
		router := serverhttp.NewRouter(wss, provider.Handler())
		g.Go(func() error {
			err := serve(gctx, cfg.Addr, router)
			// Hijacked streams outlive the http server; end them too.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if serr := wss.Shutdown(shutdownCtx); serr != nil {
				log.Warn().Err(serr).Msg("ws streams did not finish")
			}
			return err
		})
	default:
		g.Go(func() error { return runStdio(gctx, loop) })
		if cfg.MetricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", provider.Handler())
			g.Go(func() error { return serve(gctx, cfg.MetricsAddr, mux) })
		}
	}

	runErr := g.Wait()

	if err := engine.Close(); err != nil {
		log.Warn().Err(err).Msg("engine close failed")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := provider.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("metrics shutdown failed")
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, errInputClosed) {
		log.Error().Err(runErr).Msg("stream terminated")
		os.Exit(1)
	}
	log.Info().Msg("shutdown complete")
}

// runStdio serves the single stdin/stdout stream. A read on stdin cannot be
// interrupted, so on a signal the blocked loop is left behind and main exits.
func runStdio(ctx context.Context, loop *stream.Loop) error {
	if err := loop.Serve(ctx, os.Stdin, os.Stdout); err != nil {
		if ctx.Err() != nil {
			log.Info().Msg("signal received, abandoning input")
			return ctx.Err()
		}
		return err
	}
	// Returning an error ends the group so the metrics server stops too.
	return errInputClosed
}

var errInputClosed = errors.New("input closed")

func serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("http server starting")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

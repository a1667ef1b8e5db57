package config

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
)

const (
	TransportStdio     = "stdio"
	TransportWebsocket = "websocket"
)

type Config struct {
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	ModelPath    string  `yaml:"model_path" env:"WHISPER_MODEL_PATH"`
	Language     string  `yaml:"language" env:"WHISPER_LANGUAGE"`
	Threads      int     `yaml:"threads" env:"WHISPER_THREADS"`
	BeamSize     int     `yaml:"beam_size" env:"WHISPER_BEAM_SIZE"`
	VADFilter    bool    `yaml:"vad_filter" env:"WHISPER_VAD_FILTER"`
	VADThreshold float64 `yaml:"vad_threshold" env:"WHISPER_VAD_THRESHOLD"`

	// Zero disables the limit.
	MaxSessionBytes int64 `yaml:"max_session_bytes" env:"MAX_SESSION_BYTES"`
	MaxChunkBytes   int64 `yaml:"max_chunk_bytes" env:"MAX_CHUNK_BYTES"`

	Transport   string `yaml:"transport" env:"SCRIBE_TRANSPORT"`
	Addr        string `yaml:"addr" env:"WHISPER_GO_ADDR"`
	MetricsAddr string `yaml:"metrics_addr" env:"METRICS_ADDR"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		LogLevel:     "info",
		ModelPath:    "./models/ggml-tiny.en.bin",
		Language:     "en",
		BeamSize:     1,
		VADFilter:    true,
		VADThreshold: 0.01,
		Transport:    TransportStdio,
		Addr:         ":8080",
	}
}

// Validate returns every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q is invalid: %w", c.LogLevel, err))
	}
	if c.ModelPath == "" {
		errs = append(errs, errors.New("WHISPER_MODEL_PATH is required"))
	}
	if c.Threads < 0 {
		errs = append(errs, fmt.Errorf("WHISPER_THREADS must not be negative, got %d", c.Threads))
	}
	if c.BeamSize < 1 {
		errs = append(errs, fmt.Errorf("WHISPER_BEAM_SIZE must be at least 1, got %d", c.BeamSize))
	}
	if c.VADThreshold < 0 || c.VADThreshold > 1 {
		errs = append(errs, fmt.Errorf("WHISPER_VAD_THRESHOLD must be within [0, 1], got %g", c.VADThreshold))
	}
	if c.MaxSessionBytes < 0 {
		errs = append(errs, fmt.Errorf("MAX_SESSION_BYTES must not be negative, got %d", c.MaxSessionBytes))
	}
	if c.MaxChunkBytes < 0 || c.MaxChunkBytes > math.MaxUint32 {
		errs = append(errs, fmt.Errorf("MAX_CHUNK_BYTES must be within [0, %d], got %d", uint32(math.MaxUint32), c.MaxChunkBytes))
	}
	switch c.Transport {
	case TransportStdio:
	case TransportWebsocket:
		if c.Addr == "" {
			errs = append(errs, errors.New("WHISPER_GO_ADDR is required for the websocket transport"))
		}
	default:
		errs = append(errs, fmt.Errorf("SCRIBE_TRANSPORT %q is invalid; valid values: %s, %s", c.Transport, TransportStdio, TransportWebsocket))
	}
	return errors.Join(errs...)
}

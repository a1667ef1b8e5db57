package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadEnv_Defaults(t *testing.T) {
	cfg, err := LoadEnv(map[string]string{})
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if *cfg != Default() {
		t.Fatalf("cfg = %+v, want defaults %+v", *cfg, Default())
	}
	if cfg.BeamSize != 1 || !cfg.VADFilter || cfg.Transport != TransportStdio {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadEnv_Overrides(t *testing.T) {
	cfg, err := LoadEnv(map[string]string{
		"LOG_LEVEL":          "debug",
		"WHISPER_MODEL_PATH": "/models/base.bin",
		"WHISPER_THREADS":    "4",
		"WHISPER_VAD_FILTER": "false",
		"MAX_SESSION_BYTES":  "3200000",
		"SCRIBE_TRANSPORT":   "websocket",
		"WHISPER_GO_ADDR":    ":9090",
	})
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.ModelPath != "/models/base.bin" || cfg.Threads != 4 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.VADFilter {
		t.Error("VADFilter should be false")
	}
	if cfg.MaxSessionBytes != 3200000 {
		t.Errorf("MaxSessionBytes = %d", cfg.MaxSessionBytes)
	}
	if cfg.Transport != TransportWebsocket || cfg.Addr != ":9090" {
		t.Errorf("transport = %q addr = %q", cfg.Transport, cfg.Addr)
	}
	if cfg.Language != "en" {
		t.Errorf("unset key lost its default: Language = %q", cfg.Language)
	}
}

func TestLoadEnv_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scribe.yaml")
	yml := "model_path: /from/yaml.bin\nlanguage: de\nbeam_size: 2\n"
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadEnv(map[string]string{
		FileEnv:            path,
		"WHISPER_LANGUAGE": "fr",
	})
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if cfg.ModelPath != "/from/yaml.bin" || cfg.BeamSize != 2 {
		t.Errorf("yaml values not applied: %+v", cfg)
	}
	if cfg.Language != "fr" {
		t.Errorf("env should win over yaml: Language = %q", cfg.Language)
	}
}

func TestLoadEnv_MissingFile(t *testing.T) {
	_, err := LoadEnv(map[string]string{FileEnv: filepath.Join(t.TempDir(), "absent.yaml")})
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadEnv_BadValue(t *testing.T) {
	if _, err := LoadEnv(map[string]string{"WHISPER_THREADS": "many"}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("modle_path: typo.bin\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadFromReader_Empty(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if *cfg != Default() {
		t.Fatalf("empty yaml changed defaults: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "LOG_LEVEL"},
		{"empty model", func(c *Config) { c.ModelPath = "" }, "WHISPER_MODEL_PATH"},
		{"negative threads", func(c *Config) { c.Threads = -1 }, "WHISPER_THREADS"},
		{"beam size zero", func(c *Config) { c.BeamSize = 0 }, "WHISPER_BEAM_SIZE"},
		{"threshold above one", func(c *Config) { c.VADThreshold = 1.5 }, "WHISPER_VAD_THRESHOLD"},
		{"negative session limit", func(c *Config) { c.MaxSessionBytes = -1 }, "MAX_SESSION_BYTES"},
		{"chunk limit overflow", func(c *Config) { c.MaxChunkBytes = 1 << 33 }, "MAX_CHUNK_BYTES"},
		{"unknown transport", func(c *Config) { c.Transport = "carrier-pigeon" }, "SCRIBE_TRANSPORT"},
		{"websocket without addr", func(c *Config) { c.Transport = TransportWebsocket; c.Addr = "" }, "WHISPER_GO_ADDR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

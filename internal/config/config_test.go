package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if cfg.Fetch.Timeout != 30*time.Second || cfg.Fetch.MaxBytes != 10<<20 {
		t.Errorf("fetch = %+v", cfg.Fetch)
	}
	if cfg.Embed.Concurrency != 8 || cfg.Embed.StyleTimeout != 3*time.Second {
		t.Errorf("embed = %+v", cfg.Embed)
	}
	if cfg.Logging.ConsoleLogger.Level != "normal" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
}

func TestLoadOverlay(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"overrides", "embed:\n  concurrency: 2\n  base_url: https://example.com/\n", ""},
		{"unknown field", "embed:\n  concurency: 2\n", "concurency"},
		{"bad level", "logging:\n  console:\n    level: loud\n", "logging.console.level"},
		{"relative base", "embed:\n  base_url: /docs\n", "base_url"},
		{"bad version", "version: 2\n", "version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "hxembed.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}

			cfg, err := LoadConfiguration(path)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("LoadConfiguration() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadConfiguration() error = %v", err)
			}
			if cfg.Embed.Concurrency != 2 || cfg.Embed.StyleTimeout != 3*time.Second {
				t.Errorf("embed = %+v", cfg.Embed)
			}
			opts, err := cfg.Options()
			if err != nil || len(opts) != 4 {
				t.Errorf("Options() = %d options, err %v", len(opts), err)
			}
		})
	}
}

func TestDumpRoundTrip(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatal(err)
	}
	data, err := Dump(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "style_timeout: 3s") {
		t.Errorf("Dump() = %s", data)
	}

	path := filepath.Join(t.TempDir(), "dump.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	again, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("dumped configuration does not load: %v", err)
	}
	if *again != *cfg {
		t.Errorf("round trip changed configuration: %+v vs %+v", again, cfg)
	}
}

func TestPrepareNone(t *testing.T) {
	conf := LoggingConfig{ConsoleLogger: LoggerConfig{Level: "none"}}
	log, err := conf.Prepare()
	if err != nil || log == nil {
		t.Fatalf("Prepare() = %v, %v", log, err)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if cfg.Backend.URL == "" || cfg.Radio.MaxChannels != 9 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadOverlaysFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
backend:
  url: ws://voice.internal:30125
voice:
  server_guid: abc123
  whisper_mode: true
radio:
  max_channels: 5
  towers:
    - {x: 10, y: 20, z: 0, radius: 400}
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend.URL != "ws://voice.internal:30125" {
		t.Fatalf("file value not applied: %s", cfg.Backend.URL)
	}
	if !cfg.Voice.WhisperMode || cfg.Voice.ServerGUID != "abc123" {
		t.Fatalf("voice section not applied: %+v", cfg.Voice)
	}
	if cfg.Radio.MaxChannels != 5 || len(cfg.Radio.Towers) != 1 {
		t.Fatalf("radio section not applied: %+v", cfg.Radio)
	}
	// Untouched sections keep their defaults.
	if cfg.Engine.FrameIntervalMS != 250 {
		t.Fatalf("default lost: %+v", cfg.Engine)
	}
}

func TestEnvOverridesWin(t *testing.T) {
	t.Setenv("GRIDVOICE_BACKEND_URL", "ws://override:1")
	t.Setenv("GRIDVOICE_WHISPER_MODE", "true")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend.URL != "ws://override:1" || !cfg.Voice.WhisperMode {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestValidateRejectsBadTower(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
radio:
  towers:
    - {x: 1, y: 2, radius: 0}
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("zero-radius tower must be rejected")
	}
}

package setup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/najahiiii/lunetctl/internal/config"
)

func TestInitWritesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lunetctl", "config.yaml")

	got, created, err := Init(InitOptions{ConfigPath: path})
	if err != nil || !created || got != path {
		t.Fatalf("Init = %q %v %v", got, created, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("perm = %v", info.Mode().Perm())
	}

	if err := os.WriteFile(path, []byte("control:\n  base_url: http://edited\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, created, err := Init(InitOptions{ConfigPath: path}); err != nil || created {
		t.Fatalf("second Init created=%v err=%v", created, err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "edited") {
		t.Fatal("existing config overwritten without force")
	}

	if _, created, err := Init(InitOptions{ConfigPath: path, Force: true}); err != nil || !created {
		t.Fatalf("forced Init created=%v err=%v", created, err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != string(SampleConfig()) {
		t.Fatal("forced Init did not write the sample")
	}
}

func TestUpdateControl(t *testing.T) {
	t.Setenv("LUNET_BASE_URL", "")
	t.Setenv("LUNET_NICK", "")
	t.Setenv("LUNET_PASSWORD", "")
	t.Setenv("LUNET_PROXY", "")
	t.Setenv("LUNET_TLS_INSECURE", "")
	path := filepath.Join(t.TempDir(), "config.yaml")

	if err := UpdateControl(UpdateControlOptions{ConfigPath: path}); err == nil {
		t.Fatal("expected error when nothing to update")
	}

	insecure := true
	err := UpdateControl(UpdateControlOptions{
		ConfigPath:  path,
		BaseURL:     "https://panel.example.com",
		Nick:        "ops",
		TLSInsecure: &insecure,
	})
	if err != nil {
		t.Fatalf("UpdateControl: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Control.BaseURL != "https://panel.example.com" || cfg.Control.Nick != "ops" || !cfg.Control.TLSInsecure {
		t.Fatalf("control = %+v", cfg.Control)
	}
	if cfg.Control.BasePath != "/web" || cfg.Control.TimeoutSec != 12 || cfg.Intervals.SideStatusSec != 20 {
		t.Fatalf("sample values lost: %+v %+v", cfg.Control, cfg.Intervals)
	}

	if err := UpdateControl(UpdateControlOptions{ConfigPath: path, TimeoutSec: 30}); err != nil {
		t.Fatalf("second update: %v", err)
	}
	cfg, err = config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Control.TimeoutSec != 30 || cfg.Control.Nick != "ops" {
		t.Fatalf("second update control = %+v", cfg.Control)
	}
}

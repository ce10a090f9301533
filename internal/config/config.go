package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTimeoutSec      = 12
	DefaultSideStatusSec   = 20
	DefaultStorageSyncSec  = 2
	DefaultBasePath        = "/web"
	DefaultStorageFileName = "storage.json"
	DefaultConfigDirName   = "lunetctl"
	DefaultConfigFileName  = "config.yaml"
	envBaseURL             = "LUNET_BASE_URL"
	envNick                = "LUNET_NICK"
	envPassword            = "LUNET_PASSWORD"
	envTLSInsecure         = "LUNET_TLS_INSECURE"
	envProxy               = "LUNET_PROXY"
)

type Config struct {
	Control struct {
		BaseURL     string `yaml:"base_url"`
		BasePath    string `yaml:"base_path"`
		Nick        string `yaml:"nick"`
		Password    string `yaml:"password"`
		TLSInsecure bool   `yaml:"tls_insecure"`
		Proxy       string `yaml:"proxy"`
		TimeoutSec  int    `yaml:"timeout_sec"`
	} `yaml:"control"`

	State struct {
		Dir string `yaml:"dir"`
	} `yaml:"state"`

	Intervals struct {
		SideStatusSec  int `yaml:"side_status_sec"`
		StorageSyncSec int `yaml:"storage_sync_sec"`
	} `yaml:"intervals"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// DefaultPath returns ~/.config/lunetctl/config.yaml (or the platform equivalent).
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, DefaultConfigDirName, DefaultConfigFileName)
}

// Load reads the YAML config at path, applies .env/environment overrides and defaults.
// A missing file is not an error as long as the environment supplies the base URL.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	// .env is optional; the variables may already be exported.
	_ = godotenv.Load()
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.finish(path); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv(envBaseURL)); v != "" {
		cfg.Control.BaseURL = v
	}
	if v := os.Getenv(envNick); v != "" {
		cfg.Control.Nick = v
	}
	if v := os.Getenv(envPassword); v != "" {
		cfg.Control.Password = v
	}
	if v := os.Getenv(envProxy); v != "" {
		cfg.Control.Proxy = v
	}
	if v := os.Getenv(envTLSInsecure); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envTLSInsecure, err)
		}
		cfg.Control.TLSInsecure = b
	}
	return nil
}

func (cfg *Config) finish(path string) error {
	cfg.Control.BaseURL = strings.TrimRight(cfg.Control.BaseURL, "/")
	if cfg.Control.BaseURL == "" {
		return errors.New("control.base_url required")
	}
	u, err := url.Parse(cfg.Control.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("control.base_url %q is not an absolute URL", cfg.Control.BaseURL)
	}
	if cfg.Control.Proxy != "" {
		pu, err := url.Parse(cfg.Control.Proxy)
		if err != nil || pu.Scheme != "socks5" {
			return fmt.Errorf("control.proxy must be a socks5:// URL")
		}
	}
	if cfg.Control.BasePath == "" {
		cfg.Control.BasePath = DefaultBasePath
	}
	if bp := strings.Trim(cfg.Control.BasePath, "/"); bp != "" {
		cfg.Control.BasePath = "/" + bp
	} else {
		cfg.Control.BasePath = ""
	}
	if cfg.Control.TimeoutSec <= 0 {
		cfg.Control.TimeoutSec = DefaultTimeoutSec
	}
	if cfg.State.Dir == "" {
		cfg.State.Dir = filepath.Dir(path)
	}
	if cfg.Intervals.SideStatusSec <= 0 {
		cfg.Intervals.SideStatusSec = DefaultSideStatusSec
	}
	if cfg.Intervals.StorageSyncSec <= 0 {
		cfg.Intervals.StorageSyncSec = DefaultStorageSyncSec
	}
	return nil
}

// StoragePath is the file that plays the role of the browser's local storage.
func (cfg *Config) StoragePath() string {
	return filepath.Join(cfg.State.Dir, DefaultStorageFileName)
}

// Secure reports whether the panel is reached over HTTPS.
func (cfg *Config) Secure() bool {
	return strings.HasPrefix(strings.ToLower(cfg.Control.BaseURL), "https://")
}

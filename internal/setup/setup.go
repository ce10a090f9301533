package setup

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/najahiiii/lunetctl/internal/config"
)

//go:embed assets/config.yaml
var embeddedConfig []byte

// SampleConfig returns the commented sample written by Init.
func SampleConfig() []byte {
	return append([]byte(nil), embeddedConfig...)
}

type InitOptions struct {
	ConfigPath string
	// Force overwrites an existing file.
	Force  bool
	Logger *slog.Logger
}

// Init writes the sample config unless one already exists. It reports whether
// a file was written.
func Init(opts InitOptions) (string, bool, error) {
	path := opts.ConfigPath
	if path == "" {
		path = config.DefaultPath()
	}
	log := opts.Logger

	if _, err := os.Stat(path); err == nil && !opts.Force {
		if log != nil {
			log.Info("config already exists", "path", path)
		}
		return path, false, nil
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return path, false, fmt.Errorf("check config: %w", err)
	}

	if log != nil {
		log.Info("writing config", "path", path)
	}
	if err := writeFile(path, embeddedConfig, 0o600); err != nil {
		return path, false, fmt.Errorf("write config: %w", err)
	}
	return path, true, nil
}

type UpdateControlOptions struct {
	ConfigPath  string
	BaseURL     string
	BasePath    string
	Nick        string
	Password    string
	Proxy       string
	TLSInsecure *bool
	TimeoutSec  int
	Logger      *slog.Logger
}

func (o UpdateControlOptions) empty() bool {
	return o.BaseURL == "" && o.BasePath == "" && o.Nick == "" && o.Password == "" &&
		o.Proxy == "" && o.TLSInsecure == nil && o.TimeoutSec == 0
}

// UpdateControl rewrites control.* fields in the config file, creating it
// from the embedded sample when missing. Comments of an existing file are not kept.
func UpdateControl(opts UpdateControlOptions) error {
	path := opts.ConfigPath
	if path == "" {
		path = config.DefaultPath()
	}
	if opts.empty() {
		return fmt.Errorf("no control fields provided for update")
	}

	cfg, err := loadRaw(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if opts.BaseURL != "" {
		cfg.Control.BaseURL = opts.BaseURL
	}
	if opts.BasePath != "" {
		cfg.Control.BasePath = opts.BasePath
	}
	if opts.Nick != "" {
		cfg.Control.Nick = opts.Nick
	}
	if opts.Password != "" {
		cfg.Control.Password = opts.Password
	}
	if opts.Proxy != "" {
		cfg.Control.Proxy = opts.Proxy
	}
	if opts.TLSInsecure != nil {
		cfg.Control.TLSInsecure = *opts.TLSInsecure
	}
	if opts.TimeoutSec > 0 {
		cfg.Control.TimeoutSec = opts.TimeoutSec
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := writeFile(path, out, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if opts.Logger != nil {
		opts.Logger.Info("updated control fields", "path", path)
	}
	return nil
}

// loadRaw reads the file without defaults or validation so that only the
// fields the user touched change on disk.
func loadRaw(path string) (*config.Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		data = embeddedConfig
	} else if err != nil {
		return nil, err
	}
	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

func writeFile(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, perm)
}

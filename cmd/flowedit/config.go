package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/ha1tch/flowchart-toolkit/pkg/store"
)

// Config holds persistent editor settings
type Config struct {
	FileType        string `toml:"file_type"` // "png" or "svg"
	LastDir         string `toml:"last_dir"`  // where exports are written
	StoreDir        string `toml:"store_dir"`
	AutosaveSeconds int    `toml:"autosave_seconds"`
	Debug           bool   `toml:"debug"`
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	cwd, _ := os.Getwd()
	return Config{
		FileType:        "png",
		LastDir:         cwd,
		StoreDir:        store.DefaultDir(),
		AutosaveSeconds: int(store.DefaultAutosaveInterval.Seconds()),
	}
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".flowedit"
	}
	return filepath.Join(home, ".flowedit")
}

// LoadConfig reads path over the defaults. A missing file is not an error.
// Values that make no sense fall back to their defaults.
func LoadConfig(path string) (Config, error) {
	def := DefaultConfig()
	cfg := def
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return def, nil
		}
		return def, fmt.Errorf("read %s: %w", path, err)
	}

	if cfg.FileType != "png" && cfg.FileType != "svg" {
		cfg.FileType = def.FileType
	}
	if cfg.LastDir == "" {
		cfg.LastDir = def.LastDir
	}
	if cfg.StoreDir == "" {
		cfg.StoreDir = def.StoreDir
	}
	if cfg.AutosaveSeconds <= 0 {
		cfg.AutosaveSeconds = def.AutosaveSeconds
	}
	return cfg, nil
}

// SaveConfig writes cfg to path as TOML
func SaveConfig(path string, cfg Config) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := f.WriteString("# flowedit configuration\n"); err != nil {
		f.Close()
		return err
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// applyEnv lets FLOW_STORE_DIR and FLOW_DEBUG override the file.
func applyEnv(cfg *Config) {
	if dir := os.Getenv("FLOW_STORE_DIR"); dir != "" {
		cfg.StoreDir = dir
	}
	if v := os.Getenv("FLOW_DEBUG"); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = debug
		}
	}
}

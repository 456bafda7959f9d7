package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Defaults holds process-level locations resolved before the config file is read.
type Defaults struct {
	ConfigPath string
	BaseDir    string
	LogLevel   string
}

// GetDefaults resolves application paths, checking environment variables first:
//   - DOCSNAP_CONFIG_PATH: config file (default ~/.config/docsnap.toml)
//   - DOCSNAP_HOME: data directory for logs and history (default ~/.local/share/docsnap)
//   - DOCSNAP_LOG_LEVEL: debug, info, warn or error (default info)
func GetDefaults() (*Defaults, error) {
	home, homeErr := os.UserHomeDir()

	d := &Defaults{
		ConfigPath: os.Getenv("DOCSNAP_CONFIG_PATH"),
		BaseDir:    os.Getenv("DOCSNAP_HOME"),
		LogLevel:   os.Getenv("DOCSNAP_LOG_LEVEL"),
	}
	if d.ConfigPath == "" || d.BaseDir == "" {
		if homeErr != nil {
			return nil, fmt.Errorf("cannot determine home directory: %w", homeErr)
		}
	}
	if d.ConfigPath == "" {
		d.ConfigPath = filepath.Join(home, ".config", "docsnap.toml")
	}
	if d.BaseDir == "" {
		d.BaseDir = filepath.Join(home, ".local", "share", "docsnap")
	}
	if d.LogLevel == "" {
		d.LogLevel = "info"
	}
	return d, nil
}

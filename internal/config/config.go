package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the settings file for docsnap. Secrets never live here;
// they are resolved per operation by a Resolver (see effective.go).
type Config struct {
	SecretFile string           `toml:"secret_file"`
	LogDir     string           `toml:"log_dir"`
	Repository RepositoryConfig `toml:"repository"`
	Store      StoreConfig      `toml:"store"`
	Transfer   TransferConfig   `toml:"transfer"`
	History    HistoryConfig    `toml:"history"`
	Schedule   ScheduleConfig   `toml:"schedule"`
}

// RepositoryConfig describes the local working copy and how it is published.
type RepositoryConfig struct {
	WorkDir        string `toml:"work_dir"`
	SnapshotFile   string `toml:"snapshot_file"`
	Branch         string `toml:"branch"`
	LeaseForcePush bool   `toml:"lease_force_push"`
	AuthorName     string `toml:"author_name"`
	AuthorEmail    string `toml:"author_email"`
}

// StoreConfig represents configuration for the document store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StoreConfig struct {
	Type     string        `toml:"type"`               // "chroma" (default) or "memory"
	Tenant   string        `toml:"tenant,omitempty"`   // only used for type=chroma
	Database string        `toml:"database,omitempty"` // only used for type=chroma
	PageSize int           `toml:"page_size"`          // records per read request
	Timeout  time.Duration `toml:"timeout"`
}

// TransferConfig tunes the batched transfer engine.
type TransferConfig struct {
	BatchSize         int    `toml:"batch_size"`
	PrimaryCollection string `toml:"primary_collection"`
}

// HistoryConfig locates the operation history database.
type HistoryConfig struct {
	Path string `toml:"path"` // empty disables history
}

// ScheduleConfig drives `docsnap schedule`.
type ScheduleConfig struct {
	Interval     time.Duration `toml:"interval"`
	InitialDelay time.Duration `toml:"initial_delay"`
}

const (
	DefaultSecretFile        = "/etc/secrets/.chroma-backup.env"
	DefaultWorkDir           = "/tmp/chroma-backup"
	DefaultSnapshotFile      = "chroma_data.json"
	DefaultBranch            = "main"
	DefaultPrimaryCollection = "regras_sistema"
	DefaultBatchSize         = 100
	DefaultPageSize          = 1000
	DefaultStoreTimeout      = 30 * time.Second
	DefaultInterval          = 2 * time.Hour
	DefaultInitialDelay      = 5 * time.Minute
)

// NewConfig creates a new Config rooted at baseDir with default values.
func NewConfig(baseDir string) *Config {
	return &Config{
		SecretFile: DefaultSecretFile,
		LogDir:     filepath.Join(baseDir, "log"),
		Repository: RepositoryConfig{
			WorkDir:        DefaultWorkDir,
			SnapshotFile:   DefaultSnapshotFile,
			Branch:         DefaultBranch,
			LeaseForcePush: true,
			AuthorName:     "Render Backup",
			AuthorEmail:    "backup@render.com",
		},
		Store: StoreConfig{
			Type:     "chroma",
			Tenant:   "default_tenant",
			Database: "default_database",
			PageSize: DefaultPageSize,
			Timeout:  DefaultStoreTimeout,
		},
		Transfer: TransferConfig{
			BatchSize:         DefaultBatchSize,
			PrimaryCollection: DefaultPrimaryCollection,
		},
		History: HistoryConfig{
			Path: filepath.Join(baseDir, "history.db"),
		},
		Schedule: ScheduleConfig{
			Interval:     DefaultInterval,
			InitialDelay: DefaultInitialDelay,
		},
	}
}

// Validate checks settings that would otherwise fail deep inside an operation.
func (c *Config) Validate() error {
	if c.Repository.WorkDir == "" {
		return &ConfigurationError{Key: "repository.work_dir", Reason: "must be set"}
	}
	if c.Repository.SnapshotFile == "" || filepath.Base(c.Repository.SnapshotFile) != c.Repository.SnapshotFile {
		return &ConfigurationError{Key: "repository.snapshot_file", Reason: "must be a plain file name"}
	}
	if c.Repository.Branch == "" {
		return &ConfigurationError{Key: "repository.branch", Reason: "must be set"}
	}
	if c.Transfer.BatchSize <= 0 {
		return &ConfigurationError{Key: "transfer.batch_size", Reason: "must be positive"}
	}
	if c.Transfer.PrimaryCollection == "" {
		return &ConfigurationError{Key: "transfer.primary_collection", Reason: "must be set"}
	}
	if c.Store.PageSize <= 0 {
		return &ConfigurationError{Key: "store.page_size", Reason: "must be positive"}
	}
	if c.Schedule.Interval <= 0 {
		return &ConfigurationError{Key: "schedule.interval", Reason: "must be positive"}
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader. Keys missing from the
// input keep the values already present in base.
func (m *Manager) Read(r io.Reader, base *Config) (*Config, error) {
	cfg := *base
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path, layered over
// NewConfig(baseDir). A missing file yields the defaults.
func ReadFromFile(path, baseDir string) (*Config, error) {
	base := NewConfig(baseDir)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return base, nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f, base)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}

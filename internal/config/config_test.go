package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := NewConfig("/var/lib/docsnap")
	original.Repository.WorkDir = "/srv/backup"
	original.Repository.LeaseForcePush = false
	original.Store.Type = "memory"
	original.Transfer.BatchSize = 25
	original.Schedule.Interval = 30 * time.Minute

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf, &Config{})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.Repository.WorkDir != "/srv/backup" {
		t.Errorf("Repository.WorkDir = %q, want %q", got.Repository.WorkDir, "/srv/backup")
	}
	if got.Repository.LeaseForcePush {
		t.Error("Repository.LeaseForcePush = true, want false")
	}
	if got.Store.Type != "memory" {
		t.Errorf("Store.Type = %q, want %q", got.Store.Type, "memory")
	}
	if got.Transfer.BatchSize != 25 {
		t.Errorf("Transfer.BatchSize = %d, want 25", got.Transfer.BatchSize)
	}
	if got.Transfer.PrimaryCollection != DefaultPrimaryCollection {
		t.Errorf("Transfer.PrimaryCollection = %q, want %q", got.Transfer.PrimaryCollection, DefaultPrimaryCollection)
	}
	if got.Schedule.Interval != 30*time.Minute {
		t.Errorf("Schedule.Interval = %v, want 30m", got.Schedule.Interval)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
}

func TestManager_Read_KeepsBaseForMissingKeys(t *testing.T) {
	input := `
[transfer]
batch_size = 7
`
	m := &Manager{}
	got, err := m.Read(bytes.NewBufferString(input), NewConfig("/base"))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got.Transfer.BatchSize != 7 {
		t.Errorf("BatchSize = %d, want 7", got.Transfer.BatchSize)
	}
	if got.Repository.Branch != DefaultBranch {
		t.Errorf("Branch = %q, want %q", got.Repository.Branch, DefaultBranch)
	}
	if got.Store.PageSize != DefaultPageSize {
		t.Errorf("PageSize = %d, want %d", got.Store.PageSize, DefaultPageSize)
	}
}

func TestManager_Read_InvalidTOML(t *testing.T) {
	m := &Manager{}
	if _, err := m.Read(bytes.NewBufferString("this is not [valid toml"), NewConfig("/base")); err == nil {
		t.Error("Read() expected error for invalid TOML, got nil")
	}
}

func TestReadFromFile_MissingFileYieldsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")

	cfg, err := ReadFromFile(path, "/base")
	if err != nil {
		t.Fatalf("ReadFromFile() error = %v", err)
	}
	if cfg.Repository.WorkDir != DefaultWorkDir {
		t.Errorf("WorkDir = %q, want %q", cfg.Repository.WorkDir, DefaultWorkDir)
	}
	if cfg.LogDir != filepath.Join("/base", "log") {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, filepath.Join("/base", "log"))
	}
}

func TestReadFromFile_RejectsInvalidSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docsnap.toml")
	if err := os.WriteFile(path, []byte("[transfer]\nbatch_size = 0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := ReadFromFile(path, "/base"); err == nil {
		t.Error("ReadFromFile() expected error for batch_size = 0, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{name: "empty work dir", mutate: func(c *Config) { c.Repository.WorkDir = "" }, wantErr: true},
		{name: "snapshot file with directory", mutate: func(c *Config) { c.Repository.SnapshotFile = "a/b.json" }, wantErr: true},
		{name: "empty branch", mutate: func(c *Config) { c.Repository.Branch = "" }, wantErr: true},
		{name: "negative batch size", mutate: func(c *Config) { c.Transfer.BatchSize = -1 }, wantErr: true},
		{name: "empty primary collection", mutate: func(c *Config) { c.Transfer.PrimaryCollection = "" }, wantErr: true},
		{name: "zero page size", mutate: func(c *Config) { c.Store.PageSize = 0 }, wantErr: true},
		{name: "zero interval", mutate: func(c *Config) { c.Schedule.Interval = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig("/base")
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInit(t *testing.T) {
	t.Run("creates new config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sub", "docsnap.toml")

		if err := Init(path, NewConfig("/base")); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path, "/other")
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.LogDir != filepath.Join("/base", "log") {
			t.Errorf("LogDir = %q, want %q", got.LogDir, filepath.Join("/base", "log"))
		}
	})

	t.Run("fails if config already exists", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "docsnap.toml")
		if err := os.WriteFile(path, []byte(""), 0644); err != nil {
			t.Fatal(err)
		}

		if err := Init(path, NewConfig("/base")); err == nil {
			t.Error("Init() expected error for existing file, got nil")
		}
	})
}

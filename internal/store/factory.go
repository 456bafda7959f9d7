package store

import (
	"fmt"

	"docsnap/internal/config"
	"docsnap/internal/docsnap"
)

// NewStoreFromConfig creates a Store based on the store config type. The
// connection details come from the effective configuration of the current
// operation.
func NewStoreFromConfig(cfg config.StoreConfig, eff *config.Effective) (docsnap.Store, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "chroma", "":
		if eff == nil {
			return nil, fmt.Errorf("chroma store requires resolved connection settings")
		}
		return NewChromaStore(ChromaOptions{
			Host:     eff.StoreHost,
			Port:     eff.StorePort,
			Token:    eff.StoreToken,
			Tenant:   cfg.Tenant,
			Database: cfg.Database,
			PageSize: cfg.PageSize,
			Timeout:  cfg.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}

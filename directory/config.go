package directory

import (
	"fmt"
	"path/filepath"
)

// Backend names accepted by Config.Backend.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendCosmos = "cosmos"
)

// Config selects and configures a directory backend.
type Config struct {
	Backend string       `json:"backend,omitempty" yaml:"backend,omitempty"`
	Path    string       `json:"path,omitempty" yaml:"path,omitempty"` // sqlite database file
	Cosmos  CosmosConfig `json:"cosmos,omitempty" yaml:"cosmos,omitempty"`
}

// DefaultConfig uses a sqlite file next to the local state.
func DefaultConfig() Config {
	return Config{
		Backend: BackendSQLite,
		Path:    filepath.Join(".state", "directory.db"),
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Backend != "" {
		c.Backend = source.Backend
	}
	if source.Path != "" {
		c.Path = source.Path
	}
	c.Cosmos.Merge(&source.Cosmos)
}

// New opens the configured backend. Callers usually wrap the result with
// Instrument.
func New(cfg *Config) (Directory, error) {
	switch cfg.Backend {
	case BackendMemory:
		return NewMemory(), nil
	case BackendSQLite:
		return OpenSQLite(cfg.Path)
	case BackendCosmos:
		return OpenCosmos(&cfg.Cosmos)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

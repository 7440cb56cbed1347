package store

// Config holds store initialization parameters.
type Config struct {
	Root string `json:"root,omitempty" yaml:"root,omitempty"` // FileStore root; empty keeps values in memory.
}

// DefaultConfig keeps values under ./.state.
func DefaultConfig() Config {
	return Config{Root: ".state"}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Root != "" {
		c.Root = source.Root
	}
}

// New creates a Store from configuration.
func New(cfg *Config) Store {
	if cfg.Root == "" {
		return NewMemStore()
	}
	return NewFileStore(cfg.Root)
}

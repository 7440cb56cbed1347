package search

// Config locates the policy index.
type Config struct {
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
	Top  int    `json:"top,omitempty" yaml:"top,omitempty"`
}

// DefaultConfig returns the default index location.
func DefaultConfig() Config {
	return Config{Path: "hr_policies.db", Top: DefaultTop}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Path != "" {
		c.Path = source.Path
	}
	if source.Top > 0 {
		c.Top = source.Top
	}
}

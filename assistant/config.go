package assistant

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tailored-agentic-units/hrassist/directory"
	"github.com/tailored-agentic-units/hrassist/engine"
	"github.com/tailored-agentic-units/hrassist/search"
	"github.com/tailored-agentic-units/hrassist/store"
	"github.com/tailored-agentic-units/hrassist/telemetry"
)

const defaultAddr = ":8000"

// Config holds initialization parameters for every subsystem. Each section
// is handed to that subsystem's config-driven constructor by New.
type Config struct {
	Telemetry telemetry.Config `json:"telemetry" yaml:"telemetry"`
	// State is the root for the fallback session/thread files and the
	// conversation histories.
	State     store.Config     `json:"state" yaml:"state"`
	Directory directory.Config `json:"directory" yaml:"directory"`
	Search    search.Config    `json:"search" yaml:"search"`
	Engine    engine.Config    `json:"engine" yaml:"engine"`
	Addr      string           `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// DefaultConfig returns a Config with defaults for all subsystems.
func DefaultConfig() Config {
	return Config{
		Telemetry: telemetry.DefaultConfig(),
		State:     store.DefaultConfig(),
		Directory: directory.DefaultConfig(),
		Search:    search.DefaultConfig(),
		Engine:    engine.DefaultConfig(),
		Addr:      defaultAddr,
	}
}

// Merge applies non-zero values from source into c, delegating to each
// subsystem's Merge method.
func (c *Config) Merge(source *Config) {
	c.Telemetry.Merge(&source.Telemetry)
	c.State.Merge(&source.State)
	c.Directory.Merge(&source.Directory)
	c.Search.Merge(&source.Search)
	c.Engine.Merge(&source.Engine)

	if source.Addr != "" {
		c.Addr = source.Addr
	}
}

// LoadConfig reads a config file, merges it with defaults, and returns the
// resulting Config. Files ending in .yaml or .yml are parsed as YAML,
// anything else as JSON.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &loaded)
	default:
		err = json.Unmarshal(data, &loaded)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}

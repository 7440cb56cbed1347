package telemetry

// Config holds tracing and event routing parameters.
type Config struct {
	ServiceName  string   `json:"service_name,omitempty" yaml:"service_name,omitempty"`
	OTLPEndpoint string   `json:"otlp_endpoint,omitempty" yaml:"otlp_endpoint,omitempty"` // Empty keeps traces in-process.
	Observers    []string `json:"observers,omitempty" yaml:"observers,omitempty"`
}

// DefaultConfig logs events through slog and records them on spans.
func DefaultConfig() Config {
	return Config{
		ServiceName: "hr-agent",
		Observers:   []string{"slog", "span"},
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.ServiceName != "" {
		c.ServiceName = source.ServiceName
	}
	if source.OTLPEndpoint != "" {
		c.OTLPEndpoint = source.OTLPEndpoint
	}
	if len(source.Observers) > 0 {
		c.Observers = source.Observers
	}
}

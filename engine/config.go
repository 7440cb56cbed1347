package engine

const (
	ProviderAzure  = "azure"
	ProviderOpenAI = "openai"
)

// DefaultInstructions is the system prompt for the HR agent.
const DefaultInstructions = "You are an HR assistant. Use search_hr_chunks to retrieve policy text. " +
	"Answer using the retrieved chunks and cite file + chunk_id. " +
	"If you cannot find the answer, say so."

const defaultMaxIterations = 6

// ModelConfig selects and authenticates the chat model.
type ModelConfig struct {
	Provider   string `json:"provider,omitempty" yaml:"provider,omitempty"`
	Endpoint   string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Deployment string `json:"deployment,omitempty" yaml:"deployment,omitempty"`
	APIKey     string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	APIVersion string `json:"api_version,omitempty" yaml:"api_version,omitempty"`
}

// Merge applies non-zero values from source into c.
func (c *ModelConfig) Merge(source *ModelConfig) {
	if source.Provider != "" {
		c.Provider = source.Provider
	}
	if source.Endpoint != "" {
		c.Endpoint = source.Endpoint
	}
	if source.Deployment != "" {
		c.Deployment = source.Deployment
	}
	if source.APIKey != "" {
		c.APIKey = source.APIKey
	}
	if source.APIVersion != "" {
		c.APIVersion = source.APIVersion
	}
}

// Config holds the agent's model and loop parameters.
type Config struct {
	AgentID       string      `json:"agent_id,omitempty" yaml:"agent_id,omitempty"`
	Instructions  string      `json:"instructions,omitempty" yaml:"instructions,omitempty"`
	MaxIterations int         `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty"`
	Model         ModelConfig `json:"model" yaml:"model"`
}

// DefaultConfig returns the HR agent defaults against Azure OpenAI.
func DefaultConfig() Config {
	return Config{
		AgentID:       "hr_agent",
		Instructions:  DefaultInstructions,
		MaxIterations: defaultMaxIterations,
		Model: ModelConfig{
			Provider:   ProviderAzure,
			APIVersion: "2024-10-21",
		},
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.AgentID != "" {
		c.AgentID = source.AgentID
	}
	if source.Instructions != "" {
		c.Instructions = source.Instructions
	}
	if source.MaxIterations > 0 {
		c.MaxIterations = source.MaxIterations
	}
	c.Model.Merge(&source.Model)
}

package assistant

import (
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tailored-agentic-units/hrassist/directory"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvAgentEndpoint   = "AZURE_AI_AGENT_ENDPOINT"
	EnvModelDeployment = "AZURE_AI_AGENT_MODEL_DEPLOYMENT_NAME"
	EnvAPIKey          = "AZURE_OPENAI_API_KEY"
	EnvAgentID         = "FOUNDRY_AGENT_ID"
	EnvSearchDB        = "HRASSIST_SEARCH_DB"
	EnvCosmosEndpoint  = "COSMOS_ENDPOINT"
	EnvCosmosDB        = "COSMOS_DB"
	EnvCosmosContainer = "COSMOS_CONTAINER"
	EnvCosmosKey       = "COSMOS_KEY"
	EnvProvider        = "HRASSIST_PROVIDER"
	EnvDirectory       = "HRASSIST_DIRECTORY"
	EnvStateDir        = "HRASSIST_STATE_DIR"
	EnvAddr            = "HRASSIST_ADDR"
	EnvOTLPEndpoint    = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

// ConfigFromEnv loads .env files (when present) into the environment and
// returns a Config holding only the values set there. Merge it over a file
// or default Config.
func ConfigFromEnv(files ...string) *Config {
	_ = godotenv.Load(files...)

	v := viper.New()
	v.AutomaticEnv()
	return configFromViper(v)
}

func configFromViper(v *viper.Viper) *Config {
	var cfg Config

	cfg.Engine.Model.Endpoint = v.GetString(EnvAgentEndpoint)
	cfg.Engine.Model.Deployment = v.GetString(EnvModelDeployment)
	cfg.Engine.Model.APIKey = v.GetString(EnvAPIKey)
	cfg.Engine.Model.Provider = v.GetString(EnvProvider)
	cfg.Engine.AgentID = v.GetString(EnvAgentID)

	cfg.Search.Path = v.GetString(EnvSearchDB)

	cfg.Directory.Backend = v.GetString(EnvDirectory)
	cfg.Directory.Cosmos = directory.CosmosConfig{
		Endpoint:  v.GetString(EnvCosmosEndpoint),
		Database:  v.GetString(EnvCosmosDB),
		Container: v.GetString(EnvCosmosContainer),
		Key:       v.GetString(EnvCosmosKey),
	}
	if cfg.Directory.Backend == "" && cfg.Directory.Cosmos.Endpoint != "" {
		cfg.Directory.Backend = directory.BackendCosmos
	}

	if dir := v.GetString(EnvStateDir); dir != "" {
		cfg.State.Root = dir
		cfg.Directory.Path = filepath.Join(dir, "directory.db")
	}

	cfg.Telemetry.OTLPEndpoint = v.GetString(EnvOTLPEndpoint)
	cfg.Addr = v.GetString(EnvAddr)

	return &cfg
}

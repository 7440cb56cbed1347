package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"
)

// CosmosConfig locates the Cosmos DB container holding session records.
// The container must be partitioned on /session_id.
type CosmosConfig struct {
	Endpoint  string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Database  string `json:"database,omitempty" yaml:"database,omitempty"`
	Container string `json:"container,omitempty" yaml:"container,omitempty"`
	// Key is an account key. Empty uses DefaultAzureCredential.
	Key string `json:"key,omitempty" yaml:"key,omitempty"`
}

// Merge applies non-zero values from source into c.
func (c *CosmosConfig) Merge(source *CosmosConfig) {
	if source.Endpoint != "" {
		c.Endpoint = source.Endpoint
	}
	if source.Database != "" {
		c.Database = source.Database
	}
	if source.Container != "" {
		c.Container = source.Container
	}
	if source.Key != "" {
		c.Key = source.Key
	}
}

// ItemContainer is the subset of *azcosmos.ContainerClient the directory uses.
type ItemContainer interface {
	ReadItem(ctx context.Context, partitionKey azcosmos.PartitionKey, itemID string, o *azcosmos.ItemOptions) (azcosmos.ItemResponse, error)
	UpsertItem(ctx context.Context, partitionKey azcosmos.PartitionKey, item []byte, o *azcosmos.ItemOptions) (azcosmos.ItemResponse, error)
}

type cosmosDirectory struct {
	container ItemContainer
}

// OpenCosmos connects to the configured container. The client is built once
// and shared by every call.
func OpenCosmos(cfg *CosmosConfig) (Directory, error) {
	if cfg.Endpoint == "" || cfg.Database == "" || cfg.Container == "" {
		return nil, fmt.Errorf("cosmos directory requires endpoint, database and container")
	}

	var (
		client *azcosmos.Client
		err    error
	)
	if cfg.Key != "" {
		cred, kerr := azcosmos.NewKeyCredential(cfg.Key)
		if kerr != nil {
			return nil, fmt.Errorf("invalid cosmos account key: %w", kerr)
		}
		client, err = azcosmos.NewClientWithKey(cfg.Endpoint, cred, nil)
	} else {
		cred, cerr := azidentity.NewDefaultAzureCredential(nil)
		if cerr != nil {
			return nil, fmt.Errorf("failed to acquire azure credential: %w", cerr)
		}
		client, err = azcosmos.NewClient(cfg.Endpoint, cred, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create cosmos client: %w", err)
	}

	container, err := client.NewContainer(cfg.Database, cfg.Container)
	if err != nil {
		return nil, fmt.Errorf("failed to open cosmos container: %w", err)
	}
	return NewCosmos(container), nil
}

// NewCosmos wraps an existing container client.
func NewCosmos(container ItemContainer) Directory {
	return &cosmosDirectory{container: container}
}

func (d *cosmosDirectory) Get(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrEmptySession
	}

	resp, err := d.container.ReadItem(ctx, azcosmos.NewPartitionKeyString(sessionID), sessionID, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return "", fmt.Errorf("%w: %s", ErrNotFound, sessionID)
		}
		return "", fmt.Errorf("cosmos read failed: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(resp.Value, &rec); err != nil {
		return "", fmt.Errorf("cosmos record decode failed: %w", err)
	}
	if rec.ThreadID == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return rec.ThreadID, nil
}

func (d *cosmosDirectory) Upsert(ctx context.Context, sessionID, threadID string) error {
	if err := validate(sessionID, threadID); err != nil {
		return err
	}

	body, err := json.Marshal(NewRecord(sessionID, threadID))
	if err != nil {
		return fmt.Errorf("cosmos record encode failed: %w", err)
	}
	if _, err := d.container.UpsertItem(ctx, azcosmos.NewPartitionKeyString(sessionID), body, nil); err != nil {
		return fmt.Errorf("cosmos upsert failed: %w", err)
	}
	return nil
}

func (d *cosmosDirectory) Close() error { return nil }

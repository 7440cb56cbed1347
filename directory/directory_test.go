package directory_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"

	"github.com/tailored-agentic-units/hrassist/directory"
)

func backends(t *testing.T, fn func(t *testing.T, d directory.Directory)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, directory.NewMemory())
	})
	t.Run("sqlite", func(t *testing.T) {
		d, err := directory.OpenSQLite(filepath.Join(t.TempDir(), "dir.db"))
		if err != nil {
			t.Fatalf("OpenSQLite() error = %v", err)
		}
		t.Cleanup(func() { d.Close() })
		fn(t, d)
	})
	t.Run("cosmos", func(t *testing.T) {
		fn(t, directory.NewCosmos(newFakeContainer()))
	})
}

func TestDirectory_GetMissing(t *testing.T) {
	backends(t, func(t *testing.T, d directory.Directory) {
		_, err := d.Get(context.Background(), "session_1")
		if !errors.Is(err, directory.ErrNotFound) {
			t.Errorf("Get() error = %v, want %v", err, directory.ErrNotFound)
		}
	})
}

func TestDirectory_UpsertGet(t *testing.T) {
	backends(t, func(t *testing.T, d directory.Directory) {
		ctx := context.Background()

		if err := d.Upsert(ctx, "session_1", "t-100"); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
		if err := d.Upsert(ctx, "session_2", "t-200"); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}

		got, err := d.Get(ctx, "session_1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got != "t-100" {
			t.Errorf("Get(session_1) = %q, want %q", got, "t-100")
		}
	})
}

func TestDirectory_LastWriteWins(t *testing.T) {
	backends(t, func(t *testing.T, d directory.Directory) {
		ctx := context.Background()
		for _, id := range []string{"t-1", "t-2", "t-3"} {
			if err := d.Upsert(ctx, "session_1", id); err != nil {
				t.Fatalf("Upsert(%q) error = %v", id, err)
			}
		}

		got, err := d.Get(ctx, "session_1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got != "t-3" {
			t.Errorf("Get() = %q, want %q", got, "t-3")
		}
	})
}

func TestDirectory_Validation(t *testing.T) {
	backends(t, func(t *testing.T, d directory.Directory) {
		ctx := context.Background()

		if _, err := d.Get(ctx, ""); !errors.Is(err, directory.ErrEmptySession) {
			t.Errorf("Get(\"\") error = %v, want %v", err, directory.ErrEmptySession)
		}
		if err := d.Upsert(ctx, "", "t-1"); !errors.Is(err, directory.ErrEmptySession) {
			t.Errorf("Upsert(\"\", t-1) error = %v, want %v", err, directory.ErrEmptySession)
		}
		if err := d.Upsert(ctx, "session_1", ""); !errors.Is(err, directory.ErrEmptyThread) {
			t.Errorf("Upsert(session_1, \"\") error = %v, want %v", err, directory.ErrEmptyThread)
		}
	})
}

func TestSQLite_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir.db")
	ctx := context.Background()

	d, err := directory.OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	if err := d.Upsert(ctx, "session_1", "t-100"); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	d.Close()

	reopened, err := directory.OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, "session_1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "t-100" {
		t.Errorf("Get() = %q, want %q", got, "t-100")
	}
}

func TestSQLite_ClosedIsUnreachable(t *testing.T) {
	d, err := directory.OpenSQLite(filepath.Join(t.TempDir(), "dir.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	d.Close()

	_, err = d.Get(context.Background(), "session_1")
	if err == nil || errors.Is(err, directory.ErrNotFound) {
		t.Errorf("Get() on closed db error = %v, want non-NotFound error", err)
	}
}

func TestCosmos_DocumentShape(t *testing.T) {
	fake := newFakeContainer()
	d := directory.NewCosmos(fake)

	if err := d.Upsert(context.Background(), "session_1", "t-100"); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	var rec map[string]string
	if err := json.Unmarshal(fake.items["session_1"], &rec); err != nil {
		t.Fatalf("stored item is not JSON: %v", err)
	}
	want := map[string]string{"id": "session_1", "session_id": "session_1", "thread_id": "t-100"}
	for k, v := range want {
		if rec[k] != v {
			t.Errorf("item[%q] = %q, want %q", k, rec[k], v)
		}
	}
}

func TestCosmos_ServiceError(t *testing.T) {
	fake := newFakeContainer()
	fake.readErr = &azcore.ResponseError{StatusCode: http.StatusServiceUnavailable}
	d := directory.NewCosmos(fake)

	_, err := d.Get(context.Background(), "session_1")
	if err == nil || errors.Is(err, directory.ErrNotFound) {
		t.Errorf("Get() error = %v, want unreachable error", err)
	}
}

func TestNew_Backends(t *testing.T) {
	tests := []struct {
		name    string
		cfg     directory.Config
		wantErr error
	}{
		{"memory", directory.Config{Backend: directory.BackendMemory}, nil},
		{"sqlite", directory.Config{Backend: directory.BackendSQLite, Path: filepath.Join(t.TempDir(), "d.db")}, nil},
		{"unknown", directory.Config{Backend: "redis"}, directory.ErrUnknownBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := directory.New(&tt.cfg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("New() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			d.Close()
		})
	}
}

func TestNew_CosmosRequiresEndpoint(t *testing.T) {
	cfg := directory.Config{Backend: directory.BackendCosmos}
	if _, err := directory.New(&cfg); err == nil {
		t.Error("New() with empty cosmos config succeeded, want error")
	}
}

func TestConfig_Merge(t *testing.T) {
	cfg := directory.DefaultConfig()
	cfg.Merge(&directory.Config{
		Backend: directory.BackendCosmos,
		Cosmos:  directory.CosmosConfig{Endpoint: "https://acct.documents.azure.com:443/", Database: "hr"},
	})

	if cfg.Backend != directory.BackendCosmos {
		t.Errorf("Backend = %q, want %q", cfg.Backend, directory.BackendCosmos)
	}
	if cfg.Path != filepath.Join(".state", "directory.db") {
		t.Errorf("Path changed to %q", cfg.Path)
	}
	if cfg.Cosmos.Database != "hr" || cfg.Cosmos.Container != "" {
		t.Errorf("Cosmos = %+v", cfg.Cosmos)
	}
}

// fakeContainer stores items in a map and reports 404 like the service.
type fakeContainer struct {
	mu      sync.Mutex
	items   map[string][]byte
	readErr error
}

func newFakeContainer() *fakeContainer {
	return &fakeContainer{items: make(map[string][]byte)}
}

func (f *fakeContainer) ReadItem(_ context.Context, _ azcosmos.PartitionKey, id string, _ *azcosmos.ItemOptions) (azcosmos.ItemResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.readErr != nil {
		return azcosmos.ItemResponse{}, f.readErr
	}
	body, ok := f.items[id]
	if !ok {
		return azcosmos.ItemResponse{}, &azcore.ResponseError{StatusCode: http.StatusNotFound, ErrorCode: "NotFound"}
	}
	return azcosmos.ItemResponse{Value: body}, nil
}

func (f *fakeContainer) UpsertItem(_ context.Context, _ azcosmos.PartitionKey, item []byte, _ *azcosmos.ItemOptions) (azcosmos.ItemResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var rec directory.Record
	if err := json.Unmarshal(item, &rec); err != nil {
		return azcosmos.ItemResponse{}, err
	}
	f.items[rec.ID] = item
	return azcosmos.ItemResponse{Value: item}, nil
}

package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/tailored-agentic-units/hrassist/store"
)

// backends runs a test against every Store implementation.
func backends(t *testing.T, fn func(t *testing.T, s store.Store)) {
	t.Run("file", func(t *testing.T) { fn(t, store.NewFileStore(t.TempDir())) })
	t.Run("mem", func(t *testing.T) { fn(t, store.NewMemStore()) })
}

func TestStore_PutGet(t *testing.T) {
	backends(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		if err := s.Put(ctx, "threads/t-1.json", []byte(`{"id":"t-1"}`)); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		got, err := s.Get(ctx, "threads/t-1.json")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if string(got) != `{"id":"t-1"}` {
			t.Errorf("Get() = %q, want %q", got, `{"id":"t-1"}`)
		}
	})
}

func TestStore_Get_KeyNotFound(t *testing.T) {
	backends(t, func(t *testing.T, s store.Store) {
		_, err := s.Get(context.Background(), "missing.txt")
		if !errors.Is(err, store.ErrKeyNotFound) {
			t.Errorf("Get() error = %v, want %v", err, store.ErrKeyNotFound)
		}
	})
}

func TestStore_Put_Overwrites(t *testing.T) {
	backends(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		_ = s.Put(ctx, "thread_id.txt", []byte("t-1"))
		_ = s.Put(ctx, "thread_id.txt", []byte("t-2"))

		got, err := s.Get(ctx, "thread_id.txt")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if string(got) != "t-2" {
			t.Errorf("Get() = %q, want %q", got, "t-2")
		}
	})
}

func TestStore_Delete(t *testing.T) {
	backends(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		_ = s.Put(ctx, "k", []byte("v"))

		if err := s.Delete(ctx, "k"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if err := s.Delete(ctx, "k"); err != nil {
			t.Errorf("Delete() of missing key error = %v, want nil", err)
		}
		if _, err := s.Get(ctx, "k"); !errors.Is(err, store.ErrKeyNotFound) {
			t.Errorf("Get() after Delete error = %v, want %v", err, store.ErrKeyNotFound)
		}
	})
}

func TestStore_Keys_Prefix(t *testing.T) {
	backends(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		for _, k := range []string{"threads/b.json", "threads/a.json", "session_id.txt"} {
			if err := s.Put(ctx, k, []byte("x")); err != nil {
				t.Fatalf("Put(%q) error = %v", k, err)
			}
		}

		keys, err := s.Keys(ctx, "threads/")
		if err != nil {
			t.Fatalf("Keys() error = %v", err)
		}
		want := []string{"threads/a.json", "threads/b.json"}
		if len(keys) != len(want) {
			t.Fatalf("Keys() = %v, want %v", keys, want)
		}
		for i := range want {
			if keys[i] != want[i] {
				t.Errorf("Keys()[%d] = %q, want %q", i, keys[i], want[i])
			}
		}
	})
}

func TestFileStore_Keys_MissingRoot(t *testing.T) {
	s := store.NewFileStore(filepath.Join(t.TempDir(), "nonexistent"))

	keys, err := s.Keys(context.Background(), "")
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("Keys() returned %d keys, want 0", len(keys))
	}
}

func TestFileStore_HiddenRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), ".state")
	s := store.NewFileStore(root)
	ctx := context.Background()

	if err := s.Put(ctx, "session_id.txt", []byte("session_1")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	keys, err := s.Keys(ctx, "")
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if len(keys) != 1 || keys[0] != "session_id.txt" {
		t.Errorf("Keys() = %v, want [session_id.txt]", keys)
	}
}

func TestFileStore_Put_NoTempFilesLeft(t *testing.T) {
	root := t.TempDir()
	s := store.NewFileStore(root)

	if err := s.Put(context.Background(), "thread_id.txt", []byte("t-1")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("root holds %d entries, want 1 (temp file left behind?)", len(entries))
	}
}

func TestMemStore_DefensiveCopy(t *testing.T) {
	s := store.NewMemStore()
	ctx := context.Background()

	input := []byte("original")
	_ = s.Put(ctx, "k", input)
	input[0] = 'X'

	got, _ := s.Get(ctx, "k")
	got[1] = 'Y'

	again, _ := s.Get(ctx, "k")
	if string(again) != "original" {
		t.Errorf("stored value mutated through caller slice: %q", again)
	}
}

func TestStore_ConcurrentPut(t *testing.T) {
	backends(t, func(t *testing.T, s store.Store) {
		const n = 50
		var wg sync.WaitGroup
		wg.Add(n)
		for range n {
			go func() {
				defer wg.Done()
				_ = s.Put(context.Background(), "thread_id.txt", []byte("t-1"))
			}()
		}
		wg.Wait()

		got, err := s.Get(context.Background(), "thread_id.txt")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if string(got) != "t-1" {
			t.Errorf("Get() = %q, want %q", got, "t-1")
		}
	})
}

func TestConfig(t *testing.T) {
	cfg := store.DefaultConfig()
	if cfg.Root != ".state" {
		t.Errorf("DefaultConfig().Root = %q, want %q", cfg.Root, ".state")
	}

	cfg.Merge(&store.Config{})
	if cfg.Root != ".state" {
		t.Errorf("Merge(empty) changed Root to %q", cfg.Root)
	}

	cfg.Merge(&store.Config{Root: "/var/lib/hrassist"})
	if cfg.Root != "/var/lib/hrassist" {
		t.Errorf("Merge() Root = %q, want %q", cfg.Root, "/var/lib/hrassist")
	}
}

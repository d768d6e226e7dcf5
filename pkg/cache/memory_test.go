package cache

import (
	"context"
	"testing"
)

func TestMemoryStore_QuotaAccounting(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10)

	if err := store.Set(ctx, "a", []byte("12345")); err != nil {
		t.Fatalf("first write should fit: %v", err)
	}
	if err := store.Set(ctx, "b", []byte("123456")); err != ErrQuotaExceeded {
		t.Errorf("over-quota write: got %v, want ErrQuotaExceeded", err)
	}

	// Overwriting an existing key only charges the delta.
	if err := store.Set(ctx, "a", []byte("1234567890")); err != nil {
		t.Errorf("overwrite within quota failed: %v", err)
	}

	// Deleting frees the budget.
	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Set(ctx, "b", []byte("123456")); err != nil {
		t.Errorf("write after delete failed: %v", err)
	}
}

func TestMemoryStore_KeysPrefix(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)

	store.Set(ctx, "pokedex:a", []byte("1"))
	store.Set(ctx, "pokedex:b", []byte("2"))
	store.Set(ctx, "other:c", []byte("3"))

	keys, err := store.Keys(ctx, "pokedex:")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("got %d keys, want 2: %v", len(keys), keys)
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemoryStore(0)
	if _, err := store.Get(context.Background(), "missing"); err != ErrNotFound {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

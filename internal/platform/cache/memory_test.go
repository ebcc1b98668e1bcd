package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemory_SetGet(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	ctx := context.Background()

	if err := m.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := m.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("expected v, got %s", got)
	}
}

func TestMemory_MissAndExpiry(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	ctx := context.Background()

	if _, err := m.Get(ctx, "absent"); err != ErrMiss {
		t.Errorf("expected ErrMiss, got %v", err)
	}

	m.Set(ctx, "k", []byte("v"), -time.Second)
	if _, err := m.Get(ctx, "k"); err != ErrMiss {
		t.Errorf("expected ErrMiss for expired entry, got %v", err)
	}
}

func TestMemory_Delete(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	ctx := context.Background()

	m.Set(ctx, "k", []byte("v"), time.Minute)
	if err := m.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.Get(ctx, "k"); err != ErrMiss {
		t.Errorf("expected ErrMiss after delete, got %v", err)
	}
}

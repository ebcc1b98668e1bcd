package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type countingSource struct {
	values map[string]string
	calls  int
	fail   bool
}

func (s *countingSource) Fetch(_ context.Context, name string) (string, error) {
	s.calls++
	if s.fail {
		return "", errors.New("source down")
	}
	val, ok := s.values[name]
	if !ok {
		return "", errors.New("not found")
	}
	return val, nil
}

func TestEnvSource(t *testing.T) {
	os.Setenv("SESSION_SECRET", "topsecret")
	defer os.Unsetenv("SESSION_SECRET")

	val, err := EnvSource{}.Fetch(context.Background(), "session-secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "topsecret" {
		t.Errorf("expected topsecret, got %s", val)
	}

	if _, err := (EnvSource{}).Fetch(context.Background(), "no-such-secret"); err == nil {
		t.Error("expected error for unset secret")
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "signing-key"), []byte("abc123\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	val, err := FileSource{Dir: dir}.Fetch(context.Background(), "signing-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "abc123" {
		t.Errorf("expected trailing newline trimmed, got %q", val)
	}
}

func TestCached_ServesFromCacheWithinTTL(t *testing.T) {
	src := &countingSource{values: map[string]string{"k": "v"}}
	c := NewCached(src, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		val, err := c.Fetch(ctx, "k")
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if val != "v" {
			t.Errorf("fetch %d: expected v, got %s", i, val)
		}
	}
	if src.calls != 1 {
		t.Errorf("expected 1 source call, got %d", src.calls)
	}
}

func TestCached_InvalidateForcesRefetch(t *testing.T) {
	src := &countingSource{values: map[string]string{"k": "v1"}}
	c := NewCached(src, 0)
	ctx := context.Background()

	c.Fetch(ctx, "k")
	src.values["k"] = "v2"

	// Zero TTL caches forever until invalidated.
	val, _ := c.Fetch(ctx, "k")
	if val != "v1" {
		t.Errorf("expected cached v1, got %s", val)
	}

	c.Invalidate("k")
	val, _ = c.Fetch(ctx, "k")
	if val != "v2" {
		t.Errorf("expected refetched v2, got %s", val)
	}
}

func TestCached_ServesStaleOnSourceFailure(t *testing.T) {
	src := &countingSource{values: map[string]string{"k": "v"}}
	c := NewCached(src, time.Nanosecond)
	ctx := context.Background()

	if _, err := c.Fetch(ctx, "k"); err != nil {
		t.Fatalf("prime: %v", err)
	}
	time.Sleep(time.Millisecond)
	src.fail = true

	val, err := c.Fetch(ctx, "k")
	if err != nil {
		t.Fatalf("expected stale value, got error: %v", err)
	}
	if val != "v" {
		t.Errorf("expected stale v, got %s", val)
	}
}

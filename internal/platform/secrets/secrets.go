// Package secrets resolves named secrets (the session signing key, database
// credentials) from pluggable sources. Callers hold an explicit Cached wrapper
// with a refresh TTL instead of filling a process-wide global once and keeping
// it forever.
package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Source fetches the current value of a named secret.
type Source interface {
	Fetch(ctx context.Context, name string) (string, error)
}

// EnvSource reads secrets from environment variables. The secret name is
// upper-cased and non-alphanumeric runes become underscores, so
// "session-secret" resolves from SESSION_SECRET.
type EnvSource struct{}

func (EnvSource) Fetch(_ context.Context, name string) (string, error) {
	key := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)

	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return "", fmt.Errorf("secret %s not set in environment (%s)", name, key)
	}
	return val, nil
}

// FileSource reads secrets from files under a base directory, one file per
// secret, trimming trailing whitespace. Suits mounted secret volumes.
type FileSource struct {
	Dir string
}

func (s FileSource) Fetch(_ context.Context, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir, name))
	if err != nil {
		return "", fmt.Errorf("read secret %s: %w", name, err)
	}
	val := strings.TrimRight(string(data), "\r\n")
	if val == "" {
		return "", fmt.Errorf("secret %s is empty", name)
	}
	return val, nil
}

// Static serves fixed values, for tests and for secrets passed directly via
// configuration.
type Static map[string]string

func (s Static) Fetch(_ context.Context, name string) (string, error) {
	val, ok := s[name]
	if !ok {
		return "", fmt.Errorf("secret %s not found", name)
	}
	return val, nil
}

// Cached wraps a Source with a per-name TTL cache. A zero TTL caches forever
// until Invalidate is called.
type Cached struct {
	src Source
	ttl time.Duration

	mu      sync.RWMutex
	entries map[string]cachedEntry
}

type cachedEntry struct {
	value     string
	fetchedAt time.Time
}

func NewCached(src Source, ttl time.Duration) *Cached {
	return &Cached{
		src:     src,
		ttl:     ttl,
		entries: make(map[string]cachedEntry),
	}
}

func (c *Cached) Fetch(ctx context.Context, name string) (string, error) {
	c.mu.RLock()
	entry, ok := c.entries[name]
	c.mu.RUnlock()

	if ok && (c.ttl <= 0 || time.Since(entry.fetchedAt) < c.ttl) {
		return entry.value, nil
	}

	val, err := c.src.Fetch(ctx, name)
	if err != nil {
		// Serve the stale value rather than failing hard when the
		// backing source is briefly unreachable.
		if ok {
			return entry.value, nil
		}
		return "", err
	}

	c.mu.Lock()
	c.entries[name] = cachedEntry{value: val, fetchedAt: time.Now()}
	c.mu.Unlock()

	return val, nil
}

// Invalidate drops the cached value for name, forcing the next Fetch to hit
// the underlying source.
func (c *Cached) Invalidate(name string) {
	c.mu.Lock()
	delete(c.entries, name)
	c.mu.Unlock()
}

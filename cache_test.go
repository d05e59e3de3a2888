package shellterm

import (
	"testing"
	"time"
)

func TestRenderCacheHit(t *testing.T) {
	c := NewRenderCache(10, time.Minute)

	c.Add(42, []string{"a", "b"})
	lines, ok := c.Get(42)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(lines) != 2 || lines[0] != "a" {
		t.Errorf("expected cached lines, got %q", lines)
	}
}

func TestRenderCacheMiss(t *testing.T) {
	c := NewRenderCache(10, time.Minute)

	if _, ok := c.Get(99); ok {
		t.Error("expected cache miss")
	}
}

func TestRenderCacheTTL(t *testing.T) {
	c := NewRenderCache(10, 50*time.Millisecond)

	c.Add(1, []string{"a"})
	if _, ok := c.Get(1); !ok {
		t.Fatal("expected hit before expiry")
	}

	time.Sleep(100 * time.Millisecond)
	if _, ok := c.Get(1); ok {
		t.Error("expected entry expired")
	}
}

func TestRenderCacheEviction(t *testing.T) {
	c := NewRenderCache(2, time.Minute)

	c.Add(1, []string{"one"})
	c.Add(2, []string{"two"})
	c.Add(3, []string{"three"})

	if c.Len() > 2 {
		t.Errorf("expected at most 2 entries, got %d", c.Len())
	}
	if _, ok := c.Get(1); ok {
		t.Error("expected oldest entry evicted")
	}
	if _, ok := c.Get(3); !ok {
		t.Error("expected newest entry present")
	}
}

func TestRenderCacheCopies(t *testing.T) {
	c := NewRenderCache(10, time.Minute)

	c.Add(1, []string{"original"})
	lines, _ := c.Get(1)
	lines[0] = "mutated"

	again, _ := c.Get(1)
	if again[0] != "original" {
		t.Errorf("expected cache isolated from caller mutation, got %q", again[0])
	}
}

func TestRenderCachePurge(t *testing.T) {
	c := NewRenderCache(10, time.Minute)

	c.Add(1, []string{"a"})
	c.Purge()

	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", c.Len())
	}
}

func TestRenderCacheDefaults(t *testing.T) {
	c := NewRenderCache(0, 0)

	// Zero values fall back to the documented defaults; the cache must
	// still accept entries.
	c.Add(1, []string{"a"})
	if _, ok := c.Get(1); !ok {
		t.Error("expected hit with default capacity and TTL")
	}
}

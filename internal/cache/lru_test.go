package cache

import (
	"html/template"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

// TestLRUCacheEviction tests size-based eviction
func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[string](3, time.Hour)

	c.Set("key1", "value1")
	c.Set("key2", "value2")
	c.Set("key3", "value3")
	c.Get("key1")           // key1 is now most recently used
	c.Set("key4", "value4") // evicts key2

	if _, found := c.Get("key2"); found {
		t.Error("key2 should have been evicted")
	}
	for _, k := range []string{"key1", "key3", "key4"} {
		if _, found := c.Get(k); !found {
			t.Errorf("%s should still exist", k)
		}
	}
	if c.Size() != 3 {
		t.Errorf("Size() = %d, want 3", c.Size())
	}
}

// TestLRUCacheTTLExpiration tests time-based expiration
func TestLRUCacheTTLExpiration(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	c := NewLRUCache[template.HTML](100, 50*time.Millisecond).WithClock(clk.now)

	c.Set("1:all", template.HTML("<ul></ul>"))
	if v, found := c.Get("1:all"); !found || v != "<ul></ul>" {
		t.Fatal("entry should exist immediately")
	}

	clk.t = clk.t.Add(50 * time.Millisecond)
	if _, found := c.Get("1:all"); found {
		t.Error("entry should have expired")
	}
	if c.Size() != 0 {
		t.Error("expired entry should be removed on lookup")
	}
}

func TestLRUCacheOverwriteRefreshesTTL(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	c := NewLRUCache[string](10, time.Minute).WithClock(clk.now)

	c.Set("k", "old")
	clk.t = clk.t.Add(40 * time.Second)
	c.Set("k", "new")
	clk.t = clk.t.Add(40 * time.Second)

	if v, found := c.Get("k"); !found || v != "new" {
		t.Fatalf("Get = %q, %v", v, found)
	}
}

// TestLRUCacheCleanExpired tests the cleanup mechanism
func TestLRUCacheCleanExpired(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	c := NewLRUCache[string](100, time.Second).WithClock(clk.now)

	c.Set("key1", "value1")
	c.Set("key2", "value2")
	clk.t = clk.t.Add(2 * time.Second)
	c.Set("key3", "value3")

	if removed := c.CleanExpired(); removed != 2 {
		t.Errorf("Expected 2 items cleaned, got %d", removed)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
}

func TestLRUCacheDeletePurgeStats(t *testing.T) {
	c := NewLRUCache[string](10, time.Hour)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Delete("a")

	c.Get("a") // miss
	c.Get("b") // hit

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.Size != 1 {
		t.Fatalf("Stats() = %+v", s)
	}

	c.Purge()
	if c.Size() != 0 {
		t.Fatal("Purge should empty the cache")
	}
	c.Set("c", "3")
	if _, ok := c.Get("c"); !ok {
		t.Fatal("cache unusable after Purge")
	}
}

func TestManagerCleanAll(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	a := NewLRUCache[string](10, time.Second).WithClock(clk.now)
	b := NewLRUCache[int](10, time.Second).WithClock(clk.now)
	a.Set("x", "1")
	b.Set("y", 2)

	m := NewManager(nil)
	m.Register(a)
	m.Register(b)

	clk.t = clk.t.Add(time.Second)
	if n := m.CleanAll(); n != 2 {
		t.Fatalf("CleanAll() = %d, want 2", n)
	}

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop() // second stop is a no-op
}

// BenchmarkLRUCache benchmarks cache performance
func BenchmarkLRUCache(b *testing.B) {
	c := NewLRUCache[template.HTML](1000, time.Hour)
	html := template.HTML("<li>row</li>")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if i%10 == 0 {
			c.Set("7:all", html)
		} else {
			c.Get("7:all")
		}
	}
}

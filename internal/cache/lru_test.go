package cache

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache(maxSize int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](maxSize, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRUCacheEviction(t *testing.T) {
	c, _ := newTestCache(3, time.Hour)

	c.Set("key1", "value1")
	c.Set("key2", "value2")
	c.Set("key3", "value3")
	c.Get("key1") // key2 becomes least recently used
	c.Set("key4", "value4")

	if _, ok := c.Get("key2"); ok {
		t.Error("key2 should have been evicted")
	}
	for _, k := range []string{"key1", "key3", "key4"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s should still be cached", k)
		}
	}
	if c.Size() != 3 {
		t.Errorf("Size() = %d, want 3", c.Size())
	}
}

func TestLRUCacheTTL(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	c.Set("key1", "value1")

	if _, ok := c.Get("key1"); !ok {
		t.Fatal("fresh entry missing")
	}
	clock.t = clock.t.Add(2 * time.Minute)
	if _, ok := c.Get("key1"); ok {
		t.Fatal("expired entry returned")
	}
	if c.Size() != 0 {
		t.Errorf("expired entry not removed on Get, size %d", c.Size())
	}
}

func TestLRUCacheOverwrite(t *testing.T) {
	c, _ := newTestCache(2, time.Hour)
	c.Set("k", "a")
	c.Set("k", "b")
	if v, _ := c.Get("k"); v != "b" {
		t.Errorf("Get = %q, want b", v)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
}

func TestLRUCachePurgeAndDelete(t *testing.T) {
	c, _ := newTestCache(10, time.Hour)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("deleted key still present")
	}
	c.Purge()
	if c.Size() != 0 {
		t.Errorf("Size after Purge = %d", c.Size())
	}
	c.Set("c", "3")
	if _, ok := c.Get("c"); !ok {
		t.Error("cache unusable after Purge")
	}
}

func TestLRUCacheCleanExpired(t *testing.T) {
	c, clock := newTestCache(100, time.Minute)
	c.Set("key1", "value1")
	c.Set("key2", "value2")
	clock.t = clock.t.Add(30 * time.Second)
	c.Set("key3", "value3")
	clock.t = clock.t.Add(45 * time.Second)

	if removed := c.CleanExpired(); removed != 2 {
		t.Errorf("CleanExpired() = %d, want 2", removed)
	}
	if _, ok := c.Get("key3"); !ok {
		t.Error("unexpired key3 was removed")
	}
}

func TestLRUCacheStats(t *testing.T) {
	c, _ := newTestCache(10, time.Hour)
	c.Set("a", "1")
	c.Get("a")
	c.Get("a")
	c.Get("missing")
	s := c.Stats()
	if s.Hits != 2 || s.Misses != 1 || s.Size != 1 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestJanitor(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	j := NewJanitor(c)
	c.Set("a", "1")
	clock.t = clock.t.Add(time.Hour)
	if n := j.Sweep(); n != 1 {
		t.Fatalf("Sweep() = %d, want 1", n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func BenchmarkLRUCache(b *testing.B) {
	c := NewLRUCache[int](1000, time.Hour)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if i%10 == 0 {
			c.Set("bench-key", i)
		} else {
			c.Get("bench-key")
		}
	}
}

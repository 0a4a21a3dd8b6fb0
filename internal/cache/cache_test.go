package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func TestLRUCacheExpiration(t *testing.T) {
	clk := newClock()
	c := NewLRUCache[string](10, time.Second).WithClock(clk.Now)

	c.Set("a", "1")
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("expected hit, got %q %v", v, ok)
	}
	clk.Advance(2 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected expired entry to miss")
	}
	if c.Size() != 0 {
		t.Fatalf("expired entry should be removed on read, size=%d", c.Size())
	}
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)
	if _, ok := c.Get("b"); ok {
		t.Fatal("least recently used entry should be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("recently read entry should survive")
	}
}

func TestLRUCacheEntriesAndDelete(t *testing.T) {
	clk := newClock()
	c := NewLRUCache[int](10, time.Minute).WithClock(clk.Now)
	c.Set("old", 1)
	c.SetWithTTL("short", 2, time.Second)
	c.Set("new", 3)

	clk.Advance(2 * time.Second)
	entries := c.Entries()
	if len(entries) != 2 || entries[0].Key != "new" || entries[1].Key != "old" {
		t.Fatalf("entries = %+v", entries)
	}

	if c.Delete("short") {
		t.Fatal("deleting an expired entry reports false")
	}
	if !c.Delete("old") {
		t.Fatal("deleting a live entry reports true")
	}
	if c.Delete("missing") {
		t.Fatal("deleting a missing entry reports false")
	}
}

func TestCleanExpired(t *testing.T) {
	clk := newClock()
	c := NewLRUCache[int](10, time.Second).WithClock(clk.Now)
	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprint(i), i)
	}
	c.SetWithTTL("long", 9, time.Hour)
	clk.Advance(5 * time.Second)

	m := NewManager(nil)
	m.Register(c)
	if n := m.CleanNow(); n != 3 {
		t.Fatalf("cleaned %d, want 3", n)
	}
	if c.Size() != 1 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestManagerStartStop(t *testing.T) {
	m := NewManager(nil)
	m.Register(NewLRUCache[int](1, time.Millisecond))
	m.StartCleanup(5 * time.Millisecond)
	m.StartCleanup(5 * time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	m.Stop()
	m.Stop()

	idle := NewManager(nil)
	idle.Stop()
}

func TestLRUCacheConcurrentAccess(t *testing.T) {
	c := NewLRUCache[int](50, time.Minute)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprint(i % 60)
				c.Set(key, i)
				c.Get(key)
				if i%10 == 0 {
					c.Entries()
					c.CleanExpired()
				}
			}
		}(g)
	}
	wg.Wait()
	if c.Size() > 50 {
		t.Fatalf("size %d exceeds max", c.Size())
	}
}

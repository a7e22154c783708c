package cache

import (
	"fmt"
	"testing"
)

func TestPutEvictsOldestInsertedFirst(t *testing.T) {
	c := NewFIFO(3)
	for i := 0; i < 4; i++ {
		c.Put(fmt.Sprintf("k%d", i), fmt.Sprintf("v%d", i))
	}

	if c.Len() != 3 {
		t.Fatalf("expected size 3 after overflow, got %d", c.Len())
	}
	if _, ok := c.Get("k0"); ok {
		t.Fatalf("expected k0 evicted")
	}
	for i := 1; i < 4; i++ {
		if _, ok := c.Get(fmt.Sprintf("k%d", i)); !ok {
			t.Fatalf("expected k%d present", i)
		}
	}
}

func TestGetDoesNotRefreshEvictionOrder(t *testing.T) {
	c := NewFIFO(2)
	c.Put("a", "1")
	c.Put("b", "2")
	c.Put("c", "3") // evicts a

	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected a evicted by b,c")
	}
	if _, ok := c.Get("b"); !ok {
		t.Fatalf("expected b present before read check")
	}

	// A hit on b must not protect it: the next insert still evicts b, not c.
	c.Put("d", "4")
	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected b evicted despite recent get (FIFO, not LRU)")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatalf("expected c retained")
	}
	if _, ok := c.Get("d"); !ok {
		t.Fatalf("expected d present")
	}
}

func TestPutExistingKeyRefreshesValueInPlace(t *testing.T) {
	c := NewFIFO(2)
	c.Put("a", "1")
	c.Put("b", "2")
	c.Put("a", "updated")

	if c.Len() != 2 {
		t.Fatalf("expected size unchanged, got %d", c.Len())
	}
	if v, _ := c.Get("a"); v != "updated" {
		t.Fatalf("expected refreshed value, got %q", v)
	}

	// a keeps its original (oldest) slot in the eviction queue.
	c.Put("c", "3")
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected a evicted first despite re-insert")
	}
	if _, ok := c.Get("b"); !ok {
		t.Fatalf("expected b retained")
	}
}

func TestNewFIFOFallsBackToDefaultCapacity(t *testing.T) {
	c := NewFIFO(0)
	for i := 0; i < DefaultCapacity+1; i++ {
		c.Put(fmt.Sprintf("k%d", i), "v")
	}
	if c.Len() != DefaultCapacity {
		t.Fatalf("expected size %d, got %d", DefaultCapacity, c.Len())
	}
}

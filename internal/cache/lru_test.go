package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestLRUCache_GetSet(t *testing.T) {
	c := NewLRUCache[string](4, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("Get() on empty cache returned ok")
	}

	c.Set("a", "1")
	got, ok := c.Get("a")
	if !ok || got != "1" {
		t.Errorf("Get(a) = %q, %v, want \"1\", true", got, ok)
	}

	c.Set("a", "2")
	got, _ = c.Get("a")
	if got != "2" {
		t.Errorf("Get(a) after overwrite = %q, want \"2\"", got)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
}

func TestLRUCache_EvictsOldest(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a becomes most recently used
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should still be present")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c should still be present")
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	c := NewLRUCache[int](4, 10*time.Millisecond)

	c.Set("a", 1)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Error("expired entry should not be returned")
	}

	c.Set("b", 2)
	time.Sleep(20 * time.Millisecond)
	if cleaned := c.CleanExpired(); cleaned != 1 {
		t.Errorf("CleanExpired() = %d, want 1", cleaned)
	}
	if c.Size() != 0 {
		t.Errorf("Size() after cleanup = %d, want 0", c.Size())
	}
}

func TestManager_SweepsAndCounts(t *testing.T) {
	c := NewLRUCache[int](4, 10*time.Millisecond)
	c.Set("a", 1)
	c.Set("b", 2)

	m := NewManager()
	m.Register(c)
	m.StartCleanup(20 * time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for m.Expired() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("Expired() = %d, want 2 before deadline", m.Expired())
		}
		time.Sleep(10 * time.Millisecond)
	}
	m.Stop()

	if c.Size() != 0 {
		t.Errorf("Size() after sweep = %d, want 0", c.Size())
	}
}

func TestLRUCache_DeletePrefix(t *testing.T) {
	c := NewLRUCache[int](16, time.Minute)

	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("owner-a:%d", i), i)
	}
	c.Set("owner-b:0", 99)

	if removed := c.DeletePrefix("owner-a:"); removed != 3 {
		t.Errorf("DeletePrefix() = %d, want 3", removed)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
	if _, ok := c.Get("owner-b:0"); !ok {
		t.Error("unrelated owner entry should survive prefix delete")
	}
}

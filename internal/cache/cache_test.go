package cache

import (
	"testing"
	"time"

	"github.com/ppiankov/firecheck/internal/model"
)

func TestKey_StableAndDistinct(t *testing.T) {
	a := Key("search", `{"q":"a"}`)
	if a != Key("search", `{"q":"a"}`) {
		t.Error("Expected identical keys for identical parts")
	}
	if a == Key("news", `{"q":"a"}`) {
		t.Error("Expected different keys for different endpoints")
	}
	// Part boundaries matter
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("Expected part boundaries to change the key")
	}
}

func TestMemoryCache_SetGetCopies(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	value := []byte("payload")
	if err := c.Set("k", value, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value[0] = 'X'

	got, ok := c.Get("k")
	if !ok || string(got) != "payload" {
		t.Errorf("Expected stored copy, got %q (found=%v)", got, ok)
	}

	_ = c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("Expected key to be deleted")
	}
}

func TestDiskCache_Expiry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if err := c.Set(Key("q"), []byte("body"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if got, ok := c.Get(Key("q")); !ok || string(got) != "body" {
		t.Fatalf("Expected hit, got %q (found=%v)", got, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get(Key("q")); ok {
		t.Error("Expected entry to expire")
	}
	if err := c.Delete(Key("q")); err != nil {
		t.Errorf("Delete of missing entry should succeed, got %v", err)
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	disk := NewDiskCache(dir, time.Minute)
	if err := disk.Set("k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}

	layered := NewLayeredCache(time.Minute, dir, time.Minute)
	if got, ok := layered.Get("k"); !ok || string(got) != "v" {
		t.Fatalf("Expected disk hit, got %q (found=%v)", got, ok)
	}
	if _, ok := layered.memory.Get("k"); !ok {
		t.Error("Expected disk hit to be promoted to memory")
	}
}

func TestNew_FromConfig(t *testing.T) {
	if New(model.CacheConfig{Enabled: false}) != nil {
		t.Error("Expected nil cache when disabled")
	}
	if _, ok := New(model.CacheConfig{Enabled: true}).(*MemoryCache); !ok {
		t.Error("Expected memory cache without disk dir")
	}
	if _, ok := New(model.CacheConfig{Enabled: true, DiskDir: t.TempDir()}).(*LayeredCache); !ok {
		t.Error("Expected layered cache with disk dir")
	}
}

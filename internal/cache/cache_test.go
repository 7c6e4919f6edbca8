package cache

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/truthcheck/truthcheck/internal/config"
	"github.com/truthcheck/truthcheck/internal/model"
)

func TestKey_Normalization(t *testing.T) {
	base := Key("Water boils at 100 degrees Celsius")

	if !strings.HasPrefix(base, "truthcheck:v1:") {
		t.Errorf("expected versioned prefix, got %s", base)
	}

	same := Key("  water   BOILS at 100 degrees celsius ")
	if base != same {
		t.Error("expected case and whitespace variants to share a key")
	}

	other := Key("The Earth orbits the Sun")
	if base == other {
		t.Error("expected distinct claims to have distinct keys")
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if err := c.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, found := c.Get("k")
	if !found || string(got) != "v" {
		t.Errorf("expected v, got %q (found=%v)", got, found)
	}

	if err := c.Delete("k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, found := c.Get("k"); found {
		t.Error("expected miss after delete")
	}

	_ = c.Set("a", []byte("1"), 0)
	_ = c.Set("b", []byte("2"), 0)
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, found := c.Get("a"); found {
		t.Error("expected miss after clear")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	_ = c.Set("e", []byte("x"), 20*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	if _, found := c.Get("e"); found {
		t.Error("expected entry to expire")
	}
}

func TestDiskCache(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Minute)

	if err := c.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// A fresh instance over the same directory sees the entry
	c2 := NewDiskCache(dir, time.Minute)
	got, found := c2.Get("k")
	if !found || string(got) != "v" {
		t.Errorf("expected v, got %q (found=%v)", got, found)
	}

	if err := c.Delete("k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, found := c.Get("k"); found {
		t.Error("expected miss after delete")
	}
}

func TestDiskCache_Expiry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Minute)

	_ = c.Set("e", []byte("x"), 20*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	if _, found := c.Get("e"); found {
		t.Error("expected entry to expire")
	}

	// Expired entries are removed from disk
	if _, err := os.Stat(c.path("e")); !os.IsNotExist(err) {
		t.Error("expected expired file to be removed")
	}
}

func TestDiskCache_CorruptEntry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Minute)

	_ = c.Set("bad", []byte("v"), 0)
	if err := os.WriteFile(c.path("bad"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, found := c.Get("bad"); found {
		t.Error("expected miss for corrupt entry")
	}
}

func TestDiskCache_Clear(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Minute)

	_ = c.Set("a", []byte("1"), 0)
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, found := c.Get("a"); found {
		t.Error("expected miss after clear")
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()

	c1 := NewLayeredCache(time.Minute, dir, time.Minute)
	if err := c1.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// A fresh layered cache has cold memory and must hit disk
	c2 := NewLayeredCache(time.Minute, dir, time.Minute)
	got, found := c2.Get("k")
	if !found || string(got) != "v" {
		t.Fatalf("expected disk hit, got %q (found=%v)", got, found)
	}

	// After promotion the entry survives removal of the disk copy
	_ = c2.disk.Delete("k")
	got, found = c2.Get("k")
	if !found || string(got) != "v" {
		t.Errorf("expected promoted memory hit, got %q (found=%v)", got, found)
	}
}

func TestLayeredCache_DeleteAndClear(t *testing.T) {
	dir := t.TempDir()
	c := NewLayeredCache(time.Minute, dir, time.Minute)

	_ = c.Set("k", []byte("v"), 0)
	if err := c.Delete("k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, found := c.Get("k"); found {
		t.Error("expected miss after delete")
	}

	_ = c.Set("k2", []byte("v2"), 0)
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, found := c.Get("k2"); found {
		t.Error("expected miss after clear")
	}
}

func TestVerdictCache_RoundTrip(t *testing.T) {
	cfg := config.CacheConfig{
		Enabled:   true,
		Dir:       t.TempDir(),
		MemoryTTL: time.Minute,
		DiskTTL:   time.Minute,
	}
	vc := NewVerdictCache(cfg)

	claim := "The Earth orbits the Sun"
	verdict := &model.Verdict{
		Claim:       claim,
		Label:       model.VerdictTrue,
		Confidence:  0.87,
		Explanation: "Analyzed 3 sources.",
	}

	if err := vc.Set(claim, verdict); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Key normalization makes reworded casing hit the same entry
	got, found := vc.Get("the earth ORBITS the sun")
	if !found {
		t.Fatal("expected cache hit")
	}
	if got.Label != model.VerdictTrue || got.Confidence != 0.87 {
		t.Errorf("unexpected verdict: %+v", got)
	}
	if got.Claim != claim {
		t.Errorf("expected original claim text, got %q", got.Claim)
	}
}

func TestVerdictCache_Disabled(t *testing.T) {
	vc := NewVerdictCache(config.CacheConfig{Enabled: false})

	claim := "The Earth orbits the Sun"
	if err := vc.Set(claim, &model.Verdict{Label: model.VerdictTrue}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, found := vc.Get(claim); found {
		t.Error("expected miss from disabled cache")
	}
	if err := vc.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
}

func TestVerdictCache_CorruptEntryDropped(t *testing.T) {
	cfg := config.CacheConfig{
		Enabled:   true,
		Dir:       t.TempDir(),
		MemoryTTL: time.Minute,
		DiskTTL:   time.Minute,
	}
	vc := NewVerdictCache(cfg)

	claim := "The Earth orbits the Sun"
	_ = vc.store.Set(Key(claim), []byte("{not json"), 0)

	if _, found := vc.Get(claim); found {
		t.Error("expected miss for corrupt entry")
	}
	if _, found := vc.store.Get(Key(claim)); found {
		t.Error("expected corrupt entry to be dropped")
	}
}

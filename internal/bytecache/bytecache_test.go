package bytecache_test

import (
	"context"
	"path/filepath"
	"testing"

	"aslang/internal/bytecache"
	"aslang/internal/compiler"
	"aslang/internal/runtime"
)

const sample = "let x = 6;\noutput x * 7;"

func openCache(t *testing.T) *bytecache.Cache {
	t.Helper()
	cache, err := bytecache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestMissThenHit(t *testing.T) {
	cache := openCache(t)

	if _, ok, err := cache.Get(sample); err != nil || ok {
		t.Fatalf("expected a miss, got ok=%v err=%v", ok, err)
	}

	chunk, err := runtime.Compile(sample, compiler.Options{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if err := cache.Put(sample, chunk); err != nil {
		t.Fatalf("put: %v", err)
	}

	cached, ok, err := cache.Get(sample)
	if err != nil || !ok {
		t.Fatalf("expected a hit, got ok=%v err=%v", ok, err)
	}
	res, err := runtime.RunChunk(context.Background(), cached, runtime.Options{})
	if err != nil {
		t.Fatalf("run cached chunk: %v", err)
	}
	if len(res.Outputs) != 1 || res.Outputs[0] != "42" {
		t.Errorf("outputs: %v", res.Outputs)
	}
}

func TestDifferentSourcesAreSeparate(t *testing.T) {
	cache := openCache(t)
	chunk, err := runtime.Compile(sample, compiler.Options{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if err := cache.Put(sample, chunk); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, ok, _ := cache.Get("output 1;"); ok {
		t.Errorf("unrelated source hit the cache")
	}
	if n, err := cache.Len(); err != nil || n != 1 {
		t.Errorf("len: got %d, %v", n, err)
	}
}

func TestPutReplaces(t *testing.T) {
	cache := openCache(t)
	chunk, err := runtime.Compile(sample, compiler.Options{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if err := cache.Put(sample, chunk); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := cache.Put(sample, chunk); err != nil {
		t.Fatalf("second put: %v", err)
	}
	if n, err := cache.Len(); err != nil || n != 1 {
		t.Errorf("len after replace: got %d, %v", n, err)
	}
}

func TestInMemoryCache(t *testing.T) {
	cache, err := bytecache.Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer cache.Close()
	chunk, err := runtime.Compile(sample, compiler.Options{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if err := cache.Put(sample, chunk); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, ok, err := cache.Get(sample); err != nil || !ok {
		t.Errorf("hit expected, got ok=%v err=%v", ok, err)
	}
}

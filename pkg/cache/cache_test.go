package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit || data != nil {
		t.Error("null cache must always miss")
	}

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	if _, hit, _ = c.Get(ctx, "key"); hit {
		t.Error("null cache stored data")
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, hit, _ := c.Get(ctx, "missing"); hit {
		t.Error("unexpected hit on empty cache")
	}

	want := []byte(`{"module_count":3}`)
	if err := c.Set(ctx, "report:abc", want, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, hit, err := c.Get(ctx, "report:abc")
	if err != nil || !hit {
		t.Fatalf("Get = (%v, %v, %v)", got, hit, err)
	}
	if string(got) != string(want) {
		t.Errorf("data = %s, want %s", got, want)
	}

	if err := c.Delete(ctx, "report:abc"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "report:abc"); hit {
		t.Error("hit after delete")
	}
}

func TestFileCache_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry served")
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("hash not deterministic")
	}
	if h3 := Hash([]byte("world")); h1 == h3 {
		t.Error("different inputs collide")
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64", len(h1))
	}
}

func TestReportKey(t *testing.T) {
	type limits struct{ MaxNodes, MaxEdges int }

	k1 := ReportKey("fp1", []string{".py"}, limits{100, 200})
	k2 := ReportKey("fp1", []string{".py"}, limits{100, 200})
	if k1 != k2 {
		t.Error("same inputs produced different keys")
	}
	if k3 := ReportKey("fp2", []string{".py"}, limits{100, 200}); k1 == k3 {
		t.Error("fingerprint change did not change the key")
	}
	if k4 := ReportKey("fp1", []string{".py"}, limits{100, 999}); k1 == k4 {
		t.Error("limit change did not change the key")
	}
}

func TestScopedCache(t *testing.T) {
	ctx := context.Background()
	backing, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	a := Scoped(backing, "projA:")
	b := Scoped(backing, "projB:")

	if err := a.Set(ctx, "report", []byte("A"), 0); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := b.Get(ctx, "report"); hit {
		t.Error("scopes leaked into each other")
	}
	got, hit, _ := a.Get(ctx, "report")
	if !hit || string(got) != "A" {
		t.Errorf("scoped get = (%s, %v)", got, hit)
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()

	calls := 0
	err := RetryWithBackoff(ctx, func() error {
		calls++
		if calls < 3 {
			return Retryable(errors.New("transient"))
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("err = %v, calls = %d", err, calls)
	}

	calls = 0
	permanent := errors.New("permanent")
	err = RetryWithBackoff(ctx, func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) || calls != 1 {
		t.Fatalf("permanent error retried: err = %v, calls = %d", err, calls)
	}
}

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeStore struct {
	values  map[string]string
	expires map[string]time.Duration
	incrs   map[string]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		values:  map[string]string{},
		expires: map[string]time.Duration{},
		incrs:   map[string]int64{},
	}
}

func (f *fakeStore) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeStore) Set(ctx context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.values[key] = toString(value)
	f.expires[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeStore) Get(ctx context.Context, key string) *redis.StringCmd {
	val, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(val, nil)
}

func (f *fakeStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd {
	if _, ok := f.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.values[key] = toString(value)
	f.expires[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeStore) Incr(ctx context.Context, key string) *redis.IntCmd {
	f.incrs[key]++
	return redis.NewIntResult(f.incrs[key], nil)
}

func (f *fakeStore) Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	f.expires[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeStore) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var removed int64
	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			delete(f.values, key)
			removed++
		}
	}
	return redis.NewIntResult(removed, nil)
}

func (f *fakeStore) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	var found int64
	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			found++
		}
	}
	return redis.NewIntResult(found, nil)
}

func toString(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return ""
}

func TestKeyBuilders(t *testing.T) {
	c := &Client{store: newFakeStore()}

	if got := c.RestrictionsKey("abc"); got != "fflg:restrictions:abc" {
		t.Fatalf("unexpected restrictions key %q", got)
	}
	if got := c.AvailabilityKey(); got != "fflg:restrictions_up:down" {
		t.Fatalf("unexpected availability key %q", got)
	}
	if got := c.SessionKey("tok"); got != "fflg:session:tok" {
		t.Fatalf("unexpected session key %q", got)
	}
	if got := c.SavedCartKey("tok"); got != "fflg:savedcart:tok" {
		t.Fatalf("unexpected saved cart key %q", got)
	}
	if got := c.NonceKey("tok", "https://shop.example"); got != "fflg:nonce:tok:https://shop.example" {
		t.Fatalf("unexpected nonce key %q", got)
	}
}

func TestSetGetDel(t *testing.T) {
	store := newFakeStore()
	c := &Client{store: store}
	ctx := context.Background()

	if err := c.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got != "v" {
		t.Fatalf("unexpected value %q", got)
	}

	ok, err := c.Exists(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}

	if err := c.Del(ctx, "k"); err != nil {
		t.Fatalf("Del returned error: %v", err)
	}
	if _, err := c.Get(ctx, "k"); err == nil {
		t.Fatal("expected miss after delete")
	}
}

func TestFixedWindowAllow(t *testing.T) {
	store := newFakeStore()
	c := &Client{store: store}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _, err := c.FixedWindowAllow(ctx, "restore:tok", 3, time.Minute)
		if err != nil {
			t.Fatalf("FixedWindowAllow returned error: %v", err)
		}
		if !allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	allowed, count, err := c.FixedWindowAllow(ctx, "restore:tok", 3, time.Minute)
	if err != nil {
		t.Fatalf("FixedWindowAllow returned error: %v", err)
	}
	if allowed {
		t.Fatal("fourth request should be limited")
	}
	if count != 4 {
		t.Fatalf("unexpected count %d", count)
	}
	if store.expires[c.RateLimitKey("restore:tok")] != time.Minute {
		t.Fatal("expected window TTL applied on first increment")
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	c := &Client{}
	if err := c.Set(context.Background(), "k", "v", 0); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	if _, err := c.Get(context.Background(), "k"); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
}

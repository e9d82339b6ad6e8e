package restrictions

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fflcommerce/checkout-backend/pkg/config"
	"github.com/fflcommerce/checkout-backend/pkg/enums"
	"github.com/fflcommerce/checkout-backend/pkg/logger"
)

type stubCache struct {
	values map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newStubCache() *stubCache {
	return &stubCache{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (s *stubCache) Get(_ context.Context, key string) (string, error) {
	if s.getErr != nil {
		return "", s.getErr
	}
	value, ok := s.values[key]
	if !ok {
		return "", errors.New("missing key")
	}
	return value, nil
}

func (s *stubCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	s.values[key] = value.(string)
	s.ttls[key] = ttl
	return nil
}

func (s *stubCache) Exists(_ context.Context, key string) (bool, error) {
	if s.getErr != nil {
		return false, s.getErr
	}
	_, ok := s.values[key]
	return ok, nil
}

func (s *stubCache) RestrictionsKey(setHash string) string {
	return "fflg:restrictions:" + setHash
}

func (s *stubCache) AvailabilityKey() string {
	return "fflg:restrictions_up:down"
}

func newTestService(t *testing.T, baseURL string, cache *stubCache) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(config.RestrictionsConfig{
		BaseURL:        baseURL,
		StoreHash:      "abc123",
		Timeout:        2 * time.Second,
		CacheTTL:       time.Hour,
		UnavailableTTL: 5 * time.Minute,
	}, cache, nil, logg)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func restrictionsHandler(calls *atomic.Int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": 10},
			{"id": 20, "conditions": {"states": ["ca", "NY"]}}
		]`))
	}
}

func TestGetRestrictionsClassifiesRecords(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(restrictionsHandler(&calls))
	defer server.Close()

	svc := newTestService(t, server.URL, newStubCache())
	result, err := svc.GetRestrictions(WithMemo(context.Background()), []int64{20, 10, 30})
	if err != nil {
		t.Fatalf("get restrictions: %v", err)
	}

	firearm, ok := result[10]
	if !ok || firearm.Class != enums.ProductClassFirearm {
		t.Fatalf("expected product 10 classified firearm, got %+v", result[10])
	}
	ammo, ok := result[20]
	if !ok || ammo.Class != enums.ProductClassAmmo {
		t.Fatalf("expected product 20 classified ammo, got %+v", result[20])
	}
	if len(ammo.RestrictedStates) != 2 || ammo.RestrictedStates[0] != "CA" || ammo.RestrictedStates[1] != "NY" {
		t.Fatalf("expected normalized state codes, got %v", ammo.RestrictedStates)
	}
	if _, ok := result[30]; ok {
		t.Fatalf("product 30 absent upstream must stay unclassified")
	}
}

func TestGetRestrictionsMemoSkipsSecondCall(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(restrictionsHandler(&calls))
	defer server.Close()

	svc := newTestService(t, server.URL, newStubCache())
	ctx := WithMemo(context.Background())

	if _, err := svc.GetRestrictions(ctx, []int64{10, 20}); err != nil {
		t.Fatalf("first lookup: %v", err)
	}
	// reordered and duplicated IDs still resolve to the same normalized set
	if _, err := svc.GetRestrictions(ctx, []int64{20, 10, 20}); err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected 1 upstream call, got %d", got)
	}
}

func TestGetRestrictionsDurableCacheAcrossRequests(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(restrictionsHandler(&calls))
	defer server.Close()

	cache := newStubCache()
	svc := newTestService(t, server.URL, cache)

	if _, err := svc.GetRestrictions(WithMemo(context.Background()), []int64{10, 20}); err != nil {
		t.Fatalf("first request: %v", err)
	}
	// fresh memo simulates a new request; redis tier must answer
	result, err := svc.GetRestrictions(WithMemo(context.Background()), []int64{10, 20})
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected 1 upstream call, got %d", got)
	}
	if result[20].Class != enums.ProductClassAmmo {
		t.Fatalf("cached record lost classification: %+v", result[20])
	}
}

func TestGetRestrictionsFailureSetsOutageFlag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cache := newStubCache()
	svc := newTestService(t, server.URL, cache)

	_, err := svc.GetRestrictions(WithMemo(context.Background()), []int64{10})
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
	if svc.Available(context.Background()) {
		t.Fatalf("expected availability flag after failure")
	}
	if ttl := cache.ttls[cache.AvailabilityKey()]; ttl != 5*time.Minute {
		t.Fatalf("expected 5m outage flag TTL, got %v", ttl)
	}
	for key := range cache.values {
		if key != cache.AvailabilityKey() {
			t.Fatalf("failure result must never reach the durable cache, found %q", key)
		}
	}
}

func TestGetRestrictionsShortCircuitsWhileFlagged(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(restrictionsHandler(&calls))
	defer server.Close()

	cache := newStubCache()
	cache.values[cache.AvailabilityKey()] = "1"
	svc := newTestService(t, server.URL, cache)

	_, err := svc.GetRestrictions(WithMemo(context.Background()), []int64{10})
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected short-circuit sentinel, got %v", err)
	}
	if got := calls.Load(); got != 0 {
		t.Fatalf("expected no upstream calls while flagged, got %d", got)
	}
}

func TestGetRestrictionsMalformedBodyFailsOpen(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not": "an array"`))
	}))
	defer server.Close()

	svc := newTestService(t, server.URL, newStubCache())
	_, err := svc.GetRestrictions(WithMemo(context.Background()), []int64{10})
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestAvailableDefaultsOptimistic(t *testing.T) {
	cache := newStubCache()
	cache.getErr = errors.New("redis down")
	svc := newTestService(t, "http://unused.invalid", cache)
	if !svc.Available(context.Background()) {
		t.Fatalf("availability must default to true")
	}
}

func TestGetRestrictionsEmptySet(t *testing.T) {
	svc := newTestService(t, "http://unused.invalid", newStubCache())
	result, err := svc.GetRestrictions(WithMemo(context.Background()), nil)
	if err != nil {
		t.Fatalf("empty set lookup: %v", err)
	}
	if len(result) != 0 {
		t.Fatalf("expected empty result, got %v", result)
	}
}

package restrictions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fflcommerce/checkout-backend/pkg/config"
	"github.com/fflcommerce/checkout-backend/pkg/logger"
	"github.com/fflcommerce/checkout-backend/pkg/metrics"
)

const responseBodyReadLimit int64 = 1 << 20

// ErrServiceUnavailable is the sentinel returned for every failure mode of
// the upstream restrictions API. Callers treat it as "could not classify"
// and fail open; it is never written to the durable cache.
var ErrServiceUnavailable = errors.New("restrictions service unavailable")

type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	RestrictionsKey(setHash string) string
	AvailabilityKey() string
}

// Service resolves per-product regulatory classifications with two cache
// tiers in front of the upstream HTTP API.
type Service interface {
	GetRestrictions(ctx context.Context, ids []int64) (map[int64]Restriction, error)
	Available(ctx context.Context) bool
}

type service struct {
	httpClient     *http.Client
	baseURL        string
	storeHash      string
	cacheTTL       time.Duration
	unavailableTTL time.Duration
	cache          cacheStore
	metrics        *metrics.RestrictionsMetrics
	logg           *logger.Logger
}

// NewService builds the restrictions client from configuration. The metrics
// receiver may be nil.
func NewService(cfg config.RestrictionsConfig, cache cacheStore, m *metrics.RestrictionsMetrics, logg *logger.Logger) (Service, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("restrictions base URL required")
	}
	if strings.TrimSpace(cfg.StoreHash) == "" {
		return nil, fmt.Errorf("restrictions store hash required")
	}
	if cache == nil {
		return nil, fmt.Errorf("cache store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &service{
		httpClient:     &http.Client{Timeout: timeout},
		baseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		storeHash:      strings.TrimSpace(cfg.StoreHash),
		cacheTTL:       cfg.CacheTTL,
		unavailableTTL: cfg.UnavailableTTL,
		cache:          cache,
		metrics:        m,
		logg:           logg,
	}, nil
}

// GetRestrictions resolves the classification records for the given product
// IDs. Identical sets hit the same cache entries regardless of input order.
// All upstream failures collapse into ErrServiceUnavailable.
func (s *service) GetRestrictions(ctx context.Context, ids []int64) (map[int64]Restriction, error) {
	normalized := normalizeIDs(ids)
	if len(normalized) == 0 {
		return map[int64]Restriction{}, nil
	}

	setKey := idSetKey(normalized)
	requestMemo := memoFrom(ctx)
	if cached, ok := requestMemo.get(setKey); ok {
		s.metrics.IncLookup("memo")
		return cached, nil
	}

	cacheKey := s.cache.RestrictionsKey(hashIDSet(setKey))
	if payload, err := s.cache.Get(ctx, cacheKey); err == nil && payload != "" {
		result, decodeErr := decodeCached(payload)
		if decodeErr == nil {
			s.metrics.IncLookup("cache")
			requestMemo.put(setKey, result)
			return result, nil
		}
		s.logg.Warn(ctx, "discarding malformed restrictions cache entry: "+decodeErr.Error())
	}

	if !s.Available(ctx) {
		s.metrics.IncFailOpen("flagged_unavailable")
		return nil, ErrServiceUnavailable
	}

	result, err := s.fetch(ctx, normalized)
	if err != nil {
		s.logg.Error(ctx, "restrictions API fetch failed", err)
		s.markUnavailable(ctx)
		s.metrics.IncFailOpen("fetch_failed")
		return nil, ErrServiceUnavailable
	}

	s.metrics.IncLookup("api")
	if encoded, encodeErr := encodeCached(result); encodeErr == nil {
		if cacheErr := s.cache.Set(ctx, cacheKey, encoded, s.cacheTTL); cacheErr != nil {
			s.logg.Warn(ctx, "writing restrictions cache failed: "+cacheErr.Error())
		}
	}
	requestMemo.put(setKey, result)
	return result, nil
}

// Available is optimistic. It reports false only while the short-lived
// outage flag set after an observed failure is still present.
func (s *service) Available(ctx context.Context) bool {
	down, err := s.cache.Exists(ctx, s.cache.AvailabilityKey())
	if err != nil {
		return true
	}
	return !down
}

func (s *service) markUnavailable(ctx context.Context) {
	ttl := s.unavailableTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if err := s.cache.Set(ctx, s.cache.AvailabilityKey(), "1", ttl); err != nil {
		s.logg.Warn(ctx, "writing restrictions outage flag failed: "+err.Error())
	}
}

func (s *service) fetch(ctx context.Context, ids []int64) (map[int64]Restriction, error) {
	query := url.Values{}
	for _, id := range ids {
		query.Add("product_ids[]", strconv.FormatInt(id, 10))
	}
	endpoint := fmt.Sprintf("%s/stores/%s/products/restrictions?%s", s.baseURL, url.PathEscape(s.storeHash), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build restrictions request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.metrics.ObserveFetch("error", time.Since(started))
		return nil, fmt.Errorf("execute restrictions request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		s.metrics.ObserveFetch("error", time.Since(started))
		return nil, fmt.Errorf("restrictions request returned status %d", resp.StatusCode)
	}

	var records []restrictionRecord
	if err := json.NewDecoder(io.LimitReader(resp.Body, responseBodyReadLimit)).Decode(&records); err != nil {
		s.metrics.ObserveFetch("error", time.Since(started))
		return nil, fmt.Errorf("decode restrictions response: %w", err)
	}
	s.metrics.ObserveFetch("ok", time.Since(started))

	result := make(map[int64]Restriction, len(records))
	for _, rec := range records {
		if rec.ID == 0 {
			continue
		}
		result[rec.ID] = rec.toRestriction()
	}
	return result, nil
}

func normalizeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	normalized := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		normalized = append(normalized, id)
	}
	sort.Slice(normalized, func(i, j int) bool { return normalized[i] < normalized[j] })
	return normalized
}

func idSetKey(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func hashIDSet(setKey string) string {
	sum := sha256.Sum256([]byte(setKey))
	return hex.EncodeToString(sum[:])
}

func encodeCached(result map[int64]Restriction) (string, error) {
	records := make([]Restriction, 0, len(result))
	for _, r := range result {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ProductID < records[j].ProductID })
	encoded, err := json.Marshal(records)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func decodeCached(payload string) (map[int64]Restriction, error) {
	var records []Restriction
	if err := json.Unmarshal([]byte(payload), &records); err != nil {
		return nil, err
	}
	result := make(map[int64]Restriction, len(records))
	for _, r := range records {
		result[r.ProductID] = r
	}
	return result, nil
}

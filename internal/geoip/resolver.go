// Package geoip resolves a caller IP address to an IANA timezone, with a
// redis cache in front of the lookup service and a fixed fallback zone for
// anything that cannot be resolved.
package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/appointment-scheduler/pkg/logging"
)

const cacheKeyPrefix = "geoip:tz:"

type lookupResponse struct {
	Timezone string `json:"timezone"`
}

// Resolver looks up timezones by IP. Every failure path returns the fallback
// zone; Timezone never errors.
type Resolver struct {
	baseURL    string
	fallback   string
	cacheTTL   time.Duration
	httpClient *http.Client
	redis      *redis.Client
	logger     *logging.Logger
}

// Option is a functional option for configuring the Resolver.
type Option func(*Resolver)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) {
		r.httpClient = client
	}
}

// WithRedis enables caching of lookups. A nil client disables caching.
func WithRedis(client *redis.Client, ttl time.Duration) Option {
	return func(r *Resolver) {
		r.redis = client
		if ttl > 0 {
			r.cacheTTL = ttl
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a Resolver. baseURL is the lookup service; fallback is
// the zone used when lookups fail or the address is private.
func NewResolver(baseURL, fallback string, timeout time.Duration, opts ...Option) *Resolver {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	r := &Resolver{
		baseURL:    strings.TrimRight(baseURL, "/"),
		fallback:   fallback,
		cacheTTL:   24 * time.Hour,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Timezone resolves ip to an IANA zone name. Private, loopback, and
// unparseable addresses resolve to the fallback immediately.
func (r *Resolver) Timezone(ctx context.Context, ip string) string {
	ip = strings.TrimSpace(ip)
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() {
		return r.fallback
	}
	if r.baseURL == "" {
		return r.fallback
	}

	if zone := r.cached(ctx, ip); zone != "" {
		return zone
	}

	zone, err := r.lookup(ctx, ip)
	if err != nil {
		r.logger.Warn("geoip lookup failed, using fallback", "ip", ip, "error", err)
		return r.fallback
	}

	r.store(ctx, ip, zone)
	return zone
}

func (r *Resolver) lookup(ctx context.Context, ip string) (string, error) {
	url := fmt.Sprintf("%s/%s", r.baseURL, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("geoip: build request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("geoip: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geoip: lookup returned status %d", resp.StatusCode)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("geoip: read response: %w", err)
	}

	var decoded lookupResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", fmt.Errorf("geoip: decode response: %w", err)
	}

	zone := strings.TrimSpace(decoded.Timezone)
	if zone == "" {
		return "", fmt.Errorf("geoip: lookup returned no timezone")
	}
	if _, err := time.LoadLocation(zone); err != nil {
		return "", fmt.Errorf("geoip: lookup returned invalid zone %q", zone)
	}
	return zone, nil
}

func (r *Resolver) cached(ctx context.Context, ip string) string {
	if r.redis == nil {
		return ""
	}
	zone, err := r.redis.Get(ctx, cacheKeyPrefix+ip).Result()
	if err != nil {
		return ""
	}
	return zone
}

func (r *Resolver) store(ctx context.Context, ip, zone string) {
	if r.redis == nil {
		return
	}
	if err := r.redis.Set(ctx, cacheKeyPrefix+ip, zone, r.cacheTTL).Err(); err != nil {
		r.logger.Warn("geoip cache write failed", "ip", ip, "error", err)
	}
}

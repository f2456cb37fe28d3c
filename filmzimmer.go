// Package filmzimmer is a client for a TMDB-shaped movie/TV metadata
// API. Catalog reads go through a two-tier TTL cache (process memory in
// front of a durable key-value store), and network calls run through a
// composable http.RoundTripper middleware chain: auth, retry, rate
// limiting, timeouts, circuit breaking, logging, metrics and tracing.
package filmzimmer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/Fawzi-AI/filmzimmer/pkg/cache"
	"github.com/Fawzi-AI/filmzimmer/pkg/kv"
	"github.com/Fawzi-AI/filmzimmer/pkg/metrics"
	"github.com/Fawzi-AI/filmzimmer/transport"
)

const (
	// DefaultBaseURL is the v3 API root.
	DefaultBaseURL = "https://api.themoviedb.org/3"

	// DefaultLanguage is used for every request unless overridden per
	// client or per call.
	DefaultLanguage = "en-US"
)

// TTLs per endpoint category. TTL is a property of the operation, not
// the data: reference data barely changes, trending churns hourly.
const (
	// TTLReference covers genre lists and configuration.
	TTLReference = 7 * 24 * time.Hour

	// TTLDetails covers title details, credits and videos.
	TTLDetails = 24 * time.Hour

	// TTLCatalog covers the popular/top-rated/now-playing rails.
	TTLCatalog = 6 * time.Hour

	// TTLVolatile covers trending and search results.
	TTLVolatile = 30 * time.Minute
)

// Client is a catalog API client. All read operations consult the
// tiered cache before the network; a cache hit never performs a
// network call.
type Client struct {
	baseURL   string
	language  string
	region    string
	http      *http.Client
	cache     *cache.TieredCache
	store     kv.Store
	ownsStore bool
	logger    *zap.Logger
	breaker   *transport.CircuitBreaker
}

type clientConfig struct {
	apiKey      string
	accessToken string
	baseURL     string
	language    string
	region      string
	timeout     time.Duration
	retryMax    int
	rateLimit   float64
	rateBurst   int
	logger      *zap.Logger
	collector   metrics.Collector
	store       kv.Store
	ownsStore   bool
	clock       func() time.Time
	base        http.RoundTripper
	extra       []transport.Middleware
	cacheOpts   []cache.Option
}

// Option configures a Client.
type Option func(*clientConfig)

// WithAPIKey sets the v3 API key, sent as the api_key query parameter.
func WithAPIKey(key string) Option {
	return func(c *clientConfig) {
		c.apiKey = key
	}
}

// WithAccessToken sets a v4-style bearer token, used instead of the
// api_key parameter. The token is sanity-checked at construction so an
// expired token fails fast instead of burning a network call.
func WithAccessToken(token string) Option {
	return func(c *clientConfig) {
		c.accessToken = token
	}
}

// WithBaseURL overrides the API root, e.g. to point at a test server.
func WithBaseURL(baseURL string) Option {
	return func(c *clientConfig) {
		c.baseURL = baseURL
	}
}

// WithDefaultLanguage sets the language parameter applied to every
// request unless overridden per call.
func WithDefaultLanguage(language string) Option {
	return func(c *clientConfig) {
		c.language = language
	}
}

// WithDefaultRegion sets the region parameter applied to release-date
// sensitive rails (now playing, upcoming) unless overridden per call.
func WithDefaultRegion(region string) Option {
	return func(c *clientConfig) {
		c.region = region
	}
}

// WithTimeout sets the per-attempt request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithRetryMax sets the total attempt budget for retryable failures.
// Zero disables retries.
func WithRetryMax(attempts int) Option {
	return func(c *clientConfig) {
		c.retryMax = attempts
	}
}

// WithRateLimit sets the outbound token bucket. The default tracks the
// classic upstream ceiling of roughly 35 requests per 10 seconds.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *clientConfig) {
		c.rateLimit = perSecond
		c.rateBurst = burst
	}
}

// WithLogger sets the structured logger used by the client and the
// cache. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics collector for the transport chain.
func WithMetrics(collector metrics.Collector) Option {
	return func(c *clientConfig) {
		c.collector = collector
	}
}

// WithStore sets the durable key-value store backing the persistent
// cache tier. Without a store the cache is memory-only. The store is
// shared infrastructure (the favourites journal may live in the same
// one); the client does not close it.
func WithStore(store kv.Store) Option {
	return func(c *clientConfig) {
		c.store = store
	}
}

// withOwnedStore marks the store as opened by the client itself, so
// Close tears it down.
func withOwnedStore() Option {
	return func(c *clientConfig) {
		c.ownsStore = true
	}
}

// WithClock injects the cache clock, so tests can simulate elapsed
// time without real timers.
func WithClock(clock func() time.Time) Option {
	return func(c *clientConfig) {
		c.clock = clock
	}
}

// WithHTTPTransport sets the base RoundTripper under the middleware
// chain.
func WithHTTPTransport(rt http.RoundTripper) Option {
	return func(c *clientConfig) {
		c.base = rt
	}
}

// WithMiddlewares appends extra middleware inside the default chain,
// directly above the base transport. Fault injection hooks in here.
func WithMiddlewares(mw ...transport.Middleware) Option {
	return func(c *clientConfig) {
		c.extra = append(c.extra, mw...)
	}
}

// WithCacheOptions forwards extra options to the tiered cache, e.g. a
// custom namespace or write queue size.
func WithCacheOptions(opts ...cache.Option) Option {
	return func(c *clientConfig) {
		c.cacheOpts = append(c.cacheOpts, opts...)
	}
}

// NewClient builds a Client. An API key or access token is required;
// everything else has workable defaults: memory-only cache, discarded
// logs, no metrics.
func NewClient(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		baseURL:   DefaultBaseURL,
		language:  DefaultLanguage,
		timeout:   10 * time.Second,
		retryMax:  3,
		rateLimit: 3.5,
		rateBurst: 35,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.apiKey == "" && cfg.accessToken == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.accessToken != "" {
		if err := transport.ValidateAccessToken(cfg.accessToken); err != nil {
			return nil, fmt.Errorf("filmzimmer: access token rejected: %w", err)
		}
	}

	cacheOpts := []cache.Option{cache.WithLogger(cfg.logger)}
	if cfg.store != nil {
		cacheOpts = append(cacheOpts, cache.WithStore(cfg.store))
	}
	if cfg.clock != nil {
		cacheOpts = append(cacheOpts, cache.WithClock(cfg.clock))
	}
	cacheOpts = append(cacheOpts, cfg.cacheOpts...)

	breaker := transport.NewCircuitBreaker()

	client := &Client{
		baseURL:   cfg.baseURL,
		language:  cfg.language,
		region:    cfg.region,
		cache:     cache.New(cacheOpts...),
		store:     cfg.store,
		ownsStore: cfg.ownsStore,
		logger:    cfg.logger,
		breaker:   breaker,
	}
	client.http = &http.Client{
		Transport: buildChain(cfg, breaker),
	}

	return client, nil
}

// buildChain assembles the middleware chain, outermost first: the log
// line and the metrics observation cover the whole logical request
// including retries, while rate limiting and the timeout apply to each
// individual attempt.
func buildChain(cfg *clientConfig, breaker *transport.CircuitBreaker) http.RoundTripper {
	chain := transport.NewChain(
		transport.Logging(transport.WithLogger(cfg.logger)),
	)

	if cfg.collector != nil {
		chain.Append(transport.MetricsMiddleware(cfg.collector))
	}

	chain.Append(
		transport.Tracing(),
		breaker.Middleware(),
	)

	if cfg.retryMax > 1 {
		chain.Append(transport.NewRetry(transport.WithMaxAttempts(cfg.retryMax)).Middleware())
	}

	chain.Append(
		transport.RateLimitWithWait(cfg.rateLimit, cfg.rateBurst),
		transport.Timeout(cfg.timeout),
	)

	if cfg.accessToken != "" {
		chain.Append(transport.BearerAuth(cfg.accessToken))
	} else {
		chain.Append(transport.APIKeyAuth(cfg.apiKey))
	}

	chain.Append(cfg.extra...)

	return chain.Then(cfg.base)
}

// Close flushes pending cache writes and releases resources. The
// backing store is closed only when the client opened it itself.
func (c *Client) Close() error {
	err := c.cache.Close()
	if c.ownsStore && c.store != nil {
		if serr := c.store.Close(); err == nil {
			err = serr
		}
	}
	return err
}

// ClearCache empties the memory tier, and unless memoryOnly also
// sweeps the persistent tier's namespace.
func (c *Client) ClearCache(ctx context.Context, memoryOnly bool) error {
	return c.cache.ClearAll(ctx, memoryOnly)
}

// CacheStats returns counters for both cache tiers.
func (c *Client) CacheStats() cache.TieredStats {
	return c.cache.Stats()
}

// BreakerState returns the circuit breaker state of the transport.
func (c *Client) BreakerState() transport.State {
	return c.breaker.CurrentState()
}

// fetch resolves one logical catalog request through the cache: a hit
// decodes the cached payload, a miss loads over HTTP, caches the raw
// response and decodes it. Load failures propagate untouched and are
// never cached.
func (c *Client) fetch(ctx context.Context, key string, ttl time.Duration, path string, params url.Values, out any) error {
	raw, err := c.cache.Fetch(ctx, key, ttl, func(ctx context.Context) (json.RawMessage, error) {
		return c.load(ctx, path, params)
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("filmzimmer: decoding %s: %w", path, err)
	}
	return nil
}

// load performs exactly one network call and returns the raw response
// body, converting non-2xx statuses into an APIError carrying the
// server-provided message.
func (c *Client) load(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("filmzimmer: building request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("filmzimmer: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, newAPIError(resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("filmzimmer: reading %s response: %w", path, err)
	}
	return raw, nil
}

// params builds the query for one call, folding in the client defaults.
func (c *Client) params(call callOptions) url.Values {
	values := url.Values{}
	values.Set("language", call.language)
	if call.page > 0 {
		values.Set("page", fmt.Sprint(call.page))
	}
	if call.region != "" {
		values.Set("region", call.region)
	}
	return values
}

// callOptions are per-call parameter overrides.
type callOptions struct {
	page     int
	language string
	region   string
}

// CallOption overrides one request parameter for a single call.
type CallOption func(*callOptions)

// WithPage selects a result page (1-based).
func WithPage(page int) CallOption {
	return func(o *callOptions) {
		o.page = page
	}
}

// WithLanguage overrides the language for this call only.
func WithLanguage(language string) CallOption {
	return func(o *callOptions) {
		o.language = language
	}
}

// WithRegion overrides the region for this call only.
func WithRegion(region string) CallOption {
	return func(o *callOptions) {
		o.region = region
	}
}

// call resolves per-call options against the client defaults. Paged
// operations pass paged=true so the page lands in both the query and
// the cache key.
func (c *Client) call(paged bool, opts []CallOption) callOptions {
	call := callOptions{
		language: c.language,
		region:   c.region,
	}
	if paged {
		call.page = 1
	}
	for _, opt := range opts {
		opt(&call)
	}
	return call
}

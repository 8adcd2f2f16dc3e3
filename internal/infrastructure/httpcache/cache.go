package httpcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"DailyReleases/internal/infrastructure/storage"
)

// ErrStorage marks failures of the persistent cache as opposed to network failures.
var ErrStorage = errors.New("cache storage")

const (
	// DefaultTTL applies when neither the request nor the cache configures one.
	DefaultTTL = time.Hour
	// DefaultRetention is how long entries survive Clean.
	DefaultRetention = 7 * 24 * time.Hour
)

// Getter is what listing sources and storefront providers depend on.
type Getter interface {
	Get(ctx context.Context, req Request) (*Response, error)
}

// Store persists responses keyed by request key.
type Store interface {
	LoadResponse(ctx context.Context, key string) (storage.CachedResponse, bool, error)
	SaveResponse(ctx context.Context, resp storage.CachedResponse) error
	DeleteResponsesBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Vacuum(ctx context.Context) error
}

// Request describes one cacheable GET.
type Request struct {
	URL    string
	Params url.Values
	// TTL overrides the cache default when positive.
	TTL time.Duration
	// Rate is the per-host request rate in requests per second; zero uses the default.
	Rate       float64
	NoThrottle bool
}

// Key returns the cache key: the URL followed by the params sorted by name.
func (r Request) Key() string {
	return r.URL + "?" + r.Params.Encode()
}

// LogValue logs the request without its query, which may carry API keys.
func (r Request) LogValue() slog.Value {
	return slog.StringValue(Redact(r.URL))
}

// Redact strips the query, fragment and user info from raw.
func Redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	u.User = nil
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	return u.String()
}

func (r Request) fetchURL() (string, error) {
	if len(r.Params) == 0 {
		return r.URL, nil
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	query := u.Query()
	for key, values := range r.Params {
		for _, value := range values {
			query.Add(key, value)
		}
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}

// Response is a fetched or cached HTTP response.
type Response struct {
	Body        []byte
	Status      int
	ContentType string
	StoredAt    time.Time
	FromCache   bool
}

// OK reports whether the response has a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	if r == nil {
		return errors.New("nil response")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

// Cache is a persistent GET cache with TTL expiry and per-host rate limiting.
type Cache struct {
	store      Store
	fetcher    Fetcher
	limiter    *Limiter
	defaultTTL time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

var _ Getter = (*Cache)(nil)

// Option customises a Cache.
type Option func(*Cache)

// WithDefaultTTL sets the TTL used when a request does not carry one.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}

// WithLogger attaches a logger for hit/miss diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New builds a cache. The limiter is shared by every caller of the cache.
func New(store Store, fetcher Fetcher, limiter *Limiter, opts ...Option) *Cache {
	c := &Cache{
		store:      store,
		fetcher:    fetcher,
		limiter:    limiter,
		defaultTTL: DefaultTTL,
		logger:     slog.New(slog.DiscardHandler),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.limiter == nil {
		c.limiter = NewLimiter(DefaultRate)
	}
	return c
}

// Get returns the stored response for req while it is younger than its TTL, otherwise
// waits for the host's rate limit, fetches, stores and returns the fresh response.
func (c *Cache) Get(ctx context.Context, req Request) (*Response, error) {
	key := req.Key()
	ttl := req.TTL
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	cached, found, err := c.store.LoadResponse(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if found && c.now().Sub(cached.StoredAt) < ttl {
		c.logger.Debug("cache hit", "request", req)
		return &Response{
			Body:        cached.Body,
			Status:      cached.Status,
			ContentType: cached.ContentType,
			StoredAt:    cached.StoredAt,
			FromCache:   true,
		}, nil
	}
	c.logger.Debug("cache miss", "request", req)

	target, err := req.fetchURL()
	if err != nil {
		return nil, err
	}
	host := hostOf(target)

	if !req.NoThrottle {
		if err := c.limiter.Wait(ctx, host, req.Rate); err != nil {
			return nil, err
		}
	}

	fetched, fetchErr := c.fetcher.Fetch(ctx, target)
	c.limiter.Record(host)
	if fetchErr != nil {
		return nil, fetchErr
	}

	resp := &Response{
		Body:        fetched.Body,
		Status:      fetched.Status,
		ContentType: fetched.ContentType,
		StoredAt:    c.now(),
	}
	err = c.store.SaveResponse(ctx, storage.CachedResponse{
		Key:         key,
		Body:        resp.Body,
		Status:      resp.Status,
		ContentType: resp.ContentType,
		StoredAt:    resp.StoredAt,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return resp, nil
}

// Clean deletes entries older than retention and compacts the database.
func (c *Cache) Clean(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		retention = DefaultRetention
	}
	deleted, err := c.store.DeleteResponsesBefore(ctx, c.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if err := c.store.Vacuum(ctx); err != nil {
		return deleted, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	c.logger.Info("cache cleaned", "deleted", deleted, "retention", retention.String())
	return deleted, nil
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}

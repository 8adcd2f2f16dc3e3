package httpcache_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"DailyReleases/internal/infrastructure/httpcache"
	"DailyReleases/internal/infrastructure/storage"
)

type memoryStore struct {
	mu      sync.Mutex
	rows    map[string]storage.CachedResponse
	loadErr error
	saveErr error
	vacuums int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rows: make(map[string]storage.CachedResponse)}
}

func (m *memoryStore) LoadResponse(_ context.Context, key string) (storage.CachedResponse, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return storage.CachedResponse{}, false, m.loadErr
	}
	row, ok := m.rows[key]
	return row, ok, nil
}

func (m *memoryStore) SaveResponse(_ context.Context, resp storage.CachedResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.rows[resp.Key] = resp
	return nil
}

func (m *memoryStore) DeleteResponsesBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for key, row := range m.rows {
		if row.StoredAt.Before(cutoff) {
			delete(m.rows, key)
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) Vacuum(context.Context) error {
	m.vacuums++
	return nil
}

type countingFetcher struct {
	calls []string
	err   error
}

func (f *countingFetcher) Fetch(_ context.Context, target string) (httpcache.Fetched, error) {
	f.calls = append(f.calls, target)
	if f.err != nil {
		return httpcache.Fetched{}, f.err
	}
	return httpcache.Fetched{
		Body:        []byte(fmt.Sprintf(`{"call":%d}`, len(f.calls))),
		Status:      http.StatusOK,
		ContentType: "application/json",
	}, nil
}

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	if d > 0 {
		c.sleeps = append(c.sleeps, d)
		c.now = c.now.Add(d)
	}
	return nil
}

func newFakeCache(store httpcache.Store, fetcher httpcache.Fetcher, clock *fakeClock) *httpcache.Cache {
	limiter := httpcache.NewLimiter(1).WithClock(clock.Now, clock.Sleep)
	return httpcache.New(store, fetcher, limiter,
		httpcache.WithClock(clock.Now),
		httpcache.WithDefaultTTL(time.Hour),
	)
}

func TestGetServesFromCacheWithinTTL(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC)}
	store := newMemoryStore()
	fetcher := &countingFetcher{}
	cache := newFakeCache(store, fetcher, clock)
	ctx := context.Background()
	req := httpcache.Request{URL: "https://api.example.test/list", Params: url.Values{"page": {"1"}}, TTL: time.Minute}

	first, err := cache.Get(ctx, req)
	if err != nil {
		t.Fatalf("first get: %v", err)
	}
	clock.now = clock.now.Add(30 * time.Second)
	second, err := cache.Get(ctx, req)
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if len(fetcher.calls) != 1 {
		t.Fatalf("expected exactly one fetch, got %d", len(fetcher.calls))
	}
	if first.FromCache || !second.FromCache || string(second.Body) != `{"call":1}` {
		t.Fatalf("unexpected responses: %+v %+v", first, second)
	}
	if fetcher.calls[0] != "https://api.example.test/list?page=1" {
		t.Fatalf("unexpected fetch url: %s", fetcher.calls[0])
	}

	clock.now = clock.now.Add(time.Minute)
	third, err := cache.Get(ctx, req)
	if err != nil {
		t.Fatalf("third get: %v", err)
	}
	if len(fetcher.calls) != 2 || third.FromCache || string(third.Body) != `{"call":2}` {
		t.Fatalf("expected refetch after ttl, got %d calls, %+v", len(fetcher.calls), third)
	}
	if row := store.rows[req.Key()]; string(row.Body) != `{"call":2}` {
		t.Fatalf("expected stored entry to be replaced, got %s", row.Body)
	}
}

func TestRequestKeySortsParams(t *testing.T) {
	t.Parallel()

	a := httpcache.Request{URL: "https://x.test/", Params: url.Values{"b": {"2"}, "a": {"1"}}}
	b := httpcache.Request{URL: "https://x.test/", Params: url.Values{"a": {"1"}, "b": {"2"}}}
	if a.Key() != b.Key() || a.Key() != "https://x.test/?a=1&b=2" {
		t.Fatalf("unexpected keys: %s %s", a.Key(), b.Key())
	}
}

func TestGetRateLimitsPerHost(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC)}
	cache := newFakeCache(newMemoryStore(), &countingFetcher{}, clock)
	ctx := context.Background()

	if _, err := cache.Get(ctx, httpcache.Request{URL: "https://a.test/1"}); err != nil {
		t.Fatalf("get 1: %v", err)
	}
	if _, err := cache.Get(ctx, httpcache.Request{URL: "https://b.test/1"}); err != nil {
		t.Fatalf("get other host: %v", err)
	}
	if len(clock.sleeps) != 0 {
		t.Fatalf("first request per host must not sleep, got %v", clock.sleeps)
	}

	clock.now = clock.now.Add(200 * time.Millisecond)
	if _, err := cache.Get(ctx, httpcache.Request{URL: "https://a.test/2"}); err != nil {
		t.Fatalf("get 2: %v", err)
	}
	if len(clock.sleeps) != 1 || clock.sleeps[0] != 800*time.Millisecond {
		t.Fatalf("expected one 800ms wait, got %v", clock.sleeps)
	}

	if _, err := cache.Get(ctx, httpcache.Request{URL: "https://a.test/3", Rate: 0.5}); err != nil {
		t.Fatalf("get 3: %v", err)
	}
	if len(clock.sleeps) != 2 || clock.sleeps[1] != 2*time.Second {
		t.Fatalf("expected a 2s wait at rate 0.5, got %v", clock.sleeps)
	}

	if _, err := cache.Get(ctx, httpcache.Request{URL: "https://a.test/4", NoThrottle: true}); err != nil {
		t.Fatalf("get unthrottled: %v", err)
	}
	if len(clock.sleeps) != 2 {
		t.Fatalf("unthrottled request must not wait, got %v", clock.sleeps)
	}
}

func TestGetSeparatesStorageErrors(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Now()}
	store := newMemoryStore()
	store.saveErr = errors.New("disk full")
	cache := newFakeCache(store, &countingFetcher{}, clock)

	_, err := cache.Get(context.Background(), httpcache.Request{URL: "https://a.test/"})
	if !errors.Is(err, httpcache.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}

	netErr := errors.New("connection refused")
	cache = newFakeCache(newMemoryStore(), &countingFetcher{err: netErr}, clock)
	_, err = cache.Get(context.Background(), httpcache.Request{URL: "https://a.test/"})
	if !errors.Is(err, netErr) || errors.Is(err, httpcache.ErrStorage) {
		t.Fatalf("expected transport error unchanged, got %v", err)
	}
}

func TestCleanDeletesOldEntries(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC)}
	store := newMemoryStore()
	store.rows["old"] = storage.CachedResponse{Key: "old", StoredAt: clock.now.Add(-8 * 24 * time.Hour)}
	store.rows["new"] = storage.CachedResponse{Key: "new", StoredAt: clock.now.Add(-time.Hour)}
	cache := newFakeCache(store, &countingFetcher{}, clock)

	deleted, err := cache.Clean(context.Background(), 0)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if deleted != 1 || store.vacuums != 1 {
		t.Fatalf("unexpected clean result: deleted=%d vacuums=%d", deleted, store.vacuums)
	}
	if _, ok := store.rows["new"]; !ok {
		t.Fatalf("recent entry should survive")
	}
}

func TestCacheAgainstSQLiteAndHTTP(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		hits int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		if r.Header.Get("User-Agent") != "dailyreleases-test" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"q":%q}`, r.URL.Query().Get("q"))
	}))
	defer srv.Close()

	ctx := context.Background()
	store, err := storage.Open(ctx, filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	cache := httpcache.New(store, httpcache.NewHTTPFetcher(5*time.Second, "dailyreleases-test"), httpcache.NewLimiter(1))
	req := httpcache.Request{URL: srv.URL + "/search", Params: url.Values{"q": {"aztez"}}}

	start := time.Now()
	first, err := cache.Get(ctx, req)
	if err != nil {
		t.Fatalf("first get: %v", err)
	}
	var payload struct {
		Q string `json:"q"`
	}
	if err := first.JSON(&payload); err != nil || payload.Q != "aztez" || !first.OK() {
		t.Fatalf("unexpected payload %+v err=%v status=%d", payload, err, first.Status)
	}

	if _, err := cache.Get(ctx, req); err != nil {
		t.Fatalf("cached get: %v", err)
	}

	other := httpcache.Request{URL: srv.URL + "/search", Params: url.Values{"q": {"other"}}}
	if _, err := cache.Get(ctx, other); err != nil {
		t.Fatalf("second host request: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 900*time.Millisecond {
		t.Fatalf("expected rate limiting of about 1s, got %v", elapsed)
	}

	mu.Lock()
	defer mu.Unlock()
	if hits != 2 {
		t.Fatalf("expected 2 upstream hits, got %d", hits)
	}
}

func TestLogsAndErrorsOmitQuery(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	clock := &fakeClock{now: time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC)}
	cache := httpcache.New(newMemoryStore(), &countingFetcher{}, httpcache.NewLimiter(1).WithClock(clock.Now, clock.Sleep),
		httpcache.WithClock(clock.Now),
		httpcache.WithLogger(logger),
	)
	req := httpcache.Request{
		URL:    "https://www.googleapis.com/customsearch/v1",
		Params: url.Values{"key": {"s3cret"}, "q": {"Aztez"}},
	}
	for range 2 {
		if _, err := cache.Get(context.Background(), req); err != nil {
			t.Fatalf("get: %v", err)
		}
	}
	if strings.Contains(logs.String(), "s3cret") || !strings.Contains(logs.String(), "/customsearch/v1") {
		t.Fatalf("unexpected log output:\n%s", logs.String())
	}

	server := httptest.NewServer(http.NotFoundHandler())
	target := server.URL + "/customsearch/v1?key=s3cret"
	server.Close()
	_, err := httpcache.NewHTTPFetcher(time.Second, "test").Fetch(context.Background(), target)
	if err == nil || strings.Contains(err.Error(), "s3cret") {
		t.Fatalf("expected a redacted error, got %v", err)
	}
}

package httpcache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"time"
)

// DefaultUserAgent mimics a desktop browser; some storefront endpoints reject bare clients.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:65.0) Gecko/20100101 Firefox/65.0"

// Fetched is the raw result of one network GET.
type Fetched struct {
	Body        []byte
	Status      int
	ContentType string
}

// Fetcher performs the network GET behind a cache miss.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Fetched, error)
}

// HTTPFetcher fetches over net/http.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher returns a fetcher with the given timeout and user agent.
func NewHTTPFetcher(timeout time.Duration, userAgent string) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}, userAgent: userAgent}
}

// Fetch implements Fetcher. Non-2xx statuses are returned, not treated as errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (Fetched, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Fetched{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		var uerr *neturl.Error
		if errors.As(err, &uerr) {
			uerr.URL = Redact(uerr.URL)
		}
		return Fetched{}, fmt.Errorf("get %s: %w", Redact(url), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Fetched{}, fmt.Errorf("read body: %w", err)
	}
	return Fetched{Body: body, Status: resp.StatusCode, ContentType: resp.Header.Get("Content-Type")}, nil
}

package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/autobrr/autobrr/pkg/ttlcache"

	"DailyReleases/internal/domain"
	"DailyReleases/internal/infrastructure/stores"
	"DailyReleases/internal/ports"
)

// DefaultMemoTTL keeps store lookups for longer than a single run takes.
const DefaultMemoTTL = 12 * time.Hour

// Fallback is consulted when no catalog provider found the game.
type Fallback interface {
	Lookup(ctx context.Context, title string) (domain.StoreLink, bool, error)
}

// storeData is everything the stores know about one game name.
type storeData struct {
	links      []domain.StoreLink
	details    stores.Details
	hasDetails bool
}

// Enricher attaches store links, review scores and DRM highlights to classified releases.
type Enricher struct {
	providers   []stores.Provider
	detailers   map[string]stores.Detailer
	fallback    Fallback
	requireLink bool
	memo        *ttlcache.Cache[string, storeData]
	logger      *slog.Logger
}

var _ ports.Enricher = (*Enricher)(nil)

// Option customises an Enricher.
type Option func(*Enricher)

// WithFallback sets the web search used when no provider matched.
func WithFallback(fallback Fallback) Option {
	return func(e *Enricher) { e.fallback = fallback }
}

// WithDetailer registers a detail source for links of its store.
func WithDetailer(d stores.Detailer) Option {
	return func(e *Enricher) { e.detailers[d.Name()] = d }
}

// RequireLink rejects releases without any store link.
func RequireLink(require bool) Option {
	return func(e *Enricher) { e.requireLink = require }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Enricher) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMemoTTL changes how long lookups are remembered.
func WithMemoTTL(ttl time.Duration) Option {
	return func(e *Enricher) {
		e.memo = ttlcache.New(ttlcache.Options[string, storeData]{}.SetDefaultTTL(ttl))
	}
}

// New builds an Enricher searching providers in order.
func New(providers []stores.Provider, opts ...Option) *Enricher {
	e := &Enricher{
		providers:   providers,
		detailers:   map[string]stores.Detailer{},
		requireLink: true,
		memo:        ttlcache.New(ttlcache.Options[string, storeData]{}.SetDefaultTTL(DefaultMemoTTL)),
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich fills in the store data for release. A release without store links fails
// with a no_store_link ParseError when links are required. When every store failed
// the error wraps domain.ErrEnrichmentFailed and the release is left untouched.
func (e *Enricher) Enrich(ctx context.Context, release *domain.ClassifiedRelease) error {
	found, err := e.lookup(ctx, release.GameName)
	if err != nil {
		return domain.Wrap(domain.ErrEnrichmentFailed, release.Dirname, err)
	}

	if len(found.links) == 0 {
		if e.requireLink {
			return &domain.ParseError{
				Kind:    domain.KindNoStoreLink,
				Dirname: release.Dirname,
				Reason:  fmt.Sprintf("no store link for %q", release.GameName),
			}
		}
		return nil
	}

	for _, link := range found.links {
		release.AddStoreLink(link.Store, link.URL)
	}
	if found.hasDetails {
		apply(release, found.details)
	}
	return nil
}

func apply(release *domain.ClassifiedRelease, details stores.Details) {
	if details.Title != "" {
		release.GameName = details.Title
	}
	release.Score = details.Score
	release.ReviewCount = details.Reviews
	if details.IsDLC {
		release.MarkDLC()
	}
	if strings.Contains(strings.ToLower(details.DRMNotice), "denuvo") {
		release.AddHighlight("DENUVO")
	}
}

// lookup asks every provider for title. A failing provider is logged and skipped;
// the lookup only fails when every store that was asked failed. Details failures
// keep the links found so far. Results with failures are not memoized.
func (e *Enricher) lookup(ctx context.Context, title string) (storeData, error) {
	if cached, ok := e.memo.Get(title); ok {
		return cached, nil
	}

	var (
		found    storeData
		asked    int
		failures []error
	)
	for _, p := range e.providers {
		asked++
		link, ok, err := p.Search(ctx, title)
		if err != nil {
			if ctx.Err() != nil {
				return storeData{}, ctx.Err()
			}
			e.logger.Warn("store search failed", "store", p.Name(), "title", title, "error", err)
			failures = append(failures, fmt.Errorf("search %s: %w", p.Name(), err))
			continue
		}
		if ok {
			e.logger.Debug("store link found", "store", p.Name(), "title", title, "url", link)
			found.links = append(found.links, domain.StoreLink{Store: p.Name(), URL: link})
		}
	}

	if len(found.links) == 0 && e.fallback != nil {
		asked++
		link, ok, err := e.fallback.Lookup(ctx, title)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return storeData{}, ctx.Err()
			}
			e.logger.Warn("web search failed", "title", title, "error", err)
			failures = append(failures, fmt.Errorf("web search: %w", err))
		case ok:
			e.logger.Debug("store link found by web search", "store", link.Store, "title", title, "url", link.URL)
			found.links = append(found.links, link)
		}
	}

	if asked > 0 && len(failures) == asked {
		return storeData{}, errors.Join(failures...)
	}

	for _, link := range found.links {
		d, ok := e.detailers[link.Store]
		if !ok {
			continue
		}
		details, ok, err := d.Details(ctx, link.URL)
		if err != nil {
			if ctx.Err() != nil {
				return storeData{}, ctx.Err()
			}
			e.logger.Warn("store details failed", "store", link.Store, "url", link.URL, "error", err)
			failures = append(failures, fmt.Errorf("details %s: %w", link.Store, err))
			continue
		}
		if ok {
			found.details, found.hasDetails = details, true
			break
		}
	}

	if len(failures) == 0 {
		e.memo.Set(title, found, ttlcache.DefaultTTL)
	}
	return found, nil
}

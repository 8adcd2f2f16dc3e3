package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"DailyReleases/internal/infrastructure/httpcache"
)

const (
	epicGraphQLURL = "https://store.epicgames.com/graphql"
	epicProductURL = "https://store.epicgames.com/en-US/p/"
)

const epicSearchQuery = `query searchStoreQuery($keywords: String, $country: String!, $locale: String, $count: Int) {
  Catalog {
    searchStore(keywords: $keywords, country: $country, locale: $locale, count: $count, category: "games/edition/base|bundles/games|editors|software/edition/base") {
      elements {
        title
        id
        productSlug
        urlSlug
        catalogNs { mappings(pageType: "productHome") { pageSlug pageType } }
        offerMappings { pageSlug pageType }
      }
    }
  }
}`

// Epic searches the Epic Games Store catalog through its public GraphQL endpoint.
type Epic struct {
	getter   httpcache.Getter
	endpoint string
	logger   *slog.Logger
}

var _ Provider = (*Epic)(nil)

// NewEpic builds the Epic provider on top of the response cache.
func NewEpic(getter httpcache.Getter, logger *slog.Logger) *Epic {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Epic{getter: getter, endpoint: epicGraphQLURL, logger: logger}
}

// Name is the store name used as the link key.
func (e *Epic) Name() string { return "Epic" }

type epicMapping struct {
	PageSlug string `json:"pageSlug"`
	PageType string `json:"pageType"`
}

type epicElement struct {
	Title       string `json:"title"`
	ID          string `json:"id"`
	ProductSlug string `json:"productSlug"`
	URLSlug     string `json:"urlSlug"`
	CatalogNs   struct {
		Mappings []epicMapping `json:"mappings"`
	} `json:"catalogNs"`
	OfferMappings []epicMapping `json:"offerMappings"`
}

// slug picks the product page slug, preferring the catalog mapping.
func (el epicElement) slug() string {
	for _, mappings := range [][]epicMapping{el.CatalogNs.Mappings, el.OfferMappings} {
		for _, m := range mappings {
			if m.PageSlug != "" {
				return m.PageSlug
			}
		}
	}
	if el.ProductSlug != "" {
		return el.ProductSlug
	}
	return el.URLSlug
}

// Search runs a keyword catalog search and matches titles.
func (e *Epic) Search(ctx context.Context, title string) (string, bool, error) {
	e.logger.Debug("searching epic", "title", title)
	variables, err := json.Marshal(map[string]any{
		"keywords": title,
		"country":  "US",
		"locale":   "en-US",
		"count":    10,
	})
	if err != nil {
		return "", false, fmt.Errorf("epic variables: %w", err)
	}
	req := httpcache.Request{
		URL:    e.endpoint,
		Params: url.Values{"query": {epicSearchQuery}, "variables": {string(variables)}},
	}

	var payload struct {
		Data struct {
			Catalog struct {
				SearchStore struct {
					Elements []epicElement `json:"elements"`
				} `json:"searchStore"`
			} `json:"Catalog"`
		} `json:"data"`
	}
	if err := getJSON(ctx, e.getter, req, &payload); err != nil {
		return "", false, fmt.Errorf("epic search: %w", err)
	}

	elements := payload.Data.Catalog.SearchStore.Elements
	titles := make([]string, len(elements))
	for i, el := range elements {
		titles[i] = el.Title
	}
	for _, idx := range CloseMatches(title, titles, MatchCutoff) {
		if slug := elements[idx].slug(); slug != "" {
			return epicProductURL + slug, true, nil
		}
	}
	return "", false, nil
}

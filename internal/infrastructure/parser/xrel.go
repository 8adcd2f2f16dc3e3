package parser

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"DailyReleases/internal/domain"
	"DailyReleases/internal/infrastructure/httpcache"
	"DailyReleases/internal/scanner"
)

const (
	xrelSceneURL = "https://api.xrel.to/v2/release/browse_category.json"
	xrelP2PURL   = "https://api.xrel.to/v2/p2p/releases.json"
	// xrelP2PGames is xREL's P2P category id for games.
	xrelP2PGames = "015d9c029"
	xrelPageSize = 100
)

// XrelScanner lists scene releases from xrel.to by category (CRACKED, UPDATE, ...).
type XrelScanner struct {
	getter  httpcache.Getter
	baseURL string
}

var _ scanner.Scanner = (*XrelScanner)(nil)

// NewXrelScanner builds the scene scanner on top of the response cache.
func NewXrelScanner(getter httpcache.Getter) *XrelScanner {
	return &XrelScanner{getter: getter, baseURL: xrelSceneURL}
}

// Name identifies the strategy inside the registry.
func (x *XrelScanner) Name() string { return "xrel" }

type xrelSceneResponse struct {
	List []struct {
		Dirname   string       `json:"dirname"`
		LinkHref  string       `json:"link_href"`
		Time      epochSeconds `json:"time"`
		GroupName string       `json:"group_name"`
	} `json:"list"`
}

// ListReleases fetches one page of a category.
func (x *XrelScanner) ListReleases(ctx context.Context, category string, page int) ([]domain.RawRelease, error) {
	if category == "" {
		return nil, fmt.Errorf("xrel: category is required")
	}
	req := httpcache.Request{
		URL: x.baseURL,
		Params: url.Values{
			"category_name": {category},
			"ext_info_type": {"game"},
			"per_page":      {strconv.Itoa(xrelPageSize)},
			"page":          {strconv.Itoa(page)},
		},
	}

	var payload xrelSceneResponse
	if err := getJSON(ctx, x.getter, req, &payload); err != nil {
		return nil, fmt.Errorf("xrel %s page %d: %w", category, page, err)
	}

	releases := make([]domain.RawRelease, 0, len(payload.List))
	for _, item := range payload.List {
		if item.Dirname == "" {
			continue
		}
		releases = append(releases, domain.RawRelease{
			Dirname:     item.Dirname,
			NFOLink:     item.LinkHref,
			GroupName:   item.GroupName,
			PublishedAt: item.Time.Time,
		})
	}
	return releases, nil
}

// XrelP2PScanner lists P2P game releases from xrel.to.
type XrelP2PScanner struct {
	getter  httpcache.Getter
	baseURL string
}

var _ scanner.Scanner = (*XrelP2PScanner)(nil)

// NewXrelP2PScanner builds the P2P scanner on top of the response cache.
func NewXrelP2PScanner(getter httpcache.Getter) *XrelP2PScanner {
	return &XrelP2PScanner{getter: getter, baseURL: xrelP2PURL}
}

// Name identifies the strategy inside the registry.
func (x *XrelP2PScanner) Name() string { return "xrel-p2p" }

type xrelP2PResponse struct {
	List []struct {
		Dirname  string       `json:"dirname"`
		LinkHref string       `json:"link_href"`
		PubTime  epochSeconds `json:"pub_time"`
		Group    *struct {
			Name string `json:"name"`
		} `json:"group"`
	} `json:"list"`
}

// ListReleases fetches one page of P2P game releases; category is ignored.
func (x *XrelP2PScanner) ListReleases(ctx context.Context, _ string, page int) ([]domain.RawRelease, error) {
	req := httpcache.Request{
		URL: x.baseURL,
		Params: url.Values{
			"category_id": {xrelP2PGames},
			"per_page":    {strconv.Itoa(xrelPageSize)},
			"page":        {strconv.Itoa(page)},
		},
	}

	var payload xrelP2PResponse
	if err := getJSON(ctx, x.getter, req, &payload); err != nil {
		return nil, fmt.Errorf("xrel-p2p page %d: %w", page, err)
	}

	releases := make([]domain.RawRelease, 0, len(payload.List))
	for _, item := range payload.List {
		if item.Dirname == "" {
			continue
		}
		release := domain.RawRelease{
			Dirname:     item.Dirname,
			NFOLink:     item.LinkHref,
			PublishedAt: item.PubTime.Time,
		}
		if item.Group != nil {
			release.GroupName = item.Group.Name
		}
		releases = append(releases, release)
	}
	return releases, nil
}

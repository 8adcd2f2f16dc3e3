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
	predbURL    = "https://api.predb.net/"
	predbNFOURL = "http://api.predb.net/nfoimg/%s.png"
)

// PredbScanner lists pres from predb.net for today and yesterday.
type PredbScanner struct {
	getter  httpcache.Getter
	baseURL string
}

var _ scanner.Scanner = (*PredbScanner)(nil)

// NewPredbScanner builds the predb.net scanner on top of the response cache.
func NewPredbScanner(getter httpcache.Getter) *PredbScanner {
	return &PredbScanner{getter: getter, baseURL: predbURL}
}

// Name identifies the strategy inside the registry.
func (p *PredbScanner) Name() string { return "predb" }

type predbResponse struct {
	Results int `json:"results"`
	Data    []struct {
		Release string       `json:"release"`
		Group   string       `json:"group"`
		Pretime epochSeconds `json:"pretime"`
	} `json:"data"`
}

// ListReleases fetches one page of a section (GAMES by default).
func (p *PredbScanner) ListReleases(ctx context.Context, category string, page int) ([]domain.RawRelease, error) {
	if category == "" {
		category = "GAMES"
	}
	req := httpcache.Request{
		URL: p.baseURL,
		Params: url.Values{
			"section": {category},
			// Yesterday too, in case a run was missed.
			"date": {"today", "yesterday"},
			"page": {strconv.Itoa(page)},
		},
	}

	var payload predbResponse
	if err := getJSON(ctx, p.getter, req, &payload); err != nil {
		return nil, fmt.Errorf("predb %s page %d: %w", category, page, err)
	}

	releases := make([]domain.RawRelease, 0, len(payload.Data))
	for _, item := range payload.Data {
		if item.Release == "" {
			continue
		}
		releases = append(releases, domain.RawRelease{
			Dirname:     item.Release,
			NFOLink:     fmt.Sprintf(predbNFOURL, item.Release),
			GroupName:   item.Group,
			PublishedAt: item.Pretime.Time,
		})
	}
	return releases, nil
}

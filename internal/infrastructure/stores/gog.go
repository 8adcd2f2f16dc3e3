package stores

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"DailyReleases/internal/infrastructure/httpcache"
)

const gogURL = "https://www.gog.com"

// GOG searches the GOG catalog.
type GOG struct {
	getter  httpcache.Getter
	baseURL string
	logger  *slog.Logger
}

var _ Provider = (*GOG)(nil)

// NewGOG builds the GOG provider on top of the response cache.
func NewGOG(getter httpcache.Getter, logger *slog.Logger) *GOG {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &GOG{getter: getter, baseURL: gogURL, logger: logger}
}

// Name is the store name used as the link key.
func (g *GOG) Name() string { return "GOG" }

// Search looks through the first five game products for a close title match.
func (g *GOG) Search(ctx context.Context, title string) (string, bool, error) {
	g.logger.Debug("searching gog", "title", title)
	req := httpcache.Request{
		URL:    g.baseURL + "/games/ajax/filtered",
		Params: url.Values{"search": {title}, "mediaType": {"game"}, "limit": {"5"}},
	}
	var payload struct {
		Products []struct {
			Title  string `json:"title"`
			Slug   string `json:"slug"`
			IsGame bool   `json:"isGame"`
		} `json:"products"`
	}
	if err := getJSON(ctx, g.getter, req, &payload); err != nil {
		return "", false, fmt.Errorf("gog search: %w", err)
	}

	var titles, slugs []string
	for _, p := range payload.Products {
		if !p.IsGame {
			continue
		}
		titles = append(titles, p.Title)
		slugs = append(slugs, p.Slug)
	}
	idx, ok := BestMatch(title, titles)
	if !ok {
		return "", false, nil
	}
	return fmt.Sprintf("%s/en/game/%s", gogURL, slugs[idx]), true, nil
}

package stores

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"

	"DailyReleases/internal/domain"
	"DailyReleases/internal/infrastructure/httpcache"
)

const googleSearchURL = "https://www.googleapis.com/customsearch/v1"

type knownStore struct {
	name    string
	pattern *regexp.Regexp
}

// knownStores recognises store pages among web search results.
var knownStores = []knownStore{
	{"Steam", regexp.MustCompile(`(?i)store\.steampowered\.com/(app|sub|bundle)`)},
	{"GOG", regexp.MustCompile(`(?i)gog\.com/(en/)?game`)},
	{"EA", regexp.MustCompile(`(?i)ea\.com`)},
	{"Ubisoft", regexp.MustCompile(`(?i)ubi(soft)?\.com`)},
	{"Microsoft Store", regexp.MustCompile(`(?i)www\.microsoft\.com/.*p`)},
	{"Epic Games", regexp.MustCompile(`(?i)store\.epicgames\.com`)},
	{"Itch.io", regexp.MustCompile(`(?i)itch\.io`)},
	{"Big Fish Games", regexp.MustCompile(`(?i)bigfishgames\.com/games`)},
	{"Game Jolt", regexp.MustCompile(`(?i)gamejolt\.com`)},
	{"Alawar", regexp.MustCompile(`(?i)alawar\.com`)},
	{"WildTangent Games", regexp.MustCompile(`(?i)wildtangent\.com`)},
}

// WebSearch finds a store page through Google custom search when no catalog matched.
type WebSearch struct {
	getter   httpcache.Getter
	endpoint string
	key      string
	cx       string
	logger   *slog.Logger
}

// NewWebSearch builds the fallback with custom search credentials.
func NewWebSearch(getter httpcache.Getter, key, cx string, logger *slog.Logger) *WebSearch {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &WebSearch{getter: getter, endpoint: googleSearchURL, key: key, cx: cx, logger: logger}
}

// Lookup returns the first result that points at a known store.
func (w *WebSearch) Lookup(ctx context.Context, title string) (domain.StoreLink, bool, error) {
	w.logger.Debug("searching the web", "title", title)
	req := httpcache.Request{
		URL:    w.endpoint,
		Params: url.Values{"key": {w.key}, "cx": {w.cx}, "q": {title + " game buy"}},
	}
	var payload struct {
		Items []struct {
			Link string `json:"link"`
		} `json:"items"`
	}
	if err := getJSON(ctx, w.getter, req, &payload); err != nil {
		return domain.StoreLink{}, false, fmt.Errorf("web search: %w", err)
	}

	for _, item := range payload.Items {
		if store, ok := KnownStore(item.Link); ok {
			return domain.StoreLink{Store: store, URL: item.Link}, true, nil
		}
	}
	return domain.StoreLink{}, false, nil
}

// KnownStore names the store a URL belongs to.
func KnownStore(link string) (string, bool) {
	for _, s := range knownStores {
		if s.pattern.MatchString(link) {
			return s.name, true
		}
	}
	return "", false
}

package stores

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"DailyReleases/internal/domain"
	"DailyReleases/internal/infrastructure/httpcache"
)

const (
	steamStoreURL = "https://store.steampowered.com"
	// steamPackageApps bounds how many apps of a package are considered for its base game.
	steamPackageApps = 3
)

var steamLinkExpr = regexp.MustCompile(`(app|sub|bundle)/([0-9]+)`)

// Steam searches the Steam store and reads app, package and review details.
type Steam struct {
	getter  httpcache.Getter
	baseURL string
	logger  *slog.Logger
}

var (
	_ Provider = (*Steam)(nil)
	_ Detailer = (*Steam)(nil)
)

// NewSteam builds the Steam provider on top of the response cache.
func NewSteam(getter httpcache.Getter, logger *slog.Logger) *Steam {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Steam{getter: getter, baseURL: steamStoreURL, logger: logger}
}

// Name is the store name used as the link key.
func (s *Steam) Name() string { return "Steam" }

type steamSuggestion struct {
	ID   flexibleID `json:"id"`
	Name string     `json:"name"`
	Type string     `json:"type"`
}

// Search queries the store's search suggestions.
func (s *Steam) Search(ctx context.Context, title string) (string, bool, error) {
	s.logger.Debug("searching steam", "title", title)
	req := httpcache.Request{
		URL:    s.baseURL + "/search/suggest",
		Params: url.Values{"term": {title}, "f": {"json"}, "cc": {"US"}, "l": {"english"}},
	}

	var items []steamSuggestion
	if err := getJSON(ctx, s.getter, req, &items); err != nil {
		return "", false, fmt.Errorf("steam search: %w", err)
	}

	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
	}
	idx, ok := BestMatch(title, names)
	if !ok {
		s.logger.Debug("no steam match", "title", title)
		return "", false, nil
	}

	best := items[idx]
	slug := best.Type
	switch best.Type {
	case "game", "dlc":
		slug = "app"
	case "bundle":
		slug = "bundle"
	}
	return fmt.Sprintf("%s/%s/%s", steamStoreURL, slug, best.ID), true, nil
}

type steamAppDetails struct {
	Type       string     `json:"type"`
	Name       string     `json:"name"`
	SteamAppID flexibleID `json:"steam_appid"`
	DRMNotice  string     `json:"drm_notice"`
}

type steamPackageDetails struct {
	Name string `json:"name"`
	Apps []struct {
		ID   flexibleID `json:"id"`
		Name string     `json:"name"`
	} `json:"apps"`
}

// Details resolves an app or package link to a single representative app. Bundles
// have no public API.
func (s *Steam) Details(ctx context.Context, link string) (Details, bool, error) {
	m := steamLinkExpr.FindStringSubmatch(link)
	if m == nil {
		return Details{}, false, fmt.Errorf("not a steam product link: %s", link)
	}
	kind, id := m[1], m[2]

	var (
		details Details
		app     steamAppDetails
	)
	switch kind {
	case "bundle":
		s.logger.Debug("steam link is a bundle, skipping details", "link", link)
		return Details{}, false, nil
	case "sub":
		pkg, err := s.packageDetails(ctx, id)
		if err != nil {
			return Details{}, false, err
		}
		details.Title = pkg.Name
		base, err := s.packageBaseApp(ctx, pkg)
		if err != nil {
			return Details{}, false, err
		}
		app = base
	default:
		var err error
		app, err = s.appDetails(ctx, id)
		if err != nil {
			return Details{}, false, err
		}
		details.Title = app.Name
	}

	appID := string(app.SteamAppID)
	if appID == "" {
		appID = id
	}
	score, total, err := s.Reviews(ctx, appID)
	if err != nil {
		return Details{}, false, err
	}
	details.Score, details.Reviews = score, total
	details.IsDLC = app.Type == "dlc"

	notice, err := s.drmNotice(ctx, appID, app.DRMNotice)
	if err != nil {
		return Details{}, false, err
	}
	details.DRMNotice = notice
	return details, true, nil
}

// packageBaseApp guesses a package's base game as the most reviewed of its first apps.
func (s *Steam) packageBaseApp(ctx context.Context, pkg steamPackageDetails) (steamAppDetails, error) {
	apps := pkg.Apps
	if len(apps) > steamPackageApps {
		apps = apps[:steamPackageApps]
	}
	if len(apps) == 0 {
		return steamAppDetails{}, fmt.Errorf("steam package %q has no apps", pkg.Name)
	}

	var (
		best      steamAppDetails
		bestTotal int
	)
	for i, entry := range apps {
		app, err := s.appDetails(ctx, string(entry.ID))
		if err != nil {
			return steamAppDetails{}, err
		}
		if app.SteamAppID == "" {
			app.SteamAppID = entry.ID
		}
		_, total, err := s.Reviews(ctx, string(app.SteamAppID))
		if err != nil {
			return steamAppDetails{}, err
		}
		if i == 0 || total > bestTotal {
			best, bestTotal = app, total
		}
	}
	return best, nil
}

// Reviews returns the share of positive reviews and the review count, or
// (-1, -1) when the app has no reviews.
func (s *Steam) Reviews(ctx context.Context, appID string) (float64, int, error) {
	req := httpcache.Request{
		URL: s.baseURL + "/appreviews/" + appID,
		Params: url.Values{
			"start_date":    {"-1"},
			"end_date":      {"-1"},
			"filter":        {"summary"},
			"language":      {"all"},
			"purchase_type": {"all"},
			"json":          {"1"},
		},
	}
	var payload struct {
		QuerySummary struct {
			TotalPositive int `json:"total_positive"`
			TotalReviews  int `json:"total_reviews"`
		} `json:"query_summary"`
	}
	if err := getJSON(ctx, s.getter, req, &payload); err != nil {
		return 0, 0, fmt.Errorf("steam reviews %s: %w", appID, err)
	}

	total := payload.QuerySummary.TotalReviews
	if total == 0 {
		return domain.Unknown, domain.Unknown, nil
	}
	return float64(payload.QuerySummary.TotalPositive) / float64(total), total, nil
}

// DRMNotice returns the app's DRM notice followed by its third-party EULA text.
func (s *Steam) DRMNotice(ctx context.Context, appID string) (string, error) {
	app, err := s.appDetails(ctx, appID)
	if err != nil {
		return "", err
	}
	return s.drmNotice(ctx, appID, app.DRMNotice)
}

func (s *Steam) drmNotice(ctx context.Context, appID, notice string) (string, error) {
	eula, err := s.eula(ctx, appID)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(notice + "\n" + eula), nil
}

func (s *Steam) eula(ctx context.Context, appID string) (string, error) {
	resp, err := s.getter.Get(ctx, httpcache.Request{URL: fmt.Sprintf("%s/eula/%s_eula_0", s.baseURL, appID)})
	if err != nil {
		return "", fmt.Errorf("steam eula %s: %w", appID, err)
	}
	if !resp.OK() {
		// Most apps have no third-party EULA.
		return "", nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return "", fmt.Errorf("parse eula %s: %w", appID, err)
	}
	return strings.TrimSpace(doc.Find("#eula_content").Text()), nil
}

func (s *Steam) appDetails(ctx context.Context, appID string) (steamAppDetails, error) {
	req := httpcache.Request{URL: s.baseURL + "/api/appdetails", Params: url.Values{"appids": {appID}}}
	var app steamAppDetails
	if err := s.unwrapData(ctx, req, appID, &app); err != nil {
		return steamAppDetails{}, fmt.Errorf("steam appdetails %s: %w", appID, err)
	}
	return app, nil
}

func (s *Steam) packageDetails(ctx context.Context, packageID string) (steamPackageDetails, error) {
	req := httpcache.Request{URL: s.baseURL + "/api/packagedetails", Params: url.Values{"packageids": {packageID}}}
	var pkg steamPackageDetails
	if err := s.unwrapData(ctx, req, packageID, &pkg); err != nil {
		return steamPackageDetails{}, fmt.Errorf("steam packagedetails %s: %w", packageID, err)
	}
	return pkg, nil
}

// unwrapData decodes the {"<id>": {"success": true, "data": {...}}} envelope.
func (s *Steam) unwrapData(ctx context.Context, req httpcache.Request, id string, v any) error {
	var envelope map[string]struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := getJSON(ctx, s.getter, req, &envelope); err != nil {
		return err
	}
	entry, ok := envelope[id]
	if !ok || !entry.Success || len(entry.Data) == 0 {
		return fmt.Errorf("no data for %s", id)
	}
	if err := json.Unmarshal(entry.Data, v); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

package stores

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"DailyReleases/internal/infrastructure/httpcache"
	"DailyReleases/internal/infrastructure/storage"
)

func newTestGetter(t *testing.T) *httpcache.Cache {
	t.Helper()
	store, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return httpcache.New(store, httpcache.NewHTTPFetcher(5*time.Second, ""), httpcache.NewLimiter(1000))
}

type steamServer struct {
	mu       sync.Mutex
	requests []string
}

func (s *steamServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r.URL.Path+"?"+r.URL.RawQuery)
	s.mu.Unlock()

	q := r.URL.Query()
	switch {
	case r.URL.Path == "/search/suggest":
		switch q.Get("term") {
		case "Aztez":
			fmt.Fprint(w, `[{"id":"263460","name":"Aztez","type":"game"},{"id":"999","name":"Aztec Empire","type":"game"}]`)
		case "Wolfenstein II The New Colossus":
			fmt.Fprint(w, `[{"id":612880,"name":"Wolfenstein II: The New Colossus","type":"game"},{"id":650500,"name":"Wolfenstein II: The New Colossus","type":"game"}]`)
		case "Fallout New Vegas Ultimate":
			fmt.Fprint(w, `[{"id":"1000","name":"Fallout: New Vegas Ultimate","type":"sub"}]`)
		default:
			fmt.Fprint(w, `[]`)
		}
	case r.URL.Path == "/api/appdetails":
		id := q.Get("appids")
		switch id {
		case "263460":
			fmt.Fprint(w, `{"263460":{"success":true,"data":{"type":"game","name":"Aztez","steam_appid":263460,"drm_notice":""}}}`)
		case "5":
			fmt.Fprint(w, `{"5":{"success":true,"data":{"type":"dlc","name":"Far Harbor","steam_appid":5}}}`)
		case "1", "2", "3":
			fmt.Fprintf(w, `{"%s":{"success":true,"data":{"type":"game","name":"App %s","steam_appid":%s,"drm_notice":"Denuvo Anti-tamper"}}}`, id, id, id)
		default:
			fmt.Fprintf(w, `{"%s":{"success":false}}`, id)
		}
	case r.URL.Path == "/api/packagedetails":
		fmt.Fprint(w, `{"1000":{"success":true,"data":{"name":"Fallout New Vegas Ultimate","apps":[{"id":1},{"id":2},{"id":3},{"id":4}]}}}`)
	case strings.HasPrefix(r.URL.Path, "/appreviews/"):
		totals := map[string][2]int{"263460": {80, 100}, "5": {0, 0}, "1": {5, 10}, "2": {450, 500}, "3": {0, 0}}
		t := totals[strings.TrimPrefix(r.URL.Path, "/appreviews/")]
		fmt.Fprintf(w, `{"query_summary":{"total_positive":%d,"total_reviews":%d}}`, t[0], t[1])
	case r.URL.Path == "/eula/5_eula_0":
		fmt.Fprint(w, `<html><body><div id="eula_content">This product uses DENUVO technology.</div></body></html>`)
	default:
		http.NotFound(w, r)
	}
}

func (s *steamServer) count(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if strings.HasPrefix(r, prefix) {
			n++
		}
	}
	return n
}

func newTestSteam(t *testing.T) (*Steam, *steamServer) {
	t.Helper()
	backend := &steamServer{}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	steam := NewSteam(newTestGetter(t), nil)
	steam.baseURL = srv.URL
	return steam, backend
}

func TestSteamSearch(t *testing.T) {
	t.Parallel()

	steam, _ := newTestSteam(t)
	ctx := context.Background()

	link, found, err := steam.Search(ctx, "Aztez")
	if err != nil || !found || link != "https://store.steampowered.com/app/263460" {
		t.Fatalf("unexpected result: %q %v %v", link, found, err)
	}

	link, found, err = steam.Search(ctx, "Wolfenstein II The New Colossus")
	if err != nil || !found || link != "https://store.steampowered.com/app/612880" {
		t.Fatalf("first duplicate should win, got %q %v %v", link, found, err)
	}

	link, found, err = steam.Search(ctx, "Fallout New Vegas Ultimate")
	if err != nil || !found || link != "https://store.steampowered.com/sub/1000" {
		t.Fatalf("unexpected package link: %q %v %v", link, found, err)
	}

	if _, found, err := steam.Search(ctx, "Nothing Like It"); err != nil || found {
		t.Fatalf("expected no match, got %v %v", found, err)
	}
}

func TestSteamDetailsForApp(t *testing.T) {
	t.Parallel()

	steam, _ := newTestSteam(t)
	details, ok, err := steam.Details(context.Background(), "https://store.steampowered.com/app/263460")
	if err != nil || !ok {
		t.Fatalf("Details: ok=%v err=%v", ok, err)
	}
	if details.Title != "Aztez" || details.Reviews != 100 || math.Abs(details.Score-0.8) > 1e-9 || details.IsDLC {
		t.Fatalf("unexpected details: %+v", details)
	}
	if details.DRMNotice != "" {
		t.Fatalf("expected empty drm notice, got %q", details.DRMNotice)
	}
}

func TestSteamDetailsForDLCWithEULA(t *testing.T) {
	t.Parallel()

	steam, _ := newTestSteam(t)
	details, ok, err := steam.Details(context.Background(), "https://store.steampowered.com/app/5/Far_Harbor/")
	if err != nil || !ok {
		t.Fatalf("Details: ok=%v err=%v", ok, err)
	}
	if !details.IsDLC || details.Score != -1 || details.Reviews != -1 {
		t.Fatalf("unexpected details: %+v", details)
	}
	if !strings.Contains(strings.ToLower(details.DRMNotice), "denuvo") {
		t.Fatalf("expected eula text in drm notice, got %q", details.DRMNotice)
	}
}

func TestSteamDetailsForPackageUsesMostReviewedApp(t *testing.T) {
	t.Parallel()

	steam, backend := newTestSteam(t)
	details, ok, err := steam.Details(context.Background(), "https://store.steampowered.com/sub/1000")
	if err != nil || !ok {
		t.Fatalf("Details: ok=%v err=%v", ok, err)
	}
	if details.Title != "Fallout New Vegas Ultimate" || details.Reviews != 500 || math.Abs(details.Score-0.9) > 1e-9 {
		t.Fatalf("unexpected details: %+v", details)
	}
	if !strings.Contains(details.DRMNotice, "Denuvo") {
		t.Fatalf("expected drm notice of the base app, got %q", details.DRMNotice)
	}
	if n := backend.count("/api/appdetails?appids=4"); n != 0 {
		t.Fatalf("only the first three apps should be inspected, got %d requests for app 4", n)
	}
}

func TestSteamDetailsSkipsBundles(t *testing.T) {
	t.Parallel()

	steam, backend := newTestSteam(t)
	_, ok, err := steam.Details(context.Background(), "https://store.steampowered.com/bundle/42")
	if err != nil || ok {
		t.Fatalf("expected no details for bundles, got ok=%v err=%v", ok, err)
	}
	if len(backend.requests) != 0 {
		t.Fatalf("bundles must not hit the API: %v", backend.requests)
	}
}

func TestSteamReviewsAndDRMNotice(t *testing.T) {
	t.Parallel()

	steam, _ := newTestSteam(t)
	ctx := context.Background()
	score, total, err := steam.Reviews(ctx, "3")
	if err != nil || score != -1 || total != -1 {
		t.Fatalf("expected unknown reviews, got %v %v %v", score, total, err)
	}
	notice, err := steam.DRMNotice(ctx, "1")
	if err != nil || notice != "Denuvo Anti-tamper" {
		t.Fatalf("unexpected notice %q err=%v", notice, err)
	}
}

func TestGOGSearchFiltersNonGames(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/games/ajax/filtered" || r.URL.Query().Get("mediaType") != "game" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"products":[
			{"title":"Death Coming Soundtrack","slug":"death_coming_ost","isGame":false},
			{"title":"Death Coming","slug":"death_coming","isGame":true}
		]}`)
	}))
	defer srv.Close()

	gog := NewGOG(newTestGetter(t), nil)
	gog.baseURL = srv.URL

	link, found, err := gog.Search(context.Background(), "death coming")
	if err != nil || !found || link != "https://www.gog.com/en/game/death_coming" {
		t.Fatalf("unexpected result: %q %v %v", link, found, err)
	}
}

func TestEpicSearchUsesPageSlug(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Query().Get("variables"), `"keywords":"Aztez"`) {
			t.Errorf("unexpected variables: %s", r.URL.Query().Get("variables"))
		}
		fmt.Fprint(w, `{"data":{"Catalog":{"searchStore":{"elements":[
			{"title":"Something Else","id":"x","productSlug":"else"},
			{"title":"AZTEZ","id":"y","productSlug":"aztez-old","catalogNs":{"mappings":[{"pageSlug":"aztez","pageType":"productHome"}]}}
		]}}}}`)
	}))
	defer srv.Close()

	epic := NewEpic(newTestGetter(t), nil)
	epic.endpoint = srv.URL

	link, found, err := epic.Search(context.Background(), "Aztez")
	if err != nil || !found || link != "https://store.epicgames.com/en-US/p/aztez" {
		t.Fatalf("unexpected result: %q %v %v", link, found, err)
	}
}

func TestWebSearchReturnsFirstKnownStore(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("key") != "k" || q.Get("cx") != "c" || q.Get("q") != "Aztez game buy" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"items":[
			{"link":"https://en.wikipedia.org/wiki/Aztez"},
			{"link":"https://teamcolorblind.itch.io/aztez"},
			{"link":"https://store.steampowered.com/app/263460"}
		]}`)
	}))
	defer srv.Close()

	web := NewWebSearch(newTestGetter(t), "k", "c", nil)
	web.endpoint = srv.URL

	link, found, err := web.Lookup(context.Background(), "Aztez")
	if err != nil || !found {
		t.Fatalf("Lookup: %v %v", found, err)
	}
	if link.Store != "Itch.io" || link.URL != "https://teamcolorblind.itch.io/aztez" {
		t.Fatalf("unexpected link: %+v", link)
	}
}

func TestWebSearchPropagatesFailures(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	web := NewWebSearch(newTestGetter(t), "k", "c", nil)
	web.endpoint = srv.URL
	if _, _, err := web.Lookup(context.Background(), "Aztez"); err == nil {
		t.Fatalf("expected error on 429")
	}
}

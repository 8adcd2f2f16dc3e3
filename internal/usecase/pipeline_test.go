package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"DailyReleases/internal/classifier"
	"DailyReleases/internal/domain"
	"DailyReleases/internal/report"
)

var fixedNow = time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC)

type fakeSource struct {
	releases []domain.RawRelease
	err      error
}

func (f *fakeSource) Collect(context.Context) ([]domain.RawRelease, error) {
	return f.releases, f.err
}

type fakeLedger struct {
	processed map[string]bool
	saved     []string
	savedAt   time.Time
	prunedAt  time.Time
}

func (f *fakeLedger) AlreadyProcessed(_ context.Context, dirnames []string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, d := range dirnames {
		if f.processed[d] {
			out[d] = true
		}
	}
	return out, nil
}

func (f *fakeLedger) SaveProcessed(_ context.Context, dirnames []string, at time.Time) error {
	f.saved = append(f.saved, dirnames...)
	f.savedAt = at
	return nil
}

func (f *fakeLedger) PruneProcessed(_ context.Context, cutoff time.Time) (int64, error) {
	f.prunedAt = cutoff
	return 0, nil
}

type fakeEnricher struct {
	errs map[string]error
}

func (f *fakeEnricher) Enrich(_ context.Context, r *domain.ClassifiedRelease) error {
	if err, ok := f.errs[r.Dirname]; ok {
		return err
	}
	r.AddStoreLink("Steam", "https://store.steampowered.com/app/1")
	r.Score, r.ReviewCount = 0.9, 1000
	return nil
}

type fakeNotifier struct {
	title, body string
	calls       int
	err         error
}

func (f *fakeNotifier) PublishDigest(_ context.Context, title, body string) error {
	f.calls++
	f.title, f.body = title, body
	return f.err
}

type fakeCleaner struct {
	retention time.Duration
	calls     int
}

func (f *fakeCleaner) Clean(_ context.Context, retention time.Duration) (int64, error) {
	f.calls++
	f.retention = retention
	return 3, nil
}

type pipelineFixture struct {
	ledger   *fakeLedger
	notifier *fakeNotifier
	cleaner  *fakeCleaner
	deps     PipelineDeps
}

func newFixture(post bool) *pipelineFixture {
	published := fixedNow.Add(-time.Hour)
	source := &fakeSource{releases: []domain.RawRelease{
		{Dirname: "Aztez-DARKSiDERS", PublishedAt: published},
		{Dirname: "Old.Game-CODEX", PublishedAt: published},
		{Dirname: "Some.Movie.1080p.x264-GRP", PublishedAt: published},
		{Dirname: "Photoshop.CC.2025-GRP", PublishedAt: published},
		{Dirname: "Flaky.Game-PLAZA", PublishedAt: published},
	}}
	f := &pipelineFixture{
		ledger:   &fakeLedger{processed: map[string]bool{"Old.Game-CODEX": true}},
		notifier: &fakeNotifier{},
		cleaner:  &fakeCleaner{},
	}
	f.deps = PipelineDeps{
		Source:     source,
		Ledger:     f.ledger,
		Classifier: classifier.New(nil).WithClock(func() time.Time { return fixedNow }),
		Enricher: &fakeEnricher{errs: map[string]error{
			"Photoshop.CC.2025-GRP": &domain.ParseError{Kind: domain.KindNoStoreLink, Dirname: "Photoshop.CC.2025-GRP"},
			"Flaky.Game-PLAZA":      domain.Wrap(domain.ErrEnrichmentFailed, "Flaky.Game-PLAZA", errors.New("timeout")),
		}},
		Renderer:  report.NewRenderer("", nil).WithClock(func() time.Time { return fixedNow }),
		Notifier:  f.notifier,
		Cleaner:   f.cleaner,
		Post:      post,
		Retention: 7 * 24 * time.Hour,
		Now:       func() time.Time { return fixedNow },
	}
	return f
}

func TestPipelineRunPublishes(t *testing.T) {
	t.Parallel()

	f := newFixture(true)
	res, err := NewPipeline(f.deps).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Collected != 5 || res.Fresh != 4 || res.Skipped != 2 || res.Classified != 2 {
		t.Fatalf("unexpected counts: %+v", res)
	}
	if res.Title != "Daily Releases (March 14, 2025)" {
		t.Fatalf("unexpected title %q", res.Title)
	}
	if !strings.Contains(res.Post, "Aztez") || !strings.Contains(res.Post, "Flaky Game") {
		t.Fatalf("post lacks releases:\n%s", res.Post)
	}
	if strings.Contains(res.Post, "Photoshop") || strings.Contains(res.Post, "Movie") || strings.Contains(res.Post, "Old Game") {
		t.Fatalf("post contains skipped releases:\n%s", res.Post)
	}
	if res.Report.Len() != 2 {
		t.Fatalf("expected 2 ranked releases, got %d", res.Report.Len())
	}

	if f.notifier.calls != 1 || f.notifier.title != res.Title || f.notifier.body != res.Post {
		t.Fatalf("unexpected notification: %+v", f.notifier)
	}
	if len(f.ledger.saved) != 5 || !f.ledger.savedAt.Equal(fixedNow) {
		t.Fatalf("every collected dirname must be recorded: %v", f.ledger.saved)
	}
	if f.cleaner.calls != 1 || f.cleaner.retention != 7*24*time.Hour {
		t.Fatalf("cache not cleaned: %+v", f.cleaner)
	}
	if !f.ledger.prunedAt.Equal(fixedNow.Add(-7 * 24 * time.Hour)) {
		t.Fatalf("unexpected prune cutoff %s", f.ledger.prunedAt)
	}
}

func TestPipelineRunWithoutPosting(t *testing.T) {
	t.Parallel()

	f := newFixture(false)
	res, err := NewPipeline(f.deps).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Post == "" {
		t.Fatalf("post must still be rendered")
	}
	if f.notifier.calls != 0 || len(f.ledger.saved) != 0 {
		t.Fatalf("dry runs must not publish or record: %+v %v", f.notifier, f.ledger.saved)
	}
	if f.cleaner.calls != 1 {
		t.Fatalf("cache must be cleaned on dry runs too")
	}
}

func TestPipelineRunFailures(t *testing.T) {
	t.Parallel()

	f := newFixture(true)
	boom := errors.New("all sources down")
	f.deps.Source = &fakeSource{err: boom}
	if _, err := NewPipeline(f.deps).Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected collect error, got %v", err)
	}

	f = newFixture(true)
	f.notifier.err = errors.New("webhook gone")
	if _, err := NewPipeline(f.deps).Run(context.Background()); err == nil {
		t.Fatalf("expected publish error")
	}
	if len(f.ledger.saved) != 0 {
		t.Fatalf("nothing may be recorded when publishing failed")
	}

	f = newFixture(true)
	f.deps.Notifier = nil
	if _, err := NewPipeline(f.deps).Run(context.Background()); err == nil {
		t.Fatalf("expected error when posting without notifier")
	}
}

func TestPipelineEmptyRun(t *testing.T) {
	t.Parallel()

	f := newFixture(false)
	f.deps.Source = &fakeSource{}
	res, err := NewPipeline(f.deps).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Post != report.EmptyPost {
		t.Fatalf("unexpected post %q", res.Post)
	}
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"DailyReleases/internal/domain"
	"DailyReleases/internal/ports"
	"DailyReleases/internal/ranking"
	"DailyReleases/internal/report"
)

// Renderer turns a ranked report into a post.
type Renderer interface {
	Render(report ranking.Report) report.Post
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source     ports.ReleaseSource
	Ledger     ports.ReleaseLedger
	Classifier ports.Classifier
	Enricher   ports.Enricher
	Renderer   Renderer
	Notifier   ports.Notifier
	Cleaner    ports.CacheCleaner

	// Post publishes the rendered post and records the collected dirnames as processed.
	Post bool
	// Retention bounds the age of cached responses and processed dirnames.
	Retention time.Duration
	Logger    *slog.Logger
	Now       func() time.Time
}

// Result describes one pipeline run.
type Result struct {
	Title      string
	Post       string
	Report     ranking.Report
	Collected  int
	Fresh      int
	Classified int
	Skipped    int
}

// Pipeline implements the daily releases workflow.
type Pipeline struct {
	source     ports.ReleaseSource
	ledger     ports.ReleaseLedger
	classifier ports.Classifier
	enricher   ports.Enricher
	renderer   Renderer
	notifier   ports.Notifier
	cleaner    ports.CacheCleaner
	post       bool
	retention  time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		source:     deps.Source,
		ledger:     deps.Ledger,
		classifier: deps.Classifier,
		enricher:   deps.Enricher,
		renderer:   deps.Renderer,
		notifier:   deps.Notifier,
		cleaner:    deps.Cleaner,
		post:       deps.Post,
		retention:  deps.Retention,
		logger:     logger,
		now:        now,
	}
}

// Run collects, classifies, enriches, ranks and renders today's releases, then
// publishes the post when posting is enabled.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	if p.source == nil || p.classifier == nil || p.renderer == nil {
		return Result{}, errors.New("pipeline misconfigured")
	}
	logger := p.logger.With("run_id", uuid.NewString())
	start := p.now()
	logger.Info("run started", "post", p.post)

	raws, err := p.source.Collect(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("collect releases: %w", err)
	}
	res := Result{Collected: len(raws)}

	dirnames := make([]string, len(raws))
	for i, raw := range raws {
		dirnames[i] = raw.Dirname
	}

	processed := map[string]bool{}
	if p.ledger != nil && len(dirnames) > 0 {
		processed, err = p.ledger.AlreadyProcessed(ctx, dirnames)
		if err != nil {
			return Result{}, fmt.Errorf("load processed: %w", err)
		}
	}

	var releases []domain.ClassifiedRelease
	for _, raw := range raws {
		if processed[raw.Dirname] {
			continue
		}
		res.Fresh++

		release, err := p.classifier.Classify(raw)
		if err != nil {
			if domain.IsParseError(err) {
				logger.Info("skipping release", "dirname", raw.Dirname, "reason", err)
				res.Skipped++
				continue
			}
			return Result{}, fmt.Errorf("classify %s: %w", raw.Dirname, err)
		}

		if p.enricher != nil {
			if err := p.enricher.Enrich(ctx, &release); err != nil {
				switch {
				case domain.IsParseError(err):
					logger.Info("skipping release", "dirname", raw.Dirname, "reason", err)
					res.Skipped++
					continue
				case ctx.Err() != nil:
					return Result{}, ctx.Err()
				default:
					logger.Warn("enrichment failed, keeping release without store data",
						"dirname", raw.Dirname, "error", err)
				}
			}
		}
		releases = append(releases, release)
	}
	res.Classified = len(releases)

	res.Report = ranking.Rank(releases)
	post := p.renderer.Render(res.Report)
	res.Title, res.Post = post.Title, post.Body

	if p.post {
		if p.notifier == nil {
			return res, errors.New("posting enabled without a notifier")
		}
		if err := p.notifier.PublishDigest(ctx, post.Title, post.Body); err != nil {
			return res, fmt.Errorf("publish post: %w", err)
		}
		logger.Info("post published", "title", post.Title)
		if p.ledger != nil && len(dirnames) > 0 {
			if err := p.ledger.SaveProcessed(ctx, dirnames, p.now()); err != nil {
				return res, fmt.Errorf("save processed: %w", err)
			}
		}
	}

	if err := p.clean(ctx, logger); err != nil {
		return res, err
	}

	logger.Info("run finished",
		"collected", res.Collected,
		"fresh", res.Fresh,
		"reported", res.Classified,
		"skipped", res.Skipped,
		"elapsed", p.now().Sub(start).Round(time.Millisecond))
	return res, nil
}

func (p *Pipeline) clean(ctx context.Context, logger *slog.Logger) error {
	if p.cleaner != nil {
		removed, err := p.cleaner.Clean(ctx, p.retention)
		if err != nil {
			return fmt.Errorf("clean cache: %w", err)
		}
		logger.Debug("cache cleaned", "removed", removed)
	}
	if p.ledger != nil && p.retention > 0 {
		removed, err := p.ledger.PruneProcessed(ctx, p.now().Add(-p.retention))
		if err != nil {
			return fmt.Errorf("prune processed: %w", err)
		}
		logger.Debug("processed ledger pruned", "removed", removed)
	}
	return nil
}

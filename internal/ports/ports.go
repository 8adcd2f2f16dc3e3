package ports

import (
	"context"
	"time"

	"DailyReleases/internal/domain"
)

// ReleaseSource pulls raw releases from the upstream listing services.
type ReleaseSource interface {
	Collect(ctx context.Context) ([]domain.RawRelease, error)
}

// ReleaseLedger remembers which dirnames were already posted.
type ReleaseLedger interface {
	AlreadyProcessed(ctx context.Context, dirnames []string) (map[string]bool, error)
	SaveProcessed(ctx context.Context, dirnames []string, at time.Time) error
	PruneProcessed(ctx context.Context, cutoff time.Time) (int64, error)
}

// Classifier turns a raw dirname into structured metadata.
type Classifier interface {
	Classify(raw domain.RawRelease) (domain.ClassifiedRelease, error)
}

// Enricher attaches storefront links and details to a release.
type Enricher interface {
	Enrich(ctx context.Context, release *domain.ClassifiedRelease) error
}

// Notifier publishes the rendered post.
type Notifier interface {
	PublishDigest(ctx context.Context, title, body string) error
}

// NFOArchiver keeps a local copy of a release's NFO.
type NFOArchiver interface {
	Archive(ctx context.Context, release domain.RawRelease) error
}

// CacheCleaner drops stale cached responses.
type CacheCleaner interface {
	Clean(ctx context.Context, retention time.Duration) (int64, error)
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"DailyReleases/internal/config"
	"DailyReleases/internal/domain"
	"DailyReleases/internal/infrastructure/httpcache"
	"DailyReleases/internal/ports"
	"DailyReleases/internal/scanner"
)

// StrategySource aggregates the configured listing sources into one deduplicated list.
type StrategySource struct {
	registry *scanner.Registry
	sources  []config.SourceConfig
	archiver ports.NFOArchiver
	logger   *slog.Logger
}

var _ ports.ReleaseSource = (*StrategySource)(nil)

// NewStrategySource wires the scanner registry with config-defined sources, listed
// from least to most trusted.
func NewStrategySource(reg *scanner.Registry, sources []config.SourceConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		sources:  sources,
		logger:   log,
	}
}

// WithArchiver enables NFO backups for every collected release.
func (s *StrategySource) WithArchiver(archiver ports.NFOArchiver) *StrategySource {
	s.archiver = archiver
	return s
}

// Collect runs every source in precedence order. A later (more trusted) source replaces
// an earlier entry with the same dirname, which keeps its first position. A failing
// source or NFO backup is skipped; cache storage failures abort.
func (s *StrategySource) Collect(ctx context.Context) ([]domain.RawRelease, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	s.debug("collect releases", "sources", len(s.sources))

	var (
		order []string
		byDir = make(map[string]domain.RawRelease)
	)
	for rank, src := range s.sources {
		releases, err := s.collectSource(ctx, src)
		if err != nil {
			if errors.Is(err, httpcache.ErrStorage) || ctx.Err() != nil {
				return nil, fmt.Errorf("source %s: %w", src.Name, err)
			}
			s.warn("source unavailable, skipping",
				"source", src.Name,
				"error", domain.Wrap(domain.ErrSourceUnavailable, src.Name, err),
			)
			continue
		}

		for _, release := range releases {
			release.Source = src.Name
			release.SourceRank = rank
			if _, seen := byDir[release.Dirname]; !seen {
				order = append(order, release.Dirname)
			}
			byDir[release.Dirname] = release
		}
		s.debug("source produced releases", "source", src.Name, "count", len(releases))
	}

	aggregated := make([]domain.RawRelease, 0, len(order))
	for _, dirname := range order {
		aggregated = append(aggregated, byDir[dirname])
	}

	if s.archiver != nil {
		for _, release := range aggregated {
			if err := s.archiver.Archive(ctx, release); err != nil {
				if errors.Is(err, httpcache.ErrStorage) || ctx.Err() != nil {
					return nil, fmt.Errorf("nfo backup %s: %w", release.Dirname, err)
				}
				s.warn("nfo backup failed", "dirname", release.Dirname, "error", err)
			}
		}
	}

	s.debug("strategy source done", "total_releases", len(aggregated))
	return aggregated, nil
}

func (s *StrategySource) collectSource(ctx context.Context, src config.SourceConfig) ([]domain.RawRelease, error) {
	strategy, err := s.registry.Resolve(src.Scanner)
	if err != nil {
		return nil, err
	}

	categories := src.Categories
	if len(categories) == 0 {
		categories = []string{""}
	}
	pages := src.Pages
	if pages < 1 {
		pages = 1
	}

	var releases []domain.RawRelease
	for _, category := range categories {
		for page := 1; page <= pages; page++ {
			batch, err := strategy.ListReleases(ctx, category, page)
			if err != nil {
				return nil, err
			}
			releases = append(releases, batch...)
			if len(batch) == 0 {
				break
			}
		}
	}
	return releases, nil
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *StrategySource) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

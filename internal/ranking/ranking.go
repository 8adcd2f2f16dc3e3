// Package ranking orders classified releases for the daily report.
package ranking

import (
	"cmp"
	"slices"

	"DailyReleases/internal/domain"
)

// Popularity orders releases: highlights first, then review count, then non-RIP.
type Popularity struct {
	Highlights int
	Reviews    int
	NotRIP     bool
}

// PopularityOf computes the popularity of a release.
func PopularityOf(r domain.ClassifiedRelease) Popularity {
	return Popularity{
		Highlights: len(r.Highlights),
		Reviews:    r.ReviewCount,
		NotRIP:     !r.IsRIP(),
	}
}

// Compare returns -1, 0 or +1 as p is less, equally or more popular than o.
func (p Popularity) Compare(o Popularity) int {
	if c := cmp.Compare(p.Highlights, o.Highlights); c != 0 {
		return c
	}
	if c := cmp.Compare(p.Reviews, o.Reviews); c != 0 {
		return c
	}
	switch {
	case p.NotRIP == o.NotRIP:
		return 0
	case p.NotRIP:
		return 1
	default:
		return -1
	}
}

// Section is one non-empty platform/category bucket of a report.
type Section struct {
	Platform domain.Platform
	Category domain.Category
	Releases []domain.ClassifiedRelease
}

// Report holds ranked releases by platform, then category.
type Report map[domain.Platform]map[domain.Category][]domain.ClassifiedRelease

// Sections lists the non-empty buckets in report order.
func (r Report) Sections() []Section {
	var sections []Section
	for _, platform := range domain.Platforms {
		for _, category := range domain.Categories {
			releases := r[platform][category]
			if len(releases) == 0 {
				continue
			}
			sections = append(sections, Section{Platform: platform, Category: category, Releases: releases})
		}
	}
	return sections
}

// Len counts the releases in the report.
func (r Report) Len() int {
	n := 0
	for _, categories := range r {
		for _, releases := range categories {
			n += len(releases)
		}
	}
	return n
}

// Rank partitions releases by platform and category and sorts every bucket by the
// popularity of its group's best release, the group name and the release's own
// popularity, all descending. Remaining ties fall back to the dirname.
func Rank(releases []domain.ClassifiedRelease) Report {
	report := Report{}
	for _, r := range releases {
		categories, ok := report[r.Platform]
		if !ok {
			categories = map[domain.Category][]domain.ClassifiedRelease{}
			report[r.Platform] = categories
		}
		categories[r.Category] = append(categories[r.Category], r)
	}
	for _, categories := range report {
		for _, bucket := range categories {
			sortBucket(bucket)
		}
	}
	return report
}

func sortBucket(bucket []domain.ClassifiedRelease) {
	best := map[string]Popularity{}
	for _, r := range bucket {
		p := PopularityOf(r)
		if current, ok := best[r.GroupName]; !ok || p.Compare(current) > 0 {
			best[r.GroupName] = p
		}
	}

	slices.SortStableFunc(bucket, func(a, b domain.ClassifiedRelease) int {
		if c := best[b.GroupName].Compare(best[a.GroupName]); c != 0 {
			return c
		}
		if c := cmp.Compare(b.GroupName, a.GroupName); c != 0 {
			return c
		}
		if c := PopularityOf(b).Compare(PopularityOf(a)); c != 0 {
			return c
		}
		return cmp.Compare(a.Dirname, b.Dirname)
	})
}

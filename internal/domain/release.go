package domain

import (
	"strings"
	"time"
)

// Platform identifies the operating system a release targets.
type Platform string

const (
	PlatformWindows Platform = "Windows"
	PlatformOSX     Platform = "OSX"
	PlatformLinux   Platform = "Linux"
)

// Platforms lists every platform in report order.
var Platforms = []Platform{PlatformWindows, PlatformOSX, PlatformLinux}

// DisplayName is the heading used when a platform is rendered.
func (p Platform) DisplayName() string {
	if p == PlatformOSX {
		return "Mac OSX"
	}
	return string(p)
}

// Category is the release type derived from the dirname.
type Category string

const (
	CategoryGame   Category = "Game"
	CategoryUpdate Category = "Update"
	CategoryDLC    Category = "DLC"
)

// Categories lists every category in report order.
var Categories = []Category{CategoryGame, CategoryUpdate, CategoryDLC}

// RawRelease is a single listing entry reported by an upstream pre database.
type RawRelease struct {
	Dirname     string
	NFOLink     string
	GroupName   string
	PublishedAt time.Time
	SourceRank  int
	Source      string
}

// StoreLink points at the storefront page of a release.
type StoreLink struct {
	Store string
	URL   string
}

// ClassifiedRelease is a RawRelease split into structured metadata.
type ClassifiedRelease struct {
	Dirname     string
	NFOLink     string
	PublishedAt time.Time
	SourceRank  int

	GameName    string
	ReleaseName string
	GroupName   string
	Platform    Platform
	Category    Category
	Tags        []string
	Highlights  []string
	StoreLinks  []StoreLink
	Score       float64
	ReviewCount int
}

// Unknown is the Score/ReviewCount value for releases without store data.
const Unknown = -1

// AddStoreLink records a link, replacing an earlier link to the same store.
func (r *ClassifiedRelease) AddStoreLink(store, url string) {
	for i := range r.StoreLinks {
		if r.StoreLinks[i].Store == store {
			r.StoreLinks[i].URL = url
			return
		}
	}
	r.StoreLinks = append(r.StoreLinks, StoreLink{Store: store, URL: url})
}

// StoreLink returns the URL recorded for store.
func (r ClassifiedRelease) StoreLink(store string) (string, bool) {
	for _, link := range r.StoreLinks {
		if link.Store == store {
			return link.URL, true
		}
	}
	return "", false
}

// MarkDLC moves a Game release to DLC. Updates stay updates: an update to a DLC is an update.
func (r *ClassifiedRelease) MarkDLC() {
	if r.Category == CategoryGame {
		r.Category = CategoryDLC
	}
}

// AddHighlight appends a highlight unless it is already present.
func (r *ClassifiedRelease) AddHighlight(highlight string) {
	for _, h := range r.Highlights {
		if strings.EqualFold(h, highlight) {
			return
		}
	}
	r.Highlights = append(r.Highlights, highlight)
}

// HasHighlight reports whether highlight is present, ignoring case.
func (r ClassifiedRelease) HasHighlight(highlight string) bool {
	for _, h := range r.Highlights {
		if strings.EqualFold(h, highlight) {
			return true
		}
	}
	return false
}

// IsRIP reports whether the release carries the RIP tag.
func (r ClassifiedRelease) IsRIP() bool {
	for _, tag := range r.Tags {
		if strings.EqualFold(tag, "RIP") {
			return true
		}
	}
	return false
}

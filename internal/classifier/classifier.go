package classifier

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"DailyReleases/internal/domain"
)

// MaxAge is how old a pre may be before it is considered stale.
const MaxAge = 48 * time.Hour

var (
	tokenSplitter = regexp.MustCompile(`(?i)[._-](` + Join(Stopwords, Tags, Highlights).Alternation() + `)`)
	tagPrefix     = Tags.Prefix()
	highlightPre  = Highlights.Prefix()

	wordDelimiters = regexp.MustCompile(`[_-]`)
	dotBeforeWord  = regexp.MustCompile(`[.](\w{2,})`)
	dotAfterWord   = regexp.MustCompile(`(\w{2,})[.]`)
)

// Classifier turns raw dirnames into structured releases.
type Classifier struct {
	now    func() time.Time
	logger *slog.Logger
}

// New builds a classifier using the wall clock.
func New(logger *slog.Logger) *Classifier {
	return &Classifier{now: time.Now, logger: logger}
}

// WithClock replaces the time source, mainly for tests.
func (c *Classifier) WithClock(now func() time.Time) *Classifier {
	c.now = now
	return c
}

// Classify runs the blacklist, staleness, group split, tokenizer and the
// platform/category cascades over one raw release.
func (c *Classifier) Classify(raw domain.RawRelease) (domain.ClassifiedRelease, error) {
	if word, blacklisted := BlacklistRules.Match(raw.Dirname); blacklisted {
		return domain.ClassifiedRelease{}, &domain.ParseError{
			Kind:    domain.KindBlacklisted,
			Dirname: raw.Dirname,
			Reason:  "contains blacklisted word " + word,
		}
	}

	if raw.PublishedAt.Before(c.clock().Add(-MaxAge)) {
		return domain.ClassifiedRelease{}, &domain.ParseError{
			Kind:    domain.KindStale,
			Dirname: raw.Dirname,
			Reason:  "older than 48 hours",
		}
	}

	releaseName, group, ok := SplitGroup(raw.Dirname)
	if !ok {
		return domain.ClassifiedRelease{}, &domain.ParseError{
			Kind:    domain.KindMalformed,
			Dirname: raw.Dirname,
			Reason:  "no group suffix",
		}
	}
	if name := strings.TrimSpace(raw.GroupName); name != "" {
		group = name
	}

	tokens := Tokenize(releaseName)

	release := domain.ClassifiedRelease{
		Dirname:     raw.Dirname,
		NFOLink:     raw.NFOLink,
		PublishedAt: raw.PublishedAt,
		SourceRank:  raw.SourceRank,
		GameName:    NormalizeTitle(tokens.Title),
		ReleaseName: releaseName,
		GroupName:   group,
		Platform:    PlatformRules.Evaluate(releaseName),
		Category:    CategoryRules.Evaluate(releaseName),
		Tags:        tokens.Tags,
		Highlights:  tokens.Highlights,
		Score:       domain.Unknown,
		ReviewCount: domain.Unknown,
	}

	if c.logger != nil {
		c.logger.Debug("classified release",
			"dirname", release.Dirname,
			"platform", release.Platform,
			"category", release.Category,
			"game", release.GameName,
			"group", release.GroupName,
			"tags", release.Tags,
			"highlights", release.Highlights,
		)
	}

	return release, nil
}

func (c *Classifier) clock() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}

// SplitGroup splits a dirname on its last hyphen into release name and group.
func SplitGroup(dirname string) (releaseName, group string, ok bool) {
	idx := strings.LastIndex(dirname, "-")
	if idx <= 0 || idx == len(dirname)-1 {
		return dirname, "", false
	}
	return dirname[:idx], dirname[idx+1:], true
}

// Tokens is the result of splitting a release name on stopwords, tags and highlights.
type Tokens struct {
	Title      string
	Tags       []string
	Highlights []string
}

// Tokenize cuts releaseName at the first delimiter-prefixed stopword, tag or highlight
// and sorts every matched token into tags or highlights.
func Tokenize(releaseName string) Tokens {
	matches := tokenSplitter.FindAllStringSubmatchIndex(releaseName, -1)
	tokens := Tokens{Title: releaseName, Tags: []string{}, Highlights: []string{}}
	if len(matches) == 0 {
		return tokens
	}

	tokens.Title = releaseName[:matches[0][0]]
	for _, m := range matches {
		token := releaseName[m[2]:m[3]]
		switch {
		case tagPrefix.MatchString(token):
			tokens.Tags = append(tokens.Tags, token)
		case highlightPre.MatchString(token):
			tokens.Highlights = append(tokens.Highlights, token)
		}
	}
	return tokens
}

// NormalizeTitle replaces word delimiters with spaces. Dots only become spaces next to
// runs of two or more word characters, so abbreviations like "R.O.V.E.R" survive.
func NormalizeTitle(title string) string {
	title = wordDelimiters.ReplaceAllString(title, " ")
	title = dotBeforeWord.ReplaceAllString(title, " ${1}")
	title = dotAfterWord.ReplaceAllString(title, "${1} ")
	return strings.TrimSpace(title)
}

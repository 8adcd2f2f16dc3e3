// Package report renders ranked releases as a Markdown post.
package report

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"DailyReleases/internal/domain"
	"DailyReleases/internal/ranking"
)

// EmptyPost is the body used when nothing was released.
const EmptyPost = "No releases today! :o"

// Post is a rendered report.
type Post struct {
	Title string
	Body  string
}

// Renderer turns a ranked report into a post.
type Renderer struct {
	epiloguePath string
	now          func() time.Time
	logger       *slog.Logger
}

// NewRenderer builds a renderer appending the file at epiloguePath when it exists.
func NewRenderer(epiloguePath string, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Renderer{epiloguePath: epiloguePath, now: time.Now, logger: logger}
}

// WithClock overrides the clock used for the title date.
func (r *Renderer) WithClock(now func() time.Time) *Renderer {
	r.now = now
	return r
}

// Title names the post after the current day, switching at midday UTC so that a run
// shortly after midnight still reports the previous day.
func Title(now time.Time) string {
	return fmt.Sprintf("Daily Releases (%s)", now.UTC().Add(-12*time.Hour).Format("January 2, 2006"))
}

// Render builds the post for report.
func (r *Renderer) Render(report ranking.Report) Post {
	var lines []string
	var current domain.Platform
	for _, section := range report.Sections() {
		if section.Platform != current {
			if current != "" {
				lines = append(lines, "", "")
			}
			current = section.Platform
			lines = append(lines, "# "+section.Platform.DisplayName())
		}
		lines = append(lines, renderTable(section))
		lines = append(lines, "", "&nbsp;", "")
	}
	if current != "" {
		lines = append(lines, "", "")
	}

	if len(lines) == 0 {
		r.logger.Warn("post is empty")
		lines = append(lines, EmptyPost)
	}

	epilogue, err := r.epilogue()
	if err != nil {
		r.logger.Warn("read epilogue failed", "path", r.epiloguePath, "error", err)
	}
	lines = append(lines, epilogue...)

	body := strings.Join(lines, "\n")
	r.logger.Debug("generated post", "length", len(body))
	return Post{Title: Title(r.now()), Body: body}
}

func (r *Renderer) epilogue() ([]string, error) {
	if r.epiloguePath == "" {
		return nil, nil
	}
	f, err := os.Open(r.epiloguePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.Info("no epilogue", "path", r.epiloguePath)
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), " \t\r"))
	}
	return lines, scanner.Err()
}

func renderTable(section ranking.Section) string {
	tw := table.NewWriter()
	tw.Style().Format.Header = text.FormatDefault
	tw.AppendHeader(table.Row{string(section.Category), "Group", "Store", "Score (Reviews)"})
	for _, release := range section.Releases {
		cells := Row(release)
		tw.AppendRow(table.Row{cells[0], cells[1], cells[2], cells[3]})
	}
	configs := make([]table.ColumnConfig, 0, 4)
	for i := 1; i <= 4; i++ {
		configs = append(configs, table.ColumnConfig{Number: i, Align: text.AlignLeft, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.RenderMarkdown()
}

// Row renders the name, group, store and review cells of a release. Rows of
// releases highlighted with DENUVO are bold throughout.
func Row(release domain.ClassifiedRelease) [4]string {
	var highlights []string
	bold := false
	for _, h := range release.Highlights {
		if strings.EqualFold(h, "DENUVO") {
			bold = true
			continue
		}
		highlights = append(highlights, h)
	}

	var name string
	if release.Category == domain.CategoryUpdate {
		name = fmt.Sprintf("[%s](%s)", release.ReleaseName, release.NFOLink)
	} else {
		tags := ""
		if len(release.Tags) > 0 {
			tags = " (" + strings.Join(release.Tags, " ") + ")"
		}
		suffix := ""
		if len(highlights) > 0 {
			suffix = " **- " + strings.Join(highlights, ", ") + "**"
		}
		name = fmt.Sprintf("[%s%s](%s)%s", MarkdownEscape(release.GameName), tags, release.NFOLink, suffix)
	}

	links := make([]string, 0, len(release.StoreLinks))
	for _, link := range release.StoreLinks {
		links = append(links, fmt.Sprintf("[%s](%s)", link.Store, link.URL))
	}

	row := [4]string{name, release.GroupName, strings.Join(links, ", "), Reviews(release.Score, release.ReviewCount)}
	if bold {
		for i, cell := range row {
			row[i] = "**" + strings.ReplaceAll(cell, "**", "") + "**"
		}
	}
	return row
}

// Reviews formats a score and review count as "85% (12.3k)", or "-" when unknown.
func Reviews(score float64, count int) string {
	if score == domain.Unknown {
		return "-"
	}
	humanized := strings.ReplaceAll(humanize.SIWithDigits(float64(count), 1, ""), " ", "")
	return fmt.Sprintf("%.0f%% (%s)", score*100, humanized)
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	`*`, `\*`,
	`_`, `\_`,
	`{`, `\{`,
	`}`, `\}`,
	`[`, `\[`,
	`]`, `\]`,
	`(`, `\(`,
	`)`, `\)`,
	`#`, `\#`,
	`+`, `\+`,
	`-`, `\-`,
	`.`, `\.`,
	`!`, `\!`,
	`~`, `\~`,
	`|`, `&#124;`,
)

// MarkdownEscape escapes Markdown control characters in text.
func MarkdownEscape(text string) string {
	return markdownEscaper.Replace(text)
}

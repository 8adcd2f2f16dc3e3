package classifier

import (
	"regexp"
	"strings"
)

// Rule pairs a pattern with the label it yields. NotAfter, when set, rejects a match
// whose preceding text matches it; it must be anchored with `$`.
type Rule[L any] struct {
	Label    L
	Pattern  *regexp.Regexp
	NotAfter *regexp.Regexp
}

// Matches reports whether the rule fires anywhere in text.
func (r Rule[L]) Matches(text string) bool {
	if r.Pattern == nil {
		return false
	}
	if r.NotAfter == nil {
		return r.Pattern.MatchString(text)
	}
	for _, loc := range r.Pattern.FindAllStringIndex(text, -1) {
		if !r.NotAfter.MatchString(text[:loc[0]]) {
			return true
		}
	}
	return false
}

// Cascade evaluates rules in order; the first matching rule wins.
type Cascade[L any] struct {
	Rules    []Rule[L]
	Fallback L
}

// Evaluate returns the label of the first matching rule, or the fallback.
func (c Cascade[L]) Evaluate(text string) L {
	label, _ := c.Match(text)
	return label
}

// Match is Evaluate that also reports whether a rule matched.
func (c Cascade[L]) Match(text string) (L, bool) {
	for _, rule := range c.Rules {
		if rule.Matches(text) {
			return rule.Label, true
		}
	}
	return c.Fallback, false
}

// Term is one case-insensitive pattern fragment of a word list.
type Term struct {
	Name    string
	Pattern string
}

// WordList is an ordered set of pattern fragments that can be compiled into
// search, prefix and delimiter-split expressions.
type WordList []Term

// Alternation joins the fragments in order as a regexp alternation.
func (w WordList) Alternation() string {
	parts := make([]string, 0, len(w))
	for _, term := range w {
		parts = append(parts, term.Pattern)
	}
	return strings.Join(parts, "|")
}

// Search compiles a case-insensitive expression matching any fragment anywhere.
func (w WordList) Search() *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:` + w.Alternation() + `)`)
}

// Prefix compiles a case-insensitive expression matching any fragment at the start.
func (w WordList) Prefix() *regexp.Regexp {
	return regexp.MustCompile(`(?i)^(?:` + w.Alternation() + `)`)
}

// Join concatenates word lists preserving order.
func Join(lists ...WordList) WordList {
	var joined WordList
	for _, list := range lists {
		joined = append(joined, list...)
	}
	return joined
}

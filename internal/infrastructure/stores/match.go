package stores

import (
	"sort"

	"golang.org/x/text/cases"
)

// MatchCutoff is the minimum similarity for a catalog title to count as the same game.
const MatchCutoff = 0.90

// Ratio returns the Ratcliff/Obershelp similarity of a and b in [0, 1]: twice the
// number of matching runes divided by the total rune count.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingRunes(ra, rb)) / float64(total)
}

// matchingRunes sums the longest common block and, recursively, the blocks to its
// left and right.
func matchingRunes(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	besti, bestj, size := longestBlock(a, b)
	if size == 0 {
		return 0
	}
	return size +
		matchingRunes(a[:besti], b[:bestj]) +
		matchingRunes(a[besti+size:], b[bestj+size:])
}

func longestBlock(a, b []rune) (besti, bestj, size int) {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > size {
					size = curr[j]
					besti, bestj = i-size, j-size
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return besti, bestj, size
}

// CloseMatches returns the indexes of candidates whose case-folded similarity to
// query is at least cutoff, best first. Equal scores keep candidate order, so the
// first of several identical titles wins.
func CloseMatches(query string, candidates []string, cutoff float64) []int {
	fold := cases.Fold()
	folded := fold.String(query)

	type scored struct {
		index int
		score float64
	}
	var hits []scored
	for i, candidate := range candidates {
		score := Ratio(folded, fold.String(candidate))
		if score >= cutoff {
			hits = append(hits, scored{index: i, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})

	indexes := make([]int, 0, len(hits))
	for _, h := range hits {
		indexes = append(indexes, h.index)
	}
	return indexes
}

// BestMatch returns the index of the closest candidate, if any passes MatchCutoff.
func BestMatch(query string, candidates []string) (int, bool) {
	matches := CloseMatches(query, candidates, MatchCutoff)
	if len(matches) == 0 {
		return -1, false
	}
	return matches[0], true
}

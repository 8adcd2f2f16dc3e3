package stores

import (
	"math"
	"testing"
)

func TestRatio(t *testing.T) {
	t.Parallel()

	cases := []struct {
		a, b string
		want float64
	}{
		{"abcd", "bcde", 0.75},
		{"", "", 1},
		{"abc", "", 0},
		{"aztez", "aztez", 1},
		{"aztez", "aztec", 0.8},
	}
	for _, tc := range cases {
		if got := Ratio(tc.a, tc.b); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("Ratio(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestCloseMatchesIsCaseInsensitiveAndOrdered(t *testing.T) {
	t.Parallel()

	candidates := []string{"Aztec Empire", "AZTEZ", "aztez"}
	got := CloseMatches("Aztez", candidates, MatchCutoff)
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("unexpected matches: %v", got)
	}

	if _, ok := BestMatch("Aztez", []string{"Aztec"}); ok {
		t.Fatalf("0.8 similarity must not pass the cutoff")
	}
}

func TestKnownStore(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"https://store.steampowered.com/sub/1000":   "Steam",
		"https://www.gog.com/en/game/death_coming":  "GOG",
		"https://store.epicgames.com/en-US/p/aztez": "Epic Games",
		"https://store.ubi.com/us/game":             "Ubisoft",
	}
	for link, want := range cases {
		if got, ok := KnownStore(link); !ok || got != want {
			t.Fatalf("KnownStore(%q) = %q %v, want %q", link, got, ok, want)
		}
	}
	if _, ok := KnownStore("https://en.wikipedia.org/wiki/Aztez"); ok {
		t.Fatalf("wikipedia is not a store")
	}
}

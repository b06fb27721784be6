package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases s, strips diacritics and trims surrounding spaces so
// that "Crème " and "creme" compare equal.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return strings.TrimSpace(strings.ToLower(stripped))
}

// Levenshtein returns the edit distance between a and b, counted in runes.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// FindSimilar returns the articles whose normalized name is within
// maxDistance edits of the query.
func FindSimilar(query string, articles []Article, maxDistance int) []Article {
	q := Normalize(query)
	var out []Article
	for _, a := range articles {
		if Levenshtein(q, Normalize(a.Name)) <= maxDistance {
			out = append(out, a)
		}
	}
	return out
}

// CheckForSimilar looks for an article that is probably the same thing as
// name: an exact or plural-insensitive match first, then one edit away, then
// two edits away for names longer than four characters. Returns nil when
// nothing is close enough.
func CheckForSimilar(name string, articles []Article) *Article {
	names := make([]string, len(articles))
	for i, a := range articles {
		names[i] = a.Name
	}
	if i := closest(name, names); i >= 0 {
		return &articles[i]
	}
	return nil
}

// CheckForSimilarRecipe applies the CheckForSimilar rules to recipe names.
// When none matches, a name that starts exactly one recipe name on a word
// boundary ("blanquette" for "Blanquette de veau") is accepted.
func CheckForSimilarRecipe(name string, recipes []Recipe) *Recipe {
	names := make([]string, len(recipes))
	for i, r := range recipes {
		names[i] = r.Name
	}
	if i := closest(name, names); i >= 0 {
		return &recipes[i]
	}
	if i := uniquePrefix(name, names); i >= 0 {
		return &recipes[i]
	}
	return nil
}

func uniquePrefix(name string, candidates []string) int {
	n := strings.Join(strings.Fields(Normalize(name)), " ")
	if n == "" {
		return -1
	}
	found := -1
	for i, c := range candidates {
		if strings.HasPrefix(strings.Join(strings.Fields(Normalize(c)), " ")+" ", n+" ") {
			if found >= 0 {
				return -1
			}
			found = i
		}
	}
	return found
}

func closest(name string, candidates []string) int {
	n := Normalize(name)
	if n == "" {
		return -1
	}
	singular := strings.ReplaceAll(n, "s", "")

	normalized := make([]string, len(candidates))
	for i, c := range candidates {
		normalized[i] = Normalize(c)
		if normalized[i] == n || strings.ReplaceAll(normalized[i], "s", "") == singular {
			return i
		}
	}

	twoAway := -1
	for i, c := range normalized {
		switch d := Levenshtein(n, c); {
		case d == 1:
			return i
		case d == 2 && twoAway < 0 && len([]rune(n)) > 4:
			twoAway = i
		}
	}
	return twoAway
}

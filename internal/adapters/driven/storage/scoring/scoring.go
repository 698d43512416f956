// Package scoring holds the relevance functions shared by the local
// backends: cosine similarity for the vector channel and fuzzy term
// matching for the text channel. The scales mirror Atlas Search so that
// results from different backends fuse the same way.
package scoring

import (
	"math"
	"strings"
	"unicode"
)

// Tokenize lowercases s and splits it into letter and digit runs.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// Levenshtein returns the edit distance between a and b in runes.
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

// FuzzyMatch reports whether token matches term within maxEdits edits.
// The first prefixLength runes must match exactly. It returns the distance.
func FuzzyMatch(term, token string, maxEdits, prefixLength int) (int, bool) {
	if term == token {
		return 0, true
	}
	rt, rk := []rune(term), []rune(token)
	if prefixLength > 0 {
		if len(rt) < prefixLength || len(rk) < prefixLength {
			return 0, false
		}
		if string(rt[:prefixLength]) != string(rk[:prefixLength]) {
			return 0, false
		}
	}
	diff := len(rt) - len(rk)
	if diff < 0 {
		diff = -diff
	}
	if diff > maxEdits {
		return 0, false
	}
	d := Levenshtein(term, token)
	return d, d <= maxEdits
}

// TextScore scores content against the query terms. Each term contributes
// its best match in the content: 1 for an exact token, 1/(1+d) for a fuzzy
// one at distance d. Zero means no term matched.
func TextScore(terms []string, content string, maxEdits, prefixLength int) float64 {
	if len(terms) == 0 {
		return 0
	}
	tokens := Tokenize(content)
	var score float64
	for _, term := range terms {
		best := 0.0
		for _, tok := range tokens {
			d, ok := FuzzyMatch(term, tok, maxEdits, prefixLength)
			if !ok {
				continue
			}
			if s := 1 / float64(1+d); s > best {
				best = s
			}
			if best == 1 {
				break
			}
		}
		score += best
	}
	return score
}

// Cosine returns the cosine similarity of a and b, or 0 when the vectors
// differ in length or either is zero.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// VectorScore maps cosine similarity onto [0, 1] the way Atlas
// $vectorSearch reports cosine scores.
func VectorScore(a, b []float32) float64 {
	return (1 + Cosine(a, b)) / 2
}

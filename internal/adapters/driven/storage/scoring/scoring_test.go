package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"grappling", "rules", "p", "89"}, Tokenize("Grappling-rules (p. 89)"))
	assert.Empty(t, Tokenize("  ...  "))
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"thrust", "thrust", 0},
		{"thrust", "thurst", 2},
		{"héllo", "hello", 1},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, Levenshtein(tt.a, tt.b))
			assert.Equal(t, tt.want, Levenshtein(tt.b, tt.a))
		})
	}
}

func TestFuzzyMatch(t *testing.T) {
	d, ok := FuzzyMatch("grappling", "grapling", 2, 3)
	assert.True(t, ok)
	assert.Equal(t, 1, d)

	_, ok = FuzzyMatch("grappling", "krappling", 2, 3)
	assert.False(t, ok, "prefix must match exactly")

	_, ok = FuzzyMatch("ship", "shipyards", 2, 3)
	assert.False(t, ok, "length difference exceeds max edits")

	_, ok = FuzzyMatch("ab", "ab", 2, 3)
	assert.True(t, ok, "exact match ignores prefix length")
}

func TestTextScore(t *testing.T) {
	content := "The grappling rules apply in zero gravity."

	exact := TextScore([]string{"grappling"}, content, 2, 3)
	fuzzy := TextScore([]string{"grapling"}, content, 2, 3)
	none := TextScore([]string{"torpedo"}, content, 2, 3)

	assert.InDelta(t, 1.0, exact, 1e-9)
	assert.InDelta(t, 0.5, fuzzy, 1e-9)
	assert.Zero(t, none)
	assert.Greater(t, TextScore([]string{"grappling", "gravity"}, content, 2, 3), exact)
	assert.Zero(t, TextScore(nil, content, 2, 3))
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, Cosine([]float32{1}, []float32{1, 0}))
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 0}))
}

func TestVectorScore(t *testing.T) {
	assert.InDelta(t, 1.0, VectorScore([]float32{1, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, 0.5, VectorScore([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 0.0, VectorScore([]float32{1, 0}, []float32{-1, 0}), 1e-9)
}

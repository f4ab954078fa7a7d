package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "identical strings", a: "Amy Lee", b: "Amy Lee", want: 0},
		{name: "both empty", a: "", b: "", want: 0},
		{name: "one empty", a: "abcd", b: "", want: 1},
		{name: "single edit in ten runes", a: "Amy Leeson", b: "Amy Leason", want: 0.1},
		{name: "completely different", a: "ab", b: "xy", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSearchRankingAndThreshold(t *testing.T) {
	corpus := []string{"Amy Leeson", "Amy Leason", "Bob Carter", "Amy Leeson"}
	ix := NewIndex(corpus)

	matches := ix.Search("Amy Leeson", 0.1)

	// Exact match first, then the one-edit variant; Bob is out entirely.
	require.Len(t, matches, 3)
	assert.Equal(t, 0, matches[0].Index)
	assert.Equal(t, float64(0), matches[0].Score)

	// Duplicate exact entries keep corpus order — stable ties.
	assert.Equal(t, 3, matches[1].Index)
	assert.Equal(t, float64(0), matches[1].Score)

	assert.Equal(t, 1, matches[2].Index)
	assert.InDelta(t, 0.1, matches[2].Score, 1e-9)
}

func TestSearchNoMatches(t *testing.T) {
	ix := NewIndex([]string{"Bob Carter", "Cara Munro"})
	assert.Empty(t, ix.Search("Amy Lee", 0.1))
}

func TestSearchEmptyCorpus(t *testing.T) {
	ix := NewIndex(nil)
	assert.Empty(t, ix.Search("anything", 1.0))
}

func TestSearchDeterministic(t *testing.T) {
	corpus := []string{"Amy Leeson", "Amy Leason", "Amy Leeson"}
	ix := NewIndex(corpus)

	first := ix.Search("Amy Leeson", 0.2)
	second := ix.Search("Amy Leeson", 0.2)
	assert.Equal(t, first, second)
}

func TestCaseFolding(t *testing.T) {
	corpus := []string{"AMY LEESON"}

	// Case-exact by default: upper vs lower is 9 edits out of 10 runes.
	exact := NewIndex(corpus)
	assert.Empty(t, exact.Search("amy leeson", 0.1))

	// With folding enabled the same query is an exact match.
	folded := NewIndex(corpus, WithCaseFolding())
	matches := folded.Search("amy leeson", 0.1)
	require.Len(t, matches, 1)
	assert.Equal(t, float64(0), matches[0].Score)
}

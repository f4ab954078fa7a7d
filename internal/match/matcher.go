// Package match provides approximate (typo-tolerant) string lookup over a
// fixed corpus.
//
// SCORING CONVENTION — DISSIMILARITY, NOT SIMILARITY:
// A score is normalized edit distance in [0,1] where LOWER is closer:
// 0 = exact match, 1 = nothing in common. Callers accept a match when
// score <= threshold. This matches the convention of the fuzzy-search
// tooling the reconciliation workflow was built around; anyone swapping
// in a similarity-increasing metric must invert the comparison.
//
// The package knows nothing about domain types — it ranks strings by
// corpus position, and callers map positions back to their own records.
package match

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Match is one ranked candidate from an index search.
type Match struct {
	Index int     // position of the candidate in the original corpus
	Score float64 // normalized dissimilarity in [0,1], lower is closer
}

// Matcher is the narrow strategy interface the reconciliation engine
// depends on. Implementations must be deterministic: identical
// (query, threshold) inputs yield an identical, stably ordered list.
type Matcher interface {
	Search(query string, threshold float64) []Match
}

// Option configures an Index.
type Option func(*Index)

// WithCaseFolding lower-cases both corpus entries and queries before
// scoring, so "amy lee" matches "Amy Lee" exactly. Off by default: the
// historical matching behaviour is case-exact, and changing that
// silently would reclassify records. Flip it on deliberately.
func WithCaseFolding() Option {
	return func(ix *Index) { ix.fold = true }
}

// Index is a searchable snapshot of a corpus. Construction is a pure
// function of the input: there is no incremental mutation, callers
// rebuild the index whenever the corpus changes.
type Index struct {
	corpus []string // entries as scored (folded when fold is on)
	fold   bool
}

// NewIndex builds an index over the given corpus. The corpus slice is
// copied; later mutation of the caller's slice does not affect the index.
func NewIndex(corpus []string, opts ...Option) *Index {
	ix := &Index{}
	for _, opt := range opts {
		opt(ix)
	}
	ix.corpus = make([]string, len(corpus))
	for i, entry := range corpus {
		if ix.fold {
			entry = strings.ToLower(entry)
		}
		ix.corpus[i] = entry
	}
	return ix
}

// Search returns every corpus entry whose dissimilarity to query is at
// most threshold, ranked ascending by score. Ties keep corpus order
// (sort.SliceStable), so results are reproducible run to run.
func (ix *Index) Search(query string, threshold float64) []Match {
	if ix.fold {
		query = strings.ToLower(query)
	}

	var matches []Match
	for i, entry := range ix.corpus {
		score := Score(query, entry)
		if score <= threshold {
			matches = append(matches, Match{Index: i, Score: score})
		}
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Score < matches[b].Score
	})
	return matches
}

// Score computes normalized edit distance between two strings:
// Levenshtein distance divided by the rune length of the longer string.
// Two empty strings score 0 (identical).
func Score(a, b string) float64 {
	if a == b {
		return 0
	}
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 0
	}
	return float64(levenshtein.ComputeDistance(a, b)) / float64(longest)
}

// Package retriever runs hybrid (vector + keyword-boost) search over the
// record store.
package retriever

import (
	"sort"
	"strings"

	"github.com/hyperjump/seiri/internal/models"
)

// Tokenize splits a query into lowercase tokens of at least minLen runes.
// Short tokens carry too little signal for the substring boost.
func Tokenize(query string, minLen int) []string {
	fields := strings.Fields(strings.ToLower(query))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) >= minLen {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// KeywordBoost returns the lexical bonus for a candidate: contentBoost per
// token appearing as a case-insensitive substring of the content and
// nameBoost per token appearing in the display name. The bonus is additive
// on top of vector similarity, so an exact lexical match strictly increases
// the fused score.
func KeywordBoost(content, displayName string, tokens []string, contentBoost, nameBoost float64) float64 {
	if len(tokens) == 0 {
		return 0
	}
	lowerContent := strings.ToLower(content)
	lowerName := strings.ToLower(displayName)
	var boost float64
	for _, tok := range tokens {
		if strings.Contains(lowerContent, tok) {
			boost += contentBoost
		}
		if strings.Contains(lowerName, tok) {
			boost += nameBoost
		}
	}
	return boost
}

// Dedupe collapses candidates sharing a record ID, keeping the highest
// fused score (and its score components).
func Dedupe(candidates []*models.ScoredRecord) []*models.ScoredRecord {
	seen := make(map[string]*models.ScoredRecord, len(candidates))
	out := make([]*models.ScoredRecord, 0, len(candidates))
	for _, c := range candidates {
		if prev, ok := seen[c.Record.ID]; ok {
			if c.Score > prev.Score {
				prev.Score = c.Score
				prev.Similarity = c.Similarity
				prev.Boost = c.Boost
				prev.Record = c.Record
			}
			continue
		}
		seen[c.Record.ID] = c
		out = append(out, c)
	}
	return out
}

// SortByScore orders candidates by descending fused score. The sort is
// stable, so candidates entering in similarity-rank order keep that order
// as the tiebreak.
func SortByScore(candidates []*models.ScoredRecord) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
}

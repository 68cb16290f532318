// Package algorithms holds the built-in validators
package algorithms

import (
	"github.com/ppiankov/corroborate/internal/annotate"
	"github.com/ppiankov/corroborate/internal/model"
	"github.com/ppiankov/corroborate/internal/similarity"
	"github.com/ppiankov/corroborate/internal/validator"
)

// Builtins returns a factory for every built-in algorithm, keyed by catalog name.
// Settings are read from cfg; provider backs the semantic algorithm.
func Builtins(cfg *model.Config, provider similarity.Provider) map[string]validator.Factory {
	textRank := TextRankOptions{
		TopSentences: cfg.Algorithms[model.AlgorithmTextRank].TopSentences,
		Iterations:   cfg.Rank.Iterations,
		Threshold:    cfg.Rank.Threshold,
		Damping:      cfg.Rank.Damping,
	}
	return map[string]validator.Factory{
		model.AlgorithmKeyword:  validator.OneToOne(NewKeyword),
		model.AlgorithmTFIDF:    validator.OneToMany(NewTFIDF),
		model.AlgorithmTextRank: validator.ManyToOne(TextRankFactory(provider, textRank)),
	}
}

// lemmas returns the lemma counts of an article's tokens
func lemmas(a *model.Article) map[string]int {
	counts := make(map[string]int)
	for _, s := range a.Sentences {
		for _, t := range s.Tokens {
			l := t.Lemma
			if l == "" {
				l = annotate.Lemma(t.Text)
			}
			counts[l]++
		}
	}
	return counts
}

// queryWords is the content vocabulary of a query, location included
func queryWords(q *model.Query) []string {
	var words []string
	seen := make(map[string]bool)
	for _, e := range q.Elements() {
		for _, w := range annotate.ContentWords(e) {
			if !seen[w] {
				seen[w] = true
				words = append(words, w)
			}
		}
	}
	return words
}

package rank

import (
	"math"

	"github.com/ppiankov/corroborate/internal/model"
)

// minDenominator floors ln|s1| + ln|s2|, which is zero for two one-word sentences
const minDenominator = 1e-6

// SentenceSimilarity is the number of distinct lowercase words shared by two
// sentences, normalised by the sum of the logs of their lengths
func SentenceSimilarity(a, b model.Sentence) float64 {
	wa, wb := a.Words(), b.Words()
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}

	set := make(map[string]struct{}, len(wa))
	for _, w := range wa {
		set[w] = struct{}{}
	}
	shared := 0
	for _, w := range wb {
		if _, ok := set[w]; ok {
			shared++
		}
	}
	if shared == 0 {
		return 0
	}

	denom := math.Log(float64(len(a.Tokens))) + math.Log(float64(len(b.Tokens)))
	if denom < minDenominator {
		denom = minDenominator
	}
	return float64(shared) / denom
}

// SentenceGraph builds a graph with one node per sentence and a similarity edge
// between every pair that shares a word
func SentenceGraph(sentences []model.Sentence) *Graph[model.Sentence] {
	g := New[model.Sentence]()
	for _, s := range sentences {
		g.AddNode(1, s)
	}
	for i := 0; i < len(sentences); i++ {
		for j := i + 1; j < len(sentences); j++ {
			if w := SentenceSimilarity(sentences[i], sentences[j]); w > 0 {
				// indices are valid and distinct, weight is finite and positive
				_ = g.AddEdge(i, w, j)
			}
		}
	}
	return g
}

// RankSentences returns the top sentences by salience, at most limit of them.
// A limit of zero or less returns all sentences.
func RankSentences(sentences []model.Sentence, limit, iterations int, threshold, damping float64) ([]Ranked[model.Sentence], error) {
	g := SentenceGraph(sentences)
	if err := g.Rank(iterations, threshold, damping); err != nil {
		return nil, err
	}
	ranked := g.SortedRankedPayloads()
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

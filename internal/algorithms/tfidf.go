package algorithms

import (
	"context"
	"math"

	"github.com/ppiankov/corroborate/internal/model"
	"github.com/ppiankov/corroborate/internal/validator"
)

// TFIDF compares the query with each article as TF-IDF vectors.
// Document frequencies come from the articles of the task, computed once.
type TFIDF struct {
	algorithm model.AlgorithmID
	query     *model.Query
	articles  []*model.Article
}

// NewTFIDF is a validator.OneToManyFunc
func NewTFIDF(alg model.AlgorithmID, q *model.Query, as []*model.Article) validator.Validator {
	return &TFIDF{algorithm: alg, query: q, articles: as}
}

func (v *TFIDF) Call(ctx context.Context) ([]model.ValidationResult, error) {
	words := queryWords(v.query)
	if len(words) == 0 {
		return nil, nil
	}

	docs := make([]map[string]int, len(v.articles))
	df := make(map[string]int)
	for i, a := range v.articles {
		docs[i] = lemmas(a)
		for w := range docs[i] {
			df[w]++
		}
	}

	n := float64(len(v.articles))
	idf := func(w string) float64 {
		return math.Log((n+1)/(float64(df[w])+1)) + 1
	}

	// query vector: each content word once
	var qNorm float64
	for _, w := range words {
		qNorm += idf(w) * idf(w)
	}
	qNorm = math.Sqrt(qNorm)

	results := make([]model.ValidationResult, 0, len(v.articles))
	for i, a := range v.articles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var dot, dNorm float64
		for w, tf := range docs[i] {
			weight := float64(tf) * idf(w)
			dNorm += weight * weight
		}
		for _, w := range words {
			if tf := docs[i][w]; tf > 0 {
				dot += idf(w) * float64(tf) * idf(w)
			}
		}

		score := 0.0
		if dNorm > 0 && qNorm > 0 {
			score = dot / (qNorm * math.Sqrt(dNorm))
		}
		results = append(results, model.NewValidationResult(v.algorithm, v.query.ID, a.ID, score))
	}
	return results, nil
}

package algorithms

import (
	"context"

	"github.com/ppiankov/corroborate/internal/model"
	"github.com/ppiankov/corroborate/internal/validator"
)

// Keyword scores the fraction of the query's content words that appear in the article
type Keyword struct {
	algorithm model.AlgorithmID
	query     *model.Query
	article   *model.Article
}

// NewKeyword is a validator.OneToOneFunc
func NewKeyword(alg model.AlgorithmID, q *model.Query, a *model.Article) validator.Validator {
	return &Keyword{algorithm: alg, query: q, article: a}
}

func (k *Keyword) Call(ctx context.Context) ([]model.ValidationResult, error) {
	words := queryWords(k.query)
	if len(words) == 0 {
		return nil, nil
	}

	vocab := lemmas(k.article)
	found := 0
	for _, w := range words {
		if vocab[w] > 0 {
			found++
		}
	}

	score := float64(found) / float64(len(words))
	return []model.ValidationResult{
		model.NewValidationResult(k.algorithm, k.query.ID, k.article.ID, score).WithInvalidates(1 - score),
	}, nil
}

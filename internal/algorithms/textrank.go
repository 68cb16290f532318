package algorithms

import (
	"context"
	"fmt"

	"github.com/ppiankov/corroborate/internal/model"
	"github.com/ppiankov/corroborate/internal/rank"
	"github.com/ppiankov/corroborate/internal/similarity"
	"github.com/ppiankov/corroborate/internal/validator"
)

// TextRankOptions tunes sentence selection
type TextRankOptions struct {
	TopSentences int
	Iterations   int
	Threshold    float64
	Damping      float64
}

func (o TextRankOptions) withDefaults() TextRankOptions {
	if o.Iterations <= 0 {
		o.Iterations = rank.DefaultIterations
	}
	if o.Threshold <= 0 {
		o.Threshold = rank.DefaultThreshold
	}
	if o.Damping <= 0 || o.Damping >= 1 {
		o.Damping = rank.DefaultDamping
	}
	return o
}

// TextRank ranks an article's sentences once, then scores every query by the
// rank-weighted mean similarity between the query phrase and the top sentences
type TextRank struct {
	algorithm model.AlgorithmID
	queries   []*model.Query
	article   *model.Article
	provider  similarity.Provider
	opts      TextRankOptions
}

// TextRankFactory returns a validator.ManyToOneFunc bound to a provider
func TextRankFactory(provider similarity.Provider, opts TextRankOptions) validator.ManyToOneFunc {
	opts = opts.withDefaults()
	return func(alg model.AlgorithmID, qs []*model.Query, a *model.Article) validator.Validator {
		return &TextRank{algorithm: alg, queries: qs, article: a, provider: provider, opts: opts}
	}
}

// Call returns no results for an article without sentences
func (v *TextRank) Call(ctx context.Context) ([]model.ValidationResult, error) {
	ranked, err := rank.RankSentences(v.article.Sentences, v.opts.TopSentences, v.opts.Iterations, v.opts.Threshold, v.opts.Damping)
	if err != nil {
		return nil, fmt.Errorf("rank sentences: %w", err)
	}
	if len(ranked) == 0 {
		return nil, nil
	}

	texts := make([]string, len(ranked))
	for i, r := range ranked {
		texts[i] = r.Payload.Text()
	}

	results := make([]model.ValidationResult, 0, len(v.queries))
	for _, q := range v.queries {
		phrase := q.Phrase()
		var sum, divisor float64
		for i, r := range ranked {
			sim, err := v.provider.Similarity(ctx, phrase, texts[i])
			if err != nil {
				return nil, fmt.Errorf("similarity for query %d: %w", q.ID, err)
			}
			sum += sim * r.Weight
			divisor += r.Weight
		}
		// weights are at least 1-d, so divisor is positive
		results = append(results, model.NewValidationResult(v.algorithm, q.ID, v.article.ID, sum/divisor))
	}
	return results, nil
}

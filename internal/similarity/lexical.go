package similarity

import (
	"context"
	"math"

	"github.com/ppiankov/corroborate/internal/annotate"
)

// LexicalProvider scores content-word overlap in-process, no network involved
type LexicalProvider struct{}

func NewLexicalProvider() *LexicalProvider {
	return &LexicalProvider{}
}

func (p *LexicalProvider) Name() string {
	return "lexical"
}

// Similarity is the Ochiai coefficient of the two content-word sets
func (p *LexicalProvider) Similarity(ctx context.Context, a, b string) (float64, error) {
	wa, wb := annotate.ContentWords(a), annotate.ContentWords(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0, nil
	}

	set := make(map[string]bool, len(wa))
	for _, w := range wa {
		set[w] = true
	}
	shared := 0
	for _, w := range wb {
		if set[w] {
			shared++
		}
	}
	return float64(shared) / math.Sqrt(float64(len(wa))*float64(len(wb))), nil
}

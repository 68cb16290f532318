package model

import (
	"fmt"
	"math"
	"strconv"
)

// TripleKey is the primary key of a persisted result
type TripleKey struct {
	Query     QueryID     `json:"query"`
	Algorithm AlgorithmID `json:"algorithm"`
	Article   ArticleID   `json:"article"`
}

func (k TripleKey) String() string {
	return fmt.Sprintf("(%d, %d, %d)", k.Query, k.Algorithm, k.Article)
}

// ValidationResult is the verdict of one algorithm for one (query, article) pair.
// Validates and Invalidates need not sum to 1.
type ValidationResult struct {
	QueryID     QueryID     `json:"query_id"`
	ArticleID   ArticleID   `json:"article_id"`
	AlgorithmID AlgorithmID `json:"algorithm_id"`
	Validates   float64     `json:"validates"`
	Invalidates *float64    `json:"invalidates,omitempty"`
}

// NewValidationResult builds a result with no invalidates value
func NewValidationResult(algorithm AlgorithmID, query QueryID, article ArticleID, validates float64) ValidationResult {
	return ValidationResult{
		QueryID:     query,
		ArticleID:   article,
		AlgorithmID: algorithm,
		Validates:   validates,
	}
}

// WithInvalidates returns a copy carrying the invalidates probability
func (r ValidationResult) WithInvalidates(v float64) ValidationResult {
	r.Invalidates = &v
	return r
}

// Key returns the result's primary key
func (r ValidationResult) Key() TripleKey {
	return TripleKey{Query: r.QueryID, Algorithm: r.AlgorithmID, Article: r.ArticleID}
}

// Normalize clamps both scores into [0, 1]. Non-finite scores are malformed.
func (r ValidationResult) Normalize() (ValidationResult, error) {
	if math.IsNaN(r.Validates) || math.IsInf(r.Validates, 0) {
		return r, fmt.Errorf("%w: validates=%v for %s", ErrInvalidScore, r.Validates, r.Key())
	}
	r.Validates = Clamp01(r.Validates)
	if r.Invalidates != nil {
		inv := *r.Invalidates
		if math.IsNaN(inv) || math.IsInf(inv, 0) {
			return r, fmt.Errorf("%w: invalidates=%v for %s", ErrInvalidScore, inv, r.Key())
		}
		inv = Clamp01(inv)
		r.Invalidates = &inv
	}
	return r, nil
}

func (r ValidationResult) String() string {
	inv := "null"
	if r.Invalidates != nil {
		inv = strconv.FormatFloat(*r.Invalidates, 'g', -1, 64)
	}
	return fmt.Sprintf("%s -> (%s, %s)", r.Key(), strconv.FormatFloat(r.Validates, 'g', -1, 64), inv)
}

// Clamp01 bounds v to [0, 1]
func Clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

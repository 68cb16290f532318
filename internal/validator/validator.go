// Package validator defines the pluggable unit of scoring work and the
// arity-tagged factories that build it
package validator

import (
	"context"
	"errors"
	"fmt"

	"github.com/ppiankov/corroborate/internal/model"
)

// ErrArity is returned when a factory is asked to build for the wrong number of queries or articles
var ErrArity = errors.New("arity mismatch")

// Validator scores one or more (query, article) pairs.
// Returning zero results is legitimate.
type Validator interface {
	Call(ctx context.Context) ([]model.ValidationResult, error)
}

// Func adapts a plain function to Validator
type Func func(ctx context.Context) ([]model.ValidationResult, error)

// Call implements Validator
func (f Func) Call(ctx context.Context) ([]model.ValidationResult, error) {
	return f(ctx)
}

// Arity is the granularity a validator works at
type Arity int

const (
	ArityOneToOne Arity = iota
	ArityOneToMany
	ArityManyToOne
	ArityManyToMany
)

func (a Arity) String() string {
	switch a {
	case ArityOneToOne:
		return "1x1"
	case ArityOneToMany:
		return "1xN"
	case ArityManyToOne:
		return "Nx1"
	case ArityManyToMany:
		return "NxN"
	default:
		return fmt.Sprintf("Arity(%d)", int(a))
	}
}

// Constructor signatures, one per arity
type (
	OneToOneFunc   func(alg model.AlgorithmID, q *model.Query, a *model.Article) Validator
	OneToManyFunc  func(alg model.AlgorithmID, q *model.Query, as []*model.Article) Validator
	ManyToOneFunc  func(alg model.AlgorithmID, qs []*model.Query, a *model.Article) Validator
	ManyToManyFunc func(alg model.AlgorithmID, qs []*model.Query, as []*model.Article) Validator
)

// Factory is a tagged variant: exactly one constructor is set, selected by arity
type Factory struct {
	arity      Arity
	oneToOne   OneToOneFunc
	oneToMany  OneToManyFunc
	manyToOne  ManyToOneFunc
	manyToMany ManyToManyFunc
}

// OneToOne builds a factory scoring one query against one article
func OneToOne(fn OneToOneFunc) Factory {
	return Factory{arity: ArityOneToOne, oneToOne: fn}
}

// OneToMany builds a factory scoring one query against many articles
func OneToMany(fn OneToManyFunc) Factory {
	return Factory{arity: ArityOneToMany, oneToMany: fn}
}

// ManyToOne builds a factory scoring many queries against one article
func ManyToOne(fn ManyToOneFunc) Factory {
	return Factory{arity: ArityManyToOne, manyToOne: fn}
}

// ManyToMany builds a factory scoring many queries against many articles
func ManyToMany(fn ManyToManyFunc) Factory {
	return Factory{arity: ArityManyToMany, manyToMany: fn}
}

// Arity returns the variant tag
func (f Factory) Arity() Arity {
	return f.arity
}

// Valid reports whether the constructor for the tag is set
func (f Factory) Valid() bool {
	switch f.arity {
	case ArityOneToOne:
		return f.oneToOne != nil
	case ArityOneToMany:
		return f.oneToMany != nil
	case ArityManyToOne:
		return f.manyToOne != nil
	case ArityManyToMany:
		return f.manyToMany != nil
	}
	return false
}

// Build constructs the validator for a task.
// The single-sided arities require exactly one query or article on that side.
func (f Factory) Build(alg model.AlgorithmID, queries []*model.Query, articles []*model.Article) (Validator, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: no constructor for %s", ErrArity, f.arity)
	}
	if len(queries) == 0 || len(articles) == 0 {
		return nil, fmt.Errorf("%w: %s needs at least one query and one article", ErrArity, f.arity)
	}

	switch f.arity {
	case ArityOneToOne:
		if len(queries) != 1 || len(articles) != 1 {
			return nil, fmt.Errorf("%w: %s got %d queries, %d articles", ErrArity, f.arity, len(queries), len(articles))
		}
		return f.oneToOne(alg, queries[0], articles[0]), nil
	case ArityOneToMany:
		if len(queries) != 1 {
			return nil, fmt.Errorf("%w: %s got %d queries", ErrArity, f.arity, len(queries))
		}
		return f.oneToMany(alg, queries[0], articles), nil
	case ArityManyToOne:
		if len(articles) != 1 {
			return nil, fmt.Errorf("%w: %s got %d articles", ErrArity, f.arity, len(articles))
		}
		return f.manyToOne(alg, queries, articles[0]), nil
	default:
		return f.manyToMany(alg, queries, articles), nil
	}
}

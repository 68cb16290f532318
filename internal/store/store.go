// Package store defines the persistence collaborators of the orchestrator and
// the vote aggregator, plus an in-memory implementation
package store

import (
	"context"

	"github.com/ppiankov/corroborate/internal/model"
)

// QueryStore loads queries by ID. Unknown IDs are left out of the result.
type QueryStore interface {
	LoadQueries(ctx context.Context, ids []model.QueryID) ([]*model.Query, error)
}

// ArticleStore loads annotated articles by ID. Unknown IDs are left out of the result.
type ArticleStore interface {
	LoadArticles(ctx context.Context, ids []model.ArticleID) ([]*model.Article, error)
}

// ResultStore is the single source of truth for which triples have been computed
type ResultStore interface {
	Exists(ctx context.Context, key model.TripleKey) (bool, error)
	// Get returns model.ErrNotFound for a missing triple
	Get(ctx context.Context, key model.TripleKey) (model.ValidationResult, error)
	// Upsert inserts r or overwrites the row with the same key; inserted is false on overwrite
	Upsert(ctx context.Context, r model.ValidationResult) (inserted bool, err error)
}

// VoteRow is one persisted result joined with its algorithm's threshold
type VoteRow struct {
	QueryID     model.QueryID
	AlgorithmID model.AlgorithmID
	ArticleID   model.ArticleID
	Validates   float64
	Threshold   float64
}

// VoteSource streams the rows the vote aggregator consumes.
// A nil articles slice means no article filter.
type VoteSource interface {
	VoteRows(ctx context.Context, queries []model.QueryID, articles []model.ArticleID, fn func(VoteRow) error) error
}

// Algorithm is a catalog entry
type Algorithm struct {
	ID        model.AlgorithmID `json:"id" yaml:"id"`
	Name      string            `json:"algorithm" yaml:"algorithm"`
	Threshold float64           `json:"threshold" yaml:"threshold"`
}

// Catalog resolves algorithm names to their stable IDs
type Catalog interface {
	// AlgorithmID returns model.ErrUnknownAlgorithm when name has no entry
	AlgorithmID(ctx context.Context, name string) (model.AlgorithmID, error)
	Algorithms(ctx context.Context) ([]Algorithm, error)
	// SyncCatalog inserts missing names and updates thresholds of existing ones; IDs never change
	SyncCatalog(ctx context.Context, entries map[string]float64) error
}

// Importer writes the collaborator data
type Importer interface {
	SaveQuery(ctx context.Context, q *model.Query) (model.QueryID, error)
	SaveArticle(ctx context.Context, a *model.Article) (model.ArticleID, error)
}

// Store is everything a run needs
type Store interface {
	QueryStore
	ArticleStore
	ResultStore
	VoteSource
	Catalog
	Importer
	Close() error
}

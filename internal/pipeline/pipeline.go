// Package pipeline wires the stores, the worker pool, the orchestrator and the
// vote aggregator into one validate-then-vote run
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ppiankov/corroborate/internal/algorithms"
	"github.com/ppiankov/corroborate/internal/cache"
	"github.com/ppiankov/corroborate/internal/metrics"
	"github.com/ppiankov/corroborate/internal/model"
	"github.com/ppiankov/corroborate/internal/orchestrator"
	"github.com/ppiankov/corroborate/internal/similarity"
	"github.com/ppiankov/corroborate/internal/store"
	"github.com/ppiankov/corroborate/internal/validator"
	"github.com/ppiankov/corroborate/internal/vote"
	"github.com/ppiankov/corroborate/internal/worker"
)

// Deps are the collaborators a pipeline does not build itself
type Deps struct {
	Store store.Store
	// Provider backs the semantic algorithm; nil builds one from the similarity config
	Provider similarity.Provider
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

// Pipeline owns the worker pool for its lifetime. Close shuts it down.
type Pipeline struct {
	cfg    *model.Config
	store  store.Store
	pool   *worker.Pool
	orch   *orchestrator.Orchestrator
	voter  *vote.Aggregator
	cache  cache.Cache
	logger *slog.Logger
}

// New validates cfg, starts the pool and registers every enabled built-in algorithm
func New(ctx context.Context, cfg *model.Config, deps Deps) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("%w: pipeline needs a store", model.ErrConfiguration)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pipeline{
		cfg:    cfg,
		store:  deps.Store,
		logger: logger,
	}

	provider := deps.Provider
	if provider == nil {
		var err error
		provider, p.cache, err = newProvider(cfg)
		if err != nil {
			return nil, err
		}
	}

	p.pool = worker.NewPool(cfg.Concurrency.Workers)
	p.pool.Start()

	orch, err := orchestrator.New(orchestrator.Config{
		Queries:  deps.Store,
		Articles: deps.Store,
		Results:  deps.Store,
		Catalog:  deps.Store,
		Pool:     p.pool,
		Logger:   logger,
		Metrics:  deps.Metrics,
	})
	if err != nil {
		p.Close()
		return nil, err
	}
	p.orch = orch

	builtins := algorithms.Builtins(cfg, provider)
	for _, name := range cfg.EnabledAlgorithms() {
		f, ok := builtins[name]
		if !ok {
			p.Close()
			return nil, fmt.Errorf("%w: no built-in validator named %q", model.ErrConfiguration, name)
		}
		if _, err := orch.Register(ctx, name, f); err != nil {
			p.Close()
			return nil, err
		}
	}

	p.voter, err = vote.New(vote.Config{
		Source:          deps.Store,
		Queries:         deps.Store,
		GlobalThreshold: cfg.Voting.GlobalThreshold,
		Logger:          logger,
		Metrics:         deps.Metrics,
	})
	if err != nil {
		p.Close()
		return nil, err
	}

	logger.Debug("pipeline ready",
		"workers", p.pool.Workers(),
		"algorithms", orch.Algorithms(),
		"similarity", provider.Name(),
	)
	return p, nil
}

// newProvider builds the configured similarity provider, memoized when a cache is enabled
func newProvider(cfg *model.Config) (similarity.Provider, cache.Cache, error) {
	provider, err := similarity.NewProvider(similarity.ConfigFromModel(cfg.Similarity))
	if err != nil {
		return nil, nil, err
	}
	if provider.Name() == "lexical" {
		return provider, nil, nil
	}

	c, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, nil, err
	}
	return similarity.NewCached(provider, c, cfg.Cache.TTL), c, nil
}

// Register adds a validator beyond the built-ins; see orchestrator.Register
func (p *Pipeline) Register(ctx context.Context, name string, f validator.Factory) (bool, error) {
	return p.orch.Register(ctx, name, f)
}

// Validate runs every registered validator over the requested triples
func (p *Pipeline) Validate(ctx context.Context, queries []model.QueryID, articles []model.ArticleID, opts orchestrator.Options) (*orchestrator.Summary, error) {
	return p.orch.Execute(ctx, queries, articles, opts)
}

// Vote decides each query from the results already persisted
func (p *Pipeline) Vote(ctx context.Context, queries []model.QueryID, articles []model.ArticleID) ([]model.Decision, error) {
	return p.voter.Vote(ctx, queries, articles)
}

// Run validates and then votes. Voting starts only after every validator
// task has resolved, and counts only rows for the requested articles.
func (p *Pipeline) Run(ctx context.Context, queries []model.QueryID, articles []model.ArticleID, opts orchestrator.Options) (*model.Report, error) {
	sum, err := p.orch.Execute(ctx, queries, articles, opts)
	if err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	kept, decisions, err := p.voter.Apply(ctx, queries, articles)
	if err != nil {
		return nil, fmt.Errorf("vote: %w", err)
	}
	passed, rejected := vote.Split(decisions)

	p.logger.Info("run complete",
		"run_id", sum.RunID,
		"validated", len(kept),
		"rejected", len(rejected),
	)

	return &model.Report{
		RunID:           sum.RunID,
		GeneratedAt:     time.Now().UTC(),
		GlobalThreshold: p.voter.Threshold(),
		Stats:           sum.RunStats,
		Validated:       passed,
		Rejected:        rejected,
	}, nil
}

// Close drains the pool and releases the similarity cache. The store stays open.
func (p *Pipeline) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	if closer, ok := p.cache.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

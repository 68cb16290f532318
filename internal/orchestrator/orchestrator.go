// Package orchestrator schedules registered validators over a set of
// queries and articles, skipping triples that already have a persisted result
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/corroborate/internal/metrics"
	"github.com/ppiankov/corroborate/internal/model"
	"github.com/ppiankov/corroborate/internal/store"
	"github.com/ppiankov/corroborate/internal/validator"
	"github.com/ppiankov/corroborate/internal/worker"
)

// Options changes how one Execute call treats existing results
type Options struct {
	// Reprocess bypasses the dedup check and overwrites existing results
	Reprocess bool
}

// Config wires the orchestrator to its collaborators
type Config struct {
	Queries  store.QueryStore
	Articles store.ArticleStore
	Results  store.ResultStore
	Catalog  store.Catalog
	Pool     *worker.Pool
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

type registration struct {
	name    string
	id      model.AlgorithmID
	factory validator.Factory
}

// Orchestrator runs validators on an injected pool
type Orchestrator struct {
	queries  store.QueryStore
	articles store.ArticleStore
	results  store.ResultStore
	catalog  store.Catalog
	pool     *worker.Pool
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu     sync.Mutex
	regs   []*registration
	byName map[string]*registration
}

// New creates an orchestrator. The pool is started if it was not already.
func New(cfg Config) (*Orchestrator, error) {
	switch {
	case cfg.Queries == nil:
		return nil, fmt.Errorf("%w: orchestrator needs a query store", model.ErrConfiguration)
	case cfg.Articles == nil:
		return nil, fmt.Errorf("%w: orchestrator needs an article store", model.ErrConfiguration)
	case cfg.Results == nil:
		return nil, fmt.Errorf("%w: orchestrator needs a result store", model.ErrConfiguration)
	case cfg.Catalog == nil:
		return nil, fmt.Errorf("%w: orchestrator needs an algorithm catalog", model.ErrConfiguration)
	case cfg.Pool == nil:
		return nil, fmt.Errorf("%w: orchestrator needs a worker pool", model.ErrConfiguration)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg.Pool.Start()

	return &Orchestrator{
		queries:  cfg.Queries,
		articles: cfg.Articles,
		results:  cfg.Results,
		catalog:  cfg.Catalog,
		pool:     cfg.Pool,
		logger:   logger,
		metrics:  cfg.Metrics,
		byName:   make(map[string]*registration),
	}, nil
}

// Register adds an algorithm under name, resolving its ID from the catalog.
// It returns false without effect when name is already registered.
func (o *Orchestrator) Register(ctx context.Context, name string, factory validator.Factory) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.byName[name]; ok {
		return false, nil
	}
	if !factory.Valid() {
		return false, fmt.Errorf("%w: algorithm %q has no validator constructor", model.ErrConfiguration, name)
	}

	id, err := o.catalog.AlgorithmID(ctx, name)
	if err != nil {
		return false, fmt.Errorf("register %q: %w", name, err)
	}

	reg := &registration{name: name, id: id, factory: factory}
	o.regs = append(o.regs, reg)
	o.byName[name] = reg

	o.logger.Debug("validator registered", "algorithm", name, "algorithm_id", int64(id), "arity", factory.Arity().String())
	return true, nil
}

// Algorithms returns the registered names in registration order
func (o *Orchestrator) Algorithms() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	names := make([]string, len(o.regs))
	for i, r := range o.regs {
		names[i] = r.name
	}
	return names
}

func (o *Orchestrator) snapshot() []*registration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*registration(nil), o.regs...)
}

// Execute scores every (query, algorithm, article) triple that has no persisted
// result yet and returns once every submitted task has resolved.
// Task and persistence failures are recorded in the summary; only failures to
// load inputs, check existing results or submit work are returned as errors.
func (o *Orchestrator) Execute(ctx context.Context, queryIDs []model.QueryID, articleIDs []model.ArticleID, opts Options) (*Summary, error) {
	runID := uuid.NewString()
	log := o.logger.With("run_id", runID)
	tr := newTracker(runID)

	regs := o.snapshot()
	if len(regs) == 0 {
		log.Warn("no validators registered, nothing to do")
		return tr.sum, nil
	}

	queryIDs = dedupe(queryIDs)
	articleIDs = dedupe(articleIDs)

	queries, err := o.queries.LoadQueries(ctx, queryIDs)
	if err != nil {
		return nil, fmt.Errorf("load queries: %w", err)
	}
	articles, err := o.articles.LoadArticles(ctx, articleIDs)
	if err != nil {
		return nil, fmt.Errorf("load articles: %w", err)
	}
	if len(queries) < len(queryIDs) {
		log.Warn("some queries were not found", "requested", len(queryIDs), "loaded", len(queries))
	}
	if len(articles) < len(articleIDs) {
		log.Warn("some articles were not found", "requested", len(articleIDs), "loaded", len(articles))
	}

	log.Info("validation run started",
		"algorithms", len(regs),
		"queries", len(queries),
		"articles", len(articles),
		"reprocess", opts.Reprocess,
	)

	var tasks []*task
	for _, reg := range regs {
		pending, err := o.plan(ctx, log, tr, reg, queries, articles, opts)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, group(reg, pending)...)
	}

	futures, submitted, submitErr := o.submit(ctx, log, tr, tasks)
	for i, res := range worker.Collect(futures) {
		o.settle(log, tr, submitted[i], res)
	}

	sum := tr.sum
	o.metrics.AddTriples(metrics.TripleScheduled, sum.Scheduled)
	o.metrics.AddTriples(metrics.TripleSkipped, sum.Skipped)
	o.metrics.AddTriples(metrics.TriplePersisted, sum.Persisted)
	o.metrics.AddTriples(metrics.TripleFailed, sum.Failed)
	o.metrics.AddTriples(metrics.TriplePersistError, sum.PersistErrors)
	o.metrics.AddTriples(metrics.TripleDiscarded, sum.Discarded)

	log.Info("validation run finished",
		"scheduled", sum.Scheduled,
		"skipped", sum.Skipped,
		"tasks", sum.Tasks,
		"persisted", sum.Persisted,
		"failed", sum.Failed,
		"unscored", sum.Unscored,
		"discarded", sum.Discarded,
	)

	if submitErr != nil {
		return sum, fmt.Errorf("submit validator tasks: %w", submitErr)
	}
	return sum, nil
}

// pair indexes one pending (query, article) combination
type pair struct {
	query   *model.Query
	article *model.Article
}

// plan checks every triple of reg against the result store before anything is submitted
func (o *Orchestrator) plan(ctx context.Context, log *slog.Logger, tr *tracker, reg *registration, queries []*model.Query, articles []*model.Article, opts Options) ([]pair, error) {
	var pending []pair
	for _, q := range queries {
		for _, a := range articles {
			key := model.TripleKey{Query: q.ID, Algorithm: reg.id, Article: a.ID}

			if !opts.Reprocess {
				exists, err := o.results.Exists(ctx, key)
				if err != nil {
					return nil, fmt.Errorf("check result %s: %w", key, err)
				}
				if exists {
					log.Debug("result already persisted, skipping", identity(reg, key)...)
					tr.set(key, Persisted)
					tr.update(func(s *Summary) { s.Skipped++ })
					continue
				}
			}

			tr.set(key, Scheduled)
			tr.update(func(s *Summary) { s.Scheduled++ })
			pending = append(pending, pair{query: q, article: a})
		}
	}
	return pending, nil
}

// submit hands every task to the pool. After a submit failure the
// remaining tasks are failed without running.
func (o *Orchestrator) submit(ctx context.Context, log *slog.Logger, tr *tracker, tasks []*task) ([]*worker.Future, []*task, error) {
	futures := make([]*worker.Future, 0, len(tasks))
	submitted := make([]*task, 0, len(tasks))

	for i, t := range tasks {
		f, err := o.pool.Submit(&taskJob{ctx: ctx, o: o, t: t, tr: tr, log: log})
		if err != nil {
			for _, rest := range tasks[i:] {
				o.failTask(log, tr, rest, err)
			}
			return futures, submitted, err
		}
		futures = append(futures, f)
		submitted = append(submitted, t)
		tr.update(func(s *Summary) { s.Tasks++ })
	}
	return futures, submitted, nil
}

// settle finalizes the triples of a resolved task
func (o *Orchestrator) settle(log *slog.Logger, tr *tracker, t *task, res worker.Result) {
	if err := res.GetError(); err != nil {
		o.failTask(log, tr, t, err)
		return
	}

	for _, key := range t.keys {
		if tr.state(key) != Running {
			continue
		}
		// the validator returned nothing for this triple; it stays eligible for a later run
		log.Debug("validator returned no result", identity(t.reg, key)...)
		tr.set(key, NotScheduled)
		tr.update(func(s *Summary) { s.Unscored++ })
	}
}

// failTask marks every unsettled triple of t Failed
func (o *Orchestrator) failTask(log *slog.Logger, tr *tracker, t *task, cause error) {
	for _, key := range t.keys {
		switch tr.state(key) {
		case Persisted, Failed:
			continue
		}
		err := fmt.Errorf("%w: %s: %w", model.ErrTaskExecution, t.reg.name, cause)
		log.Error("validator task failed", append(identity(t.reg, key), "error", cause)...)
		tr.fail(key, err)
	}
}

// taskJob is the unit the pool runs: build, call, persist
type taskJob struct {
	ctx context.Context
	o   *Orchestrator
	t   *task
	tr  *tracker
	log *slog.Logger
}

type taskResult struct {
	err error
}

func (r *taskResult) GetError() error {
	return r.err
}

// Execute implements worker.Job. The task stops early when either the run
// context or the pool is cancelled.
func (j *taskJob) Execute(poolCtx context.Context) worker.Result {
	ctx, cancel := context.WithCancel(j.ctx)
	defer cancel()
	stop := context.AfterFunc(poolCtx, cancel)
	defer stop()

	j.tr.setAll(j.t.keys, Running)

	start := time.Now()
	err := worker.ErrJobPanic
	defer func() {
		j.o.metrics.ObserveTask(j.t.reg.name, err, time.Since(start))
	}()

	var results []model.ValidationResult
	results, err = j.call(ctx)
	if err != nil {
		return &taskResult{err: err}
	}

	for _, r := range results {
		j.persist(ctx, r)
	}
	return &taskResult{}
}

func (j *taskJob) call(ctx context.Context) ([]model.ValidationResult, error) {
	v, err := j.t.reg.factory.Build(j.t.reg.id, j.t.queries, j.t.articles)
	if err != nil {
		return nil, err
	}
	return v.Call(ctx)
}

// persist writes one returned result if it belongs to the task's scheduled set
func (j *taskJob) persist(ctx context.Context, r model.ValidationResult) {
	key := r.Key()
	log := j.log

	if !j.t.scheduled(key) {
		log.Warn("discarding result outside the scheduled set", identity(j.t.reg, key)...)
		j.tr.update(func(s *Summary) { s.Discarded++ })
		return
	}
	if st := j.tr.state(key); st != Running {
		log.Warn("discarding repeated result", append(identity(j.t.reg, key), "state", st.String())...)
		j.tr.update(func(s *Summary) { s.Discarded++ })
		return
	}

	n, err := r.Normalize()
	if err != nil {
		log.Error("discarding malformed result", append(identity(j.t.reg, key), "error", err)...)
		j.tr.update(func(s *Summary) { s.Discarded++ })
		j.tr.fail(key, err)
		return
	}

	if _, err := j.o.results.Upsert(ctx, n); err != nil {
		if !errors.Is(err, model.ErrPersistence) {
			err = fmt.Errorf("%w: %w", model.ErrPersistence, err)
		}
		log.Error("failed to persist result", append(identity(j.t.reg, key), "error", err)...)
		j.tr.update(func(s *Summary) { s.PersistErrors++ })
		j.tr.fail(key, err)
		return
	}

	log.Info(n.String(), append(identity(j.t.reg, key),
		"validates", n.Validates,
		"invalidates", invalidates(n),
	)...)
	j.tr.set(key, Persisted)
	j.tr.update(func(s *Summary) { s.Persisted++ })
}

func identity(reg *registration, key model.TripleKey) []any {
	return []any{
		"query", int64(key.Query),
		"algorithm", reg.name,
		"algorithm_id", int64(key.Algorithm),
		"article", int64(key.Article),
	}
}

func invalidates(r model.ValidationResult) any {
	if r.Invalidates == nil {
		return nil
	}
	return *r.Invalidates
}

func dedupe[T comparable](ids []T) []T {
	seen := make(map[T]struct{}, len(ids))
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ppiankov/corroborate/internal/model"
)

// Memory is a mutex-guarded in-memory Store
type Memory struct {
	mu         sync.RWMutex
	queries    map[model.QueryID]*model.Query
	articles   map[model.ArticleID]*model.Article
	results    map[model.TripleKey]model.ValidationResult
	algorithms map[string]Algorithm
	nextID     int64
	stats      *UpsertStats
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty store
func NewMemory() *Memory {
	return &Memory{
		queries:    make(map[model.QueryID]*model.Query),
		articles:   make(map[model.ArticleID]*model.Article),
		results:    make(map[model.TripleKey]model.ValidationResult),
		algorithms: make(map[string]Algorithm),
		stats:      NewUpsertStats(),
	}
}

// Stats returns the upsert counters
func (m *Memory) Stats() *UpsertStats {
	return m.stats
}

func (m *Memory) LoadQueries(ctx context.Context, ids []model.QueryID) ([]*model.Query, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*model.Query, 0, len(ids))
	for _, id := range ids {
		if q, ok := m.queries[id]; ok {
			cp := *q
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *Memory) LoadArticles(ctx context.Context, ids []model.ArticleID) ([]*model.Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*model.Article, 0, len(ids))
	for _, id := range ids {
		if a, ok := m.articles[id]; ok {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *Memory) Exists(ctx context.Context, key model.TripleKey) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.results[key]
	return ok, nil
}

func (m *Memory) Get(ctx context.Context, key model.TripleKey) (model.ValidationResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.results[key]
	if !ok {
		return model.ValidationResult{}, fmt.Errorf("result %s: %w", key, model.ErrNotFound)
	}
	return r, nil
}

func (m *Memory) Upsert(ctx context.Context, r model.ValidationResult) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.Invalidates != nil {
		inv := *r.Invalidates
		r.Invalidates = &inv
	}
	_, exists := m.results[r.Key()]
	m.results[r.Key()] = r
	if exists {
		m.stats.RecordUpdate()
	} else {
		m.stats.RecordInsert()
	}
	return !exists, nil
}

// Results returns every persisted result ordered by key
func (m *Memory) Results() []model.ValidationResult {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.ValidationResult, 0, len(m.results))
	for _, r := range m.results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Key(), out[j].Key()
		if a.Query != b.Query {
			return a.Query < b.Query
		}
		if a.Algorithm != b.Algorithm {
			return a.Algorithm < b.Algorithm
		}
		return a.Article < b.Article
	})
	return out
}

func (m *Memory) VoteRows(ctx context.Context, queries []model.QueryID, articles []model.ArticleID, fn func(VoteRow) error) error {
	m.mu.RLock()
	thresholds := make(map[model.AlgorithmID]float64, len(m.algorithms))
	for _, a := range m.algorithms {
		thresholds[a.ID] = a.Threshold
	}
	qset := make(map[model.QueryID]bool, len(queries))
	for _, id := range queries {
		qset[id] = true
	}
	var aset map[model.ArticleID]bool
	if articles != nil {
		aset = make(map[model.ArticleID]bool, len(articles))
		for _, id := range articles {
			aset[id] = true
		}
	}

	var rows []VoteRow
	for _, r := range m.results {
		if !qset[r.QueryID] || (aset != nil && !aset[r.ArticleID]) {
			continue
		}
		threshold, ok := thresholds[r.AlgorithmID]
		if !ok {
			// inner join semantics: results of uncatalogued algorithms are not votes
			continue
		}
		rows = append(rows, VoteRow{
			QueryID:     r.QueryID,
			AlgorithmID: r.AlgorithmID,
			ArticleID:   r.ArticleID,
			Validates:   r.Validates,
			Threshold:   threshold,
		})
	}
	m.mu.RUnlock()

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) AlgorithmID(ctx context.Context, name string) (model.AlgorithmID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.algorithms[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", model.ErrUnknownAlgorithm, name)
	}
	return a.ID, nil
}

func (m *Memory) Algorithms(ctx context.Context) ([]Algorithm, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Algorithm, 0, len(m.algorithms))
	for _, a := range m.algorithms {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SyncCatalog(ctx context.Context, entries map[string]float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		a, ok := m.algorithms[name]
		if !ok {
			m.nextID++
			a = Algorithm{ID: model.AlgorithmID(m.nextID), Name: name}
		}
		a.Threshold = entries[name]
		m.algorithms[name] = a
	}
	return nil
}

func (m *Memory) SaveQuery(ctx context.Context, q *model.Query) (model.QueryID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *q
	if cp.ID == 0 {
		m.nextID++
		cp.ID = model.QueryID(m.nextID)
	}
	m.bump(int64(cp.ID))
	m.queries[cp.ID] = &cp
	return cp.ID, nil
}

func (m *Memory) SaveArticle(ctx context.Context, a *model.Article) (model.ArticleID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	if cp.ID == 0 {
		m.nextID++
		cp.ID = model.ArticleID(m.nextID)
	}
	m.bump(int64(cp.ID))
	m.articles[cp.ID] = &cp
	return cp.ID, nil
}

// bump keeps generated IDs clear of explicitly chosen ones
func (m *Memory) bump(id int64) {
	if id > m.nextID {
		m.nextID = id
	}
}

func (m *Memory) Close() error {
	return nil
}

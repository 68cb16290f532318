// Package vote decides which queries are corroborated by the persisted results
package vote

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/ppiankov/corroborate/internal/metrics"
	"github.com/ppiankov/corroborate/internal/model"
	"github.com/ppiankov/corroborate/internal/store"
)

// Config wires the aggregator
type Config struct {
	Source store.VoteSource
	// Queries is optional; when set, decisions carry the query phrase
	Queries         store.QueryStore
	GlobalThreshold float64
	Logger          *slog.Logger
	Metrics         *metrics.Metrics
}

// Aggregator counts per-algorithm passes for each query and compares the
// pass ratio with the global threshold
type Aggregator struct {
	source    store.VoteSource
	queries   store.QueryStore
	threshold float64
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// New creates an aggregator
func New(cfg Config) (*Aggregator, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("%w: vote aggregator needs a result source", model.ErrConfiguration)
	}
	t := cfg.GlobalThreshold
	if math.IsNaN(t) || t < 0 || t > 1 {
		return nil, fmt.Errorf("%w: global threshold %v outside [0, 1]", model.ErrConfiguration, t)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		source:    cfg.Source,
		queries:   cfg.Queries,
		threshold: t,
		logger:    logger,
		metrics:   cfg.Metrics,
	}, nil
}

// Threshold returns the global threshold
func (a *Aggregator) Threshold() float64 {
	return a.threshold
}

type tally struct {
	validated int
	evaluated int
}

// Vote returns one decision per distinct query, in request order.
// When articleIDs is empty every persisted row of a query counts; otherwise
// only rows for those articles do.
func (a *Aggregator) Vote(ctx context.Context, queryIDs []model.QueryID, articleIDs []model.ArticleID) ([]model.Decision, error) {
	order := make([]model.QueryID, 0, len(queryIDs))
	tallies := make(map[model.QueryID]*tally, len(queryIDs))
	for _, id := range queryIDs {
		if _, ok := tallies[id]; ok {
			continue
		}
		tallies[id] = &tally{}
		order = append(order, id)
	}
	if len(order) == 0 {
		return nil, nil
	}

	var filter []model.ArticleID
	if len(articleIDs) > 0 {
		filter = articleIDs
	}

	err := a.source.VoteRows(ctx, order, filter, func(row store.VoteRow) error {
		t, ok := tallies[row.QueryID]
		if !ok {
			return nil
		}
		t.evaluated++
		if row.Validates >= row.Threshold {
			t.validated++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("stream vote rows: %w", err)
	}

	phrases := a.phrases(ctx, order)

	decisions := make([]model.Decision, 0, len(order))
	for _, id := range order {
		t := tallies[id]
		d := model.Decision{
			QueryID:   id,
			Phrase:    phrases[id],
			Validated: t.validated,
			Evaluated: t.evaluated,
		}
		if t.evaluated > 0 {
			d.Ratio = float64(t.validated) / float64(t.evaluated)
			d.Passed = d.Ratio >= a.threshold
		}

		a.metrics.ObserveVote(d.Passed, d.Ratio)
		a.logger.Debug("query voted",
			"query", int64(id),
			"validated", d.Validated,
			"evaluated", d.Evaluated,
			"ratio", d.Ratio,
			"passed", d.Passed,
		)
		decisions = append(decisions, d)
	}
	return decisions, nil
}

// phrases is best effort; a lookup failure only costs the labels
func (a *Aggregator) phrases(ctx context.Context, ids []model.QueryID) map[model.QueryID]string {
	out := make(map[model.QueryID]string, len(ids))
	if a.queries == nil {
		return out
	}
	qs, err := a.queries.LoadQueries(ctx, ids)
	if err != nil {
		a.logger.Warn("failed to load query phrases", "error", err)
		return out
	}
	for _, q := range qs {
		out[q.ID] = q.Phrase()
	}
	return out
}

// Apply votes and returns the working set that survives: the queries whose
// ratio reached the global threshold, in request order
func (a *Aggregator) Apply(ctx context.Context, queryIDs []model.QueryID, articleIDs []model.ArticleID) ([]model.QueryID, []model.Decision, error) {
	decisions, err := a.Vote(ctx, queryIDs, articleIDs)
	if err != nil {
		return nil, nil, err
	}
	var kept []model.QueryID
	for _, d := range decisions {
		if d.Passed {
			kept = append(kept, d.QueryID)
			continue
		}
		a.logger.Info("query removed from working set", "query", int64(d.QueryID), "ratio", d.Ratio, "threshold", a.threshold)
	}
	return kept, decisions, nil
}

// Split partitions decisions into passed and rejected, keeping their order
func Split(decisions []model.Decision) (passed, rejected []model.Decision) {
	for _, d := range decisions {
		if d.Passed {
			passed = append(passed, d)
		} else {
			rejected = append(rejected, d)
		}
	}
	return passed, rejected
}

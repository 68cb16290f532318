package vote

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"reflect"
	"testing"

	"github.com/ppiankov/corroborate/internal/model"
	"github.com/ppiankov/corroborate/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAggregator(t *testing.T, src store.VoteSource, threshold float64) *Aggregator {
	t.Helper()
	a, err := New(Config{Source: src, GlobalThreshold: threshold, Logger: discardLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

type row struct {
	alg       string
	article   model.ArticleID
	validates float64
}

// seed stores results for the given (algorithm name, article, validates) rows of query 1
func seed(t *testing.T, catalog map[string]float64, rows []row) *store.Memory {
	t.Helper()
	ctx := context.Background()
	m := store.NewMemory()
	if err := m.SyncCatalog(ctx, catalog); err != nil {
		t.Fatalf("SyncCatalog: %v", err)
	}
	for _, r := range rows {
		id, err := m.AlgorithmID(ctx, r.alg)
		if err != nil {
			t.Fatalf("AlgorithmID: %v", err)
		}
		if _, err := m.Upsert(ctx, model.NewValidationResult(id, 1, r.article, r.validates)); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	return m
}

func TestNew_RejectsBadThreshold(t *testing.T) {
	m := store.NewMemory()
	for _, th := range []float64{-0.1, 1.1} {
		if _, err := New(Config{Source: m, GlobalThreshold: th}); !errors.Is(err, model.ErrConfiguration) {
			t.Errorf("threshold %v: error = %v, want ErrConfiguration", th, err)
		}
	}
	if _, err := New(Config{GlobalThreshold: 0.5}); !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("missing source: error = %v, want ErrConfiguration", err)
	}
}

func TestVote_SingleAlgorithmPasses(t *testing.T) {
	m := seed(t, map[string]float64{"Keyword": 0.5}, []row{{"Keyword", 10, 0.6}})
	ctx := context.Background()
	if _, err := m.SaveQuery(ctx, &model.Query{ID: 1, Subject: "Obama", Verb: "meets", DirectObject: "mayor", Location: "at White House"}); err != nil {
		t.Fatalf("SaveQuery: %v", err)
	}

	a, err := New(Config{Source: m, Queries: m, GlobalThreshold: 0.5, Logger: discardLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := a.Vote(ctx, []model.QueryID{1}, []model.ArticleID{10})
	if err != nil {
		t.Fatalf("Vote: %v", err)
	}
	want := []model.Decision{{QueryID: 1, Phrase: "Obama meets mayor", Validated: 1, Evaluated: 1, Ratio: 1, Passed: true}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Vote() = %+v, want %+v", got, want)
	}
}

func TestVote_InclusiveGlobalThreshold(t *testing.T) {
	m := seed(t,
		map[string]float64{"A": 0.6, "B": 0.5},
		[]row{{"A", 10, 0.9}, {"B", 10, 0.2}},
	)

	tests := []struct {
		threshold float64
		passed    bool
	}{
		{0.6, false},
		{0.5, true},
	}
	for _, tt := range tests {
		a := newAggregator(t, m, tt.threshold)
		got, err := a.Vote(context.Background(), []model.QueryID{1}, []model.ArticleID{10})
		if err != nil {
			t.Fatalf("Vote: %v", err)
		}
		d := got[0]
		if d.Validated != 1 || d.Evaluated != 2 || d.Ratio != 0.5 {
			t.Errorf("threshold %v: decision = %+v, want 1/2", tt.threshold, d)
		}
		if d.Passed != tt.passed {
			t.Errorf("threshold %v: passed = %v, want %v", tt.threshold, d.Passed, tt.passed)
		}
	}
}

func TestVote_InclusiveAlgorithmThreshold(t *testing.T) {
	m := seed(t, map[string]float64{"A": 0.5}, []row{{"A", 10, 0.5}})
	a := newAggregator(t, m, 1)

	got, err := a.Vote(context.Background(), []model.QueryID{1}, nil)
	if err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if got[0].Validated != 1 || !got[0].Passed {
		t.Errorf("decision = %+v, want validates == threshold to count", got[0])
	}
}

func TestVote_NoEvaluationsNeverPasses(t *testing.T) {
	m := seed(t, map[string]float64{"A": 0.5}, nil)
	a := newAggregator(t, m, 0)

	got, err := a.Vote(context.Background(), []model.QueryID{1, 2, 1}, nil)
	if err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d decisions, want 2", len(got))
	}
	for _, d := range got {
		if d.Passed || d.Evaluated != 0 || d.Ratio != 0 {
			t.Errorf("decision = %+v, want unvalidated", d)
		}
	}
}

func TestVote_ArticleFilter(t *testing.T) {
	m := seed(t,
		map[string]float64{"A": 0.5},
		[]row{{"A", 10, 0.9}, {"A", 11, 0.1}, {"A", 12, 0.1}},
	)
	a := newAggregator(t, m, 0.5)
	ctx := context.Background()

	tests := []struct {
		name      string
		articles  []model.ArticleID
		evaluated int
		passed    bool
	}{
		{"all rows", nil, 3, false},
		{"empty set means all rows", []model.ArticleID{}, 3, false},
		{"working set", []model.ArticleID{10, 11}, 2, true},
		{"unrelated set", []model.ArticleID{99}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.Vote(ctx, []model.QueryID{1}, tt.articles)
			if err != nil {
				t.Fatalf("Vote: %v", err)
			}
			if got[0].Evaluated != tt.evaluated || got[0].Passed != tt.passed {
				t.Errorf("decision = %+v, want evaluated %d passed %v", got[0], tt.evaluated, tt.passed)
			}
		})
	}
}

type sliceSource struct {
	rows []store.VoteRow
	err  error
}

func (s *sliceSource) VoteRows(ctx context.Context, queries []model.QueryID, articles []model.ArticleID, fn func(store.VoteRow) error) error {
	if s.err != nil {
		return s.err
	}
	for _, r := range s.rows {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func TestVote_OrderIndependent(t *testing.T) {
	var rows []store.VoteRow
	for q := model.QueryID(1); q <= 4; q++ {
		for alg := model.AlgorithmID(1); alg <= 3; alg++ {
			for art := model.ArticleID(10); art < 15; art++ {
				rows = append(rows, store.VoteRow{
					QueryID:     q,
					AlgorithmID: alg,
					ArticleID:   art,
					Validates:   float64((int64(q)*7+int64(alg)*3+int64(art))%10) / 10,
					Threshold:   0.5,
				})
			}
		}
	}
	queries := []model.QueryID{1, 2, 3, 4}

	base, err := newAggregator(t, &sliceSource{rows: rows}, 0.5).Vote(context.Background(), queries, nil)
	if err != nil {
		t.Fatalf("Vote: %v", err)
	}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		shuffled := append([]store.VoteRow(nil), rows...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got, err := newAggregator(t, &sliceSource{rows: shuffled}, 0.5).Vote(context.Background(), queries, nil)
		if err != nil {
			t.Fatalf("Vote: %v", err)
		}
		if !reflect.DeepEqual(got, base) {
			t.Fatalf("shuffle %d: decisions differ\n got %+v\nwant %+v", i, got, base)
		}
	}
}

func TestVote_SourceError(t *testing.T) {
	boom := errors.New("boom")
	a := newAggregator(t, &sliceSource{err: boom}, 0.5)
	if _, err := a.Vote(context.Background(), []model.QueryID{1}, nil); !errors.Is(err, boom) {
		t.Errorf("Vote() error = %v, want boom", err)
	}
}

func TestApply_KeepsPassingQueries(t *testing.T) {
	src := &sliceSource{rows: []store.VoteRow{
		{QueryID: 1, AlgorithmID: 1, ArticleID: 10, Validates: 0.9, Threshold: 0.5},
		{QueryID: 2, AlgorithmID: 1, ArticleID: 10, Validates: 0.1, Threshold: 0.5},
		{QueryID: 3, AlgorithmID: 1, ArticleID: 10, Validates: 0.7, Threshold: 0.5},
	}}
	a := newAggregator(t, src, 0.5)

	kept, decisions, err := a.Apply(context.Background(), []model.QueryID{3, 2, 1}, nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if want := []model.QueryID{3, 1}; !reflect.DeepEqual(kept, want) {
		t.Errorf("kept = %v, want %v", kept, want)
	}

	passed, rejected := Split(decisions)
	if len(passed) != 2 || len(rejected) != 1 || rejected[0].QueryID != 2 {
		t.Errorf("Split() = %+v, %+v", passed, rejected)
	}
}

package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/corroborate/internal/model"
	"github.com/ppiankov/corroborate/internal/orchestrator"
	"github.com/ppiankov/corroborate/internal/store"
)

func testConfig() *model.Config {
	cfg := model.DefaultConfig()
	cfg.Concurrency.Workers = 2
	cfg.Similarity.Provider = "lexical"
	cfg.Cache.Enabled = false
	return cfg
}

type corpus struct {
	store    *store.Memory
	queries  []model.QueryID
	articles []model.ArticleID
}

func newCorpus(t *testing.T, cfg *model.Config) *corpus {
	t.Helper()
	ctx := context.Background()
	m := store.NewMemory()
	if err := m.SyncCatalog(ctx, cfg.Thresholds()); err != nil {
		t.Fatalf("SyncCatalog: %v", err)
	}

	qids, err := ImportQueries(ctx, m, []*model.Query{
		{Subject: "Obama", Verb: "meets", DirectObject: "mayor", Location: "at White House"},
		{Subject: "Penguins", Verb: "fly", DirectObject: "south"},
	})
	if err != nil {
		t.Fatalf("ImportQueries: %v", err)
	}
	aids, err := ImportArticles(ctx, m, []*model.Article{
		{Title: "Visit", Text: "Obama meets the mayor at the White House. The mayor thanked Obama for the visit."},
		{Title: "Chicago", Text: "<html><body><p>Obama meets the mayor of Chicago at the White House on Monday.</p><script>var x;</script></body></html>"},
	})
	if err != nil {
		t.Fatalf("ImportArticles: %v", err)
	}
	return &corpus{store: m, queries: qids, articles: aids}
}

func newPipeline(t *testing.T, cfg *model.Config, m *store.Memory) *Pipeline {
	t.Helper()
	p, err := New(context.Background(), cfg, Deps{
		Store:  m,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestImportArticles_Annotates(t *testing.T) {
	c := newCorpus(t, testConfig())
	arts, err := c.store.LoadArticles(context.Background(), c.articles)
	if err != nil {
		t.Fatalf("LoadArticles: %v", err)
	}
	for _, a := range arts {
		if !a.Annotated() {
			t.Errorf("article %d was not annotated", a.ID)
		}
		for _, s := range a.Sentences {
			if strings.Contains(s.Text(), "var x") {
				t.Errorf("script text leaked into article %d", a.ID)
			}
		}
	}
}

func TestImportQueries_RequiresSubjectAndVerb(t *testing.T) {
	_, err := ImportQueries(context.Background(), store.NewMemory(), []*model.Query{{Subject: "Obama"}})
	if err == nil {
		t.Error("expected an error for a query without a verb")
	}
}

func TestRun_KeywordOnly(t *testing.T) {
	cfg := testConfig()
	cfg.Algorithms[model.AlgorithmTFIDF] = model.AlgorithmConfig{Enabled: false, Threshold: model.Float(0.3)}
	cfg.Algorithms[model.AlgorithmTextRank] = model.AlgorithmConfig{Enabled: false, Threshold: model.Float(0.5)}
	c := newCorpus(t, cfg)
	p := newPipeline(t, cfg, c.store)

	report, err := p.Run(context.Background(), c.queries, c.articles, orchestrator.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Stats.Scheduled != 4 || report.Stats.Persisted != 4 {
		t.Errorf("stats = %+v, want 4 scheduled and persisted", report.Stats)
	}
	if len(report.Validated) != 1 || report.Validated[0].QueryID != c.queries[0] {
		t.Fatalf("validated = %+v, want the Obama query", report.Validated)
	}
	if d := report.Validated[0]; d.Validated != 2 || d.Evaluated != 2 || d.Phrase != "Obama meets mayor" {
		t.Errorf("decision = %+v", d)
	}
	if len(report.Rejected) != 1 || report.Rejected[0].QueryID != c.queries[1] || report.Rejected[0].Ratio != 0 {
		t.Errorf("rejected = %+v, want the penguin query", report.Rejected)
	}
}

func TestRun_AllBuiltinsIdempotent(t *testing.T) {
	cfg := testConfig()
	c := newCorpus(t, cfg)
	p := newPipeline(t, cfg, c.store)
	ctx := context.Background()

	first, err := p.Run(ctx, c.queries, c.articles, orchestrator.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	s := first.Stats
	if s.Scheduled != 12 {
		t.Errorf("scheduled = %d, want 12", s.Scheduled)
	}
	if s.Failed != 0 || s.Persisted+s.Unscored != 12 {
		t.Errorf("stats = %+v, want every triple persisted or unscored", s)
	}
	// keyword, tf-idf and textrank tasks: 4 + 2 + 2
	if s.Tasks != 8 {
		t.Errorf("tasks = %d, want 8", s.Tasks)
	}

	second, err := p.Run(ctx, c.queries, c.articles, orchestrator.Options{})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second.Stats.Skipped != s.Persisted || second.Stats.Scheduled != s.Unscored {
		t.Errorf("second run stats = %+v after %+v", second.Stats, s)
	}

	decisions, err := p.Vote(ctx, c.queries, c.articles)
	if err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if len(decisions) != 2 || decisions[0].Evaluated == 0 {
		t.Errorf("decisions = %+v", decisions)
	}
}

func TestNew_ConfigurationErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid config", func(t *testing.T) {
		cfg := testConfig()
		cfg.Voting.GlobalThreshold = 2
		if _, err := New(ctx, cfg, Deps{Store: store.NewMemory()}); !errors.Is(err, model.ErrConfiguration) {
			t.Errorf("error = %v, want ErrConfiguration", err)
		}
	})

	t.Run("no built-in", func(t *testing.T) {
		cfg := testConfig()
		cfg.Algorithms["Oracle"] = model.AlgorithmConfig{Enabled: true, Threshold: model.Float(0.5)}
		m := store.NewMemory()
		_ = m.SyncCatalog(ctx, cfg.Thresholds())
		if _, err := New(ctx, cfg, Deps{Store: m}); !errors.Is(err, model.ErrConfiguration) {
			t.Errorf("error = %v, want ErrConfiguration", err)
		}
	})

	t.Run("catalog not synced", func(t *testing.T) {
		if _, err := New(ctx, testConfig(), Deps{Store: store.NewMemory()}); !errors.Is(err, model.ErrUnknownAlgorithm) {
			t.Errorf("error = %v, want ErrUnknownAlgorithm", err)
		}
	})

	t.Run("no store", func(t *testing.T) {
		if _, err := New(ctx, testConfig(), Deps{}); !errors.Is(err, model.ErrConfiguration) {
			t.Errorf("error = %v, want ErrConfiguration", err)
		}
	})
}

func TestRender(t *testing.T) {
	report := &model.Report{
		RunID:           "run-1",
		GlobalThreshold: 0.5,
		Stats:           model.RunStats{Scheduled: 3, Persisted: 3, Tasks: 3},
		Validated:       []model.Decision{{QueryID: 1, Phrase: "Obama meets mayor", Validated: 1, Evaluated: 1, Ratio: 1, Passed: true}},
		Rejected:        []model.Decision{{QueryID: 2, Evaluated: 2}},
	}

	var buf bytes.Buffer
	RenderSummary(&buf, report)
	out := buf.String()
	for _, want := range []string{"run-1", "Validated (1)", "Rejected (1)", "Obama meets mayor", "3 scheduled"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}

	path := filepath.Join(t.TempDir(), "out", "report.json")
	if err := RenderJSON(report, path); err != nil {
		t.Fatalf("RenderJSON: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var decoded model.Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.RunID != "run-1" || len(decoded.Validated) != 1 || decoded.Stats.Persisted != 3 {
		t.Errorf("decoded report = %+v", decoded)
	}
}

func TestReadJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.json")
	body := `[{"id": 7, "subject": "Obama", "verb": "meets", "direct_object": "mayor"}]`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	qs, err := ReadJSONFile[model.Query](path)
	if err != nil {
		t.Fatalf("ReadJSONFile: %v", err)
	}
	if len(qs) != 1 || qs[0].ID != 7 || qs[0].Phrase() != "Obama meets mayor" {
		t.Errorf("queries = %+v", qs)
	}

	if _, err := ReadJSONFile[model.Query](filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

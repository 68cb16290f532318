package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ppiankov/corroborate/internal/model"
)

func TestCanonicalAlgorithms(t *testing.T) {
	cfg := &model.Config{Algorithms: map[string]model.AlgorithmConfig{
		"keyword":                    {Enabled: true, Threshold: model.Float(0.7)},
		"textrank semantic analysis": {Enabled: false},
		"Custom":                     {Enabled: true},
	}}
	canonicalAlgorithms(cfg)

	if _, ok := cfg.Algorithms["keyword"]; ok {
		t.Error("lowercased name was kept")
	}
	if ac, ok := cfg.Algorithms[model.AlgorithmKeyword]; !ok || *ac.Threshold != 0.7 {
		t.Errorf("Keyword = %+v, %v", ac, ok)
	}
	if _, ok := cfg.Algorithms[model.AlgorithmTextRank]; !ok {
		t.Error("TextRank name not restored")
	}
	if _, ok := cfg.Algorithms["Custom"]; !ok {
		t.Error("unknown names must be left alone")
	}
}

func TestIDFlags_Resolve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.txt")
	if err := os.WriteFile(path, []byte("# working set\n20\n21\n"), 0644); err != nil {
		t.Fatal(err)
	}

	f := idFlags{queries: "1,3-4", articles: "10", articlesFile: path}
	queries, articles, err := f.resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if want := []model.QueryID{1, 3, 4}; !reflect.DeepEqual(queries, want) {
		t.Errorf("queries = %v, want %v", queries, want)
	}
	if want := []model.ArticleID{10, 20, 21}; !reflect.DeepEqual(articles, want) {
		t.Errorf("articles = %v, want %v", articles, want)
	}

	if _, _, err := (&idFlags{articles: "10"}).resolve(); err == nil {
		t.Error("expected an error without queries")
	}
	if _, _, err := (&idFlags{queries: "x"}).resolve(); err == nil {
		t.Error("expected an error for a bad id list")
	}
}

func TestNewLogger(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		logger := newLogger(model.LogConfig{Level: tt.level, Format: "json"})
		ctx := context.Background()
		if !logger.Enabled(ctx, tt.want) {
			t.Errorf("level %q: %v not enabled", tt.level, tt.want)
		}
		if tt.want > slog.LevelDebug && logger.Enabled(ctx, tt.want-4) {
			t.Errorf("level %q: lower level enabled", tt.level)
		}
	}
}

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ppiankov/corroborate/internal/annotate"
	"github.com/ppiankov/corroborate/internal/model"
	"github.com/ppiankov/corroborate/internal/store"
)

// ImportQueries saves every query and returns the stored IDs in input order
func ImportQueries(ctx context.Context, dst store.Importer, queries []*model.Query) ([]model.QueryID, error) {
	ids := make([]model.QueryID, 0, len(queries))
	for i, q := range queries {
		if q.Subject == "" || q.Verb == "" {
			return ids, fmt.Errorf("query %d: subject and verb are required", i)
		}
		id, err := dst.SaveQuery(ctx, q)
		if err != nil {
			return ids, fmt.Errorf("save query %d: %w", i, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ImportArticles annotates articles that arrive without sentences and saves them
func ImportArticles(ctx context.Context, dst store.Importer, articles []*model.Article) ([]model.ArticleID, error) {
	annotator := annotate.New()
	ids := make([]model.ArticleID, 0, len(articles))
	for i, a := range articles {
		if err := annotator.Article(a); err != nil {
			return ids, fmt.Errorf("annotate article %d: %w", i, err)
		}
		id, err := dst.SaveArticle(ctx, a)
		if err != nil {
			return ids, fmt.Errorf("save article %d: %w", i, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ReadJSONFile decodes a JSON array of T from path, or from stdin when path is "-"
func ReadJSONFile[T any](path string) ([]*T, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	var items []*T
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return items, nil
}

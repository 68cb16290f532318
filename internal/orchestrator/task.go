package orchestrator

import (
	"github.com/ppiankov/corroborate/internal/model"
	"github.com/ppiankov/corroborate/internal/validator"
)

// task is one validator invocation and the triples it is scheduled to settle
type task struct {
	reg      *registration
	queries  []*model.Query
	articles []*model.Article
	keys     []model.TripleKey
	keySet   map[model.TripleKey]struct{}
}

func newTask(reg *registration) *task {
	return &task{reg: reg, keySet: make(map[model.TripleKey]struct{})}
}

func (t *task) add(p pair) {
	key := model.TripleKey{Query: p.query.ID, Algorithm: t.reg.id, Article: p.article.ID}
	if _, ok := t.keySet[key]; ok {
		return
	}
	t.keySet[key] = struct{}{}
	t.keys = append(t.keys, key)
}

func (t *task) scheduled(key model.TripleKey) bool {
	_, ok := t.keySet[key]
	return ok
}

// group splits the pending pairs of one algorithm into tasks by arity:
// one per triple, per query, per article, or a single task for all of them
func group(reg *registration, pending []pair) []*task {
	if len(pending) == 0 {
		return nil
	}

	switch reg.factory.Arity() {
	case validator.ArityOneToOne:
		tasks := make([]*task, 0, len(pending))
		for _, p := range pending {
			t := newTask(reg)
			t.queries = []*model.Query{p.query}
			t.articles = []*model.Article{p.article}
			t.add(p)
			tasks = append(tasks, t)
		}
		return tasks

	case validator.ArityOneToMany:
		var tasks []*task
		byQuery := make(map[model.QueryID]*task)
		for _, p := range pending {
			t, ok := byQuery[p.query.ID]
			if !ok {
				t = newTask(reg)
				t.queries = []*model.Query{p.query}
				byQuery[p.query.ID] = t
				tasks = append(tasks, t)
			}
			t.articles = append(t.articles, p.article)
			t.add(p)
		}
		return tasks

	case validator.ArityManyToOne:
		var tasks []*task
		byArticle := make(map[model.ArticleID]*task)
		for _, p := range pending {
			t, ok := byArticle[p.article.ID]
			if !ok {
				t = newTask(reg)
				t.articles = []*model.Article{p.article}
				byArticle[p.article.ID] = t
				tasks = append(tasks, t)
			}
			t.queries = append(t.queries, p.query)
			t.add(p)
		}
		return tasks

	default:
		t := newTask(reg)
		seenQ := make(map[model.QueryID]struct{})
		seenA := make(map[model.ArticleID]struct{})
		for _, p := range pending {
			if _, ok := seenQ[p.query.ID]; !ok {
				seenQ[p.query.ID] = struct{}{}
				t.queries = append(t.queries, p.query)
			}
			if _, ok := seenA[p.article.ID]; !ok {
				seenA[p.article.ID] = struct{}{}
				t.articles = append(t.articles, p.article)
			}
			t.add(p)
		}
		return []*task{t}
	}
}

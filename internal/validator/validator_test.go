package validator

import (
	"context"
	"errors"
	"testing"

	"github.com/ppiankov/corroborate/internal/model"
)

func constant(alg model.AlgorithmID, qs []*model.Query, as []*model.Article) Validator {
	return Func(func(ctx context.Context) ([]model.ValidationResult, error) {
		var out []model.ValidationResult
		for _, q := range qs {
			for _, a := range as {
				out = append(out, model.NewValidationResult(alg, q.ID, a.ID, 1))
			}
		}
		return out, nil
	})
}

func TestFactory_Build(t *testing.T) {
	q1, q2 := &model.Query{ID: 1}, &model.Query{ID: 2}
	a1, a2 := &model.Article{ID: 10}, &model.Article{ID: 20}

	factories := map[Arity]Factory{
		ArityOneToOne: OneToOne(func(alg model.AlgorithmID, q *model.Query, a *model.Article) Validator {
			return constant(alg, []*model.Query{q}, []*model.Article{a})
		}),
		ArityOneToMany: OneToMany(func(alg model.AlgorithmID, q *model.Query, as []*model.Article) Validator {
			return constant(alg, []*model.Query{q}, as)
		}),
		ArityManyToOne: ManyToOne(func(alg model.AlgorithmID, qs []*model.Query, a *model.Article) Validator {
			return constant(alg, qs, []*model.Article{a})
		}),
		ArityManyToMany: ManyToMany(constant),
	}

	tests := []struct {
		arity    Arity
		queries  []*model.Query
		articles []*model.Article
		want     int
		wantErr  bool
	}{
		{ArityOneToOne, []*model.Query{q1}, []*model.Article{a1}, 1, false},
		{ArityOneToOne, []*model.Query{q1, q2}, []*model.Article{a1}, 0, true},
		{ArityOneToMany, []*model.Query{q1}, []*model.Article{a1, a2}, 2, false},
		{ArityOneToMany, []*model.Query{q1, q2}, []*model.Article{a1}, 0, true},
		{ArityManyToOne, []*model.Query{q1, q2}, []*model.Article{a1}, 2, false},
		{ArityManyToOne, []*model.Query{q1}, []*model.Article{a1, a2}, 0, true},
		{ArityManyToMany, []*model.Query{q1, q2}, []*model.Article{a1, a2}, 4, false},
		{ArityManyToMany, nil, []*model.Article{a1}, 0, true},
	}

	for _, tt := range tests {
		f := factories[tt.arity]
		if f.Arity() != tt.arity {
			t.Fatalf("expected arity %s, got %s", tt.arity, f.Arity())
		}

		v, err := f.Build(7, tt.queries, tt.articles)
		if tt.wantErr {
			if !errors.Is(err, ErrArity) {
				t.Errorf("%s: expected ErrArity, got %v", tt.arity, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tt.arity, err)
		}

		results, err := v.Call(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if len(results) != tt.want {
			t.Errorf("%s: expected %d results, got %d", tt.arity, tt.want, len(results))
		}
		for _, r := range results {
			if r.AlgorithmID != 7 {
				t.Errorf("%s: expected algorithm 7, got %d", tt.arity, r.AlgorithmID)
			}
		}
	}
}

func TestFactory_ZeroValueInvalid(t *testing.T) {
	var f Factory
	if f.Valid() {
		t.Error("expected zero Factory to be invalid")
	}
	if _, err := f.Build(1, []*model.Query{{ID: 1}}, []*model.Article{{ID: 1}}); !errors.Is(err, ErrArity) {
		t.Errorf("expected ErrArity, got %v", err)
	}
}

func TestArity_String(t *testing.T) {
	if ArityManyToOne.String() != "Nx1" {
		t.Errorf("expected Nx1, got %s", ArityManyToOne)
	}
	if Arity(9).String() != "Arity(9)" {
		t.Errorf("unexpected %s", Arity(9))
	}
}

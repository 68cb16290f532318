package rank

import (
	"math"
	"strings"
	"testing"

	"github.com/ppiankov/corroborate/internal/model"
)

func sentence(text string) model.Sentence {
	var s model.Sentence
	for _, w := range strings.Fields(text) {
		s.Tokens = append(s.Tokens, model.Token{Text: w})
	}
	return s
}

func TestSentenceSimilarity(t *testing.T) {
	a := sentence("Obama meets the mayor")
	b := sentence("The mayor thanked Obama today")

	// shared: obama, the, mayor
	want := 3 / (math.Log(4) + math.Log(5))
	if got := SentenceSimilarity(a, b); math.Abs(got-want) > 1e-12 {
		t.Errorf("expected %v, got %v", want, got)
	}
	if SentenceSimilarity(a, b) != SentenceSimilarity(b, a) {
		t.Error("expected symmetric similarity")
	}
}

func TestSentenceSimilarity_SingleTokenIsFinite(t *testing.T) {
	a := sentence("Obama")
	b := sentence("obama")

	got := SentenceSimilarity(a, b)
	if math.IsInf(got, 0) || math.IsNaN(got) {
		t.Fatalf("expected finite similarity, got %v", got)
	}
	if got <= 0 {
		t.Errorf("expected positive similarity for shared word, got %v", got)
	}
}

func TestSentenceSimilarity_NoOverlap(t *testing.T) {
	if got := SentenceSimilarity(sentence("a b c"), sentence("d e f")); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
	if got := SentenceSimilarity(model.Sentence{}, sentence("d e f")); got != 0 {
		t.Errorf("expected 0 for empty sentence, got %v", got)
	}
}

func TestRankSentences(t *testing.T) {
	sentences := []model.Sentence{
		sentence("Obama meets the mayor at the White House"),
		sentence("The weather was cold"),
		sentence("The mayor and Obama discussed the budget"),
		sentence("Obama thanked the mayor"),
		sentence("Single"),
	}

	ranked, err := RankSentences(sentences, 2, DefaultIterations, DefaultThreshold, DefaultDamping)
	if err != nil {
		t.Fatal(err)
	}
	if len(ranked) != 2 {
		t.Fatalf("expected 2 sentences, got %d", len(ranked))
	}
	for _, r := range ranked {
		if r.Index == 1 || r.Index == 4 {
			t.Errorf("expected weakly connected sentence %d not in top 2", r.Index)
		}
		if math.IsNaN(r.Weight) || r.Weight < 1-DefaultDamping {
			t.Errorf("unexpected weight %v", r.Weight)
		}
	}

	all, err := RankSentences(sentences, 0, DefaultIterations, DefaultThreshold, DefaultDamping)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != len(sentences) {
		t.Errorf("expected all %d sentences, got %d", len(sentences), len(all))
	}
}

package annotate

import (
	"reflect"
	"strings"
	"testing"

	"github.com/ppiankov/corroborate/internal/model"
)

func TestAnnotator_Text(t *testing.T) {
	a := New()
	sentences := a.Text("President B. Obama met the mayor. They talked!  Was it useful? Yes")

	if len(sentences) != 4 {
		t.Fatalf("expected 4 sentences, got %d: %+v", len(sentences), sentences)
	}
	if got := sentences[0].Text(); got != "President B Obama met the mayor" {
		t.Errorf("unexpected first sentence %q", got)
	}
}

func TestAnnotator_ArticleHTML(t *testing.T) {
	art := &model.Article{
		ID: 1,
		Text: `<html><head><script>var x = "ignored.";</script></head>
<body><p>Obama meets the mayor at the White House.</p><p>The meeting was short.</p></body></html>`,
	}

	if err := New().Article(art); err != nil {
		t.Fatalf("Article failed: %v", err)
	}
	if len(art.Sentences) != 2 {
		t.Fatalf("expected 2 sentences, got %d", len(art.Sentences))
	}
	for _, s := range art.Sentences {
		if strings.Contains(s.Text(), "ignored") {
			t.Error("expected script content to be skipped")
		}
	}
}

func TestAnnotator_KeepsExistingAnnotation(t *testing.T) {
	existing := []model.Sentence{{Tokens: []model.Token{{Text: "kept"}}}}
	art := &model.Article{Text: "Something else entirely.", Sentences: existing}

	if err := New().Article(art); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(art.Sentences, existing) {
		t.Errorf("expected annotation to be untouched, got %+v", art.Sentences)
	}
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("Obama's well-known visit, (2009) -- done.")

	var texts []string
	for _, tok := range tokens {
		texts = append(texts, tok.Text)
	}
	want := []string{"Obama's", "well-known", "visit", "2009", "done"}
	if !reflect.DeepEqual(texts, want) {
		t.Errorf("expected %v, got %v", want, texts)
	}
	if tokens[0].Lemma != "obama" {
		t.Errorf("expected lemma obama, got %q", tokens[0].Lemma)
	}
}

func TestLemma(t *testing.T) {
	tests := map[string]string{
		"Meets":   "meet",
		"cities":  "city",
		"glass":   "glass",
		"bus":     "bus",
		"has":     "has",
		"Mayor's": "mayor",
	}
	for in, want := range tests {
		if got := Lemma(in); got != want {
			t.Errorf("Lemma(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestContentWords(t *testing.T) {
	got := ContentWords("The mayor meets the mayors at the White House")
	want := []string{"mayor", "meet", "white", "house"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

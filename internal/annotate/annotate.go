// Package annotate turns raw article bodies into sentences and tokens for
// articles that arrive without an annotation
package annotate

import (
	"strings"
	"unicode"

	"github.com/ppiankov/corroborate/internal/model"
	"golang.org/x/net/html"
)

// Annotator splits text into sentences and tokens
type Annotator struct {
	minSentenceLen int
	maxSentenceLen int
}

// New creates an annotator with the default sentence length bounds
func New() *Annotator {
	return &Annotator{
		minSentenceLen: 3,
		maxSentenceLen: 1000,
	}
}

// Article fills in the sentences of a when they are missing.
// Bodies that look like HTML are reduced to their visible text first.
func (a *Annotator) Article(art *model.Article) error {
	if art.Annotated() {
		return nil
	}

	text := art.Text
	if looksLikeHTML(text) {
		visible, err := VisibleText(text)
		if err != nil {
			return err
		}
		text = visible
	}

	art.Sentences = a.Text(text)
	return nil
}

// Text annotates plain text
func (a *Annotator) Text(text string) []model.Sentence {
	var out []model.Sentence
	for _, raw := range a.splitSentences(text) {
		tokens := Tokenize(raw)
		if len(tokens) == 0 {
			continue
		}
		out = append(out, model.Sentence{Tokens: tokens})
	}
	return out
}

// VisibleText extracts text nodes from HTML, skipping scripts and styles
func VisibleText(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "nav", "footer":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	return strings.TrimSpace(buf.String()), nil
}

func looksLikeHTML(text string) bool {
	t := strings.TrimSpace(text)
	return strings.HasPrefix(t, "<") && strings.Contains(t, ">")
}

// splitSentences breaks on . ! ? followed by whitespace.
// A terminator after a single capital letter (an initial) does not end a sentence.
func (a *Annotator) splitSentences(text string) []string {
	text = strings.Join(strings.Fields(text), " ")

	var sentences []string
	var current strings.Builder
	runes := []rune(text)

	flush := func() {
		s := strings.TrimSpace(current.String())
		current.Reset()
		if n := len([]rune(s)); n >= a.minSentenceLen && n <= a.maxSentenceLen {
			sentences = append(sentences, s)
		}
	}

	for i, r := range runes {
		current.WriteRune(r)
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && runes[i+1] != ' ' {
			continue
		}
		if r == '.' && isInitial(runes, i) {
			continue
		}
		flush()
	}
	flush()

	return sentences
}

func isInitial(runes []rune, dot int) bool {
	if dot < 1 || !unicode.IsUpper(runes[dot-1]) {
		return false
	}
	return dot == 1 || runes[dot-2] == ' ' || runes[dot-2] == '.'
}

// Tokenize splits a sentence into word tokens, dropping punctuation.
// Apostrophes and hyphens inside a word are kept.
func Tokenize(sentence string) []model.Token {
	var tokens []model.Token
	var word strings.Builder
	runes := []rune(sentence)

	emit := func() {
		if word.Len() == 0 {
			return
		}
		text := word.String()
		word.Reset()
		tokens = append(tokens, model.Token{Text: text, Lemma: Lemma(text)})
	}

	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			word.WriteRune(r)
		case (r == '\'' || r == '-' || r == '’') && word.Len() > 0 && i+1 < len(runes) && unicode.IsLetter(runes[i+1]):
			word.WriteRune(r)
		default:
			emit()
		}
	}
	emit()

	return tokens
}

// Lemma is a crude lowercase stem: possessives and regular plurals are stripped
func Lemma(word string) string {
	w := strings.ToLower(word)
	w = strings.TrimSuffix(strings.TrimSuffix(w, "'s"), "’s")
	switch {
	case len(w) > 4 && strings.HasSuffix(w, "ies"):
		return w[:len(w)-3] + "y"
	case len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") && !strings.HasSuffix(w, "us"):
		return w[:len(w)-1]
	}
	return w
}

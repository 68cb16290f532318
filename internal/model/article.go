package model

import "strings"

// Token is one annotated token of a sentence
type Token struct {
	Text  string `json:"text"`
	Lemma string `json:"lemma,omitempty"`
	POS   string `json:"pos,omitempty"`
}

// Sentence is an ordered sequence of tokens
type Sentence struct {
	Tokens []Token `json:"tokens"`
}

// Text reconstructs the sentence from its tokens
func (s Sentence) Text() string {
	words := make([]string, len(s.Tokens))
	for i, t := range s.Tokens {
		words[i] = t.Text
	}
	return strings.Join(words, " ")
}

// Words returns the distinct lowercase token texts in first-seen order
func (s Sentence) Words() []string {
	seen := make(map[string]bool, len(s.Tokens))
	words := make([]string, 0, len(s.Tokens))
	for _, t := range s.Tokens {
		w := strings.ToLower(t.Text)
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		words = append(words, w)
	}
	return words
}

// Article is a downloaded news document together with its annotation
type Article struct {
	ID        ArticleID  `json:"id"`
	Title     string     `json:"title"`
	Text      string     `json:"text"`
	URL       string     `json:"url,omitempty"`
	Source    string     `json:"source,omitempty"`
	Sentences []Sentence `json:"sentences,omitempty"`
}

// Annotated reports whether the sentence structure is present
func (a *Article) Annotated() bool {
	return len(a.Sentences) > 0
}

// Vocabulary returns the set of lowercase tokens across all sentences
func (a *Article) Vocabulary() map[string]int {
	vocab := make(map[string]int)
	for _, s := range a.Sentences {
		for _, t := range s.Tokens {
			vocab[strings.ToLower(t.Text)]++
		}
	}
	return vocab
}

package model

import "strings"

// QueryID identifies a query row
type QueryID int64

// ArticleID identifies an article row
type ArticleID int64

// AlgorithmID is the stable catalog ID of a validation algorithm
type AlgorithmID int64

// Query is a structured factual claim to be validated against articles
type Query struct {
	ID             QueryID `json:"id"`
	Subject        string  `json:"subject"`
	Verb           string  `json:"verb"`
	DirectObject   string  `json:"direct_object,omitempty"`
	IndirectObject string  `json:"indirect_object,omitempty"`
	Location       string  `json:"location,omitempty"`
	Processed      bool    `json:"processed"`
}

// Phrase joins subject, verb and the non-empty objects into a single phrase.
// Location is left out, it rarely appears verbatim in the supporting sentence.
func (q *Query) Phrase() string {
	parts := []string{q.Subject, q.Verb, q.DirectObject, q.IndirectObject}
	return joinNonEmpty(parts)
}

// Elements returns every non-empty element of the query, location included
func (q *Query) Elements() []string {
	var out []string
	for _, e := range []string{q.Subject, q.Verb, q.DirectObject, q.IndirectObject, q.Location} {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}

func joinNonEmpty(parts []string) string {
	var b strings.Builder
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p)
	}
	return b.String()
}

package annotate

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"of": true, "in": true, "on": true, "at": true, "to": true, "for": true,
	"with": true, "by": true, "from": true, "as": true, "into": true, "about": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"it": true, "its": true, "this": true, "that": true, "these": true, "those": true,
	"he": true, "she": true, "they": true, "we": true, "i": true, "you": true,
	"his": true, "her": true, "their": true, "our": true, "has": true, "have": true,
	"had": true, "will": true, "would": true, "not": true, "no": true, "so": true,
}

// IsStopword reports whether a lowercase word carries no content
func IsStopword(word string) bool {
	return stopwords[word]
}

// ContentWords returns the distinct lemmas of text that are not stopwords, in first-seen order
func ContentWords(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range Tokenize(text) {
		if IsStopword(t.Lemma) || seen[t.Lemma] {
			continue
		}
		seen[t.Lemma] = true
		out = append(out, t.Lemma)
	}
	return out
}

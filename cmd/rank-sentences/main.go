// Prints the most salient sentences of a text or HTML file, the same
// ranking the TextRank validator uses. Handy for eyeballing an article.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/corroborate/internal/annotate"
	"github.com/ppiankov/corroborate/internal/model"
	"github.com/ppiankov/corroborate/internal/rank"
)

func main() {
	top := flag.Int("top", 5, "number of sentences to print")
	iterations := flag.Int("iterations", rank.DefaultIterations, "maximum rank iterations")
	damping := flag.Float64("damping", rank.DefaultDamping, "damping factor")
	flag.Parse()

	var r io.Reader = os.Stdin
	if path := flag.Arg(0); path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	article := &model.Article{Text: string(data)}
	if err := annotate.New().Article(article); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ranked, err := rank.RankSentences(article.Sentences, *top, *iterations, rank.DefaultThreshold, *damping)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("=== %d sentences, top %d ===\n\n", len(article.Sentences), len(ranked))
	for i, s := range ranked {
		fmt.Printf("%2d. [%.4f] %s\n", i+1, s.Weight, s.Payload.Text())
	}
	fmt.Println(strings.Repeat("-", 60))
}

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/corroborate/internal/model"
	"github.com/ppiankov/corroborate/internal/pipeline"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import queries or articles from JSON",
}

var importQueriesCmd = &cobra.Command{
	Use:   "queries <file.json>",
	Short: "Import queries from a JSON array (\"-\" reads stdin)",
	Long: `Each element has subject, verb and optionally direct_object,
indirect_object, location and id. Without an id a new one is assigned.

Example:
  corroborate import queries claims.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		queries, err := pipeline.ReadJSONFile[model.Query](args[0])
		if err != nil {
			return err
		}

		ctx := context.Background()
		e, err := setup(ctx)
		if err != nil {
			return err
		}
		defer e.close()

		ids, err := pipeline.ImportQueries(ctx, e.store, queries)
		fmt.Fprintf(os.Stderr, "✓ Imported %d of %d queries\n", len(ids), len(queries))
		if err != nil {
			return err
		}
		printIDs(ids)
		return nil
	},
}

var importArticlesCmd = &cobra.Command{
	Use:   "articles <file.json>",
	Short: "Import articles from a JSON array (\"-\" reads stdin)",
	Long: `Each element has title and text (plain text or HTML) and optionally url,
source, id and pre-annotated sentences. Articles without sentences are
annotated on import.

Example:
  corroborate import articles news.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		articles, err := pipeline.ReadJSONFile[model.Article](args[0])
		if err != nil {
			return err
		}

		ctx := context.Background()
		e, err := setup(ctx)
		if err != nil {
			return err
		}
		defer e.close()

		ids, err := pipeline.ImportArticles(ctx, e.store, articles)
		fmt.Fprintf(os.Stderr, "✓ Imported %d of %d articles\n", len(ids), len(articles))
		if err != nil {
			return err
		}
		printIDs(ids)
		return nil
	},
}

func printIDs[T ~int64](ids []T) {
	for _, id := range ids {
		fmt.Println(int64(id))
	}
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.AddCommand(importQueriesCmd)
	importCmd.AddCommand(importArticlesCmd)
}

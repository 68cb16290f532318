package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/corroborate/internal/model"
	"github.com/ppiankov/corroborate/internal/orchestrator"
	"github.com/ppiankov/corroborate/internal/pipeline"
	"github.com/ppiankov/corroborate/internal/vote"
)

var (
	selection idFlags
	reprocess bool
	outJSON   string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Score queries against articles with every enabled algorithm",
	Long: `Validate runs each enabled algorithm over every (query, article) pair that
has no stored result yet and stores what the algorithms return. Results that
already exist are never recomputed unless --reprocess is given.

Example:
  corroborate validate -q 1-20 -a 100-250
  corroborate validate --queries-file queries.txt --articles-file articles.txt`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

var voteCmd = &cobra.Command{
	Use:   "vote",
	Short: "Decide which queries are corroborated by the stored results",
	Long: `Vote counts, per query, how many stored results reach their algorithm's
threshold and compares that share with voting.global_threshold. With -a only
results for those articles count.

Example:
  corroborate vote -q 1-20 -a 100-250`,
	Args: cobra.NoArgs,
	RunE: runVote,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Validate, then vote, and print a report",
	Long: `Run validates the selected queries and articles and votes once every
validator task has finished.

Example:
  corroborate run -q 1-20 -a 100-250 --json report.json`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	for _, cmd := range []*cobra.Command{validateCmd, voteCmd, runCmd} {
		selection.register(cmd)
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{validateCmd, runCmd} {
		cmd.Flags().BoolVar(&reprocess, "reprocess", false, "recompute and overwrite existing results")
	}
	runCmd.Flags().StringVar(&outJSON, "json", "", "also write the report as JSON to this path")
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newPipeline builds a pipeline over the env's store
func newPipeline(ctx context.Context, e *env) (*pipeline.Pipeline, error) {
	p, err := pipeline.New(ctx, e.cfg, pipeline.Deps{
		Store:   e.store,
		Logger:  e.logger,
		Metrics: e.metrics,
	})
	if errors.Is(err, model.ErrUnknownAlgorithm) {
		return nil, fmt.Errorf("%w\nRun 'corroborate catalog sync' to add configured algorithms to the catalog", err)
	}
	return p, err
}

func runValidate(cmd *cobra.Command, args []string) error {
	queries, articles, err := selection.resolve()
	if err != nil {
		return err
	}
	if len(articles) == 0 {
		return errors.New("no article IDs given (use -a or --articles-file)")
	}

	ctx, cancel := signalContext()
	defer cancel()

	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	p, err := newPipeline(ctx, e)
	if err != nil {
		return err
	}
	defer p.Close()

	if verbose {
		fmt.Fprintf(os.Stderr, "Validating %d queries against %d articles\n", len(queries), len(articles))
	}

	sum, err := p.Validate(ctx, queries, articles, orchestrator.Options{Reprocess: reprocess})
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ Run %s: %d scheduled, %d skipped, %d persisted, %d failed\n",
		sum.RunID, sum.Scheduled, sum.Skipped, sum.Persisted, sum.Failed)
	for _, f := range sum.Failures {
		fmt.Fprintf(os.Stderr, "  ✗ %v\n", f)
	}
	return nil
}

func runVote(cmd *cobra.Command, args []string) error {
	queries, articles, err := selection.resolve()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	voter, err := vote.New(vote.Config{
		Source:          e.store,
		Queries:         e.store,
		GlobalThreshold: e.cfg.Voting.GlobalThreshold,
		Logger:          e.logger,
		Metrics:         e.metrics,
	})
	if err != nil {
		return err
	}

	decisions, err := voter.Vote(ctx, queries, articles)
	if err != nil {
		return fmt.Errorf("vote failed: %w", err)
	}

	passed, rejected := vote.Split(decisions)
	pipeline.RenderSummary(os.Stdout, &model.Report{
		RunID:           "vote",
		GlobalThreshold: voter.Threshold(),
		Validated:       passed,
		Rejected:        rejected,
	})
	return nil
}

func runRun(cmd *cobra.Command, args []string) error {
	queries, articles, err := selection.resolve()
	if err != nil {
		return err
	}
	if len(articles) == 0 {
		return errors.New("no article IDs given (use -a or --articles-file)")
	}

	ctx, cancel := signalContext()
	defer cancel()

	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	p, err := newPipeline(ctx, e)
	if err != nil {
		return err
	}
	defer p.Close()

	report, err := p.Run(ctx, queries, articles, orchestrator.Options{Reprocess: reprocess})
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	pipeline.RenderSummary(os.Stdout, report)

	if outJSON != "" {
		if err := pipeline.RenderJSON(report, outJSON); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", outJSON)
		}
	}
	return nil
}

package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ppiankov/corroborate/internal/model"
)

// RenderJSON writes the report as indented JSON to path
func RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// RenderSummary prints a human-readable summary of the report
func RenderSummary(w io.Writer, report *model.Report) {
	s := report.Stats

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  Corroboration Report  (run %s)\n", report.RunID)
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Triples:   %d scheduled, %d skipped, %d persisted, %d failed\n", s.Scheduled, s.Skipped, s.Persisted, s.Failed)
	if s.Unscored > 0 || s.Discarded > 0 || s.PersistErrors > 0 {
		fmt.Fprintf(w, "             %d unscored, %d discarded, %d persist errors\n", s.Unscored, s.Discarded, s.PersistErrors)
	}
	fmt.Fprintf(w, "  Tasks:     %d\n", s.Tasks)
	fmt.Fprintf(w, "  Threshold: %.2f\n", report.GlobalThreshold)
	fmt.Fprintf(w, "\n")

	renderDecisions(w, "Validated", report.Validated)
	renderDecisions(w, "Rejected", report.Rejected)
}

func renderDecisions(w io.Writer, title string, decisions []model.Decision) {
	fmt.Fprintf(w, "  %s (%d)\n", title, len(decisions))
	for _, d := range decisions {
		phrase := d.Phrase
		if phrase == "" {
			phrase = "-"
		}
		fmt.Fprintf(w, "    #%-6d %d/%d  ratio %.2f  %s\n", d.QueryID, d.Validated, d.Evaluated, d.Ratio, phrase)
	}
	fmt.Fprintf(w, "\n")
}

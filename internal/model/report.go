package model

import "time"

// Report is the outcome of one validate-and-vote run
type Report struct {
	RunID           string     `json:"run_id"`
	GeneratedAt     time.Time  `json:"generated_at"`
	GlobalThreshold float64    `json:"global_threshold"`
	Stats           RunStats   `json:"stats"`
	Validated       []Decision `json:"validated"`
	Rejected        []Decision `json:"rejected"`
}

// RunStats counts what the orchestrator did with the requested triples
type RunStats struct {
	Scheduled     int `json:"scheduled"`      // triples handed to validators
	Skipped       int `json:"skipped"`        // already persisted
	Tasks         int `json:"tasks"`          // validator invocations submitted
	Persisted     int `json:"persisted"`      // results written
	Failed        int `json:"failed"`         // triples that ended without a stored result
	Unscored      int `json:"unscored"`       // scheduled triples the validator returned nothing for
	PersistErrors int `json:"persist_errors"` // rows that could not be written
	Discarded     int `json:"discarded"`      // results outside the scheduled set or malformed
}

// Decision is the vote for one query.
// Ratio is Validated / Evaluated; a query with no evaluations never passes.
type Decision struct {
	QueryID   QueryID `json:"query_id"`
	Phrase    string  `json:"phrase,omitempty"`
	Validated int     `json:"validated"`
	Evaluated int     `json:"evaluated"`
	Ratio     float64 `json:"ratio"`
	Passed    bool    `json:"passed"`
}

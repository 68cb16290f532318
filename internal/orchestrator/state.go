package orchestrator

import (
	"sync"

	"github.com/ppiankov/corroborate/internal/model"
)

// State is where a (query, algorithm, article) triple is in one run
type State int

const (
	NotScheduled State = iota
	Scheduled
	Running
	Persisted
	Failed
)

func (s State) String() string {
	switch s {
	case NotScheduled:
		return "NotScheduled"
	case Scheduled:
		return "Scheduled"
	case Running:
		return "Running"
	case Persisted:
		return "Persisted"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Summary describes one Execute call
type Summary struct {
	RunID string `json:"run_id"`
	model.RunStats
	States   map[model.TripleKey]State `json:"-"`
	Failures []*model.TripleError      `json:"-"`
}

// Count returns how many triples ended in state s
func (s *Summary) Count(state State) int {
	n := 0
	for _, st := range s.States {
		if st == state {
			n++
		}
	}
	return n
}

// tracker guards the summary while workers report into it
type tracker struct {
	mu  sync.Mutex
	sum *Summary
}

func newTracker(runID string) *tracker {
	return &tracker{sum: &Summary{
		RunID:  runID,
		States: make(map[model.TripleKey]State),
	}}
}

func (t *tracker) set(key model.TripleKey, s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sum.States[key] = s
}

func (t *tracker) setAll(keys []model.TripleKey, s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, k := range keys {
		t.sum.States[k] = s
	}
}

func (t *tracker) state(key model.TripleKey) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sum.States[key]
}

// fail moves key to Failed and records why
func (t *tracker) fail(key model.TripleKey, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sum.States[key] = Failed
	t.sum.Failed++
	t.sum.Failures = append(t.sum.Failures, &model.TripleError{Key: key, Err: err})
}

func (t *tracker) update(fn func(*Summary)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(t.sum)
}

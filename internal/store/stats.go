package store

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// UpsertStats counts result writes. Safe for concurrent use.
type UpsertStats struct {
	inserted int64
	updated  int64
}

func NewUpsertStats() *UpsertStats {
	return &UpsertStats{}
}

func (s *UpsertStats) RecordInsert() {
	atomic.AddInt64(&s.inserted, 1)
}

func (s *UpsertStats) RecordUpdate() {
	atomic.AddInt64(&s.updated, 1)
}

func (s *UpsertStats) Inserted() int64 {
	return atomic.LoadInt64(&s.inserted)
}

func (s *UpsertStats) Updated() int64 {
	return atomic.LoadInt64(&s.updated)
}

func (s *UpsertStats) String() string {
	return fmt.Sprintf("inserted=%d updated=%d", s.Inserted(), s.Updated())
}

// LogSummary logs the counters at info level
func (s *UpsertStats) LogSummary(logger *slog.Logger, entity string) {
	logger.Info("upsert statistics",
		"entity", entity,
		"inserted", s.Inserted(),
		"updated", s.Updated(),
	)
}

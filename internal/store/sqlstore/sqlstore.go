// Package sqlstore persists queries, articles, the algorithm catalog and
// validation results in SQLite or PostgreSQL
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/ppiankov/corroborate/internal/annotate"
	"github.com/ppiankov/corroborate/internal/model"
	"github.com/ppiankov/corroborate/internal/store"
)

const maxBusyRetries = 5

// Store implements store.Store on database/sql
type Store struct {
	db        *sql.DB
	dialect   Dialect
	annotator *annotate.Annotator
	stats     *store.UpsertStats
	logger    *slog.Logger
}

var _ store.Store = (*Store)(nil)

// Open connects, verifies the connection and creates missing tables
func Open(ctx context.Context, driver, dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrConfiguration, err)
	}
	if dialect == SQLite {
		dsn = sqliteDSN(dsn)
	}

	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	if dialect == SQLite && strings.Contains(dsn, "mode=memory") {
		// the database lives only as long as some connection to it
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: connect to database: %v", model.ErrPersistence, err)
	}

	s := &Store{
		db:        db,
		dialect:   dialect,
		annotator: annotate.New(),
		stats:     store.NewUpsertStats(),
		logger:    logger,
	}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Debug("database ready", "driver", string(dialect))
	return s, nil
}

// sqliteDSN turns a bare path into a modernc DSN with a busy timeout and WAL.
// An in-memory database gets a unique shared-cache name so every pooled
// connection sees the same tables.
func sqliteDSN(path string) string {
	if path == ":memory:" || path == "file::memory:" {
		return fmt.Sprintf("file:corroborate-%s?mode=memory&cache=shared&_pragma=busy_timeout(10000)", uuid.NewString())
	}
	if strings.HasPrefix(path, "file:") {
		return path
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", path)
}

// Migrate creates the schema if it does not exist
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Dialect returns the SQL dialect in use
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Stats returns the result upsert counters
func (s *Store) Stats() *store.UpsertStats {
	return s.stats
}

func (s *Store) Close() error {
	return s.db.Close()
}

// retryOnBusy retries op while SQLite reports a locked database
func (s *Store) retryOnBusy(ctx context.Context, op func() error) error {
	var err error
	for i := 0; i < maxBusyRetries; i++ {
		err = op()
		if err == nil || !isBusy(err) {
			return err
		}

		backoff := time.Duration(10*(1<<uint(i))) * time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("operation failed after %d retries: %w", maxBusyRetries, err)
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "SQLITE_LOCKED") ||
		strings.Contains(msg, "database is locked") || strings.Contains(msg, "table is locked")
}

func (s *Store) LoadQueries(ctx context.Context, ids []model.QueryID) ([]*model.Query, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = int64(id)
	}
	query := s.dialect.rebind(`SELECT id, subject, verb, direct_object, indirect_object, location, processed
		FROM queries WHERE id IN (` + placeholders(len(ids)) + `) ORDER BY id`)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load queries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Query
	for rows.Next() {
		var q model.Query
		if err := rows.Scan(&q.ID, &q.Subject, &q.Verb, &q.DirectObject, &q.IndirectObject, &q.Location, &q.Processed); err != nil {
			return nil, fmt.Errorf("scan query: %w", err)
		}
		out = append(out, &q)
	}
	return out, rows.Err()
}

// LoadArticles returns the articles with their annotation.
// Rows stored without one are annotated on the fly.
func (s *Store) LoadArticles(ctx context.Context, ids []model.ArticleID) ([]*model.Article, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = int64(id)
	}
	query := s.dialect.rebind(`SELECT id, title, text, url, source, annotation
		FROM articles WHERE id IN (` + placeholders(len(ids)) + `) ORDER BY id`)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load articles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Article
	for rows.Next() {
		var a model.Article
		var annotation string
		if err := rows.Scan(&a.ID, &a.Title, &a.Text, &a.URL, &a.Source, &annotation); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		if annotation != "" {
			if err := json.Unmarshal([]byte(annotation), &a.Sentences); err != nil {
				return nil, fmt.Errorf("decode annotation of article %d: %w", a.ID, err)
			}
		}
		if !a.Annotated() {
			if err := s.annotator.Article(&a); err != nil {
				s.logger.Warn("annotate article failed", "article", a.ID, "error", err)
			}
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (s *Store) Exists(ctx context.Context, key model.TripleKey) (bool, error) {
	var one int
	err := s.retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, s.dialect.rebind(
			`SELECT 1 FROM validation_results WHERE query_id = ? AND algorithm_id = ? AND article_id = ?`),
			int64(key.Query), int64(key.Algorithm), int64(key.Article)).Scan(&one)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: lookup %s: %v", model.ErrPersistence, key, err)
	}
	return true, nil
}

func (s *Store) Get(ctx context.Context, key model.TripleKey) (model.ValidationResult, error) {
	r := model.ValidationResult{QueryID: key.Query, AlgorithmID: key.Algorithm, ArticleID: key.Article}
	var inv sql.NullFloat64
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(
		`SELECT validates, invalidates FROM validation_results WHERE query_id = ? AND algorithm_id = ? AND article_id = ?`),
		int64(key.Query), int64(key.Algorithm), int64(key.Article)).Scan(&r.Validates, &inv)
	if errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("result %s: %w", key, model.ErrNotFound)
	}
	if err != nil {
		return r, fmt.Errorf("%w: get %s: %v", model.ErrPersistence, key, err)
	}
	if inv.Valid {
		r = r.WithInvalidates(inv.Float64)
	}
	return r, nil
}

// Upsert writes r, overwriting any row with the same key.
// The write itself is a single atomic statement; inserted is informational.
func (s *Store) Upsert(ctx context.Context, r model.ValidationResult) (bool, error) {
	exists, err := s.Exists(ctx, r.Key())
	if err != nil {
		return false, err
	}

	var inv sql.NullFloat64
	if r.Invalidates != nil {
		inv = sql.NullFloat64{Float64: *r.Invalidates, Valid: true}
	}
	stmt := s.dialect.rebind(`INSERT INTO validation_results (query_id, algorithm_id, article_id, validates, invalidates)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (query_id, algorithm_id, article_id)
		DO UPDATE SET validates = excluded.validates, invalidates = excluded.invalidates`)

	err = s.retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, stmt,
			int64(r.QueryID), int64(r.AlgorithmID), int64(r.ArticleID), r.Validates, inv)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("%w: upsert %s: %v", model.ErrPersistence, r.Key(), err)
	}

	if exists {
		s.stats.RecordUpdate()
	} else {
		s.stats.RecordInsert()
	}
	return !exists, nil
}

// VoteRows streams persisted results joined with their algorithm threshold, ungrouped
func (s *Store) VoteRows(ctx context.Context, queries []model.QueryID, articles []model.ArticleID, fn func(store.VoteRow) error) error {
	if len(queries) == 0 {
		return nil
	}

	var b strings.Builder
	args := make([]any, 0, len(queries)+len(articles))
	b.WriteString(`SELECT vr.query_id, vr.algorithm_id, vr.article_id, vr.validates, va.threshold
		FROM validation_results vr
		JOIN validation_algorithms va ON va.id = vr.algorithm_id
		WHERE vr.query_id IN (`)
	b.WriteString(placeholders(len(queries)))
	b.WriteString(")")
	for _, id := range queries {
		args = append(args, int64(id))
	}
	if articles != nil {
		if len(articles) == 0 {
			return nil
		}
		b.WriteString(" AND vr.article_id IN (")
		b.WriteString(placeholders(len(articles)))
		b.WriteString(")")
		for _, id := range articles {
			args = append(args, int64(id))
		}
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(b.String()), args...)
	if err != nil {
		return fmt.Errorf("%w: vote rows: %v", model.ErrPersistence, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var row store.VoteRow
		if err := rows.Scan(&row.QueryID, &row.AlgorithmID, &row.ArticleID, &row.Validates, &row.Threshold); err != nil {
			return fmt.Errorf("scan vote row: %w", err)
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return rows.Err()
}

package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/ppiankov/corroborate/internal/model"
	"github.com/ppiankov/corroborate/internal/store"
)

func (s *Store) AlgorithmID(ctx context.Context, name string) (model.AlgorithmID, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(
		`SELECT id FROM validation_algorithms WHERE algorithm = ?`), name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %q", model.ErrUnknownAlgorithm, name)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: resolve algorithm %q: %v", model.ErrPersistence, name, err)
	}
	return model.AlgorithmID(id), nil
}

func (s *Store) Algorithms(ctx context.Context) ([]store.Algorithm, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, algorithm, threshold FROM validation_algorithms ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list algorithms: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []store.Algorithm
	for rows.Next() {
		var a store.Algorithm
		if err := rows.Scan(&a.ID, &a.Name, &a.Threshold); err != nil {
			return nil, fmt.Errorf("scan algorithm: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SyncCatalog upserts by name inside one transaction
func (s *Store) SyncCatalog(ctx context.Context, entries map[string]float64) error {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	stmt := s.dialect.rebind(`INSERT INTO validation_algorithms (algorithm, threshold) VALUES (?, ?)
		ON CONFLICT (algorithm) DO UPDATE SET threshold = excluded.threshold`)

	return s.retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin catalog sync: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		for _, name := range names {
			if _, err := tx.ExecContext(ctx, stmt, name, entries[name]); err != nil {
				return fmt.Errorf("sync algorithm %q: %w", name, err)
			}
		}
		return tx.Commit()
	})
}

// SaveQuery inserts q, or replaces the row with q.ID when it is set
func (s *Store) SaveQuery(ctx context.Context, q *model.Query) (model.QueryID, error) {
	var id int64
	err := s.retryOnBusy(ctx, func() error {
		if q.ID == 0 {
			return s.db.QueryRowContext(ctx, s.dialect.rebind(`INSERT INTO queries
				(subject, verb, direct_object, indirect_object, location, processed)
				VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
				q.Subject, q.Verb, q.DirectObject, q.IndirectObject, q.Location, q.Processed).Scan(&id)
		}
		id = int64(q.ID)
		_, err := s.db.ExecContext(ctx, s.dialect.rebind(`INSERT INTO queries
			(id, subject, verb, direct_object, indirect_object, location, processed)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET subject = excluded.subject, verb = excluded.verb,
				direct_object = excluded.direct_object, indirect_object = excluded.indirect_object,
				location = excluded.location, processed = excluded.processed`),
			id, q.Subject, q.Verb, q.DirectObject, q.IndirectObject, q.Location, q.Processed)
		if err != nil {
			return err
		}
		return s.syncSequence(ctx, "queries")
	})
	if err != nil {
		return 0, fmt.Errorf("%w: save query: %v", model.ErrPersistence, err)
	}
	return model.QueryID(id), nil
}

// SaveArticle stores a together with its annotation, annotating it first when needed
func (s *Store) SaveArticle(ctx context.Context, a *model.Article) (model.ArticleID, error) {
	cp := *a
	if err := s.annotator.Article(&cp); err != nil {
		return 0, fmt.Errorf("annotate article: %w", err)
	}
	annotation, err := json.Marshal(cp.Sentences)
	if err != nil {
		return 0, fmt.Errorf("encode annotation: %w", err)
	}

	var id int64
	err = s.retryOnBusy(ctx, func() error {
		if cp.ID == 0 {
			return s.db.QueryRowContext(ctx, s.dialect.rebind(`INSERT INTO articles
				(title, text, url, source, annotation) VALUES (?, ?, ?, ?, ?) RETURNING id`),
				cp.Title, cp.Text, cp.URL, cp.Source, string(annotation)).Scan(&id)
		}
		id = int64(cp.ID)
		_, err := s.db.ExecContext(ctx, s.dialect.rebind(`INSERT INTO articles
			(id, title, text, url, source, annotation) VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET title = excluded.title, text = excluded.text,
				url = excluded.url, source = excluded.source, annotation = excluded.annotation`),
			id, cp.Title, cp.Text, cp.URL, cp.Source, string(annotation))
		if err != nil {
			return err
		}
		return s.syncSequence(ctx, "articles")
	})
	if err != nil {
		return 0, fmt.Errorf("%w: save article: %v", model.ErrPersistence, err)
	}
	return model.ArticleID(id), nil
}

// syncSequence moves a PostgreSQL serial past explicitly inserted IDs.
// SQLite AUTOINCREMENT already does this.
func (s *Store) syncSequence(ctx context.Context, table string) error {
	if s.dialect != Postgres {
		return nil
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(
		`SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), GREATEST((SELECT MAX(id) FROM %[1]s), 1))`, table))
	return err
}

package sqlstore

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect captures the few places SQLite and PostgreSQL differ
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// ParseDialect maps a configured driver name to a dialect
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pq":
		return Postgres, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// driverName is the database/sql driver registered by the imported package
func (d Dialect) driverName() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

func (d Dialect) serial() string {
	if d == Postgres {
		return "BIGSERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

// rebind rewrites ? placeholders as $n for PostgreSQL
func (d Dialect) rebind(query string) string {
	if d != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// placeholders returns "?, ?, ?" for n arguments
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func (d Dialect) schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS validation_algorithms (
			id ` + d.serial() + `,
			algorithm TEXT NOT NULL UNIQUE,
			threshold DOUBLE PRECISION NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS queries (
			id ` + d.serial() + `,
			subject TEXT NOT NULL,
			verb TEXT NOT NULL,
			direct_object TEXT NOT NULL DEFAULT '',
			indirect_object TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			processed BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS articles (
			id ` + d.serial() + `,
			title TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			annotation TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS validation_results (
			query_id BIGINT NOT NULL,
			algorithm_id BIGINT NOT NULL,
			article_id BIGINT NOT NULL,
			validates DOUBLE PRECISION NOT NULL CHECK (validates >= 0 AND validates <= 1),
			invalidates DOUBLE PRECISION CHECK (invalidates IS NULL OR (invalidates >= 0 AND invalidates <= 1)),
			PRIMARY KEY (query_id, algorithm_id, article_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_validation_results_algorithm ON validation_results(algorithm_id)`,
	}
}

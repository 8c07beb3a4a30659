package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"impactanalyzer/core/internal/facts"
)

// scanFact scans a row into a FactRow. The row must have all 5 columns in standard order.
func scanFact(scanner interface{ Scan(dest ...any) error }) (FactRow, error) {
	var f FactRow
	err := scanner.Scan(&f.ID, &f.Source, &f.Relation, &f.Target, &f.CreatedAt)
	return f, err
}

// InsertFacts stages facts in one transaction. Exact duplicates and facts
// with a blank endpoint are ignored. Returns the number of new rows.
func (d *DB) InsertFacts(list []facts.Fact) (int, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO dependencies (source, relation, target, created_at)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	inserted := 0
	for _, f := range list {
		if strings.TrimSpace(f.Source) == "" || strings.TrimSpace(f.Target) == "" {
			continue
		}
		res, err := stmt.Exec(f.Source, f.Relation, f.Target, now)
		if err != nil {
			return 0, fmt.Errorf("inserting %s -> %s: %w", f.Source, f.Target, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing facts: %w", err)
	}
	return inserted, nil
}

// AllFacts returns every staged fact in insertion order
func (d *DB) AllFacts() ([]facts.Fact, error) {
	rows, err := d.conn.Query(`
		SELECT id, source, relation, target, created_at
		FROM dependencies ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []facts.Fact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, facts.Fact{Source: f.Source, Relation: f.Relation, Target: f.Target})
	}
	return out, rows.Err()
}

// FactsForNode returns all staged rows where name is source OR target.
func (d *DB) FactsForNode(name string) ([]FactRow, error) {
	rows, err := d.conn.Query(`
		SELECT id, source, relation, target, created_at
		FROM dependencies WHERE source = ? OR target = ?
		ORDER BY id
	`, name, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FactRow
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// RelationCounts returns how many facts of each relation type are staged,
// most frequent first.
func (d *DB) RelationCounts() ([]RelationCount, error) {
	rows, err := d.conn.Query(`
		SELECT relation, COUNT(*) AS n FROM dependencies
		GROUP BY relation ORDER BY n DESC, relation
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RelationCount
	for rows.Next() {
		var rc RelationCount
		if err := rows.Scan(&rc.Relation, &rc.Count); err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

// ClearFacts removes every staged fact, for a full re-ingest.
func (d *DB) ClearFacts() error {
	_, err := d.conn.Exec(`DELETE FROM dependencies`)
	return err
}

// SetRepo records the repository label the staged facts belong to.
func (d *DB) SetRepo(repo string) error {
	_, err := d.conn.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, metaRepoKey, repo)
	return err
}

// Repo returns the recorded repository label, or "" if none was set.
func (d *DB) Repo() (string, error) {
	var repo string
	err := d.conn.QueryRow(`SELECT value FROM meta WHERE key = ?`, metaRepoKey).Scan(&repo)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return repo, err
}

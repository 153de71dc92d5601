// Package output — run manifest.
// A SQLite file recording what each run emitted: documents with their paths,
// the derived asset set and every warning. Several runs may share one file.
package output

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gaurav-prasanna/dumppipe/core"
)

const manifestSchema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id     TEXT PRIMARY KEY,
	project    TEXT NOT NULL,
	source     TEXT NOT NULL,
	started_at INTEGER NOT NULL,
	documents  INTEGER NOT NULL,
	skipped    INTEGER NOT NULL,
	warnings   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS documents (
	run_id   TEXT NOT NULL,
	id       INTEGER NOT NULL,
	slug     TEXT NOT NULL,
	title    TEXT NOT NULL,
	template TEXT NOT NULL,
	path     TEXT NOT NULL,
	bytes    INTEGER NOT NULL,
	PRIMARY KEY (run_id, id)
);
CREATE TABLE IF NOT EXISTS assets (
	run_id TEXT NOT NULL,
	ref    TEXT NOT NULL,
	PRIMARY KEY (run_id, ref)
);
CREATE TABLE IF NOT EXISTS warnings (
	run_id  TEXT NOT NULL,
	stage   TEXT NOT NULL,
	ref     TEXT NOT NULL,
	message TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_slug ON documents(slug);
`

// Manifest is an open manifest database.
type Manifest struct {
	db *sql.DB
}

// DocumentEntry is one written document.
type DocumentEntry struct {
	ID       int64
	Slug     string
	Title    string
	Template string
	Path     string
	Bytes    int
}

// Run is everything recorded for one run.
type Run struct {
	ID        string
	Project   string
	Source    string // dump path or site URL
	StartedAt time.Time
	Documents []DocumentEntry
	Assets    []string
	Warnings  []core.Warning
	Skipped   int
}

// OpenManifest opens or creates the manifest at path.
func OpenManifest(path string) (*Manifest, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, dirPerms); err != nil {
			return nil, fmt.Errorf("creating manifest directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	if _, err := db.Exec(manifestSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing manifest schema: %w", err)
	}
	return &Manifest{db: db}, nil
}

// Close closes the database.
func (m *Manifest) Close() error {
	return m.db.Close()
}

// Record stores a run in one transaction.
func (m *Manifest) Record(ctx context.Context, run Run) (err error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning manifest transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, project, source, started_at, documents, skipped, warnings) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Project, run.Source, run.StartedAt.Unix(), len(run.Documents), run.Skipped, len(run.Warnings),
	); err != nil {
		return fmt.Errorf("recording run: %w", err)
	}

	docStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO documents (run_id, id, slug, title, template, path, bytes) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing document insert: %w", err)
	}
	defer docStmt.Close()
	for _, d := range run.Documents {
		if _, err = docStmt.ExecContext(ctx, run.ID, d.ID, d.Slug, d.Title, d.Template, d.Path, d.Bytes); err != nil {
			return fmt.Errorf("recording document %d: %w", d.ID, err)
		}
	}

	assetStmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO assets (run_id, ref) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing asset insert: %w", err)
	}
	defer assetStmt.Close()
	for _, ref := range run.Assets {
		if _, err = assetStmt.ExecContext(ctx, run.ID, ref); err != nil {
			return fmt.Errorf("recording asset %s: %w", ref, err)
		}
	}

	warnStmt, err := tx.PrepareContext(ctx, `INSERT INTO warnings (run_id, stage, ref, message) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing warning insert: %w", err)
	}
	defer warnStmt.Close()
	for _, w := range run.Warnings {
		if _, err = warnStmt.ExecContext(ctx, run.ID, w.Stage, w.Ref, w.Message); err != nil {
			return fmt.Errorf("recording warning: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing manifest: %w", err)
	}
	return nil
}

// Documents returns the documents recorded for a run, ordered by id.
func (m *Manifest) Documents(ctx context.Context, runID string) ([]DocumentEntry, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT id, slug, title, template, path, bytes FROM documents WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentEntry
	for rows.Next() {
		var d DocumentEntry
		if err := rows.Scan(&d.ID, &d.Slug, &d.Title, &d.Template, &d.Path, &d.Bytes); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Assets returns the asset references recorded for a run, sorted.
func (m *Manifest) Assets(ctx context.Context, runID string) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT ref FROM assets WHERE run_id = ? ORDER BY ref`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying assets: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, fmt.Errorf("scanning asset: %w", err)
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

// WarningCount returns the number of warnings recorded for a run.
func (m *Manifest) WarningCount(ctx context.Context, runID string) (int, error) {
	var n int
	err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM warnings WHERE run_id = ?`, runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting warnings: %w", err)
	}
	return n, nil
}

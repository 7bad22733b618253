/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	applog "labeldesigner/internal/log"
	"labeldesigner/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// IndexDirName stores the index data under the library root.
	IndexDirName  = ".labeldesigner"
	IndexFileName = "index.sqlite"

	// schemaVersion tracks the local SQLite schema for the embedded index.
	// Bump this when you perform breaking schema changes and add migrations.
	schemaVersion = 2

	// tsLayout has a fixed width so stored timestamps sort as text.
	tsLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Record is one indexed template.
type Record struct {
	ID        string
	Name      string
	File      string
	WidthMM   float64
	HeightMM  float64
	Objects   int
	SizeBytes int64
	UpdatedAt time.Time
}

// Query filters List. Name matches case-insensitively as a substring.
type Query struct {
	Name   string
	Limit  int
	Offset int
}

// IndexPath returns the full path to the library's index database file.
func IndexPath(root string) string {
	return filepath.Join(root, IndexDirName, IndexFileName)
}

// InitOrOpenIndex ensures that the SQLite index exists, opens it, enables WAL
// mode and brings the schema up to date.
func InitOrOpenIndex(root string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_init").With(
		slog.String("root", root),
	)
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("library root is required")
	}
	if err := os.MkdirAll(filepath.Join(root, IndexDirName), 0o755); err != nil {
		l.Error("create index dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	path := IndexPath(root)
	// Convert to forward slashes for SQLite URI.
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.Warn("enable foreign_keys failed", slog.Any("err", err))
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure index schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("index ready", slog.String("path", path))
	return db, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// A fresh database starts at version 1 and migrates forward.
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 1, ?, ?, ?)`, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// SchemaVersion reports the schema version stored in db.
func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return cur, nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	cur, err := SchemaVersion(ctx, db)
	if err != nil {
		return err
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = []string{
				`CREATE INDEX IF NOT EXISTS idx_templates_updated ON templates(updated_at);`,
				`CREATE INDEX IF NOT EXISTS idx_snapshots_template_ts ON snapshots(template_id, ts);`,
			}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS templates (
			id         TEXT    PRIMARY KEY,
			name       TEXT    NOT NULL UNIQUE,
			file       TEXT    NOT NULL,
			width_mm   REAL    NOT NULL,
			height_mm  REAL    NOT NULL,
			objects    INTEGER NOT NULL,
			size_bytes INTEGER NOT NULL,
			updated_at TEXT    NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			id          INTEGER PRIMARY KEY,
			template_id TEXT    NOT NULL,
			ts          TEXT    NOT NULL,
			text        TEXT    NOT NULL,
			FOREIGN KEY(template_id) REFERENCES templates(id) ON DELETE CASCADE
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	return nil
}

// language=SQL
// dialect=SQLite
const upsertTemplateSQL = `INSERT INTO templates(id, name, file, width_mm, height_mm, objects, size_bytes, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET file=excluded.file, width_mm=excluded.width_mm, height_mm=excluded.height_mm,
	objects=excluded.objects, size_bytes=excluded.size_bytes, updated_at=excluded.updated_at`

// language=SQL
// dialect=SQLite
const selectTemplateSQL = `SELECT id, name, file, width_mm, height_mm, objects, size_bytes, updated_at FROM templates`

func upsertTemplate(ctx context.Context, db *sql.DB, r Record) (Record, error) {
	if existing, err := getTemplate(ctx, db, r.Name); err == nil {
		r.ID = existing.ID
	} else if !errors.Is(err, ErrNotFound) {
		return Record{}, err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := db.ExecContext(ctx, upsertTemplateSQL, r.ID, r.Name, r.File, r.WidthMM, r.HeightMM, r.Objects, r.SizeBytes,
		r.UpdatedAt.UTC().Format(tsLayout))
	if err != nil {
		return Record{}, fmt.Errorf("index template: %w", err)
	}
	return r, nil
}

func getTemplate(ctx context.Context, db *sql.DB, name string) (Record, error) {
	row := db.QueryRowContext(ctx, selectTemplateSQL+` WHERE name = ?`, name)
	r, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return r, err
}

func deleteTemplate(ctx context.Context, db *sql.DB, name string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM templates WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("unindex template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

func scanRecord(scan func(...any) error) (Record, error) {
	var r Record
	var ts string
	if err := scan(&r.ID, &r.Name, &r.File, &r.WidthMM, &r.HeightMM, &r.Objects, &r.SizeBytes, &ts); err != nil {
		return Record{}, err
	}
	if t, err := time.Parse(tsLayout, ts); err == nil {
		r.UpdatedAt = t
	}
	return r, nil
}

// Get returns the index record of name.
func (l *Library) Get(ctx context.Context, name string) (Record, error) {
	return getTemplate(ctx, l.db, name)
}

// List returns indexed templates, most recently updated first.
func (l *Library) List(ctx context.Context, q Query) ([]Record, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = -1
	}
	rows, err := l.db.QueryContext(ctx,
		selectTemplateSQL+` WHERE instr(lower(name), lower(?)) > 0 ORDER BY updated_at DESC, name LIMIT ? OFFSET ?`,
		strings.TrimSpace(q.Name), limit, q.Offset)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Rebuild recreates the index from the template files. Names are the file
// stems; describe supplies the metadata. Files describe rejects are skipped
// and reported in the returned count of skipped files.
func (l *Library) Rebuild(ctx context.Context, describe Describer) (indexed, skipped int, err error) {
	lg := applog.WithOperation(l.log, "index_rebuild")
	names, err := l.Templates()
	if err != nil {
		return 0, 0, err
	}
	if _, err := l.db.ExecContext(ctx, `DELETE FROM templates;`); err != nil {
		return 0, 0, fmt.Errorf("clear index: %w", err)
	}
	for _, name := range names {
		path := filepath.Join(l.Root, TemplatesDirName, name+TemplateExt)
		b, err := os.ReadFile(path)
		if err != nil {
			lg.Warn("skip unreadable template", slog.String("path", path), slog.Any("err", err))
			skipped++
			continue
		}
		meta, err := describe(name, string(b))
		if err != nil {
			lg.Warn("skip invalid template", slog.String("path", path), slog.Any("err", err))
			skipped++
			continue
		}
		fi, _ := os.Stat(path)
		updated := time.Now().UTC()
		if fi != nil {
			updated = fi.ModTime().UTC()
		}
		if _, err := upsertTemplate(ctx, l.db, Record{
			Name: name, File: name + TemplateExt, WidthMM: meta.WidthMM, HeightMM: meta.HeightMM,
			Objects: meta.Objects, SizeBytes: int64(len(b)), UpdatedAt: updated,
		}); err != nil {
			return indexed, skipped, err
		}
		indexed++
	}
	lg.Info("index rebuilt", slog.Int("indexed", indexed), slog.Int("skipped", skipped))
	return indexed, skipped, nil
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// language=SQL
// dialect=SQLite
const insertSnapshotSQL = `INSERT INTO snapshots(template_id, ts, text) VALUES (?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectLatestSnapshotSQL = `SELECT ts, text FROM snapshots WHERE template_id = ? ORDER BY ts DESC, id DESC LIMIT 1`

// language=SQL
// dialect=SQLite
const listSnapshotsSQL = `SELECT ts, text FROM snapshots WHERE template_id = ? ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneOldSnapshotsSQL = `DELETE FROM snapshots WHERE template_id = ? AND id NOT IN (
	SELECT id FROM snapshots WHERE template_id = ? ORDER BY ts DESC, id DESC LIMIT ?
)`

// Snapshot is an autosaved version of a template.
type Snapshot struct {
	TS   time.Time
	Text string
}

func (l *Library) templateID(ctx context.Context, name string) (string, error) {
	r, err := getTemplate(ctx, l.db, name)
	if err != nil {
		return "", err
	}
	return r.ID, nil
}

// SaveSnapshot stores text as an autosave of the indexed template name.
func (l *Library) SaveSnapshot(ctx context.Context, name, text string, ts time.Time) error {
	id, err := l.templateID(ctx, name)
	if err != nil {
		return err
	}
	if _, err := l.db.ExecContext(ctx, insertSnapshotSQL, id, ts.UTC().Format(tsLayout), text); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the newest autosave of name. ok is false when there
// is none.
func (l *Library) LatestSnapshot(ctx context.Context, name string) (s Snapshot, ok bool, err error) {
	id, err := l.templateID(ctx, name)
	if err != nil {
		return Snapshot{}, false, err
	}
	var tsStr string
	err = l.db.QueryRowContext(ctx, selectLatestSnapshotSQL, id).Scan(&tsStr, &s.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}
	s.TS, _ = time.Parse(tsLayout, tsStr)
	return s, true, nil
}

// ListSnapshots returns up to limit most recent autosaves of name.
func (l *Library) ListSnapshots(ctx context.Context, name string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	id, err := l.templateID(ctx, name)
	if err != nil {
		return nil, err
	}
	rows, err := l.db.QueryContext(ctx, listSnapshotsSQL, id, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Snapshot
	for rows.Next() {
		var tsStr string
		var s Snapshot
		if err := rows.Scan(&tsStr, &s.Text); err != nil {
			return nil, err
		}
		s.TS, _ = time.Parse(tsLayout, tsStr)
		out = append(out, s)
	}
	return out, rows.Err()
}

// PruneOldSnapshots keeps at most keepLast autosaves of name.
func (l *Library) PruneOldSnapshots(ctx context.Context, name string, keepLast int) (int64, error) {
	if keepLast <= 0 {
		return 0, nil
	}
	id, err := l.templateID(ctx, name)
	if err != nil {
		return 0, err
	}
	res, err := l.db.ExecContext(ctx, pruneOldSnapshotsSQL, id, id, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

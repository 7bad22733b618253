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
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	applog "labeldesigner/internal/log"
)

const (
	TemplatesDirName = "templates"
	BackupsDirName   = "backups"
	TemplateExt      = ".html"
)

// ErrNotFound is returned for templates missing from the library.
var ErrNotFound = errors.New("template not found")

// Meta describes a template for the index.
type Meta struct {
	WidthMM  float64
	HeightMM float64
	Objects  int
}

// Describer derives index metadata from template text. It is used when the
// index is rebuilt from the files.
type Describer func(name, text string) (Meta, error)

// Library is a directory of label templates plus its index.
type Library struct {
	Root string
	db   *sql.DB
	log  *slog.Logger

	recovered bool
}

// OpenLibrary scaffolds root and opens its index.
func OpenLibrary(root string) (*Library, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("library root is required")
	}
	for _, d := range []string{TemplatesDirName, BackupsDirName} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	lg := applog.WithComponent("storage").With(slog.String("root", root))
	db, err := openHealthyIndex(root)
	recovered := false
	if err != nil {
		// The index is derived data; move the broken file aside and start over.
		lg.Warn("index unusable, recreating", slog.Any("err", err))
		backupIndexFile(IndexPath(root))
		_ = os.Remove(IndexPath(root))
		if db, err = InitOrOpenIndex(root); err != nil {
			return nil, err
		}
		recovered = true
	}
	return &Library{Root: root, db: db, log: lg, recovered: recovered}, nil
}

// Recovered reports whether the index had to be recreated on open. Callers
// should Rebuild it from the files.
func (l *Library) Recovered() bool { return l.recovered }

func openHealthyIndex(root string) (*sql.DB, error) {
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return nil, err
	}
	var chk string
	if err := db.QueryRow(`PRAGMA quick_check;`).Scan(&chk); err != nil || !strings.Contains(strings.ToLower(chk), "ok") {
		_ = db.Close()
		return nil, fmt.Errorf("index quick_check failed: %q %v", chk, err)
	}
	return db, nil
}

// backupIndexFile copies the index file into a timestamped backup next to it.
func backupIndexFile(indexPath string) {
	bdir := filepath.Join(filepath.Dir(indexPath), "backups")
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), stamp))
	if data, err := os.ReadFile(indexPath); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}

// Close releases the index.
func (l *Library) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// DB exposes the index for queries not covered here.
func (l *Library) DB() *sql.DB { return l.db }

// Slug turns a template name into its file stem.
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Path returns the file path of the template name.
func (l *Library) Path(name string) string {
	return filepath.Join(l.Root, TemplatesDirName, Slug(name)+TemplateExt)
}

// Save writes text for name with a backup of the previous version and
// updates the index.
func (l *Library) Save(ctx context.Context, name, text string, meta Meta) (Record, error) {
	if Slug(name) == "" {
		return Record{}, fmt.Errorf("invalid template name %q", name)
	}
	path := l.Path(name)
	if err := l.backup(path); err != nil {
		return Record{}, err
	}
	if err := writeAtomic(path, []byte(text)); err != nil {
		return Record{}, err
	}
	rec, err := upsertTemplate(ctx, l.db, Record{
		Name: name, File: filepath.Base(path),
		WidthMM: meta.WidthMM, HeightMM: meta.HeightMM, Objects: meta.Objects,
		SizeBytes: int64(len(text)), UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return Record{}, err
	}
	l.log.InfoContext(ctx, "template saved", slog.String("name", name), slog.String("path", path))
	return rec, nil
}

// Load returns the text of name. When the file exists but cannot be read the
// latest backup is returned instead.
func (l *Library) Load(name string) (string, error) {
	path := l.Path(name)
	b, err := os.ReadFile(path)
	if err == nil {
		return string(b), nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	text, berr := l.LatestBackup(name)
	if berr != nil {
		return "", fmt.Errorf("read template: %w; backup attempt: %v", err, berr)
	}
	l.log.Warn("template restored from backup", slog.String("name", name), slog.Any("err", err))
	return text, nil
}

// Delete removes the template file and its index entry. Backups are kept.
func (l *Library) Delete(ctx context.Context, name string) error {
	path := l.Path(name)
	if err := l.backup(path); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove template: %w", err)
	}
	return deleteTemplate(ctx, l.db, name)
}

// AutosaveCrash writes text next to the backups so a crash never loses the
// current design. It returns the written path.
func (l *Library) AutosaveCrash(name, text string) (string, error) {
	stem := Slug(name)
	if stem == "" {
		stem = "untitled"
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(l.Root, BackupsDirName, fmt.Sprintf("%s.crash-%s%s", stem, stamp, TemplateExt))
	if err := writeAtomic(path, []byte(text)); err != nil {
		return "", err
	}
	return path, nil
}

func (l *Library) backup(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	stamp := time.Now().Format("20060102-150405.000")
	stem := strings.TrimSuffix(filepath.Base(path), TemplateExt)
	bpath := filepath.Join(l.Root, BackupsDirName, fmt.Sprintf("%s%s.%s.bak", stem, TemplateExt, stamp))
	if err := copyFile(path, bpath); err != nil {
		return fmt.Errorf("backup current template: %w", err)
	}
	return nil
}

// LatestBackup returns the newest backup of name.
func (l *Library) LatestBackup(name string) (string, error) {
	stem := Slug(name)
	bdir := filepath.Join(l.Root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return "", fmt.Errorf("read backups dir: %w", err)
	}
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, stem+TemplateExt+".") && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: no backups of %s", ErrNotFound, name)
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	b, err := os.ReadFile(candidates[len(candidates)-1])
	if err != nil {
		return "", fmt.Errorf("read latest backup: %w", err)
	}
	return string(b), nil
}

// Templates lists the names of all template files, sorted.
func (l *Library) Templates() ([]string, error) {
	ents, err := os.ReadDir(filepath.Join(l.Root, TemplatesDirName))
	if err != nil {
		return nil, fmt.Errorf("read templates dir: %w", err)
	}
	var out []string
	for _, e := range ents {
		if !e.IsDir() && strings.HasSuffix(e.Name(), TemplateExt) {
			out = append(out, strings.TrimSuffix(e.Name(), TemplateExt))
		}
	}
	sort.Strings(out)
	return out, nil
}

// writeAtomic writes to a temp file in the same directory, then renames it
// over the target.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

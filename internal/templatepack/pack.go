/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

// Package templatepack moves library templates between machines as a zip
// archive. The manifest carries the label sizes, which the template text
// itself does not record.
package templatepack

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	applog "labeldesigner/internal/log"
	"labeldesigner/internal/storage"
	"labeldesigner/internal/version"
)

// ManifestName is the archive entry describing the pack.
const ManifestName = "templatepack.json"

// maxTemplateSize bounds a single extracted template.
const maxTemplateSize = 8 << 20

// Manifest lists the packed templates.
type Manifest struct {
	Created   time.Time `json:"created"`
	Generator string    `json:"generator"`
	Templates []Entry   `json:"templates"`
}

// Entry is one packed template. File is the slash separated archive path.
type Entry struct {
	Name     string  `json:"name"`
	File     string  `json:"file"`
	WidthMM  float64 `json:"widthMM"`
	HeightMM float64 `json:"heightMM"`
}

// Export writes every indexed template of lib into a zip at destZipPath and
// returns the number of templates packed.
func Export(ctx context.Context, lib *storage.Library, destZipPath string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("templatepack"), "export").With(slog.String("library", lib.Root))
	if strings.TrimSpace(destZipPath) == "" {
		return 0, errors.New("destZipPath is required")
	}
	recs, err := lib.List(ctx, storage.Query{})
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(destZipPath), 0o755); err != nil {
		return 0, fmt.Errorf("ensure zip dir: %w", err)
	}
	// On Windows, remove destination if present before create
	_ = os.Remove(destZipPath)

	zf, err := os.Create(destZipPath)
	if err != nil {
		return 0, fmt.Errorf("create zip: %w", err)
	}
	zw := zip.NewWriter(zf)

	m := Manifest{Created: time.Now().UTC(), Generator: "labeldesigner " + version.Version}
	for _, r := range recs {
		text, err := lib.Load(r.Name)
		if err != nil {
			l.Warn("skip unreadable template", slog.String("name", r.Name), slog.Any("err", err))
			continue
		}
		file := path.Join(storage.TemplatesDirName, storage.Slug(r.Name)+storage.TemplateExt)
		w, err := zw.Create(file)
		if err != nil {
			_ = zw.Close()
			_ = zf.Close()
			return 0, fmt.Errorf("add %s: %w", file, err)
		}
		if _, err := io.WriteString(w, text); err != nil {
			_ = zw.Close()
			_ = zf.Close()
			return 0, fmt.Errorf("write %s: %w", file, err)
		}
		m.Templates = append(m.Templates, Entry{Name: r.Name, File: file, WidthMM: r.WidthMM, HeightMM: r.HeightMM})
	}

	w, err := zw.Create(ManifestName)
	if err == nil {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(m)
	}
	if err != nil {
		_ = zw.Close()
		_ = zf.Close()
		return 0, fmt.Errorf("write manifest: %w", err)
	}
	if err := zw.Close(); err != nil {
		_ = zf.Close()
		return 0, fmt.Errorf("finish zip: %w", err)
	}
	if err := zf.Close(); err != nil {
		return 0, err
	}
	l.Info("template pack exported", slog.Int("templates", len(m.Templates)), slog.String("zip", destZipPath))
	return len(m.Templates), nil
}

// Install adds the templates of the pack at packZipPath to lib. Templates
// already in the library are not overwritten. describe supplies the object
// count; templates it rejects are still installed. Returns the number of
// templates installed.
func Install(ctx context.Context, lib *storage.Library, packZipPath string, describe storage.Describer) (int, error) {
	l := applog.WithOperation(applog.WithComponent("templatepack"), "install").With(slog.String("library", lib.Root))
	if strings.TrimSpace(packZipPath) == "" {
		return 0, errors.New("packZipPath is required")
	}
	r, err := zip.OpenReader(packZipPath)
	if err != nil {
		return 0, fmt.Errorf("open pack: %w", err)
	}
	defer func() { _ = r.Close() }()

	files := map[string]*zip.File{}
	var m Manifest
	for _, f := range r.File {
		if f.Name == ManifestName {
			if err := readJSON(f, &m); err != nil {
				return 0, fmt.Errorf("read manifest: %w", err)
			}
			continue
		}
		files[f.Name] = f
	}
	// Packs without a manifest install every template file, unsized.
	if len(m.Templates) == 0 {
		for name := range files {
			stem := strings.TrimSuffix(path.Base(name), storage.TemplateExt)
			if path.Ext(name) == storage.TemplateExt && stem != "" {
				m.Templates = append(m.Templates, Entry{Name: stem, File: name})
			}
		}
	}

	installed := 0
	for _, e := range m.Templates {
		f, ok := files[e.File]
		if !ok || !safePath(e.File) {
			l.Warn("skip missing or unsafe entry", slog.String("file", e.File))
			continue
		}
		if _, err := os.Stat(lib.Path(e.Name)); err == nil {
			l.Warn("skip existing template", slog.String("name", e.Name))
			continue
		}
		text, err := readText(f)
		if err != nil {
			return installed, fmt.Errorf("read %s: %w", e.File, err)
		}
		meta := storage.Meta{}
		if describe != nil {
			if dm, err := describe(e.Name, text); err == nil {
				meta = dm
			} else {
				l.Warn("template has no design payload", slog.String("name", e.Name), slog.Any("err", err))
			}
		}
		meta.WidthMM, meta.HeightMM = e.WidthMM, e.HeightMM
		if _, err := lib.Save(ctx, e.Name, text, meta); err != nil {
			return installed, err
		}
		installed++
	}
	l.Info("template pack installed", slog.Int("templates", installed))
	return installed, nil
}

func safePath(name string) bool {
	clean := path.Clean(name)
	return !path.IsAbs(clean) && clean != ".." && !strings.HasPrefix(clean, "../")
}

func readText(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = rc.Close() }()
	b, err := io.ReadAll(io.LimitReader(rc, maxTemplateSize+1))
	if err != nil {
		return "", err
	}
	if len(b) > maxTemplateSize {
		return "", errors.New("template too large")
	}
	return string(b), nil
}

func readJSON(f *zip.File, dest any) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()
	return json.NewDecoder(rc).Decode(dest)
}

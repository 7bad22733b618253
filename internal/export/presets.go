/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0
 */

package export

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	applog "labeldesigner/internal/log"
	"labeldesigner/internal/storage"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// BatchOptions controls batch export of one label to several formats.
//
// Path semantics:
//   - OutDir is created if missing; empty means the current directory.
//   - Files are named <slug>.<format>, the slug derived from the label name.
//
//nolint:revive // keep fields explicit for clarity
type BatchOptions struct {
	Preset        PresetName
	Formats       []string // allowed: pdf, png, svg; empty means preset defaults
	DPIOverride   float64  // when > 0 overrides the preset's DPI
	IncludeGuides *bool    // when set, overrides preset's default for guides
	OutDir        string
}

// Writer renders a label to w.
type Writer func(w io.Writer, l Label, opt Options) error

// Writers maps format names to renderers.
var Writers = map[string]Writer{
	"svg": WriteSVG,
	"pdf": WritePDF,
	"png": WritePNG,
}

// BatchExport writes l in every requested format and returns the written paths.
func BatchExport(l Label, opt BatchOptions) ([]string, error) {
	lg := applog.WithOperation(applog.WithComponent("export"), "batch")
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	ro := Options{IncludeGuides: presetIncludeGuides(opt.Preset), DPI: presetDPI(opt.Preset)}
	if opt.IncludeGuides != nil {
		ro.IncludeGuides = *opt.IncludeGuides
	}
	if opt.DPIOverride > 0 {
		ro.DPI = opt.DPIOverride
	}
	outDir := opt.OutDir
	if outDir == "" {
		outDir = "."
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	stem := storage.Slug(l.Name)
	if stem == "" {
		stem = "label"
	}

	var written []string
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		wr, ok := Writers[f]
		if !ok {
			return written, fmt.Errorf("unknown format: %s", f)
		}
		path := filepath.Join(outDir, stem+"."+f)
		if err := writeFile(path, func(w io.Writer) error { return wr(w, l, ro) }); err != nil {
			return written, fmt.Errorf("%s: %w", f, err)
		}
		lg.Info("exported", slog.String("format", f), slog.String("path", path))
		written = append(written, path)
	}
	return written, nil
}

func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := render(bw); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetWeb:
		return []string{"png", "svg"}
	case PresetPrint:
		return []string{"pdf", "png"}
	default:
		return []string{"pdf"}
	}
}

func presetIncludeGuides(p PresetName) bool {
	switch p {
	case PresetWeb:
		return false
	default:
		return true
	}
}

func presetDPI(p PresetName) float64 {
	switch p {
	case PresetWeb:
		return 96
	default:
		return 300
	}
}

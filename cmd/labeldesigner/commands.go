/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"labeldesigner/internal/backend"
	"labeldesigner/internal/designer"
	"labeldesigner/internal/editor"
	"labeldesigner/internal/export"
	"labeldesigner/internal/storage"
	"labeldesigner/internal/templatepack"
	"labeldesigner/internal/ui"
	"labeldesigner/internal/units"
)

// openLibrary opens dir, or the configured library when dir is empty.
func (e *env) openLibrary(dir string) (*storage.Library, error) {
	if strings.TrimSpace(dir) == "" {
		dir = e.cfg.Library.Dir
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	lib, err := storage.OpenLibrary(abs)
	if err != nil {
		return nil, err
	}
	if lib.Recovered() {
		fmt.Fprintln(e.stderr, "Warning: the library index was damaged and has been recreated; run 'library rebuild'")
	}
	return lib, nil
}

// session mounts a designer for t and loads text into it.
func (e *env) session(t editor.TemplateInfo, text string, lib *storage.Library) (*designer.Session, error) {
	ps, err := e.cfg.Editor.PageSettings()
	if err != nil {
		ps = editor.DefaultPageSettings()
	}
	s, err := designer.New(designer.Options{
		Template:      t,
		PageSettings:  ps,
		Surface:       e.cfg.Editor.SurfaceOptions(),
		Library:       lib,
		KeepSnapshots: e.cfg.Library.Snapshots,
	})
	if err != nil {
		return nil, err
	}
	if text != "" {
		if err := s.SetCode(text); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// source is a template read from a file or the library.
type source struct {
	name string
	text string
	rec  storage.Record
}

// readSource resolves either a positional file or a template of lib.
func readSource(ctx context.Context, lib *storage.Library, args []string, template string) (source, error) {
	switch {
	case template != "" && len(args) > 0:
		return source{}, usagef("pass a file or -template, not both")
	case template != "":
		if lib == nil {
			return source{}, errors.New("no library open")
		}
		text, err := lib.Load(template)
		if err != nil {
			return source{}, err
		}
		rec, err := lib.Get(ctx, template)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return source{}, err
		}
		return source{name: template, text: text, rec: rec}, nil
	case len(args) == 1:
		b, err := os.ReadFile(args[0])
		if err != nil {
			return source{}, err
		}
		stem := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		return source{name: stem, text: string(b)}, nil
	}
	return source{}, usagef("expected one template file or -template")
}

// libraryFor opens the library only when a template name is given. The
// returned func closes it.
func (e *env) libraryFor(template, dir string) (*storage.Library, func(), error) {
	if template == "" {
		return nil, func() {}, nil
	}
	lib, err := e.openLibrary(dir)
	if err != nil {
		return nil, nil, err
	}
	return lib, func() { _ = lib.Close() }, nil
}

// size picks the label size from flags, then from the library record.
func (src source) size(width, height float64) (float64, float64, error) {
	if width <= 0 {
		width = src.rec.WidthMM
	}
	if height <= 0 {
		height = src.rec.HeightMM
	}
	if width <= 0 || height <= 0 {
		return 0, 0, usagef("label size of %q unknown; pass -width and -height in mm", src.name)
	}
	return width, height, nil
}

func writeOut(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(text), 0o644)
}

func (e *env) cmdNew(ctx context.Context, args []string) error {
	fs := e.flags("new")
	name := fs.String("name", "", "template name")
	width := fs.Float64("width", 0, "label width in mm")
	height := fs.Float64("height", 0, "label height in mm")
	out := fs.String("o", "", "write the template to this file instead of stdout")
	save := fs.Bool("save", false, "store the template in the library")
	libDir := fs.String("library", "", "library directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*name) == "" || *width <= 0 || *height <= 0 {
		return usagef("new requires -name, -width and -height")
	}
	var lib *storage.Library
	if *save {
		l, err := e.openLibrary(*libDir)
		if err != nil {
			return err
		}
		defer l.Close()
		lib = l
	}
	s, err := e.session(editor.TemplateInfo{Name: *name, WidthMM: *width, HeightMM: *height}, "", lib)
	if err != nil {
		return err
	}
	defer s.Close()
	text, err := s.GetCode()
	if err != nil {
		return err
	}
	if *save {
		rec, err := s.Save(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "Saved %s to %s\n", rec.Name, lib.Path(rec.Name))
	}
	if *out != "" {
		if err := writeOut(*out, text); err != nil {
			return err
		}
		fmt.Fprintln(e.stdout, "Created", *out)
		return nil
	}
	if !*save {
		fmt.Fprint(e.stdout, text)
	}
	return nil
}

func (e *env) cmdInfo(args []string) error {
	fs := e.flags("info")
	if err := fs.Parse(args); err != nil {
		return err
	}
	src, err := readSource(context.Background(), nil, fs.Args(), "")
	if err != nil {
		return err
	}
	// Geometry is stored in pixels, so the page size does not matter here.
	s, err := e.session(editor.TemplateInfo{Name: src.name, WidthMM: 1, HeightMM: 1}, src.text, nil)
	if err != nil {
		return err
	}
	defer s.Close()
	objs := s.Store.Get().Objects
	fmt.Fprintf(e.stdout, "Template: %s\n", src.name)
	fmt.Fprintf(e.stdout, "Objects: %d\n", len(objs))
	for _, o := range objs {
		x, _ := units.ToUnitSigned(o.Left, units.Millimeter)
		y, _ := units.ToUnitSigned(o.Top, units.Millimeter)
		w, _ := units.ToUnit(o.ScaledWidth(), units.Millimeter)
		h, _ := units.ToUnit(o.ScaledHeight(), units.Millimeter)
		fmt.Fprintf(e.stdout, "  %-7s %-16q at %s,%s mm  size %sx%s mm  angle %v\n",
			o.Kind, o.Name, num(x), num(y), num(w), num(h), o.Angle)
	}
	return nil
}

func num(v float64) string { return fmt.Sprint(units.Round(v, 2)) }

func (e *env) cmdRender(ctx context.Context, args []string) error {
	fs := e.flags("render")
	preset := fs.String("preset", string(export.PresetPrint), "export preset: web or print")
	formats := fs.String("format", "", "comma separated formats (pdf,png,svg); empty uses the preset")
	dpi := fs.Float64("dpi", 0, "raster resolution, overrides the preset")
	guides := fs.String("guides", "", "true or false, overrides the preset")
	out := fs.String("out", "exports", "output directory")
	width := fs.Float64("width", 0, "label width in mm")
	height := fs.Float64("height", 0, "label height in mm")
	tmpl := fs.String("template", "", "render a library template instead of a file")
	libDir := fs.String("library", "", "library directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	lib, done, err := e.libraryFor(*tmpl, *libDir)
	if err != nil {
		return err
	}
	defer done()
	src, err := readSource(ctx, lib, fs.Args(), *tmpl)
	if err != nil {
		return err
	}
	w, h, err := src.size(*width, *height)
	if err != nil {
		return err
	}
	s, err := e.session(editor.TemplateInfo{Name: src.name, WidthMM: w, HeightMM: h}, src.text, nil)
	if err != nil {
		return err
	}
	defer s.Close()
	lbl, err := s.Label()
	if err != nil {
		return err
	}

	opt := export.BatchOptions{Preset: export.PresetName(*preset), DPIOverride: *dpi, OutDir: *out}
	if *formats != "" {
		opt.Formats = strings.Split(*formats, ",")
	}
	switch strings.ToLower(*guides) {
	case "":
	case "true", "1", "yes":
		v := true
		opt.IncludeGuides = &v
	case "false", "0", "no":
		v := false
		opt.IncludeGuides = &v
	default:
		return usagef("invalid -guides %q", *guides)
	}
	paths, err := export.BatchExport(lbl, opt)
	for _, p := range paths {
		fmt.Fprintln(e.stdout, "Wrote", p)
	}
	return err
}

func (e *env) cmdLibrary(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usagef("library requires list, save, show, export, import or rebuild")
	}
	sub, rest := args[0], args[1:]
	fs := e.flags("library " + sub)
	libDir := fs.String("library", "", "library directory")
	query := fs.String("q", "", "list: filter by name")
	limit := fs.Int("limit", 0, "list: maximum number of templates")
	name := fs.String("name", "", "save: template name (default: file name)")
	width := fs.Float64("width", 0, "save: label width in mm")
	height := fs.Float64("height", 0, "save: label height in mm")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	lib, err := e.openLibrary(*libDir)
	if err != nil {
		return err
	}
	defer lib.Close()

	switch sub {
	case "list":
		recs, err := lib.List(ctx, storage.Query{Name: *query, Limit: *limit})
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Fprintln(e.stdout, "No templates")
			return nil
		}
		for _, r := range recs {
			fmt.Fprintf(e.stdout, "%-24s %6sx%-6s mm  %2d objects  %s\n",
				r.Name, num(r.WidthMM), num(r.HeightMM), r.Objects, r.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}
		return nil

	case "save":
		src, err := readSource(ctx, nil, fs.Args(), "")
		if err != nil {
			return err
		}
		if *name != "" {
			src.name = *name
		}
		meta, err := designer.Describe(src.name, src.text)
		if err != nil {
			return err
		}
		meta.WidthMM, meta.HeightMM = *width, *height
		rec, err := lib.Save(ctx, src.name, src.text, meta)
		if err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "Saved %s (%d objects) to %s\n", rec.Name, rec.Objects, lib.Path(rec.Name))
		return nil

	case "show":
		if fs.NArg() != 1 {
			return usagef("library show requires a template name")
		}
		text, err := lib.Load(fs.Arg(0))
		if err != nil {
			return err
		}
		fmt.Fprint(e.stdout, text)
		return nil

	case "export", "import":
		if fs.NArg() != 1 {
			return usagef("library %s requires a zip file", sub)
		}
		if sub == "export" {
			n, err := templatepack.Export(ctx, lib, fs.Arg(0))
			if err != nil {
				return err
			}
			fmt.Fprintf(e.stdout, "Packed %d templates into %s\n", n, fs.Arg(0))
			return nil
		}
		n, err := templatepack.Install(ctx, lib, fs.Arg(0), designer.Describe)
		if err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "Installed %d templates\n", n)
		return nil

	case "rebuild":
		n, skipped, err := lib.Rebuild(ctx, designer.Describe)
		if err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "Indexed %d templates, skipped %d\n", n, skipped)
		return nil
	}
	return usagef("unknown library command %q", sub)
}

func (e *env) client() (*backend.Client, error) {
	if strings.TrimSpace(e.cfg.Server.BaseURL) == "" {
		return nil, usagef("no server configured; set server.base_url or LD_SERVER_URL")
	}
	return backend.NewClient(e.cfg.Server.BaseURL, e.token,
		backend.WithTimeout(e.cfg.Server.Timeout()),
		backend.WithInsecureTLS(e.cfg.Server.TLSInsecure)), nil
}

func (e *env) cmdPull(ctx context.Context, args []string) error {
	fs := e.flags("pull")
	kindFlag := fs.String("kind", string(backend.KindPart), "label kind: part, stock, location, buildline")
	pk := fs.Int64("pk", 0, "template id on the server")
	out := fs.String("o", "", "write to this file instead of the library")
	libDir := fs.String("library", "", "library directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	kind, err := backend.ParseKind(*kindFlag)
	if err != nil {
		return usagef("%v", err)
	}
	if *pk <= 0 {
		return usagef("pull requires -pk")
	}
	c, err := e.client()
	if err != nil {
		return err
	}
	t, err := c.GetTemplate(ctx, kind, *pk)
	if err != nil {
		return err
	}
	text, err := c.Download(ctx, t)
	if err != nil {
		return err
	}
	if *out != "" {
		if err := writeOut(*out, text); err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "Downloaded %s (%vx%v mm) to %s\n", t.Name, t.Width, t.Height, *out)
		return nil
	}

	lib, err := e.openLibrary(*libDir)
	if err != nil {
		return err
	}
	defer lib.Close()
	meta := storage.Meta{WidthMM: t.Width, HeightMM: t.Height}
	if m, err := designer.Describe(t.Name, text); err == nil {
		meta.Objects = m.Objects
	} else {
		e.log.Warn("template has no design payload", slog.String("name", t.Name), slog.Any("err", err))
	}
	rec, err := lib.Save(ctx, t.Name, text, meta)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "Pulled %s (%s #%d) into %s\n", rec.Name, kind, *pk, lib.Path(rec.Name))
	return nil
}

func (e *env) cmdPush(ctx context.Context, args []string) error {
	fs := e.flags("push")
	kindFlag := fs.String("kind", string(backend.KindPart), "label kind: part, stock, location, buildline")
	pk := fs.Int64("pk", 0, "template id on the server")
	tmpl := fs.String("template", "", "push a library template instead of a file")
	libDir := fs.String("library", "", "library directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	kind, err := backend.ParseKind(*kindFlag)
	if err != nil {
		return usagef("%v", err)
	}
	if *pk <= 0 {
		return usagef("push requires -pk")
	}
	lib, done, err := e.libraryFor(*tmpl, *libDir)
	if err != nil {
		return err
	}
	defer done()
	src, err := readSource(ctx, lib, fs.Args(), *tmpl)
	if err != nil {
		return err
	}
	if _, err := designer.Describe(src.name, src.text); err != nil {
		return fmt.Errorf("refusing to upload %s: %w", src.name, err)
	}
	c, err := e.client()
	if err != nil {
		return err
	}
	filename := storage.Slug(src.name) + storage.TemplateExt
	t, err := c.Upload(ctx, kind, *pk, filename, src.text)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "Uploaded %s to %s #%d (%s)\n", filename, kind, t.PK, t.Name)
	return nil
}

func (e *env) cmdUI(ctx context.Context, args []string) error {
	fs := e.flags("ui")
	tmpl := fs.String("template", "", "open a library template")
	name := fs.String("name", "untitled", "name of a new template")
	width := fs.Float64("width", 0, "label width in mm")
	height := fs.Float64("height", 0, "label height in mm")
	libDir := fs.String("library", "", "library directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	lib, err := e.openLibrary(*libDir)
	if err != nil {
		return err
	}
	defer lib.Close()

	opts := ui.Options{Config: e.cfg, Library: lib}
	info := editor.TemplateInfo{Name: *name, WidthMM: *width, HeightMM: *height}
	if *tmpl != "" || fs.NArg() > 0 {
		src, err := readSource(ctx, lib, fs.Args(), *tmpl)
		if err != nil {
			return err
		}
		w, h, err := src.size(*width, *height)
		if err != nil {
			return err
		}
		info = editor.TemplateInfo{Name: src.name, WidthMM: w, HeightMM: h}
		opts.Text = src.text
	}
	if info.WidthMM <= 0 || info.HeightMM <= 0 {
		info.WidthMM, info.HeightMM = 50, 30
	}
	opts.Template = info
	return ui.Run(opts)
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package designer runs one label editing session: the store, the mounted
// surface, the panels, undo history and the text boundary to the template
// editor.
package designer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"labeldesigner/internal/codec"
	"labeldesigner/internal/editor"
	"labeldesigner/internal/export"
	applog "labeldesigner/internal/log"
	"labeldesigner/internal/objects"
	"labeldesigner/internal/panels"
	"labeldesigner/internal/scene"
	"labeldesigner/internal/storage"
	"labeldesigner/internal/store"
	"labeldesigner/internal/undo"
)

// Mode is what the session currently shows.
type Mode int

const (
	// ModeDesign is the visual editor.
	ModeDesign Mode = iota
	// ModeParseFailure shows the warning overlay after a failed load. The
	// text is kept until DiscardInvalid or AbortToRaw.
	ModeParseFailure
	// ModeRaw hands the unparsed text back to the text editor.
	ModeRaw
)

func (m Mode) String() string {
	switch m {
	case ModeDesign:
		return "design"
	case ModeParseFailure:
		return "parse-failure"
	case ModeRaw:
		return "raw"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ErrNoLibrary is returned by operations that need a template library.
var ErrNoLibrary = errors.New("no template library configured")

// ErrNotDesigning is returned for edits outside ModeDesign.
var ErrNotDesigning = errors.New("session is not in design mode")

// Options configure a session.
type Options struct {
	Template     editor.TemplateInfo
	PageSettings editor.PageSettings
	Surface      editor.Options
	Registry     *objects.Registry
	// CanvasWidth and CanvasHeight size the drawing surface; 0 means 800x600.
	CanvasWidth, CanvasHeight float64
	// Library, when set, receives saves, autosave snapshots and crash autosaves.
	Library *storage.Library
	// KeepSnapshots bounds the autosave snapshots per template; 0 keeps all.
	KeepSnapshots int
	Undo          undo.Config
	// Clock stamps undo entries; nil means time.Now.
	Clock func() time.Time
}

// Session is one mounted editor.
type Session struct {
	ID string

	Store    *editor.Store
	Canvas   *scene.Canvas
	Surface  *editor.Surface
	Registry *objects.Registry
	Left     *panels.LeftPanel
	Right    *panels.RightPanel
	Footer   *panels.Footer

	lib       *storage.Library
	keep      int
	history   *undo.Manager
	hooks     []func()
	now       func() time.Time
	log       *slog.Logger
	offs      []func()
	mode      Mode
	raw       string
	parseErr  error
	restoring bool
	pending   *editor.Task
}

// New mounts a session for opts.Template with an empty design.
func New(opts Options) (*Session, error) {
	if opts.Registry == nil {
		opts.Registry = objects.Default()
	}
	ps := opts.PageSettings
	if ps == (editor.PageSettings{}) {
		ps = editor.DefaultPageSettings()
	}
	st, err := editor.NewStore(opts.Template, ps)
	if err != nil {
		return nil, err
	}
	w, h := opts.CanvasWidth, opts.CanvasHeight
	if w <= 0 || h <= 0 {
		w, h = 800, 600
	}
	c := scene.NewCanvas(w, h)
	surf := editor.NewSurface(c, st, opts.Registry, opts.Surface)
	if err := surf.Mount(); err != nil {
		return nil, err
	}
	s := &Session{
		ID:       uuid.NewString(),
		Store:    st,
		Canvas:   c,
		Surface:  surf,
		Registry: opts.Registry,
		lib:      opts.Library,
		keep:     opts.KeepSnapshots,
		history:  undo.NewManager(opts.Undo),
		now:      opts.Clock,
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.log = applog.WithComponent("designer").With(slog.String("session", s.ID))

	env := panels.Env{Store: st, Canvas: c, Viewport: surf}
	s.Left = panels.NewLeftPanel(env, opts.Registry)
	s.Right = panels.NewRightPanel(env, opts.Registry)
	s.Footer = panels.NewFooter(env)

	schedule := func(*scene.Event) { s.scheduleCapture() }
	s.offs = append(s.offs,
		c.On(scene.ObjectAdded, schedule),
		c.On(scene.ObjectRemoved, schedule),
		c.On(scene.ObjectModified, schedule),
		store.Watch(st, editor.SelectPageSettings, editor.SameSettings, func(_, _ editor.PageSettings) { s.scheduleCapture() }),
	)
	s.resetHistory()
	s.log.Info("session started", slog.String("template", opts.Template.Name))
	return s, nil
}

// Close unmounts the surface and releases the panels.
func (s *Session) Close() {
	for i := len(s.offs) - 1; i >= 0; i-- {
		s.offs[i]()
	}
	s.offs = nil
	s.Footer.Close()
	s.Right.Close()
	s.Surface.Unmount()
	s.history.Clear(s.doc())
}

// Mode reports what the session shows.
func (s *Session) Mode() Mode { return s.mode }

// ParseError is the reason of the last failed load, nil otherwise.
func (s *Session) ParseError() error { return s.parseErr }

// Template is the label template being edited.
func (s *Session) Template() editor.TemplateInfo { return s.Store.Get().Template }

// SetTemplate changes the template metadata and page size.
func (s *Session) SetTemplate(t editor.TemplateInfo) error {
	return editor.SetTemplate(s.Store, t)
}

// SetCode loads text. A parse failure leaves the design untouched and moves
// the session to ModeParseFailure with text kept verbatim.
func (s *Session) SetCode(text string) error {
	lg := applog.WithOperation(s.log, "load")
	r, err := codec.Deserialize(text)
	if err == nil {
		s.restoring = true
		err = r.Apply(s.Store, s.Canvas)
		s.restoring = false
	}
	if err != nil {
		s.mode, s.raw, s.parseErr = ModeParseFailure, text, err
		lg.Warn("template could not be parsed", slog.Any("err", err))
		return err
	}
	s.mode, s.raw, s.parseErr = ModeDesign, "", nil
	s.Surface.Queue().Flush()
	s.resetHistory()
	lg.Debug("template loaded", slog.Int("objects", len(r.Objects)))
	return nil
}

// GetCode returns the document. Outside ModeDesign the kept text is
// returned unchanged.
func (s *Session) GetCode() (string, error) {
	if s.mode != ModeDesign {
		return s.raw, nil
	}
	return codec.Serialize(s.Store.Get(), s.Canvas, s.Registry)
}

// DiscardInvalid drops the unparsable text and continues with an empty
// design.
func (s *Session) DiscardInvalid() {
	if s.mode == ModeDesign {
		return
	}
	s.restoring = true
	_, _ = s.Canvas.LoadObjects(nil)
	s.restoring = false
	s.mode, s.raw, s.parseErr = ModeDesign, "", nil
	s.resetHistory()
	s.log.Info("invalid template discarded")
}

// AbortToRaw leaves the failure overlay for the raw text view.
func (s *Session) AbortToRaw() {
	if s.mode == ModeParseFailure {
		s.mode = ModeRaw
	}
}

// AddObject places a new object of kind from the palette.
func (s *Session) AddObject(kind scene.Kind) (*scene.Object, error) {
	if s.mode != ModeDesign {
		return nil, ErrNotDesigning
	}
	return s.Left.Add(kind)
}

// Tick runs deferred surface work; hosts call it once per frame.
func (s *Session) Tick() int { return s.Surface.Queue().Flush() }

// KeyDown routes undo and redo shortcuts, then the surface keys.
func (s *Session) KeyDown(k editor.KeyEvent) bool {
	if s.mode != ModeDesign || k.InTextInput() {
		return false
	}
	if k.Ctrl && strings.EqualFold(k.Key, "z") {
		if k.Shift {
			return s.Redo()
		}
		return s.Undo()
	}
	if k.Ctrl && strings.EqualFold(k.Key, "y") {
		return s.Redo()
	}
	return s.Surface.KeyDown(k)
}

// KeyUp forwards to the surface.
func (s *Session) KeyUp(k editor.KeyEvent) bool {
	if s.mode != ModeDesign {
		return false
	}
	return s.Surface.KeyUp(k)
}

func (s *Session) doc() string {
	if n := s.Store.Get().Template.Name; n != "" {
		return n
	}
	return "untitled"
}

// OnHistory registers fn for changes of the undo history.
func (s *Session) OnHistory(fn func()) { s.hooks = append(s.hooks, fn) }

func (s *Session) historyChanged() {
	for _, fn := range s.hooks {
		fn()
	}
}

// scheduleCapture records the design on the next tick, after deferred
// surface work such as auto-naming. Changes within one tick share an entry.
func (s *Session) scheduleCapture() {
	if s.restoring || s.mode != ModeDesign {
		return
	}
	if s.pending != nil && s.pending.Pending() {
		return
	}
	s.pending = s.Surface.Queue().Post(s.capture)
}

func (s *Session) capture() {
	if s.restoring || s.mode != ModeDesign {
		return
	}
	text, err := codec.Serialize(s.Store.Get(), s.Canvas, s.Registry)
	if err != nil {
		s.log.Debug("undo capture skipped", slog.Any("err", err))
		return
	}
	if s.history.Push(undo.Snapshot{Doc: s.doc(), Blob: []byte(text), TS: s.now()}) {
		s.historyChanged()
	}
}

func (s *Session) resetHistory() {
	if s.pending != nil {
		s.pending.Cancel()
		s.pending = nil
	}
	text, err := codec.Serialize(s.Store.Get(), s.Canvas, s.Registry)
	if err != nil {
		return
	}
	s.history.Reset(undo.Snapshot{Doc: s.doc(), Blob: []byte(text), TS: s.now()})
	s.historyChanged()
}

// CanUndo and CanRedo drive menu state. Changes not yet captured count as
// undoable.
func (s *Session) CanUndo() bool {
	return (s.pending != nil && s.pending.Pending()) || s.history.CanUndo(s.doc())
}

func (s *Session) CanRedo() bool { return s.history.CanRedo(s.doc()) }

// Undo restores the previous design state.
func (s *Session) Undo() bool {
	s.Tick()
	snap, ok := s.history.Undo(s.doc())
	if !ok {
		return false
	}
	s.restore(snap)
	return true
}

// Redo reapplies the last undone change.
func (s *Session) Redo() bool {
	s.Tick()
	snap, ok := s.history.Redo(s.doc())
	if !ok {
		return false
	}
	s.restore(snap)
	return true
}

func (s *Session) restore(snap undo.Snapshot) {
	r, err := codec.Deserialize(string(snap.Blob))
	if err == nil {
		s.restoring = true
		err = r.Apply(s.Store, s.Canvas)
		s.Surface.Queue().Flush()
		s.restoring = false
	}
	if err != nil {
		s.log.Error("undo restore failed", slog.Any("err", err))
	}
	s.historyChanged()
}

// Describe derives library metadata from template text.
func Describe(_ string, text string) (storage.Meta, error) {
	r, err := codec.Deserialize(text)
	if err != nil {
		return storage.Meta{}, err
	}
	return storage.Meta{Objects: len(r.Objects)}, nil
}

func (s *Session) meta() storage.Meta {
	st := s.Store.Get()
	return storage.Meta{WidthMM: st.Template.WidthMM, HeightMM: st.Template.HeightMM, Objects: len(st.Objects)}
}

// Save writes the document to the library under the template name.
func (s *Session) Save(ctx context.Context) (storage.Record, error) {
	if s.lib == nil {
		return storage.Record{}, ErrNoLibrary
	}
	text, err := s.GetCode()
	if err != nil {
		return storage.Record{}, err
	}
	name := s.Template().Name
	return s.lib.Save(applog.WithTemplate(applog.WithSession(ctx, s.ID), name), name, text, s.meta())
}

// Autosave stores the current document as a snapshot of the saved template
// and prunes old snapshots. Unsaved templates are skipped.
func (s *Session) Autosave(ctx context.Context) error {
	if s.lib == nil {
		return ErrNoLibrary
	}
	text, err := s.GetCode()
	if err != nil {
		return err
	}
	name := s.Template().Name
	ctx = applog.WithTemplate(applog.WithSession(ctx, s.ID), name)
	if err := s.lib.SaveSnapshot(ctx, name, text, time.Now()); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.log.Debug("autosave skipped for unsaved template", slog.String("name", name))
			return nil
		}
		return err
	}
	if s.keep > 0 {
		if _, err := s.lib.PruneOldSnapshots(ctx, name, s.keep); err != nil {
			return err
		}
	}
	return nil
}

// Label collects the design for preview export.
func (s *Session) Label() (export.Label, error) {
	return export.FromDesign(s.Store.Get(), s.Canvas)
}

// CrashDir is the library's backups directory.
func (s *Session) CrashDir() string {
	if s.lib == nil {
		return ""
	}
	return filepath.Join(s.lib.Root, storage.BackupsDirName)
}

// TemplateName names the template in crash reports.
func (s *Session) TemplateName() string { return s.Template().Name }

// AutosaveCrash writes the current document next to the library backups.
func (s *Session) AutosaveCrash() (string, error) {
	if s.lib == nil {
		return "", ErrNoLibrary
	}
	text, err := s.GetCode()
	if err != nil {
		return "", err
	}
	return s.lib.AutosaveCrash(s.TemplateName(), text)
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package designer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"labeldesigner/internal/codec"
	"labeldesigner/internal/editor"
	"labeldesigner/internal/storage"
)

var tmpl = editor.TemplateInfo{Name: "Shelf Tag", WidthMM: 50, HeightMM: 30}

// ticking returns a clock that advances one second per call so undo entries
// never coalesce.
func ticking() func() time.Time {
	t := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newSession(t *testing.T, lib *storage.Library) *Session {
	t.Helper()
	s, err := New(Options{Template: tmpl, Library: lib, Clock: ticking()})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	return s
}

func openLib(t *testing.T) *storage.Library {
	t.Helper()
	lib, err := storage.OpenLibrary(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = lib.Close() })
	return lib
}

func TestAddObjectPlacesSelectsAndNames(t *testing.T) {
	s := newSession(t, nil)
	o, err := s.AddObject("rect")
	if err != nil {
		t.Fatal(err)
	}
	if o.Left != 10 || o.Top != 10 {
		t.Fatalf("position = %v,%v", o.Left, o.Top)
	}
	st := s.Store.Get()
	if len(st.Selected) != 1 || st.Selected[0] != o {
		t.Fatalf("selected = %v", st.Selected)
	}
	if st.Panel != editor.PanelObjectOptions {
		t.Fatalf("panel = %s", st.Panel)
	}
	s.Tick()
	if o.Name != "Rectangle 1" {
		t.Fatalf("name = %q", o.Name)
	}
	if _, err := s.AddObject("hexagon"); err == nil {
		t.Fatal("expected unknown kind error")
	}
}

func TestCodeRoundTrip(t *testing.T) {
	s := newSession(t, nil)
	o, _ := s.AddObject("circle")
	s.Tick()
	o.Fill = "#00ff00"
	text, err := s.GetCode()
	if err != nil {
		t.Fatal(err)
	}

	other := newSession(t, nil)
	if err := other.SetCode(text); err != nil {
		t.Fatal(err)
	}
	objs := other.Store.Get().Objects
	if len(objs) != 1 || objs[0].Fill != "#00ff00" || objs[0].Name != "Circle 1" {
		t.Fatalf("restored = %+v", objs)
	}
	again, _ := other.GetCode()
	if again != text {
		t.Fatalf("document changed on round trip:\n%s\n---\n%s", text, again)
	}
}

func TestParseFailureKeepsTextAndState(t *testing.T) {
	s := newSession(t, nil)
	_, _ = s.AddObject("rect")
	broken := "{% comment %}\n" + codec.StartMarker + "\n{\"objects\": []}\n"

	err := s.SetCode(broken)
	if !errors.Is(err, codec.ErrParse) {
		t.Fatalf("err = %v", err)
	}
	if s.Mode() != ModeParseFailure || s.ParseError() == nil {
		t.Fatalf("mode = %s", s.Mode())
	}
	if n := len(s.Store.Get().Objects); n != 1 {
		t.Fatalf("objects changed: %d", n)
	}
	if got, _ := s.GetCode(); got != broken {
		t.Fatalf("raw text not preserved: %q", got)
	}
	if _, err := s.AddObject("rect"); !errors.Is(err, ErrNotDesigning) {
		t.Fatalf("add in failure mode: %v", err)
	}

	s.AbortToRaw()
	if s.Mode() != ModeRaw {
		t.Fatalf("mode = %s", s.Mode())
	}
	if got, _ := s.GetCode(); got != broken {
		t.Fatalf("raw text not preserved after abort")
	}
}

func TestDiscardInvalidStartsEmpty(t *testing.T) {
	s := newSession(t, nil)
	_, _ = s.AddObject("rect")
	_ = s.SetCode("not a template")
	s.DiscardInvalid()
	if s.Mode() != ModeDesign || s.ParseError() != nil {
		t.Fatalf("mode = %s", s.Mode())
	}
	if n := len(s.Store.Get().Objects); n != 0 {
		t.Fatalf("objects = %d", n)
	}
	if s.CanUndo() {
		t.Fatal("history should restart after discard")
	}
	text, err := s.GetCode()
	if err != nil || !strings.HasPrefix(text, codec.Extends) {
		t.Fatalf("GetCode = %q, %v", text, err)
	}
}

func TestUndoRedoWithShortcuts(t *testing.T) {
	s := newSession(t, nil)
	if s.CanUndo() {
		t.Fatal("fresh session has nothing to undo")
	}
	_, _ = s.AddObject("rect")
	s.Tick()
	_, _ = s.AddObject("circle")
	s.Tick()
	if n := len(s.Store.Get().Objects); n != 2 {
		t.Fatalf("objects = %d", n)
	}

	if !s.KeyDown(editor.KeyEvent{Key: "z", Ctrl: true}) {
		t.Fatal("ctrl+z not handled")
	}
	objs := s.Store.Get().Objects
	if len(objs) != 1 || objs[0].Name != "Rectangle 1" {
		t.Fatalf("after undo = %+v", objs)
	}
	if !s.CanRedo() {
		t.Fatal("expected redo")
	}
	if !s.KeyDown(editor.KeyEvent{Key: "Z", Ctrl: true, Shift: true}) {
		t.Fatal("ctrl+shift+z not handled")
	}
	if n := len(s.Store.Get().Objects); n != 2 {
		t.Fatalf("after redo = %d", n)
	}
	if s.KeyDown(editor.KeyEvent{Key: "z", Ctrl: true, Focus: "INPUT"}) {
		t.Fatal("shortcut must not fire in a text input")
	}
}

func TestUndoCoversDeleteAndSettings(t *testing.T) {
	s := newSession(t, nil)
	_, _ = s.AddObject("rect")
	s.Tick()
	s.KeyUp(editor.KeyEvent{Key: editor.KeyDelete})
	if n := len(s.Store.Get().Objects); n != 0 {
		t.Fatalf("delete failed: %d", n)
	}
	if !s.Undo() || len(s.Store.Get().Objects) != 1 {
		t.Fatal("undo of delete failed")
	}

	ps := s.Store.Get().PageSettings
	ps.Snap.GridEnabled = !ps.Snap.GridEnabled
	if err := editor.SetPageSettings(s.Store, ps); err != nil {
		t.Fatal(err)
	}
	if !s.Undo() {
		t.Fatal("undo of settings failed")
	}
	if s.Store.Get().PageSettings.Snap.GridEnabled == ps.Snap.GridEnabled {
		t.Fatal("settings not restored")
	}
}

func TestHistoryHook(t *testing.T) {
	s := newSession(t, nil)
	calls := 0
	s.OnHistory(func() { calls++ })
	_, _ = s.AddObject("rect")
	if calls != 0 {
		t.Fatal("capture must wait for the next tick")
	}
	s.Tick()
	if calls == 0 {
		t.Fatal("hook not called")
	}
}

func TestSaveAutosaveAndCrash(t *testing.T) {
	ctx := context.Background()
	lib := openLib(t)
	s := newSession(t, lib)
	_, _ = s.AddObject("rect")
	s.Tick()

	// Not saved yet: autosave is a no-op.
	if err := s.Autosave(ctx); err != nil {
		t.Fatal(err)
	}
	rec, err := s.Save(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Name != "Shelf Tag" || rec.Objects != 1 || rec.WidthMM != 50 || rec.HeightMM != 30 {
		t.Fatalf("record = %+v", rec)
	}
	text, err := lib.Load("Shelf Tag")
	if err != nil {
		t.Fatal(err)
	}
	if code, _ := s.GetCode(); code != text {
		t.Fatal("saved text differs from document")
	}

	if err := s.Autosave(ctx); err != nil {
		t.Fatal(err)
	}
	snap, ok, err := lib.LatestSnapshot(ctx, "Shelf Tag")
	if err != nil || !ok || snap.Text != text {
		t.Fatalf("snapshot = %v %v %v", snap, ok, err)
	}

	path, err := s.AutosaveCrash()
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(path) != s.CrashDir() {
		t.Fatalf("crash autosave at %s, want dir %s", path, s.CrashDir())
	}
	if b, _ := os.ReadFile(path); string(b) != text {
		t.Fatal("crash autosave content differs")
	}
}

func TestNoLibrary(t *testing.T) {
	s := newSession(t, nil)
	if _, err := s.Save(context.Background()); !errors.Is(err, ErrNoLibrary) {
		t.Fatalf("save: %v", err)
	}
	if _, err := s.AutosaveCrash(); !errors.Is(err, ErrNoLibrary) {
		t.Fatalf("crash: %v", err)
	}
	if s.CrashDir() != "" {
		t.Fatal("crash dir without library")
	}
}

func TestDescribeAndLabel(t *testing.T) {
	s := newSession(t, nil)
	_, _ = s.AddObject("rect")
	_, _ = s.AddObject("circle")
	text, _ := s.GetCode()
	m, err := Describe("x", text)
	if err != nil || m.Objects != 2 {
		t.Fatalf("describe = %+v, %v", m, err)
	}
	if _, err := Describe("x", "garbage"); err == nil {
		t.Fatal("expected parse error")
	}
	l, err := s.Label()
	if err != nil {
		t.Fatal(err)
	}
	if l.Name != "Shelf Tag" || l.WidthMM != 50 || len(l.Objects) != 2 {
		t.Fatalf("label = %+v", l)
	}
}

//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"labeldesigner/internal/crash"
	"labeldesigner/internal/designer"
	"labeldesigner/internal/editor"
	"labeldesigner/internal/export"
	applog "labeldesigner/internal/log"
	"labeldesigner/internal/panels"
	"labeldesigner/internal/version"
)

const autosaveEvery = time.Minute

var errInvalidNumber = errors.New("not a number")

// Run opens the designer window and blocks until it is closed.
func Run(opts Options) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("version", version.Version), slog.String("template", opts.Template.Name))

	s, err := NewSession(opts, 800, 600)
	if err != nil {
		return err
	}
	defer s.Close()
	defer crash.Recover(s)

	fyneApp := app.NewWithID("labeldesigner")
	w := fyneApp.NewWindow(windowTitle(s))
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1200)
	winH := prefs.IntWithFallback("window.height", 800)
	if winW < 800 {
		winW = 800
	}
	if winH < 600 {
		winH = 600
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	d := &designerWindow{s: s, w: w, log: l, opts: opts}
	w.SetContent(d.build())
	d.bindKeys()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.autosaveLoop(ctx)

	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		if err := s.Autosave(context.Background()); err != nil {
			l.Warn("autosave on close failed", slog.Any("err", err))
		}
		w.Close()
	})

	if s.Mode() == designer.ModeParseFailure {
		d.showParseFailure()
	}
	w.ShowAndRun()
	l.Info("UI closed")
	return nil
}

func windowTitle(s *designer.Session) string {
	name := s.TemplateName()
	if name == "" {
		name = "untitled"
	}
	return "Label Designer - " + name
}

type designerWindow struct {
	s    *designer.Session
	w    fyne.Window
	log  *slog.Logger
	opts Options

	lc         *LabelCanvas
	status     *widget.Label
	zoom       *widget.Label
	undoBtn    *widget.Button
	redoBtn    *widget.Button
	tabs       *container.AppTabs
	tabKeys    map[*container.TabItem]editor.PanelKey
	tabByKey   map[editor.PanelKey]*container.TabItem
	switching  bool
	elements   *fyne.Container
	options    *fyne.Container
	optionsOff func()

	shift, ctrl, alt bool
}

func (d *designerWindow) build() fyne.CanvasObject {
	d.lc = NewLabelCanvas(d.s)
	d.lc.OnChange = d.refreshChrome
	d.status = widget.NewLabel("Ready")
	d.zoom = widget.NewLabel(d.s.Footer.ZoomLabel())
	d.s.Footer.OnChange(func() { d.zoom.SetText(d.s.Footer.ZoomLabel()) })
	d.s.OnHistory(d.refreshHistory)

	toolbar := d.buildToolbar()
	footer := container.NewHBox(d.status, layout.NewSpacer(), d.zoom,
		widget.NewButtonWithIcon("Fit", theme.ZoomFitIcon(), func() {
			d.lc.Fit()
			d.zoom.SetText(d.s.Footer.ZoomLabel())
		}))

	split := container.NewHSplit(d.lc, d.buildRight())
	split.Offset = 0.7
	return container.NewBorder(toolbar, footer, d.buildPalette(), nil, split)
}

func (d *designerWindow) buildToolbar() fyne.CanvasObject {
	save := widget.NewButtonWithIcon("Save", theme.DocumentSaveIcon(), d.save)
	d.undoBtn = widget.NewButtonWithIcon("Undo", theme.ContentUndoIcon(), func() {
		d.s.Undo()
		d.afterEdit()
	})
	d.redoBtn = widget.NewButtonWithIcon("Redo", theme.ContentRedoIcon(), func() {
		d.s.Redo()
		d.afterEdit()
	})
	exp := widget.NewButtonWithIcon("Export", theme.DownloadIcon(), d.showExport)
	code := widget.NewButtonWithIcon("Code", theme.DocumentIcon(), d.showCode)
	d.refreshHistory()
	return container.NewHBox(save, d.undoBtn, d.redoBtn, widget.NewSeparator(), exp, code)
}

func (d *designerWindow) buildPalette() fyne.CanvasObject {
	box := container.NewVBox(widget.NewLabelWithStyle("Objects", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}))
	for _, it := range d.s.Left.Items() {
		kind := it.Kind
		box.Add(widget.NewButton(it.Name, func() {
			if _, err := d.s.AddObject(kind); err != nil {
				d.setStatus(err.Error())
				return
			}
			d.afterEdit()
		}))
	}
	return box
}

func (d *designerWindow) buildRight() fyne.CanvasObject {
	docBox, _ := groupsBox(d.s.Right.Document.Groups(), d.afterEdit)
	d.elements = container.NewVBox()
	d.options = container.NewVBox()

	d.tabKeys = map[*container.TabItem]editor.PanelKey{}
	d.tabByKey = map[editor.PanelKey]*container.TabItem{}
	var items []*container.TabItem
	for _, t := range d.s.Right.Tabs() {
		var content fyne.CanvasObject
		switch t.Key {
		case editor.PanelDocument:
			content = docBox
		case editor.PanelElements:
			content = d.elements
		default:
			content = d.options
		}
		ti := container.NewTabItem(t.Label, container.NewVScroll(content))
		d.tabKeys[ti] = t.Key
		d.tabByKey[t.Key] = ti
		items = append(items, ti)
	}
	d.tabs = container.NewAppTabs(items...)
	d.tabs.OnSelected = func(ti *container.TabItem) {
		if d.switching {
			return
		}
		d.s.Right.SetActive(d.tabKeys[ti])
	}
	d.s.Right.OnSwitch(func(k editor.PanelKey) { d.selectTab(k) })
	d.s.Right.Elements.OnChange(d.rebuildElements)
	d.s.Right.Options.OnChange(d.rebuildOptions)
	d.rebuildElements()
	d.rebuildOptions()
	d.selectTab(d.s.Right.Active())
	return d.tabs
}

func (d *designerWindow) selectTab(k editor.PanelKey) {
	ti, ok := d.tabByKey[k]
	if !ok || d.tabs.Selected() == ti {
		return
	}
	d.switching = true
	d.tabs.Select(ti)
	d.switching = false
}

func (d *designerWindow) rebuildElements() {
	d.elements.RemoveAll()
	items := d.s.Right.Elements.Items()
	if len(items) == 0 {
		d.elements.Add(widget.NewLabel("No objects yet"))
	}
	for i, it := range items {
		text := it.Label
		if it.Name != "" {
			text = it.Name + " - " + it.Label
		}
		b := widget.NewButton(text, func() {
			d.s.Right.Elements.Select(i)
			d.afterEdit()
		})
		if it.Selected {
			b.Importance = widget.HighImportance
		}
		d.elements.Add(b)
	}
	d.elements.Refresh()
}

func (d *designerWindow) rebuildOptions() {
	if d.optionsOff != nil {
		d.optionsOff()
		d.optionsOff = nil
	}
	d.options.RemoveAll()
	opt := d.s.Right.Options
	if ti, ok := d.tabByKey[editor.PanelObjectOptions]; ok {
		ti.Text = opt.Title()
		d.tabs.Refresh()
	}
	if opt.State() != panels.OptionsObject {
		d.options.Add(widget.NewLabel(opt.Message()))
		d.options.Refresh()
		return
	}

	acc := widget.NewAccordion()
	acc.MultiOpen = true
	var offs []func()
	for i, sec := range opt.Sections() {
		gs := make([]*panels.Group, 0, len(sec.Groups))
		for _, og := range sec.Groups {
			gs = append(gs, og.Group)
		}
		box, off := groupsBox(gs, d.afterEdit)
		offs = append(offs, off)
		acc.Append(widget.NewAccordionItem(sec.Name, box))
		if sec.Open {
			acc.Open(i)
		}
	}
	d.optionsOff = func() {
		for _, off := range offs {
			off()
		}
	}
	d.options.Add(acc)
	d.options.Refresh()
}

// afterEdit runs deferred surface work and repaints.
func (d *designerWindow) afterEdit() {
	d.s.Tick()
	d.lc.Refresh()
	d.refreshChrome()
}

func (d *designerWindow) refreshChrome() {
	d.zoom.SetText(d.s.Footer.ZoomLabel())
	d.refreshHistory()
}

func (d *designerWindow) refreshHistory() {
	if d.undoBtn == nil {
		return
	}
	setEnabled(d.undoBtn, d.s.CanUndo())
	setEnabled(d.redoBtn, d.s.CanRedo())
}

func (d *designerWindow) setStatus(msg string) {
	d.status.SetText(msg)
}

func (d *designerWindow) bindKeys() {
	dc, ok := d.w.Canvas().(desktop.Canvas)
	if !ok {
		return
	}
	dc.SetOnKeyDown(func(e *fyne.KeyEvent) {
		if d.modifier(e.Name, true) {
			return
		}
		if d.s.KeyDown(d.keyEvent(e.Name)) {
			d.afterEdit()
		}
	})
	dc.SetOnKeyUp(func(e *fyne.KeyEvent) {
		if d.modifier(e.Name, false) {
			return
		}
		if d.s.KeyUp(d.keyEvent(e.Name)) {
			d.afterEdit()
		}
	})
}

func (d *designerWindow) modifier(name fyne.KeyName, down bool) bool {
	switch name {
	case desktop.KeyShiftLeft, desktop.KeyShiftRight:
		d.shift = down
	case desktop.KeyControlLeft, desktop.KeyControlRight, desktop.KeySuperLeft, desktop.KeySuperRight:
		d.ctrl = down
	case desktop.KeyAltLeft, desktop.KeyAltRight:
		d.alt = down
	default:
		return false
	}
	return true
}

func (d *designerWindow) keyEvent(name fyne.KeyName) editor.KeyEvent {
	k := editor.KeyEvent{Key: keyName(name), Shift: d.shift, Ctrl: d.ctrl, Alt: d.alt}
	if d.w.Canvas().Focused() != nil {
		k.Focus = "INPUT"
	}
	return k
}

func keyName(n fyne.KeyName) string {
	switch n {
	case fyne.KeyLeft:
		return editor.KeyArrowLeft
	case fyne.KeyRight:
		return editor.KeyArrowRight
	case fyne.KeyUp:
		return editor.KeyArrowUp
	case fyne.KeyDown:
		return editor.KeyArrowDown
	case fyne.KeyDelete:
		return editor.KeyDelete
	case fyne.KeyBackspace:
		return editor.KeyBackspace
	}
	return strings.ToLower(string(n))
}

func (d *designerWindow) save() {
	rec, err := d.s.Save(context.Background())
	if err != nil {
		dialog.ShowError(err, d.w)
		return
	}
	d.setStatus(fmt.Sprintf("Saved %s (%d objects)", rec.Name, rec.Objects))
}

func (d *designerWindow) autosaveLoop(ctx context.Context) {
	t := time.NewTicker(autosaveEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fyne.Do(func() {
				if err := d.s.Autosave(ctx); err != nil {
					d.log.Warn("autosave failed", slog.Any("err", err))
				}
			})
		}
	}
}

func (d *designerWindow) exportDir() string {
	if d.opts.Library != nil {
		return filepath.Join(d.opts.Library.Root, "exports")
	}
	return "exports"
}

func (d *designerWindow) showExport() {
	preset := widget.NewRadioGroup([]string{string(export.PresetWeb), string(export.PresetPrint)}, nil)
	preset.SetSelected(string(export.PresetPrint))
	guides := widget.NewCheck("Include guides", nil)
	guides.SetChecked(true)
	dir := widget.NewEntry()
	dir.SetText(d.exportDir())
	form := widget.NewForm(
		widget.NewFormItem("Preset", preset),
		widget.NewFormItem("", guides),
		widget.NewFormItem("Folder", dir),
	)
	dialog.ShowCustomConfirm("Export label", "Export", "Cancel", form, func(ok bool) {
		if !ok {
			return
		}
		lbl, err := d.s.Label()
		if err != nil {
			dialog.ShowError(err, d.w)
			return
		}
		g := guides.Checked
		paths, err := export.BatchExport(lbl, export.BatchOptions{
			Preset:        export.PresetName(preset.Selected),
			IncludeGuides: &g,
			OutDir:        dir.Text,
		})
		if err != nil {
			dialog.ShowError(err, d.w)
			return
		}
		d.setStatus(fmt.Sprintf("Exported %d files to %s", len(paths), dir.Text))
	}, d.w)
}

// showCode edits the template text directly. Applying invalid text puts
// the session into its parse failure state.
func (d *designerWindow) showCode() {
	text, err := d.s.GetCode()
	if err != nil {
		dialog.ShowError(err, d.w)
		return
	}
	e := widget.NewMultiLineEntry()
	e.SetText(text)
	e.Wrapping = fyne.TextWrapOff
	scroll := container.NewScroll(e)
	scroll.SetMinSize(fyne.NewSize(640, 420))
	dialog.ShowCustomConfirm("Template code", "Apply", "Close", scroll, func(ok bool) {
		if !ok {
			return
		}
		if err := d.s.SetCode(e.Text); err != nil {
			d.log.Warn("template text rejected", slog.Any("err", err))
			d.showParseFailure()
			return
		}
		d.setStatus("Template code applied")
		d.afterEdit()
	}, d.w)
}

func (d *designerWindow) showParseFailure() {
	msg := widget.NewLabel(fmt.Sprintf("The template could not be loaded into the designer:\n%v\n\n"+
		"Discard starts an empty design. Abort keeps the text and disables the designer.", d.s.ParseError()))
	msg.Wrapping = fyne.TextWrapWord
	dialog.ShowCustomConfirm("Invalid template", "Discard", "Abort", msg, func(discard bool) {
		if discard {
			d.s.DiscardInvalid()
			d.setStatus("Started an empty design")
		} else {
			d.s.AbortToRaw()
			d.setStatus("Designer disabled; edit the template code")
		}
		d.afterEdit()
	}, d.w)
}

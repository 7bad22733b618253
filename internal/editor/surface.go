/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"fmt"
	"log/slog"

	applog "labeldesigner/internal/log"
	"labeldesigner/internal/scene"
	"labeldesigner/internal/store"
)

// KindInfo describes an object kind the canvas can construct.
type KindInfo struct {
	Kind    scene.Kind
	Name    string
	Icon    string
	Factory scene.Factory
}

// Catalog supplies the object kinds registered with the canvas at mount.
type Catalog interface {
	SceneKinds() []KindInfo
}

// Options tune the surface.
type Options struct {
	RotateSnap   RotateSnap
	MaxZoom      float64
	WheelDivisor float64
}

// DefaultOptions returns the stock zoom limits and rotate steps.
func DefaultOptions() Options {
	return Options{RotateSnap: DefaultRotateSnap(), MaxZoom: 20, WheelDivisor: 200}
}

// PageStrokeWidth is the outline width of the page element.
const PageStrokeWidth = 0.2

// KindGroup marks grouped selections, which are listed but never edited.
const KindGroup scene.Kind = "group"

// Surface binds a scene canvas to the editor store. Create it with
// NewSurface, call Mount once and Unmount when the session ends.
type Surface struct {
	canvas  *scene.Canvas
	st      *Store
	catalog Catalog
	opts    Options
	queue   *Queue
	log     *slog.Logger

	names   map[scene.Kind]string
	offs    []func()
	mounted bool

	panning bool
	last    scene.Pt
	page    *scene.Object

	pendingClear *Task
}

// NewSurface wires nothing yet; see Mount.
func NewSurface(c *scene.Canvas, st *Store, catalog Catalog, opts Options) *Surface {
	def := DefaultOptions()
	if opts.MaxZoom <= 0 {
		opts.MaxZoom = def.MaxZoom
	}
	if opts.WheelDivisor == 0 {
		opts.WheelDivisor = def.WheelDivisor
	}
	if opts.RotateSnap == (RotateSnap{}) {
		opts.RotateSnap = def.RotateSnap
	}
	return &Surface{
		canvas:  c,
		st:      st,
		catalog: catalog,
		opts:    opts,
		queue:   &Queue{},
		log:     applog.WithComponent("editor"),
		names:   map[scene.Kind]string{},
	}
}

// Canvas returns the bound canvas.
func (s *Surface) Canvas() *scene.Canvas { return s.canvas }

// Queue returns the deferred task queue the host flushes every tick.
func (s *Surface) Queue() *Queue { return s.queue }

// Page returns the page outline object.
func (s *Surface) Page() *scene.Object { return s.page }

// Mounted reports whether handlers are attached.
func (s *Surface) Mounted() bool { return s.mounted }

// Mount registers the catalog with the canvas type table and attaches all
// handlers. It creates the page element and fits the page into view. A
// surface can be mounted again after Unmount.
func (s *Surface) Mount() error {
	if s.mounted {
		return fmt.Errorf("surface already mounted")
	}
	if s.catalog != nil {
		for _, k := range s.catalog.SceneKinds() {
			s.canvas.RegisterType(k.Kind, k.Factory)
			s.names[k.Kind] = k.Name
		}
	}
	s.mounted = true
	s.queue.Reopen()

	c := s.canvas
	s.offs = append(s.offs,
		c.On(scene.MouseWheel, s.onWheel),
		c.On(scene.MouseDown, s.onMouseDown),
		c.On(scene.MouseMove, s.onMouseMove),
		c.On(scene.MouseUp, s.onMouseUp),
		c.On(scene.ObjectAdded, s.onObjectAdded),
		c.On(scene.ObjectRemoved, s.onObjectRemoved),
		c.On(scene.SelectionCreated, s.onSelection),
		c.On(scene.SelectionUpdated, s.onSelection),
		c.On(scene.SelectionCleared, s.onSelectionCleared),
		c.On(scene.ObjectScaling, s.onScaling),
		c.On(scene.ObjectMoving, s.onMoving),
		c.On(scene.ObjectRotating, s.onRotating),
	)
	s.offs = append(s.offs,
		store.Watch(s.st, SelectPageSize, SamePageSize, func(_, _ [2]float64) { s.rebuildPage() }),
		store.Watch(s.st, SelectPageSettings, SameSettings, func(ps, _ PageSettings) {
			s.canvas.UniformScaling = ps.Scale.UniformEnabled
		}),
	)
	c.UniformScaling = s.st.Get().PageSettings.Scale.UniformEnabled
	s.rebuildPage()
	s.log.Debug("surface mounted", slog.Int("kinds", len(s.names)))
	return nil
}

// Unmount detaches every handler and cancels deferred work.
func (s *Surface) Unmount() {
	if !s.mounted {
		return
	}
	for i := len(s.offs) - 1; i >= 0; i-- {
		s.offs[i]()
	}
	s.offs = nil
	s.queue.Close()
	s.mounted = false
	s.panning = false
	s.canvas.Selection = true
	s.log.Debug("surface unmounted")
}

func (s *Surface) frame() Frame {
	st := s.st.Get()
	return Frame{CanvasW: s.canvas.Width(), CanvasH: s.canvas.Height(), PageW: st.PageWidth, PageH: st.PageHeight}
}

// HandleDrag pans by delta and clamps the viewport to the page.
func (s *Surface) HandleDrag(delta *scene.Pt) {
	s.canvas.SetViewportTransform(ClampPan(s.canvas.ViewportTransform(), s.frame(), delta))
}

// ZoomToFit fits the page plus margin into the canvas and centers it.
func (s *Surface) ZoomToFit() {
	f := s.frame()
	s.canvas.ZoomToPoint(scene.Pt{X: f.CanvasW / 2, Y: f.CanvasH / 2}, FitZoom(f))
	s.HandleDrag(nil)
	s.canvas.RequestRender()
}

// Zoom returns the current zoom factor.
func (s *Surface) Zoom() float64 { return s.canvas.Zoom() }

// Resize matches the canvas to its container and re-clamps the pan.
func (s *Surface) Resize(width, height float64) {
	s.canvas.SetDimensions(width, height)
	s.canvas.RequestRender()
	s.HandleDrag(nil)
}

func (s *Surface) rebuildPage() {
	if s.page != nil {
		s.canvas.Remove(s.page)
	}
	st := s.st.Get()
	p := scene.NewObject(&scene.RectShape{})
	p.Name = "page"
	p.Left, p.Top = -PageStrokeWidth/2, -PageStrokeWidth/2
	p.Width, p.Height = st.PageWidth, st.PageHeight
	p.StrokeWidth = PageStrokeWidth
	p.Selectable, p.Evented, p.ExcludeFromExport = false, false, true
	s.page = p
	s.canvas.Add(p)
	s.HandleDrag(nil)
	s.ZoomToFit()
}

func (s *Surface) onWheel(e *scene.Event) {
	z := WheelZoom(s.canvas.Zoom(), e.DeltaY, s.frame(), s.opts.WheelDivisor, s.opts.MaxZoom)
	s.canvas.ZoomToPoint(e.Screen, z)
	s.HandleDrag(nil)
	s.canvas.RequestRender()
}

func (s *Surface) onMouseDown(e *scene.Event) {
	if e.Alt || e.Button == scene.ButtonMiddle {
		s.panning = true
		s.last = e.Screen
		s.canvas.Selection = false
	}
}

func (s *Surface) onMouseMove(e *scene.Event) {
	if !s.panning {
		return
	}
	d := e.Screen.Sub(s.last)
	s.HandleDrag(&d)
	s.canvas.RequestRender()
	s.last = e.Screen
}

func (s *Surface) onMouseUp(*scene.Event) {
	s.panning = false
	s.canvas.Selection = true
}

// Panning reports whether a pan drag is running.
func (s *Surface) Panning() bool { return s.panning }

func (s *Surface) onObjectAdded(e *scene.Event) {
	o := e.Target
	if o == nil || o == s.page {
		return
	}
	s.st.Update(func(st State) State {
		if hasObject(st.Objects, o) {
			return st
		}
		st.Objects = append(append([]*scene.Object(nil), st.Objects...), o)
		return st
	})
	s.queue.Post(func() { s.autoName(o) })
}

// autoName runs one tick after add so the object is enumerable on the canvas.
func (s *Surface) autoName(o *scene.Object) {
	if o.Canvas() != s.canvas || o.Name != "" {
		return
	}
	base := s.names[o.Kind]
	if base == "" {
		base = string(o.Kind)
	}
	used := map[string]bool{}
	for _, x := range s.canvas.Objects() {
		if x.Kind == o.Kind {
			used[x.Name] = true
		}
	}
	for n := 1; ; n++ {
		name := fmt.Sprintf("%s %d", base, n)
		if !used[name] {
			o.Name = name
			break
		}
	}
	s.canvas.Fire(scene.ObjectModified, &scene.Event{Target: o})
}

func (s *Surface) onObjectRemoved(e *scene.Event) {
	o := e.Target
	if o == nil || o == s.page {
		return
	}
	s.st.Update(func(st State) State {
		st.Objects = without(st.Objects, o)
		if hasObject(st.Selected, o) {
			st.Selected = without(st.Selected, o)
		}
		return st
	})
}

func (s *Surface) onSelection(e *scene.Event) {
	if s.pendingClear != nil {
		s.pendingClear.Cancel()
		s.pendingClear = nil
	}
	var sel []*scene.Object
	objs := s.st.Get().Objects
	for _, o := range e.Selected {
		if hasObject(objs, o) {
			sel = append(sel, o)
		} else {
			s.log.Debug("selection references unknown object", slog.String("kind", string(o.Kind)))
		}
	}
	s.st.Update(func(st State) State {
		st.Selected = sel
		if e.User {
			st.Panel = panelFor(sel)
		}
		return st
	})
}

// onSelectionCleared waits one tick so a pending property commit can still
// read the selection.
func (s *Surface) onSelectionCleared(e *scene.Event) {
	user := e.User
	if s.pendingClear != nil {
		s.pendingClear.Cancel()
	}
	s.pendingClear = s.queue.Post(func() {
		s.pendingClear = nil
		s.st.Update(func(st State) State {
			st.Selected = nil
			if user {
				st.Panel = PanelDocument
			}
			return st
		})
	})
}

func panelFor(sel []*scene.Object) PanelKey {
	switch {
	case len(sel) == 0:
		return PanelDocument
	case len(sel) > 1 || sel[0].Kind == KindGroup:
		return PanelElements
	default:
		return PanelObjectOptions
	}
}

func (s *Surface) gridPixels() (float64, bool) {
	ps := s.st.Get().PageSettings
	if !ps.Snap.GridEnabled {
		return 0, false
	}
	g, err := ps.GridPixels()
	if err != nil || !(g > 0) {
		s.log.Debug("grid snapping skipped", slog.Any("err", err), slog.Float64("grid", g))
		return 0, false
	}
	return g, true
}

var (
	leftCorners   = map[string]bool{scene.ControlTL: true, scene.ControlML: true, scene.ControlBL: true}
	rightCorners  = map[string]bool{scene.ControlTR: true, scene.ControlMR: true, scene.ControlBR: true}
	topCorners    = map[string]bool{scene.ControlTL: true, scene.ControlMT: true, scene.ControlTR: true}
	bottomCorners = map[string]bool{scene.ControlBL: true, scene.ControlMB: true, scene.ControlBR: true}
)

// onScaling snaps the moving edges to the grid and bakes the scale into the
// object's size.
func (s *Surface) onScaling(e *scene.Event) {
	o := e.Target
	if o == nil || o.Canvas() != s.canvas {
		return
	}
	corner := ""
	if e.Transform != nil {
		corner = e.Transform.Corner
	}
	if g, ok := s.gridPixels(); ok {
		SnapScale(o, corner, g)
	}
	o.BakeScale()
	s.canvas.RequestRender()
}

// SnapScale snaps the edges of o that corner moves to multiples of grid by
// adjusting the pending scale factors.
func SnapScale(o *scene.Object, corner string, grid float64) {
	baseW, baseH := o.Width+o.StrokeWidth, o.Height+o.StrokeWidth
	if baseW > 0 {
		switch {
		case leftCorners[corner]:
			tl := scene.SnapTo(o.Left, grid)
			if sx := (o.ScaledWidth() + o.Left - tl) / baseW; sx > 0 {
				o.ScaleX, o.Left = sx, tl
			}
		case rightCorners[corner]:
			if sx := (scene.SnapTo(o.Left+o.ScaledWidth(), grid) - o.Left) / baseW; sx > 0 {
				o.ScaleX = sx
			}
		}
	}
	if baseH > 0 {
		switch {
		case topCorners[corner]:
			tt := scene.SnapTo(o.Top, grid)
			if sy := (o.ScaledHeight() + o.Top - tt) / baseH; sy > 0 {
				o.ScaleY, o.Top = sy, tt
			}
		case bottomCorners[corner]:
			if sy := (scene.SnapTo(o.Top+o.ScaledHeight(), grid) - o.Top) / baseH; sy > 0 {
				o.ScaleY = sy
			}
		}
	}
}

// onMoving snaps the position. The grid size is read from the settings on
// every tick because its unit may have changed.
func (s *Surface) onMoving(e *scene.Event) {
	o := e.Target
	if o == nil || o.Canvas() != s.canvas {
		return
	}
	if g, ok := s.gridPixels(); ok {
		o.Left = scene.SnapTo(o.Left, g)
		o.Top = scene.SnapTo(o.Top, g)
	}
}

func (s *Surface) onRotating(e *scene.Event) {
	o := e.Target
	if o == nil || o.Canvas() != s.canvas {
		return
	}
	step := s.opts.RotateSnap.Step(s.st.Get().PageSettings.Snap, e.Alt)
	o.SnapAngle = step
	raw := o.Angle
	if e.Transform != nil {
		raw = e.Transform.RawAngle
	}
	o.RotateAroundCenter(scene.SnapTo(raw, step))
}

func without(objs []*scene.Object, o *scene.Object) []*scene.Object {
	out := make([]*scene.Object, 0, len(objs))
	for _, x := range objs {
		if x != o {
			out = append(out, x)
		}
	}
	return out
}

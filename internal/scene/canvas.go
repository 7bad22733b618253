/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package scene is a headless retained-mode scene graph for label layouts.
// It keeps an ordered list of objects, a viewport transform, a selection and
// the interactive move/scale/rotate gestures, and reports everything through
// named events. Rendering backends walk Objects() after a render request.
package scene

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Version is written into every export.
const Version = "1.0.0"

// Event names.
const (
	ObjectAdded      = "object:added"
	ObjectRemoved    = "object:removed"
	ObjectMoving     = "object:moving"
	ObjectScaling    = "object:scaling"
	ObjectRotating   = "object:rotating"
	ObjectModified   = "object:modified"
	SelectionCreated = "selection:created"
	SelectionUpdated = "selection:updated"
	SelectionCleared = "selection:cleared"
	MouseDown        = "mouse:down"
	MouseMove        = "mouse:move"
	MouseUp          = "mouse:up"
	MouseWheel       = "mouse:wheel"
)

// Event is handed to every handler. Only the fields relevant to the event
// name are set.
type Event struct {
	Name   string
	Target *Object

	// Selection events.
	Selected   []*Object
	Deselected []*Object
	// User is true when the selection change came from pointer input.
	User bool

	// Pointer events. Screen is in canvas pixels, Pointer in page pixels.
	Screen  Pt
	Pointer Pt
	Button  int
	Alt     bool
	Shift   bool
	DeltaY  float64

	// Transform describes the running gesture for moving/scaling/rotating.
	Transform *Transform
}

// Transform describes an in-flight gesture.
type Transform struct {
	Action   string // "drag", "scale" or "rotate"
	Corner   string // control key for scale/rotate
	RawAngle float64
}

// Handler observes canvas events.
type Handler func(e *Event)

type handlerEntry struct {
	id int
	fn Handler
}

// Factory constructs an object of one kind with its defaults.
type Factory func() *Object

// ErrUnknownType is matched by every UnknownTypeError.
var ErrUnknownType = errors.New("unknown object type")

// UnknownTypeError reports a serialized kind with no registered factory.
type UnknownTypeError struct{ Kind Kind }

func (e *UnknownTypeError) Error() string        { return fmt.Sprintf("unknown object type %q", string(e.Kind)) }
func (e *UnknownTypeError) Is(target error) bool { return target == ErrUnknownType }

// Canvas owns the objects of one label page.
// It is not safe for concurrent use; drive it from one event loop.
type Canvas struct {
	width, height float64
	objects       []*Object
	active        []*Object
	vpt           Affine2D

	handlers map[string][]handlerEntry
	nextID   int
	types    map[Kind]Factory

	// Selection enables click selection and gestures. While false, pointer
	// events are only reported.
	Selection bool
	// UniformScaling keeps the aspect ratio on corner handles; Alt inverts it.
	UniformScaling bool

	gesture *gesture

	renders int
	// OnRender is called for every render request.
	OnRender func()
}

// NewCanvas creates an empty canvas of the given screen size.
func NewCanvas(width, height float64) *Canvas {
	return &Canvas{
		width:     width,
		height:    height,
		vpt:       Identity,
		handlers:  map[string][]handlerEntry{},
		types:     map[Kind]Factory{},
		Selection: true,
	}
}

func (c *Canvas) Width() float64  { return c.width }
func (c *Canvas) Height() float64 { return c.height }

// SetDimensions resizes the drawing surface.
func (c *Canvas) SetDimensions(width, height float64) {
	c.width, c.height = width, height
}

// On registers fn for the named event and returns a function removing it.
func (c *Canvas) On(name string, fn Handler) (off func()) {
	c.nextID++
	id := c.nextID
	c.handlers[name] = append(c.handlers[name], handlerEntry{id: id, fn: fn})
	return func() {
		hs := c.handlers[name]
		for i, h := range hs {
			if h.id == id {
				c.handlers[name] = append(hs[:i:i], hs[i+1:]...)
				return
			}
		}
	}
}

// Fire dispatches e to the handlers of name. Handlers added or removed while
// dispatching take effect for the next event.
func (c *Canvas) Fire(name string, e *Event) {
	if e == nil {
		e = &Event{}
	}
	e.Name = name
	hs := append([]handlerEntry(nil), c.handlers[name]...)
	for _, h := range hs {
		h.fn(e)
	}
}

// HandlerCount reports how many handlers are registered for name.
func (c *Canvas) HandlerCount(name string) int { return len(c.handlers[name]) }

// Add appends objects on top of the z-order.
func (c *Canvas) Add(objs ...*Object) {
	for _, o := range objs {
		if o == nil || o.canvas == c {
			continue
		}
		if o.ID == "" {
			o.ID = uuid.NewString()
		}
		o.canvas = c
		c.objects = append(c.objects, o)
		c.Fire(ObjectAdded, &Event{Target: o})
	}
}

// Remove detaches objects. Removing an active object clears it from the
// selection first.
func (c *Canvas) Remove(objs ...*Object) {
	for _, o := range objs {
		i := c.Index(o)
		if i < 0 {
			continue
		}
		if containsObj(c.active, o) {
			c.setActive(without(c.active, o), false)
		}
		c.objects = append(c.objects[:i:i], c.objects[i+1:]...)
		o.canvas = nil
		c.Fire(ObjectRemoved, &Event{Target: o})
	}
}

// Clear removes every object.
func (c *Canvas) Clear() {
	c.DiscardActiveObject()
	c.Remove(c.Objects()...)
}

// Objects returns the objects back to front.
func (c *Canvas) Objects() []*Object { return append([]*Object(nil), c.objects...) }

// Index returns the z-position of o or -1.
func (c *Canvas) Index(o *Object) int {
	for i, x := range c.objects {
		if x == o {
			return i
		}
	}
	return -1
}

// ActiveObjects returns the current selection.
func (c *Canvas) ActiveObjects() []*Object { return append([]*Object(nil), c.active...) }

// ActiveObject returns the single selected object, or nil.
func (c *Canvas) ActiveObject() *Object {
	if len(c.active) != 1 {
		return nil
	}
	return c.active[0]
}

// SetActiveObject selects exactly o.
func (c *Canvas) SetActiveObject(o *Object) {
	if o == nil {
		c.DiscardActiveObject()
		return
	}
	c.setActive([]*Object{o}, false)
}

// SetActiveObjects selects objs.
func (c *Canvas) SetActiveObjects(objs []*Object) { c.setActive(objs, false) }

// DiscardActiveObject clears the selection.
func (c *Canvas) DiscardActiveObject() { c.setActive(nil, false) }

func (c *Canvas) setActive(objs []*Object, user bool) {
	var next []*Object
	for _, o := range objs {
		if o != nil && o.canvas == c && o.Selectable && !containsObj(next, o) {
			next = append(next, o)
		}
	}
	prev := c.active
	if sameObjects(prev, next) {
		return
	}
	c.active = next
	var added, removed []*Object
	for _, o := range next {
		if !containsObj(prev, o) {
			added = append(added, o)
		}
	}
	for _, o := range prev {
		if !containsObj(next, o) {
			removed = append(removed, o)
		}
	}
	switch {
	case len(next) == 0:
		c.Fire(SelectionCleared, &Event{Deselected: removed, User: user})
	case len(prev) == 0:
		c.Fire(SelectionCreated, &Event{Selected: next, User: user})
	default:
		c.Fire(SelectionUpdated, &Event{Selected: next, Deselected: removed, User: user, Target: firstOf(added)})
	}
}

// ViewportTransform returns the page-to-screen transform.
func (c *Canvas) ViewportTransform() Affine2D { return c.vpt }

// SetViewportTransform replaces the page-to-screen transform.
func (c *Canvas) SetViewportTransform(m Affine2D) { c.vpt = m }

// Zoom returns the current zoom factor.
func (c *Canvas) Zoom() float64 { return c.vpt.A }

// ZoomToPoint sets the zoom so that screen point p stays over the same page point.
func (c *Canvas) ZoomToPoint(p Pt, zoom float64) {
	page := c.vpt.Invert().Apply(p)
	m := c.vpt
	m.A, m.D = zoom, zoom
	after := m.Apply(page)
	m.E += p.X - after.X
	m.F += p.Y - after.Y
	c.vpt = m
}

// ToPage maps a screen point to page coordinates.
func (c *Canvas) ToPage(p Pt) Pt { return c.vpt.Invert().Apply(p) }

// ToScreen maps a page point to screen coordinates.
func (c *Canvas) ToScreen(p Pt) Pt { return c.vpt.Apply(p) }

// RequestRender schedules a redraw.
func (c *Canvas) RequestRender() {
	c.renders++
	if c.OnRender != nil {
		c.OnRender()
	}
}

// RenderCount reports how many renders were requested.
func (c *Canvas) RenderCount() int { return c.renders }

// RegisterType makes kind constructible by LoadObjects.
func (c *Canvas) RegisterType(kind Kind, f Factory) { c.types[kind] = f }

// HasType reports whether kind is registered.
func (c *Canvas) HasType(kind Kind) bool {
	_, ok := c.types[kind]
	return ok
}

// Export is the serialized scene.
type Export struct {
	Version string    `json:"version"`
	Objects []*Object `json:"objects"`
}

// ToJSON exports all objects not flagged ExcludeFromExport.
func (c *Canvas) ToJSON() Export {
	out := Export{Version: Version, Objects: []*Object{}}
	for _, o := range c.objects {
		if !o.ExcludeFromExport {
			out.Objects = append(out.Objects, o)
		}
	}
	return out
}

// Decode builds objects from raw JSON through the type table without
// attaching them.
func (c *Canvas) Decode(raw []json.RawMessage) ([]*Object, error) {
	objs := make([]*Object, 0, len(raw))
	for i, r := range raw {
		var head struct {
			Type Kind `json:"type"`
		}
		if err := json.Unmarshal(r, &head); err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}
		f, ok := c.types[head.Type]
		if !ok {
			return nil, fmt.Errorf("object %d: %w", i, &UnknownTypeError{Kind: head.Type})
		}
		o := f()
		if err := json.Unmarshal(r, o); err != nil {
			return nil, fmt.Errorf("object %d (%s): %w", i, head.Type, err)
		}
		objs = append(objs, o)
	}
	return objs, nil
}

// LoadObjects replaces every exportable object with the decoded raw objects.
// Nothing changes when decoding fails.
func (c *Canvas) LoadObjects(raw []json.RawMessage) ([]*Object, error) {
	objs, err := c.Decode(raw)
	if err != nil {
		return nil, err
	}
	c.DiscardActiveObject()
	for _, o := range c.Objects() {
		if !o.ExcludeFromExport {
			c.Remove(o)
		}
	}
	c.Add(objs...)
	return objs, nil
}

// FindTarget returns the topmost evented object under screen point p.
func (c *Canvas) FindTarget(p Pt) *Object {
	page := c.ToPage(p)
	for i := len(c.objects) - 1; i >= 0; i-- {
		o := c.objects[i]
		if o.Evented && o.Hit(page) {
			return o
		}
	}
	return nil
}

func containsObj(objs []*Object, o *Object) bool {
	for _, x := range objs {
		if x == o {
			return true
		}
	}
	return false
}

func without(objs []*Object, o *Object) []*Object {
	out := make([]*Object, 0, len(objs))
	for _, x := range objs {
		if x != o {
			out = append(out, x)
		}
	}
	return out
}

func sameObjects(a, b []*Object) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func firstOf(objs []*Object) *Object {
	if len(objs) == 0 {
		return nil
	}
	return objs[0]
}

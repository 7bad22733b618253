/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package codec reads and writes label template documents. A document is a
// template-engine file that carries the editable design as a JSON payload
// inside a comment, followed by the generated style and content blocks.
package codec

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"labeldesigner/internal/editor"
	applog "labeldesigner/internal/log"
	"labeldesigner/internal/objects"
	"labeldesigner/internal/scene"
)

// Fixed document parts.
const (
	Extends     = `{% extends "label/label_base.html" %}`
	Banner      = "This template was generated by the label designer. Manual changes will be lost on the next save."
	StartMarker = "--- Start template ---"
	EndMarker   = "--- End template ---"
)

var (
	// ErrParse is matched by every *ParseError.
	ErrParse = errors.New("invalid label template")
	// ErrNoCanvas is returned when serializing without a mounted canvas.
	ErrNoCanvas = errors.New("no canvas to serialize")
)

// ParseError explains why a document could not be restored. The document
// text itself is never modified.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse template: %s: %v", e.Reason, e.Err)
	}
	return "parse template: " + e.Reason
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }
func (e *ParseError) Unwrap() error        { return e.Err }

//go:embed template.schema.json
var schemaJSON []byte

var schema = mustSchema()

func mustSchema() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("codec: embedded schema: %v", err))
	}
	return s
}

// Schema returns the JSON schema of the payload.
func Schema() []byte { return append([]byte(nil), schemaJSON...) }

// Exporters resolves the exporter of an object kind.
type Exporters interface {
	Exporter(kind scene.Kind) (objects.Exporter, bool)
}

// payload is written as {version, objects, pageSettings}.
type payload struct {
	Version      string              `json:"version"`
	Objects      []*scene.Object     `json:"objects"`
	PageSettings editor.PageSettings `json:"pageSettings"`
}

// Serialize renders the design on c with the settings of s.
func Serialize(s editor.State, c *scene.Canvas, ex Exporters) (string, error) {
	if c == nil {
		return "", ErrNoCanvas
	}
	exp := c.ToJSON()
	data, err := json.MarshalIndent(payload{Version: exp.Version, Objects: exp.Objects, PageSettings: s.PageSettings}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal template payload: %w", err)
	}

	var styles, contents []string
	for i, o := range exp.Objects {
		if ex == nil {
			break
		}
		e, ok := ex.Exporter(o.Kind)
		if !ok {
			continue
		}
		id := o.ID
		if id == "" {
			id = fmt.Sprintf("obj%d", i)
		}
		styles = append(styles, e.Style(o, id))
		contents = append(contents, e.Content(o, id))
	}

	var sb strings.Builder
	sb.WriteString(Extends + "\n\n")
	sb.WriteString("{% comment %}\n")
	sb.WriteString(Banner + "\n")
	sb.WriteString(StartMarker + "\n")
	sb.Write(data)
	sb.WriteString("\n" + EndMarker + "\n")
	sb.WriteString("{% endcomment %}\n\n")
	writeBlock(&sb, "style", styles)
	writeBlock(&sb, "content", contents)

	applog.WithOperation(applog.WithComponent("codec"), "serialize").Debug("template serialized",
		slog.Int("objects", len(exp.Objects)), slog.Int("fragments", len(contents)), slog.Int("bytes", sb.Len()))
	return sb.String(), nil
}

func writeBlock(sb *strings.Builder, name string, fragments []string) {
	fmt.Fprintf(sb, "{%% block %s %%}\n%s\n{%% endblock %%}\n", name, strings.Join(fragments, "\n"))
}

// Restore is a parsed document, ready to be applied to an editor.
type Restore struct {
	Version      string
	Objects      []json.RawMessage
	PageSettings editor.PageSettings
}

// Deserialize extracts and validates the payload of text. Absent page
// settings fields fall back to the defaults.
func Deserialize(text string) (*Restore, error) {
	raw, err := extract(text)
	if err != nil {
		return nil, err
	}
	res, err := schema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return nil, &ParseError{Reason: "payload is not valid JSON", Err: err}
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, &ParseError{Reason: "payload does not match schema", Err: errors.New(strings.Join(msgs, "; "))}
	}

	var in struct {
		Version      string            `json:"version"`
		Objects      []json.RawMessage `json:"objects"`
		PageSettings json.RawMessage   `json:"pageSettings"`
	}
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return nil, &ParseError{Reason: "payload is not valid JSON", Err: err}
	}
	ps := editor.DefaultPageSettings()
	if len(in.PageSettings) > 0 && string(in.PageSettings) != "null" {
		if err := json.Unmarshal(in.PageSettings, &ps); err != nil {
			return nil, &ParseError{Reason: "invalid page settings", Err: err}
		}
	}
	if err := ps.Validate(); err != nil {
		return nil, &ParseError{Reason: "invalid page settings", Err: err}
	}
	if in.Objects == nil {
		in.Objects = []json.RawMessage{}
	}
	return &Restore{Version: in.Version, Objects: in.Objects, PageSettings: ps}, nil
}

// extract returns the text between the marker lines.
func extract(text string) (string, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	start, end := -1, -1
	for i, l := range lines {
		switch strings.TrimSpace(l) {
		case StartMarker:
			if start < 0 {
				start = i
			}
		case EndMarker:
			if start >= 0 && end < 0 {
				end = i
			}
		}
	}
	switch {
	case start < 0:
		return "", &ParseError{Reason: "missing " + StartMarker + " marker"}
	case end < 0:
		return "", &ParseError{Reason: "missing " + EndMarker + " marker"}
	}
	body := strings.TrimSpace(strings.Join(lines[start+1:end], "\n"))
	if body == "" {
		return "", &ParseError{Reason: "empty payload"}
	}
	return body, nil
}

// Apply replaces the design on c and the page settings in st. Objects are
// decoded before anything changes, so a failure leaves both untouched.
func (r *Restore) Apply(st *editor.Store, c *scene.Canvas) error {
	if c == nil {
		return ErrNoCanvas
	}
	if err := r.PageSettings.Validate(); err != nil {
		return &ParseError{Reason: "invalid page settings", Err: err}
	}
	if _, err := c.LoadObjects(r.Objects); err != nil {
		return &ParseError{Reason: "cannot restore objects", Err: err}
	}
	if err := editor.SetPageSettings(st, r.PageSettings); err != nil {
		return err
	}
	c.RequestRender()
	return nil
}

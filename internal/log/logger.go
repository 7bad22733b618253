/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package log sets up slog for the label designer. Records go to a console
// handler (compact text or JSON) and optionally to a rotating JSON file.
// Loggers carry a component and an operation; the designer session and the
// template being edited travel in the context and are added per record.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	lj "gopkg.in/natefinch/lumberjack.v2"

	"labeldesigner/internal/version"
)

// Environment variables read by FromEnv.
const (
	EnvLevel  = "LD_LOG_LEVEL"  // debug|info|warn|error
	EnvFormat = "LD_LOG_FORMAT" // console|json
	EnvFile   = "LD_LOG_FILE"   // path of the rotating JSON log
	EnvSource = "LD_LOG_SOURCE" // true adds file:line
)

// Rotation of the log file.
const (
	fileMaxSizeMB  = 5
	fileMaxBackups = 5
	fileMaxAgeDays = 14
)

// Options configure Init. The zero value logs info and above as text to
// stderr.
type Options struct {
	Level     string
	Format    string
	AddSource bool
	// File, when set, receives every record as JSON with rotation.
	File string
	// Console receives console output; nil means stderr.
	Console io.Writer
}

var (
	mu      sync.RWMutex
	current *slog.Logger
)

// L returns the process logger. The first call without Init configures it
// from the environment.
func L() *slog.Logger {
	mu.RLock()
	l := current
	mu.RUnlock()
	if l != nil {
		return l
	}
	Init(FromEnv())
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Init replaces the process logger and slog's default.
func Init(opts Options) {
	lvl := parseLevel(opts.Level)
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	var sinks []slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		sinks = append(sinks, slog.NewJSONHandler(console, &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource}))
	} else {
		sinks = append(sinks, newConsoleHandler(console, lvl, opts.AddSource))
	}
	if path := strings.TrimSpace(opts.File); path != "" {
		sinks = append(sinks, slog.NewJSONHandler(rotatingFile(path), &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource}))
	}

	var h slog.Handler = sinks[0]
	if len(sinks) > 1 {
		h = fanout(sinks)
	}
	l := slog.New(contextHandler{next: h}).With(
		slog.String("app", "labeldesigner"),
		slog.String("ver", version.Version),
		slog.Time("started", time.Now()),
	)

	mu.Lock()
	current = l
	mu.Unlock()
	slog.SetDefault(l)
}

func rotatingFile(path string) io.Writer {
	return &lj.Logger{
		Filename:   path,
		MaxSize:    fileMaxSizeMB,
		MaxBackups: fileMaxBackups,
		MaxAge:     fileMaxAgeDays,
		Compress:   true,
	}
}

// FromEnv reads Options from the LD_LOG_* variables.
func FromEnv() Options {
	src, _ := strconvBool(os.Getenv(EnvSource))
	return Options{
		Level:     getenv(EnvLevel, "info"),
		Format:    getenv(EnvFormat, "console"),
		AddSource: src,
		File:      os.Getenv(EnvFile),
	}
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func strconvBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// WithComponent returns the process logger tagged with a component.
func WithComponent(name string) *slog.Logger { return L().With(slog.String(componentKey, name)) }

// WithOperation tags l with an operation such as "load" or "index_rebuild".
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

type ctxKey struct{}

// fields travel in a context and are added to each record logged with it.
type fields struct {
	session  string
	template string
}

func fieldsFrom(ctx context.Context) fields {
	if ctx == nil {
		return fields{}
	}
	f, _ := ctx.Value(ctxKey{}).(fields)
	return f
}

// WithSession marks ctx with a designer session id.
func WithSession(ctx context.Context, id string) context.Context {
	f := fieldsFrom(ctx)
	f.session = id
	return context.WithValue(ctx, ctxKey{}, f)
}

// WithTemplate marks ctx with the name of the template being worked on.
func WithTemplate(ctx context.Context, name string) context.Context {
	f := fieldsFrom(ctx)
	f.template = name
	return context.WithValue(ctx, ctxKey{}, f)
}

// SessionFrom returns the session id carried by ctx.
func SessionFrom(ctx context.Context) (string, bool) {
	id := fieldsFrom(ctx).session
	return id, id != ""
}

// TemplateFrom returns the template name carried by ctx.
func TemplateFrom(ctx context.Context) (string, bool) {
	name := fieldsFrom(ctx).template
	return name, name != ""
}

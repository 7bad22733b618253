/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zalando/go-keyring"

	"labeldesigner/internal/editor"
	"labeldesigner/internal/units"
)

// memTokens is an in-memory TokenStore.
type memTokens map[string]string

func (m memTokens) Get(service, key string) (string, error) {
	v, ok := m[service+"/"+key]
	if !ok {
		return "", keyring.ErrNotFound
	}
	return v, nil
}
func (m memTokens) Set(service, key, value string) error { m[service+"/"+key] = value; return nil }
func (m memTokens) Delete(service, key string) error {
	if _, ok := m[service+"/"+key]; !ok {
		return keyring.ErrNotFound
	}
	delete(m, service+"/"+key)
	return nil
}

// isolate points the config file into a temp dir and stubs the keyring.
func isolate(t *testing.T) (string, memTokens) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigFile, path)
	for _, k := range []string{EnvServerURL, EnvServerTimeoutMs, EnvServerTLSInsec, EnvServerToken, EnvLibraryDir, EnvLogLevel, EnvLogFormat, EnvLogSource, EnvLogFile} {
		t.Setenv(k, "")
	}
	toks := memTokens{}
	t.Cleanup(UseTokenStore(toks))
	return path, toks
}

func TestDefaultsMatchEditor(t *testing.T) {
	isolate(t)
	cfg, tok, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if tok != "" {
		t.Fatalf("token = %q", tok)
	}
	ps, err := cfg.Editor.PageSettings()
	if err != nil {
		t.Fatal(err)
	}
	if ps != editor.DefaultPageSettings() {
		t.Fatalf("page settings = %+v", ps)
	}
	if cfg.Editor.SurfaceOptions() != editor.DefaultOptions() {
		t.Fatalf("surface options = %+v", cfg.Editor.SurfaceOptions())
	}
}

func TestEnvOverridesServer(t *testing.T) {
	isolate(t)
	t.Setenv(EnvServerURL, "https://inventree.test:8443")
	t.Setenv(EnvServerTimeoutMs, "2500")
	t.Setenv(EnvServerTLSInsec, "yes")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.BaseURL != "https://inventree.test:8443" || cfg.Server.Timeout() != 2500*time.Millisecond || !cfg.Server.TLSInsecure {
		t.Fatalf("server = %+v", cfg.Server)
	}
	if env, ok := EnvOverrideFor("server.base_url"); !ok || env != EnvServerURL {
		t.Fatalf("EnvOverrideFor = %q, %v", env, ok)
	}
	if _, ok := EnvOverrideFor("library.dir"); ok {
		t.Fatal("library.dir reported overridden")
	}
}

func TestFileMerge(t *testing.T) {
	path, _ := isolate(t)
	yml := `editor:
  grid_size: 2
  grid_unit: CM
  angle_step: 45
  snap_grid: true
  rotate_snap:
    disabled_modifier_step: 90
library:
  dir: /srv/labels
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	ps, err := cfg.Editor.PageSettings()
	if err != nil {
		t.Fatal(err)
	}
	if ps.Grid.SizeValue != 2 || ps.Grid.SizeUnit != units.Centimeter || ps.Snap.AngleValue != 45 || ps.Snap.AngleEnabled {
		t.Fatalf("page settings = %+v", ps)
	}
	if cfg.Editor.RotateSnap.DisabledModifierStep != 90 || cfg.Editor.RotateSnap.DisabledStep != 0.1 {
		t.Fatalf("rotate snap = %+v", cfg.Editor.RotateSnap)
	}
	if cfg.Library.Dir != "/srv/labels" || cfg.Library.Snapshots != 20 {
		t.Fatalf("library = %+v", cfg.Library)
	}
}

func TestLoadRejectsInvalidEditorConfig(t *testing.T) {
	path, _ := isolate(t)
	if err := os.WriteFile(path, []byte("editor:\n  grid_unit: pt\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Load(); err == nil {
		t.Fatal("expected error for unknown grid unit")
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "DEBUG "
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "/tmp/ld.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "/tmp/ld.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	isolate(t)
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "/var/log/ld.log")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "/var/log/ld.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}

func TestSaveAndTokenRoundTrip(t *testing.T) {
	path, toks := isolate(t)
	cfg := Defaults()
	cfg.Server.BaseURL = "https://stock.example"
	if err := Save(cfg, "secret"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	got, tok, err := Load()
	if err != nil || got.Server.BaseURL != "https://stock.example" || tok != "secret" {
		t.Fatalf("Load = %+v, %q, %v", got.Server, tok, err)
	}
	t.Setenv(EnvServerToken, "from-env")
	if _, tok, _ := Load(); tok != "from-env" {
		t.Fatalf("env token = %q", tok)
	}
	if err := ClearToken(); err != nil {
		t.Fatal(err)
	}
	if err := ClearToken(); err != nil {
		t.Fatalf("second clear: %v", err)
	}
	if len(toks) != 0 {
		t.Fatalf("tokens left: %v", toks)
	}
}

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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	"labeldesigner/internal/editor"
	"labeldesigner/internal/units"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

// EditorConfig seeds new documents and tunes the canvas.
type EditorConfig struct {
	GridSize     float64           `yaml:"grid_size"`
	GridUnit     string            `yaml:"grid_unit"`
	GridDPI      float64           `yaml:"grid_dpi"`
	ShowGrid     bool              `yaml:"show_grid"`
	SnapGrid     bool              `yaml:"snap_grid"`
	SnapAngle    bool              `yaml:"snap_angle"`
	AngleStep    float64           `yaml:"angle_step"`
	LengthUnit   string            `yaml:"length_unit"`
	RotateSnap   editor.RotateSnap `yaml:"rotate_snap"`
	MaxZoom      float64           `yaml:"max_zoom"`
	WheelDivisor float64           `yaml:"wheel_divisor"`
}

// ServerConfig points at an InvenTree instance.
type ServerConfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	TLSInsecure bool   `yaml:"tls_insecure"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type LibraryConfig struct {
	Dir string `yaml:"dir"`
	// Snapshots is the number of autosaves kept per template.
	Snapshots int `yaml:"snapshots"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Editor        EditorConfig  `yaml:"editor"`
	Server        ServerConfig  `yaml:"server"`
	Library       LibraryConfig `yaml:"library"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	ps := editor.DefaultPageSettings()
	opts := editor.DefaultOptions()
	return AppConfig{
		ConfigVersion: 1,
		Editor: EditorConfig{
			GridSize: ps.Grid.SizeValue, GridUnit: string(ps.Grid.SizeUnit), GridDPI: ps.Grid.DPI, ShowGrid: ps.Grid.Show,
			SnapGrid: ps.Snap.GridEnabled, SnapAngle: ps.Snap.AngleEnabled, AngleStep: ps.Snap.AngleValue,
			LengthUnit: string(ps.Unit.LengthUnit), RotateSnap: opts.RotateSnap,
			MaxZoom: opts.MaxZoom, WheelDivisor: opts.WheelDivisor,
		},
		Server:  ServerConfig{BaseURL: "http://localhost:8000", TimeoutMs: 15000, TLSInsecure: false},
		Library: LibraryConfig{Dir: defaultLibraryDir(), Snapshots: 20},
		Logging: LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvServerURL       = "LD_SERVER_URL"
	EnvServerTimeoutMs = "LD_SERVER_TIMEOUT_MS"
	EnvServerTLSInsec  = "LD_TLS_INSECURE"
	EnvServerToken     = "LD_SERVER_TOKEN"
	EnvLibraryDir      = "LD_LIBRARY_DIR"
	EnvConfigFile      = "LD_CONFIG"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "LD_LOG_LEVEL"
	EnvLogFormat = "LD_LOG_FORMAT"
	EnvLogSource = "LD_LOG_SOURCE"
	EnvLogFile   = "LD_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService = "LabelDesigner"
	keyringToken   = "server_token"
)

// tokenStore abstracts keyring, so we can stub in tests.
var tokenStore TokenStore = osKeyring{}

type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements TokenStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

// UseTokenStore replaces the keyring, returning a func restoring the previous one.
func UseTokenStore(ts TokenStore) (restore func()) {
	prev := tokenStore
	tokenStore = ts
	return func() { tokenStore = prev }
}

func userDir() string {
	switch runtime.GOOS {
	case "windows":
		base := os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		return filepath.Join(base, "LabelDesigner")
	case "darwin":
		return filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "LabelDesigner")
	default: // linux and others
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			return filepath.Join(x, "labeldesigner")
		}
		return filepath.Join(os.Getenv("HOME"), ".config", "labeldesigner")
	}
}

func defaultLibraryDir() string { return filepath.Join(userDir(), "library") }

// ConfigPath returns the per-user config file path. LD_CONFIG overrides it.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigFile)); p != "" {
		return p, nil
	}
	if runtime.GOOS != "windows" && os.Getenv("HOME") == "" && os.Getenv("XDG_CONFIG_HOME") == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(userDir(), "config.yaml"), nil
}

// Load reads user config file (if present), applies defaults, and merges environment overrides.
// It also loads the server token from the keyring, or LD_SERVER_TOKEN when set.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	}
	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return Defaults(), "", err
	}
	tok := strings.TrimSpace(os.Getenv(EnvServerToken))
	if tok == "" {
		tok, _ = tokenStore.Get(keyringService, keyringToken)
	}
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into OS keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return fmt.Errorf("store token: %w", err)
		}
	}
	return nil
}

// ClearToken removes the stored server token.
func ClearToken() error {
	err := tokenStore.Delete(keyringService, keyringToken)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// editor
	e, s := &dst.Editor, src.Editor
	if s.GridSize != 0 {
		e.GridSize = s.GridSize
	}
	if strings.TrimSpace(s.GridUnit) != "" {
		e.GridUnit = strings.ToLower(strings.TrimSpace(s.GridUnit))
	}
	if s.GridDPI != 0 {
		e.GridDPI = s.GridDPI
	}
	if s.AngleStep != 0 {
		e.AngleStep = s.AngleStep
	}
	if strings.TrimSpace(s.LengthUnit) != "" {
		e.LengthUnit = strings.ToLower(strings.TrimSpace(s.LengthUnit))
	}
	if s.RotateSnap.EnabledModifierStep != 0 {
		e.RotateSnap.EnabledModifierStep = s.RotateSnap.EnabledModifierStep
	}
	if s.RotateSnap.DisabledStep != 0 {
		e.RotateSnap.DisabledStep = s.RotateSnap.DisabledStep
	}
	if s.RotateSnap.DisabledModifierStep != 0 {
		e.RotateSnap.DisabledModifierStep = s.RotateSnap.DisabledModifierStep
	}
	if s.MaxZoom != 0 {
		e.MaxZoom = s.MaxZoom
	}
	if s.WheelDivisor != 0 {
		e.WheelDivisor = s.WheelDivisor
	}
	// booleans: copy directly from src (file) so user preferences persist
	e.ShowGrid = s.ShowGrid
	e.SnapGrid = s.SnapGrid
	e.SnapAngle = s.SnapAngle
	// server
	if src.Server.BaseURL != "" {
		dst.Server.BaseURL = src.Server.BaseURL
	}
	if src.Server.TimeoutMs != 0 {
		dst.Server.TimeoutMs = src.Server.TimeoutMs
	}
	dst.Server.TLSInsecure = src.Server.TLSInsecure
	// library
	if strings.TrimSpace(src.Library.Dir) != "" {
		dst.Library.Dir = strings.TrimSpace(src.Library.Dir)
	}
	if src.Library.Snapshots != 0 {
		dst.Library.Snapshots = src.Library.Snapshots
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvServerURL)); v != "" {
		cfg.Server.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvServerTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvServerTLSInsec)); v != "" {
		cfg.Server.TLSInsecure = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLibraryDir)); v != "" {
		cfg.Library.Dir = v
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env := map[string]string{
		"server.base_url":     EnvServerURL,
		"server.timeout_ms":   EnvServerTimeoutMs,
		"server.tls_insecure": EnvServerTLSInsec,
		"library.dir":         EnvLibraryDir,
		"logging.level":       EnvLogLevel,
		"logging.format":      EnvLogFormat,
		"logging.source":      EnvLogSource,
		"logging.file":        EnvLogFile,
	}[key]
	if env != "" && os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}

// Validate rejects settings the editor cannot start with.
func (c AppConfig) Validate() error {
	if _, err := c.Editor.PageSettings(); err != nil {
		return fmt.Errorf("editor config: %w", err)
	}
	return nil
}

// PageSettings returns the settings new documents start with.
func (e EditorConfig) PageSettings() (editor.PageSettings, error) {
	ps := editor.PageSettings{
		Grid:  editor.GridSettings{SizeValue: e.GridSize, SizeUnit: units.Unit(e.GridUnit), DPI: e.GridDPI, Show: e.ShowGrid},
		Snap:  editor.SnapSettings{GridEnabled: e.SnapGrid, AngleEnabled: e.SnapAngle, AngleValue: e.AngleStep},
		Unit:  editor.UnitSettings{LengthUnit: units.Unit(e.LengthUnit)},
		Scale: editor.ScaleSettings{UniformEnabled: false},
	}
	if err := ps.Validate(); err != nil {
		return editor.PageSettings{}, err
	}
	return ps, nil
}

// SurfaceOptions returns the canvas tuning for editor.NewSurface.
func (e EditorConfig) SurfaceOptions() editor.Options {
	return editor.Options{RotateSnap: e.RotateSnap, MaxZoom: e.MaxZoom, WheelDivisor: e.WheelDivisor}
}

// Timeout returns the server timeout, falling back to the default.
func (b ServerConfig) Timeout() time.Duration {
	if b.TimeoutMs <= 0 {
		return time.Duration(Defaults().Server.TimeoutMs) * time.Millisecond
	}
	return time.Duration(b.TimeoutMs) * time.Millisecond
}

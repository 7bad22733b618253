/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package backend talks to the label template API of an InvenTree server.
package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	applog "labeldesigner/internal/log"
)

// Kind selects the label model on the server.
type Kind string

const (
	KindPart      Kind = "part"
	KindStock     Kind = "stock"
	KindLocation  Kind = "location"
	KindBuildLine Kind = "buildline"
)

// Kinds lists the supported label models.
func Kinds() []Kind { return []Kind{KindPart, KindStock, KindLocation, KindBuildLine} }

// ParseKind validates s.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == strings.ToLower(strings.TrimSpace(s)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown label kind %q", s)
}

// ErrUnauthorized is matched by 401 and 403 responses.
var ErrUnauthorized = errors.New("server rejected credentials")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("server %s %s: %s", e.Method, e.Path, e.Status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && (e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden)
}

// LabelTemplate is the server's view of a template. Width and Height are in mm.
type LabelTemplate struct {
	PK              int64   `json:"pk"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	Label           string  `json:"label"`
	Width           float64 `json:"width"`
	Height          float64 `json:"height"`
	FilenamePattern string  `json:"filename_pattern"`
	Enabled         bool    `json:"enabled"`
}

// Client is a minimal HTTP client for the label template endpoints.
type Client struct {
	BaseURL string
	Token   string // API token, sent as "Token <key>"
	client  *http.Client
	log     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithInsecureTLS disables certificate verification for self-signed servers.
func WithInsecureTLS(insecure bool) Option {
	return func(c *Client) {
		if !insecure {
			return
		}
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in
		c.client.Transport = tr
	}
}

// WithHTTPClient replaces the underlying client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// NewClient creates a new client. baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL string, token string, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	c.log = applog.WithComponent("backend").With(slog.String("server", c.BaseURL))
	return c
}

func templatesPath(kind Kind) string { return "/api/label/" + string(kind) + "/" }

func (c *Client) resolve(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	base, err := url.Parse(c.BaseURL + "/")
	if err != nil {
		return "", err
	}
	return base.ResolveReference(u).String(), nil
}

func (c *Client) do(ctx context.Context, method, ref string, body io.Reader, contentType string) (*http.Response, error) {
	u, err := c.resolve(ref)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Token "+c.Token)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("request failed", slog.String("method", method), slog.String("url", u), slog.Any("err", err))
		return nil, err
	}
	c.log.Debug("request", slog.String("method", method), slog.String("url", u),
		slog.Int("status", resp.StatusCode), slog.Duration("took", time.Since(start)))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Method: method, Path: req.URL.Path, Code: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(b))}
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, ref string, body io.Reader, contentType string, dest any) error {
	resp, err := c.do(ctx, method, ref, body, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode %s response: %w", ref, err)
	}
	return nil
}

// ListTemplates returns the templates of kind.
func (c *Client) ListTemplates(ctx context.Context, kind Kind) ([]LabelTemplate, error) {
	var list []LabelTemplate
	if err := c.doJSON(ctx, http.MethodGet, templatesPath(kind), nil, "", &list); err != nil {
		return nil, err
	}
	return list, nil
}

// GetTemplate fetches one template's metadata.
func (c *Client) GetTemplate(ctx context.Context, kind Kind, pk int64) (*LabelTemplate, error) {
	var t LabelTemplate
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("%s%d/", templatesPath(kind), pk), nil, "", &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Download returns the document text of t.
func (c *Client) Download(ctx context.Context, t *LabelTemplate) (string, error) {
	if t == nil || strings.TrimSpace(t.Label) == "" {
		return "", errors.New("template has no file")
	}
	resp, err := c.do(ctx, http.MethodGet, t.Label, nil, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read template file: %w", err)
	}
	return string(b), nil
}

// Upload replaces the file of template pk with text and returns the updated
// metadata.
func (c *Client) Upload(ctx context.Context, kind Kind, pk int64, filename, text string) (*LabelTemplate, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("label", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(fw, text); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	var t LabelTemplate
	if err := c.doJSON(ctx, http.MethodPatch, fmt.Sprintf("%s%d/", templatesPath(kind), pk), &buf, mw.FormDataContentType(), &t); err != nil {
		return nil, err
	}
	c.log.Info("template uploaded", slog.String("kind", string(kind)), slog.Int64("pk", pk), slog.Int("bytes", len(text)))
	return &t, nil
}

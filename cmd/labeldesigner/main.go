/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"labeldesigner/internal/config"
	"labeldesigner/internal/crash"
	applog "labeldesigner/internal/log"
	"labeldesigner/internal/version"
)

// usageError makes main exit with status 2.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, a ...any) error { return usageError{msg: fmt.Sprintf(format, a...)} }

func usage(w io.Writer) {
	fmt.Fprintln(w, "Label Designer")
	fmt.Fprintf(w, "Version: %s\n", version.String())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  labeldesigner version|-v|--version              Show version")
	fmt.Fprintln(w, "  labeldesigner new -name N -width MM -height MM  Write an empty template (-o file, -save)")
	fmt.Fprintln(w, "  labeldesigner info <file>                       List the objects of a template")
	fmt.Fprintln(w, "  labeldesigner render [flags] <file>|-template N Export previews (-preset web|print, -format pdf,png,svg)")
	fmt.Fprintln(w, "  labeldesigner library list|save|show|rebuild    Manage the local template library")
	fmt.Fprintln(w, "  labeldesigner library export|import <zip>       Share templates as a pack")
	fmt.Fprintln(w, "  labeldesigner pull -kind K -pk N                Download a template from the server")
	fmt.Fprintln(w, "  labeldesigner push -kind K -pk N <file>|-template N  Upload a template to the server")
	fmt.Fprintln(w, "  labeldesigner ui [-template N]                  Launch desktop UI (build with -tags fyne for full UI)")
}

func main() {
	applog.Init(applog.FromEnv())
	defer crash.Recover(nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	var ue usageError
	if errors.As(err, &ue) || errors.Is(err, flag.ErrHelp) {
		os.Exit(2)
	}
	os.Exit(1)
}

// env carries what every subcommand needs.
type env struct {
	cfg    config.AppConfig
	token  string
	stdout io.Writer
	stderr io.Writer
	log    *slog.Logger
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stdout)
		return nil
	}
	switch args[0] {
	case "version", "--version", "-v":
		fmt.Fprintln(stdout, "Label Designer")
		fmt.Fprintln(stdout, version.String())
		return nil
	case "help", "-h", "--help":
		usage(stdout)
		return nil
	}

	cfg, token, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
		Console:   stderr,
	})
	e := &env{cfg: cfg, token: token, stdout: stdout, stderr: stderr, log: applog.WithComponent("cli")}
	e.log.Debug("start", slog.String("cmd", args[0]), slog.Int("args", len(args)-1))

	rest := args[1:]
	switch args[0] {
	case "new":
		return e.cmdNew(ctx, rest)
	case "info":
		return e.cmdInfo(rest)
	case "render":
		return e.cmdRender(ctx, rest)
	case "library":
		return e.cmdLibrary(ctx, rest)
	case "pull":
		return e.cmdPull(ctx, rest)
	case "push":
		return e.cmdPush(ctx, rest)
	case "ui":
		return e.cmdUI(ctx, rest)
	}
	usage(stderr)
	return usagef("unknown command %q", args[0])
}

// flags returns a subcommand flag set writing its usage to stderr.
func (e *env) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}

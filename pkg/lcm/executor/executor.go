// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package executor invokes the DSC child process and parses its wire
// contract (pkg/wire). It owns argument-vector construction, stdout
// result parsing, and stderr trace forwarding; it does not decide what
// to do with a Result, that is the worker's job.
package executor

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"

	"github.com/opendsc/opendsc/pkg/core/cerr"
	"github.com/opendsc/opendsc/pkg/core/log"
	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/wire"
)

// Mode is the DSC executor sub-command to invoke.
type Mode string

// Valid Mode values.
const (
	ModeTest Mode = "test"
	ModeSet  Mode = "set"
)

// Executor runs a configured DSC executable as a child process.
type Executor struct {
	// Path is the DSC executable's path. Empty means "dsc" resolved
	// from PATH.
	Path string
}

// New returns an Executor using path, or the "dsc" executable on PATH
// if path is empty.
func New(path string) *Executor {
	return &Executor{Path: path}
}

// Run invokes the executor in mode against the configuration file at
// configPath, mapping level to the child's trace level. Stdout is
// parsed as a single wire.Result document; stderr lines are forwarded
// to the log package at their mapped severity. Returns the parsed
// Result and the child's exit code; a non-zero exit code is not
// itself an error, the caller interprets it (per §4.10, success is
// decided by the Result's contents, not the exit code alone).
func (e *Executor) Run(ctx context.Context, mode Mode, configPath string, level wire.TraceLevel) (*wire.Result, int, error) {
	path := e.Path
	if path == "" {
		path = "dsc"
	}
	args := []string{
		"--trace-level", string(level),
		"--trace-format", "json",
		"--progress", "false",
		string(mode),
		"--file", configPath,
		"--output-format", "json",
	}
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = filepath.Dir(configPath)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, 0, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, 0, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, 0, fmt.Errorf("starting %s: %w", path, err)
	}

	var out bytes.Buffer
	done := make(chan struct{})
	go func() {
		defer close(done)
		forwardTrace(ctx, stderr)
	}()
	if _, err := io.Copy(&out, stdout); err != nil {
		_ = cmd.Wait()
		return nil, 0, fmt.Errorf("reading stdout: %w", err)
	}
	<-done

	waitErr := cmd.Wait()
	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errorsAsExitError(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, 0, fmt.Errorf("waiting for %s: %w", path, waitErr)
		}
	}

	res, err := parseResult(out.Bytes())
	if err != nil {
		return nil, exitCode, err
	}
	return res, exitCode, nil
}

// parseResult decodes data as a wire.Result, raising a MalformedResultError
// with the first bytes for diagnostics on failure rather than falling
// back to any partial interpretation.
func parseResult(data []byte) (*wire.Result, error) {
	res := &wire.Result{}
	if err := json.Unmarshal(data, res); err != nil {
		head := data
		if len(head) > 256 {
			head = head[:256]
		}
		return nil, cerr.ChildExecution(fmt.Errorf(
			"malformed DSC result, first bytes: %q: %w", head, err,
		))
	}
	return res, nil
}

// forwardTrace reads line-delimited JSON trace messages from r and
// forwards each to the log package at its mapped severity. A line
// that does not parse as JSON is logged verbatim at warning level,
// matching the executor's "do not fall back silently" stance for
// structured data, while remaining tolerant of the occasional
// diagnostic line a child process writes outside its trace protocol.
func forwardTrace(ctx context.Context, r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		msg := wire.TraceMessage{}
		if err := json.Unmarshal(line, &msg); err != nil {
			log.Warn(ctx, "unparsed trace line", slog.String("line", string(line)))
			continue
		}
		switch wire.NormalizeLevel(msg.Level) {
		case wire.LevelError:
			log.Error(ctx, msg.Fields.Message)
		case wire.LevelWarn:
			log.Warn(ctx, msg.Fields.Message)
		case wire.LevelDebug, wire.LevelTrace:
			log.Debug(ctx, msg.Fields.Message)
		default:
			log.Info(ctx, msg.Fields.Message)
		}
	}
}

// errorsAsExitError reports whether err is itself an *exec.ExitError,
// storing it in target. It is a direct type assertion and does not
// unwrap err.
func errorsAsExitError(err error, target **exec.ExitError) bool {
	ee, ok := err.(*exec.ExitError)
	if !ok {
		return false
	}
	*target = ee
	return true
}

// ToOutcomes converts a wire.Result's per-resource entries into the
// storage-facing model.ResourceOutcome shape, independent of whether
// the Result came from a test or a set invocation.
func ToOutcomes(res *wire.Result) []model.ResourceOutcome {
	outcomes := make([]model.ResourceOutcome, 0, len(res.Resources))
	for _, r := range res.Resources {
		o := model.ResourceOutcome{ResourceType: r.Type, ResourceName: r.Name}
		switch {
		case r.Test != nil:
			o.InDesiredState = r.Test.InDesiredState
		case r.Set != nil:
			o.HadErrors = r.Set.HadErrors
			o.Message = r.Set.Message
		}
		outcomes = append(outcomes, o)
	}
	return outcomes
}

// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package wire defines the DSC executor's wire contract: the JSON
// result document the child process prints on stdout, and the
// line-delimited JSON trace messages it prints on stderr. Both the LCM
// worker's executor adapter and any future native implementation of
// the child process must agree on these shapes.
package wire

import "time"

// Result is the single JSON document a DSC executor child process
// prints to stdout after a test or set invocation.
type Result struct {
	ExitCode  int              `json:"exitCode"`
	Resources []ResourceResult `json:"resources"`
	Metadata  Metadata         `json:"metadata"`
	HadErrors bool             `json:"hadErrors"`
}

// ResourceResult is one resource's outcome within a Result. Exactly
// one of Test or Set is populated, matching which sub-command produced
// the Result.
type ResourceResult struct {
	Type string       `json:"type"`
	Name string       `json:"name"`
	Test *TestOutcome `json:"test,omitempty"`
	Set  *SetOutcome  `json:"set,omitempty"`
}

// TestOutcome is a resource's outcome from a test invocation.
// InDesiredState is nil when the resource could not determine its
// state, which counts as not-in-desired-state for interpretation
// purposes.
type TestOutcome struct {
	InDesiredState *bool    `json:"inDesiredState"`
	Diff           []string `json:"diff,omitempty"`
}

// SetOutcome is a resource's outcome from a set invocation.
type SetOutcome struct {
	HadErrors bool   `json:"hadErrors"`
	Message   string `json:"message,omitempty"`
}

// Metadata carries cross-resource information about a Result that is
// not specific to any one resource.
type Metadata struct {
	RestartRequired []string `json:"restartRequired,omitempty"`
}

// AllInDesiredState reports whether every resource in r reported
// InDesiredState == true. A nil InDesiredState is treated as unknown
// and counts as not-in-desired-state, per the test interpretation
// rule.
func (r Result) AllInDesiredState() bool {
	for _, res := range r.Resources {
		if res.Test == nil || res.Test.InDesiredState == nil || !*res.Test.InDesiredState {
			return false
		}
	}
	return true
}

// TraceLevel names the verbosity of a TraceMessage, mirroring the
// executor's --trace-level argument.
type TraceLevel string

// Valid TraceLevel values. Any other value read from a trace message
// is mapped to LevelInfo.
const (
	LevelError TraceLevel = "error"
	LevelWarn  TraceLevel = "warn"
	LevelInfo  TraceLevel = "info"
	LevelDebug TraceLevel = "debug"
	LevelTrace TraceLevel = "trace"
)

// NormalizeLevel maps an arbitrary trace level string read from a
// child process's stderr to one of the known TraceLevel values,
// defaulting to LevelInfo for anything unrecognized.
func NormalizeLevel(s string) TraceLevel {
	switch TraceLevel(s) {
	case LevelError, LevelWarn, LevelInfo, LevelDebug, LevelTrace:
		return TraceLevel(s)
	default:
		return LevelInfo
	}
}

// TraceMessage is one line-delimited JSON object read from the child
// process's stderr.
type TraceMessage struct {
	Timestamp time.Time   `json:"timestamp"`
	Level     string      `json:"level"`
	Fields    TraceFields `json:"fields"`
}

// TraceFields carries the human-readable part of a TraceMessage.
type TraceFields struct {
	Message string `json:"message"`
}

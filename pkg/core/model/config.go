// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package model

import (
	"regexp"
	"time"
)

// NamePattern is the validation pattern shared by Configuration and
// CompositeConfiguration names, and by ScopeValue values.
var NamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Configuration is a named, versioned set of files distributed to
// nodes, with optional server-managed parameters layered on top.
type Configuration struct {
	ID               string
	Name             string // unique, matches NamePattern
	Description      string
	EntryPoint       string // file name invoked by the DSC executor
	IsServerManaged  bool
	CreatedAt        time.Time
}

// ConfigurationVersion is a SemVer-identified, immutable-once-published
// snapshot of a Configuration's files.
type ConfigurationVersion struct {
	ID              string
	ConfigurationID string
	Version         SemVer
	IsDraft         bool
	IsArchived      bool
	SchemaHash      string // weak reference to a ParameterSchema, may be empty
	CreatedAt       time.Time
	CreatedBy       string
}

// IsPublished reports whether cv is neither a draft nor archived.
func (cv ConfigurationVersion) IsPublished() bool {
	return !cv.IsDraft && !cv.IsArchived
}

// SemVerOf implements the semver.Versioned interface.
func (cv ConfigurationVersion) SemVerOf() SemVer { return cv.Version }

// ConfigurationFile is one file belonging to a ConfigurationVersion.
type ConfigurationFile struct {
	ID         string
	VersionID  string
	Path       string // relative, forward-slash, never contains ".."
	Content    []byte
	SHA256     string // hex-lowercase
}

// CompositeConfiguration is an ordered reference list of non-composite
// Configurations, bundled together with a generated orchestrator file.
type CompositeConfiguration struct {
	ID          string
	Name        string
	EntryPoint  string
	Description string
	CreatedAt   time.Time
}

// CompositeConfigurationVersion is a SemVer-identified snapshot of a
// CompositeConfiguration's ordered child item list.
type CompositeConfigurationVersion struct {
	ID           string
	CompositeID  string
	Version      SemVer
	IsDraft      bool
	IsArchived   bool
	Items        []CompositeConfigurationItem // ordered by Order ascending
	CreatedAt    time.Time
	CreatedBy    string
}

// IsPublished reports whether ccv is neither a draft nor archived.
func (ccv CompositeConfigurationVersion) IsPublished() bool {
	return !ccv.IsDraft && !ccv.IsArchived
}

// SemVerOf implements the semver.Versioned interface.
func (ccv CompositeConfigurationVersion) SemVerOf() SemVer { return ccv.Version }

// CompositeConfigurationItem pins one child Configuration within a
// CompositeConfigurationVersion.
type CompositeConfigurationItem struct {
	ID              string
	VersionID       string // parent CompositeConfigurationVersion
	ConfigurationID string // child Configuration, must be non-composite
	PinnedVersion   *SemVer
	Order           int
}

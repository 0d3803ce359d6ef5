// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package model

import "time"

// ParameterFile is one versioned parameter document for a
// (Configuration, ScopeType, ScopeValue) triple. ScopeValueID is empty
// for the Default scope. At most one ParameterFile per triple may be
// IsActive at any instant.
type ParameterFile struct {
	ID              string
	ConfigurationID string
	ScopeTypeID     string
	ScopeValueID    string // empty for Default scope
	Version         string // free-form version label, not necessarily SemVer
	Content         []byte
	ContentType     string // "yaml" or "json"
	Checksum        string // SHA-256 hex of Content
	SchemaHash      string // weak reference to a ParameterSchema
	IsDraft         bool
	IsActive        bool
	IsArchived      bool
	CreatedAt       time.Time
}

// ParameterSchema is a structural JSON Schema derived from a parameter
// document, stored once per unique normalized hash and shared by every
// ParameterFile/ConfigurationVersion whose document normalizes the same
// way.
type ParameterSchema struct {
	Hash   string // SHA-256 hex of the normalized schema JSON
	Schema []byte // normalized JSON schema bytes
}

// SourceTag identifies one document in an ordered merge input sequence:
// a scope type/value pair and its precedence. Precedence must strictly
// increase across a sequence passed to the merger.
type SourceTag struct {
	ScopeTypeName string
	ScopeValue    string // empty for Default and for Node (FQDN goes here when relevant)
	Precedence    int
}

// String renders the tag as "ScopeTypeName:ScopeValue", or just
// ScopeTypeName when ScopeValue is empty (e.g. "Default").
func (s SourceTag) String() string {
	if s.ScopeValue == "" {
		return s.ScopeTypeName
	}
	return s.ScopeTypeName + ":" + s.ScopeValue
}

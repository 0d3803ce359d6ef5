// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package model

// DefaultScopeTypeName and NodeScopeTypeName are the two system scope
// types which always exist and are never deleted.
const (
	DefaultScopeTypeName = "Default"
	NodeScopeTypeName    = "Node"
)

// ScopeType is a precedence-layered parameter source category, such as
// "Region" or "Environment". Precedence is unique across all scope
// types; Default is pinned at 0 and Node always holds the highest
// precedence of the set.
type ScopeType struct {
	ID          string
	Name        string
	Precedence  int
	AllowValues bool // Default is the only type with AllowValues == false
	IsSystem    bool // true for Default and Node; never deleted
}

// ScopeValue is an instance within a ScopeType, e.g. "US-West" within
// "Region". Node-type scope values are implicit from node FQDNs and are
// not stored as rows.
type ScopeValue struct {
	ID          string
	ScopeTypeID string
	Value       string // matches NamePattern, unique within ScopeType
}

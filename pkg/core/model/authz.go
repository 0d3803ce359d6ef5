// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package model

// PrincipalType distinguishes a User from a Group in an ACLEntry.
type PrincipalType string

// Valid PrincipalType values.
const (
	PrincipalUser  PrincipalType = "User"
	PrincipalGroup PrincipalType = "Group"
)

// AccessLevel orders the three resource-permission tiers an ACLEntry
// may grant. Higher values imply every privilege of lower ones.
type AccessLevel int

// Valid AccessLevel values, ordered Read < Modify < Manage.
const (
	AccessRead AccessLevel = iota + 1
	AccessModify
	AccessManage
)

// Satisfies reports whether level meets or exceeds required.
func (level AccessLevel) Satisfies(required AccessLevel) bool {
	return level >= required
}

// User is an authenticated principal. Roles is the set of Role names
// granted directly; GroupIDs is the set of Groups the user belongs to.
type User struct {
	ID       string
	Username string
	Roles    []string
	GroupIDs []string
}

// Group is a named collection of Roles, granted to its members
// transitively. Membership may originate locally or from an external
// identity provider's group claim.
type Group struct {
	ID    string
	Name  string
	Roles []string
}

// Role is a named set of global permission strings, such as
// "nodes.read" or "configurations.admin-override".
type Role struct {
	Name        string
	Permissions []string
}

// ResourceKind names the kinds of resource an ACLEntry may scope to.
type ResourceKind string

// Valid ResourceKind values.
const (
	ResourceConfiguration      ResourceKind = "Configuration"
	ResourceCompositeConfig    ResourceKind = "CompositeConfiguration"
	ResourceParameterFile      ResourceKind = "ParameterFile"
)

// ACLEntry grants a principal an AccessLevel over one resource.
type ACLEntry struct {
	ID            string
	PrincipalID   string
	PrincipalType PrincipalType
	ResourceKind  ResourceKind
	ResourceID    string
	Level         AccessLevel
}

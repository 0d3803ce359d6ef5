// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package authz implements the two-tier authorization model: global,
// role-derived permissions and resource-scoped ACL entries.
package authz

import "github.com/opendsc/opendsc/pkg/core/model"

// Wildcard grants every global permission when present in a
// PermissionSet.
const Wildcard = "*"

// PermissionSet is the union of every global permission string a user
// holds, directly or via group membership.
type PermissionSet map[string]struct{}

// Has reports whether s grants perm, honoring the "*" wildcard.
func (s PermissionSet) Has(perm string) bool {
	if _, ok := s[Wildcard]; ok {
		return true
	}
	_, ok := s[perm]
	return ok
}

// ResolvePermissions computes the PermissionSet for user: the union of
// permissions from roles granted directly and from roles granted via
// every group the user belongs to.
func ResolvePermissions(user *model.User, roles map[string]*model.Role, groups map[string]*model.Group) PermissionSet {
	set := PermissionSet{}
	addRole := func(name string) {
		r, ok := roles[name]
		if !ok {
			return
		}
		for _, p := range r.Permissions {
			set[p] = struct{}{}
		}
	}
	for _, rn := range user.Roles {
		addRole(rn)
	}
	for _, gid := range user.GroupIDs {
		g, ok := groups[gid]
		if !ok {
			continue
		}
		for _, rn := range g.Roles {
			addRole(rn)
		}
	}
	return set
}

// ResourceRef identifies the resource a Request is scoped to.
type ResourceRef struct {
	Kind model.ResourceKind
	ID   string
}

// Request describes one authorization decision to make.
type Request struct {
	// GlobalPermission is tested against the caller's resolved
	// PermissionSet. For resource-scoped actions this is the
	// "*.admin-override" permission that may bypass the ACL lookup;
	// for purely global actions (e.g. "nodes.read") it is the only
	// check performed, and Resource is left nil.
	GlobalPermission string

	// Resource is non-nil for actions scoped to a Configuration,
	// CompositeConfiguration, or ParameterFile. When set, a denial of
	// GlobalPermission falls through to the ACL lookup instead of
	// failing outright.
	Resource *ResourceRef

	// Required is the minimum AccessLevel an ACL entry must grant when
	// Resource is set.
	Required model.AccessLevel
}

// ACLLookup resolves the ACL entries applicable to a (user, groups,
// resource) triple. Implementations query the repository layer.
type ACLLookup func(resource ResourceRef, userID string, groupIDs []string) ([]*model.ACLEntry, error)

// Decide applies the decision procedure: a pure global action is
// allowed iff perms grants req.GlobalPermission; a resource-scoped
// action is allowed if perms grants the admin-override permission, or
// else if aclLookup returns an entry for the user or one of its groups
// whose Level satisfies req.Required.
func Decide(req Request, user *model.User, perms PermissionSet, aclLookup ACLLookup) (bool, error) {
	if req.Resource == nil {
		return perms.Has(req.GlobalPermission), nil
	}
	if perms.Has(req.GlobalPermission) {
		return true, nil
	}
	entries, err := aclLookup(*req.Resource, user.ID, user.GroupIDs)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.Level.Satisfies(req.Required) {
			return true, nil
		}
	}
	return false, nil
}

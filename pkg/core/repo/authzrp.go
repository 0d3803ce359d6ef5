// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package repo

import (
	"context"

	"github.com/opendsc/opendsc/pkg/core/model"
)

// AuthzConnQueryer lists the authorization operations which require an
// open connection rather than an ongoing transaction.
type AuthzConnQueryer interface {
	AuthzQueryer
}

// AuthzTxQueryer lists the authorization operations which require an
// ongoing transaction.
type AuthzTxQueryer interface {
	AuthzQueryer
}

// AuthzQueryer lists the User/Role/Group/ACLEntry operations which may
// run with either a connection or a transaction at hand.
type AuthzQueryer interface {
	// UserByID loads a User by ID, with its direct Roles and GroupIDs.
	UserByID(ctx context.Context, id string) (*model.User, error)

	// UserByUsername loads a User by its unique username.
	UserByUsername(ctx context.Context, username string) (*model.User, error)

	// Roles loads every Role, keyed by name.
	Roles(ctx context.Context) (map[string]*model.Role, error)

	// Groups loads every Group, keyed by ID.
	Groups(ctx context.Context) (map[string]*model.Group, error)

	// ACLEntriesFor loads every ACLEntry applicable to resource for the
	// given user or any of its groups.
	ACLEntriesFor(ctx context.Context, kind model.ResourceKind, resourceID, userID string, groupIDs []string) ([]*model.ACLEntry, error)

	// GrantACL creates or updates (idempotently) one ACLEntry.
	GrantACL(ctx context.Context, e *model.ACLEntry) error

	// RevokeACL removes one ACLEntry by ID.
	RevokeACL(ctx context.Context, id string) error
}

// Authz is the User/Role/Group/ACLEntry repository.
type Authz interface {
	Conn(Conn) AuthzConnQueryer
	Tx(Tx) AuthzTxQueryer
}

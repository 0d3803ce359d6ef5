// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package authzrp is the adapter for the User/Role/Group/ACLEntry
// repository.
package authzrp

import (
	"context"

	"github.com/opendsc/opendsc/pkg/adapter/db/postgres"
	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/core/repo"
)

// Repo represents the Authz repository instance.
type Repo struct{}

// New instantiates an Authz Repo.
func New() *Repo {
	return &Repo{}
}

// Models returns the gorm models backing this repository, for use with
// postgres.Pool.AutoMigrate.
func Models() []any {
	return []any{&gUser{}, &gGroup{}, &gRole{}, &gACLEntry{}}
}

type connQueryer struct {
	*postgres.Conn
}

// Conn takes a Conn interface instance, unwraps it, and returns an
// AuthzConnQueryer able to run connection-scoped operations.
func (r *Repo) Conn(c repo.Conn) repo.AuthzConnQueryer {
	return connQueryer{Conn: c.(*postgres.Conn)}
}

type txQueryer struct {
	*postgres.Tx
}

// Tx takes a Tx interface instance, unwraps it, and returns an
// AuthzTxQueryer able to run transaction-scoped operations.
func (r *Repo) Tx(tx repo.Tx) repo.AuthzTxQueryer {
	return txQueryer{Tx: tx.(*postgres.Tx)}
}

func (q connQueryer) UserByID(ctx context.Context, id string) (*model.User, error) {
	return UserByID(ctx, q.Conn, id)
}

func (q connQueryer) UserByUsername(ctx context.Context, username string) (*model.User, error) {
	return UserByUsername(ctx, q.Conn, username)
}

func (q connQueryer) Roles(ctx context.Context) (map[string]*model.Role, error) {
	return Roles(ctx, q.Conn)
}

func (q connQueryer) Groups(ctx context.Context) (map[string]*model.Group, error) {
	return Groups(ctx, q.Conn)
}

func (q connQueryer) ACLEntriesFor(ctx context.Context, kind model.ResourceKind, resourceID, userID string, groupIDs []string) ([]*model.ACLEntry, error) {
	return ACLEntriesFor(ctx, q.Conn, kind, resourceID, userID, groupIDs)
}

func (q connQueryer) GrantACL(ctx context.Context, e *model.ACLEntry) error {
	return GrantACL(ctx, q.Conn, e)
}

func (q connQueryer) RevokeACL(ctx context.Context, id string) error {
	return RevokeACL(ctx, q.Conn, id)
}

func (q txQueryer) UserByID(ctx context.Context, id string) (*model.User, error) {
	return UserByID(ctx, q.Tx, id)
}

func (q txQueryer) UserByUsername(ctx context.Context, username string) (*model.User, error) {
	return UserByUsername(ctx, q.Tx, username)
}

func (q txQueryer) Roles(ctx context.Context) (map[string]*model.Role, error) {
	return Roles(ctx, q.Tx)
}

func (q txQueryer) Groups(ctx context.Context) (map[string]*model.Group, error) {
	return Groups(ctx, q.Tx)
}

func (q txQueryer) ACLEntriesFor(ctx context.Context, kind model.ResourceKind, resourceID, userID string, groupIDs []string) ([]*model.ACLEntry, error) {
	return ACLEntriesFor(ctx, q.Tx, kind, resourceID, userID, groupIDs)
}

func (q txQueryer) GrantACL(ctx context.Context, e *model.ACLEntry) error {
	return GrantACL(ctx, q.Tx, e)
}

func (q txQueryer) RevokeACL(ctx context.Context, id string) error {
	return RevokeACL(ctx, q.Tx, id)
}

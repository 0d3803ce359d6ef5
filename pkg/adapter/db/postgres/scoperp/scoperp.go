// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package scoperp is the adapter for the ScopeType/ScopeValue
// repository.
package scoperp

import (
	"context"

	"github.com/opendsc/opendsc/pkg/adapter/db/postgres"
	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/core/repo"
)

// Repo represents the Scopes repository instance.
type Repo struct{}

// New instantiates a Scopes Repo.
func New() *Repo {
	return &Repo{}
}

// Models returns the gorm models backing this repository, for use with
// postgres.Pool.AutoMigrate.
func Models() []any {
	return []any{&gScopeType{}, &gScopeValue{}}
}

type connQueryer struct {
	*postgres.Conn
}

// Conn takes a Conn interface instance, unwraps it, and returns a
// ScopesConnQueryer able to run connection-scoped operations.
func (r *Repo) Conn(c repo.Conn) repo.ScopesConnQueryer {
	return connQueryer{Conn: c.(*postgres.Conn)}
}

type txQueryer struct {
	*postgres.Tx
}

// Tx takes a Tx interface instance, unwraps it, and returns a
// ScopesTxQueryer able to run transaction-scoped operations.
func (r *Repo) Tx(tx repo.Tx) repo.ScopesTxQueryer {
	return txQueryer{Tx: tx.(*postgres.Tx)}
}

func (q connQueryer) CreateType(ctx context.Context, st *model.ScopeType) error {
	return CreateType(ctx, q.Conn, st)
}

func (q connQueryer) Types(ctx context.Context) ([]*model.ScopeType, error) {
	return Types(ctx, q.Conn)
}

func (q connQueryer) TypeByName(ctx context.Context, name string) (*model.ScopeType, error) {
	return TypeByName(ctx, q.Conn, name)
}

func (q connQueryer) UpdateTypePrecedence(ctx context.Context, id string, precedence int) error {
	return UpdateTypePrecedence(ctx, q.Conn, id, precedence)
}

func (q connQueryer) DeleteType(ctx context.Context, id string) error {
	return DeleteType(ctx, q.Conn, id)
}

func (q connQueryer) CreateValue(ctx context.Context, sv *model.ScopeValue) error {
	return CreateValue(ctx, q.Conn, sv)
}

func (q connQueryer) Values(ctx context.Context, scopeTypeID string) ([]*model.ScopeValue, error) {
	return Values(ctx, q.Conn, scopeTypeID)
}

func (q connQueryer) ValueByID(ctx context.Context, id string) (*model.ScopeValue, *model.ScopeType, error) {
	return ValueByID(ctx, q.Conn, id)
}

func (q connQueryer) DeleteValue(ctx context.Context, id string) error {
	return DeleteValue(ctx, q.Conn, id)
}

func (q txQueryer) CreateType(ctx context.Context, st *model.ScopeType) error {
	return CreateType(ctx, q.Tx, st)
}

func (q txQueryer) Types(ctx context.Context) ([]*model.ScopeType, error) {
	return Types(ctx, q.Tx)
}

func (q txQueryer) TypeByName(ctx context.Context, name string) (*model.ScopeType, error) {
	return TypeByName(ctx, q.Tx, name)
}

func (q txQueryer) UpdateTypePrecedence(ctx context.Context, id string, precedence int) error {
	return UpdateTypePrecedence(ctx, q.Tx, id, precedence)
}

func (q txQueryer) DeleteType(ctx context.Context, id string) error {
	return DeleteType(ctx, q.Tx, id)
}

func (q txQueryer) CreateValue(ctx context.Context, sv *model.ScopeValue) error {
	return CreateValue(ctx, q.Tx, sv)
}

func (q txQueryer) Values(ctx context.Context, scopeTypeID string) ([]*model.ScopeValue, error) {
	return Values(ctx, q.Tx, scopeTypeID)
}

func (q txQueryer) ValueByID(ctx context.Context, id string) (*model.ScopeValue, *model.ScopeType, error) {
	return ValueByID(ctx, q.Tx, id)
}

func (q txQueryer) DeleteValue(ctx context.Context, id string) error {
	return DeleteValue(ctx, q.Tx, id)
}

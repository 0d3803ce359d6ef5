// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package authnrp is the adapter for the Session/PersonalAccessToken
// repository.
package authnrp

import (
	"context"
	"time"

	"github.com/opendsc/opendsc/pkg/adapter/db/postgres"
	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/core/repo"
)

// Repo represents the Authn repository instance.
type Repo struct{}

// New instantiates an Authn Repo.
func New() *Repo {
	return &Repo{}
}

// Models returns the gorm models backing this repository, for use with
// postgres.Pool.AutoMigrate.
func Models() []any {
	return []any{&gSession{}, &gPersonalAccessToken{}}
}

type connQueryer struct {
	*postgres.Conn
}

// Conn takes a Conn interface instance, unwraps it, and returns an
// AuthnConnQueryer able to run connection-scoped operations.
func (r *Repo) Conn(c repo.Conn) repo.AuthnConnQueryer {
	return connQueryer{Conn: c.(*postgres.Conn)}
}

type txQueryer struct {
	*postgres.Tx
}

// Tx takes a Tx interface instance, unwraps it, and returns an
// AuthnTxQueryer able to run transaction-scoped operations.
func (r *Repo) Tx(tx repo.Tx) repo.AuthnTxQueryer {
	return txQueryer{Tx: tx.(*postgres.Tx)}
}

func (q connQueryer) CreateSession(ctx context.Context, s *model.Session) error {
	return CreateSession(ctx, q.Conn, s)
}

func (q connQueryer) SessionByToken(ctx context.Context, token string) (*model.Session, error) {
	return SessionByToken(ctx, q.Conn, token)
}

func (q connQueryer) TouchSession(ctx context.Context, id string, lastSeenAt time.Time) error {
	return TouchSession(ctx, q.Conn, id, lastSeenAt)
}

func (q connQueryer) DeleteSession(ctx context.Context, id string) error {
	return DeleteSession(ctx, q.Conn, id)
}

func (q connQueryer) PersonalAccessTokenByToken(ctx context.Context, token string) (*model.PersonalAccessToken, error) {
	return PersonalAccessTokenByToken(ctx, q.Conn, token)
}

func (q txQueryer) CreateSession(ctx context.Context, s *model.Session) error {
	return CreateSession(ctx, q.Tx, s)
}

func (q txQueryer) SessionByToken(ctx context.Context, token string) (*model.Session, error) {
	return SessionByToken(ctx, q.Tx, token)
}

func (q txQueryer) TouchSession(ctx context.Context, id string, lastSeenAt time.Time) error {
	return TouchSession(ctx, q.Tx, id, lastSeenAt)
}

func (q txQueryer) DeleteSession(ctx context.Context, id string) error {
	return DeleteSession(ctx, q.Tx, id)
}

func (q txQueryer) PersonalAccessTokenByToken(ctx context.Context, token string) (*model.PersonalAccessToken, error) {
	return PersonalAccessTokenByToken(ctx, q.Tx, token)
}

// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package repo

import (
	"context"
	"time"

	"github.com/opendsc/opendsc/pkg/core/model"
)

// AuthnConnQueryer lists the Session/PersonalAccessToken operations
// which require an open connection rather than an ongoing transaction.
type AuthnConnQueryer interface {
	AuthnQueryer
}

// AuthnTxQueryer lists the Session/PersonalAccessToken operations
// which require an ongoing transaction.
type AuthnTxQueryer interface {
	AuthnQueryer
}

// AuthnQueryer lists the Session/PersonalAccessToken operations which
// may run with either a connection or a transaction at hand.
type AuthnQueryer interface {
	// CreateSession persists a new Session.
	CreateSession(ctx context.Context, s *model.Session) error

	// SessionByToken loads a Session by its bearer token.
	SessionByToken(ctx context.Context, token string) (*model.Session, error)

	// TouchSession advances a Session's LastSeenAt, sliding its idle
	// timeout forward.
	TouchSession(ctx context.Context, id string, lastSeenAt time.Time) error

	// DeleteSession removes a Session by ID, ending that login.
	DeleteSession(ctx context.Context, id string) error

	// PersonalAccessTokenByToken loads a PersonalAccessToken by its
	// bearer token.
	PersonalAccessTokenByToken(ctx context.Context, token string) (*model.PersonalAccessToken, error)
}

// Authn is the Session/PersonalAccessToken repository.
type Authn interface {
	Conn(Conn) AuthnConnQueryer
	Tx(Tx) AuthnTxQueryer
}

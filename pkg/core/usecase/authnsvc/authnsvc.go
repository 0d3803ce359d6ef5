// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package authnsvc resolves an operator's session cookie or personal
// access token to a model.User, composing the Session/PersonalAccessToken
// repository with the User/Role/Group repository. Password hashing and
// personal access token issuance are outside this package's scope; it
// only consumes already-issued credentials.
package authnsvc

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/opendsc/opendsc/pkg/core/cerr"
	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/core/repo"
)

// UseCase resolves authentication decisions against the
// Session/PersonalAccessToken and User repositories.
type UseCase struct {
	pool  repo.Pool
	authn repo.Authn
	authz repo.Authz
}

// New instantiates the authentication use case.
func New(p repo.Pool, n repo.Authn, z repo.Authz) *UseCase {
	return &UseCase{pool: p, authn: n, authz: z}
}

// AuthenticateSession resolves token to its User, sliding the
// session's idle timeout forward on success. Returns
// cerr.Authentication if the token is unknown or expired.
func (uc *UseCase) AuthenticateSession(ctx context.Context, token string, now time.Time) (*model.User, error) {
	var user *model.User
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		aq := uc.authn.Conn(conn)
		sess, err := aq.SessionByToken(ctx, token)
		if err != nil {
			return cerr.Authentication(fmt.Errorf("session lookup: %w", err))
		}
		if sess.Expired(now) {
			return cerr.Authentication(fmt.Errorf("session has expired"))
		}
		if err := aq.TouchSession(ctx, sess.ID, now); err != nil {
			return fmt.Errorf("touch session: %w", err)
		}
		u, err := uc.authz.Conn(conn).UserByID(ctx, sess.UserID)
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// AuthenticatePAT resolves token (the raw "pat_..." bearer value) to
// its User. Returns cerr.Authentication if the token is unknown,
// revoked, or expired.
func (uc *UseCase) AuthenticatePAT(ctx context.Context, token string, now time.Time) (*model.User, error) {
	var user *model.User
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		aq := uc.authn.Conn(conn)
		pat, err := aq.PersonalAccessTokenByToken(ctx, token)
		if err != nil {
			return cerr.Authentication(fmt.Errorf("personal access token lookup: %w", err))
		}
		if !pat.Usable(now) {
			return cerr.Authentication(fmt.Errorf("personal access token is revoked or expired"))
		}
		u, err := uc.authz.Conn(conn).UserByID(ctx, pat.UserID)
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateSession starts a new Session for userID, generating a random
// bearer token the caller is responsible for setting as a cookie.
func (uc *UseCase) CreateSession(ctx context.Context, userID string, now time.Time) (*model.Session, error) {
	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("generating session token: %w", err)
	}
	sess := &model.Session{
		Token:      token,
		UserID:     userID,
		CreatedAt:  now,
		LastSeenAt: now,
	}
	err = uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		return uc.authn.Conn(conn).CreateSession(ctx, sess)
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// EndSession deletes a Session by ID, logging the operator out.
func (uc *UseCase) EndSession(ctx context.Context, id string) error {
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		return uc.authn.Conn(conn).DeleteSession(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// newToken generates a random 32-byte bearer value, hex-encoded,
// matching the registration key generator's approach since both are
// bearer secrets with no corpus precedent (google/uuid, used
// throughout the repo, identifies records rather than producing a
// secret).
func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

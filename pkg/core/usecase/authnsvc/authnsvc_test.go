// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package authnsvc_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/opendsc/opendsc/pkg/core/cerr"
	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/core/repo"
	"github.com/opendsc/opendsc/pkg/core/usecase/authnsvc"
	"github.com/stretchr/testify/require"
)

type fakeConn struct{}

func (fakeConn) Exec(ctx context.Context, sql string, args ...any) (int64, error) { return 0, nil }
func (fakeConn) Query(ctx context.Context, sql string, args ...any) (repo.Rows, error) {
	return nil, nil
}
func (fakeConn) Tx(ctx context.Context, handler repo.TxHandler) error {
	return handler(ctx, fakeTx{})
}
func (fakeConn) IsConn() {}

type fakeTx struct{}

func (fakeTx) Exec(ctx context.Context, sql string, args ...any) (int64, error) { return 0, nil }
func (fakeTx) Query(ctx context.Context, sql string, args ...any) (repo.Rows, error) {
	return nil, nil
}
func (fakeTx) IsTx() {}

type fakePool struct{}

func (fakePool) Conn(ctx context.Context, handler repo.ConnHandler) error {
	return handler(ctx, fakeConn{})
}

type fakeAuthn struct {
	sessions map[string]*model.Session
	pats     map[string]*model.PersonalAccessToken
}

func (f *fakeAuthn) Conn(repo.Conn) repo.AuthnConnQueryer { return f }
func (f *fakeAuthn) Tx(repo.Tx) repo.AuthnTxQueryer       { return f }

func (f *fakeAuthn) CreateSession(ctx context.Context, s *model.Session) error {
	s.ID = fmt.Sprintf("sess-%d", len(f.sessions)+1)
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeAuthn) SessionByToken(ctx context.Context, token string) (*model.Session, error) {
	for _, s := range f.sessions {
		if s.Token == token {
			return s, nil
		}
	}
	return nil, cerr.NotFound(fmt.Errorf("session not found"))
}

func (f *fakeAuthn) TouchSession(ctx context.Context, id string, lastSeenAt time.Time) error {
	s, ok := f.sessions[id]
	if !ok {
		return cerr.NotFound(fmt.Errorf("session %q not found", id))
	}
	s.LastSeenAt = lastSeenAt
	return nil
}

func (f *fakeAuthn) DeleteSession(ctx context.Context, id string) error {
	if _, ok := f.sessions[id]; !ok {
		return cerr.NotFound(fmt.Errorf("session %q not found", id))
	}
	delete(f.sessions, id)
	return nil
}

func (f *fakeAuthn) PersonalAccessTokenByToken(ctx context.Context, token string) (*model.PersonalAccessToken, error) {
	for _, p := range f.pats {
		if p.Token == token {
			return p, nil
		}
	}
	return nil, cerr.NotFound(fmt.Errorf("personal access token not found"))
}

func newFakeAuthn() *fakeAuthn {
	return &fakeAuthn{
		sessions: map[string]*model.Session{},
		pats:     map[string]*model.PersonalAccessToken{},
	}
}

type fakeAuthz struct {
	users map[string]*model.User
}

func (f *fakeAuthz) Conn(repo.Conn) repo.AuthzConnQueryer { return f }
func (f *fakeAuthz) Tx(repo.Tx) repo.AuthzTxQueryer       { return f }

func (f *fakeAuthz) UserByID(ctx context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, cerr.NotFound(fmt.Errorf("user %q not found", id))
	}
	return u, nil
}

func (f *fakeAuthz) UserByUsername(ctx context.Context, username string) (*model.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, cerr.NotFound(fmt.Errorf("user %q not found", username))
}

func (f *fakeAuthz) Roles(ctx context.Context) (map[string]*model.Role, error)   { return nil, nil }
func (f *fakeAuthz) Groups(ctx context.Context) (map[string]*model.Group, error) { return nil, nil }

func (f *fakeAuthz) ACLEntriesFor(ctx context.Context, kind model.ResourceKind, resourceID, userID string, groupIDs []string) ([]*model.ACLEntry, error) {
	return nil, nil
}

func (f *fakeAuthz) GrantACL(ctx context.Context, e *model.ACLEntry) error { return nil }
func (f *fakeAuthz) RevokeACL(ctx context.Context, id string) error       { return nil }

func newFakeAuthz() *fakeAuthz {
	return &fakeAuthz{
		users: map[string]*model.User{
			"u1": {ID: "u1", Username: "alice"},
		},
	}
}

func TestCreateSessionThenAuthenticateSession(t *testing.T) {
	n := newFakeAuthn()
	z := newFakeAuthz()
	uc := authnsvc.New(fakePool{}, n, z)

	now := time.Now()
	sess, err := uc.CreateSession(context.Background(), "u1", now)
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)
	require.NotEmpty(t, sess.Token)

	user, err := uc.AuthenticateSession(context.Background(), sess.Token, now.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, "u1", user.ID)
}

func TestAuthenticateSessionRejectsUnknownToken(t *testing.T) {
	n := newFakeAuthn()
	z := newFakeAuthz()
	uc := authnsvc.New(fakePool{}, n, z)

	_, err := uc.AuthenticateSession(context.Background(), "not-a-real-token", time.Now())
	require.Error(t, err)
}

func TestAuthenticateSessionRejectsExpiredIdleSession(t *testing.T) {
	n := newFakeAuthn()
	z := newFakeAuthz()
	uc := authnsvc.New(fakePool{}, n, z)

	now := time.Now()
	sess, err := uc.CreateSession(context.Background(), "u1", now)
	require.NoError(t, err)

	_, err = uc.AuthenticateSession(context.Background(), sess.Token, now.Add(model.SessionIdleTimeout+time.Minute))
	require.Error(t, err)
}

func TestAuthenticateSessionRejectsAbsoluteLifetimeExceeded(t *testing.T) {
	n := newFakeAuthn()
	z := newFakeAuthz()
	uc := authnsvc.New(fakePool{}, n, z)

	now := time.Now()
	sess, err := uc.CreateSession(context.Background(), "u1", now)
	require.NoError(t, err)

	// Touch the session frequently to keep it from idling out, but the
	// absolute lifetime must still expire it.
	touchedAt := now
	for touchedAt.Before(now.Add(model.SessionAbsoluteLifetime + time.Minute)) {
		touchedAt = touchedAt.Add(model.SessionIdleTimeout / 2)
		_, authErr := uc.AuthenticateSession(context.Background(), sess.Token, touchedAt)
		if touchedAt.After(now.Add(model.SessionAbsoluteLifetime)) {
			require.Error(t, authErr)
			return
		}
	}
	t.Fatal("expected absolute lifetime to be exceeded before the loop ended")
}

func TestEndSessionInvalidatesToken(t *testing.T) {
	n := newFakeAuthn()
	z := newFakeAuthz()
	uc := authnsvc.New(fakePool{}, n, z)

	now := time.Now()
	sess, err := uc.CreateSession(context.Background(), "u1", now)
	require.NoError(t, err)

	require.NoError(t, uc.EndSession(context.Background(), sess.ID))

	_, err = uc.AuthenticateSession(context.Background(), sess.Token, now)
	require.Error(t, err)
}

func TestAuthenticatePATRejectsRevoked(t *testing.T) {
	n := newFakeAuthn()
	z := newFakeAuthz()
	n.pats["p1"] = &model.PersonalAccessToken{ID: "p1", Token: "pat_abc", UserID: "u1", Revoked: true}
	uc := authnsvc.New(fakePool{}, n, z)

	_, err := uc.AuthenticatePAT(context.Background(), "pat_abc", time.Now())
	require.Error(t, err)
}

func TestAuthenticatePATRejectsExpired(t *testing.T) {
	n := newFakeAuthn()
	z := newFakeAuthz()
	expiresAt := time.Now().Add(-time.Hour)
	n.pats["p1"] = &model.PersonalAccessToken{ID: "p1", Token: "pat_abc", UserID: "u1", ExpiresAt: &expiresAt}
	uc := authnsvc.New(fakePool{}, n, z)

	_, err := uc.AuthenticatePAT(context.Background(), "pat_abc", time.Now())
	require.Error(t, err)
}

func TestAuthenticatePATAcceptsUnexpired(t *testing.T) {
	n := newFakeAuthn()
	z := newFakeAuthz()
	n.pats["p1"] = &model.PersonalAccessToken{ID: "p1", Token: "pat_abc", UserID: "u1"}
	uc := authnsvc.New(fakePool{}, n, z)

	user, err := uc.AuthenticatePAT(context.Background(), "pat_abc", time.Now())
	require.NoError(t, err)
	require.Equal(t, "u1", user.ID)
}

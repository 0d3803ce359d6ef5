// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package authzsvc composes pkg/core/authz's pure decision procedure
// with the repository layer, resolving a caller's permission set and
// ACL entries on demand.
package authzsvc

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/opendsc/opendsc/pkg/core/authz"
	"github.com/opendsc/opendsc/pkg/core/cerr"
	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/core/repo"
)

// claimsTTL bounds how long a resolved user/PermissionSet pair may be
// served from cache before a Role or Group grant change must be
// observed. This is the "authorization claims cache" whose entries
// "expire on a short TTL".
const claimsTTL = 10 * time.Second

// claimsCacheSize caps the number of distinct users with a live cache
// entry, evicting least-recently-used beyond that.
const claimsCacheSize = 4096

type claims struct {
	user  *model.User
	perms authz.PermissionSet
}

// UseCase resolves authorization decisions against the User/Role/
// Group/ACLEntry repository.
type UseCase struct {
	pool   repo.Pool
	authz  repo.Authz
	claims *expirable.LRU[string, claims]
}

// New instantiates the authorization use case.
func New(p repo.Pool, a repo.Authz) *UseCase {
	return &UseCase{
		pool:   p,
		authz:  a,
		claims: expirable.NewLRU[string, claims](claimsCacheSize, nil, claimsTTL),
	}
}

// Authorize loads userID's roles, groups, and any applicable ACL
// entries, then runs pkg/core/authz.Decide against req. Returns
// cerr.Authorization if the decision denies.
func (uc *UseCase) Authorize(ctx context.Context, userID string, req authz.Request) error {
	allowed, err := uc.Check(ctx, userID, req)
	if err != nil {
		return err
	}
	if !allowed {
		return cerr.Authorization(fmt.Errorf("user %s is not authorized for %s", userID, req.GlobalPermission))
	}
	return nil
}

// Check is Authorize without the terminal error conversion, for
// callers that need the boolean (e.g. filtering a listing).
func (uc *UseCase) Check(ctx context.Context, userID string, req authz.Request) (bool, error) {
	c, err := uc.loadClaims(ctx, userID)
	if err != nil {
		return false, err
	}

	var allowed bool
	err = uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		aq := uc.authz.Conn(conn)
		lookup := func(res authz.ResourceRef, uid string, gids []string) ([]*model.ACLEntry, error) {
			return aq.ACLEntriesFor(ctx, res.Kind, res.ID, uid, gids)
		}
		ok, err := authz.Decide(req, c.user, c.perms, lookup)
		if err != nil {
			return fmt.Errorf("decide: %w", err)
		}
		allowed = ok
		return nil
	})
	if err != nil {
		return false, err
	}
	return allowed, nil
}

// loadClaims resolves userID's User row and derived PermissionSet,
// serving a cached pair when one was resolved within claimsTTL.
func (uc *UseCase) loadClaims(ctx context.Context, userID string) (claims, error) {
	if c, ok := uc.claims.Get(userID); ok {
		return c, nil
	}

	var c claims
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		aq := uc.authz.Conn(conn)
		user, err := aq.UserByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}
		roles, err := aq.Roles(ctx)
		if err != nil {
			return fmt.Errorf("load roles: %w", err)
		}
		groups, err := aq.Groups(ctx)
		if err != nil {
			return fmt.Errorf("load groups: %w", err)
		}
		c = claims{user: user, perms: authz.ResolvePermissions(user, roles, groups)}
		return nil
	})
	if err != nil {
		return claims{}, err
	}
	uc.claims.Add(userID, c)
	return c, nil
}

// GrantACL creates or updates one ACLEntry.
func (uc *UseCase) GrantACL(ctx context.Context, e *model.ACLEntry) error {
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		return uc.authz.Conn(conn).GrantACL(ctx, e)
	})
	if err != nil {
		return fmt.Errorf("grant acl: %w", err)
	}
	return nil
}

// RevokeACL removes one ACLEntry by ID.
func (uc *UseCase) RevokeACL(ctx context.Context, id string) error {
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		return uc.authz.Conn(conn).RevokeACL(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("revoke acl: %w", err)
	}
	return nil
}

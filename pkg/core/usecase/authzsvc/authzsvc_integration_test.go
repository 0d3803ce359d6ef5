// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package authzsvc_test

import (
	"context"
	"testing"
	"time"

	"github.com/opendsc/opendsc/internal/test/dbcontainer"
	"github.com/opendsc/opendsc/pkg/adapter/db/postgres"
	"github.com/opendsc/opendsc/pkg/adapter/db/postgres/authzrp"
	"github.com/opendsc/opendsc/pkg/core/authz"
	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/core/repo"
	"github.com/opendsc/opendsc/pkg/core/usecase/authzsvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seed creates one Role, one User holding it directly, and one ACL-only
// User with no global permissions, against a real Postgres schema.
func seed(ctx context.Context, t *testing.T, pool *postgres.Pool) (operator, aclOnlyUser string) {
	t.Helper()
	operator = "11111111-1111-1111-1111-111111111111"
	aclOnlyUser = "22222222-2222-2222-2222-222222222222"
	err := pool.Conn(ctx, func(ctx context.Context, _ repo.Conn) error {
		return pool.DB.WithContext(ctx).Exec(
			`INSERT INTO roles (name, permissions_csv) VALUES ('operator', 'configurations.manage,configurations.read')`,
		).Error
	})
	require.NoError(t, err)
	err = pool.Conn(ctx, func(ctx context.Context, _ repo.Conn) error {
		if err := pool.DB.WithContext(ctx).Exec(
			`INSERT INTO users (id, username, roles_csv, group_ids_csv) VALUES (?, 'alice', 'operator', '')`, operator,
		).Error; err != nil {
			return err
		}
		return pool.DB.WithContext(ctx).Exec(
			`INSERT INTO users (id, username, roles_csv, group_ids_csv) VALUES (?, 'bob', '', '')`, aclOnlyUser,
		).Error
	})
	require.NoError(t, err)
	return operator, aclOnlyUser
}

func TestCheckAgainstRealPostgres(t *testing.T) {
	ctx := context.Background()
	_, pool, dfrs, ok := dbcontainer.New(ctx, 60*time.Second, t)
	for _, f := range dfrs {
		defer f()
	}
	if !ok {
		return
	}
	require.NoError(t, pool.AutoMigrate(authzrp.Models()...))

	repository := authzrp.New()
	operatorID, aclUserID := seed(ctx, t, pool)

	uc := authzsvc.New(pool, repository)

	t.Run("global permission grants a pure-global request", func(t *testing.T) {
		allowed, err := uc.Check(ctx, operatorID, authz.Request{GlobalPermission: "configurations.read"})
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("missing global permission denies a pure-global request", func(t *testing.T) {
		allowed, err := uc.Check(ctx, aclUserID, authz.Request{GlobalPermission: "configurations.manage"})
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("resource ACL grants access the global permission set does not", func(t *testing.T) {
		req := authz.Request{
			GlobalPermission: "configurations.admin-override",
			Resource:         &authz.ResourceRef{Kind: model.ResourceConfiguration, ID: "cfg-1"},
			Required:         model.AccessRead,
		}
		allowed, err := uc.Check(ctx, aclUserID, req)
		require.NoError(t, err)
		assert.False(t, allowed, "no ACL entry yet")

		require.NoError(t, uc.GrantACL(ctx, &model.ACLEntry{
			PrincipalID:   aclUserID,
			PrincipalType: model.PrincipalUser,
			ResourceKind:  model.ResourceConfiguration,
			ResourceID:    "cfg-1",
			Level:         model.AccessRead,
		}))

		allowed, err = uc.Check(ctx, aclUserID, req)
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}

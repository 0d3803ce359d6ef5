// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package postgres

import (
	"context"
	"fmt"

	"github.com/opendsc/opendsc/pkg/core/repo"
	"gorm.io/gorm"
)

// TxHandler is a handler function which takes a context and an ongoing
// transaction. If an error is returned, the transaction is rolled
// back; otherwise it is committed.
type TxHandler = repo.TxHandler

// Conn represents a single database connection acquired from a Pool.
// It is unsafe to use concurrently. Conn embeds the *gorm.DB instance
// bound to that single connection, so it may be used like GORM from
// within the repository packages, mirroring Tx.
type Conn struct {
	*gorm.DB
}

// Tx begins a new transaction on this connection, calls f with the
// fresh transaction, and commits it when f returns nil; any error
// (including a panic, which is re-raised after rollback) rolls the
// transaction back.
func (c *Conn) Tx(ctx context.Context, f TxHandler) error {
	return c.DB.WithContext(ctx).Transaction(func(gdb *gorm.DB) error {
		return f(ctx, &Tx{DB: gdb})
	})
}

// Exec runs sql with args given ctx context, returning the number of
// affected rows.
func (c *Conn) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tt := c.DB.WithContext(ctx).Exec(sql, args...)
	if err := tt.Error; err != nil {
		return 0, fmt.Errorf("exec: %w", err)
	}
	return tt.RowsAffected, nil
}

// Query runs sql with args given ctx context, returning the result set.
func (c *Conn) Query(ctx context.Context, sql string, args ...any) (repo.Rows, error) {
	rows, err := c.DB.WithContext(ctx).Raw(sql, args...).Rows()
	return rowsAdapter{rows}, err
}

// IsConn method prevents a non-Conn object to mistakenly implement the
// Conn interface.
func (c *Conn) IsConn() {
}

// GORM returns the embedded *gorm.DB instance, configured to operate
// on the given ctx context (in a gorm.Session).
func (c *Conn) GORM(ctx context.Context) *gorm.DB {
	return c.DB.WithContext(ctx)
}

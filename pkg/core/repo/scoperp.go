// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package repo

import (
	"context"

	"github.com/opendsc/opendsc/pkg/core/model"
)

// ScopesConnQueryer lists the scope operations which require an open
// connection rather than an ongoing transaction.
type ScopesConnQueryer interface {
	ScopesQueryer
}

// ScopesTxQueryer lists the scope operations which require an ongoing
// transaction.
type ScopesTxQueryer interface {
	ScopesQueryer
}

// ScopesQueryer lists the ScopeType/ScopeValue operations which may
// run with either a connection or a transaction at hand.
type ScopesQueryer interface {
	// CreateType persists a new ScopeType with a unique Precedence.
	CreateType(ctx context.Context, st *model.ScopeType) error

	// Types lists every ScopeType ordered by Precedence ascending,
	// including the system Default and Node types.
	Types(ctx context.Context) ([]*model.ScopeType, error)

	// TypeByName loads a ScopeType by its unique name.
	TypeByName(ctx context.Context, name string) (*model.ScopeType, error)

	// UpdateTypePrecedence moves a ScopeType to a new Precedence slot.
	// Used to shift Node's precedence up when a new custom ScopeType is
	// inserted directly below it.
	UpdateTypePrecedence(ctx context.Context, id string, precedence int) error

	// DeleteType removes a non-system ScopeType. Fails with
	// cerr.KindConflict if any ScopeValue, NodeTag, or ParameterFile
	// still references it.
	DeleteType(ctx context.Context, id string) error

	// CreateValue persists a new ScopeValue under a ScopeType that
	// allows values.
	CreateValue(ctx context.Context, sv *model.ScopeValue) error

	// Values lists every ScopeValue of a ScopeType.
	Values(ctx context.Context, scopeTypeID string) ([]*model.ScopeValue, error)

	// ValueByID loads a ScopeValue by ID, along with its parent
	// ScopeType.
	ValueByID(ctx context.Context, id string) (*model.ScopeValue, *model.ScopeType, error)

	// DeleteValue removes a ScopeValue. Fails with cerr.KindConflict if
	// any NodeTag or ParameterFile still references it.
	DeleteValue(ctx context.Context, id string) error
}

// Scopes is the ScopeType/ScopeValue repository.
type Scopes interface {
	Conn(Conn) ScopesConnQueryer
	Tx(Tx) ScopesTxQueryer
}

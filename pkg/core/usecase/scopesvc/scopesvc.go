// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package scopesvc manages the ScopeType/ScopeValue precedence
// hierarchy used by the parameter merger to resolve parameter
// documents by specificity.
package scopesvc

import (
	"context"
	"fmt"

	"github.com/opendsc/opendsc/pkg/core/cerr"
	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/core/repo"
)

// UseCase manages ScopeType/ScopeValue hierarchy.
type UseCase struct {
	pool   repo.Pool
	scopes repo.Scopes
}

// New instantiates the scope management use case.
func New(p repo.Pool, scopes repo.Scopes) *UseCase {
	return &UseCase{pool: p, scopes: scopes}
}

// CreateType persists a new custom ScopeType, inserting it directly
// below Node's current precedence and shifting Node up by one so it
// always remains the highest-precedence type.
func (uc *UseCase) CreateType(ctx context.Context, name string, allowValues bool) (*model.ScopeType, error) {
	if !model.NamePattern.MatchString(name) {
		return nil, cerr.BadRequest(fmt.Errorf("scope type name %q does not match %s", name, model.NamePattern))
	}
	st := &model.ScopeType{Name: name, AllowValues: allowValues}
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		return conn.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			sq := uc.scopes.Tx(tx)
			node, err := sq.TypeByName(ctx, model.NodeScopeTypeName)
			if err != nil {
				return fmt.Errorf("load node scope type: %w", err)
			}
			st.Precedence = node.Precedence
			if err := sq.UpdateTypePrecedence(ctx, node.ID, node.Precedence+1); err != nil {
				return fmt.Errorf("shift node precedence: %w", err)
			}
			if err := sq.CreateType(ctx, st); err != nil {
				return fmt.Errorf("create scope type: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Types lists every ScopeType ordered by Precedence ascending.
func (uc *UseCase) Types(ctx context.Context) ([]*model.ScopeType, error) {
	var out []*model.ScopeType
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		got, err := uc.scopes.Conn(conn).Types(ctx)
		if err != nil {
			return err
		}
		out = got
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list scope types: %w", err)
	}
	return out, nil
}

// TypeByName loads a ScopeType by its unique name.
func (uc *UseCase) TypeByName(ctx context.Context, name string) (*model.ScopeType, error) {
	var st *model.ScopeType
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		got, err := uc.scopes.Conn(conn).TypeByName(ctx, name)
		if err != nil {
			return err
		}
		st = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// DeleteType removes a non-system ScopeType.
func (uc *UseCase) DeleteType(ctx context.Context, id string) error {
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		return uc.scopes.Conn(conn).DeleteType(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete scope type: %w", err)
	}
	return nil
}

// CreateValue persists a new ScopeValue under a ScopeType that allows
// values.
func (uc *UseCase) CreateValue(ctx context.Context, scopeTypeID, value string) (*model.ScopeValue, error) {
	if !model.NamePattern.MatchString(value) {
		return nil, cerr.BadRequest(fmt.Errorf("scope value %q does not match %s", value, model.NamePattern))
	}
	sv := &model.ScopeValue{ScopeTypeID: scopeTypeID, Value: value}
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		sq := uc.scopes.Conn(conn)
		types, err := sq.Types(ctx)
		if err != nil {
			return fmt.Errorf("load scope types: %w", err)
		}
		var st *model.ScopeType
		for _, t := range types {
			if t.ID == scopeTypeID {
				st = t
				break
			}
		}
		if st == nil {
			return cerr.NotFound(fmt.Errorf("scope type %s not found", scopeTypeID))
		}
		if !st.AllowValues {
			return cerr.BadRequest(fmt.Errorf("scope type %q does not allow values", st.Name))
		}
		return sq.CreateValue(ctx, sv)
	})
	if err != nil {
		return nil, err
	}
	return sv, nil
}

// Values lists every ScopeValue of a ScopeType.
func (uc *UseCase) Values(ctx context.Context, scopeTypeID string) ([]*model.ScopeValue, error) {
	var out []*model.ScopeValue
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		got, err := uc.scopes.Conn(conn).Values(ctx, scopeTypeID)
		if err != nil {
			return err
		}
		out = got
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list scope values: %w", err)
	}
	return out, nil
}

// ValueByID loads a ScopeValue by ID, along with its parent ScopeType.
func (uc *UseCase) ValueByID(ctx context.Context, id string) (*model.ScopeValue, *model.ScopeType, error) {
	var sv *model.ScopeValue
	var st *model.ScopeType
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		v, t, err := uc.scopes.Conn(conn).ValueByID(ctx, id)
		if err != nil {
			return err
		}
		sv, st = v, t
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return sv, st, nil
}

// DeleteValue removes a ScopeValue.
func (uc *UseCase) DeleteValue(ctx context.Context, id string) error {
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		return uc.scopes.Conn(conn).DeleteValue(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete scope value: %w", err)
	}
	return nil
}

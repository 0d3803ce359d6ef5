// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package scopesvc_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/opendsc/opendsc/pkg/core/cerr"
	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/core/repo"
	"github.com/opendsc/opendsc/pkg/core/usecase/scopesvc"
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

type fakeScopes struct {
	types  map[string]*model.ScopeType
	values map[string]*model.ScopeValue
	nextID int
}

func (f *fakeScopes) Conn(repo.Conn) repo.ScopesConnQueryer { return f }
func (f *fakeScopes) Tx(repo.Tx) repo.ScopesTxQueryer       { return f }

func (f *fakeScopes) newID() string {
	f.nextID++
	return fmt.Sprintf("id-%d", f.nextID)
}

func (f *fakeScopes) CreateType(ctx context.Context, st *model.ScopeType) error {
	for _, t := range f.types {
		if t.Precedence == st.Precedence {
			return cerr.Conflict(fmt.Errorf("precedence %d already in use", st.Precedence))
		}
	}
	if st.ID == "" {
		st.ID = f.newID()
	}
	cp := *st
	f.types[st.ID] = &cp
	return nil
}

func (f *fakeScopes) Types(ctx context.Context) ([]*model.ScopeType, error) {
	out := make([]*model.ScopeType, 0, len(f.types))
	for _, t := range f.types {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeScopes) TypeByName(ctx context.Context, name string) (*model.ScopeType, error) {
	for _, t := range f.types {
		if t.Name == name {
			cp := *t
			return &cp, nil
		}
	}
	return nil, cerr.NotFound(fmt.Errorf("scope type %q not found", name))
}

func (f *fakeScopes) UpdateTypePrecedence(ctx context.Context, id string, precedence int) error {
	t, ok := f.types[id]
	if !ok {
		return cerr.NotFound(fmt.Errorf("scope type %s not found", id))
	}
	t.Precedence = precedence
	return nil
}

func (f *fakeScopes) DeleteType(ctx context.Context, id string) error {
	t, ok := f.types[id]
	if !ok {
		return cerr.NotFound(fmt.Errorf("scope type %s not found", id))
	}
	if t.IsSystem {
		return cerr.Conflict(fmt.Errorf("scope type %q is a system type", t.Name))
	}
	for _, v := range f.values {
		if v.ScopeTypeID == id {
			return cerr.Conflict(fmt.Errorf("scope type %s is still referenced", id))
		}
	}
	delete(f.types, id)
	return nil
}

func (f *fakeScopes) CreateValue(ctx context.Context, sv *model.ScopeValue) error {
	for _, v := range f.values {
		if v.ScopeTypeID == sv.ScopeTypeID && v.Value == sv.Value {
			return cerr.Conflict(fmt.Errorf("scope value %q already exists", sv.Value))
		}
	}
	if sv.ID == "" {
		sv.ID = f.newID()
	}
	cp := *sv
	f.values[sv.ID] = &cp
	return nil
}

func (f *fakeScopes) Values(ctx context.Context, scopeTypeID string) ([]*model.ScopeValue, error) {
	var out []*model.ScopeValue
	for _, v := range f.values {
		if v.ScopeTypeID == scopeTypeID {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeScopes) ValueByID(ctx context.Context, id string) (*model.ScopeValue, *model.ScopeType, error) {
	v, ok := f.values[id]
	if !ok {
		return nil, nil, cerr.NotFound(fmt.Errorf("scope value %s not found", id))
	}
	t, ok := f.types[v.ScopeTypeID]
	if !ok {
		return nil, nil, cerr.NotFound(fmt.Errorf("scope type %s not found", v.ScopeTypeID))
	}
	vcp, tcp := *v, *t
	return &vcp, &tcp, nil
}

func (f *fakeScopes) DeleteValue(ctx context.Context, id string) error {
	if _, ok := f.values[id]; !ok {
		return cerr.NotFound(fmt.Errorf("scope value %s not found", id))
	}
	delete(f.values, id)
	return nil
}

func newFakeScopes() *fakeScopes {
	f := &fakeScopes{types: map[string]*model.ScopeType{}, values: map[string]*model.ScopeValue{}}
	f.types["default"] = &model.ScopeType{ID: "default", Name: model.DefaultScopeTypeName, Precedence: 0, AllowValues: false, IsSystem: true}
	f.types["node"] = &model.ScopeType{ID: "node", Name: model.NodeScopeTypeName, Precedence: 1, AllowValues: true, IsSystem: true}
	return f
}

func TestCreateTypeShiftsNodePrecedence(t *testing.T) {
	scopes := newFakeScopes()
	uc := scopesvc.New(fakePool{}, scopes)

	region, err := uc.CreateType(context.Background(), "Region", true)
	require.NoError(t, err)
	require.Equal(t, 1, region.Precedence)

	node, err := uc.TypeByName(context.Background(), model.NodeScopeTypeName)
	require.NoError(t, err)
	require.Equal(t, 2, node.Precedence)

	env, err := uc.CreateType(context.Background(), "Environment", true)
	require.NoError(t, err)
	require.Equal(t, 2, env.Precedence)

	node, err = uc.TypeByName(context.Background(), model.NodeScopeTypeName)
	require.NoError(t, err)
	require.Equal(t, 3, node.Precedence)
}

func TestCreateTypeRejectsInvalidName(t *testing.T) {
	scopes := newFakeScopes()
	uc := scopesvc.New(fakePool{}, scopes)

	_, err := uc.CreateType(context.Background(), "bad name!", true)
	require.Error(t, err)
}

func TestCreateValueRejectsWhenTypeDisallowsValues(t *testing.T) {
	scopes := newFakeScopes()
	uc := scopesvc.New(fakePool{}, scopes)

	_, err := uc.CreateValue(context.Background(), "default", "whatever")
	require.Error(t, err)
}

func TestCreateValueSucceedsForAllowingType(t *testing.T) {
	scopes := newFakeScopes()
	uc := scopesvc.New(fakePool{}, scopes)

	region, err := uc.CreateType(context.Background(), "Region", true)
	require.NoError(t, err)

	v, err := uc.CreateValue(context.Background(), region.ID, "us-west")
	require.NoError(t, err)
	require.NotEmpty(t, v.ID)

	values, err := uc.Values(context.Background(), region.ID)
	require.NoError(t, err)
	require.Len(t, values, 1)
	require.Equal(t, "us-west", values[0].Value)
}

func TestDeleteTypeRejectsSystemType(t *testing.T) {
	scopes := newFakeScopes()
	uc := scopesvc.New(fakePool{}, scopes)

	err := uc.DeleteType(context.Background(), "node")
	require.Error(t, err)
}

func TestDeleteValueRemovesIt(t *testing.T) {
	scopes := newFakeScopes()
	uc := scopesvc.New(fakePool{}, scopes)

	region, err := uc.CreateType(context.Background(), "Region", true)
	require.NoError(t, err)
	v, err := uc.CreateValue(context.Background(), region.ID, "us-west")
	require.NoError(t, err)

	require.NoError(t, uc.DeleteValue(context.Background(), v.ID))

	_, _, err = uc.ValueByID(context.Background(), v.ID)
	require.Error(t, err)
}

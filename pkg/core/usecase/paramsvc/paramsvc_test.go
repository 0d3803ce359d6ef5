// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package paramsvc_test

import (
	"context"
	"testing"
	"time"

	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/core/repo"
	"github.com/opendsc/opendsc/pkg/core/usecase/paramsvc"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// fakeConn is the repo.Conn handed to every fake repository in this
// file; it carries no state of its own since all state lives in the
// fake repositories, which ignore the connection they are given.
type fakeConn struct{}

func (fakeConn) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	return 0, nil
}
func (fakeConn) Query(ctx context.Context, sql string, args ...any) (repo.Rows, error) {
	return nil, nil
}
func (fakeConn) Tx(ctx context.Context, handler repo.TxHandler) error { return nil }
func (fakeConn) IsConn()                                              {}

type fakePool struct{}

func (fakePool) Conn(ctx context.Context, handler repo.ConnHandler) error {
	return handler(ctx, fakeConn{})
}

type fakeScopes struct {
	types  map[string]*model.ScopeType
	values map[string]*model.ScopeValue
}

func (f *fakeScopes) Conn(repo.Conn) repo.ScopesConnQueryer { return f }
func (f *fakeScopes) Tx(repo.Tx) repo.ScopesTxQueryer       { return f }

func (f *fakeScopes) CreateType(ctx context.Context, st *model.ScopeType) error { return nil }

func (f *fakeScopes) Types(ctx context.Context) ([]*model.ScopeType, error) {
	out := make([]*model.ScopeType, 0, len(f.types))
	for _, st := range f.types {
		out = append(out, st)
	}
	return out, nil
}

func (f *fakeScopes) TypeByName(ctx context.Context, name string) (*model.ScopeType, error) {
	return f.types[name], nil
}

func (f *fakeScopes) UpdateTypePrecedence(ctx context.Context, id string, precedence int) error {
	return nil
}

func (f *fakeScopes) DeleteType(ctx context.Context, id string) error { return nil }

func (f *fakeScopes) CreateValue(ctx context.Context, sv *model.ScopeValue) error { return nil }

func (f *fakeScopes) Values(ctx context.Context, scopeTypeID string) ([]*model.ScopeValue, error) {
	var out []*model.ScopeValue
	for _, sv := range f.values {
		if sv.ScopeTypeID == scopeTypeID {
			out = append(out, sv)
		}
	}
	return out, nil
}

func (f *fakeScopes) ValueByID(ctx context.Context, id string) (*model.ScopeValue, *model.ScopeType, error) {
	sv := f.values[id]
	for _, st := range f.types {
		if st.ID == sv.ScopeTypeID {
			return sv, st, nil
		}
	}
	return sv, nil, nil
}

func (f *fakeScopes) DeleteValue(ctx context.Context, id string) error { return nil }

type fakeNodes struct {
	nodes map[string]*model.Node
	tags  map[string][]*model.NodeTag
}

func (f *fakeNodes) Conn(repo.Conn) repo.NodesConnQueryer { return f }
func (f *fakeNodes) Tx(repo.Tx) repo.NodesTxQueryer       { return f }

func (f *fakeNodes) CreateRegistrationKey(ctx context.Context, k *model.RegistrationKey) error {
	return nil
}
func (f *fakeNodes) RegistrationKeyByToken(ctx context.Context, token string) (*model.RegistrationKey, error) {
	return nil, nil
}
func (f *fakeNodes) ConsumeRegistrationKey(ctx context.Context, id string, now time.Time) error {
	return nil
}
func (f *fakeNodes) CreateNode(ctx context.Context, n *model.Node) error { return nil }
func (f *fakeNodes) Nodes(ctx context.Context) ([]*model.Node, error) {
	return nil, nil
}
func (f *fakeNodes) DeleteNode(ctx context.Context, id string) error {
	return nil
}

func (f *fakeNodes) NodeByID(ctx context.Context, id string) (*model.Node, error) {
	return f.nodes[id], nil
}
func (f *fakeNodes) NodeByFQDN(ctx context.Context, fqdn string) (*model.Node, error) {
	return nil, nil
}
func (f *fakeNodes) NodeByCertFingerprint(ctx context.Context, fingerprint string) (*model.Node, error) {
	return nil, nil
}
func (f *fakeNodes) UpdateNodeCertificate(ctx context.Context, nodeID, fingerprint string, notAfter time.Time) error {
	return nil
}
func (f *fakeNodes) TouchNode(ctx context.Context, nodeID string, now time.Time) error { return nil }
func (f *fakeNodes) TagNode(ctx context.Context, nodeID, scopeValueID string) error    { return nil }

func (f *fakeNodes) NodeTags(ctx context.Context, nodeID string) ([]*model.NodeTag, error) {
	return f.tags[nodeID], nil
}
func (f *fakeNodes) SetNodeConfiguration(ctx context.Context, nc *model.NodeConfiguration) error {
	return nil
}
func (f *fakeNodes) NodeConfiguration(ctx context.Context, nodeID string) (*model.NodeConfiguration, error) {
	return nil, nil
}
func (f *fakeNodes) InsertComplianceReport(ctx context.Context, r *model.ComplianceReport) error {
	return nil
}
func (f *fakeNodes) ComplianceReports(ctx context.Context, nodeID string, limit int) ([]*model.ComplianceReport, error) {
	return nil, nil
}

type fakeParameters struct {
	// active[configurationID][scopeTypeID][scopeValueID] is the active
	// ParameterFile for that triple; scopeValueID is "" for Default.
	active map[string]map[string]map[string]*model.ParameterFile
}

func (f *fakeParameters) Conn(repo.Conn) repo.ParametersConnQueryer { return f }
func (f *fakeParameters) Tx(repo.Tx) repo.ParametersTxQueryer       { return f }

func (f *fakeParameters) CreateFile(ctx context.Context, file *model.ParameterFile) error {
	return nil
}
func (f *fakeParameters) ActivateFile(ctx context.Context, configurationID, scopeTypeID, scopeValueID, fileID string) error {
	return nil
}

func (f *fakeParameters) ActiveFile(ctx context.Context, configurationID, scopeTypeID, scopeValueID string) (*model.ParameterFile, error) {
	byType, ok := f.active[configurationID]
	if !ok {
		return nil, nil
	}
	byValue, ok := byType[scopeTypeID]
	if !ok {
		return nil, nil
	}
	return byValue[scopeValueID], nil
}

func (f *fakeParameters) ArchiveFile(ctx context.Context, fileID string) error { return nil }

func (f *fakeParameters) Files(ctx context.Context, configurationID, scopeTypeID, scopeValueID string) ([]*model.ParameterFile, error) {
	return nil, nil
}

func (f *fakeParameters) FilesByConfiguration(ctx context.Context, configurationID string) ([]*model.ParameterFile, error) {
	return nil, nil
}

func (f *fakeParameters) DeleteFile(ctx context.Context, fileID string) error { return nil }

func (f *fakeParameters) UpsertSchema(ctx context.Context, hash string, schemaJSON []byte) (*model.ParameterSchema, error) {
	return nil, nil
}
func (f *fakeParameters) SchemaByHash(ctx context.Context, hash string) (*model.ParameterSchema, error) {
	return nil, nil
}
func (f *fakeParameters) CollectUnreferencedSchemas(ctx context.Context) (int64, error) {
	return 0, nil
}

func newFixture() (*fakeScopes, *fakeNodes, *fakeParameters) {
	scopes := &fakeScopes{
		types: map[string]*model.ScopeType{
			"Default": {ID: "t-default", Name: model.DefaultScopeTypeName, Precedence: 0, IsSystem: true},
			"Region":  {ID: "t-region", Name: "Region", Precedence: 10, AllowValues: true},
			"Node":    {ID: "t-node", Name: model.NodeScopeTypeName, Precedence: 100, IsSystem: true},
		},
		values: map[string]*model.ScopeValue{
			"v-uswest": {ID: "v-uswest", ScopeTypeID: "t-region", Value: "US-West"},
		},
	}
	nodes := &fakeNodes{
		nodes: map[string]*model.Node{
			"n1": {ID: "n1", FQDN: "host1.example.com"},
		},
		tags: map[string][]*model.NodeTag{
			"n1": {{ID: "tag1", NodeID: "n1", ScopeValueID: "v-uswest"}},
		},
	}
	params := &fakeParameters{
		active: map[string]map[string]map[string]*model.ParameterFile{},
	}
	return scopes, nodes, params
}

func setActive(p *fakeParameters, configID, scopeTypeID, scopeValueID string, content []byte) {
	byType, ok := p.active[configID]
	if !ok {
		byType = map[string]map[string]*model.ParameterFile{}
		p.active[configID] = byType
	}
	byValue, ok := byType[scopeTypeID]
	if !ok {
		byValue = map[string]*model.ParameterFile{}
		byType[scopeTypeID] = byValue
	}
	byValue[scopeValueID] = &model.ParameterFile{
		ConfigurationID: configID,
		ScopeTypeID:     scopeTypeID,
		ScopeValueID:    scopeValueID,
		Content:         content,
		ContentType:     "yaml",
		IsActive:        true,
	}
}

func TestResolveSkippedWhenServerManagedParamsDisabled(t *testing.T) {
	scopes, nodes, params := newFixture()
	uc := paramsvc.New(fakePool{}, scopes, nodes, params)

	out, err := uc.Resolve(context.Background(), "n1", "cfg1", false)
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestResolveMergesDefaultRegionAndNodeScopes(t *testing.T) {
	scopes, nodes, params := newFixture()
	setActive(params, "cfg1", "t-default", "", []byte("a: 1\nb: 2\n"))
	setActive(params, "cfg1", "t-region", "v-uswest", []byte("a: 2\nc: 10\n"))
	setActive(params, "cfg1", "t-node", "n1", []byte("a: 3\n"))

	uc := paramsvc.New(fakePool{}, scopes, nodes, params)
	out, err := uc.Resolve(context.Background(), "n1", "cfg1", true)
	require.NoError(t, err)
	require.NotNil(t, out)

	var merged map[string]any
	require.NoError(t, yaml.Unmarshal(out.YAML, &merged))
	require.Equal(t, 3, merged["a"])
	require.Equal(t, 2, merged["b"])
	require.Equal(t, 10, merged["c"])

	prov, ok := out.Provenance["a"]
	require.True(t, ok)
	require.Equal(t, model.NodeScopeTypeName+":host1.example.com", prov.Source)
	require.Len(t, prov.OverriddenBy, 2)
}

func TestResolveWithNoActiveFilesReturnsEmptyResult(t *testing.T) {
	scopes, nodes, params := newFixture()
	uc := paramsvc.New(fakePool{}, scopes, nodes, params)

	out, err := uc.Resolve(context.Background(), "n1", "cfg-unused", true)
	require.NoError(t, err)
	require.NotNil(t, out)
	require.Nil(t, out.YAML)
	require.Empty(t, out.Provenance)
}

func TestResolveOnlyDefaultScopeActive(t *testing.T) {
	scopes, nodes, params := newFixture()
	setActive(params, "cfg1", "t-default", "", []byte("a: 1\n"))

	uc := paramsvc.New(fakePool{}, scopes, nodes, params)
	out, err := uc.Resolve(context.Background(), "n1", "cfg1", true)
	require.NoError(t, err)
	require.NotNil(t, out)

	var merged map[string]any
	require.NoError(t, yaml.Unmarshal(out.YAML, &merged))
	require.Equal(t, 1, merged["a"])
	require.Equal(t, model.DefaultScopeTypeName, out.Provenance["a"].Source)
}

// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package nodesvc_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/opendsc/opendsc/pkg/core/cerr"
	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/core/repo"
	"github.com/opendsc/opendsc/pkg/core/usecase/nodesvc"
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

type fakeNodes struct {
	nodes map[string]*model.Node
	tags  map[string][]*model.NodeTag
	ncs   map[string]*model.NodeConfiguration
}

func newFakeNodes() *fakeNodes {
	return &fakeNodes{
		nodes: map[string]*model.Node{},
		tags:  map[string][]*model.NodeTag{},
		ncs:   map[string]*model.NodeConfiguration{},
	}
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
	out := make([]*model.Node, 0, len(f.nodes))
	for _, n := range f.nodes {
		cp := *n
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeNodes) NodeByID(ctx context.Context, id string) (*model.Node, error) {
	n, ok := f.nodes[id]
	if !ok {
		return nil, cerr.NotFound(fmt.Errorf("node %q not found", id))
	}
	cp := *n
	return &cp, nil
}

func (f *fakeNodes) DeleteNode(ctx context.Context, id string) error {
	if _, ok := f.nodes[id]; !ok {
		return cerr.NotFound(fmt.Errorf("node %q not found", id))
	}
	delete(f.nodes, id)
	delete(f.tags, id)
	delete(f.ncs, id)
	return nil
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

func (f *fakeNodes) TagNode(ctx context.Context, nodeID, scopeValueID string) error {
	f.tags[nodeID] = append(f.tags[nodeID], &model.NodeTag{ID: fmt.Sprintf("tag-%d", len(f.tags[nodeID])+1), NodeID: nodeID, ScopeValueID: scopeValueID})
	return nil
}

func (f *fakeNodes) NodeTags(ctx context.Context, nodeID string) ([]*model.NodeTag, error) {
	return f.tags[nodeID], nil
}

func (f *fakeNodes) SetNodeConfiguration(ctx context.Context, nc *model.NodeConfiguration) error {
	cp := *nc
	f.ncs[nc.NodeID] = &cp
	return nil
}

func (f *fakeNodes) NodeConfiguration(ctx context.Context, nodeID string) (*model.NodeConfiguration, error) {
	nc, ok := f.ncs[nodeID]
	if !ok {
		return nil, nil
	}
	cp := *nc
	return &cp, nil
}

func (f *fakeNodes) InsertComplianceReport(ctx context.Context, r *model.ComplianceReport) error {
	return nil
}
func (f *fakeNodes) ComplianceReports(ctx context.Context, nodeID string, limit int) ([]*model.ComplianceReport, error) {
	return nil, nil
}

type fakeScopes struct {
	values map[string]*model.ScopeValue
	types  map[string]*model.ScopeType
}

func (f *fakeScopes) Conn(repo.Conn) repo.ScopesConnQueryer { return f }
func (f *fakeScopes) Tx(repo.Tx) repo.ScopesTxQueryer       { return f }

func (f *fakeScopes) CreateType(ctx context.Context, st *model.ScopeType) error { return nil }
func (f *fakeScopes) Types(ctx context.Context) ([]*model.ScopeType, error)     { return nil, nil }
func (f *fakeScopes) TypeByName(ctx context.Context, name string) (*model.ScopeType, error) {
	return nil, nil
}
func (f *fakeScopes) UpdateTypePrecedence(ctx context.Context, id string, precedence int) error {
	return nil
}
func (f *fakeScopes) DeleteType(ctx context.Context, id string) error { return nil }
func (f *fakeScopes) CreateValue(ctx context.Context, sv *model.ScopeValue) error {
	return nil
}
func (f *fakeScopes) Values(ctx context.Context, scopeTypeID string) ([]*model.ScopeValue, error) {
	return nil, nil
}
func (f *fakeScopes) ValueByID(ctx context.Context, id string) (*model.ScopeValue, *model.ScopeType, error) {
	v, ok := f.values[id]
	if !ok {
		return nil, nil, cerr.NotFound(fmt.Errorf("scope value %q not found", id))
	}
	return v, f.types[v.ScopeTypeID], nil
}
func (f *fakeScopes) DeleteValue(ctx context.Context, id string) error { return nil }

type fakeConfigurations struct {
	byID map[string]*model.Configuration
}

func (f *fakeConfigurations) Conn(repo.Conn) repo.ConfigurationsConnQueryer { return f }
func (f *fakeConfigurations) Tx(repo.Tx) repo.ConfigurationsTxQueryer       { return f }

func (f *fakeConfigurations) Create(ctx context.Context, c *model.Configuration) error { return nil }
func (f *fakeConfigurations) ByName(ctx context.Context, name string) (*model.Configuration, error) {
	return nil, nil
}
func (f *fakeConfigurations) ByID(ctx context.Context, id string) (*model.Configuration, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, cerr.NotFound(fmt.Errorf("configuration %s not found", id))
	}
	return c, nil
}
func (f *fakeConfigurations) List(ctx context.Context) ([]*model.Configuration, error) {
	return nil, nil
}
func (f *fakeConfigurations) Delete(ctx context.Context, id string) error { return nil }
func (f *fakeConfigurations) CreateVersion(ctx context.Context, v *model.ConfigurationVersion, files []*model.ConfigurationFile) error {
	return nil
}
func (f *fakeConfigurations) Version(ctx context.Context, configurationID string, v model.SemVer) (*model.ConfigurationVersion, error) {
	return nil, nil
}
func (f *fakeConfigurations) Versions(ctx context.Context, configurationID string) ([]*model.ConfigurationVersion, error) {
	return nil, nil
}
func (f *fakeConfigurations) Publish(ctx context.Context, versionID string) error        { return nil }
func (f *fakeConfigurations) ArchiveVersion(ctx context.Context, versionID string) error { return nil }
func (f *fakeConfigurations) Files(ctx context.Context, versionID string) ([]*model.ConfigurationFile, error) {
	return nil, nil
}
func (f *fakeConfigurations) InUse(ctx context.Context, configurationID string) (bool, error) {
	return false, nil
}
func (f *fakeConfigurations) VersionInUse(ctx context.Context, versionID string) (bool, error) {
	return false, nil
}
func (f *fakeConfigurations) DeleteVersion(ctx context.Context, versionID string) error { return nil }

type fakeComposites struct {
	byID map[string]*model.CompositeConfiguration
}

func (f *fakeComposites) Conn(repo.Conn) repo.CompositesConnQueryer { return f }
func (f *fakeComposites) Tx(repo.Tx) repo.CompositesTxQueryer       { return f }

func (f *fakeComposites) Create(ctx context.Context, c *model.CompositeConfiguration) error {
	return nil
}
func (f *fakeComposites) ByName(ctx context.Context, name string) (*model.CompositeConfiguration, error) {
	return nil, nil
}
func (f *fakeComposites) ByID(ctx context.Context, id string) (*model.CompositeConfiguration, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, cerr.NotFound(fmt.Errorf("composite configuration %s not found", id))
	}
	return c, nil
}
func (f *fakeComposites) List(ctx context.Context) ([]*model.CompositeConfiguration, error) {
	return nil, nil
}
func (f *fakeComposites) Delete(ctx context.Context, id string) error { return nil }
func (f *fakeComposites) CreateVersion(ctx context.Context, v *model.CompositeConfigurationVersion) error {
	return nil
}
func (f *fakeComposites) Version(ctx context.Context, compositeID string, v model.SemVer) (*model.CompositeConfigurationVersion, error) {
	return nil, nil
}
func (f *fakeComposites) Versions(ctx context.Context, compositeID string) ([]*model.CompositeConfigurationVersion, error) {
	return nil, nil
}
func (f *fakeComposites) Publish(ctx context.Context, versionID string) error        { return nil }
func (f *fakeComposites) ArchiveVersion(ctx context.Context, versionID string) error { return nil }
func (f *fakeComposites) InUse(ctx context.Context, compositeID string) (bool, error) {
	return false, nil
}
func (f *fakeComposites) VersionInUse(ctx context.Context, versionID string) (bool, error) {
	return false, nil
}
func (f *fakeComposites) DeleteVersion(ctx context.Context, versionID string) error { return nil }

func TestTagRejectsUnknownScopeValue(t *testing.T) {
	nodes := newFakeNodes()
	nodes.nodes["n1"] = &model.Node{ID: "n1", FQDN: "n1.example.com"}
	scopes := &fakeScopes{values: map[string]*model.ScopeValue{}, types: map[string]*model.ScopeType{}}
	uc := nodesvc.New(fakePool{}, nodes, scopes, &fakeConfigurations{byID: map[string]*model.Configuration{}}, &fakeComposites{byID: map[string]*model.CompositeConfiguration{}})

	err := uc.Tag(context.Background(), "n1", "missing-value")
	require.Error(t, err)
}

func TestTagAssignsNodeToScopeValue(t *testing.T) {
	nodes := newFakeNodes()
	nodes.nodes["n1"] = &model.Node{ID: "n1", FQDN: "n1.example.com"}
	scopes := &fakeScopes{
		types:  map[string]*model.ScopeType{"region": {ID: "region", Name: "Region", AllowValues: true}},
		values: map[string]*model.ScopeValue{"us-west": {ID: "us-west", ScopeTypeID: "region", Value: "us-west"}},
	}
	uc := nodesvc.New(fakePool{}, nodes, scopes, &fakeConfigurations{byID: map[string]*model.Configuration{}}, &fakeComposites{byID: map[string]*model.CompositeConfiguration{}})

	require.NoError(t, uc.Tag(context.Background(), "n1", "us-west"))

	tags, err := uc.Tags(context.Background(), "n1")
	require.NoError(t, err)
	require.Len(t, tags, 1)
	require.Equal(t, "us-west", tags[0].ScopeValueID)
}

func TestAssignConfigurationRejectsBothSet(t *testing.T) {
	nodes := newFakeNodes()
	nodes.nodes["n1"] = &model.Node{ID: "n1"}
	uc := nodesvc.New(fakePool{}, nodes, &fakeScopes{}, &fakeConfigurations{byID: map[string]*model.Configuration{"cfg-1": {ID: "cfg-1"}}}, &fakeComposites{byID: map[string]*model.CompositeConfiguration{"comp-1": {ID: "comp-1"}}})

	cfgID, compID := "cfg-1", "comp-1"
	_, err := uc.AssignConfiguration(context.Background(), nodesvc.AssignConfigurationInput{
		NodeID: "n1", ConfigurationID: &cfgID, CompositeConfigurationID: &compID,
	})
	require.Error(t, err)
}

func TestAssignConfigurationRejectsNeitherSet(t *testing.T) {
	nodes := newFakeNodes()
	nodes.nodes["n1"] = &model.Node{ID: "n1"}
	uc := nodesvc.New(fakePool{}, nodes, &fakeScopes{}, &fakeConfigurations{byID: map[string]*model.Configuration{}}, &fakeComposites{byID: map[string]*model.CompositeConfiguration{}})

	_, err := uc.AssignConfiguration(context.Background(), nodesvc.AssignConfigurationInput{NodeID: "n1"})
	require.Error(t, err)
}

func TestAssignConfigurationRejectsUnknownConfiguration(t *testing.T) {
	nodes := newFakeNodes()
	nodes.nodes["n1"] = &model.Node{ID: "n1"}
	uc := nodesvc.New(fakePool{}, nodes, &fakeScopes{}, &fakeConfigurations{byID: map[string]*model.Configuration{}}, &fakeComposites{byID: map[string]*model.CompositeConfiguration{}})

	cfgID := "missing"
	_, err := uc.AssignConfiguration(context.Background(), nodesvc.AssignConfigurationInput{NodeID: "n1", ConfigurationID: &cfgID})
	require.Error(t, err)
}

func TestAssignConfigurationSucceedsAndReplaces(t *testing.T) {
	nodes := newFakeNodes()
	nodes.nodes["n1"] = &model.Node{ID: "n1"}
	configs := &fakeConfigurations{byID: map[string]*model.Configuration{"cfg-1": {ID: "cfg-1"}, "cfg-2": {ID: "cfg-2"}}}
	composites := &fakeComposites{byID: map[string]*model.CompositeConfiguration{}}
	uc := nodesvc.New(fakePool{}, nodes, &fakeScopes{}, configs, composites)

	cfg1 := "cfg-1"
	nc, err := uc.AssignConfiguration(context.Background(), nodesvc.AssignConfigurationInput{NodeID: "n1", ConfigurationID: &cfg1, UseServerManagedParams: true})
	require.NoError(t, err)
	require.Equal(t, "cfg-1", *nc.ConfigurationID)

	cfg2 := "cfg-2"
	nc2, err := uc.AssignConfiguration(context.Background(), nodesvc.AssignConfigurationInput{NodeID: "n1", ConfigurationID: &cfg2})
	require.NoError(t, err)
	require.Equal(t, "cfg-2", *nc2.ConfigurationID)

	got, err := uc.NodeConfiguration(context.Background(), "n1")
	require.NoError(t, err)
	require.Equal(t, "cfg-2", *got.ConfigurationID)
}

func TestDeleteCascadesTagsAndConfiguration(t *testing.T) {
	nodes := newFakeNodes()
	nodes.nodes["n1"] = &model.Node{ID: "n1"}
	nodes.tags["n1"] = []*model.NodeTag{{ID: "t1", NodeID: "n1", ScopeValueID: "v1"}}
	nodes.ncs["n1"] = &model.NodeConfiguration{ID: "nc1", NodeID: "n1"}
	uc := nodesvc.New(fakePool{}, nodes, &fakeScopes{}, &fakeConfigurations{byID: map[string]*model.Configuration{}}, &fakeComposites{byID: map[string]*model.CompositeConfiguration{}})

	require.NoError(t, uc.Delete(context.Background(), "n1"))

	_, err := uc.Get(context.Background(), "n1")
	require.Error(t, err)
}

func TestListReturnsAllNodes(t *testing.T) {
	nodes := newFakeNodes()
	nodes.nodes["n1"] = &model.Node{ID: "n1", FQDN: "a.example.com"}
	nodes.nodes["n2"] = &model.Node{ID: "n2", FQDN: "b.example.com"}
	uc := nodesvc.New(fakePool{}, nodes, &fakeScopes{}, &fakeConfigurations{byID: map[string]*model.Configuration{}}, &fakeComposites{byID: map[string]*model.CompositeConfiguration{}})

	list, err := uc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
}

// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bundlesvc_test

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/core/repo"
	"github.com/opendsc/opendsc/pkg/core/usecase/bundlesvc"
	"github.com/opendsc/opendsc/pkg/core/usecase/paramsvc"
	"github.com/stretchr/testify/require"
)

type fakeConn struct{}

func (fakeConn) Exec(ctx context.Context, sql string, args ...any) (int64, error) { return 0, nil }
func (fakeConn) Query(ctx context.Context, sql string, args ...any) (repo.Rows, error) {
	return nil, nil
}
func (fakeConn) Tx(ctx context.Context, handler repo.TxHandler) error { return nil }
func (fakeConn) IsConn()                                              {}

type fakePool struct{}

func (fakePool) Conn(ctx context.Context, handler repo.ConnHandler) error {
	return handler(ctx, fakeConn{})
}

type fakeConfigurations struct {
	byID     map[string]*model.Configuration
	versions map[string][]*model.ConfigurationVersion
	files    map[string][]*model.ConfigurationFile
}

func (f *fakeConfigurations) Conn(repo.Conn) repo.ConfigurationsConnQueryer { return f }
func (f *fakeConfigurations) Tx(repo.Tx) repo.ConfigurationsTxQueryer       { return f }

func (f *fakeConfigurations) Create(ctx context.Context, c *model.Configuration) error { return nil }
func (f *fakeConfigurations) ByName(ctx context.Context, name string) (*model.Configuration, error) {
	for _, c := range f.byID {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, nil
}
func (f *fakeConfigurations) ByID(ctx context.Context, id string) (*model.Configuration, error) {
	return f.byID[id], nil
}
func (f *fakeConfigurations) List(ctx context.Context) ([]*model.Configuration, error) {
	out := make([]*model.Configuration, 0, len(f.byID))
	for _, c := range f.byID {
		out = append(out, c)
	}
	return out, nil
}
func (f *fakeConfigurations) CreateVersion(ctx context.Context, v *model.ConfigurationVersion, files []*model.ConfigurationFile) error {
	return nil
}
func (f *fakeConfigurations) Version(ctx context.Context, configurationID string, v model.SemVer) (*model.ConfigurationVersion, error) {
	for _, cv := range f.versions[configurationID] {
		if cv.Version == v {
			return cv, nil
		}
	}
	return nil, nil
}
func (f *fakeConfigurations) Versions(ctx context.Context, configurationID string) ([]*model.ConfigurationVersion, error) {
	return f.versions[configurationID], nil
}
func (f *fakeConfigurations) Publish(ctx context.Context, versionID string) error { return nil }
func (f *fakeConfigurations) ArchiveVersion(ctx context.Context, versionID string) error {
	return nil
}
func (f *fakeConfigurations) Files(ctx context.Context, versionID string) ([]*model.ConfigurationFile, error) {
	return f.files[versionID], nil
}
func (f *fakeConfigurations) InUse(ctx context.Context, configurationID string) (bool, error) {
	return false, nil
}
func (f *fakeConfigurations) Delete(ctx context.Context, id string) error { return nil }
func (f *fakeConfigurations) VersionInUse(ctx context.Context, versionID string) (bool, error) {
	return false, nil
}
func (f *fakeConfigurations) DeleteVersion(ctx context.Context, versionID string) error {
	return nil
}

type fakeComposites struct {
	byID     map[string]*model.CompositeConfiguration
	versions map[string][]*model.CompositeConfigurationVersion
}

func (f *fakeComposites) Conn(repo.Conn) repo.CompositesConnQueryer { return f }
func (f *fakeComposites) Tx(repo.Tx) repo.CompositesTxQueryer       { return f }

func (f *fakeComposites) Create(ctx context.Context, c *model.CompositeConfiguration) error {
	return nil
}
func (f *fakeComposites) ByName(ctx context.Context, name string) (*model.CompositeConfiguration, error) {
	for _, c := range f.byID {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, nil
}
func (f *fakeComposites) ByID(ctx context.Context, id string) (*model.CompositeConfiguration, error) {
	return f.byID[id], nil
}
func (f *fakeComposites) List(ctx context.Context) ([]*model.CompositeConfiguration, error) {
	out := make([]*model.CompositeConfiguration, 0, len(f.byID))
	for _, c := range f.byID {
		out = append(out, c)
	}
	return out, nil
}
func (f *fakeComposites) CreateVersion(ctx context.Context, v *model.CompositeConfigurationVersion) error {
	return nil
}
func (f *fakeComposites) Version(ctx context.Context, compositeID string, v model.SemVer) (*model.CompositeConfigurationVersion, error) {
	for _, cv := range f.versions[compositeID] {
		if cv.Version == v {
			return cv, nil
		}
	}
	return nil, nil
}
func (f *fakeComposites) Versions(ctx context.Context, compositeID string) ([]*model.CompositeConfigurationVersion, error) {
	return f.versions[compositeID], nil
}
func (f *fakeComposites) Publish(ctx context.Context, versionID string) error { return nil }
func (f *fakeComposites) ArchiveVersion(ctx context.Context, versionID string) error {
	return nil
}
func (f *fakeComposites) InUse(ctx context.Context, compositeID string) (bool, error) {
	return false, nil
}
func (f *fakeComposites) Delete(ctx context.Context, id string) error { return nil }
func (f *fakeComposites) VersionInUse(ctx context.Context, versionID string) (bool, error) {
	return false, nil
}
func (f *fakeComposites) DeleteVersion(ctx context.Context, versionID string) error {
	return nil
}

type fakeNodes struct {
	configurations map[string]*model.NodeConfiguration
	tags           map[string][]*model.NodeTag
	nodes          map[string]*model.Node
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
	return f.configurations[nodeID], nil
}
func (f *fakeNodes) InsertComplianceReport(ctx context.Context, r *model.ComplianceReport) error {
	return nil
}
func (f *fakeNodes) ComplianceReports(ctx context.Context, nodeID string, limit int) ([]*model.ComplianceReport, error) {
	return nil, nil
}

type fakeScopes struct {
	types map[string]*model.ScopeType
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
func (f *fakeScopes) DeleteType(ctx context.Context, id string) error           { return nil }
func (f *fakeScopes) CreateValue(ctx context.Context, sv *model.ScopeValue) error { return nil }
func (f *fakeScopes) Values(ctx context.Context, scopeTypeID string) ([]*model.ScopeValue, error) {
	return nil, nil
}
func (f *fakeScopes) ValueByID(ctx context.Context, id string) (*model.ScopeValue, *model.ScopeType, error) {
	return nil, nil, nil
}
func (f *fakeScopes) DeleteValue(ctx context.Context, id string) error { return nil }

type fakeParameters struct {
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

func newParamsvc(scopes *fakeScopes, nodes *fakeNodes, params *fakeParameters) *paramsvc.UseCase {
	return paramsvc.New(fakePool{}, scopes, nodes, params)
}

func baseScopes() *fakeScopes {
	return &fakeScopes{
		types: map[string]*model.ScopeType{
			"Default": {ID: "t-default", Name: model.DefaultScopeTypeName, Precedence: 0, IsSystem: true},
			"Node":    {ID: "t-node", Name: model.NodeScopeTypeName, Precedence: 100, IsSystem: true},
		},
	}
}

func TestBuildPlainConfigurationIsDeterministic(t *testing.T) {
	v := model.SemVer{Major: 1, Minor: 0, Patch: 0}
	cfg := &model.Configuration{ID: "cfg-web", Name: "web", EntryPoint: "install.ps1"}
	cv := &model.ConfigurationVersion{ID: "ver-1", ConfigurationID: cfg.ID, Version: v}
	files := []*model.ConfigurationFile{
		{VersionID: cv.ID, Path: "install.ps1", Content: []byte("install"), SHA256: "a"},
		{VersionID: cv.ID, Path: "lib/helper.ps1", Content: []byte("helper"), SHA256: "b"},
	}
	configs := &fakeConfigurations{
		byID:     map[string]*model.Configuration{cfg.ID: cfg},
		versions: map[string][]*model.ConfigurationVersion{cfg.ID: {cv}},
		files:    map[string][]*model.ConfigurationFile{cv.ID: files},
	}
	nodes := &fakeNodes{
		configurations: map[string]*model.NodeConfiguration{
			"n1": {NodeID: "n1", ConfigurationID: &cfg.ID, UseServerManagedParams: false},
		},
		nodes: map[string]*model.Node{"n1": {ID: "n1", FQDN: "host1.example.com"}},
	}
	scopes := baseScopes()
	params := &fakeParameters{active: map[string]map[string]map[string]*model.ParameterFile{}}
	pv := newParamsvc(scopes, nodes, params)

	uc := bundlesvc.New(fakePool{}, configs, &fakeComposites{}, nodes, pv)

	var buf1, buf2 bytes.Buffer
	res1, err := uc.Build(context.Background(), "n1", &buf1)
	require.NoError(t, err)
	res2, err := uc.Build(context.Background(), "n1", &buf2)
	require.NoError(t, err)

	require.Equal(t, res1.BundleChecksum, res2.BundleChecksum)
	require.Equal(t, res1.ManifestChecksum, res2.ManifestChecksum)
	require.Equal(t, buf1.Bytes(), buf2.Bytes())

	zr, err := zip.NewReader(bytes.NewReader(buf1.Bytes()), int64(buf1.Len()))
	require.NoError(t, err)
	names := make([]string, len(zr.File))
	for i, f := range zr.File {
		names[i] = f.Name
	}
	require.Equal(t, []string{"install.ps1", "lib/helper.ps1"}, names)
}

func TestBuildPlainConfigurationIncludesParameters(t *testing.T) {
	v := model.SemVer{Major: 1, Minor: 0, Patch: 0}
	cfg := &model.Configuration{ID: "cfg-web", Name: "web", EntryPoint: "install.ps1", IsServerManaged: true}
	cv := &model.ConfigurationVersion{ID: "ver-1", ConfigurationID: cfg.ID, Version: v}
	files := []*model.ConfigurationFile{
		{VersionID: cv.ID, Path: "install.ps1", Content: []byte("install"), SHA256: "a"},
	}
	configs := &fakeConfigurations{
		byID:     map[string]*model.Configuration{cfg.ID: cfg},
		versions: map[string][]*model.ConfigurationVersion{cfg.ID: {cv}},
		files:    map[string][]*model.ConfigurationFile{cv.ID: files},
	}
	nodes := &fakeNodes{
		configurations: map[string]*model.NodeConfiguration{
			"n1": {NodeID: "n1", ConfigurationID: &cfg.ID, UseServerManagedParams: true},
		},
		nodes: map[string]*model.Node{"n1": {ID: "n1", FQDN: "host1.example.com"}},
	}
	scopes := baseScopes()
	params := &fakeParameters{active: map[string]map[string]map[string]*model.ParameterFile{
		cfg.ID: {"t-default": {"": {ContentType: "yaml", Content: []byte("a: 1\n"), IsActive: true}}},
	}}
	pv := newParamsvc(scopes, nodes, params)

	uc := bundlesvc.New(fakePool{}, configs, &fakeComposites{}, nodes, pv)

	var buf bytes.Buffer
	_, err := uc.Build(context.Background(), "n1", &buf)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	names := make([]string, len(zr.File))
	for i, f := range zr.File {
		names[i] = f.Name
	}
	require.Contains(t, names, "parameters.yaml")
}

func TestBuildCompositeNestsChildrenAndGeneratesOrchestrator(t *testing.T) {
	webVer := model.SemVer{Major: 1, Minor: 0, Patch: 0}
	web := &model.Configuration{ID: "cfg-web", Name: "web", EntryPoint: "install.ps1"}
	webCV := &model.ConfigurationVersion{ID: "web-v1", ConfigurationID: web.ID, Version: webVer}
	webFiles := []*model.ConfigurationFile{
		{VersionID: webCV.ID, Path: "install.ps1", Content: []byte("install"), SHA256: "a"},
	}
	configs := &fakeConfigurations{
		byID:     map[string]*model.Configuration{web.ID: web},
		versions: map[string][]*model.ConfigurationVersion{web.ID: {webCV}},
		files:    map[string][]*model.ConfigurationFile{webCV.ID: webFiles},
	}

	stackVer := model.SemVer{Major: 2, Minor: 0, Patch: 0}
	stack := &model.CompositeConfiguration{ID: "cfg-stack", Name: "stack", EntryPoint: "orchestrator.yaml"}
	stackCV := &model.CompositeConfigurationVersion{
		ID: "stack-v1", CompositeID: stack.ID, Version: stackVer,
		Items: []model.CompositeConfigurationItem{
			{ConfigurationID: web.ID, Order: 0},
		},
	}
	composites := &fakeComposites{
		byID:     map[string]*model.CompositeConfiguration{stack.ID: stack},
		versions: map[string][]*model.CompositeConfigurationVersion{stack.ID: {stackCV}},
	}

	stackIDCopy := stack.ID
	nodes := &fakeNodes{
		configurations: map[string]*model.NodeConfiguration{
			"n1": {NodeID: "n1", CompositeConfigurationID: &stackIDCopy, UseServerManagedParams: false},
		},
		nodes: map[string]*model.Node{"n1": {ID: "n1", FQDN: "host1.example.com"}},
	}
	scopes := baseScopes()
	params := &fakeParameters{active: map[string]map[string]map[string]*model.ParameterFile{}}
	pv := newParamsvc(scopes, nodes, params)

	uc := bundlesvc.New(fakePool{}, configs, composites, nodes, pv)

	var buf bytes.Buffer
	_, err := uc.Build(context.Background(), "n1", &buf)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	names := make([]string, len(zr.File))
	for i, f := range zr.File {
		names[i] = f.Name
	}
	require.Contains(t, names, "web/install.ps1")
	require.Contains(t, names, "orchestrator.yaml")
}

func TestBuildRejectsEscapingPath(t *testing.T) {
	v := model.SemVer{Major: 1, Minor: 0, Patch: 0}
	cfg := &model.Configuration{ID: "cfg-web", Name: "web", EntryPoint: "install.ps1"}
	cv := &model.ConfigurationVersion{ID: "ver-1", ConfigurationID: cfg.ID, Version: v}
	files := []*model.ConfigurationFile{
		{VersionID: cv.ID, Path: "../escape.ps1", Content: []byte("x"), SHA256: "a"},
	}
	configs := &fakeConfigurations{
		byID:     map[string]*model.Configuration{cfg.ID: cfg},
		versions: map[string][]*model.ConfigurationVersion{cfg.ID: {cv}},
		files:    map[string][]*model.ConfigurationFile{cv.ID: files},
	}
	nodes := &fakeNodes{
		configurations: map[string]*model.NodeConfiguration{
			"n1": {NodeID: "n1", ConfigurationID: &cfg.ID},
		},
		nodes: map[string]*model.Node{"n1": {ID: "n1", FQDN: "host1.example.com"}},
	}
	scopes := baseScopes()
	params := &fakeParameters{active: map[string]map[string]map[string]*model.ParameterFile{}}
	pv := newParamsvc(scopes, nodes, params)

	uc := bundlesvc.New(fakePool{}, configs, &fakeComposites{}, nodes, pv)

	var buf bytes.Buffer
	_, err := uc.Build(context.Background(), "n1", &buf)
	require.Error(t, err)
}

func TestBuildNoNodeConfigurationIsNotFound(t *testing.T) {
	nodes := &fakeNodes{configurations: map[string]*model.NodeConfiguration{}}
	scopes := baseScopes()
	params := &fakeParameters{active: map[string]map[string]map[string]*model.ParameterFile{}}
	pv := newParamsvc(scopes, nodes, params)
	uc := bundlesvc.New(fakePool{}, &fakeConfigurations{byID: map[string]*model.Configuration{}}, &fakeComposites{}, nodes, pv)

	var buf bytes.Buffer
	_, err := uc.Build(context.Background(), "missing", &buf)
	require.Error(t, err)
}

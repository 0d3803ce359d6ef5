// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package noderp is the adapter for the Node/NodeTag/NodeConfiguration/
// RegistrationKey/ComplianceReport repository.
package noderp

import (
	"context"
	"time"

	"github.com/opendsc/opendsc/pkg/adapter/db/postgres"
	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/core/repo"
)

// Repo represents the Nodes repository instance.
type Repo struct{}

// New instantiates a Nodes Repo.
func New() *Repo {
	return &Repo{}
}

// Models returns the gorm models backing this repository, for use with
// postgres.Pool.AutoMigrate.
func Models() []any {
	return []any{
		&gRegistrationKey{}, &gNode{}, &gNodeTag{},
		&gNodeConfiguration{}, &gComplianceReport{},
	}
}

type connQueryer struct {
	*postgres.Conn
}

// Conn takes a Conn interface instance, unwraps it, and returns a
// NodesConnQueryer able to run connection-scoped operations.
func (r *Repo) Conn(c repo.Conn) repo.NodesConnQueryer {
	return connQueryer{Conn: c.(*postgres.Conn)}
}

type txQueryer struct {
	*postgres.Tx
}

// Tx takes a Tx interface instance, unwraps it, and returns a
// NodesTxQueryer able to run transaction-scoped operations.
func (r *Repo) Tx(tx repo.Tx) repo.NodesTxQueryer {
	return txQueryer{Tx: tx.(*postgres.Tx)}
}

func (q connQueryer) CreateRegistrationKey(ctx context.Context, k *model.RegistrationKey) error {
	return CreateRegistrationKey(ctx, q.Conn, k)
}

func (q connQueryer) RegistrationKeyByToken(ctx context.Context, token string) (*model.RegistrationKey, error) {
	return RegistrationKeyByToken(ctx, q.Conn, token)
}

func (q connQueryer) ConsumeRegistrationKey(ctx context.Context, id string, now time.Time) error {
	return ConsumeRegistrationKey(ctx, q.Conn, id, now)
}

func (q connQueryer) CreateNode(ctx context.Context, n *model.Node) error {
	return CreateNode(ctx, q.Conn, n)
}

func (q connQueryer) Nodes(ctx context.Context) ([]*model.Node, error) {
	return Nodes(ctx, q.Conn)
}

func (q connQueryer) NodeByID(ctx context.Context, id string) (*model.Node, error) {
	return NodeByID(ctx, q.Conn, id)
}

func (q connQueryer) DeleteNode(ctx context.Context, id string) error {
	return DeleteNode(ctx, q.Conn, id)
}

func (q connQueryer) NodeByFQDN(ctx context.Context, fqdn string) (*model.Node, error) {
	return NodeByFQDN(ctx, q.Conn, fqdn)
}

func (q connQueryer) NodeByCertFingerprint(ctx context.Context, fingerprint string) (*model.Node, error) {
	return NodeByCertFingerprint(ctx, q.Conn, fingerprint)
}

func (q connQueryer) UpdateNodeCertificate(ctx context.Context, nodeID, fingerprint string, notAfter time.Time) error {
	return UpdateNodeCertificate(ctx, q.Conn, nodeID, fingerprint, notAfter)
}

func (q connQueryer) TouchNode(ctx context.Context, nodeID string, now time.Time) error {
	return TouchNode(ctx, q.Conn, nodeID, now)
}

func (q connQueryer) TagNode(ctx context.Context, nodeID, scopeValueID string) error {
	return TagNode(ctx, q.Conn, nodeID, scopeValueID)
}

func (q connQueryer) NodeTags(ctx context.Context, nodeID string) ([]*model.NodeTag, error) {
	return NodeTags(ctx, q.Conn, nodeID)
}

func (q connQueryer) SetNodeConfiguration(ctx context.Context, nc *model.NodeConfiguration) error {
	return SetNodeConfiguration(ctx, q.Conn, nc)
}

func (q connQueryer) NodeConfiguration(ctx context.Context, nodeID string) (*model.NodeConfiguration, error) {
	return NodeConfiguration(ctx, q.Conn, nodeID)
}

func (q connQueryer) InsertComplianceReport(ctx context.Context, r *model.ComplianceReport) error {
	return InsertComplianceReport(ctx, q.Conn, r)
}

func (q connQueryer) ComplianceReports(ctx context.Context, nodeID string, limit int) ([]*model.ComplianceReport, error) {
	return ComplianceReports(ctx, q.Conn, nodeID, limit)
}

func (q txQueryer) CreateRegistrationKey(ctx context.Context, k *model.RegistrationKey) error {
	return CreateRegistrationKey(ctx, q.Tx, k)
}

func (q txQueryer) RegistrationKeyByToken(ctx context.Context, token string) (*model.RegistrationKey, error) {
	return RegistrationKeyByToken(ctx, q.Tx, token)
}

func (q txQueryer) ConsumeRegistrationKey(ctx context.Context, id string, now time.Time) error {
	return ConsumeRegistrationKey(ctx, q.Tx, id, now)
}

func (q txQueryer) CreateNode(ctx context.Context, n *model.Node) error {
	return CreateNode(ctx, q.Tx, n)
}

func (q txQueryer) Nodes(ctx context.Context) ([]*model.Node, error) {
	return Nodes(ctx, q.Tx)
}

func (q txQueryer) NodeByID(ctx context.Context, id string) (*model.Node, error) {
	return NodeByID(ctx, q.Tx, id)
}

func (q txQueryer) DeleteNode(ctx context.Context, id string) error {
	return DeleteNode(ctx, q.Tx, id)
}

func (q txQueryer) NodeByFQDN(ctx context.Context, fqdn string) (*model.Node, error) {
	return NodeByFQDN(ctx, q.Tx, fqdn)
}

func (q txQueryer) NodeByCertFingerprint(ctx context.Context, fingerprint string) (*model.Node, error) {
	return NodeByCertFingerprint(ctx, q.Tx, fingerprint)
}

func (q txQueryer) UpdateNodeCertificate(ctx context.Context, nodeID, fingerprint string, notAfter time.Time) error {
	return UpdateNodeCertificate(ctx, q.Tx, nodeID, fingerprint, notAfter)
}

func (q txQueryer) TouchNode(ctx context.Context, nodeID string, now time.Time) error {
	return TouchNode(ctx, q.Tx, nodeID, now)
}

func (q txQueryer) TagNode(ctx context.Context, nodeID, scopeValueID string) error {
	return TagNode(ctx, q.Tx, nodeID, scopeValueID)
}

func (q txQueryer) NodeTags(ctx context.Context, nodeID string) ([]*model.NodeTag, error) {
	return NodeTags(ctx, q.Tx, nodeID)
}

func (q txQueryer) SetNodeConfiguration(ctx context.Context, nc *model.NodeConfiguration) error {
	return SetNodeConfiguration(ctx, q.Tx, nc)
}

func (q txQueryer) NodeConfiguration(ctx context.Context, nodeID string) (*model.NodeConfiguration, error) {
	return NodeConfiguration(ctx, q.Tx, nodeID)
}

func (q txQueryer) InsertComplianceReport(ctx context.Context, r *model.ComplianceReport) error {
	return InsertComplianceReport(ctx, q.Tx, r)
}

func (q txQueryer) ComplianceReports(ctx context.Context, nodeID string, limit int) ([]*model.ComplianceReport, error) {
	return ComplianceReports(ctx, q.Tx, nodeID, limit)
}

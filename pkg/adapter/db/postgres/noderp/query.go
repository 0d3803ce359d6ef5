// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package noderp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opendsc/opendsc/pkg/adapter/db/postgres"
	"github.com/opendsc/opendsc/pkg/core/cerr"
	"github.com/opendsc/opendsc/pkg/core/model"
	"gorm.io/gorm"
)

type gRegistrationKey struct {
	ID        uuid.UUID `gorm:"primaryKey;type:uuid;column:id"`
	Token     string    `gorm:"uniqueIndex"`
	CreatedBy string
	ExpiresAt time.Time
	UseCount  int
	MaxUses   *int
	Revoked   bool
}

func (gRegistrationKey) TableName() string { return "registration_keys" }

func (g *gRegistrationKey) Model() *model.RegistrationKey {
	return &model.RegistrationKey{
		ID:        g.ID.String(),
		Token:     g.Token,
		CreatedBy: g.CreatedBy,
		ExpiresAt: g.ExpiresAt,
		UseCount:  g.UseCount,
		MaxUses:   g.MaxUses,
		Revoked:   g.Revoked,
	}
}

type gNode struct {
	ID              uuid.UUID `gorm:"primaryKey;type:uuid;column:id"`
	FQDN            string    `gorm:"uniqueIndex"`
	RegisteredAt    time.Time
	LastSeen        time.Time
	CertFingerprint string `gorm:"uniqueIndex"`
	CertNotAfter    time.Time
}

func (gNode) TableName() string { return "nodes" }

func (g *gNode) Model() *model.Node {
	return &model.Node{
		ID:              g.ID.String(),
		FQDN:            g.FQDN,
		RegisteredAt:    g.RegisteredAt,
		LastSeen:        g.LastSeen,
		CertFingerprint: g.CertFingerprint,
		CertNotAfter:    g.CertNotAfter,
	}
}

type gNodeTag struct {
	ID           uuid.UUID `gorm:"primaryKey;type:uuid;column:id"`
	NodeID       uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_node_tag"`
	ScopeValueID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_node_tag"`
}

func (gNodeTag) TableName() string { return "node_tags" }

func (g *gNodeTag) Model() *model.NodeTag {
	return &model.NodeTag{
		ID:           g.ID.String(),
		NodeID:       g.NodeID.String(),
		ScopeValueID: g.ScopeValueID.String(),
	}
}

type gNodeConfiguration struct {
	ID                       uuid.UUID `gorm:"primaryKey;type:uuid;column:id"`
	NodeID                   uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	ConfigurationID          *uuid.UUID `gorm:"type:uuid"`
	CompositeConfigurationID *uuid.UUID `gorm:"type:uuid"`
	PinnedVersion            string
	UseServerManagedParams   bool
}

func (gNodeConfiguration) TableName() string { return "node_configurations" }

func (g *gNodeConfiguration) Model() (*model.NodeConfiguration, error) {
	nc := &model.NodeConfiguration{
		ID:                     g.ID.String(),
		NodeID:                 g.NodeID.String(),
		UseServerManagedParams: g.UseServerManagedParams,
	}
	if g.ConfigurationID != nil {
		s := g.ConfigurationID.String()
		nc.ConfigurationID = &s
	}
	if g.CompositeConfigurationID != nil {
		s := g.CompositeConfigurationID.String()
		nc.CompositeConfigurationID = &s
	}
	if g.PinnedVersion != "" {
		v, err := model.ParseSemVer(g.PinnedVersion)
		if err != nil {
			return nil, fmt.Errorf("stored pinned version %q: %w", g.PinnedVersion, err)
		}
		nc.PinnedVersion = &v
	}
	return nc, nil
}

type gComplianceReport struct {
	ID        uuid.UUID `gorm:"primaryKey;type:uuid;column:id"`
	NodeID    uuid.UUID `gorm:"type:uuid;index"`
	Operation string
	Timestamp time.Time
	ExitCode  int
	Results   []byte
	RawResult []byte
}

func (gComplianceReport) TableName() string { return "compliance_reports" }

func (g *gComplianceReport) Model() (*model.ComplianceReport, error) {
	var results []model.ResourceOutcome
	if len(g.Results) > 0 {
		if err := json.Unmarshal(g.Results, &results); err != nil {
			return nil, fmt.Errorf("decode stored results: %w", err)
		}
	}
	return &model.ComplianceReport{
		ID:        g.ID.String(),
		NodeID:    g.NodeID.String(),
		Operation: model.ReportOperation(g.Operation),
		Timestamp: g.Timestamp,
		ExitCode:  g.ExitCode,
		Results:   results,
		RawResult: g.RawResult,
	}, nil
}

// CreateRegistrationKey persists a new RegistrationKey.
func CreateRegistrationKey[Q postgres.Queryer](ctx context.Context, q Q, k *model.RegistrationKey) error {
	id, err := uuid.Parse(k.ID)
	if err != nil {
		id = uuid.New()
		k.ID = id.String()
	}
	g := &gRegistrationKey{
		ID:        id,
		Token:     k.Token,
		CreatedBy: k.CreatedBy,
		ExpiresAt: k.ExpiresAt,
		MaxUses:   k.MaxUses,
		Revoked:   k.Revoked,
	}
	if err := q.GORM(ctx).Create(g).Error; err != nil {
		return fmt.Errorf("create registration key: %w", err)
	}
	return nil
}

// RegistrationKeyByToken loads a RegistrationKey by its token.
func RegistrationKeyByToken[Q postgres.Queryer](ctx context.Context, q Q, token string) (*model.RegistrationKey, error) {
	var g gRegistrationKey
	err := q.GORM(ctx).Where("token = ?", token).First(&g).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, cerr.NotFound(fmt.Errorf("registration key not found"))
		}
		return nil, fmt.Errorf("registration key by token: %w", err)
	}
	return g.Model(), nil
}

// ConsumeRegistrationKey atomically increments a RegistrationKey's
// use-count, but only if it is still usable at instant now.
func ConsumeRegistrationKey[Q postgres.Queryer](ctx context.Context, q Q, id string, now time.Time) error {
	tt := q.GORM(ctx).Model(&gRegistrationKey{}).Where(
		"id = ? AND revoked = false AND expires_at > ? AND (max_uses IS NULL OR use_count < max_uses)",
		id, now,
	).Update("use_count", gorm.Expr("use_count + 1"))
	if tt.Error != nil {
		return fmt.Errorf("consume registration key: %w", tt.Error)
	}
	if tt.RowsAffected == 0 {
		return cerr.Conflict(fmt.Errorf("registration key %s is no longer usable", id))
	}
	return nil
}

// CreateNode persists a newly registered Node.
func CreateNode[Q postgres.Queryer](ctx context.Context, q Q, n *model.Node) error {
	id, err := uuid.Parse(n.ID)
	if err != nil {
		id = uuid.New()
		n.ID = id.String()
	}
	g := &gNode{
		ID:              id,
		FQDN:            n.FQDN,
		RegisteredAt:    n.RegisteredAt,
		LastSeen:        n.LastSeen,
		CertFingerprint: n.CertFingerprint,
		CertNotAfter:    n.CertNotAfter,
	}
	if err := q.GORM(ctx).Create(g).Error; err != nil {
		return fmt.Errorf("create node: %w", err)
	}
	return nil
}

// NodeByID loads a Node by ID.
func NodeByID[Q postgres.Queryer](ctx context.Context, q Q, id string) (*model.Node, error) {
	var g gNode
	err := q.GORM(ctx).Where("id = ?", id).First(&g).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, cerr.NotFound(fmt.Errorf("node %s not found", id))
		}
		return nil, fmt.Errorf("node by id: %w", err)
	}
	return g.Model(), nil
}

// Nodes lists every Node ordered by FQDN.
func Nodes[Q postgres.Queryer](ctx context.Context, q Q) ([]*model.Node, error) {
	var gs []gNode
	if err := q.GORM(ctx).Order("fqdn").Find(&gs).Error; err != nil {
		return nil, fmt.Errorf("nodes: %w", err)
	}
	out := make([]*model.Node, len(gs))
	for i := range gs {
		out[i] = gs[i].Model()
	}
	return out, nil
}

// DeleteNode removes a Node, cascading its NodeTags and
// NodeConfiguration assignment.
func DeleteNode[Q postgres.Queryer](ctx context.Context, q Q, id string) error {
	return q.GORM(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("node_id = ?", id).Delete(&gNodeTag{}).Error; err != nil {
			return fmt.Errorf("delete node: clear tags: %w", err)
		}
		if err := tx.Where("node_id = ?", id).Delete(&gNodeConfiguration{}).Error; err != nil {
			return fmt.Errorf("delete node: clear configuration: %w", err)
		}
		tt := tx.Where("id = ?", id).Delete(&gNode{})
		if tt.Error != nil {
			return fmt.Errorf("delete node: %w", tt.Error)
		}
		if tt.RowsAffected == 0 {
			return cerr.NotFound(fmt.Errorf("node %s not found", id))
		}
		return nil
	})
}

// NodeByFQDN loads a Node by its unique FQDN.
func NodeByFQDN[Q postgres.Queryer](ctx context.Context, q Q, fqdn string) (*model.Node, error) {
	var g gNode
	err := q.GORM(ctx).Where("fqdn = ?", fqdn).First(&g).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, cerr.NotFound(fmt.Errorf("node %q not found", fqdn))
		}
		return nil, fmt.Errorf("node by fqdn: %w", err)
	}
	return g.Model(), nil
}

// NodeByCertFingerprint loads a Node by its certificate fingerprint.
func NodeByCertFingerprint[Q postgres.Queryer](ctx context.Context, q Q, fingerprint string) (*model.Node, error) {
	var g gNode
	err := q.GORM(ctx).Where("cert_fingerprint = ?", fingerprint).First(&g).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, cerr.NotFound(fmt.Errorf("node with fingerprint %q not found", fingerprint))
		}
		return nil, fmt.Errorf("node by cert fingerprint: %w", err)
	}
	return g.Model(), nil
}

// UpdateNodeCertificate rotates a Node's certificate fingerprint and
// expiry, and bumps LastSeen.
func UpdateNodeCertificate[Q postgres.Queryer](ctx context.Context, q Q, nodeID, fingerprint string, notAfter time.Time) error {
	tt := q.GORM(ctx).Model(&gNode{}).Where("id = ?", nodeID).Updates(map[string]any{
		"cert_fingerprint": fingerprint,
		"cert_not_after":   notAfter,
		"last_seen":        time.Now().UTC(),
	})
	if tt.Error != nil {
		return fmt.Errorf("update node certificate: %w", tt.Error)
	}
	if tt.RowsAffected == 0 {
		return cerr.NotFound(fmt.Errorf("node %s not found", nodeID))
	}
	return nil
}

// TouchNode bumps a Node's LastSeen to now.
func TouchNode[Q postgres.Queryer](ctx context.Context, q Q, nodeID string, now time.Time) error {
	tt := q.GORM(ctx).Model(&gNode{}).Where("id = ?", nodeID).Update("last_seen", now)
	if tt.Error != nil {
		return fmt.Errorf("touch node: %w", tt.Error)
	}
	if tt.RowsAffected == 0 {
		return cerr.NotFound(fmt.Errorf("node %s not found", nodeID))
	}
	return nil
}

// TagNode assigns a Node to a ScopeValue, replacing any prior
// assignment within the same ScopeType.
func TagNode[Q postgres.Queryer](ctx context.Context, q Q, nodeID, scopeValueID string) error {
	nid, err := uuid.Parse(nodeID)
	if err != nil {
		return fmt.Errorf("invalid node id %q: %w", nodeID, err)
	}
	svid, err := uuid.Parse(scopeValueID)
	if err != nil {
		return fmt.Errorf("invalid scope value id %q: %w", scopeValueID, err)
	}
	gdb := q.GORM(ctx)
	return gdb.Transaction(func(tx *gorm.DB) error {
		var sv struct{ ScopeTypeID uuid.UUID }
		if err := tx.Table("scope_values").Select("scope_type_id").Where("id = ?", svid).First(&sv).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return cerr.NotFound(fmt.Errorf("scope value %s not found", scopeValueID))
			}
			return fmt.Errorf("tag node: load scope value: %w", err)
		}
		err := tx.Where(
			"node_id = ? AND scope_value_id IN (SELECT id FROM scope_values WHERE scope_type_id = ?)",
			nid, sv.ScopeTypeID,
		).Delete(&gNodeTag{}).Error
		if err != nil {
			return fmt.Errorf("tag node: clear prior tag: %w", err)
		}
		nt := &gNodeTag{ID: uuid.New(), NodeID: nid, ScopeValueID: svid}
		if err := tx.Create(nt).Error; err != nil {
			return fmt.Errorf("tag node: %w", err)
		}
		return nil
	})
}

// NodeTags lists a Node's tags, one per ScopeType at most.
func NodeTags[Q postgres.Queryer](ctx context.Context, q Q, nodeID string) ([]*model.NodeTag, error) {
	var gs []gNodeTag
	if err := q.GORM(ctx).Where("node_id = ?", nodeID).Find(&gs).Error; err != nil {
		return nil, fmt.Errorf("node tags: %w", err)
	}
	out := make([]*model.NodeTag, len(gs))
	for i := range gs {
		out[i] = gs[i].Model()
	}
	return out, nil
}

// SetNodeConfiguration assigns or replaces a Node's configuration
// binding.
func SetNodeConfiguration[Q postgres.Queryer](ctx context.Context, q Q, nc *model.NodeConfiguration) error {
	nid, err := uuid.Parse(nc.NodeID)
	if err != nil {
		return fmt.Errorf("invalid node id %q: %w", nc.NodeID, err)
	}
	id, err := uuid.Parse(nc.ID)
	if err != nil {
		id = uuid.New()
		nc.ID = id.String()
	}
	g := &gNodeConfiguration{
		ID:                     id,
		NodeID:                 nid,
		UseServerManagedParams: nc.UseServerManagedParams,
	}
	if nc.ConfigurationID != nil {
		cid, err := uuid.Parse(*nc.ConfigurationID)
		if err != nil {
			return fmt.Errorf("invalid configuration id %q: %w", *nc.ConfigurationID, err)
		}
		g.ConfigurationID = &cid
	}
	if nc.CompositeConfigurationID != nil {
		cid, err := uuid.Parse(*nc.CompositeConfigurationID)
		if err != nil {
			return fmt.Errorf("invalid composite configuration id %q: %w", *nc.CompositeConfigurationID, err)
		}
		g.CompositeConfigurationID = &cid
	}
	if nc.PinnedVersion != nil {
		g.PinnedVersion = nc.PinnedVersion.String()
	}
	return q.GORM(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("node_id = ?", nid).Delete(&gNodeConfiguration{}).Error; err != nil {
			return fmt.Errorf("set node configuration: clear prior: %w", err)
		}
		if err := tx.Create(g).Error; err != nil {
			return fmt.Errorf("set node configuration: %w", err)
		}
		return nil
	})
}

// NodeConfiguration loads a Node's configuration binding, or nil if
// unset.
func NodeConfiguration[Q postgres.Queryer](ctx context.Context, q Q, nodeID string) (*model.NodeConfiguration, error) {
	var g gNodeConfiguration
	err := q.GORM(ctx).Where("node_id = ?", nodeID).First(&g).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("node configuration: %w", err)
	}
	return g.Model()
}

// InsertComplianceReport appends a ComplianceReport.
func InsertComplianceReport[Q postgres.Queryer](ctx context.Context, q Q, r *model.ComplianceReport) error {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		id = uuid.New()
		r.ID = id.String()
	}
	nid, err := uuid.Parse(r.NodeID)
	if err != nil {
		return fmt.Errorf("invalid node id %q: %w", r.NodeID, err)
	}
	results, err := json.Marshal(r.Results)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	g := &gComplianceReport{
		ID:        id,
		NodeID:    nid,
		Operation: string(r.Operation),
		Timestamp: r.Timestamp,
		ExitCode:  r.ExitCode,
		Results:   results,
		RawResult: r.RawResult,
	}
	if err := q.GORM(ctx).Create(g).Error; err != nil {
		return fmt.Errorf("insert compliance report: %w", err)
	}
	return nil
}

// ComplianceReports lists a Node's reports, newest first.
func ComplianceReports[Q postgres.Queryer](ctx context.Context, q Q, nodeID string, limit int) ([]*model.ComplianceReport, error) {
	var gs []gComplianceReport
	query := q.GORM(ctx).Where("node_id = ?", nodeID).Order("timestamp DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&gs).Error; err != nil {
		return nil, fmt.Errorf("compliance reports: %w", err)
	}
	out := make([]*model.ComplianceReport, len(gs))
	for i := range gs {
		m, err := gs[i].Model()
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}

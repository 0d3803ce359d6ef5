// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package paramrp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opendsc/opendsc/pkg/adapter/db/postgres"
	"github.com/opendsc/opendsc/pkg/core/cerr"
	"github.com/opendsc/opendsc/pkg/core/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gParameterFile struct {
	ID              uuid.UUID `gorm:"primaryKey;type:uuid;column:id"`
	ConfigurationID uuid.UUID `gorm:"type:uuid;index:idx_param_triple"`
	ScopeTypeID     uuid.UUID `gorm:"type:uuid;index:idx_param_triple"`
	ScopeValueID    *uuid.UUID `gorm:"type:uuid;index:idx_param_triple"`
	Version         string
	Content         []byte
	ContentType     string
	Checksum        string
	SchemaHash      string
	IsDraft         bool
	IsActive        bool
	IsArchived      bool
	CreatedAt       time.Time
}

func (gParameterFile) TableName() string { return "parameter_files" }

func (g *gParameterFile) Model() *model.ParameterFile {
	var scopeValueID string
	if g.ScopeValueID != nil {
		scopeValueID = g.ScopeValueID.String()
	}
	return &model.ParameterFile{
		ID:              g.ID.String(),
		ConfigurationID: g.ConfigurationID.String(),
		ScopeTypeID:     g.ScopeTypeID.String(),
		ScopeValueID:    scopeValueID,
		Version:         g.Version,
		Content:         g.Content,
		ContentType:     g.ContentType,
		Checksum:        g.Checksum,
		SchemaHash:      g.SchemaHash,
		IsDraft:         g.IsDraft,
		IsActive:        g.IsActive,
		IsArchived:      g.IsArchived,
		CreatedAt:       g.CreatedAt,
	}
}

type gParameterSchema struct {
	Hash   string `gorm:"primaryKey;column:hash"`
	Schema []byte
}

func (gParameterSchema) TableName() string { return "parameter_schemas" }

func (g *gParameterSchema) Model() *model.ParameterSchema {
	return &model.ParameterSchema{Hash: g.Hash, Schema: g.Schema}
}

func scopeValueUUID(scopeValueID string) (*uuid.UUID, error) {
	if scopeValueID == "" {
		return nil, nil
	}
	id, err := uuid.Parse(scopeValueID)
	if err != nil {
		return nil, fmt.Errorf("invalid scope value id %q: %w", scopeValueID, err)
	}
	return &id, nil
}

func tripleWhere(gdb *gorm.DB, configurationID, scopeTypeID, scopeValueID string) *gorm.DB {
	gdb = gdb.Where("configuration_id = ? AND scope_type_id = ?", configurationID, scopeTypeID)
	if scopeValueID == "" {
		return gdb.Where("scope_value_id IS NULL")
	}
	return gdb.Where("scope_value_id = ?", scopeValueID)
}

// CreateFile persists a new draft ParameterFile.
func CreateFile[Q postgres.Queryer](ctx context.Context, q Q, f *model.ParameterFile) error {
	id, err := uuid.Parse(f.ID)
	if err != nil {
		id = uuid.New()
		f.ID = id.String()
	}
	configID, err := uuid.Parse(f.ConfigurationID)
	if err != nil {
		return fmt.Errorf("invalid configuration id %q: %w", f.ConfigurationID, err)
	}
	typeID, err := uuid.Parse(f.ScopeTypeID)
	if err != nil {
		return fmt.Errorf("invalid scope type id %q: %w", f.ScopeTypeID, err)
	}
	valueID, err := scopeValueUUID(f.ScopeValueID)
	if err != nil {
		return err
	}
	g := &gParameterFile{
		ID:              id,
		ConfigurationID: configID,
		ScopeTypeID:     typeID,
		ScopeValueID:    valueID,
		Version:         f.Version,
		Content:         f.Content,
		ContentType:     f.ContentType,
		Checksum:        f.Checksum,
		SchemaHash:      f.SchemaHash,
		IsDraft:         f.IsDraft,
		IsActive:        f.IsActive,
		IsArchived:      f.IsArchived,
		CreatedAt:       f.CreatedAt,
	}
	if err := q.GORM(ctx).Create(g).Error; err != nil {
		return fmt.Errorf("create parameter file: %w", err)
	}
	return nil
}

// ActivateFile atomically deactivates every other ParameterFile
// sharing (configurationID, scopeTypeID, scopeValueID) and sets fileID
// active, inside a single transaction.
func ActivateFile[Q postgres.Queryer](ctx context.Context, q Q, configurationID, scopeTypeID, scopeValueID, fileID string) error {
	return q.GORM(ctx).Transaction(func(tx *gorm.DB) error {
		deactivate := tripleWhere(tx.Model(&gParameterFile{}), configurationID, scopeTypeID, scopeValueID)
		if err := deactivate.Where("is_active = true").Update("is_active", false).Error; err != nil {
			return fmt.Errorf("activate file: deactivate prior: %w", err)
		}
		tt := tx.Model(&gParameterFile{}).Where(
			"id = ? AND is_archived = false", fileID,
		).Updates(map[string]any{"is_active": true, "is_draft": false})
		if tt.Error != nil {
			return fmt.Errorf("activate file: %w", tt.Error)
		}
		if tt.RowsAffected == 0 {
			return cerr.Conflict(fmt.Errorf("parameter file %s cannot be activated", fileID))
		}
		return nil
	})
}

// ActiveFile loads the currently active ParameterFile for a triple, or
// nil if none is active.
func ActiveFile[Q postgres.Queryer](ctx context.Context, q Q, configurationID, scopeTypeID, scopeValueID string) (*model.ParameterFile, error) {
	var g gParameterFile
	err := tripleWhere(q.GORM(ctx), configurationID, scopeTypeID, scopeValueID).
		Where("is_active = true").First(&g).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("active file: %w", err)
	}
	return g.Model(), nil
}

// ArchiveFile marks a ParameterFile as archived; it must not be the
// currently active file.
func ArchiveFile[Q postgres.Queryer](ctx context.Context, q Q, fileID string) error {
	tt := q.GORM(ctx).Model(&gParameterFile{}).Where(
		"id = ? AND is_active = false", fileID,
	).Update("is_archived", true)
	if tt.Error != nil {
		return fmt.Errorf("archive file: %w", tt.Error)
	}
	if tt.RowsAffected == 0 {
		return cerr.Conflict(fmt.Errorf("parameter file %s is active or missing", fileID))
	}
	return nil
}

// Files lists every ParameterFile version for a triple, newest first.
func Files[Q postgres.Queryer](ctx context.Context, q Q, configurationID, scopeTypeID, scopeValueID string) ([]*model.ParameterFile, error) {
	var gs []gParameterFile
	err := tripleWhere(q.GORM(ctx), configurationID, scopeTypeID, scopeValueID).
		Order("created_at DESC").Find(&gs).Error
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	out := make([]*model.ParameterFile, len(gs))
	for i := range gs {
		out[i] = gs[i].Model()
	}
	return out, nil
}

// FilesByConfiguration lists every ParameterFile of a configuration
// across every scope triple, newest first, for retention scans that
// must group by triple in memory.
func FilesByConfiguration[Q postgres.Queryer](ctx context.Context, q Q, configurationID string) ([]*model.ParameterFile, error) {
	var gs []gParameterFile
	err := q.GORM(ctx).Where(
		"configuration_id = ?", configurationID,
	).Order("created_at DESC").Find(&gs).Error
	if err != nil {
		return nil, fmt.Errorf("files by configuration: %w", err)
	}
	out := make([]*model.ParameterFile, len(gs))
	for i := range gs {
		out[i] = gs[i].Model()
	}
	return out, nil
}

// DeleteFile removes a ParameterFile row. It is idempotent and refuses
// to delete the currently active file for its triple.
func DeleteFile[Q postgres.Queryer](ctx context.Context, q Q, fileID string) error {
	tt := q.GORM(ctx).Where("id = ? AND is_active = false", fileID).Delete(&gParameterFile{})
	if tt.Error != nil {
		return fmt.Errorf("delete file: %w", tt.Error)
	}
	return nil
}

// UpsertSchema returns the existing ParameterSchema row matching hash,
// or creates one from schemaJSON if none exists yet.
func UpsertSchema[Q postgres.Queryer](ctx context.Context, q Q, hash string, schemaJSON []byte) (*model.ParameterSchema, error) {
	g := &gParameterSchema{Hash: hash, Schema: schemaJSON}
	err := q.GORM(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(g).Error
	if err != nil {
		return nil, fmt.Errorf("upsert schema: %w", err)
	}
	return SchemaByHash(ctx, q, hash)
}

// SchemaByHash loads a ParameterSchema by hash.
func SchemaByHash[Q postgres.Queryer](ctx context.Context, q Q, hash string) (*model.ParameterSchema, error) {
	var g gParameterSchema
	err := q.GORM(ctx).Where("hash = ?", hash).First(&g).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, cerr.NotFound(fmt.Errorf("parameter schema %q not found", hash))
		}
		return nil, fmt.Errorf("schema by hash: %w", err)
	}
	return g.Model(), nil
}

// CollectUnreferencedSchemas deletes every ParameterSchema no longer
// referenced by any ParameterFile or ConfigurationVersion, returning
// the count removed.
func CollectUnreferencedSchemas[Q postgres.Queryer](ctx context.Context, q Q) (int64, error) {
	tt := q.GORM(ctx).Where(
		"hash NOT IN (SELECT schema_hash FROM parameter_files WHERE schema_hash <> '') " +
			"AND hash NOT IN (SELECT schema_hash FROM configuration_versions WHERE schema_hash <> '')",
	).Delete(&gParameterSchema{})
	if tt.Error != nil {
		return 0, fmt.Errorf("collect unreferenced schemas: %w", tt.Error)
	}
	return tt.RowsAffected, nil
}

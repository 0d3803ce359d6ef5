// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package configrp

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

type gConfiguration struct {
	ID              uuid.UUID `gorm:"primaryKey;type:uuid;column:id"`
	Name            string    `gorm:"uniqueIndex"`
	Description     string
	EntryPoint      string
	IsServerManaged bool
	CreatedAt       time.Time
}

func (gConfiguration) TableName() string { return "configurations" }

func (g *gConfiguration) Model() *model.Configuration {
	return &model.Configuration{
		ID:              g.ID.String(),
		Name:            g.Name,
		Description:     g.Description,
		EntryPoint:      g.EntryPoint,
		IsServerManaged: g.IsServerManaged,
		CreatedAt:       g.CreatedAt,
	}
}

type gConfigurationVersion struct {
	ID              uuid.UUID `gorm:"primaryKey;type:uuid;column:id"`
	ConfigurationID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_config_version"`
	Version         string    `gorm:"uniqueIndex:idx_config_version"`
	IsDraft         bool
	IsArchived      bool
	SchemaHash      string
	CreatedAt       time.Time
	CreatedBy       string
}

func (gConfigurationVersion) TableName() string { return "configuration_versions" }

func (g *gConfigurationVersion) Model() (*model.ConfigurationVersion, error) {
	v, err := model.ParseSemVer(g.Version)
	if err != nil {
		return nil, fmt.Errorf("stored version %q: %w", g.Version, err)
	}
	return &model.ConfigurationVersion{
		ID:              g.ID.String(),
		ConfigurationID: g.ConfigurationID.String(),
		Version:         v,
		IsDraft:         g.IsDraft,
		IsArchived:      g.IsArchived,
		SchemaHash:      g.SchemaHash,
		CreatedAt:       g.CreatedAt,
		CreatedBy:       g.CreatedBy,
	}, nil
}

type gConfigurationFile struct {
	ID        uuid.UUID `gorm:"primaryKey;type:uuid;column:id"`
	VersionID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_version_path"`
	Path      string    `gorm:"uniqueIndex:idx_version_path"`
	Content   []byte
	SHA256    string
}

func (gConfigurationFile) TableName() string { return "configuration_files" }

func (g *gConfigurationFile) Model() *model.ConfigurationFile {
	return &model.ConfigurationFile{
		ID:        g.ID.String(),
		VersionID: g.VersionID.String(),
		Path:      g.Path,
		Content:   g.Content,
		SHA256:    g.SHA256,
	}
}

// Create persists a new Configuration.
func Create[Q postgres.Queryer](ctx context.Context, q Q, c *model.Configuration) error {
	id, err := uuid.Parse(c.ID)
	if err != nil {
		id = uuid.New()
		c.ID = id.String()
	}
	gc := &gConfiguration{
		ID:              id,
		Name:            c.Name,
		Description:     c.Description,
		EntryPoint:      c.EntryPoint,
		IsServerManaged: c.IsServerManaged,
		CreatedAt:       c.CreatedAt,
	}
	if err := q.GORM(ctx).Create(gc).Error; err != nil {
		return fmt.Errorf("create configuration: %w", err)
	}
	return nil
}

// ByName loads a Configuration by its unique name.
func ByName[Q postgres.Queryer](ctx context.Context, q Q, name string) (*model.Configuration, error) {
	var gc gConfiguration
	err := q.GORM(ctx).Where("name = ?", name).First(&gc).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, cerr.NotFound(fmt.Errorf("configuration %q not found", name))
		}
		return nil, fmt.Errorf("by-name: %w", err)
	}
	return gc.Model(), nil
}

// ByID loads a Configuration by its ID.
func ByID[Q postgres.Queryer](ctx context.Context, q Q, id string) (*model.Configuration, error) {
	var gc gConfiguration
	err := q.GORM(ctx).Where("id = ?", id).First(&gc).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, cerr.NotFound(fmt.Errorf("configuration %s not found", id))
		}
		return nil, fmt.Errorf("by-id: %w", err)
	}
	return gc.Model(), nil
}

// List returns every Configuration, ordered by name.
func List[Q postgres.Queryer](ctx context.Context, q Q) ([]*model.Configuration, error) {
	var gcs []gConfiguration
	if err := q.GORM(ctx).Order("name").Find(&gcs).Error; err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	out := make([]*model.Configuration, len(gcs))
	for i := range gcs {
		out[i] = gcs[i].Model()
	}
	return out, nil
}

// Delete removes a Configuration, rejecting the attempt if any
// ConfigurationVersion is still assigned to it.
func Delete[Q postgres.Queryer](ctx context.Context, q Q, id string) error {
	var count int64
	if err := q.GORM(ctx).Model(&gConfigurationVersion{}).Where(
		"configuration_id = ?", id,
	).Count(&count).Error; err != nil {
		return fmt.Errorf("delete: check versions: %w", err)
	}
	if count > 0 {
		return cerr.Conflict(fmt.Errorf("configuration %s still has %d version(s)", id, count))
	}
	tt := q.GORM(ctx).Where("id = ?", id).Delete(&gConfiguration{})
	if tt.Error != nil {
		return fmt.Errorf("delete: %w", tt.Error)
	}
	if tt.RowsAffected == 0 {
		return cerr.NotFound(fmt.Errorf("configuration %s not found", id))
	}
	return nil
}

// CreateVersion persists a new ConfigurationVersion together with its
// files in a single all-or-nothing write.
func CreateVersion[Q postgres.Queryer](ctx context.Context, q Q, v *model.ConfigurationVersion, files []*model.ConfigurationFile) error {
	vid, err := uuid.Parse(v.ID)
	if err != nil {
		vid = uuid.New()
		v.ID = vid.String()
	}
	cid, err := uuid.Parse(v.ConfigurationID)
	if err != nil {
		return fmt.Errorf("invalid configuration id %q: %w", v.ConfigurationID, err)
	}
	gdb := q.GORM(ctx)
	gv := &gConfigurationVersion{
		ID:              vid,
		ConfigurationID: cid,
		Version:         v.Version.String(),
		IsDraft:         v.IsDraft,
		IsArchived:      v.IsArchived,
		SchemaHash:      v.SchemaHash,
		CreatedAt:       v.CreatedAt,
		CreatedBy:       v.CreatedBy,
	}
	if err := gdb.Create(gv).Error; err != nil {
		return fmt.Errorf("create configuration version: %w", err)
	}
	gfs := make([]gConfigurationFile, len(files))
	for i, f := range files {
		fid, err := uuid.Parse(f.ID)
		if err != nil {
			fid = uuid.New()
		}
		f.ID = fid.String()
		f.VersionID = v.ID
		gfs[i] = gConfigurationFile{
			ID:        fid,
			VersionID: vid,
			Path:      f.Path,
			Content:   f.Content,
			SHA256:    f.SHA256,
		}
	}
	if len(gfs) > 0 {
		if err := gdb.Create(&gfs).Error; err != nil {
			return fmt.Errorf("create configuration files: %w", err)
		}
	}
	return nil
}

// Version loads one ConfigurationVersion by configuration ID and
// SemVer.
func Version[Q postgres.Queryer](ctx context.Context, q Q, configurationID string, v model.SemVer) (*model.ConfigurationVersion, error) {
	var gv gConfigurationVersion
	err := q.GORM(ctx).Where(
		"configuration_id = ? AND version = ?", configurationID, v.String(),
	).First(&gv).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, cerr.NotFound(fmt.Errorf("version %s not found", v))
		}
		return nil, fmt.Errorf("version: %w", err)
	}
	return gv.Model()
}

// Versions lists every ConfigurationVersion of a Configuration.
func Versions[Q postgres.Queryer](ctx context.Context, q Q, configurationID string) ([]*model.ConfigurationVersion, error) {
	var gvs []gConfigurationVersion
	err := q.GORM(ctx).Where(
		"configuration_id = ?", configurationID,
	).Order("created_at").Find(&gvs).Error
	if err != nil {
		return nil, fmt.Errorf("versions: %w", err)
	}
	out := make([]*model.ConfigurationVersion, len(gvs))
	for i := range gvs {
		m, err := gvs[i].Model()
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}

// Publish flips a draft ConfigurationVersion to published.
func Publish[Q postgres.Queryer](ctx context.Context, q Q, versionID string) error {
	tt := q.GORM(ctx).Model(&gConfigurationVersion{}).Where(
		"id = ? AND is_draft = true AND is_archived = false", versionID,
	).Update("is_draft", false)
	if tt.Error != nil {
		return fmt.Errorf("publish: %w", tt.Error)
	}
	if tt.RowsAffected == 0 {
		return cerr.Conflict(fmt.Errorf("version %s is not a publishable draft", versionID))
	}
	return nil
}

// ArchiveVersion marks a ConfigurationVersion as archived, rejecting
// versions still referenced by a NodeConfiguration's pinned version.
func ArchiveVersion[Q postgres.Queryer](ctx context.Context, q Q, versionID string) error {
	var gv gConfigurationVersion
	err := q.GORM(ctx).Where("id = ?", versionID).First(&gv).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return cerr.NotFound(fmt.Errorf("version %s not found", versionID))
		}
		return fmt.Errorf("archive: load: %w", err)
	}
	var count int64
	err = q.GORM(ctx).Table("node_configurations").Where(
		"configuration_id = ? AND pinned_version = ?", gv.ConfigurationID, gv.Version,
	).Count(&count).Error
	if err != nil {
		return fmt.Errorf("archive: check in-use: %w", err)
	}
	if count > 0 {
		return cerr.Conflict(fmt.Errorf("version %s is pinned by %d node(s)", versionID, count))
	}
	tt := q.GORM(ctx).Model(&gConfigurationVersion{}).Where(
		"id = ?", versionID,
	).Update("is_archived", true)
	if tt.Error != nil {
		return fmt.Errorf("archive: %w", tt.Error)
	}
	if tt.RowsAffected == 0 {
		return cerr.NotFound(fmt.Errorf("version %s not found", versionID))
	}
	return nil
}

// VersionInUse reports whether a ConfigurationVersion is directly
// pinned by any NodeConfiguration or CompositeConfigurationItem. An
// unpinned reference that merely tracks the latest published version
// does not count, matching ArchiveVersion's in-use check.
func VersionInUse[Q postgres.Queryer](ctx context.Context, q Q, versionID string) (bool, error) {
	var gv gConfigurationVersion
	err := q.GORM(ctx).Where("id = ?", versionID).First(&gv).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, fmt.Errorf("version-in-use: load: %w", err)
	}
	gdb := q.GORM(ctx)
	var ncCount, ciCount int64
	if err := gdb.Table("node_configurations").Where(
		"configuration_id = ? AND pinned_version = ?", gv.ConfigurationID, gv.Version,
	).Count(&ncCount).Error; err != nil {
		return false, fmt.Errorf("version-in-use: node configurations: %w", err)
	}
	if err := gdb.Table("composite_configuration_items").Where(
		"configuration_id = ? AND pinned_version = ?", gv.ConfigurationID, gv.Version,
	).Count(&ciCount).Error; err != nil {
		return false, fmt.Errorf("version-in-use: composite items: %w", err)
	}
	return ncCount > 0 || ciCount > 0, nil
}

// DeleteVersion removes a ConfigurationVersion and its files. It is
// idempotent: deleting an already-removed version succeeds silently.
func DeleteVersion[Q postgres.Queryer](ctx context.Context, q Q, versionID string) error {
	gdb := q.GORM(ctx)
	if err := gdb.Where("version_id = ?", versionID).Delete(&gConfigurationFile{}).Error; err != nil {
		return fmt.Errorf("delete-version: files: %w", err)
	}
	if err := gdb.Where("id = ?", versionID).Delete(&gConfigurationVersion{}).Error; err != nil {
		return fmt.Errorf("delete-version: %w", err)
	}
	return nil
}

// Files lists the ConfigurationFile rows of one version, ordered by
// path.
func Files[Q postgres.Queryer](ctx context.Context, q Q, versionID string) ([]*model.ConfigurationFile, error) {
	var gfs []gConfigurationFile
	err := q.GORM(ctx).Where("version_id = ?", versionID).Order("path").Find(&gfs).Error
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	out := make([]*model.ConfigurationFile, len(gfs))
	for i := range gfs {
		out[i] = gfs[i].Model()
	}
	return out, nil
}

// InUse reports whether configurationID is referenced by any
// NodeConfiguration or CompositeConfigurationItem.
func InUse[Q postgres.Queryer](ctx context.Context, q Q, configurationID string) (bool, error) {
	gdb := q.GORM(ctx)
	var ncCount, ciCount int64
	if err := gdb.Table("node_configurations").Where(
		"configuration_id = ?", configurationID,
	).Count(&ncCount).Error; err != nil {
		return false, fmt.Errorf("in-use: node configurations: %w", err)
	}
	if err := gdb.Table("composite_configuration_items").Where(
		"configuration_id = ?", configurationID,
	).Count(&ciCount).Error; err != nil {
		return false, fmt.Errorf("in-use: composite items: %w", err)
	}
	return ncCount > 0 || ciCount > 0, nil
}

var _ = clause.Returning{} // kept available for future RETURNING-based updates

// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package compositerp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opendsc/opendsc/pkg/adapter/db/postgres"
	"github.com/opendsc/opendsc/pkg/core/cerr"
	"github.com/opendsc/opendsc/pkg/core/model"
	"gorm.io/gorm"
)

type gComposite struct {
	ID          uuid.UUID `gorm:"primaryKey;type:uuid;column:id"`
	Name        string    `gorm:"uniqueIndex"`
	EntryPoint  string
	Description string
	CreatedAt   time.Time
}

func (gComposite) TableName() string { return "composite_configurations" }

func (g *gComposite) Model() *model.CompositeConfiguration {
	return &model.CompositeConfiguration{
		ID:          g.ID.String(),
		Name:        g.Name,
		EntryPoint:  g.EntryPoint,
		Description: g.Description,
		CreatedAt:   g.CreatedAt,
	}
}

type gCompositeVersion struct {
	ID          uuid.UUID `gorm:"primaryKey;type:uuid;column:id"`
	CompositeID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_composite_version"`
	Version     string    `gorm:"uniqueIndex:idx_composite_version"`
	IsDraft     bool
	IsArchived  bool
	CreatedAt   time.Time
	CreatedBy   string
}

func (gCompositeVersion) TableName() string { return "composite_configuration_versions" }

type gCompositeItem struct {
	ID              uuid.UUID `gorm:"primaryKey;type:uuid;column:id"`
	VersionID       uuid.UUID `gorm:"type:uuid;index"`
	ConfigurationID uuid.UUID `gorm:"type:uuid"`
	PinnedVersion   string    // empty means "track latest published"
	Order           int
}

func (gCompositeItem) TableName() string { return "composite_configuration_items" }

func (g *gCompositeItem) Model() (model.CompositeConfigurationItem, error) {
	item := model.CompositeConfigurationItem{
		ID:              g.ID.String(),
		VersionID:       g.VersionID.String(),
		ConfigurationID: g.ConfigurationID.String(),
		Order:           g.Order,
	}
	if g.PinnedVersion != "" {
		v, err := model.ParseSemVer(g.PinnedVersion)
		if err != nil {
			return item, fmt.Errorf("stored pinned version %q: %w", g.PinnedVersion, err)
		}
		item.PinnedVersion = &v
	}
	return item, nil
}

// Create persists a new CompositeConfiguration.
func Create[Q postgres.Queryer](ctx context.Context, q Q, c *model.CompositeConfiguration) error {
	id, err := uuid.Parse(c.ID)
	if err != nil {
		id = uuid.New()
		c.ID = id.String()
	}
	gc := &gComposite{
		ID:          id,
		Name:        c.Name,
		EntryPoint:  c.EntryPoint,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
	}
	if err := q.GORM(ctx).Create(gc).Error; err != nil {
		return fmt.Errorf("create composite configuration: %w", err)
	}
	return nil
}

// ByName loads a CompositeConfiguration by its unique name.
func ByName[Q postgres.Queryer](ctx context.Context, q Q, name string) (*model.CompositeConfiguration, error) {
	var gc gComposite
	err := q.GORM(ctx).Where("name = ?", name).First(&gc).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, cerr.NotFound(fmt.Errorf("composite configuration %q not found", name))
		}
		return nil, fmt.Errorf("by-name: %w", err)
	}
	return gc.Model(), nil
}

// ByID loads a CompositeConfiguration by its ID.
func ByID[Q postgres.Queryer](ctx context.Context, q Q, id string) (*model.CompositeConfiguration, error) {
	var gc gComposite
	err := q.GORM(ctx).Where("id = ?", id).First(&gc).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, cerr.NotFound(fmt.Errorf("composite configuration %s not found", id))
		}
		return nil, fmt.Errorf("by-id: %w", err)
	}
	return gc.Model(), nil
}

// List returns every CompositeConfiguration, ordered by name.
func List[Q postgres.Queryer](ctx context.Context, q Q) ([]*model.CompositeConfiguration, error) {
	var gcs []gComposite
	if err := q.GORM(ctx).Order("name").Find(&gcs).Error; err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	out := make([]*model.CompositeConfiguration, len(gcs))
	for i := range gcs {
		out[i] = gcs[i].Model()
	}
	return out, nil
}

// Delete removes a CompositeConfiguration, rejecting the attempt if
// any CompositeConfigurationVersion is still assigned to it.
func Delete[Q postgres.Queryer](ctx context.Context, q Q, id string) error {
	var count int64
	if err := q.GORM(ctx).Model(&gCompositeVersion{}).Where(
		"composite_id = ?", id,
	).Count(&count).Error; err != nil {
		return fmt.Errorf("delete: check versions: %w", err)
	}
	if count > 0 {
		return cerr.Conflict(fmt.Errorf("composite configuration %s still has %d version(s)", id, count))
	}
	tt := q.GORM(ctx).Where("id = ?", id).Delete(&gComposite{})
	if tt.Error != nil {
		return fmt.Errorf("delete: %w", tt.Error)
	}
	if tt.RowsAffected == 0 {
		return cerr.NotFound(fmt.Errorf("composite configuration %s not found", id))
	}
	return nil
}

// CreateVersion persists a new CompositeConfigurationVersion together
// with its ordered item list in a single all-or-nothing write.
func CreateVersion[Q postgres.Queryer](ctx context.Context, q Q, v *model.CompositeConfigurationVersion) error {
	vid, err := uuid.Parse(v.ID)
	if err != nil {
		vid = uuid.New()
		v.ID = vid.String()
	}
	cid, err := uuid.Parse(v.CompositeID)
	if err != nil {
		return fmt.Errorf("invalid composite id %q: %w", v.CompositeID, err)
	}
	gdb := q.GORM(ctx)
	gv := &gCompositeVersion{
		ID:          vid,
		CompositeID: cid,
		Version:     v.Version.String(),
		IsDraft:     v.IsDraft,
		IsArchived:  v.IsArchived,
		CreatedAt:   v.CreatedAt,
		CreatedBy:   v.CreatedBy,
	}
	if err := gdb.Create(gv).Error; err != nil {
		return fmt.Errorf("create composite configuration version: %w", err)
	}
	gis := make([]gCompositeItem, len(v.Items))
	for i, item := range v.Items {
		iid, err := uuid.Parse(item.ID)
		if err != nil {
			iid = uuid.New()
		}
		configID, err := uuid.Parse(item.ConfigurationID)
		if err != nil {
			return fmt.Errorf("invalid configuration id %q: %w", item.ConfigurationID, err)
		}
		var pinned string
		if item.PinnedVersion != nil {
			pinned = item.PinnedVersion.String()
		}
		gis[i] = gCompositeItem{
			ID:              iid,
			VersionID:       vid,
			ConfigurationID: configID,
			PinnedVersion:   pinned,
			Order:           item.Order,
		}
	}
	if len(gis) > 0 {
		if err := gdb.Create(&gis).Error; err != nil {
			return fmt.Errorf("create composite configuration items: %w", err)
		}
	}
	return nil
}

func loadItems[Q postgres.Queryer](ctx context.Context, q Q, versionID uuid.UUID) ([]model.CompositeConfigurationItem, error) {
	var gis []gCompositeItem
	err := q.GORM(ctx).Where("version_id = ?", versionID).Order(`"order"`).Find(&gis).Error
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	items := make([]model.CompositeConfigurationItem, len(gis))
	for i := range gis {
		item, err := gis[i].Model()
		if err != nil {
			return nil, err
		}
		items[i] = item
	}
	return items, nil
}

func (g *gCompositeVersion) model(items []model.CompositeConfigurationItem) (*model.CompositeConfigurationVersion, error) {
	v, err := model.ParseSemVer(g.Version)
	if err != nil {
		return nil, fmt.Errorf("stored version %q: %w", g.Version, err)
	}
	return &model.CompositeConfigurationVersion{
		ID:          g.ID.String(),
		CompositeID: g.CompositeID.String(),
		Version:     v,
		IsDraft:     g.IsDraft,
		IsArchived:  g.IsArchived,
		Items:       items,
		CreatedAt:   g.CreatedAt,
		CreatedBy:   g.CreatedBy,
	}, nil
}

// Version loads one CompositeConfigurationVersion, with its items
// ordered ascending, by composite ID and SemVer.
func Version[Q postgres.Queryer](ctx context.Context, q Q, compositeID string, v model.SemVer) (*model.CompositeConfigurationVersion, error) {
	var gv gCompositeVersion
	err := q.GORM(ctx).Where(
		"composite_id = ? AND version = ?", compositeID, v.String(),
	).First(&gv).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, cerr.NotFound(fmt.Errorf("version %s not found", v))
		}
		return nil, fmt.Errorf("version: %w", err)
	}
	items, err := loadItems(ctx, q, gv.ID)
	if err != nil {
		return nil, err
	}
	return gv.model(items)
}

// Versions lists every CompositeConfigurationVersion of a
// CompositeConfiguration, with items loaded.
func Versions[Q postgres.Queryer](ctx context.Context, q Q, compositeID string) ([]*model.CompositeConfigurationVersion, error) {
	var gvs []gCompositeVersion
	err := q.GORM(ctx).Where(
		"composite_id = ?", compositeID,
	).Order("created_at").Find(&gvs).Error
	if err != nil {
		return nil, fmt.Errorf("versions: %w", err)
	}
	out := make([]*model.CompositeConfigurationVersion, len(gvs))
	for i := range gvs {
		items, err := loadItems(ctx, q, gvs[i].ID)
		if err != nil {
			return nil, err
		}
		m, err := gvs[i].model(items)
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}

// Publish flips a draft CompositeConfigurationVersion to published.
func Publish[Q postgres.Queryer](ctx context.Context, q Q, versionID string) error {
	tt := q.GORM(ctx).Model(&gCompositeVersion{}).Where(
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

// ArchiveVersion marks a CompositeConfigurationVersion as archived.
func ArchiveVersion[Q postgres.Queryer](ctx context.Context, q Q, versionID string) error {
	var gv gCompositeVersion
	err := q.GORM(ctx).Where("id = ?", versionID).First(&gv).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return cerr.NotFound(fmt.Errorf("version %s not found", versionID))
		}
		return fmt.Errorf("archive: load: %w", err)
	}
	var count int64
	err = q.GORM(ctx).Table("node_configurations").Where(
		"composite_configuration_id = ? AND pinned_version = ?", gv.CompositeID, gv.Version,
	).Count(&count).Error
	if err != nil {
		return fmt.Errorf("archive: check in-use: %w", err)
	}
	if count > 0 {
		return cerr.Conflict(fmt.Errorf("version %s is pinned by %d node(s)", versionID, count))
	}
	tt := q.GORM(ctx).Model(&gCompositeVersion{}).Where(
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

// VersionInUse reports whether a CompositeConfigurationVersion is
// directly pinned by any NodeConfiguration. An unpinned reference that
// merely tracks the latest published version does not count, matching
// ArchiveVersion's in-use check.
func VersionInUse[Q postgres.Queryer](ctx context.Context, q Q, versionID string) (bool, error) {
	var gv gCompositeVersion
	err := q.GORM(ctx).Where("id = ?", versionID).First(&gv).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, fmt.Errorf("version-in-use: load: %w", err)
	}
	var count int64
	err = q.GORM(ctx).Table("node_configurations").Where(
		"composite_configuration_id = ? AND pinned_version = ?", gv.CompositeID, gv.Version,
	).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("version-in-use: %w", err)
	}
	return count > 0, nil
}

// DeleteVersion removes a CompositeConfigurationVersion and its items.
// It is idempotent: deleting an already-removed version succeeds
// silently.
func DeleteVersion[Q postgres.Queryer](ctx context.Context, q Q, versionID string) error {
	gdb := q.GORM(ctx)
	if err := gdb.Where("version_id = ?", versionID).Delete(&gCompositeItem{}).Error; err != nil {
		return fmt.Errorf("delete-version: items: %w", err)
	}
	if err := gdb.Where("id = ?", versionID).Delete(&gCompositeVersion{}).Error; err != nil {
		return fmt.Errorf("delete-version: %w", err)
	}
	return nil
}

// InUse reports whether compositeID is referenced by any
// NodeConfiguration.
func InUse[Q postgres.Queryer](ctx context.Context, q Q, compositeID string) (bool, error) {
	var count int64
	err := q.GORM(ctx).Table("node_configurations").Where(
		"composite_configuration_id = ?", compositeID,
	).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("in-use: %w", err)
	}
	return count > 0, nil
}

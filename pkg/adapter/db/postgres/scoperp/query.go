// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package scoperp

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/opendsc/opendsc/pkg/adapter/db/postgres"
	"github.com/opendsc/opendsc/pkg/core/cerr"
	"github.com/opendsc/opendsc/pkg/core/model"
	"gorm.io/gorm"
)

type gScopeType struct {
	ID          uuid.UUID `gorm:"primaryKey;type:uuid;column:id"`
	Name        string    `gorm:"uniqueIndex"`
	Precedence  int       `gorm:"uniqueIndex"`
	AllowValues bool
	IsSystem    bool
}

func (gScopeType) TableName() string { return "scope_types" }

func (g *gScopeType) Model() *model.ScopeType {
	return &model.ScopeType{
		ID:          g.ID.String(),
		Name:        g.Name,
		Precedence:  g.Precedence,
		AllowValues: g.AllowValues,
		IsSystem:    g.IsSystem,
	}
}

type gScopeValue struct {
	ID          uuid.UUID `gorm:"primaryKey;type:uuid;column:id"`
	ScopeTypeID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_scope_value"`
	Value       string    `gorm:"uniqueIndex:idx_scope_value"`
}

func (gScopeValue) TableName() string { return "scope_values" }

func (g *gScopeValue) Model() *model.ScopeValue {
	return &model.ScopeValue{
		ID:          g.ID.String(),
		ScopeTypeID: g.ScopeTypeID.String(),
		Value:       g.Value,
	}
}

// CreateType persists a new ScopeType.
func CreateType[Q postgres.Queryer](ctx context.Context, q Q, st *model.ScopeType) error {
	id, err := uuid.Parse(st.ID)
	if err != nil {
		id = uuid.New()
		st.ID = id.String()
	}
	g := &gScopeType{
		ID:          id,
		Name:        st.Name,
		Precedence:  st.Precedence,
		AllowValues: st.AllowValues,
		IsSystem:    st.IsSystem,
	}
	if err := q.GORM(ctx).Create(g).Error; err != nil {
		return fmt.Errorf("create scope type: %w", err)
	}
	return nil
}

// Types lists every ScopeType ordered by Precedence ascending.
func Types[Q postgres.Queryer](ctx context.Context, q Q) ([]*model.ScopeType, error) {
	var gs []gScopeType
	if err := q.GORM(ctx).Order("precedence").Find(&gs).Error; err != nil {
		return nil, fmt.Errorf("types: %w", err)
	}
	out := make([]*model.ScopeType, len(gs))
	for i := range gs {
		out[i] = gs[i].Model()
	}
	return out, nil
}

// TypeByName loads a ScopeType by its unique name.
func TypeByName[Q postgres.Queryer](ctx context.Context, q Q, name string) (*model.ScopeType, error) {
	var g gScopeType
	err := q.GORM(ctx).Where("name = ?", name).First(&g).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, cerr.NotFound(fmt.Errorf("scope type %q not found", name))
		}
		return nil, fmt.Errorf("type-by-name: %w", err)
	}
	return g.Model(), nil
}

// UpdateTypePrecedence moves a ScopeType to a new Precedence slot.
func UpdateTypePrecedence[Q postgres.Queryer](ctx context.Context, q Q, id string, precedence int) error {
	tt := q.GORM(ctx).Model(&gScopeType{}).Where("id = ?", id).Update("precedence", precedence)
	if tt.Error != nil {
		return fmt.Errorf("update type precedence: %w", tt.Error)
	}
	if tt.RowsAffected == 0 {
		return cerr.NotFound(fmt.Errorf("scope type %s not found", id))
	}
	return nil
}

// DeleteType removes a non-system ScopeType, rejecting one still
// referenced by a ScopeValue, NodeTag, or ParameterFile.
func DeleteType[Q postgres.Queryer](ctx context.Context, q Q, id string) error {
	gdb := q.GORM(ctx)
	var g gScopeType
	if err := gdb.Where("id = ?", id).First(&g).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return cerr.NotFound(fmt.Errorf("scope type %s not found", id))
		}
		return fmt.Errorf("delete type: load: %w", err)
	}
	if g.IsSystem {
		return cerr.Conflict(fmt.Errorf("scope type %q is a system type and cannot be deleted", g.Name))
	}
	var valueCount, tagCount, paramCount int64
	if err := gdb.Model(&gScopeValue{}).Where("scope_type_id = ?", id).Count(&valueCount).Error; err != nil {
		return fmt.Errorf("delete type: check values: %w", err)
	}
	if err := gdb.Table("node_tags").Where("scope_value_id IN (SELECT id FROM scope_values WHERE scope_type_id = ?)", id).Count(&tagCount).Error; err != nil {
		return fmt.Errorf("delete type: check node tags: %w", err)
	}
	if err := gdb.Table("parameter_files").Where("scope_type_id = ?", id).Count(&paramCount).Error; err != nil {
		return fmt.Errorf("delete type: check parameter files: %w", err)
	}
	if valueCount+tagCount+paramCount > 0 {
		return cerr.Conflict(fmt.Errorf("scope type %q is still referenced", g.Name))
	}
	if err := gdb.Delete(&gScopeType{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete type: %w", err)
	}
	return nil
}

// CreateValue persists a new ScopeValue.
func CreateValue[Q postgres.Queryer](ctx context.Context, q Q, sv *model.ScopeValue) error {
	id, err := uuid.Parse(sv.ID)
	if err != nil {
		id = uuid.New()
		sv.ID = id.String()
	}
	typeID, err := uuid.Parse(sv.ScopeTypeID)
	if err != nil {
		return fmt.Errorf("invalid scope type id %q: %w", sv.ScopeTypeID, err)
	}
	g := &gScopeValue{ID: id, ScopeTypeID: typeID, Value: sv.Value}
	if err := q.GORM(ctx).Create(g).Error; err != nil {
		return fmt.Errorf("create scope value: %w", err)
	}
	return nil
}

// Values lists every ScopeValue of a ScopeType, ordered by value.
func Values[Q postgres.Queryer](ctx context.Context, q Q, scopeTypeID string) ([]*model.ScopeValue, error) {
	var gs []gScopeValue
	err := q.GORM(ctx).Where("scope_type_id = ?", scopeTypeID).Order("value").Find(&gs).Error
	if err != nil {
		return nil, fmt.Errorf("values: %w", err)
	}
	out := make([]*model.ScopeValue, len(gs))
	for i := range gs {
		out[i] = gs[i].Model()
	}
	return out, nil
}

// ValueByID loads a ScopeValue by ID, along with its parent ScopeType.
func ValueByID[Q postgres.Queryer](ctx context.Context, q Q, id string) (*model.ScopeValue, *model.ScopeType, error) {
	var gv gScopeValue
	if err := q.GORM(ctx).Where("id = ?", id).First(&gv).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, cerr.NotFound(fmt.Errorf("scope value %s not found", id))
		}
		return nil, nil, fmt.Errorf("value by id: %w", err)
	}
	var gt gScopeType
	if err := q.GORM(ctx).Where("id = ?", gv.ScopeTypeID).First(&gt).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, cerr.NotFound(fmt.Errorf("scope type %s not found", gv.ScopeTypeID))
		}
		return nil, nil, fmt.Errorf("value by id: load type: %w", err)
	}
	return gv.Model(), gt.Model(), nil
}

// DeleteValue removes a ScopeValue, rejecting one still referenced by
// a NodeTag or ParameterFile.
func DeleteValue[Q postgres.Queryer](ctx context.Context, q Q, id string) error {
	gdb := q.GORM(ctx)
	var tagCount, paramCount int64
	if err := gdb.Table("node_tags").Where("scope_value_id = ?", id).Count(&tagCount).Error; err != nil {
		return fmt.Errorf("delete value: check node tags: %w", err)
	}
	if err := gdb.Table("parameter_files").Where("scope_value_id = ?", id).Count(&paramCount).Error; err != nil {
		return fmt.Errorf("delete value: check parameter files: %w", err)
	}
	if tagCount+paramCount > 0 {
		return cerr.Conflict(fmt.Errorf("scope value %s is still referenced", id))
	}
	tt := gdb.Delete(&gScopeValue{}, "id = ?", id)
	if tt.Error != nil {
		return fmt.Errorf("delete value: %w", tt.Error)
	}
	if tt.RowsAffected == 0 {
		return cerr.NotFound(fmt.Errorf("scope value %s not found", id))
	}
	return nil
}

// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package authzrp

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/opendsc/opendsc/pkg/adapter/db/postgres"
	"github.com/opendsc/opendsc/pkg/core/cerr"
	"github.com/opendsc/opendsc/pkg/core/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gUser struct {
	ID           uuid.UUID `gorm:"primaryKey;type:uuid;column:id"`
	Username     string    `gorm:"uniqueIndex"`
	RolesCSV     string
	GroupIDsCSV  string
}

func (gUser) TableName() string { return "users" }

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func joinCSV(items []string) string {
	return strings.Join(items, ",")
}

func (g *gUser) Model() *model.User {
	return &model.User{
		ID:       g.ID.String(),
		Username: g.Username,
		Roles:    splitCSV(g.RolesCSV),
		GroupIDs: splitCSV(g.GroupIDsCSV),
	}
}

type gGroup struct {
	ID       uuid.UUID `gorm:"primaryKey;type:uuid;column:id"`
	Name     string    `gorm:"uniqueIndex"`
	RolesCSV string
}

func (gGroup) TableName() string { return "groups" }

func (g *gGroup) Model() *model.Group {
	return &model.Group{ID: g.ID.String(), Name: g.Name, Roles: splitCSV(g.RolesCSV)}
}

type gRole struct {
	Name          string `gorm:"primaryKey;column:name"`
	PermissionsCSV string
}

func (gRole) TableName() string { return "roles" }

func (g *gRole) Model() *model.Role {
	return &model.Role{Name: g.Name, Permissions: splitCSV(g.PermissionsCSV)}
}

type gACLEntry struct {
	ID            uuid.UUID `gorm:"primaryKey;type:uuid;column:id"`
	PrincipalID   string    `gorm:"uniqueIndex:idx_acl_lookup"`
	PrincipalType string
	ResourceKind  string `gorm:"uniqueIndex:idx_acl_lookup"`
	ResourceID    string `gorm:"uniqueIndex:idx_acl_lookup"`
	Level         int
}

func (gACLEntry) TableName() string { return "acl_entries" }

func (g *gACLEntry) Model() *model.ACLEntry {
	return &model.ACLEntry{
		ID:            g.ID.String(),
		PrincipalID:   g.PrincipalID,
		PrincipalType: model.PrincipalType(g.PrincipalType),
		ResourceKind:  model.ResourceKind(g.ResourceKind),
		ResourceID:    g.ResourceID,
		Level:         model.AccessLevel(g.Level),
	}
}

// UserByID loads a User by ID.
func UserByID[Q postgres.Queryer](ctx context.Context, q Q, id string) (*model.User, error) {
	var g gUser
	err := q.GORM(ctx).Where("id = ?", id).First(&g).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, cerr.NotFound(fmt.Errorf("user %s not found", id))
		}
		return nil, fmt.Errorf("user by id: %w", err)
	}
	return g.Model(), nil
}

// UserByUsername loads a User by its unique username.
func UserByUsername[Q postgres.Queryer](ctx context.Context, q Q, username string) (*model.User, error) {
	var g gUser
	err := q.GORM(ctx).Where("username = ?", username).First(&g).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, cerr.NotFound(fmt.Errorf("user %q not found", username))
		}
		return nil, fmt.Errorf("user by username: %w", err)
	}
	return g.Model(), nil
}

// Roles loads every Role, keyed by name.
func Roles[Q postgres.Queryer](ctx context.Context, q Q) (map[string]*model.Role, error) {
	var gs []gRole
	if err := q.GORM(ctx).Find(&gs).Error; err != nil {
		return nil, fmt.Errorf("roles: %w", err)
	}
	out := make(map[string]*model.Role, len(gs))
	for i := range gs {
		out[gs[i].Name] = gs[i].Model()
	}
	return out, nil
}

// Groups loads every Group, keyed by ID.
func Groups[Q postgres.Queryer](ctx context.Context, q Q) (map[string]*model.Group, error) {
	var gs []gGroup
	if err := q.GORM(ctx).Find(&gs).Error; err != nil {
		return nil, fmt.Errorf("groups: %w", err)
	}
	out := make(map[string]*model.Group, len(gs))
	for i := range gs {
		m := gs[i].Model()
		out[m.ID] = m
	}
	return out, nil
}

// ACLEntriesFor loads every ACLEntry applicable to (kind, resourceID)
// for the given user or any of its groups.
func ACLEntriesFor[Q postgres.Queryer](ctx context.Context, q Q, kind model.ResourceKind, resourceID, userID string, groupIDs []string) ([]*model.ACLEntry, error) {
	principals := append([]string{userID}, groupIDs...)
	var gs []gACLEntry
	err := q.GORM(ctx).Where(
		"resource_kind = ? AND resource_id = ? AND principal_id IN ?", string(kind), resourceID, principals,
	).Find(&gs).Error
	if err != nil {
		return nil, fmt.Errorf("acl entries: %w", err)
	}
	out := make([]*model.ACLEntry, len(gs))
	for i := range gs {
		out[i] = gs[i].Model()
	}
	return out, nil
}

// GrantACL creates or updates (idempotently) one ACLEntry. Re-granting
// the same (principal, resource) pair updates the Level in place
// rather than creating a duplicate row.
func GrantACL[Q postgres.Queryer](ctx context.Context, q Q, e *model.ACLEntry) error {
	id, err := uuid.Parse(e.ID)
	if err != nil {
		id = uuid.New()
		e.ID = id.String()
	}
	g := &gACLEntry{
		ID:            id,
		PrincipalID:   e.PrincipalID,
		PrincipalType: string(e.PrincipalType),
		ResourceKind:  string(e.ResourceKind),
		ResourceID:    e.ResourceID,
		Level:         int(e.Level),
	}
	err = q.GORM(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "principal_id"}, {Name: "resource_kind"}, {Name: "resource_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"level"}),
	}).Create(g).Error
	if err != nil {
		return fmt.Errorf("grant acl: %w", err)
	}
	return nil
}

// RevokeACL removes one ACLEntry by ID.
func RevokeACL[Q postgres.Queryer](ctx context.Context, q Q, id string) error {
	tt := q.GORM(ctx).Delete(&gACLEntry{}, "id = ?", id)
	if tt.Error != nil {
		return fmt.Errorf("revoke acl: %w", tt.Error)
	}
	if tt.RowsAffected == 0 {
		return cerr.NotFound(fmt.Errorf("acl entry %s not found", id))
	}
	return nil
}

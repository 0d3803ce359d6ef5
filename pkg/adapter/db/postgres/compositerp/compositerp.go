// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package compositerp is the adapter for the CompositeConfigurations
// repository.
package compositerp

import (
	"context"

	"github.com/opendsc/opendsc/pkg/adapter/db/postgres"
	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/core/repo"
)

// Repo represents the CompositeConfigurations repository instance.
type Repo struct{}

// New instantiates a CompositeConfigurations Repo.
func New() *Repo {
	return &Repo{}
}

// Models returns the gorm models backing this repository, for use with
// postgres.Pool.AutoMigrate.
func Models() []any {
	return []any{&gComposite{}, &gCompositeVersion{}, &gCompositeItem{}}
}

type connQueryer struct {
	*postgres.Conn
}

// Conn takes a Conn interface instance, unwraps it, and returns a
// CompositesConnQueryer able to run connection-scoped operations.
func (r *Repo) Conn(c repo.Conn) repo.CompositesConnQueryer {
	return connQueryer{Conn: c.(*postgres.Conn)}
}

type txQueryer struct {
	*postgres.Tx
}

// Tx takes a Tx interface instance, unwraps it, and returns a
// CompositesTxQueryer able to run transaction-scoped operations.
func (r *Repo) Tx(tx repo.Tx) repo.CompositesTxQueryer {
	return txQueryer{Tx: tx.(*postgres.Tx)}
}

func (q connQueryer) Create(ctx context.Context, c *model.CompositeConfiguration) error {
	return Create(ctx, q.Conn, c)
}

func (q connQueryer) ByName(ctx context.Context, name string) (*model.CompositeConfiguration, error) {
	return ByName(ctx, q.Conn, name)
}

func (q connQueryer) ByID(ctx context.Context, id string) (*model.CompositeConfiguration, error) {
	return ByID(ctx, q.Conn, id)
}

func (q connQueryer) List(ctx context.Context) ([]*model.CompositeConfiguration, error) {
	return List(ctx, q.Conn)
}

func (q connQueryer) Delete(ctx context.Context, id string) error {
	return Delete(ctx, q.Conn, id)
}

func (q connQueryer) CreateVersion(ctx context.Context, v *model.CompositeConfigurationVersion) error {
	return CreateVersion(ctx, q.Conn, v)
}

func (q connQueryer) Version(ctx context.Context, compositeID string, v model.SemVer) (*model.CompositeConfigurationVersion, error) {
	return Version(ctx, q.Conn, compositeID, v)
}

func (q connQueryer) Versions(ctx context.Context, compositeID string) ([]*model.CompositeConfigurationVersion, error) {
	return Versions(ctx, q.Conn, compositeID)
}

func (q connQueryer) Publish(ctx context.Context, versionID string) error {
	return Publish(ctx, q.Conn, versionID)
}

func (q connQueryer) ArchiveVersion(ctx context.Context, versionID string) error {
	return ArchiveVersion(ctx, q.Conn, versionID)
}

func (q connQueryer) InUse(ctx context.Context, compositeID string) (bool, error) {
	return InUse(ctx, q.Conn, compositeID)
}

func (q connQueryer) VersionInUse(ctx context.Context, versionID string) (bool, error) {
	return VersionInUse(ctx, q.Conn, versionID)
}

func (q connQueryer) DeleteVersion(ctx context.Context, versionID string) error {
	return DeleteVersion(ctx, q.Conn, versionID)
}

func (q txQueryer) Create(ctx context.Context, c *model.CompositeConfiguration) error {
	return Create(ctx, q.Tx, c)
}

func (q txQueryer) ByName(ctx context.Context, name string) (*model.CompositeConfiguration, error) {
	return ByName(ctx, q.Tx, name)
}

func (q txQueryer) ByID(ctx context.Context, id string) (*model.CompositeConfiguration, error) {
	return ByID(ctx, q.Tx, id)
}

func (q txQueryer) List(ctx context.Context) ([]*model.CompositeConfiguration, error) {
	return List(ctx, q.Tx)
}

func (q txQueryer) Delete(ctx context.Context, id string) error {
	return Delete(ctx, q.Tx, id)
}

func (q txQueryer) CreateVersion(ctx context.Context, v *model.CompositeConfigurationVersion) error {
	return CreateVersion(ctx, q.Tx, v)
}

func (q txQueryer) Version(ctx context.Context, compositeID string, v model.SemVer) (*model.CompositeConfigurationVersion, error) {
	return Version(ctx, q.Tx, compositeID, v)
}

func (q txQueryer) Versions(ctx context.Context, compositeID string) ([]*model.CompositeConfigurationVersion, error) {
	return Versions(ctx, q.Tx, compositeID)
}

func (q txQueryer) Publish(ctx context.Context, versionID string) error {
	return Publish(ctx, q.Tx, versionID)
}

func (q txQueryer) ArchiveVersion(ctx context.Context, versionID string) error {
	return ArchiveVersion(ctx, q.Tx, versionID)
}

func (q txQueryer) InUse(ctx context.Context, compositeID string) (bool, error) {
	return InUse(ctx, q.Tx, compositeID)
}

func (q txQueryer) VersionInUse(ctx context.Context, versionID string) (bool, error) {
	return VersionInUse(ctx, q.Tx, versionID)
}

func (q txQueryer) DeleteVersion(ctx context.Context, versionID string) error {
	return DeleteVersion(ctx, q.Tx, versionID)
}

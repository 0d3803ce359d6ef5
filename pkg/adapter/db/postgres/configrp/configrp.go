// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package configrp is the adapter for the Configurations repository.
// It exposes the configrp.Repo type so use cases can manage
// Configuration, ConfigurationVersion, and ConfigurationFile rows.
package configrp

import (
	"context"

	"github.com/opendsc/opendsc/pkg/adapter/db/postgres"
	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/core/repo"
)

// Repo represents the Configurations repository instance.
type Repo struct{}

// New instantiates a Configurations Repo.
func New() *Repo {
	return &Repo{}
}

// Models returns the gorm models backing this repository, for use with
// postgres.Pool.AutoMigrate.
func Models() []any {
	return []any{&gConfiguration{}, &gConfigurationVersion{}, &gConfigurationFile{}}
}

type connQueryer struct {
	*postgres.Conn
}

// Conn takes a Conn interface instance, unwraps it, and returns a
// ConfigurationsConnQueryer able to run connection-scoped operations.
func (r *Repo) Conn(c repo.Conn) repo.ConfigurationsConnQueryer {
	return connQueryer{Conn: c.(*postgres.Conn)}
}

type txQueryer struct {
	*postgres.Tx
}

// Tx takes a Tx interface instance, unwraps it, and returns a
// ConfigurationsTxQueryer able to run transaction-scoped operations.
func (r *Repo) Tx(tx repo.Tx) repo.ConfigurationsTxQueryer {
	return txQueryer{Tx: tx.(*postgres.Tx)}
}

func (q connQueryer) Create(ctx context.Context, c *model.Configuration) error {
	return Create(ctx, q.Conn, c)
}

func (q connQueryer) ByName(ctx context.Context, name string) (*model.Configuration, error) {
	return ByName(ctx, q.Conn, name)
}

func (q connQueryer) ByID(ctx context.Context, id string) (*model.Configuration, error) {
	return ByID(ctx, q.Conn, id)
}

func (q connQueryer) List(ctx context.Context) ([]*model.Configuration, error) {
	return List(ctx, q.Conn)
}

func (q connQueryer) Delete(ctx context.Context, id string) error {
	return Delete(ctx, q.Conn, id)
}

func (q connQueryer) CreateVersion(ctx context.Context, v *model.ConfigurationVersion, files []*model.ConfigurationFile) error {
	return CreateVersion(ctx, q.Conn, v, files)
}

func (q connQueryer) Version(ctx context.Context, configurationID string, v model.SemVer) (*model.ConfigurationVersion, error) {
	return Version(ctx, q.Conn, configurationID, v)
}

func (q connQueryer) Versions(ctx context.Context, configurationID string) ([]*model.ConfigurationVersion, error) {
	return Versions(ctx, q.Conn, configurationID)
}

func (q connQueryer) Publish(ctx context.Context, versionID string) error {
	return Publish(ctx, q.Conn, versionID)
}

func (q connQueryer) ArchiveVersion(ctx context.Context, versionID string) error {
	return ArchiveVersion(ctx, q.Conn, versionID)
}

func (q connQueryer) Files(ctx context.Context, versionID string) ([]*model.ConfigurationFile, error) {
	return Files(ctx, q.Conn, versionID)
}

func (q connQueryer) InUse(ctx context.Context, configurationID string) (bool, error) {
	return InUse(ctx, q.Conn, configurationID)
}

func (q connQueryer) VersionInUse(ctx context.Context, versionID string) (bool, error) {
	return VersionInUse(ctx, q.Conn, versionID)
}

func (q connQueryer) DeleteVersion(ctx context.Context, versionID string) error {
	return DeleteVersion(ctx, q.Conn, versionID)
}

func (q txQueryer) Create(ctx context.Context, c *model.Configuration) error {
	return Create(ctx, q.Tx, c)
}

func (q txQueryer) ByName(ctx context.Context, name string) (*model.Configuration, error) {
	return ByName(ctx, q.Tx, name)
}

func (q txQueryer) ByID(ctx context.Context, id string) (*model.Configuration, error) {
	return ByID(ctx, q.Tx, id)
}

func (q txQueryer) List(ctx context.Context) ([]*model.Configuration, error) {
	return List(ctx, q.Tx)
}

func (q txQueryer) Delete(ctx context.Context, id string) error {
	return Delete(ctx, q.Tx, id)
}

func (q txQueryer) CreateVersion(ctx context.Context, v *model.ConfigurationVersion, files []*model.ConfigurationFile) error {
	return CreateVersion(ctx, q.Tx, v, files)
}

func (q txQueryer) Version(ctx context.Context, configurationID string, v model.SemVer) (*model.ConfigurationVersion, error) {
	return Version(ctx, q.Tx, configurationID, v)
}

func (q txQueryer) Versions(ctx context.Context, configurationID string) ([]*model.ConfigurationVersion, error) {
	return Versions(ctx, q.Tx, configurationID)
}

func (q txQueryer) Publish(ctx context.Context, versionID string) error {
	return Publish(ctx, q.Tx, versionID)
}

func (q txQueryer) ArchiveVersion(ctx context.Context, versionID string) error {
	return ArchiveVersion(ctx, q.Tx, versionID)
}

func (q txQueryer) Files(ctx context.Context, versionID string) ([]*model.ConfigurationFile, error) {
	return Files(ctx, q.Tx, versionID)
}

func (q txQueryer) InUse(ctx context.Context, configurationID string) (bool, error) {
	return InUse(ctx, q.Tx, configurationID)
}

func (q txQueryer) VersionInUse(ctx context.Context, versionID string) (bool, error) {
	return VersionInUse(ctx, q.Tx, versionID)
}

func (q txQueryer) DeleteVersion(ctx context.Context, versionID string) error {
	return DeleteVersion(ctx, q.Tx, versionID)
}

// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package paramrp is the adapter for the ParameterFile/ParameterSchema
// repository.
package paramrp

import (
	"context"

	"github.com/opendsc/opendsc/pkg/adapter/db/postgres"
	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/core/repo"
)

// Repo represents the Parameters repository instance.
type Repo struct{}

// New instantiates a Parameters Repo.
func New() *Repo {
	return &Repo{}
}

// Models returns the gorm models backing this repository, for use with
// postgres.Pool.AutoMigrate.
func Models() []any {
	return []any{&gParameterFile{}, &gParameterSchema{}}
}

type connQueryer struct {
	*postgres.Conn
}

// Conn takes a Conn interface instance, unwraps it, and returns a
// ParametersConnQueryer able to run connection-scoped operations.
func (r *Repo) Conn(c repo.Conn) repo.ParametersConnQueryer {
	return connQueryer{Conn: c.(*postgres.Conn)}
}

type txQueryer struct {
	*postgres.Tx
}

// Tx takes a Tx interface instance, unwraps it, and returns a
// ParametersTxQueryer able to run transaction-scoped operations.
func (r *Repo) Tx(tx repo.Tx) repo.ParametersTxQueryer {
	return txQueryer{Tx: tx.(*postgres.Tx)}
}

func (q connQueryer) CreateFile(ctx context.Context, f *model.ParameterFile) error {
	return CreateFile(ctx, q.Conn, f)
}

func (q connQueryer) ActivateFile(ctx context.Context, configurationID, scopeTypeID, scopeValueID, fileID string) error {
	return ActivateFile(ctx, q.Conn, configurationID, scopeTypeID, scopeValueID, fileID)
}

func (q connQueryer) ActiveFile(ctx context.Context, configurationID, scopeTypeID, scopeValueID string) (*model.ParameterFile, error) {
	return ActiveFile(ctx, q.Conn, configurationID, scopeTypeID, scopeValueID)
}

func (q connQueryer) ArchiveFile(ctx context.Context, fileID string) error {
	return ArchiveFile(ctx, q.Conn, fileID)
}

func (q connQueryer) Files(ctx context.Context, configurationID, scopeTypeID, scopeValueID string) ([]*model.ParameterFile, error) {
	return Files(ctx, q.Conn, configurationID, scopeTypeID, scopeValueID)
}

func (q connQueryer) FilesByConfiguration(ctx context.Context, configurationID string) ([]*model.ParameterFile, error) {
	return FilesByConfiguration(ctx, q.Conn, configurationID)
}

func (q connQueryer) DeleteFile(ctx context.Context, fileID string) error {
	return DeleteFile(ctx, q.Conn, fileID)
}

func (q connQueryer) UpsertSchema(ctx context.Context, hash string, schemaJSON []byte) (*model.ParameterSchema, error) {
	return UpsertSchema(ctx, q.Conn, hash, schemaJSON)
}

func (q connQueryer) SchemaByHash(ctx context.Context, hash string) (*model.ParameterSchema, error) {
	return SchemaByHash(ctx, q.Conn, hash)
}

func (q connQueryer) CollectUnreferencedSchemas(ctx context.Context) (int64, error) {
	return CollectUnreferencedSchemas(ctx, q.Conn)
}

func (q txQueryer) CreateFile(ctx context.Context, f *model.ParameterFile) error {
	return CreateFile(ctx, q.Tx, f)
}

func (q txQueryer) ActivateFile(ctx context.Context, configurationID, scopeTypeID, scopeValueID, fileID string) error {
	return ActivateFile(ctx, q.Tx, configurationID, scopeTypeID, scopeValueID, fileID)
}

func (q txQueryer) ActiveFile(ctx context.Context, configurationID, scopeTypeID, scopeValueID string) (*model.ParameterFile, error) {
	return ActiveFile(ctx, q.Tx, configurationID, scopeTypeID, scopeValueID)
}

func (q txQueryer) ArchiveFile(ctx context.Context, fileID string) error {
	return ArchiveFile(ctx, q.Tx, fileID)
}

func (q txQueryer) Files(ctx context.Context, configurationID, scopeTypeID, scopeValueID string) ([]*model.ParameterFile, error) {
	return Files(ctx, q.Tx, configurationID, scopeTypeID, scopeValueID)
}

func (q txQueryer) FilesByConfiguration(ctx context.Context, configurationID string) ([]*model.ParameterFile, error) {
	return FilesByConfiguration(ctx, q.Tx, configurationID)
}

func (q txQueryer) DeleteFile(ctx context.Context, fileID string) error {
	return DeleteFile(ctx, q.Tx, fileID)
}

func (q txQueryer) UpsertSchema(ctx context.Context, hash string, schemaJSON []byte) (*model.ParameterSchema, error) {
	return UpsertSchema(ctx, q.Tx, hash, schemaJSON)
}

func (q txQueryer) SchemaByHash(ctx context.Context, hash string) (*model.ParameterSchema, error) {
	return SchemaByHash(ctx, q.Tx, hash)
}

func (q txQueryer) CollectUnreferencedSchemas(ctx context.Context) (int64, error) {
	return CollectUnreferencedSchemas(ctx, q.Tx)
}

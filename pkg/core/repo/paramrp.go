// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package repo

import (
	"context"

	"github.com/opendsc/opendsc/pkg/core/model"
)

// ParametersConnQueryer lists the Parameters operations which require
// an open connection rather than an ongoing transaction.
type ParametersConnQueryer interface {
	ParametersQueryer
}

// ParametersTxQueryer lists the Parameters operations which require an
// ongoing transaction.
type ParametersTxQueryer interface {
	ParametersQueryer
}

// ParametersQueryer lists the ParameterFile/ParameterSchema operations
// which may run with either a connection or a transaction at hand.
type ParametersQueryer interface {
	// CreateFile persists a new draft ParameterFile.
	CreateFile(ctx context.Context, f *model.ParameterFile) error

	// ActivateFile atomically deactivates every other ParameterFile
	// sharing (configurationID, scopeTypeID, scopeValueID) and sets
	// fileID active, inside a single transaction.
	ActivateFile(ctx context.Context, configurationID, scopeTypeID, scopeValueID, fileID string) error

	// ActiveFile loads the currently active ParameterFile for a triple,
	// or nil if none is active.
	ActiveFile(ctx context.Context, configurationID, scopeTypeID, scopeValueID string) (*model.ParameterFile, error)

	// ArchiveFile marks a ParameterFile as archived; it must not be the
	// currently active file.
	ArchiveFile(ctx context.Context, fileID string) error

	// Files lists every ParameterFile version for a triple, newest
	// first.
	Files(ctx context.Context, configurationID, scopeTypeID, scopeValueID string) ([]*model.ParameterFile, error)

	// FilesByConfiguration lists every ParameterFile of a configuration
	// across every scope triple, newest first.
	FilesByConfiguration(ctx context.Context, configurationID string) ([]*model.ParameterFile, error)

	// DeleteFile removes a ParameterFile row. It is idempotent and
	// refuses to delete the currently active file for its triple.
	DeleteFile(ctx context.Context, fileID string) error

	// UpsertSchema returns the existing ParameterSchema row matching
	// hash, or creates one from schemaJSON if none exists yet.
	UpsertSchema(ctx context.Context, hash string, schemaJSON []byte) (*model.ParameterSchema, error)

	// SchemaByHash loads a ParameterSchema by hash.
	SchemaByHash(ctx context.Context, hash string) (*model.ParameterSchema, error)

	// CollectUnreferencedSchemas deletes every ParameterSchema no
	// longer referenced by any ParameterFile or ConfigurationVersion,
	// returning the count removed.
	CollectUnreferencedSchemas(ctx context.Context) (int64, error)
}

// Parameters is the ParameterFile/ParameterSchema repository.
type Parameters interface {
	Conn(Conn) ParametersConnQueryer
	Tx(Tx) ParametersTxQueryer
}

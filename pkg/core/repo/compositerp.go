// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package repo

import (
	"context"

	"github.com/opendsc/opendsc/pkg/core/model"
)

// CompositesConnQueryer lists the CompositeConfigurations operations
// which require an open connection rather than an ongoing transaction.
type CompositesConnQueryer interface {
	CompositesQueryer
}

// CompositesTxQueryer lists the CompositeConfigurations operations
// which require an ongoing transaction.
type CompositesTxQueryer interface {
	CompositesQueryer
}

// CompositesQueryer lists the CompositeConfigurations operations which
// may run with either a connection or a transaction at hand.
type CompositesQueryer interface {
	// Create persists a new CompositeConfiguration. The name must be
	// unique among both plain and composite configurations.
	Create(ctx context.Context, c *model.CompositeConfiguration) error

	// ByName loads a CompositeConfiguration by its unique name.
	ByName(ctx context.Context, name string) (*model.CompositeConfiguration, error)

	// ByID loads a CompositeConfiguration by its ID.
	ByID(ctx context.Context, id string) (*model.CompositeConfiguration, error)

	// List returns every CompositeConfiguration, ordered by name.
	List(ctx context.Context) ([]*model.CompositeConfiguration, error)

	// Delete removes a CompositeConfiguration. It fails with
	// cerr.KindConflict if any CompositeConfigurationVersion is still
	// assigned to it.
	Delete(ctx context.Context, id string) error

	// CreateVersion persists a new CompositeConfigurationVersion
	// together with its ordered item list. Every item's
	// ConfigurationID must reference a non-composite Configuration.
	CreateVersion(ctx context.Context, v *model.CompositeConfigurationVersion) error

	// Version loads one CompositeConfigurationVersion, with its items
	// ordered ascending, by composite ID and SemVer.
	Version(ctx context.Context, compositeID string, v model.SemVer) (*model.CompositeConfigurationVersion, error)

	// Versions lists every CompositeConfigurationVersion of a
	// CompositeConfiguration.
	Versions(ctx context.Context, compositeID string) ([]*model.CompositeConfigurationVersion, error)

	// Publish flips a draft CompositeConfigurationVersion to published.
	Publish(ctx context.Context, versionID string) error

	// ArchiveVersion marks a CompositeConfigurationVersion as archived.
	// It fails with cerr.KindConflict if still referenced by a
	// NodeConfiguration.
	ArchiveVersion(ctx context.Context, versionID string) error

	// InUse reports whether compositeID is referenced by any
	// NodeConfiguration.
	InUse(ctx context.Context, compositeID string) (bool, error)

	// VersionInUse reports whether versionID is directly pinned by any
	// NodeConfiguration.
	VersionInUse(ctx context.Context, versionID string) (bool, error)

	// DeleteVersion removes a CompositeConfigurationVersion and its
	// items. It is idempotent and does not check in-use status.
	DeleteVersion(ctx context.Context, versionID string) error
}

// Composites is the CompositeConfigurations repository.
type Composites interface {
	Conn(Conn) CompositesConnQueryer
	Tx(Tx) CompositesTxQueryer
}

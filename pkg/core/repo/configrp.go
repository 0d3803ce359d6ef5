// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package repo

import (
	"context"

	"github.com/opendsc/opendsc/pkg/core/model"
)

// ConfigurationsConnQueryer lists the Configurations operations which
// require an open connection rather than an ongoing transaction.
type ConfigurationsConnQueryer interface {
	ConfigurationsQueryer
}

// ConfigurationsTxQueryer lists the Configurations operations which
// require an ongoing transaction.
type ConfigurationsTxQueryer interface {
	ConfigurationsQueryer
}

// ConfigurationsQueryer lists the Configurations operations which may
// run with either a connection or a transaction at hand.
type ConfigurationsQueryer interface {
	// Create persists a new Configuration. The name must be unique.
	Create(ctx context.Context, c *model.Configuration) error

	// ByName loads a Configuration by its unique name, or returns a
	// *cerr.Error wrapping cerr.KindNotFound.
	ByName(ctx context.Context, name string) (*model.Configuration, error)

	// ByID loads a Configuration by its ID.
	ByID(ctx context.Context, id string) (*model.Configuration, error)

	// List returns every Configuration, ordered by name.
	List(ctx context.Context) ([]*model.Configuration, error)

	// Delete removes a Configuration. It fails with cerr.KindConflict
	// if any ConfigurationVersion is still assigned to it.
	Delete(ctx context.Context, id string) error

	// CreateVersion persists a new ConfigurationVersion together with
	// its files, in a single all-or-nothing write.
	CreateVersion(ctx context.Context, v *model.ConfigurationVersion, files []*model.ConfigurationFile) error

	// Version loads one ConfigurationVersion by configuration ID and
	// SemVer.
	Version(ctx context.Context, configurationID string, v model.SemVer) (*model.ConfigurationVersion, error)

	// Versions lists every ConfigurationVersion of a Configuration,
	// including drafts and archived ones; callers filter as needed
	// (e.g. via pkg/core/semver.Latest).
	Versions(ctx context.Context, configurationID string) ([]*model.ConfigurationVersion, error)

	// Publish flips a draft ConfigurationVersion to published. It fails
	// with cerr.KindConflict if the version is already published, and
	// cerr.KindArchived if it was archived.
	Publish(ctx context.Context, versionID string) error

	// ArchiveVersion marks a ConfigurationVersion as archived. It fails
	// with cerr.KindConflict if the version is currently referenced by
	// any NodeConfiguration's pinned version.
	ArchiveVersion(ctx context.Context, versionID string) error

	// Files lists the ConfigurationFile rows of one version, ordered by
	// path.
	Files(ctx context.Context, versionID string) ([]*model.ConfigurationFile, error)

	// InUse reports whether configurationID is referenced by any
	// NodeConfiguration, CompositeConfigurationItem, or an unpublished
	// vs. archived constraint that would block deletion.
	InUse(ctx context.Context, configurationID string) (bool, error)

	// VersionInUse reports whether versionID is directly pinned by any
	// NodeConfiguration or CompositeConfigurationItem.
	VersionInUse(ctx context.Context, versionID string) (bool, error)

	// DeleteVersion removes a ConfigurationVersion and its files. It is
	// idempotent and does not check in-use status; callers (e.g. the
	// retention planner) must have already established it is safe to
	// remove.
	DeleteVersion(ctx context.Context, versionID string) error
}

// Configurations is the Configurations repository. Implementations
// wrap a Conn/Tx interface to obtain the ConnQueryer/TxQueryer variant.
type Configurations interface {
	Conn(Conn) ConfigurationsConnQueryer
	Tx(Tx) ConfigurationsTxQueryer
}

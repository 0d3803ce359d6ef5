// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package compositesvc implements the CompositeConfiguration catalog:
// creation, ordered child-item version upload, publish/archive
// transitions, and deletion.
package compositesvc

import (
	"context"
	"fmt"
	"time"

	"github.com/opendsc/opendsc/pkg/core/cerr"
	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/core/repo"
	"github.com/opendsc/opendsc/pkg/core/semver"
)

// UseCase manages CompositeConfiguration catalog entries and their
// versions.
type UseCase struct {
	pool       repo.Pool
	composites repo.Composites
	configs    repo.Configurations
}

// New instantiates the CompositeConfiguration catalog use case.
func New(p repo.Pool, composites repo.Composites, configs repo.Configurations) *UseCase {
	return &UseCase{pool: p, composites: composites, configs: configs}
}

// Create persists a new CompositeConfiguration after validating its
// name.
func (uc *UseCase) Create(ctx context.Context, name, description, entryPoint string, now time.Time) (*model.CompositeConfiguration, error) {
	if !model.NamePattern.MatchString(name) {
		return nil, cerr.BadRequest(fmt.Errorf("composite configuration name %q does not match %s", name, model.NamePattern))
	}
	c := &model.CompositeConfiguration{
		Name:        name,
		EntryPoint:  entryPoint,
		Description: description,
		CreatedAt:   now,
	}
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		return uc.composites.Conn(conn).Create(ctx, c)
	})
	if err != nil {
		return nil, fmt.Errorf("create composite configuration: %w", err)
	}
	return c, nil
}

// Get loads a CompositeConfiguration by ID.
func (uc *UseCase) Get(ctx context.Context, id string) (*model.CompositeConfiguration, error) {
	var c *model.CompositeConfiguration
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		got, err := uc.composites.Conn(conn).ByID(ctx, id)
		if err != nil {
			return err
		}
		c = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ByName loads a CompositeConfiguration by its unique name.
func (uc *UseCase) ByName(ctx context.Context, name string) (*model.CompositeConfiguration, error) {
	var c *model.CompositeConfiguration
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		got, err := uc.composites.Conn(conn).ByName(ctx, name)
		if err != nil {
			return err
		}
		c = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// List returns every CompositeConfiguration, ordered by name.
func (uc *UseCase) List(ctx context.Context) ([]*model.CompositeConfiguration, error) {
	var out []*model.CompositeConfiguration
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		got, err := uc.composites.Conn(conn).List(ctx)
		if err != nil {
			return err
		}
		out = got
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list composite configurations: %w", err)
	}
	return out, nil
}

// Delete removes a CompositeConfiguration. It fails if any version is
// still assigned to it.
func (uc *UseCase) Delete(ctx context.Context, id string) error {
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		return uc.composites.Conn(conn).Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete composite configuration: %w", err)
	}
	return nil
}

// ItemInput is one child Configuration reference of a new version,
// in declared order.
type ItemInput struct {
	ConfigurationID string
	PinnedVersion   *model.SemVer // nil tracks the child's latest published version
}

// CreateVersionInput is the payload for CreateVersion.
type CreateVersionInput struct {
	CompositeID string
	Version     model.SemVer
	Items       []ItemInput
	CreatedBy   string
	Now         time.Time
}

// CreateVersion validates that every item references an existing,
// non-composite Configuration and persists a new draft
// CompositeConfigurationVersion with its items ordered as given.
func (uc *UseCase) CreateVersion(ctx context.Context, in CreateVersionInput) (*model.CompositeConfigurationVersion, error) {
	if len(in.Items) == 0 {
		return nil, cerr.BadRequest(fmt.Errorf("composite version must reference at least one child configuration"))
	}
	items := make([]model.CompositeConfigurationItem, len(in.Items))
	for i, it := range in.Items {
		items[i] = model.CompositeConfigurationItem{
			ConfigurationID: it.ConfigurationID,
			PinnedVersion:   it.PinnedVersion,
			Order:           i,
		}
	}
	v := &model.CompositeConfigurationVersion{
		CompositeID: in.CompositeID,
		Version:     in.Version,
		IsDraft:     true,
		Items:       items,
		CreatedAt:   in.Now,
		CreatedBy:   in.CreatedBy,
	}
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		cq := uc.configs.Conn(conn)
		seen := make(map[string]bool, len(in.Items))
		for _, it := range in.Items {
			if seen[it.ConfigurationID] {
				return cerr.BadRequest(fmt.Errorf("child configuration %s referenced more than once", it.ConfigurationID))
			}
			seen[it.ConfigurationID] = true
			if _, err := cq.ByID(ctx, it.ConfigurationID); err != nil {
				return fmt.Errorf("child configuration %s: %w", it.ConfigurationID, err)
			}
		}
		return uc.composites.Conn(conn).CreateVersion(ctx, v)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Versions lists every CompositeConfigurationVersion of a
// CompositeConfiguration.
func (uc *UseCase) Versions(ctx context.Context, compositeID string) ([]*model.CompositeConfigurationVersion, error) {
	var out []*model.CompositeConfigurationVersion
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		got, err := uc.composites.Conn(conn).Versions(ctx, compositeID)
		if err != nil {
			return err
		}
		out = got
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return out, nil
}

// LatestVersion returns the highest-precedence published version,
// optionally including pre-releases.
func (uc *UseCase) LatestVersion(ctx context.Context, compositeID string, allowPreRelease bool) (*model.CompositeConfigurationVersion, error) {
	versions, err := uc.Versions(ctx, compositeID)
	if err != nil {
		return nil, err
	}
	v, err := semver.Latest(versions, allowPreRelease)
	if err != nil {
		return nil, cerr.NotFound(fmt.Errorf("composite configuration %s: %w", compositeID, err))
	}
	return v, nil
}

// Publish flips a draft CompositeConfigurationVersion to published.
func (uc *UseCase) Publish(ctx context.Context, versionID string) error {
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		return uc.composites.Conn(conn).Publish(ctx, versionID)
	})
	if err != nil {
		return fmt.Errorf("publish version: %w", err)
	}
	return nil
}

// ArchiveVersion marks a CompositeConfigurationVersion as archived,
// rejecting the attempt if it is still pinned by a node.
func (uc *UseCase) ArchiveVersion(ctx context.Context, versionID string) error {
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		return uc.composites.Conn(conn).ArchiveVersion(ctx, versionID)
	})
	if err != nil {
		return fmt.Errorf("archive version: %w", err)
	}
	return nil
}

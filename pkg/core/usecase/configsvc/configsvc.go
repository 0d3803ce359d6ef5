// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package configsvc implements the Configuration catalog: creation,
// version upload with path validation and the optional SemVer
// compliance check, publish/archive transitions, and deletion.
package configsvc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/opendsc/opendsc/pkg/core/cerr"
	"github.com/opendsc/opendsc/pkg/core/log"
	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/core/repo"
	"github.com/opendsc/opendsc/pkg/core/schema"
	"github.com/opendsc/opendsc/pkg/core/semver"
)

// UseCase manages Configuration catalog entries and their versions.
type UseCase struct {
	pool    repo.Pool
	configs repo.Configurations
	params  repo.Parameters
}

// New instantiates the Configuration catalog use case.
func New(p repo.Pool, configs repo.Configurations, params repo.Parameters) *UseCase {
	return &UseCase{pool: p, configs: configs, params: params}
}

// Create persists a new Configuration after validating its name.
func (uc *UseCase) Create(ctx context.Context, name, description, entryPoint string, isServerManaged bool, now time.Time) (*model.Configuration, error) {
	if !model.NamePattern.MatchString(name) {
		return nil, cerr.BadRequest(fmt.Errorf("configuration name %q does not match %s", name, model.NamePattern))
	}
	c := &model.Configuration{
		Name:            name,
		Description:     description,
		EntryPoint:      entryPoint,
		IsServerManaged: isServerManaged,
		CreatedAt:       now,
	}
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		return uc.configs.Conn(conn).Create(ctx, c)
	})
	if err != nil {
		return nil, fmt.Errorf("create configuration: %w", err)
	}
	return c, nil
}

// Get loads a Configuration by ID.
func (uc *UseCase) Get(ctx context.Context, id string) (*model.Configuration, error) {
	var c *model.Configuration
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		got, err := uc.configs.Conn(conn).ByID(ctx, id)
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

// ByName loads a Configuration by its unique name.
func (uc *UseCase) ByName(ctx context.Context, name string) (*model.Configuration, error) {
	var c *model.Configuration
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		got, err := uc.configs.Conn(conn).ByName(ctx, name)
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

// List returns every Configuration, ordered by name.
func (uc *UseCase) List(ctx context.Context) ([]*model.Configuration, error) {
	var out []*model.Configuration
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		got, err := uc.configs.Conn(conn).List(ctx)
		if err != nil {
			return err
		}
		out = got
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list configurations: %w", err)
	}
	return out, nil
}

// Delete removes a Configuration. It fails if any version is still
// assigned to it.
func (uc *UseCase) Delete(ctx context.Context, id string) error {
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		return uc.configs.Conn(conn).Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete configuration: %w", err)
	}
	return nil
}

// UploadVersionInput is the payload for UploadVersion.
type UploadVersionInput struct {
	ConfigurationID string
	Version         model.SemVer
	Files           []*model.ConfigurationFile
	CreatedBy       string
	// SchemaJSON is the normalized structural schema (see pkg/core/schema)
	// of this version's default parameter document, or nil if the
	// version carries none. It is used only for the optional SemVer
	// compliance check against the previous published version.
	SchemaJSON    []byte
	EnforceSemVer bool
	Now           time.Time
}

// UploadVersion validates and persists a new draft ConfigurationVersion
// together with its files. Every file path is checked against the same
// escape rule the bundle builder re-checks at build time, and every
// file's SHA256 is computed if the caller left it blank. When the
// configuration has a prior published version with a recorded schema
// hash and SchemaJSON is provided, the SemVer compliance check compares
// the two schemas and, if the new version's bump does not satisfy the
// required severity, either blocks the upload (EnforceSemVer) or logs a
// warning and proceeds.
func (uc *UseCase) UploadVersion(ctx context.Context, in UploadVersionInput) (*model.ConfigurationVersion, error) {
	for _, f := range in.Files {
		clean, err := validatePath(f.Path)
		if err != nil {
			return nil, err
		}
		f.Path = clean
		if f.SHA256 == "" {
			sum := sha256.Sum256(f.Content)
			f.SHA256 = hex.EncodeToString(sum[:])
		}
	}

	var schemaHash string
	if len(in.SchemaJSON) > 0 {
		sum := sha256.Sum256(in.SchemaJSON)
		schemaHash = hex.EncodeToString(sum[:])
	}

	v := &model.ConfigurationVersion{
		ConfigurationID: in.ConfigurationID,
		Version:         in.Version,
		IsDraft:         true,
		SchemaHash:      schemaHash,
		CreatedAt:       in.Now,
		CreatedBy:       in.CreatedBy,
	}

	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		cq := uc.configs.Conn(conn)
		existing, err := cq.Versions(ctx, in.ConfigurationID)
		if err != nil {
			return fmt.Errorf("load versions: %w", err)
		}
		if err := uc.checkCompliance(ctx, conn, existing, in); err != nil {
			return err
		}
		if schemaHash != "" {
			if _, err := uc.params.Conn(conn).UpsertSchema(ctx, schemaHash, in.SchemaJSON); err != nil {
				return fmt.Errorf("upsert schema: %w", err)
			}
		}
		return cq.CreateVersion(ctx, v, in.Files)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// checkCompliance compares in's schema against the previous published
// version's schema and either blocks (EnforceSemVer) or logs a warning
// when the bump does not satisfy the required severity.
func (uc *UseCase) checkCompliance(ctx context.Context, conn repo.Conn, existing []*model.ConfigurationVersion, in UploadVersionInput) error {
	if len(in.SchemaJSON) == 0 {
		return nil
	}
	prev, err := semver.Latest(existing, true)
	if err != nil {
		return nil // no previous published version to compare against
	}
	if prev.SchemaHash == "" {
		return nil
	}
	prevRow, err := uc.params.Conn(conn).SchemaByHash(ctx, prev.SchemaHash)
	if err != nil {
		return nil // prior schema content missing; nothing to compare
	}
	var prevSchema, nextSchema schema.Schema
	if err := json.Unmarshal(prevRow.Schema, &prevSchema); err != nil {
		return fmt.Errorf("unmarshal previous schema: %w", err)
	}
	if err := json.Unmarshal(in.SchemaJSON, &nextSchema); err != nil {
		return fmt.Errorf("unmarshal new schema: %w", err)
	}
	kind := schema.Classify(&prevSchema, &nextSchema)
	if schema.SatisfiesBump(prev.Version, in.Version, kind) {
		return nil
	}
	if in.EnforceSemVer {
		return cerr.SemVerViolation(fmt.Errorf(
			"version %s is a %s change from %s and requires at least a %s bump",
			in.Version, kind, prev.Version, kind.RequiredBump(),
		))
	}
	log.Warn(ctx, "semver compliance violation",
		log.Err("error", fmt.Errorf(
			"version %s is a %s change from %s and requires at least a %s bump",
			in.Version, kind, prev.Version, kind.RequiredBump(),
		)),
	)
	return nil
}

// Versions lists every ConfigurationVersion of a Configuration.
func (uc *UseCase) Versions(ctx context.Context, configurationID string) ([]*model.ConfigurationVersion, error) {
	var out []*model.ConfigurationVersion
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		got, err := uc.configs.Conn(conn).Versions(ctx, configurationID)
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
func (uc *UseCase) LatestVersion(ctx context.Context, configurationID string, allowPreRelease bool) (*model.ConfigurationVersion, error) {
	versions, err := uc.Versions(ctx, configurationID)
	if err != nil {
		return nil, err
	}
	v, err := semver.Latest(versions, allowPreRelease)
	if err != nil {
		return nil, cerr.NotFound(fmt.Errorf("configuration %s: %w", configurationID, err))
	}
	return v, nil
}

// Files lists the ConfigurationFile rows of one version.
func (uc *UseCase) Files(ctx context.Context, versionID string) ([]*model.ConfigurationFile, error) {
	var out []*model.ConfigurationFile
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		got, err := uc.configs.Conn(conn).Files(ctx, versionID)
		if err != nil {
			return err
		}
		out = got
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return out, nil
}

// Publish flips a draft ConfigurationVersion to published.
func (uc *UseCase) Publish(ctx context.Context, versionID string) error {
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		return uc.configs.Conn(conn).Publish(ctx, versionID)
	})
	if err != nil {
		return fmt.Errorf("publish version: %w", err)
	}
	return nil
}

// ArchiveVersion marks a ConfigurationVersion as archived, rejecting
// the attempt if it is still pinned by a node's assignment.
func (uc *UseCase) ArchiveVersion(ctx context.Context, versionID string) error {
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		return uc.configs.Conn(conn).ArchiveVersion(ctx, versionID)
	})
	if err != nil {
		return fmt.Errorf("archive version: %w", err)
	}
	return nil
}

// DeleteVersion removes a ConfigurationVersion and its files. It is
// blocked with cerr.Conflict if the version is still in use.
func (uc *UseCase) DeleteVersion(ctx context.Context, versionID string) error {
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		return uc.configs.Conn(conn).DeleteVersion(ctx, versionID)
	})
	if err != nil {
		return fmt.Errorf("delete version: %w", err)
	}
	return nil
}

// validatePath rejects absolute paths and any segment equal to "..",
// and normalizes backslashes to forward slashes. It mirrors the
// bundle builder's re-check at build time, enforced here at upload.
func validatePath(p string) (string, error) {
	if p == "" {
		return "", cerr.BadRequest(fmt.Errorf("file path is empty"))
	}
	clean := strings.ReplaceAll(p, `\`, "/")
	if strings.HasPrefix(clean, "/") {
		return "", cerr.BadRequest(fmt.Errorf("file path %q is absolute", p))
	}
	for _, seg := range strings.Split(clean, "/") {
		if seg == ".." {
			return "", cerr.BadRequest(fmt.Errorf("file path %q escapes its root", p))
		}
	}
	return clean, nil
}

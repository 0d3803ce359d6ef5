// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package paramadminsvc implements the administrative side of
// ParameterFile management: draft upload with schema derivation,
// atomic activation, archival, and a merge+provenance diagnostic for a
// single scope triple. The read-side merge used by the Bundle Builder
// lives in pkg/core/usecase/paramsvc.
package paramadminsvc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/opendsc/opendsc/pkg/core/cerr"
	"github.com/opendsc/opendsc/pkg/core/merge"
	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/core/repo"
	"github.com/opendsc/opendsc/pkg/core/schema"
	"gopkg.in/yaml.v3"
)

// UseCase manages ParameterFile upload, activation, archival, and
// diagnostics.
type UseCase struct {
	pool   repo.Pool
	params repo.Parameters
	scopes repo.Scopes
}

// New instantiates the parameter administration use case.
func New(p repo.Pool, params repo.Parameters, scopes repo.Scopes) *UseCase {
	return &UseCase{pool: p, params: params, scopes: scopes}
}

// UploadInput is the payload for Upload.
type UploadInput struct {
	ConfigurationID string
	ScopeTypeID     string
	ScopeValueID    string // empty for the Default scope
	Version         string
	Content         []byte
	ContentType     string // "yaml" or "json"
}

// Upload decodes Content, derives and stores its structural schema,
// computes its checksum, and persists it as a new draft ParameterFile.
// The scope triple must exist; ScopeValueID, when set, must belong to
// ScopeTypeID.
func (uc *UseCase) Upload(ctx context.Context, in UploadInput) (*model.ParameterFile, error) {
	doc, err := decode(in.Content, in.ContentType)
	if err != nil {
		return nil, cerr.BadRequest(fmt.Errorf("decode parameter document: %w", err))
	}
	shape := schema.Derive(doc)
	schemaJSON, err := schema.Normalize(shape)
	if err != nil {
		return nil, fmt.Errorf("normalize schema: %w", err)
	}
	schemaHash, err := schema.Hash(shape)
	if err != nil {
		return nil, fmt.Errorf("hash schema: %w", err)
	}
	sum := sha256.Sum256(in.Content)

	f := &model.ParameterFile{
		ConfigurationID: in.ConfigurationID,
		ScopeTypeID:     in.ScopeTypeID,
		ScopeValueID:    in.ScopeValueID,
		Version:         in.Version,
		Content:         in.Content,
		ContentType:     in.ContentType,
		Checksum:        hex.EncodeToString(sum[:]),
		SchemaHash:      schemaHash,
		IsDraft:         true,
	}

	err = uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		if err := uc.validateTriple(ctx, conn, in.ScopeTypeID, in.ScopeValueID); err != nil {
			return err
		}
		pq := uc.params.Conn(conn)
		if _, err := pq.UpsertSchema(ctx, schemaHash, schemaJSON); err != nil {
			return fmt.Errorf("upsert schema: %w", err)
		}
		return pq.CreateFile(ctx, f)
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// validateTriple confirms scopeTypeID exists and, when scopeValueID is
// set, that it belongs to scopeTypeID.
func (uc *UseCase) validateTriple(ctx context.Context, conn repo.Conn, scopeTypeID, scopeValueID string) error {
	sq := uc.scopes.Conn(conn)
	types, err := sq.Types(ctx)
	if err != nil {
		return fmt.Errorf("load scope types: %w", err)
	}
	var st *model.ScopeType
	for _, t := range types {
		if t.ID == scopeTypeID {
			st = t
			break
		}
	}
	if st == nil {
		return cerr.NotFound(fmt.Errorf("scope type %s not found", scopeTypeID))
	}
	if scopeValueID == "" {
		return nil
	}
	sv, _, err := sq.ValueByID(ctx, scopeValueID)
	if err != nil {
		return fmt.Errorf("load scope value: %w", err)
	}
	if sv.ScopeTypeID != scopeTypeID {
		return cerr.BadRequest(fmt.Errorf("scope value %s does not belong to scope type %s", scopeValueID, scopeTypeID))
	}
	return nil
}

// Activate atomically makes fileID the active ParameterFile for a
// scope triple, deactivating any other file sharing it.
func (uc *UseCase) Activate(ctx context.Context, configurationID, scopeTypeID, scopeValueID, fileID string) error {
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		return uc.params.Conn(conn).ActivateFile(ctx, configurationID, scopeTypeID, scopeValueID, fileID)
	})
	if err != nil {
		return fmt.Errorf("activate parameter file: %w", err)
	}
	return nil
}

// Archive marks a ParameterFile as archived.
func (uc *UseCase) Archive(ctx context.Context, fileID string) error {
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		return uc.params.Conn(conn).ArchiveFile(ctx, fileID)
	})
	if err != nil {
		return fmt.Errorf("archive parameter file: %w", err)
	}
	return nil
}

// Delete removes a ParameterFile version.
func (uc *UseCase) Delete(ctx context.Context, fileID string) error {
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		return uc.params.Conn(conn).DeleteFile(ctx, fileID)
	})
	if err != nil {
		return fmt.Errorf("delete parameter file: %w", err)
	}
	return nil
}

// Versions lists every ParameterFile version for a scope triple,
// newest first.
func (uc *UseCase) Versions(ctx context.Context, configurationID, scopeTypeID, scopeValueID string) ([]*model.ParameterFile, error) {
	var out []*model.ParameterFile
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		got, err := uc.params.Conn(conn).Files(ctx, configurationID, scopeTypeID, scopeValueID)
		if err != nil {
			return err
		}
		out = got
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list parameter files: %w", err)
	}
	return out, nil
}

// Diagnosis is the outcome of Provenance: the merged document visible
// at a scope triple plus its per-leaf provenance.
type Diagnosis struct {
	Merged     map[string]any
	Provenance map[string]merge.LeafProvenance
}

// Provenance merges the Default scope's active ParameterFile with the
// target scope triple's active ParameterFile (when scopeTypeID is not
// Default) and returns the result together with per-leaf provenance,
// for diagnostic display independent of any specific node's tags.
func (uc *UseCase) Provenance(ctx context.Context, configurationID, scopeTypeID, scopeValueID string) (*Diagnosis, error) {
	var docs []merge.Document
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		sq := uc.scopes.Conn(conn)
		pq := uc.params.Conn(conn)

		types, err := sq.Types(ctx)
		if err != nil {
			return fmt.Errorf("load scope types: %w", err)
		}
		sort.Slice(types, func(i, j int) bool { return types[i].Precedence < types[j].Precedence })

		var defaultType, target *model.ScopeType
		for _, t := range types {
			if t.Name == model.DefaultScopeTypeName {
				defaultType = t
			}
			if t.ID == scopeTypeID {
				target = t
			}
		}
		if defaultType == nil {
			return fmt.Errorf("system scope type Default is missing")
		}
		if target == nil {
			return cerr.NotFound(fmt.Errorf("scope type %s not found", scopeTypeID))
		}

		if f, err := pq.ActiveFile(ctx, configurationID, defaultType.ID, ""); err != nil {
			return fmt.Errorf("default scope: %w", err)
		} else if f != nil {
			docs = append(docs, fileDocument(model.SourceTag{ScopeTypeName: defaultType.Name, Precedence: defaultType.Precedence}, f))
		}

		if target.ID == defaultType.ID {
			return nil
		}

		scopeValue := ""
		if scopeValueID != "" {
			sv, _, err := sq.ValueByID(ctx, scopeValueID)
			if err != nil {
				return fmt.Errorf("load scope value: %w", err)
			}
			scopeValue = sv.Value
		}
		if f, err := pq.ActiveFile(ctx, configurationID, target.ID, scopeValueID); err != nil {
			return fmt.Errorf("target scope: %w", err)
		} else if f != nil {
			docs = append(docs, fileDocument(model.SourceTag{ScopeTypeName: target.Name, ScopeValue: scopeValue, Precedence: target.Precedence}, f))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(docs) == 0 {
		return &Diagnosis{Merged: map[string]any{}, Provenance: map[string]merge.LeafProvenance{}}, nil
	}
	result, err := merge.Merge(docs)
	if err != nil {
		return nil, cerr.BadRequest(fmt.Errorf("merge parameters: %w", err))
	}
	return &Diagnosis{Merged: result.Merged, Provenance: result.Provenance}, nil
}

func fileDocument(tag model.SourceTag, f *model.ParameterFile) merge.Document {
	format := merge.FormatYAML
	if f.ContentType == "json" {
		format = merge.FormatJSON
	}
	return merge.Document{Tag: tag, Data: f.Content, Format: format}
}

func decode(content []byte, contentType string) (any, error) {
	var v any
	var err error
	if contentType == "json" {
		err = json.Unmarshal(content, &v)
	} else {
		err = yaml.Unmarshal(content, &v)
	}
	if err != nil {
		return nil, err
	}
	return normalizeKeys(v), nil
}

// normalizeKeys recursively converts map[any]any produced by yaml.v3's
// generic decode path into map[string]any so schema.Derive and the
// merge package see a uniform shape.
func normalizeKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = normalizeKeys(vv)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[fmt.Sprintf("%v", k)] = normalizeKeys(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = normalizeKeys(vv)
		}
		return out
	default:
		return v
	}
}

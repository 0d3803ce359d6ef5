// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package paramsvc resolves a node's effective server-managed
// parameters for a configuration by collecting every active
// ParameterFile across the node's scopes and deep-merging them.
package paramsvc

import (
	"context"
	"fmt"
	"sort"

	"github.com/opendsc/opendsc/pkg/core/cerr"
	"github.com/opendsc/opendsc/pkg/core/merge"
	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/core/repo"
	"gopkg.in/yaml.v3"
)

// UseCase resolves effective parameters for a (node, configuration)
// pair.
type UseCase struct {
	pool   repo.Pool
	scopes repo.Scopes
	nodes  repo.Nodes
	params repo.Parameters
}

// New instantiates the Parameter Merge Service.
func New(p repo.Pool, scopes repo.Scopes, nodes repo.Nodes, params repo.Parameters) *UseCase {
	return &UseCase{pool: p, scopes: scopes, nodes: nodes, params: params}
}

// Resolved is the outcome of a successful Resolve call.
type Resolved struct {
	YAML       []byte
	Provenance map[string]merge.LeafProvenance
}

// Resolve merges every active ParameterFile visible to nodeID for
// configurationID, honoring useServerManagedParams: when false it
// returns (nil, nil), matching the bundle builder's "omit
// parameters.yaml" contract.
func (uc *UseCase) Resolve(ctx context.Context, nodeID, configurationID string, useServerManagedParams bool) (*Resolved, error) {
	if !useServerManagedParams {
		return nil, nil
	}
	var docs []merge.Document
	err := uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		sq := uc.scopes.Conn(c)
		nq := uc.nodes.Conn(c)
		pq := uc.params.Conn(c)

		types, err := sq.Types(ctx)
		if err != nil {
			return fmt.Errorf("load scope types: %w", err)
		}
		sort.Slice(types, func(i, j int) bool { return types[i].Precedence < types[j].Precedence })

		var defaultType, nodeType *model.ScopeType
		for _, st := range types {
			switch st.Name {
			case model.DefaultScopeTypeName:
				defaultType = st
			case model.NodeScopeTypeName:
				nodeType = st
			}
		}
		if defaultType == nil || nodeType == nil {
			return fmt.Errorf("system scope types Default/Node are missing")
		}

		if f, err := pq.ActiveFile(ctx, configurationID, defaultType.ID, ""); err != nil {
			return fmt.Errorf("default scope: %w", err)
		} else if f != nil {
			docs = append(docs, fileDocument(model.SourceTag{ScopeTypeName: defaultType.Name, Precedence: defaultType.Precedence}, f))
		}

		tags, err := nq.NodeTags(ctx, nodeID)
		if err != nil {
			return fmt.Errorf("load node tags: %w", err)
		}
		type tagged struct {
			sv *model.ScopeValue
			st *model.ScopeType
		}
		resolved := make([]tagged, 0, len(tags))
		for _, tag := range tags {
			sv, st, err := sq.ValueByID(ctx, tag.ScopeValueID)
			if err != nil {
				return fmt.Errorf("resolve node tag: %w", err)
			}
			resolved = append(resolved, tagged{sv: sv, st: st})
		}
		sort.Slice(resolved, func(i, j int) bool { return resolved[i].st.Precedence < resolved[j].st.Precedence })

		for _, rt := range resolved {
			f, err := pq.ActiveFile(ctx, configurationID, rt.st.ID, rt.sv.ID)
			if err != nil {
				return fmt.Errorf("scope %s: %w", rt.st.Name, err)
			}
			if f == nil {
				continue
			}
			docs = append(docs, fileDocument(model.SourceTag{ScopeTypeName: rt.st.Name, ScopeValue: rt.sv.Value, Precedence: rt.st.Precedence}, f))
		}

		n, err := nq.NodeByID(ctx, nodeID)
		if err != nil {
			return fmt.Errorf("load node: %w", err)
		}
		if f, err := pq.ActiveFile(ctx, configurationID, nodeType.ID, n.ID); err != nil {
			return fmt.Errorf("node scope: %w", err)
		} else if f != nil {
			docs = append(docs, fileDocument(model.SourceTag{ScopeTypeName: nodeType.Name, ScopeValue: n.FQDN, Precedence: nodeType.Precedence}, f))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(docs) == 0 {
		return &Resolved{YAML: nil, Provenance: map[string]merge.LeafProvenance{}}, nil
	}

	result, err := merge.Merge(docs)
	if err != nil {
		return nil, cerr.BadRequest(fmt.Errorf("merge parameters: %w", err))
	}
	out, err := yaml.Marshal(result.Merged)
	if err != nil {
		return nil, fmt.Errorf("serialize merged parameters: %w", err)
	}
	return &Resolved{YAML: out, Provenance: result.Provenance}, nil
}

func fileDocument(tag model.SourceTag, f *model.ParameterFile) merge.Document {
	format := merge.FormatYAML
	if f.ContentType == "json" {
		format = merge.FormatJSON
	}
	return merge.Document{Tag: tag, Data: f.Content, Format: format}
}

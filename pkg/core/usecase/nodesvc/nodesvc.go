// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package nodesvc manages Node lifecycle operations beyond initial
// registration: listing, deletion, scope tagging, and configuration
// assignment.
package nodesvc

import (
	"context"
	"fmt"

	"github.com/opendsc/opendsc/pkg/core/cerr"
	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/core/repo"
)

// UseCase manages Node tagging and configuration assignment.
type UseCase struct {
	pool       repo.Pool
	nodes      repo.Nodes
	scopes     repo.Scopes
	configs    repo.Configurations
	composites repo.Composites
}

// New instantiates the node management use case.
func New(p repo.Pool, nodes repo.Nodes, scopes repo.Scopes, configs repo.Configurations, composites repo.Composites) *UseCase {
	return &UseCase{pool: p, nodes: nodes, scopes: scopes, configs: configs, composites: composites}
}

// List returns every Node ordered by FQDN.
func (uc *UseCase) List(ctx context.Context) ([]*model.Node, error) {
	var out []*model.Node
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		got, err := uc.nodes.Conn(conn).Nodes(ctx)
		if err != nil {
			return err
		}
		out = got
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	return out, nil
}

// Get loads a Node by ID.
func (uc *UseCase) Get(ctx context.Context, id string) (*model.Node, error) {
	var n *model.Node
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		got, err := uc.nodes.Conn(conn).NodeByID(ctx, id)
		if err != nil {
			return err
		}
		n = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// Delete removes a Node, cascading its tags and configuration
// assignment.
func (uc *UseCase) Delete(ctx context.Context, id string) error {
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		return uc.nodes.Conn(conn).DeleteNode(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete node: %w", err)
	}
	return nil
}

// Tag assigns a Node to a ScopeValue, replacing any prior assignment
// within the same ScopeType. Never self-assigned by the node; callers
// are expected to be operators.
func (uc *UseCase) Tag(ctx context.Context, nodeID, scopeValueID string) error {
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		if _, err := uc.nodes.Conn(conn).NodeByID(ctx, nodeID); err != nil {
			return fmt.Errorf("load node: %w", err)
		}
		if _, _, err := uc.scopes.Conn(conn).ValueByID(ctx, scopeValueID); err != nil {
			return fmt.Errorf("load scope value: %w", err)
		}
		return uc.nodes.Conn(conn).TagNode(ctx, nodeID, scopeValueID)
	})
	if err != nil {
		return fmt.Errorf("tag node: %w", err)
	}
	return nil
}

// Tags lists a Node's tags, one per ScopeType at most.
func (uc *UseCase) Tags(ctx context.Context, nodeID string) ([]*model.NodeTag, error) {
	var out []*model.NodeTag
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		got, err := uc.nodes.Conn(conn).NodeTags(ctx, nodeID)
		if err != nil {
			return err
		}
		out = got
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list node tags: %w", err)
	}
	return out, nil
}

// AssignConfigurationInput is the payload for AssignConfiguration.
// Exactly one of ConfigurationID or CompositeConfigurationID must be
// set.
type AssignConfigurationInput struct {
	NodeID                   string
	ConfigurationID          *string
	CompositeConfigurationID *string
	PinnedVersion            *model.SemVer
	UseServerManagedParams   bool
}

// AssignConfiguration binds a Node to a Configuration or
// CompositeConfiguration, replacing any existing assignment.
func (uc *UseCase) AssignConfiguration(ctx context.Context, in AssignConfigurationInput) (*model.NodeConfiguration, error) {
	hasConfig := in.ConfigurationID != nil
	hasComposite := in.CompositeConfigurationID != nil
	if hasConfig == hasComposite {
		return nil, cerr.BadRequest(fmt.Errorf("exactly one of configuration or composite configuration must be set"))
	}
	nc := &model.NodeConfiguration{
		NodeID:                   in.NodeID,
		ConfigurationID:          in.ConfigurationID,
		CompositeConfigurationID: in.CompositeConfigurationID,
		PinnedVersion:            in.PinnedVersion,
		UseServerManagedParams:   in.UseServerManagedParams,
	}
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		if _, err := uc.nodes.Conn(conn).NodeByID(ctx, in.NodeID); err != nil {
			return fmt.Errorf("load node: %w", err)
		}
		if hasConfig {
			if _, err := uc.configs.Conn(conn).ByID(ctx, *in.ConfigurationID); err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
		} else {
			if _, err := uc.composites.Conn(conn).ByID(ctx, *in.CompositeConfigurationID); err != nil {
				return fmt.Errorf("load composite configuration: %w", err)
			}
		}
		return uc.nodes.Conn(conn).SetNodeConfiguration(ctx, nc)
	})
	if err != nil {
		return nil, err
	}
	return nc, nil
}

// NodeConfiguration loads a Node's configuration binding, or nil if
// unset.
func (uc *UseCase) NodeConfiguration(ctx context.Context, nodeID string) (*model.NodeConfiguration, error) {
	var nc *model.NodeConfiguration
	err := uc.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		got, err := uc.nodes.Conn(conn).NodeConfiguration(ctx, nodeID)
		if err != nil {
			return err
		}
		nc = got
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load node configuration: %w", err)
	}
	return nc, nil
}

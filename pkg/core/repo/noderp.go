// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package repo

import (
	"context"
	"time"

	"github.com/opendsc/opendsc/pkg/core/model"
)

// NodesConnQueryer lists the Nodes operations which require an open
// connection rather than an ongoing transaction.
type NodesConnQueryer interface {
	NodesQueryer
}

// NodesTxQueryer lists the Nodes operations which require an ongoing
// transaction.
type NodesTxQueryer interface {
	NodesQueryer
}

// NodesQueryer lists the Node/NodeTag/NodeConfiguration/
// RegistrationKey/ComplianceReport operations which may run with
// either a connection or a transaction at hand.
type NodesQueryer interface {
	// CreateRegistrationKey persists a new RegistrationKey.
	CreateRegistrationKey(ctx context.Context, k *model.RegistrationKey) error

	// RegistrationKeyByToken loads a RegistrationKey by its token.
	RegistrationKeyByToken(ctx context.Context, token string) (*model.RegistrationKey, error)

	// ConsumeRegistrationKey atomically increments a RegistrationKey's
	// use-count, but only if it is still usable at instant now; the
	// compare-and-increment happens in a single statement so concurrent
	// registrations cannot both succeed past MaxUses. Returns
	// *cerr.Error wrapping cerr.KindConflict if the key is no longer
	// usable.
	ConsumeRegistrationKey(ctx context.Context, id string, now time.Time) error

	// CreateNode persists a newly registered Node.
	CreateNode(ctx context.Context, n *model.Node) error

	// Nodes lists every Node ordered by FQDN.
	Nodes(ctx context.Context) ([]*model.Node, error)

	// NodeByID loads a Node by ID.
	NodeByID(ctx context.Context, id string) (*model.Node, error)

	// DeleteNode removes a Node, cascading its NodeTags and
	// NodeConfiguration assignment.
	DeleteNode(ctx context.Context, id string) error

	// NodeByFQDN loads a Node by its unique FQDN.
	NodeByFQDN(ctx context.Context, fqdn string) (*model.Node, error)

	// NodeByCertFingerprint loads a Node by its certificate fingerprint,
	// for mTLS request authentication.
	NodeByCertFingerprint(ctx context.Context, fingerprint string) (*model.Node, error)

	// UpdateNodeCertificate rotates a Node's certificate fingerprint
	// and expiry, and bumps LastSeen.
	UpdateNodeCertificate(ctx context.Context, nodeID, fingerprint string, notAfter time.Time) error

	// TouchNode bumps a Node's LastSeen to now.
	TouchNode(ctx context.Context, nodeID string, now time.Time) error

	// TagNode assigns a Node to a ScopeValue, replacing any prior
	// assignment within the same ScopeType.
	TagNode(ctx context.Context, nodeID, scopeValueID string) error

	// NodeTags lists a Node's tags, one per ScopeType at most.
	NodeTags(ctx context.Context, nodeID string) ([]*model.NodeTag, error)

	// SetNodeConfiguration assigns or replaces a Node's configuration
	// binding.
	SetNodeConfiguration(ctx context.Context, nc *model.NodeConfiguration) error

	// NodeConfiguration loads a Node's configuration binding, or nil if
	// unset.
	NodeConfiguration(ctx context.Context, nodeID string) (*model.NodeConfiguration, error)

	// InsertComplianceReport appends a ComplianceReport.
	InsertComplianceReport(ctx context.Context, r *model.ComplianceReport) error

	// ComplianceReports lists a Node's reports, newest first.
	ComplianceReports(ctx context.Context, nodeID string, limit int) ([]*model.ComplianceReport, error)
}

// Nodes is the Node/NodeTag/NodeConfiguration/RegistrationKey/
// ComplianceReport repository.
type Nodes interface {
	Conn(Conn) NodesConnQueryer
	Tx(Tx) NodesTxQueryer
}

// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package registrationsvc implements the node registration and
// certificate lifecycle: registration-key-gated enrollment, mTLS
// certificate rotation, fingerprint-based authentication, and
// append-only compliance report submission.
package registrationsvc

import (
	"context"
	"fmt"
	"time"

	"github.com/opendsc/opendsc/pkg/core/cerr"
	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/core/repo"
)

// UseCase is the Registration & Credential Service.
type UseCase struct {
	pool  repo.Pool
	nodes repo.Nodes
}

// New instantiates the Registration & Credential Service.
func New(p repo.Pool, nodes repo.Nodes) *UseCase {
	return &UseCase{pool: p, nodes: nodes}
}

// CreateRegistrationKey persists a new RegistrationKey an operator
// hands out of out-of-band to authorize one or more node enrollments.
func (uc *UseCase) CreateRegistrationKey(ctx context.Context, token, createdBy string, expiresAt time.Time, maxUses *int) (*model.RegistrationKey, error) {
	k := &model.RegistrationKey{
		Token:     token,
		CreatedBy: createdBy,
		ExpiresAt: expiresAt,
		MaxUses:   maxUses,
	}
	err := uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		return uc.nodes.Conn(c).CreateRegistrationKey(ctx, k)
	})
	if err != nil {
		return nil, fmt.Errorf("create registration key: %w", err)
	}
	return k, nil
}

// Register validates token against the stored RegistrationKey,
// atomically consumes one use, and persists a new Node carrying the
// presented certificate's fingerprint and expiry. The key is
// validated and consumed inside the same transaction that creates the
// node, so an exhausted or expired key never produces a Node.
func (uc *UseCase) Register(ctx context.Context, token, fqdn, certFingerprint string, certNotAfter, now time.Time) (*model.Node, error) {
	n := &model.Node{
		FQDN:            fqdn,
		RegisteredAt:    now,
		LastSeen:        now,
		CertFingerprint: certFingerprint,
		CertNotAfter:    certNotAfter,
	}
	err := uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		return c.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			nq := uc.nodes.Tx(tx)
			key, err := nq.RegistrationKeyByToken(ctx, token)
			if err != nil {
				return fmt.Errorf("load registration key: %w", err)
			}
			if !key.Usable(now) {
				return cerr.Conflict(fmt.Errorf("registration key is no longer usable"))
			}
			if err := nq.ConsumeRegistrationKey(ctx, key.ID, now); err != nil {
				return fmt.Errorf("consume registration key: %w", err)
			}
			if err := nq.CreateNode(ctx, n); err != nil {
				return fmt.Errorf("create node: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// RotateCertificate replaces nodeID's stored certificate fingerprint
// and expiry with the new certificate presented over the node's
// current, still-valid mTLS session.
func (uc *UseCase) RotateCertificate(ctx context.Context, nodeID, newFingerprint string, newNotAfter time.Time) error {
	err := uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		return uc.nodes.Conn(c).UpdateNodeCertificate(ctx, nodeID, newFingerprint, newNotAfter)
	})
	if err != nil {
		return fmt.Errorf("rotate certificate: %w", err)
	}
	return nil
}

// AuthenticateByFingerprint loads the Node whose stored certificate
// fingerprint matches fingerprint and bumps its LastSeen, for use by
// the mTLS request-authentication middleware. Returns
// *cerr.Error wrapping cerr.KindNotFound if no Node matches.
func (uc *UseCase) AuthenticateByFingerprint(ctx context.Context, fingerprint string, now time.Time) (*model.Node, error) {
	var n *model.Node
	err := uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		nq := uc.nodes.Conn(c)
		node, err := nq.NodeByCertFingerprint(ctx, fingerprint)
		if err != nil {
			return fmt.Errorf("node by cert fingerprint: %w", err)
		}
		if err := nq.TouchNode(ctx, node.ID, now); err != nil {
			return fmt.Errorf("touch node: %w", err)
		}
		node.LastSeen = now
		n = node
		return nil
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// SubmitReport appends a ComplianceReport for a node's most recent LCM
// enforcement cycle.
func (uc *UseCase) SubmitReport(ctx context.Context, r *model.ComplianceReport) error {
	err := uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		return uc.nodes.Conn(c).InsertComplianceReport(ctx, r)
	})
	if err != nil {
		return fmt.Errorf("submit report: %w", err)
	}
	return nil
}

// Reports lists a node's most recent ComplianceReports, newest first.
func (uc *UseCase) Reports(ctx context.Context, nodeID string, limit int) ([]*model.ComplianceReport, error) {
	var reports []*model.ComplianceReport
	err := uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		rs, err := uc.nodes.Conn(c).ComplianceReports(ctx, nodeID, limit)
		if err != nil {
			return err
		}
		reports = rs
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

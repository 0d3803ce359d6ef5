// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package model

import "time"

// Node is a registered machine which pulls configuration and submits
// compliance reports.
type Node struct {
	ID             string // UUID
	FQDN           string // unique
	RegisteredAt   time.Time
	LastSeen       time.Time
	CertFingerprint string // SHA-256 of subjectPublicKeyInfo, unique when present
	CertNotAfter   time.Time
}

// NodeTag assigns a Node to at most one ScopeValue per ScopeType.
type NodeTag struct {
	ID           string
	NodeID       string
	ScopeValueID string
}

// NodeConfiguration binds a Node to exactly one Configuration or
// CompositeConfiguration, optionally pinned to a specific version.
type NodeConfiguration struct {
	ID                       string
	NodeID                   string
	ConfigurationID          *string // exactly one of these two is set
	CompositeConfigurationID *string
	PinnedVersion            *SemVer
	UseServerManagedParams   bool
}

// IsComposite reports whether nc references a CompositeConfiguration.
func (nc NodeConfiguration) IsComposite() bool {
	return nc.CompositeConfigurationID != nil
}

// RegistrationKey is a short-lived shared secret authorizing a single
// node's mTLS certificate registration (or up to MaxUses registrations).
type RegistrationKey struct {
	ID        string
	Token     string
	CreatedBy string
	ExpiresAt time.Time
	UseCount  int
	MaxUses   *int // nil means unlimited until expiry
	Revoked   bool
}

// Expired reports whether k is past its expiration instant at t.
func (k RegistrationKey) Expired(t time.Time) bool {
	return t.After(k.ExpiresAt)
}

// Exhausted reports whether k has reached its MaxUses limit.
func (k RegistrationKey) Exhausted() bool {
	return k.MaxUses != nil && k.UseCount >= *k.MaxUses
}

// Usable reports whether k may still be consumed at instant t.
func (k RegistrationKey) Usable(t time.Time) bool {
	return !k.Revoked && !k.Expired(t) && !k.Exhausted()
}

// ReportOperation distinguishes a Test (Monitor) run from a Set
// (Remediate) run in a ComplianceReport.
type ReportOperation string

// Valid ReportOperation values.
const (
	ReportOperationTest ReportOperation = "Test"
	ReportOperationSet  ReportOperation = "Set"
)

// ComplianceReport is an append-only record of one LCM enforcement
// cycle's outcome, submitted by a node.
type ComplianceReport struct {
	ID        string
	NodeID    string
	Operation ReportOperation
	Timestamp time.Time
	ExitCode  int
	Results   []ResourceOutcome
	RawResult []byte
}

// ResourceOutcome summarizes one DSC resource's compliance result for
// storage/listing purposes, independent of the DSC executor's wire
// format (see pkg/wire for the raw contract).
type ResourceOutcome struct {
	ResourceType string
	ResourceName string
	InDesiredState *bool // nil means unknown
	HadErrors      bool
	Message        string
}

// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package semver implements the "latest version" selection rule shared
// by Configuration and CompositeConfiguration lookups: filter to
// published snapshots, optionally exclude pre-releases, then take the
// maximum by SemVer 2.0.0 precedence.
package semver

import (
	"errors"

	"github.com/opendsc/opendsc/pkg/core/model"
)

// ErrNoPublishedVersion is returned by Latest when no candidate survives
// the published/pre-release filters.
var ErrNoPublishedVersion = errors.New("semver: no published version")

// Versioned is implemented by any snapshot carrying a SemVer identity
// and a published/draft/archived state: model.ConfigurationVersion and
// model.CompositeConfigurationVersion both satisfy it.
type Versioned interface {
	SemVerOf() model.SemVer
	IsPublished() bool
}

// Latest returns the candidate with the highest SemVer precedence among
// the published (non-draft, non-archived) entries of candidates. Unless
// allowPreRelease is set, pre-release versions are excluded from
// consideration even when published. Latest fails with
// ErrNoPublishedVersion if no candidate survives the filters.
func Latest[V Versioned](candidates []V, allowPreRelease bool) (V, error) {
	var best V
	found := false
	for _, c := range candidates {
		if !c.IsPublished() {
			continue
		}
		if !allowPreRelease && c.SemVerOf().IsPreRelease() {
			continue
		}
		if !found || best.SemVerOf().Less(c.SemVerOf()) {
			best = c
			found = true
		}
	}
	if !found {
		var zero V
		return zero, ErrNoPublishedVersion
	}
	return best, nil
}

// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package semver_test

import (
	"testing"

	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/core/semver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVersion struct {
	v         model.SemVer
	draft     bool
	archived  bool
}

func (f fakeVersion) SemVerOf() model.SemVer { return f.v }
func (f fakeVersion) IsPublished() bool      { return !f.draft && !f.archived }

func mustParse(t *testing.T, s string) model.SemVer {
	t.Helper()
	v, err := model.ParseSemVer(s)
	require.NoError(t, err)
	return v
}

func TestLatestPicksHighestPublished(t *testing.T) {
	cs := []fakeVersion{
		{v: mustParse(t, "1.0.0")},
		{v: mustParse(t, "2.1.0")},
		{v: mustParse(t, "2.0.9")},
		{v: mustParse(t, "3.0.0"), draft: true},
		{v: mustParse(t, "2.2.0"), archived: true},
	}
	latest, err := semver.Latest(cs, false)
	require.NoError(t, err)
	assert.Equal(t, "2.1.0", latest.SemVerOf().String())
}

func TestLatestExcludesPreReleaseByDefault(t *testing.T) {
	cs := []fakeVersion{
		{v: mustParse(t, "1.0.0")},
		{v: mustParse(t, "2.0.0-beta.1")},
	}
	latest, err := semver.Latest(cs, false)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", latest.SemVerOf().String())
}

func TestLatestIncludesPreReleaseWhenAllowed(t *testing.T) {
	cs := []fakeVersion{
		{v: mustParse(t, "1.0.0")},
		{v: mustParse(t, "2.0.0-beta.1")},
	}
	latest, err := semver.Latest(cs, true)
	require.NoError(t, err)
	assert.Equal(t, "2.0.0-beta.1", latest.SemVerOf().String())
}

func TestLatestFailsWhenNoneSurvive(t *testing.T) {
	cs := []fakeVersion{
		{v: mustParse(t, "1.0.0"), draft: true},
		{v: mustParse(t, "1.0.1"), archived: true},
	}
	_, err := semver.Latest(cs, true)
	assert.ErrorIs(t, err, semver.ErrNoPublishedVersion)
}

func TestLatestEmptyInput(t *testing.T) {
	_, err := semver.Latest([]fakeVersion{}, true)
	assert.ErrorIs(t, err, semver.ErrNoPublishedVersion)
}

// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package model_test

import (
	"testing"

	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSemVerRoundTrip(t *testing.T) {
	cases := []string{
		"0.0.1",
		"1.2.3",
		"1.2.3-alpha",
		"1.2.3-alpha.1",
		"1.2.3-0.3.7",
		"1.2.3-x.7.z.92",
		"1.2.3+build.1",
		"1.2.3-beta+exp.sha.5114f85",
	}
	for _, s := range cases {
		v, err := model.ParseSemVer(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, v.String())
	}
}

func TestParseSemVerRejectsInvalid(t *testing.T) {
	cases := []string{
		"",
		"1.2",
		"1.2.3.4",
		"01.2.3",
		"1.2.3-01",
		"1.2.3-",
		"a.b.c",
	}
	for _, s := range cases {
		_, err := model.ParseSemVer(s)
		assert.Error(t, err, s)
	}
}

func TestSemVerComparePrecedence(t *testing.T) {
	// Ascending precedence order per the SemVer 2.0.0 spec example.
	ordered := []string{
		"1.0.0-alpha",
		"1.0.0-alpha.1",
		"1.0.0-alpha.beta",
		"1.0.0-beta",
		"1.0.0-beta.2",
		"1.0.0-beta.11",
		"1.0.0-rc.1",
		"1.0.0",
	}
	for i := 1; i < len(ordered); i++ {
		a, err := model.ParseSemVer(ordered[i-1])
		require.NoError(t, err)
		b, err := model.ParseSemVer(ordered[i])
		require.NoError(t, err)
		assert.True(t, a.Less(b), "%s should precede %s", ordered[i-1], ordered[i])
		assert.False(t, b.Less(a))
	}
}

func TestSemVerBuildIgnoredInComparison(t *testing.T) {
	a, err := model.ParseSemVer("1.2.3+build.1")
	require.NoError(t, err)
	b, err := model.ParseSemVer("1.2.3+build.2")
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
	assert.Equal(t, 0, a.Compare(b))
}

func TestSemVerTrichotomy(t *testing.T) {
	versions := []string{"1.0.0", "1.0.0-rc.1", "2.3.4", "2.3.4-beta", "0.0.1"}
	for _, s1 := range versions {
		for _, s2 := range versions {
			v1, err := model.ParseSemVer(s1)
			require.NoError(t, err)
			v2, err := model.ParseSemVer(s2)
			require.NoError(t, err)
			n := 0
			if v1.Less(v2) {
				n++
			}
			if v1.Equal(v2) {
				n++
			}
			if v2.Less(v1) {
				n++
			}
			assert.Equal(t, 1, n, "%s vs %s", s1, s2)
		}
	}
}

// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package schema_test

import (
	"testing"

	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/core/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashStableAcrossKeyOrderAndValues(t *testing.T) {
	docA := map[string]any{"name": "web01", "port": 8080, "debug": true}
	docB := map[string]any{"debug": false, "port": 9090, "name": "web02"}

	ha, err := schema.Hash(schema.Derive(docA))
	require.NoError(t, err)
	hb, err := schema.Hash(schema.Derive(docB))
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
	assert.Len(t, ha, 64)
}

func TestHashChangesWhenShapeChanges(t *testing.T) {
	base := map[string]any{"name": "web01"}
	withNewKey := map[string]any{"name": "web01", "region": "us-west"}

	hBase, err := schema.Hash(schema.Derive(base))
	require.NoError(t, err)
	hNew, err := schema.Hash(schema.Derive(withNewKey))
	require.NoError(t, err)
	assert.NotEqual(t, hBase, hNew)
}

func TestClassifyIdentical(t *testing.T) {
	a := schema.Derive(map[string]any{"name": "web01", "port": 8080})
	b := schema.Derive(map[string]any{"name": "web02", "port": 9090})
	assert.Equal(t, schema.ChangeIdentical, schema.Classify(a, b))
}

func TestClassifyAdditive(t *testing.T) {
	prev := schema.Derive(map[string]any{"name": "web01"})
	next := schema.Derive(map[string]any{"name": "web02", "region": "us-west"})
	assert.Equal(t, schema.ChangeAdditive, schema.Classify(prev, next))
}

func TestClassifyBreakingOnRemoval(t *testing.T) {
	prev := schema.Derive(map[string]any{"name": "web01", "region": "us-west"})
	next := schema.Derive(map[string]any{"name": "web02"})
	assert.Equal(t, schema.ChangeBreaking, schema.Classify(prev, next))
}

func TestClassifyBreakingOnTypeChange(t *testing.T) {
	prev := schema.Derive(map[string]any{"port": 8080})
	next := schema.Derive(map[string]any{"port": "8080"})
	assert.Equal(t, schema.ChangeBreaking, schema.Classify(prev, next))
}

func TestSatisfiesBump(t *testing.T) {
	v1, err := model.ParseSemVer("1.2.3")
	require.NoError(t, err)

	major, err := model.ParseSemVer("2.0.0")
	require.NoError(t, err)
	minor, err := model.ParseSemVer("1.3.0")
	require.NoError(t, err)
	patch, err := model.ParseSemVer("1.2.4")
	require.NoError(t, err)

	assert.True(t, schema.SatisfiesBump(v1, major, schema.ChangeBreaking))
	assert.False(t, schema.SatisfiesBump(v1, minor, schema.ChangeBreaking))
	assert.False(t, schema.SatisfiesBump(v1, patch, schema.ChangeBreaking))

	assert.True(t, schema.SatisfiesBump(v1, major, schema.ChangeAdditive))
	assert.True(t, schema.SatisfiesBump(v1, minor, schema.ChangeAdditive))
	assert.False(t, schema.SatisfiesBump(v1, patch, schema.ChangeAdditive))

	assert.True(t, schema.SatisfiesBump(v1, patch, schema.ChangeIdentical))
	assert.True(t, schema.SatisfiesBump(v1, minor, schema.ChangeIdentical))
}

func TestDeriveArrayHomogeneousItems(t *testing.T) {
	s := schema.Derive(map[string]any{
		"tags": []any{"a", "b", "c"},
	})
	tags := s.Properties["tags"]
	require.Equal(t, schema.KindArray, tags.Type)
	assert.Equal(t, schema.KindString, tags.Items.Type)
}

func TestDeriveIntegerVsNumber(t *testing.T) {
	s := schema.Derive(map[string]any{"count": 5, "ratio": 1.5})
	assert.Equal(t, schema.KindInteger, s.Properties["count"].Type)
	assert.Equal(t, schema.KindNumber, s.Properties["ratio"].Type)
}

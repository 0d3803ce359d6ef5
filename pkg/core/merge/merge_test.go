// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package merge_test

import (
	"testing"

	"github.com/opendsc/opendsc/pkg/core/merge"
	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func doc(scopeType, scopeValue string, precedence int, yamlDoc string) merge.Document {
	return merge.Document{
		Tag: model.SourceTag{
			ScopeTypeName: scopeType,
			ScopeValue:    scopeValue,
			Precedence:    precedence,
		},
		Data:   []byte(yamlDoc),
		Format: merge.FormatYAML,
	}
}

func TestMergeThreeScopeExample(t *testing.T) {
	docs := []merge.Document{
		doc("Default", "", 0, "a: 1\nb: 2\nc:\n  x: 10\n"),
		doc("Region", "US-West", 10, "a: 2\nc:\n  y: 20\n"),
		doc("Environment", "Production", 15, "a: 3\n"),
	}
	result, err := merge.Merge(docs)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"a": 3,
		"b": 2,
		"c": map[string]any{"x": 10, "y": 20},
	}, result.Merged)

	aProv, ok := result.Provenance["a"]
	require.True(t, ok)
	assert.Equal(t, "Environment:Production", aProv.Source)
	require.Len(t, aProv.OverriddenBy, 2)
	assert.Equal(t, "Region:US-West", aProv.OverriddenBy[0].Source)
	assert.Equal(t, 2, aProv.OverriddenBy[0].Value)
	assert.Equal(t, "Default", aProv.OverriddenBy[1].Source)
	assert.Equal(t, 1, aProv.OverriddenBy[1].Value)

	bProv, ok := result.Provenance["b"]
	require.True(t, ok)
	assert.Equal(t, "Default", bProv.Source)
	assert.Empty(t, bProv.OverriddenBy)
}

func TestMergeArrayReplacementNotConcatenated(t *testing.T) {
	docs := []merge.Document{
		doc("Default", "", 0, "features:\n  - logging\n"),
		doc("Environment", "Production", 15, "features:\n  - logging\n  - auth\n"),
	}
	result, err := merge.Merge(docs)
	require.NoError(t, err)
	assert.Equal(t, []any{"logging", "auth"}, result.Merged["features"])

	prov := result.Provenance["features"]
	assert.Equal(t, "Environment:Production", prov.Source)
	require.Len(t, prov.OverriddenBy, 1)
	assert.Equal(t, []any{"logging"}, prov.OverriddenBy[0].Value)
}

func TestMergeAbsentKeyRetainedFromLower(t *testing.T) {
	docs := []merge.Document{
		doc("Default", "", 0, "a: 1\nb: 2\n"),
		doc("Environment", "Production", 15, "a: 3\n"),
	}
	result, err := merge.Merge(docs)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Merged["b"])
	assert.Equal(t, "Default", result.Provenance["b"].Source)
}

func TestMergeNullReplacesRatherThanUnsets(t *testing.T) {
	docs := []merge.Document{
		doc("Default", "", 0, "a: 1\n"),
		doc("Environment", "Production", 15, "a: null\n"),
	}
	result, err := merge.Merge(docs)
	require.NoError(t, err)
	v, present := result.Merged["a"]
	require.True(t, present)
	assert.Nil(t, v)
	assert.Equal(t, "Environment:Production", result.Provenance["a"].Source)
}

func TestMergeEmptyInput(t *testing.T) {
	result, err := merge.Merge(nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, result.Merged)
	assert.Empty(t, result.Provenance)
}

func TestMergeIdempotentForSingleDocument(t *testing.T) {
	d := doc("Default", "", 0, "a: 1\nc:\n  x: 10\n  y:\n    - 1\n    - 2\n")
	result, err := merge.Merge([]merge.Document{d})
	require.NoError(t, err)

	var want map[string]any
	require.NoError(t, yaml.Unmarshal(d.Data, &want))
	assert.Equal(t, want, result.Merged)
}

func TestMergeAssociativeOverPrecedence(t *testing.T) {
	a := doc("Default", "", 0, "a: 1\nb: 2\nc:\n  x: 10\n")
	b := doc("Region", "US-West", 10, "a: 2\nc:\n  y: 20\n")
	c := doc("Environment", "Production", 15, "a: 3\nd: 9\n")

	direct, err := merge.Merge([]merge.Document{a, b, c})
	require.NoError(t, err)

	ab, err := merge.Merge([]merge.Document{a, b})
	require.NoError(t, err)
	abYAML, err := yaml.Marshal(ab.Merged)
	require.NoError(t, err)
	abAsDoc := merge.Document{
		Tag:    model.SourceTag{ScopeTypeName: "Region", ScopeValue: "US-West", Precedence: 10},
		Data:   abYAML,
		Format: merge.FormatYAML,
	}
	staged, err := merge.Merge([]merge.Document{abAsDoc, c})
	require.NoError(t, err)

	assert.Equal(t, direct.Merged, staged.Merged)
}

func TestMergeInvalidYAMLAborts(t *testing.T) {
	docs := []merge.Document{
		doc("Default", "", 0, "a: [1, 2\n"),
	}
	_, err := merge.Merge(docs)
	require.Error(t, err)
	var pe *merge.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "Default", pe.Source)
}

func TestMergeInvalidJSONReportsOffset(t *testing.T) {
	docs := []merge.Document{
		{
			Tag:    model.SourceTag{ScopeTypeName: "Default"},
			Data:   []byte(`{"a": }`),
			Format: merge.FormatJSON,
		},
	}
	_, err := merge.Merge(docs)
	require.Error(t, err)
	var pe *merge.ParseError
	require.ErrorAs(t, err, &pe)
	assert.GreaterOrEqual(t, pe.Offset, int64(0))
}

func TestMergeMappingReplacingScalarCollapsesPriorLeaf(t *testing.T) {
	docs := []merge.Document{
		doc("Default", "", 0, "c: 10\n"),
		doc("Environment", "Production", 15, "c:\n  x: 1\n"),
	}
	result, err := merge.Merge(docs)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": 1}, result.Merged["c"])

	cProv, ok := result.Provenance["c"]
	require.True(t, ok)
	require.Len(t, cProv.OverriddenBy, 1)
	assert.Equal(t, "Default", cProv.OverriddenBy[0].Source)
	assert.Equal(t, 10, cProv.OverriddenBy[0].Value)

	xProv, ok := result.Provenance["c.x"]
	require.True(t, ok)
	assert.Equal(t, "Environment:Production", xProv.Source)
	assert.Empty(t, xProv.OverriddenBy)
}

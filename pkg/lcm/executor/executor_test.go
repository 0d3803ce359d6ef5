// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package executor_test

import (
	"testing"

	"github.com/opendsc/opendsc/pkg/lcm/executor"
	"github.com/opendsc/opendsc/pkg/wire"
	"github.com/stretchr/testify/assert"
)

func truep(b bool) *bool { return &b }

func TestToOutcomesConvertsTestResults(t *testing.T) {
	res := &wire.Result{Resources: []wire.ResourceResult{
		{Type: "File", Name: "a", Test: &wire.TestOutcome{InDesiredState: truep(false), Diff: []string{"content"}}},
	}}
	outcomes := executor.ToOutcomes(res)
	assert.Len(t, outcomes, 1)
	assert.Equal(t, "File", outcomes[0].ResourceType)
	assert.Equal(t, "a", outcomes[0].ResourceName)
	assert.False(t, *outcomes[0].InDesiredState)
}

func TestToOutcomesConvertsSetResults(t *testing.T) {
	res := &wire.Result{Resources: []wire.ResourceResult{
		{Type: "Service", Name: "b", Set: &wire.SetOutcome{HadErrors: true, Message: "failed to start"}},
	}}
	outcomes := executor.ToOutcomes(res)
	assert.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].HadErrors)
	assert.Equal(t, "failed to start", outcomes[0].Message)
	assert.Nil(t, outcomes[0].InDesiredState)
}

func TestToOutcomesEmptyResult(t *testing.T) {
	assert.Empty(t, executor.ToOutcomes(&wire.Result{}))
}

func TestNewDefaultsPathField(t *testing.T) {
	e := executor.New("/usr/local/bin/dsc")
	assert.Equal(t, "/usr/local/bin/dsc", e.Path)
}

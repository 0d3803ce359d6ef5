// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bundlesvc

import "gopkg.in/yaml.v3"

// orchestratorChild is one entry of the generated orchestrator
// document: a composite's child Configuration, referenced by the
// subdirectory-relative paths of its entry-point file and (if present)
// its merged parameters.yaml.
type orchestratorChild struct {
	Name       string `yaml:"name"`
	EntryPoint string `yaml:"entry-point"`
	Parameters string `yaml:"parameters,omitempty"`
}

type orchestratorDocument struct {
	Children []orchestratorChild `yaml:"children"`
}

// marshalOrchestrator renders the composite's root-level orchestrator
// file, listing children in their declared order.
func marshalOrchestrator(children []orchestratorChild) ([]byte, error) {
	return yaml.Marshal(orchestratorDocument{Children: children})
}

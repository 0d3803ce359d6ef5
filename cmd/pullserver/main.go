// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package main is the entry point of the OpenDSC Pull Server.
package main

import (
	"github.com/opendsc/opendsc/cmd/pullserver/command"
)

func main() {
	command.Execute()
}

// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package retentionrs

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/serdser"
)

type cleanupReq struct {
	KeepVersions int  `json:"keepVersions" binding:"required,min=1"`
	KeepDays     int  `json:"keepDays" binding:"min=0"`
	DryRun       bool `json:"dryRun"`
}

func (rs *resource) DserCleanupReq(c *gin.Context) (*cleanupReq, bool) {
	req := &cleanupReq{}
	if ok := serdser.Bind(c, req, binding.JSON); !ok {
		return nil, false
	}
	return req, true
}

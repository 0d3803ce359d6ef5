// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package scopesrs

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/serdser"
)

type createTypeReq struct {
	Name        string `json:"name" binding:"required"`
	AllowValues bool   `json:"allowValues"`
}

func (rs *resource) DserCreateTypeReq(c *gin.Context) (*createTypeReq, bool) {
	req := &createTypeReq{}
	if ok := serdser.Bind(c, req, binding.JSON); !ok {
		return nil, false
	}
	return req, true
}

type createValueReq struct {
	Value string `json:"value" binding:"required"`
}

func (rs *resource) DserCreateValueReq(c *gin.Context) (*createValueReq, bool) {
	req := &createValueReq{}
	if ok := serdser.Bind(c, req, binding.JSON); !ok {
		return nil, false
	}
	return req, true
}

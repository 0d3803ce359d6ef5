// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package nodesrs

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/serdser"
	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/core/usecase/nodesvc"
)

type tagReq struct {
	ScopeValueID string `json:"scopeValueId" binding:"required"`
}

func (rs *resource) DserTagReq(c *gin.Context) (*tagReq, bool) {
	req := &tagReq{}
	if ok := serdser.Bind(c, req, binding.JSON); !ok {
		return nil, false
	}
	return req, true
}

type rawAssignReq struct {
	ConfigurationID          string `json:"configurationId"`
	CompositeConfigurationID string `json:"compositeConfigurationId"`
	PinnedVersion            string `json:"pinnedVersion"`
	UseServerManagedParams   bool   `json:"useServerManagedParams"`
}

func (rs *resource) DserAssignReq(c *gin.Context, nodeID string) (*nodesvc.AssignConfigurationInput, bool) {
	raw := &rawAssignReq{}
	if ok := serdser.Bind(c, raw, binding.JSON); !ok {
		return nil, false
	}
	var errs map[string][]string
	in := &nodesvc.AssignConfigurationInput{
		NodeID:                 nodeID,
		UseServerManagedParams: raw.UseServerManagedParams,
	}
	if raw.ConfigurationID != "" {
		in.ConfigurationID = &raw.ConfigurationID
	}
	if raw.CompositeConfigurationID != "" {
		in.CompositeConfigurationID = &raw.CompositeConfigurationID
	}
	if raw.PinnedVersion != "" {
		pv, err := model.ParseSemVer(raw.PinnedVersion)
		if err != nil {
			serdser.AddErr(&errs, "pinnedVersion", err.Error())
		} else {
			in.PinnedVersion = &pv
		}
	}
	if errs != nil {
		serdser.SerValidationErrs(c, errs)
		return nil, false
	}
	return in, true
}

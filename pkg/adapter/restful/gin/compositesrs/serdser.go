// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package compositesrs

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/opctx"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/serdser"
	"github.com/opendsc/opendsc/pkg/core/cerr"
	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/core/usecase/compositesvc"
)

func errVersionNotFound(version string) error {
	return cerr.NotFound(fmt.Errorf("version %q not found", version))
}

func operatorUserID(c *gin.Context) string {
	id, _ := opctx.UserID(c)
	return id
}

type rawCreateReq struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	EntryPoint  string `json:"entryPoint" binding:"required"`
}

type createReq struct {
	rawCreateReq
	now time.Time
}

func (rs *resource) DserCreateReq(c *gin.Context) (*createReq, bool) {
	raw := &rawCreateReq{}
	if ok := serdser.Bind(c, raw, binding.JSON); !ok {
		return nil, false
	}
	return &createReq{rawCreateReq: *raw, now: time.Now()}, true
}

type rawItem struct {
	ConfigurationName string `json:"configurationName" binding:"required"`
	PinnedVersion     string `json:"pinnedVersion"`
}

type rawCreateVersionReq struct {
	Version string    `json:"version" binding:"required"`
	Items   []rawItem `json:"items" binding:"required,min=1"`
}

func (rs *resource) DserCreateVersionReq(c *gin.Context, compositeID string) (*compositesvc.CreateVersionInput, bool) {
	raw := &rawCreateVersionReq{}
	if ok := serdser.Bind(c, raw, binding.JSON); !ok {
		return nil, false
	}
	var errs map[string][]string
	version, err := model.ParseSemVer(raw.Version)
	if err != nil {
		serdser.AddErr(&errs, "version", err.Error())
	}
	items := make([]compositesvc.ItemInput, 0, len(raw.Items))
	for i, it := range raw.Items {
		cfg, err := rs.configs.ByName(c, it.ConfigurationName)
		if err != nil {
			serdser.AddErr(&errs, fmt.Sprintf("items[%d].configurationName", i), err.Error())
			continue
		}
		item := compositesvc.ItemInput{ConfigurationID: cfg.ID}
		if it.PinnedVersion != "" {
			pv, err := model.ParseSemVer(it.PinnedVersion)
			if err != nil {
				serdser.AddErr(&errs, fmt.Sprintf("items[%d].pinnedVersion", i), err.Error())
				continue
			}
			item.PinnedVersion = &pv
		}
		items = append(items, item)
	}
	if errs != nil {
		serdser.SerValidationErrs(c, errs)
		return nil, false
	}
	return &compositesvc.CreateVersionInput{
		CompositeID: compositeID,
		Version:     version,
		Items:       items,
		CreatedBy:   operatorUserID(c),
		Now:         time.Now(),
	}, true
}

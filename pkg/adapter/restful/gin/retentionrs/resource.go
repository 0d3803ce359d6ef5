// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package retentionrs realizes the retention resource: on-demand
// configuration and parameter cleanup runs with a dry-run mode.
package retentionrs

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/authnmw"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/serdser"
	"github.com/opendsc/opendsc/pkg/core/usecase/authzsvc"
	"github.com/opendsc/opendsc/pkg/core/usecase/retentionsvc"
)

type resource struct {
	retention *retentionsvc.UseCase
}

// Register wires the retention REST APIs onto r, both gated by the
// global "retention.manage" permission since a cleanup run (even in
// dry-run mode) is an administrative action over the whole catalog,
// not a single ACL-scoped resource.
func Register(r *gin.RouterGroup, retention *retentionsvc.UseCase, authzUC *authzsvc.UseCase) {
	rs := &resource{retention: retention}
	r.POST("retention/configurations/cleanup", authnmw.RequirePermission(authzUC, "retention.manage"), rs.CleanupConfigurations)
	r.POST("retention/parameters/cleanup", authnmw.RequirePermission(authzUC, "retention.manage"), rs.CleanupParameters)
}

func (rs *resource) CleanupConfigurations(c *gin.Context) {
	req, ok := rs.DserCleanupReq(c)
	if !ok {
		return
	}
	plan, err := rs.retention.PlanConfigurations(c, req.KeepVersions, req.KeepDays, time.Now())
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	result, err := rs.retention.ExecuteConfigurations(c, plan, req.DryRun)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (rs *resource) CleanupParameters(c *gin.Context) {
	req, ok := rs.DserCleanupReq(c)
	if !ok {
		return
	}
	plan, err := rs.retention.PlanParameters(c, req.KeepVersions, req.KeepDays, time.Now())
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	result, err := rs.retention.ExecuteParameters(c, plan, req.DryRun)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

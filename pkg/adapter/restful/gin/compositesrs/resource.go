// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package compositesrs realizes the composite-configurations resource,
// the parallel REST surface to configurationsrs for
// CompositeConfiguration and its child item lists.
package compositesrs

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/authnmw"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/serdser"
	"github.com/opendsc/opendsc/pkg/core/authz"
	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/core/usecase/authzsvc"
	"github.com/opendsc/opendsc/pkg/core/usecase/compositesvc"
	"github.com/opendsc/opendsc/pkg/core/usecase/configsvc"
)

type resource struct {
	composites *compositesvc.UseCase
	configs    *configsvc.UseCase
	authz      *authzsvc.UseCase
}

// Register wires the CompositeConfiguration REST APIs onto r. Create
// and List are gated by the global "composite-configurations.read"/
// "composite-configurations.manage" permissions; every route acting on
// a specific CompositeConfiguration is gated by an inline
// authnmw.Authorize call once its ID is known, honoring the
// "composite-configurations.admin-override" bypass and the resource's
// own ACL.
func Register(r *gin.RouterGroup, composites *compositesvc.UseCase, configs *configsvc.UseCase, authzUC *authzsvc.UseCase) {
	rs := &resource{composites: composites, configs: configs, authz: authzUC}
	r.POST("composite-configurations", authnmw.RequirePermission(authzUC, "composite-configurations.manage"), rs.Create)
	r.GET("composite-configurations", authnmw.RequirePermission(authzUC, "composite-configurations.read"), rs.List)
	r.GET("composite-configurations/:name", rs.Get)
	r.DELETE("composite-configurations/:name", rs.Delete)
	r.POST("composite-configurations/:name/versions", rs.CreateVersion)
	r.GET("composite-configurations/:name/versions", rs.Versions)
	r.PUT("composite-configurations/:name/versions/:version/publish", rs.Publish)
	r.DELETE("composite-configurations/:name/versions/:version", rs.ArchiveVersion)
}

func (rs *resource) authorize(c *gin.Context, ccID string, required model.AccessLevel) bool {
	return authnmw.Authorize(c, rs.authz, authz.Request{
		GlobalPermission: "composite-configurations.admin-override",
		Resource:         &authz.ResourceRef{Kind: model.ResourceCompositeConfig, ID: ccID},
		Required:         required,
	})
}

func (rs *resource) Create(c *gin.Context) {
	req, ok := rs.DserCreateReq(c)
	if !ok {
		return
	}
	cc, err := rs.composites.Create(c, req.Name, req.Description, req.EntryPoint, req.now)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, cc)
}

func (rs *resource) List(c *gin.Context) {
	ccs, err := rs.composites.List(c)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, ccs)
}

func (rs *resource) Get(c *gin.Context) {
	cc, err := rs.composites.ByName(c, c.Param("name"))
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	if !rs.authorize(c, cc.ID, model.AccessRead) {
		return
	}
	c.JSON(http.StatusOK, cc)
}

func (rs *resource) Delete(c *gin.Context) {
	cc, err := rs.composites.ByName(c, c.Param("name"))
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	if !rs.authorize(c, cc.ID, model.AccessManage) {
		return
	}
	if err := rs.composites.Delete(c, cc.ID); err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (rs *resource) CreateVersion(c *gin.Context) {
	cc, err := rs.composites.ByName(c, c.Param("name"))
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	if !rs.authorize(c, cc.ID, model.AccessModify) {
		return
	}
	in, ok := rs.DserCreateVersionReq(c, cc.ID)
	if !ok {
		return
	}
	v, err := rs.composites.CreateVersion(c, *in)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (rs *resource) Versions(c *gin.Context) {
	cc, err := rs.composites.ByName(c, c.Param("name"))
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	if !rs.authorize(c, cc.ID, model.AccessRead) {
		return
	}
	versions, err := rs.composites.Versions(c, cc.ID)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, versions)
}

func (rs *resource) Publish(c *gin.Context) {
	versionID, ok := rs.resolveVersionID(c, model.AccessModify)
	if !ok {
		return
	}
	if err := rs.composites.Publish(c, versionID); err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (rs *resource) ArchiveVersion(c *gin.Context) {
	versionID, ok := rs.resolveVersionID(c, model.AccessModify)
	if !ok {
		return
	}
	if err := rs.composites.ArchiveVersion(c, versionID); err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (rs *resource) resolveVersionID(c *gin.Context, required model.AccessLevel) (string, bool) {
	cc, err := rs.composites.ByName(c, c.Param("name"))
	if err != nil {
		serdser.SerErr(c, err)
		return "", false
	}
	if !rs.authorize(c, cc.ID, required) {
		return "", false
	}
	versions, err := rs.composites.Versions(c, cc.ID)
	if err != nil {
		serdser.SerErr(c, err)
		return "", false
	}
	want := c.Param("version")
	for _, v := range versions {
		if v.Version.String() == want {
			return v.ID, true
		}
	}
	serdser.SerErr(c, errVersionNotFound(want))
	return "", false
}

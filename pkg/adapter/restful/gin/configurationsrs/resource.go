// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package configurationsrs realizes the configurations resource,
// adapting the Configuration catalog REST APIs to configsvc.
package configurationsrs

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/authnmw"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/serdser"
	"github.com/opendsc/opendsc/pkg/core/authz"
	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/core/usecase/authzsvc"
	"github.com/opendsc/opendsc/pkg/core/usecase/configsvc"
)

type resource struct {
	configs *configsvc.UseCase
	authz   *authzsvc.UseCase
}

// Register wires the Configuration catalog REST APIs onto r:
//  1. POST   configurations                          create a Configuration
//  2. GET    configurations                           list Configurations
//  3. GET    configurations/:name                     fetch one by name
//  4. DELETE configurations/:name                     delete (blocked if in use)
//  5. POST   configurations/:name/versions            upload a new version
//  6. GET    configurations/:name/versions             list versions
//  7. PUT    configurations/:name/versions/:version/publish   publish a draft
//  8. DELETE configurations/:name/versions/:version    delete a version
//
// Create and List are gated by the global "configurations.read"/
// "configurations.manage" permissions; the remaining routes, Get
// included, act on a specific Configuration, so they are gated by an inline
// authnmw.Authorize call once the resource's ID is known, honoring the
// "configurations.admin-override" bypass and the per-Configuration ACL.
func Register(r *gin.RouterGroup, configs *configsvc.UseCase, authzUC *authzsvc.UseCase) {
	rs := &resource{configs: configs, authz: authzUC}
	r.POST("configurations", authnmw.RequirePermission(authzUC, "configurations.manage"), rs.Create)
	r.GET("configurations", authnmw.RequirePermission(authzUC, "configurations.read"), rs.List)
	r.GET("configurations/:name", rs.Get)
	r.DELETE("configurations/:name", rs.Delete)
	r.POST("configurations/:name/versions", rs.UploadVersion)
	r.GET("configurations/:name/versions", rs.Versions)
	r.PUT("configurations/:name/versions/:version/publish", rs.Publish)
	r.DELETE("configurations/:name/versions/:version", rs.DeleteVersion)
}

// authorize checks req against the ID of the named Configuration,
// falling through to the "configurations.admin-override" global
// permission and then the resource's own ACL.
func (rs *resource) authorize(c *gin.Context, cfgID string, required model.AccessLevel) bool {
	return authnmw.Authorize(c, rs.authz, authz.Request{
		GlobalPermission: "configurations.admin-override",
		Resource:         &authz.ResourceRef{Kind: model.ResourceConfiguration, ID: cfgID},
		Required:         required,
	})
}

func (rs *resource) Create(c *gin.Context) {
	req, ok := rs.DserCreateReq(c)
	if !ok {
		return
	}
	cfg, err := rs.configs.Create(c, req.Name, req.Description, req.EntryPoint, req.IsServerManaged, req.now)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, cfg)
}

func (rs *resource) List(c *gin.Context) {
	cfgs, err := rs.configs.List(c)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, cfgs)
}

func (rs *resource) Get(c *gin.Context) {
	cfg, err := rs.configs.ByName(c, c.Param("name"))
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	if !rs.authorize(c, cfg.ID, model.AccessRead) {
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (rs *resource) Delete(c *gin.Context) {
	cfg, err := rs.configs.ByName(c, c.Param("name"))
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	if !rs.authorize(c, cfg.ID, model.AccessManage) {
		return
	}
	if err := rs.configs.Delete(c, cfg.ID); err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (rs *resource) UploadVersion(c *gin.Context) {
	cfg, err := rs.configs.ByName(c, c.Param("name"))
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	if !rs.authorize(c, cfg.ID, model.AccessModify) {
		return
	}
	req, ok := rs.DserUploadVersionReq(c, cfg.ID)
	if !ok {
		return
	}
	v, err := rs.configs.UploadVersion(c, *req)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (rs *resource) Versions(c *gin.Context) {
	cfg, err := rs.configs.ByName(c, c.Param("name"))
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	if !rs.authorize(c, cfg.ID, model.AccessRead) {
		return
	}
	versions, err := rs.configs.Versions(c, cfg.ID)
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
	if err := rs.configs.Publish(c, versionID); err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (rs *resource) DeleteVersion(c *gin.Context) {
	versionID, ok := rs.resolveVersionID(c, model.AccessModify)
	if !ok {
		return
	}
	if err := rs.configs.DeleteVersion(c, versionID); err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// resolveVersionID loads the Configuration by :name, authorizes
// required against it, and returns the ID of the version matching
// :version.
func (rs *resource) resolveVersionID(c *gin.Context, required model.AccessLevel) (string, bool) {
	cfg, err := rs.configs.ByName(c, c.Param("name"))
	if err != nil {
		serdser.SerErr(c, err)
		return "", false
	}
	if !rs.authorize(c, cfg.ID, required) {
		return "", false
	}
	versions, err := rs.configs.Versions(c, cfg.ID)
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

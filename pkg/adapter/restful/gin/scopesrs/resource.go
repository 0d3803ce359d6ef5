// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package scopesrs realizes the scope metadata resource: ScopeType and
// ScopeValue CRUD.
package scopesrs

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/authnmw"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/serdser"
	"github.com/opendsc/opendsc/pkg/core/usecase/authzsvc"
	"github.com/opendsc/opendsc/pkg/core/usecase/scopesvc"
)

type resource struct {
	scopes *scopesvc.UseCase
}

// Register wires the scope metadata REST APIs onto r. ScopeType and
// ScopeValue are not ACL-scoped resources per the authorization model,
// so every route is gated by the global "scopes.read"/"scopes.manage"
// permission alone.
func Register(r *gin.RouterGroup, scopes *scopesvc.UseCase, authzUC *authzsvc.UseCase) {
	rs := &resource{scopes: scopes}
	r.POST("scope-types", authnmw.RequirePermission(authzUC, "scopes.manage"), rs.CreateType)
	r.GET("scope-types", authnmw.RequirePermission(authzUC, "scopes.read"), rs.Types)
	r.DELETE("scope-types/:id", authnmw.RequirePermission(authzUC, "scopes.manage"), rs.DeleteType)
	r.POST("scope-types/:id/values", authnmw.RequirePermission(authzUC, "scopes.manage"), rs.CreateValue)
	r.GET("scope-types/:id/values", authnmw.RequirePermission(authzUC, "scopes.read"), rs.Values)
	r.DELETE("scope-types/:id/values/:valueId", authnmw.RequirePermission(authzUC, "scopes.manage"), rs.DeleteValue)
}

func (rs *resource) CreateType(c *gin.Context) {
	req, ok := rs.DserCreateTypeReq(c)
	if !ok {
		return
	}
	st, err := rs.scopes.CreateType(c, req.Name, req.AllowValues)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

func (rs *resource) Types(c *gin.Context) {
	types, err := rs.scopes.Types(c)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, types)
}

func (rs *resource) DeleteType(c *gin.Context) {
	if err := rs.scopes.DeleteType(c, c.Param("id")); err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (rs *resource) CreateValue(c *gin.Context) {
	req, ok := rs.DserCreateValueReq(c)
	if !ok {
		return
	}
	sv, err := rs.scopes.CreateValue(c, c.Param("id"), req.Value)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, sv)
}

func (rs *resource) Values(c *gin.Context) {
	values, err := rs.scopes.Values(c, c.Param("id"))
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, values)
}

func (rs *resource) DeleteValue(c *gin.Context) {
	if err := rs.scopes.DeleteValue(c, c.Param("valueId")); err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

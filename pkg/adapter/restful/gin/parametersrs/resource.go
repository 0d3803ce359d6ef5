// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package parametersrs realizes the parameters resource: ParameterFile
// upload, activation, deletion, and the merge+provenance diagnostic.
package parametersrs

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/authnmw"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/serdser"
	"github.com/opendsc/opendsc/pkg/core/authz"
	"github.com/opendsc/opendsc/pkg/core/cerr"
	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/core/usecase/authzsvc"
	"github.com/opendsc/opendsc/pkg/core/usecase/paramadminsvc"
	"github.com/opendsc/opendsc/pkg/core/usecase/scopesvc"
)

type resource struct {
	params *paramadminsvc.UseCase
	scopes *scopesvc.UseCase
	authz  *authzsvc.UseCase
}

// Register wires the ParameterFile administration REST APIs onto r.
// Every route acts on a specific Configuration's ParameterFile tree,
// so each is gated by an inline authnmw.Authorize call against
// :configId, honoring the "parameters.admin-override" bypass and the
// ParameterFile ACL, which is independent from the underlying
// Configuration's own read/modify ACL.
func Register(r *gin.RouterGroup, params *paramadminsvc.UseCase, scopes *scopesvc.UseCase, authzUC *authzsvc.UseCase) {
	rs := &resource{params: params, scopes: scopes, authz: authzUC}
	r.POST("parameters/:scopeTypeId/:configId", rs.Upload)
	r.GET("parameters/:scopeTypeId/:configId/versions", rs.Versions)
	r.PUT("parameters/:scopeTypeId/:configId/versions/:version/activate", rs.Activate)
	r.DELETE("parameters/:scopeTypeId/:configId/versions/:version", rs.Delete)
	r.GET("parameters/:scopeTypeId/:configId/provenance", rs.Provenance)
}

func (rs *resource) authorize(c *gin.Context, configID string, required model.AccessLevel) bool {
	return authnmw.Authorize(c, rs.authz, authz.Request{
		GlobalPermission: "parameters.admin-override",
		Resource:         &authz.ResourceRef{Kind: model.ResourceParameterFile, ID: configID},
		Required:         required,
	})
}

// resolveScopeValueID maps the "scopeValue" query parameter (a
// ScopeValue's human-readable Value string, empty for the Default
// scope) to its ID within :scopeTypeId.
func (rs *resource) resolveScopeValueID(c *gin.Context) (string, bool) {
	scopeValue := c.Query("scopeValue")
	if scopeValue == "" {
		return "", true
	}
	values, err := rs.scopes.Values(c, c.Param("scopeTypeId"))
	if err != nil {
		serdser.SerErr(c, err)
		return "", false
	}
	for _, v := range values {
		if v.Value == scopeValue {
			return v.ID, true
		}
	}
	serdser.SerErr(c, cerr.NotFound(fmt.Errorf("scope value %q not found", scopeValue)))
	return "", false
}

func (rs *resource) Upload(c *gin.Context) {
	if !rs.authorize(c, c.Param("configId"), model.AccessModify) {
		return
	}
	scopeValueID, ok := rs.resolveScopeValueID(c)
	if !ok {
		return
	}
	in, ok := rs.DserUploadReq(c, c.Param("configId"), c.Param("scopeTypeId"), scopeValueID)
	if !ok {
		return
	}
	f, err := rs.params.Upload(c, *in)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, f)
}

func (rs *resource) Versions(c *gin.Context) {
	if !rs.authorize(c, c.Param("configId"), model.AccessRead) {
		return
	}
	scopeValueID, ok := rs.resolveScopeValueID(c)
	if !ok {
		return
	}
	files, err := rs.params.Versions(c, c.Param("configId"), c.Param("scopeTypeId"), scopeValueID)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, files)
}

func (rs *resource) resolveFileID(c *gin.Context, scopeValueID string) (string, bool) {
	files, err := rs.params.Versions(c, c.Param("configId"), c.Param("scopeTypeId"), scopeValueID)
	if err != nil {
		serdser.SerErr(c, err)
		return "", false
	}
	want := c.Param("version")
	for _, f := range files {
		if f.Version == want {
			return f.ID, true
		}
	}
	serdser.SerErr(c, cerr.NotFound(fmt.Errorf("parameter version %q not found", want)))
	return "", false
}

func (rs *resource) Activate(c *gin.Context) {
	if !rs.authorize(c, c.Param("configId"), model.AccessModify) {
		return
	}
	scopeValueID, ok := rs.resolveScopeValueID(c)
	if !ok {
		return
	}
	fileID, ok := rs.resolveFileID(c, scopeValueID)
	if !ok {
		return
	}
	if err := rs.params.Activate(c, c.Param("configId"), c.Param("scopeTypeId"), scopeValueID, fileID); err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (rs *resource) Delete(c *gin.Context) {
	if !rs.authorize(c, c.Param("configId"), model.AccessModify) {
		return
	}
	scopeValueID, ok := rs.resolveScopeValueID(c)
	if !ok {
		return
	}
	fileID, ok := rs.resolveFileID(c, scopeValueID)
	if !ok {
		return
	}
	if err := rs.params.Delete(c, fileID); err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (rs *resource) Provenance(c *gin.Context) {
	if !rs.authorize(c, c.Param("configId"), model.AccessRead) {
		return
	}
	scopeValueID, ok := rs.resolveScopeValueID(c)
	if !ok {
		return
	}
	diag, err := rs.params.Provenance(c, c.Param("configId"), c.Param("scopeTypeId"), scopeValueID)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, diag)
}

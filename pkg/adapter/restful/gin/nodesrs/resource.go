// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package nodesrs realizes the operator-facing Node management
// resource: listing, deletion, scope tagging, and configuration
// assignment. The node-facing mTLS surface (registration, certificate
// rotation, bundle download, report submission) is served by a
// separate mux outside the operator gin engine and is not part of this
// package.
package nodesrs

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/authnmw"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/serdser"
	"github.com/opendsc/opendsc/pkg/core/usecase/authzsvc"
	"github.com/opendsc/opendsc/pkg/core/usecase/nodesvc"
)

type resource struct {
	nodes *nodesvc.UseCase
}

// Register wires the operator-facing Node management REST APIs onto r.
// Node is not an ACL-scoped resource per the authorization model, so
// every route is gated by the global "nodes.read"/"nodes.manage"
// permission alone.
func Register(r *gin.RouterGroup, nodes *nodesvc.UseCase, authzUC *authzsvc.UseCase) {
	rs := &resource{nodes: nodes}
	r.GET("nodes", authnmw.RequirePermission(authzUC, "nodes.read"), rs.List)
	r.GET("nodes/:id", authnmw.RequirePermission(authzUC, "nodes.read"), rs.Get)
	r.DELETE("nodes/:id", authnmw.RequirePermission(authzUC, "nodes.manage"), rs.Delete)
	r.POST("nodes/:id/tags", authnmw.RequirePermission(authzUC, "nodes.manage"), rs.Tag)
	r.GET("nodes/:id/tags", authnmw.RequirePermission(authzUC, "nodes.read"), rs.Tags)
	r.PUT("nodes/:id/assignment", authnmw.RequirePermission(authzUC, "nodes.manage"), rs.AssignConfiguration)
	r.GET("nodes/:id/assignment", authnmw.RequirePermission(authzUC, "nodes.read"), rs.GetAssignment)
}

func (rs *resource) List(c *gin.Context) {
	nodes, err := rs.nodes.List(c)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, nodes)
}

func (rs *resource) Get(c *gin.Context) {
	n, err := rs.nodes.Get(c, c.Param("id"))
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (rs *resource) Delete(c *gin.Context) {
	if err := rs.nodes.Delete(c, c.Param("id")); err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (rs *resource) Tag(c *gin.Context) {
	req, ok := rs.DserTagReq(c)
	if !ok {
		return
	}
	if err := rs.nodes.Tag(c, c.Param("id"), req.ScopeValueID); err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (rs *resource) Tags(c *gin.Context) {
	tags, err := rs.nodes.Tags(c, c.Param("id"))
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

func (rs *resource) AssignConfiguration(c *gin.Context) {
	in, ok := rs.DserAssignReq(c, c.Param("id"))
	if !ok {
		return
	}
	nc, err := rs.nodes.AssignConfiguration(c, *in)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, nc)
}

func (rs *resource) GetAssignment(c *gin.Context) {
	nc, err := rs.nodes.NodeConfiguration(c, c.Param("id"))
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, nc)
}

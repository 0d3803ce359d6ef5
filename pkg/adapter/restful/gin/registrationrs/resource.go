// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package registrationrs realizes the operator-facing registration key
// management resource: issuing the short-lived, out-of-band secrets a
// node presents once to `POST /nodes/register` on the node-facing mux.
package registrationrs

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/authnmw"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/serdser"
	"github.com/opendsc/opendsc/pkg/core/usecase/authzsvc"
	"github.com/opendsc/opendsc/pkg/core/usecase/registrationsvc"
)

type resource struct {
	reg *registrationsvc.UseCase
}

// Register wires the registration key REST API onto r, gated by the
// global "registration-keys.manage" permission: issuing a key is part
// of Node lifecycle administration, not an action on an ACL-scoped
// resource.
func Register(r *gin.RouterGroup, reg *registrationsvc.UseCase, authzUC *authzsvc.UseCase) {
	rs := &resource{reg: reg}
	r.POST("registration-keys", authnmw.RequirePermission(authzUC, "registration-keys.manage"), rs.Create)
}

func (rs *resource) Create(c *gin.Context) {
	req, ok := rs.DserCreateReq(c)
	if !ok {
		return
	}
	token, err := newToken()
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	k, err := rs.reg.CreateRegistrationKey(c, token, req.createdBy, req.ExpiresAt, req.MaxUses)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, k)
}

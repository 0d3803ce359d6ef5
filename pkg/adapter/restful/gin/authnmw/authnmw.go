// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package authnmw is the gin middleware guarding the operator-facing
// REST API: it resolves a session cookie or bearer personal access
// token to a model.User and, optionally, checks a route's required
// global permission against authzsvc. It mirrors
// pkg/adapter/restful/mux/nodemux's authenticated middleware, adapted
// from mTLS fingerprint matching to cookie/bearer-token resolution
// since operators and nodes are different trust domains with different
// credential shapes.
package authnmw

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/opctx"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/serdser"
	"github.com/opendsc/opendsc/pkg/core/authz"
	"github.com/opendsc/opendsc/pkg/core/cerr"
	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/core/usecase/authnsvc"
	"github.com/opendsc/opendsc/pkg/core/usecase/authzsvc"
)

// SessionCookieName is the cookie carrying a Session's bearer token.
const SessionCookieName = "opendsc_session"

type userKeyType struct{}

var userKey = userKeyType{}

// Authenticated resolves the caller's identity from a bearer personal
// access token (checked first, since it is the unambiguous credential)
// or the session cookie, storing the resolved *model.User in the gin
// context for downstream handlers and for RequirePermission. Requests
// presenting neither are rejected with 401 before any handler runs.
func Authenticated(authn *authnsvc.UseCase) gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now()
		var (
			user *model.User
			err  error
		)
		switch {
		case bearerToken(c.Request) != "":
			user, err = authn.AuthenticatePAT(c.Request.Context(), bearerToken(c.Request), now)
		default:
			cookie, cookieErr := c.Request.Cookie(SessionCookieName)
			if cookieErr != nil {
				serdser.SerErr(c, cerr.Authentication(http.ErrNoCookie))
				c.Abort()
				return
			}
			user, err = authn.AuthenticateSession(c.Request.Context(), cookie.Value, now)
		}
		if err != nil {
			serdser.SerErr(c, err)
			c.Abort()
			return
		}
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), userKey, user))
		opctx.SetUserID(c, user.ID)
		c.Next()
	}
}

// RequirePermission returns a middleware run after Authenticated that
// denies the request with 403 unless the authenticated caller holds
// perm, per authzsvc.
func RequirePermission(authzUC *authzsvc.UseCase, perm string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := UserFromContext(c.Request.Context())
		if user == nil {
			serdser.SerErr(c, cerr.Authentication(http.ErrNoCookie))
			c.Abort()
			return
		}
		req := authz.Request{GlobalPermission: perm}
		if err := authzUC.Authorize(c.Request.Context(), user.ID, req); err != nil {
			serdser.SerErr(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserFromContext returns the *model.User stashed by Authenticated,
// or nil if ctx carries none.
func UserFromContext(ctx context.Context) *model.User {
	u, _ := ctx.Value(userKey).(*model.User)
	return u
}

// Authorize runs req against the authenticated caller stashed by
// Authenticated, serializing and aborting on denial. Resource packages
// call this inline, after resolving a path parameter to a resource ID,
// for the ACL-scoped checks that RequirePermission cannot express as a
// route-level middleware. It reports whether the caller may proceed.
func Authorize(c *gin.Context, authzUC *authzsvc.UseCase, req authz.Request) bool {
	user := UserFromContext(c.Request.Context())
	if user == nil {
		serdser.SerErr(c, cerr.Authentication(http.ErrNoCookie))
		c.Abort()
		return false
	}
	if err := authzUC.Authorize(c.Request.Context(), user.ID, req); err != nil {
		serdser.SerErr(c, err)
		c.Abort()
		return false
	}
	return true
}

// bearerToken extracts the token from an "Authorization: Bearer ..."
// header, or "" if absent or malformed.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimPrefix(h, prefix)
}

// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package opctx carries the authenticated operator's identity from the
// session/PAT authentication middleware to resource handlers, without
// every resource package needing to know how that identity was
// established.
package opctx

import "github.com/gin-gonic/gin"

const userIDKey = "opendsc.operator.user_id"

// SetUserID records the authenticated operator's user ID on c, for
// retrieval by UserID further down the middleware chain.
func SetUserID(c *gin.Context, userID string) {
	c.Set(userIDKey, userID)
}

// UserID returns the authenticated operator's user ID set earlier by
// the authentication middleware, or ("", false) if none was set (the
// request reached a handler without passing through it).
func UserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

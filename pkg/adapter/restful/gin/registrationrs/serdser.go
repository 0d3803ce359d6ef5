// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package registrationrs

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/opctx"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/serdser"
)

type rawCreateReq struct {
	ExpiresAt time.Time `json:"expiresAt" binding:"required"`
	MaxUses   *int      `json:"maxUses"`
}

type createReq struct {
	rawCreateReq
	createdBy string
}

func (rs *resource) DserCreateReq(c *gin.Context) (*createReq, bool) {
	req := &createReq{}
	if ok := serdser.Bind(c, &req.rawCreateReq, binding.JSON); !ok {
		return nil, false
	}
	req.createdBy, _ = opctx.UserID(c)
	return req, true
}

// newToken generates a cryptographically random, hex-encoded
// registration secret. There is no corpus library for bearer-token
// generation (google/uuid identifies records, not secrets), so this
// uses crypto/rand directly.
func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand.Read: %w", err)
	}
	return hex.EncodeToString(b), nil
}

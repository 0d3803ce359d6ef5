// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package configurationsrs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/opctx"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/serdser"
	"github.com/opendsc/opendsc/pkg/core/cerr"
	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/core/usecase/configsvc"
)

func errVersionNotFound(version string) error {
	return cerr.NotFound(fmt.Errorf("version %q not found", version))
}

// operatorUserID returns the authenticated operator's user ID, or ""
// when no authentication middleware set one (e.g. in unit tests that
// call handlers directly).
func operatorUserID(c *gin.Context) string {
	id, _ := opctx.UserID(c)
	return id
}

type rawCreateReq struct {
	Name            string `json:"name" binding:"required"`
	Description     string `json:"description"`
	EntryPoint      string `json:"entryPoint" binding:"required"`
	IsServerManaged bool   `json:"isServerManaged"`
}

type createReq struct {
	rawCreateReq
	now time.Time
}

func (rs *resource) DserCreateReq(c *gin.Context) (*createReq, bool) {
	raw := &rawCreateReq{}
	if ok := serdser.Bind(c, raw, binding.JSON); !ok {
		return nil, false
	}
	return &createReq{rawCreateReq: *raw, now: time.Now()}, true
}

// DserUploadVersionReq parses a multipart upload: a required "version"
// form field, an optional "enforceSemVer" flag, and one or more "files"
// parts whose filename becomes the ConfigurationFile's relative path.
// No "isDraft" field is read: every upload creates a draft, and
// publishing is a separate step.
func (rs *resource) DserUploadVersionReq(c *gin.Context, configurationID string) (*configsvc.UploadVersionInput, bool) {
	form, err := c.MultipartForm()
	if err != nil {
		serdser.SerErr(c, cerr.BadRequest(fmt.Errorf("parse multipart form: %w", err)))
		return nil, false
	}
	versionVals := form.Value["version"]
	if len(versionVals) != 1 {
		serdser.SerValidationErrs(c, map[string][]string{"version": {"exactly one version field is required"}})
		return nil, false
	}
	version, err := model.ParseSemVer(versionVals[0])
	if err != nil {
		serdser.SerValidationErrs(c, map[string][]string{"version": {err.Error()}})
		return nil, false
	}
	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		serdser.SerValidationErrs(c, map[string][]string{"files": {"at least one file is required"}})
		return nil, false
	}
	files := make([]*model.ConfigurationFile, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			serdser.SerErr(c, cerr.BadRequest(fmt.Errorf("open uploaded file %q: %w", fh.Filename, err)))
			return nil, false
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			serdser.SerErr(c, cerr.BadRequest(fmt.Errorf("read uploaded file %q: %w", fh.Filename, err)))
			return nil, false
		}
		sum := sha256.Sum256(content)
		files = append(files, &model.ConfigurationFile{
			Path:    fh.Filename,
			Content: content,
			SHA256:  hex.EncodeToString(sum[:]),
		})
	}
	enforce := false
	if vals := form.Value["enforceSemVer"]; len(vals) == 1 {
		enforce = vals[0] == "true"
	}
	return &configsvc.UploadVersionInput{
		ConfigurationID: configurationID,
		Version:         version,
		Files:           files,
		CreatedBy:       operatorUserID(c),
		EnforceSemVer:   enforce,
		Now:             time.Now(),
	}, true
}

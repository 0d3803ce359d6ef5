// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package parametersrs

import (
	"fmt"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/serdser"
	"github.com/opendsc/opendsc/pkg/core/cerr"
	"github.com/opendsc/opendsc/pkg/core/usecase/paramadminsvc"
)

// DserUploadReq parses a multipart upload: a required "version" label
// and a required "content" file part, whose format is taken from the
// "contentType" form field ("yaml" or "json"; default "yaml").
func (rs *resource) DserUploadReq(c *gin.Context, configurationID, scopeTypeID, scopeValueID string) (*paramadminsvc.UploadInput, bool) {
	form, err := c.MultipartForm()
	if err != nil {
		serdser.SerErr(c, cerr.BadRequest(fmt.Errorf("parse multipart form: %w", err)))
		return nil, false
	}
	versionVals := form.Value["version"]
	if len(versionVals) != 1 || versionVals[0] == "" {
		serdser.SerValidationErrs(c, map[string][]string{"version": {"a version label is required"}})
		return nil, false
	}
	contentType := "yaml"
	if vals := form.Value["contentType"]; len(vals) == 1 && vals[0] != "" {
		if vals[0] != "yaml" && vals[0] != "json" {
			serdser.SerValidationErrs(c, map[string][]string{"contentType": {"must be yaml or json"}})
			return nil, false
		}
		contentType = vals[0]
	}
	fileHeaders := form.File["content"]
	if len(fileHeaders) != 1 {
		serdser.SerValidationErrs(c, map[string][]string{"content": {"exactly one content file part is required"}})
		return nil, false
	}
	fh := fileHeaders[0]
	f, err := fh.Open()
	if err != nil {
		serdser.SerErr(c, cerr.BadRequest(fmt.Errorf("open uploaded content: %w", err)))
		return nil, false
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		serdser.SerErr(c, cerr.BadRequest(fmt.Errorf("read uploaded content: %w", err)))
		return nil, false
	}
	return &paramadminsvc.UploadInput{
		ConfigurationID: configurationID,
		ScopeTypeID:     scopeTypeID,
		ScopeValueID:    scopeValueID,
		Version:         versionVals[0],
		Content:         content,
		ContentType:     contentType,
	}, true
}

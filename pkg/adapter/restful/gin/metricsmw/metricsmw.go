// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package metricsmw adapts pkg/adapter/metrics into a gin middleware.
package metricsmw

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opendsc/opendsc/pkg/adapter/metrics"
)

// Middleware records one HTTPRequestsTotal/HTTPRequestDuration
// observation per request, labeled by the matched route pattern rather
// than the raw path so that path parameters do not explode cardinality.
func Middleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

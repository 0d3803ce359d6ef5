// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package config_test

import (
	"testing"

	"github.com/opendsc/opendsc/pkg/adapter/config"
	"github.com/stretchr/testify/require"
)

func TestLoadParsesProvidedFields(t *testing.T) {
	data := []byte(`
database:
  host: db.internal
  port: 5432
  name: opendsc
  user: opendsc
  password: secret
  ssl-mode: require
gin:
  addr: ":9000"
  logger: true
  recovery: true
node:
  addr: ":9443"
  ca-file: /etc/opendsc/ca.pem
  crt-file: /etc/opendsc/server.pem
  key-file: /etc/opendsc/server.key
retention:
  keep-versions: 10
  keep-days: 720h
`)
	c, err := config.Load(data)
	require.NoError(t, err)
	require.Equal(t, "db.internal", c.Database.Host)
	require.Equal(t, 5432, c.Database.Port)
	require.Equal(t, "require", c.Database.SSLMode)
	require.Equal(t, ":9000", c.Gin.Addr)
	require.True(t, c.Gin.Logger)
	require.Equal(t, ":9443", c.Node.Addr)
	require.Equal(t, "/etc/opendsc/ca.pem", c.Node.CAFile)
	require.Equal(t, 10, c.Retention.KeepVersions)
}

func TestLoadFillsDefaultsForOmittedFields(t *testing.T) {
	c, err := config.Load([]byte(`database:
  host: localhost
  port: 5432
  name: opendsc
`))
	require.NoError(t, err)
	require.Equal(t, ":8080", c.Gin.Addr)
	require.Equal(t, ":8443", c.Node.Addr)
	require.Equal(t, 5, c.Retention.KeepVersions)
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	_, err := config.Load([]byte("database: [this is not a mapping"))
	require.Error(t, err)
}

// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opendsc/opendsc/pkg/lcm/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadUsesBuiltInDefaults(t *testing.T) {
	c, err := config.Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, config.ModeMonitor, c.LCM.ConfigurationMode)
	assert.Equal(t, config.SourceLocal, c.LCM.ConfigurationSource)
	assert.Equal(t, 15*time.Minute, c.LCM.ConfigurationModeInterval)
}

func TestLoadMergesExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "appsettings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"lcm": {
			"configuration-mode": "Remediate",
			"configuration-source": "Pull",
			"configuration-mode-interval": "30s",
			"pull-server": {
				"server-url": "https://pullserver.example.com",
				"certificate-source": "Managed"
			}
		}
	}`), 0o600))

	c, err := config.Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, config.ModeRemediate, c.LCM.ConfigurationMode)
	assert.Equal(t, config.SourcePull, c.LCM.ConfigurationSource)
	assert.Equal(t, 30*time.Second, c.LCM.ConfigurationModeInterval)
	assert.Equal(t, "https://pullserver.example.com", c.LCM.PullServer.ServerURL)
	assert.True(t, c.LCM.PullServer.ReportCompliance, "unset fields should retain built-in defaults")
}

func TestLoadEnvironmentVariableOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "appsettings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"lcm": {"configuration-mode": "Monitor"}}`), 0o600))

	t.Setenv("LCM_LCM_CONFIGURATION_MODE", "Remediate")

	c, err := config.Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, config.ModeRemediate, c.LCM.ConfigurationMode)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "appsettings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))

	_, err := config.Load(path, nil)
	assert.Error(t, err)
}

func TestValidateRejectsInvalidMode(t *testing.T) {
	c := &config.Config{LCM: config.LCM{
		ConfigurationMode:         "Bogus",
		ConfigurationSource:       config.SourceLocal,
		ConfigurationModeInterval: time.Minute,
	}}
	assert.Error(t, c.Validate())
}

func TestValidateRejectsZeroInterval(t *testing.T) {
	c := &config.Config{LCM: config.LCM{
		ConfigurationMode:   config.ModeMonitor,
		ConfigurationSource: config.SourceLocal,
	}}
	assert.Error(t, c.Validate())
}

func TestValidateRequiresServerURLForPullSource(t *testing.T) {
	c := &config.Config{LCM: config.LCM{
		ConfigurationMode:         config.ModeMonitor,
		ConfigurationSource:       config.SourcePull,
		ConfigurationModeInterval: time.Minute,
		PullServer: config.PullServer{
			CertificateSource: config.CertificateSourceManaged,
		},
	}}
	assert.Error(t, c.Validate())
}

func TestValidateAcceptsWellFormedPullConfig(t *testing.T) {
	c := &config.Config{LCM: config.LCM{
		ConfigurationMode:         config.ModeRemediate,
		ConfigurationSource:       config.SourcePull,
		ConfigurationModeInterval: time.Minute,
		PullServer: config.PullServer{
			ServerURL:         "https://pullserver.example.com",
			CertificateSource: config.CertificateSourceManaged,
		},
	}}
	assert.NoError(t, c.Validate())
}

func TestPlatformConfigPathIsNonEmpty(t *testing.T) {
	assert.NotEmpty(t, config.PlatformConfigPath())
}

func TestWatchReloadsOnFileChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "appsettings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"lcm": {"configuration-mode": "Monitor"}}`), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan *config.Config, 1)
	invalid := make(chan error, 1)
	go func() {
		_ = config.Watch(ctx, path, path, nil, func(c *config.Config) {
			changed <- c
		}, func(err error) {
			invalid <- err
		})
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(`{"lcm": {"configuration-mode": "Remediate"}}`), 0o600))

	select {
	case c := <-changed:
		assert.Equal(t, config.ModeRemediate, c.LCM.ConfigurationMode)
	case err := <-invalid:
		t.Fatalf("expected a valid reload, got error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatchReportsInvalidReloadWithoutCallingOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "appsettings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"lcm": {"configuration-mode": "Monitor"}}`), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan *config.Config, 1)
	invalid := make(chan error, 1)
	go func() {
		_ = config.Watch(ctx, path, path, nil, func(c *config.Config) {
			changed <- c
		}, func(err error) {
			invalid <- err
		})
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))

	select {
	case <-invalid:
	case c := <-changed:
		t.Fatalf("expected invalid reload to be rejected, got config: %+v", c)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for invalid-reload callback")
	}
}

// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package certmgr_test

import (
	"os"
	"testing"
	"time"

	"github.com/opendsc/opendsc/pkg/lcm/certmgr"
	"github.com/opendsc/opendsc/pkg/lcm/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func managedConfig() config.PullServer {
	return config.PullServer{CertificateSource: config.CertificateSourceManaged}
}

func TestLoadGeneratesAndPersistsManagedCertificate(t *testing.T) {
	dir := t.TempDir()
	m, err := certmgr.Load(managedConfig(), dir)
	require.NoError(t, err)
	assert.NotEmpty(t, m.Current().Certificate)
}

func TestLoadReusesPersistedManagedCertificate(t *testing.T) {
	dir := t.TempDir()
	first, err := certmgr.Load(managedConfig(), dir)
	require.NoError(t, err)
	firstCert := first.Current()

	second, err := certmgr.Load(managedConfig(), dir)
	require.NoError(t, err)
	secondCert := second.Current()

	assert.Equal(t, firstCert.Certificate, secondCert.Certificate)
}

func TestShouldRotateFalseForFreshCertificate(t *testing.T) {
	dir := t.TempDir()
	m, err := certmgr.Load(managedConfig(), dir)
	require.NoError(t, err)
	assert.False(t, m.ShouldRotate(time.Now()))
}

func TestShouldRotateTrueAfterTwoThirdsLifetime(t *testing.T) {
	dir := t.TempDir()
	m, err := certmgr.Load(managedConfig(), dir)
	require.NoError(t, err)
	assert.True(t, m.ShouldRotate(time.Now().Add(100*24*time.Hour)))
}

func TestShouldRotateFalseForPlatformSource(t *testing.T) {
	dir := t.TempDir()
	certPEM, keyPEM, _, err := (&certmgr.Manager{}).GenerateCandidate("platform-node")
	require.NoError(t, err)

	certPath := dir + "/combined.pem"
	require.NoError(t, os.WriteFile(certPath, append(certPEM, keyPEM...), 0o600))

	m, err := certmgr.Load(config.PullServer{
		CertificateSource: config.CertificateSourcePlatform,
		CertificatePath:   certPath,
	}, dir)
	require.NoError(t, err)
	assert.False(t, m.ShouldRotate(time.Now().Add(365*24*time.Hour)))
}

func TestGenerateCandidateAndAcceptRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m, err := certmgr.Load(managedConfig(), dir)
	require.NoError(t, err)
	before := m.Current()

	certPEM, keyPEM, notAfter, err := m.GenerateCandidate("node-123")
	require.NoError(t, err)
	assert.NotEmpty(t, certPEM)
	assert.NotEmpty(t, keyPEM)
	assert.True(t, notAfter.After(time.Now()))

	require.NoError(t, m.Accept(certPEM, keyPEM, notAfter))
	after := m.Current()
	assert.NotEqual(t, before.Certificate, after.Certificate)
}

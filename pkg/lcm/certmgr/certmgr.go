// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package certmgr manages the LCM's mTLS client certificate: loading a
// platform-supplied certificate as-is, or generating and persisting a
// self-signed one, and deciding when it is due for rotation.
package certmgr

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/opendsc/opendsc/pkg/lcm/config"
)

// managedLifetime is the validity period given to a self-signed
// certificate generated by the Manager. Rotation is scheduled well
// before this elapses (see ShouldRotate), so the exact value only
// bounds the worst case if rotation is somehow skipped for a long
// time.
const managedLifetime = 90 * 24 * time.Hour

// Manager owns the LCM's current client certificate and decides when
// it must be rotated.
type Manager struct {
	source   config.CertificateSource
	certPath string
	keyPath  string

	mu        sync.RWMutex
	cert      tls.Certificate
	notBefore time.Time
	notAfter  time.Time
}

// Load builds a Manager from cfg. For CertificateSourcePlatform, the
// certificate and key are both read, unencrypted, from the single
// concatenated PEM file at cfg.CertificatePath; cfg.CertificatePassword
// is not used. For CertificateSourceManaged, an existing
// certificate is loaded from dataDir if present, otherwise a new one
// is generated and persisted.
func Load(cfg config.PullServer, dataDir string) (*Manager, error) {
	m := &Manager{source: cfg.CertificateSource}
	switch cfg.CertificateSource {
	case config.CertificateSourcePlatform:
		m.certPath = cfg.CertificatePath
		m.keyPath = cfg.CertificatePath
		cert, notBefore, notAfter, err := loadPEMPair(cfg.CertificatePath, cfg.CertificatePath)
		if err != nil {
			return nil, fmt.Errorf("loading platform certificate: %w", err)
		}
		m.cert, m.notBefore, m.notAfter = cert, notBefore, notAfter
		return m, nil
	case config.CertificateSourceManaged:
		m.certPath = filepath.Join(dataDir, "client.crt")
		m.keyPath = filepath.Join(dataDir, "client.key")
		if _, err := os.Stat(m.certPath); err == nil {
			cert, notBefore, notAfter, err := loadPEMPair(m.certPath, m.keyPath)
			if err != nil {
				return nil, fmt.Errorf("loading managed certificate: %w", err)
			}
			m.cert, m.notBefore, m.notAfter = cert, notBefore, notAfter
			return m, nil
		}
		if err := m.generateAndPersist(); err != nil {
			return nil, fmt.Errorf("generating managed certificate: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported certificate source %q", cfg.CertificateSource)
	}
}

// Current returns the presently active client certificate for use in
// an http.Transport's TLS configuration.
func (m *Manager) Current() tls.Certificate {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cert
}

// ShouldRotate reports whether the current certificate has reached
// two thirds of its validity lifetime at instant now, per the Pull
// Client refresh credential rotation schedule. Platform-sourced
// certificates are never rotated by the LCM; that is the platform's
// responsibility.
func (m *Manager) ShouldRotate(now time.Time) bool {
	if m.source != config.CertificateSourceManaged {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	lifetime := m.notAfter.Sub(m.notBefore)
	threshold := m.notBefore.Add(lifetime * 2 / 3)
	return !now.Before(threshold)
}

// GenerateCandidate builds a fresh self-signed certificate/key pair
// without yet making it the active one, returning its PEM encoding for
// submission to the Pull Server's rotate-certificate endpoint. Call
// Accept once the server has confirmed the new certificate.
func (m *Manager) GenerateCandidate(commonName string) (certPEM, keyPEM []byte, notAfter time.Time, err error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, time.Time{}, fmt.Errorf("generating key: %w", err)
	}
	notBefore := time.Now()
	notAfter = notBefore.Add(managedLifetime)
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, nil, time.Time{}, fmt.Errorf("generating serial: %w", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    notBefore,
		NotAfter:     notAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, nil, time.Time{}, fmt.Errorf("creating certificate: %w", err)
	}
	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	return certPEM, keyPEM, notAfter, nil
}

// Accept persists certPEM/keyPEM as the active certificate, replacing
// whatever was loaded or generated before. Called only after the Pull
// Server has acknowledged the new certificate via rotate-certificate.
func (m *Manager) Accept(certPEM, keyPEM []byte, notAfter time.Time) error {
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return fmt.Errorf("parsing accepted key pair: %w", err)
	}
	if err := os.WriteFile(m.certPath, certPEM, 0o600); err != nil {
		return fmt.Errorf("persisting certificate: %w", err)
	}
	if err := os.WriteFile(m.keyPath, keyPEM, 0o600); err != nil {
		return fmt.Errorf("persisting key: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cert = cert
	m.notBefore = time.Now()
	m.notAfter = notAfter
	return nil
}

func (m *Manager) generateAndPersist() error {
	certPEM, keyPEM, notAfter, err := m.GenerateCandidate("opendsc-lcm-bootstrap")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.certPath), 0o700); err != nil {
		return fmt.Errorf("creating cert directory: %w", err)
	}
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return fmt.Errorf("parsing generated key pair: %w", err)
	}
	if err := os.WriteFile(m.certPath, certPEM, 0o600); err != nil {
		return fmt.Errorf("persisting certificate: %w", err)
	}
	if err := os.WriteFile(m.keyPath, keyPEM, 0o600); err != nil {
		return fmt.Errorf("persisting key: %w", err)
	}
	m.cert = cert
	m.notBefore = time.Now()
	m.notAfter = notAfter
	return nil
}

func loadPEMPair(certPath, keyPath string) (tls.Certificate, time.Time, time.Time, error) {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return tls.Certificate{}, time.Time{}, time.Time{}, err
	}
	leaf := cert.Leaf
	if leaf == nil {
		leaf, err = x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return tls.Certificate{}, time.Time{}, time.Time{}, fmt.Errorf("parsing leaf certificate: %w", err)
		}
	}
	return cert, leaf.NotBefore, leaf.NotAfter, nil
}

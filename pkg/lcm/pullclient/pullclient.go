// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package pullclient is the LCM's mTLS client for the Pull Server's
// node-facing surface: registration, certificate rotation,
// configuration checksum/bundle retrieval, and compliance report
// submission. It mirrors pkg/adapter/restful/mux/nodemux's request and
// response shapes on the wire, without importing that package, since
// the two run in different processes and must only agree on bytes.
package pullclient

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/opendsc/opendsc/pkg/core/cerr"
	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/lcm/certmgr"
)

// Client talks to one Pull Server over mTLS.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client targeting baseURL, presenting whatever
// certificate certs currently holds active, re-read on every TLS
// handshake so a rotation takes effect without rebuilding the Client.
func New(baseURL string, certs *certmgr.Manager) *Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			GetClientCertificate: func(*tls.CertificateRequestInfo) (*tls.Certificate, error) {
				cert := certs.Current()
				return &cert, nil
			},
		},
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Transport: transport, Timeout: 2 * time.Minute},
	}
}

type registerReq struct {
	RegistrationKey string `json:"registrationKey"`
	FQDN            string `json:"fqdn"`
}

type registerResp struct {
	NodeID string `json:"nodeId"`
}

// Register performs first-time registration using registrationKey and
// returns the node's assigned ID.
func (c *Client) Register(ctx context.Context, registrationKey, fqdn string) (string, error) {
	resp := &registerResp{}
	if err := c.doJSON(ctx, http.MethodPost, "/nodes/register", registerReq{
		RegistrationKey: registrationKey,
		FQDN:            fqdn,
	}, resp); err != nil {
		return "", err
	}
	return resp.NodeID, nil
}

type rotateReq struct {
	CertificatePEM string `json:"certificatePem"`
}

// RotateCertificate submits a newly generated certificate for nodeID.
// The request itself is authenticated with the still-valid current
// certificate; only after this call succeeds should the caller make
// the new certificate active (see certmgr.Manager.Accept).
func (c *Client) RotateCertificate(ctx context.Context, nodeID string, certPEM []byte) error {
	path := fmt.Sprintf("/nodes/%s/rotate-certificate", nodeID)
	return c.doJSON(ctx, http.MethodPost, path, rotateReq{CertificatePEM: string(certPEM)}, nil)
}

type checksumResp struct {
	ManifestChecksum string `json:"manifestChecksum"`
}

// FetchChecksum returns the manifest checksum currently reported by
// the server for nodeID, without downloading the bundle.
func (c *Client) FetchChecksum(ctx context.Context, nodeID string) (string, error) {
	resp := &checksumResp{}
	path := fmt.Sprintf("/nodes/%s/configuration/checksum", nodeID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, resp); err != nil {
		return "", err
	}
	return resp.ManifestChecksum, nil
}

// FetchBundle streams the configuration bundle for nodeID into w,
// returning the manifest checksum (from the ETag header) and the
// SHA-256 of the bytes actually written to w. When the server's
// X-Bundle-Checksum trailer is present and differs from that digest,
// it returns an IntegrityError; a response without the trailer is not
// checked.
func (c *Client) FetchBundle(ctx context.Context, nodeID string, w io.Writer) (manifestChecksum, bundleChecksum string, err error) {
	path := fmt.Sprintf("/nodes/%s/configuration", nodeID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", "", fmt.Errorf("building request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", "", cerr.TransientIO(fmt.Errorf("fetching bundle: %w", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", statusError(resp)
	}
	manifestChecksum = resp.Header.Get("ETag")

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(w, hasher), resp.Body); err != nil {
		return "", "", cerr.TransientIO(fmt.Errorf("streaming bundle: %w", err))
	}
	bundleChecksum = resp.Trailer.Get("X-Bundle-Checksum")
	computed := hex.EncodeToString(hasher.Sum(nil))
	if bundleChecksum != "" && bundleChecksum != computed {
		return "", "", cerr.Integrity(fmt.Errorf(
			"bundle checksum mismatch: server reported %s, computed %s", bundleChecksum, computed,
		))
	}
	return manifestChecksum, computed, nil
}

type reportReq struct {
	Operation model.ReportOperation   `json:"operation"`
	ExitCode  int                     `json:"exitCode"`
	Results   []model.ResourceOutcome `json:"results"`
	RawResult []byte                  `json:"rawResult"`
}

// SubmitReport uploads a compliance report for nodeID.
func (c *Client) SubmitReport(ctx context.Context, nodeID string, r *model.ComplianceReport) error {
	path := fmt.Sprintf("/nodes/%s/reports", nodeID)
	return c.doJSON(ctx, http.MethodPost, path, reportReq{
		Operation: r.Operation,
		ExitCode:  r.ExitCode,
		Results:   r.Results,
		RawResult: r.RawResult,
	}, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshalling request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return cerr.TransientIO(fmt.Errorf("%s %s: %w", method, path, err))
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	err := fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(data))
	if resp.StatusCode >= 500 {
		return cerr.TransientIO(err)
	}
	return err
}

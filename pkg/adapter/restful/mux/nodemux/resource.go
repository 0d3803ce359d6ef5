// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package nodemux

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/opendsc/opendsc/pkg/core/cerr"
	"github.com/opendsc/opendsc/pkg/core/model"
)

type registerReq struct {
	RegistrationKey string `json:"registrationKey"`
	FQDN            string `json:"fqdn"`
}

type registerResp struct {
	NodeID string `json:"nodeId"`
}

func (rs *resource) registerNode(w http.ResponseWriter, r *http.Request) {
	if r.TLS == nil || len(r.TLS.PeerCertificates) == 0 {
		http.Error(w, "client certificate required", http.StatusUnauthorized)
		return
	}
	req := &registerReq{}
	if err := decodeJSON(r, req); err != nil {
		writeErr(w, cerr.BadRequest(fmt.Errorf("decode request: %w", err)))
		return
	}
	cert := r.TLS.PeerCertificates[0]
	fp := fingerprintOf(cert.RawSubjectPublicKeyInfo)
	now := time.Now()
	n, err := rs.reg.Register(r.Context(), req.RegistrationKey, req.FQDN, fp, cert.NotAfter, now)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, registerResp{NodeID: n.ID})
}

type rotateReq struct {
	CertificatePEM string `json:"certificatePem"`
}

func (rs *resource) rotateCertificate(w http.ResponseWriter, r *http.Request) {
	req := &rotateReq{}
	if err := decodeJSON(r, req); err != nil {
		writeErr(w, cerr.BadRequest(fmt.Errorf("decode request: %w", err)))
		return
	}
	block, _ := pem.Decode([]byte(req.CertificatePEM))
	if block == nil {
		writeErr(w, cerr.BadRequest(fmt.Errorf("certificatePem is not a PEM block")))
		return
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		writeErr(w, cerr.BadRequest(fmt.Errorf("parse certificate: %w", err)))
		return
	}
	fp := fingerprintOf(cert.RawSubjectPublicKeyInfo)
	nodeID := mux.Vars(r)["id"]
	if err := rs.reg.RotateCertificate(r.Context(), nodeID, fp, cert.NotAfter); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rs *resource) configurationChecksum(w http.ResponseWriter, r *http.Request) {
	nodeID := authenticatedNodeID(r)
	res, err := rs.bundles.Build(r.Context(), nodeID, discard{})
	if err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("ETag", res.ManifestChecksum)
	writeJSON(w, http.StatusOK, map[string]string{"manifestChecksum": res.ManifestChecksum})
}

func (rs *resource) configuration(w http.ResponseWriter, r *http.Request) {
	nodeID := authenticatedNodeID(r)
	w.Header().Set("Content-Type", "application/zip")
	res, err := rs.bundles.Build(r.Context(), nodeID, w)
	if err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("ETag", res.ManifestChecksum)
	w.Header().Set("Trailer", "X-Bundle-Checksum")
	w.Header().Set("X-Bundle-Checksum", res.BundleChecksum)
}

type reportReq struct {
	Operation model.ReportOperation   `json:"operation"`
	ExitCode  int                     `json:"exitCode"`
	Results   []model.ResourceOutcome `json:"results"`
	RawResult []byte                  `json:"rawResult"`
}

func (rs *resource) submitReport(w http.ResponseWriter, r *http.Request) {
	nodeID := authenticatedNodeID(r)
	req := &reportReq{}
	if err := decodeJSON(r, req); err != nil {
		writeErr(w, cerr.BadRequest(fmt.Errorf("decode request: %w", err)))
		return
	}
	report := &model.ComplianceReport{
		NodeID:    nodeID,
		Operation: req.Operation,
		Timestamp: time.Now(),
		ExitCode:  req.ExitCode,
		Results:   req.Results,
		RawResult: req.RawResult,
	}
	if err := rs.reg.SubmitReport(r.Context(), report); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// discard is an io.Writer that drops every write, used when only the
// computed checksums are needed from a bundle Build, not its bytes.
type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package nodemux realizes the node-facing mTLS surface: registration,
// certificate rotation, configuration bundle delivery, and compliance
// report submission. It is served on a listener separate from the
// operator-facing gin engine, with its own TLS client-certificate trust
// domain, so a node credential can never reach an operator-only route
// and vice versa.
package nodemux

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/opendsc/opendsc/pkg/core/usecase/bundlesvc"
	"github.com/opendsc/opendsc/pkg/core/usecase/registrationsvc"
)

type resource struct {
	reg     *registrationsvc.UseCase
	bundles *bundlesvc.UseCase
}

// Register wires the node-facing REST APIs onto r. The router should be
// served behind a TLS listener configured for mutual authentication
// (tls.Config.ClientAuth = tls.RequestClientCert or VerifyClientCertIfGiven),
// since /nodes/register is reachable before a node owns a recognized
// certificate while every other route requires one.
func Register(r *mux.Router, reg *registrationsvc.UseCase, bundles *bundlesvc.UseCase) {
	rs := &resource{reg: reg, bundles: bundles}
	r.HandleFunc("/nodes/register", rs.registerNode).Methods(http.MethodPost)
	r.Handle("/nodes/{id}/rotate-certificate", rs.authenticated(rs.rotateCertificate)).Methods(http.MethodPost)
	r.Handle("/nodes/{id}/configuration/checksum", rs.authenticated(rs.configurationChecksum)).Methods(http.MethodGet)
	r.Handle("/nodes/{id}/configuration", rs.authenticated(rs.configuration)).Methods(http.MethodGet)
	r.Handle("/nodes/{id}/reports", rs.authenticated(rs.submitReport)).Methods(http.MethodPost)
}

// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package nodemux

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

type nodeIDKeyType struct{}

var nodeIDKey = nodeIDKeyType{}

// authenticated wraps h so it only runs after the presented client
// certificate's fingerprint is matched to a known Node. The matched
// Node's ID is required to equal the {id} path variable, so a node can
// never act on another node's resources even if its certificate is
// otherwise valid.
func (rs *resource) authenticated(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil || len(r.TLS.PeerCertificates) == 0 {
			http.Error(w, "client certificate required", http.StatusUnauthorized)
			return
		}
		fp := fingerprintOf(r.TLS.PeerCertificates[0].RawSubjectPublicKeyInfo)
		node, err := rs.reg.AuthenticateByFingerprint(r.Context(), fp, time.Now())
		if err != nil {
			writeErr(w, err)
			return
		}
		if id := mux.Vars(r)["id"]; id != "" && id != node.ID {
			http.Error(w, "certificate does not match requested node", http.StatusForbidden)
			return
		}
		ctx := context.WithValue(r.Context(), nodeIDKey, node.ID)
		h(w, r.WithContext(ctx))
	})
}

// fingerprintOf returns the hex-encoded SHA-256 digest of a
// certificate's subjectPublicKeyInfo, the fingerprint stored against a
// registered Node.
func fingerprintOf(subjectPublicKeyInfo []byte) string {
	sum := sha256.Sum256(subjectPublicKeyInfo)
	return hex.EncodeToString(sum[:])
}

func authenticatedNodeID(r *http.Request) string {
	id, _ := r.Context().Value(nodeIDKey).(string)
	return id
}

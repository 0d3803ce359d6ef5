// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package nodemux

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/opendsc/opendsc/pkg/core/cerr"
)

type errBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeErr mirrors the operator REST API's {code, message} error
// contract so node and operator clients can share one error model.
func writeErr(w http.ResponseWriter, err error) {
	var ce *cerr.Error
	if errors.As(err, &ce) {
		writeJSON(w, ce.HTTPStatusCode, errBody{Code: ce.Kind, Message: ce.Err.Error()})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errBody{Code: "InternalError", Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

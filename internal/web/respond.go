// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

// Response bodies. These strings are part of the HTTP contract.
const (
	msgInternalError   = "Internal server error"
	msgDatabaseError   = "Database connection error"
	msgPong            = "pong"
	msgMalformedBody   = "Malformed request body"
	maxRequestBodySize = 1 << 20
)

type tokenResponse struct {
	Token string `json:"token"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorsResponse struct {
	Errors []string `json:"errors"`
}

// httpStatus maps a validation status to its HTTP code.
func httpStatus(s auth.Status) int {
	switch s {
	case auth.StatusOK:
		return http.StatusOK
	case auth.StatusBadInput:
		return http.StatusBadRequest
	case auth.StatusNotFound:
		return http.StatusNotFound
	case auth.StatusForbidden:
		return http.StatusForbidden
	case auth.StatusUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Debug("write response body", "error", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

// writeFlowError answers with {errors:[...]} for expected outcomes and a
// generic 500 for anything else. The cause of a 500 is logged, never sent.
func writeFlowError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if ve, ok := auth.AsValidationError(err); ok {
		writeJSON(w, httpStatus(ve.Status), errorsResponse{Errors: ve.Errors})
		return
	}
	errutil.LogError(r.Context(), logger, "request failed", err)
	writeMessage(w, http.StatusInternalServerError, msgInternalError)
}

// writeGateError answers with {message:"..."}, matching the gate stages.
func writeGateError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if ve, ok := auth.AsValidationError(err); ok {
		msg := ve.Status.String()
		if len(ve.Errors) > 0 {
			msg = ve.Errors[0]
		}
		writeMessage(w, httpStatus(ve.Status), msg)
		return
	}
	errutil.LogError(r.Context(), logger, "access gate failed", err)
	writeMessage(w, http.StatusInternalServerError, msgInternalError)
}

// errMalformedBody marks a body that is present but not a JSON object.
var errMalformedBody = errors.New("malformed request body")

// decodeBody reads a JSON object into dst. An empty body leaves dst zero.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errMalformedBody
	}
	return nil
}

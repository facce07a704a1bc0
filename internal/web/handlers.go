// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package web

import (
	"errors"
	"net/http"

	"github.com/gatehouse/gatehouse/internal/auth"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *api) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.Metrics.RecordAuthRequest("register", outcomeOf(err))
		writeJSON(w, http.StatusBadRequest, errorsResponse{Errors: []string{msgMalformedBody}})
		return
	}

	account, err := a.Registration.Register(r.Context(), req.Name, req.Email, req.Password, false)
	if err != nil {
		a.Metrics.RecordAuthRequest("register", outcomeOf(err))
		writeFlowError(w, r, a.Logger, err)
		return
	}

	token, err := a.Tokens.Issue(account.ID)
	if err != nil {
		a.Metrics.RecordAuthRequest("register", outcomeOf(err))
		writeFlowError(w, r, a.Logger, err)
		return
	}

	a.Metrics.RecordAuthRequest("register", outcomeOf(nil))
	a.Logger.InfoContext(auth.WithAccount(r.Context(), account), "account registered")
	writeJSON(w, http.StatusCreated, tokenResponse{Token: token})
}

func (a *api) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.Metrics.RecordAuthRequest("login", outcomeOf(err))
		writeJSON(w, http.StatusBadRequest, errorsResponse{Errors: []string{msgMalformedBody}})
		return
	}

	account, err := a.Authentication.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.Metrics.RecordAuthRequest("login", outcomeOf(err))
		writeFlowError(w, r, a.Logger, err)
		return
	}

	token, err := a.Tokens.Issue(account.ID)
	if err != nil {
		a.Metrics.RecordAuthRequest("login", outcomeOf(err))
		writeFlowError(w, r, a.Logger, err)
		return
	}

	a.Metrics.RecordAuthRequest("login", outcomeOf(nil))
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (a *api) pong(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, msgPong)
}

// outcomeOf labels err for the request counters.
func outcomeOf(err error) string {
	if err == nil {
		return auth.StatusOK.String()
	}
	if errors.Is(err, errMalformedBody) {
		return auth.StatusBadInput.String()
	}
	if ve, ok := auth.AsValidationError(err); ok {
		return ve.Status.String()
	}
	return "error"
}

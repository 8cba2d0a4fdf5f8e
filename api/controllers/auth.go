package controllers

import (
	"context"
	"net/http"

	"github.com/nightshift/inventory-backend/api/responses"
	"github.com/nightshift/inventory-backend/api/validators"
	"github.com/nightshift/inventory-backend/internal/auth"
	"github.com/nightshift/inventory-backend/pkg/logger"
)

// TokenHeader mirrors the access token so non-JSON clients can pick it up.
const TokenHeader = "X-Nightshift-Token"

// AuthRegister signs up an organization together with its first ADMIN employee.
func AuthRegister(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auth"))
			return
		}
		issueToken(w, r, logg, http.StatusCreated, svc.Register)
	}
}

// AuthLogin exchanges employee credentials for an access token.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auth"))
			return
		}
		issueToken(w, r, logg, http.StatusOK, svc.Login)
	}
}

func issueToken[Req any](
	w http.ResponseWriter,
	r *http.Request,
	logg *logger.Logger,
	status int,
	call func(context.Context, Req) (*auth.LoginResponse, error),
) {
	var body Req
	if err := validators.DecodeJSONBody(w, r, &body); err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}

	result, err := call(r.Context(), body)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}

	w.Header().Set(TokenHeader, result.AccessToken)
	responses.WriteSuccessStatus(w, status, result)
}

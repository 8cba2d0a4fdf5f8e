package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightshift/inventory-backend/internal/auth"
	pkgerrors "github.com/nightshift/inventory-backend/pkg/errors"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, req auth.RegisterRequest) (*auth.LoginResponse, error)
	loginFn    func(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error)
}

func (s stubAuthService) Register(ctx context.Context, req auth.RegisterRequest) (*auth.LoginResponse, error) {
	return s.registerFn(ctx, req)
}

func (s stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return s.loginFn(ctx, req)
}

func TestAuthLoginSetsTokenHeader(t *testing.T) {
	svc := stubAuthService{loginFn: func(_ context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
		assert.Equal(t, "owner@example.com", req.Email)
		return &auth.LoginResponse{AccessToken: "token-1", TokenType: "Bearer", ExpiresIn: 3600}, nil
	}}

	body := bytes.NewBufferString(`{"email":"owner@example.com","password":"s3cret-pass"}`)
	rec := httptest.NewRecorder()
	AuthLogin(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", body))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "token-1", rec.Header().Get("X-Nightshift-Token"))

	var envelope struct {
		Data auth.LoginResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	assert.Equal(t, "Bearer", envelope.Data.TokenType)
}

func TestAuthLoginUnauthorized(t *testing.T) {
	svc := stubAuthService{loginFn: func(context.Context, auth.LoginRequest) (*auth.LoginResponse, error) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}}

	body := bytes.NewBufferString(`{"email":"owner@example.com","password":"wrong"}`)
	rec := httptest.NewRecorder()
	AuthLogin(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", body))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Nightshift-Token"))
}

func TestAuthRegisterCreated(t *testing.T) {
	svc := stubAuthService{registerFn: func(_ context.Context, req auth.RegisterRequest) (*auth.LoginResponse, error) {
		assert.Equal(t, "Acme", req.OrganizationName)
		return &auth.LoginResponse{AccessToken: "token-2"}, nil
	}}

	body := bytes.NewBufferString(`{"organization_name":"Acme","mobile_no":"5551234","email":"owner@acme.test","admin_name":"Sam","password":"long-enough"}`)
	rec := httptest.NewRecorder()
	AuthRegister(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", body))

	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestAuthRegisterRejectsShortPassword(t *testing.T) {
	svc := stubAuthService{registerFn: func(context.Context, auth.RegisterRequest) (*auth.LoginResponse, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}}

	body := bytes.NewBufferString(`{"organization_name":"Acme","mobile_no":"5551234","email":"owner@acme.test","password":"short"}`)
	rec := httptest.NewRecorder()
	AuthRegister(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", body))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	apiErr := decodeError(t, rec)
	details, ok := apiErr.Details.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, details, "password")
}

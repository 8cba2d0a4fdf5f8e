package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightshift/inventory-backend/internal/items"
	"github.com/nightshift/inventory-backend/internal/ledger"
	"github.com/nightshift/inventory-backend/pkg/enums"
	pkgerrors "github.com/nightshift/inventory-backend/pkg/errors"
	"github.com/nightshift/inventory-backend/pkg/pagination"
	"github.com/nightshift/inventory-backend/pkg/principal"
	"github.com/nightshift/inventory-backend/pkg/types"
)

type stubItemService struct {
	createFn  func(ctx context.Context, p principal.Principal, input items.CreateInput) (*items.ItemDTO, error)
	getFn     func(ctx context.Context, p principal.Principal, id uuid.UUID) (*items.ItemDTO, error)
	listFn    func(ctx context.Context, p principal.Principal, params pagination.Params) (*items.ItemList, error)
	restockFn func(ctx context.Context, p principal.Principal, id uuid.UUID, input items.RestockInput) (*ledger.Entry, error)
	deleteFn  func(ctx context.Context, p principal.Principal, id uuid.UUID) error
}

func (s stubItemService) Create(ctx context.Context, p principal.Principal, input items.CreateInput) (*items.ItemDTO, error) {
	return s.createFn(ctx, p, input)
}

func (s stubItemService) Get(ctx context.Context, p principal.Principal, id uuid.UUID) (*items.ItemDTO, error) {
	return s.getFn(ctx, p, id)
}

func (s stubItemService) List(ctx context.Context, p principal.Principal, params pagination.Params) (*items.ItemList, error) {
	return s.listFn(ctx, p, params)
}

func (s stubItemService) LowStock(context.Context, principal.Principal) ([]items.ItemDTO, error) {
	return nil, nil
}

func (s stubItemService) Update(context.Context, principal.Principal, uuid.UUID, items.UpdateInput) (*items.ItemDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not implemented")
}

func (s stubItemService) Restock(ctx context.Context, p principal.Principal, id uuid.UUID, input items.RestockInput) (*ledger.Entry, error) {
	return s.restockFn(ctx, p, id, input)
}

func (s stubItemService) History(context.Context, principal.Principal, uuid.UUID) ([]ledger.Entry, error) {
	return nil, nil
}

func (s stubItemService) Delete(ctx context.Context, p principal.Principal, id uuid.UUID) error {
	return s.deleteFn(ctx, p, id)
}

func testPrincipal() principal.Principal {
	return principal.Principal{
		TenantID:  uuid.New(),
		ActorID:   uuid.New(),
		Role:      enums.ActorRoleManager,
		ActorName: "Riley",
	}
}

func withPrincipal(req *http.Request, p principal.Principal) *http.Request {
	return req.WithContext(principal.WithContext(req.Context(), p))
}

func withIDParam(req *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var envelope types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	return envelope.Error
}

func TestItemCreatePassesPrincipalAndBody(t *testing.T) {
	p := testPrincipal()
	var gotTenant uuid.UUID
	var gotInput items.CreateInput
	svc := stubItemService{createFn: func(_ context.Context, caller principal.Principal, input items.CreateInput) (*items.ItemDTO, error) {
		gotTenant = caller.TenantID
		gotInput = input
		return &items.ItemDTO{ID: uuid.New(), HumanID: "ITEM-001", Name: input.Name, Quantity: input.Quantity}, nil
	}}

	body := bytes.NewBufferString(`{"name":"Widget","quantity":12,"cost":"2.50"}`)
	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/api/v1/items", body), p)
	rec := httptest.NewRecorder()
	ItemCreate(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, p.TenantID, gotTenant)
	assert.Equal(t, "Widget", gotInput.Name)
	assert.Equal(t, 12, gotInput.Quantity)

	var envelope struct {
		Data items.ItemDTO `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	assert.Equal(t, "ITEM-001", envelope.Data.HumanID)
}

func TestItemCreateRejectsInvalidBody(t *testing.T) {
	svc := stubItemService{createFn: func(context.Context, principal.Principal, items.CreateInput) (*items.ItemDTO, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}}

	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/api/v1/items", bytes.NewBufferString(`{"quantity":-1}`)), testPrincipal())
	rec := httptest.NewRecorder()
	ItemCreate(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeValidation), decodeError(t, rec).Code)
}

func TestItemCreateRequiresPrincipal(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/items", bytes.NewBufferString(`{"name":"Widget"}`))
	rec := httptest.NewRecorder()
	ItemCreate(stubItemService{}, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestItemGetInvalidID(t *testing.T) {
	req := withIDParam(withPrincipal(httptest.NewRequest(http.MethodGet, "/api/v1/items/nope", nil), testPrincipal()), "nope")
	rec := httptest.NewRecorder()
	ItemGet(stubItemService{}, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestItemGetNotFound(t *testing.T) {
	id := uuid.New()
	svc := stubItemService{getFn: func(_ context.Context, _ principal.Principal, got uuid.UUID) (*items.ItemDTO, error) {
		assert.Equal(t, id, got)
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}}

	req := withIDParam(withPrincipal(httptest.NewRequest(http.MethodGet, "/api/v1/items/"+id.String(), nil), testPrincipal()), id.String())
	rec := httptest.NewRecorder()
	ItemGet(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "item not found", decodeError(t, rec).Message)
}

func TestItemListPagination(t *testing.T) {
	var got pagination.Params
	svc := stubItemService{listFn: func(_ context.Context, _ principal.Principal, params pagination.Params) (*items.ItemList, error) {
		got = params
		return &items.ItemList{Items: []items.ItemDTO{}}, nil
	}}

	req := withPrincipal(httptest.NewRequest(http.MethodGet, "/api/v1/items?limit=10&cursor=abc", nil), testPrincipal())
	rec := httptest.NewRecorder()
	ItemList(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, got.Limit)
	assert.Equal(t, "abc", got.Cursor)

	req = withPrincipal(httptest.NewRequest(http.MethodGet, "/api/v1/items?limit=500", nil), testPrincipal())
	rec = httptest.NewRecorder()
	ItemList(svc, nil).ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestItemRestockReturnsEntry(t *testing.T) {
	id := uuid.New()
	svc := stubItemService{restockFn: func(_ context.Context, _ principal.Principal, got uuid.UUID, input items.RestockInput) (*ledger.Entry, error) {
		assert.Equal(t, id, got)
		assert.Equal(t, 5, input.Quantity)
		assert.Equal(t, "VEND-001", input.VendorRef)
		return &ledger.Entry{ItemID: id, QuantityUpdated: 5, QuantityAfter: 17}, nil
	}}

	body := bytes.NewBufferString(`{"quantity":5,"vendor_id":"VEND-001","cost":"3.00"}`)
	req := withIDParam(withPrincipal(httptest.NewRequest(http.MethodPatch, "/api/v1/items/"+id.String()+"/quantity", body), testPrincipal()), id.String())
	rec := httptest.NewRecorder()
	ItemRestock(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestItemDeleteNoContent(t *testing.T) {
	id := uuid.New()
	svc := stubItemService{deleteFn: func(context.Context, principal.Principal, uuid.UUID) error { return nil }}

	req := withIDParam(withPrincipal(httptest.NewRequest(http.MethodDelete, "/api/v1/items/"+id.String(), nil), testPrincipal()), id.String())
	rec := httptest.NewRecorder()
	ItemDelete(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestItemNilService(t *testing.T) {
	req := withPrincipal(httptest.NewRequest(http.MethodGet, "/api/v1/items", nil), testPrincipal())
	rec := httptest.NewRecorder()
	ItemList(nil, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

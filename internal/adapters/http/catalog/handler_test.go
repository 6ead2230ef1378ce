package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appcatalog "3tcapital/ms_siigo_gateway/internal/application/catalog"
	"3tcapital/ms_siigo_gateway/internal/core/document"
	"3tcapital/ms_siigo_gateway/internal/core/upstream"
	"3tcapital/ms_siigo_gateway/internal/testutil"
)

func newRouter(provider *testutil.MockProvider) http.Handler {
	log := testutil.NewNullLogger()
	r := chi.NewRouter()
	NewHandler(appcatalog.NewService(provider, testutil.NewMockStore(), time.Minute, log), log).Register(r)
	return r
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, testutil.CreateRequest(http.MethodGet, path, nil, nil))
	return w
}

func TestTaxes(t *testing.T) {
	calls := 0
	router := newRouter(&testutil.MockProvider{
		ListTaxesFunc: func(ctx context.Context) (json.RawMessage, error) {
			calls++
			return json.RawMessage(`[{"id":13156,"name":"IVA 19%","percentage":19}]`), nil
		},
	})

	for i := 0; i < 2; i++ {
		var body struct {
			Success bool             `json:"success"`
			Data    []map[string]any `json:"data"`
		}
		testutil.ReadJSONResponse(t, get(router, "/taxes"), http.StatusOK, &body)
		assert.True(t, body.Success)
		require.Len(t, body.Data, 1)
		assert.Equal(t, "IVA 19%", body.Data[0]["name"])
	}
	assert.Equal(t, 1, calls, "second read served from cache")
}

func TestPaymentMethods_DefaultsToSaleInvoices(t *testing.T) {
	var requested string
	router := newRouter(&testutil.MockProvider{
		ListPaymentTypesFunc: func(ctx context.Context, documentType string) (json.RawMessage, error) {
			requested = documentType
			return json.RawMessage(`[{"id":5636,"name":"Crédito"}]`), nil
		},
	})

	var body map[string]any
	testutil.ReadJSONResponse(t, get(router, "/payment-methods"), http.StatusOK, &body)
	assert.Equal(t, "FV", requested)

	testutil.ReadJSONResponse(t, get(router, "/payment-methods?document_type=fc"), http.StatusOK, &body)
	assert.Equal(t, "FC", requested)
}

func TestDocumentTypes(t *testing.T) {
	var requested document.Kind
	router := newRouter(&testutil.MockProvider{
		ListDocumentTypesFunc: func(ctx context.Context, kind document.Kind) ([]document.DocumentType, error) {
			requested = kind
			return []document.DocumentType{{ID: 7291, Name: "Factura de compra", Active: true}}, nil
		},
	})

	var body struct {
		Data []map[string]any `json:"data"`
		Type string           `json:"type"`
	}
	testutil.ReadJSONResponse(t, get(router, "/document-types?type=rc"), http.StatusOK, &body)

	assert.Equal(t, document.KindCashReceipt, requested)
	assert.Equal(t, "RC", body.Type)
	require.Len(t, body.Data, 1)
	assert.Equal(t, float64(7291), body.Data[0]["id"])
}

func TestDocumentTypes_UnsupportedType(t *testing.T) {
	router := newRouter(&testutil.MockProvider{})

	w := get(router, "/document-types?type=ZZ")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaxes_UpstreamFailure(t *testing.T) {
	router := newRouter(&testutil.MockProvider{
		ListTaxesFunc: func(ctx context.Context) (json.RawMessage, error) {
			return nil, &upstream.AuthError{Status: http.StatusUnauthorized, Message: "Invalid credentials"}
		},
	})

	w := get(router, "/taxes")

	assert.Equal(t, http.StatusBadGateway, w.Code)
	body := testutil.ReadErrorResponse(t, w)
	assert.Equal(t, "Error de autenticación con Siigo: Invalid credentials", body["error"])
}

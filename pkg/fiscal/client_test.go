package fiscal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDocument() *Document {
	return &Document{
		SaleID: "0b7e8e52-1f3a-4c55-9d7e-6a1b2c3d4e5f",
		Number: "PDV01-000001",
		Type:   "nfce",
		Items: []Item{
			{ProductID: "p1", Description: "Cafe", Quantity: 2, UnitPrice: decimal.RequireFromString("6.99"), Total: decimal.RequireFromString("13.98")},
		},
		Total: decimal.RequireFromString("15.2382"),
	}
}

func TestHTTPClient_Authorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/documents", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "0b7e8e52-1f3a-4c55-9d7e-6a1b2c3d4e5f", r.Header.Get("Idempotency-Key"))

		var doc Document
		require.NoError(t, json.NewDecoder(r.Body).Decode(&doc))
		assert.Equal(t, "15.2382", doc.Total.String())

		_ = json.NewEncoder(w).Encode(Result{Status: StatusAuthorized, AccessKey: "3526", Protocol: "135"})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "secret", time.Second)
	res, err := c.Submit(context.Background(), testDocument())
	require.NoError(t, err)
	assert.Equal(t, StatusAuthorized, res.Status)
	assert.Equal(t, "3526", res.AccessKey)
}

func TestHTTPClient_RejectionIsDenied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(Result{Message: "Rejeicao: CNPJ do emitente invalido"})
	}))
	defer srv.Close()

	res, err := NewHTTPClient(srv.URL, "", time.Second).Submit(context.Background(), testDocument())
	require.NoError(t, err)
	assert.Equal(t, StatusDenied, res.Status)
	assert.Contains(t, res.Message, "CNPJ")
}

func TestHTTPClient_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	res, err := NewHTTPClient(srv.URL, "", time.Second).Submit(context.Background(), testDocument())
	assert.Error(t, err)
	assert.Nil(t, res)
}

func TestSandboxClient_Authorizes(t *testing.T) {
	res, err := NewSandboxClient().Submit(context.Background(), testDocument())
	require.NoError(t, err)
	assert.Equal(t, StatusAuthorized, res.Status)
	assert.Len(t, res.AccessKey, 44)
}

func TestNewClientFromConfig(t *testing.T) {
	_, err := NewClientFromConfig("http", "", "", 0)
	assert.Error(t, err)

	c, err := NewClientFromConfig("", "", "", 0)
	require.NoError(t, err)
	assert.NotNil(t, c)

	_, err = NewClientFromConfig("soap", "", "", 0)
	assert.Error(t, err)
}

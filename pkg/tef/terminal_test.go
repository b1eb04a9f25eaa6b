package tef

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPTerminal_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "processing"})
	}))
	defer srv.Close()

	term := NewHTTPTerminal(srv.URL, time.Second)
	assert.Equal(t, StatusProcessing, term.CheckStatus(context.Background()))

	srv.Close()
	assert.Equal(t, StatusDisconnected, term.CheckStatus(context.Background()))
}

func TestHTTPTerminal_ProcessPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Amount.GreaterThan(decimal.NewFromInt(1000)) {
			w.WriteHeader(http.StatusPaymentRequired)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "saldo insuficiente"})
			return
		}
		_ = json.NewEncoder(w).Encode(Authorization{NSU: "000123", AuthCode: "A1B2C3"})
	}))
	defer srv.Close()

	term := NewHTTPTerminal(srv.URL, time.Second)

	auth, err := term.ProcessPayment(context.Background(), Request{Amount: decimal.NewFromInt(50), Installments: 1, CardType: "debit"})
	require.NoError(t, err)
	assert.Equal(t, "000123", auth.NSU)

	_, err = term.ProcessPayment(context.Background(), Request{Amount: decimal.NewFromInt(5000), Installments: 1, CardType: "credit"})
	assert.True(t, errors.Is(err, ErrDeclined))
	assert.Contains(t, err.Error(), "saldo insuficiente")
}

func TestSandboxTerminal(t *testing.T) {
	term := NewSandboxTerminal()
	assert.Equal(t, StatusConnected, term.CheckStatus(context.Background()))

	auth, err := term.ProcessPayment(context.Background(), Request{Amount: decimal.NewFromInt(10), Installments: 1})
	require.NoError(t, err)
	assert.Len(t, auth.NSU, 12)

	term.DeclineAbove = decimal.NewFromInt(100)
	_, err = term.ProcessPayment(context.Background(), Request{Amount: decimal.NewFromInt(101)})
	assert.ErrorIs(t, err, ErrDeclined)

	term.SetConnected(false)
	assert.Equal(t, StatusDisconnected, term.CheckStatus(context.Background()))
	_, err = term.ProcessPayment(context.Background(), Request{Amount: decimal.NewFromInt(10)})
	assert.ErrorIs(t, err, ErrUnavailable)
}

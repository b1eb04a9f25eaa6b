// Package tef drives the card payment terminal (TEF/PinPad) through its
// local integration service.
package tef

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status reports terminal availability.
type Status string

const (
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusProcessing   Status = "processing"
)

var (
	// ErrUnavailable means the terminal could not be reached.
	ErrUnavailable = errors.New("tef: terminal unavailable")
	// ErrDeclined means the acquirer refused the transaction.
	ErrDeclined = errors.New("tef: transaction declined")
)

// Request is a card charge.
type Request struct {
	Amount       decimal.Decimal `json:"amount"`
	Installments int             `json:"installments"`
	CardType     string          `json:"card_type"` // "credit" or "debit"
}

// Authorization is an approved charge.
type Authorization struct {
	NSU      string `json:"nsu"`
	AuthCode string `json:"auth_code"`
	Brand    string `json:"brand,omitempty"`
}

// Terminal is a card payment device.
type Terminal interface {
	CheckStatus(ctx context.Context) Status
	ProcessPayment(ctx context.Context, req Request) (*Authorization, error)
}

// --- HTTP terminal (local TEF integration service) ---

type httpTerminal struct {
	baseURL string
	http    *http.Client
}

// NewHTTPTerminal creates a terminal backed by a TEF service exposing
// GET {baseURL}/status and POST {baseURL}/transactions.
func NewHTTPTerminal(baseURL string, timeout time.Duration) Terminal {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &httpTerminal{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (t *httpTerminal) CheckStatus(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/status", nil)
	if err != nil {
		return StatusDisconnected
	}
	resp, err := t.http.Do(req)
	if err != nil {
		return StatusDisconnected
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return StatusDisconnected
	}

	var body struct {
		Status Status `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return StatusDisconnected
	}
	switch body.Status {
	case StatusConnected, StatusProcessing:
		return body.Status
	default:
		return StatusDisconnected
	}
}

func (t *httpTerminal) ProcessPayment(ctx context.Context, r Request) (*Authorization, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("tef: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/transactions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tef: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var auth Authorization
		if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
			return nil, fmt.Errorf("tef: decode authorization: %w", err)
		}
		return &auth, nil
	case resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusUnprocessableEntity:
		var reason struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&reason)
		if reason.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrDeclined, reason.Message)
		}
		return nil, ErrDeclined
	default:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
}

// --- Sandbox terminal ---

// SandboxTerminal approves every charge unless Connected is false or
// DeclineAbove is set and the amount exceeds it.
type SandboxTerminal struct {
	mu           sync.Mutex
	connected    bool
	processing   bool
	DeclineAbove decimal.Decimal
}

// NewSandboxTerminal creates a connected sandbox terminal.
func NewSandboxTerminal() *SandboxTerminal {
	return &SandboxTerminal{connected: true}
}

// SetConnected toggles the simulated link.
func (t *SandboxTerminal) SetConnected(on bool) {
	t.mu.Lock()
	t.connected = on
	t.mu.Unlock()
}

func (t *SandboxTerminal) CheckStatus(ctx context.Context) Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case !t.connected:
		return StatusDisconnected
	case t.processing:
		return StatusProcessing
	default:
		return StatusConnected
	}
}

func (t *SandboxTerminal) ProcessPayment(ctx context.Context, r Request) (*Authorization, error) {
	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return nil, ErrUnavailable
	}
	t.processing = true
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.processing = false
		t.mu.Unlock()
	}()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if t.DeclineAbove.IsPositive() && r.Amount.GreaterThan(t.DeclineAbove) {
		return nil, ErrDeclined
	}

	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return &Authorization{
		NSU:      strings.ToUpper(id[:12]),
		AuthCode: strings.ToUpper(id[12:18]),
		Brand:    "SANDBOX",
	}, nil
}

// NewTerminalFromConfig creates the appropriate Terminal based on type.
//
//	terminalType: "http" or "sandbox"
func NewTerminalFromConfig(terminalType, baseURL string, timeout time.Duration) (Terminal, error) {
	switch terminalType {
	case "http":
		if baseURL == "" {
			return nil, fmt.Errorf("tef: base URL is required for http terminal type")
		}
		return NewHTTPTerminal(baseURL, timeout), nil
	case "sandbox", "none", "":
		return NewSandboxTerminal(), nil
	default:
		return nil, fmt.Errorf("tef: unknown terminal type %q (use http or sandbox)", terminalType)
	}
}

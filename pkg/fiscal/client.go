// Package fiscal talks to the external NFC-e/NF-e emission service. Only the
// request/response contract lives here; signing and SEFAZ transmission are
// the service's job.
package fiscal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the business outcome of a submission
type Status string

const (
	StatusAuthorized Status = "authorized"
	StatusDenied     Status = "denied"
)

// Recipient identifies the buyer (mandatory for NF-e)
type Recipient struct {
	Name     string `json:"name"`
	Document string `json:"document"`
}

// Item is one line of the fiscal document
type Item struct {
	ProductID   string          `json:"product_id"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

// PaymentInfo is one payment of the fiscal document
type PaymentInfo struct {
	Method       string          `json:"method"`
	Amount       decimal.Decimal `json:"amount"`
	Installments int             `json:"installments"`
}

// Document is the payload submitted for a sale. Retries resend the same
// document unchanged.
type Document struct {
	SaleID    string          `json:"sale_id"`
	Number    string          `json:"number"`
	Type      string          `json:"type"` // "nfce" or "nfe"
	IssuedAt  time.Time       `json:"issued_at"`
	Recipient *Recipient      `json:"recipient,omitempty"`
	Items     []Item          `json:"items"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Discount  decimal.Decimal `json:"discount"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
	Payments  []PaymentInfo   `json:"payments"`
}

// Result is the service's answer. A returned error (not a Result) means the
// service could not be reached or answered garbage; that case is retryable.
type Result struct {
	Status    Status `json:"status"`
	AccessKey string `json:"access_key,omitempty"`
	Protocol  string `json:"protocol,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Client submits fiscal documents.
type Client interface {
	Submit(ctx context.Context, doc *Document) (*Result, error)
}

// --- HTTP client ---

type httpClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewHTTPClient creates a client for a fiscal service exposing
// POST {baseURL}/documents.
func NewHTTPClient(baseURL, token string, timeout time.Duration) Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *httpClient) Submit(ctx context.Context, doc *Document) (*Result, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("fiscal: encode document: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/documents", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("fiscal: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", doc.SaleID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fiscal: submit %s: %w", doc.Number, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("fiscal: read response: %w", err)
	}

	// 5xx and unexpected codes are communication failures; 2xx and 4xx carry
	// a business answer.
	if resp.StatusCode >= 500 || resp.StatusCode < 200 || (resp.StatusCode >= 300 && resp.StatusCode < 400) {
		return nil, fmt.Errorf("fiscal: service returned %d", resp.StatusCode)
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("fiscal: decode response (%d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 400 {
		result.Status = StatusDenied
	}
	switch result.Status {
	case StatusAuthorized, StatusDenied:
		return &result, nil
	default:
		return nil, fmt.Errorf("fiscal: unknown status %q", result.Status)
	}
}

// --- Sandbox client (authorizes everything, used without a fiscal service) ---

type sandboxClient struct{}

// NewSandboxClient creates a client that authorizes every document locally.
func NewSandboxClient() Client {
	return &sandboxClient{}
}

func (c *sandboxClient) Submit(ctx context.Context, doc *Document) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Result{
		Status:    StatusAuthorized,
		AccessKey: SandboxAccessKey(doc.SaleID),
		Protocol:  fmt.Sprintf("9%014d", time.Now().UnixNano()%1e14),
		Message:   "Autorizado o uso (homologacao)",
	}, nil
}

// SandboxAccessKey derives a 44-digit key from a sale id.
func SandboxAccessKey(saleID string) string {
	var b strings.Builder
	for _, r := range saleID {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'a' && r <= 'f':
			b.WriteByte(byte('0' + (r-'a')%10))
		}
		if b.Len() == 44 {
			break
		}
	}
	for b.Len() < 44 {
		b.WriteByte('0')
	}
	return b.String()[:44]
}

// NewClientFromConfig creates the appropriate Client based on type.
//
//	clientType: "http" or "sandbox"
func NewClientFromConfig(clientType, baseURL, token string, timeout time.Duration) (Client, error) {
	switch clientType {
	case "http":
		if baseURL == "" {
			return nil, fmt.Errorf("fiscal: base URL is required for http client type")
		}
		return NewHTTPClient(baseURL, token, timeout), nil
	case "sandbox", "none", "":
		return NewSandboxClient(), nil
	default:
		return nil, fmt.Errorf("fiscal: unknown client type %q (use http or sandbox)", clientType)
	}
}

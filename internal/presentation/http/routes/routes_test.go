package routes

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sangkips/pdv-engine/internal/application/service"
	"github.com/sangkips/pdv-engine/internal/config"
	"github.com/sangkips/pdv-engine/internal/domain/entity"
	"github.com/sangkips/pdv-engine/internal/domain/enum"
	domainRepo "github.com/sangkips/pdv-engine/internal/domain/repository"
	infraRepo "github.com/sangkips/pdv-engine/internal/infrastructure/repository"
	"github.com/sangkips/pdv-engine/internal/presentation/http/handler"
	"github.com/sangkips/pdv-engine/internal/presentation/http/middleware"
	"github.com/sangkips/pdv-engine/pkg/fiscal"
	"github.com/sangkips/pdv-engine/pkg/printer"
	"github.com/sangkips/pdv-engine/pkg/tef"
	"github.com/sangkips/pdv-engine/pkg/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	eventually = 2 * time.Second
	tick       = 5 * time.Millisecond
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- in-memory repositories ---

type memSales struct {
	mu    sync.Mutex
	sales map[uuid.UUID]*entity.Sale
}

func (r *memSales) Create(ctx context.Context, sale *entity.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sales[sale.ID] = sale.Clone()
	return nil
}

func (r *memSales) GetByID(ctx context.Context, id uuid.UUID) (*entity.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sales[id]; ok {
		return s.Clone(), nil
	}
	return nil, nil
}

func (r *memSales) List(ctx context.Context, params *domainRepo.SaleFilterParams) ([]entity.Sale, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []entity.Sale{}
	for _, s := range r.sales {
		if params.TerminalID != "" && s.TerminalID != params.TerminalID {
			continue
		}
		out = append(out, *s.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, int64(len(out)), nil
}

func (r *memSales) UpdateFiscal(ctx context.Context, id uuid.UUID, u domainRepo.FiscalUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sales[id]; ok {
		s.FiscalDocType, s.FiscalStatus, s.AccessKey, s.Protocol, s.FiscalError = u.DocType, u.Status, u.AccessKey, u.Protocol, u.Error
	}
	return nil
}

func (r *memSales) UpdatePrintStatus(ctx context.Context, id uuid.UUID, status enum.PrintStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sales[id]; ok {
		s.PrintStatus = &status
	}
	return nil
}

type memCatalog struct{ products []entity.Product }

func (c *memCatalog) GetByID(ctx context.Context, id uuid.UUID) (*entity.Product, error) {
	for i := range c.products {
		if c.products[i].ID == id {
			return &c.products[i], nil
		}
	}
	return nil, nil
}

func (c *memCatalog) GetByCode(ctx context.Context, code string) (*entity.Product, error) {
	for i := range c.products {
		if c.products[i].Code == code {
			return &c.products[i], nil
		}
	}
	return nil, nil
}

func (c *memCatalog) Search(ctx context.Context, params *domainRepo.ProductSearchParams) ([]entity.Product, int64, error) {
	var out []entity.Product
	for _, p := range c.products {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(params.Search)) {
			out = append(out, p)
		}
	}
	return out, int64(len(out)), nil
}

type memCustomers struct{ customers []entity.Customer }

func (c *memCustomers) GetByID(ctx context.Context, id uuid.UUID) (*entity.Customer, error) {
	for i := range c.customers {
		if c.customers[i].ID == id {
			return &c.customers[i], nil
		}
	}
	return nil, nil
}

func (c *memCustomers) GetByDocument(ctx context.Context, document string) (*entity.Customer, error) {
	for i := range c.customers {
		if c.customers[i].Document == document {
			return &c.customers[i], nil
		}
	}
	return nil, nil
}

type memIdempotency struct {
	mu   sync.Mutex
	keys map[string]*entity.IdempotencyKey
}

func (r *memIdempotency) GetByKey(ctx context.Context, key string, cashierID uuid.UUID) (*entity.IdempotencyKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.keys[key+cashierID.String()], nil
}

func (r *memIdempotency) Create(ctx context.Context, ikey *entity.IdempotencyKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[ikey.Key+ikey.CashierID.String()] = ikey
	return nil
}

func (r *memIdempotency) DeleteExpired(ctx context.Context) (int64, error) { return 0, nil }

// --- harness ---

type apiFixture struct {
	router   *gin.Engine
	jwt      *utils.JWTManager
	sales    *memSales
	prints   *service.PrintQueue
	product  entity.Product
	customer entity.Customer
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newAPI(t *testing.T, limiter *middleware.TerminalRateLimiter) *apiFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := &apiFixture{
		jwt:      utils.NewJWTManager("test-secret", time.Hour),
		sales:    &memSales{sales: make(map[uuid.UUID]*entity.Sale)},
		product:  entity.Product{ID: uuid.New(), Code: "789100", Name: "Cafe Torrado", Price: decimal.RequireFromString("6.99"), Active: true},
		customer: entity.Customer{ID: uuid.New(), Name: "Maria Souza", Document: "12345678909"},
	}
	catalog := &memCatalog{products: []entity.Product{f.product}}
	customers := &memCustomers{customers: []entity.Customer{f.customer}}

	saleService := service.NewSaleService(f.sales)
	prints, err := service.NewPrintQueue(
		[]service.PrintDevice{{Name: "default", Type: "none", Printer: printer.NewNullPrinter()}},
		service.PrintQueueOptions{Timeout: time.Second, Width: 48, Header: entity.ReceiptHeader{StoreName: "Mercado"}, Sales: saleService},
	)
	require.NoError(t, err)
	f.prints = prints
	fiscalService := service.NewFiscalService(fiscal.NewSandboxClient(), saleService, prints, time.Second)
	t.Cleanup(fiscalService.Close)

	terminal := tef.NewSandboxTerminal()
	pricing := service.NewPricingService(decimal.RequireFromString("0.09"), nil)
	sessions := service.NewSessionService(999, nil, "", prints)
	carts := service.NewCartService(catalog, customers, pricing)
	catalogService := service.NewCatalogService(catalog, customers)
	payments := service.NewPaymentService(pricing, terminal, saleService, fiscalService, prints, service.PaymentConfig{})

	f.router = Setup(&Handlers{
		Session:  handler.NewSessionHandler(sessions),
		Cart:     handler.NewCartHandler(sessions, carts),
		HeldCart: handler.NewHeldCartHandler(sessions, service.NewHeldCartService(infraRepo.NewHeldCartRepository(rdb, 0)), carts),
		Payment:  handler.NewPaymentHandler(sessions, payments, terminal),
		Sale:     handler.NewSaleHandler(saleService, fiscalService, prints),
		Printer:  handler.NewPrinterHandler(prints),
		Product:  handler.NewProductHandler(catalogService),
		Customer: handler.NewCustomerHandler(catalogService),
	}, &Deps{
		JWTManager:      f.jwt,
		Cfg:             &config.Config{App: config.AppConfig{Name: "pdv-engine"}},
		IdempotencyRepo: &memIdempotency{keys: make(map[string]*entity.IdempotencyKey)},
		RateLimiter:     limiter,
	})
	return f
}

func (f *apiFixture) token(t *testing.T, cashierID uuid.UUID, roles ...string) string {
	t.Helper()
	tok, err := f.jwt.GenerateAccessToken(cashierID, "Caixa", roles)
	require.NoError(t, err)
	return tok
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		var buf bytes.Buffer
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
		req = httptest.NewRequest(method, path, &buf)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, into any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if into != nil {
		require.NoError(t, json.Unmarshal(env.Data, into))
	}
	return env
}

func decodeReason(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Reason string `json:"reason"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Reason
}

func (f *apiFixture) openWithItem(t *testing.T, tok string) {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/v1/terminals/pdv01/session", tok, map[string]string{"opening_balance": "50"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = f.do(t, http.MethodPost, "/api/v1/terminals/PDV01/cart/items", tok, map[string]any{"code": "789100", "quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

// --- tests ---

func TestAPI_PublicEndpointsAndAuth(t *testing.T) {
	f := newAPI(t, nil)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health", "", nil).Code)

	metrics := f.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "pdv_http_request_duration_seconds")

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/v1/sales", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/v1/sales", "not-a-jwt", nil).Code)

	rec := f.do(t, http.MethodGet, "/api/v1/terminals/PDV%2001/session", f.token(t, uuid.New()), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "terminal ids are validated")
}

func TestAPI_CashCheckout(t *testing.T) {
	f := newAPI(t, nil)
	cashier := uuid.New()
	tok := f.token(t, cashier)
	f.openWithItem(t, tok)

	var view service.CartView
	decode(t, f.do(t, http.MethodGet, "/api/v1/terminals/PDV01/cart", tok, nil), &view)
	assert.Equal(t, "15.2382", view.Totals.Total.String())

	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/v1/terminals/PDV01/payment", tok, nil).Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, "/api/v1/terminals/PDV01/payment/method", tok, map[string]string{"method": "cash"}).Code)

	rec := f.do(t, http.MethodPut, "/api/v1/terminals/PDV01/payment/details", tok, map[string]string{"amount_tendered": "15.00"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodPost, "/api/v1/terminals/PDV01/payment/confirm", tok, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.False(t, decode(t, rec, nil).Success)

	f.do(t, http.MethodPut, "/api/v1/terminals/PDV01/payment/details", tok, map[string]string{"amount_tendered": "20.00"})
	key := uuid.NewString()
	rec = f.do(t, http.MethodPost, "/api/v1/terminals/PDV01/payment/confirm", tok, nil, middleware.IdempotencyKeyHeader, key)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sale entity.Sale
	decode(t, rec, &sale)
	assert.Equal(t, "15.2382", sale.Total.String())
	require.Len(t, sale.Payments, 1)
	assert.Equal(t, "4.7618", sale.Payments[0].Change.String())

	replay := f.do(t, http.MethodPost, "/api/v1/terminals/PDV01/payment/confirm", tok, nil, middleware.IdempotencyKeyHeader, key)
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "true", replay.Header().Get("X-Idempotency-Replayed"))
	assert.JSONEq(t, rec.Body.String(), replay.Body.String())

	var drawer struct {
		Balance decimal.Decimal `json:"balance"`
	}
	decode(t, f.do(t, http.MethodGet, "/api/v1/terminals/PDV01/drawer", tok, nil), &drawer)
	assert.Equal(t, "65.2382", drawer.Balance.String())

	path := "/api/v1/sales/" + sale.ID.String()
	assert.Eventually(t, func() bool {
		var got entity.Sale
		rec := f.do(t, http.MethodGet, path, tok, nil)
		if rec.Code != http.StatusOK {
			return false
		}
		decode(t, rec, &got)
		return got.FiscalStatus == enum.FiscalStatusAuthorized && got.PrintStatus != nil && *got.PrintStatus == enum.PrintStatusCompleted
	}, eventually, tick)

	var em entity.FiscalEmission
	decode(t, f.do(t, http.MethodGet, path+"/fiscal", tok, nil), &em)
	assert.Len(t, em.AccessKey, 44)
	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, path+"/fiscal/retry", tok, nil).Code)

	f.prints.Wait()
	var jobs []entity.PrintJob
	decode(t, f.do(t, http.MethodGet, "/api/v1/print-jobs", tok, nil), &jobs)
	kinds := map[entity.PrintJobKind]bool{}
	for _, j := range jobs {
		kinds[j.Kind] = true
	}
	assert.True(t, kinds[entity.PrintReceipt])
	assert.True(t, kinds[entity.PrintFiscalDocument])

	var list struct {
		Items []entity.Sale `json:"items"`
	}
	decode(t, f.do(t, http.MethodGet, "/api/v1/sales?terminal_id=PDV01", tok, nil), &list)
	assert.Len(t, list.Items, 1)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/v1/sales?fiscal_status=lost", tok, nil).Code)
}

func TestAPI_TerminalBelongsToCashier(t *testing.T) {
	f := newAPI(t, nil)
	owner := f.token(t, uuid.New())
	other := f.token(t, uuid.New())
	supervisor := f.token(t, uuid.New(), utils.RoleSupervisor)
	f.openWithItem(t, owner)

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/api/v1/terminals/PDV01/cart", other, nil).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/terminals/PDV01/cart", supervisor, nil).Code)

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/api/v1/terminals", owner, nil).Code)
	var sessions []map[string]any
	decode(t, f.do(t, http.MethodGet, "/api/v1/terminals", supervisor, nil), &sessions)
	assert.Len(t, sessions, 1)

	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodGet, "/api/v1/terminals/PDV02/cart", owner, nil).Code, "no session on PDV02")
	rec := f.do(t, http.MethodPost, "/api/v1/terminals/PDV01/session/close", owner, nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "cart still has items")
}

func TestAPI_HoldAndRecover(t *testing.T) {
	f := newAPI(t, nil)
	tok := f.token(t, uuid.New())
	f.openWithItem(t, tok)

	rec := f.do(t, http.MethodPost, "/api/v1/terminals/PDV01/held-carts", tok, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var held entity.HeldCart
	decode(t, rec, &held)

	var view service.CartView
	decode(t, f.do(t, http.MethodGet, "/api/v1/terminals/PDV01/cart", tok, nil), &view)
	assert.Empty(t, view.Cart.Items)

	var list []entity.HeldCart
	decode(t, f.do(t, http.MethodGet, "/api/v1/terminals/PDV01/held-carts", tok, nil), &list)
	require.Len(t, list, 1)

	rec = f.do(t, http.MethodPost, "/api/v1/terminals/PDV01/held-carts/"+held.ID.String()+"/recover", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &view)
	require.Len(t, view.Cart.Items, 1)
	assert.Equal(t, 2, view.Cart.Items[0].Quantity)

	rec = f.do(t, http.MethodPost, "/api/v1/terminals/PDV01/held-carts/"+held.ID.String()+"/recover", tok, map[string]bool{"overwrite": true})
	assert.Equal(t, http.StatusNotFound, rec.Code, "a held cart is recovered once")
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodDelete, "/api/v1/terminals/PDV01/held-carts/nope", tok, nil).Code)
}

func TestAPI_CartEditsAndCatalog(t *testing.T) {
	f := newAPI(t, nil)
	tok := f.token(t, uuid.New())
	f.openWithItem(t, tok)

	var view service.CartView
	decode(t, f.do(t, http.MethodGet, "/api/v1/terminals/PDV01/cart", tok, nil), &view)
	line := view.Cart.Items[0].ID.String()

	rec := f.do(t, http.MethodPost, "/api/v1/terminals/PDV01/cart/discounts", tok, map[string]string{"kind": "percentage", "value": "150", "scope": "cart"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	rec = f.do(t, http.MethodPost, "/api/v1/terminals/PDV01/cart/discounts", tok, map[string]string{"kind": "bogus", "value": "1", "scope": "cart"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"kind"`)

	rec = f.do(t, http.MethodPut, "/api/v1/terminals/PDV01/cart/customer", tok, map[string]string{"document": "123.456.789-09"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &view)
	require.NotNil(t, view.Cart.Customer)
	assert.Equal(t, "Maria Souza", view.Cart.Customer.Name)

	rec = f.do(t, http.MethodPut, "/api/v1/terminals/PDV01/cart/items/"+line, tok, map[string]int{"quantity": 0})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &view)
	assert.Empty(t, view.Cart.Items, "quantity zero removes the line")

	var products struct {
		Items []entity.Product `json:"items"`
	}
	decode(t, f.do(t, http.MethodGet, "/api/v1/products?search=cafe", tok, nil), &products)
	assert.Len(t, products.Items, 1)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/v1/products/code/000", tok, nil).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/customers/document/12345678909", tok, nil).Code)
}

func TestAPI_QuantityEditsAndRemovalIndex(t *testing.T) {
	f := newAPI(t, nil)
	tok := f.token(t, uuid.New())
	f.openWithItem(t, tok)

	var view service.CartView
	decode(t, f.do(t, http.MethodGet, "/api/v1/terminals/PDV01/cart", tok, nil), &view)
	line := "/api/v1/terminals/PDV01/cart/items/" + view.Cart.Items[0].ID.String()

	rec := f.do(t, http.MethodPut, line, tok, map[string]any{"quantity": 2.5})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "QuantityExceeded", decodeReason(t, rec))
	assert.Equal(t, http.StatusUnprocessableEntity, f.do(t, http.MethodPut, line, tok, map[string]any{}).Code, "quantity is required")

	rec = f.do(t, http.MethodPut, line, tok, map[string]any{"quantity": 1000})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "QuantityExceeded", decodeReason(t, rec))

	rec = f.do(t, http.MethodPut, line, tok, map[string]any{"quantity": 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &view)
	assert.Equal(t, 3, view.Cart.Items[0].Quantity)

	rec = f.do(t, http.MethodPut, line, tok, map[string]any{"quantity": -1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &view)
	assert.Empty(t, view.Cart.Items, "a negative quantity removes the line")

	f.do(t, http.MethodPost, "/api/v1/terminals/PDV01/cart/items", tok, map[string]any{"code": "789100"})
	var unsaved struct {
		UnsavedCart bool `json:"unsaved_cart"`
	}
	decode(t, f.do(t, http.MethodGet, "/api/v1/terminals/PDV01/held-carts/unsaved", tok, nil), &unsaved)
	assert.True(t, unsaved.UnsavedCart)

	decode(t, f.do(t, http.MethodGet, "/api/v1/terminals/PDV01/cart", tok, nil), &view)
	line = "/api/v1/terminals/PDV01/cart/items/" + view.Cart.Items[0].ID.String()
	var removal service.RemovalView
	decode(t, f.do(t, http.MethodDelete, line, tok, nil), &removal)
	assert.Equal(t, 0, removal.RemovedIndex)
	assert.Empty(t, removal.Cart.Items)

	decode(t, f.do(t, http.MethodDelete, line, tok, nil), &removal)
	assert.Equal(t, -1, removal.RemovedIndex)

	decode(t, f.do(t, http.MethodGet, "/api/v1/terminals/PDV01/held-carts/unsaved", tok, nil), &unsaved)
	assert.False(t, unsaved.UnsavedCart)
}

func TestAPI_PrintersAndStream(t *testing.T) {
	f := newAPI(t, nil)
	tok := f.token(t, uuid.New())

	var status []service.PrinterStatus
	decode(t, f.do(t, http.MethodGet, "/api/v1/printers", tok, nil), &status)
	require.Len(t, status, 1)
	assert.Equal(t, "default", status[0].Name)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/v1/printers/cozinha/test", tok, nil).Code)

	srv := httptest.NewServer(f.router)
	defer srv.Close()
	ctx, cancel := context.WithTimeout(context.Background(), eventually)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/print-jobs/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	rec := f.do(t, http.MethodPost, "/api/v1/printers/default/test", tok, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	scanner := bufio.NewScanner(resp.Body)
	sawTestPage := false
	for scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), "data:") && strings.Contains(scanner.Text(), string(entity.PrintTestPage)) {
			sawTestPage = true
			break
		}
	}
	assert.True(t, sawTestPage)
}

func TestAPI_RateLimitPerTerminal(t *testing.T) {
	limiter := middleware.NewTerminalRateLimiter(middleware.RateLimiterConfig{RequestsPerSecond: 0.001, BurstSize: 2})
	defer limiter.Stop()
	f := newAPI(t, limiter)
	tok := f.token(t, uuid.New())

	for i := 0; i < 2; i++ {
		assert.NotEqual(t, http.StatusTooManyRequests, f.do(t, http.MethodGet, "/api/v1/terminals/PDV01/session", tok, nil).Code)
	}
	rec := f.do(t, http.MethodGet, "/api/v1/terminals/PDV01/session", tok, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	assert.NotEqual(t, http.StatusTooManyRequests, f.do(t, http.MethodGet, "/api/v1/terminals/PDV02/session", tok, nil).Code, "other lanes are unaffected")
}

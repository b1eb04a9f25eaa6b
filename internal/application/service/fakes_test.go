package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/pdv-engine/internal/domain/entity"
	"github.com/sangkips/pdv-engine/internal/domain/enum"
	"github.com/sangkips/pdv-engine/internal/domain/repository"
	"github.com/sangkips/pdv-engine/pkg/fiscal"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("database is down")

// memSaleRepo is an in-memory SaleRepository whose writes can be failed.
type memSaleRepo struct {
	mu      sync.Mutex
	sales   map[uuid.UUID]*entity.Sale
	fail    bool
	creates int
}

func newMemSaleRepo() *memSaleRepo {
	return &memSaleRepo{sales: make(map[uuid.UUID]*entity.Sale)}
}

func (r *memSaleRepo) setFail(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = on
}

func (r *memSaleRepo) Create(ctx context.Context, sale *entity.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.fail {
		return errStoreDown
	}
	if _, ok := r.sales[sale.ID]; ok {
		return errors.New("duplicate sale")
	}
	r.sales[sale.ID] = sale.Clone()
	return nil
}

func (r *memSaleRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sales[id]
	if !ok {
		return nil, nil
	}
	out := s.Clone()
	out.Recorded = true
	return out, nil
}

func (r *memSaleRepo) List(ctx context.Context, params *repository.SaleFilterParams) ([]entity.Sale, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Sale
	for _, s := range r.sales {
		if params != nil && params.TerminalID != "" && s.TerminalID != params.TerminalID {
			continue
		}
		out = append(out, *s.Clone())
	}
	return out, int64(len(out)), nil
}

func (r *memSaleRepo) UpdateFiscal(ctx context.Context, id uuid.UUID, u repository.FiscalUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sales[id]
	if !ok {
		return errors.New("sale not found")
	}
	s.FiscalDocType = u.DocType
	s.FiscalStatus = u.Status
	s.AccessKey = u.AccessKey
	s.Protocol = u.Protocol
	s.FiscalError = u.Error
	return nil
}

func (r *memSaleRepo) UpdatePrintStatus(ctx context.Context, id uuid.UUID, status enum.PrintStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sales[id]
	if !ok {
		return errors.New("sale not found")
	}
	s.PrintStatus = &status
	return nil
}

func (r *memSaleRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sales)
}

// memMovementRepo records cash movements.
type memMovementRepo struct {
	mu        sync.Mutex
	movements []entity.CashMovement
	fail      bool
}

func (r *memMovementRepo) Create(ctx context.Context, m *entity.CashMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errStoreDown
	}
	r.movements = append(r.movements, *m)
	return nil
}

// memCatalog serves products.
type memCatalog struct {
	products []*entity.Product
}

func (c *memCatalog) GetByID(ctx context.Context, id uuid.UUID) (*entity.Product, error) {
	for _, p := range c.products {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (c *memCatalog) GetByCode(ctx context.Context, code string) (*entity.Product, error) {
	for _, p := range c.products {
		if p.Code == code {
			return p, nil
		}
	}
	return nil, nil
}

func (c *memCatalog) Search(ctx context.Context, params *repository.ProductSearchParams) ([]entity.Product, int64, error) {
	var out []entity.Product
	q := strings.ToLower(params.Search)
	for _, p := range c.products {
		if params.ActiveOnly && !p.Active {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.Code), q) {
			continue
		}
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

type memCustomers struct{ customers []*entity.Customer }

func (c *memCustomers) GetByID(ctx context.Context, id uuid.UUID) (*entity.Customer, error) {
	for _, cu := range c.customers {
		if cu.ID == id {
			return cu, nil
		}
	}
	return nil, nil
}

func (c *memCustomers) GetByDocument(ctx context.Context, document string) (*entity.Customer, error) {
	for _, cu := range c.customers {
		if cu.Document == document {
			return cu, nil
		}
	}
	return nil, nil
}

// fakePrinter records payloads. Payloads listed in failOn fail; block
// holds every write until released.
type fakePrinter struct {
	mu      sync.Mutex
	printed [][]byte
	failOn  map[string]bool
	block   chan struct{}
	active  int
	overlap bool
}

func newFakePrinter() *fakePrinter {
	return &fakePrinter{failOn: map[string]bool{}}
}

func (p *fakePrinter) Print(ctx context.Context, data []byte) error {
	p.mu.Lock()
	p.active++
	if p.active > 1 {
		p.overlap = true
	}
	block := p.block
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.active--
		p.mu.Unlock()
	}()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failOn[string(data)] {
		return errors.New("paper jam")
	}
	p.printed = append(p.printed, append([]byte(nil), data...))
	return nil
}

func (p *fakePrinter) Close() error      { return nil }
func (p *fakePrinter) IsConnected() bool { return true }

func (p *fakePrinter) printedStrings() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.printed))
	for _, b := range p.printed {
		out = append(out, string(b))
	}
	return out
}

// scriptedFiscal answers submissions from a script of outcomes, then
// authorizes.
type scriptedFiscal struct {
	mu      sync.Mutex
	script  []func(doc *fiscal.Document) (*fiscal.Result, error)
	docs    []*fiscal.Document
	release chan struct{}
}

func (c *scriptedFiscal) Submit(ctx context.Context, doc *fiscal.Document) (*fiscal.Result, error) {
	c.mu.Lock()
	c.docs = append(c.docs, doc)
	var step func(doc *fiscal.Document) (*fiscal.Result, error)
	if len(c.script) > 0 {
		step = c.script[0]
		c.script = c.script[1:]
	}
	release := c.release
	c.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if step != nil {
		return step(doc)
	}
	return &fiscal.Result{Status: fiscal.StatusAuthorized, AccessKey: fiscal.SandboxAccessKey(doc.SaleID), Protocol: "135000000000001"}, nil
}

func (c *scriptedFiscal) submitted() []*fiscal.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*fiscal.Document(nil), c.docs...)
}

// openTestSession opens a session on a fresh SessionService.
func openTestSession(t *testing.T, opening string) (*SessionService, *Session) {
	t.Helper()
	sessions := NewSessionService(0, nil, "", nil)
	sess, err := sessions.Open(context.Background(), "PDV01", uuid.New(), dec(opening))
	require.NoError(t, err)
	return sessions, sess
}

// fillCart puts products straight into the session cart.
func fillCart(t *testing.T, sess *Session, lines ...cartLine) {
	t.Helper()
	sess.mu.Lock()
	defer sess.mu.Unlock()
	for _, l := range lines {
		_, err := sess.cart.AddItem(l.p, l.qty)
		require.NoError(t, err)
	}
}

type cartLine struct {
	p   *entity.Product
	qty int
}

func line(p *entity.Product, qty int) cartLine {
	return cartLine{p: p, qty: qty}
}

const (
	eventually = 2 * time.Second
	tick       = 5 * time.Millisecond
)

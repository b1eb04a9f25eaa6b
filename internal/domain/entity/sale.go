package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/pdv-engine/internal/domain/enum"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DocumentType is the fiscal document requested for a sale
type DocumentType string

const (
	DocumentNFCe DocumentType = "nfce"
	DocumentNFe  DocumentType = "nfe"
)

// Valid reports whether the document type is known.
func (d DocumentType) Valid() bool {
	return d == DocumentNFCe || d == DocumentNFe
}

// Sale is the terminal record of a checkout. It is created exactly once per
// completed payment flow. After creation only the fiscal and print fields
// change; the financial fields are frozen.
type Sale struct {
	ID               uuid.UUID          `gorm:"type:uuid;primary_key" json:"id"`
	Number           string             `gorm:"size:100;unique;not null" json:"number"`
	TerminalID       string             `gorm:"size:50;not null;index" json:"terminal_id"`
	SessionID        uuid.UUID          `gorm:"type:uuid;index" json:"session_id"`
	CashierID        uuid.UUID          `gorm:"type:uuid;not null;index" json:"cashier_id"`
	CustomerID       *uuid.UUID         `gorm:"type:uuid;index" json:"customer_id,omitempty"`
	CustomerName     string             `gorm:"size:255" json:"customer_name,omitempty"`
	CustomerDocument string             `gorm:"size:20" json:"customer_document,omitempty"`
	Notes            string             `gorm:"type:text" json:"notes,omitempty"`
	Subtotal         decimal.Decimal    `gorm:"type:numeric;not null" json:"subtotal"`
	TaxTotal         decimal.Decimal    `gorm:"type:numeric;not null" json:"tax_total"`
	DiscountTotal    decimal.Decimal    `gorm:"type:numeric;not null" json:"discount_total"`
	Total            decimal.Decimal    `gorm:"type:numeric;not null" json:"total"`
	FiscalDocType    DocumentType       `gorm:"size:10" json:"fiscal_doc_type"`
	FiscalStatus     enum.FiscalStatus  `gorm:"default:0" json:"fiscal_status"`
	AccessKey        string             `gorm:"size:60" json:"access_key,omitempty"`
	Protocol         string             `gorm:"size:60" json:"protocol,omitempty"`
	FiscalError      string             `gorm:"type:text" json:"fiscal_error,omitempty"`
	PrintStatus      *enum.PrintStatus  `json:"print_status,omitempty"`
	Recorded         bool               `gorm:"-" json:"recorded"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`

	// Relationships
	Items    []SaleItem `gorm:"foreignKey:SaleID" json:"items"`
	Payments []Payment  `gorm:"foreignKey:SaleID" json:"payments"`
}

// BeforeCreate generates a UUID before creating a new sale
func (s *Sale) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Sale model
func (Sale) TableName() string {
	return "sales"
}

// Customer returns the customer snapshot, or nil for anonymous sales.
func (s *Sale) Customer() *CustomerRef {
	if s.CustomerID == nil {
		return nil
	}
	return &CustomerRef{ID: *s.CustomerID, Name: s.CustomerName, Document: s.CustomerDocument}
}

// Clone returns a deep copy so callers cannot reach the ledger's record.
func (s *Sale) Clone() *Sale {
	out := *s
	if s.CustomerID != nil {
		id := *s.CustomerID
		out.CustomerID = &id
	}
	if s.PrintStatus != nil {
		ps := *s.PrintStatus
		out.PrintStatus = &ps
	}
	out.Items = append([]SaleItem(nil), s.Items...)
	out.Payments = append([]Payment(nil), s.Payments...)
	return &out
}

// SaleItem is a frozen copy of a cart line
type SaleItem struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	SaleID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"sale_id"`
	ProductID       uuid.UUID       `gorm:"type:uuid;not null" json:"product_id"`
	ProductName     string          `gorm:"size:255;not null" json:"product_name"`
	Quantity        int             `gorm:"not null" json:"quantity"`
	UnitPrice       decimal.Decimal `gorm:"type:numeric;not null" json:"unit_price"`
	LineTotal       decimal.Decimal `gorm:"type:numeric;not null" json:"line_total"`
	DiscountedTotal decimal.Decimal `gorm:"type:numeric;not null" json:"discounted_total"`
}

// BeforeCreate generates a UUID before creating a new sale item
func (i *SaleItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the SaleItem model
func (SaleItem) TableName() string {
	return "sale_items"
}

// Payment records how (part of) a sale was paid
type Payment struct {
	ID               uuid.UUID          `gorm:"type:uuid;primary_key" json:"id"`
	SaleID           uuid.UUID          `gorm:"type:uuid;not null;index" json:"sale_id"`
	Method           enum.PaymentMethod `gorm:"not null" json:"method"`
	Amount           decimal.Decimal    `gorm:"type:numeric;not null" json:"amount"`
	Tendered         decimal.Decimal    `gorm:"type:numeric;not null" json:"tendered"`
	Change           decimal.Decimal    `gorm:"type:numeric;not null" json:"change"`
	Installments     int                `gorm:"not null;default:1" json:"installments"`
	CardType         CardType           `gorm:"size:10" json:"card_type,omitempty"`
	AuthorizationRef string             `gorm:"size:100" json:"authorization_ref,omitempty"`
}

// BeforeCreate generates a UUID before creating a new payment
func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Payment model
func (Payment) TableName() string {
	return "sale_payments"
}

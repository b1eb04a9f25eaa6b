package entity

// ReceiptHeader holds the store/business header printed at the top of a receipt.
type ReceiptHeader struct {
	StoreName string `json:"store_name"`
	Address   string `json:"address,omitempty"`
	Phone     string `json:"phone,omitempty"`
	TaxID     string `json:"tax_id,omitempty"` // CNPJ
}

// ReceiptItem represents a single line item on a receipt.
type ReceiptItem struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Total     string `json:"total"`
}

// ReceiptPayment is a payment line on a receipt.
type ReceiptPayment struct {
	Method       string `json:"method"`
	Amount       string `json:"amount"`
	Installments int    `json:"installments,omitempty"`
}

// Receipt is a value object representing a printable document.
// It is NOT a database entity: it is composed from sale data at print time.
// Money is pre-formatted so the printer layer never does arithmetic.
type Receipt struct {
	Header    ReceiptHeader    `json:"header"`
	Title     string           `json:"title,omitempty"`
	Number    string           `json:"number"`
	Date      string           `json:"date"`
	Terminal  string           `json:"terminal,omitempty"`
	Cashier   string           `json:"cashier,omitempty"`
	Customer  string           `json:"customer,omitempty"`
	Items     []ReceiptItem    `json:"items"`
	SubTotal  string           `json:"sub_total"`
	Discount  string           `json:"discount,omitempty"`
	Tax       string           `json:"tax"`
	Total     string           `json:"total"`
	Payments  []ReceiptPayment `json:"payments,omitempty"`
	Change    string           `json:"change,omitempty"`
	AccessKey string           `json:"access_key,omitempty"`
	Protocol  string           `json:"protocol,omitempty"`
	Footer    []string         `json:"footer,omitempty"`
}

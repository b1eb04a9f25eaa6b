package enum

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// PaymentMethod is how a sale is settled at the counter
type PaymentMethod int

const (
	PaymentMethodCash     PaymentMethod = 0
	PaymentMethodCredit   PaymentMethod = 1
	PaymentMethodDebit    PaymentMethod = 2
	PaymentMethodPix      PaymentMethod = 3
	PaymentMethodTransfer PaymentMethod = 4
)

var paymentMethodNames = [...]string{"cash", "credit", "debit", "pix", "transfer"}

func (m PaymentMethod) String() string {
	if int(m) < 0 || int(m) >= len(paymentMethodNames) {
		return "unknown"
	}
	return paymentMethodNames[m]
}

// Valid reports whether m is one of the supported methods.
func (m PaymentMethod) Valid() bool {
	return int(m) >= 0 && int(m) < len(paymentMethodNames)
}

// IsCard reports whether the method goes through the card terminal.
func (m PaymentMethod) IsCard() bool {
	return m == PaymentMethodCredit || m == PaymentMethodDebit
}

// ParsePaymentMethod converts a method name into a PaymentMethod.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	for i, name := range paymentMethodNames {
		if name == s {
			return PaymentMethod(i), nil
		}
	}
	return 0, fmt.Errorf("unknown payment method %q", s)
}

func (m PaymentMethod) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *PaymentMethod) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		var i int
		if err := json.Unmarshal(data, &i); err != nil {
			return err
		}
		*m = PaymentMethod(i)
		return nil
	}
	parsed, err := ParsePaymentMethod(str)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m PaymentMethod) Value() (driver.Value, error) {
	return int64(m), nil
}

func (m *PaymentMethod) Scan(value interface{}) error {
	if value == nil {
		*m = PaymentMethodCash
		return nil
	}
	switch v := value.(type) {
	case int64:
		*m = PaymentMethod(v)
	case int:
		*m = PaymentMethod(v)
	}
	return nil
}

package enum

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// FiscalStatus tracks a sale's NFC-e/NF-e emission lifecycle:
// requested -> submitted -> authorized | denied | failed.
type FiscalStatus int

const (
	FiscalStatusNone       FiscalStatus = 0
	FiscalStatusRequested  FiscalStatus = 1
	FiscalStatusSubmitted  FiscalStatus = 2
	FiscalStatusAuthorized FiscalStatus = 3
	FiscalStatusDenied     FiscalStatus = 4
	FiscalStatusFailed     FiscalStatus = 5
)

var fiscalStatusNames = [...]string{"none", "requested", "submitted", "authorized", "denied", "failed"}

func (s FiscalStatus) String() string {
	if int(s) < 0 || int(s) >= len(fiscalStatusNames) {
		return "none"
	}
	return fiscalStatusNames[s]
}

// Terminal reports whether no further transition happens without user action.
func (s FiscalStatus) Terminal() bool {
	return s == FiscalStatusAuthorized || s == FiscalStatusDenied || s == FiscalStatusFailed
}

// InFlight reports whether a submission is outstanding.
func (s FiscalStatus) InFlight() bool {
	return s == FiscalStatusRequested || s == FiscalStatusSubmitted
}

func (s FiscalStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *FiscalStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		var i int
		if err := json.Unmarshal(data, &i); err != nil {
			return err
		}
		*s = FiscalStatus(i)
		return nil
	}
	parsed, err := ParseFiscalStatus(str)
	if err != nil {
		parsed = FiscalStatusNone
	}
	*s = parsed
	return nil
}

// ParseFiscalStatus converts a status name into a FiscalStatus.
func ParseFiscalStatus(s string) (FiscalStatus, error) {
	for i, name := range fiscalStatusNames {
		if name == s {
			return FiscalStatus(i), nil
		}
	}
	return FiscalStatusNone, fmt.Errorf("unknown fiscal status %q", s)
}

func (s FiscalStatus) Value() (driver.Value, error) {
	return int64(s), nil
}

func (s *FiscalStatus) Scan(value interface{}) error {
	if value == nil {
		*s = FiscalStatusNone
		return nil
	}
	switch v := value.(type) {
	case int64:
		*s = FiscalStatus(v)
	case int:
		*s = FiscalStatus(v)
	}
	return nil
}

package enum

import (
	"database/sql/driver"
	"encoding/json"
)

// PrintStatus represents the state of a print job
type PrintStatus int

const (
	PrintStatusPending   PrintStatus = 0
	PrintStatusPrinting  PrintStatus = 1
	PrintStatusCompleted PrintStatus = 2
	PrintStatusFailed    PrintStatus = 3
)

func (s PrintStatus) String() string {
	names := [...]string{"pending", "printing", "completed", "failed"}
	if int(s) < 0 || int(s) >= len(names) {
		return "pending"
	}
	return names[s]
}

// Settled reports whether the job reached completed or failed.
func (s PrintStatus) Settled() bool {
	return s == PrintStatusCompleted || s == PrintStatusFailed
}

func (s PrintStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *PrintStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		var i int
		if err := json.Unmarshal(data, &i); err != nil {
			return err
		}
		*s = PrintStatus(i)
		return nil
	}
	switch str {
	case "pending":
		*s = PrintStatusPending
	case "printing":
		*s = PrintStatusPrinting
	case "completed":
		*s = PrintStatusCompleted
	case "failed":
		*s = PrintStatusFailed
	}
	return nil
}

func (s PrintStatus) Value() (driver.Value, error) {
	return int64(s), nil
}

func (s *PrintStatus) Scan(value interface{}) error {
	if value == nil {
		*s = PrintStatusPending
		return nil
	}
	switch v := value.(type) {
	case int64:
		*s = PrintStatus(v)
	case int:
		*s = PrintStatus(v)
	}
	return nil
}

package utils

import (
	"errors"
	"regexp"
	"strings"
)

var terminalIDPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9_-]{0,19}$`)

// NormalizeTerminalID upper-cases and validates a terminal id taken from a
// URL. Ids are 1-20 characters of letters, digits, '-' and '_'.
func NormalizeTerminalID(s string) (string, error) {
	id := strings.ToUpper(strings.TrimSpace(s))
	if !terminalIDPattern.MatchString(id) {
		return "", errors.New("invalid terminal id")
	}
	return id, nil
}

// Package numbering produces the fiscal document numbers printed on invoices:
// the 7 digit invoice number and the "00-NNNNNN" control number.
package numbering

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// ControlPrefix precedes the numeric part of every control number.
	ControlPrefix = "00-"
	// ControlBaseline is the value an empty store starts from.
	ControlBaseline = "00-000000"
	// InvoiceBaseline is the value an empty invoice counter starts from.
	InvoiceBaseline = "0000000"

	controlWidth = 6
	invoiceWidth = 7
)

// ErrMalformed is returned when a stored number cannot be parsed.
var ErrMalformed = errors.New("numbering: malformed document number")

// NextControlNumber increments a control number of the form "00-NNNNNN".
// An empty previous value starts from ControlBaseline. Values past 999999
// keep growing in width rather than wrapping.
func NextControlNumber(prev string) (string, error) {
	prev = strings.TrimSpace(prev)
	if prev == "" {
		prev = ControlBaseline
	}
	if !strings.HasPrefix(prev, ControlPrefix) {
		return "", fmt.Errorf("%w: %q lacks prefix %q", ErrMalformed, prev, ControlPrefix)
	}
	n, err := parseCounter(strings.TrimPrefix(prev, ControlPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrMalformed, prev)
	}
	return FormatControlNumber(n + 1), nil
}

// NextInvoiceNumber increments a zero padded 7 digit invoice number.
func NextInvoiceNumber(prev string) (string, error) {
	prev = strings.TrimSpace(prev)
	if prev == "" {
		prev = InvoiceBaseline
	}
	n, err := parseCounter(prev)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrMalformed, prev)
	}
	return FormatInvoiceNumber(n + 1), nil
}

// FormatControlNumber renders n as a control number.
func FormatControlNumber(n int64) string {
	return ControlPrefix + pad(n, controlWidth)
}

// FormatInvoiceNumber renders n as an invoice number.
func FormatInvoiceNumber(n int64) string {
	return pad(n, invoiceWidth)
}

func parseCounter(s string) (int64, error) {
	if s == "" {
		return 0, ErrMalformed
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, ErrMalformed
		}
	}
	return strconv.ParseInt(s, 10, 64)
}

func pad(n int64, width int) string {
	return fmt.Sprintf("%0*d", width, n)
}

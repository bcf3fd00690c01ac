// Package fxrates provides the bolivar/USD exchange rate used to print
// dollar equivalents on invoices.
package fxrates

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const (
	SourceBCV     = "BCV"
	SourceDefault = "default"
)

// ErrInvalidRate is returned for non-positive rates.
var ErrInvalidRate = errors.New("fxrates: rate must be positive")

// Rate is bolivars per US dollar.
type Rate struct {
	Value     decimal.Decimal `json:"valor"`
	Source    string          `json:"fuente"`
	UpdatedAt time.Time       `json:"fecha_actualizacion"`
	FetchedAt time.Time       `json:"consultado_en"`
}

// IsFallback reports whether the rate is the configured default.
func (r Rate) IsFallback() bool {
	return r.Source == SourceDefault
}

// USDEquivalent converts a bolivar amount to dollars at rate, rounded to cents.
func USDEquivalent(total, rate decimal.Decimal) (decimal.Decimal, error) {
	if !rate.IsPositive() {
		return decimal.Zero, ErrInvalidRate
	}
	return total.DivRound(rate, 2), nil
}

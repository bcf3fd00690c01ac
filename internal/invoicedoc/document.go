// Package invoicedoc assembles the printable invoice: header, lines,
// totals, QR code, watermark and exchange rate disclosure.
package invoicedoc

import (
	"html/template"
	"time"
)

// Company identifies the issuer printed on every invoice.
type Company struct {
	Name    string
	RIF     string
	Address string
}

type ClientBlock struct {
	Name    string
	RIF     string
	Address string
	Phone   string
	Email   string
}

type LineRow struct {
	Code        string
	Description string
	Quantity    int
	UnitPrice   string
	Total       string
}

// Document is the view model rendered into the invoice template.
// Monetary fields are already formatted for display.
type Document struct {
	Company        Company
	InvoiceNumber  string
	ControlNumber  string
	Date           time.Time
	IssuedOn       string
	Voided         bool
	Client         ClientBlock
	Lines          []LineRow
	Subtotal       string
	Tax            string
	TaxRateLabel   string
	Total          string
	USDTotal       string
	RateDisclosure string
	QRCode         template.URL
	Watermark      template.URL
}

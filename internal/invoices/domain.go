// Package invoices issues sales invoices with their lines and payments.
package invoices

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
)

// Status is the lifecycle state of an invoice.
type Status string

const (
	StatusPending Status = "pendiente"
	StatusPaid    Status = "pagado"
	StatusVoid    Status = "anulado"
)

// IdempotencyModule scopes invoice idempotency keys.
const IdempotencyModule = "facturas"

// MaxIdempotencyKeyLen matches idempotency_keys.key.
const MaxIdempotencyKeyLen = 128

var (
	ErrNotFound          = fmt.Errorf("invoice not found: %w", httpx.ErrNotFound)
	ErrInvalidTransition = fmt.Errorf("invalid invoice status transition: %w", httpx.ErrConflict)
	ErrOverpayment       = fmt.Errorf("payments exceed invoice total: %w", httpx.ErrUnprocessable)
	ErrInvalidAmount     = fmt.Errorf("payment amount must be positive: %w", httpx.ErrValidation)
	ErrUnknownMethod     = fmt.Errorf("payment method not available: %w", httpx.ErrUnprocessable)
	ErrDuplicateRequest  = fmt.Errorf("invoice request already processed: %w", httpx.ErrConflict)
	ErrUnknownClient     = fmt.Errorf("client does not exist: %w", httpx.ErrUnprocessable)
	ErrNoItems           = fmt.Errorf("invoice requires at least one item: %w", httpx.ErrValidation)
	ErrKeyTooLong        = fmt.Errorf("idempotency key exceeds %d characters: %w", MaxIdempotencyKeyLen, httpx.ErrValidation)
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusVoid:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Voided invoices are terminal.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusPaid || next == StatusVoid
	case StatusPaid:
		return next == StatusVoid
	}
	return false
}

type Invoice struct {
	ID            int64           `json:"id"`
	InvoiceNumber string          `json:"numero_factura"`
	ControlNumber string          `json:"numero_control"`
	ClientID      int64           `json:"cliente_id"`
	ClientName    string          `json:"cliente_nombre,omitempty"`
	Date          time.Time       `json:"fecha"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"impuesto"`
	Total         decimal.Decimal `json:"total"`
	TaxRate       decimal.Decimal `json:"tasa_impuesto"`
	Status        Status          `json:"estado"`
	Paid          decimal.Decimal `json:"pagado"`
	Lines         []Line          `json:"detalles,omitempty"`
	Payments      []Payment       `json:"pagos,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Balance is the amount still owed.
func (i Invoice) Balance() decimal.Decimal {
	return i.Total.Sub(i.Paid)
}

type Line struct {
	ID          int64           `json:"id"`
	InvoiceID   int64           `json:"factura_id"`
	ProductID   int64           `json:"producto_id"`
	ProductCode string          `json:"codigo,omitempty"`
	Description string          `json:"descripcion,omitempty"`
	Quantity    int             `json:"cantidad"`
	Price       decimal.Decimal `json:"precio"`
}

// Total is the extended amount of the line.
func (l Line) Total() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Payment struct {
	ID         int64           `json:"id"`
	InvoiceID  int64           `json:"factura_id"`
	MethodID   int64           `json:"metodo_pago_id"`
	MethodName string          `json:"metodo_pago,omitempty"`
	Amount     decimal.Decimal `json:"monto"`
	Reference  *string         `json:"referencia,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

type PaymentMethod struct {
	ID     int64  `json:"id"`
	Name   string `json:"nombre"`
	Active bool   `json:"activo"`
}

type ItemRequest struct {
	ProductID int64 `json:"producto_id" validate:"required,gt=0"`
	Quantity  int   `json:"cantidad" validate:"required,gt=0"`
}

type PaymentRequest struct {
	MethodID  int64           `json:"metodo_pago_id" validate:"required,gt=0"`
	Amount    decimal.Decimal `json:"monto"`
	Reference *string         `json:"referencia,omitempty" validate:"omitempty,max=100"`
}

type CreateInvoiceRequest struct {
	ClientID int64            `json:"cliente_id" validate:"required,gt=0"`
	Items    []ItemRequest    `json:"items" validate:"required,min=1,dive"`
	Payments []PaymentRequest `json:"pagos,omitempty" validate:"omitempty,dive"`
}

type AddPaymentsRequest struct {
	Payments []PaymentRequest `json:"pagos" validate:"required,min=1,dive"`
}

type ListInvoicesRequest struct {
	Status   Status
	ClientID int64
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

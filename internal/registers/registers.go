// Package registers tracks cash register sessions and guards each POS
// terminal against being driven from two places at once.
package registers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/employees"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
)

type Status string

const (
	StatusOpen   Status = "abierta"
	StatusClosed Status = "cerrada"
)

var (
	ErrNotFound      = fmt.Errorf("register session not found: %w", httpx.ErrNotFound)
	ErrTerminalBusy  = fmt.Errorf("terminal already has an open register: %w", httpx.ErrConflict)
	ErrAlreadyClosed = fmt.Errorf("register session already closed: %w", httpx.ErrConflict)
	ErrInvalidAmount = fmt.Errorf("amount must be zero or positive: %w", httpx.ErrValidation)
)

type Register struct {
	ID            int64            `json:"id"`
	EmployeeID    int64            `json:"empleado_id"`
	EmployeeName  string           `json:"empleado,omitempty"`
	Terminal      string           `json:"terminal"`
	OpeningAmount decimal.Decimal  `json:"monto_apertura"`
	ClosingAmount *decimal.Decimal `json:"monto_cierre,omitempty"`
	SalesTotal    *decimal.Decimal `json:"total_ventas,omitempty"`
	Status        Status           `json:"estado"`
	OpenedAt      time.Time        `json:"abierta_en"`
	ClosedAt      *time.Time       `json:"cerrada_en,omitempty"`
}

// Difference is closing cash minus opening cash minus sales; nil while open.
func (r Register) Difference() *decimal.Decimal {
	if r.ClosingAmount == nil || r.SalesTotal == nil {
		return nil
	}
	diff := r.ClosingAmount.Sub(r.OpeningAmount).Sub(*r.SalesTotal)
	return &diff
}

type OpenRequest struct {
	EmployeeID    int64           `json:"empleado_id" validate:"required,gt=0"`
	PIN           string          `json:"pin" validate:"required,number,min=4,max=8"`
	Terminal      string          `json:"terminal" validate:"required,max=50"`
	OpeningAmount decimal.Decimal `json:"monto_apertura"`
}

type CloseRequest struct {
	ClosingAmount decimal.Decimal `json:"monto_cierre"`
}

type ListRequest struct {
	Status Status
	Limit  int
	Offset int
}

type Repository interface {
	Open(ctx context.Context, r Register) (*Register, error)
	// Close marks an open session closed, computing total_ventas from paid
	// invoices issued while it was open.
	Close(ctx context.Context, id int64, closing decimal.Decimal) (*Register, error)
	Get(ctx context.Context, id int64) (*Register, error)
	List(ctx context.Context, req ListRequest) ([]Register, int, error)
}

// PINVerifier authenticates the employee opening a register.
type PINVerifier interface {
	VerifyPIN(ctx context.Context, id int64, pin string) (*employees.Employee, error)
}

type Service struct {
	repo   Repository
	pins   PINVerifier
	logger *slog.Logger
}

func NewService(repo Repository, pins PINVerifier, logger *slog.Logger) *Service {
	return &Service{repo: repo, pins: pins, logger: logger}
}

func (s *Service) Open(ctx context.Context, req OpenRequest) (*Register, error) {
	if req.OpeningAmount.IsNegative() {
		return nil, ErrInvalidAmount
	}
	emp, err := s.pins.VerifyPIN(ctx, req.EmployeeID, req.PIN)
	if err != nil {
		s.logger.Warn("register open rejected", slog.Int64("empleado_id", req.EmployeeID), slog.String("terminal", req.Terminal))
		return nil, err
	}
	reg, err := s.repo.Open(ctx, Register{
		EmployeeID:    emp.ID,
		Terminal:      strings.ToLower(strings.TrimSpace(req.Terminal)),
		OpeningAmount: req.OpeningAmount.Round(2),
		Status:        StatusOpen,
	})
	if err != nil {
		return nil, err
	}
	reg.EmployeeName = emp.Name
	s.logger.Info("register opened", slog.Int64("id", reg.ID), slog.String("terminal", reg.Terminal), slog.String("empleado", emp.Name))
	return reg, nil
}

func (s *Service) Close(ctx context.Context, id int64, req CloseRequest) (*Register, error) {
	if req.ClosingAmount.IsNegative() {
		return nil, ErrInvalidAmount
	}
	reg, err := s.repo.Close(ctx, id, req.ClosingAmount.Round(2))
	if err != nil {
		return nil, err
	}
	attrs := []any{slog.Int64("id", reg.ID), slog.String("terminal", reg.Terminal)}
	if diff := reg.Difference(); diff != nil {
		attrs = append(attrs, slog.String("diferencia", diff.StringFixed(2)))
	}
	s.logger.Info("register closed", attrs...)
	return reg, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Register, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListRequest) ([]Register, int, error) {
	return s.repo.List(ctx, req)
}

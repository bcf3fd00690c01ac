package invoices

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/numbering"
	"github.com/odyssey-erp/odyssey-pos/internal/products"
)

// Recorder receives invoice lifecycle events, typically for metrics.
type Recorder interface {
	RecordInvoiceEvent(event string)
}

// Service coordinates invoice issuance, payment and voiding.
type Service struct {
	repo     Repository
	logger   *slog.Logger
	taxRate  decimal.Decimal
	recorder Recorder
}

// NewService builds the invoice service. A nil recorder disables events.
func NewService(repo Repository, logger *slog.Logger, taxRate decimal.Decimal, recorder Recorder) *Service {
	return &Service{repo: repo, logger: logger, taxRate: taxRate, recorder: recorder}
}

func (s *Service) record(event string) {
	if s.recorder != nil {
		s.recorder.RecordInvoiceEvent(event)
	}
}

// Create issues a new invoice. Numbering, stock, lines and payments are
// committed together or not at all. A non-empty idempotencyKey makes
// retries of the same request fail with ErrDuplicateRequest.
func (s *Service) Create(ctx context.Context, req CreateInvoiceRequest, idempotencyKey string) (*Invoice, error) {
	if len(req.Items) == 0 {
		return nil, ErrNoItems
	}
	if len(idempotencyKey) > MaxIdempotencyKeyLen {
		return nil, ErrKeyTooLong
	}
	for _, p := range req.Payments {
		if !p.Amount.IsPositive() {
			return nil, ErrInvalidAmount
		}
	}

	var created Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if idempotencyKey != "" {
			if err := tx.ClaimIdempotencyKey(ctx, idempotencyKey); err != nil {
				return err
			}
		}

		pair, err := tx.NextNumbers(ctx)
		if err != nil {
			return fmt.Errorf("reserve numbers: %w", err)
		}

		lines := make([]Line, len(req.Items))
		ids := make([]int64, len(req.Items))
		for i, item := range req.Items {
			lines[i] = Line{ProductID: item.ProductID, Quantity: item.Quantity}
			ids[i] = item.ProductID
		}
		for _, i := range products.LockOrder(ids) {
			price, err := tx.TakeStock(ctx, lines[i].ProductID, lines[i].Quantity)
			if err != nil {
				return err
			}
			lines[i].Price = price
		}

		totals := CalculateTotals(lines, s.taxRate)
		amounts := make([]decimal.Decimal, 0, len(req.Payments))
		for _, p := range req.Payments {
			amounts = append(amounts, p.Amount.Round(2))
		}
		paid, err := CheckPayments(totals.Total, decimal.Zero, amounts)
		if err != nil {
			return err
		}

		created = Invoice{
			InvoiceNumber: pair.InvoiceNumber,
			ControlNumber: pair.ControlNumber,
			ClientID:      req.ClientID,
			Subtotal:      totals.Subtotal,
			Tax:           totals.Tax,
			Total:         totals.Total,
			TaxRate:       s.taxRate,
			Status:        StatusFor(totals.Total, paid),
			Paid:          paid,
		}
		if err := tx.InsertInvoice(ctx, &created); err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}

		for i := range lines {
			lines[i].InvoiceID = created.ID
			if err := tx.InsertLine(ctx, &lines[i]); err != nil {
				return fmt.Errorf("insert invoice line: %w", err)
			}
		}
		created.Lines = lines

		payments, err := s.insertPayments(ctx, tx, created.ID, req.Payments)
		if err != nil {
			return err
		}
		created.Payments = payments
		return nil
	})
	if err != nil {
		s.record("create_failed")
		return nil, err
	}

	s.record("created")
	if created.Status == StatusPaid {
		s.record("paid")
	}
	s.logger.Info("invoice issued",
		slog.Int64("id", created.ID),
		slog.String("numero_factura", created.InvoiceNumber),
		slog.String("numero_control", created.ControlNumber),
		slog.String("total", created.Total.StringFixed(2)),
		slog.String("estado", string(created.Status)))
	return s.repo.Get(ctx, created.ID)
}

func (s *Service) insertPayments(ctx context.Context, tx TxRepository, invoiceID int64, reqs []PaymentRequest) ([]Payment, error) {
	payments := make([]Payment, 0, len(reqs))
	for _, p := range reqs {
		active, err := tx.PaymentMethodActive(ctx, p.MethodID)
		if err != nil {
			return nil, err
		}
		if !active {
			return nil, fmt.Errorf("method %d: %w", p.MethodID, ErrUnknownMethod)
		}
		payment := Payment{
			InvoiceID: invoiceID,
			MethodID:  p.MethodID,
			Amount:    p.Amount.Round(2),
			Reference: p.Reference,
		}
		if err := tx.InsertPayment(ctx, &payment); err != nil {
			return nil, fmt.Errorf("insert payment: %w", err)
		}
		payments = append(payments, payment)
	}
	return payments, nil
}

// AddPayments records payments against a pending invoice and marks it
// paid once the total is covered.
func (s *Service) AddPayments(ctx context.Context, id int64, req AddPaymentsRequest) (*Invoice, error) {
	settled := false
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.LockInvoice(ctx, id)
		if err != nil {
			return err
		}
		if inv.Status != StatusPending {
			return fmt.Errorf("invoice %s is %s: %w", inv.InvoiceNumber, inv.Status, ErrInvalidTransition)
		}

		amounts := make([]decimal.Decimal, 0, len(req.Payments))
		for _, p := range req.Payments {
			amounts = append(amounts, p.Amount.Round(2))
		}
		paid, err := CheckPayments(inv.Total, inv.Paid, amounts)
		if err != nil {
			return err
		}
		if _, err := s.insertPayments(ctx, tx, id, req.Payments); err != nil {
			return err
		}
		if StatusFor(inv.Total, paid) == StatusPaid {
			if err := tx.UpdateStatus(ctx, id, StatusPaid); err != nil {
				return err
			}
			settled = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if settled {
		s.record("paid")
	}
	return s.repo.Get(ctx, id)
}

// Void annuls an invoice and returns its items to stock.
func (s *Service) Void(ctx context.Context, id int64) (*Invoice, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.LockInvoice(ctx, id)
		if err != nil {
			return err
		}
		if !inv.Status.CanTransitionTo(StatusVoid) {
			return fmt.Errorf("invoice %s is %s: %w", inv.InvoiceNumber, inv.Status, ErrInvalidTransition)
		}
		ids := make([]int64, len(inv.Lines))
		for i, l := range inv.Lines {
			ids[i] = l.ProductID
		}
		for _, i := range products.LockOrder(ids) {
			l := inv.Lines[i]
			if err := tx.ReturnStock(ctx, l.ProductID, l.Quantity); err != nil {
				return fmt.Errorf("restock product %d: %w", l.ProductID, err)
			}
		}
		return tx.UpdateStatus(ctx, id, StatusVoid)
	})
	if err != nil {
		return nil, err
	}
	s.record("voided")
	s.logger.Info("invoice voided", slog.Int64("id", id))
	return s.repo.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (*Invoice, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	return s.repo.List(ctx, req)
}

// NextNumbers previews the numbers the next invoice would receive.
func (s *Service) NextNumbers(ctx context.Context) (numbering.Pair, error) {
	return s.repo.PeekNumbers(ctx)
}

func (s *Service) PaymentMethods(ctx context.Context) ([]PaymentMethod, error) {
	return s.repo.PaymentMethods(ctx)
}

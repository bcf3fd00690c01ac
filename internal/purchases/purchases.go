// Package purchases records supplier purchases and the stock they bring in.
package purchases

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/products"
)

var (
	ErrNotFound         = fmt.Errorf("purchase not found: %w", httpx.ErrNotFound)
	ErrDuplicateDoc     = fmt.Errorf("supplier document already recorded: %w", httpx.ErrDuplicate)
	ErrUnknownReference = fmt.Errorf("supplier or product does not exist: %w", httpx.ErrUnprocessable)
	ErrInvalidCost      = fmt.Errorf("cost must be zero or positive: %w", httpx.ErrValidation)
)

const dateLayout = "2006-01-02"

type Purchase struct {
	ID             int64           `json:"id"`
	SupplierID     int64           `json:"proveedor_id"`
	SupplierName   string          `json:"proveedor,omitempty"`
	DocumentNumber string          `json:"numero_documento"`
	Date           time.Time       `json:"fecha"`
	Total          decimal.Decimal `json:"total"`
	Lines          []Line          `json:"detalles,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

type Line struct {
	ID         int64           `json:"id"`
	PurchaseID int64           `json:"compra_id"`
	ProductID  int64           `json:"producto_id"`
	Quantity   int             `json:"cantidad"`
	Cost       decimal.Decimal `json:"costo"`
}

type ItemRequest struct {
	ProductID int64           `json:"producto_id" validate:"required,gt=0"`
	Quantity  int             `json:"cantidad" validate:"required,gt=0"`
	Cost      decimal.Decimal `json:"costo"`
}

type CreatePurchaseRequest struct {
	SupplierID     int64         `json:"proveedor_id" validate:"required,gt=0"`
	DocumentNumber string        `json:"numero_documento" validate:"required,max=50"`
	Date           string        `json:"fecha" validate:"required,datetime=2006-01-02"`
	Items          []ItemRequest `json:"items" validate:"required,min=1,dive"`
}

type ListPurchasesRequest struct {
	SupplierID int64
	Limit      int
	Offset     int
}

// PurchaseTotal sums cost*quantity rounded to cents.
func PurchaseTotal(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Cost.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total.Round(2)
}

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (*Purchase, error)
	List(ctx context.Context, req ListPurchasesRequest) ([]Purchase, int, error)
}

type TxRepository interface {
	InsertPurchase(ctx context.Context, p *Purchase) error
	InsertLine(ctx context.Context, l *Line) error
	AddStock(ctx context.Context, productID int64, qty int) error
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Create records the purchase and its lines and adds the received
// quantities to stock, all in one transaction.
func (s *Service) Create(ctx context.Context, req CreatePurchaseRequest) (*Purchase, error) {
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: fecha must be YYYY-MM-DD", httpx.ErrValidation)
	}
	lines := make([]Line, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Cost.IsNegative() {
			return nil, ErrInvalidCost
		}
		lines = append(lines, Line{ProductID: item.ProductID, Quantity: item.Quantity, Cost: item.Cost.Round(2)})
	}

	p := Purchase{
		SupplierID:     req.SupplierID,
		DocumentNumber: strings.TrimSpace(req.DocumentNumber),
		Date:           date,
		Total:          PurchaseTotal(lines),
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.InsertPurchase(ctx, &p); err != nil {
			return err
		}
		ids := make([]int64, len(lines))
		for i := range lines {
			lines[i].PurchaseID = p.ID
			if err := tx.InsertLine(ctx, &lines[i]); err != nil {
				return err
			}
			ids[i] = lines[i].ProductID
		}
		for _, i := range products.LockOrder(ids) {
			if err := tx.AddStock(ctx, lines[i].ProductID, lines[i].Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("purchase recorded",
		slog.Int64("id", p.ID),
		slog.Int64("proveedor_id", p.SupplierID),
		slog.String("total", p.Total.StringFixed(2)))
	return s.repo.Get(ctx, p.ID)
}

func (s *Service) Get(ctx context.Context, id int64) (*Purchase, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListPurchasesRequest) ([]Purchase, int, error) {
	return s.repo.List(ctx, req)
}

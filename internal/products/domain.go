// Package products manages the sellable catalogue and its stock.
package products

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
)

var (
	ErrNotFound          = fmt.Errorf("product not found: %w", httpx.ErrNotFound)
	ErrCodeExists        = fmt.Errorf("product code already exists: %w", httpx.ErrDuplicate)
	ErrInsufficientStock = fmt.Errorf("insufficient stock: %w", httpx.ErrConflict)
	ErrInvalidPrice      = fmt.Errorf("price must be zero or positive: %w", httpx.ErrValidation)
	ErrInvalidPercentage = fmt.Errorf("percentage must be greater than -100: %w", httpx.ErrValidation)
)

type Product struct {
	ID          int64           `json:"id"`
	Code        string          `json:"codigo"`
	Description string          `json:"descripcion"`
	Quantity    int             `json:"cantidad"`
	Price       decimal.Decimal `json:"precio"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type CreateProductRequest struct {
	Code        string          `json:"codigo" validate:"required,max=50"`
	Description string          `json:"descripcion" validate:"required,max=255"`
	Quantity    int             `json:"cantidad" validate:"gte=0"`
	Price       decimal.Decimal `json:"precio"`
}

type UpdateProductRequest struct {
	Code        *string          `json:"codigo,omitempty" validate:"omitempty,min=1,max=50"`
	Description *string          `json:"descripcion,omitempty" validate:"omitempty,min=1,max=255"`
	Quantity    *int             `json:"cantidad,omitempty" validate:"omitempty,gte=0"`
	Price       *decimal.Decimal `json:"precio,omitempty"`
}

// PriceAdjustmentRequest scales every price by (1 + Percentage/100).
type PriceAdjustmentRequest struct {
	Percentage decimal.Decimal `json:"porcentaje"`
}

type PriceAdjustmentResult struct {
	Affected int64 `json:"afectados"`
}

type ListProductsRequest struct {
	Search string
	Limit  int
	Offset int
}

// AdjustmentFactor returns the multiplier for a percentage change.
func AdjustmentFactor(percentage decimal.Decimal) (decimal.Decimal, error) {
	if percentage.LessThanOrEqual(decimal.NewFromInt(-100)) {
		return decimal.Zero, ErrInvalidPercentage
	}
	return decimal.NewFromInt(1).Add(percentage.Div(decimal.NewFromInt(100))), nil
}

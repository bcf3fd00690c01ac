package products

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Create(ctx context.Context, req CreateProductRequest) (*Product, error) {
	if req.Price.IsNegative() {
		return nil, ErrInvalidPrice
	}
	p := Product{
		Code:        strings.ToUpper(strings.TrimSpace(req.Code)),
		Description: strings.TrimSpace(req.Description),
		Quantity:    req.Quantity,
		Price:       req.Price.Round(2),
	}
	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateProductRequest) (*Product, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	updates := make(map[string]any)
	if req.Code != nil {
		updates["codigo"] = strings.ToUpper(strings.TrimSpace(*req.Code))
	}
	if req.Description != nil {
		updates["descripcion"] = strings.TrimSpace(*req.Description)
	}
	if req.Quantity != nil {
		updates["cantidad"] = *req.Quantity
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return nil, ErrInvalidPrice
		}
		updates["precio"] = req.Price.Round(2)
	}
	if len(updates) == 0 {
		return existing, nil
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// AdjustPrices applies a percentage change to every product price.
func (s *Service) AdjustPrices(ctx context.Context, req PriceAdjustmentRequest) (*PriceAdjustmentResult, error) {
	factor, err := AdjustmentFactor(req.Percentage)
	if err != nil {
		return nil, err
	}
	affected, err := s.repo.AdjustPrices(ctx, factor)
	if err != nil {
		return nil, fmt.Errorf("adjust prices: %w", err)
	}
	s.logger.Info("prices adjusted",
		slog.String("percentage", req.Percentage.String()),
		slog.Int64("affected", affected))
	return &PriceAdjustmentResult{Affected: affected}, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListProductsRequest) ([]Product, int, error) {
	return s.repo.List(ctx, req)
}

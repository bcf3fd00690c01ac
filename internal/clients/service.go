package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, req CreateClientRequest) (*Client, error) {
	rifNumber := strings.TrimLeft(req.RIFNumber, "0")
	if rifNumber == "" {
		return nil, ErrInvalidRIF
	}
	client := Client{
		RIFType:      strings.ToUpper(req.RIFType),
		RIFNumber:    rifNumber,
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		PhoneCarrier: req.PhoneCarrier,
		Phone:        req.Phone,
		Address:      req.Address,
	}

	// Check if RIF already exists
	existing, err := s.repo.GetByRIF(ctx, client.RIFType, client.RIFNumber)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check existing client: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyExists
	}

	created, err := s.repo.Create(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateClientRequest) (*Client, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}

	updates := make(map[string]any)
	if req.Name != nil {
		updates["nombre"] = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		updates["correo"] = *req.Email
	}
	if req.PhoneCarrier != nil {
		updates["operador"] = *req.PhoneCarrier
	}
	if req.Phone != nil {
		updates["telefono"] = *req.Phone
	}
	if req.Address != nil {
		updates["direccion"] = *req.Address
	}

	if len(updates) == 0 {
		return existing, nil
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, fmt.Errorf("update client: %w", err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (*Client, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) GetByRIF(ctx context.Context, rifType, rifNumber string) (*Client, error) {
	number := strings.TrimLeft(rifNumber, "0")
	if number == "" {
		return nil, ErrInvalidRIF
	}
	return s.repo.GetByRIF(ctx, strings.ToUpper(rifType), number)
}

func (s *Service) List(ctx context.Context, req ListClientsRequest) ([]Client, int, error) {
	return s.repo.List(ctx, req)
}

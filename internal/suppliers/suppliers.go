// Package suppliers manages the vendors purchases are recorded against.
package suppliers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
)

var (
	ErrNotFound      = fmt.Errorf("supplier not found: %w", httpx.ErrNotFound)
	ErrAlreadyExists = fmt.Errorf("supplier with this RIF already exists: %w", httpx.ErrDuplicate)
	ErrInvalidRIF    = fmt.Errorf("numero_rif must contain a non-zero digit: %w", httpx.ErrValidation)
)

type Supplier struct {
	ID        int64     `json:"id"`
	RIFType   string    `json:"tipo_rif"`
	RIFNumber string    `json:"numero_rif"`
	LegalName string    `json:"razon_social"`
	Email     *string   `json:"correo,omitempty"`
	Phone     *string   `json:"telefono,omitempty"`
	Address   *string   `json:"direccion,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s Supplier) RIF() string {
	return s.RIFType + "-" + s.RIFNumber
}

type CreateSupplierRequest struct {
	RIFType   string  `json:"tipo_rif" validate:"required,oneof=V E J G P"`
	RIFNumber string  `json:"numero_rif" validate:"required,number,min=5,max=10"`
	LegalName string  `json:"razon_social" validate:"required,max=200"`
	Email     *string `json:"correo,omitempty" validate:"omitempty,email,max=200"`
	Phone     *string `json:"telefono,omitempty" validate:"omitempty,max=20"`
	Address   *string `json:"direccion,omitempty" validate:"omitempty,max=500"`
}

type UpdateSupplierRequest struct {
	LegalName *string `json:"razon_social,omitempty" validate:"omitempty,min=1,max=200"`
	Email     *string `json:"correo,omitempty" validate:"omitempty,email,max=200"`
	Phone     *string `json:"telefono,omitempty" validate:"omitempty,max=20"`
	Address   *string `json:"direccion,omitempty" validate:"omitempty,max=500"`
}

type Repository interface {
	List(ctx context.Context, search string, limit, offset int) ([]Supplier, int, error)
	Get(ctx context.Context, id int64) (*Supplier, error)
	Create(ctx context.Context, s Supplier) (*Supplier, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, req CreateSupplierRequest) (*Supplier, error) {
	rifNumber := strings.TrimLeft(req.RIFNumber, "0")
	if rifNumber == "" {
		return nil, ErrInvalidRIF
	}
	created, err := s.repo.Create(ctx, Supplier{
		RIFType:   strings.ToUpper(req.RIFType),
		RIFNumber: rifNumber,
		LegalName: strings.TrimSpace(req.LegalName),
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
	})
	if err != nil {
		return nil, fmt.Errorf("create supplier: %w", err)
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateSupplierRequest) (*Supplier, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updates := make(map[string]any)
	if req.LegalName != nil {
		updates["razon_social"] = strings.TrimSpace(*req.LegalName)
	}
	if req.Email != nil {
		updates["correo"] = *req.Email
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
		return nil, fmt.Errorf("update supplier: %w", err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (*Supplier, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, search string, limit, offset int) ([]Supplier, int, error) {
	return s.repo.List(ctx, search, limit, offset)
}

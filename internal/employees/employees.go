// Package employees manages cashiers and the PINs they use to open registers.
package employees

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
)

var (
	ErrNotFound      = fmt.Errorf("employee not found: %w", httpx.ErrNotFound)
	ErrAlreadyExists = fmt.Errorf("employee with this cedula already exists: %w", httpx.ErrDuplicate)
	ErrInvalidPIN    = fmt.Errorf("invalid employee credentials: %w", httpx.ErrUnauthorized)
)

type Employee struct {
	ID        int64     `json:"id"`
	Cedula    string    `json:"cedula"`
	Name      string    `json:"nombre"`
	Position  string    `json:"cargo"`
	Active    bool      `json:"activo"`
	PINHash   string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateEmployeeRequest struct {
	Cedula   string `json:"cedula" validate:"required,number,min=6,max=10"`
	Name     string `json:"nombre" validate:"required,max=200"`
	Position string `json:"cargo" validate:"max=100"`
	PIN      string `json:"pin" validate:"required,number,min=4,max=8"`
}

type UpdateEmployeeRequest struct {
	Name     *string `json:"nombre,omitempty" validate:"omitempty,min=1,max=200"`
	Position *string `json:"cargo,omitempty" validate:"omitempty,max=100"`
	Active   *bool   `json:"activo,omitempty"`
	PIN      *string `json:"pin,omitempty" validate:"omitempty,number,min=4,max=8"`
}

type Repository interface {
	List(ctx context.Context, limit, offset int) ([]Employee, int, error)
	Get(ctx context.Context, id int64) (*Employee, error)
	Create(ctx context.Context, e Employee) (*Employee, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
}

type Service struct {
	repo Repository
	cost int
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, cost: bcrypt.DefaultCost}
}

func (s *Service) hash(pin string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pin), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash pin: %w", err)
	}
	return string(h), nil
}

func (s *Service) Create(ctx context.Context, req CreateEmployeeRequest) (*Employee, error) {
	hash, err := s.hash(req.PIN)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, Employee{
		Cedula:   strings.TrimLeft(strings.TrimSpace(req.Cedula), "0"),
		Name:     strings.TrimSpace(req.Name),
		Position: strings.TrimSpace(req.Position),
		Active:   true,
		PINHash:  hash,
	})
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateEmployeeRequest) (*Employee, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updates := make(map[string]any)
	if req.Name != nil {
		updates["nombre"] = strings.TrimSpace(*req.Name)
	}
	if req.Position != nil {
		updates["cargo"] = strings.TrimSpace(*req.Position)
	}
	if req.Active != nil {
		updates["activo"] = *req.Active
	}
	if req.PIN != nil {
		hash, err := s.hash(*req.PIN)
		if err != nil {
			return nil, err
		}
		updates["pin_hash"] = hash
	}
	if len(updates) == 0 {
		return existing, nil
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, fmt.Errorf("update employee: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// VerifyPIN checks pin against the stored hash of an active employee.
func (s *Service) VerifyPIN(ctx context.Context, id int64, pin string) (*Employee, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidPIN
		}
		return nil, err
	}
	if !e.Active {
		return nil, ErrInvalidPIN
	}
	if err := bcrypt.CompareHashAndPassword([]byte(e.PINHash), []byte(pin)); err != nil {
		return nil, ErrInvalidPIN
	}
	return e, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Employee, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]Employee, int, error) {
	return s.repo.List(ctx, limit, offset)
}

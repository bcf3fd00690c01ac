// Package clients manages the customers invoices are issued to.
package clients

import (
	"fmt"
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
)

var (
	ErrNotFound      = fmt.Errorf("client not found: %w", httpx.ErrNotFound)
	ErrAlreadyExists = fmt.Errorf("client with this RIF already exists: %w", httpx.ErrDuplicate)
	ErrInvalidRIF    = fmt.Errorf("numero_rif must contain a non-zero digit: %w", httpx.ErrValidation)
)

// Client is a customer identified by its RIF (tax id type + number).
type Client struct {
	ID           int64     `json:"id"`
	RIFType      string    `json:"tipo_rif"`
	RIFNumber    string    `json:"numero_rif"`
	Name         string    `json:"nombre"`
	Email        *string   `json:"correo,omitempty"`
	PhoneCarrier *string   `json:"operador,omitempty"`
	Phone        *string   `json:"telefono,omitempty"`
	Address      *string   `json:"direccion,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RIF renders the full tax id, e.g. "V-12345678".
func (c Client) RIF() string {
	return c.RIFType + "-" + c.RIFNumber
}

// FullPhone joins carrier code and number when both are present.
func (c Client) FullPhone() string {
	if c.Phone == nil {
		return ""
	}
	if c.PhoneCarrier == nil {
		return *c.Phone
	}
	return *c.PhoneCarrier + "-" + *c.Phone
}

type CreateClientRequest struct {
	RIFType      string  `json:"tipo_rif" validate:"required,oneof=V E J G P"`
	RIFNumber    string  `json:"numero_rif" validate:"required,number,min=5,max=10"`
	Name         string  `json:"nombre" validate:"required,max=200"`
	Email        *string `json:"correo,omitempty" validate:"omitempty,email,max=200"`
	PhoneCarrier *string `json:"operador,omitempty" validate:"omitempty,oneof=0412 0414 0416 0422 0424 0426 0212"`
	Phone        *string `json:"telefono,omitempty" validate:"omitempty,number,len=7"`
	Address      *string `json:"direccion,omitempty" validate:"omitempty,max=500"`
}

type UpdateClientRequest struct {
	Name         *string `json:"nombre,omitempty" validate:"omitempty,min=1,max=200"`
	Email        *string `json:"correo,omitempty" validate:"omitempty,email,max=200"`
	PhoneCarrier *string `json:"operador,omitempty" validate:"omitempty,oneof=0412 0414 0416 0422 0424 0426 0212"`
	Phone        *string `json:"telefono,omitempty" validate:"omitempty,number,len=7"`
	Address      *string `json:"direccion,omitempty" validate:"omitempty,max=500"`
}

type ListClientsRequest struct {
	Search string
	Limit  int
	Offset int
}

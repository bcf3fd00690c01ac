package employees

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mockRepository struct {
	employees map[int64]*Employee
	nextID    int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{employees: map[int64]*Employee{}, nextID: 1}
}

func (m *mockRepository) List(ctx context.Context, limit, offset int) ([]Employee, int, error) {
	out := []Employee{}
	for _, e := range m.employees {
		out = append(out, *e)
	}
	return out, len(out), nil
}

func (m *mockRepository) Get(ctx context.Context, id int64) (*Employee, error) {
	e, ok := m.employees[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *mockRepository) Create(ctx context.Context, e Employee) (*Employee, error) {
	for _, existing := range m.employees {
		if existing.Cedula == e.Cedula {
			return nil, ErrAlreadyExists
		}
	}
	e.ID = m.nextID
	m.nextID++
	m.employees[e.ID] = &e
	cp := e
	return &cp, nil
}

func (m *mockRepository) Update(ctx context.Context, id int64, updates map[string]any) error {
	e, ok := m.employees[id]
	if !ok {
		return ErrNotFound
	}
	if v, ok := updates["activo"].(bool); ok {
		e.Active = v
	}
	if v, ok := updates["pin_hash"].(string); ok {
		e.PINHash = v
	}
	if v, ok := updates["nombre"].(string); ok {
		e.Name = v
	}
	return nil
}

func newTestService() (*Service, *mockRepository) {
	repo := newMockRepository()
	svc := NewService(repo)
	svc.cost = bcrypt.MinCost
	return svc, repo
}

func TestCreateHashesPIN(t *testing.T) {
	svc, repo := newTestService()
	e, err := svc.Create(context.Background(), CreateEmployeeRequest{Cedula: "012345678", Name: " Jose ", PIN: "1234"})
	require.NoError(t, err)

	assert.Equal(t, "12345678", e.Cedula)
	assert.Equal(t, "Jose", e.Name)
	assert.True(t, e.Active)
	assert.NotEqual(t, "1234", repo.employees[e.ID].PINHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.employees[e.ID].PINHash), []byte("1234")))
}

func TestVerifyPIN(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	e, err := svc.Create(ctx, CreateEmployeeRequest{Cedula: "11111111", Name: "Ana", PIN: "4321"})
	require.NoError(t, err)

	got, err := svc.VerifyPIN(ctx, e.ID, "4321")
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)

	_, err = svc.VerifyPIN(ctx, e.ID, "0000")
	assert.ErrorIs(t, err, ErrInvalidPIN)

	_, err = svc.VerifyPIN(ctx, 999, "4321")
	assert.ErrorIs(t, err, ErrInvalidPIN)
}

func TestVerifyPINRejectsInactiveEmployee(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	e, err := svc.Create(ctx, CreateEmployeeRequest{Cedula: "22222222", Name: "Luis", PIN: "9999"})
	require.NoError(t, err)

	inactive := false
	_, err = svc.Update(ctx, e.ID, UpdateEmployeeRequest{Active: &inactive})
	require.NoError(t, err)

	_, err = svc.VerifyPIN(ctx, e.ID, "9999")
	assert.ErrorIs(t, err, ErrInvalidPIN)
}

func TestUpdateRotatesPIN(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	e, err := svc.Create(ctx, CreateEmployeeRequest{Cedula: "33333333", Name: "Eva", PIN: "1111"})
	require.NoError(t, err)

	pin := "222222"
	_, err = svc.Update(ctx, e.ID, UpdateEmployeeRequest{PIN: &pin})
	require.NoError(t, err)

	_, err = svc.VerifyPIN(ctx, e.ID, "1111")
	assert.ErrorIs(t, err, ErrInvalidPIN)
	_, err = svc.VerifyPIN(ctx, e.ID, "222222")
	assert.NoError(t, err)
}

func TestCreateEndpointNeverLeaksHash(t *testing.T) {
	svc, _ := newTestService()
	r := chi.NewRouter()
	NewHandler(svc).MountRoutes(r)

	req := httptest.NewRequest(http.MethodPost, "/empleados/", strings.NewReader(`{"cedula":"44444444","nombre":"Rosa","cargo":"Cajera","pin":"5678"}`))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.NotContains(t, rr.Body.String(), "pin")
	assert.NotContains(t, rr.Body.String(), "$2a$")
}

func TestCreateEndpointRejectsShortPIN(t *testing.T) {
	svc, _ := newTestService()
	r := chi.NewRouter()
	NewHandler(svc).MountRoutes(r)

	req := httptest.NewRequest(http.MethodPost, "/empleados/", strings.NewReader(`{"cedula":"44444444","nombre":"Rosa","pin":"12"}`))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateEndpointRejectsNonDigitPINAndCedula(t *testing.T) {
	bodies := map[string]string{
		"signed pin":     `{"cedula":"44444444","nombre":"Rosa","pin":"-1234"}`,
		"decimal pin":    `{"cedula":"44444444","nombre":"Rosa","pin":"12.34"}`,
		"signed cedula":  `{"cedula":"-4444444","nombre":"Rosa","pin":"1234"}`,
		"decimal cedula": `{"cedula":"4444.444","nombre":"Rosa","pin":"1234"}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			svc, _ := newTestService()
			r := chi.NewRouter()
			NewHandler(svc).MountRoutes(r)

			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/empleados/", strings.NewReader(body)))
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

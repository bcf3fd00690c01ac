package purchases

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/products"
)

type mockRepository struct {
	purchases map[int64]*Purchase
	stock     map[int64]int
	docs      map[string]bool
	nextID    int64
	restocked []int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		purchases: map[int64]*Purchase{},
		stock:     map[int64]int{1: 0, 2: 5},
		docs:      map[string]bool{},
	}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &mockTx{repo: m, stock: map[int64]int{}, docs: map[string]bool{}}
	for k, v := range m.stock {
		tx.stock[k] = v
	}
	for k, v := range m.docs {
		tx.docs[k] = v
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.stock, m.docs = tx.stock, tx.docs
	for _, p := range tx.created {
		m.purchases[p.ID] = p
	}
	return nil
}

func (m *mockRepository) Get(ctx context.Context, id int64) (*Purchase, error) {
	p, ok := m.purchases[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (m *mockRepository) List(ctx context.Context, req ListPurchasesRequest) ([]Purchase, int, error) {
	out := []Purchase{}
	for _, p := range m.purchases {
		out = append(out, *p)
	}
	return out, len(out), nil
}

type mockTx struct {
	repo    *mockRepository
	stock   map[int64]int
	docs    map[string]bool
	created []*Purchase
}

func (t *mockTx) InsertPurchase(ctx context.Context, p *Purchase) error {
	key := p.DocumentNumber
	if t.docs[key] {
		return ErrDuplicateDoc
	}
	t.docs[key] = true
	t.repo.nextID++
	p.ID = t.repo.nextID
	t.created = append(t.created, p)
	return nil
}

func (t *mockTx) InsertLine(ctx context.Context, l *Line) error {
	for _, p := range t.created {
		if p.ID == l.PurchaseID {
			p.Lines = append(p.Lines, *l)
		}
	}
	return nil
}

func (t *mockTx) AddStock(ctx context.Context, productID int64, qty int) error {
	t.repo.restocked = append(t.repo.restocked, productID)
	if _, ok := t.stock[productID]; !ok {
		return products.ErrNotFound
	}
	t.stock[productID] += qty
	return nil
}

func newTestService() (*Service, *mockRepository) {
	repo := newMockRepository()
	return NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil))), repo
}

func TestCreatePurchaseAddsStock(t *testing.T) {
	svc, repo := newTestService()

	p, err := svc.Create(context.Background(), CreatePurchaseRequest{
		SupplierID:     3,
		DocumentNumber: " F-100 ",
		Date:           "2024-02-10",
		Items: []ItemRequest{
			{ProductID: 1, Quantity: 12, Cost: decimal.RequireFromString("1.25")},
			{ProductID: 2, Quantity: 3, Cost: decimal.RequireFromString("10")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "F-100", p.DocumentNumber)
	assert.Equal(t, "45.00", p.Total.StringFixed(2))
	assert.Len(t, p.Lines, 2)
	assert.Equal(t, 12, repo.stock[1])
	assert.Equal(t, 8, repo.stock[2])
}

func TestCreatePurchaseRestocksInProductOrder(t *testing.T) {
	svc, repo := newTestService()

	p, err := svc.Create(context.Background(), CreatePurchaseRequest{
		SupplierID: 3, DocumentNumber: "F-200", Date: "2024-02-11",
		Items: []ItemRequest{
			{ProductID: 2, Quantity: 1, Cost: decimal.NewFromInt(1)},
			{ProductID: 1, Quantity: 1, Cost: decimal.NewFromInt(1)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, repo.restocked)
	assert.Equal(t, int64(2), p.Lines[0].ProductID)
}

func TestCreatePurchaseRollsBackOnUnknownProduct(t *testing.T) {
	svc, repo := newTestService()

	_, err := svc.Create(context.Background(), CreatePurchaseRequest{
		SupplierID: 3, DocumentNumber: "F-1", Date: "2024-02-10",
		Items: []ItemRequest{
			{ProductID: 1, Quantity: 4, Cost: decimal.NewFromInt(1)},
			{ProductID: 77, Quantity: 1, Cost: decimal.NewFromInt(1)},
		},
	})
	require.ErrorIs(t, err, products.ErrNotFound)
	assert.Equal(t, 0, repo.stock[1])
	assert.Empty(t, repo.purchases)
	assert.False(t, repo.docs["F-1"])
}

func TestCreatePurchaseRejectsNegativeCost(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Create(context.Background(), CreatePurchaseRequest{
		SupplierID: 3, DocumentNumber: "F-2", Date: "2024-02-10",
		Items: []ItemRequest{{ProductID: 1, Quantity: 1, Cost: decimal.NewFromInt(-1)}},
	})
	assert.ErrorIs(t, err, ErrInvalidCost)
}

func TestCreatePurchaseEndpoint(t *testing.T) {
	svc, _ := newTestService()
	r := chi.NewRouter()
	NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).MountRoutes(r)

	body := `{"proveedor_id":3,"numero_documento":"F-9","fecha":"2024-02-10","items":[{"producto_id":2,"cantidad":1,"costo":"2.50"}]}`
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/compras/", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/compras/", strings.NewReader(body)))
	assert.Equal(t, http.StatusConflict, rr.Code)

	bad := `{"proveedor_id":3,"numero_documento":"F-10","fecha":"10/02/2024","items":[{"producto_id":2,"cantidad":1,"costo":"2.50"}]}`
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/compras/", strings.NewReader(bad)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

package invoices

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/numbering"
)

type stubService struct {
	createFn      func(ctx context.Context, req CreateInvoiceRequest, key string) (*Invoice, error)
	addPaymentsFn func(ctx context.Context, id int64, req AddPaymentsRequest) (*Invoice, error)
	voidFn        func(ctx context.Context, id int64) (*Invoice, error)
	listFn        func(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error)
}

func (s *stubService) Create(ctx context.Context, req CreateInvoiceRequest, key string) (*Invoice, error) {
	return s.createFn(ctx, req, key)
}

func (s *stubService) AddPayments(ctx context.Context, id int64, req AddPaymentsRequest) (*Invoice, error) {
	return s.addPaymentsFn(ctx, id, req)
}

func (s *stubService) Void(ctx context.Context, id int64) (*Invoice, error) {
	return s.voidFn(ctx, id)
}

func (s *stubService) Get(ctx context.Context, id int64) (*Invoice, error) {
	return nil, ErrNotFound
}

func (s *stubService) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	return s.listFn(ctx, req)
}

func (s *stubService) NextNumbers(ctx context.Context) (numbering.Pair, error) {
	return numbering.Pair{InvoiceNumber: "0000010", ControlNumber: "00-000010"}, nil
}

func (s *stubService) PaymentMethods(ctx context.Context) ([]PaymentMethod, error) {
	return []PaymentMethod{{ID: 1, Name: "Efectivo", Active: true}}, nil
}

type stubRenderer struct {
	pdf []byte
	err error
}

func (s stubRenderer) RenderInvoice(ctx context.Context, id int64) ([]byte, error) {
	return s.pdf, s.err
}

func newTestRouter(svc invoiceService, docs DocumentRenderer) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, docs)
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestCreateInvoicePassesIdempotencyKey(t *testing.T) {
	var gotKey string
	var gotReq CreateInvoiceRequest
	svc := &stubService{createFn: func(ctx context.Context, req CreateInvoiceRequest, key string) (*Invoice, error) {
		gotKey, gotReq = key, req
		return &Invoice{ID: 1, InvoiceNumber: "0000001", Status: StatusPending}, nil
	}}
	router := newTestRouter(svc, nil)

	body := `{"cliente_id":3,"items":[{"producto_id":1,"cantidad":2}],"pagos":[{"metodo_pago_id":1,"monto":"5.00"}]}`
	req := httptest.NewRequest(http.MethodPost, "/facturas/", strings.NewReader(body))
	req.Header.Set(IdempotencyHeader, " key-1 ")
	rr := serve(router, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "key-1", gotKey)
	assert.Equal(t, int64(3), gotReq.ClientID)
	require.Len(t, gotReq.Payments, 1)
	assert.Equal(t, "5", gotReq.Payments[0].Amount.String())
}

func TestCreateInvoiceRejectsOversizedIdempotencyKey(t *testing.T) {
	called := false
	svc := &stubService{createFn: func(ctx context.Context, req CreateInvoiceRequest, key string) (*Invoice, error) {
		called = true
		return &Invoice{ID: 1}, nil
	}}
	router := newTestRouter(svc, nil)
	body := `{"cliente_id":3,"items":[{"producto_id":1,"cantidad":2}]}`

	req := httptest.NewRequest(http.MethodPost, "/facturas/", strings.NewReader(body))
	req.Header.Set(IdempotencyHeader, strings.Repeat("k", MaxIdempotencyKeyLen+1))
	rr := serve(router, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.False(t, called)

	req = httptest.NewRequest(http.MethodPost, "/facturas/", strings.NewReader(body))
	req.Header.Set(IdempotencyHeader, strings.Repeat("k", MaxIdempotencyKeyLen))
	rr = serve(router, req)
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.True(t, called)
}

func TestCreateInvoiceValidatesItems(t *testing.T) {
	router := newTestRouter(&stubService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/facturas/", strings.NewReader(`{"cliente_id":3,"items":[{"producto_id":1,"cantidad":0}]}`))
	rr := serve(router, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/facturas/", strings.NewReader(`{"cliente_id":3,"items":[]}`))
	rr = serve(router, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateInvoiceMapsDomainErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "duplicate request", err: ErrDuplicateRequest, want: http.StatusConflict},
		{name: "overpayment", err: ErrOverpayment, want: http.StatusUnprocessableEntity},
		{name: "unknown client", err: ErrUnknownClient, want: http.StatusUnprocessableEntity},
		{name: "unexpected", err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{createFn: func(ctx context.Context, req CreateInvoiceRequest, key string) (*Invoice, error) {
				return nil, tt.err
			}}
			req := httptest.NewRequest(http.MethodPost, "/facturas/", strings.NewReader(`{"cliente_id":3,"items":[{"producto_id":1,"cantidad":1}]}`))
			rr := serve(newTestRouter(svc, nil), req)
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestListInvoicesParsesFilters(t *testing.T) {
	var got ListInvoicesRequest
	svc := &stubService{listFn: func(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
		got = req
		return []Invoice{}, 0, nil
	}}
	router := newTestRouter(svc, nil)

	rr := serve(router, httptest.NewRequest(http.MethodGet, "/facturas/?estado=pagado&cliente_id=4&desde=2024-01-01&hasta=2024-01-31", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, StatusPaid, got.Status)
	assert.Equal(t, int64(4), got.ClientID)
	require.NotNil(t, got.To)
	assert.Equal(t, "2024-02-01", got.To.Format(dateLayout))
}

func TestListInvoicesRejectsUnknownStatus(t *testing.T) {
	router := newTestRouter(&stubService{}, nil)
	rr := serve(router, httptest.NewRequest(http.MethodGet, "/facturas/?estado=borrador", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestVoidConflict(t *testing.T) {
	svc := &stubService{voidFn: func(ctx context.Context, id int64) (*Invoice, error) {
		return nil, ErrInvalidTransition
	}}
	rr := serve(newTestRouter(svc, nil), httptest.NewRequest(http.MethodPost, "/facturas/5/anular", nil))
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestNextNumbersEndpoint(t *testing.T) {
	rr := serve(newTestRouter(&stubService{}, nil), httptest.NewRequest(http.MethodGet, "/facturas/siguiente-numero", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"numero_factura":"0000010","numero_control":"00-000010"}`, rr.Body.String())
}

func TestPaymentMethodsEndpoint(t *testing.T) {
	rr := serve(newTestRouter(&stubService{}, nil), httptest.NewRequest(http.MethodGet, "/metodos-pago", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var methods []PaymentMethod
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &methods))
	assert.Equal(t, "Efectivo", methods[0].Name)
}

func TestPDFEndpoint(t *testing.T) {
	rr := serve(newTestRouter(&stubService{}, stubRenderer{pdf: []byte("%PDF-1.7")}),
		httptest.NewRequest(http.MethodGet, "/facturas/9/pdf", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "factura-9.pdf")
	assert.Equal(t, "%PDF-1.7", rr.Body.String())
}

func TestPDFEndpointWithoutRenderer(t *testing.T) {
	rr := serve(newTestRouter(&stubService{}, nil), httptest.NewRequest(http.MethodGet, "/facturas/9/pdf", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestPDFEndpointMissingInvoice(t *testing.T) {
	rr := serve(newTestRouter(&stubService{}, stubRenderer{err: ErrNotFound}),
		httptest.NewRequest(http.MethodGet, "/facturas/9/pdf", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

package invoices

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-pos/internal/numbering"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
)

// IdempotencyHeader carries the client supplied retry key on POST /facturas.
const IdempotencyHeader = "Idempotency-Key"

const dateLayout = "2006-01-02"

type invoiceService interface {
	Create(ctx context.Context, req CreateInvoiceRequest, idempotencyKey string) (*Invoice, error)
	AddPayments(ctx context.Context, id int64, req AddPaymentsRequest) (*Invoice, error)
	Void(ctx context.Context, id int64) (*Invoice, error)
	Get(ctx context.Context, id int64) (*Invoice, error)
	List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error)
	NextNumbers(ctx context.Context) (numbering.Pair, error)
	PaymentMethods(ctx context.Context) ([]PaymentMethod, error)
}

// DocumentRenderer produces the printable PDF of an invoice.
type DocumentRenderer interface {
	RenderInvoice(ctx context.Context, id int64) ([]byte, error)
}

// Handler exposes invoice endpoints.
type Handler struct {
	logger   *slog.Logger
	service  invoiceService
	docs     DocumentRenderer
	validate *validator.Validate
}

// NewHandler builds the handler; docs may be nil when PDF output is disabled.
func NewHandler(logger *slog.Logger, service invoiceService, docs DocumentRenderer) *Handler {
	return &Handler{logger: logger, service: service, docs: docs, validate: httpx.NewValidator()}
}

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/metodos-pago", h.paymentMethods)
	r.Route("/facturas", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/siguiente-numero", h.nextNumbers)
		r.Get("/{id}", h.get)
		r.Post("/{id}/pagos", h.addPayments)
		r.Post("/{id}/anular", h.void)
		r.Get("/{id}/pdf", h.pdf)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	req, err := parseListRequest(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list invoices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Page[Invoice]{Items: items, Total: total, Limit: req.Limit, Offset: req.Offset})
}

func parseListRequest(r *http.Request) (ListInvoicesRequest, error) {
	q := r.URL.Query()
	req := ListInvoicesRequest{}
	req.Limit, req.Offset = httpx.Pagination(r)

	if v := q.Get("estado"); v != "" {
		req.Status = Status(v)
		if !req.Status.Valid() {
			return req, fmt.Errorf("%w: unknown estado %q", httpx.ErrValidation, v)
		}
	}
	if v := q.Get("cliente_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return req, fmt.Errorf("%w: invalid cliente_id", httpx.ErrValidation)
		}
		req.ClientID = id
	}
	if v := q.Get("desde"); v != "" {
		from, err := time.Parse(dateLayout, v)
		if err != nil {
			return req, fmt.Errorf("%w: desde must be YYYY-MM-DD", httpx.ErrValidation)
		}
		req.From = &from
	}
	if v := q.Get("hasta"); v != "" {
		to, err := time.Parse(dateLayout, v)
		if err != nil {
			return req, fmt.Errorf("%w: hasta must be YYYY-MM-DD", httpx.ErrValidation)
		}
		// inclusive end date
		to = to.AddDate(0, 0, 1)
		req.To = &to
	}
	return req, nil
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	if len(key) > MaxIdempotencyKeyLen {
		httpx.RespondError(w, ErrKeyTooLong)
		return
	}
	inv, err := h.service.Create(r.Context(), req, key)
	if err != nil {
		h.logger.Warn("create invoice", slog.Any("error", err), slog.Int64("cliente_id", req.ClientID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) addPayments(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req AddPaymentsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.AddPayments(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) void(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.Void(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) nextNumbers(w http.ResponseWriter, r *http.Request) {
	pair, err := h.service.NextNumbers(r.Context())
	if err != nil {
		h.logger.Error("peek invoice numbers", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pair)
}

func (h *Handler) paymentMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.service.PaymentMethods(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, methods)
}

func (h *Handler) pdf(w http.ResponseWriter, r *http.Request) {
	if h.docs == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "pdf rendering not configured")
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	pdf, err := h.docs.RenderInvoice(r.Context(), id)
	if err != nil {
		h.logger.Error("render invoice pdf", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=factura-%d.pdf", id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

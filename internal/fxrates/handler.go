package fxrates

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
)

type rateService interface {
	Current(ctx context.Context) (Rate, error)
}

type Handler struct {
	service rateService
}

func NewHandler(service rateService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/tasa", h.current)
}

type rateResponse struct {
	Rate
	Amount     *decimal.Decimal `json:"monto,omitempty"`
	Equivalent *decimal.Decimal `json:"equivalente_usd,omitempty"`
}

// current returns the rate; with ?monto=N it also converts N bolivars.
func (h *Handler) current(w http.ResponseWriter, r *http.Request) {
	rate, err := h.service.Current(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	resp := rateResponse{Rate: rate}
	if raw := r.URL.Query().Get("monto"); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: invalid monto", httpx.ErrValidation))
			return
		}
		usd, err := USDEquivalent(amount, rate.Value)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		resp.Amount, resp.Equivalent = &amount, &usd
	}
	httpx.JSON(w, http.StatusOK, resp)
}

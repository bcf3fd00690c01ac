package registers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
)

// LockTokenHeader carries the terminal lock token on renew and release.
const LockTokenHeader = "X-Terminal-Token"

type registerService interface {
	Open(ctx context.Context, req OpenRequest) (*Register, error)
	Close(ctx context.Context, id int64, req CloseRequest) (*Register, error)
	Get(ctx context.Context, id int64) (*Register, error)
	List(ctx context.Context, req ListRequest) ([]Register, int, error)
}

type terminalLocker interface {
	Acquire(ctx context.Context, terminal string) (*Lock, error)
	Renew(ctx context.Context, terminal, token string) (*Lock, error)
	Release(ctx context.Context, terminal, token string) error
}

type Handler struct {
	logger   *slog.Logger
	service  registerService
	locks    terminalLocker
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service registerService, locks terminalLocker) *Handler {
	return &Handler{logger: logger, service: service, locks: locks, validate: httpx.NewValidator()}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/cajas", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/abrir", h.open)
		r.Get("/{id}", h.get)
		r.Post("/{id}/cerrar", h.close)
	})
	r.Route("/terminales/{terminal}/bloqueo", func(r chi.Router) {
		r.Post("/", h.acquire)
		r.Put("/", h.renew)
		r.Delete("/", h.release)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	req := ListRequest{}
	req.Limit, req.Offset = httpx.Pagination(r)
	if v := r.URL.Query().Get("estado"); v != "" {
		st := Status(v)
		if st != StatusOpen && st != StatusClosed {
			httpx.RespondError(w, fmt.Errorf("%w: invalid estado %q", httpx.ErrValidation, v))
			return
		}
		req.Status = st
	}
	items, total, err := h.service.List(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Page[Register]{Items: items, Total: total, Limit: req.Limit, Offset: req.Offset})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	reg, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, reg)
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) {
	var req OpenRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	reg, err := h.service.Open(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, reg)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req CloseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	reg, err := h.service.Close(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"caja": reg, "diferencia": reg.Difference()})
}

func (h *Handler) acquire(w http.ResponseWriter, r *http.Request) {
	terminal := chi.URLParam(r, "terminal")
	lock, err := h.locks.Acquire(r.Context(), terminal)
	if err != nil {
		h.logger.Info("terminal lock rejected", slog.String("terminal", terminal), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, lock)
}

func (h *Handler) renew(w http.ResponseWriter, r *http.Request) {
	token, ok := lockToken(w, r)
	if !ok {
		return
	}
	lock, err := h.locks.Renew(r.Context(), chi.URLParam(r, "terminal"), token)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lock)
}

func (h *Handler) release(w http.ResponseWriter, r *http.Request) {
	token, ok := lockToken(w, r)
	if !ok {
		return
	}
	if err := h.locks.Release(r.Context(), chi.URLParam(r, "terminal"), token); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func lockToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	token := strings.TrimSpace(r.Header.Get(LockTokenHeader))
	if token == "" {
		httpx.RespondError(w, fmt.Errorf("%w: missing %s header", httpx.ErrValidation, LockTokenHeader))
		return "", false
	}
	return token, true
}

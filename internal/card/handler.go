package card

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/flexcard/internal/platform/httpx"
)

// Handler exposes cards over JSON.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateCardRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: account_id is required", httpx.ErrValidation))
		return
	}
	snap, err := h.service.Create(r.Context(), req.AccountID)
	if err != nil {
		h.logger.Error("create card failed", slog.Any("error", err), slog.String("account_id", req.AccountID))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, snap)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snap)
}

func (h *Handler) editAccount(w http.ResponseWriter, r *http.Request) {
	var patch AccountPatch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	snap, err := h.service.EditAccount(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snap)
}

func (h *Handler) editEmail(w http.ResponseWriter, r *http.Request) {
	var patch EmailPatch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	snap, err := h.service.EditEmail(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snap)
}

func (h *Handler) toggleDocument(w http.ResponseWriter, r *http.Request) {
	var req ToggleDocumentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: selected is required", httpx.ErrValidation))
		return
	}
	snap, err := h.service.ToggleDocument(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "documentID"), *req.Selected)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snap)
}

func (h *Handler) submitAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	status, snap, err := h.service.SubmitAccount(r.Context(), id)
	if err != nil {
		h.logger.Warn("submit account failed", slog.String("card_id", id), slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, SubmitResponse{Status: status, Card: snap})
}

func (h *Handler) submitEmail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	status, snap, err := h.service.SubmitEmail(r.Context(), id)
	if err != nil {
		h.logger.Warn("submit email failed", slog.String("card_id", id), slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, SubmitResponse{Status: status, Card: snap})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrSubmissionInFlight):
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrConflict, err))
	case errors.Is(err, ErrUnknownDocument):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unknown Document", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}

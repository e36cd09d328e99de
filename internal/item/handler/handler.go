package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"curio/internal/item/models"
	"curio/internal/item/service"
	"curio/internal/platform/middleware"
	id "curio/pkg/domain"
	"curio/pkg/platform/httputil"
	"curio/pkg/requestcontext"
)

// Service is the item registry surface the handler depends on.
type Service interface {
	RegisterItem(ctx context.Context, ownerID id.UserID, input service.RegisterItemInput) (*models.Item, error)
	GetItem(ctx context.Context, itemID id.ItemID) (*models.Item, error)
	ListOwned(ctx context.Context, ownerID id.UserID) ([]*models.Item, error)
	Provenance(ctx context.Context, itemID id.ItemID) ([]models.ProvenanceEntry, error)
	Transfers(ctx context.Context, itemID id.ItemID) ([]models.TransferRecord, error)
}

// Handler exposes the item registry over HTTP. Provenance and the transfer
// ledger are public reads; registration and the collection view require
// authentication.
type Handler struct {
	items     Service
	logger    *slog.Logger
	validator middleware.TokenValidator
}

func New(items Service, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{items: items, logger: logger, validator: validator}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/items/{itemID}", h.handleGet)
	r.Get("/items/{itemID}/provenance", h.handleProvenance)
	r.Get("/items/{itemID}/transfers", h.handleTransfers)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Post("/items", h.handleRegister)
		r.Get("/me/items", h.handleOwned)
	})
}

type registerItemRequest struct {
	Brand         string    `json:"brand"`
	Images        []string  `json:"images"`
	BoughtOn      time.Time `json:"bought_on"`
	BoughtAtPrice int64     `json:"bought_at_price"`
	MarketPrice   int64     `json:"market_price"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := requestcontext.UserID(ctx)

	req, ok := httputil.DecodeAndPrepare[registerItemRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	item, err := h.items.RegisterItem(ctx, ownerID, service.RegisterItemInput{
		Brand:         req.Brand,
		Images:        req.Images,
		BoughtOn:      req.BoughtOn,
		BoughtAtPrice: req.BoughtAtPrice,
		MarketPrice:   req.MarketPrice,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "register item failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, item)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	itemID, err := id.ParseItemID(chi.URLParam(r, "itemID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	item, err := h.items.GetItem(ctx, itemID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) handleProvenance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	itemID, err := id.ParseItemID(chi.URLParam(r, "itemID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.items.Provenance(ctx, itemID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"provenance": entries})
}

func (h *Handler) handleTransfers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	itemID, err := id.ParseItemID(chi.URLParam(r, "itemID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, err := h.items.Transfers(ctx, itemID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"transfers": records})
}

func (h *Handler) handleOwned(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	items, err := h.items.ListOwned(ctx, requestcontext.UserID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"curio/internal/listing/models"
	"curio/internal/listing/service"
	"curio/internal/platform/middleware"
	id "curio/pkg/domain"
	dErrors "curio/pkg/domain-errors"
	"curio/pkg/platform/httputil"
	"curio/pkg/requestcontext"
)

// Service is the listing surface the handler depends on.
type Service interface {
	CreateListing(ctx context.Context, sellerID id.UserID, input service.CreateListingInput) (*models.Listing, error)
	CancelListing(ctx context.Context, callerID id.UserID, listingID id.ListingID) (*models.Listing, error)
	GetListing(ctx context.Context, listingID id.ListingID) (*models.Listing, error)
	BrowseActive(ctx context.Context, filter service.BrowseFilter) ([]service.ListingWithItem, error)
	ListBySeller(ctx context.Context, sellerID id.UserID) ([]*models.Listing, error)
}

// Handler exposes the listing lifecycle over HTTP.
type Handler struct {
	listings  Service
	logger    *slog.Logger
	validator middleware.TokenValidator
}

func New(listings Service, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{listings: listings, logger: logger, validator: validator}
}

// Register mounts the listing routes. Browsing and reading a single
// listing are public; everything else requires authentication.
func (h *Handler) Register(r chi.Router) {
	r.Get("/listings", h.handleBrowse)
	r.Get("/listings/{listingID}", h.handleGet)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Post("/listings", h.handleCreate)
		r.Post("/listings/{listingID}/cancel", h.handleCancel)
		r.Get("/me/listings", h.handleMine)
	})
}

type createListingRequest struct {
	ItemID         string                 `json:"item_id"`
	Price          int64                  `json:"price"`
	Title          string                 `json:"title"`
	Description    string                 `json:"description"`
	PaymentMethods []models.PaymentMethod `json:"payment_methods"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sellerID := requestcontext.UserID(ctx)

	req, ok := httputil.DecodeAndPrepare[createListingRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	itemID, err := id.ParseItemID(req.ItemID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	listing, err := h.listings.CreateListing(ctx, sellerID, service.CreateListingInput{
		ItemID:         itemID,
		Price:          req.Price,
		Title:          req.Title,
		Description:    req.Description,
		PaymentMethods: req.PaymentMethods,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create listing failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, listing)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := requestcontext.UserID(ctx)

	listingID, err := id.ParseListingID(chi.URLParam(r, "listingID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	listing, err := h.listings.CancelListing(ctx, callerID, listingID)
	if err != nil {
		h.logger.WarnContext(ctx, "cancel listing failed",
			"request_id", requestcontext.RequestID(ctx),
			"listing_id", listingID.String(),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listing)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	listingID, err := id.ParseListingID(chi.URLParam(r, "listingID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	listing, err := h.listings.GetListing(ctx, listingID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listing)
}

func (h *Handler) handleBrowse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := service.BrowseFilter{
		Brand: r.URL.Query().Get("brand"),
		Sort:  r.URL.Query().Get("sort"),
	}
	minPrice, ok, err := parsePriceParam(r, "min_price")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if ok {
		filter.MinPrice = &minPrice
	}
	maxPrice, ok, err := parsePriceParam(r, "max_price")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if ok {
		filter.MaxPrice = &maxPrice
	}

	feed, err := h.listings.BrowseActive(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "browse listings failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"listings": feed})
}

func (h *Handler) handleMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sellerID := requestcontext.UserID(ctx)

	listings, err := h.listings.ListBySeller(ctx, sellerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"listings": listings})
}

func parsePriceParam(r *http.Request, name string) (int64, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 0 {
		return 0, false, dErrors.New(dErrors.CodeBadRequest, name+" must be a non-negative integer")
	}
	return value, true, nil
}

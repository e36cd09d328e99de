package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"curio/internal/platform/middleware"
	"curio/internal/transaction/models"
	"curio/internal/transaction/service"
	id "curio/pkg/domain"
	"curio/pkg/platform/httputil"
	"curio/pkg/requestcontext"
)

// Service is the transaction surface the handler depends on.
type Service interface {
	SubmitPurchase(ctx context.Context, buyerID id.UserID, input service.SubmitPurchaseInput) (*models.Transaction, error)
	ConfirmPayment(ctx context.Context, callerID id.UserID, txnID id.TransactionID) (*models.Transaction, error)
	RejectPayment(ctx context.Context, callerID id.UserID, txnID id.TransactionID, reason string) (*models.Transaction, error)
	GetTransaction(ctx context.Context, callerID id.UserID, txnID id.TransactionID) (*models.Transaction, error)
	ListPendingForSeller(ctx context.Context, sellerID id.UserID) ([]*models.Transaction, error)
	ListPurchases(ctx context.Context, buyerID id.UserID) ([]*models.Transaction, error)
	ListSales(ctx context.Context, sellerID id.UserID) ([]*models.Transaction, error)
}

// Handler exposes the purchase state machine over HTTP. Every route
// requires authentication.
type Handler struct {
	transactions Service
	logger       *slog.Logger
	validator    middleware.TokenValidator
}

func New(transactions Service, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{transactions: transactions, logger: logger, validator: validator}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Post("/transactions", h.handleSubmit)
		r.Get("/transactions/{transactionID}", h.handleGet)
		r.Post("/transactions/{transactionID}/confirm", h.handleConfirm)
		r.Post("/transactions/{transactionID}/reject", h.handleReject)
		r.Get("/me/transactions/pending", h.handlePending)
		r.Get("/me/purchases", h.handlePurchases)
		r.Get("/me/sales", h.handleSales)
	})
}

type submitPurchaseRequest struct {
	ListingID     string               `json:"listing_id"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	PaymentProof  models.PaymentProof  `json:"payment_proof"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	buyerID := requestcontext.UserID(ctx)

	req, ok := httputil.DecodeAndPrepare[submitPurchaseRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	listingID, err := id.ParseListingID(req.ListingID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	txn, err := h.transactions.SubmitPurchase(ctx, buyerID, service.SubmitPurchaseInput{
		ListingID:     listingID,
		PaymentMethod: req.PaymentMethod,
		PaymentProof:  req.PaymentProof,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "submit purchase failed",
			"request_id", requestcontext.RequestID(ctx),
			"listing_id", listingID.String(),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, txn)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := requestcontext.UserID(ctx)

	txnID, err := id.ParseTransactionID(chi.URLParam(r, "transactionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	txn, err := h.transactions.GetTransaction(ctx, callerID, txnID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, txn)
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := requestcontext.UserID(ctx)

	txnID, err := id.ParseTransactionID(chi.URLParam(r, "transactionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	txn, err := h.transactions.ConfirmPayment(ctx, callerID, txnID)
	if err != nil {
		h.logger.WarnContext(ctx, "confirm payment failed",
			"request_id", requestcontext.RequestID(ctx),
			"transaction_id", txnID.String(),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, txn)
}

type rejectPaymentRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := requestcontext.UserID(ctx)

	txnID, err := id.ParseTransactionID(chi.URLParam(r, "transactionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[rejectPaymentRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	txn, err := h.transactions.RejectPayment(ctx, callerID, txnID, req.Reason)
	if err != nil {
		h.logger.WarnContext(ctx, "reject payment failed",
			"request_id", requestcontext.RequestID(ctx),
			"transaction_id", txnID.String(),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, txn)
}

func (h *Handler) handlePending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txns, err := h.transactions.ListPendingForSeller(ctx, requestcontext.UserID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"transactions": txns})
}

func (h *Handler) handlePurchases(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txns, err := h.transactions.ListPurchases(ctx, requestcontext.UserID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"transactions": txns})
}

func (h *Handler) handleSales(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txns, err := h.transactions.ListSales(ctx, requestcontext.UserID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"transactions": txns})
}

package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"curio/internal/notification/store"
	"curio/internal/platform/middleware"
	id "curio/pkg/domain"
	dErrors "curio/pkg/domain-errors"
	"curio/pkg/platform/httputil"
	"curio/pkg/requestcontext"
)

const defaultListLimit = 50

// Handler exposes the notification inbox over HTTP. Every route requires
// authentication; users only ever see their own inbox.
type Handler struct {
	notifications store.Store
	logger        *slog.Logger
	validator     middleware.TokenValidator
}

func New(notifications store.Store, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{notifications: notifications, logger: logger, validator: validator}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Get("/notifications", h.handleList)
		r.Get("/notifications/unread-count", h.handleUnreadCount)
		r.Post("/notifications/{notificationID}/read", h.handleMarkRead)
		r.Post("/notifications/read-all", h.handleMarkAllRead)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	notifications, err := h.notifications.ListByUser(ctx, userID, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "list notifications failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "list notifications"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}

func (h *Handler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	count, err := h.notifications.CountUnread(ctx, requestcontext.UserID(ctx))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "count unread notifications"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"unread": count})
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)

	notificationID, err := id.ParseNotificationID(chi.URLParam(r, "notificationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.notifications.MarkRead(ctx, userID, notificationID); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "notification not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.notifications.MarkAllRead(ctx, requestcontext.UserID(ctx)); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "mark notifications read"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

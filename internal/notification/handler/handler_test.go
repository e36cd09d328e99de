package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curio/internal/notification/models"
	"curio/internal/notification/store"
	id "curio/pkg/domain"
	dErrors "curio/pkg/domain-errors"
	"curio/pkg/testutil"
)

func newTestHandler(t *testing.T) (*Handler, *store.InMemoryStore) {
	t.Helper()
	st := store.NewInMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(st, logger, nil), st
}

func seedNotification(t *testing.T, st *store.InMemoryStore, userID id.UserID) *models.Notification {
	t.Helper()
	n := &models.Notification{
		ID:        id.NotificationID(uuid.New()),
		UserID:    userID,
		Type:      models.TypePaymentSubmitted,
		Title:     "Payment submitted",
		Body:      "A buyer submitted payment proof.",
		CreatedAt: time.Now(),
	}
	require.NoError(t, st.Append(context.Background(), n))
	return n
}

func TestHandleList(t *testing.T) {
	handler, st := newTestHandler(t)
	userID := id.UserID(uuid.New())
	seedNotification(t, st, userID)
	seedNotification(t, st, id.UserID(uuid.New()))

	req := testutil.WithUser(testutil.NewRequest(t, http.MethodGet, "/notifications"), userID)
	rr := testutil.DoRequest(http.HandlerFunc(handler.handleList), req)

	testutil.AssertStatusOK(t, rr)
	resp := testutil.UnmarshalResponse[struct {
		Notifications []*models.Notification `json:"notifications"`
	}](t, rr)
	require.Len(t, resp.Notifications, 1)
	assert.Equal(t, models.TypePaymentSubmitted, resp.Notifications[0].Type)
}

func TestHandleList_BadLimit(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := testutil.WithUser(testutil.NewRequest(t, http.MethodGet, "/notifications?limit=zero"), id.UserID(uuid.New()))
	rr := testutil.DoRequest(http.HandlerFunc(handler.handleList), req)

	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
}

func TestHandleUnreadCountAndMarkAllRead(t *testing.T) {
	handler, st := newTestHandler(t)
	userID := id.UserID(uuid.New())
	seedNotification(t, st, userID)
	seedNotification(t, st, userID)

	req := testutil.WithUser(testutil.NewRequest(t, http.MethodGet, "/notifications/unread-count"), userID)
	rr := testutil.DoRequest(http.HandlerFunc(handler.handleUnreadCount), req)
	testutil.AssertStatusOK(t, rr)
	count := testutil.UnmarshalResponse[struct {
		Unread int64 `json:"unread"`
	}](t, rr)
	assert.Equal(t, int64(2), count.Unread)

	req = testutil.WithUser(testutil.NewRequest(t, http.MethodPost, "/notifications/read-all"), userID)
	rr = testutil.DoRequest(http.HandlerFunc(handler.handleMarkAllRead), req)
	testutil.AssertStatus(t, rr, http.StatusNoContent)

	req = testutil.WithUser(testutil.NewRequest(t, http.MethodGet, "/notifications/unread-count"), userID)
	rr = testutil.DoRequest(http.HandlerFunc(handler.handleUnreadCount), req)
	count = testutil.UnmarshalResponse[struct {
		Unread int64 `json:"unread"`
	}](t, rr)
	assert.Zero(t, count.Unread)
}

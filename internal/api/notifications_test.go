package api_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/webhookd/internal/notification"
	"github.com/shaharia-lab/webhookd/internal/service"
	"github.com/shaharia-lab/webhookd/internal/storage"
)

func TestGetNotificationSettings(t *testing.T) {
	h := newHarness(t)
	h.notificationSvc.On("GetSettings").Return(&notification.NotificationSettings{
		Enabled:  true,
		Provider: notification.SMTPConfig{Host: "smtp.example.com", Port: 587, Password: "***"},
	}, nil)

	w := h.do(httptest.NewRequest(http.MethodGet, "/notifications/settings", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"password":"***"`)
	assert.Contains(t, w.Body.String(), `"host":"smtp.example.com"`)
}

func TestUpdateNotificationSettings(t *testing.T) {
	h := newHarness(t)
	h.notificationSvc.On("UpdateSettings", mock.MatchedBy(func(ns *notification.NotificationSettings) bool {
		return ns.Enabled && ns.Provider.Host == "smtp.example.com"
	})).Return(nil)
	h.notificationSvc.On("UpdateSettings", mock.MatchedBy(func(ns *notification.NotificationSettings) bool {
		return ns.Provider.Host == ""
	})).Return(&service.ValidationError{Field: "provider", Message: "host is required"})
	h.notificationSvc.On("GetSettings").Return(&notification.NotificationSettings{Enabled: true}, nil)

	w := h.do(httptest.NewRequest(http.MethodPut, "/notifications/settings",
		strings.NewReader(`{"enabled":true,"provider":{"host":"smtp.example.com","port":587}}`)))
	assert.Equal(t, http.StatusOK, w.Code)

	w = h.do(httptest.NewRequest(http.MethodPut, "/notifications/settings",
		strings.NewReader(`{"enabled":true,"provider":{}}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(httptest.NewRequest(http.MethodPut, "/notifications/settings", strings.NewReader(`nope`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTestNotification(t *testing.T) {
	h := newHarness(t)
	h.notificationSvc.On("TestNotification", mock.Anything).Return(nil).Once()
	h.notificationSvc.On("TestNotification", mock.Anything).Return(errors.New("dial tcp: connection refused")).Once()

	w := h.do(httptest.NewRequest(http.MethodPost, "/notifications/test", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = h.do(httptest.NewRequest(http.MethodPost, "/notifications/test", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w), "connection refused")
}

func TestListNotificationLog(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantLimit int
	}{
		{name: "default limit", query: "", wantLimit: 50},
		{name: "explicit limit", query: "?limit=5", wantLimit: 5},
		{name: "invalid limit falls back", query: "?limit=-3", wantLimit: 50},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.notificationSvc.On("ListLog", mock.Anything, tc.wantLimit).Return([]storage.NotificationLogEntry{
				{EventType: service.EventDeliveryFailed, SubscriptionID: "7", Status: "sent"},
			}, nil)

			w := h.do(httptest.NewRequest(http.MethodGet, "/notifications/log"+tc.query, nil))
			assert.Equal(t, http.StatusOK, w.Code)
			h.notificationSvc.AssertExpectations(t)
		})
	}
}

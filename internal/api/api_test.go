package api_test

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/webhookd/internal/api"
	"github.com/shaharia-lab/webhookd/internal/service"
	svcmocks "github.com/shaharia-lab/webhookd/internal/service/mocks"
	"github.com/shaharia-lab/webhookd/internal/webhook"
)

// testHarness bundles the mocks and router used by every test.
type testHarness struct {
	subscriptionSvc *svcmocks.MockSubscriptionService
	deliverySvc     *svcmocks.MockDeliveryService
	statsSvc        *svcmocks.MockStatsService
	notificationSvc *svcmocks.MockNotificationService
	router          chi.Router
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()

	h := &testHarness{
		subscriptionSvc: new(svcmocks.MockSubscriptionService),
		deliverySvc:     new(svcmocks.MockDeliveryService),
		statsSvc:        new(svcmocks.MockStatsService),
		notificationSvc: new(svcmocks.MockNotificationService),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := api.New(h.subscriptionSvc, h.deliverySvc, h.statsSvc, h.notificationSvc, logger)

	r := chi.NewRouter()
	srv.Mount(r)
	h.router = r
	return h
}

func (h *testHarness) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body["error"]
}

func intPtr(v int) *int { return &v }

// ---------- Topics ----------

func TestListTopics(t *testing.T) {
	h := newHarness(t)

	w := h.do(httptest.NewRequest(http.MethodGet, "/topics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var topics []webhook.TopicInfo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&topics))
	require.Len(t, topics, 12)
	assert.Equal(t, webhook.Topic("order.created"), topics[0].ID)
	assert.Equal(t, "Order Created", topics[0].Label)
}

func TestVersion(t *testing.T) {
	h := newHarness(t)

	w := h.do(httptest.NewRequest(http.MethodGet, "/version", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var got map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, "dev", got["version"])
	assert.Equal(t, "webhookd/dev", got["user_agent"])
	assert.True(t, strings.HasPrefix(got["go_version"], "go"))
}

// ---------- Subscriptions ----------

func TestListWebhooks(t *testing.T) {
	tests := []struct {
		name       string
		subs       []*webhook.Subscription
		err        error
		wantStatus int
	}{
		{
			name:       "success",
			subs:       []*webhook.Subscription{{ID: "1", Name: "Order Hook", Topic: "order.created"}},
			wantStatus: http.StatusOK,
		},
		{
			name:       "store unavailable",
			err:        &service.StoreUnavailableError{Op: "list webhooks", Err: errors.New("connection refused")},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "unexpected error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.subscriptionSvc.On("List", mock.Anything).Return(tc.subs, tc.err)

			w := h.do(httptest.NewRequest(http.MethodGet, "/webhooks", nil))
			assert.Equal(t, tc.wantStatus, w.Code)
			h.subscriptionSvc.AssertExpectations(t)
		})
	}
}

func TestCreateWebhook(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		created    *webhook.Subscription
		err        error
		wantStatus int
	}{
		{
			name: "created",
			body: `{"name":"Order Hook","topic":"order.created","delivery_url":"https://example.com/hook","secret":"s3cret"}`,
			created: &webhook.Subscription{
				ID: "1", Name: "Order Hook", Status: webhook.StatusActive,
				Topic: "order.created", DeliveryURL: "https://example.com/hook", Secret: "s3cret",
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "invalid topic",
			body:       `{"name":"x","topic":"order.exploded","delivery_url":"https://example.com/hook"}`,
			err:        &service.ValidationError{Field: "topic", Message: "unknown topic"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid json",
			body:       `{not json`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			if tc.created != nil || tc.err != nil {
				h.subscriptionSvc.On("Create", mock.Anything, mock.MatchedBy(func(s *webhook.Subscription) bool {
					return s.ID == ""
				})).Return(tc.created, tc.err)
			}

			req := httptest.NewRequest(http.MethodPost, "/webhooks", strings.NewReader(tc.body))
			w := h.do(req)
			assert.Equal(t, tc.wantStatus, w.Code)

			if tc.created != nil {
				var got webhook.Subscription
				require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
				assert.Equal(t, "1", got.ID)
				assert.Equal(t, webhook.StatusActive, got.Status)
			}
			h.subscriptionSvc.AssertExpectations(t)
		})
	}
}

func TestGetWebhook(t *testing.T) {
	tests := []struct {
		name       string
		sub        *webhook.Subscription
		err        error
		wantStatus int
	}{
		{name: "found", sub: &webhook.Subscription{ID: "7"}, wantStatus: http.StatusOK},
		{
			name:       "not found",
			err:        &service.NotFoundError{Resource: "webhook", ID: "7"},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.subscriptionSvc.On("Get", mock.Anything, "7").Return(tc.sub, tc.err)

			w := h.do(httptest.NewRequest(http.MethodGet, "/webhooks/7", nil))
			assert.Equal(t, tc.wantStatus, w.Code)
		})
	}
}

func TestUpdateWebhook_PartialPatch(t *testing.T) {
	h := newHarness(t)
	h.subscriptionSvc.On("Update", mock.Anything, "7", mock.MatchedBy(func(p webhook.SubscriptionPatch) bool {
		return p.DeliveryURL != nil && *p.DeliveryURL == "https://example.com/v2" &&
			p.Name == nil && p.Topic == nil && p.Secret == nil && p.Status == nil
	})).Return(&webhook.Subscription{ID: "7", DeliveryURL: "https://example.com/v2"}, nil)

	req := httptest.NewRequest(http.MethodPut, "/webhooks/7", strings.NewReader(`{"delivery_url":"https://example.com/v2"}`))
	w := h.do(req)

	assert.Equal(t, http.StatusOK, w.Code)
	h.subscriptionSvc.AssertExpectations(t)
}

func TestUpdateWebhook_NotFound(t *testing.T) {
	h := newHarness(t)
	h.subscriptionSvc.On("Update", mock.Anything, "9", mock.Anything).
		Return(nil, &service.NotFoundError{Resource: "webhook", ID: "9"})

	w := h.do(httptest.NewRequest(http.MethodPut, "/webhooks/9", strings.NewReader(`{"name":"x"}`)))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decodeError(t, w), "not found")
}

func TestDeleteWebhook(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "deleted", wantStatus: http.StatusNoContent},
		{name: "not found", err: &service.NotFoundError{Resource: "webhook", ID: "7"}, wantStatus: http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.subscriptionSvc.On("Delete", mock.Anything, "7").Return(tc.err)

			w := h.do(httptest.NewRequest(http.MethodDelete, "/webhooks/7", nil))
			assert.Equal(t, tc.wantStatus, w.Code)
		})
	}
}

func TestSetWebhookStatus(t *testing.T) {
	h := newHarness(t)
	h.subscriptionSvc.On("SetStatus", mock.Anything, "7", webhook.StatusPaused).
		Return(&webhook.Subscription{ID: "7", Status: webhook.StatusPaused}, nil)
	h.subscriptionSvc.On("SetStatus", mock.Anything, "7", webhook.Status("sleeping")).
		Return(nil, &service.ValidationError{Field: "status", Message: `unknown status "sleeping"`})

	w := h.do(httptest.NewRequest(http.MethodPut, "/webhooks/7/status", strings.NewReader(`{"status":"paused"}`)))
	require.Equal(t, http.StatusOK, w.Code)
	var got webhook.Subscription
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, webhook.StatusPaused, got.Status)

	w = h.do(httptest.NewRequest(http.MethodPut, "/webhooks/7/status", strings.NewReader(`{"status":"sleeping"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTestWebhook(t *testing.T) {
	tests := []struct {
		name       string
		entry      *webhook.DeliveryLogEntry
		err        error
		wantStatus int
	}{
		{
			name: "receiver accepted",
			entry: &webhook.DeliveryLogEntry{
				SubscriptionID: "7", Status: webhook.DeliverySuccess, ResponseCode: intPtr(200), ResponseMessage: "OK",
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "receiver rejected is still a completed test",
			entry: &webhook.DeliveryLogEntry{
				SubscriptionID: "7", Status: webhook.DeliveryFailed, ResponseCode: intPtr(500),
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknown webhook",
			err:        &service.NotFoundError{Resource: "webhook", ID: "7"},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "log unavailable",
			err:        &service.StoreUnavailableError{Op: "append delivery log", Err: errors.New("disk full")},
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.deliverySvc.On("TestByID", mock.Anything, "7").Return(tc.entry, tc.err)

			w := h.do(httptest.NewRequest(http.MethodPost, "/webhooks/7/test", nil))
			assert.Equal(t, tc.wantStatus, w.Code)
			if tc.entry != nil {
				var got webhook.DeliveryLogEntry
				require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
				assert.Equal(t, tc.entry.Status, got.Status)
			}
		})
	}
}

func TestListStoreDeliveries(t *testing.T) {
	tests := []struct {
		name       string
		deliveries []*webhook.StoreDelivery
		err        error
		wantStatus int
		wantLen    int
	}{
		{
			name:       "store history",
			deliveries: []*webhook.StoreDelivery{{ID: 31, ResponseCode: "200"}},
			wantStatus: http.StatusOK,
			wantLen:    1,
		},
		{
			name:       "empty history is an empty array",
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknown webhook",
			err:        &service.NotFoundError{Resource: "webhook", ID: "7"},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "local registry",
			err:        &service.UnsupportedError{Op: "listing store deliveries"},
			wantStatus: http.StatusNotImplemented,
		},
		{
			name:       "store unreachable",
			err:        &service.StoreUnavailableError{Op: "list store deliveries", Err: errors.New("connection refused")},
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.subscriptionSvc.On("StoreDeliveries", mock.Anything, "7").Return(tc.deliveries, tc.err)

			w := h.do(httptest.NewRequest(http.MethodGet, "/webhooks/7/deliveries", nil))
			require.Equal(t, tc.wantStatus, w.Code)
			if tc.err == nil {
				assert.True(t, strings.HasPrefix(strings.TrimSpace(w.Body.String()), "["))
				var got []webhook.StoreDelivery
				require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
				assert.Len(t, got, tc.wantLen)
			}
		})
	}
}

// ---------- Stats ----------

func TestStats_RoutedBeforeID(t *testing.T) {
	h := newHarness(t)
	h.statsSvc.On("Compute", mock.Anything).Return(&webhook.Stats{
		TotalSubscriptions: 2, ActiveSubscriptions: 1, TotalDeliveries: 4,
		SuccessfulDeliveries: 3, FailedDeliveries: 1, SuccessRate: 75,
	}, nil)

	w := h.do(httptest.NewRequest(http.MethodGet, "/webhooks/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var got map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.EqualValues(t, 75, got["success_rate"])
	assert.EqualValues(t, 2, got["total_webhooks"])
	h.subscriptionSvc.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestStats_RegistryUnavailable(t *testing.T) {
	h := newHarness(t)
	h.statsSvc.On("Compute", mock.Anything).
		Return(nil, &service.StoreUnavailableError{Op: "list webhooks", Err: errors.New("timeout")})

	w := h.do(httptest.NewRequest(http.MethodGet, "/webhooks/stats", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

// ---------- Delivery log ----------

func TestListDeliveryLog(t *testing.T) {
	h := newHarness(t)
	h.deliverySvc.On("ListLog", mock.Anything, "").
		Return([]*webhook.DeliveryLogEntry{{ID: "b"}, {ID: "a"}}, nil)
	h.deliverySvc.On("ListLog", mock.Anything, "7").
		Return(nil, nil)

	w := h.do(httptest.NewRequest(http.MethodGet, "/webhook-logs", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var all []webhook.DeliveryLogEntry
	require.NoError(t, json.NewDecoder(w.Body).Decode(&all))
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].ID)

	w = h.do(httptest.NewRequest(http.MethodGet, "/webhook-logs?webhook_id=7", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String(), "an empty filter result is an empty array")
}

func TestRecordDelivery(t *testing.T) {
	h := newHarness(t)
	h.deliverySvc.On("Record", mock.Anything, mock.MatchedBy(func(e *webhook.DeliveryLogEntry) bool {
		return e.Status == webhook.DeliveryPending && e.Topic == "order.created"
	})).Return(&webhook.DeliveryLogEntry{ID: "1", Status: webhook.DeliveryPending, Topic: "order.created"}, nil)
	h.deliverySvc.On("Record", mock.Anything, mock.MatchedBy(func(e *webhook.DeliveryLogEntry) bool {
		return e.Status == "queued"
	})).Return(nil, &service.ValidationError{Field: "status", Message: `unknown status "queued"`})

	w := h.do(httptest.NewRequest(http.MethodPost, "/webhook-logs",
		strings.NewReader(`{"webhook_id":"7","topic":"order.created","status":"pending"}`)))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = h.do(httptest.NewRequest(http.MethodPost, "/webhook-logs",
		strings.NewReader(`{"topic":"order.created","status":"queued"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClearDeliveryLog(t *testing.T) {
	h := newHarness(t)
	h.deliverySvc.On("ClearLog", mock.Anything).Return(nil).Once()
	h.deliverySvc.On("ClearLog", mock.Anything).
		Return(&service.StoreUnavailableError{Op: "clear delivery log", Err: errors.New("read-only")}).Once()

	w := h.do(httptest.NewRequest(http.MethodDelete, "/webhook-logs", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = h.do(httptest.NewRequest(http.MethodDelete, "/webhook-logs", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

// ---------- Inbound receiver ----------

func TestReceive(t *testing.T) {
	body := `{"id":42,"status":"processing"}`
	tests := []struct {
		name       string
		entry      *webhook.DeliveryLogEntry
		err        error
		wantStatus int
	}{
		{
			name:       "accepted",
			entry:      &webhook.DeliveryLogEntry{DeliveryID: "d-1", Status: webhook.DeliverySuccess},
			wantStatus: http.StatusOK,
		},
		{
			name:       "bad signature",
			entry:      &webhook.DeliveryLogEntry{DeliveryID: "d-1", Status: webhook.DeliveryFailed},
			err:        &service.SignatureError{Reason: "signature mismatch"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "unknown webhook",
			err:        &service.NotFoundError{Resource: "webhook", ID: "7"},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.deliverySvc.On("Receive", mock.Anything, mock.MatchedBy(func(in service.InboundDelivery) bool {
				return in.SubscriptionID == "7" &&
					string(in.Body) == body &&
					in.Headers.Get(webhook.HeaderSignature) == "c2ln"
			})).Return(tc.entry, tc.err)

			req := httptest.NewRequest(http.MethodPost, "/hooks/7", strings.NewReader(body))
			req.Header.Set(webhook.HeaderSignature, "c2ln")
			req.Header.Set(webhook.HeaderTopic, "order.updated")
			w := h.do(req)

			assert.Equal(t, tc.wantStatus, w.Code)
			h.deliverySvc.AssertExpectations(t)
		})
	}
}

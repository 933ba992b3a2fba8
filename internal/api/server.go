package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shaharia-lab/webhookd/internal/service"
)

const errInvalidJSONBody = "invalid JSON body"

// maxInboundBody caps the raw body read by the inbound receiver.
const maxInboundBody = 5 << 20

// Server holds all dependencies for the REST API handlers.
type Server struct {
	subscriptionSvc service.SubscriptionService
	deliverySvc     service.DeliveryService
	statsSvc        service.StatsService
	notificationSvc service.NotificationService
	logger          *slog.Logger
}

// New creates a new API Server backed by the provided services.
// notificationSvc may be nil, in which case the notification routes are not mounted.
func New(
	subscriptionSvc service.SubscriptionService,
	deliverySvc service.DeliveryService,
	statsSvc service.StatsService,
	notificationSvc service.NotificationService,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		subscriptionSvc: subscriptionSvc,
		deliverySvc:     deliverySvc,
		statsSvc:        statsSvc,
		notificationSvc: notificationSvc,
		logger:          logger,
	}
}

// Mount registers all API routes under the given router.
func (s *Server) Mount(r chi.Router) {
	r.Get("/version", s.handleVersion)
	r.Get("/topics", s.handleListTopics)

	// Subscription registry. /webhooks/stats must precede /webhooks/{id}.
	r.Get("/webhooks", s.handleListWebhooks)
	r.Post("/webhooks", s.handleCreateWebhook)
	r.Get("/webhooks/stats", s.handleStats)
	r.Get("/webhooks/{id}", s.handleGetWebhook)
	r.Put("/webhooks/{id}", s.handleUpdateWebhook)
	r.Delete("/webhooks/{id}", s.handleDeleteWebhook)
	r.Put("/webhooks/{id}/status", s.handleSetWebhookStatus)
	r.Post("/webhooks/{id}/test", s.handleTestWebhook)
	r.Get("/webhooks/{id}/deliveries", s.handleListStoreDeliveries)

	// Delivery log
	r.Get("/webhook-logs", s.handleListDeliveryLog)
	r.Post("/webhook-logs", s.handleRecordDelivery)
	r.Delete("/webhook-logs", s.handleClearDeliveryLog)

	// Inbound receiver
	r.Post("/hooks/{id}", s.handleReceive)

	if s.notificationSvc != nil {
		r.Get("/notifications/settings", s.handleGetNotificationSettings)
		r.Put("/notifications/settings", s.handleUpdateNotificationSettings)
		r.Post("/notifications/test", s.handleTestNotification)
		r.Get("/notifications/log", s.handleListNotificationLog)
	}
}

// ─── Shared helpers ───────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleServiceError maps the service error taxonomy onto HTTP status codes.
// Unclassified errors are logged and reported as a generic 500 with fallback.
func (s *Server) handleServiceError(w http.ResponseWriter, err error, fallback string, attrs ...any) {
	var (
		ve  *service.ValidationError
		nfe *service.NotFoundError
		sue *service.StoreUnavailableError
		se  *service.SignatureError
		ue  *service.UnsupportedError
	)
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Error())
	case errors.As(err, &nfe):
		writeError(w, http.StatusNotFound, nfe.Error())
	case errors.As(err, &se):
		writeError(w, http.StatusUnauthorized, se.Error())
	case errors.As(err, &ue):
		writeError(w, http.StatusNotImplemented, ue.Error())
	case errors.As(err, &sue):
		s.logger.Warn(fallback, append(attrs, "error", err)...)
		writeError(w, http.StatusBadGateway, sue.Error())
	default:
		s.logger.Error(fallback, append(attrs, "error", err)...)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

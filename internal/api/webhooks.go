package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shaharia-lab/webhookd/internal/service"
	"github.com/shaharia-lab/webhookd/internal/webhook"
)

type webhookRequest struct {
	Name        string         `json:"name"`
	Status      webhook.Status `json:"status"`
	Topic       webhook.Topic  `json:"topic"`
	DeliveryURL string         `json:"delivery_url"`
	Secret      string         `json:"secret"`
}

type statusRequest struct {
	Status webhook.Status `json:"status"`
}

func (s *Server) handleListTopics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, webhook.Topics())
}

func (s *Server) handleListWebhooks(w http.ResponseWriter, r *http.Request) {
	subs, err := s.subscriptionSvc.List(r.Context())
	if err != nil {
		s.handleServiceError(w, err, "failed to list webhooks")
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (s *Server) handleCreateWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidJSONBody)
		return
	}

	created, err := s.subscriptionSvc.Create(r.Context(), &webhook.Subscription{
		Name:        req.Name,
		Status:      req.Status,
		Topic:       req.Topic,
		DeliveryURL: req.DeliveryURL,
		Secret:      req.Secret,
	})
	if err != nil {
		s.handleServiceError(w, err, "failed to create webhook")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetWebhook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sub, err := s.subscriptionSvc.Get(r.Context(), id)
	if err != nil {
		s.handleServiceError(w, err, "failed to get webhook", "id", id)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// handleUpdateWebhook applies a partial update. Fields absent from the body
// are left unchanged.
func (s *Server) handleUpdateWebhook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var patch webhook.SubscriptionPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidJSONBody)
		return
	}

	updated, err := s.subscriptionSvc.Update(r.Context(), id, patch)
	if err != nil {
		s.handleServiceError(w, err, "failed to update webhook", "id", id)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteWebhook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.subscriptionSvc.Delete(r.Context(), id); err != nil {
		s.handleServiceError(w, err, "failed to delete webhook", "id", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetWebhookStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidJSONBody)
		return
	}

	updated, err := s.subscriptionSvc.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		s.handleServiceError(w, err, "failed to set webhook status", "id", id)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleTestWebhook sends a test delivery. A receiver that rejects the
// delivery still yields 200; the outcome is in the returned log entry.
func (s *Server) handleTestWebhook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entry, err := s.deliverySvc.TestByID(r.Context(), id)
	if err != nil {
		s.handleServiceError(w, err, "failed to test webhook", "id", id)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// handleListStoreDeliveries returns the remote store's own delivery history
// for one webhook. Local SQLite registries answer 501.
func (s *Server) handleListStoreDeliveries(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	deliveries, err := s.subscriptionSvc.StoreDeliveries(r.Context(), id)
	if err != nil {
		s.handleServiceError(w, err, "failed to list store deliveries", "id", id)
		return
	}
	if deliveries == nil {
		deliveries = []*webhook.StoreDelivery{}
	}
	writeJSON(w, http.StatusOK, deliveries)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.statsSvc.Compute(r.Context())
	if err != nil {
		s.handleServiceError(w, err, "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleListDeliveryLog returns the delivery log, most recent first.
// Accepts an optional ?webhook_id= filter.
func (s *Server) handleListDeliveryLog(w http.ResponseWriter, r *http.Request) {
	entries, err := s.deliverySvc.ListLog(r.Context(), r.URL.Query().Get("webhook_id"))
	if err != nil {
		s.handleServiceError(w, err, "failed to list delivery log")
		return
	}
	if entries == nil {
		entries = []*webhook.DeliveryLogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleRecordDelivery(w http.ResponseWriter, r *http.Request) {
	var entry webhook.DeliveryLogEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidJSONBody)
		return
	}

	recorded, err := s.deliverySvc.Record(r.Context(), &entry)
	if err != nil {
		s.handleServiceError(w, err, "failed to record delivery")
		return
	}
	writeJSON(w, http.StatusCreated, recorded)
}

func (s *Server) handleClearDeliveryLog(w http.ResponseWriter, r *http.Request) {
	if err := s.deliverySvc.ClearLog(r.Context()); err != nil {
		s.handleServiceError(w, err, "failed to clear delivery log")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReceive verifies an inbound delivery over its raw body. The body is
// read before any decoding so the signature covers the exact bytes sent.
func (s *Server) handleReceive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxInboundBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	entry, err := s.deliverySvc.Receive(r.Context(), service.InboundDelivery{
		SubscriptionID: id,
		Headers:        r.Header,
		Body:           body,
	})
	if err != nil {
		s.handleServiceError(w, err, "failed to receive delivery", "id", id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "accepted",
		"delivery_id": entry.DeliveryID,
	})
}

package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/shaharia-lab/webhookd/internal/notification"
)

// handleGetNotificationSettings returns the current alert settings with the
// SMTP password masked.
func (s *Server) handleGetNotificationSettings(w http.ResponseWriter, _ *http.Request) {
	settings, err := s.notificationSvc.GetSettings()
	if err != nil {
		s.logger.Error("load notification settings failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load notification settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// handleUpdateNotificationSettings persists new alert settings.
// A password equal to the mask ("***") keeps the stored one.
func (s *Server) handleUpdateNotificationSettings(w http.ResponseWriter, r *http.Request) {
	var incoming notification.NotificationSettings
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidJSONBody)
		return
	}

	if err := s.notificationSvc.UpdateSettings(&incoming); err != nil {
		s.handleServiceError(w, err, "failed to save notification settings")
		return
	}

	settings, err := s.notificationSvc.GetSettings()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reload notification settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	if err := s.notificationSvc.TestNotification(r.Context()); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListNotificationLog returns recent alert attempts.
// Accepts an optional ?limit=N query parameter (default 50).
func (s *Server) handleListNotificationLog(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := s.notificationSvc.ListLog(r.Context(), limit)
	if err != nil {
		s.handleServiceError(w, err, "failed to list notification log")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

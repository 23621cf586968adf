package handlers

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stanstork/workforce-api/internal/models"
	"github.com/stanstork/workforce-api/internal/notification"
)

type NotificationHandler struct {
	service notification.Service
	logger  zerolog.Logger
}

func NewNotificationHandler(service notification.Service, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger.With().Str("handler", "notification").Logger(),
	}
}

// List returns the caller's notifications, newest first. ?unread=true limits it to unread ones.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	limit := queryLimit(r, 25)

	var (
		notifications []models.Notification
		err           error
	)
	if strings.EqualFold(r.URL.Query().Get("unread"), "true") {
		notifications, err = h.service.ListUnread(r.Context(), uid, limit)
	} else {
		notifications, err = h.service.ListForUser(r.Context(), uid, limit)
	}
	if err != nil {
		writeError(w, h.logger, err, "list notifications")
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": notifications,
	})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}

	notifID, ok := pathID(w, r, "notificationID", "notification")
	if !ok {
		return
	}

	notif, err := h.service.MarkRead(r.Context(), uid, notifID)
	if err != nil {
		writeError(w, h.logger, err, "update notification")
		return
	}

	writeJSON(w, http.StatusOK, notif)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	updated, err := h.service.MarkAllRead(r.Context(), uid)
	if err != nil {
		writeError(w, h.logger, err, "update notifications")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

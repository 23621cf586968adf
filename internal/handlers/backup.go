package handlers

import (
	"net/http"

	"github.com/rs/zerolog"
	"github.com/stanstork/workforce-api/internal/backup"
)

type BackupHandler struct {
	service backup.Service
	logger  zerolog.Logger
}

func NewBackupHandler(service backup.Service, logger zerolog.Logger) *BackupHandler {
	return &BackupHandler{
		service: service,
		logger:  logger.With().Str("handler", "backup").Logger(),
	}
}

func (h *BackupHandler) Quota(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.CheckManualQuota(r.Context()))
}

// CreateManual answers 201 when a backup was written, 429 when the quota denies it and 503 when
// the backup store cannot be reached.
func (h *BackupHandler) CreateManual(w http.ResponseWriter, r *http.Request) {
	res := h.service.CreateManualBackup(r.Context())
	if !res.Success {
		status := http.StatusInternalServerError
		switch {
		case res.StorageUnavailable:
			status = http.StatusServiceUnavailable
		case res.QuotaExceeded:
			status = http.StatusTooManyRequests
		}
		writeJSON(w, status, res)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

package handlers

import (
	"net/http"

	"github.com/rs/zerolog"
	"github.com/stanstork/workforce-api/internal/models"
	"github.com/stanstork/workforce-api/internal/reward"
)

type RewardHandler struct {
	service reward.Service
	logger  zerolog.Logger
}

func NewRewardHandler(service reward.Service, logger zerolog.Logger) *RewardHandler {
	return &RewardHandler{
		service: service,
		logger:  logger.With().Str("handler", "reward").Logger(),
	}
}

func (h *RewardHandler) AddPoints(w http.ResponseWriter, r *http.Request) {
	var payload reward.AddPointsRequest
	if !decodeJSON(w, r, &payload) {
		return
	}
	entry, err := h.service.AddPoints(r.Context(), payload)
	if err != nil {
		writeError(w, h.logger, err, "add reward points")
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *RewardHandler) MyPoints(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	points, err := h.service.GetUserPoints(r.Context(), uid)
	if err != nil {
		writeError(w, h.logger, err, "load reward points")
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (h *RewardHandler) MyHistory(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	history, err := h.service.History(r.Context(), uid, queryLimit(r, 50))
	if err != nil {
		writeError(w, h.logger, err, "load reward history")
		return
	}
	if history == nil {
		history = []models.RewardHistory{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"history": history})
}

func (h *RewardHandler) Rankings(w http.ResponseWriter, r *http.Request) {
	rankings, err := h.service.Rankings(r.Context(), queryLimit(r, 10))
	if err != nil {
		writeError(w, h.logger, err, "load rankings")
		return
	}
	if rankings == nil {
		rankings = []models.Reward{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rankings": rankings})
}

// Package reward tracks worker reward points and their ledger.
package reward

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stanstork/workforce-api/internal/models"
	"github.com/stanstork/workforce-api/internal/notification"
	"github.com/stanstork/workforce-api/internal/repository"
)

type AddPointsRequest struct {
	UserID            string `json:"user_id"`
	Points            int64  `json:"points"`
	Reason            string `json:"reason"`
	RelatedEntityID   string `json:"related_entity_id"`
	RelatedEntityType string `json:"related_entity_type"`
}

type Service interface {
	AddPoints(ctx context.Context, req AddPointsRequest) (models.RewardHistory, error)
	// GetUserPoints returns the user's balance; users without a reward record have zero points.
	GetUserPoints(ctx context.Context, userID string) (models.Reward, error)
	Rankings(ctx context.Context, limit int) ([]models.Reward, error)
	History(ctx context.Context, userID string, limit int) ([]models.RewardHistory, error)
}

type service struct {
	rewards  repository.RewardRepository
	users    repository.UserRepository
	notifier notification.Service
	now      func() time.Time
	logger   zerolog.Logger
}

func NewService(rewards repository.RewardRepository, users repository.UserRepository, notifier notification.Service, logger zerolog.Logger) Service {
	return &service{
		rewards:  rewards,
		users:    users,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.With().Str("component", "reward_service").Logger(),
	}
}

func (s *service) AddPoints(ctx context.Context, req AddPointsRequest) (models.RewardHistory, error) {
	reason := strings.TrimSpace(req.Reason)
	switch {
	case req.Points == 0:
		return models.RewardHistory{}, fmt.Errorf("%w: points must be non-zero", models.ErrInvalidInput)
	case reason == "":
		return models.RewardHistory{}, fmt.Errorf("%w: reason is required", models.ErrInvalidInput)
	}
	if _, err := s.users.GetUserByID(ctx, req.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.RewardHistory{}, fmt.Errorf("%w: user %s", models.ErrNotFound, req.UserID)
		}
		return models.RewardHistory{}, err
	}

	entry, err := s.rewards.AddPoints(ctx, models.RewardHistory{
		UserID:            req.UserID,
		Change:            req.Points,
		Reason:            reason,
		RelatedEntityID:   optional(req.RelatedEntityID),
		RelatedEntityType: optional(req.RelatedEntityType),
		CreatedAt:         s.now(),
	})
	if err != nil {
		return models.RewardHistory{}, fmt.Errorf("add points: %w", err)
	}

	s.logger.Info().Str("user_id", entry.UserID).Int64("change", entry.Change).Int64("balance", entry.Balance).Msg("reward points applied")

	verb := "earned"
	points := entry.Change
	if points < 0 {
		verb = "lost"
		points = -points
	}
	_, err = s.notifier.Publish(ctx, notification.Event{
		UserID:  entry.UserID,
		Type:    models.NotificationRewardPoints,
		Title:   "Reward Points Updated",
		Message: fmt.Sprintf("You %s %d points (%s). Your balance is %d.", verb, points, reason, entry.Balance),
		Link:    "/worker/rewards",
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", entry.UserID).Msg("failed to notify reward change")
	}
	return entry, nil
}

func (s *service) GetUserPoints(ctx context.Context, userID string) (models.Reward, error) {
	reward, err := s.rewards.GetReward(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Reward{UserID: userID}, nil
	}
	return reward, err
}

func (s *service) Rankings(ctx context.Context, limit int) ([]models.Reward, error) {
	rankings, err := s.rewards.Rankings(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load rankings: %w", err)
	}
	if rankings == nil {
		rankings = []models.Reward{}
	}
	return rankings, nil
}

func (s *service) History(ctx context.Context, userID string, limit int) ([]models.RewardHistory, error) {
	history, err := s.rewards.History(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("load reward history: %w", err)
	}
	if history == nil {
		history = []models.RewardHistory{}
	}
	return history, nil
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

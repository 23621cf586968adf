package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/stanstork/workforce-api/internal/models"
)

type RewardRepository interface {
	// AddPoints applies entry.Change to the user's balance and records the history row atomically.
	AddPoints(ctx context.Context, entry models.RewardHistory) (models.RewardHistory, error)
	GetReward(ctx context.Context, userID string) (models.Reward, error)
	Rankings(ctx context.Context, limit int) ([]models.Reward, error)
	History(ctx context.Context, userID string, limit int) ([]models.RewardHistory, error)
}

type rewardRepository struct {
	db *sql.DB
}

func NewRewardRepository(db *sql.DB) RewardRepository {
	return &rewardRepository{db: db}
}

func (r *rewardRepository) AddPoints(ctx context.Context, entry models.RewardHistory) (models.RewardHistory, error) {
	at := entry.CreatedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	var recorded models.RewardHistory
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var balance int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO tenant.rewards (user_id, total_points, created_at, last_updated)
			VALUES ($1, $2, $3, $3)
			ON CONFLICT (user_id) DO UPDATE
			SET total_points = tenant.rewards.total_points + EXCLUDED.total_points,
			    last_updated = EXCLUDED.last_updated
			RETURNING total_points`,
			entry.UserID, entry.Change, at).Scan(&balance)
		if err != nil {
			return err
		}

		row := tx.QueryRowContext(ctx, `
			INSERT INTO tenant.reward_history (user_id, change, balance, reason, related_entity_id, related_entity_type, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, user_id, change, balance, reason, related_entity_id, related_entity_type, created_at`,
			entry.UserID,
			entry.Change,
			balance,
			entry.Reason,
			nullString(entry.RelatedEntityID),
			nullString(entry.RelatedEntityType),
			at,
		)
		recorded, err = scanRewardHistory(row)
		return err
	})
	if err != nil {
		return models.RewardHistory{}, err
	}
	return recorded, nil
}

func (r *rewardRepository) GetReward(ctx context.Context, userID string) (models.Reward, error) {
	var reward models.Reward
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, total_points, created_at, last_updated
		FROM tenant.rewards
		WHERE user_id = $1`, userID).
		Scan(&reward.UserID, &reward.TotalPoints, &reward.CreatedAt, &reward.LastUpdated)
	if err != nil {
		return models.Reward{}, err
	}
	return reward, nil
}

func (r *rewardRepository) Rankings(ctx context.Context, limit int) ([]models.Reward, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, total_points, created_at, last_updated
		FROM tenant.rewards
		ORDER BY total_points DESC, last_updated ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rewards []models.Reward
	for rows.Next() {
		var reward models.Reward
		if err := rows.Scan(&reward.UserID, &reward.TotalPoints, &reward.CreatedAt, &reward.LastUpdated); err != nil {
			return nil, err
		}
		rewards = append(rewards, reward)
	}
	return rewards, rows.Err()
}

func (r *rewardRepository) History(ctx context.Context, userID string, limit int) ([]models.RewardHistory, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, change, balance, reason, related_entity_id, related_entity_type, created_at
		FROM tenant.reward_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []models.RewardHistory
	for rows.Next() {
		h, err := scanRewardHistory(rows)
		if err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

func scanRewardHistory(s scanner) (models.RewardHistory, error) {
	var (
		h           models.RewardHistory
		relatedID   sql.NullString
		relatedType sql.NullString
	)
	if err := s.Scan(&h.ID, &h.UserID, &h.Change, &h.Balance, &h.Reason, &relatedID, &relatedType, &h.CreatedAt); err != nil {
		return models.RewardHistory{}, err
	}
	h.RelatedEntityID = stringPtr(relatedID)
	h.RelatedEntityType = stringPtr(relatedType)
	return h, nil
}

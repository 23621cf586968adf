package repotest

import (
	"context"
	"sort"

	"github.com/stanstork/workforce-api/internal/models"
)

type rewardRepo struct{ s *Store }

func (r rewardRepo) AddPoints(_ context.Context, entry models.RewardHistory) (models.RewardHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("AddPoints", entry.UserID); err != nil {
		return models.RewardHistory{}, err
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.s.Now()
	}
	reward, ok := r.s.rewards[entry.UserID]
	if !ok {
		reward = models.Reward{UserID: entry.UserID, CreatedAt: entry.CreatedAt}
	}
	reward.TotalPoints += entry.Change
	reward.LastUpdated = entry.CreatedAt
	r.s.rewards[entry.UserID] = reward

	entry.ID = newID()
	entry.Balance = reward.TotalPoints
	r.s.rewardHistory = append(r.s.rewardHistory, entry)
	r.s.writes += 2
	return entry, nil
}

func (r rewardRepo) GetReward(_ context.Context, userID string) (models.Reward, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reward, ok := r.s.rewards[userID]
	if !ok {
		return models.Reward{}, notFound("reward", userID)
	}
	return reward, nil
}

func (r rewardRepo) Rankings(_ context.Context, limit int) ([]models.Reward, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.Reward, 0, len(r.s.rewards))
	for _, reward := range r.s.rewards {
		out = append(out, reward)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalPoints == out[j].TotalPoints {
			return out[i].LastUpdated.Before(out[j].LastUpdated)
		}
		return out[i].TotalPoints > out[j].TotalPoints
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r rewardRepo) History(_ context.Context, userID string, limit int) ([]models.RewardHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.RewardHistory
	for i := len(r.s.rewardHistory) - 1; i >= 0; i-- {
		if h := r.s.rewardHistory[i]; h.UserID == userID {
			out = append(out, h)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

package models

import "time"

type Reward struct {
	UserID      string    `json:"user_id"`
	TotalPoints int64     `json:"total_points"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
}

type RewardHistory struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	Change            int64     `json:"change"`
	Balance           int64     `json:"balance"`
	Reason            string    `json:"reason"`
	RelatedEntityID   *string   `json:"related_entity_id,omitempty"`
	RelatedEntityType *string   `json:"related_entity_type,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

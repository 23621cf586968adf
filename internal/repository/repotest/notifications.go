package repotest

import (
	"context"
	"sort"
	"time"

	"github.com/stanstork/workforce-api/internal/models"
	"github.com/stanstork/workforce-api/internal/repository"
)

type notificationRepo struct{ s *Store }

func (r notificationRepo) Create(_ context.Context, params repository.CreateNotificationParams) (models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("CreateNotification", params.UserID); err != nil {
		return models.Notification{}, err
	}
	n := models.Notification{
		ID:         newID(),
		UserID:     params.UserID,
		Type:       params.Type,
		Title:      params.Title,
		Message:    params.Message,
		EntityType: optional(params.EntityType),
		EntityID:   optional(params.EntityID),
		Link:       optional(params.Link),
		CreatedAt:  r.s.Now(),
	}
	r.s.notifications[n.ID] = n
	r.s.writes++
	return n, nil
}

func (r notificationRepo) ListForUser(_ context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Notification
	for _, n := range r.s.notifications {
		if n.UserID == userID && (!unreadOnly || !n.Read) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r notificationRepo) MarkRead(_ context.Context, userID, notificationID string) (models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[notificationID]
	if !ok || n.UserID != userID {
		return models.Notification{}, notFound("notification", notificationID)
	}
	n.Read = true
	r.s.notifications[notificationID] = n
	r.s.writes++
	return n, nil
}

func (r notificationRepo) MarkAllRead(_ context.Context, userID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var count int64
	for id, n := range r.s.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			r.s.notifications[id] = n
			count++
		}
	}
	r.s.writes += int(count)
	return count, nil
}

func (r notificationRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var count int64
	for id, n := range r.s.notifications {
		if n.CreatedAt.Before(cutoff) {
			delete(r.s.notifications, id)
			count++
		}
	}
	r.s.writes += int(count)
	return count, nil
}

// PutNotification seeds a notification with an explicit timestamp.
func (s *Store) PutNotification(n models.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == "" {
		n.ID = newID()
	}
	s.notifications[n.ID] = n
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

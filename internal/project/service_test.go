package project

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stanstork/workforce-api/internal/models"
	"github.com/stanstork/workforce-api/internal/notification"
	"github.com/stanstork/workforce-api/internal/repository/repotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = 24 * time.Hour

func newTestService(t *testing.T, now time.Time) (Service, *repotest.Store) {
	t.Helper()
	store := repotest.NewStore()
	clock := func() time.Time { return now }
	store.Now = clock
	store.PutUser(models.User{ID: "admin-1", Role: models.RoleAdmin})
	notifier := notification.NewService(store.Notifications(), store.Users(), notification.Options{Now: clock}, zerolog.Nop())
	return NewService(store.Projects(), notifier, zerolog.Nop(), WithClock(clock)), store
}

func TestCreateProjectStartsAsDraft(t *testing.T) {
	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	svc, store := newTestService(t, now)

	p, err := svc.CreateProject(context.Background(), CreateRequest{
		Name:      "  Harbour Works ",
		StartDate: now.Add(2 * day),
		EndDate:   now.Add(30 * day),
	})
	require.NoError(t, err)
	assert.Equal(t, "Harbour Works", p.Name)
	assert.Equal(t, models.ProjectDraft, p.Status)

	notes := store.NotificationsFor("admin-1")
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationProjectCreated, notes[0].Type)

	_, err = svc.CreateProject(context.Background(), CreateRequest{Name: "Backwards", StartDate: now, EndDate: now.Add(-day)})
	require.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestArchiveRestoresPreviousStatus(t *testing.T) {
	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	svc, store := newTestService(t, now)
	store.PutProject(models.Project{ID: "p-1", Name: "Depot", Status: models.ProjectActive})
	ctx := context.Background()

	archived, err := svc.ArchiveProject(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, models.ProjectArchived, archived.Status)
	require.NotNil(t, archived.PreviousStatus)
	assert.Equal(t, models.ProjectActive, *archived.PreviousStatus)
	require.NotNil(t, archived.ArchivedAt)

	_, err = svc.UpdateStatus(ctx, "p-1", models.ProjectEnded)
	require.ErrorIs(t, err, models.ErrInvalidState)

	restored, err := svc.UnarchiveProject(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, models.ProjectActive, restored.Status)
	assert.Nil(t, restored.PreviousStatus)

	_, err = svc.UnarchiveProject(ctx, "p-1")
	require.ErrorIs(t, err, models.ErrInvalidState)

	var types []models.NotificationType
	for _, n := range store.NotificationsFor("admin-1") {
		types = append(types, n.Type)
	}
	assert.ElementsMatch(t, []models.NotificationType{models.NotificationProjectArchived, models.NotificationProjectUnarchived}, types)
}

func TestUnarchiveDefaultsToEnded(t *testing.T) {
	svc, store := newTestService(t, time.Now().UTC())
	store.PutProject(models.Project{ID: "p-1", Status: models.ProjectArchived})

	restored, err := svc.UnarchiveProject(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, models.ProjectEnded, restored.Status)
}

func TestAutoUpdateProjects(t *testing.T) {
	now := time.Date(2025, 2, 1, 2, 0, 0, 0, time.UTC)
	svc, store := newTestService(t, now)
	store.PutProject(models.Project{ID: "due-start", Status: models.ProjectDraft, StartDate: now.Add(-time.Hour), EndDate: now.Add(10 * day)})
	store.PutProject(models.Project{ID: "later", Status: models.ProjectDraft, StartDate: now.Add(day), EndDate: now.Add(10 * day)})
	store.PutProject(models.Project{ID: "due-end", Status: models.ProjectActive, StartDate: now.Add(-10 * day), EndDate: now})
	store.PutProject(models.Project{ID: "archived", Status: models.ProjectArchived, StartDate: now.Add(-10 * day), EndDate: now.Add(-day)})

	result, err := svc.AutoUpdateProjects(context.Background())
	require.NoError(t, err)
	assert.Equal(t, UpdateResult{Started: 1, Ended: 1}, result)

	ctx := context.Background()
	for id, want := range map[string]models.ProjectStatus{
		"due-start": models.ProjectActive,
		"later":     models.ProjectDraft,
		"due-end":   models.ProjectEnded,
		"archived":  models.ProjectArchived,
	} {
		p, err := svc.GetProject(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, p.Status, id)
	}

	ended, err := svc.GetProject(ctx, "due-end")
	require.NoError(t, err)
	require.NotNil(t, ended.EndedAt)
	assert.Equal(t, now, *ended.EndedAt)
}

func TestProjectNotFound(t *testing.T) {
	svc, _ := newTestService(t, time.Now().UTC())
	_, err := svc.GetProject(context.Background(), "missing")
	require.ErrorIs(t, err, models.ErrNotFound)
	require.ErrorIs(t, svc.DeleteProject(context.Background(), "missing"), models.ErrNotFound)
	_, err = svc.ListProjects(context.Background(), "paused")
	require.ErrorIs(t, err, models.ErrInvalidInput)
}

package repotest

import (
	"context"
	"sort"
	"time"

	"github.com/stanstork/workforce-api/internal/models"
	"github.com/stanstork/workforce-api/internal/repository"
)

type userRepo struct{ s *Store }

func (r userRepo) CreateUser(_ context.Context, user models.User) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("CreateUser", user.ID); err != nil {
		return models.User{}, err
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = r.s.Now()
	}
	r.s.users[user.ID] = user
	r.s.writes++
	return user, nil
}

func (r userRepo) GetUserByID(_ context.Context, userID string) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return models.User{}, notFound("user", userID)
	}
	return u, nil
}

func (r userRepo) ListUsers(_ context.Context, role models.UserRole) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("ListUsers", string(role)); err != nil {
		return nil, err
	}
	var users []models.User
	for _, u := range r.s.users {
		if role == "" || u.Role == role {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

type projectRepo struct{ s *Store }

func (r projectRepo) CreateProject(_ context.Context, p models.Project) (models.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("CreateProject", p.Name); err != nil {
		return models.Project{}, err
	}
	if p.ID == "" {
		p.ID = newID()
	}
	p.UpdatedAt = p.CreatedAt
	p.Workers = map[string]models.ProjectWorker{}
	r.s.projects[p.ID] = cloneProject(p)
	r.s.writes++
	return cloneProject(p), nil
}

func (r projectRepo) GetProject(_ context.Context, projectID string) (models.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.projects[projectID]
	if !ok {
		return models.Project{}, notFound("project", projectID)
	}
	return cloneProject(p), nil
}

func (r projectRepo) ListProjects(_ context.Context, status models.ProjectStatus) ([]models.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Project
	for _, p := range r.s.projects {
		if status == "" || p.Status == status {
			p = cloneProject(p)
			p.Workers = nil
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (r projectRepo) SetStatus(_ context.Context, projectID string, change repository.StatusChange) (models.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.projects[projectID]
	if !ok {
		return models.Project{}, notFound("project", projectID)
	}
	if err := r.s.fail("SetStatus", projectID); err != nil {
		return models.Project{}, err
	}
	p.Status = change.Status
	p.PreviousStatus = change.PreviousStatus
	p.UpdatedAt = change.At
	at := change.At
	switch change.Status {
	case models.ProjectEnded:
		p.EndedAt = &at
	case models.ProjectArchived:
		p.ArchivedAt = &at
	}
	r.s.projects[projectID] = p
	r.s.writes++
	return cloneProject(p), nil
}

func (r projectRepo) DeleteProject(_ context.Context, projectID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.projects[projectID]; !ok {
		return notFound("project", projectID)
	}
	delete(r.s.projects, projectID)
	for id, inv := range r.s.invitations {
		if inv.ProjectID == projectID {
			delete(r.s.invitations, id)
		}
	}
	r.s.writes++
	return nil
}

func (r projectRepo) AddWorker(_ context.Context, projectID, userID string, joinedAt time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("AddWorker", projectID+"/"+userID); err != nil {
		return false, err
	}
	return r.s.addWorker(projectID, userID, joinedAt, false)
}

func (r projectRepo) RemoveWorker(_ context.Context, projectID, userID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("RemoveWorker", projectID+"/"+userID); err != nil {
		return false, err
	}
	return r.s.removeWorker(projectID, userID), nil
}

func (r projectRepo) ListRoster(_ context.Context) ([]models.RosterEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var entries []models.RosterEntry
	for _, p := range r.s.projects {
		for userID, w := range p.Workers {
			entries = append(entries, models.RosterEntry{ProjectID: p.ID, UserID: userID, Status: w.Status, JoinedAt: w.JoinedAt})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ProjectID != entries[j].ProjectID {
			return entries[i].ProjectID < entries[j].ProjectID
		}
		return entries[i].UserID < entries[j].UserID
	})
	return entries, nil
}

// addWorker mirrors the roster insert; overwrite selects upsert semantics. Caller holds mu.
func (s *Store) addWorker(projectID, userID string, joinedAt time.Time, overwrite bool) (bool, error) {
	p, ok := s.projects[projectID]
	if !ok {
		return false, notFound("project", projectID)
	}
	if _, exists := p.Workers[userID]; exists && !overwrite {
		return false, nil
	}
	if p.Workers == nil {
		p.Workers = map[string]models.ProjectWorker{}
	}
	p.Workers[userID] = models.ProjectWorker{Status: models.WorkerStatusActive, JoinedAt: joinedAt}
	s.projects[projectID] = p
	s.writes++
	return true, nil
}

// removeWorker deletes a roster entry. Caller holds mu.
func (s *Store) removeWorker(projectID, userID string) bool {
	p, ok := s.projects[projectID]
	if !ok {
		return false
	}
	if _, exists := p.Workers[userID]; !exists {
		return false
	}
	delete(p.Workers, userID)
	s.projects[projectID] = p
	s.writes++
	return true
}

func cloneProject(p models.Project) models.Project {
	if p.Workers != nil {
		workers := make(map[string]models.ProjectWorker, len(p.Workers))
		for k, v := range p.Workers {
			workers[k] = v
		}
		p.Workers = workers
	}
	return p
}

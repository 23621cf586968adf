package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/stanstork/workforce-api/internal/models"
)

type ProjectRepository interface {
	CreateProject(ctx context.Context, project models.Project) (models.Project, error)
	GetProject(ctx context.Context, projectID string) (models.Project, error)
	ListProjects(ctx context.Context, status models.ProjectStatus) ([]models.Project, error)
	SetStatus(ctx context.Context, projectID string, change StatusChange) (models.Project, error)
	DeleteProject(ctx context.Context, projectID string) error
	// AddWorker inserts the roster entry if absent and reports whether a row was written.
	AddWorker(ctx context.Context, projectID, userID string, joinedAt time.Time) (bool, error)
	// RemoveWorker deletes the roster entry and reports whether a row was removed.
	RemoveWorker(ctx context.Context, projectID, userID string) (bool, error)
	ListRoster(ctx context.Context) ([]models.RosterEntry, error)
}

// StatusChange moves a project to Status. PreviousStatus is stored as-is, nil clears it.
type StatusChange struct {
	Status         models.ProjectStatus
	PreviousStatus *models.ProjectStatus
	At             time.Time
}

type projectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) ProjectRepository {
	return &projectRepository{db: db}
}

const projectColumns = `id, name, description, location, status, previous_status, start_date, end_date,
		created_at, updated_at, ended_at, archived_at`

func (r *projectRepository) CreateProject(ctx context.Context, project models.Project) (models.Project, error) {
	query := `
		INSERT INTO tenant.projects (name, description, location, status, start_date, end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING ` + projectColumns

	row := r.db.QueryRowContext(ctx, query,
		project.Name,
		project.Description,
		project.Location,
		project.Status,
		project.StartDate,
		project.EndDate,
		project.CreatedAt,
	)
	created, err := scanProject(row)
	if err != nil {
		return models.Project{}, err
	}
	created.Workers = map[string]models.ProjectWorker{}
	return created, nil
}

func (r *projectRepository) GetProject(ctx context.Context, projectID string) (models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM tenant.projects WHERE id = $1`
	project, err := scanProject(r.db.QueryRowContext(ctx, query, projectID))
	if err != nil {
		return models.Project{}, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT project_id, user_id, status, joined_at
		FROM tenant.project_workers
		WHERE project_id = $1`, projectID)
	if err != nil {
		return models.Project{}, fmt.Errorf("load roster: %w", err)
	}
	defer rows.Close()

	project.Workers = map[string]models.ProjectWorker{}
	for rows.Next() {
		entry, err := scanRosterEntry(rows)
		if err != nil {
			return models.Project{}, err
		}
		project.Workers[entry.UserID] = models.ProjectWorker{Status: entry.Status, JoinedAt: entry.JoinedAt}
	}
	return project, rows.Err()
}

// ListProjects returns projects without their rosters. An empty status lists all.
func (r *projectRepository) ListProjects(ctx context.Context, status models.ProjectStatus) ([]models.Project, error) {
	query := `
		SELECT ` + projectColumns + `
		FROM tenant.projects
		WHERE $1::text = '' OR status = $1::text
		ORDER BY start_date ASC`

	rows, err := r.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

func (r *projectRepository) SetStatus(ctx context.Context, projectID string, change StatusChange) (models.Project, error) {
	query := `
		UPDATE tenant.projects
		SET status = $2,
		    previous_status = $3,
		    updated_at = $4,
		    ended_at = CASE WHEN $2 = 'ended' THEN $4 ELSE ended_at END,
		    archived_at = CASE WHEN $2 = 'archived' THEN $4 ELSE archived_at END
		WHERE id = $1
		RETURNING ` + projectColumns

	var previous interface{}
	if change.PreviousStatus != nil {
		previous = string(*change.PreviousStatus)
	}
	return scanProject(r.db.QueryRowContext(ctx, query, projectID, string(change.Status), previous, change.At))
}

func (r *projectRepository) DeleteProject(ctx context.Context, projectID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tenant.projects WHERE id = $1`, projectID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *projectRepository) AddWorker(ctx context.Context, projectID, userID string, joinedAt time.Time) (bool, error) {
	return addWorker(ctx, r.db, projectID, userID, joinedAt)
}

func (r *projectRepository) RemoveWorker(ctx context.Context, projectID, userID string) (bool, error) {
	return removeWorker(ctx, r.db, projectID, userID)
}

func (r *projectRepository) ListRoster(ctx context.Context) ([]models.RosterEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT project_id, user_id, status, joined_at
		FROM tenant.project_workers
		ORDER BY project_id, user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.RosterEntry
	for rows.Next() {
		entry, err := scanRosterEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func addWorker(ctx context.Context, db execer, projectID, userID string, joinedAt time.Time) (bool, error) {
	res, err := db.ExecContext(ctx, `
		INSERT INTO tenant.project_workers (project_id, user_id, status, joined_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (project_id, user_id) DO NOTHING`,
		projectID, userID, models.WorkerStatusActive, joinedAt)
	if err != nil {
		return false, fmt.Errorf("add worker %s to project %s: %w", userID, projectID, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// upsertWorker overwrites joined_at when the worker is already on the roster.
func upsertWorker(ctx context.Context, db execer, projectID, userID string, joinedAt time.Time) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO tenant.project_workers (project_id, user_id, status, joined_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (project_id, user_id) DO UPDATE SET status = EXCLUDED.status, joined_at = EXCLUDED.joined_at`,
		projectID, userID, models.WorkerStatusActive, joinedAt)
	if err != nil {
		return fmt.Errorf("upsert worker %s on project %s: %w", userID, projectID, err)
	}
	return nil
}

func removeWorker(ctx context.Context, db execer, projectID, userID string) (bool, error) {
	res, err := db.ExecContext(ctx, `
		DELETE FROM tenant.project_workers WHERE project_id = $1 AND user_id = $2`,
		projectID, userID)
	if err != nil {
		return false, fmt.Errorf("remove worker %s from project %s: %w", userID, projectID, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func scanProject(s scanner) (models.Project, error) {
	var (
		p          models.Project
		status     string
		previous   sql.NullString
		endedAt    sql.NullTime
		archivedAt sql.NullTime
	)
	err := s.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Location,
		&status,
		&previous,
		&p.StartDate,
		&p.EndDate,
		&p.CreatedAt,
		&p.UpdatedAt,
		&endedAt,
		&archivedAt,
	)
	if err != nil {
		return models.Project{}, err
	}
	p.Status = models.ProjectStatus(status)
	if previous.Valid {
		ps := models.ProjectStatus(previous.String)
		p.PreviousStatus = &ps
	}
	p.EndedAt = timePtr(endedAt)
	p.ArchivedAt = timePtr(archivedAt)
	return p, nil
}

func scanRosterEntry(s scanner) (models.RosterEntry, error) {
	var e models.RosterEntry
	if err := s.Scan(&e.ProjectID, &e.UserID, &e.Status, &e.JoinedAt); err != nil {
		return models.RosterEntry{}, err
	}
	return e, nil
}

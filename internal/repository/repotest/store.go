// Package repotest provides in-memory repository implementations for service tests.
package repotest

import (
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stanstork/workforce-api/internal/models"
	"github.com/stanstork/workforce-api/internal/repository"
)

// Store backs every fake repository with shared maps so cross-table effects are visible.
type Store struct {
	mu sync.Mutex

	users         map[string]models.User
	projects      map[string]models.Project
	invitations   map[string]models.ProjectInvitation
	payments      map[string]models.Payment
	notifications map[string]models.Notification
	rewards       map[string]models.Reward
	rewardHistory []models.RewardHistory
	expenses      map[string]models.Expense
	workHours     map[string]models.WorkHours
	writes        int

	// Fail, when set, is consulted before each write keyed by operation and record id.
	Fail func(op, id string) error
	// Now stamps records that the database would timestamp itself.
	Now func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:         map[string]models.User{},
		projects:      map[string]models.Project{},
		invitations:   map[string]models.ProjectInvitation{},
		payments:      map[string]models.Payment{},
		notifications: map[string]models.Notification{},
		rewards:       map[string]models.Reward{},
		expenses:      map[string]models.Expense{},
		workHours:     map[string]models.WorkHours{},
		Now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) fail(op, id string) error {
	if s.Fail == nil {
		return nil
	}
	return s.Fail(op, id)
}

func (s *Store) Users() repository.UserRepository                 { return userRepo{s} }
func (s *Store) Projects() repository.ProjectRepository           { return projectRepo{s} }
func (s *Store) Invitations() repository.InvitationRepository     { return invitationRepo{s} }
func (s *Store) Payments() repository.PaymentRepository           { return paymentRepo{s} }
func (s *Store) Notifications() repository.NotificationRepository { return notificationRepo{s} }
func (s *Store) Rewards() repository.RewardRepository             { return rewardRepo{s} }
func (s *Store) Expenses() repository.ExpenseRepository           { return expenseRepo{s} }
func (s *Store) WorkHours() repository.WorkHoursRepository        { return workHoursRepo{s} }

// PutUser seeds a user record.
func (s *Store) PutUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// PutProject seeds a project record, roster included.
func (s *Store) PutProject(p models.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.ID] = cloneProject(p)
}

// PutInvitation seeds an invitation record.
func (s *Store) PutInvitation(inv models.ProjectInvitation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invitations[inv.ID] = cloneInvitation(inv)
}

// PutExpense seeds an expense claim.
func (s *Store) PutExpense(e models.Expense) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses[e.ID] = cloneExpense(e)
}

// PutWorkHours seeds a work hours entry.
func (s *Store) PutWorkHours(w models.WorkHours) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workHours[w.ID] = w
}

// NotificationsFor returns every notification stored for userID in creation order.
func (s *Store) NotificationsFor(userID string) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Writes counts every mutation applied through the fakes.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func newID() string { return uuid.NewString() }

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, sql.ErrNoRows)
}

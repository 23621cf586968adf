package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/stanstork/workforce-api/internal/authz"
	"github.com/stanstork/workforce-api/internal/handlers"
	"github.com/stanstork/workforce-api/internal/models"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth          *handlers.AuthHandler
	Users         *handlers.UserHandler
	Projects      *handlers.ProjectHandler
	Invitations   *handlers.InvitationHandler
	Payments      *handlers.PaymentHandler
	Expenses      *handlers.ExpenseHandler
	WorkHours     *handlers.WorkHoursHandler
	Notifications *handlers.NotificationHandler
	Rewards       *handlers.RewardHandler
	Backups       *handlers.BackupHandler
	Jobs          *handlers.JobHandler
	// Ready answers the readiness check; nil leaves it unmounted.
	Ready http.Handler
}

// NewRouter sets up the API routes
func NewRouter(h Handlers) *mux.Router {
	router := mux.NewRouter()

	// Health check route
	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)
	if h.Ready != nil {
		router.Handle("/ready", h.Ready).Methods(http.MethodGet)
	}

	api := router.PathPrefix("/api").Subrouter()
	api.Use(h.Auth.JWTMiddleware)

	// Worker endpoints
	api.HandleFunc("/me", h.Auth.Me).Methods(http.MethodGet)
	api.HandleFunc("/me/invitations", h.Invitations.ListMyInvitations).Methods(http.MethodGet)
	api.HandleFunc("/me/payments", h.Payments.ListMyPayments).Methods(http.MethodGet)
	api.HandleFunc("/me/expenses", h.Expenses.Submit).Methods(http.MethodPost)
	api.HandleFunc("/me/expenses", h.Expenses.ListMine).Methods(http.MethodGet)
	api.HandleFunc("/me/work-hours", h.WorkHours.Submit).Methods(http.MethodPost)
	api.HandleFunc("/me/work-hours", h.WorkHours.ListMine).Methods(http.MethodGet)
	api.HandleFunc("/invitations/{invitationID}/respond", h.Invitations.Respond).Methods(http.MethodPost)
	api.HandleFunc("/notifications", h.Notifications.List).Methods(http.MethodGet)
	api.HandleFunc("/notifications/read-all", h.Notifications.MarkAllRead).Methods(http.MethodPost)
	api.HandleFunc("/notifications/{notificationID}/read", h.Notifications.MarkRead).Methods(http.MethodPost)
	api.HandleFunc("/rewards/me", h.Rewards.MyPoints).Methods(http.MethodGet)
	api.HandleFunc("/rewards/me/history", h.Rewards.MyHistory).Methods(http.MethodGet)
	api.HandleFunc("/rewards/rankings", h.Rewards.Rankings).Methods(http.MethodGet)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(authz.RequireRole(models.RoleAdmin))

	admin.HandleFunc("/users", h.Users.CreateUser).Methods(http.MethodPost)
	admin.HandleFunc("/users", h.Users.ListUsers).Methods(http.MethodGet)

	admin.HandleFunc("/projects", h.Projects.CreateProject).Methods(http.MethodPost)
	admin.HandleFunc("/projects", h.Projects.ListProjects).Methods(http.MethodGet)
	admin.HandleFunc("/projects/{projectID}", h.Projects.GetProject).Methods(http.MethodGet)
	admin.HandleFunc("/projects/{projectID}", h.Projects.DeleteProject).Methods(http.MethodDelete)
	admin.HandleFunc("/projects/{projectID}/status", h.Projects.UpdateStatus).Methods(http.MethodPut)
	admin.HandleFunc("/projects/{projectID}/end", h.Projects.EndProject).Methods(http.MethodPost)
	admin.HandleFunc("/projects/{projectID}/archive", h.Projects.ArchiveProject).Methods(http.MethodPost)
	admin.HandleFunc("/projects/{projectID}/unarchive", h.Projects.UnarchiveProject).Methods(http.MethodPost)

	admin.HandleFunc("/projects/{projectID}/invitations", h.Invitations.CreateInvitation).Methods(http.MethodPost)
	admin.HandleFunc("/projects/{projectID}/invitations", h.Invitations.ListProjectInvitations).Methods(http.MethodGet)
	admin.HandleFunc("/projects/{projectID}/available-workers", h.Invitations.AvailableWorkers).Methods(http.MethodGet)
	admin.HandleFunc("/invitations/{invitationID}", h.Invitations.GetInvitation).Methods(http.MethodGet)
	admin.HandleFunc("/invitations/{invitationID}", h.Invitations.DeleteInvitation).Methods(http.MethodDelete)
	admin.HandleFunc("/invitations/{invitationID}/resend", h.Invitations.ResendInvitation).Methods(http.MethodPost)
	admin.HandleFunc("/invitations/{invitationID}/nudge", h.Invitations.SendNudge).Methods(http.MethodPost)
	admin.HandleFunc("/invitations/{invitationID}/cancel", h.Invitations.CancelInvitation).Methods(http.MethodPost)

	admin.HandleFunc("/payments", h.Payments.CreatePayment).Methods(http.MethodPost)
	admin.HandleFunc("/payments", h.Payments.ListPayments).Methods(http.MethodGet)
	admin.HandleFunc("/payments/{paymentID}", h.Payments.GetPayment).Methods(http.MethodGet)
	admin.HandleFunc("/payments/{paymentID}/status", h.Payments.UpdateStatus).Methods(http.MethodPut)
	admin.HandleFunc("/payments/{paymentID}/comments", h.Payments.AddComment).Methods(http.MethodPost)

	admin.HandleFunc("/expenses", h.Expenses.List).Methods(http.MethodGet)
	admin.HandleFunc("/expenses/{expenseID}", h.Expenses.Get).Methods(http.MethodGet)
	admin.HandleFunc("/expenses/{expenseID}/approve", h.Expenses.Approve).Methods(http.MethodPost)
	admin.HandleFunc("/expenses/{expenseID}/reject", h.Expenses.Reject).Methods(http.MethodPost)
	admin.HandleFunc("/users/{userID}/unpaid-expenses", h.Expenses.ListUnpaidForUser).Methods(http.MethodGet)

	admin.HandleFunc("/work-hours", h.WorkHours.List).Methods(http.MethodGet)
	admin.HandleFunc("/work-hours/summary", h.WorkHours.UnpaidSummary).Methods(http.MethodGet)
	admin.HandleFunc("/work-hours/review", h.WorkHours.ReviewBatch).Methods(http.MethodPost)
	admin.HandleFunc("/work-hours/{entryID}", h.WorkHours.Get).Methods(http.MethodGet)
	admin.HandleFunc("/work-hours/{entryID}/approve", h.WorkHours.Approve).Methods(http.MethodPost)
	admin.HandleFunc("/work-hours/{entryID}/reject", h.WorkHours.Reject).Methods(http.MethodPost)

	admin.HandleFunc("/rewards", h.Rewards.AddPoints).Methods(http.MethodPost)

	admin.HandleFunc("/backups", h.Backups.CreateManual).Methods(http.MethodPost)
	admin.HandleFunc("/backups/quota", h.Backups.Quota).Methods(http.MethodGet)

	admin.HandleFunc("/jobs", h.Jobs.ListJobs).Methods(http.MethodGet)
	admin.HandleFunc("/jobs/{job}", h.Jobs.RunJob).Methods(http.MethodPost)

	return router
}

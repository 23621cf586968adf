package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	h "github.com/gorilla/handlers"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/stanstork/workforce-api/internal/backup"
	"github.com/stanstork/workforce-api/internal/config"
	"github.com/stanstork/workforce-api/internal/expense"
	"github.com/stanstork/workforce-api/internal/handlers"
	"github.com/stanstork/workforce-api/internal/invitation"
	"github.com/stanstork/workforce-api/internal/middleware"
	"github.com/stanstork/workforce-api/internal/migration"
	"github.com/stanstork/workforce-api/internal/notification"
	"github.com/stanstork/workforce-api/internal/payment"
	"github.com/stanstork/workforce-api/internal/project"
	"github.com/stanstork/workforce-api/internal/repository"
	"github.com/stanstork/workforce-api/internal/reward"
	"github.com/stanstork/workforce-api/internal/routes"
	"github.com/stanstork/workforce-api/internal/temporal"
	"github.com/stanstork/workforce-api/internal/temporal/activities"
	"github.com/stanstork/workforce-api/internal/temporal/workflows"
	"github.com/stanstork/workforce-api/internal/timesheet"

	_ "github.com/lib/pq" // PostgreSQL driver
	tc "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

type services struct {
	notifications notification.Service
	invitations   invitation.Service
	payments      payment.Service
	expenses      expense.Service
	workHours     timesheet.Service
	projects      project.Service
	rewards       reward.Service
	backups       backup.Service
}

type application struct {
	config         *config.Config
	db             *sql.DB
	temporalClient tc.Client
	users          repository.UserRepository
	services       services
	logger         zerolog.Logger
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	gooseAdapter := migration.NewGooseAdapter(logger)
	goose.SetLogger(gooseAdapter)

	// Load configuration.
	cfg := config.Load()
	location, err := time.LoadLocation(cfg.Temporal.TimeZone)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid time zone")
	}

	// Initialize database connection.
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}

	// Run database migrations.
	migration.RunMigrations(cfg.DatabaseURL, logger)

	// Initialize Temporal client.
	temporalClient, err := tc.Dial(tc.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    temporal.NewSDKLogger(logger),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Unable to create Temporal client")
	}
	defer temporalClient.Close()

	app := &application{
		config:         cfg,
		db:             db,
		temporalClient: temporalClient,
		users:          repository.NewUserRepository(db),
		logger:         logger,
	}

	ctx := context.Background()
	objectStore, closeStore := app.openObjectStore(ctx)
	defer closeStore()
	app.services = app.initServices(objectStore, location)

	// Start the Temporal worker in a separate goroutine.
	temporalWorker := app.startTemporalWorker(logger)
	if cfg.Temporal.Schedules {
		if err := temporal.EnsureSchedules(ctx, temporalClient.ScheduleClient(), cfg.Temporal.TaskQueue, cfg.Temporal.TimeZone, logger); err != nil {
			logger.Error().Err(err).Msg("Some maintenance schedules could not be registered")
		}
	}

	// Initialize the HTTP router and middleware.
	router := app.initRouter(logger)
	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins(cfg.AllowedOrigins),
		h.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		h.AllowCredentials(),
	)(loggedRouter)

	// Start the HTTP server and handle graceful shutdown.
	app.startServer(corsHandler, temporalWorker, logger)

	logger.Info().Msg("Application terminated.")
}

// openObjectStore connects to the backup bucket. Without a bucket, backups are refused.
func (app *application) openObjectStore(ctx context.Context) (backup.ObjectStore, func()) {
	cfg := app.config.Backup
	if cfg.Bucket == "" {
		app.logger.Warn().Msg("backup.bucket is not set; backups are disabled")
		return backup.UnconfiguredStore{}, func() {}
	}

	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		app.logger.Fatal().Err(err).Msg("Failed to create storage client")
	}
	return backup.NewGCSStore(client, cfg.Bucket, app.logger), func() { client.Close() }
}

func (app *application) initServices(store backup.ObjectStore, location *time.Location) services {
	logger := app.logger
	projectRepo := repository.NewProjectRepository(app.db)

	var notifiers []notification.Notifier
	if app.config.Email.Enabled {
		mailer, err := notification.NewSMTPMailer(app.config.Email)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure mailer")
		}
		emailNotifier, err := notification.NewEmailNotifier(app.config.Email, mailer, app.users, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure email notifier")
		}
		notifiers = append(notifiers, emailNotifier)
	}
	notifications := notification.NewService(
		repository.NewNotificationRepository(app.db),
		app.users,
		notification.Options{Retention: app.config.Notifications.Retention},
		logger,
		notifiers...,
	)

	return services{
		notifications: notifications,
		invitations:   invitation.NewService(repository.NewInvitationRepository(app.db), projectRepo, app.users, notifications, logger),
		payments:      payment.NewService(repository.NewPaymentRepository(app.db), app.users, notifications, logger),
		expenses:      expense.NewService(repository.NewExpenseRepository(app.db), projectRepo, notifications, logger),
		workHours:     timesheet.NewService(repository.NewWorkHoursRepository(app.db), projectRepo, notifications, logger),
		projects:      project.NewService(projectRepo, notifications, logger),
		rewards:       reward.NewService(repository.NewRewardRepository(app.db), app.users, notifications, logger),
		backups: backup.NewService(store, backup.NewSQLExporter(app.db), backup.Config{
			Prefix:     app.config.Backup.Prefix,
			Tables:     app.config.Backup.Tables,
			Window:     app.config.Backup.Window,
			MaxBackups: app.config.Backup.MaxBackups,
			Location:   location,
		}, logger),
	}
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter(logger zerolog.Logger) http.Handler {
	svc := app.services
	return routes.NewRouter(routes.Handlers{
		Auth:          handlers.NewAuthHandler(app.users, app.config.JWTSecret, logger),
		Users:         handlers.NewUserHandler(app.users, logger),
		Projects:      handlers.NewProjectHandler(svc.projects, logger),
		Invitations:   handlers.NewInvitationHandler(svc.invitations, logger),
		Payments:      handlers.NewPaymentHandler(svc.payments, logger),
		Expenses:      handlers.NewExpenseHandler(svc.expenses, logger),
		WorkHours:     handlers.NewWorkHoursHandler(svc.workHours, logger),
		Notifications: handlers.NewNotificationHandler(svc.notifications, logger),
		Rewards:       handlers.NewRewardHandler(svc.rewards, logger),
		Backups:       handlers.NewBackupHandler(svc.backups, logger),
		Jobs:          handlers.NewJobHandler(app.temporalClient, app.config.Temporal.TaskQueue, logger),
		Ready:         handlers.ReadinessCheck(app.db),
	})
}

func (app *application) startTemporalWorker(logger zerolog.Logger) worker.Worker {
	activityImpl := &activities.Activities{
		Projects:      app.services.projects,
		Invitations:   app.services.invitations,
		Notifications: app.services.notifications,
		Backups:       app.services.backups,
	}

	w := worker.New(app.temporalClient, app.config.Temporal.TaskQueue, worker.Options{})

	w.RegisterWorkflowWithOptions(workflows.MaintenanceWorkflow, workflow.RegisterOptions{Name: temporal.MaintenanceWorkflowName})
	w.RegisterActivity(activityImpl)

	// Start the worker in a goroutine so it doesn't block.
	go func() {
		logger.Info().Str("task_queue", app.config.Temporal.TaskQueue).Msg("Starting Temporal worker...")
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("Unable to start worker")
		}
	}()

	return w
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler, temporalWorker worker.Worker, logger zerolog.Logger) {
	server := &http.Server{
		Addr:              ":" + app.config.ServerPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	// Gracefully shut down the HTTP server.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}

	// Stop the Temporal worker.
	logger.Info().Msg("Stopping Temporal worker...")
	temporalWorker.Stop()
	logger.Info().Msg("Temporal worker stopped.")
}

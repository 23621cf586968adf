package handlers

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stanstork/workforce-api/internal/models"
	"github.com/stanstork/workforce-api/internal/repository"
)

type UserHandler struct {
	users  repository.UserRepository
	logger zerolog.Logger
}

func NewUserHandler(users repository.UserRepository, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger.With().Str("handler", "user").Logger(),
	}
}

// CreateUser registers or refreshes the profile of an identity-provider account.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
		Role  string `json:"role"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	payload.ID = strings.TrimSpace(payload.ID)
	payload.Email = strings.TrimSpace(strings.ToLower(payload.Email))
	if payload.ID == "" || payload.Email == "" {
		http.Error(w, "id and email are required", http.StatusBadRequest)
		return
	}

	user, err := h.users.CreateUser(r.Context(), models.User{
		ID:    payload.ID,
		Email: payload.Email,
		Name:  strings.TrimSpace(payload.Name),
		Role:  models.ParseRole(payload.Role),
	})
	if err != nil {
		writeError(w, h.logger, err, "create user")
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	var role models.UserRole
	if raw := strings.TrimSpace(r.URL.Query().Get("role")); raw != "" {
		role = models.UserRole(strings.ToLower(raw))
		if !models.IsValidRole(role) {
			http.Error(w, "Unknown role", http.StatusBadRequest)
			return
		}
	}

	users, err := h.users.ListUsers(r.Context(), role)
	if err != nil {
		writeError(w, h.logger, err, "list users")
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

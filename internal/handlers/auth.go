package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"
	"github.com/stanstork/workforce-api/internal/authz"
	"github.com/stanstork/workforce-api/internal/models"
	"github.com/stanstork/workforce-api/internal/repository"
)

type AuthHandler struct {
	users     repository.UserRepository
	jwtSecret string
	logger    zerolog.Logger
}

func NewAuthHandler(users repository.UserRepository, jwtSecret string, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		users:     users,
		jwtSecret: jwtSecret,
		logger:    logger.With().Str("handler", "auth").Logger(),
	}
}

// JWTMiddleware verifies the bearer token issued by the identity provider and stores the caller on the context.
func (h *AuthHandler) JWTMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization format", http.StatusUnauthorized)
			return
		}
		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(h.jwtSecret), nil
		})
		if err != nil || !token.Valid {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !claims.VerifyExpiresAt(time.Now().Unix(), true) {
			http.Error(w, "Token expired", http.StatusUnauthorized)
			return
		}
		userID, _ := claims["sub"].(string)
		if userID == "" {
			http.Error(w, "Missing subject claim", http.StatusUnauthorized)
			return
		}

		ctx := authz.WithIdentity(r.Context(), userID, roleFromClaims(claims))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// roleFromClaims reads the role claim, accepting the boolean admin custom claim as well. Unknown roles become worker.
func roleFromClaims(claims jwt.MapClaims) models.UserRole {
	if admin, ok := claims["admin"].(bool); ok && admin {
		return models.RoleAdmin
	}
	raw, _ := claims["role"].(string)
	return models.ParseRole(raw)
}

// Me returns the caller's profile along with the role the token granted.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	role, _ := authz.RoleFromRequest(r)

	user, err := h.users.GetUserByID(r.Context(), uid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "User profile not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("user_id", uid).Msg("failed to load user")
		http.Error(w, "Failed to load user", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":       user,
		"token_role": role,
	})
}

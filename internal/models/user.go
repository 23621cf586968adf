package models

import (
	"strings"
	"time"
)

type UserRole string

const (
	RoleWorker UserRole = "worker"
	RoleAdmin  UserRole = "admin"
)

var roleRank = map[UserRole]int{
	RoleWorker: 1,
	RoleAdmin:  2,
}

// User is the profile record for an identity-provider account.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      UserRole  `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func IsValidRole(role UserRole) bool {
	_, ok := roleRank[role]
	return ok
}

// ParseRole normalizes a raw role string, falling back to worker.
func ParseRole(raw string) UserRole {
	role := UserRole(strings.ToLower(strings.TrimSpace(raw)))
	if !IsValidRole(role) {
		return RoleWorker
	}
	return role
}

// HasAtLeast reports whether role ranks at or above required.
func HasAtLeast(role, required UserRole) bool {
	return roleRank[role] >= roleRank[required] && IsValidRole(role)
}

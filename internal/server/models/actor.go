// Package models defines the entities persisted by the record store.
package models

import (
	"strings"
	"time"
)

type Role string

const (
	RoleInstitution Role = "institution"
	RoleHolder      Role = "holder"
	RoleVerifier    Role = "verifier"
)

// ParseRole accepts canonical role names and the legacy aliases
// university, student and employer. An empty string means holder.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "holder", "student":
		return RoleHolder, true
	case "institution", "university":
		return RoleInstitution, true
	case "verifier", "employer":
		return RoleVerifier, true
	default:
		return "", false
	}
}

type Actor struct {
	ID             int64
	Username       string
	Email          string
	PasswordHash   string
	Role           Role
	DomainVerified bool
	CreatedAt      time.Time
}

package domain

import (
	"net/mail"
	"regexp"
	"strings"
	"time"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleSeller   Role = "seller"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

type UserStatus string

const (
	UserActive UserStatus = "active"
	UserBanned UserStatus = "banned"
)

// Toggled flips between active and banned.
func (s UserStatus) Toggled() UserStatus {
	if s == UserBanned {
		return UserActive
	}
	return UserBanned
}

type User struct {
	ID            string
	Email         string
	Name          string
	PasswordHash  string
	Role          Role
	Status        UserStatus
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (u User) Banned() bool {
	return u.Status == UserBanned
}

type UserFilter struct {
	Role   Role
	Status UserStatus
	Query  string
	Limit  int
}

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return ErrInvalidID
	}
	return nil
}

func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

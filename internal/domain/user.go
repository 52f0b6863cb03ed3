package domain

import (
	"strings"
	"time"
)

// User is the domain model for an account. Email is the primary login
// identifier; phone and username are optional alternates. Status false
// means the account was soft-deleted and must not appear in active
// listings, though it stays resolvable by identifier.
type User struct {
	ID           string
	FirstName    *string
	LastName     *string
	Phone        *string
	Email        string
	Username     *string
	PasswordHash string
	Status       bool
	IsStaff      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName joins the optional name parts.
func (u *User) FullName() string {
	first := ""
	if u.FirstName != nil {
		first = *u.FirstName
	}
	last := ""
	if u.LastName != nil {
		last = *u.LastName
	}
	return strings.TrimSpace(first + " " + last)
}

// PhoneValue returns the phone or empty string.
func (u *User) PhoneValue() string {
	if u.Phone == nil {
		return ""
	}
	return *u.Phone
}

// UsernameValue returns the username or empty string.
func (u *User) UsernameValue() string {
	if u.Username == nil {
		return ""
	}
	return *u.Username
}

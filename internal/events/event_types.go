package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered  EventType = "user_registered"
	EventPasswordChanged EventType = "password_changed"
	EventPasswordReset   EventType = "password_reset"
	EventAccountDeleted  EventType = "account_deleted"
)

// Event represents an account lifecycle event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
}

// PasswordChangedPayload payload.
type PasswordChangedPayload struct {
	Email string `json:"email"`
}

// AccountDeletedPayload payload.
type AccountDeletedPayload struct {
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
}

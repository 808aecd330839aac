package models

import "time"

// SessionStatus represents the current state of a browser session
type SessionStatus string

const (
	StatusRunning   SessionStatus = "RUNNING"
	StatusCompleted SessionStatus = "COMPLETED"
	StatusError     SessionStatus = "ERROR"
)

// Session describes one browser instance. Exactly one session exists per
// in-flight /ask request; it is opened at request start and closed at
// request end on every outcome.
type Session struct {
	ID         string        `json:"id"`
	Status     SessionStatus `json:"status"`
	Mode       string        `json:"mode"`
	StartedAt  time.Time     `json:"startedAt"`
	EndedAt    *time.Time    `json:"endedAt,omitempty"`
	ConnectURL string        `json:"-"`
}

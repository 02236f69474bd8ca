package controller

import "time"

const DefaultNotificationTTL = 3 * time.Second

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
)

// Notification is a transient message. It is visible until ExpiresAt; a
// newer notification replaces it.
type Notification struct {
	Message   string
	Level     Level
	ExpiresAt time.Time
}

// Empty reports whether the action produced no message.
func (n Notification) Empty() bool { return n.Message == "" }

func (n Notification) ActiveAt(now time.Time) bool {
	return !n.Empty() && now.Before(n.ExpiresAt)
}

// Remaining is the display time left at now, never negative.
func (n Notification) Remaining(now time.Time) time.Duration {
	if d := n.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

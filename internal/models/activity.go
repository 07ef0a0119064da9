package models

import "time"

// Duration bounds for a single logged activity, in minutes.
const (
	MinDurationMinutes = 1
	MaxDurationMinutes = 1440
)

// MaxNoteLength caps the free-text note on a log entry.
const MaxNoteLength = 200

// ActivityCategory is catalog reference data seeded at startup.
type ActivityCategory struct {
	ID              int64
	Name            string
	Icon            string
	DefaultDuration int // minutes
	Color           string
	CreatedAt       time.Time
}

// ActivityLog is one immutable ledger entry. The category name/icon/color are
// frozen at log time so later catalog edits never rewrite history.
type ActivityLog struct {
	ID              int64
	UserID          int64
	FamilyID        int64
	CategoryID      int64
	CategoryName    string
	CategoryIcon    string
	CategoryColor   string
	CustomNote      string
	DurationMinutes int
	LoggedAt        time.Time
	CreatedAt       time.Time
}

// ValidDuration reports whether minutes is within the accepted range
func ValidDuration(minutes int) bool {
	return minutes >= MinDurationMinutes && minutes <= MaxDurationMinutes
}

// CategoryRollup is the per-user per-category aggregate over a time window.
// Grouping uses the snapshot fields stored on each log, not the live catalog.
type CategoryRollup struct {
	UserID        int64
	CategoryName  string
	CategoryIcon  string
	CategoryColor string
	TotalMinutes  int
	LogCount      int
}

// UserRollup is the per-user aggregate over a time window
type UserRollup struct {
	UserID       int64
	TotalMinutes int
	LogCount     int
}

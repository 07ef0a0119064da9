package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"choreboard/internal/models"
)

var (
	inviteCodeRegex = regexp.MustCompile(`^[A-Z0-9]{1,16}$`)
	emailRegex      = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateFamilyName checks a family name (1-64 chars after trimming)
func ValidateFamilyName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "name", Message: "family name is required"}
	}
	if utf8.RuneCountInString(name) > 64 {
		return ValidationError{Field: "name", Message: "family name must be at most 64 characters"}
	}
	return nil
}

// ValidateDisplayName checks a member display name (1-64 chars after trimming)
func ValidateDisplayName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "displayName", Message: "display name is required"}
	}
	if utf8.RuneCountInString(name) > 64 {
		return ValidationError{Field: "displayName", Message: "display name must be at most 64 characters"}
	}
	return nil
}

// ValidateRole checks a family role against the accepted set
func ValidateRole(role string) error {
	if !models.ValidRole(role) {
		return ValidationError{Field: "role", Message: "role must be one of father, mother, kid"}
	}
	return nil
}

// NormalizeInviteCode trims and uppercases an invite code for lookup
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateInviteCode checks the shape of a normalized invite code
func ValidateInviteCode(code string) error {
	if code == "" {
		return ValidationError{Field: "inviteCode", Message: "invite code is required"}
	}
	if !inviteCodeRegex.MatchString(code) {
		return ValidationError{Field: "inviteCode", Message: "invite code must be 1-16 uppercase letters or digits"}
	}
	return nil
}

// ValidateDuration checks the logged duration in minutes
func ValidateDuration(minutes int) error {
	if !models.ValidDuration(minutes) {
		return ValidationError{
			Field:   "durationMinutes",
			Message: fmt.Sprintf("duration must be between %d and %d minutes", models.MinDurationMinutes, models.MaxDurationMinutes),
		}
	}
	return nil
}

// ValidateNote checks the optional free-text note. The bound counts runes,
// not bytes, so emoji do not eat the budget four at a time.
func ValidateNote(note string) error {
	if utf8.RuneCountInString(note) > models.MaxNoteLength {
		return ValidationError{
			Field:   "customNote",
			Message: fmt.Sprintf("note must be at most %d characters", models.MaxNoteLength),
		}
	}
	return nil
}

// ValidateEmail checks an invite recipient address
func ValidateEmail(email string) error {
	if email == "" {
		return ValidationError{Field: "email", Message: "email address is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "email address is not valid"}
	}
	return nil
}

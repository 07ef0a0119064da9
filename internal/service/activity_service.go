package service

import (
	"strings"
	"time"

	"choreboard/internal/models"
	"choreboard/internal/repository"
	"choreboard/internal/validation"
)

// History query limits. Callers asking for more than MaxQueryLimit entries
// get a validation error, not a silent clamp.
const (
	DefaultQueryLimit = 50
	MaxQueryLimit     = 100
)

// LogInput is one ledger entry as submitted by a client. The category fields
// are the snapshot frozen onto the entry.
type LogInput struct {
	CategoryID      int64
	CategoryName    string
	CategoryIcon    string
	CategoryColor   string
	DurationMinutes int
	CustomNote      string
	LoggedAt        time.Time
}

// HistoryQuery narrows a ledger read. UserID nil means all family members;
// Limit nil means the default page size, while an explicit out-of-range
// value is rejected.
type HistoryQuery struct {
	UserID *int64
	From   *time.Time
	To     *time.Time
	Limit  *int
	Offset int
}

// ActivityService owns the activity ledger and the category catalog
type ActivityService struct {
	activities *repository.ActivityRepository
}

// NewActivityService creates a new activity service
func NewActivityService(activities *repository.ActivityRepository) *ActivityService {
	return &ActivityService{activities: activities}
}

// ListCategories returns the category catalog
func (s *ActivityService) ListCategories() ([]models.ActivityCategory, error) {
	categories, err := s.activities.ListCategories()
	if err != nil {
		return nil, ErrUnavailable
	}
	return categories, nil
}

// Log appends an entry to the caller's family ledger
func (s *ActivityService) Log(user *models.User, input LogInput) (*models.ActivityLog, error) {
	if !user.HasFamily() {
		return nil, ErrForbidden
	}
	if err := validation.ValidateDuration(input.DurationMinutes); err != nil {
		return nil, err
	}
	if err := validation.ValidateNote(input.CustomNote); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.CategoryName) == "" {
		return nil, validation.ValidationError{Field: "categoryName", Message: "category name is required"}
	}

	loggedAt := input.LoggedAt
	if loggedAt.IsZero() {
		loggedAt = time.Now()
	}

	entry := &models.ActivityLog{
		UserID:          user.ID,
		FamilyID:        *user.FamilyID,
		CategoryID:      input.CategoryID,
		CategoryName:    input.CategoryName,
		CategoryIcon:    input.CategoryIcon,
		CategoryColor:   input.CategoryColor,
		CustomNote:      input.CustomNote,
		DurationMinutes: input.DurationMinutes,
		LoggedAt:        loggedAt.UTC(),
	}

	id, err := s.activities.InsertLog(entry)
	if err != nil {
		return nil, ErrUnavailable
	}
	entry.ID = id
	entry.CreatedAt = time.Now().UTC()
	return entry, nil
}

// History reads the caller's family ledger, newest first
func (s *ActivityService) History(user *models.User, q HistoryQuery) ([]models.ActivityLog, error) {
	if !user.HasFamily() {
		return nil, ErrForbidden
	}
	limit := DefaultQueryLimit
	if q.Limit != nil {
		limit = *q.Limit
	}
	if limit < 1 || limit > MaxQueryLimit {
		return nil, validation.ValidationError{Field: "limit", Message: "limit must be between 1 and 100"}
	}
	if q.Offset < 0 {
		return nil, validation.ValidationError{Field: "offset", Message: "offset must not be negative"}
	}

	logs, err := s.activities.QueryLogs(repository.LogFilter{
		FamilyID: *user.FamilyID,
		UserID:   q.UserID,
		From:     q.From,
		To:       q.To,
		Limit:    limit,
		Offset:   q.Offset,
	})
	if err != nil {
		return nil, ErrUnavailable
	}
	return logs, nil
}

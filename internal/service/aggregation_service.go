package service

import (
	"sort"
	"time"

	"choreboard/internal/models"
	"choreboard/internal/repository"
	"choreboard/internal/validation"
)

// Aggregation periods accepted by the dashboard.
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
)

// MaxStatsDays caps the trailing window for stats queries.
const MaxStatsDays = 365

// DefaultStatsDays is used when a stats query does not name a window.
const DefaultStatsDays = 30

// Dashboard is the aggregate view of one family over one calendar window
type Dashboard struct {
	Period     string
	From       time.Time
	To         time.Time
	ByUser     []models.UserRollup
	ByCategory []models.CategoryRollup
	Members    []models.Member
}

// Stats is the aggregate view over a trailing window of whole days
type Stats struct {
	Days       int
	From       time.Time
	To         time.Time
	ByUser     []models.UserRollup
	ByCategory []models.CategoryRollup
	Members    []models.Member
}

// AggregationService computes rollups and leaderboards from the ledger.
// All window math is in UTC.
type AggregationService struct {
	activities *repository.ActivityRepository
	families   *repository.FamilyRepository
}

// NewAggregationService creates a new aggregation service
func NewAggregationService(activities *repository.ActivityRepository, families *repository.FamilyRepository) *AggregationService {
	return &AggregationService{activities: activities, families: families}
}

// ResolveWindow maps a period and reference instant to a half-open UTC
// window [from, to). Weekly windows start on Monday.
func ResolveWindow(period string, ref time.Time) (time.Time, time.Time, error) {
	ref = ref.UTC()
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)

	switch period {
	case PeriodDaily:
		return day, day.AddDate(0, 0, 1), nil
	case PeriodWeekly:
		// time.Weekday counts Sunday as 0; shift so Monday opens the week
		offset := (int(day.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7), nil
	case PeriodMonthly:
		start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0), nil
	default:
		return time.Time{}, time.Time{}, validation.ValidationError{
			Field:   "period",
			Message: "period must be one of daily, weekly, monthly",
		}
	}
}

// GetDashboard aggregates the caller's family ledger over the calendar
// window containing ref
func (s *AggregationService) GetDashboard(user *models.User, period string, ref time.Time) (*Dashboard, error) {
	if !user.HasFamily() {
		return nil, ErrForbidden
	}

	from, to, err := ResolveWindow(period, ref)
	if err != nil {
		return nil, err
	}

	byUser, byCategory, members, err := s.rollup(*user.FamilyID, from, to)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Period:     period,
		From:       from,
		To:         to,
		ByUser:     byUser,
		ByCategory: byCategory,
		Members:    members,
	}, nil
}

// GetStats aggregates over the trailing window of whole UTC days ending
// today, inclusive. A nil days means the default window; days=1 means today
// only.
func (s *AggregationService) GetStats(user *models.User, days *int, now time.Time) (*Stats, error) {
	if !user.HasFamily() {
		return nil, ErrForbidden
	}
	window := DefaultStatsDays
	if days != nil {
		window = *days
	}
	if window < 1 || window > MaxStatsDays {
		return nil, validation.ValidationError{Field: "days", Message: "days must be between 1 and 365"}
	}

	now = now.UTC()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	from := to.AddDate(0, 0, -window)

	byUser, byCategory, members, err := s.rollup(*user.FamilyID, from, to)
	if err != nil {
		return nil, err
	}

	return &Stats{
		Days:       window,
		From:       from,
		To:         to,
		ByUser:     byUser,
		ByCategory: byCategory,
		Members:    members,
	}, nil
}

func (s *AggregationService) rollup(familyID int64, from, to time.Time) ([]models.UserRollup, []models.CategoryRollup, []models.Member, error) {
	byUser, err := s.activities.RollupByUser(familyID, from, to)
	if err != nil {
		return nil, nil, nil, ErrUnavailable
	}
	byCategory, err := s.activities.RollupByUserAndCategory(familyID, from, to)
	if err != nil {
		return nil, nil, nil, ErrUnavailable
	}
	members, err := s.families.GetFamilyMembers(familyID)
	if err != nil {
		return nil, nil, nil, ErrUnavailable
	}
	return RankTotals(byUser), byCategory, members, nil
}

// RankTotals orders user rollups for the leaderboard: most minutes first,
// ties broken by user ID so the ordering is stable across requests
func RankTotals(rollups []models.UserRollup) []models.UserRollup {
	ranked := make([]models.UserRollup, len(rollups))
	copy(ranked, rollups)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].TotalMinutes != ranked[j].TotalMinutes {
			return ranked[i].TotalMinutes > ranked[j].TotalMinutes
		}
		return ranked[i].UserID < ranked[j].UserID
	})
	return ranked
}

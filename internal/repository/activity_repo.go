package repository

import (
	"fmt"
	"strings"
	"time"

	"choreboard/internal/database"
	"choreboard/internal/models"
)

// ActivityRepository handles database operations for the activity ledger and
// the category catalog
type ActivityRepository struct {
	db *database.DB
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db *database.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// ListCategories returns the full category catalog
func (r *ActivityRepository) ListCategories() ([]models.ActivityCategory, error) {
	query := `
		SELECT id, name, icon, default_duration, color, created_at
		FROM activity_categories
		ORDER BY id
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []models.ActivityCategory
	for rows.Next() {
		var c models.ActivityCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.DefaultDuration, &c.Color, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// InsertLog appends one entry to the ledger. The category snapshot fields on
// the log are stored as given; nothing ever updates them afterwards.
func (r *ActivityRepository) InsertLog(log *models.ActivityLog) (int64, error) {
	query := `
		INSERT INTO activity_logs
			(user_id, family_id, category_id, category_name, category_icon, category_color,
			 custom_note, duration_minutes, logged_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query,
		log.UserID, log.FamilyID, log.CategoryID,
		log.CategoryName, log.CategoryIcon, log.CategoryColor,
		log.CustomNote, log.DurationMinutes, log.LoggedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert activity log: %w", err)
	}
	return id, nil
}

// LogFilter narrows a ledger query. FamilyID is mandatory; the rest are
// optional.
type LogFilter struct {
	FamilyID int64
	UserID   *int64
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

// QueryLogs returns ledger entries newest first
func (r *ActivityRepository) QueryLogs(filter LogFilter) ([]models.ActivityLog, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, user_id, family_id, category_id, category_name, category_icon,
		       category_color, COALESCE(custom_note, ''), duration_minutes, logged_at, created_at
		FROM activity_logs
		WHERE family_id = ?`)
	args := []interface{}{filter.FamilyID}

	if filter.UserID != nil {
		sb.WriteString(" AND user_id = ?")
		args = append(args, *filter.UserID)
	}
	if filter.From != nil {
		sb.WriteString(" AND logged_at >= ?")
		args = append(args, filter.From.UTC())
	}
	if filter.To != nil {
		sb.WriteString(" AND logged_at <= ?")
		args = append(args, filter.To.UTC())
	}

	sb.WriteString(" ORDER BY logged_at DESC, id DESC LIMIT ? OFFSET ?")
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity logs: %w", err)
	}
	defer rows.Close()

	var logs []models.ActivityLog
	for rows.Next() {
		var l models.ActivityLog
		err := rows.Scan(&l.ID, &l.UserID, &l.FamilyID, &l.CategoryID,
			&l.CategoryName, &l.CategoryIcon, &l.CategoryColor,
			&l.CustomNote, &l.DurationMinutes, &l.LoggedAt, &l.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// RollupByUserAndCategory aggregates the ledger per user and snapshot
// category over [from, to)
func (r *ActivityRepository) RollupByUserAndCategory(familyID int64, from, to time.Time) ([]models.CategoryRollup, error) {
	query := `
		SELECT user_id, category_name, category_icon, category_color,
		       SUM(duration_minutes), COUNT(*)
		FROM activity_logs
		WHERE family_id = ? AND logged_at >= ? AND logged_at < ?
		GROUP BY user_id, category_name, category_icon, category_color
		ORDER BY user_id, category_name
	`
	rows, err := r.db.Query(query, familyID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to roll up by category: %w", err)
	}
	defer rows.Close()

	var rollups []models.CategoryRollup
	for rows.Next() {
		var ru models.CategoryRollup
		err := rows.Scan(&ru.UserID, &ru.CategoryName, &ru.CategoryIcon,
			&ru.CategoryColor, &ru.TotalMinutes, &ru.LogCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category rollup: %w", err)
		}
		rollups = append(rollups, ru)
	}
	return rollups, rows.Err()
}

// RollupByUser aggregates the ledger per user over [from, to)
func (r *ActivityRepository) RollupByUser(familyID int64, from, to time.Time) ([]models.UserRollup, error) {
	query := `
		SELECT user_id, SUM(duration_minutes), COUNT(*)
		FROM activity_logs
		WHERE family_id = ? AND logged_at >= ? AND logged_at < ?
		GROUP BY user_id
		ORDER BY user_id
	`
	rows, err := r.db.Query(query, familyID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to roll up by user: %w", err)
	}
	defer rows.Close()

	var rollups []models.UserRollup
	for rows.Next() {
		var ru models.UserRollup
		if err := rows.Scan(&ru.UserID, &ru.TotalMinutes, &ru.LogCount); err != nil {
			return nil, fmt.Errorf("failed to scan user rollup: %w", err)
		}
		rollups = append(rollups, ru)
	}
	return rollups, rows.Err()
}

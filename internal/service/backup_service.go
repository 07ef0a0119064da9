package service

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"choreboard/internal/database"
)

// BackupData represents the complete database backup structure. Sessions are
// deliberately excluded: they are ephemeral credentials.
type BackupData struct {
	Version      string           `json:"version"`
	ExportedAt   time.Time        `json:"exported_at"`
	DatabaseType string           `json:"database_type"`
	Users        []UserBackup     `json:"users"`
	Families     []FamilyBackup   `json:"families"`
	Categories   []CategoryBackup `json:"categories"`
	ActivityLogs []LogBackup      `json:"activity_logs"`
}

// UserBackup represents a user record for backup
type UserBackup struct {
	ID           int64     `json:"id"`
	OpenID       string    `json:"open_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	FamilyRole   string    `json:"family_role"`
	FamilyID     *int64    `json:"family_id"`
	AccountKind  string    `json:"account_kind"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	LastSignedIn time.Time `json:"last_signed_in"`
}

// FamilyBackup represents a family record for backup
type FamilyBackup struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	InviteCode string    `json:"invite_code"`
	CreatedBy  int64     `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CategoryBackup represents a catalog category for backup
type CategoryBackup struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Icon            string    `json:"icon"`
	DefaultDuration int       `json:"default_duration"`
	Color           string    `json:"color"`
	CreatedAt       time.Time `json:"created_at"`
}

// LogBackup represents one ledger entry for backup
type LogBackup struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	FamilyID        int64     `json:"family_id"`
	CategoryID      int64     `json:"category_id"`
	CategoryName    string    `json:"category_name"`
	CategoryIcon    string    `json:"category_icon"`
	CategoryColor   string    `json:"category_color"`
	CustomNote      string    `json:"custom_note"`
	DurationMinutes int       `json:"duration_minutes"`
	LoggedAt        time.Time `json:"logged_at"`
	CreatedAt       time.Time `json:"created_at"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db *database.DB
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{db: db}
}

// Export creates a complete backup of the database to a file
func (s *BackupService) Export(outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportToWriter(file); err != nil {
		return err
	}

	log.Printf("Database exported successfully to %s", outputPath)
	return nil
}

// ExportToWriter exports the database to an io.Writer
func (s *BackupService) ExportToWriter(w io.Writer) error {
	backup := &BackupData{
		Version:      "1.0",
		ExportedAt:   time.Now().UTC(),
		DatabaseType: "universal",
	}

	if err := s.exportFamilies(backup); err != nil {
		return fmt.Errorf("failed to export families: %w", err)
	}
	if err := s.exportUsers(backup); err != nil {
		return fmt.Errorf("failed to export users: %w", err)
	}
	if err := s.exportCategories(backup); err != nil {
		return fmt.Errorf("failed to export categories: %w", err)
	}
	if err := s.exportLogs(backup); err != nil {
		return fmt.Errorf("failed to export activity logs: %w", err)
	}

	log.Printf("Exported: %d users, %d families, %d categories, %d activity logs",
		len(backup.Users), len(backup.Families), len(backup.Categories), len(backup.ActivityLogs))

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(backup)
}

// Import restores a database from a backup file
func (s *BackupService) Import(inputPath string) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(file)
}

// ImportFromReader restores a database from a backup reader
func (s *BackupService) ImportFromReader(reader io.Reader) error {
	var backup BackupData
	decoder := json.NewDecoder(reader)
	if err := decoder.Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}

	log.Printf("Backup version: %s, exported at: %s", backup.Version, backup.ExportedAt)

	// Import in order of dependencies. Families come before users because
	// users reference their family, and the family's created_by reference is
	// not enforced at the schema level.
	if err := s.importFamilies(backup.Families); err != nil {
		return fmt.Errorf("failed to import families: %w", err)
	}
	if err := s.importUsers(backup.Users); err != nil {
		return fmt.Errorf("failed to import users: %w", err)
	}
	if err := s.importCategories(backup.Categories); err != nil {
		return fmt.Errorf("failed to import categories: %w", err)
	}
	if err := s.importLogs(backup.ActivityLogs); err != nil {
		return fmt.Errorf("failed to import activity logs: %w", err)
	}

	log.Println("Database import completed successfully")
	return nil
}

func (s *BackupService) exportUsers(backup *BackupData) error {
	query := `SELECT id, COALESCE(open_id, ''), COALESCE(name, ''), COALESCE(email, ''),
		COALESCE(display_name, ''), COALESCE(family_role, ''), family_id, account_kind,
		created_at, updated_at, last_signed_in FROM users ORDER BY id`
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var u UserBackup
		var familyID sql.NullInt64
		if err := rows.Scan(&u.ID, &u.OpenID, &u.Name, &u.Email, &u.DisplayName, &u.FamilyRole,
			&familyID, &u.AccountKind, &u.CreatedAt, &u.UpdatedAt, &u.LastSignedIn); err != nil {
			return err
		}
		if familyID.Valid {
			u.FamilyID = &familyID.Int64
		}
		backup.Users = append(backup.Users, u)
	}
	return rows.Err()
}

func (s *BackupService) exportFamilies(backup *BackupData) error {
	query := "SELECT id, name, invite_code, created_by, created_at, updated_at FROM families ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var f FamilyBackup
		if err := rows.Scan(&f.ID, &f.Name, &f.InviteCode, &f.CreatedBy, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return err
		}
		backup.Families = append(backup.Families, f)
	}
	return rows.Err()
}

func (s *BackupService) exportCategories(backup *BackupData) error {
	query := "SELECT id, name, icon, default_duration, color, created_at FROM activity_categories ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c CategoryBackup
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.DefaultDuration, &c.Color, &c.CreatedAt); err != nil {
			return err
		}
		backup.Categories = append(backup.Categories, c)
	}
	return rows.Err()
}

func (s *BackupService) exportLogs(backup *BackupData) error {
	query := `SELECT id, user_id, family_id, category_id, category_name, category_icon,
		category_color, COALESCE(custom_note, ''), duration_minutes, logged_at, created_at
		FROM activity_logs ORDER BY id`
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var l LogBackup
		if err := rows.Scan(&l.ID, &l.UserID, &l.FamilyID, &l.CategoryID, &l.CategoryName,
			&l.CategoryIcon, &l.CategoryColor, &l.CustomNote, &l.DurationMinutes,
			&l.LoggedAt, &l.CreatedAt); err != nil {
			return err
		}
		backup.ActivityLogs = append(backup.ActivityLogs, l)
	}
	return rows.Err()
}

func (s *BackupService) importUsers(users []UserBackup) error {
	log.Printf("Importing %d users...", len(users))
	for _, u := range users {
		query := `INSERT INTO users (id, open_id, name, email, display_name, family_role,
			family_id, account_kind, created_at, updated_at, last_signed_in)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		var familyID interface{}
		if u.FamilyID != nil {
			familyID = *u.FamilyID
		}
		_, err := s.db.Exec(query, u.ID, nullIfEmpty(u.OpenID), nullIfEmpty(u.Name),
			nullIfEmpty(u.Email), nullIfEmpty(u.DisplayName), nullIfEmpty(u.FamilyRole),
			familyID, u.AccountKind, u.CreatedAt, u.UpdatedAt, u.LastSignedIn)
		if err != nil {
			return fmt.Errorf("failed to import user %d: %w", u.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importFamilies(families []FamilyBackup) error {
	log.Printf("Importing %d families...", len(families))
	for _, f := range families {
		query := "INSERT INTO families (id, name, invite_code, created_by, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)"
		_, err := s.db.Exec(query, f.ID, f.Name, f.InviteCode, f.CreatedBy, f.CreatedAt, f.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to import family %d: %w", f.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importCategories(categories []CategoryBackup) error {
	log.Printf("Importing %d categories...", len(categories))
	for _, c := range categories {
		query := "INSERT INTO activity_categories (id, name, icon, default_duration, color, created_at) VALUES (?, ?, ?, ?, ?, ?)"
		_, err := s.db.Exec(query, c.ID, c.Name, c.Icon, c.DefaultDuration, c.Color, c.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to import category %d: %w", c.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importLogs(logs []LogBackup) error {
	log.Printf("Importing %d activity logs...", len(logs))
	for _, l := range logs {
		query := `INSERT INTO activity_logs (id, user_id, family_id, category_id, category_name,
			category_icon, category_color, custom_note, duration_minutes, logged_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		_, err := s.db.Exec(query, l.ID, l.UserID, l.FamilyID, l.CategoryID, l.CategoryName,
			l.CategoryIcon, l.CategoryColor, nullIfEmpty(l.CustomNote), l.DurationMinutes,
			l.LoggedAt, l.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to import activity log %d: %w", l.ID, err)
		}
	}
	return nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"choreboard/internal/database"
	"choreboard/internal/models"
)

// ErrDuplicateInviteCode signals that an insert or update collided with an
// existing invite code. The membership manager retries with a fresh code.
var ErrDuplicateInviteCode = errors.New("invite code already in use")

// ErrAlreadyInFamily signals that the user was attached to a family between
// the caller's precondition check and the write.
var ErrAlreadyInFamily = errors.New("user already belongs to a family")

// FamilyRepository handles database operations for families
type FamilyRepository struct {
	db *database.DB
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db *database.DB) *FamilyRepository {
	return &FamilyRepository{db: db}
}

func scanFamily(row interface{ Scan(...interface{}) error }) (*models.Family, error) {
	family := &models.Family{}
	err := row.Scan(
		&family.ID,
		&family.Name,
		&family.InviteCode,
		&family.CreatedBy,
		&family.CreatedAt,
		&family.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return family, nil
}

// CreateFamily inserts a family and attaches its creator in one transaction.
// Returns ErrDuplicateInviteCode when the code collides and ErrAlreadyInFamily
// when the creator gained a family concurrently.
func (r *FamilyRepository) CreateFamily(name, inviteCode string, creatorID int64) (*models.Family, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	familyID, err := tx.ExecReturningID(`
		INSERT INTO families (name, invite_code, created_by)
		VALUES (?, ?, ?)
	`, name, inviteCode, creatorID)
	if err != nil {
		if r.db.Dialect.IsUniqueViolation(err) {
			return nil, ErrDuplicateInviteCode
		}
		return nil, fmt.Errorf("failed to create family: %w", err)
	}

	result, err := tx.Exec(`
		UPDATE users
		SET family_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND family_id IS NULL
	`, familyID, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to attach creator: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read attach result: %w", err)
	}
	if rows == 0 {
		return nil, ErrAlreadyInFamily
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit family creation: %w", err)
	}

	return r.GetFamilyByID(familyID)
}

// GetFamilyByID retrieves a family by ID
func (r *FamilyRepository) GetFamilyByID(id int64) (*models.Family, error) {
	query := `
		SELECT id, name, invite_code, created_by, created_at, updated_at
		FROM families
		WHERE id = ?
	`
	family, err := scanFamily(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	return family, nil
}

// GetFamilyByInviteCode retrieves a family by its invite code
func (r *FamilyRepository) GetFamilyByInviteCode(code string) (*models.Family, error) {
	query := `
		SELECT id, name, invite_code, created_by, created_at, updated_at
		FROM families
		WHERE invite_code = ?
	`
	family, err := scanFamily(r.db.QueryRow(query, code))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family by invite code: %w", err)
	}
	return family, nil
}

// UpdateInviteCode replaces a family's invite code. The old code stops
// resolving as soon as this commits.
func (r *FamilyRepository) UpdateInviteCode(familyID int64, code string) error {
	query := `
		UPDATE families
		SET invite_code = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	_, err := r.db.Exec(query, code, familyID)
	if err != nil {
		if r.db.Dialect.IsUniqueViolation(err) {
			return ErrDuplicateInviteCode
		}
		return fmt.Errorf("failed to update invite code: %w", err)
	}
	return nil
}

// GetFamilyMembers lists the members of a family ordered by join time
func (r *FamilyRepository) GetFamilyMembers(familyID int64) ([]models.Member, error) {
	query := `
		SELECT id, COALESCE(display_name, ''), COALESCE(family_role, ''), COALESCE(name, '')
		FROM users
		WHERE family_id = ?
		ORDER BY created_at, id
	`
	rows, err := r.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family members: %w", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.ID, &m.DisplayName, &m.FamilyRole, &m.Name); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

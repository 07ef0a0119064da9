package repository

import (
	"database/sql"
	"fmt"
	"time"

	"choreboard/internal/database"
	"choreboard/internal/models"
)

const userColumns = `id, COALESCE(open_id, ''), COALESCE(name, ''), COALESCE(email, ''),
		COALESCE(display_name, ''), COALESCE(family_role, ''), family_id, account_kind,
		created_at, updated_at, last_signed_in`

// UserRepository handles database operations for users and sessions
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.OpenID,
		&user.Name,
		&user.Email,
		&user.DisplayName,
		&user.FamilyRole,
		&user.FamilyID,
		&user.AccountKind,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.LastSignedIn,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user by ID
func (r *UserRepository) GetUserByID(id int64) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = ?"
	user, err := scanUser(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByOpenID retrieves a user by external identity
func (r *UserRepository) GetUserByOpenID(openID string) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE open_id = ?"
	user, err := scanUser(r.db.QueryRow(query, openID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by open id: %w", err)
	}
	return user, nil
}

// CreateAuthenticatedUser inserts a user for a first sign-in
func (r *UserRepository) CreateAuthenticatedUser(openID, name, email string) (*models.User, error) {
	query := `
		INSERT INTO users (open_id, name, email, account_kind, last_signed_in)
		VALUES (?, ?, ?, ?, ?)
	`
	now := time.Now().UTC()
	id, err := r.db.ExecReturningID(query, openID, name, email, models.AccountAuthenticated, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &models.User{
		ID:           id,
		OpenID:       openID,
		Name:         name,
		Email:        email,
		AccountKind:  models.AccountAuthenticated,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastSignedIn: now,
	}, nil
}

// CreateGuest inserts a guest user already attached to a family
func (r *UserRepository) CreateGuest(familyID int64, displayName, role string) (*models.User, error) {
	query := `
		INSERT INTO users (display_name, family_role, family_id, account_kind, last_signed_in)
		VALUES (?, ?, ?, ?, ?)
	`
	now := time.Now().UTC()
	id, err := r.db.ExecReturningID(query, displayName, role, familyID, models.AccountGuest, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create guest: %w", err)
	}

	return &models.User{
		ID:           id,
		DisplayName:  displayName,
		FamilyRole:   role,
		FamilyID:     &familyID,
		AccountKind:  models.AccountGuest,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastSignedIn: now,
	}, nil
}

// TouchSignIn refreshes provider-supplied fields on a repeat sign-in
func (r *UserRepository) TouchSignIn(userID int64, name, email string) error {
	query := `
		UPDATE users
		SET name = ?, email = ?, last_signed_in = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	_, err := r.db.Exec(query, name, email, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to update sign-in: %w", err)
	}
	return nil
}

// UpdateProfile sets the family role and display name
func (r *UserRepository) UpdateProfile(userID int64, role, displayName string) error {
	query := `
		UPDATE users
		SET family_role = ?, display_name = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	_, err := r.db.Exec(query, role, displayName, userID)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// AttachToFamily assigns a user to a family. The WHERE clause makes the
// single-family invariant and the assignment one atomic statement: it
// reports false when the user is already attached elsewhere.
func (r *UserRepository) AttachToFamily(userID, familyID int64) (bool, error) {
	query := `
		UPDATE users
		SET family_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND family_id IS NULL
	`
	result, err := r.db.Exec(query, familyID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to attach user to family: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read attach result: %w", err)
	}
	return rows > 0, nil
}

// CreateSession creates a new session for a user
func (r *UserRepository) CreateSession(sessionID string, userID int64, expiresAt time.Time) (*models.Session, error) {
	query := `
		INSERT INTO sessions (id, user_id, expires_at)
		VALUES (?, ?, ?)
	`
	_, err := r.db.Exec(query, sessionID, userID, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &models.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// GetSession retrieves a session by ID
func (r *UserRepository) GetSession(sessionID string) (*models.Session, error) {
	query := `
		SELECT id, user_id, expires_at, created_at
		FROM sessions
		WHERE id = ?
	`
	session := &models.Session{}
	err := r.db.QueryRow(query, sessionID).Scan(
		&session.ID,
		&session.UserID,
		&session.ExpiresAt,
		&session.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// DeleteSession removes a session from the database
func (r *UserRepository) DeleteSession(sessionID string) error {
	query := "DELETE FROM sessions WHERE id = ?"
	_, err := r.db.Exec(query, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes all expired sessions
func (r *UserRepository) DeleteExpiredSessions() error {
	query := "DELETE FROM sessions WHERE expires_at < ?"
	_, err := r.db.Exec(query, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return nil
}

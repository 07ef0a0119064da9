package repository

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"choreboard/internal/database"
	"choreboard/internal/models"
)

const testSchema = `
CREATE TABLE families (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    invite_code TEXT NOT NULL UNIQUE,
    created_by INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    open_id TEXT UNIQUE,
    name TEXT,
    email TEXT,
    display_name TEXT,
    family_role TEXT,
    family_id INTEGER REFERENCES families(id),
    account_kind TEXT NOT NULL DEFAULT 'authenticated',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    last_signed_in TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE activity_categories (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    icon TEXT NOT NULL,
    default_duration INTEGER NOT NULL,
    color TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE activity_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL REFERENCES users(id),
    family_id INTEGER NOT NULL REFERENCES families(id),
    category_id INTEGER NOT NULL,
    category_name TEXT NOT NULL,
    category_icon TEXT NOT NULL DEFAULT '',
    category_color TEXT NOT NULL DEFAULT '',
    custom_note TEXT,
    duration_minutes INTEGER NOT NULL,
    logged_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE sessions (
    id TEXT PRIMARY KEY,
    user_id INTEGER NOT NULL REFERENCES users(id),
    expires_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database integration test in short mode")
	}

	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to initialize test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}
	return db
}

func TestUserLifecycle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	created, err := repo.CreateAuthenticatedUser("open-123", "Alex", "alex@example.com")
	if err != nil {
		t.Fatalf("CreateAuthenticatedUser() unexpected error: %v", err)
	}

	fetched, err := repo.GetUserByOpenID("open-123")
	if err != nil {
		t.Fatalf("GetUserByOpenID() unexpected error: %v", err)
	}
	if fetched == nil || fetched.ID != created.ID {
		t.Fatalf("GetUserByOpenID() = %+v, want user %d", fetched, created.ID)
	}
	if fetched.AccountKind != models.AccountAuthenticated {
		t.Errorf("account kind = %q, want authenticated", fetched.AccountKind)
	}

	if err := repo.UpdateProfile(created.ID, models.RoleFather, "Dad"); err != nil {
		t.Fatalf("UpdateProfile() unexpected error: %v", err)
	}

	updated, err := repo.GetUserByID(created.ID)
	if err != nil {
		t.Fatalf("GetUserByID() unexpected error: %v", err)
	}
	if updated.FamilyRole != models.RoleFather || updated.DisplayName != "Dad" {
		t.Errorf("profile = %q/%q, want father/Dad", updated.FamilyRole, updated.DisplayName)
	}

	missing, err := repo.GetUserByOpenID("nobody")
	if err != nil {
		t.Fatalf("GetUserByOpenID() unexpected error: %v", err)
	}
	if missing != nil {
		t.Error("unknown open id should return nil user")
	}
}

func TestAttachToFamilyIsSingleShot(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	families := NewFamilyRepository(db)

	creator, err := users.CreateAuthenticatedUser("open-1", "Alex", "alex@example.com")
	if err != nil {
		t.Fatalf("CreateAuthenticatedUser() unexpected error: %v", err)
	}
	family, err := families.CreateFamily("The Smiths", "AAAAAA", creator.ID)
	if err != nil {
		t.Fatalf("CreateFamily() unexpected error: %v", err)
	}
	joiner, err := users.CreateAuthenticatedUser("open-2", "Sam", "sam@example.com")
	if err != nil {
		t.Fatalf("CreateAuthenticatedUser() unexpected error: %v", err)
	}

	attached, err := users.AttachToFamily(joiner.ID, family.ID)
	if err != nil {
		t.Fatalf("AttachToFamily() unexpected error: %v", err)
	}
	if !attached {
		t.Fatal("first attach should succeed")
	}

	// Second attach must be a no-op regardless of target family
	attached, err = users.AttachToFamily(joiner.ID, family.ID)
	if err != nil {
		t.Fatalf("AttachToFamily() unexpected error: %v", err)
	}
	if attached {
		t.Error("attach should fail once the user already has a family")
	}
}

func TestCreateFamilyAttachesCreator(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	families := NewFamilyRepository(db)

	creator, err := users.CreateAuthenticatedUser("open-1", "Alex", "alex@example.com")
	if err != nil {
		t.Fatalf("CreateAuthenticatedUser() unexpected error: %v", err)
	}

	family, err := families.CreateFamily("The Smiths", "AAAAAA", creator.ID)
	if err != nil {
		t.Fatalf("CreateFamily() unexpected error: %v", err)
	}

	attached, err := users.GetUserByID(creator.ID)
	if err != nil {
		t.Fatalf("GetUserByID() unexpected error: %v", err)
	}
	if attached.FamilyID == nil || *attached.FamilyID != family.ID {
		t.Error("creator should be attached to the new family")
	}

	// Creating a second family for the same user must fail and leave no row
	_, err = families.CreateFamily("Again", "CCCCCC", creator.ID)
	if !errors.Is(err, ErrAlreadyInFamily) {
		t.Fatalf("error = %v, want ErrAlreadyInFamily", err)
	}
	leftover, err := families.GetFamilyByInviteCode("CCCCCC")
	if err != nil {
		t.Fatalf("GetFamilyByInviteCode() unexpected error: %v", err)
	}
	if leftover != nil {
		t.Error("failed creation should roll back the family row")
	}
}

func TestDuplicateInviteCode(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	families := NewFamilyRepository(db)

	u1, _ := users.CreateAuthenticatedUser("open-1", "Alex", "alex@example.com")
	u2, _ := users.CreateAuthenticatedUser("open-2", "Sam", "sam@example.com")

	if _, err := families.CreateFamily("First", "AAAAAA", u1.ID); err != nil {
		t.Fatalf("CreateFamily() unexpected error: %v", err)
	}

	_, err := families.CreateFamily("Second", "AAAAAA", u2.ID)
	if !errors.Is(err, ErrDuplicateInviteCode) {
		t.Errorf("error = %v, want ErrDuplicateInviteCode", err)
	}
}

func TestRegenerateInviteCodeInvalidatesOldCode(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	families := NewFamilyRepository(db)

	creator, _ := users.CreateAuthenticatedUser("open-1", "Alex", "alex@example.com")
	family, err := families.CreateFamily("The Smiths", "AAAAAA", creator.ID)
	if err != nil {
		t.Fatalf("CreateFamily() unexpected error: %v", err)
	}

	if err := families.UpdateInviteCode(family.ID, "BBBBBB"); err != nil {
		t.Fatalf("UpdateInviteCode() unexpected error: %v", err)
	}

	old, err := families.GetFamilyByInviteCode("AAAAAA")
	if err != nil {
		t.Fatalf("GetFamilyByInviteCode() unexpected error: %v", err)
	}
	if old != nil {
		t.Error("old invite code should no longer resolve")
	}

	current, err := families.GetFamilyByInviteCode("BBBBBB")
	if err != nil {
		t.Fatalf("GetFamilyByInviteCode() unexpected error: %v", err)
	}
	if current == nil || current.ID != family.ID {
		t.Error("new invite code should resolve to the family")
	}
}

func TestFamilyMembers(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	families := NewFamilyRepository(db)

	creator, _ := users.CreateAuthenticatedUser("open-1", "Alex", "alex@example.com")
	family, err := families.CreateFamily("The Smiths", "AAAAAA", creator.ID)
	if err != nil {
		t.Fatalf("CreateFamily() unexpected error: %v", err)
	}

	guest, err := users.CreateGuest(family.ID, "Kiddo", models.RoleKid)
	if err != nil {
		t.Fatalf("CreateGuest() unexpected error: %v", err)
	}

	members, err := families.GetFamilyMembers(family.ID)
	if err != nil {
		t.Fatalf("GetFamilyMembers() unexpected error: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("got %d members, want 2", len(members))
	}
	if members[0].ID != creator.ID || members[1].ID != guest.ID {
		t.Errorf("member order = %d,%d, want creator then guest", members[0].ID, members[1].ID)
	}
	if members[1].DisplayName != "Kiddo" || members[1].FamilyRole != models.RoleKid {
		t.Errorf("guest member = %+v, want Kiddo/kid", members[1])
	}
}

func seedLedger(t *testing.T, db *database.DB) (*ActivityRepository, int64, int64, int64) {
	t.Helper()
	users := NewUserRepository(db)
	families := NewFamilyRepository(db)
	activities := NewActivityRepository(db)

	u1, _ := users.CreateAuthenticatedUser("open-1", "Alex", "alex@example.com")
	u2, _ := users.CreateAuthenticatedUser("open-2", "Sam", "sam@example.com")
	f1, err := families.CreateFamily("First", "AAAAAA", u1.ID)
	if err != nil {
		t.Fatalf("CreateFamily() unexpected error: %v", err)
	}
	f2, err := families.CreateFamily("Second", "BBBBBB", u2.ID)
	if err != nil {
		t.Fatalf("CreateFamily() unexpected error: %v", err)
	}

	base := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	entries := []*models.ActivityLog{
		{UserID: u1.ID, FamilyID: f1.ID, CategoryID: 1, CategoryName: "Cooking", CategoryIcon: "🍳", CategoryColor: "#F97316", DurationMinutes: 45, LoggedAt: base},
		{UserID: u1.ID, FamilyID: f1.ID, CategoryID: 1, CategoryName: "Cooking", CategoryIcon: "🍳", CategoryColor: "#F97316", DurationMinutes: 30, LoggedAt: base.Add(time.Hour)},
		{UserID: u1.ID, FamilyID: f1.ID, CategoryID: 2, CategoryName: "Cleaning", CategoryIcon: "🧹", CategoryColor: "#8B5CF6", DurationMinutes: 60, LoggedAt: base.Add(2 * time.Hour)},
		{UserID: u2.ID, FamilyID: f2.ID, CategoryID: 1, CategoryName: "Cooking", CategoryIcon: "🍳", CategoryColor: "#F97316", DurationMinutes: 90, LoggedAt: base},
	}
	for _, e := range entries {
		if _, err := activities.InsertLog(e); err != nil {
			t.Fatalf("InsertLog() unexpected error: %v", err)
		}
	}
	return activities, u1.ID, f1.ID, f2.ID
}

func TestQueryLogsNewestFirstAndTenantIsolated(t *testing.T) {
	db := setupTestDB(t)
	activities, userID, f1, _ := seedLedger(t, db)

	logs, err := activities.QueryLogs(LogFilter{FamilyID: f1, Limit: 50})
	if err != nil {
		t.Fatalf("QueryLogs() unexpected error: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("got %d logs, want 3 (other family's entries must not leak)", len(logs))
	}
	for i := 1; i < len(logs); i++ {
		if logs[i].LoggedAt.After(logs[i-1].LoggedAt) {
			t.Error("logs should be ordered newest first")
		}
	}
	for _, l := range logs {
		if l.FamilyID != f1 {
			t.Errorf("log %d belongs to family %d, want %d", l.ID, l.FamilyID, f1)
		}
		if l.UserID != userID {
			t.Errorf("log %d belongs to user %d, want %d", l.ID, l.UserID, userID)
		}
	}
}

func TestQueryLogsFilters(t *testing.T) {
	db := setupTestDB(t)
	activities, userID, f1, _ := seedLedger(t, db)

	from := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)
	logs, err := activities.QueryLogs(LogFilter{FamilyID: f1, UserID: &userID, From: &from, Limit: 50})
	if err != nil {
		t.Fatalf("QueryLogs() unexpected error: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("got %d logs after 12:30, want 2", len(logs))
	}

	logs, err = activities.QueryLogs(LogFilter{FamilyID: f1, Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("QueryLogs() unexpected error: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("got %d logs with limit 1, want 1", len(logs))
	}
	if logs[0].CategoryName != "Cooking" || logs[0].DurationMinutes != 30 {
		t.Errorf("second-newest log = %s/%d, want Cooking/30", logs[0].CategoryName, logs[0].DurationMinutes)
	}
}

func TestRollups(t *testing.T) {
	db := setupTestDB(t)
	activities, userID, f1, f2 := seedLedger(t, db)

	from := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	byUser, err := activities.RollupByUser(f1, from, to)
	if err != nil {
		t.Fatalf("RollupByUser() unexpected error: %v", err)
	}
	if len(byUser) != 1 {
		t.Fatalf("got %d user rollups, want 1", len(byUser))
	}
	if byUser[0].UserID != userID || byUser[0].TotalMinutes != 135 || byUser[0].LogCount != 3 {
		t.Errorf("user rollup = %+v, want 135 minutes over 3 logs", byUser[0])
	}

	byCategory, err := activities.RollupByUserAndCategory(f1, from, to)
	if err != nil {
		t.Fatalf("RollupByUserAndCategory() unexpected error: %v", err)
	}
	if len(byCategory) != 2 {
		t.Fatalf("got %d category rollups, want 2", len(byCategory))
	}

	totals := make(map[string]int)
	counts := make(map[string]int)
	for _, ru := range byCategory {
		totals[ru.CategoryName] = ru.TotalMinutes
		counts[ru.CategoryName] = ru.LogCount
	}
	if totals["Cooking"] != 75 || counts["Cooking"] != 2 {
		t.Errorf("Cooking rollup = %d/%d, want 75 minutes over 2 logs", totals["Cooking"], counts["Cooking"])
	}
	if totals["Cleaning"] != 60 || counts["Cleaning"] != 1 {
		t.Errorf("Cleaning rollup = %d/%d, want 60 minutes over 1 log", totals["Cleaning"], counts["Cleaning"])
	}

	// Category sums must agree with the per-user sum
	var sum int
	for _, ru := range byCategory {
		sum += ru.TotalMinutes
	}
	if sum != byUser[0].TotalMinutes {
		t.Errorf("category sum %d != user total %d", sum, byUser[0].TotalMinutes)
	}

	// The other family's rollup only sees its own entry
	otherRollup, err := activities.RollupByUser(f2, from, to)
	if err != nil {
		t.Fatalf("RollupByUser() unexpected error: %v", err)
	}
	if len(otherRollup) != 1 || otherRollup[0].TotalMinutes != 90 {
		t.Errorf("other family rollup = %+v, want one entry of 90 minutes", otherRollup)
	}
}

func TestRollupWindowIsHalfOpen(t *testing.T) {
	db := setupTestDB(t)
	activities, _, f1, _ := seedLedger(t, db)

	// Window ending exactly at 12:00 excludes the 12:00 entry
	from := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	byUser, err := activities.RollupByUser(f1, from, to)
	if err != nil {
		t.Fatalf("RollupByUser() unexpected error: %v", err)
	}
	if len(byUser) != 0 {
		t.Errorf("half-open window should exclude the boundary entry, got %+v", byUser)
	}
}

func TestSessions(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)

	user, _ := users.CreateAuthenticatedUser("open-1", "Alex", "alex@example.com")

	expires := time.Now().UTC().Add(time.Hour)
	if _, err := users.CreateSession("session-1", user.ID, expires); err != nil {
		t.Fatalf("CreateSession() unexpected error: %v", err)
	}

	session, err := users.GetSession("session-1")
	if err != nil {
		t.Fatalf("GetSession() unexpected error: %v", err)
	}
	if session == nil || session.UserID != user.ID {
		t.Fatalf("GetSession() = %+v, want session for user %d", session, user.ID)
	}

	if err := users.DeleteSession("session-1"); err != nil {
		t.Fatalf("DeleteSession() unexpected error: %v", err)
	}
	session, err = users.GetSession("session-1")
	if err != nil {
		t.Fatalf("GetSession() unexpected error: %v", err)
	}
	if session != nil {
		t.Error("deleted session should not resolve")
	}
}

func TestDeleteExpiredSessions(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)

	user, _ := users.CreateAuthenticatedUser("open-1", "Alex", "alex@example.com")

	if _, err := users.CreateSession("live", user.ID, time.Now().UTC().Add(time.Hour)); err != nil {
		t.Fatalf("CreateSession() unexpected error: %v", err)
	}
	if _, err := users.CreateSession("dead", user.ID, time.Now().UTC().Add(-time.Hour)); err != nil {
		t.Fatalf("CreateSession() unexpected error: %v", err)
	}

	if err := users.DeleteExpiredSessions(); err != nil {
		t.Fatalf("DeleteExpiredSessions() unexpected error: %v", err)
	}

	if s, _ := users.GetSession("dead"); s != nil {
		t.Error("expired session should be removed")
	}
	if s, _ := users.GetSession("live"); s == nil {
		t.Error("live session should survive cleanup")
	}
}

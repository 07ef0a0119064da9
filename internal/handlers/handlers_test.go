package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"choreboard/internal/credentials"
	"choreboard/internal/database"
	"choreboard/internal/repository"
	"choreboard/internal/security"
	"choreboard/internal/service"
	"choreboard/internal/validation"
)

const testIdentitySecret = "test-identity-secret"

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", validation.ValidationError{Field: "name", Message: "required"}, http.StatusBadRequest},
		{"unauthenticated", service.ErrUnauthenticated, http.StatusUnauthorized},
		{"forbidden", service.ErrForbidden, http.StatusForbidden},
		{"not found", service.ErrNotFound, http.StatusNotFound},
		{"conflict", service.ErrConflict, http.StatusConflict},
		{"unavailable", service.ErrUnavailable, http.StatusServiceUnavailable},
		{"wrapped sentinel", fmt.Errorf("context: %w", service.ErrConflict), http.StatusConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, tt.err)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body errorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("error body is not JSON: %v", err)
			}
			if body.Error == "" || body.Message == "" {
				t.Errorf("error body = %+v, want error and message set", body)
			}
		})
	}
}

// newTestServer wires the full procedure surface against a temp sqlite
// database, mirroring the wiring in cmd/server
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(filepath.Join("..", "..", "migrations")); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	if err := db.SeedActivityCategories(); err != nil {
		t.Fatalf("failed to seed categories: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	authService := service.NewAuthService(userRepo, testIdentitySecret, time.Hour)
	familyService := service.NewFamilyService(familyRepo, userRepo, credentials.NewCryptoCodeGenerator())
	activityService := service.NewActivityService(activityRepo)
	aggregationService := service.NewAggregationService(activityRepo, familyRepo)

	middleware := NewMiddleware(authService)
	authHandler := NewAuthHandler(authService)
	familyHandler := NewFamilyHandler(familyService, authService, mustEmailService(t))
	activityHandler := NewActivityHandler(activityService, aggregationService)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/auth/me", middleware.OptionalAuth(authHandler.Me))
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.HandleFunc("GET /api/family", middleware.RequireAuth(familyHandler.GetFamily))
	mux.HandleFunc("POST /api/family", middleware.RequireAuth(familyHandler.CreateFamily))
	mux.HandleFunc("POST /api/family/join", middleware.RequireAuth(familyHandler.JoinFamily))
	mux.HandleFunc("POST /api/family/guest-join", familyHandler.GuestJoin)
	mux.HandleFunc("POST /api/family/profile", middleware.RequireAuth(familyHandler.SetProfile))
	mux.HandleFunc("POST /api/family/invite/regenerate", middleware.RequireAuth(familyHandler.RegenerateInvite))
	mux.HandleFunc("GET /api/activities/categories", activityHandler.ListCategories)
	mux.HandleFunc("POST /api/activities", middleware.RequireAuth(activityHandler.LogActivity))
	mux.HandleFunc("GET /api/activities", middleware.RequireAuth(activityHandler.GetHistory))
	mux.HandleFunc("GET /api/dashboard", middleware.RequireAuth(activityHandler.GetDashboard))
	mux.HandleFunc("GET /api/stats", middleware.RequireAuth(activityHandler.GetStats))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func mustEmailService(t *testing.T) *service.EmailService {
	t.Helper()
	// Empty sender address keeps delivery disabled
	svc, err := service.NewEmailService(context.Background(), "", "", "", "")
	if err != nil {
		t.Fatalf("failed to build email service: %v", err)
	}
	return svc
}

func identityToken(t *testing.T, openID, name, email string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   openID,
		"name":  name,
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testIdentitySecret))
	if err != nil {
		t.Fatalf("failed to sign identity token: %v", err)
	}
	return token
}

// testClient couples an HTTP client to one user's session cookie
type testClient struct {
	t       *testing.T
	baseURL string
	cookie  *http.Cookie
}

func (c *testClient) do(method, path string, payload interface{}) (*http.Response, []byte) {
	c.t.Helper()

	var body *bytes.Buffer = bytes.NewBuffer(nil)
	if payload != nil {
		if err := json.NewEncoder(body).Encode(payload); err != nil {
			c.t.Fatalf("failed to encode payload: %v", err)
		}
	}

	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		c.t.Fatalf("failed to build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	for _, cookie := range resp.Cookies() {
		if cookie.Name == security.SessionCookieName && cookie.Value != "" {
			c.cookie = cookie
		}
	}

	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func (c *testClient) doJSON(method, path string, payload interface{}, wantStatus int, out interface{}) {
	c.t.Helper()
	resp, body := c.do(method, path, payload)
	if resp.StatusCode != wantStatus {
		c.t.Fatalf("%s %s status = %d, want %d (body: %s)", method, path, resp.StatusCode, wantStatus, body)
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			c.t.Fatalf("%s %s returned invalid JSON: %v", method, path, err)
		}
	}
}

func TestEndToEndFamilyFlow(t *testing.T) {
	server := newTestServer(t)

	// Sign in as the first parent
	parent := &testClient{t: t, baseURL: server.URL}
	var me struct {
		ID          int64  `json:"id"`
		AccountKind string `json:"accountKind"`
	}
	parent.doJSON("POST", "/api/auth/login",
		map[string]string{"identityToken": identityToken(t, "open-1", "Alex", "alex@example.com")},
		http.StatusOK, &me)
	if parent.cookie == nil {
		t.Fatal("login should set a session cookie")
	}

	// Create the family
	var family struct {
		ID         int64  `json:"id"`
		InviteCode string `json:"inviteCode"`
	}
	parent.doJSON("POST", "/api/family", map[string]string{"name": "The Smiths"}, http.StatusCreated, &family)
	if len(family.InviteCode) != credentials.InviteCodeLength {
		t.Fatalf("invite code %q has length %d, want %d", family.InviteCode, len(family.InviteCode), credentials.InviteCodeLength)
	}

	// Creating a second family conflicts
	resp, _ := parent.do("POST", "/api/family", map[string]string{"name": "Again"})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second create status = %d, want 409", resp.StatusCode)
	}

	// Set the parent's profile
	parent.doJSON("POST", "/api/family/profile",
		map[string]string{"role": "father", "displayName": "Dad"}, http.StatusOK, nil)

	// A guest joins with the invite code
	guest := &testClient{t: t, baseURL: server.URL}
	var guestJoin struct {
		User struct {
			AccountKind string `json:"accountKind"`
		} `json:"user"`
	}
	guest.doJSON("POST", "/api/family/guest-join",
		map[string]string{"inviteCode": family.InviteCode, "displayName": "Kiddo", "role": "kid"},
		http.StatusCreated, &guestJoin)
	if guestJoin.User.AccountKind != "guest" {
		t.Errorf("guest account kind = %q, want guest", guestJoin.User.AccountKind)
	}
	if guest.cookie == nil {
		t.Fatal("guest join should set a session cookie")
	}

	// Wrong code resolves nothing
	stranger := &testClient{t: t, baseURL: server.URL}
	resp, _ = stranger.do("POST", "/api/family/guest-join",
		map[string]string{"inviteCode": "ZZZZZ9", "displayName": "Nobody", "role": "kid"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("guest join with bad code status = %d, want 404", resp.StatusCode)
	}

	// Both members show up on the family listing
	var listing struct {
		Members []struct {
			DisplayName string `json:"displayName"`
		} `json:"members"`
	}
	parent.doJSON("GET", "/api/family", nil, http.StatusOK, &listing)
	if len(listing.Members) != 2 {
		t.Fatalf("family has %d members, want 2", len(listing.Members))
	}

	// Catalog is seeded
	var categories []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	parent.doJSON("GET", "/api/activities/categories", nil, http.StatusOK, &categories)
	if len(categories) != 15 {
		t.Fatalf("catalog has %d categories, want 15", len(categories))
	}

	// Parent logs 45 minutes of cooking, guest logs 30 minutes of dishes
	parent.doJSON("POST", "/api/activities", map[string]interface{}{
		"categoryId":      categories[0].ID,
		"categoryName":    "Cooking",
		"categoryIcon":    "🍳",
		"categoryColor":   "#F97316",
		"durationMinutes": 45,
	}, http.StatusCreated, nil)
	guest.doJSON("POST", "/api/activities", map[string]interface{}{
		"categoryId":      categories[4].ID,
		"categoryName":    "Dishes",
		"categoryIcon":    "🍽️",
		"categoryColor":   "#F59E0B",
		"durationMinutes": 30,
		"customNote":      "after dinner",
	}, http.StatusCreated, nil)

	// Out-of-range duration is rejected
	resp, _ = parent.do("POST", "/api/activities", map[string]interface{}{
		"categoryId":      categories[0].ID,
		"categoryName":    "Cooking",
		"durationMinutes": 2000,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("oversized duration status = %d, want 400", resp.StatusCode)
	}

	// An explicit zero limit is rejected, not defaulted
	resp, _ = parent.do("GET", "/api/activities?limit=0", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("limit=0 status = %d, want 400", resp.StatusCode)
	}

	// History shows both entries newest first
	var history []struct {
		CategoryName string `json:"categoryName"`
	}
	parent.doJSON("GET", "/api/activities", nil, http.StatusOK, &history)
	if len(history) != 2 {
		t.Fatalf("history has %d entries, want 2", len(history))
	}

	// Daily dashboard ranks the parent (45) above the guest (30)
	var dashboard struct {
		ByUser []struct {
			UserID       int64 `json:"userId"`
			TotalMinutes int   `json:"totalMinutes"`
		} `json:"byUser"`
		ByCategory []struct {
			CategoryName string `json:"categoryName"`
			TotalMinutes int    `json:"totalMinutes"`
		} `json:"byCategory"`
		Members []struct {
			DisplayName string `json:"displayName"`
		} `json:"members"`
	}
	parent.doJSON("GET", "/api/dashboard?period=daily", nil, http.StatusOK, &dashboard)
	if len(dashboard.ByUser) != 2 {
		t.Fatalf("dashboard has %d user rollups, want 2", len(dashboard.ByUser))
	}
	if dashboard.ByUser[0].TotalMinutes != 45 || dashboard.ByUser[1].TotalMinutes != 30 {
		t.Errorf("leaderboard = %+v, want 45 then 30", dashboard.ByUser)
	}
	if len(dashboard.ByCategory) != 2 {
		t.Errorf("dashboard has %d category rollups, want 2", len(dashboard.ByCategory))
	}
	if len(dashboard.Members) != 2 {
		t.Errorf("dashboard lists %d members, want 2", len(dashboard.Members))
	}

	// Stats default to the trailing month, covering today's entries
	var stats struct {
		Days   int `json:"days"`
		ByUser []struct {
			TotalMinutes int `json:"totalMinutes"`
		} `json:"byUser"`
	}
	parent.doJSON("GET", "/api/stats", nil, http.StatusOK, &stats)
	if stats.Days != 30 {
		t.Errorf("default stats window = %d days, want 30", stats.Days)
	}
	if len(stats.ByUser) != 2 {
		t.Errorf("stats has %d user rollups, want 2", len(stats.ByUser))
	}
	resp, _ = parent.do("GET", "/api/stats?days=0", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("days=0 status = %d, want 400", resp.StatusCode)
	}

	// Only the creator may rotate the invite code
	resp, _ = guest.do("POST", "/api/family/invite/regenerate", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("guest regenerate status = %d, want 403", resp.StatusCode)
	}

	// Regenerating the invite code invalidates the old one
	var regenerated struct {
		InviteCode string `json:"inviteCode"`
	}
	parent.doJSON("POST", "/api/family/invite/regenerate", nil, http.StatusOK, &regenerated)
	if regenerated.InviteCode == family.InviteCode {
		t.Error("regenerated invite code should differ from the old one")
	}
	resp, _ = stranger.do("POST", "/api/family/guest-join",
		map[string]string{"inviteCode": family.InviteCode, "displayName": "Late", "role": "kid"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("old invite code status = %d, want 404 after regeneration", resp.StatusCode)
	}

	// Logout kills the session; me then reports a null identity
	parent.doJSON("POST", "/api/auth/logout", nil, http.StatusOK, nil)
	var loggedOut struct {
		User *struct {
			ID int64 `json:"id"`
		} `json:"user"`
	}
	parent.doJSON("GET", "/api/auth/me", nil, http.StatusOK, &loggedOut)
	if loggedOut.User != nil {
		t.Errorf("me after logout = %+v, want null user", loggedOut.User)
	}
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	server := newTestServer(t)
	client := &testClient{t: t, baseURL: server.URL}

	for _, path := range []string{"/api/family", "/api/activities", "/api/dashboard", "/api/stats"} {
		resp, _ := client.do("GET", path, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("GET %s without session status = %d, want 401", path, resp.StatusCode)
		}
	}
}

func TestLoginRejectsBadToken(t *testing.T) {
	server := newTestServer(t)
	client := &testClient{t: t, baseURL: server.URL}

	resp, _ := client.do("POST", "/api/auth/login", map[string]string{"identityToken": "not-a-jwt"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("login with garbage token status = %d, want 401", resp.StatusCode)
	}

	// Token signed with the wrong secret is also rejected
	claims := jwt.MapClaims{"sub": "open-9", "exp": time.Now().Add(time.Hour).Unix()}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("wrong-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	resp, _ = client.do("POST", "/api/auth/login", map[string]string{"identityToken": forged})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("login with forged token status = %d, want 401", resp.StatusCode)
	}
}

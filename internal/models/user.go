package models

import "time"

// Account kinds. Guests are created through an invite code and have no
// external identity; everything downstream treats both kinds the same.
const (
	AccountAuthenticated = "authenticated"
	AccountGuest         = "guest"
)

// Family roles a member can pick for themselves.
const (
	RoleFather = "father"
	RoleMother = "mother"
	RoleKid    = "kid"
)

// User represents a household member. OpenID is the opaque identity from the
// external auth layer and is empty for guests. FamilyID is nil until the user
// creates or joins a family.
type User struct {
	ID           int64
	OpenID       string
	Name         string
	Email        string
	DisplayName  string
	FamilyRole   string // father, mother, kid, or "" until set
	FamilyID     *int64
	AccountKind  string // authenticated or guest
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastSignedIn time.Time
}

// IsGuest reports whether the user was created through guest join
func (u *User) IsGuest() bool {
	return u.AccountKind == AccountGuest
}

// HasFamily reports whether the user is attached to a family
func (u *User) HasFamily() bool {
	return u.FamilyID != nil
}

// ResolvedName returns the display name, falling back to the provider name
func (u *User) ResolvedName() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Name
}

// Session represents an authenticated session
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// ValidRole reports whether role is one of the accepted family roles
func ValidRole(role string) bool {
	switch role {
	case RoleFather, RoleMother, RoleKid:
		return true
	}
	return false
}

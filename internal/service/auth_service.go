package service

import (
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"choreboard/internal/models"
	"choreboard/internal/repository"
	"choreboard/internal/security"
)

// identityClaims is the payload of the identity token issued by the external
// auth layer. Subject carries the stable open id.
type identityClaims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// AuthService exchanges identity tokens for sessions and resolves sessions
// back to users
type AuthService struct {
	userRepo        *repository.UserRepository
	identitySecret  []byte
	sessionDuration time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo *repository.UserRepository, identitySecret string, sessionDuration time.Duration) *AuthService {
	return &AuthService{
		userRepo:        userRepo,
		identitySecret:  []byte(identitySecret),
		sessionDuration: sessionDuration,
	}
}

// SignIn verifies an identity token, upserts the matching user, and opens a
// session. First sign-in creates the user record.
func (s *AuthService) SignIn(identityToken string) (*models.User, *models.Session, error) {
	claims, err := s.verifyIdentityToken(identityToken)
	if err != nil {
		return nil, nil, ErrUnauthenticated
	}

	user, err := s.userRepo.GetUserByOpenID(claims.Subject)
	if err != nil {
		return nil, nil, ErrUnavailable
	}

	if user == nil {
		user, err = s.userRepo.CreateAuthenticatedUser(claims.Subject, claims.Name, claims.Email)
		if err != nil {
			return nil, nil, ErrUnavailable
		}
	} else {
		if err := s.userRepo.TouchSignIn(user.ID, claims.Name, claims.Email); err != nil {
			return nil, nil, ErrUnavailable
		}
		user.Name = claims.Name
		user.Email = claims.Email
	}

	session, err := s.openSession(user.ID)
	if err != nil {
		return nil, nil, ErrUnavailable
	}
	return user, session, nil
}

func (s *AuthService) verifyIdentityToken(tokenString string) (*identityClaims, error) {
	claims := &identityClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.identitySecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse identity token: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("invalid identity token")
	}
	return claims, nil
}

// OpenSessionFor opens a session for an already-created user. Guest join uses
// this after inserting the guest record.
func (s *AuthService) OpenSessionFor(userID int64) (*models.Session, error) {
	session, err := s.openSession(userID)
	if err != nil {
		return nil, ErrUnavailable
	}
	return session, nil
}

func (s *AuthService) openSession(userID int64) (*models.Session, error) {
	sessionID := security.GenerateSessionID()
	expiresAt := time.Now().UTC().Add(s.sessionDuration)
	return s.userRepo.CreateSession(sessionID, userID, expiresAt)
}

// ValidateSession resolves a session ID to its user. Expired sessions are
// deleted on sight.
func (s *AuthService) ValidateSession(sessionID string) (*models.User, error) {
	if sessionID == "" {
		return nil, ErrUnauthenticated
	}

	session, err := s.userRepo.GetSession(sessionID)
	if err != nil {
		return nil, ErrUnavailable
	}
	if session == nil {
		return nil, ErrUnauthenticated
	}

	if session.IsExpired() {
		if err := s.userRepo.DeleteSession(sessionID); err != nil {
			log.Printf("Failed to delete expired session: %v", err)
		}
		return nil, ErrUnauthenticated
	}

	user, err := s.userRepo.GetUserByID(session.UserID)
	if err != nil {
		return nil, ErrUnavailable
	}
	if user == nil {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// Logout removes a session
func (s *AuthService) Logout(sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.userRepo.DeleteSession(sessionID); err != nil {
		return ErrUnavailable
	}
	return nil
}

// SessionDuration returns the configured session lifetime
func (s *AuthService) SessionDuration() time.Duration {
	return s.sessionDuration
}

// StartSessionCleanup starts a background loop that purges expired sessions
func (s *AuthService) StartSessionCleanup(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			if err := s.userRepo.DeleteExpiredSessions(); err != nil {
				log.Printf("Failed to clean up expired sessions: %v", err)
			}
		}
	}()
}
